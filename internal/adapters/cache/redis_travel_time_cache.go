package cache

import (
	"context"
	"drivetime-accessibility/internal/platform/obs"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

// Stored for pairs the routing service reported as unreachable.
const redisUnreachable = "null"

// RedisTravelTimeCache keeps one hash per (profile, origin); fields are destination keys.
type RedisTravelTimeCache struct {
	Client redis.UniversalClient
	TTL    time.Duration
}

func NewRedisTravelTimeCache(client redis.UniversalClient, ttl time.Duration) *RedisTravelTimeCache {
	return &RedisTravelTimeCache{Client: client, TTL: ttl}
}

func redisKey(profile, origin string) string {
	return "travel_time:" + profile + ":" + origin
}

// Fetch cached travel times for one origin and multiple destinations.
func (s *RedisTravelTimeCache) GetMany(
	ctx context.Context,
	profile string,
	origin string,
	destinations []string,
) (_ map[string]*float64, err error) {
	defer obs.Time(ctx, "travel_time.cache.redis.GetMany")(&err)

	if s.Client == nil {
		return nil, errors.New("travel time cache: redis client is nil")
	}

	if origin == "" {
		return nil, errors.New("get travel time cache: origin must not be empty")
	}

	uniq := uniqueKeys(destinations)
	if len(uniq) == 0 {
		return map[string]*float64{}, nil
	}

	vals, err := s.Client.HMGet(ctx, redisKey(profile, origin), uniq...).Result()
	if err != nil {
		return nil, eris.Wrap(err, "get travel time cache: redis HMGET")
	}

	out := make(map[string]*float64, len(uniq))
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		if raw == redisUnreachable {
			out[uniq[i]] = nil
			continue
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, eris.Wrapf(err, "get travel time cache: parse value for %q", uniq[i])
		}
		out[uniq[i]] = &f
	}

	return out, nil
}

// Store many cached travel times for a single origin.
func (s *RedisTravelTimeCache) PutMany(
	ctx context.Context,
	profile string,
	origin string,
	results map[string]*float64,
) error {
	if s.Client == nil {
		return errors.New("travel time cache: redis client is nil")
	}

	if origin == "" {
		return errors.New("insert travel time cache: origin must not be empty")
	}

	if len(results) == 0 {
		return nil
	}

	fields := make(map[string]any, len(results))
	for dest, m := range results {
		if strings.TrimSpace(dest) == "" {
			return errors.New("insert travel time cache: empty destination key")
		}
		if m == nil {
			fields[dest] = redisUnreachable
			continue
		}
		fields[dest] = strconv.FormatFloat(*m, 'f', -1, 64)
	}

	key := redisKey(profile, origin)
	pipe := s.Client.TxPipeline()
	pipe.HSet(ctx, key, fields)
	if s.TTL > 0 {
		pipe.Expire(ctx, key, s.TTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return eris.Wrap(err, "insert travel time cache: redis HSET")
	}

	return nil
}
