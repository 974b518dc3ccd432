package routing

import (
	"context"
	"drivetime-accessibility/internal/domain"
	"drivetime-accessibility/internal/platform/obs"
	"drivetime-accessibility/internal/ports"

	"github.com/bluele/gcache"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

type cachedTime struct {
	minutes *float64
}

// CachedProvider decorates a TravelTimeProvider with an in-memory LRU and an
// optional persistent ports.TravelTimeCache. Only origins with at least one
// uncached destination are forwarded upstream, in a single request.
//
// Cache read and write failures degrade to cache misses; they never fail a request.
type CachedProvider struct {
	next    ports.TravelTimeProvider
	store   ports.TravelTimeCache
	lru     gcache.Cache
	profile string
}

func NewCachedProvider(next ports.TravelTimeProvider, store ports.TravelTimeCache, profile string, lruSize int) *CachedProvider {
	if lruSize <= 0 {
		lruSize = 10000
	}
	return &CachedProvider{
		next:    next,
		store:   store,
		lru:     gcache.New(lruSize).LRU().Build(),
		profile: profile,
	}
}

func (c *CachedProvider) lruKey(origin, destination string) string {
	return c.profile + "|" + origin + "|" + destination
}

// lookup resolves one origin row from the LRU, then the persistent store.
// ok is false when any destination is missing.
func (c *CachedProvider) lookup(ctx context.Context, origin string, destKeys []string) (row []*float64, ok bool) {
	row = make([]*float64, len(destKeys))
	misses := make([]string, 0, len(destKeys))
	missIdx := make([]int, 0, len(destKeys))

	for j, d := range destKeys {
		v, err := c.lru.Get(c.lruKey(origin, d))
		if err != nil {
			misses = append(misses, d)
			missIdx = append(missIdx, j)
			continue
		}
		row[j] = v.(cachedTime).minutes
	}

	if len(misses) == 0 {
		return row, true
	}
	if c.store == nil {
		return nil, false
	}

	hits, err := c.store.GetMany(ctx, c.profile, origin, misses)
	if err != nil {
		obs.Logger(ctx).Warn("travel time cache read failed", zap.String("origin", origin), zap.Error(err))
		return nil, false
	}

	for k, d := range misses {
		m, found := hits[d]
		if !found {
			return nil, false
		}
		row[missIdx[k]] = m
		_ = c.lru.Set(c.lruKey(origin, d), cachedTime{minutes: m})
	}

	return row, true
}

func (c *CachedProvider) remember(ctx context.Context, origin string, destKeys []string, row []*float64) {
	results := make(map[string]*float64, len(destKeys))
	for j, d := range destKeys {
		results[d] = row[j]
		_ = c.lru.Set(c.lruKey(origin, d), cachedTime{minutes: row[j]})
	}

	if c.store == nil {
		return
	}
	if err := c.store.PutMany(ctx, c.profile, origin, results); err != nil {
		obs.Logger(ctx).Warn("travel time cache write failed", zap.String("origin", origin), zap.Error(err))
	}
}

func (c *CachedProvider) TravelTimes(
	ctx context.Context,
	origins []domain.Coordinates,
	destinations []domain.Coordinates,
) ([][]*float64, error) {
	destKeys := make([]string, len(destinations))
	for j, d := range destinations {
		destKeys[j] = d.Key()
	}

	out := make([][]*float64, len(origins))
	pending := make([]domain.Coordinates, 0, len(origins))
	pendingIdx := make([]int, 0, len(origins))

	for i, o := range origins {
		row, ok := c.lookup(ctx, o.Key(), destKeys)
		if ok {
			out[i] = row
			continue
		}
		pending = append(pending, o)
		pendingIdx = append(pendingIdx, i)
	}

	if len(pending) == 0 {
		return out, nil
	}

	fetched, err := c.next.TravelTimes(ctx, pending, destinations)
	if err != nil {
		return nil, err
	}
	if len(fetched) != len(pending) {
		return nil, eris.Errorf("cached provider: upstream returned %d rows for %d origins", len(fetched), len(pending))
	}

	for k, row := range fetched {
		if len(row) != len(destinations) {
			return nil, eris.Errorf("cached provider: upstream row %d has %d cells, want %d", k, len(row), len(destinations))
		}
		out[pendingIdx[k]] = row
		c.remember(ctx, pending[k].Key(), destKeys, row)
	}

	return out, nil
}
