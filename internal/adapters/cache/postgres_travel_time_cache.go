package cache

import (
	"context"
	"drivetime-accessibility/internal/platform/obs"
	"errors"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"
)

// Pool is the subset of *pgxpool.Pool the Postgres cache needs.
type Pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Postgres backed cache for origin->destination travel times.
type PostgresTravelTimeCache struct {
	Pool Pool
}

func NewPostgresTravelTimeCache(pool Pool) *PostgresTravelTimeCache {
	return &PostgresTravelTimeCache{Pool: pool}
}

// Fetch cached travel times for one origin and multiple destinations.
func (c *PostgresTravelTimeCache) GetMany(
	ctx context.Context,
	profile string,
	origin string,
	destinations []string,
) (_ map[string]*float64, err error) {
	defer obs.Time(ctx, "travel_time.cache.postgres.GetMany")(&err)

	if c.Pool == nil {
		return nil, errors.New("travel time cache: pool is nil")
	}

	if origin == "" {
		return nil, errors.New("get travel time cache: origin must not be empty")
	}

	uniq := uniqueKeys(destinations)
	if len(uniq) == 0 {
		return map[string]*float64{}, nil
	}

	rows, err := c.Pool.Query(ctx, `
	SELECT
        destination,
        duration_minutes
    FROM travel_time_cache
    WHERE profile = $1
        AND origin = $2
        AND destination = ANY($3);
	`, profile, origin, uniq)
	if err != nil {
		return nil, eris.Wrap(err, "get travel time cache: query travel_time_cache table")
	}
	defer rows.Close()

	out := make(map[string]*float64, len(uniq))
	for rows.Next() {
		var dest string
		var minutes *float64
		if err := rows.Scan(&dest, &minutes); err != nil {
			return nil, eris.Wrap(err, "get travel time cache: scan rows")
		}
		out[dest] = minutes
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "get travel time cache: row iteration")
	}

	return out, nil
}

// Store many cached travel times for a single origin.
// Destinations are written in sorted order so concurrent writers take row locks consistently.
func (c *PostgresTravelTimeCache) PutMany(
	ctx context.Context,
	profile string,
	origin string,
	results map[string]*float64,
) error {
	if c.Pool == nil {
		return errors.New("travel time cache: pool is nil")
	}

	if origin == "" {
		return errors.New("insert travel time cache: origin must not be empty")
	}

	if len(results) == 0 {
		return nil
	}

	dests := make([]string, 0, len(results))
	for dest := range results {
		if strings.TrimSpace(dest) == "" {
			return errors.New("insert travel time cache: empty destination key")
		}
		dests = append(dests, dest)
	}
	sort.Strings(dests)

	tx, err := c.Pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "insert travel time cache: db begin")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, dest := range dests {
		if _, err := tx.Exec(ctx, `
		INSERT INTO travel_time_cache (
            profile,
            origin,
            destination,
            duration_minutes
        )
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (profile, origin, destination)
        DO UPDATE SET duration_minutes = EXCLUDED.duration_minutes;
		`, profile, origin, dest, results[dest]); err != nil {
			return eris.Wrapf(err, "insert travel time cache dest=%q", dest)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "insert travel time cache commit")
	}

	return nil
}
