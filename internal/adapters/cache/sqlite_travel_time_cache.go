package cache

import (
	"context"
	"database/sql"
	"drivetime-accessibility/internal/platform/obs"
	"errors"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// SQLite backed cache for origin->destination travel times.
// Keys are expected to be consistent (coordinate keys) by the caller.
type SqliteTravelTimeCache struct {
	DB *sql.DB
}

func NewSqliteTravelTimeCache(db *sql.DB) *SqliteTravelTimeCache {
	return &SqliteTravelTimeCache{DB: db}
}

// Fetch cached travel times for one origin and multiple destinations.
func (s *SqliteTravelTimeCache) GetMany(
	ctx context.Context,
	profile string,
	origin string,
	destinations []string,
) (_ map[string]*float64, err error) {
	defer obs.Time(ctx, "travel_time.cache.sqlite.GetMany")(&err)

	if s.DB == nil {
		return nil, errors.New("travel time cache: db is nil")
	}

	if origin == "" {
		return nil, errors.New("get travel time cache: origin must not be empty")
	}

	uniq := uniqueKeys(destinations)
	if len(uniq) == 0 {
		return map[string]*float64{}, nil
	}

	ph := make([]string, len(uniq))
	args := make([]any, 0, 2+len(uniq))
	args = append(args, profile, origin)
	for i, d := range uniq {
		ph[i] = "?"
		args = append(args, d)
	}

	// SQLite does not support binding slices directly in an IN (...) clause.
	// Only the placeholder structure is interpolated; all values remain parameterized.
	q := fmt.Sprintf(`
	SELECT
        destination,
        duration_minutes
    FROM travel_time_cache
    WHERE profile = ?
        AND origin = ?
        AND destination IN (%s);
	`, strings.Join(ph, ","))

	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, eris.Wrap(err, "get travel time cache: query travel_time_cache table")
	}
	defer rows.Close()

	out := make(map[string]*float64, len(uniq))
	for rows.Next() {
		var dest string
		var minutes sql.NullFloat64
		if err := rows.Scan(&dest, &minutes); err != nil {
			return nil, eris.Wrap(err, "get travel time cache: scan rows")
		}
		out[dest] = nullToPtr(minutes)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "get travel time cache: row iteration")
	}

	return out, nil
}

// Store many cached travel times for a single origin.
func (s *SqliteTravelTimeCache) PutMany(
	ctx context.Context,
	profile string,
	origin string,
	results map[string]*float64,
) error {
	if s.DB == nil {
		return errors.New("travel time cache: db is nil")
	}

	if origin == "" {
		return errors.New("insert travel time cache: origin must not be empty")
	}

	if len(results) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "insert travel time cache: db begin")
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT OR REPLACE INTO travel_time_cache (
        profile,
        origin,
        destination,
        duration_minutes
    )
    VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return eris.Wrap(err, "insert travel time cache: db prepare")
	}
	defer stmt.Close()

	for dest, m := range results {
		if strings.TrimSpace(dest) == "" {
			return errors.New("insert travel time cache: empty destination key")
		}

		if _, err := stmt.ExecContext(ctx, profile, origin, dest, ptrToNull(m)); err != nil {
			return eris.Wrapf(err, "insert travel time cache dest=%q", dest)
		}
	}
	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "insert travel time cache commit")
	}

	return nil
}

func nullToPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func ptrToNull(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}
