package cache

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rotisserie/eris"
)

// schemaStatements returns the DDL of the travel-time cache for a column type
// of duration_minutes.
func schemaStatements(durationType string) []string {
	// duration_minutes is NULL for pairs the routing service reported as unreachable.
	createTravelTimeCacheQuery := `
	CREATE TABLE IF NOT EXISTS travel_time_cache (
        profile TEXT NOT NULL,
        origin TEXT NOT NULL,
        destination TEXT NOT NULL,
        duration_minutes ` + durationType + `,
        PRIMARY KEY (profile, origin, destination)
    );
	`

	createIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_travel_time_cache_destination
    ON travel_time_cache(profile, destination);
	`

	return []string{
		createTravelTimeCacheQuery,
		createIndexQuery,
	}
}

// Initialize the SQLite travel-time cache schema.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "init schema: begin tx")
	}
	defer func() { _ = tx.Rollback() }()

	for i, stmt := range schemaStatements("REAL") {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return eris.Wrapf(err, "init schema: exec statement #%d", i+1)
		}
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "init schema: commit tx")
	}

	return nil
}

// Initialize the Postgres travel-time cache schema.
func InitPostgresSchema(ctx context.Context, pool Pool) error {
	if pool == nil {
		return errors.New("init schema: pool is nil")
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "init schema: begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for i, stmt := range schemaStatements("DOUBLE PRECISION") {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return eris.Wrapf(err, "init schema: exec statement #%d", i+1)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "init schema: commit tx")
	}

	return nil
}

// uniqueKeys trims, drops empty keys and deduplicates while keeping order.
func uniqueKeys(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	uniq := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		uniq = append(uniq, k)
	}
	return uniq
}
