package main

import (
	"context"
	"database/sql"
	"drivetime-accessibility/internal/adapters/cache"
	"drivetime-accessibility/internal/adapters/loaders"
	"drivetime-accessibility/internal/adapters/routing"
	"drivetime-accessibility/internal/config"
	"drivetime-accessibility/internal/platform/db"
	"drivetime-accessibility/internal/ports"
	"drivetime-accessibility/internal/services"
	"os"
	"path/filepath"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// pipelineEnv holds the concrete adapters of one process.
type pipelineEnv struct {
	deps    services.PipelineDeps
	req     services.PipelineRequest
	closers []func() error
}

func (e *pipelineEnv) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			zap.L().Warn("close failed", zap.Error(err))
		}
	}
}

// routingProvider is what both routing services implement.
type routingProvider interface {
	ports.TravelTimeProvider
	ports.RouteProvider
	Profile() string
}

func newRoutingProvider(rc config.RoutingConfig) (routingProvider, error) {
	opts := routing.ClientOptions{
		BaseURL:           rc.BaseURL,
		APIKey:            rc.APIKey,
		Profile:           rc.Profile,
		Timeout:           rc.RequestTimeout,
		RequestsPerMinute: rc.RequestsPerMinute,
	}

	switch rc.Provider {
	case "ors":
		p, err := routing.NewORSProvider(opts)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "osrm":
		return routing.NewOSRMProvider(opts), nil
	default:
		return nil, eris.Errorf("unknown routing provider %q", rc.Provider)
	}
}

// openCacheStore opens the persistent travel-time cache selected by cfg.
// A nil store means caching is disabled.
func openCacheStore(ctx context.Context, cc config.CacheConfig) (ports.TravelTimeCache, func() error, error) {
	switch cc.Driver {
	case "none":
		return nil, nil, nil
	case "sqlite":
		conn, err := openSQLiteCache(ctx, cc.Path)
		if err != nil {
			return nil, nil, err
		}
		return cache.NewSqliteTravelTimeCache(conn), conn.Close, nil
	case "postgres":
		pool, err := db.Open(ctx, cc.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := cache.InitPostgresSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		closer := func() error {
			pool.Close()
			return nil
		}
		return cache.NewPostgresTravelTimeCache(pool), closer, nil
	case "redis":
		opts, err := redis.ParseURL(cc.RedisURL)
		if err != nil {
			return nil, nil, eris.Wrap(err, "cache: parse redis url")
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, eris.Wrap(err, "cache: ping redis")
		}
		return cache.NewRedisTravelTimeCache(client, cc.TTL), client.Close, nil
	default:
		return nil, nil, eris.Errorf("unknown cache driver %q", cc.Driver)
	}
}

func openSQLiteCache(ctx context.Context, path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, eris.Wrapf(err, "cache: create %s", dir)
		}
	}
	conn, err := db.OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	if err := cache.InitSchema(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

func initPipeline(ctx context.Context, cfg *config.Config) (*pipelineEnv, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	provider, err := newRoutingProvider(cfg.Routing)
	if err != nil {
		return nil, err
	}

	env := &pipelineEnv{
		req: services.PipelineRequest{
			SkipUnpopulated: cfg.Inputs.Population.SkipUnpopulated,
			Matrix: services.MatrixOptions{
				Workers:        cfg.Routing.Workers,
				BatchSize:      cfg.Routing.BatchSize,
				RequestTimeout: cfg.Routing.RequestTimeout,
			},
		},
	}

	var travelTimes ports.TravelTimeProvider = provider
	store, closeStore, err := openCacheStore(ctx, cfg.Cache)
	if err != nil {
		return nil, err
	}
	if store != nil {
		env.closers = append(env.closers, closeStore)
		travelTimes = routing.NewCachedProvider(provider, store, cfg.Routing.Provider+"/"+provider.Profile(), cfg.Cache.LRUSize)
	}

	env.deps = services.PipelineDeps{
		Inputs: loaders.FileSource{
			Population: loaders.PopulationSource{
				Path:            cfg.Inputs.Population.Path,
				IDField:         cfg.Inputs.Population.IDField,
				PopulationField: cfg.Inputs.Population.PopulationField,
				CRS:             cfg.Inputs.Population.CRS,
			},
			BoundaryPath:     cfg.Inputs.Boundary.Path,
			BoundaryCRS:      cfg.Inputs.Boundary.CRS,
			DestinationsPath: cfg.Inputs.Destinations,
		},
		Provider: travelTimes,
	}
	if cfg.Routing.FetchLongestRoute {
		env.deps.Routes = provider
	}

	zap.L().Info("pipeline configured",
		zap.String("provider", cfg.Routing.Provider),
		zap.String("profile", provider.Profile()),
		zap.String("cache", cfg.Cache.Driver),
		zap.Int("workers", cfg.Routing.Workers),
		zap.Int("batch_size", cfg.Routing.BatchSize),
	)

	return env, nil
}
