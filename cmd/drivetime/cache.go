package main

import (
	"drivetime-accessibility/internal/adapters/cache"
	"drivetime-accessibility/internal/platform/db"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the travel-time cache",
}

var cacheInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the travel-time cache schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		switch cfg.Cache.Driver {
		case "sqlite":
			conn, err := openSQLiteCache(ctx, cfg.Cache.Path)
			if err != nil {
				return err
			}
			defer conn.Close()
		case "postgres":
			if cfg.Cache.DatabaseURL == "" {
				return eris.New("cache init: cache.database_url is required")
			}
			pool, err := db.Open(ctx, cfg.Cache.DatabaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := cache.InitPostgresSchema(ctx, pool); err != nil {
				return err
			}
		default:
			zap.L().Info("cache driver needs no schema", zap.String("driver", cfg.Cache.Driver))
			return nil
		}

		zap.L().Info("cache schema ready", zap.String("driver", cfg.Cache.Driver))
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheInitCmd)
	rootCmd.AddCommand(cacheCmd)
}
