package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/example/tablebook/internal/config"
	"github.com/example/tablebook/internal/db"
	"github.com/example/tablebook/internal/logging"
	"github.com/example/tablebook/internal/migrate"
)

// openDB connects, pings and optionally migrates the database.
func openDB(ctx context.Context, cfg config.Config, logger *zap.Logger, migrateUp bool) (*db.DB, error) {
	d, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := d.Ping(ctx); err != nil {
		d.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	if migrateUp {
		if err := migrate.Up(ctx, d, logger); err != nil {
			d.Close()
			return nil, err
		}
	}
	return d, nil
}

// loadCLI reads configuration without requiring cookie keys.
func loadCLI() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := logging.New(cfg.IsProduction(), cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}
