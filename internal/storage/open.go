// Package storage opens the configured run store.
package storage

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/oncall-roster/internal/config"
	"github.com/jakechorley/oncall-roster/pkg/db"
	"github.com/jakechorley/oncall-roster/pkg/postgres"
	"github.com/jakechorley/oncall-roster/pkg/sqlite"
)

// ErrNotConfigured is returned when no database driver is set
var ErrNotConfigured = errors.New("no database configured")

// Open connects to the configured database and applies pending migrations.
// Without a driver it returns ErrNotConfigured.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (db.Database, error) {
	switch cfg.Driver {
	case "":
		return nil, ErrNotConfigured
	case "postgres":
		logger.Info("Connecting to postgres")
		pg, err := postgres.NewDB(ctx, cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		if err := pg.RunMigrations(ctx); err != nil {
			_ = pg.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return pg, nil
	case "sqlite":
		logger.Info("Opening sqlite store", zap.String("path", cfg.SQLitePath))
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}
