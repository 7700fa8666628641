package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/oncall-roster/internal/config"
	"github.com/jakechorley/oncall-roster/pkg/db"
)

func TestOpen_NoDriver(t *testing.T) {
	_, err := Open(context.Background(), config.DatabaseConfig{}, zap.NewNop())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.DatabaseConfig{Driver: "mysql"}, zap.NewNop())
	assert.ErrorContains(t, err, "unknown database driver")
}

func TestOpen_SQLite(t *testing.T) {
	ctx := context.Background()
	database, err := Open(ctx, config.DatabaseConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "roster.db"),
	}, zap.NewNop())
	require.NoError(t, err)
	defer database.Close()

	require.NoError(t, database.InsertPlanning(ctx, &db.Planning{
		ID: "p1", Name: "week", Start: "2025-03-03", End: "2025-03-09", CreatedAt: "2025-03-01T00:00:00Z",
	}))
	plannings, err := database.GetPlannings(ctx)
	require.NoError(t, err)
	assert.Len(t, plannings, 1)
}

func TestOpen_PostgresUnreachable(t *testing.T) {
	_, err := Open(context.Background(), config.DatabaseConfig{
		Driver: "postgres",
		URL:    "postgres://roster@127.0.0.1:1/roster?connect_timeout=1",
	}, zap.NewNop())
	assert.ErrorContains(t, err, "failed to connect to postgres")
}
