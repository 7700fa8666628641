package main

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jakechorley/oncall-roster/internal/config"
	"github.com/jakechorley/oncall-roster/internal/storage"
	"github.com/jakechorley/oncall-roster/internal/telemetry"
	"github.com/jakechorley/oncall-roster/pkg/db"
	"github.com/jakechorley/oncall-roster/pkg/handlers"
	"github.com/jakechorley/oncall-roster/pkg/utils/logging"
)

func main() {
	// Load .env if it exists
	// Try root and parent directories for flexibility
	envPaths := []string{".env", "../.env", "../../.env"}
	for _, p := range envPaths {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			break
		}
	}

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	env := os.Getenv("ROSTER_ENV")
	logger, closeLog, err := logging.New(env, logging.Options{ConsoleLevel: zapcore.InfoLevel, JSONConsole: true})
	if err != nil {
		log.Fatalf("could not initialize logger: %v", err)
	}
	defer closeLog()

	cfg, err := config.LoadWithEnv(env)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	ctx := context.Background()
	shutdown, err := telemetry.Setup(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTelEndpoint)
	if err != nil {
		logger.Fatal("Failed to set up tracing", zap.Error(err))
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Warn("Failed to flush traces", zap.Error(err))
		}
	}()

	var store db.Database
	store, err = storage.Open(ctx, cfg.Database, logger)
	switch {
	case errors.Is(err, storage.ErrNotConfigured):
		logger.Info("No database configured, runs are dry only")
	case err != nil:
		logger.Fatal("Failed to initialize database", zap.Error(err))
	default:
		defer store.Close()
	}

	h := handlers.New(cfg, logger, store)

	r := gin.New()
	r.Use(gin.Recovery())
	h.Register(r)

	port := cfg.Server.Port
	if port == "" {
		port = "8000"
	}

	logger.Info("Server starting", zap.String("port", port))
	if err := r.Run(":" + port); err != nil {
		logger.Fatal("Could not run server", zap.Error(err))
	}
}
