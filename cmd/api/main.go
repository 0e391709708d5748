// Command api serves the fantasy stats read API.
//
// Usage:
//
//	fbetl-api
//	API_PORT=8080 fbetl-api

// @title firstballot fantasy stats API
// @version 1.0.0
// @description Read API over NFL Next Gen Stats weekly tables with fantasy scoring.
// @host localhost:8000
// @BasePath /api/v1
// @schemes http https
// @contact.name firstballot
// @license.name MIT
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/cameron-eth/firstballotETL/internal/api"
	"github.com/cameron-eth/firstballotETL/internal/cache"
	"github.com/cameron-eth/firstballotETL/internal/config"
	"github.com/cameron-eth/firstballotETL/internal/listener"
	"github.com/cameron-eth/firstballotETL/internal/maintenance"
	"github.com/cameron-eth/firstballotETL/internal/store"

	_ "github.com/cameron-eth/firstballotETL/docs" // swagger docs
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Load .env if present
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if cfg.Debug {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
		slog.SetDefault(logger)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// The API reads from the first enabled target.
	targets := cfg.Targets()
	if len(targets) == 0 {
		logger.Error("No database target enabled")
		os.Exit(1)
	}
	target := targets[0]

	logger.Info("Connecting to database...", "target", target.Label, "driver", target.Driver)
	st, err := store.Open(ctx, cfg, target)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer st.Close()
	if err := st.Migrate(ctx); err != nil {
		logger.Error("Failed to prepare schema", "error", err)
		os.Exit(1)
	}
	logger.Info("Database connected",
		"min_conns", cfg.DBPoolMinConns,
		"max_conns", cfg.DBPoolMaxConns)

	appCache, err := newCache(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize cache", "error", err)
		os.Exit(1)
	}

	// LISTEN/NOTIFY needs Postgres; SQLite deployments rely on TTLs.
	if target.Driver == config.DriverPostgres {
		go listener.Start(ctx, target.URL, appCache, logger)
	}

	go maintenance.Start(ctx, st, appCache, maintenance.DefaultConfig(), logger)

	router := api.NewRouter(st, appCache, cfg, logger)

	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting fantasy stats API",
			"addr", addr,
			"environment", cfg.Environment,
			"docs", fmt.Sprintf("http://localhost:%d/docs/", cfg.APIPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	logger.Info("Server stopped")
}

// newCache returns the Redis cache when REDIS_URL is set and caching is on,
// otherwise the in-memory cache.
func newCache(ctx context.Context, cfg *config.Config, logger *slog.Logger) (cache.Cache, error) {
	if cfg.CacheEnabled && cfg.RedisURL != "" {
		c, err := cache.NewRedis(ctx, cfg.RedisURL, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("Cache initialized", "backend", "redis")
		return c, nil
	}
	logger.Info("Cache initialized", "backend", "memory", "enabled", cfg.CacheEnabled)
	return cache.NewMemory(ctx, cfg.CacheEnabled), nil
}
