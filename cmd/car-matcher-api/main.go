// Package main provides the car matcher API server entrypoint.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/spherical-ai/spherical/libs/car-matcher/cmd/car-matcher-api/handlers"
	"github.com/spherical-ai/spherical/libs/car-matcher/internal/cache"
	"github.com/spherical-ai/spherical/libs/car-matcher/internal/catalog"
	"github.com/spherical-ai/spherical/libs/car-matcher/internal/config"
	"github.com/spherical-ai/spherical/libs/car-matcher/internal/matching"
	"github.com/spherical-ai/spherical/libs/car-matcher/internal/observability"
	"github.com/spherical-ai/spherical/libs/car-matcher/internal/recommend"
	"github.com/spherical-ai/spherical/libs/car-matcher/internal/storage"
)

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if len(os.Args) > 2 && os.Args[1] == "--config" {
		cfgPath = os.Args[2]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
	})

	logger.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("database", cfg.Database.Driver).
		Str("cache", cfg.Cache.Driver).
		Msg("Starting car matcher API")

	if err := run(cfg, logger); err != nil {
		logger.Error().Err(err).Msg("Server exited with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *observability.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storage.OpenFromConfig(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := storage.Migrate(ctx, db); err != nil {
		return err
	}
	repo := storage.NewCarRepository(db, cfg.Database.Driver)

	cacheClient, notifier, err := newCache(cfg)
	if err != nil {
		return err
	}
	defer cacheClient.Close()

	svc := recommend.NewService(repo, recommend.Options{
		Matching: matching.Config{
			MinScore:      cfg.Matching.MinScore,
			FallbackLimit: cfg.Matching.TopFallback,
		},
		Cache: recommend.NewResultCache(cacheClient, logger, recommend.ResultCacheConfig{
			TTL:       cfg.Cache.TTL,
			KeyPrefix: cfg.Cache.KeyPrefix,
			Enabled:   cfg.Cache.TTL > 0,
		}),
		Notifier: notifier,
		Logger:   logger,
	})

	if err := seedIfEmpty(ctx, repo, svc, cfg.Catalog.SeedFile, logger); err != nil {
		return err
	}
	if err := svc.Reload(ctx); err != nil {
		return err
	}

	go func() {
		if err := svc.Watch(ctx); err != nil {
			logger.Warn().Err(err).Msg("Catalog watcher stopped")
		}
	}()

	appCfg := &AppConfig{
		ServiceName:    cfg.Observability.ServiceName,
		RequestTimeout: cfg.Server.RequestTimeout,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		ReadyChecks: map[string]handlers.Check{
			"database": db.PingContext,
			"cache":    cacheClient.Ping,
		},
	}

	srv := &http.Server{
		Addr:         cfg.Address(),
		Handler:      NewRouter(logger, svc, appCfg),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Int("cars", svc.Size()).Msg("HTTP server listening")
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		logger.Info().Msg("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
		if err := srv.Close(); err != nil {
			logger.Error().Err(err).Msg("Forced shutdown failed")
		}
	}

	logger.Info().Msg("Server stopped")
	return nil
}

// newCache builds the configured cache. Only Redis can announce catalog
// changes across processes.
func newCache(cfg *config.Config) (cache.Client, cache.Notifier, error) {
	if cfg.Cache.Driver == "redis" {
		client, err := cache.NewRedisClient(cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			PoolSize: cfg.Cache.Redis.PoolSize,
		})
		if err != nil {
			return nil, nil, err
		}
		return client, client, nil
	}
	return cache.NewMemoryClient(0, cfg.Cache.CleanupInterval), nil, nil
}

func seedIfEmpty(ctx context.Context, repo *storage.CarRepository, svc *recommend.Service, seedFile string, logger *observability.Logger) error {
	if seedFile == "" {
		return nil
	}

	n, err := repo.Count(ctx)
	if err != nil || n > 0 {
		return err
	}

	entries, err := catalog.LoadFile(seedFile)
	if err != nil {
		return fmt.Errorf("load seed catalog: %w", err)
	}

	imported, err := svc.Import(ctx, entries, nil)
	if err != nil {
		return err
	}
	logger.Info().Str("file", seedFile).Int("cars", imported).Msg("Seeded empty catalog")
	return nil
}
