// Package main runs the full service: the HTTP API, the scheduled sync
// pipeline, and the live vote-activity feed.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"coinswiper/internal/activity"
	"coinswiper/internal/api"
	"coinswiper/internal/cache"
	"coinswiper/internal/config"
	"coinswiper/internal/dexscreener"
	"coinswiper/internal/pipeline"
	"coinswiper/internal/storage"
	chstore "coinswiper/internal/storage/clickhouse"
	"coinswiper/internal/storage/memory"
	"coinswiper/internal/storage/migrations"
	pgstore "coinswiper/internal/storage/postgres"
)

func main() {
	loadEnvFile()

	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "Path to YAML config file")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	flag.Parse()

	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if !*useMemory && cfg.Database.PostgresDSN == "" {
		log.Fatal().Msg("postgres DSN is required (set POSTGRES_DSN or use --use-memory)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, cleanup, err := createStores(ctx, &cfg, *useMemory, log)
	if err != nil {
		log.Fatal().Err(err).Msg("create stores")
	}
	defer cleanup()

	respCache, closeCache, err := createCache(ctx, &cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("create cache")
	}
	defer closeCache()

	client := dexscreener.NewClient(log, dexscreener.WithTimeout(cfg.Sync.RequestTimeout))
	pipe := pipeline.New(&cfg, client, stores.tokens, stores.snapshots, log)
	scheduler := pipeline.NewScheduler(pipe, cfg.Sync.Interval, log)

	hub := activity.NewHub(log)
	server := api.NewServer(&cfg, stores.tokens, stores.snapshots, scheduler, hub, respCache, log)

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go scheduler.Start(ctx)
	go maybeRunInitialSync(ctx, &cfg, stores.tokens, scheduler, log)

	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("http server starting")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server failed")
			cancel()
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case <-ctx.Done():
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}

	log.Info().Msg("shutdown complete")
}

// maybeRunInitialSync primes an empty database on startup so the API has
// something to serve before the first scheduled run.
func maybeRunInitialSync(ctx context.Context, cfg *config.Config, tokens storage.TokenStore, scheduler *pipeline.Scheduler, log zerolog.Logger) {
	if !cfg.Sync.RunOnStart {
		return
	}
	n, err := tokens.Count(ctx)
	if err != nil {
		log.Error().Err(err).Msg("initial count failed")
		return
	}
	if n > 0 {
		log.Info().Int("tokens", n).Msg("database already populated, skipping initial sync")
		return
	}
	if _, err := scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("initial sync failed")
	}
}

// serviceStores holds the storage implementations the service runs on.
type serviceStores struct {
	tokens    storage.TokenStore
	snapshots storage.SnapshotStore
}

// createStores connects the configured backends and applies migrations.
// ClickHouse is optional: without a DSN the service skips analytics
// snapshots.
func createStores(ctx context.Context, cfg *config.Config, useMemory bool, log zerolog.Logger) (*serviceStores, func(), error) {
	if useMemory {
		return &serviceStores{
			tokens:    memory.NewTokenStore(),
			snapshots: memory.NewSnapshotStore(),
		}, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.Database.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	stores := &serviceStores{tokens: pgstore.NewTokenStore(pool)}
	cleanup := func() { pool.Close() }

	if cfg.Database.ClickhouseDSN != "" {
		chConn, err := chstore.NewConn(ctx, cfg.Database.ClickhouseDSN)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		if err := migrations.RunClickhouseMigrations(ctx, chConn); err != nil {
			chConn.Close()
			pool.Close()
			return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		stores.snapshots = chstore.NewSnapshotStore(chConn)
		cleanup = func() {
			chConn.Close()
			pool.Close()
		}
	} else {
		log.Warn().Msg("no clickhouse DSN, analytics snapshots disabled")
	}

	return stores, cleanup, nil
}

// createCache picks Redis when configured, the in-process cache otherwise.
func createCache(ctx context.Context, cfg *config.Config, log zerolog.Logger) (cache.Cache, func(), error) {
	if cfg.Database.RedisAddr == "" {
		mem := cache.NewMemory()
		return mem, mem.Close, nil
	}

	r, err := cache.NewRedis(ctx, cfg.Database.RedisAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to redis: %w", err)
	}
	log.Info().Str("addr", cfg.Database.RedisAddr).Msg("redis cache enabled")
	return r, func() { r.Close() }, nil
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
