// Package main runs a single sync pass and exits. Useful for cron setups
// and for backfilling a fresh database.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

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
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage (dry run)")
	timeout := flag.Duration("timeout", 5*time.Minute, "Overall run timeout")
	flag.Parse()

	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if !*useMemory && cfg.Database.PostgresDSN == "" {
		log.Fatal().Msg("postgres DSN is required (set POSTGRES_DSN or use --use-memory)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	tokens, snapshots, cleanup, err := createStores(ctx, &cfg, *useMemory, log)
	if err != nil {
		log.Fatal().Err(err).Msg("create stores")
	}
	defer cleanup()

	client := dexscreener.NewClient(log, dexscreener.WithTimeout(cfg.Sync.RequestTimeout))
	pipe := pipeline.New(&cfg, client, tokens, snapshots, log)

	res, err := pipe.Run(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("sync failed")
	}

	fmt.Printf("fetched=%d ranked=%d stored=%d total=%d duration=%s\n",
		res.Fetched, res.Ranked, res.Stored, res.DatabaseCount, res.Duration)
}

func createStores(ctx context.Context, cfg *config.Config, useMemory bool, log zerolog.Logger) (storage.TokenStore, storage.SnapshotStore, func(), error) {
	if useMemory {
		return memory.NewTokenStore(), memory.NewSnapshotStore(), func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.Database.PostgresDSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	tokens := pgstore.NewTokenStore(pool)
	cleanup := func() { pool.Close() }

	if cfg.Database.ClickhouseDSN == "" {
		log.Warn().Msg("no clickhouse DSN, analytics snapshots disabled")
		return tokens, nil, cleanup, nil
	}

	chConn, err := chstore.NewConn(ctx, cfg.Database.ClickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
	}
	if err := migrations.RunClickhouseMigrations(ctx, chConn); err != nil {
		chConn.Close()
		pool.Close()
		return nil, nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	return tokens, chstore.NewSnapshotStore(chConn), func() {
		chConn.Close()
		pool.Close()
	}, nil
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

		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
