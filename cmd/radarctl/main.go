// Command radarctl is the operator CLI for HealthRadar: schema migrations,
// health worker and API key provisioning, offline ingest and data purges.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kiranshivaraju/healthradar/internal/cache"
	"github.com/kiranshivaraju/healthradar/internal/config"
	"github.com/kiranshivaraju/healthradar/internal/store"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(&cli{
		openStore: openPostgres,
		openCache: openRedis,
	})
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func openPostgres(ctx context.Context, url string) (store.Store, func(), error) {
	if url == "" {
		return nil, nil, fmt.Errorf("database URL is required (--database-url or DATABASE_URL)")
	}
	pool, err := store.Connect(ctx, config.DatabaseConfig{
		URL:             url,
		MaxOpenConns:    4,
		MaxIdleConns:    1,
		ConnMaxLifetime: 5 * time.Minute,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	return store.NewPostgresStore(pool), pool.Close, nil
}

func openRedis(_ context.Context, url string) (cache.Cache, func(), error) {
	if url == "" {
		return nil, nil, fmt.Errorf("redis URL is required (--redis-url or REDIS_URL)")
	}
	c, err := cache.NewRedisCache(url)
	if err != nil {
		return nil, nil, fmt.Errorf("create redis cache: %w", err)
	}
	return c, func() { _ = c.Close() }, nil
}
