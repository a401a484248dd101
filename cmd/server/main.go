// Package main is the entrypoint for the HealthRadar API server.
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

	"github.com/kiranshivaraju/healthradar/internal/aggregate"
	"github.com/kiranshivaraju/healthradar/internal/ai"
	"github.com/kiranshivaraju/healthradar/internal/api"
	"github.com/kiranshivaraju/healthradar/internal/api/handler"
	mw "github.com/kiranshivaraju/healthradar/internal/api/middleware"
	"github.com/kiranshivaraju/healthradar/internal/archive"
	"github.com/kiranshivaraju/healthradar/internal/broadcast"
	"github.com/kiranshivaraju/healthradar/internal/cache"
	"github.com/kiranshivaraju/healthradar/internal/config"
	"github.com/kiranshivaraju/healthradar/internal/counter"
	"github.com/kiranshivaraju/healthradar/internal/ingest"
	"github.com/kiranshivaraju/healthradar/internal/store"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config, fail fast on anything invalid
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "ai_provider", cfg.AI.Provider, "env", cfg.Server.Env,
		"counter_backend", cfg.Ingest.CounterBackend)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. Wire services and handlers
	app, err := newApp(ctx, cfg, store.NewPostgresStore(pool), redisCache)
	if err != nil {
		return err
	}

	// 6. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      api.NewRouter(app.deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("waiting for in-flight broadcasts")
	app.broadcaster.Wait()

	slog.Info("server stopped gracefully")
	return nil
}

// app is everything the router needs plus the pieces run() must drain on exit.
type app struct {
	deps        api.Dependencies
	broadcaster *broadcast.Broadcaster
}

func newApp(ctx context.Context, cfg *config.Config, st store.Store, c cache.Cache) (*app, error) {
	uc, err := counter.New(cfg.Ingest.CounterBackend, c, cfg.Ingest.NotifyEvery)
	if err != nil {
		return nil, fmt.Errorf("create upload counter: %w", err)
	}

	provider, err := ai.NewProvider(ctx, cfg.AI)
	if err != nil {
		return nil, fmt.Errorf("create AI provider: %w", err)
	}
	svc := ai.NewService(provider, cfg.AI.InferenceTimeout)
	slog.Info("AI provider initialized", "provider", provider.Name(), "model", provider.Model())

	b, err := broadcast.NewFromConfig(st, c, svc, cfg.SMS)
	if err != nil {
		return nil, err
	}

	var archiver ingest.Archiver
	if cfg.Archive.Bucket != "" {
		s3a, err := archive.New(ctx, cfg.Archive)
		if err != nil {
			return nil, fmt.Errorf("create upload archive: %w", err)
		}
		archiver = s3a
		slog.Info("upload archive enabled", "bucket", cfg.Archive.Bucket)
	}

	pipeline := ingest.NewPipeline(st, uc, b, archiver, ingest.Options{
		GroupSize:   cfg.Ingest.GroupSize,
		GroupPause:  cfg.Ingest.GroupPause,
		SettleDelay: cfg.Ingest.SettleDelay,
	})
	loader := aggregate.NewLoader(st)

	deps := api.Dependencies{
		Auth:      mw.NewAuth(st),
		RateLimit: mw.NewRateLimit(c, cfg.Server.RequestsPerMinute),

		HealthHandler: handler.NewHealthHandler(st, c),
		MeHandler:     handler.NewMeHandler(st),

		UploadHandler:     handler.NewUploadHandler(pipeline, cfg.Server.MaxUploadBytes),
		GetCounterHandler: handler.NewGetCounterHandler(uc, cfg.Ingest.NotifyEvery),
		ResetCounter:      handler.NewResetCounterHandler(uc, cfg.Ingest.NotifyEvery),

		ListCases:         handler.NewListCasesHandler(st),
		AggregateHandler:  handler.NewAggregateHandler(loader),
		PurgeMunicipality: handler.NewPurgeMunicipalityHandler(st),
		PurgeAll:          handler.NewPurgeAllHandler(st),

		AnalysisHandler:  handler.NewAnalysisHandler(loader, svc),
		BroadcastHandler: handler.NewBroadcastHandler(b),
		LatestAnalysis:   handler.NewLatestAnalysisHandler(st),
		PollJobHandler:   handler.NewPollJobHandler(st, c),

		CreateWorkerHandler: handler.NewCreateWorkerHandler(st),
		ListWorkersHandler:  handler.NewListWorkersHandler(st),
		CreateKeyHandler:    handler.NewCreateKeyHandler(st),
		ListKeysHandler:     handler.NewListKeysHandler(st),
		RevokeKeyHandler:    handler.NewRevokeKeyHandler(st),
	}

	return &app{deps: deps, broadcaster: b}, nil
}
