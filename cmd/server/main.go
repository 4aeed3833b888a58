// Package main is the entrypoint for the fuelhaul API server.
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

	"github.com/kiranshivaraju/fuelhaul/internal/api"
	"github.com/kiranshivaraju/fuelhaul/internal/api/handler"
	mw "github.com/kiranshivaraju/fuelhaul/internal/api/middleware"
	"github.com/kiranshivaraju/fuelhaul/internal/api/response"
	"github.com/kiranshivaraju/fuelhaul/internal/cache"
	"github.com/kiranshivaraju/fuelhaul/internal/config"
	"github.com/kiranshivaraju/fuelhaul/internal/metrics"
	"github.com/kiranshivaraju/fuelhaul/internal/registry"
	"github.com/kiranshivaraju/fuelhaul/internal/store"
	"github.com/kiranshivaraju/fuelhaul/internal/workflow"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
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
	// 1. Load config, failing fast on invalid values
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "env", cfg.Server.Env, "metrics", cfg.Metrics.Enabled)

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
	if err := store.RunMigrations(cfg.Database.URL, cfg.Migrations.Dir); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	pgStore := store.NewPostgresStore(pool)
	depot, err := pgStore.GetDefaultDepot(ctx)
	if err != nil {
		return fmt.Errorf("load default depot: %w", err)
	}
	slog.Info("default depot", "depot_id", depot.ID, "code", depot.Code)

	keys := handler.NewKeys(pgStore)
	if _, err := keys.Bootstrap(ctx, depot.ID, cfg.Auth.BootstrapKey); err != nil {
		return fmt.Errorf("bootstrap admin key: %w", err)
	}

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

	// 5. Metrics
	var (
		sink           metrics.Sink = metrics.NewNoopSink()
		metricsHandler http.Handler
	)
	if cfg.Metrics.Enabled {
		promReg := prometheus.NewRegistry()
		promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		sink = metrics.NewPrometheusSink(promReg)
		metricsHandler = promhttp.HandlerFor(promReg, promhttp.HandlerOpts{})
	}

	// 6. Job registry and workflow controller
	jobRegistry := registry.New(pgStore,
		registry.WithCache(redisCache, cfg.Workflow.SnapshotCacheTTL),
		registry.WithMetrics(sink),
	)
	controller := workflow.NewController(jobRegistry, workflow.WithMetrics(sink))

	// 7. Build router with dependencies
	jobs := handler.NewJobs(pgStore, controller)

	deps := api.Dependencies{
		Auth:      mw.NewAuth(pgStore),
		RateLimit: mw.NewRateLimit(redisCache, cfg.Workflow.RateLimitPerMinute),

		HealthHandler:  healthHandler(pgStore, redisCache),
		MetricsHandler: metricsHandler,

		CreateJob:    jobs.Create,
		ListJobs:     jobs.List,
		GetJob:       jobs.Get,
		ListStops:    jobs.Stops,
		NextStop:     jobs.NextStop,
		PreviewRoute: jobs.PreviewRoute,
		PreviousStep: jobs.PreviousStep,

		StartTrip:           jobs.StartTrip,
		ConfirmWarehouse:    jobs.ConfirmWarehouse,
		ConfirmPickup:       jobs.ConfirmPickup,
		SetRoute:            jobs.SetRoute,
		BeginDelivery:       jobs.BeginDelivery,
		ConfirmArrival:      jobs.ConfirmArrival,
		ConfirmDelivery:     jobs.ConfirmDelivery,
		ConfirmDepotArrival: jobs.ConfirmDepotArrival,

		CreateKeyHandler: keys.Create,
		ListKeysHandler:  keys.List,
		RevokeKeyHandler: keys.Revoke,
	}

	router := api.NewRouter(deps)

	// 8. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
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

	slog.Info("server stopped gracefully")
	return nil
}

// pinger is satisfied by both store.Store and cache.Cache.
type pinger interface {
	Ping(ctx context.Context) error
}

// healthHandler checks database and cache connectivity.
func healthHandler(db, c pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"cache":    "ok",
		}

		if err := db.Ping(r.Context()); err != nil {
			slog.Warn("health: database ping failed", "error", err)
			checks["database"] = "degraded"
		}
		if err := c.Ping(r.Context()); err != nil {
			slog.Warn("health: cache ping failed", "error", err)
			checks["cache"] = "degraded"
		}

		degraded := checks["database"] != "ok" || checks["cache"] != "ok"
		if degraded {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
