package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"routeopt/internal/api"
	"routeopt/internal/app"
	"routeopt/internal/buildinfo"
	"routeopt/internal/config"
	"routeopt/internal/logger"
	"routeopt/internal/metrics"
	"routeopt/internal/planner"
	"routeopt/internal/webhooks"
)

func main() {
	cfg := config.MustLoad()
	logger.InitWithConfig(app.LoggerConfig(cfg))
	metrics.RegisterDefault()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := app.OpenStore(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to open store", "err", err)
	}
	defer func() { _ = st.Close() }()

	routeCache, rawCache, err := app.OpenCache(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to open cache", "err", err)
	}
	if rawCache != nil {
		defer func() { _ = rawCache.Close() }()
	}

	// Broker selection
	var broker api.EventBroker = api.NewBroker()
	if cfg.Redis.URL != "" {
		if rb, err := api.NewRedisBroker(ctx, cfg.Redis.URL); err == nil {
			broker = rb
			defer func() { _ = rb.Close() }()
		} else {
			logger.Warn("redis broker unavailable, using in-memory broker", "err", err)
		}
	}

	hooks := webhooks.NewPublisher(app.WebhookConfig(cfg))
	if hooks.Enabled() {
		worker := webhooks.NewWorker(hooks)
		worker.Start()
		defer worker.Shutdown()
	}

	sel := app.NewSelector(ctx, cfg)
	pl := planner.New(sel,
		planner.WithStore(st),
		planner.WithCache(routeCache),
		planner.WithDepot(app.Depot(cfg)),
		planner.WithPublisher(api.RoutePublisher{Broker: broker, Hooks: hooks}),
	)
	srvDeps := api.NewServer(pl, broker)
	srvDeps.Debug = map[string]any{
		"port":            cfg.Server.Port,
		"cacheBackend":    cfg.Cache.Backend,
		"hasDatabaseURL":  cfg.Database.URL != "",
		"hasRedisURL":     cfg.Redis.URL != "",
		"gatewayEnabled":  cfg.Gateway.Enabled,
		"webhooksEnabled": hooks.Enabled(),
	}

	mux := http.NewServeMux()

	// Optimization
	mux.HandleFunc("/v1/optimize", srvDeps.OptimizeHandler)
	mux.HandleFunc("/v1/optimizer/status", srvDeps.OptimizerStatusHandler)
	mux.HandleFunc("/v1/optimizer/config", srvDeps.OptimizerConfigHandler)

	// Routes
	mux.HandleFunc("/v1/routes", srvDeps.RoutesIndexHandler)
	mux.HandleFunc("/v1/routes/feed", srvDeps.RouteFeedHandler)
	mux.HandleFunc("/v1/routes/", srvDeps.RouteByIDHandler)

	// Admin
	mux.HandleFunc("/v1/admin/plan-metrics", srvDeps.PlanMetricsHandler)
	mux.HandleFunc("/debug/info", srvDeps.DebugJSON)

	// Health
	mux.HandleFunc("/healthz", srvDeps.HealthHandler)
	mux.HandleFunc("/readyz", srvDeps.ReadyHandler)
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.Instrument(mux),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}

	go func() {
		logger.Info("API listening", "addr", srv.Addr, "build", buildinfo.Info())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", "err", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "err", err)
	}
}

func shutdownTimeout(cfg *config.Config) time.Duration {
	if cfg.Server.ShutdownTimeout > 0 {
		return cfg.Server.ShutdownTimeout
	}
	return 10 * time.Second
}
