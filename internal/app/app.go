// Package app turns a loaded Config into the engine components shared by
// the HTTP server and the CLI.
package app

import (
	"context"
	"strings"

	"routeopt/internal/cache"
	"routeopt/internal/config"
	"routeopt/internal/gateway"
	"routeopt/internal/hybrid"
	"routeopt/internal/logger"
	"routeopt/internal/model"
	"routeopt/internal/opt"
	"routeopt/internal/store"
	"routeopt/internal/webhooks"
)

func LoggerConfig(cfg *config.Config) logger.Config {
	l := cfg.Log
	return logger.Config{
		Level:      l.Level,
		Format:     l.Format,
		Output:     l.Output,
		FilePath:   l.FilePath,
		MaxSize:    l.MaxSize,
		MaxBackups: l.MaxBackups,
		MaxAge:     l.MaxAge,
		Compress:   l.Compress,
	}
}

// OpenStore returns Postgres when database.url is set, otherwise memory.
func OpenStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if strings.TrimSpace(cfg.Database.URL) == "" {
		return store.NewMemory(), nil
	}
	pg, err := store.NewPostgres(cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	if cfg.Database.Migrate {
		if err := pg.MigrateDir(ctx, cfg.Database.MigrationsDir); err != nil {
			_ = pg.Close()
			return nil, err
		}
	}
	return pg, nil
}

// OpenCache returns nil when caching is off.
func OpenCache(ctx context.Context, cfg *config.Config) (*cache.RouteCache, cache.Cache, error) {
	c, err := cache.New(ctx, cache.Options{
		Backend:    cfg.Cache.Backend,
		DefaultTTL: cfg.Cache.TTL,
		RedisURL:   cfg.Redis.URL,
	})
	if err != nil || c == nil {
		return nil, nil, err
	}
	return cache.NewRouteCache(c, cfg.Cache.TTL), c, nil
}

func WebhookConfig(cfg *config.Config) webhooks.Config {
	w := cfg.Webhook
	return webhooks.Config{
		URL:         w.URL,
		Secret:      w.Secret,
		MaxAttempts: w.MaxAttempts,
		Timeout:     w.Timeout,
		QueueSize:   w.QueueSize,
	}
}

func Depot(cfg *config.Config) model.Depot {
	return model.Depot{
		Location: model.Coordinate{Lat: cfg.Depot.Latitude, Lng: cfg.Depot.Longitude},
		Label:    cfg.Depot.Label,
	}
}

func Heuristic(cfg *config.Config) opt.Heuristic {
	h := opt.DefaultHeuristic()
	day := cfg.DayStartMinutes()
	h.Cluster.RadiusKm = cfg.Heuristic.ClusterRadiusKm
	h.Cluster.MaxSize = cfg.Heuristic.MaxClusterSize
	h.Order.DayStart = day
	h.Order.HoursPerStep = cfg.Heuristic.HoursPerStep
	h.Construct.DayStart = day
	h.Construct.ServiceMinutes = cfg.Heuristic.ServiceMinutes
	h.Construct.LateRecoveryMinutes = cfg.Heuristic.LateRecoveryMinutes
	return h
}

func SolverOptions(cfg *config.Config) opt.SolverOptions {
	o := opt.DefaultSolverOptions()
	s := cfg.Solver
	o.TimeBudget = s.TimeBudget
	o.StallIterations = s.StallIterations
	o.HorizonMinutes = s.HorizonMinutes
	o.SlackMinutes = s.SlackMinutes
	o.ExpressDeadlineMinutes = s.ExpressDeadlineMinutes
	o.SpeedKmh = s.SpeedKmh
	o.ServiceMinutes = s.ServiceMinutes
	o.DayStart = cfg.DayStartMinutes()
	return o
}

func HybridOptions(cfg *config.Config) hybrid.Options {
	o := hybrid.DefaultOptions()
	o.ExternalMaxPackages = cfg.Gateway.MaxPackages
	o.ComparisonMode = cfg.Hybrid.ComparisonMode
	o.ComparisonMaxPackages = cfg.Hybrid.ComparisonMaxPackages
	o.SolverEnabled = cfg.Solver.Enabled
	o.SolverMinPackages = cfg.Solver.MinPackages
	if st, ok := model.ParseStrategy(cfg.Hybrid.ForceStrategy); ok {
		o.ForceStrategy = st
	}
	return o
}

func GatewayConfig(cfg *config.Config) gateway.Config {
	g := cfg.Gateway
	day := cfg.DayStartMinutes()
	return gateway.Config{
		Enabled:         g.Enabled,
		ProjectID:       g.ProjectID,
		CredentialsFile: g.CredentialsFile,
		Endpoint:        g.Endpoint,
		Timeout:         g.Timeout,
		MaxPackages:     g.MaxPackages,
		RatePerSecond:   g.RatePerSecond,
		Burst:           g.Burst,
		DayStart:        day,
		DayEnd:          day + cfg.Solver.HorizonMinutes,
	}
}

// NewSelector builds all three tiers. A gateway credential failure is
// logged and leaves the external tier unavailable rather than failing
// startup.
func NewSelector(ctx context.Context, cfg *config.Config, opts ...gateway.Option) *hybrid.Selector {
	gw, err := gateway.New(ctx, GatewayConfig(cfg), opts...)
	if err != nil {
		logger.Warn("external optimizer disabled", "err", err)
	}
	solver := opt.NewSolver(SolverOptions(cfg))
	return hybrid.New(gw, solver, Heuristic(cfg), HybridOptions(cfg))
}
