// Package planner is the boundary between callers and the route engine:
// it validates input, applies tenant settings, and caches, stores and
// announces results.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"routeopt/internal/apperror"
	"routeopt/internal/cache"
	"routeopt/internal/hybrid"
	"routeopt/internal/logger"
	"routeopt/internal/metrics"
	"routeopt/internal/model"
	"routeopt/internal/opt"
	"routeopt/internal/store"
)

// Publisher announces finished routes.
type Publisher interface {
	PublishRoute(ctx context.Context, tenantID string, rec model.RouteRecord)
}

type Planner struct {
	selector *hybrid.Selector
	store    store.Store
	cache    *cache.RouteCache
	pub      Publisher
	depot    model.Depot
	log      *slog.Logger
}

type Option func(*Planner)

func WithStore(s store.Store) Option { return func(p *Planner) { p.store = s } }

// WithCache enables result caching. A nil cache disables it.
func WithCache(c *cache.RouteCache) Option { return func(p *Planner) { p.cache = c } }

func WithPublisher(pub Publisher) Option { return func(p *Planner) { p.pub = pub } }

func WithDepot(d model.Depot) Option { return func(p *Planner) { p.depot = d } }

func New(sel *hybrid.Selector, opts ...Option) *Planner {
	p := &Planner{
		selector: sel,
		depot:    model.DefaultDepot(),
		log:      logger.WithComponent("planner"),
	}
	for _, o := range opts {
		o(p)
	}
	if p.store == nil {
		p.store = store.NewMemory()
	}
	return p
}

func (p *Planner) Store() store.Store { return p.store }

// Plan optimizes one request for tenant. The only input failures are a bad
// depot, a bad plan date and a request whose packages are all unroutable.
func (p *Planner) Plan(ctx context.Context, tenant string, req model.OptimizeRequest) (model.OptimizeResponse, error) {
	var planDate time.Time
	if req.PlanDate != "" {
		d, err := time.Parse(time.DateOnly, req.PlanDate)
		if err != nil {
			return model.OptimizeResponse{}, apperror.New(apperror.CodeInvalidArgument, "want YYYY-MM-DD").WithField("planDate")
		}
		planDate = d
	}
	depot, err := ResolveDepot(req.Depot, p.depot)
	if err != nil {
		return model.OptimizeResponse{}, err
	}

	pkgs, excluded, warnings := Normalize(req.Packages)
	for _, w := range warnings {
		p.log.Warn("package input adjusted", "tenant", tenant, "detail", w)
	}
	for _, ex := range excluded {
		p.log.Warn("package excluded", "tenant", tenant, "package", ex.ID, "reason", ex.Reason)
	}
	metrics.ExcludedPackages.Add(float64(len(excluded)))
	if len(req.Packages) > 0 && len(pkgs) == 0 {
		return model.OptimizeResponse{}, apperror.New(apperror.CodeNoValidPackages, "no packages with valid coordinates").
			WithDetail("excluded", excluded)
	}

	settings, err := p.Settings(ctx, tenant)
	if err != nil {
		return model.OptimizeResponse{}, err
	}
	if err := ValidateSettings(req.OptimizerSettings); err != nil {
		return model.OptimizeResponse{}, err
	}
	opts := p.selector.Options().Apply(settings.Merge(req.OptimizerSettings))
	opts.PlanDate = planDate

	route, solve := p.optimize(ctx, tenant, depot, pkgs, opts)
	route.Excluded = excluded

	rec, err := p.store.SaveRoute(ctx, model.RouteRecord{TenantID: tenant, PlanDate: req.PlanDate, Route: route})
	if err != nil {
		p.log.Error("save route", "tenant", tenant, "err", err)
		return model.OptimizeResponse{Route: route}, nil
	}
	if solve != nil {
		pm := solve.PlanMetrics()
		pm.RouteID, pm.PlanDate = rec.ID, req.PlanDate
		if err := p.store.SavePlanMetrics(ctx, tenant, pm); err != nil {
			p.log.Warn("save plan metrics", "tenant", tenant, "route", rec.ID, "err", err)
		}
	}
	if p.pub != nil {
		p.pub.PublishRoute(ctx, tenant, rec)
	}
	return model.OptimizeResponse{RouteID: rec.ID, Route: route}, nil
}

// optimize consults the cache before the selector. Cached results carry no
// solver stats.
func (p *Planner) optimize(ctx context.Context, tenant string, depot model.Depot, pkgs []model.Package, opts hybrid.Options) (model.RouteResult, *opt.SolveStats) {
	var key string
	if p.cache != nil {
		key = cache.RouteKey(tenant, depot, pkgs, fmt.Sprintf("%+v", opts))
		hit, err := p.cache.Get(ctx, key)
		switch {
		case err == nil:
			metrics.CacheLookups.WithLabelValues("hit").Inc()
			hit.Cached = true
			return hit, nil
		case errors.Is(err, cache.ErrMiss):
			metrics.CacheLookups.WithLabelValues("miss").Inc()
		default:
			metrics.CacheLookups.WithLabelValues("error").Inc()
			p.log.Warn("cache lookup", "err", err)
		}
	}

	res := p.selector.OptimizeWith(ctx, pkgs, depot, opts)
	if p.cache != nil {
		if err := p.cache.Set(ctx, key, res.Route); err != nil {
			p.log.Warn("cache store", "err", err)
		}
	}
	return res.Route, res.Solve
}

// Settings returns the stored settings for tenant.
func (p *Planner) Settings(ctx context.Context, tenant string) (model.OptimizerSettings, error) {
	s, err := p.store.GetOptimizerSettings(ctx, tenant)
	if err != nil {
		return s, apperror.Wrap(err, apperror.CodeInternal, "load optimizer settings")
	}
	return s, nil
}

func (p *Planner) SaveSettings(ctx context.Context, tenant string, s model.OptimizerSettings) error {
	if err := ValidateSettings(s); err != nil {
		return err
	}
	if err := p.store.SaveOptimizerSettings(ctx, tenant, s); err != nil {
		return apperror.Wrap(err, apperror.CodeInternal, "save optimizer settings")
	}
	return nil
}

// Status reports the selector as tenant would see it.
func (p *Planner) Status(ctx context.Context, tenant string) (hybrid.Status, error) {
	s, err := p.Settings(ctx, tenant)
	if err != nil {
		return hybrid.Status{}, err
	}
	return p.selector.Status(p.selector.Options().Apply(s)), nil
}

func (p *Planner) Route(ctx context.Context, tenant, id string) (model.RouteRecord, error) {
	rec, err := p.store.GetRoute(ctx, tenant, id)
	if errors.Is(err, store.ErrNotFound) {
		return rec, apperror.Newf(apperror.CodeNotFound, "route %s not found", id)
	}
	if err != nil {
		return rec, apperror.Wrap(err, apperror.CodeInternal, "load route")
	}
	return rec, nil
}

func (p *Planner) Routes(ctx context.Context, tenant, cursor string, limit int) ([]model.RouteRecord, string, error) {
	items, next, err := p.store.ListRoutes(ctx, tenant, cursor, limit)
	if errors.Is(err, store.ErrBadCursor) {
		return nil, "", apperror.Wrap(err, apperror.CodeInvalidArgument, "list routes").WithField("cursor")
	}
	if err != nil {
		return nil, "", apperror.Wrap(err, apperror.CodeInternal, "list routes")
	}
	return items, next, nil
}

func (p *Planner) PlanMetrics(ctx context.Context, tenant, planDate string) ([]model.PlanMetrics, error) {
	ms, err := p.store.ListPlanMetrics(ctx, tenant, planDate)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInternal, "list plan metrics")
	}
	return ms, nil
}
