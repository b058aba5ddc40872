// Package hybrid picks the optimization tier for a request. Tiers run in the
// order external, solver, heuristic; a tier that is skipped or fails hands
// the same input to the next one. The heuristic tier cannot fail, so every
// call returns a route.
package hybrid

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"routeopt/internal/apperror"
	"routeopt/internal/buildinfo"
	"routeopt/internal/logger"
	"routeopt/internal/metrics"
	"routeopt/internal/model"
	"routeopt/internal/opt"
)

// External is the optimization gateway as the selector sees it.
type External interface {
	IsAvailable() bool
	MaxPackages() int
	Optimize(ctx context.Context, pkgs []model.Package, depot model.Depot, planDate time.Time) (model.RouteResult, error)
}

type Options struct {
	// ExternalMaxPackages caps the external tier; 0 uses the gateway's cap.
	ExternalMaxPackages   int
	ComparisonMode        bool
	ComparisonMaxPackages int
	// ForceStrategy starts the chain at the named tier.
	ForceStrategy     model.Strategy
	SolverEnabled     bool
	SolverMinPackages int
	// SolverTimeBudget replaces the solver's own budget when non-zero.
	// A negative value makes the solver fail immediately.
	SolverTimeBudget time.Duration
	// PlanDate is the delivery day handed to the external tier; zero means today.
	PlanDate time.Time
}

func DefaultOptions() Options {
	return Options{
		ComparisonMaxPackages: 20,
		SolverEnabled:         true,
		SolverMinPackages:     2,
	}
}

// Apply overlays per-tenant or per-call settings.
func (o Options) Apply(s model.OptimizerSettings) Options {
	if st, ok := model.ParseStrategy(s.ForceStrategy); ok {
		o.ForceStrategy = st
	}
	if s.ComparisonMode != nil {
		o.ComparisonMode = *s.ComparisonMode
	}
	if s.ExternalMaxPackages != nil && *s.ExternalMaxPackages > 0 {
		o.ExternalMaxPackages = *s.ExternalMaxPackages
	}
	if s.SolverTimeBudgetMs != nil {
		o.SolverTimeBudget = time.Duration(*s.SolverTimeBudgetMs) * time.Millisecond
		if o.SolverTimeBudget == 0 {
			o.SolverTimeBudget = -1
		}
	}
	return o
}

// Result is a route plus the solver search stats when the solver ran.
type Result struct {
	Route model.RouteResult
	Solve *opt.SolveStats
}

// Selector is safe for concurrent use; per-call state lives on the stack.
type Selector struct {
	external  External
	solver    *opt.Solver
	heuristic opt.Heuristic
	opts      Options
	log       *slog.Logger
	now       func() time.Time
}

// New wires the tiers. A nil external means the external tier is never
// available; a nil solver uses the default solver options.
func New(external External, solver *opt.Solver, heuristic opt.Heuristic, opts Options) *Selector {
	if solver == nil {
		solver = opt.NewSolver(opt.DefaultSolverOptions())
	}
	if opts.ComparisonMaxPackages <= 0 {
		opts.ComparisonMaxPackages = 20
	}
	return &Selector{
		external:  external,
		solver:    solver,
		heuristic: heuristic,
		opts:      opts,
		log:       logger.WithComponent("hybrid"),
		now:       time.Now,
	}
}

// Options returns the defaults each call starts from.
func (s *Selector) Options() Options { return s.opts }

func (s *Selector) externalAvailable() bool {
	return s.external != nil && s.external.IsAvailable()
}

// externalCap is the lower of the per-call cap and the gateway's own.
func (s *Selector) externalCap(o Options) int {
	limit := 0
	if s.externalAvailable() {
		limit = s.external.MaxPackages()
	}
	if o.ExternalMaxPackages > 0 && (limit == 0 || o.ExternalMaxPackages < limit) {
		limit = o.ExternalMaxPackages
	}
	return limit
}

// Optimize runs the chain with the selector's default options.
func (s *Selector) Optimize(ctx context.Context, pkgs []model.Package, depot model.Depot) Result {
	return s.OptimizeWith(ctx, pkgs, depot, s.opts)
}

// OptimizeWith runs the chain with o. It always returns a route.
func (s *Selector) OptimizeWith(ctx context.Context, pkgs []model.Package, depot model.Depot, o Options) Result {
	steps := []step{
		func(ctx context.Context) Outcome { return s.runExternal(ctx, pkgs, depot, o) },
		func(ctx context.Context) Outcome { return s.runSolver(ctx, pkgs, depot, o) },
		func(context.Context) Outcome { return ok(model.StrategyHeuristic, s.heuristic.Run(pkgs, depot)) },
	}
	if o.ForceStrategy != "" {
		for i, tier := range model.Strategies {
			if tier == o.ForceStrategy {
				break
			}
			steps[i] = forcedPast(tier, o.ForceStrategy)
		}
	}

	outs := chain(ctx, steps, s.observe)
	win := outs[len(outs)-1]
	if !win.OK() {
		// Unreachable while the heuristic tier is last in the chain.
		win = ok(model.StrategyHeuristic, s.heuristic.Run(pkgs, depot))
		outs = append(outs, win)
	}

	res := Result{Route: win.Route}
	var reasons []string
	for _, out := range outs {
		res.Route.Attempts = append(res.Route.Attempts, out.attempt())
		if out.Solve != nil {
			res.Solve = out.Solve
		}
		if !out.OK() {
			reasons = append(reasons, fmt.Sprintf("%s: %s", out.Tier, out.Reason()))
		}
	}
	res.Route.StrategyUsed = win.Tier
	res.Route.FallbackReason = strings.Join(reasons, "; ")
	res.Route.PackageCount = len(pkgs)
	res.Route.ExternalAvailable = s.externalAvailable()
	res.Route.GeneratedAt = s.now().UTC()

	if o.ComparisonMode && win.Tier != model.StrategyHeuristic && len(pkgs) > 0 && len(pkgs) <= o.ComparisonMaxPackages {
		res.Route.Comparison = s.compare(pkgs, depot, res.Route)
	}

	metrics.Optimizations.WithLabelValues(string(win.Tier)).Inc()
	s.log.Info("route optimized",
		"strategy", win.Tier,
		"packages", len(pkgs),
		"distance_km", res.Route.TotalDistanceKm,
		"duration_min", res.Route.TotalDurationMinutes,
		"fallback", res.Route.FallbackReason)
	return res
}

func forcedPast(tier, forced model.Strategy) step {
	return func(context.Context) Outcome {
		return skip(tier, "forced", apperror.Newf(apperror.CodeInvalidArgument, "forced strategy %s", forced))
	}
}

func (s *Selector) runExternal(ctx context.Context, pkgs []model.Package, depot model.Depot, o Options) Outcome {
	const tier = model.StrategyExternal
	if !s.externalAvailable() {
		return skip(tier, "unavailable", apperror.New(apperror.CodeGatewayUnavailable, "external optimizer not available"))
	}
	if len(pkgs) == 0 {
		return skip(tier, "empty", apperror.New(apperror.CodeInvalidArgument, "no packages"))
	}
	if limit := s.externalCap(o); len(pkgs) > limit {
		return skip(tier, "capped", apperror.Newf(apperror.CodeGatewayCapped,
			"package count (%d) exceeds external optimizer cap (%d)", len(pkgs), limit))
	}
	r, err := s.external.Optimize(ctx, pkgs, depot, o.PlanDate)
	if err != nil {
		return fail(tier, err)
	}
	return ok(tier, r)
}

func (s *Selector) runSolver(ctx context.Context, pkgs []model.Package, depot model.Depot, o Options) Outcome {
	const tier = model.StrategySolver
	if !o.SolverEnabled {
		return skip(tier, "disabled", apperror.New(apperror.CodeInvalidArgument, "solver disabled"))
	}
	if len(pkgs) < o.SolverMinPackages {
		return skip(tier, "trivial", apperror.Newf(apperror.CodeInvalidArgument,
			"trivial input (%d packages, solver needs %d)", len(pkgs), o.SolverMinPackages))
	}
	solver := s.solver
	if o.SolverTimeBudget != 0 {
		so := solver.Opts
		so.TimeBudget = o.SolverTimeBudget
		solver = opt.NewSolver(so)
	}
	r, stats, err := solver.Solve(ctx, pkgs, depot)
	out := ok(tier, r)
	if err != nil {
		out = fail(tier, err)
	}
	if stats.Iterations > 0 || err == nil {
		out.Solve = &stats
	}
	return out
}

// compare runs the heuristic beside the chosen tier for reporting only.
func (s *Selector) compare(pkgs []model.Package, depot model.Depot, chosen model.RouteResult) *model.Comparison {
	h := s.heuristic.Run(pkgs, depot)
	return &model.Comparison{
		Strategy:             model.StrategyHeuristic,
		TotalDistanceKm:      h.TotalDistanceKm,
		TotalDurationMinutes: h.TotalDurationMinutes,
		DistanceDeltaKm:      h.TotalDistanceKm - chosen.TotalDistanceKm,
	}
}

func (s *Selector) observe(o Outcome) {
	metrics.TierDuration.WithLabelValues(string(o.Tier), o.label()).Observe(o.Elapsed.Seconds())
	if o.OK() {
		return
	}
	metrics.TierFallbacks.WithLabelValues(string(o.Tier), o.reasonKey()).Inc()
	s.log.Warn("tier not used", "tier", o.Tier, "outcome", o.label(), "reason", o.Reason())
}

type Status struct {
	ExternalAvailable     bool              `json:"externalAvailable"`
	ExternalMaxPackages   int               `json:"externalMaxPackages"`
	SolverEnabled         bool              `json:"solverEnabled"`
	SolverTimeBudgetMs    int64             `json:"solverTimeBudgetMs"`
	SolverMinPackages     int               `json:"solverMinPackages"`
	ComparisonMode        bool              `json:"comparisonMode"`
	ComparisonMaxPackages int               `json:"comparisonMaxPackages"`
	ForceStrategy         model.Strategy    `json:"forceStrategy,omitempty"`
	TierOrder             []model.Strategy  `json:"tierOrder"`
	Build                 map[string]string `json:"build"`
}

// Status describes the selector as configured, with o overlaid.
func (s *Selector) Status(o Options) Status {
	budget := s.solver.Opts.TimeBudget
	if o.SolverTimeBudget != 0 {
		budget = max(o.SolverTimeBudget, 0)
	}
	return Status{
		ExternalAvailable:     s.externalAvailable(),
		ExternalMaxPackages:   s.externalCap(o),
		SolverEnabled:         o.SolverEnabled,
		SolverTimeBudgetMs:    budget.Milliseconds(),
		SolverMinPackages:     o.SolverMinPackages,
		ComparisonMode:        o.ComparisonMode,
		ComparisonMaxPackages: o.ComparisonMaxPackages,
		ForceStrategy:         o.ForceStrategy,
		TierOrder:             append([]model.Strategy(nil), model.Strategies...),
		Build:                 buildinfo.Info(),
	}
}
