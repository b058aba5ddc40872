package opt

import (
	"context"
	"fmt"
	"math"
	"time"

	"routeopt/internal/apperror"
	"routeopt/internal/model"
)

var (
	ErrInfeasible = apperror.New(apperror.CodeSolverInfeasible, "no feasible route found")
	ErrTimeout    = apperror.New(apperror.CodeSolverTimeout, "solver time budget exhausted")
)

type SolverOptions struct {
	TimeBudget             time.Duration
	StallIterations        int
	HorizonMinutes         int
	SlackMinutes           int
	ExpressDeadlineMinutes int
	SpeedKmh               float64
	ServiceMinutes         int
	DayStart               int // minutes since midnight
	Penalties              Penalties
	// Lambda scales guided-local-search penalties relative to the average edge cost.
	Lambda float64
}

func DefaultSolverOptions() SolverOptions {
	return SolverOptions{
		TimeBudget:             30 * time.Second,
		StallIterations:        200,
		HorizonMinutes:         480,
		SlackMinutes:           30,
		ExpressDeadlineMinutes: 240,
		SpeedKmh:               30,
		ServiceMinutes:         15,
		DayStart:               8 * 60,
		Penalties:              DefaultPenalties(),
		Lambda:                 0.2,
	}
}

func (o SolverOptions) withDefaults() SolverOptions {
	d := DefaultSolverOptions()
	if o.StallIterations <= 0 {
		o.StallIterations = d.StallIterations
	}
	if o.HorizonMinutes <= 0 {
		o.HorizonMinutes = d.HorizonMinutes
	}
	if o.SlackMinutes < 0 {
		o.SlackMinutes = 0
	}
	if o.ExpressDeadlineMinutes <= 0 {
		o.ExpressDeadlineMinutes = d.ExpressDeadlineMinutes
	}
	if o.SpeedKmh <= 0 {
		o.SpeedKmh = d.SpeedKmh
	}
	if o.ServiceMinutes < 0 {
		o.ServiceMinutes = 0
	}
	if o.DayStart <= 0 {
		o.DayStart = d.DayStart
	}
	if o.Penalties == (Penalties{}) {
		o.Penalties = d.Penalties
	}
	if o.Lambda <= 0 {
		o.Lambda = d.Lambda
	}
	return o
}

// SolveStats describes one search.
type SolveStats struct {
	Iterations    int
	Improvements  int
	PenaltyRounds int
	InitialCost   float64
	BestCost      float64
	Violation     float64
	Duration      time.Duration
}

// PlanMetrics converts stats for persistence. A search that never found a
// feasible tour reports a best cost of 0.
func (s SolveStats) PlanMetrics() model.PlanMetrics {
	best := s.BestCost
	if math.IsInf(best, 0) {
		best = 0
	}
	return model.PlanMetrics{
		Strategy:      model.StrategySolver,
		Iterations:    s.Iterations,
		Improvements:  s.Improvements,
		PenaltyRounds: s.PenaltyRounds,
		InitialCost:   s.InitialCost,
		BestCost:      best,
		Violation:     s.Violation,
		DurationMs:    s.Duration.Milliseconds(),
	}
}

// Solver is the constraint-model tier: single vehicle, every package
// mandatory, per-type time windows, bounded by a wall-clock budget.
type Solver struct {
	Opts SolverOptions
}

func NewSolver(o SolverOptions) *Solver {
	return &Solver{Opts: o}
}

// Solve returns the best feasible tour found within the budget. A zero or
// negative budget fails with ErrTimeout before any search. The search stops
// early once StallIterations penalty rounds pass without a better feasible
// tour, or when ctx is done.
func (s *Solver) Solve(ctx context.Context, pkgs []model.Package, depot model.Depot) (model.RouteResult, SolveStats, error) {
	start := time.Now()
	o := s.Opts
	if o.TimeBudget <= 0 {
		return model.RouteResult{}, SolveStats{}, ErrTimeout
	}
	o = o.withDefaults()
	if len(pkgs) == 0 {
		return emptyResult(model.StrategySolver), SolveStats{}, nil
	}
	if lb := len(pkgs) * o.ServiceMinutes; lb > o.HorizonMinutes {
		return model.RouteResult{}, SolveStats{}, fmt.Errorf("%w: %d stops need %d service minutes, horizon is %d",
			ErrInfeasible, len(pkgs), lb, o.HorizonMinutes)
	}

	deadline := start.Add(o.TimeBudget)
	p := buildProblem(pkgs, depot, o)
	g := newGuide(p)

	tour := p.cheapestArc()
	sched := p.evaluate(tour)
	stats := SolveStats{InitialCost: g.trueCost(sched), BestCost: math.Inf(1), Violation: sched.violation}

	var best []int
	var bestSched schedule
	accept := func(t []int, sc schedule) {
		if sc.violation > 0 {
			return
		}
		if c := g.trueCost(sc); c+1e-6 < stats.BestCost {
			best, bestSched = append([]int(nil), t...), sc
			stats.BestCost = c
			stats.Improvements++
		}
	}
	accept(tour, sched)

	stall := 0
	for stall < o.StallIterations && time.Now().Before(deadline) && ctx.Err() == nil {
		stats.Iterations++
		tour = g.descend(tour, deadline)
		sched = p.evaluate(tour)
		before := stats.Improvements
		accept(tour, sched)
		if stats.Improvements > before {
			stall = 0
		} else {
			stall++
		}
		if best == nil {
			stats.Violation = math.Min(stats.Violation, sched.violation)
		}
		if g.lambda == 0 {
			g.lambda = o.Lambda * float64(sched.distance) / float64(len(tour)+1)
		}
		g.penalize(tour)
		stats.PenaltyRounds++
	}
	stats.Duration = time.Since(start)

	if best == nil {
		return model.RouteResult{}, stats, fmt.Errorf("%w after %d iterations (violation %.0f)", ErrInfeasible, stats.Iterations, stats.Violation)
	}
	stats.Violation = 0
	return s.extract(p, best, bestSched, depot, o), stats, nil
}

func (s *Solver) extract(p problem, tour []int, sc schedule, depot model.Depot, o SolverOptions) model.RouteResult {
	visits := make([]Visit, len(tour))
	arrivals := make([]int, len(tour))
	for k, i := range tour {
		visits[k] = Visit{Package: p.nodes[i].pkg}
		arrivals[k] = o.DayStart + int(math.Round(sc.arrivals[k]))
	}
	depart := o.DayStart + int(math.Round(sc.start))
	res := ConstructScheduled(depot, visits, arrivals, depart, o.SpeedKmh)
	res.TotalDurationMinutes = math.Round((sc.end-sc.start)*10) / 10
	res.StrategyUsed = model.StrategySolver
	return res
}
