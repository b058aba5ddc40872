package opt

import (
	"math"

	"routeopt/internal/geo"
	"routeopt/internal/model"
)

// Penalties weight each minute of window violation per delivery type. They
// are large enough that no visit is ever traded away for distance.
type Penalties struct {
	Express   float64
	Scheduled float64
	Standard  float64
}

func DefaultPenalties() Penalties {
	return Penalties{Express: 50000, Scheduled: 30000, Standard: 10000}
}

func (p Penalties) For(t model.DeliveryType) float64 {
	switch t {
	case model.Express:
		return p.Express
	case model.Scheduled:
		return p.Scheduled
	default:
		return p.Standard
	}
}

// node is a routing node; index 0 is the depot. Window bounds are minutes
// relative to the start of the day.
type node struct {
	pkg     model.Package
	loc     geo.Point
	open    float64
	close   float64
	penalty float64
}

// problem is the single-vehicle model handed to the search.
type problem struct {
	nodes   []node
	dist    [][]int64   // meters, integer-rounded
	travel  [][]float64 // minutes
	service float64
	slack   float64
	horizon float64
}

func buildProblem(pkgs []model.Package, depot model.Depot, o SolverOptions) problem {
	n := len(pkgs) + 1
	p := problem{
		nodes:   make([]node, n),
		dist:    make([][]int64, n),
		travel:  make([][]float64, n),
		service: float64(o.ServiceMinutes),
		slack:   float64(o.SlackMinutes),
		horizon: float64(o.HorizonMinutes),
	}
	p.nodes[0] = node{loc: depot.Location, close: p.horizon}
	for i, pkg := range pkgs {
		open, closeAt := 0.0, p.horizon
		switch pkg.Type {
		case model.Express:
			closeAt = math.Min(float64(o.ExpressDeadlineMinutes), p.horizon)
		case model.Scheduled:
			if w, ok := pkg.ScheduledWindow(); ok {
				open = clamp(float64(w.Start-o.DayStart), 0, p.horizon)
				closeAt = clamp(float64(w.End-o.DayStart), 0, p.horizon)
			}
		}
		p.nodes[i+1] = node{pkg: pkg, loc: pkg.Location, open: open, close: closeAt, penalty: o.Penalties.For(pkg.Type)}
	}
	for i := range p.nodes {
		p.dist[i] = make([]int64, n)
		p.travel[i] = make([]float64, n)
		for j := range p.nodes {
			if i == j {
				continue
			}
			km := geo.Road(p.nodes[i].loc, p.nodes[j].loc)
			p.dist[i][j] = int64(math.Round(km * 1000))
			p.travel[i][j] = km / o.SpeedKmh * 60
		}
	}
	return p
}

// timeEps absorbs float error left by shifting the departure, in minutes.
const timeEps = 1e-6

// schedule is the timed evaluation of one tour.
type schedule struct {
	distance  int64
	violation float64 // penalty-weighted minutes outside windows, slack or horizon
	start     float64 // depot departure, minutes after day start
	arrivals  []float64
	end       float64
}

// evaluate walks tour from the depot and back. Waiting for a window is allowed
// up to the slack; longer waits, late arrivals and a late return all count as
// violation. The departure floats: when a wait exceeds the slack the vehicle
// leaves later, by no more than it takes to bring every wait within the slack
// and never so late that a stop or the return gets later than it would be
// from a departure at 0.
func (p problem) evaluate(tour []int) schedule {
	s, fwd, need := p.walk(tour, 0)
	if d := math.Min(math.Min(fwd, need), p.horizon); d > 0 {
		s, _, _ = p.walk(tour, d)
	}
	return s
}

// walk simulates tour leaving the depot at start. It also returns the forward
// slack (how far the departure can move later before any window close or the
// horizon binds harder) and the delay that would absorb every excess wait.
func (p problem) walk(tour []int, start float64) (schedule, float64, float64) {
	s := schedule{start: start, arrivals: make([]float64, len(tour))}
	t, prev := start, 0
	waited, fwd, need := 0.0, math.Inf(1), 0.0
	for k, i := range tour {
		nd := p.nodes[i]
		t += p.travel[prev][i]
		if prev != 0 {
			t += p.service
		}
		if t < nd.open {
			wait := nd.open - t
			waited += wait
			if wait > p.slack+timeEps {
				s.violation += (wait - p.slack) * nd.penalty
				need = math.Max(need, waited-p.slack)
			}
			t = nd.open
		}
		if t > nd.close+timeEps {
			s.violation += (t - nd.close) * nd.penalty
		}
		fwd = math.Min(fwd, waited+math.Max(0, nd.close-t))
		s.arrivals[k] = t
		s.distance += p.dist[prev][i]
		prev = i
	}
	if len(tour) > 0 {
		t += p.service + p.travel[prev][0]
		s.distance += p.dist[prev][0]
	}
	if t > p.horizon+timeEps {
		s.violation += (t - p.horizon) * p.maxPenalty()
	}
	fwd = math.Min(fwd, waited+math.Max(0, p.horizon-t))
	s.end = t
	return s, fwd, need
}

func (p problem) maxPenalty() float64 {
	m := 0.0
	for _, nd := range p.nodes[1:] {
		m = math.Max(m, nd.penalty)
	}
	return m
}

// cheapestArc extends the tour from the depot along the cheapest outgoing
// arc to an unvisited node, ties going to the lower index.
func (p problem) cheapestArc() []int {
	n := len(p.nodes)
	visited := make([]bool, n)
	tour := make([]int, 0, n-1)
	cur := 0
	for len(tour) < n-1 {
		next := -1
		for j := 1; j < n; j++ {
			if visited[j] {
				continue
			}
			if next < 0 || p.dist[cur][j] < p.dist[cur][next] {
				next = j
			}
		}
		visited[next] = true
		tour = append(tour, next)
		cur = next
	}
	return tour
}

func clamp(v, lo, hi float64) float64 { return math.Max(lo, math.Min(hi, v)) }
