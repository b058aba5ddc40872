package opt

import (
	"routeopt/internal/geo"
	"routeopt/internal/model"
)

type ScoreWeights struct {
	Distance float64
	Priority float64
	Urgency  float64
}

type OrderOptions struct {
	Weights ScoreWeights
	// DayStart is the simulated clock at the first step, in minutes since midnight.
	DayStart int
	// HoursPerStep advances the simulated clock per chosen cluster.
	HoursPerStep int
}

func DefaultOrderOptions() OrderOptions {
	return OrderOptions{
		Weights:      ScoreWeights{Distance: 0.40, Priority: 0.40, Urgency: 0.20},
		DayStart:     8 * 60,
		HoursPerStep: 2,
	}
}

func (o OrderOptions) withDefaults() OrderOptions {
	d := DefaultOrderOptions()
	if o.Weights == (ScoreWeights{}) {
		o.Weights = d.Weights
	}
	if o.DayStart <= 0 {
		o.DayStart = d.DayStart
	}
	if o.HoursPerStep <= 0 {
		o.HoursPerStep = d.HoursPerStep
	}
	return o
}

// OrderClusters picks clusters greedily by score, starting at the depot and
// moving to the last package of each chosen cluster. The highest score wins;
// ties go to the earliest cluster. There is no backtracking.
func OrderClusters(clusters []Cluster, depot model.Depot, o OrderOptions) []Cluster {
	o = o.withDefaults()
	remaining := append([]Cluster(nil), clusters...)
	ordered := make([]Cluster, 0, len(clusters))
	pos := depot.Location

	for len(remaining) > 0 {
		best, bestScore := 0, score(remaining[0], pos, len(ordered), o)
		for i := 1; i < len(remaining); i++ {
			if s := score(remaining[i], pos, len(ordered), o); s > bestScore {
				best, bestScore = i, s
			}
		}
		c := remaining[best]
		ordered = append(ordered, c)
		remaining = append(remaining[:best:best], remaining[best+1:]...)
		pos = c.Last().Location
	}
	return ordered
}

func score(c Cluster, pos geo.Point, step int, o OrderOptions) float64 {
	d := geo.Haversine(pos, c.Centroid)
	return o.Weights.Distance*(1/(d+0.1)) +
		o.Weights.Priority*averagePriority(c) +
		o.Weights.Urgency*timeUrgency(c, step, o)
}

func averagePriority(c Cluster) float64 {
	if len(c.Packages) == 0 {
		return 0
	}
	total := 0
	for _, p := range c.Packages {
		total += p.Type.Weight()
	}
	return float64(total) / float64(len(c.Packages))
}

// timeUrgency averages per-package urgency: 2 for a scheduled window opening
// within two hours of the simulated clock, 1 within four hours, else 0.
func timeUrgency(c Cluster, step int, o OrderOptions) float64 {
	if len(c.Packages) == 0 {
		return 0
	}
	hour := o.DayStart/60 + step*o.HoursPerStep
	total := 0
	for _, p := range c.Packages {
		w, ok := p.ScheduledWindow()
		if !ok {
			continue
		}
		switch startHour := w.Start / 60; {
		case startHour <= hour+2:
			total += 2
		case startHour <= hour+4:
			total++
		}
	}
	return float64(total) / float64(len(c.Packages))
}
