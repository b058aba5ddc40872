package opt

import (
	"math"

	"routeopt/internal/geo"
	"routeopt/internal/model"
)

// Visit is one package in route order with its cluster (0 when unclustered).
type Visit struct {
	Package   model.Package
	ClusterID int
}

type ConstructOptions struct {
	DayStart            int // minutes since midnight
	ServiceMinutes      int
	LateRecoveryMinutes int
	SpeedKmh            float64
}

func DefaultConstructOptions() ConstructOptions {
	return ConstructOptions{DayStart: 8 * 60, ServiceMinutes: 15, LateRecoveryMinutes: 30, SpeedKmh: 30}
}

func (o ConstructOptions) withDefaults() ConstructOptions {
	d := DefaultConstructOptions()
	if o.DayStart <= 0 {
		o.DayStart = d.DayStart
	}
	if o.ServiceMinutes <= 0 {
		o.ServiceMinutes = d.ServiceMinutes
	}
	if o.LateRecoveryMinutes < 0 {
		o.LateRecoveryMinutes = 0
	}
	if o.SpeedKmh <= 0 {
		o.SpeedKmh = d.SpeedKmh
	}
	return o
}

// leg is the immutable accumulator threaded through route construction.
type leg struct {
	stops    []model.RouteStop
	clock    int
	at       geo.Point
	distance float64
	late     int
}

func startLeg(depot model.Depot, dayStart int) leg {
	return leg{
		stops: []model.RouteStop{{
			Sequence:         0,
			Kind:             model.StopDepot,
			ExternalRef:      depot.Label,
			Location:         depot.Location,
			EstimatedArrival: model.FormatClock(dayStart),
			ArrivalMinute:    dayStart,
		}},
		clock: dayStart,
		at:    depot.Location,
	}
}

// next returns the accumulator after delivering v at arrival.
func (l leg) next(v Visit, arrival, lateMinutes, serviceMinutes int, speedKmh float64) leg {
	d := geo.Road(l.at, v.Package.Location)
	stop := model.RouteStop{
		Sequence:                    len(l.stops),
		Kind:                        model.StopDelivery,
		PackageID:                   v.Package.ID,
		ExternalRef:                 v.Package.ExternalRef,
		DeliveryType:                v.Package.Type,
		Location:                    v.Package.Location,
		ClusterID:                   v.ClusterID,
		EstimatedArrival:            model.FormatClock(arrival),
		ArrivalMinute:               arrival,
		DistanceFromPreviousKm:      d,
		DurationFromPreviousMinutes: travelMinutes(d, speedKmh),
		TimeWindow:                  v.Package.Window,
		LateMinutes:                 lateMinutes,
	}
	late := l.late
	if lateMinutes > 0 {
		late++
	}
	return leg{
		stops:    append(l.stops[:len(l.stops):len(l.stops)], stop),
		clock:    arrival + serviceMinutes,
		at:       v.Package.Location,
		distance: l.distance + d,
		late:     late,
	}
}

// clampArrival applies the scheduled-window policy to the simulated clock.
// Early arrivals wait for the window to open. Late arrivals are pulled back
// by at most recovery minutes, never earlier than the window end; anything
// still past the end is reported as late minutes.
func clampArrival(p model.Package, clock, recovery int) (arrival, late int) {
	w, ok := p.ScheduledWindow()
	if !ok {
		return clock, 0
	}
	switch {
	case clock < w.Start:
		return w.Start, 0
	case clock > w.End:
		arrival = max(w.End, clock-recovery)
		return arrival, arrival - w.End
	}
	return clock, 0
}

// Construct builds the heuristic route for visits in the given order. The
// clock starts at DayStart and advances by the service time per stop.
func Construct(depot model.Depot, visits []Visit, o ConstructOptions) model.RouteResult {
	o = o.withDefaults()
	if len(visits) == 0 {
		return emptyResult(model.StrategyHeuristic)
	}
	acc := startLeg(depot, o.DayStart)
	for _, v := range visits {
		arrival, late := clampArrival(v.Package, acc.clock, o.LateRecoveryMinutes)
		acc = acc.next(v, arrival, late, o.ServiceMinutes, o.SpeedKmh)
	}
	res := acc.close(depot, o.SpeedKmh)
	res.TotalDurationMinutes = float64(len(visits) * o.ServiceMinutes)
	res.StrategyUsed = model.StrategyHeuristic
	return res
}

// ConstructScheduled builds a route whose arrivals come from an external
// schedule (solver or remote service); arrivals[i] belongs to visits[i].
func ConstructScheduled(depot model.Depot, visits []Visit, arrivals []int, dayStart int, speedKmh float64) model.RouteResult {
	if len(visits) == 0 {
		return emptyResult("")
	}
	acc := startLeg(depot, dayStart)
	for i, v := range visits {
		late := 0
		if w, ok := v.Package.ScheduledWindow(); ok && arrivals[i] > w.End {
			late = arrivals[i] - w.End
		}
		acc = acc.next(v, arrivals[i], late, 0, speedKmh)
	}
	return acc.close(depot, speedKmh)
}

func (l leg) close(depot model.Depot, speedKmh float64) model.RouteResult {
	back := geo.Road(l.at, depot.Location)
	return model.RouteResult{
		Stops:                 l.stops,
		ReturnDistanceKm:      back,
		ReturnDurationMinutes: travelMinutes(back, speedKmh),
		TotalDistanceKm:       l.distance + back,
		LateStops:             l.late,
		PackageCount:          len(l.stops) - 1,
	}
}

func emptyResult(strategy model.Strategy) model.RouteResult {
	return model.RouteResult{Stops: []model.RouteStop{}, StrategyUsed: strategy}
}

func travelMinutes(km, speedKmh float64) float64 {
	if speedKmh <= 0 {
		return 0
	}
	return math.Round(km/speedKmh*60*10) / 10
}
