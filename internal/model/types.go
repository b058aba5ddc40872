// Package model holds the typed domain of one route optimization and the
// JSON shapes exchanged at the service boundary.
package model

import (
	"fmt"
	"strings"
	"time"

	"routeopt/internal/geo"
)

type Coordinate = geo.Point

type DeliveryType string

const (
	Express   DeliveryType = "express"
	Scheduled DeliveryType = "scheduled"
	Standard  DeliveryType = "standard"
)

// ParseDeliveryType accepts any casing. ok is false for unknown values.
func ParseDeliveryType(s string) (DeliveryType, bool) {
	switch DeliveryType(strings.ToLower(strings.TrimSpace(s))) {
	case Express:
		return Express, true
	case Scheduled:
		return Scheduled, true
	case Standard:
		return Standard, true
	}
	return Standard, false
}

// Weight ranks priority classes: express 3, scheduled 2, standard 1.
func (t DeliveryType) Weight() int {
	switch t {
	case Express:
		return 3
	case Scheduled:
		return 2
	default:
		return 1
	}
}

// TimeWindow is an inclusive [Start, End] interval in minutes since midnight.
type TimeWindow struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// NewTimeWindow rejects negative bounds and Start > End.
func NewTimeWindow(start, end int) (TimeWindow, error) {
	if start < 0 || end < 0 {
		return TimeWindow{}, fmt.Errorf("negative time window bound")
	}
	if start > end {
		return TimeWindow{}, fmt.Errorf("time window start %s after end %s", FormatClock(start), FormatClock(end))
	}
	return TimeWindow{Start: start, End: end}, nil
}

// ParseTimeWindow parses a pair of "HH:MM" strings.
func ParseTimeWindow(start, end string) (TimeWindow, error) {
	s, err := ParseClock(start)
	if err != nil {
		return TimeWindow{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return TimeWindow{}, err
	}
	return NewTimeWindow(s, e)
}

func (w TimeWindow) Contains(minute int) bool { return minute >= w.Start && minute <= w.End }

func (w TimeWindow) String() string { return FormatClock(w.Start) + "-" + FormatClock(w.End) }

// ParseClock parses "HH:MM" into minutes since midnight. Each field is one
// or two ASCII digits; signs and trailing input are rejected.
func ParseClock(s string) (int, error) {
	s = strings.TrimSpace(s)
	hs, ms, ok := strings.Cut(s, ":")
	h, okH := clockField(hs)
	m, okM := clockField(ms)
	if !ok || !okH || !okM {
		return 0, fmt.Errorf("invalid clock %q: want HH:MM", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid clock %q: out of range", s)
	}
	return h*60 + m, nil
}

func clockField(s string) (int, bool) {
	if len(s) == 0 || len(s) > 2 {
		return 0, false
	}
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

// FormatClock renders minutes since midnight as HH:MM. Hours past 23 are not wrapped.
func FormatClock(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Package is one delivery. Window is only honoured for Scheduled packages.
type Package struct {
	ID          string
	ExternalRef string
	Location    Coordinate
	Type        DeliveryType
	Window      *TimeWindow
}

// ScheduledWindow returns the window that constrains p, if any.
func (p Package) ScheduledWindow() (TimeWindow, bool) {
	if p.Type != Scheduled || p.Window == nil {
		return TimeWindow{}, false
	}
	return *p.Window, true
}

type Depot struct {
	Location Coordinate `json:"location"`
	Label    string     `json:"label"`
}

func DefaultDepot() Depot {
	return Depot{Location: Coordinate{Lat: 41.0082, Lng: 28.9784}, Label: "Istanbul Merkez Depo"}
}

type Strategy string

const (
	StrategyExternal  Strategy = "external"
	StrategySolver    Strategy = "solver"
	StrategyHeuristic Strategy = "heuristic"
)

// Strategies lists tiers in selection order.
var Strategies = []Strategy{StrategyExternal, StrategySolver, StrategyHeuristic}

func ParseStrategy(s string) (Strategy, bool) {
	for _, st := range Strategies {
		if strings.EqualFold(strings.TrimSpace(s), string(st)) {
			return st, true
		}
	}
	return "", false
}

type StopKind string

const (
	StopDepot    StopKind = "depot"
	StopDelivery StopKind = "delivery"
)

type RouteStop struct {
	Sequence                    int          `json:"sequence"`
	Kind                        StopKind     `json:"kind"`
	PackageID                   string       `json:"packageId,omitempty"`
	ExternalRef                 string       `json:"externalRef,omitempty"`
	DeliveryType                DeliveryType `json:"deliveryType,omitempty"`
	Location                    Coordinate   `json:"location"`
	ClusterID                   int          `json:"clusterId"`
	EstimatedArrival            string       `json:"estimatedArrival"`
	ArrivalMinute               int          `json:"arrivalMinute"`
	DistanceFromPreviousKm      float64      `json:"distanceFromPreviousKm"`
	DurationFromPreviousMinutes float64      `json:"durationFromPreviousMinutes"`
	TimeWindow                  *TimeWindow  `json:"timeWindow,omitempty"`
	// LateMinutes is how far the arrival falls after the window end.
	LateMinutes int `json:"lateMinutes,omitempty"`
}

type TierOutcome string

const (
	OutcomeOK      TierOutcome = "ok"
	OutcomeSkipped TierOutcome = "skipped"
	OutcomeFailed  TierOutcome = "failed"
)

type TierAttempt struct {
	Tier       Strategy    `json:"tier"`
	Outcome    TierOutcome `json:"outcome"`
	Reason     string      `json:"reason,omitempty"`
	DurationMs int64       `json:"durationMs"`
}

type Comparison struct {
	Strategy             Strategy `json:"strategy"`
	TotalDistanceKm      float64  `json:"totalDistanceKm"`
	TotalDurationMinutes float64  `json:"totalDurationMinutes"`
	DistanceDeltaKm      float64  `json:"distanceDeltaKm"`
}

type ExcludedPackage struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// RouteResult is a closed tour: TotalDistanceKm is the sum of every stop's
// DistanceFromPreviousKm plus ReturnDistanceKm.
type RouteResult struct {
	Stops                 []RouteStop       `json:"stops"`
	ReturnDistanceKm      float64           `json:"returnDistanceKm"`
	ReturnDurationMinutes float64           `json:"returnDurationMinutes"`
	TotalDistanceKm       float64           `json:"totalDistanceKm"`
	TotalDurationMinutes  float64           `json:"totalDurationMinutes"`
	LateStops             int               `json:"lateStops,omitempty"`
	StrategyUsed          Strategy          `json:"strategyUsed"`
	FallbackReason        string            `json:"fallbackReason,omitempty"`
	Attempts              []TierAttempt     `json:"attempts,omitempty"`
	Comparison            *Comparison       `json:"comparison,omitempty"`
	Excluded              []ExcludedPackage `json:"excluded,omitempty"`
	PackageCount          int               `json:"packageCount"`
	ExternalAvailable     bool              `json:"externalAvailable"`
	GeneratedAt           time.Time         `json:"generatedAt"`
	Cached                bool              `json:"cached,omitempty"`
}

// Deliveries returns the non-depot stops in route order.
func (r RouteResult) Deliveries() []RouteStop {
	out := make([]RouteStop, 0, len(r.Stops))
	for _, s := range r.Stops {
		if s.Kind == StopDelivery {
			out = append(out, s)
		}
	}
	return out
}

// PackageOrder returns delivered package ids in route order.
func (r RouteResult) PackageOrder() []string {
	ids := make([]string, 0, len(r.Stops))
	for _, s := range r.Deliveries() {
		ids = append(ids, s.PackageID)
	}
	return ids
}
