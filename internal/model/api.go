package model

import "time"

// PackageIn is a package as submitted by a caller. Coordinates are nullable.
type PackageIn struct {
	ID           string        `json:"id" yaml:"id"`
	ExternalRef  string        `json:"externalRef,omitempty" yaml:"externalRef"`
	Latitude     *float64      `json:"latitude" yaml:"latitude"`
	Longitude    *float64      `json:"longitude" yaml:"longitude"`
	DeliveryType string        `json:"deliveryType" yaml:"deliveryType"`
	TimeWindow   *TimeWindowIn `json:"timeWindow,omitempty" yaml:"timeWindow"`
}

type TimeWindowIn struct {
	Start string `json:"start" yaml:"start"`
	End   string `json:"end" yaml:"end"`
}

type DepotIn struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
	Label     string  `json:"label,omitempty" yaml:"label"`
}

type OptimizeRequest struct {
	TenantID string      `json:"tenantId,omitempty" yaml:"tenantId"`
	PlanDate string      `json:"planDate,omitempty" yaml:"planDate"` // YYYY-MM-DD
	Depot    *DepotIn    `json:"depot,omitempty" yaml:"depot"`
	Packages []PackageIn `json:"packages" yaml:"packages"`
	OptimizerSettings `yaml:",inline"`
}

// OptimizerSettings are per-call or per-tenant overrides of selector defaults.
// Nil fields keep the default.
type OptimizerSettings struct {
	ForceStrategy       string `json:"forceStrategy,omitempty" yaml:"forceStrategy"`
	ComparisonMode      *bool  `json:"comparisonMode,omitempty" yaml:"comparisonMode"`
	ExternalMaxPackages *int   `json:"externalMaxPackages,omitempty" yaml:"externalMaxPackages"`
	SolverTimeBudgetMs  *int   `json:"solverTimeBudgetMs,omitempty" yaml:"solverTimeBudgetMs"`
}

// Merge overlays the non-empty fields of o onto s.
func (s OptimizerSettings) Merge(o OptimizerSettings) OptimizerSettings {
	if o.ForceStrategy != "" {
		s.ForceStrategy = o.ForceStrategy
	}
	if o.ComparisonMode != nil {
		s.ComparisonMode = o.ComparisonMode
	}
	if o.ExternalMaxPackages != nil {
		s.ExternalMaxPackages = o.ExternalMaxPackages
	}
	if o.SolverTimeBudgetMs != nil {
		s.SolverTimeBudgetMs = o.SolverTimeBudgetMs
	}
	return s
}

type OptimizeResponse struct {
	RouteID string      `json:"routeId,omitempty"`
	Route   RouteResult `json:"route"`
}

// RouteRecord is a persisted optimization result.
type RouteRecord struct {
	ID        string      `json:"id"`
	TenantID  string      `json:"tenantId"`
	PlanDate  string      `json:"planDate,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
	Route     RouteResult `json:"route"`
}

// PlanMetrics summarises one solver run.
type PlanMetrics struct {
	ID            string    `json:"id"`
	RouteID       string    `json:"routeId,omitempty"`
	PlanDate      string    `json:"planDate,omitempty"`
	Strategy      Strategy  `json:"strategy"`
	Iterations    int       `json:"iterations"`
	Improvements  int       `json:"improvements"`
	PenaltyRounds int       `json:"penaltyRounds"`
	InitialCost   float64   `json:"initialCost"`
	BestCost      float64   `json:"bestCost"`
	Violation     float64   `json:"violation"`
	DurationMs    int64     `json:"durationMs"`
	CreatedAt     time.Time `json:"createdAt"`
}
