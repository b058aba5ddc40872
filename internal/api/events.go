package api

import (
	"context"
	"time"

	"routeopt/internal/model"
	"routeopt/internal/webhooks"
)

// RoutePublisher fans finished routes out to the broker and, when
// configured, to the webhook publisher.
type RoutePublisher struct {
	Broker EventBroker
	Hooks  *webhooks.Publisher
}

func (p RoutePublisher) PublishRoute(ctx context.Context, tenantID string, rec model.RouteRecord) {
	data := routeEventData(rec)
	if p.Broker != nil {
		p.Broker.Publish(tenantID, Event{Type: EventRouteOptimized, Data: data})
	}
	if p.Hooks.Enabled() {
		p.Hooks.Emit(ctx, tenantID, EventRouteOptimized, data)
	}
}

func routeEventData(rec model.RouteRecord) map[string]any {
	r := rec.Route
	d := map[string]any{
		"routeId":              rec.ID,
		"strategyUsed":         r.StrategyUsed,
		"packageCount":         r.PackageCount,
		"totalDistanceKm":      r.TotalDistanceKm,
		"totalDurationMinutes": r.TotalDurationMinutes,
		"lateStops":            r.LateStops,
		"cached":               r.Cached,
		"createdAt":            rec.CreatedAt.UTC().Format(time.RFC3339),
	}
	if rec.PlanDate != "" {
		d["planDate"] = rec.PlanDate
	}
	if r.FallbackReason != "" {
		d["fallbackReason"] = r.FallbackReason
	}
	if n := len(r.Excluded); n > 0 {
		d["excludedCount"] = n
	}
	return d
}
