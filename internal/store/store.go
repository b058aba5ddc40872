package store

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"routeopt/internal/model"
)

// Store persists optimization history and per-tenant optimizer settings.
type Store interface {
	// Routes
	SaveRoute(ctx context.Context, rec model.RouteRecord) (model.RouteRecord, error)
	GetRoute(ctx context.Context, tenantID, routeID string) (model.RouteRecord, error)
	// ListRoutes pages newest first. An empty next cursor means the last page.
	ListRoutes(ctx context.Context, tenantID, cursor string, limit int) ([]model.RouteRecord, string, error)

	// Solver plan metrics
	SavePlanMetrics(ctx context.Context, tenantID string, m model.PlanMetrics) error
	ListPlanMetrics(ctx context.Context, tenantID, planDate string) ([]model.PlanMetrics, error)

	// Optimizer config per tenant
	GetOptimizerSettings(ctx context.Context, tenantID string) (model.OptimizerSettings, error)
	SaveOptimizerSettings(ctx context.Context, tenantID string, s model.OptimizerSettings) error

	Ping(ctx context.Context) error
	Close() error
}

var (
	ErrNotFound  = errors.New("not found")
	ErrBadCursor = errors.New("bad cursor")
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	return min(limit, maxLimit)
}

// encodeCursor makes an opaque keyset cursor from the last row of a page.
func encodeCursor(createdAt time.Time, id string) string {
	raw := fmt.Sprintf("%d|%s", createdAt.UTC().UnixNano(), id)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeCursor(cursor string) (time.Time, string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("%w: %v", ErrBadCursor, err)
	}
	ts, id, ok := strings.Cut(string(raw), "|")
	if !ok || id == "" {
		return time.Time{}, "", ErrBadCursor
	}
	var nanos int64
	if _, err := fmt.Sscanf(ts, "%d", &nanos); err != nil {
		return time.Time{}, "", fmt.Errorf("%w: %v", ErrBadCursor, err)
	}
	return time.Unix(0, nanos).UTC(), id, nil
}
