package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"routeopt/internal/model"
)

func TestMemoryRoutesPageNewestFirst(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_, err := m.SaveRoute(ctx, model.RouteRecord{
			ID: fmt.Sprintf("r%d", i), TenantID: "t1", CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}
	_, err := m.SaveRoute(ctx, model.RouteRecord{ID: "other", TenantID: "t2"})
	require.NoError(t, err)

	var seen []string
	cursor := ""
	for pages := 0; pages < 10; pages++ {
		items, next, err := m.ListRoutes(ctx, "t1", cursor, 2)
		require.NoError(t, err)
		for _, it := range items {
			seen = append(seen, it.ID)
		}
		if next == "" {
			break
		}
		cursor = next
	}
	assert.Equal(t, []string{"r4", "r3", "r2", "r1", "r0"}, seen)
}

func TestMemoryExactPageHasNoCursor(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	for i := 0; i < 2; i++ {
		_, err := m.SaveRoute(ctx, model.RouteRecord{TenantID: "t1"})
		require.NoError(t, err)
	}
	items, next, err := m.ListRoutes(ctx, "t1", "", 2)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Empty(t, next)
}

func TestMemoryGetRouteIsTenantScoped(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	rec, err := m.SaveRoute(ctx, model.RouteRecord{TenantID: "t1", Route: model.RouteResult{PackageCount: 3}})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())

	got, err := m.GetRoute(ctx, "t1", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Route.PackageCount)

	_, err = m.GetRoute(ctx, "t2", rec.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.GetRoute(ctx, "t1", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryPlanMetricsAndSettings(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.SavePlanMetrics(ctx, "t1", model.PlanMetrics{PlanDate: "2025-03-10", Iterations: 4}))
	require.NoError(t, m.SavePlanMetrics(ctx, "t1", model.PlanMetrics{PlanDate: "2025-03-11", Iterations: 9}))

	all, err := m.ListPlanMetrics(ctx, "t1", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
	day, err := m.ListPlanMetrics(ctx, "t1", "2025-03-11")
	require.NoError(t, err)
	require.Len(t, day, 1)
	assert.Equal(t, 9, day[0].Iterations)
	assert.NotEmpty(t, day[0].ID)

	s, err := m.GetOptimizerSettings(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, model.OptimizerSettings{}, s)

	limit := 30
	require.NoError(t, m.SaveOptimizerSettings(ctx, "t1", model.OptimizerSettings{ExternalMaxPackages: &limit}))
	s, err = m.GetOptimizerSettings(ctx, "t1")
	require.NoError(t, err)
	require.NotNil(t, s.ExternalMaxPackages)
	assert.Equal(t, 30, *s.ExternalMaxPackages)
}

func TestCursorRoundTrip(t *testing.T) {
	at := time.Date(2025, 3, 10, 9, 30, 15, 123, time.UTC)
	gotAt, gotID, err := decodeCursor(encodeCursor(at, "abc"))
	require.NoError(t, err)
	assert.True(t, at.Equal(gotAt))
	assert.Equal(t, "abc", gotID)

	_, _, err = decodeCursor("%%%")
	assert.ErrorIs(t, err, ErrBadCursor)

	_, _, err = NewMemory().ListRoutes(context.Background(), "t1", "!!", 10)
	assert.ErrorIs(t, err, ErrBadCursor)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, defaultLimit, clampLimit(0))
	assert.Equal(t, 10, clampLimit(10))
	assert.Equal(t, maxLimit, clampLimit(10_000))
}
