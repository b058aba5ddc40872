package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"routeopt/internal/model"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set.
type Memory struct {
	mu     sync.Mutex
	routes map[string]model.RouteRecord      // id -> route
	byTen  map[string][]string               // tenant -> route ids, oldest first
	planMx map[string][]model.PlanMetrics     // tenant -> metrics
	optCfg map[string]model.OptimizerSettings // tenant -> settings
	now    func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		routes: map[string]model.RouteRecord{},
		byTen:  map[string][]string{},
		planMx: map[string][]model.PlanMetrics{},
		optCfg: map[string]model.OptimizerSettings{},
		now:    time.Now,
	}
}

func (m *Memory) SaveRoute(ctx context.Context, rec model.RouteRecord) (model.RouteRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = m.now().UTC()
	}
	if _, exists := m.routes[rec.ID]; !exists {
		m.byTen[rec.TenantID] = append(m.byTen[rec.TenantID], rec.ID)
	}
	m.routes[rec.ID] = rec
	return rec, nil
}

func (m *Memory) GetRoute(ctx context.Context, tenantID, routeID string) (model.RouteRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.routes[routeID]
	if !ok || r.TenantID != tenantID {
		return model.RouteRecord{}, ErrNotFound
	}
	return r, nil
}

func (m *Memory) ListRoutes(ctx context.Context, tenantID, cursor string, limit int) ([]model.RouteRecord, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	limit = clampLimit(limit)
	ids := m.byTen[tenantID]
	start := len(ids) - 1
	if cursor != "" {
		_, last, err := decodeCursor(cursor)
		if err != nil {
			return nil, "", err
		}
		for i := len(ids) - 1; i >= 0; i-- {
			if ids[i] == last {
				start = i - 1
				break
			}
		}
	}
	out := []model.RouteRecord{}
	for i := start; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.routes[ids[i]])
	}
	next := ""
	if len(out) == limit && start-limit >= 0 {
		last := out[len(out)-1]
		next = encodeCursor(last.CreatedAt, last.ID)
	}
	return out, next, nil
}

func (m *Memory) SavePlanMetrics(ctx context.Context, tenantID string, pm model.PlanMetrics) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if pm.ID == "" {
		pm.ID = uuid.New().String()
	}
	if pm.CreatedAt.IsZero() {
		pm.CreatedAt = m.now().UTC()
	}
	m.planMx[tenantID] = append(m.planMx[tenantID], pm)
	return nil
}

func (m *Memory) ListPlanMetrics(ctx context.Context, tenantID, planDate string) ([]model.PlanMetrics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.PlanMetrics{}
	for _, pm := range m.planMx[tenantID] {
		if planDate == "" || pm.PlanDate == planDate {
			out = append(out, pm)
		}
	}
	return out, nil
}

func (m *Memory) GetOptimizerSettings(ctx context.Context, tenantID string) (model.OptimizerSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.optCfg[tenantID], nil
}

func (m *Memory) SaveOptimizerSettings(ctx context.Context, tenantID string, s model.OptimizerSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.optCfg[tenantID] = s
	return nil
}

func (m *Memory) Ping(ctx context.Context) error { return nil }

func (m *Memory) Close() error { return nil }
