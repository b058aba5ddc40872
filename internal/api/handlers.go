package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"routeopt/internal/apperror"
	"routeopt/internal/model"
)

// OptimizeHandler handles POST /v1/optimize
func (s *Server) OptimizeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	p := s.getPrincipal(r)
	if !p.CanPlan() {
		writeProblem(w, http.StatusForbidden, "Forbidden", "dispatcher or admin required", r.URL.Path)
		return
	}
	var req model.OptimizeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "Invalid JSON", err)
		return
	}
	if err := validateOptimizeRequest(&req); err != nil {
		writeError(w, r, "Invalid optimize request", err)
		return
	}
	ctx, tenant := s.withTenant(r)
	if req.TenantID != "" && req.TenantID != tenant {
		writeProblem(w, http.StatusForbidden, "Forbidden", "tenantId does not match caller", r.URL.Path)
		return
	}
	resp, err := s.Planner.Plan(ctx, tenant, req)
	if err != nil {
		writeError(w, r, "Optimization failed", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// OptimizerStatusHandler handles GET /v1/optimizer/status
func (s *Server) OptimizerStatusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ctx, tenant := s.withTenant(r)
	st, err := s.Planner.Status(ctx, tenant)
	if err != nil {
		writeError(w, r, "Status unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// OptimizerConfigHandler reads (GET) or replaces (PUT, admin) the tenant's
// optimizer settings.
func (s *Server) OptimizerConfigHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/optimizer/config" {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	ctx, tenant := s.withTenant(r)
	switch r.Method {
	case http.MethodGet:
		cfg, err := s.Planner.Settings(ctx, tenant)
		if err != nil {
			writeError(w, r, "Load optimizer config failed", err)
			return
		}
		writeJSON(w, http.StatusOK, cfg)
	case http.MethodPut:
		if !s.getPrincipal(r).IsAdmin() {
			writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
			return
		}
		var cfg model.OptimizerSettings
		if err := decodeJSON(w, r, &cfg); err != nil {
			writeError(w, r, "Invalid JSON", err)
			return
		}
		if err := s.Planner.SaveSettings(ctx, tenant, cfg); err != nil {
			writeError(w, r, "Save optimizer config failed", err)
			return
		}
		writeJSON(w, http.StatusOK, cfg)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// RoutesIndexHandler handles GET /v1/routes?cursor=&limit=
func (s *Server) RoutesIndexHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ctx, tenant := s.withTenant(r)
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be a non-negative integer", r.URL.Path)
			return
		}
		limit = n
	}
	items, next, err := s.Planner.Routes(ctx, tenant, r.URL.Query().Get("cursor"), limit)
	if err != nil {
		writeError(w, r, "List routes failed", err)
		return
	}
	if items == nil {
		items = []model.RouteRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
}

// RouteByIDHandler handles GET /v1/routes/{id}
func (s *Server) RouteByIDHandler(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/routes/")
	if id == "" || strings.Contains(id, "/") {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ctx, tenant := s.withTenant(r)
	rec, err := s.Planner.Route(ctx, tenant, id)
	if err != nil {
		writeError(w, r, "Route lookup failed", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// PlanMetricsHandler handles GET /v1/admin/plan-metrics?planDate=
func (s *Server) PlanMetricsHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/admin/plan-metrics" || r.Method != http.MethodGet {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	p := s.getPrincipal(r)
	if !p.IsAdmin() {
		writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
		return
	}
	planDate := r.URL.Query().Get("planDate")
	if planDate != "" {
		if _, err := time.Parse(time.DateOnly, planDate); err != nil {
			writeError(w, r, "Invalid planDate",
				apperror.New(apperror.CodeInvalidArgument, "want YYYY-MM-DD").WithField("planDate"))
			return
		}
	}
	items, err := s.Planner.PlanMetrics(r.Context(), p.Tenant, planDate)
	if err != nil {
		writeError(w, r, "List plan metrics failed", err)
		return
	}
	if items == nil {
		items = []model.PlanMetrics{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ReadyHandler pings the store.
func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
	defer cancel()
	if err := s.Planner.Store().Ping(ctx); err != nil {
		writeProblem(w, http.StatusServiceUnavailable, "Not Ready", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
