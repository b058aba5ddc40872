package api

import (
	"context"
	"log/slog"
	"net/http"

	"routeopt/internal/logger"
	"routeopt/internal/planner"
)

type Server struct {
	Planner *planner.Planner
	Broker  EventBroker
	// Debug is extra, non-secret state served by DebugJSON.
	Debug map[string]any

	log *slog.Logger
}

// NewServer wires handlers over p. A nil broker gets the in-memory one.
func NewServer(p *planner.Planner, b EventBroker) *Server {
	if b == nil {
		b = NewBroker()
	}
	return &Server{Planner: p, Broker: b, log: logger.WithComponent("api")}
}

func (s *Server) withTenant(r *http.Request) (context.Context, string) {
	tenant := s.getPrincipal(r).Tenant
	ctx := context.WithValue(r.Context(), ctxKeyTenant{}, tenant)
	return ctx, tenant
}

type ctxKeyTenant struct{}

// TenantFrom returns the tenant stored by withTenant, if any.
func TenantFrom(ctx context.Context) string {
	t, _ := ctx.Value(ctxKeyTenant{}).(string)
	return t
}
