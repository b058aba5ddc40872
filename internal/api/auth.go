// Package api implements HTTP handlers and helpers for the route optimization service.
package api

import (
	"net/http"
	"strings"
)

const defaultTenant = "t_demo"

type Principal struct {
	Tenant string
	Role   string // admin, dispatcher, viewer
}

// getPrincipal reads tenant and role from request headers. Identity is
// expected to be asserted by the fronting gateway.
func (s *Server) getPrincipal(r *http.Request) Principal {
	tenant := strings.TrimSpace(r.Header.Get("X-Tenant-Id"))
	role := strings.ToLower(strings.TrimSpace(r.Header.Get("X-Role")))
	if tenant == "" {
		tenant = defaultTenant
	}
	if role == "" {
		role = "admin"
	}
	return Principal{Tenant: tenant, Role: role}
}

// IsAdmin reports whether the principal has the admin role.
func (p Principal) IsAdmin() bool { return p.Role == "admin" }

// CanPlan reports whether the principal may submit optimizations.
func (p Principal) CanPlan() bool { return p.IsAdmin() || p.Role == "dispatcher" }
