package api

import (
	"net/http"
	"time"

	"routeopt/internal/buildinfo"
)

// DebugJSON reports build info and the non-secret runtime settings in s.Debug.
func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
	if !s.getPrincipal(r).IsAdmin() {
		writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"build":  buildinfo.Info(),
		"time":   time.Now().UTC().Format(time.RFC3339),
		"config": s.Debug,
	})
}
