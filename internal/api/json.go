package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"routeopt/internal/apperror"
	"routeopt/internal/logger"
)

// Problem represents an RFC7807 problem details response body.
type Problem struct {
	Type     string         `json:"type"`
	Title    string         `json:"title"`
	Status   int            `json:"status"`
	Detail   string         `json:"detail,omitempty"`
	Instance string         `json:"instance,omitempty"`
	Code     string         `json:"code,omitempty"`
	Field    string         `json:"field,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, status int, title, detail, instance string) {
	writeJSON(w, status, Problem{
		Type:     "about:blank",
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: instance,
	})
}

// writeError renders err as a problem, using the apperror code when present.
func writeError(w http.ResponseWriter, r *http.Request, title string, err error) {
	code := apperror.CodeOf(err)
	status := apperror.HTTPStatus(code)
	p := Problem{
		Type:     "urn:routeopt:error:" + string(code),
		Title:    title,
		Status:   status,
		Detail:   apperror.ReasonOf(err),
		Instance: r.URL.Path,
		Code:     string(code),
	}
	var ae *apperror.Error
	if errors.As(err, &ae) {
		p.Field = ae.Field
		p.Details = ae.Details
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "path", r.URL.Path, "code", code, "err", err)
	}
	writeJSON(w, status, p)
}
