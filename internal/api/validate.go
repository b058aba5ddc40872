package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"routeopt/internal/apperror"
	"routeopt/internal/model"
)

const (
	maxBodyBytes       = 8 << 20
	maxRequestPackages = 5000
)

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperror.Wrap(err, apperror.CodeInvalidArgument, "invalid JSON")
	}
	return nil
}

func validateOptimizeRequest(req *model.OptimizeRequest) error {
	if len(req.Packages) > maxRequestPackages {
		return apperror.New(apperror.CodeInvalidArgument, fmt.Sprintf("at most %d packages per request", maxRequestPackages)).
			WithField("packages")
	}
	seen := make(map[string]int, len(req.Packages))
	for i, p := range req.Packages {
		id := strings.TrimSpace(p.ID)
		if id == "" {
			continue
		}
		if j, dup := seen[id]; dup {
			return apperror.Newf(apperror.CodeInvalidArgument, "duplicate package id %q (indexes %d and %d)", id, j, i).
				WithField(fmt.Sprintf("packages[%d].id", i))
		}
		seen[id] = i
	}
	return nil
}
