package planner

import (
	"fmt"
	"strings"

	"routeopt/internal/apperror"
	"routeopt/internal/geo"
	"routeopt/internal/model"
)

// Normalize validates boundary packages once. Packages without a usable
// coordinate are excluded, not rejected. Warnings describe input that was
// accepted with a fallback interpretation.
func Normalize(in []model.PackageIn) (pkgs []model.Package, excluded []model.ExcludedPackage, warnings []string) {
	pkgs = make([]model.Package, 0, len(in))
	for i, raw := range in {
		id := strings.TrimSpace(raw.ID)
		ref := strings.TrimSpace(raw.ExternalRef)
		if id == "" {
			id = ref
		}
		if id == "" {
			id = fmt.Sprintf("pkg-%d", i+1)
		}

		if raw.Latitude == nil || raw.Longitude == nil {
			excluded = append(excluded, model.ExcludedPackage{ID: id, Reason: "missing coordinate"})
			continue
		}
		loc := geo.Point{Lat: *raw.Latitude, Lng: *raw.Longitude}
		if !loc.Valid() {
			excluded = append(excluded, model.ExcludedPackage{ID: id,
				Reason: fmt.Sprintf("invalid coordinate (%g, %g)", loc.Lat, loc.Lng)})
			continue
		}

		typ, ok := model.ParseDeliveryType(raw.DeliveryType)
		if !ok && strings.TrimSpace(raw.DeliveryType) != "" {
			warnings = append(warnings, fmt.Sprintf("%s: unknown delivery type %q, using standard", id, raw.DeliveryType))
		}
		p := model.Package{ID: id, ExternalRef: ref, Location: loc, Type: typ}

		if raw.TimeWindow != nil && typ == model.Scheduled {
			w, err := model.ParseTimeWindow(raw.TimeWindow.Start, raw.TimeWindow.End)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("%s: %s, window ignored", id, err))
			} else {
				p.Window = &w
			}
		}
		pkgs = append(pkgs, p)
	}
	return pkgs, excluded, warnings
}

// ResolveDepot uses def when the request names no depot.
func ResolveDepot(in *model.DepotIn, def model.Depot) (model.Depot, error) {
	if in == nil {
		return def, nil
	}
	d := model.Depot{Location: geo.Point{Lat: in.Latitude, Lng: in.Longitude}, Label: strings.TrimSpace(in.Label)}
	if !d.Location.Valid() {
		return model.Depot{}, apperror.Newf(apperror.CodeInvalidCoordinate,
			"depot coordinate (%g, %g) out of range", in.Latitude, in.Longitude).WithField("depot")
	}
	if d.Label == "" {
		d.Label = def.Label
	}
	return d, nil
}

// ValidateSettings rejects settings a tenant cannot store.
func ValidateSettings(s model.OptimizerSettings) error {
	if s.ForceStrategy != "" {
		if _, ok := model.ParseStrategy(s.ForceStrategy); !ok {
			return apperror.Newf(apperror.CodeInvalidArgument, "unknown strategy %q", s.ForceStrategy).WithField("forceStrategy")
		}
	}
	if s.ExternalMaxPackages != nil && *s.ExternalMaxPackages < 0 {
		return apperror.New(apperror.CodeInvalidArgument, "must not be negative").WithField("externalMaxPackages")
	}
	if s.SolverTimeBudgetMs != nil && *s.SolverTimeBudgetMs < 0 {
		return apperror.New(apperror.CodeInvalidArgument, "must not be negative").WithField("solverTimeBudgetMs")
	}
	return nil
}
