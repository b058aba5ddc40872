package opt

import (
	"cmp"
	"slices"

	"routeopt/internal/geo"
	"routeopt/internal/model"
)

// Balance reorders one cluster for delivery. The first express package, if
// any, moves to the front and everything else follows by distance from it,
// ties keeping cluster order. Without an express package the scheduled
// packages come first, then the standard ones, each in cluster order.
func Balance(c Cluster) []model.Package {
	if len(c.Packages) == 0 {
		return nil
	}
	front := slices.IndexFunc(c.Packages, func(p model.Package) bool { return p.Type == model.Express })
	if front < 0 {
		return scheduledFirst(c.Packages)
	}
	head := c.Packages[front]
	rest := removeAt(c.Packages, front)
	slices.SortStableFunc(rest, func(a, b model.Package) int {
		return cmp.Compare(geo.Haversine(head.Location, a.Location), geo.Haversine(head.Location, b.Location))
	})
	return append([]model.Package{head}, rest...)
}

func scheduledFirst(pkgs []model.Package) []model.Package {
	out := make([]model.Package, 0, len(pkgs))
	for _, p := range pkgs {
		if p.Type == model.Scheduled {
			out = append(out, p)
		}
	}
	for _, p := range pkgs {
		if p.Type != model.Scheduled {
			out = append(out, p)
		}
	}
	return out
}

// BalanceAll returns clusters with balanced package order. Centroids are unchanged.
func BalanceAll(clusters []Cluster) []Cluster {
	out := make([]Cluster, len(clusters))
	for i, c := range clusters {
		c.Packages = Balance(c)
		out[i] = c
	}
	return out
}
