package opt

import (
	"routeopt/internal/geo"
	"routeopt/internal/model"
)

// Cluster is a small group of nearby packages. IDs start at 1 in build order.
type Cluster struct {
	ID       int
	Packages []model.Package
	Centroid geo.Point
}

func newCluster(id int, pkgs []model.Package) Cluster {
	pts := make([]geo.Point, len(pkgs))
	for i, p := range pkgs {
		pts[i] = p.Location
	}
	return Cluster{ID: id, Packages: pkgs, Centroid: geo.Centroid(pts)}
}

// Last is the final package of the cluster in its current order.
func (c Cluster) Last() model.Package { return c.Packages[len(c.Packages)-1] }

type ClusterOptions struct {
	RadiusKm float64
	MaxSize  int
}

func DefaultClusterOptions() ClusterOptions {
	return ClusterOptions{RadiusKm: 2.0, MaxSize: 4}
}

func (o ClusterOptions) withDefaults() ClusterOptions {
	d := DefaultClusterOptions()
	if o.RadiusKm <= 0 {
		o.RadiusKm = d.RadiusKm
	}
	if o.MaxSize < 1 {
		o.MaxSize = d.MaxSize
	}
	return o
}

// BuildClusters groups pkgs by seeded growth. The first seed is the package
// nearest the depot, each later seed the package nearest the previous
// cluster's centroid. A cluster absorbs every remaining package within
// RadiusKm of any member; oversized clusters are halved until they fit and
// the overflow goes back to the pool.
func BuildClusters(pkgs []model.Package, depot model.Depot, o ClusterOptions) []Cluster {
	o = o.withDefaults()
	remaining := append([]model.Package(nil), pkgs...)
	var clusters []Cluster
	anchor := depot.Location

	for len(remaining) > 0 {
		si := nearestTo(remaining, anchor)
		members := []model.Package{remaining[si]}
		remaining = removeAt(remaining, si)

		for grew := true; grew; {
			grew = false
			kept := make([]model.Package, 0, len(remaining))
			for _, p := range remaining {
				if withinRadius(p, members, o.RadiusKm) {
					members = append(members, p)
					grew = true
					continue
				}
				kept = append(kept, p)
			}
			remaining = kept
		}

		for len(members) > o.MaxSize {
			mid := len(members) / 2
			remaining = append(remaining, members[mid:]...)
			members = members[:mid:mid]
		}

		c := newCluster(len(clusters)+1, members)
		clusters = append(clusters, c)
		anchor = c.Centroid
	}
	return clusters
}

// nearestTo returns the index of the package closest to pt; ties keep the earliest.
func nearestTo(pkgs []model.Package, pt geo.Point) int {
	best, bestD := 0, geo.Haversine(pkgs[0].Location, pt)
	for i := 1; i < len(pkgs); i++ {
		if d := geo.Haversine(pkgs[i].Location, pt); d < bestD {
			best, bestD = i, d
		}
	}
	return best
}

func withinRadius(p model.Package, members []model.Package, radiusKm float64) bool {
	for _, m := range members {
		if geo.Haversine(p.Location, m.Location) <= radiusKm {
			return true
		}
	}
	return false
}

func removeAt(pkgs []model.Package, i int) []model.Package {
	out := make([]model.Package, 0, len(pkgs)-1)
	out = append(out, pkgs[:i]...)
	return append(out, pkgs[i+1:]...)
}
