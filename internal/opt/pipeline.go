package opt

import (
	"routeopt/internal/model"
)

// Heuristic runs cluster -> balance -> order -> construct. It never fails.
type Heuristic struct {
	Cluster   ClusterOptions
	Order     OrderOptions
	Construct ConstructOptions
}

func DefaultHeuristic() Heuristic {
	return Heuristic{
		Cluster:   DefaultClusterOptions(),
		Order:     DefaultOrderOptions(),
		Construct: DefaultConstructOptions(),
	}
}

func (h Heuristic) Run(pkgs []model.Package, depot model.Depot) model.RouteResult {
	if len(pkgs) == 0 {
		return emptyResult(model.StrategyHeuristic)
	}
	clusters := BuildClusters(pkgs, depot, h.Cluster)
	ordered := OrderClusters(BalanceAll(clusters), depot, h.Order)
	return Construct(depot, Flatten(ordered), h.Construct)
}

// Flatten lists the packages of ordered clusters as visits.
func Flatten(clusters []Cluster) []Visit {
	var out []Visit
	for _, c := range clusters {
		for _, p := range c.Packages {
			out = append(out, Visit{Package: p, ClusterID: c.ID})
		}
	}
	return out
}
