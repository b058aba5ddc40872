package opt

import (
	"time"
)

// guide holds the guided-local-search edge penalties for one solve.
type guide struct {
	p       problem
	penalty [][]int
	lambda  float64
}

func newGuide(p problem) *guide {
	n := len(p.nodes)
	g := &guide{p: p, penalty: make([][]int, n)}
	for i := range g.penalty {
		g.penalty[i] = make([]int, n)
	}
	return g
}

// trueCost is distance plus weighted window violation.
func (g *guide) trueCost(s schedule) float64 {
	return float64(s.distance) + s.violation
}

// augmented adds the edge penalties of tour to its true cost.
func (g *guide) augmented(tour []int) float64 {
	s := g.p.evaluate(tour)
	c := g.trueCost(s)
	if g.lambda == 0 {
		return c
	}
	pen, prev := 0, 0
	for _, i := range tour {
		pen += g.penalty[prev][i]
		prev = i
	}
	pen += g.penalty[prev][0]
	return c + g.lambda*float64(pen)
}

// penalize raises the penalty of the tour edges with maximal utility
// dist/(1+penalty). It returns the number of edges penalized.
func (g *guide) penalize(tour []int) int {
	type edge struct{ a, b int }
	edges := make([]edge, 0, len(tour)+1)
	prev := 0
	for _, i := range tour {
		edges = append(edges, edge{prev, i})
		prev = i
	}
	edges = append(edges, edge{prev, 0})

	best := -1.0
	var picked []edge
	for _, e := range edges {
		u := float64(g.p.dist[e.a][e.b]) / float64(1+g.penalty[e.a][e.b])
		switch {
		case u > best+1e-9:
			best = u
			picked = []edge{e}
		case u > best-1e-9:
			picked = append(picked, e)
		}
	}
	for _, e := range picked {
		g.penalty[e.a][e.b]++
		g.penalty[e.b][e.a]++
	}
	return len(picked)
}

// descend applies first-improvement 2-opt and or-opt moves on the augmented
// cost until no move improves or the deadline passes.
func (g *guide) descend(tour []int, deadline time.Time) []int {
	cur := append([]int(nil), tour...)
	curCost := g.augmented(cur)
	for improved := true; improved; {
		improved = false
		if time.Now().After(deadline) {
			return cur
		}
		if cand, c, ok := g.bestTwoOpt(cur, curCost, deadline); ok {
			cur, curCost, improved = cand, c, true
			continue
		}
		if cand, c, ok := g.bestRelocate(cur, curCost, deadline); ok {
			cur, curCost, improved = cand, c, true
		}
	}
	return cur
}

func (g *guide) bestTwoOpt(tour []int, cost float64, deadline time.Time) ([]int, float64, bool) {
	n := len(tour)
	for i := 0; i < n-1; i++ {
		if time.Now().After(deadline) {
			return nil, 0, false
		}
		for k := i + 1; k < n; k++ {
			cand := twoOptSwap(tour, i, k)
			if c := g.augmented(cand); c+1e-6 < cost {
				return cand, c, true
			}
		}
	}
	return nil, 0, false
}

// bestRelocate moves segments of one to three nodes to another position.
func (g *guide) bestRelocate(tour []int, cost float64, deadline time.Time) ([]int, float64, bool) {
	n := len(tour)
	for seg := 1; seg <= 3 && seg < n; seg++ {
		for i := 0; i+seg <= n; i++ {
			if time.Now().After(deadline) {
				return nil, 0, false
			}
			for j := 0; j <= n-seg; j++ {
				if j == i {
					continue
				}
				cand := relocate(tour, i, seg, j)
				if c := g.augmented(cand); c+1e-6 < cost {
					return cand, c, true
				}
			}
		}
	}
	return nil, 0, false
}

// twoOptSwap reverses ord[i..k].
func twoOptSwap(ord []int, i, k int) []int {
	out := make([]int, len(ord))
	copy(out, ord[:i])
	pos := i
	for j := k; j >= i; j-- {
		out[pos] = ord[j]
		pos++
	}
	copy(out[pos:], ord[k+1:])
	return out
}

// relocate removes ord[i:i+seg] and reinserts it so it starts at index j of the result.
func relocate(ord []int, i, seg, j int) []int {
	moved := ord[i : i+seg]
	rest := make([]int, 0, len(ord)-seg)
	rest = append(rest, ord[:i]...)
	rest = append(rest, ord[i+seg:]...)
	out := make([]int, 0, len(ord))
	out = append(out, rest[:j]...)
	out = append(out, moved...)
	return append(out, rest[j:]...)
}
