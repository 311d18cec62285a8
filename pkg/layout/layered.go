// Package layout places graph nodes in top-to-bottom layers.
//
// Positions depend only on node order and edges, never on the current
// positions, so laying out an unchanged graph twice gives the same result.
package layout

import (
	"math"
	"sort"
	"strconv"

	"github.com/aretw0/keel/pkg/domain"
	"github.com/nulab/autog"
	"github.com/nulab/autog/graph"
)

// Default box and spacing, in canvas units.
const (
	NodeWidth  = 240
	NodeHeight = 150
	RankSep    = 50
	NodeSep    = 50
)

type config struct {
	width, height    float64
	rankSep, nodeSep float64
}

// Option configures Layered.
type Option func(*config)

// WithNodeSize overrides the uniform node box.
func WithNodeSize(width, height float64) Option {
	return func(c *config) {
		c.width, c.height = width, height
	}
}

// WithSpacing overrides the gap between ranks and between nodes of a rank.
func WithSpacing(rankSep, nodeSep float64) Option {
	return func(c *config) {
		c.rankSep, c.nodeSep = rankSep, nodeSep
	}
}

// Layered returns a copy of nodes with new positions. Edges with a missing
// endpoint and self loops are ignored; cycles are broken before ranking.
// Each connected component is laid out on its own and components are placed
// side by side in input order. The returned positions are top-left origins of
// each box, and the whole drawing starts at (0, 0).
func Layered(nodes []domain.GraphNode, edges []domain.GraphEdge, opts ...Option) []domain.GraphNode {
	cfg := config{width: NodeWidth, height: NodeHeight, rankSep: RankSep, nodeSep: NodeSep}
	for _, opt := range opts {
		opt(&cfg)
	}

	out := make([]domain.GraphNode, len(nodes))
	copy(out, nodes)
	if len(nodes) == 0 {
		return out
	}

	g := newDigraph(nodes, edges)
	g.breakCycles()

	left := 0.0
	for _, comp := range g.components() {
		placed := cfg.place(g, comp)
		right := 0.0
		for v, p := range placed {
			out[v].Position = domain.Position{X: left + p.X, Y: p.Y}
			right = math.Max(right, p.X+cfg.width)
		}
		left += right + cfg.nodeSep
	}
	return out
}

// place lays out one component and returns positions translated so the
// component's top-left corner is at the origin. Layers are snapped to a
// fixed pitch of one box height plus the rank gap.
func (cfg config) place(g *digraph, comp []int) map[int]domain.Position {
	if len(comp) == 1 {
		return map[int]domain.Position{comp[0]: {}}
	}

	var src graph.EdgeSlice
	for _, v := range comp {
		for _, w := range g.succ[v] {
			src = append(src, []string{strconv.Itoa(v), strconv.Itoa(w)})
		}
	}

	drawn := autog.Layout(src,
		autog.WithNodeFixedSize(cfg.width, cfg.height),
		autog.WithLayerSpacing(cfg.rankSep),
		autog.WithNodeSpacing(cfg.nodeSep),
	)

	raw := make(map[int]domain.Position, len(comp))
	minX := math.Inf(1)
	var ys []float64
	for _, n := range drawn.Nodes {
		v, err := strconv.Atoi(n.ID)
		if err != nil || v < 0 || v >= g.n {
			continue
		}
		raw[v] = domain.Position{X: n.X, Y: n.Y}
		minX = math.Min(minX, n.X)
		ys = append(ys, n.Y)
	}
	sort.Float64s(ys)
	rank := make(map[float64]int, len(ys))
	for _, y := range ys {
		if _, ok := rank[y]; !ok {
			rank[y] = len(rank)
		}
	}

	placed := make(map[int]domain.Position, len(raw))
	for v, p := range raw {
		placed[v] = domain.Position{
			X: p.X - minX,
			Y: float64(rank[p.Y]) * (cfg.height + cfg.rankSep),
		}
	}
	return placed
}

// digraph indexes nodes by their position in the input slice.
type digraph struct {
	n    int
	succ [][]int
	pred [][]int
}

func newDigraph(nodes []domain.GraphNode, edges []domain.GraphEdge) *digraph {
	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		if _, dup := index[n.ID]; !dup {
			index[n.ID] = i
		}
	}
	g := &digraph{
		n:    len(nodes),
		succ: make([][]int, len(nodes)),
		pred: make([][]int, len(nodes)),
	}
	seen := make(map[[2]int]bool)
	for _, e := range edges {
		s, ok := index[e.Source]
		if !ok {
			continue
		}
		t, ok := index[e.Target]
		if !ok || s == t || seen[[2]int{s, t}] {
			continue
		}
		seen[[2]int{s, t}] = true
		g.succ[s] = append(g.succ[s], t)
		g.pred[t] = append(g.pred[t], s)
	}
	for v := 0; v < g.n; v++ {
		sort.Ints(g.succ[v])
		sort.Ints(g.pred[v])
	}
	return g
}

// breakCycles reverses every back edge found by a DFS in node order.
func (g *digraph) breakCycles() {
	const (
		white = iota
		grey
		black
	)
	color := make([]int, g.n)
	var back [][2]int

	var visit func(v int)
	visit = func(v int) {
		color[v] = grey
		for _, w := range g.succ[v] {
			switch color[w] {
			case white:
				visit(w)
			case grey:
				back = append(back, [2]int{v, w})
			}
		}
		color[v] = black
	}
	for v := 0; v < g.n; v++ {
		if color[v] == white {
			visit(v)
		}
	}

	for _, e := range back {
		g.remove(e[0], e[1])
		if !contains(g.succ[e[1]], e[0]) {
			g.succ[e[1]] = append(g.succ[e[1]], e[0])
			g.pred[e[0]] = append(g.pred[e[0]], e[1])
		}
	}
}

// components groups nodes into weakly connected components, ordered by
// their first node.
func (g *digraph) components() [][]int {
	seen := make([]bool, g.n)
	var out [][]int
	for start := 0; start < g.n; start++ {
		if seen[start] {
			continue
		}
		seen[start] = true
		comp := []int{start}
		for i := 0; i < len(comp); i++ {
			v := comp[i]
			for _, adj := range [][]int{g.succ[v], g.pred[v]} {
				for _, w := range adj {
					if !seen[w] {
						seen[w] = true
						comp = append(comp, w)
					}
				}
			}
		}
		sort.Ints(comp)
		out = append(out, comp)
	}
	return out
}

func (g *digraph) remove(s, t int) {
	g.succ[s] = without(g.succ[s], t)
	g.pred[t] = without(g.pred[t], s)
}

func contains(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

func without(s []int, v int) []int {
	out := s[:0]
	for _, x := range s {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}
