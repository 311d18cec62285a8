package layout

import (
	"fmt"
	"math"
	"testing"

	"github.com/aretw0/keel/pkg/domain"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nodes(ids ...string) []domain.GraphNode {
	out := make([]domain.GraphNode, len(ids))
	for i, id := range ids {
		out[i] = domain.GraphNode{ID: id, Position: domain.Position{X: 999, Y: -3}}
	}
	return out
}

func edge(s, t string) domain.GraphEdge {
	return domain.GraphEdge{ID: s + "-" + t, Source: s, Target: t}
}

func positions(ns []domain.GraphNode) map[string]domain.Position {
	out := make(map[string]domain.Position, len(ns))
	for _, n := range ns {
		out[n.ID] = n.Position
	}
	return out
}

func TestLayered_Chain(t *testing.T) {
	got := positions(Layered(nodes("A", "B", "C"), []domain.GraphEdge{edge("A", "B"), edge("B", "C")}))

	assert.Equal(t, domain.Position{X: 0, Y: 0}, got["A"])
	assert.Equal(t, domain.Position{X: 0, Y: 200}, got["B"])
	assert.Equal(t, domain.Position{X: 0, Y: 400}, got["C"])
}

func TestLayered_Diamond(t *testing.T) {
	got := positions(Layered(nodes("A", "B", "C", "D"), []domain.GraphEdge{
		edge("A", "B"), edge("A", "C"), edge("B", "D"), edge("C", "D"),
	}))

	assert.Equal(t, 0.0, got["A"].Y)
	assert.Equal(t, 200.0, got["B"].Y)
	assert.Equal(t, 200.0, got["C"].Y)
	assert.Equal(t, 400.0, got["D"].Y)
	assert.GreaterOrEqual(t, math.Abs(got["B"].X-got["C"].X), float64(NodeWidth+NodeSep), "siblings do not overlap")
	assert.Equal(t, 0.0, math.Min(got["B"].X, got["C"].X), "drawing starts at the left edge")
}

func TestLayered_ComponentsSideBySide(t *testing.T) {
	got := positions(Layered(nodes("A", "B", "lonely", "X", "Y"), []domain.GraphEdge{
		edge("A", "B"), edge("X", "Y"),
	}))

	assert.Equal(t, domain.Position{X: 0, Y: 0}, got["A"])
	assert.Equal(t, domain.Position{X: 0, Y: 200}, got["B"])
	assert.Equal(t, domain.Position{X: 290, Y: 0}, got["lonely"])
	assert.Equal(t, domain.Position{X: 580, Y: 0}, got["X"])
	assert.Equal(t, domain.Position{X: 580, Y: 200}, got["Y"])
}

func TestLayered_CyclesAndDanglingEdges(t *testing.T) {
	in := nodes("A", "B")
	got := positions(Layered(in, []domain.GraphEdge{
		edge("A", "B"), edge("B", "A"), edge("B", "B"), edge("B", "ghost"),
	}))

	assert.Equal(t, 0.0, got["A"].Y)
	assert.Equal(t, 200.0, got["B"].Y)
}

func TestLayered_DoesNotMutateInput(t *testing.T) {
	in := nodes("A", "B")
	_ = Layered(in, []domain.GraphEdge{edge("A", "B")})
	assert.Equal(t, domain.Position{X: 999, Y: -3}, in[0].Position)
}

func TestLayered_Options(t *testing.T) {
	got := positions(Layered(nodes("A", "B"), []domain.GraphEdge{edge("A", "B")},
		WithNodeSize(100, 40), WithSpacing(10, 10)))
	assert.Equal(t, domain.Position{X: 0, Y: 50}, got["B"])
}

func TestLayered_Empty(t *testing.T) {
	assert.Empty(t, Layered(nil, nil))
}

func TestLayered_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	build := func(n int, raw []int) ([]domain.GraphNode, []domain.GraphEdge) {
		ns := make([]domain.GraphNode, n)
		for i := range ns {
			ns[i] = domain.GraphNode{ID: fmt.Sprintf("s%d", i)}
		}
		var es []domain.GraphEdge
		for i := 0; i+1 < len(raw); i += 2 {
			es = append(es, edge(ns[raw[i]%n].ID, ns[raw[i+1]%n].ID))
		}
		return ns, es
	}

	properties.Property("layout is idempotent", prop.ForAll(
		func(n int, raw []int) bool {
			ns, es := build(n, raw)
			once := Layered(ns, es)
			twice := Layered(once, es)
			for i := range once {
				if once[i].Position != twice[i].Position {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 12),
		gen.SliceOf(gen.IntRange(0, 99)),
	))

	properties.Property("boxes never overlap", prop.ForAll(
		func(n int, raw []int) bool {
			ns, es := build(n, raw)
			out := Layered(ns, es)
			seen := map[domain.Position]bool{}
			for _, node := range out {
				if seen[node.Position] {
					return false
				}
				seen[node.Position] = true
			}
			return true
		},
		gen.IntRange(1, 12),
		gen.SliceOf(gen.IntRange(0, 99)),
	))

	properties.Property("every edge that survives cycle breaking points down", prop.ForAll(
		func(n int, raw []int) bool {
			ns, _ := build(n, raw)
			// edges only from lower to higher index form a DAG
			var es []domain.GraphEdge
			for i := 0; i+1 < len(raw); i += 2 {
				a, b := raw[i]%n, raw[i+1]%n
				if a < b {
					es = append(es, edge(ns[a].ID, ns[b].ID))
				}
			}
			pos := positions(Layered(ns, es))
			for _, e := range es {
				if pos[e.Source].Y >= pos[e.Target].Y {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 12),
		gen.SliceOf(gen.IntRange(0, 99)),
	))

	properties.TestingRun(t)
}

func TestLayered_KeepsNodeData(t *testing.T) {
	in := []domain.GraphNode{{ID: "A", Kind: "task", Data: domain.NodeData{Label: "A", IsInitial: true}}}
	out := Layered(in, nil)
	require.Len(t, out, 1)
	assert.Equal(t, "task", out[0].Kind)
	assert.True(t, out[0].Data.IsInitial)
}
