package statechart

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/keel/pkg/domain"
)

// Scope is the kind of process a workflow belongs to. It only affects the
// default visual kind of nodes.
type Scope string

const (
	ScopeGovernance Scope = "GOVERNANCE"
	ScopeWizard     Scope = "WIZARD"
	ScopeJob        Scope = "JOB"
)

// ParseScope maps text to a Scope, ignoring case. Empty text means GOVERNANCE.
func ParseScope(s string) (Scope, error) {
	switch scope := Scope(strings.ToUpper(strings.TrimSpace(s))); scope {
	case "":
		return ScopeGovernance, nil
	case ScopeGovernance, ScopeWizard, ScopeJob:
		return scope, nil
	default:
		return "", fmt.Errorf("unknown scope %q", s)
	}
}

// Visual node kinds.
const (
	KindStandard = "standard"
	KindScreen   = "screen"
	KindTask     = "task"
)

// DefaultEvent is used for edges that carry neither an event nor a label.
const DefaultEvent = "NEXT"

// UnknownInitial is the initial state of a spec built from an empty graph.
const UnknownInitial = "unknown"

// Fallback grid for states without coordinates.
const (
	gridStepX   = 350
	gridOffsetX = 50
	gridY       = 100
)

// DefaultKind returns the node kind used when a state has no nodeType.
func (s Scope) DefaultKind() string {
	switch s {
	case ScopeWizard:
		return KindScreen
	case ScopeJob:
		return KindTask
	default:
		return KindStandard
	}
}

// Option configures ToGraph.
type Option func(*options)

type options struct {
	scope Scope
}

// WithScope sets the process scope used to pick default node kinds.
func WithScope(scope Scope) Option {
	return func(o *options) {
		o.scope = scope
	}
}

// ToGraph projects a spec onto the canvas.
//
// States are visited in sorted key order. A state without meta coordinates
// is placed on a fallback grid by its index until a layout runs.
func ToGraph(spec domain.StateMachineSpec, opts ...Option) domain.Graph {
	o := options{scope: ScopeGovernance}
	for _, opt := range opts {
		opt(&o)
	}

	g := domain.Graph{
		Nodes: []domain.GraphNode{},
		Edges: []domain.GraphEdge{},
	}

	for i, key := range spec.StateKeys() {
		entry := spec.States[key]

		pos := domain.Position{X: float64(i*gridStepX + gridOffsetX), Y: gridY}
		if x, ok := domain.Coordinate(entry.Meta, domain.MetaX); ok {
			pos.X = x
		}
		if y, ok := domain.Coordinate(entry.Meta, domain.MetaY); ok {
			pos.Y = y
		}

		kind := o.scope.DefaultKind()
		if nt, ok := entry.Meta[domain.MetaNodeType].(string); ok && nt != "" {
			kind = nt
		}

		stateType := entry.Type
		if stateType == "" {
			stateType = domain.StateAtomic
		}

		g.Nodes = append(g.Nodes, domain.GraphNode{
			ID:       key,
			Kind:     kind,
			Position: pos,
			Data: domain.NodeData{
				Label:     key,
				IsInitial: key == spec.Initial,
				StateType: stateType,
				Meta:      passthrough(entry.Meta),
			},
		})

		for _, event := range sortedEvents(entry.On) {
			t := entry.On[event]
			data := domain.EdgeData{Event: event}
			if !t.IsSimple() {
				data.Guard = t.Guard
				data.Actions = append([]string(nil), t.Actions...)
			}
			g.Edges = append(g.Edges, domain.GraphEdge{
				ID:     EdgeID(key, event, t.Target),
				Source: key,
				Target: t.Target,
				Label:  event,
				Data:   data,
			})
		}
	}
	return g
}

// ToSpec serializes the canvas back into a spec.
//
// The initial state is the node flagged isInitial, else the first node, else
// "unknown". Edges whose source or target is not among the nodes are skipped.
// When two edges leave the same node with the same event, the later one wins.
func ToSpec(g domain.Graph, id string) domain.StateMachineSpec {
	spec := domain.StateMachineSpec{
		ID:      id,
		Initial: UnknownInitial,
		States:  make(map[string]domain.StateEntry, len(g.Nodes)),
	}
	if len(g.Nodes) > 0 {
		spec.Initial = g.Nodes[0].ID
	}

	for _, n := range g.Nodes {
		if n.Data.IsInitial {
			spec.Initial = n.ID
			break
		}
	}

	for _, n := range g.Nodes {
		meta := passthrough(n.Data.Meta)
		if meta == nil {
			meta = map[string]any{}
		}
		meta[domain.MetaX] = n.Position.X
		meta[domain.MetaY] = n.Position.Y
		if n.Kind != "" {
			meta[domain.MetaNodeType] = n.Kind
		}

		stateType := n.Data.StateType
		if stateType == "" {
			stateType = domain.StateAtomic
		}

		spec.States[n.ID] = domain.StateEntry{
			Type: stateType,
			Meta: meta,
			On:   map[string]domain.Transition{},
		}
	}

	for _, e := range g.Edges {
		src, ok := spec.States[e.Source]
		if !ok {
			continue
		}
		if _, ok := spec.States[e.Target]; !ok {
			continue
		}
		t := domain.Transition{Target: e.Target}
		if e.Data.Guard != "" || len(e.Data.Actions) > 0 {
			t.Guard = e.Data.Guard
			t.Actions = append([]string(nil), e.Data.Actions...)
		}
		src.On[EventOf(e)] = t
	}
	return spec
}

// NeedsAutoLayout reports whether no state of spec carries coordinates, in
// which case the graph should be laid out when it is opened.
func NeedsAutoLayout(spec domain.StateMachineSpec) bool {
	for _, entry := range spec.States {
		_, hasX := domain.Coordinate(entry.Meta, domain.MetaX)
		_, hasY := domain.Coordinate(entry.Meta, domain.MetaY)
		if hasX || hasY {
			return false
		}
	}
	return true
}

// DanglingEdges returns the edges ToSpec would drop.
func DanglingEdges(g domain.Graph) []domain.GraphEdge {
	ids := make(map[string]struct{}, len(g.Nodes))
	for _, n := range g.Nodes {
		ids[n.ID] = struct{}{}
	}
	var out []domain.GraphEdge
	for _, e := range g.Edges {
		_, okSrc := ids[e.Source]
		_, okDst := ids[e.Target]
		if !okSrc || !okDst {
			out = append(out, e)
		}
	}
	return out
}

// EventOf resolves the event an edge fires on: data.event, then the label,
// then NEXT.
func EventOf(e domain.GraphEdge) string {
	if e.Data.Event != "" {
		return e.Data.Event
	}
	if e.Label != "" {
		return e.Label
	}
	return DefaultEvent
}

// EdgeID builds the id of the edge for a transition.
func EdgeID(source, event, target string) string {
	return source + "-" + event + "-" + target
}

// passthrough copies meta without the keys the graph owns.
func passthrough(meta map[string]any) map[string]any {
	if meta == nil {
		return nil
	}
	out := make(map[string]any, len(meta))
	for k, v := range meta {
		switch k {
		case domain.MetaX, domain.MetaY, domain.MetaNodeType:
			continue
		}
		out[k] = v
	}
	return out
}

func sortedEvents(on map[string]domain.Transition) []string {
	events := make([]string, 0, len(on))
	for ev := range on {
		events = append(events, ev)
	}
	sort.Strings(events)
	return events
}
