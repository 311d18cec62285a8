package domain

// Position is the top-left origin of a node on the canvas.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NodeData is the payload the canvas shows for a node.
type NodeData struct {
	Label     string         `json:"label"`
	IsInitial bool           `json:"isInitial,omitempty"`
	StateType StateType      `json:"stateType,omitempty"`
	Meta      map[string]any `json:"meta,omitempty"`
}

// GraphNode is one state on the canvas. Kind selects the visual component
// (screen, task, standard).
type GraphNode struct {
	ID       string   `json:"id"`
	Kind     string   `json:"type"`
	Position Position `json:"position"`
	Data     NodeData `json:"data"`
}

// EdgeData is the payload of a transition edge.
type EdgeData struct {
	Event   string   `json:"event,omitempty"`
	Guard   string   `json:"guard,omitempty"`
	Actions []string `json:"actions,omitempty"`
}

// GraphEdge connects two nodes. Edges whose endpoints no longer exist are
// tolerated on the canvas and dropped on serialization.
type GraphEdge struct {
	ID     string   `json:"id"`
	Source string   `json:"source"`
	Target string   `json:"target"`
	Label  string   `json:"label,omitempty"`
	Data   EdgeData `json:"data"`
}

// Graph is the node/edge projection edited on the canvas.
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// Node returns the node with the given id.
func (g Graph) Node(id string) (GraphNode, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return GraphNode{}, false
}

// Clone returns a deep copy of g. Meta values are copied one level deep;
// nested values are treated as immutable.
func (g Graph) Clone() Graph {
	out := Graph{
		Nodes: make([]GraphNode, len(g.Nodes)),
		Edges: make([]GraphEdge, len(g.Edges)),
	}
	for i, n := range g.Nodes {
		n.Data.Meta = cloneMeta(n.Data.Meta)
		out.Nodes[i] = n
	}
	for i, e := range g.Edges {
		if e.Data.Actions != nil {
			e.Data.Actions = append([]string(nil), e.Data.Actions...)
		}
		out.Edges[i] = e
	}
	return out
}

func cloneMeta(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
