package canvas

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/keel/internal/logging"
	"github.com/aretw0/keel/pkg/debounce"
	"github.com/aretw0/keel/pkg/domain"
	"github.com/aretw0/keel/pkg/history"
	"github.com/aretw0/keel/pkg/layout"
	"github.com/aretw0/keel/pkg/ports"
	"github.com/aretw0/keel/pkg/statechart"
)

var (
	// ErrClosed is returned by edits on a closed session.
	ErrClosed = errors.New("session closed")
	// ErrUnknownNode is returned when an edit names a node that is not on the canvas.
	ErrUnknownNode = errors.New("unknown node")
	// ErrDuplicateNode is returned when a node id is already taken.
	ErrDuplicateNode = errors.New("duplicate node id")
	// ErrDuplicateEdge is returned when the same transition is connected twice.
	ErrDuplicateEdge = errors.New("duplicate edge")
)

// Session owns the graph of one open workflow.
type Session struct {
	id    string
	scope statechart.Scope

	mu       sync.Mutex
	graph    domain.Graph
	history  *history.History[domain.Graph]
	dragging bool
	closed   bool

	drafts   *debounce.Debouncer[domain.StateMachineSpec]
	sink     ports.DraftSink
	onLayout func(domain.Graph)
	onClose  func(context.Context)
	onError  func(error)
	logger   *slog.Logger

	pubMu     sync.Mutex
	published *domain.StateMachineSpec
}

// Option configures a Session.
type Option func(*settings)

type settings struct {
	scope        statechart.Scope
	wait         time.Duration
	historyLimit int
	onLayout     func(domain.Graph)
	onError      func(error)
	logger       *slog.Logger
}

// WithScope sets the process scope used for default node kinds.
func WithScope(scope statechart.Scope) Option {
	return func(s *settings) {
		s.scope = scope
	}
}

// WithDebounce overrides the draft debounce window.
func WithDebounce(wait time.Duration) Option {
	return func(s *settings) {
		s.wait = wait
	}
}

// WithHistoryLimit overrides the number of undo steps.
func WithHistoryLimit(n int) Option {
	return func(s *settings) {
		s.historyLimit = n
	}
}

// WithOnLayout registers a hook called with the graph after a manual layout.
func WithOnLayout(fn func(domain.Graph)) Option {
	return func(s *settings) {
		s.onLayout = fn
	}
}

// WithErrorHandler receives draft delivery failures that happen in the background.
func WithErrorHandler(fn func(error)) Option {
	return func(s *settings) {
		s.onError = fn
	}
}

// WithLogger configures a logger for the Session.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// Open builds a session from spec. When no state carries coordinates the
// graph is laid out first. Opening publishes nothing.
func Open(ctx context.Context, spec domain.StateMachineSpec, sink ports.DraftSink, opts ...Option) *Session {
	cfg := settings{
		scope:        statechart.ScopeGovernance,
		wait:         debounce.DefaultWait,
		historyLimit: history.DefaultLimit,
		logger:       logging.NewNop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	g := statechart.ToGraph(spec, statechart.WithScope(cfg.scope))
	if statechart.NeedsAutoLayout(spec) {
		g.Nodes = layout.Layered(g.Nodes, g.Edges)
	}

	s := &Session{
		id:       spec.ID,
		scope:    cfg.scope,
		graph:    g,
		history:  history.New(domain.Graph.Clone, history.WithLimit(cfg.historyLimit)),
		sink:     sink,
		onLayout: cfg.onLayout,
		onError:  cfg.onError,
		logger:   cfg.logger.With("workflow", spec.ID),
	}
	initial := statechart.ToSpec(g, spec.ID)
	s.published = &initial
	s.drafts = debounce.New(ctx, s.deliver,
		debounce.WithWait(cfg.wait),
		debounce.WithLogger(s.logger),
		debounce.WithErrorHandler(s.reportError),
	)
	return s
}

// ID returns the workflow id.
func (s *Session) ID() string { return s.id }

// Graph returns a copy of the current graph.
func (s *Session) Graph() domain.Graph {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.Clone()
}

// Spec serializes the current graph.
func (s *Session) Spec() domain.StateMachineSpec {
	s.mu.Lock()
	defer s.mu.Unlock()
	return statechart.ToSpec(s.graph, s.id)
}

// AddNode places a new node. An empty kind gets the scope default.
func (s *Session) AddNode(n domain.GraphNode) error {
	return s.edit(func(g *domain.Graph) error {
		if _, ok := g.Node(n.ID); ok {
			return fmt.Errorf("%w: %s", ErrDuplicateNode, n.ID)
		}
		if n.Kind == "" {
			n.Kind = s.scope.DefaultKind()
		}
		if n.Data.Label == "" {
			n.Data.Label = n.ID
		}
		if n.Data.StateType == "" {
			n.Data.StateType = domain.StateAtomic
		}
		g.Nodes = append(g.Nodes, n)
		return nil
	})
}

// RemoveNode deletes a node and the edges attached to it.
func (s *Session) RemoveNode(id string) error {
	return s.edit(func(g *domain.Graph) error {
		idx := nodeIndex(*g, id)
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrUnknownNode, id)
		}
		g.Nodes = append(g.Nodes[:idx], g.Nodes[idx+1:]...)
		edges := g.Edges[:0]
		for _, e := range g.Edges {
			if e.Source != id && e.Target != id {
				edges = append(edges, e)
			}
		}
		g.Edges = edges
		return nil
	})
}

// Connect adds a transition edge and returns its id. An empty event means NEXT.
func (s *Session) Connect(source, target, event string) (string, error) {
	if event == "" {
		event = statechart.DefaultEvent
	}
	id := statechart.EdgeID(source, event, target)
	err := s.edit(func(g *domain.Graph) error {
		if nodeIndex(*g, source) < 0 {
			return fmt.Errorf("%w: %s", ErrUnknownNode, source)
		}
		if nodeIndex(*g, target) < 0 {
			return fmt.Errorf("%w: %s", ErrUnknownNode, target)
		}
		if edgeIndex(*g, id) >= 0 {
			return fmt.Errorf("%w: %s", ErrDuplicateEdge, id)
		}
		g.Edges = append(g.Edges, domain.GraphEdge{
			ID:     id,
			Source: source,
			Target: target,
			Label:  event,
			Data:   domain.EdgeData{Event: event},
		})
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// Disconnect removes an edge.
func (s *Session) Disconnect(edgeID string) error {
	return s.edit(func(g *domain.Graph) error {
		idx := edgeIndex(*g, edgeID)
		if idx < 0 {
			return fmt.Errorf("%w: edge %s", domain.ErrNotFound, edgeID)
		}
		g.Edges = append(g.Edges[:idx], g.Edges[idx+1:]...)
		return nil
	})
}

// UpdateNodeData edits the payload of a node, as the inspector panel does.
func (s *Session) UpdateNodeData(id string, fn func(*domain.NodeData)) error {
	return s.edit(func(g *domain.Graph) error {
		idx := nodeIndex(*g, id)
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrUnknownNode, id)
		}
		fn(&g.Nodes[idx].Data)
		return nil
	})
}

// SetInitial flags id as the initial state and clears the flag elsewhere.
func (s *Session) SetInitial(id string) error {
	return s.edit(func(g *domain.Graph) error {
		if nodeIndex(*g, id) < 0 {
			return fmt.Errorf("%w: %s", ErrUnknownNode, id)
		}
		for i := range g.Nodes {
			g.Nodes[i].Data.IsInitial = g.Nodes[i].ID == id
		}
		return nil
	})
}

// UpdateEdge edits an edge's event, guard or actions.
func (s *Session) UpdateEdge(id string, fn func(*domain.GraphEdge)) error {
	return s.edit(func(g *domain.Graph) error {
		idx := edgeIndex(*g, id)
		if idx < 0 {
			return fmt.Errorf("%w: edge %s", domain.ErrNotFound, id)
		}
		fn(&g.Edges[idx])
		g.Edges[idx].ID = id
		return nil
	})
}

// Drag moves a node. Only the first move of a gesture records an undo step;
// EndDrag finishes the gesture.
func (s *Session) Drag(id string, pos domain.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	idx := nodeIndex(s.graph, id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	if !s.dragging {
		s.history.Push(s.graph)
		s.dragging = true
	}
	s.graph.Nodes[idx].Position = pos
	return s.publishLocked()
}

// EndDrag ends the current drag gesture.
func (s *Session) EndDrag() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dragging = false
}

// AutoLayout lays the graph out on request and calls the OnLayout hook.
func (s *Session) AutoLayout() error {
	err := s.edit(func(g *domain.Graph) error {
		g.Nodes = layout.Layered(g.Nodes, g.Edges)
		return nil
	})
	if err != nil {
		return err
	}
	if s.onLayout != nil {
		s.onLayout(s.Graph())
	}
	return nil
}

// Undo restores the graph before the last edit.
func (s *Session) Undo() (bool, error) {
	return s.travel(s.history.Undo)
}

// Redo re-applies the last undone edit.
func (s *Session) Redo() (bool, error) {
	return s.travel(s.history.Redo)
}

func (s *Session) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanUndo()
}

func (s *Session) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanRedo()
}

// Flush delivers the pending draft now.
func (s *Session) Flush(ctx context.Context) error {
	return s.drafts.Flush(ctx)
}

// Retry publishes the current graph again, typically after a failed save.
func (s *Session) Retry(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	current := statechart.ToSpec(s.graph, s.id)
	s.mu.Unlock()

	s.pubMu.Lock()
	s.published = nil
	s.pubMu.Unlock()
	return s.drafts.Deliver(ctx, current)
}

// Close saves the current graph unless it was already published, then ends
// the session. When the save fails the session stays open and the error is
// returned, so nothing is lost. Closing twice is a no-op.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	// Edits are refused while the final draft is saved.
	s.closed = true
	current := statechart.ToSpec(s.graph, s.id)
	s.mu.Unlock()

	if err := s.drafts.Deliver(ctx, current); err != nil {
		s.mu.Lock()
		s.closed = false
		s.mu.Unlock()
		return fmt.Errorf("flush draft: %w", err)
	}

	if err := s.drafts.Close(ctx); err != nil {
		s.logger.Warn("draft debouncer did not close cleanly", "err", err)
	}
	if s.onClose != nil {
		s.onClose(ctx)
	}
	return nil
}

// edit runs fn on a copy of the graph and commits it with an undo step when
// fn succeeds.
func (s *Session) edit(fn func(*domain.Graph) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	next := s.graph.Clone()
	if err := fn(&next); err != nil {
		return err
	}
	s.history.Push(s.graph)
	s.graph = next
	s.dragging = false
	return s.publishLocked()
}

func (s *Session) travel(step func(domain.Graph) (domain.Graph, bool)) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}
	g, ok := step(s.graph)
	if !ok {
		return false, nil
	}
	s.graph = g
	s.dragging = false
	return true, s.publishLocked()
}

func (s *Session) publishLocked() error {
	return s.drafts.Push(statechart.ToSpec(s.graph, s.id))
}

// deliver runs on the debouncer. Drafts equal to the last delivered one are skipped.
func (s *Session) deliver(ctx context.Context, spec domain.StateMachineSpec) error {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	diff := domain.Diff(s.published, &spec)
	if diff == nil {
		s.logger.Debug("draft unchanged, skipping publish")
		return nil
	}
	if err := s.sink.PublishDraft(ctx, spec); err != nil {
		return fmt.Errorf("publish draft: %w", err)
	}
	s.published = &spec
	s.logger.Debug("draft published",
		"added", len(diff.Added),
		"removed", len(diff.Removed),
		"changed", len(diff.Changed),
	)
	return nil
}

func (s *Session) reportError(err error) {
	if s.onError != nil {
		s.onError(err)
	}
}

func nodeIndex(g domain.Graph, id string) int {
	for i, n := range g.Nodes {
		if n.ID == id {
			return i
		}
	}
	return -1
}

func edgeIndex(g domain.Graph, id string) int {
	for i, e := range g.Edges {
		if e.ID == id {
			return i
		}
	}
	return -1
}
