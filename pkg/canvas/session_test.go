package canvas

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/keel/pkg/domain"
	"github.com/aretw0/keel/pkg/statechart"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu     sync.Mutex
	drafts []domain.StateMachineSpec
	fail   error
}

func (r *recordingSink) PublishDraft(_ context.Context, spec domain.StateMachineSpec) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.drafts = append(r.drafts, spec)
	return nil
}

func (r *recordingSink) published() []domain.StateMachineSpec {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.StateMachineSpec(nil), r.drafts...)
}

func (r *recordingSink) setFail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail = err
}

func placedSpec() domain.StateMachineSpec {
	return domain.StateMachineSpec{
		ID:      "wf",
		Initial: "A",
		States: map[string]domain.StateEntry{
			"A": {Meta: map[string]any{"x": 0.0, "y": 0.0}, On: map[string]domain.Transition{"NEXT": {Target: "B"}}},
			"B": {Meta: map[string]any{"x": 0.0, "y": 300.0}},
		},
	}
}

func openSession(t *testing.T, spec domain.StateMachineSpec, opts ...Option) (*Session, *recordingSink) {
	t.Helper()
	sink := &recordingSink{}
	opts = append([]Option{WithDebounce(time.Hour)}, opts...)
	s := Open(context.Background(), spec, sink, opts...)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s, sink
}

func TestSession_OpenLaysOutBareSpecs(t *testing.T) {
	spec := domain.StateMachineSpec{
		ID:      "wf",
		Initial: "A",
		States: map[string]domain.StateEntry{
			"A": {On: map[string]domain.Transition{"NEXT": {Target: "B"}}},
			"B": {},
		},
	}
	s, sink := openSession(t, spec)

	g := s.Graph()
	a, _ := g.Node("A")
	b, _ := g.Node("B")
	assert.Equal(t, domain.Position{X: 0, Y: 0}, a.Position)
	assert.Equal(t, domain.Position{X: 0, Y: 200}, b.Position)

	require.NoError(t, s.Flush(context.Background()))
	assert.Empty(t, sink.published(), "opening publishes nothing")
	assert.False(t, s.CanUndo())
}

func TestSession_OpenKeepsPlacedNodes(t *testing.T) {
	s, _ := openSession(t, placedSpec())
	b, _ := s.Graph().Node("B")
	assert.Equal(t, domain.Position{X: 0, Y: 300}, b.Position)
}

func TestSession_EditsAreCoalesced(t *testing.T) {
	s, sink := openSession(t, placedSpec())

	require.NoError(t, s.AddNode(domain.GraphNode{ID: "C", Position: domain.Position{X: 10, Y: 600}}))
	id, err := s.Connect("B", "C", "")
	require.NoError(t, err)
	assert.Equal(t, "B-NEXT-C", id)

	require.NoError(t, s.Flush(context.Background()))

	drafts := sink.published()
	require.Len(t, drafts, 1)
	spec := drafts[0]
	assert.Equal(t, domain.Transition{Target: "C"}, spec.States["B"].On["NEXT"])
	assert.Equal(t, statechart.KindStandard, spec.States["C"].Meta["nodeType"])
	assert.Equal(t, domain.StateAtomic, spec.States["C"].Type)
}

func TestSession_DebounceDelivers(t *testing.T) {
	s, sink := openSession(t, placedSpec(), WithDebounce(10*time.Millisecond))

	require.NoError(t, s.SetInitial("B"))

	assert.Eventually(t, func() bool { return len(sink.published()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "B", sink.published()[0].Initial)
}

func TestSession_UndoRedo(t *testing.T) {
	s, _ := openSession(t, placedSpec())

	require.NoError(t, s.AddNode(domain.GraphNode{ID: "C"}))
	require.NoError(t, s.RemoveNode("A"))

	assert.Len(t, s.Graph().Nodes, 2)
	assert.Empty(t, s.Graph().Edges, "edges attached to A are removed with it")

	ok, err := s.Undo()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, s.Graph().Nodes, 3)
	assert.Len(t, s.Graph().Edges, 1)

	ok, _ = s.Undo()
	require.True(t, ok)
	_, hasC := s.Graph().Node("C")
	assert.False(t, hasC)

	ok, _ = s.Undo()
	assert.False(t, ok)

	ok, _ = s.Redo()
	require.True(t, ok)
	_, hasC = s.Graph().Node("C")
	assert.True(t, hasC)

	require.NoError(t, s.UpdateNodeData("C", func(d *domain.NodeData) { d.Label = "Charlie" }))
	assert.False(t, s.CanRedo(), "a new edit clears redo")
}

func TestSession_DragIsOneUndoStep(t *testing.T) {
	s, _ := openSession(t, placedSpec())

	for i := 1; i <= 5; i++ {
		require.NoError(t, s.Drag("A", domain.Position{X: float64(i * 10), Y: 0}))
	}
	s.EndDrag()

	a, _ := s.Graph().Node("A")
	assert.Equal(t, 50.0, a.Position.X)

	ok, err := s.Undo()
	require.NoError(t, err)
	require.True(t, ok)
	a, _ = s.Graph().Node("A")
	assert.Equal(t, 0.0, a.Position.X)
	assert.False(t, s.CanUndo())
}

func TestSession_EditErrorsLeaveGraphUntouched(t *testing.T) {
	s, _ := openSession(t, placedSpec())

	assert.ErrorIs(t, s.AddNode(domain.GraphNode{ID: "A"}), ErrDuplicateNode)
	_, err := s.Connect("A", "ghost", "GO")
	assert.ErrorIs(t, err, ErrUnknownNode)
	_, err = s.Connect("A", "B", "NEXT")
	assert.ErrorIs(t, err, ErrDuplicateEdge)
	assert.ErrorIs(t, s.Disconnect("nope"), domain.ErrNotFound)
	assert.ErrorIs(t, s.Drag("ghost", domain.Position{}), ErrUnknownNode)

	assert.False(t, s.CanUndo())
}

func TestSession_UpdateEdge(t *testing.T) {
	s, sink := openSession(t, placedSpec())

	require.NoError(t, s.UpdateEdge("A-NEXT-B", func(e *domain.GraphEdge) {
		e.Data.Guard = "host.amount > 1000"
		e.Data.Actions = []string{"notify"}
	}))
	require.NoError(t, s.Flush(context.Background()))

	got := sink.published()[0].States["A"].On["NEXT"]
	assert.Equal(t, domain.Transition{Target: "B", Guard: "host.amount > 1000", Actions: []string{"notify"}}, got)
}

func TestSession_UnchangedDraftIsSkipped(t *testing.T) {
	s, sink := openSession(t, placedSpec())

	require.NoError(t, s.AddNode(domain.GraphNode{ID: "C"}))
	_, err := s.Undo()
	require.NoError(t, err)

	require.NoError(t, s.Flush(context.Background()))
	assert.Empty(t, sink.published())
}

func TestSession_AutoLayoutCallsHook(t *testing.T) {
	var laidOut domain.Graph
	s, _ := openSession(t, placedSpec(), WithOnLayout(func(g domain.Graph) { laidOut = g }))

	require.NoError(t, s.AutoLayout())

	b, _ := laidOut.Node("B")
	assert.Equal(t, domain.Position{X: 0, Y: 200}, b.Position)
	assert.True(t, s.CanUndo())
}

func TestSession_CloseFlushes(t *testing.T) {
	sink := &recordingSink{}
	s := Open(context.Background(), placedSpec(), sink, WithDebounce(time.Hour))

	require.NoError(t, s.AddNode(domain.GraphNode{ID: "C"}))
	require.NoError(t, s.Close(context.Background()))

	require.Len(t, sink.published(), 1)
	assert.Contains(t, sink.published()[0].States, "C")

	assert.ErrorIs(t, s.AddNode(domain.GraphNode{ID: "D"}), ErrClosed)
	assert.NoError(t, s.Close(context.Background()))
}

func TestSession_RetryAfterFailedSave(t *testing.T) {
	boom := errors.New("backend down")
	s, sink := openSession(t, placedSpec())
	sink.setFail(boom)

	require.NoError(t, s.AddNode(domain.GraphNode{ID: "C"}))
	assert.ErrorIs(t, s.Flush(context.Background()), boom)

	// the graph survives the failed save
	_, ok := s.Graph().Node("C")
	require.True(t, ok)

	sink.setFail(nil)
	require.NoError(t, s.Retry(context.Background()))
	require.Len(t, sink.published(), 1)
	assert.Contains(t, sink.published()[0].States, "C")
}

func TestSession_CloseSavesDraftLostInBackground(t *testing.T) {
	boom := errors.New("backend down")
	failures := make(chan error, 1)
	sink := &recordingSink{fail: boom}
	s := Open(context.Background(), placedSpec(), sink,
		WithDebounce(10*time.Millisecond),
		WithErrorHandler(func(err error) { failures <- err }),
	)

	require.NoError(t, s.AddNode(domain.GraphNode{ID: "C"}))
	select {
	case err := <-failures:
		require.ErrorIs(t, err, boom)
	case <-time.After(time.Second):
		t.Fatal("background save did not run")
	}

	// still failing: Close reports it and the session stays usable
	require.ErrorIs(t, s.Close(context.Background()), boom)
	require.NoError(t, s.AddNode(domain.GraphNode{ID: "D"}))

	sink.setFail(nil)
	require.NoError(t, s.Close(context.Background()))

	drafts := sink.published()
	require.Len(t, drafts, 1)
	assert.Contains(t, drafts[0].States, "C")
	assert.Contains(t, drafts[0].States, "D")
	assert.ErrorIs(t, s.Retry(context.Background()), ErrClosed)
}

func TestSession_CloseWithoutChangesPublishesNothing(t *testing.T) {
	sink := &recordingSink{}
	s := Open(context.Background(), placedSpec(), sink, WithDebounce(10*time.Millisecond))

	require.NoError(t, s.SetInitial("B"))
	assert.Eventually(t, func() bool { return len(sink.published()) == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Close(context.Background()))
	assert.Len(t, sink.published(), 1)
}
