package canvas

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/keel/pkg/domain"
	"github.com/aretw0/keel/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sharedLocker stands in for a lock shared by several replicas.
type sharedLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func (l *sharedLocker) Lock(_ context.Context, key string, _ time.Duration) (ports.UnlockFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = map[string]bool{}
	}
	if l.held[key] {
		return nil, ports.ErrLocked
	}
	l.held[key] = true
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
		return nil
	}, nil
}

func TestRegistry_RefusesSecondSession(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()
	sink := &recordingSink{}

	s, err := r.Open(ctx, placedSpec(), sink)
	require.NoError(t, err)

	_, err = r.Open(ctx, placedSpec(), sink)
	assert.ErrorIs(t, err, domain.ErrSessionOpen)

	got, ok := r.Get("wf")
	require.True(t, ok)
	assert.Same(t, s, got)
	assert.Equal(t, []string{"wf"}, r.List())

	require.NoError(t, s.Close(ctx))
	assert.Empty(t, r.List())

	again, err := r.Open(ctx, placedSpec(), sink)
	require.NoError(t, err)
	require.NoError(t, again.Close(ctx))
}

func TestRegistry_LockAcrossReplicas(t *testing.T) {
	locker := &sharedLocker{}
	replicaA := NewRegistry(WithLocker(locker))
	replicaB := NewRegistry(WithLocker(locker))
	ctx := context.Background()
	sink := &recordingSink{}

	s, err := replicaA.Open(ctx, placedSpec(), sink)
	require.NoError(t, err)

	_, err = replicaB.Open(ctx, placedSpec(), sink)
	assert.ErrorIs(t, err, domain.ErrSessionOpen)

	require.NoError(t, s.Close(ctx))

	s2, err := replicaB.Open(ctx, placedSpec(), sink)
	require.NoError(t, err)
	require.NoError(t, s2.Close(ctx))
}

func TestRegistry_CloseAllFlushes(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()
	sink := &recordingSink{}

	spec := placedSpec()
	s1, err := r.Open(ctx, spec, sink, WithDebounce(time.Hour))
	require.NoError(t, err)
	spec.ID = "other"
	s2, err := r.Open(ctx, spec, sink, WithDebounce(time.Hour))
	require.NoError(t, err)

	require.NoError(t, s1.AddNode(domain.GraphNode{ID: "C"}))
	require.NoError(t, s2.AddNode(domain.GraphNode{ID: "D"}))

	require.NoError(t, r.CloseAll(ctx))
	assert.Len(t, sink.published(), 2)
	assert.Empty(t, r.List())
}

func TestRegistry_FailedCloseKeepsSession(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()
	boom := errors.New("backend down")
	sink := &recordingSink{}

	s, err := r.Open(ctx, placedSpec(), sink, WithDebounce(time.Hour))
	require.NoError(t, err)
	require.NoError(t, s.AddNode(domain.GraphNode{ID: "C"}))

	sink.setFail(boom)
	assert.ErrorIs(t, s.Close(ctx), boom)
	assert.Equal(t, []string{"wf"}, r.List())

	sink.setFail(nil)
	require.NoError(t, s.Close(ctx))
	assert.Empty(t, r.List())
	assert.Len(t, sink.published(), 1)
}
