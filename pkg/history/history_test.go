package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cloneSlice(s []int) []int { return append([]int(nil), s...) }

func TestHistory_UndoRedo(t *testing.T) {
	h := New(cloneSlice)

	state := []int{1}
	h.Push(state)
	state = []int{1, 2}
	h.Push(state)
	state = []int{1, 2, 3}

	prev, ok := h.Undo(state)
	require.True(t, ok)
	assert.Equal(t, []int{1, 2}, prev)

	prev, ok = h.Undo(prev)
	require.True(t, ok)
	assert.Equal(t, []int{1}, prev)

	_, ok = h.Undo(prev)
	assert.False(t, ok)

	next, ok := h.Redo(prev)
	require.True(t, ok)
	assert.Equal(t, []int{1, 2}, next)

	next, ok = h.Redo(next)
	require.True(t, ok)
	assert.Equal(t, []int{1, 2, 3}, next)

	_, ok = h.Redo(next)
	assert.False(t, ok)
}

func TestHistory_PushClearsRedo(t *testing.T) {
	h := New(cloneSlice)
	h.Push([]int{1})
	_, _ = h.Undo([]int{2})
	require.True(t, h.CanRedo())

	h.Push([]int{1})
	assert.False(t, h.CanRedo())
}

func TestHistory_Bounded(t *testing.T) {
	h := New(cloneSlice)
	for i := 0; i < DefaultLimit+10; i++ {
		h.Push([]int{i})
	}
	past, _ := h.Len()
	assert.Equal(t, DefaultLimit, past)

	var last []int
	cur := []int{-1}
	for h.CanUndo() {
		cur, _ = h.Undo(cur)
		last = cur
	}
	// the oldest ten were dropped
	assert.Equal(t, []int{10}, last)
}

func TestHistory_SnapshotsAreCopies(t *testing.T) {
	h := New(cloneSlice, WithLimit(3))
	state := []int{1}
	h.Push(state)
	state[0] = 99

	prev, _ := h.Undo(state)
	assert.Equal(t, []int{1}, prev)
	prev[0] = 7

	next, _ := h.Redo(prev)
	assert.Equal(t, []int{99}, next)
}
