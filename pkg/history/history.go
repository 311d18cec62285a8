// Package history implements a bounded undo/redo stack of snapshots.
package history

// DefaultLimit is the number of undo steps kept.
const DefaultLimit = 50

type config struct {
	limit int
}

// Option configures a History.
type Option func(*config)

// WithLimit sets how many past snapshots are kept. Values below 1 are ignored.
func WithLimit(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.limit = n
		}
	}
}

// History keeps deep copies of past and undone states.
// It is not safe for concurrent use; the owning session serializes access.
type History[T any] struct {
	past   []T
	future []T
	limit  int
	clone  func(T) T
}

// New creates a History. clone must return a copy that shares no mutable
// state with its argument.
func New[T any](clone func(T) T, opts ...Option) *History[T] {
	cfg := config{limit: DefaultLimit}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &History[T]{limit: cfg.limit, clone: clone}
}

// Push records the state before an edit. The oldest entry is dropped when
// the stack is full, and the redo stack is cleared.
func (h *History[T]) Push(current T) {
	h.past = append(h.past, h.clone(current))
	if len(h.past) > h.limit {
		h.past = append(h.past[:0:0], h.past[len(h.past)-h.limit:]...)
	}
	h.future = nil
}

// Undo returns the previous state and moves current onto the redo stack.
func (h *History[T]) Undo(current T) (T, bool) {
	if len(h.past) == 0 {
		var zero T
		return zero, false
	}
	prev := h.past[len(h.past)-1]
	h.past = h.past[:len(h.past)-1]
	h.future = append([]T{h.clone(current)}, h.future...)
	return h.clone(prev), true
}

// Redo returns the most recently undone state and moves current onto the
// undo stack.
func (h *History[T]) Redo(current T) (T, bool) {
	if len(h.future) == 0 {
		var zero T
		return zero, false
	}
	next := h.future[0]
	h.future = h.future[1:]
	h.past = append(h.past, h.clone(current))
	return h.clone(next), true
}

func (h *History[T]) CanUndo() bool { return len(h.past) > 0 }
func (h *History[T]) CanRedo() bool { return len(h.future) > 0 }

// Len returns the sizes of the undo and redo stacks.
func (h *History[T]) Len() (past, future int) {
	return len(h.past), len(h.future)
}

// Clear drops every entry.
func (h *History[T]) Clear() {
	h.past = nil
	h.future = nil
}
