// Package debounce coalesces bursts of values and delivers only the last one.
//
// A Debouncer is bound to a context. When that context ends, a pending value
// is dropped; callers that must not lose it call Flush or Close first.
package debounce

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/keel/internal/logging"
)

// DefaultWait is the quiet period before a pushed value is delivered.
const DefaultWait = 500 * time.Millisecond

// ErrClosed is returned by Push after Close.
var ErrClosed = errors.New("debouncer closed")

// Func receives delivered values.
type Func[T any] func(ctx context.Context, v T) error

// Debouncer delays delivery of pushed values until no push happened for the
// wait period.
type Debouncer[T any] struct {
	ctx     context.Context
	wait    time.Duration
	deliver Func[T]
	onError func(error)
	logger  *slog.Logger

	mu      sync.Mutex
	timer   *time.Timer
	pending *T
	seq     uint64
	closed  bool
	stop    func() bool

	// sendMu serializes deliveries so values arrive in push order.
	sendMu sync.Mutex
}

// Option configures a Debouncer.
type Option func(*settings)

type settings struct {
	wait    time.Duration
	onError func(error)
	logger  *slog.Logger
}

// WithWait overrides DefaultWait.
func WithWait(d time.Duration) Option {
	return func(s *settings) {
		s.wait = d
	}
}

// WithErrorHandler receives errors from deliveries triggered by the timer.
// Flush and Close return their delivery error directly instead.
func WithErrorHandler(fn func(error)) Option {
	return func(s *settings) {
		s.onError = fn
	}
}

// WithLogger configures a logger for failed deliveries.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// New creates a Debouncer bound to ctx.
func New[T any](ctx context.Context, fn Func[T], opts ...Option) *Debouncer[T] {
	s := settings{wait: DefaultWait, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&s)
	}
	d := &Debouncer[T]{
		ctx:     ctx,
		wait:    s.wait,
		deliver: fn,
		onError: s.onError,
		logger:  s.logger,
	}
	d.stop = context.AfterFunc(ctx, d.Cancel)
	return d
}

// Push replaces the pending value and restarts the wait period.
func (d *Debouncer[T]) Push(v T) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}
	if err := d.ctx.Err(); err != nil {
		return err
	}

	d.pending = &v
	d.seq++
	seq := d.seq
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.wait, func() { d.fire(seq) })
	return nil
}

// Pending reports whether a value is waiting to be delivered.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

// Flush delivers the pending value now. It is a no-op when nothing is pending.
func (d *Debouncer[T]) Flush(ctx context.Context) error {
	v, ok := d.take(0)
	if !ok {
		return nil
	}
	return d.send(ctx, v)
}

// Deliver drops the pending value and delivers v now, after any delivery
// already in flight. It ignores the wait period and the bound context.
func (d *Debouncer[T]) Deliver(ctx context.Context, v T) error {
	d.Cancel()
	return d.send(ctx, v)
}

// Cancel drops the pending value without delivering it.
func (d *Debouncer[T]) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = nil
}

// Close flushes the pending value and refuses further pushes.
func (d *Debouncer[T]) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	d.stop()
	return d.Flush(ctx)
}

func (d *Debouncer[T]) fire(seq uint64) {
	v, ok := d.take(seq)
	if !ok {
		return
	}
	if err := d.send(d.ctx, v); err != nil {
		d.logger.Warn("debounced delivery failed", "err", err)
		if d.onError != nil {
			d.onError(err)
		}
	}
}

// take removes the pending value. A non-zero seq only matches the push that
// armed the timer, so a stale timer never delivers a newer value early.
func (d *Debouncer[T]) take(seq uint64) (T, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var zero T
	if d.pending == nil || (seq != 0 && seq != d.seq) {
		return zero, false
	}
	v := *d.pending
	d.pending = nil
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	return v, true
}

func (d *Debouncer[T]) send(ctx context.Context, v T) error {
	d.sendMu.Lock()
	defer d.sendMu.Unlock()
	return d.deliver(ctx, v)
}
