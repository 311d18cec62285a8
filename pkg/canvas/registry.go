package canvas

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/keel/internal/logging"
	"github.com/aretw0/keel/pkg/domain"
	"github.com/aretw0/keel/pkg/ports"
)

// DefaultLockTTL bounds how long a crashed replica keeps a workflow locked.
const DefaultLockTTL = 30 * time.Minute

type entry struct {
	session *Session
	unlock  ports.UnlockFunc
}

// Registry tracks open sessions by workflow id.
type Registry struct {
	mu   sync.Mutex
	open map[string]*entry

	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger
}

// RegistryOption configures the Registry.
type RegistryOption func(*Registry)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) RegistryOption {
	return func(r *Registry) {
		r.locker = locker
	}
}

// WithLockTTL overrides DefaultLockTTL.
func WithLockTTL(ttl time.Duration) RegistryOption {
	return func(r *Registry) {
		r.lockTTL = ttl
	}
}

// WithRegistryLogger configures a logger for the Registry.
func WithRegistryLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry creates an empty Registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		open:    make(map[string]*entry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Open starts a session for spec. It fails with domain.ErrSessionOpen when
// the workflow is already being edited here or, with a locker, elsewhere.
func (r *Registry) Open(ctx context.Context, spec domain.StateMachineSpec, sink ports.DraftSink, opts ...Option) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.open[spec.ID]; exists {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionOpen, spec.ID)
	}

	var unlock ports.UnlockFunc
	if r.locker != nil {
		var err error
		unlock, err = r.locker.Lock(ctx, spec.ID, r.lockTTL)
		if errors.Is(err, ports.ErrLocked) {
			return nil, fmt.Errorf("%w: %s is open on another replica", domain.ErrSessionOpen, spec.ID)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
	}

	s := Open(ctx, spec, sink, opts...)
	s.onClose = func(ctx context.Context) { r.release(ctx, spec.ID) }
	r.open[spec.ID] = &entry{session: s, unlock: unlock}

	r.logger.Info("session opened", "workflow", spec.ID)
	return s, nil
}

// Get returns the open session for id.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.open[id]
	if !ok {
		return nil, false
	}
	return e.session, true
}

// List returns the ids of open sessions in order.
func (r *Registry) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.open))
	for id := range r.open {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// CloseAll closes every open session, flushing their drafts.
func (r *Registry) CloseAll(ctx context.Context) error {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.open))
	for _, e := range r.open {
		sessions = append(sessions, e.session)
	}
	r.mu.Unlock()

	var errs []error
	for _, s := range sessions {
		if err := s.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.ID(), err))
		}
	}
	return errors.Join(errs...)
}

// release is called by Session.Close.
func (r *Registry) release(ctx context.Context, id string) {
	r.mu.Lock()
	e, ok := r.open[id]
	delete(r.open, id)
	r.mu.Unlock()

	if !ok {
		return
	}
	if e.unlock != nil {
		if err := e.unlock(context.WithoutCancel(ctx)); err != nil {
			r.logger.Warn("Failed to release distributed lock (will expire via TTL)",
				"workflow", id,
				"err", err,
			)
		}
	}
	r.logger.Info("session closed", "workflow", id)
}
