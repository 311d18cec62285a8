package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/keel/pkg/domain"
	"github.com/aretw0/keel/pkg/policy"
)

// Store implements ports.Store in memory.
// Values are kept encoded, so callers never share memory with the store.
// Safe for concurrent use.
type Store[T any] struct {
	data map[string][]byte
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore[T any]() *Store[T] {
	return &Store[T]{
		data: make(map[string][]byte),
	}
}

// NewPolicyStore creates an in-memory ports.PolicyStore.
func NewPolicyStore() *Store[policy.Policy] { return NewStore[policy.Policy]() }

// NewWorkflowStore creates an in-memory ports.WorkflowStore.
func NewWorkflowStore() *Store[domain.StateMachineSpec] { return NewStore[domain.StateMachineSpec]() }

// Save persists v under key.
func (s *Store[T]) Save(ctx context.Context, key string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %q: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = data
	return nil
}

// Load retrieves the value stored under key.
func (s *Store[T]) Load(ctx context.Context, key string) (T, error) {
	var v T

	s.mu.RLock()
	data, ok := s.data[key]
	s.mu.RUnlock()

	if !ok {
		return v, domain.ErrNotFound
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("failed to unmarshal %q: %w", key, err)
	}
	return v, nil
}

// Delete removes the value.
func (s *Store[T]) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// List returns the stored keys in order.
func (s *Store[T]) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
