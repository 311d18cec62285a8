package ports

import (
	"context"

	"github.com/aretw0/keel/pkg/domain"
	"github.com/aretw0/keel/pkg/policy"
)

// Store persists documents by key.
type Store[T any] interface {
	// Save creates or replaces the document stored under key.
	Save(ctx context.Context, key string, v T) error

	// Load retrieves the document stored under key.
	// Returns domain.ErrNotFound if the key does not exist.
	Load(ctx context.Context, key string) (T, error)

	// Delete removes the document. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns the stored keys in ascending order.
	List(ctx context.Context) ([]string, error)
}

// PolicyStore persists policies by key.
type PolicyStore = Store[policy.Policy]

// WorkflowStore persists state-machine specs by id.
type WorkflowStore = Store[domain.StateMachineSpec]
