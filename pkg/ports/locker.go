package ports

import (
	"context"
	"time"
)

// UnlockFunc is a function that releases a distributed lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker defines the interface for distributed concurrency control.
// The canvas registry uses it so that a workflow is edited by one session
// across every replica.
type DistributedLocker interface {
	// Lock acquires the lock for key, or fails with ErrLocked when another
	// holder has it. The lock expires after ttl unless released.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
