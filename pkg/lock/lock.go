package lock

import (
	"context"
)

// Manager hands out named locks. Implementations may treat two locks with
// the same name from the same Manager as re-entrant, so callers that share a
// Manager across goroutines should coordinate locally as well.
type Manager interface {
	// Create returns an unlocked DistributedLock for name.
	Create(ctx context.Context, name string) (DistributedLock, error)
}

// DistributedLock is a lock that may span processes.
type DistributedLock interface {
	// Acquire blocks until the lock is held or ctx is done.
	//
	// The returned channel is closed when the lock is lost. That happens
	// when ctx is cancelled, when Unlock is called, or when the
	// implementation can no longer guarantee ownership.
	Acquire(ctx context.Context) (<-chan struct{}, error)

	// Unlock releases the lock if it is held. It is idempotent.
	Unlock(ctx context.Context) error

	// IsLocked reports whether this handle currently holds the lock.
	IsLocked() bool
}
