package driven

import (
	"context"
	"time"
)

// DistributedLock coordinates token refreshes between processes sharing one secret store.
// Without it two processes could both spend the same refresh token.
type DistributedLock interface {
	// Acquire attempts to take a named lock for ttl.
	// Returns false without error if another owner holds it.
	Acquire(ctx context.Context, name string, ttl time.Duration) (acquired bool, err error)

	// Release releases a named lock held by this owner.
	// Safe to call when the lock has already expired.
	Release(ctx context.Context, name string) error
}
