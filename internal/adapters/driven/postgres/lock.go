package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/scorelink/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DistributedLock = (*LeaseLock)(nil)

// LeaseLock implements DistributedLock with rows in the locks table.
//
// Session advisory locks are tied to one pooled connection, so unlocking can
// land on a different connection than the one that locked. A lease row with
// an owner and expiry works across the pool and honours the TTL.
type LeaseLock struct {
	db      *DB
	ownerID string
}

// NewLeaseLock creates a lease lock with a fresh owner ID.
func NewLeaseLock(db *DB) *LeaseLock {
	return &LeaseLock{db: db, ownerID: uuid.NewString()}
}

// Acquire inserts the lease, or takes over one that has expired.
func (l *LeaseLock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	res, err := l.db.ExecContext(ctx, `
		INSERT INTO locks (name, owner, expires_at)
		VALUES ($1, $2, now() + $3::double precision * interval '1 millisecond')
		ON CONFLICT (name) DO UPDATE
		SET owner = EXCLUDED.owner, expires_at = EXCLUDED.expires_at
		WHERE locks.expires_at < now()
	`, name, l.ownerID, ttl.Milliseconds())
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Release deletes the lease if this owner holds it.
func (l *LeaseLock) Release(ctx context.Context, name string) error {
	if _, err := l.db.ExecContext(ctx,
		`DELETE FROM locks WHERE name = $1 AND owner = $2`, name, l.ownerID,
	); err != nil {
		return fmt.Errorf("release lock %s: %w", name, err)
	}
	return nil
}
