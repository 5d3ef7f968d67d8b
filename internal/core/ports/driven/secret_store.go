package driven

import "context"

// SecretStore persists opaque secret values under a fixed key (file, Redis, PostgreSQL)
type SecretStore interface {
	// Put stores value under key, replacing any existing value.
	// A failed Put leaves the previous value retrievable or the key absent, never a partial value.
	Put(ctx context.Context, key string, value []byte) error

	// Get retrieves the value stored under key.
	// Returns domain.ErrNotFound when nothing is stored.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes the value stored under key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
