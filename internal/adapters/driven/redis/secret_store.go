package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/scorelink/internal/core/domain"
	"github.com/custodia-labs/scorelink/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.SecretStore = (*SecretStore)(nil)

const secretPrefix = "scorelink:secret:"

// SecretStore implements driven.SecretStore using Redis strings.
// SET replaces the value atomically, so readers never see a partial write.
// Values carry no TTL; the token record lives until disconnect.
type SecretStore struct {
	client redis.UniversalClient
}

// NewSecretStore creates a new Redis-backed SecretStore
func NewSecretStore(client redis.UniversalClient) *SecretStore {
	return &SecretStore{client: client}
}

func (s *SecretStore) Put(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, secretPrefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to store secret: %w", err)
	}
	return nil
}

func (s *SecretStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, secretPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get secret: %w", err)
	}
	return data, nil
}

func (s *SecretStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, secretPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete secret: %w", err)
	}
	return nil
}
