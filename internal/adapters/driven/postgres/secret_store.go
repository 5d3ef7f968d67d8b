package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/custodia-labs/scorelink/internal/core/domain"
	"github.com/custodia-labs/scorelink/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.SecretStore = (*SecretStore)(nil)

// SecretStore implements driven.SecretStore on the secrets table.
type SecretStore struct {
	db *DB
}

// NewSecretStore creates a new SecretStore
func NewSecretStore(db *DB) *SecretStore {
	return &SecretStore{db: db}
}

// Put replaces the value for key. The delete and insert share a transaction
// so a concurrent Get sees either the old value or the new one.
func (s *SecretStore) Put(ctx context.Context, key string, value []byte) error {
	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM secrets WHERE key = $1`, key); err != nil {
			return fmt.Errorf("delete secret: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO secrets (key, value, updated_at) VALUES ($1, $2, now())`,
			key, value,
		); err != nil {
			return fmt.Errorf("insert secret: %w", err)
		}
		return nil
	})
}

func (s *SecretStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM secrets WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get secret: %w", err)
	}
	return value, nil
}

func (s *SecretStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM secrets WHERE key = $1`, key); err != nil {
		return fmt.Errorf("delete secret: %w", err)
	}
	return nil
}
