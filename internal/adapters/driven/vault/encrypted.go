package vault

import (
	"context"
	"fmt"

	"github.com/custodia-labs/scorelink/internal/core/ports/driven"
)

// Ensure EncryptedStore implements SecretStore
var _ driven.SecretStore = (*EncryptedStore)(nil)

// EncryptedStore encrypts values before handing them to the wrapped store.
type EncryptedStore struct {
	inner  driven.SecretStore
	cipher *Cipher
}

// NewEncryptedStore wraps inner with AES-256-GCM under the given cipher.
func NewEncryptedStore(inner driven.SecretStore, c *Cipher) *EncryptedStore {
	return &EncryptedStore{inner: inner, cipher: c}
}

// NewEncryptedStoreFromPassphrase derives the key from passphrase and wraps inner.
func NewEncryptedStoreFromPassphrase(inner driven.SecretStore, passphrase string) (*EncryptedStore, error) {
	key, err := DeriveKey(passphrase)
	if err != nil {
		return nil, err
	}
	c, err := NewCipher(key)
	if err != nil {
		return nil, err
	}
	return NewEncryptedStore(inner, c), nil
}

func (s *EncryptedStore) Put(ctx context.Context, key string, value []byte) error {
	blob, err := s.cipher.Seal(key, value)
	if err != nil {
		return fmt.Errorf("encrypt secret: %w", err)
	}
	return s.inner.Put(ctx, key, blob)
}

func (s *EncryptedStore) Get(ctx context.Context, key string) ([]byte, error) {
	blob, err := s.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	value, err := s.cipher.Open(key, blob)
	if err != nil {
		return nil, fmt.Errorf("decrypt secret: %w", err)
	}
	return value, nil
}

func (s *EncryptedStore) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, key)
}
