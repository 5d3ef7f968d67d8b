package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/scorelink/internal/core/domain"
)

// MockSecretStore is a mock implementation of SecretStore for testing.
// PutErr, GetErr and DeleteErr force failures; a failed Put leaves the stored value untouched.
type MockSecretStore struct {
	mu     sync.RWMutex
	values map[string][]byte

	PutErr    error
	GetErr    error
	DeleteErr error

	puts int
}

// NewMockSecretStore creates a new MockSecretStore
func NewMockSecretStore() *MockSecretStore {
	return &MockSecretStore{
		values: make(map[string][]byte),
	}
}

func (m *MockSecretStore) Put(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PutErr != nil {
		return m.PutErr
	}
	m.values[key] = append([]byte(nil), value...)
	m.puts++
	return nil
}

func (m *MockSecretStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	v, ok := m.values[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MockSecretStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	delete(m.values, key)
	return nil
}

// Has reports whether a value is stored under key (for test assertions)
func (m *MockSecretStore) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.values[key]
	return ok
}

// Raw returns the stored bytes, ignoring GetErr
func (m *MockSecretStore) Raw(key string) []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.values[key]
}

// PutCount returns the number of successful writes
func (m *MockSecretStore) PutCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.puts
}
