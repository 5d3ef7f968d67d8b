package mocks

import (
	"context"
	"sync"
)

// MockUserAgent records the URLs it was asked to open
type MockUserAgent struct {
	mu     sync.Mutex
	opened []string

	OpenErr error
}

// NewMockUserAgent creates a new MockUserAgent
func NewMockUserAgent() *MockUserAgent {
	return &MockUserAgent{}
}

func (m *MockUserAgent) Open(ctx context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.OpenErr != nil {
		return m.OpenErr
	}
	m.opened = append(m.opened, url)
	return nil
}

// LastURL returns the most recently opened URL, or "" when none
func (m *MockUserAgent) LastURL() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.opened) == 0 {
		return ""
	}
	return m.opened[len(m.opened)-1]
}

// Opened returns every URL opened so far
func (m *MockUserAgent) Opened() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.opened...)
}
