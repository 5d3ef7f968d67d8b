package mocks

import (
	"context"
	"net/url"
	"sync"

	"github.com/custodia-labs/scorelink/internal/core/ports/driven"
)

// MockOAuthProvider is a mock implementation of OAuthProvider for testing.
// Behaviour is injected through the Fn fields; calls are counted.
type MockOAuthProvider struct {
	mu sync.Mutex

	AuthURL        string
	ExchangeCodeFn func(ctx context.Context, code, codeVerifier string) (*driven.OAuthToken, error)
	RefreshTokenFn func(ctx context.Context, refreshToken string) (*driven.OAuthToken, error)

	exchangeCalls int
	refreshCalls  int
	lastVerifier  string
}

// NewMockOAuthProvider creates a new MockOAuthProvider
func NewMockOAuthProvider() *MockOAuthProvider {
	return &MockOAuthProvider{AuthURL: "https://accounts.example.com/authorize"}
}

// AuthCodeURL returns AuthURL with state and code_challenge query parameters
func (m *MockOAuthProvider) AuthCodeURL(state, codeChallenge string) string {
	params := url.Values{}
	params.Set("state", state)
	params.Set("code_challenge", codeChallenge)
	params.Set("code_challenge_method", "S256")
	return m.AuthURL + "?" + params.Encode()
}

func (m *MockOAuthProvider) ExchangeCode(ctx context.Context, code, codeVerifier string) (*driven.OAuthToken, error) {
	m.mu.Lock()
	m.exchangeCalls++
	m.lastVerifier = codeVerifier
	fn := m.ExchangeCodeFn
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, code, codeVerifier)
	}
	return &driven.OAuthToken{AccessToken: "access-" + code, RefreshToken: "refresh-" + code, ExpiresIn: 3600}, nil
}

func (m *MockOAuthProvider) RefreshToken(ctx context.Context, refreshToken string) (*driven.OAuthToken, error) {
	m.mu.Lock()
	m.refreshCalls++
	fn := m.RefreshTokenFn
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, refreshToken)
	}
	return &driven.OAuthToken{AccessToken: "refreshed-access", ExpiresIn: 3600}, nil
}

// ExchangeCalls returns the number of ExchangeCode calls
func (m *MockOAuthProvider) ExchangeCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exchangeCalls
}

// RefreshCalls returns the number of RefreshToken calls
func (m *MockOAuthProvider) RefreshCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshCalls
}

// LastVerifier returns the verifier passed to the last ExchangeCode call
func (m *MockOAuthProvider) LastVerifier() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastVerifier
}
