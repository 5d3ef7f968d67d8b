package driving

import (
	"context"

	"github.com/custodia-labs/scorelink/internal/core/domain"
)

// TokenService owns the streaming-service token lifecycle
type TokenService interface {
	// ExchangeAuthorizationCode exchanges a code and PKCE verifier, persisting the
	// resulting record in place of any existing one.
	// Fails with domain.ErrTokenExchange.
	ExchangeAuthorizationCode(ctx context.Context, code, codeVerifier string) (*domain.TokenRecord, error)

	// AccessToken returns an access token valid for at least the refresh margin,
	// refreshing it first when needed.
	// Fails with domain.ErrNotConnected when no record exists, domain.ErrRefresh when refresh fails.
	AccessToken(ctx context.Context) (string, error)

	// MarkRejected records that the resource server returned 401 for the current token.
	// The stored record is kept; Status reports the session as not connected until
	// Disconnect or a new exchange.
	MarkRejected(ctx context.Context)

	// Disconnect deletes the stored record
	Disconnect(ctx context.Context) error

	// Status reports whether a usable session exists
	Status(ctx context.Context) (*domain.ConnectionStatus, error)
}
