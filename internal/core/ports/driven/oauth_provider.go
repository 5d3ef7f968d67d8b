package driven

import "context"

// OAuthToken is the token endpoint's response to a code or refresh grant
type OAuthToken struct {
	AccessToken  string
	RefreshToken string // Empty when a refresh grant did not rotate the refresh token
	TokenType    string
	Scope        string
	ExpiresIn    int // Seconds
}

// OAuthProvider talks to the streaming service's authorization server
type OAuthProvider interface {
	// AuthCodeURL builds the authorization-endpoint URL for one attempt
	AuthCodeURL(state, codeChallenge string) string

	// ExchangeCode exchanges an authorization code and PKCE verifier for tokens.
	// Codes are single-use; callers must not retry.
	ExchangeCode(ctx context.Context, code, codeVerifier string) (*OAuthToken, error)

	// RefreshToken runs the refresh-token grant
	RefreshToken(ctx context.Context, refreshToken string) (*OAuthToken, error)
}
