package domain

import "time"

// DefaultRefreshMargin is how long before expiry an access token stops being served from cache.
const DefaultRefreshMargin = 60 * time.Second

// TokenRecord is the single persisted credential set for the streaming-service session.
type TokenRecord struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// IsExpired checks if the access token has expired at now
func (t *TokenRecord) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// NeedsRefresh reports whether the access token expires within margin of now.
// A token expiring exactly at now+margin is refreshed.
func (t *TokenRecord) NeedsRefresh(now time.Time, margin time.Duration) bool {
	return !t.ExpiresAt.After(now.Add(margin))
}

// WithRefresh builds the record that replaces t after a refresh-token grant.
// The existing refresh token is carried forward unless the endpoint issued a new one.
func (t *TokenRecord) WithRefresh(accessToken, refreshToken string, expiresAt time.Time) *TokenRecord {
	next := &TokenRecord{
		AccessToken:  accessToken,
		RefreshToken: t.RefreshToken,
		ExpiresAt:    expiresAt,
	}
	if refreshToken != "" {
		next.RefreshToken = refreshToken
	}
	return next
}

// ConnectionStatus is the externally visible session state
type ConnectionStatus struct {
	Connected bool       `json:"connected"`
	Rejected  bool       `json:"rejected,omitempty"` // Resource server returned 401; reconnect required
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}
