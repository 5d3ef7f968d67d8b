package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/scorelink/internal/core/domain"
)

// AuthorizationFlow drives one PKCE authorization attempt at a time:
// idle -> awaiting_redirect -> exchanging -> connected, or failed at any pending step.
type AuthorizationFlow interface {
	// Begin starts an attempt and hands the authorization URL to the user agent.
	// Returns domain.ErrFlowInProgress while another attempt is pending.
	Begin(ctx context.Context) (*AuthorizeResponse, error)

	// OnRedirect completes the attempt from the URL the user agent was redirected to.
	// Returns domain.ErrNoPendingAuthorization when no attempt is awaiting a redirect.
	OnRedirect(ctx context.Context, redirectURL string) error

	// Cancel abandons an attempt awaiting its redirect and returns to idle.
	Cancel()

	// Reset returns a finished attempt to idle
	Reset()

	// State returns the current state
	State() domain.FlowState

	// Err returns the error that moved the flow to failed, if any
	Err() error

	// Wait blocks until the current attempt is no longer pending
	Wait(ctx context.Context) (domain.FlowState, error)
}

// AuthorizeResponse contains the authorization URL and state.
// @Description Response containing the authorization URL
type AuthorizeResponse struct {
	// AuthorizationURL is the URL the user agent was sent to
	AuthorizationURL string `json:"authorization_url" example:"https://accounts.spotify.com/authorize?client_id=..."`

	// State is the anti-forgery value expected back on the redirect
	State string `json:"state" example:"5f1c9a7e-2b61-4c1f-9f3e-0d7c8a2b4e11"`

	// ExpiresAt is when the attempt times out
	ExpiresAt time.Time `json:"expires_at" example:"2024-01-15T10:05:00Z"`
}

// FlowStatus is the externally visible authorization flow state.
// @Description Authorization flow state
type FlowStatus struct {
	State domain.FlowState `json:"state" example:"awaiting_redirect"`
	Error string           `json:"error,omitempty"`
}
