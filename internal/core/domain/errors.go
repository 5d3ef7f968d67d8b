package domain

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested record was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotConnected indicates no token record exists; the authorization flow must be restarted
	ErrNotConnected = errors.New("not connected")

	// ErrTokenExchange indicates the authorization code could not be exchanged for tokens
	ErrTokenExchange = errors.New("token exchange failed")

	// ErrRefresh indicates the refresh-token grant failed
	ErrRefresh = errors.New("token refresh failed")

	// ErrTokenRejected indicates the resource server returned 401 for a locally valid token
	ErrTokenRejected = errors.New("token rejected by resource server")

	// ErrMissingCode indicates the redirect carried no authorization code
	ErrMissingCode = errors.New("authorization code missing from redirect")

	// ErrTimeout indicates no redirect arrived before the authorization attempt expired
	ErrTimeout = errors.New("authorization timed out")

	// ErrStateMismatch indicates the redirect state does not match the one sent
	ErrStateMismatch = errors.New("authorization state mismatch")

	// ErrAuthorizationDenied indicates the provider redirected back with an error parameter
	ErrAuthorizationDenied = errors.New("authorization denied")

	// ErrFlowInProgress indicates an authorization attempt is already pending
	ErrFlowInProgress = errors.New("authorization already in progress")

	// ErrNoPendingAuthorization indicates a redirect arrived with no attempt awaiting it
	ErrNoPendingAuthorization = errors.New("no pending authorization")

	// ErrPaginationLoop indicates a next-page reference pointed at an already fetched page
	ErrPaginationLoop = errors.New("pagination loop detected")
)

// UpstreamError is a non-success, non-401 response from a resource endpoint.
type UpstreamError struct {
	Status  int
	Message string

	// RetryAfter is taken from the Retry-After header when present.
	RetryAfter time.Duration
}

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("upstream error %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("upstream error %d", e.Status)
}

// OAuthError is an error reported by the authorization server on redirect.
type OAuthError struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func (e *OAuthError) Error() string {
	if e.Description != "" {
		return e.Code + ": " + e.Description
	}
	return e.Code
}

// Unwrap lets callers match provider errors with errors.Is(err, ErrAuthorizationDenied).
func (e *OAuthError) Unwrap() error {
	return ErrAuthorizationDenied
}
