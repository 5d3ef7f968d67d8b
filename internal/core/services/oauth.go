package services

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/scorelink/internal/core/domain"
	"github.com/custodia-labs/scorelink/internal/core/ports/driven"
	"github.com/custodia-labs/scorelink/internal/core/ports/driving"
)

// Ensure AuthorizationFlow implements driving.AuthorizationFlow
var _ driving.AuthorizationFlow = (*AuthorizationFlow)(nil)

// DefaultAuthorizationTimeout is how long an attempt waits for its redirect.
const DefaultAuthorizationTimeout = 5 * time.Minute

// AuthorizationFlowConfig holds configuration for the authorization flow.
type AuthorizationFlowConfig struct {
	// Provider builds authorization URLs.
	Provider driven.OAuthProvider

	// Tokens completes the code exchange.
	Tokens driving.TokenService

	// UserAgent shows the authorization page to the user.
	UserAgent driven.UserAgent

	// PKCE generates the per-attempt verifier. Defaults to 64-character verifiers.
	PKCE *PKCEGenerator

	// Timeout is how long to wait for the redirect. Defaults to DefaultAuthorizationTimeout.
	Timeout time.Duration

	// NewState generates the anti-forgery state value. Defaults to a random UUID.
	NewState func() string

	Now    func() time.Time
	Logger *slog.Logger
}

// attempt is one authorization attempt. pkce is cleared as soon as the
// attempt leaves awaiting_redirect so the verifier is never reused.
type attempt struct {
	state string
	pkce  *domain.PKCEPair
	timer *time.Timer
	done  chan struct{}
}

// AuthorizationFlow is the PKCE authorization state machine.
type AuthorizationFlow struct {
	provider  driven.OAuthProvider
	tokens    driving.TokenService
	userAgent driven.UserAgent
	pkce      *PKCEGenerator
	timeout   time.Duration
	newState  func() string
	now       func() time.Time
	logger    *slog.Logger

	mu      sync.Mutex
	state   domain.FlowState
	err     error
	current *attempt
	done    chan struct{} // closed when the latest attempt stops pending
}

// NewAuthorizationFlow creates a new authorization flow in the idle state.
func NewAuthorizationFlow(cfg AuthorizationFlowConfig) *AuthorizationFlow {
	f := &AuthorizationFlow{
		provider:  cfg.Provider,
		tokens:    cfg.Tokens,
		userAgent: cfg.UserAgent,
		pkce:      cfg.PKCE,
		timeout:   cfg.Timeout,
		newState:  cfg.NewState,
		now:       cfg.Now,
		logger:    cfg.Logger,
		state:     domain.FlowStateIdle,
	}
	if f.pkce == nil {
		f.pkce, _ = NewPKCEGenerator(domain.DefaultVerifierLength, nil)
	}
	if f.timeout <= 0 {
		f.timeout = DefaultAuthorizationTimeout
	}
	if f.newState == nil {
		f.newState = uuid.NewString
	}
	if f.now == nil {
		f.now = time.Now
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	return f
}

// Begin starts a new attempt and opens the authorization page.
func (f *AuthorizationFlow) Begin(ctx context.Context) (*driving.AuthorizeResponse, error) {
	f.mu.Lock()
	if f.state.IsPending() {
		f.mu.Unlock()
		return nil, domain.ErrFlowInProgress
	}

	pair := f.pkce.Generate()
	a := &attempt{
		state: f.newState(),
		pkce:  &pair,
		done:  make(chan struct{}),
	}
	authURL := f.provider.AuthCodeURL(a.state, pair.Challenge)
	expiresAt := f.now().Add(f.timeout)
	a.timer = time.AfterFunc(f.timeout, func() { f.expire(a) })

	f.current = a
	f.done = a.done
	f.state = domain.FlowStateAwaitingRedirect
	f.err = nil
	f.mu.Unlock()

	f.logger.Info("authorization started", "expires_at", expiresAt)

	if err := f.userAgent.Open(ctx, authURL); err != nil {
		err = fmt.Errorf("open authorization page: %w", err)
		f.fail(a, err)
		return nil, err
	}

	return &driving.AuthorizeResponse{
		AuthorizationURL: authURL,
		State:            a.state,
		ExpiresAt:        expiresAt,
	}, nil
}

// OnRedirect validates the redirect and exchanges its code.
func (f *AuthorizationFlow) OnRedirect(ctx context.Context, redirectURL string) error {
	f.mu.Lock()
	a := f.current
	if f.state != domain.FlowStateAwaitingRedirect || a == nil {
		f.mu.Unlock()
		return domain.ErrNoPendingAuthorization
	}

	code, err := parseRedirect(redirectURL, a.state)
	if err != nil {
		f.finishLocked(a, domain.FlowStateFailed, err)
		f.mu.Unlock()
		f.logger.Warn("authorization redirect rejected", "error", err)
		return err
	}

	verifier := a.pkce.Verifier
	a.pkce = nil
	a.timer.Stop()
	f.state = domain.FlowStateExchanging
	f.mu.Unlock()

	if _, err := f.tokens.ExchangeAuthorizationCode(ctx, code, verifier); err != nil {
		f.fail(a, err)
		f.logger.Warn("authorization code exchange failed", "error", err)
		return err
	}

	f.mu.Lock()
	if f.current == a {
		f.finishLocked(a, domain.FlowStateConnected, nil)
	}
	f.mu.Unlock()

	f.logger.Info("authorization completed")
	return nil
}

// parseRedirect checks the redirect in order: URL, state, provider error, code.
func parseRedirect(redirectURL, wantState string) (string, error) {
	u, err := url.Parse(redirectURL)
	if err != nil {
		return "", fmt.Errorf("%w: parse redirect: %w", domain.ErrInvalidInput, err)
	}
	q := u.Query()

	if subtle.ConstantTimeCompare([]byte(q.Get("state")), []byte(wantState)) != 1 {
		return "", domain.ErrStateMismatch
	}
	if e := q.Get("error"); e != "" {
		return "", &domain.OAuthError{Code: e, Description: q.Get("error_description")}
	}

	code := q.Get("code")
	if code == "" {
		return "", domain.ErrMissingCode
	}
	return code, nil
}

// Cancel abandons an attempt that is still waiting for its redirect.
func (f *AuthorizationFlow) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != domain.FlowStateAwaitingRedirect || f.current == nil {
		return
	}
	f.finishLocked(f.current, domain.FlowStateIdle, nil)
	f.logger.Info("authorization cancelled")
}

// Reset returns a connected or failed flow to idle.
func (f *AuthorizationFlow) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state.IsTerminal() {
		f.state = domain.FlowStateIdle
		f.err = nil
	}
}

// State returns the current state
func (f *AuthorizationFlow) State() domain.FlowState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Err returns the error of a failed attempt
func (f *AuthorizationFlow) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Wait blocks until the current attempt is no longer pending.
func (f *AuthorizationFlow) Wait(ctx context.Context) (domain.FlowState, error) {
	f.mu.Lock()
	if !f.state.IsPending() {
		state, err := f.state, f.err
		f.mu.Unlock()
		return state, err
	}
	done := f.done
	f.mu.Unlock()

	select {
	case <-ctx.Done():
		return f.State(), ctx.Err()
	case <-done:
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state, f.err
}

func (f *AuthorizationFlow) expire(a *attempt) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.current != a || f.state != domain.FlowStateAwaitingRedirect {
		return
	}
	f.finishLocked(a, domain.FlowStateFailed, domain.ErrTimeout)
	f.logger.Warn("authorization timed out")
}

func (f *AuthorizationFlow) fail(a *attempt, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == a {
		f.finishLocked(a, domain.FlowStateFailed, err)
	}
}

// finishLocked ends attempt a. Callers hold f.mu.
func (f *AuthorizationFlow) finishLocked(a *attempt, state domain.FlowState, err error) {
	a.timer.Stop()
	a.pkce = nil
	f.current = nil
	f.state = state
	f.err = err
	close(a.done)
}
