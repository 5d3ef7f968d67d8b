package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/cucumber/godog"

	"github.com/custodia-labs/scorelink/internal/core/domain"
	"github.com/custodia-labs/scorelink/internal/core/ports/driven/mocks"
)

// flowWorld is the per-scenario state of the authorization flow feature
type flowWorld struct {
	store     *mocks.MockSecretStore
	provider  *mocks.MockOAuthProvider
	userAgent *mocks.MockUserAgent
	tokens    *TokenService
	timeout   time.Duration
	flow      *AuthorizationFlow
}

func (w *flowWorld) reset() {
	w.store = mocks.NewMockSecretStore()
	w.provider = mocks.NewMockOAuthProvider()
	w.userAgent = mocks.NewMockUserAgent()
	w.tokens = NewTokenService(TokenServiceConfig{Store: w.store, Provider: w.provider})
	w.timeout = time.Minute
	w.flow = nil
}

func (w *flowWorld) ensureFlow() *AuthorizationFlow {
	if w.flow == nil {
		w.flow = NewAuthorizationFlow(AuthorizationFlowConfig{
			Provider:  w.provider,
			Tokens:    w.tokens,
			UserAgent: w.userAgent,
			Timeout:   w.timeout,
			NewState:  func() string { return "expected" },
		})
	}
	return w.flow
}

func (w *flowWorld) accountConnected(accessToken string) error {
	data, err := json.Marshal(domain.TokenRecord{
		AccessToken:  accessToken,
		RefreshToken: "refresh",
		ExpiresAt:    time.Now().Add(time.Hour),
	})
	if err != nil {
		return err
	}
	return w.store.Put(context.Background(), DefaultTokenRecordKey, data)
}

func (w *flowWorld) timeoutIs(ms int) error {
	w.timeout = time.Duration(ms) * time.Millisecond
	return nil
}

func (w *flowWorld) userStarts() error {
	_, err := w.ensureFlow().Begin(context.Background())
	return err
}

func (w *flowWorld) userCancels() error {
	w.ensureFlow().Cancel()
	return nil
}

func (w *flowWorld) userResets() error {
	w.ensureFlow().Reset()
	return nil
}

func (w *flowWorld) userWaits() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, _ = w.ensureFlow().Wait(ctx)
	return ctx.Err()
}

func (w *flowWorld) redirectWithQuery(query string) error {
	// Failures are asserted through the flow state
	_ = w.ensureFlow().OnRedirect(context.Background(), "scorelink://auth/callback?"+query)
	return nil
}

func (w *flowWorld) redirectWithCode(code string) error {
	return w.redirectWithQuery("code=" + url.QueryEscape(code) + "&state=expected")
}

func (w *flowWorld) redirectWithCodeAndState(code, state string) error {
	return w.redirectWithQuery("code=" + url.QueryEscape(code) + "&state=" + url.QueryEscape(state))
}

func (w *flowWorld) flowIs(state string) error {
	if got := w.ensureFlow().State(); string(got) != state {
		return fmt.Errorf("expected flow %q, got %q (err: %v)", state, got, w.flow.Err())
	}
	return nil
}

func (w *flowWorld) flowFailedWith(state, msg string) error {
	if err := w.flowIs(state); err != nil {
		return err
	}
	err := w.flow.Err()
	if err == nil || err.Error() != msg {
		return fmt.Errorf("expected error %q, got %v", msg, err)
	}
	return nil
}

func (w *flowWorld) pageOpenedWithChallenge() error {
	u, err := url.Parse(w.userAgent.LastURL())
	if err != nil {
		return err
	}
	if u.Query().Get("code_challenge_method") != domain.CodeChallengeMethod {
		return fmt.Errorf("expected S256 challenge method in %s", u)
	}
	if u.Query().Get("code_challenge") == "" {
		return fmt.Errorf("missing code_challenge in %s", u)
	}
	return nil
}

func (w *flowWorld) storedAccessToken(want string) error {
	data, err := w.store.Get(context.Background(), DefaultTokenRecordKey)
	if err != nil {
		return err
	}
	var rec domain.TokenRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	if rec.AccessToken != want {
		return fmt.Errorf("expected access token %q, got %q", want, rec.AccessToken)
	}
	return nil
}

func (w *flowWorld) noVerifierHeld() error {
	f := w.ensureFlow()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current != nil && f.current.pkce != nil {
		return fmt.Errorf("verifier still held in state %q", f.state)
	}
	return nil
}

func (w *flowWorld) noAccountConnected() error {
	status, err := w.tokens.Status(context.Background())
	if err != nil {
		return err
	}
	if status.Connected {
		return fmt.Errorf("expected no connected account")
	}
	return nil
}

func initializeFlowScenario(sc *godog.ScenarioContext) {
	w := &flowWorld{}

	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		w.reset()
		return ctx, nil
	})

	sc.Step(`^an account is already connected with access token "([^"]*)"$`, w.accountConnected)
	sc.Step(`^the authorization timeout is (\d+) milliseconds$`, w.timeoutIs)
	sc.Step(`^the user starts authorization$`, w.userStarts)
	sc.Step(`^the user cancels$`, w.userCancels)
	sc.Step(`^the user resets the flow$`, w.userResets)
	sc.Step(`^the user waits for the flow to finish$`, w.userWaits)
	sc.Step(`^the provider redirects with query "([^"]*)"$`, w.redirectWithQuery)
	sc.Step(`^the provider redirects with code "([^"]*)" and the expected state$`, w.redirectWithCode)
	sc.Step(`^the provider redirects with code "([^"]*)" and state "([^"]*)"$`, w.redirectWithCodeAndState)
	sc.Step(`^the flow is "([^"]*)"$`, w.flowIs)
	sc.Step(`^the flow is "([^"]*)" with error "([^"]*)"$`, w.flowFailedWith)
	sc.Step(`^the authorization page was opened with an S256 challenge$`, w.pageOpenedWithChallenge)
	sc.Step(`^the stored access token is "([^"]*)"$`, w.storedAccessToken)
	sc.Step(`^no verifier is held$`, w.noVerifierHeld)
	sc.Step(`^no account is connected$`, w.noAccountConnected)
}

func TestAuthorizationFlowFeatures(t *testing.T) {
	suite := godog.TestSuite{
		Name:                "authorization-flow",
		ScenarioInitializer: initializeFlowScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
			Strict:   true,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
