package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/custodia-labs/scorelink/internal/core/domain"
	"github.com/custodia-labs/scorelink/internal/core/ports/driven"
	"github.com/custodia-labs/scorelink/internal/core/ports/driving"
)

// Ensure TokenService implements driving.TokenService
var _ driving.TokenService = (*TokenService)(nil)

// DefaultTokenRecordKey is the secret-store key holding the token record
const DefaultTokenRecordKey = "spotify_tokens"

const (
	defaultRefreshLockTTL   = 30 * time.Second
	refreshLockPollInterval = 100 * time.Millisecond
)

// TokenServiceConfig holds configuration for the token service.
type TokenServiceConfig struct {
	// Store persists the token record.
	Store driven.SecretStore

	// Provider performs code and refresh grants.
	Provider driven.OAuthProvider

	// Lock, when set, serializes refreshes across processes sharing Store.
	Lock driven.DistributedLock

	// Key is the record key in Store. Defaults to DefaultTokenRecordKey.
	Key string

	// Margin is how close to expiry a token is refreshed. Defaults to domain.DefaultRefreshMargin.
	Margin time.Duration

	// LockTTL bounds how long a refresh holds (and waits for) Lock.
	LockTTL time.Duration

	// Now overrides the clock in tests.
	Now func() time.Time

	Logger *slog.Logger
}

// TokenService exchanges authorization codes and keeps the access token fresh.
// Every read-decide-write on the stored record runs under mu; concurrent
// refreshes are coalesced into one grant.
type TokenService struct {
	store    driven.SecretStore
	provider driven.OAuthProvider
	lock     driven.DistributedLock
	key      string
	margin   time.Duration
	lockTTL  time.Duration
	now      func() time.Time
	logger   *slog.Logger

	mu       sync.Mutex
	group    singleflight.Group
	rejected atomic.Bool
}

// NewTokenService creates a new token service.
func NewTokenService(cfg TokenServiceConfig) *TokenService {
	s := &TokenService{
		store:    cfg.Store,
		provider: cfg.Provider,
		lock:     cfg.Lock,
		key:      cfg.Key,
		margin:   cfg.Margin,
		lockTTL:  cfg.LockTTL,
		now:      cfg.Now,
		logger:   cfg.Logger,
	}
	if s.key == "" {
		s.key = DefaultTokenRecordKey
	}
	if s.margin <= 0 {
		s.margin = domain.DefaultRefreshMargin
	}
	if s.lockTTL <= 0 {
		s.lockTTL = defaultRefreshLockTTL
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// ExchangeAuthorizationCode exchanges a code and verifier and stores the new record.
func (s *TokenService) ExchangeAuthorizationCode(ctx context.Context, code, codeVerifier string) (*domain.TokenRecord, error) {
	tok, err := s.provider.ExchangeCode(ctx, code, codeVerifier)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrTokenExchange, err)
	}
	if tok.AccessToken == "" || tok.RefreshToken == "" || tok.ExpiresIn <= 0 {
		return nil, fmt.Errorf("%w: incomplete token response", domain.ErrTokenExchange)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record := &domain.TokenRecord{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    s.now().Add(time.Duration(tok.ExpiresIn) * time.Second),
	}
	if err := s.save(ctx, record); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrTokenExchange, err)
	}
	s.rejected.Store(false)

	s.logger.Info("authorization code exchanged", "expires_at", record.ExpiresAt)
	return record, nil
}

// AccessToken returns a token that stays valid for at least the refresh margin.
func (s *TokenService) AccessToken(ctx context.Context) (string, error) {
	record, err := s.load(ctx)
	if err != nil {
		return "", err
	}
	if !record.NeedsRefresh(s.now(), s.margin) {
		return record.AccessToken, nil
	}

	// The shared refresh outlives any single caller's cancellation.
	flightCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(s.key, func() (any, error) {
		return s.refresh(flightCtx)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// refresh runs the refresh grant under mu, re-reading the record first so a
// token written by a concurrent exchange or refresh is used instead.
func (s *TokenService) refresh(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lock != nil {
		release, err := s.acquireRefreshLock(ctx)
		if err != nil {
			return "", fmt.Errorf("%w: %w", domain.ErrRefresh, err)
		}
		defer release()
	}

	record, err := s.load(ctx)
	if err != nil {
		return "", err
	}
	if !record.NeedsRefresh(s.now(), s.margin) {
		return record.AccessToken, nil
	}

	tok, err := s.provider.RefreshToken(ctx, record.RefreshToken)
	if err != nil {
		s.logger.Warn("token refresh failed", "error", err)
		return "", fmt.Errorf("%w: %w", domain.ErrRefresh, err)
	}
	if tok.AccessToken == "" || tok.ExpiresIn <= 0 {
		return "", fmt.Errorf("%w: incomplete token response", domain.ErrRefresh)
	}

	next := record.WithRefresh(tok.AccessToken, tok.RefreshToken, s.now().Add(time.Duration(tok.ExpiresIn)*time.Second))
	if err := s.save(ctx, next); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrRefresh, err)
	}

	s.logger.Info("access token refreshed",
		"expires_at", next.ExpiresAt,
		"refresh_token_rotated", tok.RefreshToken != "")
	return next.AccessToken, nil
}

// acquireRefreshLock polls the distributed lock until it is held or lockTTL passes.
func (s *TokenService) acquireRefreshLock(ctx context.Context) (func(), error) {
	name := "token-refresh:" + s.key
	waitCtx, cancel := context.WithTimeout(ctx, s.lockTTL)
	defer cancel()

	ticker := time.NewTicker(refreshLockPollInterval)
	defer ticker.Stop()

	for {
		acquired, err := s.lock.Acquire(waitCtx, name, s.lockTTL)
		if err != nil {
			return nil, fmt.Errorf("acquire refresh lock: %w", err)
		}
		if acquired {
			return func() {
				if err := s.lock.Release(ctx, name); err != nil {
					s.logger.Warn("failed to release refresh lock", "lock", name, "error", err)
				}
			}, nil
		}

		select {
		case <-waitCtx.Done():
			return nil, fmt.Errorf("acquire refresh lock: %w", waitCtx.Err())
		case <-ticker.C:
		}
	}
}

// MarkRejected records a 401 from the resource server. The stored record is kept.
func (s *TokenService) MarkRejected(ctx context.Context) {
	if !s.rejected.Swap(true) {
		s.logger.Warn("access token rejected by resource server; reconnect required")
	}
}

// Disconnect deletes the stored record.
func (s *TokenService) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("delete token record: %w", err)
	}
	s.rejected.Store(false)

	s.logger.Info("disconnected")
	return nil
}

// Status reports whether a usable session exists.
func (s *TokenService) Status(ctx context.Context) (*domain.ConnectionStatus, error) {
	record, err := s.load(ctx)
	if errors.Is(err, domain.ErrNotConnected) {
		return &domain.ConnectionStatus{Connected: false}, nil
	}
	if err != nil {
		return nil, err
	}

	expiresAt := record.ExpiresAt
	rejected := s.rejected.Load()
	return &domain.ConnectionStatus{
		Connected: !rejected,
		Rejected:  rejected,
		ExpiresAt: &expiresAt,
	}, nil
}

func (s *TokenService) load(ctx context.Context) (*domain.TokenRecord, error) {
	data, err := s.store.Get(ctx, s.key)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrNotConnected
	}
	if err != nil {
		return nil, fmt.Errorf("load token record: %w", err)
	}

	var record domain.TokenRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("decode token record: %w", err)
	}
	return &record, nil
}

func (s *TokenService) save(ctx context.Context, record *domain.TokenRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode token record: %w", err)
	}
	if err := s.store.Put(ctx, s.key, data); err != nil {
		return fmt.Errorf("store token record: %w", err)
	}
	return nil
}
