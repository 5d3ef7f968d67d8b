package leaderboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tidwall/gjson"

	"github.com/custodia-labs/scorelink/internal/core/domain"
	"github.com/custodia-labs/scorelink/internal/core/ports/driven"
)

// Ensure Client implements Leaderboard
var _ driven.Leaderboard = (*Client)(nil)

// bearerLifetime bounds how long a signed request token is accepted.
const bearerLifetime = 5 * time.Minute

const maxErrorBodySize = 64 << 10

// Config holds leaderboard backend settings.
type Config struct {
	// BaseURL is the backend root, e.g. https://games.example.com/api
	BaseURL string

	LeaderboardID string
	PlayerID      string

	// Secret is the HS256 key shared with the backend.
	Secret string

	HTTPClient *http.Client
	Now        func() time.Time
	Logger     *slog.Logger
}

// Client talks to the leaderboard backend over HTTP JSON.
// Every request carries a short-lived HS256 JWT naming the player and board.
type Client struct {
	baseURL       *url.URL
	leaderboardID string
	playerID      string
	secret        []byte
	httpClient    *http.Client
	now           func() time.Time
	logger        *slog.Logger
}

// scoreClaims identifies who is submitting to which board
type scoreClaims struct {
	LeaderboardID string `json:"leaderboard_id"`
	jwt.RegisteredClaims
}

// NewClient creates a leaderboard client.
func NewClient(cfg Config) (*Client, error) {
	u, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse leaderboard url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: leaderboard url %q must be absolute", domain.ErrInvalidInput, cfg.BaseURL)
	}
	if cfg.Secret == "" {
		return nil, fmt.Errorf("%w: leaderboard secret is required", domain.ErrInvalidInput)
	}

	c := &Client{
		baseURL:       u,
		leaderboardID: cfg.LeaderboardID,
		playerID:      cfg.PlayerID,
		secret:        []byte(cfg.Secret),
		httpClient:    cfg.HTTPClient,
		now:           cfg.Now,
		logger:        cfg.Logger,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c, nil
}

type scoreRequest struct {
	LeaderboardID string    `json:"leaderboardId"`
	PlayerID      string    `json:"playerId"`
	Value         int64     `json:"value"`
	WindowStart   time.Time `json:"windowStart"`
	SubmittedAt   time.Time `json:"submittedAt"`
}

// SubmitScore posts a score to /scores.
func (c *Client) SubmitScore(ctx context.Context, score *domain.Score) error {
	body, err := json.Marshal(scoreRequest{
		LeaderboardID: score.LeaderboardID,
		PlayerID:      score.PlayerID,
		Value:         score.Value,
		WindowStart:   score.WindowStart,
		SubmittedAt:   score.SubmittedAt,
	})
	if err != nil {
		return fmt.Errorf("encode score: %w", err)
	}
	return c.do(ctx, http.MethodPost, c.endpoint("/scores", nil), body, nil)
}

// Entries fetches /leaderboard?window=&metric=
func (c *Client) Entries(ctx context.Context, window, metric string) ([]*domain.LeaderboardEntry, error) {
	params := url.Values{"window": {window}, "metric": {metric}}

	var entries []*domain.LeaderboardEntry
	if err := c.do(ctx, http.MethodGet, c.endpoint("/leaderboard", params), nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Friends fetches /friends
func (c *Client) Friends(ctx context.Context) ([]*domain.Friend, error) {
	var friends []*domain.Friend
	if err := c.do(ctx, http.MethodGet, c.endpoint("/friends", nil), nil, &friends); err != nil {
		return nil, err
	}
	return friends, nil
}

// bearer signs a request token for the configured player.
func (c *Client) bearer() (string, error) {
	now := c.now()
	claims := scoreClaims{
		LeaderboardID: c.leaderboardID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   c.playerID,
			Audience:  jwt.ClaimStrings{c.leaderboardID},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(bearerLifetime)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

func (c *Client) endpoint(path string, params url.Values) string {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	u.RawQuery = params.Encode()
	return u.String()
}

func (c *Client) do(ctx context.Context, method, rawURL string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	token, err := c.bearer()
	if err != nil {
		return fmt.Errorf("sign request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		c.logger.Debug("leaderboard request failed", "path", req.URL.Path, "status", resp.StatusCode)
		return &domain.UpstreamError{Status: resp.StatusCode, Message: errorMessage(data)}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func errorMessage(body []byte) string {
	for _, path := range []string{"error.message", "message", "error"} {
		if r := gjson.GetBytes(body, path); r.Type == gjson.String {
			return r.String()
		}
	}
	return ""
}
