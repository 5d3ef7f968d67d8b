package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/custodia-labs/scorelink/internal/core/domain"
	"github.com/custodia-labs/scorelink/internal/core/ports/driven"
)

// Ensure Client implements the interface.
var _ driven.CatalogAPI = (*Client)(nil)

// DefaultBaseURL is the Web API root
const DefaultBaseURL = "https://api.spotify.com/v1"

const maxErrorBodySize = 64 << 10

// Client provides Web API catalog operations. Requests are never retried;
// rate limits surface as *domain.UpstreamError with RetryAfter set.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	logger     *slog.Logger
}

// NewClient creates a new Web API client.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: base url %q must be absolute", domain.ErrInvalidInput, baseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{httpClient: httpClient, baseURL: u, logger: logger}, nil
}

// SearchArtists searches the catalog for artists.
func (c *Client) SearchArtists(ctx context.Context, accessToken, query string, limit int) ([]*domain.Artist, error) {
	params := url.Values{
		"q":     {query},
		"type":  {"artist"},
		"limit": {strconv.Itoa(limit)},
	}

	var resp searchResponse
	if err := c.get(ctx, accessToken, c.endpoint("/search", params), &resp); err != nil {
		return nil, err
	}

	artists := make([]*domain.Artist, 0, len(resp.Artists.Items))
	for i := range resp.Artists.Items {
		artists = append(artists, resp.Artists.Items[i].toDomain())
	}
	return artists, nil
}

// ArtistAlbumsURL returns the first page URL of an artist's albums.
func (c *Client) ArtistAlbumsURL(artistID string, query domain.AlbumQuery) string {
	params := url.Values{}
	if len(query.IncludeGroups) > 0 {
		params.Set("include_groups", strings.Join(query.IncludeGroups, ","))
	}
	if query.Market != "" {
		params.Set("market", query.Market)
	}
	if query.Limit > 0 {
		params.Set("limit", strconv.Itoa(query.Limit))
	}
	return c.endpoint("/artists/"+url.PathEscape(artistID)+"/albums", params)
}

// AlbumPage fetches one page of albums.
func (c *Client) AlbumPage(ctx context.Context, accessToken, pageURL string) (*domain.Page[*domain.Album], error) {
	if err := c.checkOrigin(pageURL); err != nil {
		return nil, err
	}

	var resp paging[albumObject]
	if err := c.get(ctx, accessToken, pageURL, &resp); err != nil {
		return nil, err
	}

	page := &domain.Page[*domain.Album]{
		Items: make([]*domain.Album, 0, len(resp.Items)),
		Next:  resp.Next,
	}
	for i := range resp.Items {
		page.Items = append(page.Items, resp.Items[i].toDomain())
	}
	return page, nil
}

// RecentlyPlayed returns the user's most recent plays.
func (c *Client) RecentlyPlayed(ctx context.Context, accessToken string, limit int) ([]*domain.PlayHistoryItem, error) {
	params := url.Values{"limit": {strconv.Itoa(limit)}}

	var resp paging[playHistoryObject]
	if err := c.get(ctx, accessToken, c.endpoint("/me/player/recently-played", params), &resp); err != nil {
		return nil, err
	}

	items := make([]*domain.PlayHistoryItem, 0, len(resp.Items))
	for i := range resp.Items {
		item, err := resp.Items[i].toDomain()
		if err != nil {
			return nil, fmt.Errorf("decode play history: %w", err)
		}
		items = append(items, item)
	}
	return items, nil
}

func (c *Client) endpoint(path string, params url.Values) string {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	u.RawQuery = params.Encode()
	return u.String()
}

// checkOrigin refuses to send the bearer token to a host other than the API's.
func (c *Client) checkOrigin(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: page url: %w", domain.ErrInvalidInput, err)
	}
	if u.Scheme != c.baseURL.Scheme || u.Host != c.baseURL.Host {
		return fmt.Errorf("%w: page url %q is outside %s://%s",
			domain.ErrInvalidInput, rawURL, c.baseURL.Scheme, c.baseURL.Host)
	}
	return nil
}

// get performs an authenticated GET and decodes a 2xx JSON body into out.
func (c *Client) get(ctx context.Context, accessToken, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodySize))
		return domain.ErrTokenRejected
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		upstream := &domain.UpstreamError{
			Status:     resp.StatusCode,
			Message:    apiErrorMessage(body),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
		}
		c.logger.Debug("api request failed", "path", req.URL.Path, "status", resp.StatusCode)
		return upstream
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// apiErrorMessage reads the {"error":{"status","message"}} envelope.
func apiErrorMessage(body []byte) string {
	if msg := gjson.GetBytes(body, "error.message"); msg.Exists() {
		return msg.String()
	}
	if msg := gjson.GetBytes(body, "error_description"); msg.Exists() {
		return msg.String()
	}
	if msg := gjson.GetBytes(body, "error"); msg.Type == gjson.String {
		return msg.String()
	}
	return ""
}

// parseRetryAfter accepts delay-seconds or an HTTP date.
func parseRetryAfter(value string, now time.Time) time.Duration {
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}
