package mocks

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/custodia-labs/scorelink/internal/core/domain"
)

// MockCatalogAPI is a mock implementation of CatalogAPI for testing.
// Pages are served from an in-memory map keyed by page URL.
type MockCatalogAPI struct {
	mu sync.Mutex

	Pages   map[string]*domain.Page[*domain.Album]
	PageErr map[string]error

	SearchArtistsFn  func(ctx context.Context, accessToken, query string, limit int) ([]*domain.Artist, error)
	RecentlyPlayedFn func(ctx context.Context, accessToken string, limit int) ([]*domain.PlayHistoryItem, error)

	requests []string
	tokens   []string
}

// NewMockCatalogAPI creates a new MockCatalogAPI
func NewMockCatalogAPI() *MockCatalogAPI {
	return &MockCatalogAPI{
		Pages:   make(map[string]*domain.Page[*domain.Album]),
		PageErr: make(map[string]error),
	}
}

func (m *MockCatalogAPI) SearchArtists(ctx context.Context, accessToken, query string, limit int) ([]*domain.Artist, error) {
	m.record("search:"+query, accessToken)
	if m.SearchArtistsFn != nil {
		return m.SearchArtistsFn(ctx, accessToken, query, limit)
	}
	return []*domain.Artist{}, nil
}

// ArtistAlbumsURL returns a deterministic fake URL for the first page
func (m *MockCatalogAPI) ArtistAlbumsURL(artistID string, query domain.AlbumQuery) string {
	params := url.Values{}
	params.Set("include_groups", strings.Join(query.IncludeGroups, ","))
	params.Set("limit", strconv.Itoa(query.Limit))
	return "mock://artists/" + artistID + "/albums?" + params.Encode()
}

func (m *MockCatalogAPI) AlbumPage(ctx context.Context, accessToken, pageURL string) (*domain.Page[*domain.Album], error) {
	m.record(pageURL, accessToken)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.PageErr[pageURL]; ok {
		return nil, err
	}
	page, ok := m.Pages[pageURL]
	if !ok {
		return &domain.Page[*domain.Album]{}, nil
	}
	return page, nil
}

func (m *MockCatalogAPI) RecentlyPlayed(ctx context.Context, accessToken string, limit int) ([]*domain.PlayHistoryItem, error) {
	m.record("recently-played", accessToken)
	if m.RecentlyPlayedFn != nil {
		return m.RecentlyPlayedFn(ctx, accessToken, limit)
	}
	return []*domain.PlayHistoryItem{}, nil
}

func (m *MockCatalogAPI) record(req, token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	m.tokens = append(m.tokens, token)
}

// Requests returns every request made, in order
func (m *MockCatalogAPI) Requests() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.requests...)
}

// Tokens returns the bearer token used for each request, in order
func (m *MockCatalogAPI) Tokens() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.tokens...)
}
