package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/scorelink/internal/core/domain"
	"github.com/custodia-labs/scorelink/internal/core/ports/driven"
	"github.com/custodia-labs/scorelink/internal/core/ports/driven/mocks"
)

func strPtr(s string) *string { return &s }

type catalogFixture struct {
	tokens *tokenFixture
	api    *mocks.MockCatalogAPI
	svc    *catalogService
}

func newCatalogFixture(t *testing.T) *catalogFixture {
	t.Helper()
	tf := newTokenFixture(t)
	tf.seed(t, domain.TokenRecord{AccessToken: "token-1", RefreshToken: "r", ExpiresAt: testNow.Add(time.Hour)})

	api := mocks.NewMockCatalogAPI()
	svc := NewCatalogService(CatalogServiceConfig{
		Tokens:   tf.svc,
		API:      api,
		Location: time.UTC,
		Now:      tf.clock.Now,
	}).(*catalogService)

	return &catalogFixture{tokens: tf, api: api, svc: svc}
}

func (f *catalogFixture) firstPage(artistID string) string {
	return f.api.ArtistAlbumsURL(artistID, domain.DefaultAlbumQuery())
}

func TestCatalogService_ArtistAlbums_ThreePages(t *testing.T) {
	f := newCatalogFixture(t)
	first := f.firstPage("artist-1")
	f.api.Pages[first] = &domain.Page[*domain.Album]{
		Items: []*domain.Album{{ID: "a", ReleaseDate: strPtr("2020")}},
		Next:  "mock://page2",
	}
	f.api.Pages["mock://page2"] = &domain.Page[*domain.Album]{
		Items: []*domain.Album{{ID: "a", ReleaseDate: strPtr("2021")}, {ID: "b", ReleaseDate: strPtr("2019")}},
		Next:  "mock://page3",
	}
	f.api.Pages["mock://page3"] = &domain.Page[*domain.Album]{
		Items: []*domain.Album{{ID: "c"}},
	}

	albums, err := f.svc.ArtistAlbums(context.Background(), "artist-1", domain.AlbumQuery{})
	require.NoError(t, err)

	assert.Equal(t, []string{first, "mock://page2", "mock://page3"}, f.api.Requests())
	require.Len(t, albums, 3)
	assert.Equal(t, "a", albums[0].ID)
	assert.Equal(t, "2020", *albums[0].ReleaseDate)
	assert.Equal(t, "b", albums[1].ID)
	assert.Equal(t, "c", albums[2].ID)
}

func TestCatalogService_ArtistAlbums_ClampsPageLimit(t *testing.T) {
	f := newCatalogFixture(t)

	_, err := f.svc.ArtistAlbums(context.Background(), "artist-1", domain.AlbumQuery{Limit: 500})
	require.NoError(t, err)

	// The default query already asks for the largest page the API allows
	assert.Equal(t, []string{f.firstPage("artist-1")}, f.api.Requests())
	assert.Contains(t, f.api.Requests()[0], "limit=50")
}

func TestFetchAllPages_ConcatenatesBeforeDedup(t *testing.T) {
	pages := map[string]*domain.Page[*domain.Album]{
		"p1": {Items: []*domain.Album{{ID: "a"}}, Next: "p2"},
		"p2": {Items: []*domain.Album{{ID: "a"}, {ID: "b"}}, Next: "p3"},
		"p3": {Items: []*domain.Album{{ID: "c"}}},
	}
	var calls int
	items, n, err := fetchAllPages(context.Background(), "p1", func(ctx context.Context, pageURL string) (*domain.Page[*domain.Album], error) {
		calls++
		return pages[pageURL], nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, n)

	ids := make([]string, len(items))
	for i, a := range items {
		ids[i] = a.ID
	}
	assert.Equal(t, []string{"a", "a", "b", "c"}, ids)
}

func TestFetchAllPages_Loop(t *testing.T) {
	_, _, err := fetchAllPages(context.Background(), "p1", func(ctx context.Context, pageURL string) (*domain.Page[string], error) {
		if pageURL == "p1" {
			return &domain.Page[string]{Items: []string{"x"}, Next: "p2"}, nil
		}
		return &domain.Page[string]{Items: []string{"y"}, Next: "p1"}, nil
	})
	assert.ErrorIs(t, err, domain.ErrPaginationLoop)
}

func TestCatalogService_ArtistAlbums_RechecksTokenEveryPage(t *testing.T) {
	f := newCatalogFixture(t)
	// 90s left: valid for page 1, inside the margin once the clock moves 40s
	f.tokens.seed(t, domain.TokenRecord{AccessToken: "token-1", RefreshToken: "r", ExpiresAt: testNow.Add(90 * time.Second)})
	f.tokens.provider.RefreshTokenFn = func(ctx context.Context, refreshToken string) (*driven.OAuthToken, error) {
		return &driven.OAuthToken{AccessToken: "token-2", ExpiresIn: 3600}, nil
	}

	first := f.firstPage("artist-1")
	f.api.Pages[first] = &domain.Page[*domain.Album]{Items: []*domain.Album{{ID: "a"}}, Next: "mock://page2"}
	f.api.Pages["mock://page2"] = &domain.Page[*domain.Album]{Items: []*domain.Album{{ID: "b"}}}

	// Advance the clock between pages
	f.svc.api = &clockAdvancingAPI{MockCatalogAPI: f.api, clock: f.tokens.clock, step: 40 * time.Second}

	_, err := f.svc.ArtistAlbums(context.Background(), "artist-1", domain.AlbumQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{"token-1", "token-2"}, f.api.Tokens())
	assert.Equal(t, 1, f.tokens.provider.RefreshCalls())
}

type clockAdvancingAPI struct {
	*mocks.MockCatalogAPI
	clock *fakeClock
	step  time.Duration
}

func (a *clockAdvancingAPI) AlbumPage(ctx context.Context, accessToken, pageURL string) (*domain.Page[*domain.Album], error) {
	defer a.clock.Advance(a.step)
	return a.MockCatalogAPI.AlbumPage(ctx, accessToken, pageURL)
}

func TestCatalogService_ArtistAlbums_FailsAsUnit(t *testing.T) {
	f := newCatalogFixture(t)
	first := f.firstPage("artist-1")
	f.api.Pages[first] = &domain.Page[*domain.Album]{Items: []*domain.Album{{ID: "a"}}, Next: "mock://page2"}
	f.api.PageErr["mock://page2"] = &domain.UpstreamError{Status: 503, Message: "Service unavailable"}

	albums, err := f.svc.ArtistAlbums(context.Background(), "artist-1", domain.AlbumQuery{})
	assert.Nil(t, albums)

	var upstream *domain.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, 503, upstream.Status)

	status, err := f.tokens.svc.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Connected, "non-401 errors must not affect the session")
}

func TestCatalogService_ArtistAlbums_NotConnected(t *testing.T) {
	f := newCatalogFixture(t)
	require.NoError(t, f.tokens.svc.Disconnect(context.Background()))

	_, err := f.svc.ArtistAlbums(context.Background(), "artist-1", domain.AlbumQuery{})
	assert.ErrorIs(t, err, domain.ErrNotConnected)
	assert.Empty(t, f.api.Requests())
}

func TestCatalogService_ArtistAlbums_RefreshErrorPropagates(t *testing.T) {
	f := newCatalogFixture(t)
	f.tokens.seed(t, domain.TokenRecord{AccessToken: "old", RefreshToken: "r", ExpiresAt: testNow})
	f.tokens.provider.RefreshTokenFn = func(ctx context.Context, refreshToken string) (*driven.OAuthToken, error) {
		return nil, errors.New("invalid_grant")
	}

	_, err := f.svc.ArtistAlbums(context.Background(), "artist-1", domain.AlbumQuery{})
	assert.ErrorIs(t, err, domain.ErrRefresh)
}

func TestCatalogService_ArtistAlbums_RequiresArtist(t *testing.T) {
	f := newCatalogFixture(t)

	_, err := f.svc.ArtistAlbums(context.Background(), "  ", domain.AlbumQuery{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCatalogService_TokenRejected(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()
	f.api.PageErr[f.firstPage("artist-1")] = domain.ErrTokenRejected

	_, err := f.svc.ArtistAlbums(ctx, "artist-1", domain.AlbumQuery{})
	require.ErrorIs(t, err, domain.ErrTokenRejected)

	status, err := f.tokens.svc.Status(ctx)
	require.NoError(t, err)
	assert.False(t, status.Connected)
	assert.True(t, status.Rejected)

	// Storage is kept until the caller disconnects
	assert.True(t, f.tokens.store.Has(DefaultTokenRecordKey))
	_, err = f.tokens.svc.AccessToken(ctx)
	require.NoError(t, err)

	require.NoError(t, f.tokens.svc.Disconnect(ctx))
	_, err = f.tokens.svc.AccessToken(ctx)
	assert.ErrorIs(t, err, domain.ErrNotConnected)
}

func TestCatalogService_SearchArtists(t *testing.T) {
	f := newCatalogFixture(t)
	var gotLimit int
	var gotQuery string
	f.api.SearchArtistsFn = func(ctx context.Context, token, query string, limit int) ([]*domain.Artist, error) {
		gotQuery, gotLimit = query, limit
		return []*domain.Artist{{ID: "2", Name: "B"}, {ID: "1", Name: "A"}}, nil
	}

	artists, err := f.svc.SearchArtists(context.Background(), "  radiohead ", 0)
	require.NoError(t, err)
	assert.Equal(t, "radiohead", gotQuery)
	assert.Equal(t, defaultSearchLimit, gotLimit)
	require.Len(t, artists, 2)
	assert.Equal(t, "2", artists[0].ID, "results are returned unmodified")

	_, err = f.svc.SearchArtists(context.Background(), "x", 500)
	require.NoError(t, err)
	assert.Equal(t, maxSearchLimit, gotLimit)
}

func TestCatalogService_SearchArtists_BlankQuery(t *testing.T) {
	f := newCatalogFixture(t)

	artists, err := f.svc.SearchArtists(context.Background(), "   ", 10)
	require.NoError(t, err)
	assert.Empty(t, artists)
	assert.Empty(t, f.api.Requests())
}

func TestCatalogService_SearchArtists_Rejected(t *testing.T) {
	f := newCatalogFixture(t)
	f.api.SearchArtistsFn = func(ctx context.Context, token, query string, limit int) ([]*domain.Artist, error) {
		return nil, domain.ErrTokenRejected
	}

	_, err := f.svc.SearchArtists(context.Background(), "x", 10)
	require.ErrorIs(t, err, domain.ErrTokenRejected)

	status, err := f.tokens.svc.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Rejected)
}

func TestCatalogService_WeeklyPlayCount(t *testing.T) {
	f := newCatalogFixture(t)
	var gotLimit int
	f.api.RecentlyPlayedFn = func(ctx context.Context, token string, limit int) ([]*domain.PlayHistoryItem, error) {
		gotLimit = limit
		return []*domain.PlayHistoryItem{
			{TrackID: "1", PlayedAt: testNow.Add(-time.Hour)},
			{TrackID: "2", PlayedAt: testNow.Add(-24 * time.Hour)},
			{TrackID: "3", PlayedAt: testNow.Add(-7 * 24 * time.Hour)},
		}, nil
	}

	count, err := f.svc.WeeklyPlayCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, 50, gotLimit)
}
