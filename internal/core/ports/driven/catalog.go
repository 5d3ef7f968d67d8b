package driven

import (
	"context"

	"github.com/custodia-labs/scorelink/internal/core/domain"
)

// CatalogAPI is the streaming service's resource API.
// A 401 response is reported as domain.ErrTokenRejected; any other non-2xx
// response as *domain.UpstreamError. Nothing is retried.
type CatalogAPI interface {
	// SearchArtists runs a single artist search request
	SearchArtists(ctx context.Context, accessToken, query string, limit int) ([]*domain.Artist, error)

	// ArtistAlbumsURL returns the URL of the first page of an artist's albums
	ArtistAlbumsURL(artistID string, query domain.AlbumQuery) string

	// AlbumPage fetches one page of albums. pageURL is either the first-page URL
	// or the next reference from a previous page.
	AlbumPage(ctx context.Context, accessToken, pageURL string) (*domain.Page[*domain.Album], error)

	// RecentlyPlayed returns up to limit of the most recent plays
	RecentlyPlayed(ctx context.Context, accessToken string, limit int) ([]*domain.PlayHistoryItem, error)
}
