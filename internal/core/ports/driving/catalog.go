package driving

import (
	"context"

	"github.com/custodia-labs/scorelink/internal/core/domain"
)

// CatalogService reads the streaming-service catalog on behalf of the connected user
type CatalogService interface {
	// SearchArtists returns artists matching query, unmodified from the API
	SearchArtists(ctx context.Context, query string, limit int) ([]*domain.Artist, error)

	// ArtistAlbums fetches every page of an artist's albums, then deduplicates and
	// sorts them by release date descending
	ArtistAlbums(ctx context.Context, artistID string, query domain.AlbumQuery) ([]*domain.Album, error)

	// WeeklyPlayCount counts recent plays in the current ISO week
	WeeklyPlayCount(ctx context.Context) (int, error)
}
