package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/custodia-labs/scorelink/internal/core/domain"
	"github.com/custodia-labs/scorelink/internal/core/ports/driven"
	"github.com/custodia-labs/scorelink/internal/core/ports/driving"
)

// Ensure catalogService implements CatalogService
var _ driving.CatalogService = (*catalogService)(nil)

const (
	defaultSearchLimit  = 24
	maxSearchLimit      = 50
	maxAlbumPageLimit   = 50
	recentlyPlayedLimit = 50
)

// CatalogServiceConfig holds configuration for the catalog service.
type CatalogServiceConfig struct {
	Tokens driving.TokenService
	API    driven.CatalogAPI

	// Location decides where ISO weeks start. Defaults to time.Local.
	Location *time.Location

	Now    func() time.Time
	Logger *slog.Logger
}

type catalogService struct {
	tokens   driving.TokenService
	api      driven.CatalogAPI
	location *time.Location
	now      func() time.Time
	logger   *slog.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(cfg CatalogServiceConfig) driving.CatalogService {
	s := &catalogService{
		tokens:   cfg.Tokens,
		api:      cfg.API,
		location: cfg.Location,
		now:      cfg.Now,
		logger:   cfg.Logger,
	}
	if s.location == nil {
		s.location = time.Local
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// SearchArtists runs a single search request. A blank query returns no results.
func (s *catalogService) SearchArtists(ctx context.Context, query string, limit int) ([]*domain.Artist, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []*domain.Artist{}, nil
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	token, err := s.tokens.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	artists, err := s.api.SearchArtists(ctx, token, query, limit)
	if err != nil {
		return nil, s.resourceError(ctx, "search artists", err)
	}
	return artists, nil
}

// ArtistAlbums fetches every page of an artist's albums, then dedups and sorts them.
func (s *catalogService) ArtistAlbums(ctx context.Context, artistID string, query domain.AlbumQuery) ([]*domain.Album, error) {
	if strings.TrimSpace(artistID) == "" {
		return nil, fmt.Errorf("%w: artist id is required", domain.ErrInvalidInput)
	}

	defaults := domain.DefaultAlbumQuery()
	if len(query.IncludeGroups) == 0 {
		query.IncludeGroups = defaults.IncludeGroups
	}
	if query.Market == "" {
		query.Market = defaults.Market
	}
	if query.Limit <= 0 {
		query.Limit = defaults.Limit
	}
	if query.Limit > maxAlbumPageLimit {
		query.Limit = maxAlbumPageLimit
	}

	start := time.Now()
	albums, pages, err := fetchAllPages(ctx, s.api.ArtistAlbumsURL(artistID, query),
		func(ctx context.Context, pageURL string) (*domain.Page[*domain.Album], error) {
			// Re-checked per page so a long run never sends an expired token
			token, err := s.tokens.AccessToken(ctx)
			if err != nil {
				return nil, err
			}
			page, err := s.api.AlbumPage(ctx, token, pageURL)
			if err != nil {
				return nil, s.resourceError(ctx, "fetch albums", err)
			}
			return page, nil
		})
	if err != nil {
		return nil, err
	}

	result := domain.AggregateAlbums(albums)
	s.logger.Debug("artist albums fetched",
		"artist_id", artistID,
		"pages", pages,
		"items", len(albums),
		"unique", len(result),
		"duration", time.Since(start))
	return result, nil
}

// WeeklyPlayCount counts the most recent plays that fall in the current ISO week.
func (s *catalogService) WeeklyPlayCount(ctx context.Context) (int, error) {
	token, err := s.tokens.AccessToken(ctx)
	if err != nil {
		return 0, err
	}

	items, err := s.api.RecentlyPlayed(ctx, token, recentlyPlayedLimit)
	if err != nil {
		return 0, s.resourceError(ctx, "fetch recently played", err)
	}
	return domain.CountPlaysInWeek(items, s.now(), s.location), nil
}

// resourceError marks the session rejected on 401 and adds context.
func (s *catalogService) resourceError(ctx context.Context, op string, err error) error {
	if errors.Is(err, domain.ErrTokenRejected) {
		s.tokens.MarkRejected(ctx)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// fetchAllPages follows next references from firstURL until the last page,
// returning every item in page order and the number of pages fetched.
// A next reference pointing at an already fetched page is an error.
func fetchAllPages[T any](ctx context.Context, firstURL string, fetch func(ctx context.Context, pageURL string) (*domain.Page[T], error)) ([]T, int, error) {
	var items []T
	visited := make(map[string]struct{})

	pageURL := firstURL
	for pageURL != "" {
		if _, seen := visited[pageURL]; seen {
			return nil, len(visited), fmt.Errorf("%w: %s", domain.ErrPaginationLoop, pageURL)
		}
		visited[pageURL] = struct{}{}

		page, err := fetch(ctx, pageURL)
		if err != nil {
			return nil, len(visited), err
		}
		items = append(items, page.Items...)
		pageURL = page.Next
	}
	return items, len(visited), nil
}
