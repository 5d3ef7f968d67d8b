package domain

import (
	"slices"
	"strings"
	"time"
)

// Image is an artwork descriptor. Width and Height are absent for some sources.
type Image struct {
	URL    string `json:"url"`
	Width  *int   `json:"width,omitempty"`
	Height *int   `json:"height,omitempty"`
}

// ArtistRef is the abbreviated artist embedded in albums
type ArtistRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Artist represents a catalog artist returned by search
type Artist struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Images []Image `json:"images,omitempty"`
}

// Album represents a catalog album or single
type Album struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	ReleaseDate *string     `json:"release_date,omitempty"` // YYYY, YYYY-MM or YYYY-MM-DD
	AlbumGroup  string      `json:"album_group,omitempty"`
	Images      []Image     `json:"images,omitempty"`
	Artists     []ArtistRef `json:"artists,omitempty"`
}

// releaseKey is the sort key for an album; a missing date sorts as the empty string.
func (a *Album) releaseKey() string {
	if a.ReleaseDate == nil {
		return ""
	}
	return *a.ReleaseDate
}

// PlayHistoryItem is one entry of the recently played history
type PlayHistoryItem struct {
	TrackID    string    `json:"track_id"`
	TrackName  string    `json:"track_name,omitempty"`
	DurationMS int       `json:"duration_ms"`
	PlayedAt   time.Time `json:"played_at"`
}

// Page is one page of a paginated listing. Next is empty on the last page.
type Page[T any] struct {
	Items []T
	Next  string
}

// AlbumQuery selects which releases of an artist are listed
type AlbumQuery struct {
	IncludeGroups []string `json:"include_groups"`
	Market        string   `json:"market"`
	Limit         int      `json:"limit"`
}

// DefaultAlbumQuery returns the query used for album art listings
func DefaultAlbumQuery() AlbumQuery {
	return AlbumQuery{
		IncludeGroups: []string{"album", "single"},
		Market:        "from_token",
		Limit:         50,
	}
}

// AggregateAlbums deduplicates albums by ID, keeping the first occurrence, and
// orders the result by release date descending. Dates compare lexically, so
// "2020" sorts before "2020-05" and albums without a date come last.
// Albums with equal dates keep their first-seen order.
func AggregateAlbums(albums []*Album) []*Album {
	seen := make(map[string]struct{}, len(albums))
	out := make([]*Album, 0, len(albums))
	for _, a := range albums {
		if a == nil {
			continue
		}
		if _, dup := seen[a.ID]; dup {
			continue
		}
		seen[a.ID] = struct{}{}
		out = append(out, a)
	}

	slices.SortStableFunc(out, func(x, y *Album) int {
		return strings.Compare(y.releaseKey(), x.releaseKey())
	})
	return out
}

// ISOWeek returns the bounds of the ISO week containing t in loc:
// Monday 00:00 inclusive to the following Monday 00:00 exclusive.
func ISOWeek(t time.Time, loc *time.Location) (start, end time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	offset := (int(local.Weekday()) + 6) % 7 // Monday = 0
	start = time.Date(local.Year(), local.Month(), local.Day()-offset, 0, 0, 0, 0, loc)
	end = start.AddDate(0, 0, 7)
	return start, end
}

// CountPlaysInWeek counts plays whose timestamp falls in the ISO week containing now
func CountPlaysInWeek(items []*PlayHistoryItem, now time.Time, loc *time.Location) int {
	start, end := ISOWeek(now, loc)
	count := 0
	for _, item := range items {
		if item == nil {
			continue
		}
		if !item.PlayedAt.Before(start) && item.PlayedAt.Before(end) {
			count++
		}
	}
	return count
}
