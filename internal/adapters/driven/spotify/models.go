package spotify

import (
	"fmt"
	"time"

	"github.com/custodia-labs/scorelink/internal/core/domain"
)

// paging is the Web API paging object.
type paging[T any] struct {
	Items []T    `json:"items"`
	Next  string `json:"next"` // null decodes to ""
	Total int    `json:"total"`
}

type imageObject struct {
	URL    string `json:"url"`
	Width  *int   `json:"width"`
	Height *int   `json:"height"`
}

type artistObject struct {
	ID     string        `json:"id"`
	Name   string        `json:"name"`
	Images []imageObject `json:"images"`
}

type simpleArtistObject struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type albumObject struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	ReleaseDate *string              `json:"release_date"`
	AlbumGroup  string               `json:"album_group"`
	Images      []imageObject        `json:"images"`
	Artists     []simpleArtistObject `json:"artists"`
}

type searchResponse struct {
	Artists paging[artistObject] `json:"artists"`
}

type playHistoryObject struct {
	Track struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		DurationMS int    `json:"duration_ms"`
	} `json:"track"`
	PlayedAt string `json:"played_at"`
}

func toImages(in []imageObject) []domain.Image {
	if len(in) == 0 {
		return nil
	}
	out := make([]domain.Image, len(in))
	for i, img := range in {
		out[i] = domain.Image{URL: img.URL, Width: img.Width, Height: img.Height}
	}
	return out
}

func (a *artistObject) toDomain() *domain.Artist {
	return &domain.Artist{
		ID:     a.ID,
		Name:   a.Name,
		Images: toImages(a.Images),
	}
}

func (a *albumObject) toDomain() *domain.Album {
	album := &domain.Album{
		ID:          a.ID,
		Name:        a.Name,
		ReleaseDate: a.ReleaseDate,
		AlbumGroup:  a.AlbumGroup,
		Images:      toImages(a.Images),
	}
	for _, ar := range a.Artists {
		album.Artists = append(album.Artists, domain.ArtistRef{ID: ar.ID, Name: ar.Name})
	}
	return album
}

func (p *playHistoryObject) toDomain() (*domain.PlayHistoryItem, error) {
	playedAt, err := time.Parse(time.RFC3339Nano, p.PlayedAt)
	if err != nil {
		return nil, fmt.Errorf("parse played_at %q: %w", p.PlayedAt, err)
	}
	return &domain.PlayHistoryItem{
		TrackID:    p.Track.ID,
		TrackName:  p.Track.Name,
		DurationMS: p.Track.DurationMS,
		PlayedAt:   playedAt,
	}, nil
}
