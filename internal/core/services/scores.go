package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/custodia-labs/scorelink/internal/core/domain"
	"github.com/custodia-labs/scorelink/internal/core/ports/driven"
	"github.com/custodia-labs/scorelink/internal/core/ports/driving"
)

// Ensure scoreService implements ScoreService
var _ driving.ScoreService = (*scoreService)(nil)

// ScoreServiceConfig holds configuration for the score service.
type ScoreServiceConfig struct {
	Catalog     driving.CatalogService
	Leaderboard driven.Leaderboard

	LeaderboardID string
	PlayerID      string

	// Location decides where ISO weeks start. Defaults to time.Local.
	Location *time.Location

	Now    func() time.Time
	Logger *slog.Logger
}

type scoreService struct {
	catalog       driving.CatalogService
	leaderboard   driven.Leaderboard
	leaderboardID string
	playerID      string
	location      *time.Location
	now           func() time.Time
	logger        *slog.Logger
}

// NewScoreService creates a new score service.
func NewScoreService(cfg ScoreServiceConfig) driving.ScoreService {
	s := &scoreService{
		catalog:       cfg.Catalog,
		leaderboard:   cfg.Leaderboard,
		leaderboardID: cfg.LeaderboardID,
		playerID:      cfg.PlayerID,
		location:      cfg.Location,
		now:           cfg.Now,
		logger:        cfg.Logger,
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

// SubmitWeeklyPlays submits this week's play count as the player's score.
func (s *scoreService) SubmitWeeklyPlays(ctx context.Context) (*domain.Score, error) {
	count, err := s.catalog.WeeklyPlayCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("count weekly plays: %w", err)
	}

	now := s.now()
	weekStart, _ := domain.ISOWeek(now, s.location)
	score := &domain.Score{
		LeaderboardID: s.leaderboardID,
		PlayerID:      s.playerID,
		Value:         int64(count),
		WindowStart:   weekStart,
		SubmittedAt:   now,
	}

	if err := s.leaderboard.SubmitScore(ctx, score); err != nil {
		return nil, fmt.Errorf("submit score: %w", err)
	}

	s.logger.Info("weekly score submitted",
		"leaderboard_id", s.leaderboardID,
		"value", score.Value,
		"week_start", weekStart.Format(time.DateOnly))
	return score, nil
}

// Leaderboard returns ranked entries, defaulting to the weekly plays board.
func (s *scoreService) Leaderboard(ctx context.Context, window, metric string) ([]*domain.LeaderboardEntry, error) {
	if window == "" {
		window = domain.DefaultLeaderboardWindow
	}
	if metric == "" {
		metric = domain.DefaultLeaderboardMetric
	}

	entries, err := s.leaderboard.Entries(ctx, window, metric)
	if err != nil {
		return nil, fmt.Errorf("get leaderboard: %w", err)
	}
	return entries, nil
}

// Friends returns the player's friends.
func (s *scoreService) Friends(ctx context.Context) ([]*domain.Friend, error) {
	friends, err := s.leaderboard.Friends(ctx)
	if err != nil {
		return nil, fmt.Errorf("get friends: %w", err)
	}
	return friends, nil
}
