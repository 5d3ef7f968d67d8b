package driving

import (
	"context"

	"github.com/custodia-labs/scorelink/internal/core/domain"
)

// ScoreService publishes listening metrics to the leaderboard
type ScoreService interface {
	// SubmitWeeklyPlays submits the weekly play count as the player's score
	SubmitWeeklyPlays(ctx context.Context) (*domain.Score, error)

	// Leaderboard returns ranked entries; empty window and metric use the defaults
	Leaderboard(ctx context.Context, window, metric string) ([]*domain.LeaderboardEntry, error)

	// Friends returns the player's friends
	Friends(ctx context.Context) ([]*domain.Friend, error)
}
