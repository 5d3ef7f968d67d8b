package driven

import (
	"context"

	"github.com/custodia-labs/scorelink/internal/core/domain"
)

// Leaderboard is the social-gaming service
type Leaderboard interface {
	// SubmitScore records a score for the configured player
	SubmitScore(ctx context.Context, score *domain.Score) error

	// Entries returns the ranked entries for a window (weekly, all_time) and metric
	Entries(ctx context.Context, window, metric string) ([]*domain.LeaderboardEntry, error)

	// Friends returns the local player's friends
	Friends(ctx context.Context) ([]*domain.Friend, error)
}
