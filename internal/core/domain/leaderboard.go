package domain

import "time"

// Leaderboard defaults used when a caller does not pick a window or metric
const (
	DefaultLeaderboardWindow = "weekly"
	DefaultLeaderboardMetric = "plays"
)

// Score is a value submitted to the social-gaming leaderboard
type Score struct {
	LeaderboardID string    `json:"leaderboard_id"`
	PlayerID      string    `json:"player_id"`
	Value         int64     `json:"value"`
	WindowStart   time.Time `json:"window_start"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

// LeaderboardEntry is one ranked row of a leaderboard
type LeaderboardEntry struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"displayName"`
	Rank        int     `json:"rank"`
	Value       float64 `json:"value"`
}

// Friend is a player in the local player's friends list
type Friend struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}
