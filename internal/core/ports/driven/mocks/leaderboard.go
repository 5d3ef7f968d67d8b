package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/scorelink/internal/core/domain"
)

// MockLeaderboard is a mock implementation of Leaderboard for testing
type MockLeaderboard struct {
	mu        sync.Mutex
	submitted []*domain.Score

	EntriesList []*domain.LeaderboardEntry
	FriendsList []*domain.Friend
	SubmitErr   error

	lastWindow string
	lastMetric string
}

// NewMockLeaderboard creates a new MockLeaderboard
func NewMockLeaderboard() *MockLeaderboard {
	return &MockLeaderboard{}
}

func (m *MockLeaderboard) SubmitScore(ctx context.Context, score *domain.Score) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SubmitErr != nil {
		return m.SubmitErr
	}
	m.submitted = append(m.submitted, score)
	return nil
}

func (m *MockLeaderboard) Entries(ctx context.Context, window, metric string) ([]*domain.LeaderboardEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastWindow, m.lastMetric = window, metric
	return m.EntriesList, nil
}

func (m *MockLeaderboard) Friends(ctx context.Context) ([]*domain.Friend, error) {
	return m.FriendsList, nil
}

// Submitted returns every submitted score
func (m *MockLeaderboard) Submitted() []*domain.Score {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.Score(nil), m.submitted...)
}

// LastQuery returns the window and metric of the last Entries call
func (m *MockLeaderboard) LastQuery() (window, metric string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastWindow, m.lastMetric
}
