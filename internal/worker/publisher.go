package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/custodia-labs/scorelink/internal/core/domain"
	"github.com/custodia-labs/scorelink/internal/core/ports/driven"
	"github.com/custodia-labs/scorelink/internal/core/ports/driving"
)

// DefaultPublishInterval is used when no interval is configured.
const DefaultPublishInterval = time.Hour

const publishLockName = "score-publish"

// Publisher submits the weekly play count to the leaderboard on an interval.
// Runs are skipped while no usable session exists.
type Publisher struct {
	tokens   driving.TokenService
	scores   driving.ScoreService
	lock     driven.DistributedLock
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// PublisherConfig holds configuration for the publisher.
type PublisherConfig struct {
	Tokens driving.TokenService
	Scores driving.ScoreService

	// Lock keeps replicas sharing a store from publishing the same run. Optional.
	Lock driven.DistributedLock

	Interval time.Duration
	Logger   *slog.Logger
}

// NewPublisher creates a new score publisher.
func NewPublisher(cfg PublisherConfig) *Publisher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultPublishInterval
	}

	return &Publisher{
		tokens:   cfg.Tokens,
		scores:   cfg.Scores,
		lock:     cfg.Lock,
		interval: interval,
		logger:   logger,
	}
}

// Start publishes once immediately and then every interval until Stop
// is called or ctx is cancelled.
func (p *Publisher) Start(ctx context.Context) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	p.logger.Info("score publisher starting", "interval", p.interval)

	go p.loop(ctx)
}

// Stop stops the loop and waits for an in-flight run to finish.
func (p *Publisher) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	close(p.stopCh)
	done := p.doneCh
	p.mu.Unlock()

	<-done

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	p.logger.Info("score publisher stopped")
}

func (p *Publisher) loop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if _, err := p.PublishOnce(ctx); err != nil {
			p.logger.Error("score publish failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-ticker.C:
		}
	}
}

// PublishOnce submits the weekly score if a session is connected.
// It returns the submitted score, or nil when the run was skipped.
func (p *Publisher) PublishOnce(ctx context.Context) (*domain.Score, error) {
	status, err := p.tokens.Status(ctx)
	if err != nil {
		return nil, err
	}
	if !status.Connected {
		p.logger.Info("score publish skipped", "reason", skipReason(status))
		return nil, nil
	}

	if p.lock != nil {
		// Expire well before the next tick so a crashed holder never blocks two runs.
		acquired, err := p.lock.Acquire(ctx, publishLockName, p.interval/2)
		if err != nil {
			return nil, err
		}
		if !acquired {
			p.logger.Debug("score publish skipped", "reason", "another instance is publishing")
			return nil, nil
		}
		defer func() {
			if err := p.lock.Release(context.WithoutCancel(ctx), publishLockName); err != nil {
				p.logger.Warn("failed to release publish lock", "error", err)
			}
		}()
	}

	score, err := p.scores.SubmitWeeklyPlays(ctx)
	if errors.Is(err, domain.ErrTokenRejected) || errors.Is(err, domain.ErrNotConnected) {
		p.logger.Warn("score publish skipped", "reason", "session lost", "error", err)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return score, nil
}

func skipReason(status *domain.ConnectionStatus) string {
	if status.Rejected {
		return "session rejected"
	}
	return "not connected"
}
