package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"financeflow/internal/log"
)

// RolloverService is the part of the budget service the rollover loop needs.
type RolloverService interface {
	Users(ctx context.Context) ([]string, error)
	Rollover(ctx context.Context, userID string) (stale bool, err error)
}

// RolloverConfig holds configuration for the rollover processor
type RolloverConfig struct {
	// Interval is how often every user's day is materialized (default: 1h)
	Interval time.Duration

	// Concurrency bounds how many users are rolled over at once (default: 4)
	Concurrency int
}

func DefaultRolloverConfig() RolloverConfig {
	return RolloverConfig{
		Interval:    time.Hour,
		Concurrency: 4,
	}
}

// RolloverResult summarizes one pass over all users.
type RolloverResult struct {
	Users  int
	Stale  []string
	Failed int
}

// RolloverProcessor periodically materializes today's record for every user,
// which carries over open tasks, and reports users whose monthly setup is
// stale.
type RolloverProcessor struct {
	budget RolloverService
	config RolloverConfig
	logger *log.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewRolloverProcessor(budget RolloverService, config RolloverConfig, logger *log.Logger) *RolloverProcessor {
	def := DefaultRolloverConfig()
	if config.Interval <= 0 {
		config.Interval = def.Interval
	}
	if config.Concurrency <= 0 {
		config.Concurrency = def.Concurrency
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &RolloverProcessor{
		budget: budget,
		config: config,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// Start begins the rollover loop. Returns an error if already running.
func (p *RolloverProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("rollover processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	go p.runLoop(ctx, stopCh, doneCh)

	p.logger.InfoContext(ctx, "Rollover processor started",
		"interval", p.config.Interval,
		"concurrency", p.config.Concurrency)
	return nil
}

// Stop signals the loop and waits for the current pass to finish. Only the
// first of several concurrent calls waits; the others return at once.
func (p *RolloverProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	stopCh, doneCh := p.stopCh, p.doneCh
	p.stopCh, p.doneCh = nil, nil
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		p.logger.InfoContext(ctx, "Rollover processor stopped gracefully")
	case <-ctx.Done():
		p.logger.WarnContext(ctx, "Rollover processor stop timed out")
		return ctx.Err()
	}
	return nil
}

func (p *RolloverProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *RolloverProcessor) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	// Process immediately on startup
	p.runPass(ctx)

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.runPass(ctx)
		}
	}
}

func (p *RolloverProcessor) runPass(ctx context.Context) {
	res, err := p.RunOnce(ctx)
	if err != nil {
		p.logger.LogError(ctx, "Rollover pass failed", err, log.OpRollover, log.ErrorTypeDatabase)
		return
	}
	for _, user := range res.Stale {
		p.logger.WarnContext(ctx, "Monthly setup is stale", log.FieldUserID, user)
	}
	p.logger.InfoContext(ctx, "Rollover pass completed",
		"users", res.Users,
		"stale", len(res.Stale),
		"failed", res.Failed)
}

// RunOnce rolls every known user over once. Per-user failures are logged and
// counted; only failing to list users is returned as an error.
func (p *RolloverProcessor) RunOnce(ctx context.Context) (RolloverResult, error) {
	users, err := p.budget.Users(ctx)
	if err != nil {
		return RolloverResult{}, fmt.Errorf("list users: %w", err)
	}

	var (
		mu     sync.Mutex
		stale  []string
		failed atomic.Int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.Concurrency)
	for _, user := range users {
		g.Go(func() error {
			isStale, err := p.budget.Rollover(gctx, user)
			if err != nil {
				failed.Add(1)
				p.logger.ErrorContext(gctx, "Rollover failed",
					log.FieldUserID, user,
					log.FieldError, err)
				return nil
			}
			if isStale {
				mu.Lock()
				stale = append(stale, user)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return RolloverResult{Users: len(users), Stale: stale, Failed: int(failed.Load())}, nil
}
