// Package worker runs background jobs against the game store.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Expirer finalizes sessions whose countdown has run out.
type Expirer interface {
	ExpireStale(ctx context.Context) (int, error)
}

// Sweeper completes timed-out sessions that no client came back to finish.
type Sweeper struct {
	expirer   Expirer
	interval  time.Duration
	logger    *slog.Logger
	scheduler gocron.Scheduler
}

func NewSweeper(expirer Expirer, interval time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{expirer: expirer, interval: interval, logger: logger}
}

// Start schedules the sweep. Each run receives ctx, so cancelling it aborts a
// sweep in progress.
func (s *Sweeper) Start(ctx context.Context) error {
	if s.interval <= 0 {
		return fmt.Errorf("sweep interval must be positive, got %s", s.interval)
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(s.RunOnce, ctx),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName("expire-stale-sessions"),
	)
	if err != nil {
		_ = scheduler.Shutdown()
		return fmt.Errorf("schedule sweep: %w", err)
	}

	scheduler.Start()
	s.scheduler = scheduler
	s.logger.Info("session sweeper started", "interval", s.interval)
	return nil
}

func (s *Sweeper) Stop() error {
	if s.scheduler == nil {
		return nil
	}
	err := s.scheduler.Shutdown()
	s.scheduler = nil
	if err != nil {
		return fmt.Errorf("stop scheduler: %w", err)
	}
	return nil
}

// RunOnce performs a single sweep. Failures are logged so the next tick
// still runs.
func (s *Sweeper) RunOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	expired, err := s.expirer.ExpireStale(ctx)
	if err != nil {
		s.logger.Error("sweep expired sessions", "error", err, "finalized", expired)
		return
	}
	if expired > 0 {
		s.logger.Info("finalized expired sessions", "count", expired)
	}
}
