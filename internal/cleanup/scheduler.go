package cleanup

import (
	"context"
	"time"

	"github.com/scaramou4/rereminder-bot-sub000/internal/logger"
)

// Scheduler manages periodic cleanup runs.
type Scheduler struct {
	runner   *Runner
	config   SchedulerConfig
	logger   *logger.Logger
	cancel   context.CancelFunc
	done     chan struct{}
	recorder func(n int)
}

// SchedulerConfig holds configuration for the cleanup scheduler.
type SchedulerConfig struct {
	Enabled  bool          // Enable periodic cleanup
	Interval time.Duration // Interval between cleanup runs
}

// NewScheduler creates a new cleanup scheduler. onPurge, when not nil, is
// called with the number of purged reminders after every run.
func NewScheduler(runner *Runner, config SchedulerConfig, log *logger.Logger, onPurge func(n int)) *Scheduler {
	return &Scheduler{
		runner:   runner,
		config:   config,
		logger:   log.Component("cleanup"),
		recorder: onPurge,
	}
}

// Start begins the periodic cleanup scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.config.Enabled || s.config.Interval <= 0 {
		s.logger.Info("cleanup scheduler disabled")
		return nil
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	ticker := time.NewTicker(s.config.Interval)

	s.logger.Info("cleanup scheduler started",
		logger.Field{Key: "interval", Value: s.config.Interval.String()})

	go func() {
		defer close(s.done)
		defer ticker.Stop()

		s.runCleanup(ctx)
		for {
			select {
			case <-ticker.C:
				s.runCleanup(ctx)
			case <-ctx.Done():
				s.logger.Info("cleanup scheduler stopped")
				return
			}
		}
	}()

	return nil
}

// Stop stops the cleanup scheduler and waits for a running purge.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

// runCleanup executes a single cleanup run.
func (s *Scheduler) runCleanup(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	stats, err := s.runner.Run(ctx)
	if err != nil {
		s.logger.ErrorCtx(ctx, "cleanup failed", err)
		return
	}

	if s.recorder != nil && stats.RemindersPurged > 0 {
		s.recorder(stats.RemindersPurged)
	}

	if stats.RemindersPurged > 0 {
		s.logger.Info("cleanup completed",
			logger.Field{Key: "purged", Value: stats.RemindersPurged},
			logger.Field{Key: "cutoff", Value: stats.Cutoff.Format(time.RFC3339)},
			logger.Field{Key: "duration_ms", Value: stats.Duration.Milliseconds()})
	} else {
		s.logger.Debug("cleanup completed: nothing to purge")
	}
}

// Trigger runs cleanup immediately (manual trigger).
func (s *Scheduler) Trigger(ctx context.Context) (Stats, error) {
	s.logger.Info("manual cleanup triggered")
	return s.runner.Run(ctx)
}
