package cron

import (
	"context"
	"fmt"

	"github.com/scaramou4/rereminder-bot-sub000/internal/logger"
)

// Execute runs the handler registered for the fired job kind.
// The worker pool calls it for every TaskType task.
func (s *Scheduler) Execute(ctx context.Context, f Fired) error {
	s.mu.RLock()
	h, ok := s.handlers[f.Kind]
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNoHandler, f.Kind)
	}

	ctx = logger.ContextWith(ctx,
		logger.Field{Key: "job_kind", Value: string(f.Kind)},
		logger.Field{Key: "reminder_id", Value: f.Payload.ReminderID})
	s.logger.DebugCtx(ctx, "executing job", logger.Field{Key: "instance", Value: f.Payload.Instance})

	return h(ctx, f.Payload)
}

// restore re-registers persisted jobs. Must hold mu.
func (s *Scheduler) restore() (int, error) {
	if s.storage == nil {
		return 0, nil
	}

	jobs, err := s.storage.Load()
	if err != nil {
		return 0, err
	}

	restored := 0
	for _, job := range jobs {
		if err := s.add(job, false); err != nil {
			s.logger.Error("failed to restore job", err, logger.Field{Key: "job_id", Value: job.ID})
			continue
		}
		restored++
	}
	return restored, nil
}
