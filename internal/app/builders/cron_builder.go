package builders

import (
	"context"
	"fmt"

	"github.com/scaramou4/rereminder-bot-sub000/internal/config"
	"github.com/scaramou4/rereminder-bot-sub000/internal/cron"
	"github.com/scaramou4/rereminder-bot-sub000/internal/logger"
	"github.com/scaramou4/rereminder-bot-sub000/internal/reminder"
)

// ActiveLister lists reminders that are not completed.
type ActiveLister interface {
	ListActive(ctx context.Context) ([]reminder.Reminder, error)
}

// Scheduler registers the delivery job of a reminder.
type Scheduler interface {
	Schedule(ctx context.Context, r *reminder.Reminder) error
}

type CronBuilder struct {
	config *config.Config
	logger *logger.Logger
}

func NewCronBuilder(cfg *config.Config, log *logger.Logger) *CronBuilder {
	return &CronBuilder{
		config: cfg,
		logger: log,
	}
}

// Build creates the scheduler backed by the jobs file. pool may be nil.
func (b *CronBuilder) Build(pool cron.WorkerPool) *cron.Scheduler {
	cronStorage := cron.NewStorage(b.config.Scheduler.JobsPath, b.logger)
	return cron.NewScheduler(b.logger, pool, cronStorage)
}

// Start restores persisted jobs, then schedules every active reminder that
// has no job at all (e.g. the jobs file was lost). Overdue one-off reminders
// fire right away.
func (b *CronBuilder) Start(ctx context.Context, scheduler *cron.Scheduler, store ActiveLister, dispatcher Scheduler) error {
	if err := scheduler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start cron scheduler: %w", err)
	}

	n, err := b.reconcile(ctx, scheduler, store, dispatcher)
	if err != nil {
		return err
	}
	if n > 0 {
		b.logger.Info("rescheduled reminders without jobs", logger.Field{Key: "count", Value: n})
	}
	return nil
}

func (b *CronBuilder) reconcile(ctx context.Context, scheduler *cron.Scheduler, store ActiveLister, dispatcher Scheduler) (int, error) {
	active, err := store.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active reminders: %w", err)
	}

	scheduled := make(map[string]bool)
	for _, job := range scheduler.ListJobs() {
		scheduled[job.Payload.ReminderID] = true
	}

	n := 0
	for i := range active {
		r := &active[i]
		if scheduled[r.ID] {
			continue
		}
		if err := dispatcher.Schedule(ctx, r); err != nil {
			b.logger.Error("failed to reschedule reminder", err,
				logger.Field{Key: "reminder_id", Value: r.ID})
			continue
		}
		n++
	}
	return n, nil
}
