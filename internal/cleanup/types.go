// Package cleanup periodically purges completed reminders from storage.
package cleanup

import (
	"context"
	"time"
)

// Stats holds statistics about a cleanup run.
type Stats struct {
	RemindersPurged int           // Number of completed reminders removed
	Cutoff          time.Time     // Reminders completed before this instant were eligible
	Duration        time.Duration // Time taken for cleanup
}

// Purger removes completed reminders last updated before a cutoff.
type Purger interface {
	PurgeCompleted(ctx context.Context, before time.Time) (int, error)
}

// Runner performs cleanup runs.
type Runner struct {
	store     Purger
	retention time.Duration
	now       func() time.Time
	lastRun   time.Time
	stats     Stats
}

// NewRunner creates a runner that keeps completed reminders for retention.
func NewRunner(store Purger, retention time.Duration) *Runner {
	return &Runner{
		store:     store,
		retention: retention,
		now:       time.Now,
	}
}
