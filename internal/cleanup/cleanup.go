package cleanup

import (
	"context"
	"fmt"
	"time"
)

// Run removes completed reminders older than the retention period.
func (r *Runner) Run(ctx context.Context) (Stats, error) {
	start := r.now()
	stats := Stats{Cutoff: start.Add(-r.retention)}

	n, err := r.store.PurgeCompleted(ctx, stats.Cutoff)
	if err != nil {
		return stats, fmt.Errorf("purge completed reminders: %w", err)
	}

	stats.RemindersPurged = n
	stats.Duration = time.Since(start)
	r.lastRun = start
	r.stats = stats
	return stats, nil
}

// LastRun returns the start time and stats of the last successful run.
func (r *Runner) LastRun() (time.Time, Stats) {
	return r.lastRun, r.stats
}
