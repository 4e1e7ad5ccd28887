package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/scaramou4/rereminder-bot-sub000/internal/constants"
	"github.com/scaramou4/rereminder-bot-sub000/internal/logger"
	"github.com/scaramou4/rereminder-bot-sub000/internal/reminder"
	"github.com/scaramou4/rereminder-bot-sub000/internal/timeparse"
)

var postponeKeywords = map[string]time.Duration{
	constants.Postpone5m:  5 * time.Minute,
	constants.Postpone10m: 10 * time.Minute,
	constants.Postpone15m: 15 * time.Minute,
	constants.Postpone30m: 30 * time.Minute,
	constants.Postpone1h:  time.Hour,
	constants.Postpone3h:  3 * time.Hour,
	constants.Postpone1d:  24 * time.Hour,
}

// Postpone moves a reminder to a new instant. delaySpec is a keyword such
// as "5m" or free text like "через 2 часа" or "завтра в 9". The new instant
// is stored before the jobs are touched; then the old jobs are cancelled and
// the reminder fires once at the new instant. For a recurring reminder only
// the current occurrence moves.
func (m *Manager) Postpone(ctx context.Context, id, delaySpec string) (*reminder.Reminder, error) {
	current, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Completed {
		return nil, reminder.ErrNotFound
	}

	now := m.now()
	at, err := m.resolvePostpone(ctx, current, delaySpec, now)
	if err != nil {
		return nil, err
	}

	var before reminder.Reminder
	updated, err := reminder.UpdateWithRetry(ctx, m.store, id, func(r *reminder.Reminder) error {
		if r.Completed {
			return reminder.ErrNotFound
		}
		before = *r
		r.Postpone(at)
		r.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	// новое время уже сохранено, так что уцелевшие старые задания сработают вхолостую
	if err := m.dispatcher.Cancel(ctx, id); err != nil {
		m.logger.ErrorCtx(ctx, "failed to cancel jobs of postponed reminder", err,
			logger.Field{Key: "reminder_id", Value: id})
	}
	m.dispatcher.RetireControls(ctx, &before)
	if err := m.dispatcher.ScheduleOnce(ctx, updated); err != nil {
		return nil, err
	}

	m.recorder.ReminderPostponed()
	m.logger.InfoCtx(ctx, "reminder postponed",
		logger.Field{Key: "reminder_id", Value: id},
		logger.Field{Key: "spec", Value: delaySpec},
		logger.Field{Key: "datetime", Value: at},
		logger.Field{Key: "postponed_count", Value: updated.PostponedCount})
	return updated, nil
}

// resolvePostpone turns delaySpec into an instant strictly after now.
// Keywords count from the later of now and the current due time, so a
// reminder that has not fired yet still moves forward.
func (m *Manager) resolvePostpone(ctx context.Context, r *reminder.Reminder, delaySpec string, now time.Time) (time.Time, error) {
	spec := strings.TrimSpace(delaySpec)
	if spec == "" {
		return time.Time{}, reminder.ErrInvalidPostponeTarget
	}

	if d, ok := postponeKeywords[strings.ToLower(spec)]; ok {
		base := now
		if r.Datetime.After(now) {
			base = r.Datetime
		}
		return base.Add(d), nil
	}

	opts := m.settings.Get(ctx, r.UserID).ParseOptions()
	at, err := m.parser.ParseWhen(spec, now, opts)
	switch {
	case errors.Is(err, timeparse.ErrPastTime), errors.Is(err, timeparse.ErrNonPositiveDuration):
		return time.Time{}, fmt.Errorf("%w: %v", reminder.ErrInvalidPostponeTarget, err)
	case err != nil:
		return time.Time{}, err
	case !at.After(now):
		return time.Time{}, reminder.ErrInvalidPostponeTarget
	}
	return at, nil
}

// MarkDone completes a reminder, recurring or not, and cancels its jobs.
func (m *Manager) MarkDone(ctx context.Context, id string) (*reminder.Reminder, error) {
	var before reminder.Reminder
	updated, err := reminder.UpdateWithRetry(ctx, m.store, id, func(r *reminder.Reminder) error {
		if r.Completed {
			return reminder.ErrNotFound
		}
		before = *r
		r.Completed = true
		r.UpdatedAt = m.now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := m.dispatcher.Cancel(ctx, id); err != nil {
		m.logger.ErrorCtx(ctx, "failed to cancel jobs of completed reminder", err,
			logger.Field{Key: "reminder_id", Value: id})
	}
	m.dispatcher.RetireControls(ctx, &before)

	m.recorder.ReminderCompleted()
	m.logger.InfoCtx(ctx, "reminder completed", logger.Field{Key: "reminder_id", Value: id})
	return updated, nil
}
