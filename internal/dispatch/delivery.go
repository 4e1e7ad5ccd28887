package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/scaramou4/rereminder-bot-sub000/internal/cron"
	"github.com/scaramou4/rereminder-bot-sub000/internal/logger"
	"github.com/scaramou4/rereminder-bot-sub000/internal/messages"
	"github.com/scaramou4/rereminder-bot-sub000/internal/recurrence"
	"github.com/scaramou4/rereminder-bot-sub000/internal/reminder"
)

// HandleDelivery sends a due reminder.
//
// A one-off reminder then enters the inertia loop under a fresh instance
// token. A recurring reminder moves to its next occurrence and its delivery
// job is re-armed at that exact instant, so monthly and yearly phrases keep
// their calendar anchor. The message of the previous occurrence loses its
// controls first. A failed send still advances the state: the inertia
// loop or the next occurrence will reach the user.
func (d *Dispatcher) HandleDelivery(ctx context.Context, p cron.Payload) error {
	log := d.logger.With(logger.Field{Key: "reminder_id", Value: p.ReminderID})

	r, err := d.load(ctx, p.ReminderID)
	if err != nil {
		return err
	}
	if r == nil {
		log.DebugCtx(ctx, "delivery for absent or completed reminder, cancelling jobs")
		return d.Cancel(ctx, p.ReminderID)
	}

	now := d.now()
	if d.staleDelivery(r) {
		log.DebugCtx(ctx, "stale delivery firing skipped")
		return nil
	}

	user := d.settings.Get(ctx, r.UserID)
	loc := user.Location()

	d.RetireControls(ctx, r)
	msgID, sendErr := d.messenger.Send(ctx, r.ChatID, messages.FormatNotification(r), messages.ReminderControls(r.ID))
	if sendErr != nil {
		d.recorder.SendFailed("delivery")
		log.ErrorCtx(ctx, "failed to send reminder", sendErr)
	}

	var rule recurrence.Rule
	if r.IsRecurring() {
		if rule, err = recurrence.Parse(r.Repeat); err != nil {
			return errors.Join(sendErr, fmt.Errorf("reminder %s: %w", r.ID, err))
		}
	}

	instance := ""
	if !r.IsRecurring() {
		instance = d.newInstance()
	}

	var prevInstance string
	updated, err := reminder.UpdateWithRetry(ctx, d.store, r.ID, func(cur *reminder.Reminder) error {
		if cur.Completed || !cur.Datetime.Equal(r.Datetime) {
			// выполнено или отложено, пока отправляли
			return reminder.ErrSkip
		}
		prevInstance = cur.InertiaInstance
		cur.ResetDelivery()
		if sendErr == nil {
			cur.MessageID = msgID
		}
		if cur.IsRecurring() {
			cur.Datetime = nextInSeries(rule, cur, now, loc)
			cur.SeriesAnchor = time.Time{}
		} else {
			cur.InertiaInstance = instance
		}
		cur.UpdatedAt = now
		return nil
	})
	if errors.Is(err, reminder.ErrSkip) {
		log.InfoCtx(ctx, "reminder changed during delivery, follow-up skipped")
		if sendErr == nil {
			d.stripControls(ctx, r, msgID)
		}
		return sendErr
	}
	if err != nil {
		return errors.Join(sendErr, fmt.Errorf("persist delivery of %s: %w", r.ID, err))
	}

	if sendErr == nil {
		d.recorder.ReminderDelivered(string(cron.KindDelivery))
	}

	if err := d.followUp(ctx, updated, prevInstance, user.AutoPostponeMinutes); err != nil {
		return errors.Join(sendErr, err)
	}

	log.InfoCtx(ctx, "reminder delivered",
		logger.Field{Key: "message_id", Value: msgID},
		logger.Field{Key: "recurring", Value: updated.IsRecurring()},
		logger.Field{Key: "next", Value: updated.Datetime})
	return sendErr
}

// nextInSeries returns the occurrence due after the delivered one. A postponed
// occurrence continues from its anchor, and an anchor still in the future is
// itself the next occurrence.
func nextInSeries(rule recurrence.Rule, r *reminder.Reminder, now time.Time, loc *time.Location) time.Time {
	if r.SeriesAnchor.IsZero() {
		return rule.NextAfter(r.Datetime, now, loc)
	}
	if r.SeriesAnchor.After(now) {
		return r.SeriesAnchor
	}
	return rule.NextAfter(r.SeriesAnchor, now, loc)
}

// staleDelivery reports a firing that no longer matches the stored state:
// a one-off already delivered, or a reminder due well in the future.
func (d *Dispatcher) staleDelivery(r *reminder.Reminder) bool {
	if !r.IsRecurring() && r.InertiaInstance != "" {
		return true
	}
	return r.Datetime.After(d.now().Add(staleTolerance))
}

// followUp arms the jobs after a delivery.
func (d *Dispatcher) followUp(ctx context.Context, r *reminder.Reminder, prevInstance string, autoPostponeMinutes int) error {
	if r.IsRecurring() {
		interval, err := recurrence.ToSchedulerInterval(r.Repeat)
		if err != nil {
			return fmt.Errorf("re-arm reminder %s: %w", r.ID, err)
		}
		loc := d.settings.Get(ctx, r.UserID).Location()
		opts := cron.EveryOptions{StartAt: r.Datetime, Location: loc}
		if err := d.scheduler.RunEvery(interval, cron.KindDelivery, cron.Payload{ReminderID: r.ID}, opts); err != nil {
			return fmt.Errorf("re-arm reminder %s: %w", r.ID, err)
		}
		return nil
	}

	if prevInstance != "" && prevInstance != r.InertiaInstance {
		if err := d.scheduler.CancelInstance(r.ID, cron.KindInertia, prevInstance); err != nil {
			d.logger.WarnCtx(ctx, "failed to cancel previous inertia loop",
				logger.Field{Key: "reminder_id", Value: r.ID},
				logger.Field{Key: "error", Value: err.Error()})
		}
	}

	if autoPostponeMinutes <= 0 {
		autoPostponeMinutes = 15
	}
	interval := fmt.Sprintf("%d minutes", autoPostponeMinutes)
	payload := cron.Payload{ReminderID: r.ID, Instance: r.InertiaInstance}
	opts := cron.EveryOptions{StartAt: d.now(), SkipImmediate: true}
	if err := d.scheduler.RunEvery(interval, cron.KindInertia, payload, opts); err != nil {
		return fmt.Errorf("start inertia loop of %s: %w", r.ID, err)
	}
	return nil
}
