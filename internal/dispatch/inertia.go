package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/scaramou4/rereminder-bot-sub000/internal/cron"
	"github.com/scaramou4/rereminder-bot-sub000/internal/logger"
	"github.com/scaramou4/rereminder-bot-sub000/internal/messages"
	"github.com/scaramou4/rereminder-bot-sub000/internal/reminder"
)

// HandleInertia re-sends an unanswered reminder. Only the newest message
// carries controls: the first firing strips the original delivery, every
// firing strips the previous nudge.
func (d *Dispatcher) HandleInertia(ctx context.Context, p cron.Payload) error {
	log := d.logger.With(
		logger.Field{Key: "reminder_id", Value: p.ReminderID},
		logger.Field{Key: "instance", Value: p.Instance})

	r, err := d.load(ctx, p.ReminderID)
	if err != nil {
		return err
	}
	if r == nil || r.InertiaInstance != p.Instance {
		log.DebugCtx(ctx, "inertia for finished reminder or stale instance, cancelling")
		return d.scheduler.CancelInstance(p.ReminderID, cron.KindInertia, p.Instance)
	}

	stripOriginal := r.MessageID != 0 && !r.InitialMessageEdited
	if stripOriginal {
		d.stripControls(ctx, r, r.MessageID)
	}
	if r.InertiaMessageID != 0 {
		d.stripControls(ctx, r, r.InertiaMessageID)
	}

	msgID, sendErr := d.messenger.Send(ctx, r.ChatID, messages.FormatInertia(r), messages.ReminderControls(r.ID))
	if sendErr != nil {
		d.recorder.SendFailed("inertia")
		log.ErrorCtx(ctx, "failed to send inertia reminder", sendErr)
	}

	_, err = reminder.UpdateWithRetry(ctx, d.store, r.ID, func(cur *reminder.Reminder) error {
		if cur.Completed || cur.InertiaInstance != p.Instance {
			return reminder.ErrSkip
		}
		if stripOriginal {
			cur.InitialMessageEdited = true
		}
		cur.InertiaMessageID = 0
		if sendErr == nil {
			cur.InertiaMessageID = msgID
		}
		cur.UpdatedAt = d.now()
		return nil
	})
	if errors.Is(err, reminder.ErrSkip) {
		// пользователь ответил, пока отправляли
		if sendErr == nil {
			d.stripControls(ctx, r, msgID)
		}
		return sendErr
	}
	if err != nil {
		return errors.Join(sendErr, fmt.Errorf("persist inertia of %s: %w", r.ID, err))
	}

	if sendErr == nil {
		d.recorder.ReminderDelivered(string(cron.KindInertia))
		log.InfoCtx(ctx, "inertia reminder sent", logger.Field{Key: "message_id", Value: msgID})
	}
	return sendErr
}
