package commands

import (
	"context"
	"fmt"

	"github.com/scaramou4/rereminder-bot-sub000/internal/constants"
	"github.com/scaramou4/rereminder-bot-sub000/internal/logger"
	"github.com/scaramou4/rereminder-bot-sub000/internal/messages"
)

// HandleCallback processes a pressed inline button. Every callback is
// answered exactly once so the client stops its loading animation.
func (h *Handler) HandleCallback(ctx context.Context, cb Callback) error {
	if !h.isAllowed(cb.UserID) {
		h.logger.WarnCtx(ctx, "callback blocked - user not in whitelist",
			logger.Field{Key: "user_id", Value: cb.UserID})
		return h.answer(ctx, cb.ID, constants.MsgAccessDenied)
	}

	data, err := messages.ParseCallback(cb.Data)
	if err != nil {
		h.logger.WarnCtx(ctx, "unsupported callback data",
			logger.Field{Key: "data", Value: cb.Data},
			logger.Field{Key: "user_id", Value: cb.UserID})
		return h.answer(ctx, cb.ID, constants.MsgUnknownAction)
	}

	h.logger.DebugCtx(ctx, "callback received",
		logger.Field{Key: "action", Value: data.Action},
		logger.Field{Key: "reminder_id", Value: data.ReminderID},
		logger.Field{Key: "user_id", Value: cb.UserID})

	if _, err := h.owned(ctx, data.ReminderID, cb.UserID); err != nil {
		return h.answerError(ctx, cb, "load reminder", err)
	}

	switch data.Action {
	case constants.CallbackPostpone:
		r, err := h.reminders.Postpone(ctx, data.ReminderID, data.Arg)
		if err != nil {
			return h.answerError(ctx, cb, "postpone reminder", err)
		}
		loc := h.settings.Get(ctx, cb.UserID).Location()
		return h.answer(ctx, cb.ID, messages.FormatPostponed(r.Datetime, loc))

	case constants.CallbackPostponeCustom:
		h.setPending(cb.ChatID, data.ReminderID)
		if err := h.answer(ctx, cb.ID, ""); err != nil {
			return err
		}
		return h.reply(ctx, cb.ChatID, constants.MsgPostponeAsk, nil)

	case constants.CallbackDone:
		if _, err := h.reminders.MarkDone(ctx, data.ReminderID); err != nil {
			return h.answerError(ctx, cb, "complete reminder", err)
		}
		return h.answer(ctx, cb.ID, constants.MsgDoneConfirmation)

	case constants.CallbackDelete:
		if _, err := h.reminders.Delete(ctx, data.ReminderID); err != nil {
			return h.answerError(ctx, cb, "delete reminder", err)
		}
		return h.answer(ctx, cb.ID, constants.MsgReminderDeleted)
	}

	// ParseCallback only lets known actions through
	return h.answer(ctx, cb.ID, constants.MsgUnknownAction)
}

func (h *Handler) answer(ctx context.Context, callbackID, text string) error {
	if err := h.out.Answer(ctx, callbackID, text); err != nil {
		return fmt.Errorf("answer callback: %w", err)
	}
	return nil
}

func (h *Handler) answerError(ctx context.Context, cb Callback, op string, err error) error {
	text := messages.UserError(err)
	if text == constants.MsgInternalError {
		h.logger.ErrorCtx(ctx, "failed to "+op, err,
			logger.Field{Key: "callback_id", Value: cb.ID},
			logger.Field{Key: "user_id", Value: cb.UserID})
	}
	return h.answer(ctx, cb.ID, text)
}
