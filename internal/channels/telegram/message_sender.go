package telegram

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"

	"github.com/scaramou4/rereminder-bot-sub000/internal/channels"
	"github.com/scaramou4/rereminder-bot-sub000/internal/logger"
	"github.com/scaramou4/rereminder-bot-sub000/internal/messages"
	"github.com/scaramou4/rereminder-bot-sub000/internal/retry"
)

// Send sends a text message with optional inline controls and returns its id.
func (c *Connector) Send(ctx context.Context, chatID int64, text string, kb messages.Keyboard) (int, error) {
	params := &telego.SendMessageParams{
		ChatID: telego.ChatID{ID: chatID},
		Text:   text,
	}
	if markup := buildInlineKeyboard(kb); markup != nil {
		params.ReplyMarkup = markup
	}

	msg, err := call(ctx, c, "send", chatID, func(bot BotInterface, ctx context.Context) (*telego.Message, error) {
		return bot.SendMessage(ctx, params)
	})
	if err != nil {
		return 0, err
	}
	return msg.MessageID, nil
}

// EditText replaces the text of a message. A nil keyboard drops its controls.
func (c *Connector) EditText(ctx context.Context, chatID int64, messageID int, text string, kb messages.Keyboard) error {
	params := &telego.EditMessageTextParams{
		ChatID:      telego.ChatID{ID: chatID},
		MessageID:   messageID,
		Text:        text,
		ReplyMarkup: buildInlineKeyboard(kb),
	}

	_, err := call(ctx, c, "edit_text", chatID, func(bot BotInterface, ctx context.Context) (*telego.Message, error) {
		return bot.EditMessageText(ctx, params)
	})
	return c.editResult(err, chatID)
}

// EditControls replaces the inline keyboard of a message. A nil keyboard
// removes it.
func (c *Connector) EditControls(ctx context.Context, chatID int64, messageID int, kb messages.Keyboard) error {
	params := &telego.EditMessageReplyMarkupParams{
		ChatID:      telego.ChatID{ID: chatID},
		MessageID:   messageID,
		ReplyMarkup: buildInlineKeyboard(kb),
	}

	_, err := call(ctx, c, "edit_controls", chatID, func(bot BotInterface, ctx context.Context) (*telego.Message, error) {
		return bot.EditMessageReplyMarkup(ctx, params)
	})
	return c.editResult(err, chatID)
}

// Answer answers a callback query. Answers are not retried: Telegram
// discards them after a few seconds anyway.
func (c *Connector) Answer(ctx context.Context, callbackID, text string) error {
	bot, err := c.client()
	if err != nil {
		return err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	answerCtx, cancel := context.WithTimeout(ctx, c.cfg.AnswerTimeout())
	defer cancel()

	params := &telego.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
	}
	if err := bot.AnswerCallbackQuery(answerCtx, params); err != nil {
		c.logger.ErrorCtx(ctx, "failed to answer callback query", err,
			logger.Field{Key: "callback_query_id", Value: callbackID})
		return fmt.Errorf("telegram answer: %w", err)
	}
	return nil
}

// editResult treats "message is not modified" as success: the message
// already looks the way the caller wants.
func (c *Connector) editResult(err error, chatID int64) error {
	if err == nil {
		return nil
	}
	if d, ok := channels.ParseTelegramError(err, chatID); ok && d.IsNotModified() {
		return nil
	}
	return err
}

// call runs one Bot API request under the rate limiter, the send timeout and
// the retry policy.
func call[T any](ctx context.Context, c *Connector, op string, chatID int64, fn func(BotInterface, context.Context) (T, error)) (T, error) {
	var zero T
	bot, err := c.client()
	if err != nil {
		return zero, err
	}

	result, err := retry.Do(ctx, c.retryCfg, classify(chatID), func() (T, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return zero, err
		}
		callCtx, cancel := context.WithTimeout(ctx, c.cfg.SendTimeout())
		defer cancel()
		return fn(bot, callCtx)
	})
	if err != nil {
		fields := []logger.Field{{Key: "op", Value: op}, {Key: "chat_id", Value: chatID}}
		if d, ok := channels.ParseTelegramError(err, chatID); ok {
			fields = append(fields, d.LogFields()...)
			if d.IsNotModified() {
				return zero, err
			}
		}
		c.logger.WarnCtx(ctx, "telegram request failed",
			append(fields, logger.Field{Key: "error", Value: err.Error()})...)
		return zero, fmt.Errorf("telegram %s: %w", op, err)
	}
	return result, nil
}

// buildInlineKeyboard converts a keyboard to Telegram's InlineKeyboardMarkup format
func buildInlineKeyboard(kb messages.Keyboard) *telego.InlineKeyboardMarkup {
	if kb == nil {
		return nil
	}

	markup := &telego.InlineKeyboardMarkup{
		InlineKeyboard: make([][]telego.InlineKeyboardButton, len(kb)),
	}
	for i, row := range kb {
		buttons := make([]telego.InlineKeyboardButton, len(row))
		for j, button := range row {
			buttons[j] = telego.InlineKeyboardButton{
				Text:         button.Text,
				CallbackData: button.Data,
			}
		}
		markup.InlineKeyboard[i] = buttons
	}
	return markup
}
