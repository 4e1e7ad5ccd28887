package telegram

import (
	"context"
	"fmt"
	"sync"

	"github.com/mymmrac/telego"

	"github.com/scaramou4/rereminder-bot-sub000/internal/commands"
	"github.com/scaramou4/rereminder-bot-sub000/internal/logger"
)

const defaultLongPollTimeout = 30

// LongPollManager handles long polling for Telegram updates. Updates are
// handled one at a time so messages of a chat keep their order.
type LongPollManager struct {
	bot     BotInterface
	router  Router
	timeout int
	logger  *logger.Logger
}

// NewLongPollManager creates a new long poll manager.
func NewLongPollManager(bot BotInterface, router Router, timeoutSeconds int, log *logger.Logger) *LongPollManager {
	if timeoutSeconds <= 0 {
		timeoutSeconds = defaultLongPollTimeout
	}
	return &LongPollManager{
		bot:     bot,
		router:  router,
		timeout: timeoutSeconds,
		logger:  log,
	}
}

// Start subscribes to updates and processes them in a goroutine tracked by
// wg until ctx is cancelled or the updates channel closes.
func (lpm *LongPollManager) Start(ctx context.Context, wg *sync.WaitGroup) error {
	lpm.logger.Info("starting long polling for telegram updates",
		logger.Field{Key: "timeout", Value: lpm.timeout})

	updates, err := lpm.bot.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
		Timeout:        lpm.timeout,
		AllowedUpdates: []string{"message", "callback_query"},
	})
	if err != nil {
		return fmt.Errorf("failed to start long polling: %w", err)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		lpm.run(ctx, updates)
	}()
	return nil
}

func (lpm *LongPollManager) run(ctx context.Context, updates <-chan telego.Update) {
	for {
		select {
		case <-ctx.Done():
			lpm.logger.Info("long polling stopped")
			return
		case update, ok := <-updates:
			if !ok {
				lpm.logger.Info("updates channel closed")
				return
			}
			if err := lpm.handle(ctx, update); err != nil {
				lpm.logger.ErrorCtx(ctx, "failed to handle update", err,
					logger.Field{Key: "update_id", Value: update.UpdateID})
			}
		}
	}
}

// handle converts an update for the router. Updates other than text
// messages and button presses are ignored.
func (lpm *LongPollManager) handle(ctx context.Context, update telego.Update) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while handling update: %v", r)
		}
	}()

	ctx = logger.ContextWith(ctx, logger.Field{Key: "update_id", Value: update.UpdateID})

	if msg, ok := toMessage(update); ok {
		ctx = logger.ContextWith(ctx,
			logger.Field{Key: "user_id", Value: msg.UserID},
			logger.Field{Key: "chat_id", Value: msg.ChatID})
		lpm.logger.DebugCtx(ctx, "message received")
		return lpm.router.HandleMessage(ctx, msg)
	}
	if cb, ok := toCallback(update); ok {
		ctx = logger.ContextWith(ctx,
			logger.Field{Key: "user_id", Value: cb.UserID},
			logger.Field{Key: "chat_id", Value: cb.ChatID})
		lpm.logger.DebugCtx(ctx, "callback received")
		return lpm.router.HandleCallback(ctx, cb)
	}
	return nil
}

func toMessage(update telego.Update) (commands.Message, bool) {
	msg := update.Message
	if msg == nil || msg.Text == "" || msg.From == nil {
		return commands.Message{}, false
	}
	return commands.Message{
		UserID: msg.From.ID,
		ChatID: msg.Chat.ID,
		Text:   msg.Text,
	}, true
}

func toCallback(update telego.Update) (commands.Callback, bool) {
	q := update.CallbackQuery
	if q == nil {
		return commands.Callback{}, false
	}

	cb := commands.Callback{
		ID:     q.ID,
		UserID: q.From.ID,
		ChatID: q.From.ID,
		Data:   q.Data,
	}
	if q.Message != nil {
		if chat := q.Message.GetChat(); chat.ID != 0 {
			cb.ChatID = chat.ID
		}
		cb.MessageID = q.Message.GetMessageID()
	}
	return cb, true
}
