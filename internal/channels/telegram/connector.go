// Package telegram provides Telegram Bot integration using the Telego library.
// Long polling feeds incoming messages and button presses to the command
// router; the Connector sends, edits and answers on behalf of the reminder
// dispatcher.
//
// Features:
//   - Long polling for receiving updates
//   - Outgoing rate limit shared by all calls
//   - Retry of temporary Bot API failures (429, 5xx, network)
//   - Graceful shutdown handling
package telegram

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mymmrac/telego"
	"golang.org/x/time/rate"

	"github.com/scaramou4/rereminder-bot-sub000/internal/channels"
	"github.com/scaramou4/rereminder-bot-sub000/internal/commands"
	"github.com/scaramou4/rereminder-bot-sub000/internal/config"
	"github.com/scaramou4/rereminder-bot-sub000/internal/constants"
	"github.com/scaramou4/rereminder-bot-sub000/internal/logger"
	"github.com/scaramou4/rereminder-bot-sub000/internal/retry"
)

// ErrNotStarted is returned by API calls made before Start.
var ErrNotStarted = errors.New("telegram connector is not started")

// Router receives converted updates.
type Router interface {
	HandleMessage(ctx context.Context, msg commands.Message) error
	HandleCallback(ctx context.Context, cb commands.Callback) error
}

// Connector represents the Telegram bot connector
type Connector struct {
	cfg      config.TelegramConfig
	logger   *logger.Logger
	bot      BotInterface
	router   Router
	limiter  *rate.Limiter
	retryCfg retry.Config

	mu       sync.RWMutex
	ctx      context.Context
	cancel   context.CancelFunc
	longPoll *LongPollManager
	wg       sync.WaitGroup
}

// New creates a new Telegram connector
func New(cfg config.TelegramConfig, log *logger.Logger) *Connector {
	limit := rate.Inf
	if cfg.RateLimitPerSecond > 0 {
		limit = rate.Limit(cfg.RateLimitPerSecond)
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}
	if cfg.SendTimeoutSeconds <= 0 {
		cfg.SendTimeoutSeconds = 10
	}
	if cfg.AnswerTimeoutSeconds <= 0 {
		cfg.AnswerTimeoutSeconds = 5
	}

	return &Connector{
		cfg:     cfg,
		logger:  log.Component("telegram"),
		limiter: rate.NewLimiter(limit, burst),
		retryCfg: retry.Config{
			MaxAttempts:    cfg.SendRetries,
			InitialBackoff: cfg.SendRetryDelay(),
		},
	}
}

// SetRouter sets the update router (called after the router is built, since
// the router replies through this connector).
func (c *Connector) SetRouter(r Router) {
	c.router = r
}

// SetBot replaces the Bot API client. Start creates a real client when none is set.
func (c *Connector) SetBot(bot BotInterface) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bot = bot
}

// Start initializes the Telegram bot and starts listening for updates
func (c *Connector) Start(ctx context.Context) error {
	c.logger.Info("starting telegram connector")

	if c.router == nil {
		return errors.New("telegram connector has no router")
	}

	c.mu.Lock()
	if c.bot == nil {
		if err := c.validateConfig(); err != nil {
			c.mu.Unlock()
			return fmt.Errorf("invalid config: %w", err)
		}
		bot, err := telego.NewBot(c.cfg.Token, telego.WithLogger(newTelegoLogger(c.logger, c.cfg.Token)))
		if err != nil {
			c.mu.Unlock()
			return fmt.Errorf("failed to initialize telegram bot: %w", err)
		}
		c.bot = NewBotAdapter(bot)
	}
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.longPoll = NewLongPollManager(c.bot, c.router, c.cfg.LongPollTimeout, c.logger)
	c.mu.Unlock()

	botUser, err := c.bot.GetMe(c.ctx)
	if err != nil {
		c.cancel()
		return fmt.Errorf("failed to get bot info: %w", err)
	}

	c.logger.Info("telegram bot initialized",
		logger.Field{Key: "bot_id", Value: botUser.ID},
		logger.Field{Key: "username", Value: botUser.Username})

	if err := c.registerCommands(c.ctx); err != nil {
		c.logger.ErrorCtx(c.ctx, "failed to register bot commands", err)
	}

	if err := c.longPoll.Start(c.ctx, &c.wg); err != nil {
		c.cancel()
		return err
	}
	return nil
}

// Stop gracefully stops the Telegram connector
func (c *Connector) Stop() error {
	c.logger.Info("stopping telegram connector")

	c.mu.RLock()
	cancel := c.cancel
	c.mu.RUnlock()
	if cancel != nil {
		cancel()
	}
	c.wg.Wait()

	c.logger.Info("telegram connector stopped gracefully")
	return nil
}

// validateConfig validates the Telegram configuration
func (c *Connector) validateConfig() error {
	if c.cfg.Token == "" {
		return fmt.Errorf("telegram token is required")
	}
	return nil
}

// registerCommands registers bot commands with Telegram
func (c *Connector) registerCommands(ctx context.Context) error {
	cmds := make([]telego.BotCommand, 0, len(constants.BotMenu))
	for _, m := range constants.BotMenu {
		cmds = append(cmds, telego.BotCommand{Command: m.Command, Description: m.Description})
	}

	if err := c.bot.SetMyCommands(ctx, &telego.SetMyCommandsParams{Commands: cmds}); err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}

	c.logger.Info("bot commands registered successfully",
		logger.Field{Key: "count", Value: len(cmds)})
	return nil
}

func (c *Connector) client() (BotInterface, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.bot == nil {
		return nil, ErrNotStarted
	}
	return c.bot, nil
}

// classify prefers Bot API details (429 retry_after, 5xx) and falls back to
// message patterns for network errors.
func classify(chatID int64) retry.Classifier {
	return func(err error) (bool, time.Duration) {
		if d, ok := channels.ParseTelegramError(err, chatID); ok {
			return d.IsRetryable(), d.RetryAfter()
		}
		return retry.IsRetryable(err), 0
	}
}
