package builders

import (
	"github.com/scaramou4/rereminder-bot-sub000/internal/channels/telegram"
	"github.com/scaramou4/rereminder-bot-sub000/internal/commands"
	"github.com/scaramou4/rereminder-bot-sub000/internal/config"
	"github.com/scaramou4/rereminder-bot-sub000/internal/logger"
)

type TelegramBuilder struct {
	config *config.Config
	logger *logger.Logger
	bot    telegram.BotInterface
}

// NewTelegramBuilder creates the builder. bot may be nil, then the connector
// creates a telego client from the configured token on start.
func NewTelegramBuilder(cfg *config.Config, log *logger.Logger, bot telegram.BotInterface) *TelegramBuilder {
	return &TelegramBuilder{
		config: cfg,
		logger: log,
		bot:    bot,
	}
}

// BuildConnector creates the connector; it is not started.
func (b *TelegramBuilder) BuildConnector() *telegram.Connector {
	tg := telegram.New(b.config.Telegram, b.logger)
	if b.bot != nil {
		tg.SetBot(b.bot)
	}
	return tg
}

// BuildRouter creates the command handler replying through tg and installs
// it as the connector's router.
func (b *TelegramBuilder) BuildRouter(tg *telegram.Connector, reminders commands.Reminders, prefs commands.Settings) *commands.Handler {
	handler := commands.NewHandler(reminders, prefs, tg, b.logger,
		commands.WithAllowedUsers(b.config.Telegram.AllowedUsers))
	tg.SetRouter(handler)
	return handler
}
