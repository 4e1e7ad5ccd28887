package main

import (
	"fmt"

	"github.com/scaramou4/rereminder-bot-sub000/internal/app/builders"
	"github.com/scaramou4/rereminder-bot-sub000/internal/channels/telegram"
	"github.com/scaramou4/rereminder-bot-sub000/internal/config"
	"github.com/scaramou4/rereminder-bot-sub000/internal/dispatch"
	"github.com/scaramou4/rereminder-bot-sub000/internal/lifecycle"
	"github.com/scaramou4/rereminder-bot-sub000/internal/logger"
	"github.com/scaramou4/rereminder-bot-sub000/internal/settings"
	"github.com/scaramou4/rereminder-bot-sub000/internal/storage"
	"github.com/scaramou4/rereminder-bot-sub000/internal/timeparse"
)

// offline is the reminder domain without the bot: new jobs go to the jobs
// file and fire when `serve` starts. Run it while the bot is stopped.
type offline struct {
	store    storage.Store
	settings *settings.Provider
	manager  *lifecycle.Manager
}

func openOffline(cfg *config.Config, log *logger.Logger) (*offline, error) {
	store, err := storage.Open(cfg.Storage, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	prefs := settings.NewProvider(store, cfg.Defaults, log)
	scheduler := builders.NewCronBuilder(cfg, log).Build(nil)
	// коннектор не запускается: отправка вернёт telegram.ErrNotStarted
	dispatcher := dispatch.New(store, scheduler, telegram.New(cfg.Telegram, log), prefs, log)

	return &offline{
		store:    store,
		settings: prefs,
		manager:  lifecycle.New(store, dispatcher, timeparse.New(log), prefs, log),
	}, nil
}

func (o *offline) Close() error {
	return o.store.Close()
}
