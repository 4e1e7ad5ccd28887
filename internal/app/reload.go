package app

import (
	"context"
	"slices"

	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/scaramou4/rereminder-bot-sub000/internal/config"
	"github.com/scaramou4/rereminder-bot-sub000/internal/logger"
)

// WithConfigPath enables hot reload of the config file at path.
// Only allowed_users, [defaults] and logging.level are applied live;
// other sections need a restart.
func WithConfigPath(path string) Option {
	return func(a *App) { a.configPath = path }
}

// startConfigWatcher must be called with a.mu held.
func (a *App) startConfigWatcher() {
	if a.configPath == "" {
		return
	}
	w := config.NewWatcher(a.configPath, a.config, a.logger, a.applyConfig)
	ctx, cancel := context.WithCancel(a.ctx)
	done := make(chan struct{})
	a.watchCancel, a.watchDone = cancel, done

	go func() {
		defer close(done)
		_ = w.Watch(ctx)
	}()
}

// stopConfigWatcher must be called with a.mu held.
func (a *App) stopConfigWatcher() {
	if a.watchCancel == nil {
		return
	}
	a.watchCancel()
	<-a.watchDone
	a.watchCancel, a.watchDone = nil, nil
}

// applyConfig pushes the live-reloadable parts of cfg into running components.
func (a *App) applyConfig(cfg *config.Config) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.started {
		return
	}

	if !slices.Equal(a.config.Telegram.AllowedUsers, cfg.Telegram.AllowedUsers) && a.commandHandler != nil {
		a.commandHandler.SetAllowedUsers(cfg.Telegram.AllowedUsers)
		a.logger.Info("allowed users updated", logger.Field{Key: "count", Value: len(cfg.Telegram.AllowedUsers)})
	}
	if a.config.Defaults != cfg.Defaults && a.settings != nil {
		a.settings.SetDefaults(cfg.Defaults)
		a.logger.Info("default user settings updated")
	}

	if a.config.Logging.Level != cfg.Logging.Level {
		if err := a.logger.SetLevel(cfg.Logging.Level); err != nil {
			a.logger.Warn("log level not changed", logger.Field{Key: "error", Value: err.Error()})
		} else {
			a.logger.Info("log level updated", logger.Field{Key: "level", Value: cfg.Logging.Level})
		}
	}

	// остальные секции применяются только при рестарте
	next := *a.config
	next.Logging.Level = cfg.Logging.Level
	next.Telegram.AllowedUsers = slices.Clone(cfg.Telegram.AllowedUsers)
	next.Defaults = cfg.Defaults
	a.config = &next
}

// notifySystemd reports state to systemd when running under a notify unit.
// Outside systemd it is a no-op.
func (a *App) notifySystemd(state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		a.logger.Warn("systemd notify failed", logger.Field{Key: "state", Value: state}, logger.Field{Key: "error", Value: err.Error()})
		return
	}
	if sent {
		a.logger.Debug("systemd notified", logger.Field{Key: "state", Value: state})
	}
}
