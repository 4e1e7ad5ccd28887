// Package app wires the reminder bot together: storage, settings, parser,
// lifecycle manager, dispatcher, job scheduler, worker pool, Telegram
// connector, cleanup and metrics.
package app

import (
	"context"
	"sync"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/scaramou4/rereminder-bot-sub000/internal/channels/telegram"
	"github.com/scaramou4/rereminder-bot-sub000/internal/cleanup"
	"github.com/scaramou4/rereminder-bot-sub000/internal/commands"
	"github.com/scaramou4/rereminder-bot-sub000/internal/config"
	"github.com/scaramou4/rereminder-bot-sub000/internal/cron"
	"github.com/scaramou4/rereminder-bot-sub000/internal/dispatch"
	"github.com/scaramou4/rereminder-bot-sub000/internal/lifecycle"
	"github.com/scaramou4/rereminder-bot-sub000/internal/logger"
	"github.com/scaramou4/rereminder-bot-sub000/internal/metrics"
	"github.com/scaramou4/rereminder-bot-sub000/internal/settings"
	"github.com/scaramou4/rereminder-bot-sub000/internal/storage"
	"github.com/scaramou4/rereminder-bot-sub000/internal/workers"
)

// App represents the main application structure.
// It holds references to all major components and manages their lifecycle.
type App struct {
	// Configuration and core services
	config     *config.Config
	configPath string
	logger     *logger.Logger

	// Persistence
	store storage.Store

	// Reminder domain
	lifecycle  *lifecycle.Manager
	dispatcher *dispatch.Dispatcher
	settings   *settings.Provider

	// Channels
	telegram       *telegram.Connector
	commandHandler *commands.Handler
	bot            telegram.BotInterface

	// Scheduled jobs
	cronScheduler *cron.Scheduler
	workerPool    *workers.WorkerPool

	// Cleanup scheduler
	cleanupScheduler *cleanup.Scheduler

	// Observability
	registry      *prometheus.Registry
	metrics       *metrics.Metrics
	metricsServer *metrics.Server

	// Config hot reload
	watchCancel context.CancelFunc
	watchDone   chan struct{}

	// Context management
	ctx    context.Context
	cancel context.CancelFunc

	// Thread-safety
	mu      sync.RWMutex
	started bool
}

// Option configures an App.
type Option func(*App)

// WithBot replaces the Telegram Bot API client.
func WithBot(bot telegram.BotInterface) Option {
	return func(a *App) { a.bot = bot }
}

// New creates a new App instance with the provided configuration and logger.
// Components are created in Initialize.
func New(cfg *config.Config, log *logger.Logger, opts ...Option) *App {
	a := &App{
		config: cfg,
		logger: log,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run starts the application and blocks until the context is cancelled,
// then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	if err := a.Initialize(ctx); err != nil {
		_ = a.Shutdown()
		return err
	}

	a.logger.Info("Application is running")
	a.notifySystemd(daemon.SdNotifyReady)

	<-ctx.Done()

	a.notifySystemd(daemon.SdNotifyStopping)
	return a.Shutdown()
}

// Lifecycle returns the reminder lifecycle manager (nil before Initialize).
func (a *App) Lifecycle() *lifecycle.Manager {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lifecycle
}

// Scheduler returns the job scheduler (nil before Initialize).
func (a *App) Scheduler() *cron.Scheduler {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cronScheduler
}

// Registry returns the Prometheus registry of the app.
func (a *App) Registry() *prometheus.Registry {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.registry
}
