package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/scaramou4/rereminder-bot-sub000/internal/app/builders"
	"github.com/scaramou4/rereminder-bot-sub000/internal/cleanup"
	"github.com/scaramou4/rereminder-bot-sub000/internal/dispatch"
	"github.com/scaramou4/rereminder-bot-sub000/internal/lifecycle"
	"github.com/scaramou4/rereminder-bot-sub000/internal/metrics"
	"github.com/scaramou4/rereminder-bot-sub000/internal/settings"
	"github.com/scaramou4/rereminder-bot-sub000/internal/storage"
	"github.com/scaramou4/rereminder-bot-sub000/internal/timeparse"
)

// Initialize creates and starts all application components:
//  1. metrics collectors
//  2. storage, settings provider and parser
//  3. worker pool and job scheduler
//  4. Telegram connector, dispatcher, lifecycle manager and command router
//  5. connector start, then scheduler start with job restore
//  6. cleanup scheduler and metrics endpoint
//  7. config watcher, when a config path is set
func (a *App) Initialize(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started {
		return fmt.Errorf("application already started")
	}

	a.ctx, a.cancel = context.WithCancel(ctx)

	// 1. Metrics
	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = metrics.New(a.config.Metrics.Namespace, a.registry)

	// 2. Storage and per-user settings
	store, err := storage.Open(a.config.Storage, a.logger)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	a.store = store
	prefs := settings.NewProvider(store, a.config.Defaults, a.logger)
	a.settings = prefs
	parser := timeparse.New(a.logger)

	// 3. Worker pool and scheduler
	wb := builders.NewWorkersBuilder(a.config, a.logger, a.metrics)
	a.workerPool = wb.Build()
	cb := builders.NewCronBuilder(a.config, a.logger)
	a.cronScheduler = cb.Build(builders.NewWorkerPoolAdapter(a.workerPool))
	wb.RegisterJobs(a.workerPool, a.cronScheduler)

	// 4. Telegram, dispatch and lifecycle
	tb := builders.NewTelegramBuilder(a.config, a.logger, a.bot)
	a.telegram = tb.BuildConnector()

	a.dispatcher = dispatch.New(store, a.cronScheduler, a.telegram, prefs, a.logger,
		dispatch.WithRecorder(a.metrics))
	a.dispatcher.Register(a.cronScheduler)

	a.lifecycle = lifecycle.New(store, a.dispatcher, parser, prefs, a.logger,
		lifecycle.WithRecorder(a.metrics))
	a.commandHandler = tb.BuildRouter(a.telegram, a.lifecycle, prefs)

	// 5. Start delivery path
	a.workerPool.Start()
	if err := a.telegram.Start(a.ctx); err != nil {
		return fmt.Errorf("failed to start telegram connector: %w", err)
	}
	if err := cb.Start(a.ctx, a.cronScheduler, store, a.dispatcher); err != nil {
		return err
	}

	// 6. Housekeeping
	a.cleanupScheduler = cleanup.NewScheduler(
		cleanup.NewRunner(store, a.config.Cleanup.Retention()),
		cleanup.SchedulerConfig{Enabled: a.config.Cleanup.Enabled, Interval: a.config.Cleanup.Interval()},
		a.logger,
		a.metrics.RemindersPurged,
	)
	if err := a.cleanupScheduler.Start(a.ctx); err != nil {
		return fmt.Errorf("failed to start cleanup scheduler: %w", err)
	}

	if a.config.Metrics.Enabled {
		a.metricsServer = metrics.NewServer(a.registry, a.logger)
		if err := a.metricsServer.Start(a.config.Metrics.ListenAddr); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
	}

	a.startConfigWatcher()

	a.started = true
	return nil
}
