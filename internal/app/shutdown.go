package app

import (
	"context"
	"errors"
	"time"

	"github.com/scaramou4/rereminder-bot-sub000/internal/cron"
)

// shutdownTimeout bounds the metrics server shutdown.
const shutdownTimeout = 5 * time.Second

// Shutdown performs graceful shutdown of all components.
// It stops the application in the following order:
//  1. Stops the Telegram connector (no new updates)
//  2. Stops the cron scheduler (no new firings)
//  3. Stops the worker pool, waiting for running deliveries
//  4. Stops cleanup and the metrics endpoint
//  5. Closes storage
//
// Safe to call on a partially initialized app and more than once.
func (a *App) Shutdown() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.shutdownInternal()
}

func (a *App) shutdownInternal() error {
	a.stopConfigWatcher()

	if a.telegram != nil {
		if err := a.telegram.Stop(); err != nil {
			a.logger.Error("Failed to stop telegram connector", err)
		}
		a.telegram = nil
	}

	if a.cronScheduler != nil {
		if err := a.cronScheduler.Stop(); err != nil && !errors.Is(err, cron.ErrNotStarted) {
			a.logger.Error("Failed to stop cron scheduler", err)
		}
	}

	if a.workerPool != nil {
		a.workerPool.Stop()
		a.workerPool = nil
	}

	if a.cleanupScheduler != nil {
		a.cleanupScheduler.Stop()
		a.cleanupScheduler = nil
	}

	if a.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			a.logger.Error("Failed to stop metrics server", err)
		}
		cancel()
		a.metricsServer = nil
	}

	if a.cancel != nil {
		a.cancel()
	}

	a.settings = nil

	var storeErr error
	if a.store != nil {
		if storeErr = a.store.Close(); storeErr != nil {
			a.logger.Error("Failed to close storage", storeErr)
		}
		a.store = nil
	}

	if a.started {
		a.logger.Info("Application shutdown complete")
	}
	a.started = false

	return storeErr
}
