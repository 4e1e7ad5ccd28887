// Package storage persists reminders and user settings.
//
// Drivers:
//   - sqlite: modernc.org/sqlite (pure Go), one file, WAL journal
//   - memory: process-local maps, for tests and dry runs
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/scaramou4/rereminder-bot-sub000/internal/config"
	"github.com/scaramou4/rereminder-bot-sub000/internal/logger"
	"github.com/scaramou4/rereminder-bot-sub000/internal/reminder"
	"github.com/scaramou4/rereminder-bot-sub000/internal/settings"
)

// Driver names accepted in [storage].driver.
const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Store is the full persistence surface used by the application.
type Store interface {
	reminder.Store
	settings.Store
	PurgeCompleted(ctx context.Context, before time.Time) (int, error)
	Close() error
}

// Open creates the store selected by cfg.Driver.
func Open(cfg config.StorageConfig, log *logger.Logger) (Store, error) {
	switch cfg.Driver {
	case DriverSQLite, "":
		return OpenSQLite(cfg.Path, cfg.BusyTimeoutSeconds, log)
	case DriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
