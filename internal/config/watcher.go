package config

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/scaramou4/rereminder-bot-sub000/internal/logger"
)

const (
	watchDebounce       = 250 * time.Millisecond
	watchRestartBackoff = time.Second
)

// Watcher reloads the config file on change and hands every valid new
// version to the subscriber. Invalid versions are logged and dropped.
type Watcher struct {
	path     string
	logger   *logger.Logger
	onChange func(*Config)

	mu      sync.Mutex
	current *Config
	timer   *time.Timer
}

// NewWatcher creates a watcher for path. current is the config in use.
func NewWatcher(path string, current *Config, log *logger.Logger, onChange func(*Config)) *Watcher {
	return &Watcher{
		path:     path,
		current:  current,
		logger:   log.Component("config"),
		onChange: onChange,
	}
}

// Watch blocks until ctx is done. The directory is watched, not the file,
// so editors that replace the file by rename are handled.
func (w *Watcher) Watch(ctx context.Context) error {
	dir := filepath.Dir(w.path)
	file := filepath.Base(w.path)

	for {
		if ctx.Err() != nil {
			return nil
		}

		fw, err := fsnotify.NewWatcher()
		if err == nil {
			if err = fw.Add(dir); err != nil {
				_ = fw.Close()
			}
		}
		if err != nil {
			w.logger.Warn("config watch failed", logger.Field{Key: "dir", Value: dir}, logger.Field{Key: "error", Value: err.Error()})
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(watchRestartBackoff):
				continue
			}
		}

		w.logger.Debug("config watcher started", logger.Field{Key: "path", Value: w.path})
		if done := w.loop(ctx, fw, file); done {
			_ = fw.Close()
			w.stopTimer()
			return nil
		}
		_ = fw.Close()
	}
}

// loop returns true when ctx is done, false when the watcher broke.
func (w *Watcher) loop(ctx context.Context, fw *fsnotify.Watcher, file string) bool {
	for {
		select {
		case <-ctx.Done():
			return true
		case ev, ok := <-fw.Events:
			if !ok {
				return false
			}
			if filepath.Base(ev.Name) == file && ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.debounce()
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return false
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				w.debounce()
				continue
			}
			w.logger.Warn("config watcher error", logger.Field{Key: "error", Value: err.Error()})
		}
	}
}

func (w *Watcher) debounce() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(watchDebounce, func() {
		if _, err := w.Reload(); err != nil {
			w.logger.Warn("config reload rejected", logger.Field{Key: "path", Value: w.path}, logger.Field{Key: "error", Value: err.Error()})
		}
	})
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

// Reload reads and validates the file now. It reports whether the
// subscriber was notified; an unchanged config is not published.
func (w *Watcher) Reload() (bool, error) {
	cfg, err := Load(w.path)
	if err != nil {
		return false, err
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return false, fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}

	w.mu.Lock()
	unchanged := reflect.DeepEqual(w.current, cfg)
	if !unchanged {
		w.current = cfg
	}
	w.mu.Unlock()

	if unchanged {
		return false, nil
	}
	w.logger.Info("config reloaded", logger.Field{Key: "path", Value: w.path})
	if w.onChange != nil {
		w.onChange(cfg)
	}
	return true, nil
}
