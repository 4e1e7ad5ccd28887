package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scaramou4/rereminder-bot-sub000/internal/logger"
)

func writeWatched(t *testing.T, path, users string) {
	t.Helper()
	content := `
[telegram]
token = "` + validToken + `"
allowed_users = [` + users + `]

[storage]
driver = "memory"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

type reloads struct {
	mu   sync.Mutex
	cfgs []*Config
}

func (r *reloads) add(c *Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfgs = append(r.cfgs, c)
}

func (r *reloads) last() *Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.cfgs) == 0 {
		return nil
	}
	return r.cfgs[len(r.cfgs)-1]
}

func (r *reloads) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cfgs)
}

func TestWatcher_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeWatched(t, path, `"1"`)
	current, err := Load(path)
	require.NoError(t, err)

	got := &reloads{}
	w := NewWatcher(path, current, logger.Nop(), got.add)

	changed, err := w.Reload()
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Zero(t, got.count())

	writeWatched(t, path, `"1", "2"`)
	changed, err = w.Reload()
	require.NoError(t, err)
	assert.True(t, changed)
	require.Equal(t, 1, got.count())
	assert.Equal(t, []string{"1", "2"}, got.last().Telegram.AllowedUsers)
}

func TestWatcher_ReloadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeWatched(t, path, `"1"`)
	current, err := Load(path)
	require.NoError(t, err)

	got := &reloads{}
	w := NewWatcher(path, current, logger.Nop(), got.add)

	require.NoError(t, os.WriteFile(path, []byte("[storage]\ndriver = \"memory\"\n"), 0644))
	changed, err := w.Reload()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram.token is required")
	assert.False(t, changed)

	require.NoError(t, os.WriteFile(path, []byte("[telegram\n"), 0644))
	_, err = w.Reload()
	assert.Error(t, err)
	assert.Zero(t, got.count())
}

func TestWatcher_WatchPicksUpWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeWatched(t, path, `"1"`)
	current, err := Load(path)
	require.NoError(t, err)

	got := &reloads{}
	w := NewWatcher(path, current, logger.Nop(), got.add)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx) }()

	// пишем реже, чем срабатывает debounce, пока watcher не подхватит каталог
	require.Eventually(t, func() bool {
		if got.count() > 0 {
			return true
		}
		writeWatched(t, path, `"1", "3"`)
		return false
	}, 5*time.Second, 400*time.Millisecond)
	assert.Equal(t, []string{"1", "3"}, got.last().Telegram.AllowedUsers)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
