package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/scaramou4/rereminder-bot-sub000/internal/reminder"
	"github.com/scaramou4/rereminder-bot-sub000/internal/settings"
)

// MemoryStore keeps everything in process memory. It enforces the same
// uniqueness and version rules as SQLiteStore.
type MemoryStore struct {
	mu        sync.RWMutex
	reminders map[string]reminder.Reminder
	settings  map[int64]settings.UserSettings
	now       func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		reminders: make(map[string]reminder.Reminder),
		settings:  make(map[int64]settings.UserSettings),
		now:       time.Now,
	}
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) Create(_ context.Context, r *reminder.Reminder) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.reminders[r.ID]; ok {
		return reminder.ErrDuplicate
	}
	if !r.Completed && m.activeDuplicate(r.UserID, r.NormalizedDescription, r.ID) {
		return reminder.ErrDuplicate
	}

	now := m.now()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	r.Version = 1
	m.reminders[r.ID] = *r
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*reminder.Reminder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.reminders[id]
	if !ok {
		return nil, reminder.ErrNotFound
	}
	return &r, nil
}

func (m *MemoryStore) Update(_ context.Context, r *reminder.Reminder) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.reminders[r.ID]
	if !ok {
		return reminder.ErrNotFound
	}
	if cur.Version != r.Version {
		return reminder.ErrConflict
	}
	if !r.Completed && m.activeDuplicate(r.UserID, r.NormalizedDescription, r.ID) {
		return reminder.ErrDuplicate
	}

	r.Version++
	r.UpdatedAt = m.now()
	r.CreatedAt = cur.CreatedAt
	m.reminders[r.ID] = *r
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) (*reminder.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.reminders[id]
	if !ok {
		return nil, reminder.ErrNotFound
	}
	delete(m.reminders, id)
	return &r, nil
}

func (m *MemoryStore) DeleteByUser(_ context.Context, userID int64) ([]reminder.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed []reminder.Reminder
	for id, r := range m.reminders {
		if r.UserID == userID {
			removed = append(removed, r)
			delete(m.reminders, id)
		}
	}
	sortByDatetime(removed)
	return removed, nil
}

func (m *MemoryStore) ListByUser(_ context.Context, userID int64, activeOnly bool) ([]reminder.Reminder, error) {
	return m.filter(func(r reminder.Reminder) bool {
		return r.UserID == userID && (!activeOnly || !r.Completed)
	}), nil
}

func (m *MemoryStore) FindActiveByDescription(_ context.Context, userID int64, normalized string) (*reminder.Reminder, error) {
	found := m.filter(func(r reminder.Reminder) bool {
		return r.UserID == userID && !r.Completed && r.NormalizedDescription == normalized
	})
	if len(found) == 0 {
		return nil, reminder.ErrNotFound
	}
	return &found[0], nil
}

func (m *MemoryStore) ListActive(_ context.Context) ([]reminder.Reminder, error) {
	return m.filter(func(r reminder.Reminder) bool { return !r.Completed }), nil
}

// PurgeCompleted removes completed reminders last updated before cutoff.
func (m *MemoryStore) PurgeCompleted(_ context.Context, before time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for id, r := range m.reminders {
		if r.Completed && r.UpdatedAt.Before(before) {
			delete(m.reminders, id)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) GetSettings(_ context.Context, userID int64) (*settings.UserSettings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.settings[userID]
	if !ok {
		return nil, settings.ErrNotFound
	}
	return &s, nil
}

func (m *MemoryStore) SaveSettings(_ context.Context, userID int64, s settings.UserSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.settings[userID] = s
	return nil
}

// activeDuplicate must be called with mu held.
func (m *MemoryStore) activeDuplicate(userID int64, normalized, exceptID string) bool {
	for id, r := range m.reminders {
		if id != exceptID && r.UserID == userID && !r.Completed && r.NormalizedDescription == normalized {
			return true
		}
	}
	return false
}

func (m *MemoryStore) filter(keep func(reminder.Reminder) bool) []reminder.Reminder {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []reminder.Reminder
	for _, r := range m.reminders {
		if keep(r) {
			out = append(out, r)
		}
	}
	sortByDatetime(out)
	return out
}

func sortByDatetime(rs []reminder.Reminder) {
	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].Datetime.Equal(rs[j].Datetime) {
			return rs[i].CreatedAt.Before(rs[j].CreatedAt)
		}
		return rs[i].Datetime.Before(rs[j].Datetime)
	})
}
