package reminder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Купить молоко", "купить молоко"},
		{"  купить   МОЛОКО!  ", "купить молоко"},
		{"Ёлка", "елка"},
		{"позвонить маме.", "позвонить маме"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}

	assert.Equal(t, Normalize("Кофе"), Normalize("кофе "))
}

func TestReminder_Flags(t *testing.T) {
	r := &Reminder{
		Repeat:               "каждый час",
		MessageID:            10,
		InertiaMessageID:     11,
		InitialMessageEdited: true,
		InertiaInstance:      "x",
	}
	assert.True(t, r.IsRecurring())

	r.ResetDelivery()
	assert.Zero(t, r.MessageID)
	assert.Zero(t, r.InertiaMessageID)
	assert.False(t, r.InitialMessageEdited)
	assert.Empty(t, r.InertiaInstance)
}

func TestReminder_Postpone(t *testing.T) {
	nine := time.Date(2025, 3, 7, 9, 0, 0, 0, time.UTC)

	t.Run("one-off", func(t *testing.T) {
		r := &Reminder{Datetime: nine, MessageID: 10}
		r.Postpone(nine.Add(30 * time.Minute))
		assert.True(t, r.Datetime.Equal(nine.Add(30*time.Minute)))
		assert.True(t, r.SeriesAnchor.IsZero())
		assert.Equal(t, 1, r.PostponedCount)
		assert.Zero(t, r.MessageID)
	})

	t.Run("recurring keeps the first anchor", func(t *testing.T) {
		r := &Reminder{Datetime: nine, Repeat: "каждый день"}
		r.Postpone(nine.Add(30 * time.Minute))
		r.Postpone(nine.Add(time.Hour))
		assert.True(t, r.SeriesAnchor.Equal(nine))
		assert.True(t, r.Datetime.Equal(nine.Add(time.Hour)))
		assert.Equal(t, 2, r.PostponedCount)
	})
}

// conflictStore fails the first n updates with ErrConflict.
type conflictStore struct {
	Store
	rec       Reminder
	conflicts int
	gets      int
	updates   int
}

func (s *conflictStore) Get(_ context.Context, id string) (*Reminder, error) {
	s.gets++
	if id != s.rec.ID {
		return nil, ErrNotFound
	}
	cp := s.rec
	return &cp, nil
}

func (s *conflictStore) Update(_ context.Context, r *Reminder) error {
	s.updates++
	if s.conflicts > 0 {
		s.conflicts--
		s.rec.Version++
		return ErrConflict
	}
	s.rec = *r
	return nil
}

func TestUpdateWithRetry(t *testing.T) {
	ctx := context.Background()

	t.Run("retries on conflict", func(t *testing.T) {
		store := &conflictStore{rec: Reminder{ID: "r1"}, conflicts: 2}
		calls := 0
		r, err := UpdateWithRetry(ctx, store, "r1", func(r *Reminder) error {
			calls++
			r.PostponedCount++
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
		assert.Equal(t, 1, r.PostponedCount)
		assert.Equal(t, 1, store.rec.PostponedCount)
	})

	t.Run("gives up", func(t *testing.T) {
		store := &conflictStore{rec: Reminder{ID: "r1"}, conflicts: MaxUpdateAttempts}
		_, err := UpdateWithRetry(ctx, store, "r1", func(*Reminder) error { return nil })
		assert.ErrorIs(t, err, ErrConflict)
		assert.Equal(t, MaxUpdateAttempts, store.updates)
	})

	t.Run("not found", func(t *testing.T) {
		store := &conflictStore{rec: Reminder{ID: "r1"}}
		_, err := UpdateWithRetry(ctx, store, "r2", func(*Reminder) error { return nil })
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("mutate error", func(t *testing.T) {
		store := &conflictStore{rec: Reminder{ID: "r1"}}
		boom := errors.New("boom")
		_, err := UpdateWithRetry(ctx, store, "r1", func(*Reminder) error { return boom })
		assert.ErrorIs(t, err, boom)
		assert.Zero(t, store.updates)
	})

	t.Run("skip", func(t *testing.T) {
		store := &conflictStore{rec: Reminder{ID: "r1", Completed: true}}
		r, err := UpdateWithRetry(ctx, store, "r1", func(*Reminder) error { return ErrSkip })
		assert.ErrorIs(t, err, ErrSkip)
		require.NotNil(t, r)
		assert.True(t, r.Completed)
		assert.Zero(t, store.updates)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		store := &conflictStore{rec: Reminder{ID: "r1"}}
		_, err := UpdateWithRetry(cctx, store, "r1", func(*Reminder) error { return nil })
		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, store.gets)
	})
}
