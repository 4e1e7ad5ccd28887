package dispatch

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scaramou4/rereminder-bot-sub000/internal/config"
	"github.com/scaramou4/rereminder-bot-sub000/internal/cron"
	"github.com/scaramou4/rereminder-bot-sub000/internal/logger"
	"github.com/scaramou4/rereminder-bot-sub000/internal/reminder"
	"github.com/scaramou4/rereminder-bot-sub000/internal/settings"
	"github.com/scaramou4/rereminder-bot-sub000/internal/storage"
)

var moscow = mustLocation("Europe/Moscow")

func mustLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

type env struct {
	store     *storage.MemoryStore
	scheduler *fakeScheduler
	messenger *fakeMessenger
	settings  *settings.Provider
	recorder  *countingRecorder
	disp      *Dispatcher
	now       time.Time
}

func newEnv(t *testing.T) *env {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "debug", Format: "text", Output: "stdout"})
	require.NoError(t, err)

	e := &env{
		store:     storage.NewMemoryStore(),
		scheduler: &fakeScheduler{},
		messenger: &fakeMessenger{},
		recorder:  newCountingRecorder(),
		now:       time.Date(2025, 3, 7, 12, 0, 0, 0, moscow),
	}
	e.settings = settings.NewProvider(e.store, config.DefaultsConfig{
		Timezone:            "Europe/Moscow",
		MorningTime:         "08:00",
		EveningTime:         "18:00",
		AutoPostponeMinutes: 15,
	}, log)

	seq := 0
	e.disp = New(e.store, e.scheduler, e.messenger, e.settings, log,
		WithClock(func() time.Time { return e.now }),
		WithRecorder(e.recorder),
		WithInstanceFunc(func() string {
			seq++
			return fmt.Sprintf("inst-%d", seq)
		}))
	return e
}

func (e *env) create(t *testing.T, description string, at time.Time, repeat string) *reminder.Reminder {
	t.Helper()
	r := &reminder.Reminder{
		ID:                    "r-" + description,
		UserID:                7,
		ChatID:                70,
		Description:           description,
		NormalizedDescription: reminder.Normalize(description),
		Datetime:              at,
		Repeat:                repeat,
	}
	require.NoError(t, e.store.Create(context.Background(), r))
	return r
}

func (e *env) get(t *testing.T, id string) *reminder.Reminder {
	t.Helper()
	r, err := e.store.Get(context.Background(), id)
	require.NoError(t, err)
	return r
}

func TestSchedule(t *testing.T) {
	t.Run("one-off", func(t *testing.T) {
		e := newEnv(t)
		r := e.create(t, "молоко", e.now.Add(time.Hour), "")

		require.NoError(t, e.disp.Schedule(context.Background(), r))
		require.Len(t, e.scheduler.once, 1)
		assert.Equal(t, onceCall{At: r.Datetime, Kind: cron.KindDelivery, Payload: cron.Payload{ReminderID: r.ID}}, e.scheduler.once[0])
		assert.Empty(t, e.scheduler.every)
	})

	t.Run("recurring", func(t *testing.T) {
		e := newEnv(t)
		r := e.create(t, "зарядка", e.now.Add(time.Hour), "каждый день")

		require.NoError(t, e.disp.Schedule(context.Background(), r))
		require.Len(t, e.scheduler.every, 1)
		call := e.scheduler.every[0]
		assert.Equal(t, "1 day", call.Interval)
		assert.Equal(t, cron.KindDelivery, call.Kind)
		assert.Equal(t, r.Datetime, call.Opts.StartAt)
		assert.False(t, call.Opts.SkipImmediate)
		assert.Equal(t, "Europe/Moscow", call.Opts.Location.String())
	})

	t.Run("postponed occurrence of a series", func(t *testing.T) {
		e := newEnv(t)
		r := e.create(t, "зарядка", e.now.Add(30*time.Minute), "каждый день")
		r.SeriesAnchor = e.now

		require.NoError(t, e.disp.Schedule(context.Background(), r))
		require.Len(t, e.scheduler.once, 1)
		assert.Equal(t, r.Datetime, e.scheduler.once[0].At)
		assert.Empty(t, e.scheduler.every)
	})

	t.Run("completed", func(t *testing.T) {
		e := newEnv(t)
		r := e.create(t, "молоко", e.now, "")
		r.Completed = true

		require.NoError(t, e.disp.Schedule(context.Background(), r))
		assert.Empty(t, e.scheduler.once)
	})

	t.Run("unknown repeat", func(t *testing.T) {
		e := newEnv(t)
		r := e.create(t, "молоко", e.now, "каждый вторник")

		assert.Error(t, e.disp.Schedule(context.Background(), r))
	})
}

func TestCancel(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.disp.Cancel(context.Background(), "r1"))
	assert.Equal(t, []string{"r1"}, e.scheduler.cancelled)
}

func TestRetireControls(t *testing.T) {
	e := newEnv(t)

	r := &reminder.Reminder{ID: "r1", ChatID: 70, MessageID: 11, InertiaMessageID: 12}
	e.disp.RetireControls(context.Background(), r)
	require.Len(t, e.messenger.edits, 2)
	assert.Equal(t, 11, e.messenger.edits[0].MessageID)
	assert.Nil(t, e.messenger.edits[0].Keyboard)
	assert.Equal(t, 12, e.messenger.edits[1].MessageID)

	// original already stripped by the first inertia firing
	e.messenger.edits = nil
	r.InitialMessageEdited = true
	e.disp.RetireControls(context.Background(), r)
	require.Len(t, e.messenger.edits, 1)
	assert.Equal(t, 12, e.messenger.edits[0].MessageID)
}

func TestScheduleOnce_Recurring(t *testing.T) {
	e := newEnv(t)
	r := e.create(t, "зарядка", e.now.Add(5*time.Minute), "каждый день")

	require.NoError(t, e.disp.ScheduleOnce(context.Background(), r))
	require.Len(t, e.scheduler.once, 1)
	assert.Equal(t, r.Datetime, e.scheduler.once[0].At)
	assert.Empty(t, e.scheduler.every)
}
