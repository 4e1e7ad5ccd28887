package cron

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStartedScheduler(t *testing.T, pool WorkerPool, storage *Storage) *Scheduler {
	t.Helper()
	s := NewScheduler(testLogger(), pool, storage)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { stopScheduler(s) })
	return s
}

func TestNewScheduler(t *testing.T) {
	s := NewScheduler(testLogger(), &capturePool{}, nil)

	assert.NotNil(t, s.cron)
	assert.NotNil(t, s.logger)
	assert.NotNil(t, s.jobs)
	assert.NotNil(t, s.handlers)
	assert.False(t, s.IsStarted())
}

func TestScheduler_StartStop(t *testing.T) {
	s := NewScheduler(testLogger(), &capturePool{}, nil)

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsStarted())

	// Start again should fail
	assert.Error(t, s.Start(context.Background()))

	require.NoError(t, s.Stop())
	assert.False(t, s.IsStarted())

	// Stop again should fail
	assert.ErrorIs(t, s.Stop(), ErrNotStarted)
}

func TestScheduler_RunOnce_Fires(t *testing.T) {
	pool := &capturePool{}
	s := newStartedScheduler(t, pool, nil)

	payload := Payload{ReminderID: "r1"}
	require.NoError(t, s.RunOnce(time.Now().Add(50*time.Millisecond), KindDelivery, payload))
	assert.Len(t, s.ListJobs(), 1)

	require.Eventually(t, func() bool { return pool.count() == 1 }, waitFor, tick)

	task := pool.Tasks()[0]
	assert.Equal(t, TaskType, task.Type)
	assert.Equal(t, KindDelivery, task.Payload.Kind)
	assert.Equal(t, payload, task.Payload.Payload)
	assert.Contains(t, task.ID, "r1:delivery_")
	assert.NotNil(t, task.Context)

	// fired once-jobs leave the registry
	require.Eventually(t, func() bool { return len(s.ListJobs()) == 0 }, waitFor, tick)
}

func TestScheduler_RunOnce_PastFiresImmediately(t *testing.T) {
	pool := &capturePool{}
	s := newStartedScheduler(t, pool, nil)

	require.NoError(t, s.RunOnce(time.Now().Add(-time.Hour), KindDelivery, Payload{ReminderID: "r1"}))
	require.Eventually(t, func() bool { return pool.count() == 1 }, waitFor, tick)
}

func TestScheduler_RunOnce_ReplacesSameKey(t *testing.T) {
	pool := &capturePool{}
	s := newStartedScheduler(t, pool, nil)

	payload := Payload{ReminderID: "r1"}
	require.NoError(t, s.RunOnce(time.Now().Add(time.Hour), KindDelivery, payload))
	require.NoError(t, s.RunOnce(time.Now().Add(50*time.Millisecond), KindDelivery, payload))

	jobs := s.ListJobs()
	require.Len(t, jobs, 1)

	require.Eventually(t, func() bool { return pool.count() == 1 }, waitFor, tick)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, pool.count())
}

func TestScheduler_Cancel(t *testing.T) {
	pool := &capturePool{}
	s := newStartedScheduler(t, pool, nil)

	require.NoError(t, s.RunOnce(time.Now().Add(100*time.Millisecond), KindDelivery, Payload{ReminderID: "r1"}))
	require.NoError(t, s.RunEvery("15 minutes", KindInertia, Payload{ReminderID: "r1", Instance: "a"}, EveryOptions{SkipImmediate: true}))
	require.NoError(t, s.RunOnce(time.Now().Add(time.Hour), KindDelivery, Payload{ReminderID: "r2"}))

	require.NoError(t, s.Cancel("r1"))

	jobs := s.ListJobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "r2", jobs[0].Payload.ReminderID)

	time.Sleep(300 * time.Millisecond)
	assert.Zero(t, pool.count())

	// unknown reminder is a no-op
	assert.NoError(t, s.Cancel("missing"))
}

func TestScheduler_CancelInstance(t *testing.T) {
	s := newStartedScheduler(t, &capturePool{}, nil)

	opts := EveryOptions{SkipImmediate: true}
	require.NoError(t, s.RunEvery("15 minutes", KindInertia, Payload{ReminderID: "r1", Instance: "a"}, opts))
	require.NoError(t, s.RunEvery("15 minutes", KindInertia, Payload{ReminderID: "r1", Instance: "b"}, opts))

	require.NoError(t, s.CancelInstance("r1", KindInertia, "a"))

	_, ok := s.GetJob(JobKey{ReminderID: "r1", Kind: KindInertia, Instance: "a"})
	assert.False(t, ok)
	_, ok = s.GetJob(JobKey{ReminderID: "r1", Kind: KindInertia, Instance: "b"})
	assert.True(t, ok)
}

func TestScheduler_RunEvery(t *testing.T) {
	t.Run("skip immediate", func(t *testing.T) {
		s := newStartedScheduler(t, &capturePool{}, nil)

		start := time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC)
		err := s.RunEvery("15 minutes", KindInertia, Payload{ReminderID: "r1", Instance: "x"},
			EveryOptions{StartAt: start, SkipImmediate: true})
		require.NoError(t, err)

		job, ok := s.GetJob(JobKey{ReminderID: "r1", Kind: KindInertia, Instance: "x"})
		require.True(t, ok)
		assert.Equal(t, JobTypeEvery, job.Type)
		assert.Equal(t, "15 minutes", job.Interval)
		require.NotNil(t, job.StartAt)
		assert.Equal(t, start.Add(15*time.Minute), *job.StartAt)
		assert.Equal(t, "UTC", job.Location)
	})

	t.Run("past start fires and stays", func(t *testing.T) {
		pool := &capturePool{}
		s := newStartedScheduler(t, pool, nil)

		err := s.RunEvery("1 day", KindDelivery, Payload{ReminderID: "r1"},
			EveryOptions{StartAt: time.Now().Add(-time.Second)})
		require.NoError(t, err)

		require.Eventually(t, func() bool { return pool.count() == 1 }, waitFor, tick)

		job, ok := s.GetJob(JobKey{ReminderID: "r1", Kind: KindDelivery})
		require.True(t, ok)
		assert.NotNil(t, job.LastRun)
	})

	t.Run("invalid interval", func(t *testing.T) {
		s := newStartedScheduler(t, &capturePool{}, nil)

		assert.Error(t, s.RunEvery("5 fortnights", KindDelivery, Payload{ReminderID: "r1"}, EveryOptions{}))
		assert.Error(t, s.RunEvery("0 minutes", KindDelivery, Payload{ReminderID: "r1"}, EveryOptions{}))
		assert.Empty(t, s.ListJobs())
	})
}

func TestScheduler_Execute(t *testing.T) {
	s := NewScheduler(testLogger(), nil, nil)

	var got Payload
	s.RegisterHandler(KindDelivery, func(_ context.Context, p Payload) error {
		got = p
		return nil
	})

	err := s.Execute(context.Background(), Fired{Kind: KindDelivery, Payload: Payload{ReminderID: "r1"}})
	require.NoError(t, err)
	assert.Equal(t, "r1", got.ReminderID)

	err = s.Execute(context.Background(), Fired{Kind: KindInertia, Payload: Payload{ReminderID: "r1"}})
	assert.ErrorIs(t, err, ErrNoHandler)

	boom := errors.New("boom")
	s.RegisterHandler(KindInertia, func(context.Context, Payload) error { return boom })
	err = s.Execute(context.Background(), Fired{Kind: KindInertia})
	assert.ErrorIs(t, err, boom)
}

func TestScheduler_WithoutPoolRunsHandler(t *testing.T) {
	s := NewScheduler(testLogger(), nil, nil)

	var calls atomic.Int32
	s.RegisterHandler(KindDelivery, func(context.Context, Payload) error {
		calls.Add(1)
		return nil
	})
	require.NoError(t, s.Start(context.Background()))
	defer stopScheduler(s)

	require.NoError(t, s.RunOnce(time.Now(), KindDelivery, Payload{ReminderID: "r1"}))
	require.Eventually(t, func() bool { return calls.Load() == 1 }, waitFor, tick)
}

func TestScheduler_Persistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cron", JobsFilename)
	storage := NewStorage(path, testLogger())

	first := NewScheduler(testLogger(), &capturePool{}, storage)
	require.NoError(t, first.Start(context.Background()))

	at := time.Now().Add(time.Hour).Truncate(time.Second)
	require.NoError(t, first.RunOnce(at, KindDelivery, Payload{ReminderID: "r1"}))
	require.NoError(t, first.RunEvery("15 minutes", KindInertia, Payload{ReminderID: "r2", Instance: "i"},
		EveryOptions{SkipImmediate: true}))
	require.NoError(t, first.Stop())

	stored, err := storage.Load()
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	// a new process picks the jobs up again
	second := newStartedScheduler(t, &capturePool{}, storage)
	jobs := second.ListJobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, "r1:delivery", jobs[0].ID)
	require.NotNil(t, jobs[0].At)
	assert.True(t, at.Equal(*jobs[0].At))
	assert.Equal(t, "r2:inertia:i", jobs[1].ID)

	require.NoError(t, second.Cancel("r1"))
	stored, err = storage.Load()
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "r2", stored[0].Payload.ReminderID)
}

func TestScheduler_FiredOnceJobLeavesStorage(t *testing.T) {
	storage := NewStorage(filepath.Join(t.TempDir(), JobsFilename), testLogger())
	pool := &capturePool{}
	s := newStartedScheduler(t, pool, storage)

	require.NoError(t, s.RunOnce(time.Now().Add(30*time.Millisecond), KindDelivery, Payload{ReminderID: "r1"}))
	require.Eventually(t, func() bool { return pool.count() == 1 }, waitFor, tick)

	require.Eventually(t, func() bool {
		jobs, err := storage.Load()
		return err == nil && len(jobs) == 0
	}, waitFor, tick)
}

func TestScheduler_RestoreMissedEveryJob(t *testing.T) {
	storage := NewStorage(filepath.Join(t.TempDir(), JobsFilename), testLogger())

	start := time.Now().Add(-time.Hour)
	lastRun := start
	require.NoError(t, storage.Save([]Job{{
		ID:       "r1:delivery",
		Kind:     KindDelivery,
		Type:     JobTypeEvery,
		Payload:  Payload{ReminderID: "r1"},
		Interval: "30 minutes",
		StartAt:  &start,
		LastRun:  &lastRun,
		Location: "UTC",
	}}))

	pool := &capturePool{}
	newStartedScheduler(t, pool, storage)

	// пропущенные срабатывания схлопываются в одно
	require.Eventually(t, func() bool { return pool.count() == 1 }, waitFor, tick)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, pool.count())
}

func TestJobKey_String(t *testing.T) {
	assert.Equal(t, "r1:delivery", JobKey{ReminderID: "r1", Kind: KindDelivery}.String())
	assert.Equal(t, "r1:inertia:abc", JobKey{ReminderID: "r1", Kind: KindInertia, Instance: "abc"}.String())

	job := Job{Kind: KindInertia, Payload: Payload{ReminderID: "r1", Instance: "abc"}}
	assert.Equal(t, JobKey{ReminderID: "r1", Kind: KindInertia, Instance: "abc"}, job.Key())
}
