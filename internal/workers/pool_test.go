package workers

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scaramou4/rereminder-bot-sub000/internal/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "debug", Format: "text", Output: "stdout"})
	require.NoError(t, err)
	return log
}

func waitResult(t *testing.T, pool *WorkerPool) Result {
	t.Helper()
	select {
	case result := <-pool.Results():
		return result
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for task result")
		return Result{}
	}
}

type recordingObserver struct {
	mu    sync.Mutex
	types []string
	errs  []error
}

func (o *recordingObserver) ObserveTask(taskType string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.types = append(o.types, taskType)
	o.errs = append(o.errs, err)
}

func TestNewPool(t *testing.T) {
	tests := []struct {
		name        string
		workers     int
		bufferSize  int
		wantWorkers int
	}{
		{name: "valid pool", workers: 3, bufferSize: 10, wantWorkers: 3},
		{name: "single worker", workers: 1, bufferSize: 5, wantWorkers: 1},
		{name: "defaults", workers: 0, bufferSize: 0, wantWorkers: DefaultPoolSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := NewPool(tt.workers, tt.bufferSize, testLogger(t))
			assert.NotNil(t, pool)
			assert.Equal(t, tt.wantWorkers, pool.WorkerCount())
			assert.NotNil(t, pool.Results())
			assert.Zero(t, pool.QueueSize())
		})
	}
}

func TestPool_ExecutesRegisteredType(t *testing.T) {
	pool := NewPool(2, 10, testLogger(t))

	var got atomic.Value
	pool.RegisterExecutor("reminder_job", func(_ context.Context, task Task) error {
		got.Store(task.Payload)
		return nil
	})
	pool.Start()
	defer pool.Stop()

	require.NoError(t, pool.Submit(Task{ID: "t1", Type: "reminder_job", Payload: "r1"}))

	result := waitResult(t, pool)
	assert.Equal(t, "t1", result.TaskID)
	assert.Equal(t, "reminder_job", result.Type)
	assert.NoError(t, result.Error)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, "r1", got.Load())

	metrics := pool.Metrics()
	assert.Equal(t, uint64(1), metrics.TasksSubmitted)
	assert.Equal(t, uint64(1), metrics.TasksCompleted)
}

func TestPool_UnknownTaskType(t *testing.T) {
	pool := NewPool(1, 10, testLogger(t))
	pool.Start()
	defer pool.Stop()

	require.NoError(t, pool.Submit(Task{ID: "t1", Type: "nope"}))

	result := waitResult(t, pool)
	assert.ErrorIs(t, result.Error, ErrUnknownTaskType)
	assert.Equal(t, uint64(1), pool.Metrics().TasksFailed)
}

func TestPool_PanicRecovered(t *testing.T) {
	pool := NewPool(1, 10, testLogger(t))
	pool.RegisterExecutor("boom", func(context.Context, Task) error { panic("boom") })
	pool.RegisterExecutor("ok", func(context.Context, Task) error { return nil })
	pool.Start()
	defer pool.Stop()

	require.NoError(t, pool.Submit(Task{ID: "t1", Type: "boom"}))
	result := waitResult(t, pool)
	require.Error(t, result.Error)
	assert.Contains(t, result.Error.Error(), "panic during task execution")

	// the worker survives
	require.NoError(t, pool.Submit(Task{ID: "t2", Type: "ok"}))
	result = waitResult(t, pool)
	assert.NoError(t, result.Error)
}

func TestPool_Retry(t *testing.T) {
	t.Run("retryable error is retried", func(t *testing.T) {
		pool := NewPool(1, 10, testLogger(t))
		pool.SetRetryPolicy(2, time.Millisecond)

		var calls atomic.Int32
		pool.RegisterExecutor("flaky", func(context.Context, Task) error {
			if calls.Add(1) < 3 {
				return Retryable(errors.New("conflict"))
			}
			return nil
		})
		pool.Start()
		defer pool.Stop()

		require.NoError(t, pool.Submit(Task{ID: "t1", Type: "flaky"}))
		result := waitResult(t, pool)
		assert.NoError(t, result.Error)
		assert.Equal(t, 3, result.Attempts)
		assert.Equal(t, uint64(1), pool.Metrics().TasksRetried)
	})

	t.Run("attempts are bounded", func(t *testing.T) {
		pool := NewPool(1, 10, testLogger(t))
		pool.SetRetryPolicy(1, time.Millisecond)

		var calls atomic.Int32
		pool.RegisterExecutor("flaky", func(context.Context, Task) error {
			calls.Add(1)
			return Retryable(errors.New("conflict"))
		})
		pool.Start()
		defer pool.Stop()

		require.NoError(t, pool.Submit(Task{ID: "t1", Type: "flaky"}))
		result := waitResult(t, pool)
		assert.Error(t, result.Error)
		assert.True(t, IsRetryable(result.Error))
		assert.Equal(t, 2, result.Attempts)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("plain error is not retried", func(t *testing.T) {
		pool := NewPool(1, 10, testLogger(t))
		pool.SetRetryPolicy(3, time.Millisecond)

		var calls atomic.Int32
		sendErr := errors.New("send failed")
		pool.RegisterExecutor("send", func(context.Context, Task) error {
			calls.Add(1)
			return sendErr
		})
		pool.Start()
		defer pool.Stop()

		require.NoError(t, pool.Submit(Task{ID: "t1", Type: "send"}))
		result := waitResult(t, pool)
		assert.ErrorIs(t, result.Error, sendErr)
		assert.Equal(t, int32(1), calls.Load())
	})
}

func TestPool_TaskContext(t *testing.T) {
	pool := NewPool(1, 10, testLogger(t))

	var calls atomic.Int32
	pool.RegisterExecutor("job", func(context.Context, Task) error {
		calls.Add(1)
		return nil
	})
	pool.Start()
	defer pool.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, pool.Submit(Task{ID: "t1", Type: "job", Context: ctx}))
	result := waitResult(t, pool)
	assert.ErrorIs(t, result.Error, context.Canceled)
	assert.Zero(t, calls.Load())
}

func TestPool_TaskTimeout(t *testing.T) {
	pool := NewPool(1, 10, testLogger(t))
	pool.SetTaskTimeout(20 * time.Millisecond)
	pool.RegisterExecutor("slow", func(ctx context.Context, _ Task) error {
		<-ctx.Done()
		return ctx.Err()
	})
	pool.Start()
	defer pool.Stop()

	require.NoError(t, pool.Submit(Task{ID: "t1", Type: "slow"}))
	result := waitResult(t, pool)
	assert.ErrorIs(t, result.Error, context.DeadlineExceeded)
}

func TestPool_Observer(t *testing.T) {
	pool := NewPool(1, 10, testLogger(t))
	obs := &recordingObserver{}
	pool.SetObserver(obs)
	pool.RegisterExecutor("job", func(context.Context, Task) error { return nil })
	pool.Start()
	defer pool.Stop()

	require.NoError(t, pool.Submit(Task{ID: "t1", Type: "job"}))
	waitResult(t, pool)

	obs.mu.Lock()
	defer obs.mu.Unlock()
	assert.Equal(t, []string{"job"}, obs.types)
	assert.Equal(t, []error{nil}, obs.errs)
}

func TestPool_Concurrency(t *testing.T) {
	pool := NewPool(4, 100, testLogger(t))

	var done atomic.Int32
	pool.RegisterExecutor("job", func(context.Context, Task) error {
		done.Add(1)
		return nil
	})
	pool.Start()
	defer pool.Stop()

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, pool.Submit(Task{ID: "t", Type: "job"}))
		}()
	}
	wg.Wait()

	require.Eventually(t, func() bool { return done.Load() == n }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, uint64(n), pool.Metrics().TasksSubmitted)
}

func TestPool_SubmitAfterStop(t *testing.T) {
	pool := NewPool(1, 10, testLogger(t))
	pool.Start()
	pool.Stop()

	assert.ErrorIs(t, pool.Submit(Task{ID: "t1", Type: "job"}), ErrPoolStopped)

	// второй Stop безопасен
	pool.Stop()
}

func TestRetryable(t *testing.T) {
	base := errors.New("base")

	assert.Nil(t, Retryable(nil))
	assert.False(t, IsRetryable(base))
	assert.False(t, IsRetryable(nil))

	err := Retryable(base)
	assert.True(t, IsRetryable(err))
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "base", err.Error())
}
