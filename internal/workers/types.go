// Package workers provides an async worker pool for background task execution.
// Executors are registered per task type; the pool recovers panics and retries
// tasks whose executor reports a retryable error.
package workers

import (
	"context"
	"errors"
	"time"
)

// Task represents a unit of work to be executed by a worker.
type Task struct {
	ID      string          // Unique task identifier
	Type    string          // Task type, selects the executor
	Payload any             // Executor-specific payload
	Context context.Context // Task-specific context for cancellation
}

// Result represents the outcome of a task execution.
type Result struct {
	TaskID   string
	Type     string
	Error    error
	Attempts int
	Duration time.Duration
}

// PoolMetrics tracks execution metrics for the worker pool.
type PoolMetrics struct {
	TasksSubmitted uint64
	TasksCompleted uint64
	TasksFailed    uint64
	TasksRetried   uint64
	TotalDuration  time.Duration
}

// TaskExecutor runs one task.
type TaskExecutor func(context.Context, Task) error

// Observer is notified after every finished task.
type Observer interface {
	ObserveTask(taskType string, d time.Duration, err error)
}

var (
	// ErrPoolStopped is returned by Submit after Stop.
	ErrPoolStopped = errors.New("worker pool stopped")
	// ErrUnknownTaskType is returned for tasks without a registered executor.
	ErrUnknownTaskType = errors.New("unknown task type")
)

// Constants for worker pool configuration
const (
	DefaultTaskTimeout = 30 * time.Second
	DefaultPoolSize    = 4
	DefaultQueueSize   = 100
)

type retryableError struct{ err error }

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

// Retryable marks err so the pool runs the task again.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &retryableError{err: err}
}

// IsRetryable reports whether err was marked with Retryable.
func IsRetryable(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}
