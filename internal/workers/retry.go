package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/scaramou4/rereminder-bot-sub000/internal/logger"
)

// executeTask dispatches task execution based on type.
func (p *WorkerPool) executeTask(ctx context.Context, task Task) Result {
	result := Result{TaskID: task.ID, Type: task.Type}

	// Handle context cancellation before execution
	if err := ctx.Err(); err != nil {
		result.Error = err
		return result
	}

	p.mu.RLock()
	exec, ok := p.executors[task.Type]
	maxRetries, delay, timeout := p.maxRetries, p.retryDelay, p.timeout
	p.mu.RUnlock()

	if !ok {
		result.Error = fmt.Errorf("%w: %s", ErrUnknownTaskType, task.Type)
		return result
	}

	for attempt := 0; ; attempt++ {
		result.Attempts = attempt + 1
		result.Error = p.executeWithRecovery(ctx, task, exec, timeout)
		if result.Error == nil || !IsRetryable(result.Error) || attempt >= maxRetries {
			return result
		}

		p.logger.WarnCtx(ctx, "retrying task",
			logger.Field{Key: "task_id", Value: task.ID},
			logger.Field{Key: "attempt", Value: attempt + 1},
			logger.Field{Key: "error", Value: result.Error.Error()})

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			result.Error = ctx.Err()
			return result
		}
	}
}

// executeWithRecovery runs one attempt with panic recovery and an optional timeout.
func (p *WorkerPool) executeWithRecovery(ctx context.Context, task Task, exec TaskExecutor, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				p.logger.ErrorCtx(ctx, "task panic recovered", fmt.Errorf("panic: %v", r),
					logger.Field{Key: "task_id", Value: task.ID})
				done <- fmt.Errorf("panic during task execution: %v", r)
			}
		}()
		done <- exec(ctx, task)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
