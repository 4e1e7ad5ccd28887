package workers

import (
	"fmt"
	"time"

	"github.com/scaramou4/rereminder-bot-sub000/internal/logger"
)

// worker is the main worker goroutine that processes tasks from the queue.
func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	p.logger.DebugCtx(p.ctx, "worker started",
		logger.Field{Key: "worker_id", Value: id})

	for {
		select {
		case task := <-p.taskQueue:
			p.processTask(id, task)

		case <-p.ctx.Done():
			p.logger.DebugCtx(p.ctx, "worker stopping",
				logger.Field{Key: "worker_id", Value: id})
			return
		}
	}
}

// processTask handles a single task execution with metrics and error handling.
func (p *WorkerPool) processTask(workerID int, task Task) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("worker panic recovered", fmt.Errorf("panic: %v", r),
				logger.Field{Key: "worker_id", Value: workerID},
				logger.Field{Key: "task_id", Value: task.ID})
		}
	}()

	startTime := time.Now()

	// Use task context if provided, otherwise use pool context
	execCtx := p.ctx
	if task.Context != nil {
		execCtx = task.Context
	}

	result := p.executeTask(execCtx, task)
	result.Duration = time.Since(startTime)

	p.mu.Lock()
	if result.Error != nil {
		p.metrics.TasksFailed++
	} else {
		p.metrics.TasksCompleted++
	}
	if result.Attempts > 1 {
		p.metrics.TasksRetried++
	}
	p.metrics.TotalDuration += result.Duration
	observer := p.observer
	p.mu.Unlock()

	if observer != nil {
		observer.ObserveTask(task.Type, result.Duration, result.Error)
	}

	if result.Error != nil {
		p.logger.ErrorCtx(execCtx, "task failed", result.Error,
			logger.Field{Key: "worker_id", Value: workerID},
			logger.Field{Key: "task_id", Value: task.ID},
			logger.Field{Key: "attempts", Value: result.Attempts})
	} else {
		p.logger.DebugCtx(execCtx, "task processed",
			logger.Field{Key: "worker_id", Value: workerID},
			logger.Field{Key: "task_id", Value: task.ID},
			logger.Field{Key: "duration_ms", Value: result.Duration.Milliseconds()})
	}

	select {
	case p.resultCh <- result:
	default:
	}
}
