package builders

import (
	"context"
	"errors"
	"fmt"

	"github.com/scaramou4/rereminder-bot-sub000/internal/config"
	"github.com/scaramou4/rereminder-bot-sub000/internal/cron"
	"github.com/scaramou4/rereminder-bot-sub000/internal/logger"
	"github.com/scaramou4/rereminder-bot-sub000/internal/reminder"
	"github.com/scaramou4/rereminder-bot-sub000/internal/workers"
)

// JobExecutor runs a fired job; cron.Scheduler implements it.
type JobExecutor interface {
	Execute(ctx context.Context, f cron.Fired) error
}

type WorkersBuilder struct {
	config   *config.Config
	logger   *logger.Logger
	observer workers.Observer
}

func NewWorkersBuilder(cfg *config.Config, log *logger.Logger, observer workers.Observer) *WorkersBuilder {
	return &WorkersBuilder{
		config:   cfg,
		logger:   log,
		observer: observer,
	}
}

// Build creates the pool without starting it.
func (b *WorkersBuilder) Build() *workers.WorkerPool {
	pool := workers.NewPool(b.config.Scheduler.Workers, b.config.Scheduler.QueueSize, b.logger)
	pool.SetRetryPolicy(b.config.Scheduler.MaxRetries, b.config.Scheduler.RetryDelay())
	if b.observer != nil {
		pool.SetObserver(b.observer)
	}
	return pool
}

// RegisterJobs routes fired reminder jobs to exec. Version conflicts are
// retried by the pool, every other failure is final.
func (b *WorkersBuilder) RegisterJobs(pool *workers.WorkerPool, exec JobExecutor) {
	pool.RegisterExecutor(cron.TaskType, func(ctx context.Context, task workers.Task) error {
		fired, ok := task.Payload.(cron.Fired)
		if !ok {
			return fmt.Errorf("task %s: unexpected payload %T", task.ID, task.Payload)
		}
		err := exec.Execute(ctx, fired)
		if errors.Is(err, reminder.ErrConflict) {
			return workers.Retryable(err)
		}
		return err
	})
}

type workerPoolAdapter struct {
	pool *workers.WorkerPool
}

// NewWorkerPoolAdapter exposes pool to the cron scheduler.
func NewWorkerPoolAdapter(pool *workers.WorkerPool) cron.WorkerPool {
	return &workerPoolAdapter{pool: pool}
}

func (a *workerPoolAdapter) Submit(task cron.Task) error {
	return a.pool.Submit(workers.Task{
		ID:      task.ID,
		Type:    task.Type,
		Payload: task.Payload,
		Context: task.Context,
	})
}
