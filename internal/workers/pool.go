package workers

import (
	"context"
	"sync"
	"time"

	"github.com/scaramou4/rereminder-bot-sub000/internal/logger"
)

// WorkerPool manages a pool of goroutine workers for concurrent task execution.
type WorkerPool struct {
	taskQueue chan Task
	resultCh  chan Result
	workers   int
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	logger    *logger.Logger

	mu         sync.RWMutex
	executors  map[string]TaskExecutor
	observer   Observer
	metrics    PoolMetrics
	maxRetries int
	retryDelay time.Duration
	timeout    time.Duration
	stopped    bool
}

// NewPool creates a new worker pool with the specified configuration.
func NewPool(workers int, bufferSize int, log *logger.Logger) *WorkerPool {
	if workers <= 0 {
		workers = DefaultPoolSize
	}
	if bufferSize <= 0 {
		bufferSize = DefaultQueueSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		taskQueue: make(chan Task, bufferSize),
		resultCh:  make(chan Result, bufferSize),
		workers:   workers,
		ctx:       ctx,
		cancel:    cancel,
		logger:    log.Component("workers"),
		executors: make(map[string]TaskExecutor),
		timeout:   DefaultTaskTimeout,
	}
}

// RegisterExecutor sets the executor for a task type.
func (p *WorkerPool) RegisterExecutor(taskType string, exec TaskExecutor) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.executors[taskType] = exec
}

// SetRetryPolicy configures how many extra attempts a retryable failure gets.
func (p *WorkerPool) SetRetryPolicy(maxRetries int, delay time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.maxRetries = max(maxRetries, 0)
	p.retryDelay = delay
}

// SetTaskTimeout bounds a single attempt. Zero disables the bound.
func (p *WorkerPool) SetTaskTimeout(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.timeout = d
}

// SetObserver installs a task observer, e.g. prometheus collectors.
func (p *WorkerPool) SetObserver(o Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observer = o
}

// Start initializes and starts all worker goroutines.
func (p *WorkerPool) Start() {
	p.logger.Info("starting worker pool",
		logger.Field{Key: "workers", Value: p.workers},
		logger.Field{Key: "buffer_size", Value: cap(p.taskQueue)})

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Submit sends a task to the worker pool for execution.
// It blocks while the queue is full and fails once the pool is stopped.
func (p *WorkerPool) Submit(task Task) error {
	return p.SubmitWithContext(context.Background(), task)
}

// SubmitWithContext is Submit bounded by ctx.
func (p *WorkerPool) SubmitWithContext(ctx context.Context, task Task) error {
	p.mu.RLock()
	stopped := p.stopped
	p.mu.RUnlock()
	if stopped {
		return ErrPoolStopped
	}

	select {
	case p.taskQueue <- task:
	case <-p.ctx.Done():
		return ErrPoolStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	p.mu.Lock()
	p.metrics.TasksSubmitted++
	p.mu.Unlock()

	p.logger.DebugCtx(ctx, "task submitted",
		logger.Field{Key: "task_id", Value: task.ID},
		logger.Field{Key: "task_type", Value: task.Type})
	return nil
}

// Results returns a read-only channel for receiving task results.
// Results are dropped when nobody reads them.
func (p *WorkerPool) Results() <-chan Result {
	return p.resultCh
}

// Stop shuts down the worker pool and waits for in-flight tasks.
// Queued tasks that did not start are discarded.
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()
	close(p.resultCh)

	metrics := p.Metrics()
	p.logger.Info("worker pool stopped",
		logger.Field{Key: "tasks_submitted", Value: metrics.TasksSubmitted},
		logger.Field{Key: "tasks_completed", Value: metrics.TasksCompleted},
		logger.Field{Key: "tasks_failed", Value: metrics.TasksFailed},
		logger.Field{Key: "dropped", Value: len(p.taskQueue)})
}

// WorkerCount returns the number of workers.
func (p *WorkerPool) WorkerCount() int {
	return p.workers
}

// QueueSize returns the current number of tasks waiting in the queue.
func (p *WorkerPool) QueueSize() int {
	return len(p.taskQueue)
}
