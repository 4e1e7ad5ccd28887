package cron

import (
	"sync"
	"time"

	"github.com/scaramou4/rereminder-bot-sub000/internal/logger"
)

// testLogger creates a test logger instance
func testLogger() *logger.Logger {
	log, err := logger.New(logger.Config{
		Level:  "debug",
		Format: "text",
		Output: "stdout",
	})
	if err != nil {
		panic(err)
	}
	return log
}

// stopScheduler stops a scheduler and ignores the error (for use in defer in tests)
func stopScheduler(s *Scheduler) {
	_ = s.Stop()
}

// capturePool records submitted tasks instead of running them.
type capturePool struct {
	mu    sync.Mutex
	tasks []Task
}

func (p *capturePool) Submit(task Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tasks = append(p.tasks, task)
	return nil
}

func (p *capturePool) Tasks() []Task {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Task(nil), p.tasks...)
}

func (p *capturePool) count() int {
	return len(p.Tasks())
}

const (
	waitFor = 2 * time.Second
	tick    = 10 * time.Millisecond
)
