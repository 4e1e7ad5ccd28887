// Package cron is the at-least-once job scheduler behind reminder delivery.
// It drives robfig/cron/v3 entries with custom schedules, keeps a typed
// registry keyed by (reminder, kind, instance) and persists jobs to a JSONL
// file so they survive restarts. Fired jobs are submitted to the worker pool.
package cron

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/scaramou4/rereminder-bot-sub000/internal/logger"
	"github.com/scaramou4/rereminder-bot-sub000/internal/recurrence"
)

var (
	// ErrNoHandler is returned when a job fires for a kind nobody handles.
	ErrNoHandler = errors.New("no handler registered for job kind")
	// ErrNotStarted is returned by Stop on a scheduler that is not running.
	ErrNotStarted = errors.New("scheduler not started")
)

type entry struct {
	job     Job
	entryID cron.EntryID
	seq     uint64
}

// Scheduler manages reminder jobs.
type Scheduler struct {
	cron       *cron.Cron
	logger     *logger.Logger
	workerPool WorkerPool
	storage    *Storage
	handlers   map[JobKind]Handler
	now        func() time.Time
	ctx        context.Context
	cancel     context.CancelFunc
	started    bool
	mu         sync.RWMutex

	// Job registry
	jobs map[JobKey]*entry
	seq  uint64
}

// NewScheduler creates a scheduler. storage may be nil for a memory-only
// scheduler; workerPool may be nil, then handlers run in their own goroutine.
func NewScheduler(log *logger.Logger, workerPool WorkerPool, storage *Storage) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:       cron.New(),
		logger:     log.Component("cron"),
		workerPool: workerPool,
		storage:    storage,
		handlers:   make(map[JobKind]Handler),
		now:        time.Now,
		ctx:        ctx,
		cancel:     cancel,
		jobs:       make(map[JobKey]*entry),
	}
}

// RegisterHandler sets the handler for a job kind. Call before Start.
func (s *Scheduler) RegisterHandler(kind JobKind, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[kind] = h
}

// Start restores persisted jobs and starts firing.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("scheduler already started")
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	restored, err := s.restore()
	if err != nil {
		return fmt.Errorf("restore jobs: %w", err)
	}

	s.started = true
	s.cron.Start()
	s.logger.Info("cron scheduler started", logger.Field{Key: "restored_jobs", Value: restored})
	return nil
}

// Stop stops firing and waits for running cron callbacks to return.
// Persisted jobs are kept for the next start.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return ErrNotStarted
	}
	s.started = false
	s.cancel()
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.logger.Info("cron scheduler stopped")
	return nil
}

// IsStarted returns true if the scheduler is started.
func (s *Scheduler) IsStarted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// RunOnce schedules a single firing at at. An existing job with the same
// key is replaced. Past instants fire immediately.
func (s *Scheduler) RunOnce(at time.Time, kind JobKind, payload Payload) error {
	now := s.now()
	job := Job{
		Kind:      kind,
		Type:      JobTypeOnce,
		Payload:   payload,
		At:        &at,
		CreatedAt: now,
	}
	job.ID = job.Key().String()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.add(job, true); err != nil {
		return err
	}
	s.logger.Info("job scheduled",
		logger.Field{Key: "job_key", Value: job.ID},
		logger.Field{Key: "at", Value: at.Format(time.RFC3339)})
	return nil
}

// RunEvery schedules a repeating job with an interval in the
// "<n> <unit>" grammar. An existing job with the same key is replaced.
func (s *Scheduler) RunEvery(interval string, kind JobKind, payload Payload, opts EveryOptions) error {
	iv, err := recurrence.ParseInterval(interval)
	if err != nil {
		return err
	}

	now := s.now()
	start := opts.StartAt
	if start.IsZero() {
		start = now
	}
	loc := opts.Location
	if loc == nil {
		loc = start.Location()
	}
	first := firstRun(iv, start.In(loc), opts.SkipImmediate)

	job := Job{
		Kind:      kind,
		Type:      JobTypeEvery,
		Payload:   payload,
		Interval:  iv.String(),
		StartAt:   &first,
		Location:  loc.String(),
		CreatedAt: now,
	}
	job.ID = job.Key().String()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.add(job, true); err != nil {
		return err
	}
	s.logger.Info("recurring job scheduled",
		logger.Field{Key: "job_key", Value: job.ID},
		logger.Field{Key: "interval", Value: job.Interval},
		logger.Field{Key: "first_run", Value: first.Format(time.RFC3339)})
	return nil
}

// Cancel removes every job of the reminder, whatever its kind or instance.
// When Cancel returns, none of them will fire.
func (s *Scheduler) Cancel(reminderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key := range s.jobs {
		if key.ReminderID == reminderID {
			s.drop(key)
			removed++
		}
	}

	if s.storage != nil {
		if err := s.storage.RemoveReminder(reminderID); err != nil {
			return fmt.Errorf("remove persisted jobs of %s: %w", reminderID, err)
		}
	}

	if removed > 0 {
		s.logger.Info("jobs cancelled",
			logger.Field{Key: "reminder_id", Value: reminderID},
			logger.Field{Key: "count", Value: removed})
	}
	return nil
}

// CancelInstance removes exactly one job.
func (s *Scheduler) CancelInstance(reminderID string, kind JobKind, instance string) error {
	key := JobKey{ReminderID: reminderID, Kind: kind, Instance: instance}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[key]; ok {
		s.drop(key)
		s.logger.Info("job cancelled", logger.Field{Key: "job_key", Value: key.String()})
	}
	if s.storage != nil {
		if err := s.storage.RemoveWhere(func(j Job) bool { return j.Key() == key }); err != nil {
			return fmt.Errorf("remove persisted job %s: %w", key, err)
		}
	}
	return nil
}

// ListJobs returns all scheduled jobs ordered by key.
func (s *Scheduler) ListJobs() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]Job, 0, len(s.jobs))
	for _, e := range s.jobs {
		jobs = append(jobs, e.job)
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].ID < jobs[j].ID })
	return jobs
}

// GetJob returns the job registered under key.
func (s *Scheduler) GetJob(key JobKey) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.jobs[key]
	if !ok {
		return Job{}, false
	}
	return e.job, true
}

// add registers job, replacing any job with the same key. Must hold mu.
func (s *Scheduler) add(job Job, persist bool) error {
	schedule, err := scheduleFor(job)
	if err != nil {
		return err
	}

	key := job.Key()
	if _, ok := s.jobs[key]; ok {
		s.drop(key)
	}

	s.seq++
	seq := s.seq
	entryID := s.cron.Schedule(schedule, cron.FuncJob(func() { s.fire(key, seq) }))
	s.jobs[key] = &entry{job: job, entryID: entryID, seq: seq}

	if persist && s.storage != nil {
		if err := s.storage.UpsertJob(job); err != nil {
			s.logger.Error("failed to persist job", err, logger.Field{Key: "job_key", Value: job.ID})
			// задача уже в памяти, сработает и без файла
		}
	}
	return nil
}

// drop removes the cron entry and the registry record. Must hold mu.
func (s *Scheduler) drop(key JobKey) {
	e, ok := s.jobs[key]
	if !ok {
		return
	}
	s.cron.Remove(e.entryID)
	delete(s.jobs, key)
}

func scheduleFor(job Job) (cron.Schedule, error) {
	switch job.Type {
	case JobTypeOnce:
		if job.At == nil {
			return nil, fmt.Errorf("job %s: once job without time", job.ID)
		}
		return &onceSchedule{at: *job.At}, nil

	case JobTypeEvery:
		iv, err := recurrence.ParseInterval(job.Interval)
		if err != nil {
			return nil, fmt.Errorf("job %s: %w", job.ID, err)
		}
		if job.StartAt == nil {
			return nil, fmt.Errorf("job %s: recurring job without start", job.ID)
		}
		loc, err := time.LoadLocation(job.Location)
		if err != nil {
			loc = time.UTC
		}
		first := job.StartAt.In(loc)
		if job.LastRun != nil {
			first = iv.Next(job.LastRun.In(loc))
		}
		return &everySchedule{interval: iv, first: first}, nil

	default:
		return nil, fmt.Errorf("job %s: unknown job type %q", job.ID, job.Type)
	}
}

// fire runs on a robfig/cron goroutine.
func (s *Scheduler) fire(key JobKey, seq uint64) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("cron job panic recovered", fmt.Errorf("panic: %v", r),
				logger.Field{Key: "job_key", Value: key.String()})
		}
	}()

	s.mu.Lock()
	e, ok := s.jobs[key]
	if !ok || e.seq != seq {
		// отменена или заменена, пока ждали блокировку
		s.mu.Unlock()
		return
	}

	now := s.now()
	e.job.LastRun = &now
	job := e.job

	if s.storage != nil {
		var err error
		if job.Type == JobTypeOnce {
			err = s.storage.RemoveWhere(func(j Job) bool { return j.Key() == key })
		} else {
			err = s.storage.UpsertJob(job)
		}
		if err != nil {
			s.logger.Error("failed to persist fired job", err, logger.Field{Key: "job_key", Value: job.ID})
		}
	}
	if job.Type == JobTypeOnce {
		s.drop(key)
	}
	ctx := s.ctx
	s.mu.Unlock()

	s.submit(ctx, Fired{Kind: job.Kind, Payload: job.Payload, FiredAt: now})
}

func (s *Scheduler) submit(ctx context.Context, f Fired) {
	key := JobKey{ReminderID: f.Payload.ReminderID, Kind: f.Kind, Instance: f.Payload.Instance}

	if s.workerPool == nil {
		go func() {
			if err := s.Execute(ctx, f); err != nil {
				s.logger.Error("job handler failed", err, logger.Field{Key: "job_key", Value: key.String()})
			}
		}()
		return
	}

	task := Task{
		ID:      fmt.Sprintf("%s_%d", key, f.FiredAt.UnixNano()),
		Type:    TaskType,
		Payload: f,
		Context: ctx,
	}
	if err := s.workerPool.Submit(task); err != nil {
		s.logger.Error("failed to submit job to worker pool", err,
			logger.Field{Key: "job_key", Value: key.String()})
		return
	}

	s.logger.Debug("job submitted to worker pool",
		logger.Field{Key: "job_key", Value: key.String()},
		logger.Field{Key: "task_id", Value: task.ID})
}
