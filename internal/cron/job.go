// Package cron provides types for reminder jobs.
package cron

import (
	"context"
	"time"
)

// JobKind is the reminder job kind.
type JobKind string

const (
	// KindDelivery delivers the reminder (one-off or every recurrence).
	KindDelivery JobKind = "delivery"
	// KindInertia re-sends an unanswered one-off reminder.
	KindInertia JobKind = "inertia"
)

// JobType is the firing pattern of a job.
type JobType string

const (
	// JobTypeOnce fires a single time at Job.At.
	JobTypeOnce JobType = "once"
	// JobTypeEvery fires at Job.StartAt and then every Job.Interval.
	JobTypeEvery JobType = "every"
)

// TaskType is the worker pool task type of fired jobs.
const TaskType = "reminder_job"

// JobKey identifies a job. The registry keeps at most one job per key.
type JobKey struct {
	ReminderID string  `json:"reminder_id"`
	Kind       JobKind `json:"kind"`
	Instance   string  `json:"instance,omitempty"`
}

func (k JobKey) String() string {
	if k.Instance == "" {
		return k.ReminderID + ":" + string(k.Kind)
	}
	return k.ReminderID + ":" + string(k.Kind) + ":" + k.Instance
}

// Payload is passed to the handler unchanged.
type Payload struct {
	ReminderID string `json:"reminder_id"`
	Instance   string `json:"instance,omitempty"`
}

// Job is a scheduled job as persisted in the jobs file.
type Job struct {
	ID        string     `json:"id"`
	Kind      JobKind    `json:"kind"`
	Type      JobType    `json:"type"`
	Payload   Payload    `json:"payload"`
	At        *time.Time `json:"at,omitempty"`       // once
	Interval  string     `json:"interval,omitempty"` // every, "<n> <unit>"
	StartAt   *time.Time `json:"start_at,omitempty"` // every, first firing
	Location  string     `json:"location,omitempty"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Key returns the registry key of the job.
func (j Job) Key() JobKey {
	return JobKey{ReminderID: j.Payload.ReminderID, Kind: j.Kind, Instance: j.Payload.Instance}
}

// EveryOptions configures RunEvery.
type EveryOptions struct {
	// StartAt is the first firing; zero means now.
	StartAt time.Time
	// SkipImmediate moves the first firing one interval after StartAt.
	SkipImmediate bool
	// Location is used for calendar intervals (days, months, years).
	Location *time.Location
}

// Fired is the task payload of a fired job.
type Fired struct {
	Kind    JobKind
	Payload Payload
	FiredAt time.Time
}

// Task represents a fired job submitted to the worker pool.
type Task struct {
	ID      string
	Type    string
	Payload Fired
	Context context.Context
}

// WorkerPool is an interface for worker pool operations.
type WorkerPool interface {
	Submit(task Task) error
}

// Handler reacts to a fired job. Handlers must be idempotent: a job may fire
// more than once for the same occurrence.
type Handler func(ctx context.Context, p Payload) error
