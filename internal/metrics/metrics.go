// Package metrics exposes reminder and job statistics as Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics implements the recorder interfaces of the dispatcher, the
// lifecycle manager and the worker pool.
type Metrics struct {
	created    *prometheus.CounterVec
	delivered  *prometheus.CounterVec
	postponed  prometheus.Counter
	completed  prometheus.Counter
	deleted    prometheus.Counter
	purged     prometheus.Counter
	sendErrors *prometheus.CounterVec
	jobs       *prometheus.CounterVec
	jobTime    *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg
// (prometheus.DefaultRegisterer when nil).
func New(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		created: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reminders_created_total",
				Help:      "Reminders created, by kind",
			},
			[]string{"kind"},
		),
		delivered: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reminders_delivered_total",
				Help:      "Reminder messages sent, by job kind",
			},
			[]string{"kind"},
		),
		postponed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reminders_postponed_total",
				Help:      "Postponed reminders",
			},
		),
		completed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reminders_completed_total",
				Help:      "Reminders marked as done",
			},
		),
		deleted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reminders_deleted_total",
				Help:      "Deleted reminders",
			},
		),
		purged: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reminders_purged_total",
				Help:      "Completed reminders removed by cleanup",
			},
		),
		sendErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "telegram_errors_total",
				Help:      "Failed Telegram calls, by operation",
			},
			[]string{"op"},
		),
		jobs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "jobs_executed_total",
				Help:      "Fired scheduler jobs, by task type and status",
			},
			[]string{"type", "status"},
		),
		jobTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "job_duration_seconds",
				Help:      "Duration of fired scheduler jobs",
				Buckets:   []float64{.01, .05, .1, .5, 1, 5, 10, 30},
			},
			[]string{"type"},
		),
	}

	reg.MustRegister(
		m.created,
		m.delivered,
		m.postponed,
		m.completed,
		m.deleted,
		m.purged,
		m.sendErrors,
		m.jobs,
		m.jobTime,
	)
	return m
}

// ReminderCreated counts a new reminder.
func (m *Metrics) ReminderCreated(recurring bool) {
	kind := "once"
	if recurring {
		kind = "recurring"
	}
	m.created.WithLabelValues(kind).Inc()
}

// ReminderPostponed counts a postponement.
func (m *Metrics) ReminderPostponed() { m.postponed.Inc() }

// ReminderCompleted counts a reminder marked as done.
func (m *Metrics) ReminderCompleted() { m.completed.Inc() }

// RemindersDeleted counts n deleted reminders.
func (m *Metrics) RemindersDeleted(n int) { m.deleted.Add(float64(n)) }

// RemindersPurged counts completed reminders removed by cleanup.
func (m *Metrics) RemindersPurged(n int) { m.purged.Add(float64(n)) }

// ReminderDelivered counts a sent notification or inertia nudge.
func (m *Metrics) ReminderDelivered(kind string) { m.delivered.WithLabelValues(kind).Inc() }

// SendFailed counts a failed Telegram call.
func (m *Metrics) SendFailed(op string) { m.sendErrors.WithLabelValues(op).Inc() }

// ObserveTask records a finished worker task.
func (m *Metrics) ObserveTask(taskType string, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.jobs.WithLabelValues(taskType, status).Inc()
	m.jobTime.WithLabelValues(taskType).Observe(d.Seconds())
}
