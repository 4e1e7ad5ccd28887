// Package reminder defines the persisted Reminder record, the storage contract
// and the errors shared by lifecycle and dispatch.
package reminder

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrDuplicate is returned when the user already has an active reminder
	// with the same normalized description.
	ErrDuplicate = errors.New("reminder already exists")
	// ErrNotFound is returned for unknown or already finished reminders.
	ErrNotFound = errors.New("reminder not found")
	// ErrInvalidPostponeTarget is returned when a postpone spec does not
	// resolve to an instant in the future.
	ErrInvalidPostponeTarget = errors.New("postpone target is not in the future")
	// ErrConflict is returned by Store.Update when the record was changed
	// since it was read.
	ErrConflict = errors.New("reminder was modified concurrently")
)

// Reminder is a single user reminder.
type Reminder struct {
	ID                    string    `json:"id" yaml:"id"`
	UserID                int64     `json:"user_id" yaml:"user_id"`
	ChatID                int64     `json:"chat_id" yaml:"chat_id"`
	Description           string    `json:"description" yaml:"description"`
	NormalizedDescription string    `json:"normalized_description" yaml:"-"`
	Datetime              time.Time `json:"datetime" yaml:"datetime"`
	Repeat                string    `json:"repeat,omitempty" yaml:"repeat,omitempty"`
	Completed             bool      `json:"completed" yaml:"completed"`
	PostponedCount        int       `json:"postponed_count" yaml:"postponed_count"`

	// SeriesAnchor is the occurrence a postponed recurring reminder stands in
	// for; the series continues from it. Zero when not postponed.
	SeriesAnchor time.Time `json:"series_anchor,omitzero" yaml:"-"`

	// 0 = сообщения нет
	MessageID            int  `json:"message_id,omitempty" yaml:"-"`
	InertiaMessageID     int  `json:"inertia_message_id,omitempty" yaml:"-"`
	InitialMessageEdited bool `json:"initial_message_edited" yaml:"-"`
	// InertiaInstance identifies the live inertia loop; jobs carrying another
	// token are stale.
	InertiaInstance string `json:"inertia_instance,omitempty" yaml:"-"`

	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"-"`
	Version   int64     `json:"version" yaml:"-"`
}

// IsRecurring reports whether the reminder carries a repeat phrase.
func (r *Reminder) IsRecurring() bool {
	return r.Repeat != ""
}

// Postpone moves the reminder to at. A recurring reminder remembers the
// occurrence it was due for, so only that occurrence moves.
func (r *Reminder) Postpone(at time.Time) {
	if r.IsRecurring() && r.SeriesAnchor.IsZero() {
		r.SeriesAnchor = r.Datetime
	}
	r.Datetime = at
	r.PostponedCount++
	r.ResetDelivery()
}

// ResetDelivery forgets every delivered message and the inertia loop.
func (r *Reminder) ResetDelivery() {
	r.MessageID = 0
	r.InertiaMessageID = 0
	r.InitialMessageEdited = false
	r.InertiaInstance = ""
}

// Store persists reminders. Update is a compare-and-swap on Version.
type Store interface {
	Create(ctx context.Context, r *Reminder) error
	Get(ctx context.Context, id string) (*Reminder, error)
	Update(ctx context.Context, r *Reminder) error
	Delete(ctx context.Context, id string) (*Reminder, error)
	DeleteByUser(ctx context.Context, userID int64) ([]Reminder, error)
	ListByUser(ctx context.Context, userID int64, activeOnly bool) ([]Reminder, error)
	FindActiveByDescription(ctx context.Context, userID int64, normalized string) (*Reminder, error)
	ListActive(ctx context.Context) ([]Reminder, error)
}
