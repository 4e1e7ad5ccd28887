// Package dispatch delivers reminders when their jobs fire and runs the
// inertia loop: an unanswered one-off reminder is re-sent every
// auto-postpone interval until the user postpones, completes or deletes it.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/scaramou4/rereminder-bot-sub000/internal/cron"
	"github.com/scaramou4/rereminder-bot-sub000/internal/logger"
	"github.com/scaramou4/rereminder-bot-sub000/internal/messages"
	"github.com/scaramou4/rereminder-bot-sub000/internal/recurrence"
	"github.com/scaramou4/rereminder-bot-sub000/internal/reminder"
	"github.com/scaramou4/rereminder-bot-sub000/internal/settings"
)

// staleTolerance is how far in the future a reminder may be due when its
// delivery job fires before the firing counts as stale.
const staleTolerance = time.Minute

// JobScheduler is the external job scheduler.
type JobScheduler interface {
	RunOnce(at time.Time, kind cron.JobKind, payload cron.Payload) error
	RunEvery(interval string, kind cron.JobKind, payload cron.Payload, opts cron.EveryOptions) error
	Cancel(reminderID string) error
	CancelInstance(reminderID string, kind cron.JobKind, instance string) error
}

// Messenger sends and edits chat messages.
type Messenger interface {
	Send(ctx context.Context, chatID int64, text string, kb messages.Keyboard) (int, error)
	EditText(ctx context.Context, chatID int64, messageID int, text string, kb messages.Keyboard) error
	EditControls(ctx context.Context, chatID int64, messageID int, kb messages.Keyboard) error
	Answer(ctx context.Context, callbackID, text string) error
}

// SettingsSource returns the effective settings of a user.
type SettingsSource interface {
	Get(ctx context.Context, userID int64) settings.UserSettings
}

// Recorder receives dispatch metrics.
type Recorder interface {
	ReminderDelivered(kind string)
	SendFailed(op string)
}

type nopRecorder struct{}

func (nopRecorder) ReminderDelivered(string) {}
func (nopRecorder) SendFailed(string)        {}

// Dispatcher reacts to fired jobs.
type Dispatcher struct {
	store     reminder.Store
	scheduler JobScheduler
	messenger Messenger
	settings  SettingsSource
	recorder  Recorder
	logger    *logger.Logger

	now         func() time.Time
	newInstance func() string
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// WithRecorder installs a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(d *Dispatcher) {
		if r != nil {
			d.recorder = r
		}
	}
}

// WithInstanceFunc overrides the inertia instance token generator.
func WithInstanceFunc(f func() string) Option {
	return func(d *Dispatcher) { d.newInstance = f }
}

// New creates a Dispatcher.
func New(store reminder.Store, scheduler JobScheduler, messenger Messenger, src SettingsSource, log *logger.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:       store,
		scheduler:   scheduler,
		messenger:   messenger,
		settings:    src,
		recorder:    nopRecorder{},
		logger:      log.Component("dispatch"),
		now:         time.Now,
		newInstance: uuid.NewString,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Register installs the job handlers on the scheduler.
func (d *Dispatcher) Register(reg interface {
	RegisterHandler(kind cron.JobKind, h cron.Handler)
}) {
	reg.RegisterHandler(cron.KindDelivery, d.HandleDelivery)
	reg.RegisterHandler(cron.KindInertia, d.HandleInertia)
}

// Schedule registers the delivery job of r. A one-off reminder fires once at
// its Datetime, a recurring one at Datetime and then every scheduler interval
// of its repeat phrase. A postponed occurrence of a series fires once.
func (d *Dispatcher) Schedule(ctx context.Context, r *reminder.Reminder) error {
	if r.Completed {
		return nil
	}
	if !r.IsRecurring() || !r.SeriesAnchor.IsZero() {
		return d.ScheduleOnce(ctx, r)
	}
	payload := cron.Payload{ReminderID: r.ID}

	interval, err := recurrence.ToSchedulerInterval(r.Repeat)
	if err != nil {
		return fmt.Errorf("schedule reminder %s: %w", r.ID, err)
	}
	loc := d.settings.Get(ctx, r.UserID).Location()
	opts := cron.EveryOptions{StartAt: r.Datetime, Location: loc}
	if err := d.scheduler.RunEvery(interval, cron.KindDelivery, payload, opts); err != nil {
		return fmt.Errorf("schedule reminder %s: %w", r.ID, err)
	}
	return nil
}

// ScheduleOnce registers a single delivery at r.Datetime, also for a
// recurring reminder: a postponed occurrence fires once and the delivery
// handler re-arms the series afterwards.
func (d *Dispatcher) ScheduleOnce(_ context.Context, r *reminder.Reminder) error {
	if r.Completed {
		return nil
	}
	if err := d.scheduler.RunOnce(r.Datetime, cron.KindDelivery, cron.Payload{ReminderID: r.ID}); err != nil {
		return fmt.Errorf("schedule reminder %s: %w", r.ID, err)
	}
	return nil
}

// Cancel removes the delivery job and every inertia job of the reminder.
func (d *Dispatcher) Cancel(_ context.Context, reminderID string) error {
	if err := d.scheduler.Cancel(reminderID); err != nil {
		return fmt.Errorf("cancel jobs of %s: %w", reminderID, err)
	}
	return nil
}

// RetireControls removes the buttons from every delivered message of r.
// Edit failures are logged only: the message may be gone or too old.
func (d *Dispatcher) RetireControls(ctx context.Context, r *reminder.Reminder) {
	if r.MessageID != 0 && !r.InitialMessageEdited {
		d.stripControls(ctx, r, r.MessageID)
	}
	if r.InertiaMessageID != 0 {
		d.stripControls(ctx, r, r.InertiaMessageID)
	}
}

func (d *Dispatcher) stripControls(ctx context.Context, r *reminder.Reminder, messageID int) {
	if err := d.messenger.EditControls(ctx, r.ChatID, messageID, nil); err != nil {
		d.recorder.SendFailed("edit")
		d.logger.WarnCtx(ctx, "failed to remove reminder controls",
			logger.Field{Key: "reminder_id", Value: r.ID},
			logger.Field{Key: "message_id", Value: messageID},
			logger.Field{Key: "error", Value: err.Error()})
	}
}

// load applies the guard clause shared by both handlers: an absent or
// completed reminder yields nil without error.
func (d *Dispatcher) load(ctx context.Context, id string) (*reminder.Reminder, error) {
	r, err := d.store.Get(ctx, id)
	if errors.Is(err, reminder.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load reminder %s: %w", id, err)
	}
	if r.Completed {
		return nil, nil
	}
	return r, nil
}
