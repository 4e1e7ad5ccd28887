// Package lifecycle owns reminder creation, postponement, completion and
// deletion. Every mutation goes through the versioned store and hands the
// result to the dispatcher for (re)scheduling.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/scaramou4/rereminder-bot-sub000/internal/logger"
	"github.com/scaramou4/rereminder-bot-sub000/internal/recurrence"
	"github.com/scaramou4/rereminder-bot-sub000/internal/reminder"
	"github.com/scaramou4/rereminder-bot-sub000/internal/settings"
	"github.com/scaramou4/rereminder-bot-sub000/internal/timeparse"
)

// Dispatcher schedules and cancels reminder jobs.
type Dispatcher interface {
	Schedule(ctx context.Context, r *reminder.Reminder) error
	ScheduleOnce(ctx context.Context, r *reminder.Reminder) error
	Cancel(ctx context.Context, reminderID string) error
	RetireControls(ctx context.Context, r *reminder.Reminder)
}

// SettingsSource returns the effective settings of a user.
type SettingsSource interface {
	Get(ctx context.Context, userID int64) settings.UserSettings
}

// Recorder receives lifecycle metrics.
type Recorder interface {
	ReminderCreated(recurring bool)
	ReminderPostponed()
	ReminderCompleted()
	RemindersDeleted(n int)
}

type nopRecorder struct{}

func (nopRecorder) ReminderCreated(bool) {}
func (nopRecorder) ReminderPostponed()   {}
func (nopRecorder) ReminderCompleted()   {}
func (nopRecorder) RemindersDeleted(int) {}

// Manager implements the reminder lifecycle.
type Manager struct {
	store      reminder.Store
	dispatcher Dispatcher
	parser     *timeparse.Parser
	settings   SettingsSource
	recorder   Recorder
	logger     *logger.Logger
	now        func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithRecorder installs a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(m *Manager) {
		if r != nil {
			m.recorder = r
		}
	}
}

// New creates a Manager.
func New(store reminder.Store, dispatcher Dispatcher, parser *timeparse.Parser, src SettingsSource, log *logger.Logger, opts ...Option) *Manager {
	m := &Manager{
		store:      store,
		dispatcher: dispatcher,
		parser:     parser,
		settings:   src,
		recorder:   nopRecorder{},
		logger:     log.Component("lifecycle"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create parses text and creates the reminder it describes. Parse errors are
// returned untouched. An active reminder with the same normalized
// description yields reminder.ErrDuplicate and nothing is stored.
func (m *Manager) Create(ctx context.Context, userID, chatID int64, text string) (*reminder.Reminder, error) {
	opts := m.settings.Get(ctx, userID).ParseOptions()

	res, err := m.parser.Parse(text, m.now(), opts)
	if err != nil {
		return nil, err
	}
	return m.CreateFromFields(ctx, userID, chatID, res.Description, res.Datetime, res.Repeat)
}

// CreateFromFields creates a reminder from already resolved fields.
func (m *Manager) CreateFromFields(ctx context.Context, userID, chatID int64, description string, at time.Time, repeat string) (*reminder.Reminder, error) {
	normalized := reminder.Normalize(description)
	if normalized == "" {
		return nil, timeparse.ErrEmptyDescription
	}
	if repeat != "" {
		rule, err := recurrence.Parse(repeat)
		if err != nil {
			return nil, err
		}
		repeat = rule.Phrase()
	}

	if _, err := m.store.FindActiveByDescription(ctx, userID, normalized); err == nil {
		return nil, reminder.ErrDuplicate
	} else if !errors.Is(err, reminder.ErrNotFound) {
		return nil, fmt.Errorf("check duplicate: %w", err)
	}

	now := m.now()
	r := &reminder.Reminder{
		ID:                    uuid.NewString(),
		UserID:                userID,
		ChatID:                chatID,
		Description:           description,
		NormalizedDescription: normalized,
		Datetime:              at,
		Repeat:                repeat,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if err := m.store.Create(ctx, r); err != nil {
		if errors.Is(err, reminder.ErrDuplicate) {
			return nil, reminder.ErrDuplicate
		}
		return nil, fmt.Errorf("create reminder: %w", err)
	}

	if err := m.dispatcher.Schedule(ctx, r); err != nil {
		// без задачи напоминание никогда не сработает
		if _, derr := m.store.Delete(ctx, r.ID); derr != nil {
			m.logger.ErrorCtx(ctx, "failed to roll back unscheduled reminder", derr,
				logger.Field{Key: "reminder_id", Value: r.ID})
		}
		return nil, err
	}

	m.recorder.ReminderCreated(r.IsRecurring())
	m.logger.InfoCtx(ctx, "reminder created",
		logger.Field{Key: "reminder_id", Value: r.ID},
		logger.Field{Key: "user_id", Value: userID},
		logger.Field{Key: "datetime", Value: r.Datetime},
		logger.Field{Key: "repeat", Value: r.Repeat})
	return r, nil
}

// Delete removes a reminder and all its jobs.
func (m *Manager) Delete(ctx context.Context, id string) (*reminder.Reminder, error) {
	r, err := m.store.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := m.dispatcher.Cancel(ctx, id); err != nil {
		m.logger.ErrorCtx(ctx, "failed to cancel jobs of deleted reminder", err,
			logger.Field{Key: "reminder_id", Value: id})
	}
	m.dispatcher.RetireControls(ctx, r)

	m.recorder.RemindersDeleted(1)
	m.logger.InfoCtx(ctx, "reminder deleted", logger.Field{Key: "reminder_id", Value: id})
	return r, nil
}

// DeleteAll removes every reminder of the user and returns how many were removed.
func (m *Manager) DeleteAll(ctx context.Context, userID int64) (int, error) {
	removed, err := m.store.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("delete reminders of %d: %w", userID, err)
	}

	var errs []error
	for i := range removed {
		if err := m.dispatcher.Cancel(ctx, removed[i].ID); err != nil {
			errs = append(errs, err)
		}
		m.dispatcher.RetireControls(ctx, &removed[i])
	}
	if len(errs) > 0 {
		m.logger.ErrorCtx(ctx, "failed to cancel some jobs", errors.Join(errs...),
			logger.Field{Key: "user_id", Value: userID})
	}

	m.recorder.RemindersDeleted(len(removed))
	m.logger.InfoCtx(ctx, "all reminders deleted",
		logger.Field{Key: "user_id", Value: userID},
		logger.Field{Key: "count", Value: len(removed)})
	return len(removed), nil
}

// List returns the active reminders of the user, earliest first.
func (m *Manager) List(ctx context.Context, userID int64) ([]reminder.Reminder, error) {
	return m.store.ListByUser(ctx, userID, true)
}

// Get returns a reminder by id.
func (m *Manager) Get(ctx context.Context, id string) (*reminder.Reminder, error) {
	return m.store.Get(ctx, id)
}
