package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/scaramou4/rereminder-bot-sub000/internal/cron"
	"github.com/scaramou4/rereminder-bot-sub000/internal/messages"
)

type onceCall struct {
	At      time.Time
	Kind    cron.JobKind
	Payload cron.Payload
}

type everyCall struct {
	Interval string
	Kind     cron.JobKind
	Payload  cron.Payload
	Opts     cron.EveryOptions
}

type instanceCall struct {
	ReminderID string
	Kind       cron.JobKind
	Instance   string
}

// fakeScheduler records every call.
type fakeScheduler struct {
	mu        sync.Mutex
	once      []onceCall
	every     []everyCall
	cancelled []string
	instances []instanceCall
}

func (f *fakeScheduler) RunOnce(at time.Time, kind cron.JobKind, payload cron.Payload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.once = append(f.once, onceCall{At: at, Kind: kind, Payload: payload})
	return nil
}

func (f *fakeScheduler) RunEvery(interval string, kind cron.JobKind, payload cron.Payload, opts cron.EveryOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.every = append(f.every, everyCall{Interval: interval, Kind: kind, Payload: payload, Opts: opts})
	return nil
}

func (f *fakeScheduler) Cancel(reminderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, reminderID)
	return nil
}

func (f *fakeScheduler) CancelInstance(reminderID string, kind cron.JobKind, instance string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.instances = append(f.instances, instanceCall{ReminderID: reminderID, Kind: kind, Instance: instance})
	return nil
}

type sentMessage struct {
	ChatID   int64
	ID       int
	Text     string
	Keyboard messages.Keyboard
}

type controlsEdit struct {
	ChatID    int64
	MessageID int
	Keyboard  messages.Keyboard
}

// fakeMessenger hands out message ids starting at 100.
type fakeMessenger struct {
	mu      sync.Mutex
	nextID  int
	sendErr error
	sent    []sentMessage
	edits   []controlsEdit
}

var errSend = errors.New("telegram unavailable")

func (f *fakeMessenger) Send(_ context.Context, chatID int64, text string, kb messages.Keyboard) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return 0, f.sendErr
	}
	if f.nextID == 0 {
		f.nextID = 100
	}
	f.nextID++
	f.sent = append(f.sent, sentMessage{ChatID: chatID, ID: f.nextID, Text: text, Keyboard: kb})
	return f.nextID, nil
}

func (f *fakeMessenger) EditText(_ context.Context, chatID int64, messageID int, _ string, kb messages.Keyboard) error {
	return f.EditControls(context.Background(), chatID, messageID, kb)
}

func (f *fakeMessenger) EditControls(_ context.Context, chatID int64, messageID int, kb messages.Keyboard) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, controlsEdit{ChatID: chatID, MessageID: messageID, Keyboard: kb})
	return nil
}

func (f *fakeMessenger) Answer(context.Context, string, string) error { return nil }

type countingRecorder struct {
	mu        sync.Mutex
	delivered map[string]int
	failed    map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{delivered: map[string]int{}, failed: map[string]int{}}
}

func (c *countingRecorder) ReminderDelivered(kind string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.delivered[kind]++
}

func (c *countingRecorder) SendFailed(op string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failed[op]++
}
