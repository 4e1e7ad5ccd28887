package commands

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scaramou4/rereminder-bot-sub000/internal/config"
	"github.com/scaramou4/rereminder-bot-sub000/internal/constants"
	"github.com/scaramou4/rereminder-bot-sub000/internal/lifecycle"
	"github.com/scaramou4/rereminder-bot-sub000/internal/logger"
	"github.com/scaramou4/rereminder-bot-sub000/internal/messages"
	"github.com/scaramou4/rereminder-bot-sub000/internal/reminder"
	"github.com/scaramou4/rereminder-bot-sub000/internal/settings"
	"github.com/scaramou4/rereminder-bot-sub000/internal/storage"
	"github.com/scaramou4/rereminder-bot-sub000/internal/timeparse"
)

const (
	userID = int64(7)
	chatID = int64(70)
)

var moscow = mustLocation("Europe/Moscow")

func mustLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

type sent struct {
	chatID int64
	text   string
	kb     messages.Keyboard
}

// fakeResponder records replies and callback answers.
type fakeResponder struct {
	mu      sync.Mutex
	sent    []sent
	answers map[string]string
	sendErr error
}

func (f *fakeResponder) Send(_ context.Context, chatID int64, text string, kb messages.Keyboard) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return 0, f.sendErr
	}
	f.sent = append(f.sent, sent{chatID: chatID, text: text, kb: kb})
	return len(f.sent), nil
}

func (f *fakeResponder) Answer(_ context.Context, callbackID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.answers == nil {
		f.answers = make(map[string]string)
	}
	f.answers[callbackID] = text
	return nil
}

func (f *fakeResponder) last(t *testing.T) sent {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent)
	return f.sent[len(f.sent)-1]
}

// nopDispatcher accepts every scheduling request.
type nopDispatcher struct{}

func (nopDispatcher) Schedule(context.Context, *reminder.Reminder) error     { return nil }
func (nopDispatcher) ScheduleOnce(context.Context, *reminder.Reminder) error { return nil }
func (nopDispatcher) Cancel(context.Context, string) error                   { return nil }
func (nopDispatcher) RetireControls(context.Context, *reminder.Reminder)     {}

type env struct {
	store   *storage.MemoryStore
	out     *fakeResponder
	mgr     *lifecycle.Manager
	handler *Handler
	now     time.Time
}

func newEnv(t *testing.T, opts ...Option) *env {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "debug", Format: "text", Output: "stdout"})
	require.NoError(t, err)

	e := &env{
		store: storage.NewMemoryStore(),
		out:   &fakeResponder{},
		now:   time.Date(2025, 3, 7, 11, 0, 0, 0, moscow),
	}
	clock := func() time.Time { return e.now }
	provider := settings.NewProvider(e.store, config.DefaultsConfig{
		Timezone:            "Europe/Moscow",
		MorningTime:         "08:00",
		EveningTime:         "18:00",
		AutoPostponeMinutes: 15,
	}, log)
	e.mgr = lifecycle.New(e.store, nopDispatcher{}, timeparse.New(log), provider, log, lifecycle.WithClock(clock))
	e.handler = NewHandler(e.mgr, provider, e.out, log, append([]Option{WithClock(clock)}, opts...)...)
	return e
}

func (e *env) message(t *testing.T, text string) sent {
	t.Helper()
	require.NoError(t, e.handler.HandleMessage(context.Background(), Message{UserID: userID, ChatID: chatID, Text: text}))
	return e.out.last(t)
}

func (e *env) create(t *testing.T, text string) *reminder.Reminder {
	t.Helper()
	e.message(t, text)
	rs, err := e.mgr.List(context.Background(), userID)
	require.NoError(t, err)
	require.NotEmpty(t, rs)
	r := rs[len(rs)-1]
	return &r
}

func TestSplitCommand(t *testing.T) {
	tests := []struct {
		text, cmd, args string
	}{
		{"/list", "list", ""},
		{"/LIST", "list", ""},
		{"/list@rereminder_bot", "list", ""},
		{"/timezone Europe/Moscow", "timezone", "Europe/Moscow"},
		{"/timezone@rereminder_bot  Asia/Tokyo ", "timezone", "Asia/Tokyo"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			cmd, args := splitCommand(tt.text)
			assert.Equal(t, tt.cmd, cmd)
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestHandleMessage_CreatesReminder(t *testing.T) {
	e := newEnv(t)

	reply := e.message(t, "через 10 минут купить молоко")

	assert.Equal(t, chatID, reply.chatID)
	assert.Equal(t, "✅ Напоминание создано на 07.03.2025 11:10\n📝 купить молоко", reply.text)
	assert.Nil(t, reply.kb)
}

func TestHandleMessage_ParseErrorShown(t *testing.T) {
	e := newEnv(t)

	reply := e.message(t, "в 25:61 позвонить")
	assert.Equal(t, constants.MsgParseInvalidClockTime, reply.text)

	rs, err := e.mgr.List(context.Background(), userID)
	require.NoError(t, err)
	assert.Empty(t, rs)
}

func TestHandleMessage_Duplicate(t *testing.T) {
	e := newEnv(t)

	e.message(t, "через 10 минут купить молоко")
	reply := e.message(t, "через 20 минут купить молоко")
	assert.Equal(t, constants.MsgDuplicateReminder, reply.text)
}

func TestHandleMessage_EmptyIgnored(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.handler.HandleMessage(context.Background(), Message{UserID: userID, ChatID: chatID, Text: "   "}))
	assert.Empty(t, e.out.sent)
}

func TestHandleMessage_AllowedUsers(t *testing.T) {
	e := newEnv(t, WithAllowedUsers([]string{"42"}))

	reply := e.message(t, "через 10 минут купить молоко")
	assert.Equal(t, constants.MsgAccessDenied, reply.text)

	rs, err := e.mgr.List(context.Background(), userID)
	require.NoError(t, err)
	assert.Empty(t, rs)
}

func TestHandleMessage_AllowedUsersReloaded(t *testing.T) {
	e := newEnv(t, WithAllowedUsers([]string{"42"}))
	assert.Equal(t, constants.MsgAccessDenied, e.message(t, "/help").text)

	e.handler.SetAllowedUsers([]string{"42", "7"})
	assert.NotEqual(t, constants.MsgAccessDenied, e.message(t, "/help").text)

	e.handler.SetAllowedUsers(nil)
	assert.NotEqual(t, constants.MsgAccessDenied, e.message(t, "/help").text)
}

func TestHandleMessage_SendError(t *testing.T) {
	e := newEnv(t)
	e.out.sendErr = errors.New("network down")

	err := e.handler.HandleMessage(context.Background(), Message{UserID: userID, ChatID: chatID, Text: "/start"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "network down")
}

func TestCommands_Static(t *testing.T) {
	e := newEnv(t)

	assert.Equal(t, constants.MsgStart, e.message(t, "/start").text)
	assert.Equal(t, constants.MsgHelp, e.message(t, "/help").text)
	assert.Equal(t, constants.MsgUnknownCommand, e.message(t, "/frobnicate").text)
}

func TestCommands_List(t *testing.T) {
	e := newEnv(t)

	reply := e.message(t, "/list")
	assert.Equal(t, constants.MsgListEmpty, reply.text)
	assert.Nil(t, reply.kb)

	r := e.create(t, "через 10 минут купить молоко")
	reply = e.message(t, "/list")
	assert.Contains(t, reply.text, "1. 07.03.2025 11:10 — купить молоко")
	require.Len(t, reply.kb, 1)
	assert.Equal(t, messages.CallbackData(constants.CallbackDelete, r.ID, ""), reply.kb[0][0].Data)
}

func TestCommands_DeleteAll(t *testing.T) {
	e := newEnv(t)
	e.create(t, "через 10 минут купить молоко")
	e.create(t, "завтра в 9 позвонить маме")

	reply := e.message(t, "/delete_all")
	assert.Equal(t, messages.FormatAllDeleted(2), reply.text)

	rs, err := e.mgr.List(context.Background(), userID)
	require.NoError(t, err)
	assert.Empty(t, rs)
}

func TestCommands_Settings(t *testing.T) {
	e := newEnv(t)

	reply := e.message(t, "/settings")
	assert.Contains(t, reply.text, "Europe/Moscow")
	assert.Contains(t, reply.text, "08:00")

	reply = e.message(t, "/timezone Asia/Tokyo")
	assert.Contains(t, reply.text, constants.MsgSettingsSaved)
	assert.Contains(t, reply.text, "Asia/Tokyo")

	reply = e.message(t, "/morning 07:30")
	assert.Contains(t, reply.text, "07:30")

	reply = e.message(t, "/evening 21:00")
	assert.Contains(t, reply.text, "21:00")

	reply = e.message(t, "/autopostpone 30")
	assert.Contains(t, reply.text, "каждые 30 мин")
}

func TestCommands_SettingsInvalid(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"/timezone Mars/Olympus", constants.MsgTimezoneInvalid},
		{"/timezone", constants.MsgTimezoneInvalid},
		{"/morning 25:00", "❌ Укажите время в формате ЧЧ:ММ, например /morning 08:00"},
		{"/evening вечер", "❌ Укажите время в формате ЧЧ:ММ, например /evening 08:00"},
		{"/autopostpone 0", constants.MsgAutoPostponeInvalid},
		{"/autopostpone много", constants.MsgAutoPostponeInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			e := newEnv(t)
			assert.Equal(t, tt.want, e.message(t, tt.text).text)
		})
	}
}
