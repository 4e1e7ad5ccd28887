package commands

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scaramou4/rereminder-bot-sub000/internal/constants"
	"github.com/scaramou4/rereminder-bot-sub000/internal/messages"
)

func (e *env) press(t *testing.T, id, data string) string {
	t.Helper()
	err := e.handler.HandleCallback(context.Background(), Callback{
		ID: id, UserID: userID, ChatID: chatID, MessageID: 500, Data: data,
	})
	require.NoError(t, err)
	e.out.mu.Lock()
	defer e.out.mu.Unlock()
	answer, ok := e.out.answers[id]
	require.True(t, ok, "callback %s was not answered", id)
	return answer
}

func TestCallback_PostponeKeyword(t *testing.T) {
	e := newEnv(t)
	r := e.create(t, "через 10 минут купить молоко")
	e.now = r.Datetime

	answer := e.press(t, "cb1", messages.CallbackData(constants.CallbackPostpone, r.ID, constants.Postpone5m))
	assert.Equal(t, "⏰ Напоминание отложено до 07.03.2025 11:15", answer)

	stored, err := e.store.Get(context.Background(), r.ID)
	require.NoError(t, err)
	assert.True(t, stored.Datetime.Equal(r.Datetime.Add(5*time.Minute)))
	assert.Equal(t, 1, stored.PostponedCount)
}

func TestCallback_PostponeCustom(t *testing.T) {
	e := newEnv(t)
	r := e.create(t, "через 10 минут купить молоко")
	e.now = r.Datetime

	answer := e.press(t, "cb1", messages.CallbackData(constants.CallbackPostponeCustom, r.ID, ""))
	assert.Empty(t, answer)
	assert.Equal(t, constants.MsgPostponeAsk, e.out.last(t).text)

	reply := e.message(t, "через 2 часа")
	assert.Equal(t, "⏰ Напоминание отложено до 07.03.2025 13:10", reply.text)

	// the prompt is consumed: the next text creates a reminder
	reply = e.message(t, "через 30 минут вынести мусор")
	assert.Contains(t, reply.text, "вынести мусор")
}

func TestCallback_PostponeCustomRetriesOnParseError(t *testing.T) {
	e := newEnv(t)
	r := e.create(t, "через 10 минут купить молоко")
	e.now = r.Datetime

	e.press(t, "cb1", messages.CallbackData(constants.CallbackPostponeCustom, r.ID, ""))

	reply := e.message(t, "когда-нибудь")
	assert.Equal(t, constants.MsgParseUnrecognized, reply.text)

	reply = e.message(t, "45")
	assert.Equal(t, "⏰ Напоминание отложено до 07.03.2025 11:55", reply.text)
}

func TestCallback_PostponeCustomInPast(t *testing.T) {
	e := newEnv(t)
	r := e.create(t, "через 10 минут купить молоко")
	e.now = r.Datetime

	e.press(t, "cb1", messages.CallbackData(constants.CallbackPostponeCustom, r.ID, ""))
	reply := e.message(t, "сегодня в 9:00")
	assert.Equal(t, constants.MsgPostponeInvalid, reply.text)
}

func TestCallback_PostponeCustomExpires(t *testing.T) {
	e := newEnv(t)
	r := e.create(t, "через 10 минут купить молоко")

	e.press(t, "cb1", messages.CallbackData(constants.CallbackPostponeCustom, r.ID, ""))
	e.now = e.now.Add(pendingTTL + time.Minute)

	reply := e.message(t, "через 2 часа позвонить")
	assert.Contains(t, reply.text, "позвонить")
}

func TestCallback_CommandCancelsCustomPrompt(t *testing.T) {
	e := newEnv(t)
	r := e.create(t, "через 10 минут купить молоко")

	e.press(t, "cb1", messages.CallbackData(constants.CallbackPostponeCustom, r.ID, ""))
	e.message(t, "/list")

	reply := e.message(t, "через 2 часа позвонить")
	assert.Contains(t, reply.text, "позвонить")
}

func TestCallback_Done(t *testing.T) {
	e := newEnv(t)
	r := e.create(t, "через 10 минут купить молоко")

	answer := e.press(t, "cb1", messages.CallbackData(constants.CallbackDone, r.ID, ""))
	assert.Equal(t, constants.MsgDoneConfirmation, answer)

	stored, err := e.store.Get(context.Background(), r.ID)
	require.NoError(t, err)
	assert.True(t, stored.Completed)

	// второе нажатие
	answer = e.press(t, "cb2", messages.CallbackData(constants.CallbackDone, r.ID, ""))
	assert.Equal(t, constants.MsgReminderNotFound, answer)
}

func TestCallback_Delete(t *testing.T) {
	e := newEnv(t)
	r := e.create(t, "через 10 минут купить молоко")

	answer := e.press(t, "cb1", messages.CallbackData(constants.CallbackDelete, r.ID, ""))
	assert.Equal(t, constants.MsgReminderDeleted, answer)

	rs, err := e.mgr.List(context.Background(), userID)
	require.NoError(t, err)
	assert.Empty(t, rs)

	answer = e.press(t, "cb2", messages.CallbackData(constants.CallbackDelete, r.ID, ""))
	assert.Equal(t, constants.MsgReminderNotFound, answer)
}

func TestCallback_ForeignReminder(t *testing.T) {
	e := newEnv(t)
	r := e.create(t, "через 10 минут купить молоко")

	err := e.handler.HandleCallback(context.Background(), Callback{
		ID: "cb1", UserID: 99, ChatID: 990, Data: messages.CallbackData(constants.CallbackDone, r.ID, ""),
	})
	require.NoError(t, err)
	assert.Equal(t, constants.MsgReminderNotFound, e.out.answers["cb1"])

	stored, err := e.store.Get(context.Background(), r.ID)
	require.NoError(t, err)
	assert.False(t, stored.Completed)
}

func TestCallback_InvalidData(t *testing.T) {
	e := newEnv(t)
	assert.Equal(t, constants.MsgUnknownAction, e.press(t, "cb1", "garbage"))
	assert.Equal(t, constants.MsgUnknownAction, e.press(t, "cb2", "postpone:abc:2w"))
}

func TestCallback_AllowedUsers(t *testing.T) {
	e := newEnv(t, WithAllowedUsers([]string{"42"}))
	assert.Equal(t, constants.MsgAccessDenied, e.press(t, "cb1", "done:abc"))
}
