package messages

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/scaramou4/rereminder-bot-sub000/internal/constants"
	"github.com/scaramou4/rereminder-bot-sub000/internal/reminder"
)

// ErrInvalidCallback is returned for callback data this bot did not produce.
var ErrInvalidCallback = errors.New("invalid callback data")

// maxCallbackData is the Telegram limit for callback_data in bytes.
const maxCallbackData = 64

// Button is a transport-neutral inline button.
type Button struct {
	Text string
	Data string
}

// Keyboard is a list of button rows. A nil keyboard removes the controls.
type Keyboard [][]Button

// Callback is decoded callback data.
type Callback struct {
	Action     string
	ReminderID string
	Arg        string
}

// CallbackData encodes an action for a reminder.
func CallbackData(action, reminderID, arg string) string {
	parts := []string{action, reminderID}
	if arg != "" {
		parts = append(parts, arg)
	}
	return strings.Join(parts, constants.CallbackSeparator)
}

// ParseCallback decodes data produced by CallbackData.
func ParseCallback(data string) (Callback, error) {
	parts := strings.SplitN(data, constants.CallbackSeparator, 3)
	if len(parts) < 2 || parts[1] == "" {
		return Callback{}, fmt.Errorf("%w: %q", ErrInvalidCallback, data)
	}

	cb := Callback{Action: parts[0], ReminderID: parts[1]}
	if len(parts) == 3 {
		cb.Arg = parts[2]
	}

	switch cb.Action {
	case constants.CallbackPostpone:
		if _, ok := constants.PostponeLabels[cb.Arg]; !ok {
			return Callback{}, fmt.Errorf("%w: unknown postpone keyword %q", ErrInvalidCallback, cb.Arg)
		}
	case constants.CallbackPostponeCustom, constants.CallbackDone, constants.CallbackDelete:
	default:
		return Callback{}, fmt.Errorf("%w: unknown action %q", ErrInvalidCallback, cb.Action)
	}
	return cb, nil
}

// ReminderControls are the postpone and done buttons under a delivered reminder.
func ReminderControls(reminderID string) Keyboard {
	kb := make(Keyboard, 0, len(constants.PostponeKeyboardRows)+1)
	for _, row := range constants.PostponeKeyboardRows {
		buttons := make([]Button, 0, len(row))
		for _, kw := range row {
			buttons = append(buttons, Button{
				Text: constants.PostponeLabels[kw],
				Data: CallbackData(constants.CallbackPostpone, reminderID, kw),
			})
		}
		kb = append(kb, buttons)
	}
	kb = append(kb, []Button{
		{Text: constants.BtnPostponeCustom, Data: CallbackData(constants.CallbackPostponeCustom, reminderID, "")},
		{Text: constants.BtnDone, Data: CallbackData(constants.CallbackDone, reminderID, "")},
	})
	return kb
}

// ListControls has one delete button per listed reminder, numbered as in FormatList.
func ListControls(rs []reminder.Reminder) Keyboard {
	if len(rs) == 0 {
		return nil
	}
	kb := make(Keyboard, 0, len(rs))
	for i, r := range rs {
		kb = append(kb, []Button{{
			Text: fmt.Sprintf("%s %d. %s", constants.BtnDelete, i+1, truncate(r.Description, 24)),
			Data: CallbackData(constants.CallbackDelete, r.ID, ""),
		}})
	}
	return kb
}

// Valid reports whether every button's data fits the Telegram limit.
func (k Keyboard) Valid() bool {
	for _, row := range k {
		for _, b := range row {
			if b.Data == "" || len(b.Data) > maxCallbackData {
				return false
			}
		}
	}
	return true
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}
