// Package messages formats user-facing texts and inline keyboards.
package messages

import (
	"fmt"
	"strings"
	"time"

	"github.com/scaramou4/rereminder-bot-sub000/internal/constants"
	"github.com/scaramou4/rereminder-bot-sub000/internal/reminder"
	"github.com/scaramou4/rereminder-bot-sub000/internal/settings"
)

// FormatTime renders an instant in the user's zone.
func FormatTime(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(constants.MsgDateTimeLayout)
}

// FormatCreated confirms a newly created reminder.
func FormatCreated(r *reminder.Reminder, loc *time.Location) string {
	when := FormatTime(r.Datetime, loc)
	if r.IsRecurring() {
		return fmt.Sprintf(constants.MsgRecurringCreated, r.Repeat, when, r.Description)
	}
	return fmt.Sprintf(constants.MsgReminderCreated, when, r.Description)
}

// FormatNotification is the text of a delivered reminder.
func FormatNotification(r *reminder.Reminder) string {
	return fmt.Sprintf(constants.MsgReminderNotification, r.Description)
}

// FormatInertia is the text of a repeated nudge for an unanswered reminder.
func FormatInertia(r *reminder.Reminder) string {
	return fmt.Sprintf(constants.MsgInertiaNotification, r.Description)
}

// FormatPostponed acknowledges a postponement.
func FormatPostponed(t time.Time, loc *time.Location) string {
	return fmt.Sprintf(constants.MsgPostponed, FormatTime(t, loc))
}

// FormatList renders the active reminders of a user, numbered from 1.
func FormatList(rs []reminder.Reminder, loc *time.Location) string {
	if len(rs) == 0 {
		return constants.MsgListEmpty
	}

	b := &strings.Builder{}
	b.WriteString(constants.MsgListHeader)
	for i, r := range rs {
		when := FormatTime(r.Datetime, loc)
		if r.IsRecurring() {
			fmt.Fprintf(b, constants.MsgListItemRepeat, i+1, when, r.Description, r.Repeat)
			continue
		}
		fmt.Fprintf(b, constants.MsgListItem, i+1, when, r.Description)
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatSettings shows the effective settings of a user.
func FormatSettings(s settings.UserSettings) string {
	return fmt.Sprintf(constants.MsgSettings, s.Timezone, s.MorningTime, s.EveningTime, s.AutoPostponeMinutes)
}

// FormatAllDeleted confirms a bulk deletion.
func FormatAllDeleted(n int) string {
	return fmt.Sprintf(constants.MsgAllDeleted, n)
}
