package messages

import (
	"errors"
	"fmt"
	"strings"

	"github.com/scaramou4/rereminder-bot-sub000/internal/constants"
	"github.com/scaramou4/rereminder-bot-sub000/internal/reminder"
	"github.com/scaramou4/rereminder-bot-sub000/internal/timeparse"
)

// FormatError formats a general error message with error prefix.
func FormatError(err error) string {
	return fmt.Sprintf(constants.MsgErrorFormat, err)
}

// FormatConfigLoadError formats a configuration loading error message.
func FormatConfigLoadError(err error) string {
	return fmt.Sprintf(constants.MsgConfigLoadError, err)
}

// FormatValidationErrors formats a list of validation errors with numbering.
func FormatValidationErrors(errs []error) string {
	if len(errs) == 0 {
		return ""
	}

	builder := &strings.Builder{}
	builder.WriteString(constants.MsgConfigValidationError)
	for i, err := range errs {
		builder.WriteString(fmt.Sprintf(constants.MsgConfigValidatePrefix, fmt.Sprintf("%d. %v", i+1, err)))
	}
	return builder.String()
}

// UserError maps a lifecycle or parser error to the text shown in chat.
// Unknown errors are reported as an internal failure without details.
func UserError(err error) string {
	var perr *timeparse.ParseError
	switch {
	case errors.As(err, &perr):
		return perr.UserMessage()
	case errors.Is(err, reminder.ErrDuplicate):
		return constants.MsgDuplicateReminder
	case errors.Is(err, reminder.ErrNotFound):
		return constants.MsgReminderNotFound
	case errors.Is(err, reminder.ErrInvalidPostponeTarget):
		return constants.MsgPostponeInvalid
	default:
		return constants.MsgInternalError
	}
}
