package timeparse

import (
	"fmt"

	"github.com/scaramou4/rereminder-bot-sub000/internal/constants"
)

// ErrorCode identifies a parse failure. Lower values take priority when a
// message violates several rules at once.
type ErrorCode int

const (
	CodeInvalidRecurrenceUnit ErrorCode = iota + 1
	CodeInvalidCalendarDate
	CodeInvalidClockTime
	CodeNonPositiveDuration
	CodeAmbiguousConstruction
	CodePastTime
	CodeUnrecognizedFormat
	CodeEmptyDescription
)

var codeNames = map[ErrorCode]string{
	CodeInvalidRecurrenceUnit: "invalid recurrence unit",
	CodeInvalidCalendarDate:   "invalid calendar date",
	CodeInvalidClockTime:      "invalid clock time",
	CodeNonPositiveDuration:   "non-positive duration",
	CodeAmbiguousConstruction: "ambiguous construction",
	CodePastTime:              "time is in the past",
	CodeUnrecognizedFormat:    "unrecognized format",
	CodeEmptyDescription:      "empty description",
}

var codeMessages = map[ErrorCode]string{
	CodeInvalidRecurrenceUnit: constants.MsgParseInvalidRecurrenceUnit,
	CodeInvalidCalendarDate:   constants.MsgParseInvalidCalendarDate,
	CodeInvalidClockTime:      constants.MsgParseInvalidClockTime,
	CodeNonPositiveDuration:   constants.MsgParseNonPositiveDuration,
	CodeAmbiguousConstruction: constants.MsgParseAmbiguous,
	CodePastTime:              constants.MsgParsePastTime,
	CodeUnrecognizedFormat:    constants.MsgParseUnrecognized,
	CodeEmptyDescription:      constants.MsgParseEmptyDescription,
}

func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("error code %d", int(c))
}

// ParseError is the typed failure returned by Parser.
type ParseError struct {
	Code     ErrorCode
	Fragment string // offending part of the input, if any
}

func (e *ParseError) Error() string {
	if e.Fragment == "" {
		return "timeparse: " + e.Code.String()
	}
	return fmt.Sprintf("timeparse: %s: %q", e.Code, e.Fragment)
}

// UserMessage returns the localized text shown to the user.
func (e *ParseError) UserMessage() string {
	return codeMessages[e.Code]
}

// Is matches any *ParseError with the same code, so errors.Is works against
// the exported sentinels.
func (e *ParseError) Is(target error) bool {
	t, ok := target.(*ParseError)
	return ok && t.Code == e.Code
}

// Sentinels for errors.Is.
var (
	ErrInvalidRecurrenceUnit = &ParseError{Code: CodeInvalidRecurrenceUnit}
	ErrInvalidCalendarDate   = &ParseError{Code: CodeInvalidCalendarDate}
	ErrInvalidClockTime      = &ParseError{Code: CodeInvalidClockTime}
	ErrNonPositiveDuration   = &ParseError{Code: CodeNonPositiveDuration}
	ErrAmbiguousConstruction = &ParseError{Code: CodeAmbiguousConstruction}
	ErrPastTime              = &ParseError{Code: CodePastTime}
	ErrUnrecognizedFormat    = &ParseError{Code: CodeUnrecognizedFormat}
	ErrEmptyDescription      = &ParseError{Code: CodeEmptyDescription}
)

// violations collects rule failures and yields the highest-priority one.
type violations []*ParseError

func (v *violations) add(code ErrorCode, fragment string) {
	*v = append(*v, &ParseError{Code: code, Fragment: fragment})
}

func (v violations) first() *ParseError {
	var best *ParseError
	for _, e := range v {
		if best == nil || e.Code < best.Code {
			best = e
		}
	}
	return best
}
