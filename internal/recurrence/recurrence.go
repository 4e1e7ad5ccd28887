// Package recurrence computes next-occurrence instants for canonical repeat
// phrases and maps them onto the scheduler's interval grammar.
//
// Canonical phrases:
//
//	каждый час
//	каждое утро | каждый вечер | каждый день
//	каждые N минут
//	каждый месяц D числа
//	каждый год D <месяц в родительном падеже>
package recurrence

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrUnknownPhrase is returned for phrases outside of the canonical set.
var ErrUnknownPhrase = errors.New("unknown repeat phrase")

// Kind is the recurrence unit of a canonical phrase.
type Kind int

const (
	KindHourly Kind = iota + 1
	KindMorning
	KindEvening
	KindDaily
	KindEveryMinutes
	KindMonthly
	KindYearly
)

// Canonical phrases without parameters.
const (
	PhraseHourly  = "каждый час"
	PhraseMorning = "каждое утро"
	PhraseEvening = "каждый вечер"
	PhraseDaily   = "каждый день"
)

// Rule is a parsed canonical repeat phrase.
type Rule struct {
	Kind    Kind
	Minutes int        // KindEveryMinutes
	Day     int        // KindMonthly, KindYearly
	Month   time.Month // KindYearly
}

// Hourly returns the "каждый час" rule.
func Hourly() Rule { return Rule{Kind: KindHourly} }

// Daily returns the "каждый день" rule.
func Daily() Rule { return Rule{Kind: KindDaily} }

// Morning returns the "каждое утро" rule.
func Morning() Rule { return Rule{Kind: KindMorning} }

// Evening returns the "каждый вечер" rule.
func Evening() Rule { return Rule{Kind: KindEvening} }

// EveryMinutes returns the "каждые N минут" rule.
func EveryMinutes(n int) Rule { return Rule{Kind: KindEveryMinutes, Minutes: n} }

// Monthly returns the "каждый месяц D числа" rule.
func Monthly(day int) Rule { return Rule{Kind: KindMonthly, Day: day} }

// Yearly returns the "каждый год D <месяц>" rule.
func Yearly(day int, month time.Month) Rule { return Rule{Kind: KindYearly, Day: day, Month: month} }

// Phrase renders the canonical phrase of the rule.
func (r Rule) Phrase() string {
	switch r.Kind {
	case KindHourly:
		return PhraseHourly
	case KindMorning:
		return PhraseMorning
	case KindEvening:
		return PhraseEvening
	case KindDaily:
		return PhraseDaily
	case KindEveryMinutes:
		return fmt.Sprintf("каждые %d минут", r.Minutes)
	case KindMonthly:
		return fmt.Sprintf("каждый месяц %d числа", r.Day)
	case KindYearly:
		return fmt.Sprintf("каждый год %d %s", r.Day, MonthGenitive(r.Month))
	default:
		return ""
	}
}

// Validate checks rule parameters.
func (r Rule) Validate() error {
	switch r.Kind {
	case KindHourly, KindMorning, KindEvening, KindDaily:
		return nil
	case KindEveryMinutes:
		if r.Minutes < 1 {
			return fmt.Errorf("minutes must be positive, got %d", r.Minutes)
		}
		return nil
	case KindMonthly:
		if r.Day < 1 || r.Day > 31 {
			return fmt.Errorf("day of month out of range: %d", r.Day)
		}
		return nil
	case KindYearly:
		if r.Month < time.January || r.Month > time.December {
			return fmt.Errorf("month out of range: %d", r.Month)
		}
		// 2000 is a leap year, so 29 февраля is accepted here
		if r.Day < 1 || r.Day > DaysIn(2000, r.Month) {
			return fmt.Errorf("day %d does not exist in %s", r.Day, r.Month)
		}
		return nil
	default:
		return ErrUnknownPhrase
	}
}

// Parse converts a canonical phrase into a Rule.
func Parse(phrase string) (Rule, error) {
	p := strings.Join(strings.Fields(strings.ToLower(phrase)), " ")

	switch p {
	case PhraseHourly:
		return Hourly(), nil
	case PhraseMorning:
		return Morning(), nil
	case PhraseEvening:
		return Evening(), nil
	case PhraseDaily:
		return Daily(), nil
	}

	f := strings.Fields(p)
	var rule Rule
	switch {
	case len(f) == 3 && f[0] == "каждые" && f[2] == "минут":
		n, err := strconv.Atoi(f[1])
		if err != nil {
			return Rule{}, fmt.Errorf("%w: %q", ErrUnknownPhrase, phrase)
		}
		rule = EveryMinutes(n)
	case len(f) == 4 && f[0] == "каждый" && f[1] == "месяц" && f[3] == "числа":
		d, err := strconv.Atoi(f[2])
		if err != nil {
			return Rule{}, fmt.Errorf("%w: %q", ErrUnknownPhrase, phrase)
		}
		rule = Monthly(d)
	case len(f) == 4 && f[0] == "каждый" && f[1] == "год":
		d, err := strconv.Atoi(f[2])
		if err != nil {
			return Rule{}, fmt.Errorf("%w: %q", ErrUnknownPhrase, phrase)
		}
		m, ok := MonthByName(f[3])
		if !ok {
			return Rule{}, fmt.Errorf("%w: %q", ErrUnknownPhrase, phrase)
		}
		rule = Yearly(d, m)
	default:
		return Rule{}, fmt.Errorf("%w: %q", ErrUnknownPhrase, phrase)
	}

	if err := rule.Validate(); err != nil {
		return Rule{}, fmt.Errorf("%w: %q: %v", ErrUnknownPhrase, phrase, err)
	}
	return rule, nil
}

// Next returns the occurrence that follows prev, evaluated in loc.
func (r Rule) Next(prev time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	p := prev.In(loc)

	switch r.Kind {
	case KindHourly:
		return p.Add(time.Hour)
	case KindEveryMinutes:
		return p.Add(time.Duration(r.Minutes) * time.Minute)
	case KindMorning, KindEvening, KindDaily:
		return p.AddDate(0, 0, 1)
	case KindMonthly:
		y, m, _ := p.Date()
		// time.Date normalises month 13 to January of the next year
		first := time.Date(y, m+1, 1, p.Hour(), p.Minute(), p.Second(), 0, loc)
		day := min(r.Day, DaysIn(first.Year(), first.Month()))
		return first.AddDate(0, 0, day-1)
	case KindYearly:
		y := p.Year() + 1
		day := min(r.Day, DaysIn(y, r.Month))
		return time.Date(y, r.Month, day, p.Hour(), p.Minute(), p.Second(), 0, loc)
	default:
		return p
	}
}

// NextAfter advances from prev until the result is strictly after now.
func (r Rule) NextAfter(prev, now time.Time, loc *time.Location) time.Time {
	next := r.Next(prev, loc)
	for !next.After(now) {
		next = r.Next(next, loc)
	}
	return next
}

// NextOccurrence returns the next instant of the repeat phrase after prev.
func NextOccurrence(prev time.Time, phrase string, loc *time.Location) (time.Time, error) {
	rule, err := Parse(phrase)
	if err != nil {
		return time.Time{}, err
	}
	return rule.Next(prev, loc), nil
}

// ToSchedulerInterval maps a repeat phrase onto the scheduler interval grammar.
// Monthly and yearly phrases map to coarse tokens; their exact anchor is
// recomputed with NextOccurrence on every firing.
func ToSchedulerInterval(phrase string) (string, error) {
	rule, err := Parse(phrase)
	if err != nil {
		return "", err
	}

	switch rule.Kind {
	case KindHourly:
		return "1 hour", nil
	case KindMorning, KindEvening, KindDaily:
		return "1 day", nil
	case KindEveryMinutes:
		if rule.Minutes == 1 {
			return "1 minute", nil
		}
		return fmt.Sprintf("%d minutes", rule.Minutes), nil
	case KindMonthly:
		return "1 month", nil
	case KindYearly:
		return "1 year", nil
	default:
		return "", ErrUnknownPhrase
	}
}

// DaysIn returns the number of days in the month of the given year.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
