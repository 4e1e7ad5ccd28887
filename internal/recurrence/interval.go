package recurrence

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Unit is a scheduler interval unit.
type Unit string

const (
	UnitMinute Unit = "minute"
	UnitHour   Unit = "hour"
	UnitDay    Unit = "day"
	UnitMonth  Unit = "month"
	UnitYear   Unit = "year"
)

// Interval is a parsed scheduler interval such as "30 minutes" or "1 month".
type Interval struct {
	N    int
	Unit Unit
}

// ParseInterval parses the scheduler interval grammar "<n> <unit>[s]".
func ParseInterval(s string) (Interval, error) {
	f := strings.Fields(strings.ToLower(s))
	if len(f) != 2 {
		return Interval{}, fmt.Errorf("invalid interval %q: expected \"<n> <unit>\"", s)
	}

	n, err := strconv.Atoi(f[0])
	if err != nil || n < 1 {
		return Interval{}, fmt.Errorf("invalid interval %q: count must be a positive integer", s)
	}

	unit := Unit(strings.TrimSuffix(f[1], "s"))
	switch unit {
	case UnitMinute, UnitHour, UnitDay, UnitMonth, UnitYear:
	default:
		return Interval{}, fmt.Errorf("invalid interval %q: unknown unit %q", s, f[1])
	}

	return Interval{N: n, Unit: unit}, nil
}

// Next returns t advanced by one interval. Calendar units keep the wall clock of t.
func (i Interval) Next(t time.Time) time.Time {
	switch i.Unit {
	case UnitMinute:
		return t.Add(time.Duration(i.N) * time.Minute)
	case UnitHour:
		return t.Add(time.Duration(i.N) * time.Hour)
	case UnitDay:
		return t.AddDate(0, 0, i.N)
	case UnitMonth:
		return t.AddDate(0, i.N, 0)
	case UnitYear:
		return t.AddDate(i.N, 0, 0)
	default:
		return t
	}
}

// String renders the interval back into the scheduler grammar.
func (i Interval) String() string {
	if i.N == 1 {
		return fmt.Sprintf("1 %s", i.Unit)
	}
	return fmt.Sprintf("%d %ss", i.N, i.Unit)
}
