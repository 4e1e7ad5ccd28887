package recurrence

import (
	"strings"
	"time"
)

var monthsGenitive = [...]string{
	"января", "февраля", "марта", "апреля", "мая", "июня",
	"июля", "августа", "сентября", "октября", "ноября", "декабря",
}

// MonthGenitive returns the Russian genitive month name ("марта").
func MonthGenitive(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return monthsGenitive[m-1]
}

// MonthByName resolves a genitive month name.
func MonthByName(name string) (time.Month, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range monthsGenitive {
		if n == name {
			return time.Month(i + 1), true
		}
	}
	return 0, false
}

// MonthNamesPattern returns an alternation of genitive month names for regexes.
func MonthNamesPattern() string {
	return strings.Join(monthsGenitive[:], "|")
}
