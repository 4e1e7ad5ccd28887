package cron

import (
	"time"

	"github.com/scaramou4/rereminder-bot-sub000/internal/recurrence"
)

// onceSchedule fires once at at, immediately if at is already past.
// robfig/cron consults Next only from its run goroutine.
type onceSchedule struct {
	at   time.Time
	done bool
}

func (s *onceSchedule) Next(time.Time) time.Time {
	if s.done {
		return time.Time{} // zero: больше не запускать
	}
	s.done = true
	return s.at
}

// everySchedule fires at first and then every interval. Missed ticks
// collapse into a single immediate firing.
type everySchedule struct {
	interval recurrence.Interval
	first    time.Time
	next     time.Time
}

func (s *everySchedule) Next(t time.Time) time.Time {
	if s.next.IsZero() {
		s.next = s.first
		return s.next
	}
	for !s.next.After(t) {
		s.next = s.interval.Next(s.next)
	}
	return s.next
}

// firstRun computes the first firing of an every-job.
func firstRun(interval recurrence.Interval, start time.Time, skipImmediate bool) time.Time {
	if skipImmediate {
		return interval.Next(start)
	}
	return start
}
