// Package timeparse turns free-form Russian reminder requests such as
// "завтра в 10:15 позвонить маме" or "каждый месяц 15 числа оплатить" into
// an absolute trigger instant, an optional repeat phrase and a description.
package timeparse

import (
	"strconv"
	"strings"
	"time"

	"github.com/scaramou4/rereminder-bot-sub000/internal/constants"
	"github.com/scaramou4/rereminder-bot-sub000/internal/logger"
	"github.com/scaramou4/rereminder-bot-sub000/internal/recurrence"
)

// Options carries the per-user context a request is resolved in.
// Zero fields fall back to the service defaults.
type Options struct {
	Location *time.Location
	Morning  ClockTime
	Evening  ClockTime
}

// DefaultOptions returns Europe/Moscow with 08:00 and 18:00 day parts.
func DefaultOptions() Options {
	return Options{}.withDefaults()
}

func (o Options) withDefaults() Options {
	if o.Location == nil {
		loc, err := time.LoadLocation(constants.DefaultTimezone)
		if err != nil {
			loc = time.UTC
		}
		o.Location = loc
	}
	if o.Morning == (ClockTime{}) {
		o.Morning, _ = ParseClock(constants.DefaultMorningTime)
	}
	if o.Evening == (ClockTime{}) {
		o.Evening, _ = ParseClock(constants.DefaultEveningTime)
	}
	return o
}

// Result is a successfully parsed request. It is never persisted as is.
type Result struct {
	TimeSpec    string    // matched temporal fragment
	Description string    // what to remind about
	Repeat      string    // canonical repeat phrase, empty for one-off
	Datetime    time.Time // first trigger instant
}

// IsRecurring reports whether the request carries a repeat phrase.
func (r *Result) IsRecurring() bool { return r.Repeat != "" }

// Parser is stateless and safe for concurrent use.
type Parser struct {
	logger *logger.Logger
}

// New creates a parser. A nil logger disables debug output.
func New(log *logger.Logger) *Parser {
	if log == nil {
		log = logger.Nop()
	}
	return &Parser{logger: log.Component("timeparse")}
}

// request is everything the grammar recognised in one message.
type request struct {
	rule    *recurrence.Rule
	rel     *offset
	clock   *ClockTime
	dayWord string // сегодня / завтра / послезавтра
	date    *calendarDate
	dayPart string // morning or evening
}

type calendarDate struct {
	day   int
	month time.Month
	year  int // 0 when omitted
}

const (
	dayPartMorning = "morning"
	dayPartEvening = "evening"
)

// Parse resolves text at now. Exactly one of the result and the error is
// non-nil; the error is always a *ParseError.
func (p *Parser) Parse(text string, now time.Time, opts Options) (*Result, error) {
	opts = opts.withDefaults()

	s := newScanner(text)
	if m := s.find(reTrigger); m != nil {
		s.trigger = s.consume(m)
	}

	var v violations
	req := p.scan(s, &v)
	description := s.rest()

	var at time.Time
	if len(v) == 0 {
		at = resolve(req, now, opts, &v)
	}
	if description == "" {
		v.add(CodeEmptyDescription, "")
	}

	if err := v.first(); err != nil {
		p.logger.Debug("parse rejected",
			logger.Field{Key: "code", Value: err.Code.String()},
			logger.Field{Key: "fragment", Value: err.Fragment})
		return nil, err
	}

	res := &Result{
		TimeSpec:    s.matched(),
		Description: description,
		Datetime:    at,
	}
	if req.rule != nil {
		res.Repeat = req.rule.Phrase()
	}
	p.logger.Debug("parsed request",
		logger.Field{Key: "time_spec", Value: res.TimeSpec},
		logger.Field{Key: "repeat", Value: res.Repeat},
		logger.Field{Key: "datetime", Value: res.Datetime.Format(time.RFC3339)})
	return res, nil
}

// ParseWhen resolves a bare time expression, as typed when postponing:
// "45 минут", "через 2 часа", "завтра в 9", "в 18:30".
// Repeat phrases are not accepted here.
func (p *Parser) ParseWhen(text string, now time.Time, opts Options) (time.Time, error) {
	opts = opts.withDefaults()

	text = strings.TrimSpace(text)
	switch {
	case reBareNum.MatchString(text):
		text = "через " + text + " минут"
	case startsWithQuantity(text):
		text = "через " + text
	}
	s := newScanner(text)

	var v violations
	req := p.scan(s, &v)
	if req.rule != nil {
		v.add(CodeUnrecognizedFormat, req.rule.Phrase())
	}
	if rest := s.rest(); rest != "" {
		v.add(CodeUnrecognizedFormat, rest)
	}

	var at time.Time
	if len(v) == 0 {
		at = resolve(req, now, opts, &v)
	}
	if err := v.first(); err != nil {
		return time.Time{}, err
	}
	return at, nil
}

func startsWithQuantity(text string) bool {
	return reLeadQty.MatchString(strings.ToLower(text))
}

// scan runs every rule group once, recording what it found and which rules
// were violated along the way.
func (p *Parser) scan(s *scanner, v *violations) request {
	var req request

	for _, rr := range recurrenceRules {
		m := s.find(rr.re)
		if m == nil {
			continue
		}
		var groups []string
		for k := 2; 2*k < len(m); k++ {
			groups = append(groups, s.group(m, k))
		}
		fragment := s.group(m, 1)
		s.consume(m)
		rule, code := rr.build(groups)
		if code != 0 {
			v.add(code, fragment)
		} else {
			req.rule = &rule
		}
		break
	}
	if m := s.find(reRecAny); m != nil {
		v.add(CodeInvalidRecurrenceUnit, s.group(m, 1))
		s.consume(m)
	}

	if m := s.find(reRelative); m != nil {
		fragment := s.group(m, 1)
		s.consume(m)
		o, ok := parseOffset(strings.TrimPrefix(fragment, "через"))
		switch {
		case !ok:
			v.add(CodeUnrecognizedFormat, fragment)
		case o.nominalMinutes() <= 0:
			v.add(CodeNonPositiveDuration, fragment)
		default:
			req.rel = &o
		}
		if m := s.find(reRelative); m != nil {
			v.add(CodeAmbiguousConstruction, s.group(m, 1))
			s.consume(m)
		}
	}

	if m := s.find(reDate); m != nil {
		fragment := s.group(m, 1)
		day, _ := strconv.Atoi(s.group(m, 2))
		month, _ := recurrence.MonthByName(s.group(m, 3))
		year, _ := strconv.Atoi(s.group(m, 4))
		s.consume(m)

		limit := recurrence.DaysIn(2000, month)
		if year > 0 {
			limit = recurrence.DaysIn(year, month)
		}
		if day < 1 || day > limit {
			v.add(CodeInvalidCalendarDate, fragment)
		} else {
			req.date = &calendarDate{day: day, month: month, year: year}
		}
	}

	if m := s.find(reDayWord); m != nil {
		req.dayWord = s.group(m, 1)
		s.consume(m)
		if m := s.find(reDayWord); m != nil {
			v.add(CodeAmbiguousConstruction, s.group(m, 1))
			s.consume(m)
		}
		if req.date != nil {
			v.add(CodeAmbiguousConstruction, req.dayWord)
		}
	}

	p.scanClock(s, &req, v)

	if m := s.find(reDayPart); m != nil {
		if strings.HasPrefix(s.group(m, 1), "утр") {
			req.dayPart = dayPartMorning
		} else {
			req.dayPart = dayPartEvening
		}
		s.consume(m)
	}

	absolute := req.clock != nil || req.date != nil || req.dayWord != "" || req.dayPart != ""
	if req.rel != nil && absolute {
		v.add(CodeAmbiguousConstruction, s.matched())
	}
	if req.rule != nil && req.rel != nil {
		v.add(CodeAmbiguousConstruction, s.matched())
	}
	if req.rule != nil && (req.rule.Kind == recurrence.KindMonthly || req.rule.Kind == recurrence.KindYearly) &&
		(req.date != nil || req.dayWord != "") {
		v.add(CodeAmbiguousConstruction, s.matched())
	}

	if req.rule == nil && req.rel == nil && !absolute && len(*v) == 0 {
		v.add(CodeUnrecognizedFormat, "")
	}
	return req
}

func (p *Parser) scanClock(s *scanner, req *request, v *violations) {
	found := 0
	for {
		var (
			c        ClockTime
			meridiem string
			fragment string
		)
		if m := s.find(reClockHM); m != nil {
			fragment = s.group(m, 1)
			h, mm := s.group(m, 2), s.group(m, 3)
			if h == "" {
				h, mm = s.group(m, 4), s.group(m, 5)
			}
			c.Hour, _ = strconv.Atoi(h)
			c.Minute, _ = strconv.Atoi(mm)
			s.consume(m)
		} else if m := s.find(reClockHHM); m != nil {
			fragment = s.group(m, 1)
			n, _ := strconv.Atoi(s.group(m, 2))
			c.Hour, c.Minute = n/100, n%100
			s.consume(m)
		} else if m := s.find(reClockH); m != nil {
			fragment = s.group(m, 1)
			c.Hour, _ = strconv.Atoi(s.group(m, 2))
			meridiem = s.group(m, 3)
			s.consume(m)
		} else {
			return
		}

		found++
		if found > 1 {
			v.add(CodeAmbiguousConstruction, fragment)
			continue
		}
		if !c.valid() {
			v.add(CodeInvalidClockTime, fragment)
			continue
		}
		c = applyMeridiem(c, meridiem)
		req.clock = &c
	}
}

func applyMeridiem(c ClockTime, meridiem string) ClockTime {
	switch meridiem {
	case "дня", "вечера":
		if c.Hour >= 1 && c.Hour < 12 {
			c.Hour += 12
		}
	case "ночи", "утра":
		if c.Hour == 12 {
			c.Hour = 0
		}
	}
	return c
}

// resolve turns a violation-free request into the first trigger instant.
func resolve(req request, now time.Time, opts Options, v *violations) time.Time {
	loc := opts.Location
	now = now.In(loc)

	if req.rel != nil {
		at := req.rel.apply(now)
		if !at.After(now) {
			v.add(CodeNonPositiveDuration, "через")
		}
		return at
	}

	clock, hasClock := wallClock(req, opts)

	if req.rule != nil {
		return firstOccurrence(*req.rule, req, clock, hasClock, now, opts, v)
	}

	if !hasClock {
		clock = opts.Morning
	}
	return absoluteInstant(req, clock, now, v)
}

// wallClock merges an explicit clock with day-part words.
func wallClock(req request, opts Options) (ClockTime, bool) {
	switch {
	case req.clock != nil && req.dayPart == dayPartEvening && req.clock.Hour < 12:
		return ClockTime{Hour: req.clock.Hour + 12, Minute: req.clock.Minute}, true
	case req.clock != nil:
		return *req.clock, true
	case req.dayPart == dayPartMorning:
		return opts.Morning, true
	case req.dayPart == dayPartEvening:
		return opts.Evening, true
	}
	return ClockTime{}, false
}

func absoluteInstant(req request, clock ClockTime, now time.Time, v *violations) time.Time {
	switch {
	case req.date != nil:
		return datedInstant(*req.date, clock, now, v)
	case req.dayWord == "сегодня":
		at := clock.on(now)
		if !at.After(now) {
			v.add(CodePastTime, req.dayWord)
		}
		return at
	case req.dayWord == "завтра":
		return clock.on(now.AddDate(0, 0, 1))
	case req.dayWord == "послезавтра":
		return clock.on(now.AddDate(0, 0, 2))
	}

	at := clock.on(now)
	if !at.After(now) {
		at = clock.on(now.AddDate(0, 0, 1))
	}
	return at
}

func datedInstant(d calendarDate, clock ClockTime, now time.Time, v *violations) time.Time {
	loc := now.Location()
	if d.year > 0 {
		at := time.Date(d.year, d.month, d.day, clock.Hour, clock.Minute, 0, 0, loc)
		if !at.After(now) {
			v.add(CodePastTime, strconv.Itoa(d.year))
		}
		return at
	}

	// без года: ближайший будущий год, в котором такая дата существует
	for y := now.Year(); y <= now.Year()+8; y++ {
		if d.day > recurrence.DaysIn(y, d.month) {
			continue
		}
		at := time.Date(y, d.month, d.day, clock.Hour, clock.Minute, 0, 0, loc)
		if at.After(now) {
			return at
		}
	}
	v.add(CodeInvalidCalendarDate, "")
	return time.Time{}
}

func firstOccurrence(rule recurrence.Rule, req request, clock ClockTime, hasClock bool, now time.Time, opts Options, v *violations) time.Time {
	loc := opts.Location
	dated := req.date != nil || req.dayWord != ""

	switch rule.Kind {
	case recurrence.KindHourly, recurrence.KindEveryMinutes:
		if hasClock || dated {
			if !hasClock {
				clock = ClockTime{Hour: now.Hour(), Minute: now.Minute()}
			}
			return absoluteInstant(req, clock, now, v)
		}
		return rule.Next(now, loc)

	case recurrence.KindDaily, recurrence.KindMorning, recurrence.KindEvening:
		if !hasClock {
			switch rule.Kind {
			case recurrence.KindMorning:
				clock = opts.Morning
			case recurrence.KindEvening:
				clock = opts.Evening
			default:
				if !dated {
					return rule.Next(now, loc)
				}
				clock = ClockTime{Hour: now.Hour(), Minute: now.Minute()}
			}
		} else if rule.Kind == recurrence.KindEvening && clock.Hour < 12 {
			clock.Hour += 12
		}
		return absoluteInstant(req, clock, now, v)

	case recurrence.KindMonthly:
		if !hasClock {
			clock = opts.Morning
		}
		y, m, _ := now.Date()
		day := min(rule.Day, recurrence.DaysIn(y, m))
		at := time.Date(y, m, day, clock.Hour, clock.Minute, 0, 0, loc)
		if !at.After(now) {
			at = rule.Next(at, loc)
		}
		return at

	case recurrence.KindYearly:
		if !hasClock {
			clock = opts.Morning
		}
		y := now.Year()
		day := min(rule.Day, recurrence.DaysIn(y, rule.Month))
		at := time.Date(y, rule.Month, day, clock.Hour, clock.Minute, 0, 0, loc)
		if !at.After(now) {
			at = rule.Next(at, loc)
		}
		return at
	}

	v.add(CodeUnrecognizedFormat, rule.Phrase())
	return time.Time{}
}
