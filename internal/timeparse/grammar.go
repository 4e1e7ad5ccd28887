package timeparse

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/wasilibs/go-re2"

	"github.com/scaramou4/rereminder-bot-sub000/internal/recurrence"
)

// RE2 has no Unicode-aware \b, so word boundaries are spelled out and the
// interesting part of every rule lives in capture group 1.
const (
	boundaryBefore = `(?:^|[^\p{L}\p{N}])`
	boundaryAfter  = `(?:[^\p{L}\p{N}]|$)`
)

func word(core string) *re2.Regexp {
	return re2.MustCompile(boundaryBefore + `(` + core + `)` + boundaryAfter)
}

const (
	numeralWords = `одного|одну|одна|один|двух|две|два|пару|трех|три|четыре|пятнадцать|пятьдесят|пять|шесть|семь|восемь|девять|десять|двадцать|тридцать|сорок|полторы|полтора|ноль`
	quantity     = `-?\d+(?:[.,]\d+)?|` + numeralWords
	unit         = `полчаса|минуты|минуту|минут|мин|часов|часа|час|ч|дней|дня|день|суток|сутки|недели|неделю|недель|нед|месяцев|месяца|месяц|мес|года|год|лет`
	relPart      = `(?:(?:` + quantity + `)\s*)?(?:` + unit + `)`
)

var (
	reTrigger = re2.MustCompile(`^\s*(напомни(?:те)?(?:\s+мне)?)` + boundaryAfter)

	reRecMinutes = word(`каждые\s+(-?\d+)\s*(?:минуты|минуту|минут|мин)`)
	reRecHourly  = word(`каждый\s+час`)
	reRecMorning = word(`каждое\s+утро|каждым\s+утром`)
	reRecEvening = word(`каждый\s+вечер|каждым\s+вечером`)
	reRecDaily   = word(`каждый\s+день|ежедневно`)
	reRecMonthly = word(`каждый\s+месяц\s+(\d{1,2})(?:-?(?:го|е))?\s+числа`)
	reRecYearly  = word(`каждый\s+год\s+(\d{1,2})\s+(` + recurrence.MonthNamesPattern() + `)`)
	reRecAny     = word(`(?:каждый|каждая|каждое|каждые|каждую|каждого|каждым)\s+[\p{L}\p{N}]+`)

	reRelative = word(`через\s+` + relPart + `(?:\s*(?:,|и)\s*` + relPart + `)*`)
	reRelPart  = re2.MustCompile(`(?:(` + quantity + `)\s*)?(` + unit + `)`)

	reDate     = word(`(\d{1,2})\s+(` + recurrence.MonthNamesPattern() + `)(?:\s+(\d{4})(?:\s*(?:года|г\.?))?)?`)
	reDayWord  = word(`послезавтра|завтра|сегодня`)
	reClockHM  = word(`(?:в\s+)?(\d{1,2}):(\d{2})|в\s+(\d{1,2})\.(\d{2})`)
	reClockHHM = word(`в\s+(\d{3,4})`)
	reClockH   = word(`в\s+(\d{1,2})(?:\s*(?:часов|часа|час|ч))?(?:\s+(утра|дня|вечера|ночи))?`)
	reDayPart  = word(`утром|утро|вечером|вечер`)
	reBareNum  = re2.MustCompile(`^\d+$`)
	reLeadQty  = re2.MustCompile(`^(?:(?:` + quantity + `)\s*(?:` + unit + `)|полчаса)` + boundaryAfter)
)

// rule groups in the order they are tried; the first match inside a group wins.
type recurrenceRule struct {
	re    *re2.Regexp
	build func(groups []string) (recurrence.Rule, ErrorCode)
}

var recurrenceRules = []recurrenceRule{
	{reRecMinutes, func(g []string) (recurrence.Rule, ErrorCode) {
		n, _ := strconv.Atoi(g[0])
		if n <= 0 {
			return recurrence.Rule{}, CodeNonPositiveDuration
		}
		return recurrence.EveryMinutes(n), 0
	}},
	{reRecHourly, func([]string) (recurrence.Rule, ErrorCode) { return recurrence.Hourly(), 0 }},
	{reRecMorning, func([]string) (recurrence.Rule, ErrorCode) { return recurrence.Morning(), 0 }},
	{reRecEvening, func([]string) (recurrence.Rule, ErrorCode) { return recurrence.Evening(), 0 }},
	{reRecDaily, func([]string) (recurrence.Rule, ErrorCode) { return recurrence.Daily(), 0 }},
	{reRecMonthly, func(g []string) (recurrence.Rule, ErrorCode) {
		d, _ := strconv.Atoi(g[0])
		r := recurrence.Monthly(d)
		if r.Validate() != nil {
			return recurrence.Rule{}, CodeInvalidCalendarDate
		}
		return r, 0
	}},
	{reRecYearly, func(g []string) (recurrence.Rule, ErrorCode) {
		d, _ := strconv.Atoi(g[0])
		m, _ := recurrence.MonthByName(g[1])
		r := recurrence.Yearly(d, m)
		if r.Validate() != nil {
			return recurrence.Rule{}, CodeInvalidCalendarDate
		}
		return r, 0
	}},
}

var numeralValues = map[string]float64{
	"ноль": 0,
	"один": 1, "одну": 1, "одна": 1, "одного": 1,
	"два": 2, "две": 2, "двух": 2, "пару": 2,
	"три": 3, "трех": 3,
	"четыре": 4, "пять": 5, "шесть": 6, "семь": 7, "восемь": 8, "девять": 9, "десять": 10,
	"пятнадцать": 15, "двадцать": 20, "тридцать": 30, "сорок": 40, "пятьдесят": 50,
	"полтора": 1.5, "полторы": 1.5,
}

func parseQuantity(s string) (float64, bool) {
	if s == "" {
		return 1, true
	}
	if v, ok := numeralValues[s]; ok {
		return v, true
	}
	v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	return v, err == nil
}

// offset is a relative duration split into calendar and clock parts.
type offset struct {
	years, months, days int
	clock               time.Duration
}

func (o offset) apply(t time.Time) time.Time {
	return t.AddDate(o.years, o.months, o.days).Add(o.clock)
}

// nominalMinutes is used only for the range checks.
func (o offset) nominalMinutes() float64 {
	return float64(o.years)*525600 + float64(o.months)*43200 + float64(o.days)*1440 + o.clock.Minutes()
}

// maxOffsetMinutes caps "через ..." at 100 years; it also keeps the
// clock part far from time.Duration overflow.
const maxOffsetMinutes = 100 * 525600

// unitMinutes is the nominal length of one unit, in minutes.
func unitMinutes(u string) float64 {
	switch {
	case u == "полчаса":
		return 30
	case strings.HasPrefix(u, "мин"):
		return 1
	case strings.HasPrefix(u, "ч"):
		return 60
	case strings.HasPrefix(u, "д") || strings.HasPrefix(u, "сут"):
		return 1440
	case strings.HasPrefix(u, "нед"):
		return 7 * 1440
	case strings.HasPrefix(u, "мес"):
		return 43200
	case strings.HasPrefix(u, "год") || u == "лет":
		return 525600
	}
	return 0
}

func (o *offset) add(qty float64, u string) {
	whole := int(qty)
	frac := qty - float64(whole)

	switch {
	case u == "полчаса":
		o.clock += time.Duration(qty * float64(30*time.Minute))
	case strings.HasPrefix(u, "мин"):
		o.clock += time.Duration(qty * float64(time.Minute))
	case strings.HasPrefix(u, "ч"):
		o.clock += time.Duration(qty * float64(time.Hour))
	case strings.HasPrefix(u, "д") || strings.HasPrefix(u, "сут"):
		o.days += whole
		o.clock += time.Duration(frac * float64(24*time.Hour))
	case strings.HasPrefix(u, "нед"):
		o.days += whole * 7
		o.clock += time.Duration(frac * float64(7*24*time.Hour))
	case strings.HasPrefix(u, "мес"):
		o.months += whole
		o.days += int(frac * 30)
	case strings.HasPrefix(u, "год") || u == "лет":
		o.years += whole
		o.days += int(frac * 365)
	}
}

// parseOffset reads the parts after "через". An offset beyond
// maxOffsetMinutes is rejected like an unreadable one.
func parseOffset(span string) (offset, bool) {
	var o offset
	parts := reRelPart.FindAllStringSubmatch(span, -1)
	if len(parts) == 0 {
		return o, false
	}
	total := 0.0
	for _, p := range parts {
		qty, ok := parseQuantity(p[1])
		if !ok || math.IsInf(qty, 0) || math.IsNaN(qty) {
			return o, false
		}
		if total += math.Abs(qty * unitMinutes(p[2])); total > maxOffsetMinutes {
			return o, false
		}
		o.add(qty, p[2])
	}
	return o, true
}

// ClockTime is a wall clock time of day.
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClock parses "HH:MM".
func ParseClock(s string) (ClockTime, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return ClockTime{}, err
	}
	return ClockTime{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (c ClockTime) String() string {
	return strconv.Itoa(c.Hour/10) + strconv.Itoa(c.Hour%10) + ":" + strconv.Itoa(c.Minute/10) + strconv.Itoa(c.Minute%10)
}

func (c ClockTime) valid() bool {
	return c.Hour >= 0 && c.Hour <= 23 && c.Minute >= 0 && c.Minute <= 59
}

func (c ClockTime) on(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, c.Hour, c.Minute, 0, 0, day.Location())
}
