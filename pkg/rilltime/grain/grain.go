// Package grain defines time grains and the calendar arithmetic the
// evaluator is built on.
//
// Grains order from finest to coarsest: ms < s < m < h < D < W < M < Q < Y.
// Unit letters are case-significant: m is minutes, M is months. Grains up
// to Hour are fixed-length and advance by constant duration; Day and
// coarser are calendar grains and advance by calendar fields, so daylight
// saving transitions and month lengths are respected.
package grain

import "time"

// Grain is a time granularity.
type Grain int

const (
	Unspecified Grain = iota
	Millisecond
	Second
	Minute
	Hour
	Day
	Week
	Month
	Quarter
	Year
)

// Parse maps a unit letter to its grain. Letters are case-significant;
// any other spelling is rejected.
func Parse(s string) (Grain, bool) {
	switch s {
	case "ms":
		return Millisecond, true
	case "s":
		return Second, true
	case "m":
		return Minute, true
	case "h":
		return Hour, true
	case "D":
		return Day, true
	case "W":
		return Week, true
	case "M":
		return Month, true
	case "Q":
		return Quarter, true
	case "Y":
		return Year, true
	}
	return Unspecified, false
}

// Letter returns the unit letter for the grain, as written in expressions.
func (g Grain) Letter() string {
	switch g {
	case Millisecond:
		return "ms"
	case Second:
		return "s"
	case Minute:
		return "m"
	case Hour:
		return "h"
	case Day:
		return "D"
	case Week:
		return "W"
	case Month:
		return "M"
	case Quarter:
		return "Q"
	case Year:
		return "Y"
	default:
		return ""
	}
}

// String returns the grain as a lowercase word.
func (g Grain) String() string {
	switch g {
	case Millisecond:
		return "millisecond"
	case Second:
		return "second"
	case Minute:
		return "minute"
	case Hour:
		return "hour"
	case Day:
		return "day"
	case Week:
		return "week"
	case Month:
		return "month"
	case Quarter:
		return "quarter"
	case Year:
		return "year"
	default:
		return "unspecified"
	}
}

// IsCalendar reports whether the grain advances by calendar fields rather
// than by a constant duration.
func (g Grain) IsCalendar() bool {
	return g >= Day
}

// FixedDuration returns the constant length of a fixed grain, and false
// for calendar grains.
func (g Grain) FixedDuration() (time.Duration, bool) {
	switch g {
	case Millisecond:
		return time.Millisecond, true
	case Second:
		return time.Second, true
	case Minute:
		return time.Minute, true
	case Hour:
		return time.Hour, true
	}
	return 0, false
}

// Parent returns the grain whose period encloses an ordinal of g.
// D2 selects within a week, W2 within a month, M2 within a quarter,
// Q2 within a year. Year has no enclosing period.
func (g Grain) Parent() (Grain, bool) {
	switch g {
	case Day:
		return Week, true
	case Week:
		return Month, true
	case Month:
		return Quarter, true
	case Quarter:
		return Year, true
	}
	return Unspecified, false
}

// Finer returns the finer of two grains, treating Unspecified as absent.
func Finer(a, b Grain) Grain {
	if a == Unspecified {
		return b
	}
	if b == Unspecified {
		return a
	}
	if b < a {
		return b
	}
	return a
}

// Truncate floors t to the start of its enclosing g period, in t's
// location. Week periods begin on weekStart.
func Truncate(t time.Time, g Grain, weekStart time.Weekday) time.Time {
	switch g {
	case Millisecond:
		return t.Truncate(time.Millisecond)
	case Second:
		return t.Truncate(time.Second)
	case Minute:
		y, mo, d := t.Date()
		h, m, _ := t.Clock()
		return time.Date(y, mo, d, h, m, 0, 0, t.Location())
	case Hour:
		y, mo, d := t.Date()
		h, _, _ := t.Clock()
		return time.Date(y, mo, d, h, 0, 0, 0, t.Location())
	case Day:
		y, mo, d := t.Date()
		return time.Date(y, mo, d, 0, 0, 0, 0, t.Location())
	case Week:
		day := Truncate(t, Day, weekStart)
		diff := (int(day.Weekday()) - int(weekStart) + 7) % 7
		return day.AddDate(0, 0, -diff)
	case Month:
		y, mo, _ := t.Date()
		return time.Date(y, mo, 1, 0, 0, 0, 0, t.Location())
	case Quarter:
		y, mo, _ := t.Date()
		qm := time.Month((int(mo)-1)/3*3 + 1)
		return time.Date(y, qm, 1, 0, 0, 0, 0, t.Location())
	case Year:
		y, _, _ := t.Date()
		return time.Date(y, time.January, 1, 0, 0, 0, 0, t.Location())
	}
	return t
}

// Add advances t by n grains. Fixed grains add a constant duration.
// Calendar grains add calendar fields: month-based grains clamp the
// day-of-month to the target month's length, so Jan 31 + 1M is Feb 28
// (or Feb 29 in a leap year), never Mar 3.
func Add(t time.Time, n int, g Grain) time.Time {
	switch g {
	case Millisecond:
		return t.Add(time.Duration(n) * time.Millisecond)
	case Second:
		return t.Add(time.Duration(n) * time.Second)
	case Minute:
		return t.Add(time.Duration(n) * time.Minute)
	case Hour:
		return t.Add(time.Duration(n) * time.Hour)
	case Day:
		return t.AddDate(0, 0, n)
	case Week:
		return t.AddDate(0, 0, 7*n)
	case Month:
		return addMonths(t, n)
	case Quarter:
		return addMonths(t, 3*n)
	case Year:
		return addMonths(t, 12*n)
	}
	return t
}

// addMonths adds n months with day-of-month clamping.
func addMonths(t time.Time, n int) time.Time {
	y, mo, d := t.Date()

	months := y*12 + int(mo) - 1 + n
	ny := months / 12
	nm := months % 12
	if nm < 0 {
		nm += 12
		ny--
	}
	month := time.Month(nm + 1)

	if dim := daysIn(ny, month); d > dim {
		d = dim
	}

	h, m, s := t.Clock()
	return time.Date(ny, month, d, h, m, s, t.Nanosecond(), t.Location())
}

// daysIn returns the number of days in a month. Day 0 of the next month
// normalizes to the last day of this one.
func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
