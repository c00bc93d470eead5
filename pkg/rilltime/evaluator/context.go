package evaluator

import "time"

// TimeContext carries the reference instants an expression resolves
// against. Resolution is a pure function of the expression and the
// context: the evaluator never reads the wall clock, so the same context
// always produces the same range.
type TimeContext struct {
	// Now is the reference instant for the now anchor and the default
	// anchor in scope.
	Now time.Time

	// Watermark is the ingestion watermark, if known. Expressions that
	// reference watermark fail without it.
	Watermark *time.Time

	// Latest is the most recent event time, if known. Expressions that
	// reference latest fail without it.
	Latest *time.Time

	// Location is the timezone calendar boundaries are computed in.
	// nil means UTC.
	Location *time.Location

	// WeekStart is the first day of the week used for /W truncation.
	// NewContext sets Monday; note the time.Weekday zero value is Sunday.
	WeekStart time.Weekday
}

// NewContext returns a context with UTC boundaries and Monday weeks.
func NewContext(now time.Time) TimeContext {
	return TimeContext{
		Now:       now,
		Location:  time.UTC,
		WeekStart: time.Monday,
	}
}

// WithWatermark returns a copy of the context with the watermark set.
func (c TimeContext) WithWatermark(t time.Time) TimeContext {
	c.Watermark = &t
	return c
}

// WithLatest returns a copy of the context with the latest event time set.
func (c TimeContext) WithLatest(t time.Time) TimeContext {
	c.Latest = &t
	return c
}

// WithLocation returns a copy of the context with the timezone set.
func (c TimeContext) WithLocation(loc *time.Location) TimeContext {
	c.Location = loc
	return c
}

// WithWeekStart returns a copy of the context with the week start set.
func (c TimeContext) WithWeekStart(day time.Weekday) TimeContext {
	c.WeekStart = day
	return c
}
