// Package format renders expressions and resolved ranges as text.
//
// Canonical prints an AST in the one form the parser itself would
// print, so equal expressions share a cache key. Range and Instant are
// the human-facing side: locale month and weekday names come from
// goodsign/monday, locale matching from golang.org/x/text/language.
package format

import (
	"fmt"
	"strconv"
	"time"

	"github.com/goodsign/monday"

	"github.com/rilldata/gorill/pkg/rilltime/ast"
	"github.com/rilldata/gorill/pkg/rilltime/evaluator"
	"github.com/rilldata/gorill/pkg/rilltime/grain"
)

// Style selects how verbose the rendered text is.
type Style string

const (
	StyleShort  Style = "short"
	StyleMedium Style = "medium"
	StyleLong   Style = "long"
	StyleFull   Style = "full"
)

// ParseStyle maps user input to a Style.
func ParseStyle(s string) (Style, bool) {
	switch Style(s) {
	case StyleShort, StyleMedium, StyleLong, StyleFull:
		return Style(s), true
	}
	return "", false
}

// Options controls human rendering. The zero value means medium style
// in en-US.
type Options struct {
	Style  Style
	Locale string
}

func (o Options) withDefaults() Options {
	if o.Style == "" {
		o.Style = StyleMedium
	}
	if o.Locale == "" {
		o.Locale = "en-US"
	}
	return o
}

// Canonical renders an expression in normalized form: single spaces and
// canonical unit letters. Parsing the result yields an identical
// rendering.
func Canonical(expr ast.Expression) string {
	if expr == nil {
		return ""
	}
	return expr.String()
}

// Range renders a resolved range for people. Ranges that cover exactly
// one month, quarter or year collapse to the period name; day-aligned
// ranges print as inclusive dates; anything finer prints timestamps.
func Range(r evaluator.TimeRange, opts Options) (string, error) {
	opts = opts.withDefaults()
	loc, err := resolveOptions(opts)
	if err != nil {
		return "", err
	}

	if r.IsEmpty() {
		return renderInstant(r.Start, opts.Style, loc), nil
	}

	if name, ok := wholePeriod(r, opts.Style, loc); ok {
		return name, nil
	}

	if isMidnight(r.Start) && isMidnight(r.End) {
		layout := dateLayout(opts.Style, loc)
		// The end bound is exclusive; people read date ranges as
		// inclusive.
		last := r.End.AddDate(0, 0, -1)
		if sameDate(r.Start, last) {
			return monday.Format(r.Start, layout, loc), nil
		}
		return monday.Format(r.Start, layout, loc) + " to " + monday.Format(last, layout, loc), nil
	}

	clock := clockLayout(r)
	layout := dateLayout(opts.Style, loc) + " " + clock
	if sameDate(r.Start, r.End) {
		return monday.Format(r.Start, layout, loc) + " to " + r.End.Format(clock), nil
	}
	return monday.Format(r.Start, layout, loc) + " to " + monday.Format(r.End, layout, loc), nil
}

// Instant renders a single point in time.
func Instant(t time.Time, opts Options) (string, error) {
	opts = opts.withDefaults()
	loc, err := resolveOptions(opts)
	if err != nil {
		return "", err
	}
	return renderInstant(t, opts.Style, loc), nil
}

func resolveOptions(opts Options) (monday.Locale, error) {
	if _, ok := ParseStyle(string(opts.Style)); !ok {
		return monday.LocaleEnUS,
			fmt.Errorf("unknown style %q (valid styles: short, medium, long, full)", opts.Style)
	}
	return mondayLocale(opts.Locale)
}

func renderInstant(t time.Time, style Style, loc monday.Locale) string {
	layout := dateLayout(style, loc)
	if !isMidnight(t) {
		layout += " " + clockLayoutFor(t)
	}
	return monday.Format(t, layout, loc)
}

// wholePeriod collapses period-aligned ranges to their period name.
func wholePeriod(r evaluator.TimeRange, style Style, loc monday.Locale) (string, bool) {
	aligned := func(g grain.Grain) bool {
		return r.Start.Equal(grain.Truncate(r.Start, g, time.Monday)) &&
			r.End.Equal(grain.Add(r.Start, 1, g))
	}

	switch r.Grain {
	case grain.Year:
		if aligned(grain.Year) {
			return strconv.Itoa(r.Start.Year()), true
		}
	case grain.Quarter:
		if aligned(grain.Quarter) {
			q := (int(r.Start.Month())-1)/3 + 1
			return fmt.Sprintf("Q%d %d", q, r.Start.Year()), true
		}
	case grain.Month:
		if aligned(grain.Month) {
			return monday.Format(r.Start, monthLayout(style, loc), loc), true
		}
	}
	return "", false
}

func isMidnight(t time.Time) bool {
	return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0
}

func sameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// clockLayout picks the time-of-day precision for a range.
func clockLayout(r evaluator.TimeRange) string {
	if r.Start.Second() == 0 && r.Start.Nanosecond() == 0 &&
		r.End.Second() == 0 && r.End.Nanosecond() == 0 {
		return "15:04"
	}
	return "15:04:05"
}

func clockLayoutFor(t time.Time) string {
	if t.Second() == 0 && t.Nanosecond() == 0 {
		return "15:04"
	}
	return "15:04:05"
}

// dateLayout returns the Go layout for a date in the given style.
// monday.Format substitutes localized month and weekday names; numeric
// order and punctuation still vary by locale family.
func dateLayout(style Style, loc monday.Locale) string {
	switch style {
	case StyleShort:
		switch loc {
		case monday.LocaleEnUS:
			return "1/2/06"
		case monday.LocaleDeDE:
			return "02.01.06"
		case monday.LocaleJaJP, monday.LocaleZhCN, monday.LocaleZhTW:
			return "06/1/2"
		case monday.LocaleKoKR:
			return "06. 1. 2."
		default:
			return "02/01/06"
		}
	case StyleLong:
		switch loc {
		case monday.LocaleEnUS:
			return "January 2, 2006"
		case monday.LocaleDeDE:
			return "2. January 2006"
		case monday.LocaleJaJP, monday.LocaleZhCN, monday.LocaleZhTW:
			return "2006年1月2日"
		case monday.LocaleKoKR:
			return "2006년 1월 2일"
		default:
			return "2 January 2006"
		}
	case StyleFull:
		switch loc {
		case monday.LocaleEnUS:
			return "Monday, January 2, 2006"
		case monday.LocaleJaJP, monday.LocaleZhCN, monday.LocaleZhTW:
			return "2006年1月2日 Monday"
		case monday.LocaleKoKR:
			return "2006년 1월 2일 Monday"
		default:
			return "Monday, 2 January 2006"
		}
	default:
		switch loc {
		case monday.LocaleEnUS:
			return "Jan 2, 2006"
		case monday.LocaleJaJP, monday.LocaleZhCN, monday.LocaleZhTW:
			return "2006年1月2日"
		case monday.LocaleKoKR:
			return "2006년 1월 2일"
		default:
			return "2 Jan 2006"
		}
	}
}

// monthLayout is the layout for a whole-month period.
func monthLayout(style Style, loc monday.Locale) string {
	switch loc {
	case monday.LocaleJaJP, monday.LocaleZhCN, monday.LocaleZhTW:
		return "2006年1月"
	case monday.LocaleKoKR:
		return "2006년 1월"
	}
	switch style {
	case StyleShort:
		return "1/2006"
	case StyleMedium:
		return "Jan 2006"
	default:
		return "January 2006"
	}
}
