package query

import (
	"errors"
	"fmt"
	"time"

	"github.com/araddon/dateparse"

	"github.com/rilldata/gorill/pkg/rilltime/ast"
	"github.com/rilldata/gorill/pkg/rilltime/evaluator"
	"github.com/rilldata/gorill/pkg/rilltime/grain"
	"github.com/rilldata/gorill/pkg/rilltime/rilltime"
)

// TimeRangeSpec is the validated form of a wire TimeRange: exactly one
// of the three arms is set. RoundTo, when set, floors both bounds of
// the resolved range.
type TimeRangeSpec struct {
	Explicit   *ExplicitRange
	Duration   *DurationRange
	Expression *ExpressionRange
	RoundTo    grain.Grain
}

// ExplicitRange is a literal [start, end) pair. The raw strings are
// kept so instants without a timezone can be read in the query
// timezone at resolve time.
type ExplicitRange struct {
	Start string
	End   string
}

// DurationRange is a trailing window ending at the context watermark
// (or now when no watermark is set), optionally shifted back by Offset.
type DurationRange struct {
	Duration Duration
	Offset   Duration
}

// ExpressionRange evaluates a Rill Time expression.
type ExpressionRange struct {
	Text string
	expr ast.Expression
}

// Spec validates the wire range and returns its resolved form.
func (tr *TimeRange) Spec() (*TimeRangeSpec, error) {
	hasAbsolute := tr.Start != "" || tr.End != ""
	hasDuration := tr.IsoDuration != ""
	hasExpression := tr.Expression != ""

	count := 0
	for _, set := range []bool{hasAbsolute, hasDuration, hasExpression} {
		if set {
			count++
		}
	}
	if count == 0 {
		return nil, errors.New("time range requires one of: start+end, iso_duration, or expression")
	}
	if count > 1 {
		return nil, errors.New("time range cannot combine multiple types: use only one of start+end, iso_duration, or expression")
	}

	spec := &TimeRangeSpec{}
	if tr.RoundToGrain != TimeGrainUnspecified {
		g, ok := tr.RoundToGrain.Grain()
		if !ok {
			return nil, fmt.Errorf("invalid grain %q (supported: %s)", tr.RoundToGrain, grainList)
		}
		spec.RoundTo = g
	}

	switch {
	case hasAbsolute:
		if tr.Start == "" || tr.End == "" {
			return nil, errors.New("absolute time range requires both 'start' and 'end'")
		}
		if _, err := dateparse.ParseAny(tr.Start); err != nil {
			return nil, fmt.Errorf("invalid start %q: %w", tr.Start, err)
		}
		if _, err := dateparse.ParseAny(tr.End); err != nil {
			return nil, fmt.Errorf("invalid end %q: %w", tr.End, err)
		}
		spec.Explicit = &ExplicitRange{Start: tr.Start, End: tr.End}

	case hasDuration:
		d, err := ParseDuration(tr.IsoDuration)
		if err != nil {
			return nil, err
		}
		dr := &DurationRange{Duration: d}
		if tr.IsoOffset != "" {
			offset, err := ParseDuration(tr.IsoOffset)
			if err != nil {
				return nil, err
			}
			dr.Offset = offset
		}
		spec.Duration = dr

	case hasExpression:
		expr, err := rilltime.Parse(tr.Expression)
		if err != nil {
			return nil, fmt.Errorf("invalid time range expression %q: %w", tr.Expression, err)
		}
		spec.Expression = &ExpressionRange{Text: tr.Expression, expr: expr}
	}

	return spec, nil
}

// Resolve produces the concrete half-open range for a context.
func (s *TimeRangeSpec) Resolve(ctx evaluator.TimeContext) (evaluator.TimeRange, error) {
	loc := ctx.Location
	if loc == nil {
		loc = time.UTC
	}

	var r evaluator.TimeRange
	switch {
	case s.Explicit != nil:
		start, err := dateparse.ParseIn(s.Explicit.Start, loc)
		if err != nil {
			return evaluator.TimeRange{}, fmt.Errorf("invalid start %q: %w", s.Explicit.Start, err)
		}
		end, err := dateparse.ParseIn(s.Explicit.End, loc)
		if err != nil {
			return evaluator.TimeRange{}, fmt.Errorf("invalid end %q: %w", s.Explicit.End, err)
		}
		if end.Before(start) {
			return evaluator.TimeRange{}, fmt.Errorf("time range start %s is after end %s",
				start.Format(time.RFC3339), end.Format(time.RFC3339))
		}
		r = evaluator.TimeRange{Start: start.In(loc), End: end.In(loc)}

	case s.Duration != nil:
		end := durationAnchor(ctx).In(loc)
		if !s.Duration.Offset.IsZero() {
			end = s.Duration.Offset.SubFrom(end)
		}
		start := s.Duration.Duration.SubFrom(end)
		r = evaluator.TimeRange{Start: start, End: end, Grain: s.Duration.Duration.Grain()}

	case s.Expression != nil:
		var err error
		r, err = rilltime.Resolve(s.Expression.expr, ctx)
		if err != nil {
			return evaluator.TimeRange{}, err
		}

	default:
		return evaluator.TimeRange{}, errors.New("time range spec has no arm set")
	}

	if s.RoundTo != grain.Unspecified {
		r.Start = grain.Truncate(r.Start, s.RoundTo, ctx.WeekStart)
		r.End = grain.Truncate(r.End, s.RoundTo, ctx.WeekStart)
		r.Grain = s.RoundTo
	}
	return r, nil
}

// durationAnchor picks the instant trailing windows end at.
func durationAnchor(ctx evaluator.TimeContext) time.Time {
	if ctx.Watermark != nil {
		return *ctx.Watermark
	}
	return ctx.Now
}
