// Package evaluator resolves Rill Time ASTs into concrete time ranges.
//
// Resolution walks the tree with an anchor instant in scope. The anchor
// starts as ctx.Now, and every "as of" clause replaces it for the
// expression to its left; ref names the anchor itself. All arithmetic
// happens in the context's timezone through the grain package, so
// daylight saving shifts and month lengths behave like a calendar, not
// like fixed durations.
package evaluator

import (
	"fmt"
	"time"

	"github.com/rilldata/gorill/pkg/rilltime/ast"
	rterrors "github.com/rilldata/gorill/pkg/rilltime/errors"
	"github.com/rilldata/gorill/pkg/rilltime/grain"
)

// Resolve evaluates an expression against the context and returns the
// resolved range. Errors are *rterrors.RillTimeError values carrying the
// offending position and names.
func Resolve(expr ast.Expression, ctx TimeContext) (TimeRange, error) {
	ev := &evaluator{
		ctx:       ctx,
		loc:       ctx.Location,
		weekStart: ctx.WeekStart,
	}
	if ev.loc == nil {
		ev.loc = time.UTC
	}

	return ev.resolveExpr(expr, ctx.Now.In(ev.loc))
}

// evaluator holds the normalized context for one resolution.
type evaluator struct {
	ctx       TimeContext
	loc       *time.Location
	weekStart time.Weekday
}

// instant is a point in time with the grain that produced it.
type instant struct {
	t time.Time
	g grain.Grain
}

// resolveExpr lifts a (possibly rebased) expression to a range, with
// anchor as the instant in scope.
func (ev *evaluator) resolveExpr(expr ast.Expression, anchor time.Time) (TimeRange, error) {
	switch node := expr.(type) {
	case *ast.Rebase:
		a, err := ev.evalPoint(node.Anchor, anchor)
		if err != nil {
			return TimeRange{}, err
		}
		return ev.resolveExpr(node.Inner, a.t)

	case *ast.Range:
		return ev.resolveRange(node, anchor)

	case *ast.Interval:
		n := node.Amount
		if n < 0 {
			n = -n
		}
		start := grain.Add(anchor, -n, node.Unit)
		return TimeRange{Start: start, End: anchor, Grain: node.Unit}, nil

	case *ast.ToDate:
		start := ev.toDateStart(anchor, node.Unit)
		return TimeRange{Start: start, End: anchor, Grain: grain.Unspecified}, nil

	default:
		return ev.resolveTerm(expr, anchor)
	}
}

// resolveTerm lifts a single term to a range. Windowed terms (calendar
// ISO literals, ordinals, an outermost truncation) produce their whole
// period; any other term is a point and yields the degenerate [p, p).
func (ev *evaluator) resolveTerm(expr ast.Expression, anchor time.Time) (TimeRange, error) {
	switch node := expr.(type) {
	case *ast.IsoLiteral:
		if node.Precision != ast.PrecisionInstant {
			start := ev.isoStart(node)
			g := node.Grain()
			return TimeRange{Start: start, End: grain.Add(start, 1, g), Grain: g}, nil
		}

	case *ast.Ordinal:
		return ev.ordinalWindow(node, anchor)

	case *ast.Truncate:
		p, err := ev.evalPoint(node, anchor)
		if err != nil {
			return TimeRange{}, err
		}
		return TimeRange{Start: p.t, End: grain.Add(p.t, 1, node.Unit), Grain: node.Unit}, nil
	}

	p, err := ev.evalPoint(expr, anchor)
	if err != nil {
		return TimeRange{}, err
	}
	return TimeRange{Start: p.t, End: p.t, Grain: p.g}, nil
}

// resolveRange evaluates both endpoints against the same anchor.
func (ev *evaluator) resolveRange(node *ast.Range, anchor time.Time) (TimeRange, error) {
	start, err := ev.endpoint(node.Start, anchor, false)
	if err != nil {
		return TimeRange{}, err
	}

	end, err := ev.endpoint(node.End, anchor, true)
	if err != nil {
		return TimeRange{}, err
	}

	if end.t.Before(start.t) {
		return TimeRange{}, rterrors.NewWithPosition("EVAL-0004",
			node.Token.Line, node.Token.Column, map[string]any{
				"Start": start.t.Format(time.RFC3339),
				"End":   end.t.Format(time.RFC3339),
			})
	}

	return TimeRange{Start: start.t, End: end.t, Grain: grain.Finer(start.g, end.g)}, nil
}

// endpoint evaluates a range endpoint. Windowed terms contribute their
// start in start position and their own end in end position; everything
// else contributes its point, so "-2D/D-2m to -2D/D" spans exactly two
// minutes.
func (ev *evaluator) endpoint(expr ast.Expression, anchor time.Time, isEnd bool) (instant, error) {
	switch node := expr.(type) {
	case *ast.IsoLiteral:
		if node.Precision != ast.PrecisionInstant {
			g := node.Grain()
			start := ev.isoStart(node)
			if isEnd {
				return instant{t: grain.Add(start, 1, g), g: g}, nil
			}
			return instant{t: start, g: g}, nil
		}

	case *ast.Ordinal:
		w, err := ev.ordinalWindow(node, anchor)
		if err != nil {
			return instant{}, err
		}
		if isEnd {
			return instant{t: w.End, g: node.Unit}, nil
		}
		return instant{t: w.Start, g: node.Unit}, nil

	case *ast.ToDate:
		if isEnd {
			return instant{t: anchor}, nil
		}
		return instant{t: ev.toDateStart(anchor, node.Unit)}, nil
	}

	return ev.evalPoint(expr, anchor)
}

// evalPoint evaluates an expression to a single instant. Windowed forms
// used as composition bases contribute their window start.
func (ev *evaluator) evalPoint(expr ast.Expression, anchor time.Time) (instant, error) {
	switch node := expr.(type) {
	case *ast.Anchor:
		t, err := ev.anchorValue(node, anchor)
		if err != nil {
			return instant{}, err
		}
		return instant{t: t}, nil

	case *ast.IsoLiteral:
		return instant{t: ev.isoStart(node), g: node.Grain()}, nil

	case *ast.Truncate:
		base, err := ev.evalPoint(node.Base, anchor)
		if err != nil {
			return instant{}, err
		}
		return instant{t: grain.Truncate(base.t, node.Unit, ev.weekStart), g: node.Unit}, nil

	case *ast.Offset:
		base := instant{t: anchor}
		if node.Base != nil {
			var err error
			base, err = ev.evalPoint(node.Base, anchor)
			if err != nil {
				return instant{}, err
			}
		}
		return instant{
			t: grain.Add(base.t, node.Amount, node.Unit),
			g: grain.Finer(base.g, node.Unit),
		}, nil

	case *ast.Ordinal:
		w, err := ev.ordinalWindow(node, anchor)
		if err != nil {
			return instant{}, err
		}
		return instant{t: w.Start, g: node.Unit}, nil

	case *ast.ToDate:
		return instant{t: ev.toDateStart(anchor, node.Unit)}, nil

	case *ast.Rebase:
		a, err := ev.evalPoint(node.Anchor, anchor)
		if err != nil {
			return instant{}, err
		}
		return ev.evalPoint(node.Inner, a.t)

	default:
		return instant{}, &rterrors.RillTimeError{
			Class:   rterrors.ClassEval,
			Message: fmt.Sprintf("cannot evaluate %T as an instant", expr),
		}
	}
}

// anchorValue resolves a named anchor against the context.
func (ev *evaluator) anchorValue(node *ast.Anchor, anchor time.Time) (time.Time, error) {
	switch node.Name {
	case "now":
		return ev.ctx.Now.In(ev.loc), nil

	case "ref":
		return anchor, nil

	case "watermark":
		if ev.ctx.Watermark == nil {
			return time.Time{}, rterrors.NewWithPosition("EVAL-0002",
				node.Token.Line, node.Token.Column,
				map[string]any{"Field": "watermark"})
		}
		return ev.ctx.Watermark.In(ev.loc), nil

	case "latest":
		if ev.ctx.Latest == nil {
			return time.Time{}, rterrors.NewWithPosition("EVAL-0002",
				node.Token.Line, node.Token.Column,
				map[string]any{"Field": "latest"})
		}
		return ev.ctx.Latest.In(ev.loc), nil

	default:
		err := rterrors.NewUnknownAnchor(node.Name, rterrors.KnownAnchors)
		return time.Time{}, err.WithPosition(node.Token.Line, node.Token.Column)
	}
}

// ordinalWindow computes the Nth unit window inside the parent period
// containing the anchor. The window start must fall inside the parent;
// the window itself may spill past its end, so W5 of a 31-day month is
// valid while W5 of February is not.
func (ev *evaluator) ordinalWindow(node *ast.Ordinal, anchor time.Time) (TimeRange, error) {
	parent, ok := node.Unit.Parent()
	if !ok {
		return TimeRange{}, ev.invalidOrdinal(node, node.Unit)
	}

	parentStart := grain.Truncate(anchor, parent, ev.weekStart)
	parentEnd := grain.Add(parentStart, 1, parent)

	if node.N < 1 {
		return TimeRange{}, ev.invalidOrdinal(node, parent)
	}

	start := grain.Add(parentStart, node.N-1, node.Unit)
	if !start.Before(parentEnd) {
		return TimeRange{}, ev.invalidOrdinal(node, parent)
	}

	end := grain.Add(parentStart, node.N, node.Unit)
	return TimeRange{Start: start, End: end, Grain: node.Unit}, nil
}

func (ev *evaluator) invalidOrdinal(node *ast.Ordinal, parent grain.Grain) error {
	return rterrors.NewWithPosition("EVAL-0003",
		node.Token.Line, node.Token.Column, map[string]any{
			"Ordinal": node.String(),
			"Parent":  parent.String(),
		})
}

// toDateStart returns the start of the to-date window ending at anchor.
// An anchor exactly on a period boundary closes the preceding period, so
// MTD anchored at the start of next month is the current complete month.
func (ev *evaluator) toDateStart(anchor time.Time, unit grain.Grain) time.Time {
	start := grain.Truncate(anchor, unit, ev.weekStart)
	if !start.Before(anchor) {
		start = grain.Add(start, -1, unit)
	}
	return start
}

// isoStart returns the first instant of an ISO literal. Calendar
// precisions resolve in the context timezone; instants are absolute.
func (ev *evaluator) isoStart(node *ast.IsoLiteral) time.Time {
	if node.Precision == ast.PrecisionInstant {
		return time.Date(node.Year, time.Month(node.Month), node.Day,
			node.Hour, node.Minute, node.Second, 0, time.UTC).In(ev.loc)
	}
	return time.Date(node.Year, time.Month(node.Month), node.Day,
		0, 0, 0, 0, ev.loc)
}
