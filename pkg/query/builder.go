package query

import (
	"fmt"
	"strings"
	"time"
)

// Cond is a filter tree under construction. A bad construction carries
// its error along so the builder can report it at Build time, keeping
// call sites free of inline error checks.
type Cond struct {
	expr *Expression
	err  error
}

// Eq matches rows where field equals value.
func Eq(field string, value any) Cond { return compare(OperatorEq, field, value) }

// Neq matches rows where field differs from value.
func Neq(field string, value any) Cond { return compare(OperatorNeq, field, value) }

// Lt matches rows where field is less than value.
func Lt(field string, value any) Cond { return compare(OperatorLt, field, value) }

// Lte matches rows where field is at most value.
func Lte(field string, value any) Cond { return compare(OperatorLte, field, value) }

// Gt matches rows where field is greater than value.
func Gt(field string, value any) Cond { return compare(OperatorGt, field, value) }

// Gte matches rows where field is at least value.
func Gte(field string, value any) Cond { return compare(OperatorGte, field, value) }

// Ilike matches rows where field matches a case-insensitive pattern.
func Ilike(field string, pattern string) Cond { return compare(OperatorIlike, field, pattern) }

// Nilike matches rows where field does not match a case-insensitive pattern.
func Nilike(field string, pattern string) Cond { return compare(OperatorNilike, field, pattern) }

// In matches rows whose field is any of values.
func In(field string, values ...any) Cond { return membership(OperatorIn, field, values) }

// Nin matches rows whose field is none of values.
func Nin(field string, values ...any) Cond { return membership(OperatorNin, field, values) }

// And requires every condition to hold.
func And(conds ...Cond) Cond { return logical(OperatorAnd, conds) }

// Or requires at least one condition to hold.
func Or(conds ...Cond) Cond { return logical(OperatorOr, conds) }

// Compare builds a comparison condition from a dynamic operator.
func Compare(op Operator, field string, value any) Cond {
	if !op.Valid() {
		return Cond{err: fmt.Errorf("invalid operator %q (supported: %s)", op, operatorList)}
	}
	if op.IsLogical() {
		return Cond{err: fmt.Errorf("operator %q combines conditions; use And or Or", op)}
	}
	if op.IsMembership() {
		return Cond{err: fmt.Errorf("operator %q takes a value list; use In or Nin", op)}
	}
	return compare(op, field, value)
}

func compare(op Operator, field string, value any) Cond {
	if field == "" {
		return Cond{err: fmt.Errorf("missing field for %q operator", op)}
	}
	return Cond{expr: &Expression{Cond: &Condition{
		Op:    op,
		Exprs: []Expression{{Name: field}, {Val: value}},
	}}}
}

func membership(op Operator, field string, values []any) Cond {
	if field == "" {
		return Cond{err: fmt.Errorf("missing field for %q operator", op)}
	}
	if len(values) == 0 {
		return Cond{err: fmt.Errorf("the %q operator needs at least one value", op)}
	}
	return Cond{expr: &Expression{Cond: &Condition{
		Op:    op,
		Exprs: []Expression{{Name: field}, {Val: values}},
	}}}
}

func logical(op Operator, conds []Cond) Cond {
	if len(conds) == 0 {
		return Cond{err: fmt.Errorf("the %q operator needs at least one condition", op)}
	}
	exprs := make([]Expression, 0, len(conds))
	for _, c := range conds {
		if c.err != nil {
			return c
		}
		exprs = append(exprs, *c.expr)
	}
	return Cond{expr: &Expression{Cond: &Condition{Op: op, Exprs: exprs}}}
}

// Builder assembles a MetricsQuery step by step. Methods chain, and
// validation problems accumulate so Build reports them all at once.
type Builder struct {
	q    MetricsQuery
	errs []string
}

// NewBuilder returns an empty query builder.
func NewBuilder() *Builder { return &Builder{} }

func (b *Builder) fail(format string, args ...any) *Builder {
	b.errs = append(b.errs, fmt.Sprintf(format, args...))
	return b
}

// MetricsView names the metrics view to query.
func (b *Builder) MetricsView(name string) *Builder {
	b.q.MetricsView = name
	return b
}

// Dimensions adds plain dimensions by name.
func (b *Builder) Dimensions(names ...string) *Builder {
	for _, name := range names {
		b.q.Dimensions = append(b.q.Dimensions, Dimension{Name: name})
	}
	return b
}

// TimeFloor adds a computed dimension that floors a time column to a grain.
func (b *Builder) TimeFloor(name, dimension string, tg TimeGrain) *Builder {
	if !tg.Valid() {
		return b.fail("invalid grain %q for dimension %q (supported: %s)", tg, name, grainList)
	}
	b.q.Dimensions = append(b.q.Dimensions, Dimension{
		Name: name,
		Compute: &DimensionCompute{
			TimeFloor: &DimensionComputeTimeFloor{Dimension: dimension, Grain: tg},
		},
	})
	return b
}

// Measures adds plain measures by name.
func (b *Builder) Measures(names ...string) *Builder {
	for _, name := range names {
		b.q.Measures = append(b.q.Measures, Measure{Name: name})
	}
	return b
}

// Count adds a row-count measure.
func (b *Builder) Count(name string) *Builder {
	b.q.Measures = append(b.q.Measures, Measure{
		Name:    name,
		Compute: &MeasureCompute{Count: true},
	})
	return b
}

// CountDistinct adds a distinct-count measure over a dimension.
func (b *Builder) CountDistinct(name, dimension string) *Builder {
	b.q.Measures = append(b.q.Measures, Measure{
		Name:    name,
		Compute: &MeasureCompute{CountDistinct: &MeasureComputeCountDistinct{Dimension: dimension}},
	})
	return b
}

// ComparisonValue adds a measure carrying another measure's value over
// the comparison time range.
func (b *Builder) ComparisonValue(name, measure string) *Builder {
	b.q.Measures = append(b.q.Measures, Measure{
		Name:    name,
		Compute: &MeasureCompute{ComparisonValue: &MeasureComputeComparisonValue{Measure: measure}},
	})
	return b
}

// ComparisonDelta adds a measure holding the absolute change of another
// measure against the comparison time range.
func (b *Builder) ComparisonDelta(name, measure string) *Builder {
	b.q.Measures = append(b.q.Measures, Measure{
		Name:    name,
		Compute: &MeasureCompute{ComparisonDelta: &MeasureComputeComparisonDelta{Measure: measure}},
	})
	return b
}

// ComparisonRatio adds a measure holding the relative change of another
// measure against the comparison time range.
func (b *Builder) ComparisonRatio(name, measure string) *Builder {
	b.q.Measures = append(b.q.Measures, Measure{
		Name:    name,
		Compute: &MeasureCompute{ComparisonRatio: &MeasureComputeComparisonRatio{Measure: measure}},
	})
	return b
}

// PercentOfTotal adds a measure expressing another measure as a share
// of its total.
func (b *Builder) PercentOfTotal(name, measure string) *Builder {
	b.q.Measures = append(b.q.Measures, Measure{
		Name:    name,
		Compute: &MeasureCompute{PercentOfTotal: &MeasureComputePercentOfTotal{Measure: measure}},
	})
	return b
}

// Where sets the row filter.
func (b *Builder) Where(c Cond) *Builder {
	if c.err != nil {
		return b.fail("where: %s", c.err)
	}
	b.q.Where = c.expr
	return b
}

// Having sets the post-aggregation filter.
func (b *Builder) Having(c Cond) *Builder {
	if c.err != nil {
		return b.fail("having: %s", c.err)
	}
	b.q.Having = c.expr
	return b
}

// TimeRange sets the query time range.
func (b *Builder) TimeRange(tr TimeRange) *Builder {
	if _, err := tr.Spec(); err != nil {
		return b.fail("time_range: %s", err)
	}
	b.q.TimeRange = &tr
	return b
}

// ComparisonTimeRange sets the time range comparison measures are
// computed against.
func (b *Builder) ComparisonTimeRange(tr TimeRange) *Builder {
	if _, err := tr.Spec(); err != nil {
		return b.fail("comparison_time_range: %s", err)
	}
	b.q.ComparisonTimeRange = &tr
	return b
}

// Spine sets the base structure the query joins against, so rows
// appear even for dimension values with no data.
func (b *Builder) Spine(s Spine) *Builder {
	b.q.Spine = &s
	return b
}

// TimeSpine sets a spine of regular intervals between two instants.
func (b *Builder) TimeSpine(start, end string, tg TimeGrain) *Builder {
	if !tg.Valid() {
		return b.fail("invalid spine grain %q (supported: %s)", tg, grainList)
	}
	return b.Spine(Spine{Time: &TimeSpine{Start: start, End: end, Grain: tg}})
}

// Sort appends a sort key.
func (b *Builder) Sort(name string, desc bool) *Builder {
	b.q.Sort = append(b.q.Sort, Sort{Name: name, Desc: desc})
	return b
}

// Limit caps the number of rows returned.
func (b *Builder) Limit(n int) *Builder {
	if n < 0 {
		return b.fail("limit must not be negative, got %d", n)
	}
	b.q.Limit = &n
	return b
}

// Offset skips leading rows.
func (b *Builder) Offset(n int) *Builder {
	if n < 0 {
		return b.fail("offset must not be negative, got %d", n)
	}
	b.q.Offset = &n
	return b
}

// PivotOn pivots the result on the named columns.
func (b *Builder) PivotOn(columns ...string) *Builder {
	b.q.PivotOn = append(b.q.PivotOn, columns...)
	return b
}

// TimeZone sets the timezone time expressions evaluate in.
func (b *Builder) TimeZone(tz string) *Builder {
	if _, err := time.LoadLocation(tz); err != nil {
		return b.fail("invalid time zone %q", tz)
	}
	b.q.TimeZone = tz
	return b
}

// UseDisplayNames asks the server to label columns with display names.
func (b *Builder) UseDisplayNames(enabled bool) *Builder {
	b.q.UseDisplayNames = &enabled
	return b
}

// Rows asks for raw rows instead of aggregated results.
func (b *Builder) Rows(enabled bool) *Builder {
	b.q.Rows = &enabled
	return b
}

// Build validates the accumulated query and returns it.
func (b *Builder) Build() (*MetricsQuery, error) {
	errs := b.errs
	if b.q.MetricsView == "" {
		errs = append(errs, "metrics_view is required (call MetricsView first)")
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid query:\n  - %s", strings.Join(errs, "\n  - "))
	}
	q := b.q
	return &q, nil
}
