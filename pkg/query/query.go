// Package query builds the JSON payloads for Rill's metrics query API.
//
// The types here mirror the wire format field for field: snake_case
// names, optional fields omitted. Nothing in this package talks to the
// network; a MetricsQuery marshals to the request body and stops there.
package query

import (
	"encoding/json"

	"github.com/rilldata/gorill/pkg/rilltime/grain"
)

// Operator is a comparison or logical operator in a filter expression.
type Operator string

const (
	OperatorUnspecified Operator = ""
	OperatorEq          Operator = "eq"
	OperatorNeq         Operator = "neq"
	OperatorLt          Operator = "lt"
	OperatorLte         Operator = "lte"
	OperatorGt          Operator = "gt"
	OperatorGte         Operator = "gte"
	OperatorIn          Operator = "in"
	OperatorNin         Operator = "nin"
	OperatorIlike       Operator = "ilike"
	OperatorNilike      Operator = "nilike"
	OperatorOr          Operator = "or"
	OperatorAnd         Operator = "and"
)

// Valid reports whether op is a known operator.
func (op Operator) Valid() bool {
	switch op {
	case OperatorEq, OperatorNeq, OperatorLt, OperatorLte, OperatorGt, OperatorGte,
		OperatorIn, OperatorNin, OperatorIlike, OperatorNilike, OperatorOr, OperatorAnd:
		return true
	}
	return false
}

// IsLogical reports whether op combines nested conditions.
func (op Operator) IsLogical() bool {
	return op == OperatorAnd || op == OperatorOr
}

// IsMembership reports whether op takes a list of values.
func (op Operator) IsMembership() bool {
	return op == OperatorIn || op == OperatorNin
}

// operatorList is the supported set in error-message order.
const operatorList = "eq, neq, lt, lte, gt, gte, in, nin, ilike, nilike, and, or"

// TimeGrain is a time granularity in wire form.
type TimeGrain string

const (
	TimeGrainUnspecified TimeGrain = ""
	TimeGrainMillisecond TimeGrain = "millisecond"
	TimeGrainSecond      TimeGrain = "second"
	TimeGrainMinute      TimeGrain = "minute"
	TimeGrainHour        TimeGrain = "hour"
	TimeGrainDay         TimeGrain = "day"
	TimeGrainWeek        TimeGrain = "week"
	TimeGrainMonth       TimeGrain = "month"
	TimeGrainQuarter     TimeGrain = "quarter"
	TimeGrainYear        TimeGrain = "year"
)

// grainList is the supported set in error-message order.
const grainList = "millisecond, second, minute, hour, day, week, month, quarter, year"

// Valid reports whether tg is a known grain name.
func (tg TimeGrain) Valid() bool {
	_, ok := tg.Grain()
	return ok
}

// Grain maps the wire name to the engine grain.
func (tg TimeGrain) Grain() (grain.Grain, bool) {
	switch tg {
	case TimeGrainMillisecond:
		return grain.Millisecond, true
	case TimeGrainSecond:
		return grain.Second, true
	case TimeGrainMinute:
		return grain.Minute, true
	case TimeGrainHour:
		return grain.Hour, true
	case TimeGrainDay:
		return grain.Day, true
	case TimeGrainWeek:
		return grain.Week, true
	case TimeGrainMonth:
		return grain.Month, true
	case TimeGrainQuarter:
		return grain.Quarter, true
	case TimeGrainYear:
		return grain.Year, true
	}
	return grain.Unspecified, false
}

// TimeGrainFor maps an engine grain to its wire name.
func TimeGrainFor(g grain.Grain) TimeGrain {
	switch g {
	case grain.Millisecond:
		return TimeGrainMillisecond
	case grain.Second:
		return TimeGrainSecond
	case grain.Minute:
		return TimeGrainMinute
	case grain.Hour:
		return TimeGrainHour
	case grain.Day:
		return TimeGrainDay
	case grain.Week:
		return TimeGrainWeek
	case grain.Month:
		return TimeGrainMonth
	case grain.Quarter:
		return TimeGrainQuarter
	case grain.Year:
		return TimeGrainYear
	}
	return TimeGrainUnspecified
}

// Expression is a filter tree node: a field reference, a constant, a
// condition over sub-expressions, or a subquery.
type Expression struct {
	Name     string     `json:"name,omitempty"`
	Val      any        `json:"val,omitempty"`
	Cond     *Condition `json:"cond,omitempty"`
	Subquery *Subquery  `json:"subquery,omitempty"`
}

// MarshalJSON keeps val on pure value nodes even when the value is
// falsy (false, 0, ""), which omitempty alone would drop.
func (e Expression) MarshalJSON() ([]byte, error) {
	if e.Name == "" && e.Cond == nil && e.Subquery == nil {
		return json.Marshal(struct {
			Val any `json:"val"`
		}{e.Val})
	}
	type wire Expression
	return json.Marshal(wire(e))
}

// Condition combines expressions with an operator.
type Condition struct {
	Op    Operator     `json:"op"`
	Exprs []Expression `json:"exprs,omitempty"`
}

// DimensionComputeTimeFloor floors a time dimension to a grain.
type DimensionComputeTimeFloor struct {
	Dimension string    `json:"dimension"`
	Grain     TimeGrain `json:"grain"`
}

// DimensionCompute is a computation applied to a dimension.
type DimensionCompute struct {
	TimeFloor *DimensionComputeTimeFloor `json:"time_floor,omitempty"`
}

// Dimension groups query results.
type Dimension struct {
	Name    string            `json:"name"`
	Compute *DimensionCompute `json:"compute,omitempty"`
}

// MeasureComputeCountDistinct counts distinct values of a dimension.
type MeasureComputeCountDistinct struct {
	Dimension string `json:"dimension"`
}

// MeasureComputeComparisonValue reads a measure from the comparison range.
type MeasureComputeComparisonValue struct {
	Measure string `json:"measure"`
}

// MeasureComputeComparisonDelta is the difference against the comparison range.
type MeasureComputeComparisonDelta struct {
	Measure string `json:"measure"`
}

// MeasureComputeComparisonRatio is the ratio against the comparison range.
type MeasureComputeComparisonRatio struct {
	Measure string `json:"measure"`
}

// MeasureComputePercentOfTotal expresses a measure as a share of the total.
type MeasureComputePercentOfTotal struct {
	Measure string   `json:"measure"`
	Total   *float64 `json:"total,omitempty"`
}

// MeasureComputeURI generates a URI for a dimension.
type MeasureComputeURI struct {
	Dimension string `json:"dimension"`
}

// MeasureCompute is a computation applied to a measure.
type MeasureCompute struct {
	Count           bool                           `json:"count,omitempty"`
	CountDistinct   *MeasureComputeCountDistinct   `json:"count_distinct,omitempty"`
	ComparisonValue *MeasureComputeComparisonValue `json:"comparison_value,omitempty"`
	ComparisonDelta *MeasureComputeComparisonDelta `json:"comparison_delta,omitempty"`
	ComparisonRatio *MeasureComputeComparisonRatio `json:"comparison_ratio,omitempty"`
	PercentOfTotal  *MeasureComputePercentOfTotal  `json:"percent_of_total,omitempty"`
	URI             *MeasureComputeURI             `json:"uri,omitempty"`
}

// Measure aggregates query results.
type Measure struct {
	Name    string          `json:"name"`
	Compute *MeasureCompute `json:"compute,omitempty"`
}

// Subquery filters against an aggregated inner query.
type Subquery struct {
	Dimension Dimension   `json:"dimension"`
	Measures  []Measure   `json:"measures"`
	Where     *Expression `json:"where,omitempty"`
	Having    *Expression `json:"having,omitempty"`
}

// Sort orders query results by a named field.
type Sort struct {
	Name string `json:"name"`
	Desc bool   `json:"desc,omitempty"`
}

// TimeRange is the wire form of a time range. Exactly one of the three
// shapes should be populated: start+end, iso_duration (with optional
// iso_offset), or expression. Spec validates this.
type TimeRange struct {
	Start        string    `json:"start,omitempty"`
	End          string    `json:"end,omitempty"`
	IsoDuration  string    `json:"iso_duration,omitempty"`
	IsoOffset    string    `json:"iso_offset,omitempty"`
	Expression   string    `json:"expression,omitempty"`
	RoundToGrain TimeGrain `json:"round_to_grain,omitempty"`
}

// TimeSpine generates regular intervals between two instants.
type TimeSpine struct {
	Start string    `json:"start"`
	End   string    `json:"end"`
	Grain TimeGrain `json:"grain"`
}

// WhereSpine filters the spine rows.
type WhereSpine struct {
	Expr *Expression `json:"expr,omitempty"`
}

// Spine is the base structure a query joins against.
type Spine struct {
	Time  *TimeSpine  `json:"time,omitempty"`
	Where *WhereSpine `json:"where,omitempty"`
}

// MetricsQuery is a structured metrics query request.
type MetricsQuery struct {
	MetricsView         string      `json:"metrics_view"`
	Dimensions          []Dimension `json:"dimensions,omitempty"`
	Measures            []Measure   `json:"measures,omitempty"`
	Where               *Expression `json:"where,omitempty"`
	Having              *Expression `json:"having,omitempty"`
	TimeRange           *TimeRange  `json:"time_range,omitempty"`
	ComparisonTimeRange *TimeRange  `json:"comparison_time_range,omitempty"`
	Spine               *Spine      `json:"spine,omitempty"`
	Sort                []Sort      `json:"sort,omitempty"`
	Limit               *int        `json:"limit,omitempty"`
	Offset              *int        `json:"offset,omitempty"`
	PivotOn             []string    `json:"pivot_on,omitempty"`
	TimeZone            string      `json:"time_zone,omitempty"`
	UseDisplayNames     *bool       `json:"use_display_names,omitempty"`
	Rows                *bool       `json:"rows,omitempty"`
}

// MetricsSQLQuery is a SQL query evaluated in metrics view context.
type MetricsSQLQuery struct {
	SQL             string      `json:"sql"`
	AdditionalWhere *Expression `json:"additional_where,omitempty"`
}

// SQLQuery is a raw SQL request against the project warehouse.
type SQLQuery struct {
	SQL       string `json:"sql"`
	Connector string `json:"connector,omitempty"`
}

// QueryResult is the rows a query returns.
type QueryResult struct {
	Data []map[string]any `json:"data"`
}
