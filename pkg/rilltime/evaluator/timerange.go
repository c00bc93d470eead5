package evaluator

import (
	"fmt"
	"time"

	"github.com/rilldata/gorill/pkg/rilltime/grain"
)

// TimeRange is a resolved half-open interval [Start, End) with the grain
// the range most naturally breaks down into, when determinable.
type TimeRange struct {
	Start time.Time
	End   time.Time
	Grain grain.Grain
}

// String renders the range in RFC 3339 with half-open bracket notation.
func (r TimeRange) String() string {
	s := fmt.Sprintf("[%s, %s)", r.Start.Format(time.RFC3339), r.End.Format(time.RFC3339))
	if r.Grain != grain.Unspecified {
		s += " " + r.Grain.String()
	}
	return s
}

// Duration returns the absolute length of the range.
func (r TimeRange) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// IsEmpty reports whether the range spans no time at all.
func (r TimeRange) IsEmpty() bool {
	return !r.Start.Before(r.End)
}

// Contains reports whether t falls inside the half-open interval.
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// Equal reports whether two ranges cover the same instants at the same
// grain.
func (r TimeRange) Equal(other TimeRange) bool {
	return r.Start.Equal(other.Start) && r.End.Equal(other.End) && r.Grain == other.Grain
}
