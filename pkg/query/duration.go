package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rilldata/gorill/pkg/rilltime/grain"
)

// Duration is an ISO-8601 duration. Year, month, week and day
// components are calendar units: adding one month to January 31st lands
// on the last day of February rather than a fixed number of hours
// later. The components after 'T' are absolute time.
type Duration struct {
	Years   int
	Months  int
	Weeks   int
	Days    int
	Hours   int
	Minutes int
	Seconds int
}

// ParseDuration parses an ISO-8601 duration such as P7D, P1M, PT1H30M
// or P1Y2M3DT4H5M6S.
func ParseDuration(s string) (Duration, error) {
	var d Duration
	if len(s) == 0 || (s[0] != 'P' && s[0] != 'p') {
		return d, fmt.Errorf("invalid ISO duration %q: must start with 'P'", s)
	}

	rest := s[1:]
	inTime := false
	seen := false

	for i := 0; i < len(rest); {
		if rest[i] == 'T' || rest[i] == 't' {
			if inTime {
				return d, fmt.Errorf("invalid ISO duration %q: repeated 'T'", s)
			}
			inTime = true
			i++
			continue
		}

		start := i
		for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
			i++
		}
		if start == i {
			return d, fmt.Errorf("invalid ISO duration %q: expected digits before %q", s, rest[i:])
		}
		if i >= len(rest) {
			return d, fmt.Errorf("invalid ISO duration %q: component %q has no unit", s, rest[start:])
		}

		n, err := strconv.Atoi(rest[start:i])
		if err != nil {
			return d, fmt.Errorf("invalid ISO duration %q: component out of range", s)
		}

		unit := rest[i]
		i++
		seen = true

		if inTime {
			switch unit {
			case 'H', 'h':
				d.Hours = n
			case 'M', 'm':
				d.Minutes = n
			case 'S', 's':
				d.Seconds = n
			default:
				return d, fmt.Errorf("invalid ISO duration %q: unknown time unit %q", s, string(unit))
			}
		} else {
			switch unit {
			case 'Y', 'y':
				d.Years = n
			case 'M', 'm':
				d.Months = n
			case 'W', 'w':
				d.Weeks = n
			case 'D', 'd':
				d.Days = n
			default:
				return d, fmt.Errorf("invalid ISO duration %q: unknown date unit %q (hours, minutes and seconds go after 'T')", s, string(unit))
			}
		}
	}

	if !seen {
		return d, fmt.Errorf("invalid ISO duration %q: no components", s)
	}
	return d, nil
}

// IsZero reports whether every component is zero.
func (d Duration) IsZero() bool {
	return d == Duration{}
}

// AddTo adds the duration to t, calendar components first.
func (d Duration) AddTo(t time.Time) time.Time {
	if d.Years != 0 {
		t = grain.Add(t, d.Years, grain.Year)
	}
	if d.Months != 0 {
		t = grain.Add(t, d.Months, grain.Month)
	}
	if days := d.Days + 7*d.Weeks; days != 0 {
		t = t.AddDate(0, 0, days)
	}
	return t.Add(d.timePart())
}

// SubFrom subtracts the duration from t.
func (d Duration) SubFrom(t time.Time) time.Time {
	if d.Years != 0 {
		t = grain.Add(t, -d.Years, grain.Year)
	}
	if d.Months != 0 {
		t = grain.Add(t, -d.Months, grain.Month)
	}
	if days := d.Days + 7*d.Weeks; days != 0 {
		t = t.AddDate(0, 0, -days)
	}
	return t.Add(-d.timePart())
}

func (d Duration) timePart() time.Duration {
	return time.Duration(d.Hours)*time.Hour +
		time.Duration(d.Minutes)*time.Minute +
		time.Duration(d.Seconds)*time.Second
}

// Grain returns the finest unit with a non-zero component.
func (d Duration) Grain() grain.Grain {
	switch {
	case d.Seconds != 0:
		return grain.Second
	case d.Minutes != 0:
		return grain.Minute
	case d.Hours != 0:
		return grain.Hour
	case d.Days != 0:
		return grain.Day
	case d.Weeks != 0:
		return grain.Week
	case d.Months != 0:
		return grain.Month
	case d.Years != 0:
		return grain.Year
	}
	return grain.Unspecified
}

// String renders the canonical ISO form. The zero duration is PT0S.
func (d Duration) String() string {
	if d.IsZero() {
		return "PT0S"
	}

	var sb strings.Builder
	sb.WriteByte('P')
	if d.Years != 0 {
		fmt.Fprintf(&sb, "%dY", d.Years)
	}
	if d.Months != 0 {
		fmt.Fprintf(&sb, "%dM", d.Months)
	}
	if d.Weeks != 0 {
		fmt.Fprintf(&sb, "%dW", d.Weeks)
	}
	if d.Days != 0 {
		fmt.Fprintf(&sb, "%dD", d.Days)
	}
	if d.Hours != 0 || d.Minutes != 0 || d.Seconds != 0 {
		sb.WriteByte('T')
		if d.Hours != 0 {
			fmt.Fprintf(&sb, "%dH", d.Hours)
		}
		if d.Minutes != 0 {
			fmt.Fprintf(&sb, "%dM", d.Minutes)
		}
		if d.Seconds != 0 {
			fmt.Fprintf(&sb, "%dS", d.Seconds)
		}
	}
	return sb.String()
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	parsed, err := ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
