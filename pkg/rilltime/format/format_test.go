package format

import (
	"testing"
	"time"

	"github.com/rilldata/gorill/pkg/rilltime/evaluator"
	"github.com/rilldata/gorill/pkg/rilltime/grain"
	"github.com/rilldata/gorill/pkg/rilltime/lexer"
	"github.com/rilldata/gorill/pkg/rilltime/parser"
)

func parse(t *testing.T, input string) *parser.Parser {
	t.Helper()
	return parser.New(lexer.New(input))
}

func TestCanonicalIsFixedPoint(t *testing.T) {
	inputs := []string{
		"1h as of watermark/h",
		"-2D/D to -2D/D+2h as of watermark/D",
		"W2 as of -1M as of latest/M",
		"MTD as of watermark/M+1M",
		"2025-02-20T12:00:00Z to 2025-02-21T12:00:00Z",
		"2025-02",
	}

	for i, input := range inputs {
		p := parse(t, input)
		expr := p.ParseExpression()
		if len(p.Errors()) != 0 {
			t.Fatalf("tests[%d] - parse error for %q: %s", i, input, p.Errors()[0])
		}
		first := Canonical(expr)

		p = parse(t, first)
		reparsed := p.ParseExpression()
		if len(p.Errors()) != 0 {
			t.Fatalf("tests[%d] - canonical text %q does not parse: %s", i, first, p.Errors()[0])
		}
		if second := Canonical(reparsed); second != first {
			t.Errorf("tests[%d] - canonical text not stable. first=%q, second=%q", i, first, second)
		}
	}
}

func day(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("bad time literal %q: %s", value, err)
	}
	return ts
}

func TestRange(t *testing.T) {
	tests := []struct {
		start string
		end   string
		grain grain.Grain
		opts  Options
		want  string
	}{
		{"2025-02-01T00:00:00Z", "2025-03-01T00:00:00Z", grain.Month, Options{}, "Feb 2025"},
		{"2025-02-01T00:00:00Z", "2025-03-01T00:00:00Z", grain.Month, Options{Style: StyleLong}, "February 2025"},
		{"2025-01-01T00:00:00Z", "2026-01-01T00:00:00Z", grain.Year, Options{}, "2025"},
		{"2024-10-01T00:00:00Z", "2025-01-01T00:00:00Z", grain.Quarter, Options{}, "Q4 2024"},
		{"2025-03-09T00:00:00Z", "2025-03-10T00:00:00Z", grain.Day, Options{}, "Mar 9, 2025"},
		{"2025-03-08T00:00:00Z", "2025-03-10T00:00:00Z", grain.Day, Options{}, "Mar 8, 2025 to Mar 9, 2025"},
		{"2025-03-10T14:00:00Z", "2025-03-10T15:00:00Z", grain.Hour, Options{}, "Mar 10, 2025 14:00 to 15:00"},
		{"2025-03-07T23:58:00Z", "2025-03-08T00:00:00Z", grain.Minute, Options{}, "Mar 7, 2025 23:58 to Mar 8, 2025 00:00"},
		{"2025-03-09T00:00:00Z", "2025-03-10T00:00:00Z", grain.Day, Options{Style: StyleShort}, "3/9/25"},
		{"2025-03-09T00:00:00Z", "2025-03-10T00:00:00Z", grain.Day, Options{Style: StyleLong, Locale: "de"}, "9. März 2025"},
		{"2025-03-09T00:00:00Z", "2025-03-10T00:00:00Z", grain.Day, Options{Locale: "ja"}, "2025年3月9日"},
		// Well-formed but unsupported locales fall back to en-US.
		{"2025-03-09T00:00:00Z", "2025-03-10T00:00:00Z", grain.Day, Options{Locale: "xh"}, "Mar 9, 2025"},
	}

	for i, tt := range tests {
		r := evaluator.TimeRange{Start: day(t, tt.start), End: day(t, tt.end), Grain: tt.grain}
		got, err := Range(r, tt.opts)
		if err != nil {
			t.Fatalf("tests[%d] - Range failed: %s", i, err)
		}
		if got != tt.want {
			t.Errorf("tests[%d] - wrong rendering. expected=%q, got=%q", i, tt.want, got)
		}
	}
}

func TestRangeCollapsesOnlyAlignedPeriods(t *testing.T) {
	// A month-grain range that does not start on a month boundary must
	// not collapse to a period name.
	r := evaluator.TimeRange{
		Start: day(t, "2025-02-15T00:00:00Z"),
		End:   day(t, "2025-03-15T00:00:00Z"),
		Grain: grain.Month,
	}
	got, err := Range(r, Options{})
	if err != nil {
		t.Fatalf("Range failed: %s", err)
	}
	if got != "Feb 15, 2025 to Mar 14, 2025" {
		t.Errorf("wrong rendering. got=%q", got)
	}
}

func TestInstant(t *testing.T) {
	tests := []struct {
		value string
		opts  Options
		want  string
	}{
		{"2025-03-09T00:00:00Z", Options{}, "Mar 9, 2025"},
		{"2025-03-09T14:30:00Z", Options{}, "Mar 9, 2025 14:30"},
		{"2025-03-09T14:30:10Z", Options{}, "Mar 9, 2025 14:30:10"},
		{"2025-03-09T00:00:00Z", Options{Style: StyleFull}, "Sunday, March 9, 2025"},
	}

	for i, tt := range tests {
		got, err := Instant(day(t, tt.value), tt.opts)
		if err != nil {
			t.Fatalf("tests[%d] - Instant failed: %s", i, err)
		}
		if got != tt.want {
			t.Errorf("tests[%d] - wrong rendering. expected=%q, got=%q", i, tt.want, got)
		}
	}
}

func TestRangeRejectsBadOptions(t *testing.T) {
	r := evaluator.TimeRange{
		Start: day(t, "2025-03-09T00:00:00Z"),
		End:   day(t, "2025-03-10T00:00:00Z"),
		Grain: grain.Day,
	}

	if _, err := Range(r, Options{Style: "loud"}); err == nil {
		t.Errorf("expected an error for an unknown style")
	}
	if _, err := Range(r, Options{Locale: "not a locale!"}); err == nil {
		t.Errorf("expected an error for a malformed locale")
	}
}
