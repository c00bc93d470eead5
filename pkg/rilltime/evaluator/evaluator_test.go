package evaluator

import (
	"strings"
	"testing"
	"time"

	"github.com/rilldata/gorill/pkg/rilltime/ast"
	rterrors "github.com/rilldata/gorill/pkg/rilltime/errors"
	"github.com/rilldata/gorill/pkg/rilltime/grain"
	"github.com/rilldata/gorill/pkg/rilltime/lexer"
	"github.com/rilldata/gorill/pkg/rilltime/parser"
)

func parse(t *testing.T, input string) ast.Expression {
	t.Helper()

	p := parser.New(lexer.New(input))
	expr := p.ParseExpression()
	if errs := p.Errors(); len(errs) != 0 {
		t.Fatalf("parse error for %q: %s", input, errs[0])
	}
	return expr
}

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()

	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("bad time literal %q: %s", value, err)
	}
	return ts
}

// testContext is the shared fixture: a Thursday now, a Monday watermark
// and a Saturday latest, all in March 2025 UTC.
func testContext(t *testing.T) TimeContext {
	t.Helper()

	watermark := mustTime(t, "2025-03-10T15:00:00Z")
	latest := mustTime(t, "2025-03-15T18:30:00Z")
	return NewContext(mustTime(t, "2025-03-20T10:30:00Z")).
		WithWatermark(watermark).
		WithLatest(latest)
}

func TestResolve(t *testing.T) {
	tests := []struct {
		input     string
		wantStart string
		wantEnd   string
		wantGrain grain.Grain
	}{
		{"1D as of watermark/D", "2025-03-09T00:00:00Z", "2025-03-10T00:00:00Z", grain.Day},
		{"2D as of watermark/D", "2025-03-08T00:00:00Z", "2025-03-10T00:00:00Z", grain.Day},
		{"2W as of watermark/W", "2025-02-24T00:00:00Z", "2025-03-10T00:00:00Z", grain.Week},
		{"1M as of watermark/M", "2025-02-01T00:00:00Z", "2025-03-01T00:00:00Z", grain.Month},
		{"1Q as of watermark/Q", "2024-10-01T00:00:00Z", "2025-01-01T00:00:00Z", grain.Quarter},
		{"1h as of watermark/h", "2025-03-10T14:00:00Z", "2025-03-10T15:00:00Z", grain.Hour},
		{"MTD as of watermark", "2025-03-01T00:00:00Z", "2025-03-10T15:00:00Z", grain.Unspecified},
		{"MTD as of watermark/M+1M", "2025-03-01T00:00:00Z", "2025-04-01T00:00:00Z", grain.Unspecified},
		{"QTD as of latest", "2025-01-01T00:00:00Z", "2025-03-15T18:30:00Z", grain.Unspecified},
		{"YTD as of watermark", "2025-01-01T00:00:00Z", "2025-03-10T15:00:00Z", grain.Unspecified},
		{"-2D/D-2m to -2D/D as of watermark/D", "2025-03-07T23:58:00Z", "2025-03-08T00:00:00Z", grain.Minute},
		{"-2D/D to -2D/D+2h as of watermark/D", "2025-03-08T00:00:00Z", "2025-03-08T02:00:00Z", grain.Hour},
		{"-2D to ref as of latest/D", "2025-03-13T00:00:00Z", "2025-03-15T00:00:00Z", grain.Day},
		{"D2 as of -2W/W as of watermark/W", "2025-02-25T00:00:00Z", "2025-02-26T00:00:00Z", grain.Day},
		{"W2 as of -1M as of latest/M", "2025-02-08T00:00:00Z", "2025-02-15T00:00:00Z", grain.Week},
		{"W1", "2025-03-01T00:00:00Z", "2025-03-08T00:00:00Z", grain.Week},
		{"W1 as of -2M", "2025-01-01T00:00:00Z", "2025-01-08T00:00:00Z", grain.Week},
		{"W1 as of 2024-07-01T00:00:00Z", "2024-07-01T00:00:00Z", "2024-07-08T00:00:00Z", grain.Week},
		{"W1 as of 2025-05-01T00:00:00Z", "2025-05-01T00:00:00Z", "2025-05-08T00:00:00Z", grain.Week},
		{"W5 as of 2025-05-10T00:00:00Z", "2025-05-29T00:00:00Z", "2025-06-05T00:00:00Z", grain.Week},
		{"2025-02-20T12:00:00Z to 2025-02-21T12:00:00Z", "2025-02-20T12:00:00Z", "2025-02-21T12:00:00Z", grain.Unspecified},
		{"2025-02-20", "2025-02-20T00:00:00Z", "2025-02-21T00:00:00Z", grain.Day},
		{"2025-02", "2025-02-01T00:00:00Z", "2025-03-01T00:00:00Z", grain.Month},
		{"2025", "2025-01-01T00:00:00Z", "2026-01-01T00:00:00Z", grain.Year},
		{"2025-02 to 2025-04", "2025-02-01T00:00:00Z", "2025-05-01T00:00:00Z", grain.Month},
		{"now/W", "2025-03-17T00:00:00Z", "2025-03-24T00:00:00Z", grain.Week},
		{"watermark/Q-1h", "2024-12-31T23:00:00Z", "2024-12-31T23:00:00Z", grain.Hour},
	}

	ctx := testContext(t)
	for i, tt := range tests {
		got, err := Resolve(parse(t, tt.input), ctx)
		if err != nil {
			t.Fatalf("tests[%d] - Resolve(%q) failed: %s", i, tt.input, err)
		}

		if !got.Start.Equal(mustTime(t, tt.wantStart)) {
			t.Fatalf("tests[%d] - %q start wrong. expected=%s, got=%s",
				i, tt.input, tt.wantStart, got.Start.Format(time.RFC3339))
		}
		if !got.End.Equal(mustTime(t, tt.wantEnd)) {
			t.Fatalf("tests[%d] - %q end wrong. expected=%s, got=%s",
				i, tt.input, tt.wantEnd, got.End.Format(time.RFC3339))
		}
		if got.Grain != tt.wantGrain {
			t.Fatalf("tests[%d] - %q grain wrong. expected=%s, got=%s",
				i, tt.input, tt.wantGrain, got.Grain)
		}
	}
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		input    string
		wantCode string
	}{
		{"1D as of watermark/D", "EVAL-0002"},
		{"1h as of latest/h", "EVAL-0002"},
		{"1h as of watermrk", "EVAL-0001"},
		{"W9 as of now/M", "EVAL-0003"},
		{"W0 as of now/M", "EVAL-0003"},
		{"2026 to 2024", "EVAL-0004"},
		{"2025-02-21T12:00:00Z to 2025-02-20T12:00:00Z", "EVAL-0004"},
	}

	// No watermark or latest on purpose.
	ctx := NewContext(mustTime(t, "2025-03-20T10:30:00Z"))
	for i, tt := range tests {
		_, err := Resolve(parse(t, tt.input), ctx)
		if err == nil {
			t.Fatalf("tests[%d] - Resolve(%q) should have failed", i, tt.input)
		}

		rtErr, ok := err.(*rterrors.RillTimeError)
		if !ok {
			t.Fatalf("tests[%d] - error is not a RillTimeError. got=%T", i, err)
		}
		if rtErr.Code != tt.wantCode {
			t.Fatalf("tests[%d] - %q code wrong. expected=%s, got=%s",
				i, tt.input, tt.wantCode, rtErr.Code)
		}
		if !rtErr.IsEvalError() {
			t.Fatalf("tests[%d] - %q class wrong. expected=%s, got=%s",
				i, tt.input, rterrors.ClassEval, rtErr.Class)
		}
	}
}

func TestResolveUnknownAnchorHint(t *testing.T) {
	ctx := testContext(t)
	_, err := Resolve(parse(t, "1h as of watermrk"), ctx)
	if err == nil {
		t.Fatalf("expected an unknown anchor error")
	}

	rtErr, ok := err.(*rterrors.RillTimeError)
	if !ok {
		t.Fatalf("error is not a RillTimeError. got=%T", err)
	}
	if len(rtErr.Hints) == 0 {
		t.Fatalf("expected a hint for the near-miss anchor name")
	}
	if !strings.Contains(rtErr.Hints[0], "watermark") {
		t.Fatalf("hint should suggest 'watermark'. got=%q", rtErr.Hints[0])
	}
	if rtErr.Column == 0 {
		t.Fatalf("error should carry the anchor position")
	}
}

func TestResolveMissingFieldNames(t *testing.T) {
	ctx := NewContext(mustTime(t, "2025-03-20T10:30:00Z"))

	_, err := Resolve(parse(t, "1D as of watermark/D"), ctx)
	rtErr, ok := err.(*rterrors.RillTimeError)
	if !ok {
		t.Fatalf("error is not a RillTimeError. got=%T", err)
	}
	if rtErr.Data["Field"] != "watermark" {
		t.Fatalf("missing field wrong. expected=%q, got=%v", "watermark", rtErr.Data["Field"])
	}

	_, err = Resolve(parse(t, "1M as of latest/M"), ctx)
	rtErr, ok = err.(*rterrors.RillTimeError)
	if !ok {
		t.Fatalf("error is not a RillTimeError. got=%T", err)
	}
	if rtErr.Data["Field"] != "latest" {
		t.Fatalf("missing field wrong. expected=%q, got=%v", "latest", rtErr.Data["Field"])
	}
}

func TestResolveTimezone(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("could not load location: %s", err)
	}

	// 2025-03-09 is the spring-forward day in New York; its civil day
	// spans 23 absolute hours.
	now := time.Date(2025, time.March, 9, 12, 0, 0, 0, loc)
	ctx := NewContext(now).WithLocation(loc)

	got, err := Resolve(parse(t, "now/D"), ctx)
	if err != nil {
		t.Fatalf("Resolve failed: %s", err)
	}

	wantStart := time.Date(2025, time.March, 9, 0, 0, 0, 0, loc)
	wantEnd := time.Date(2025, time.March, 10, 0, 0, 0, 0, loc)
	if !got.Start.Equal(wantStart) {
		t.Fatalf("start wrong. expected=%s, got=%s",
			wantStart.Format(time.RFC3339), got.Start.Format(time.RFC3339))
	}
	if !got.End.Equal(wantEnd) {
		t.Fatalf("end wrong. expected=%s, got=%s",
			wantEnd.Format(time.RFC3339), got.End.Format(time.RFC3339))
	}
	if got.Duration() != 23*time.Hour {
		t.Fatalf("spring-forward day length wrong. expected=23h, got=%s", got.Duration())
	}

	// The same calendar literal means a different instant per timezone.
	gotLocal, err := Resolve(parse(t, "2025-02-20"), ctx)
	if err != nil {
		t.Fatalf("Resolve failed: %s", err)
	}
	wantLocal := time.Date(2025, time.February, 20, 0, 0, 0, 0, loc)
	if !gotLocal.Start.Equal(wantLocal) {
		t.Fatalf("calendar literal start wrong. expected=%s, got=%s",
			wantLocal.Format(time.RFC3339), gotLocal.Start.Format(time.RFC3339))
	}
}

func TestResolveWeekStart(t *testing.T) {
	tests := []struct {
		weekStart time.Weekday
		wantStart string
	}{
		{time.Monday, "2025-03-17T00:00:00Z"},
		{time.Sunday, "2025-03-16T00:00:00Z"},
	}

	// A Thursday.
	now := mustTime(t, "2025-03-20T10:30:00Z")
	for i, tt := range tests {
		ctx := NewContext(now).WithWeekStart(tt.weekStart)
		got, err := Resolve(parse(t, "now/W"), ctx)
		if err != nil {
			t.Fatalf("tests[%d] - Resolve failed: %s", i, err)
		}
		if !got.Start.Equal(mustTime(t, tt.wantStart)) {
			t.Fatalf("tests[%d] - week start wrong. expected=%s, got=%s",
				i, tt.wantStart, got.Start.Format(time.RFC3339))
		}
	}
}

func TestResolveOrdinalIgnoresWeekStart(t *testing.T) {
	// Ordinal weeks count from the parent period start, not from the
	// configured week boundary. 2025-05-01 is a Thursday.
	ctx := NewContext(mustTime(t, "2025-05-10T12:00:00Z")).WithWeekStart(time.Sunday)
	got, err := Resolve(parse(t, "W1"), ctx)
	if err != nil {
		t.Fatalf("Resolve failed: %s", err)
	}
	if !got.Start.Equal(mustTime(t, "2025-05-01T00:00:00Z")) {
		t.Fatalf("W1 start wrong. expected=2025-05-01T00:00:00Z, got=%s",
			got.Start.Format(time.RFC3339))
	}
	if !got.End.Equal(mustTime(t, "2025-05-08T00:00:00Z")) {
		t.Fatalf("W1 end wrong. expected=2025-05-08T00:00:00Z, got=%s",
			got.End.Format(time.RFC3339))
	}
}

func TestResolveDeterminism(t *testing.T) {
	ctx := testContext(t)
	expr := parse(t, "-2D/D to -2D/D+2h as of watermark/D")

	first, err := Resolve(expr, ctx)
	if err != nil {
		t.Fatalf("Resolve failed: %s", err)
	}
	second, err := Resolve(expr, ctx)
	if err != nil {
		t.Fatalf("Resolve failed: %s", err)
	}
	if !first.Equal(second) {
		t.Fatalf("same expression and context gave different ranges: %s vs %s", first, second)
	}
}

func TestResolveDegeneratePoint(t *testing.T) {
	ctx := testContext(t)
	got, err := Resolve(parse(t, "ref as of watermark"), ctx)
	if err != nil {
		t.Fatalf("Resolve failed: %s", err)
	}
	if !got.IsEmpty() {
		t.Fatalf("a bare point should resolve to an empty range. got=%s", got)
	}
	if !got.Start.Equal(mustTime(t, "2025-03-10T15:00:00Z")) {
		t.Fatalf("point wrong. expected=2025-03-10T15:00:00Z, got=%s",
			got.Start.Format(time.RFC3339))
	}
}

func TestRangeContainsIsHalfOpen(t *testing.T) {
	ctx := testContext(t)
	got, err := Resolve(parse(t, "2025-02-20"), ctx)
	if err != nil {
		t.Fatalf("Resolve failed: %s", err)
	}

	if !got.Contains(got.Start) {
		t.Fatalf("range should contain its start")
	}
	if got.Contains(got.End) {
		t.Fatalf("range should not contain its end")
	}
	if !got.Contains(got.End.Add(-time.Minute)) {
		t.Fatalf("range should contain instants before its end")
	}
}

func TestResolveMonthClamping(t *testing.T) {
	// Offsetting the end of January by a month lands on the end of
	// February, not on a phantom February 31st.
	ctx := NewContext(mustTime(t, "2025-01-31T08:00:00Z"))
	got, err := Resolve(parse(t, "now/D+1M"), ctx)
	if err != nil {
		t.Fatalf("Resolve failed: %s", err)
	}
	if !got.Start.Equal(mustTime(t, "2025-02-28T00:00:00Z")) {
		t.Fatalf("clamped offset wrong. expected=2025-02-28T00:00:00Z, got=%s",
			got.Start.Format(time.RFC3339))
	}
}
