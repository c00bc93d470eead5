package rilltime

import (
	"errors"
	"testing"
	"time"

	"github.com/rilldata/gorill/pkg/rilltime/grain"
)

func TestEval(t *testing.T) {
	watermark := time.Date(2025, time.March, 10, 15, 0, 0, 0, time.UTC)
	ctx := NewContext(time.Date(2025, time.March, 20, 10, 30, 0, 0, time.UTC)).
		WithWatermark(watermark)

	got, err := Eval("1D as of watermark/D", ctx)
	if err != nil {
		t.Fatalf("Eval failed: %s", err)
	}

	wantStart := time.Date(2025, time.March, 9, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	if !got.Start.Equal(wantStart) || !got.End.Equal(wantEnd) {
		t.Fatalf("range wrong. expected=[%s, %s), got=%s",
			wantStart.Format(time.RFC3339), wantEnd.Format(time.RFC3339), got)
	}
	if got.Grain != grain.Day {
		t.Fatalf("grain wrong. expected=%s, got=%s", grain.Day, got.Grain)
	}
}

func TestParseOnceResolveMany(t *testing.T) {
	expr, err := Parse("1h as of now/h")
	if err != nil {
		t.Fatalf("Parse failed: %s", err)
	}

	tests := []struct {
		now       string
		wantStart string
	}{
		{"2025-03-10T15:42:10Z", "2025-03-10T14:00:00Z"},
		{"2025-06-01T00:10:00Z", "2025-05-31T23:00:00Z"},
	}

	for i, tt := range tests {
		now, err := time.Parse(time.RFC3339, tt.now)
		if err != nil {
			t.Fatalf("tests[%d] - bad time literal: %s", i, err)
		}
		got, err := Resolve(expr, NewContext(now))
		if err != nil {
			t.Fatalf("tests[%d] - Resolve failed: %s", i, err)
		}
		want, _ := time.Parse(time.RFC3339, tt.wantStart)
		if !got.Start.Equal(want) {
			t.Fatalf("tests[%d] - start wrong. expected=%s, got=%s",
				i, tt.wantStart, got.Start.Format(time.RFC3339))
		}
	}
}

func TestErrorClasses(t *testing.T) {
	ctx := NewContext(time.Date(2025, time.March, 20, 0, 0, 0, 0, time.UTC))

	_, err := Eval("1D as", ctx)
	var rtErr *Error
	if !errors.As(err, &rtErr) {
		t.Fatalf("syntax failure should be a structured error. got=%T", err)
	}
	if !rtErr.IsSyntaxError() {
		t.Fatalf("expected a syntax class error. got=%s", rtErr.Class)
	}

	_, err = Eval("1D as of watermark/D", ctx)
	if !errors.As(err, &rtErr) {
		t.Fatalf("eval failure should be a structured error. got=%T", err)
	}
	if !rtErr.IsEvalError() {
		t.Fatalf("expected an eval class error. got=%s", rtErr.Class)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"-2D/D to -2D/D+2h as of watermark/D", false},
		{"W2 as of -1M as of latest/M", false},
		{"2025-02", false},
		{"1F", true},
		{"to 2025", true},
		{"", true},
	}

	for i, tt := range tests {
		err := Validate(tt.input)
		if tt.wantErr && err == nil {
			t.Fatalf("tests[%d] - Validate(%q) should have failed", i, tt.input)
		}
		if !tt.wantErr && err != nil {
			t.Fatalf("tests[%d] - Validate(%q) failed: %s", i, tt.input, err)
		}
	}
}

func TestMustParsePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("MustParse should panic on malformed input")
		}
	}()
	MustParse("1D as of")
}
