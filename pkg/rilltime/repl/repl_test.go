package repl

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func pinnedSession() *session {
	opts := DefaultOptions()
	opts.Now = time.Date(2025, 3, 20, 10, 30, 0, 0, time.UTC)
	w := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)
	opts.Watermark = &w
	return newSession(opts)
}

func TestFilterCompletions(t *testing.T) {
	tests := []struct {
		line     string
		expected string // must appear in the matches; empty means no matches
	}{
		{"wat", "watermark"},
		{"1h as of wat", "watermark"},
		{"t", "to"},
		{":w", ":watermark"},
		{":w", ":weekstart"},
		{"", ""},
		{"now ", ""},
		{"zzz", ""},
	}

	for i, tt := range tests {
		matches := filterCompletions(tt.line)
		if tt.expected == "" {
			if len(matches) != 0 {
				t.Fatalf("tests[%d] - completions(%q) = %v. expected none", i, tt.line, matches)
			}
			continue
		}
		found := false
		for _, m := range matches {
			if m == tt.expected {
				found = true
			}
		}
		if !found {
			t.Fatalf("tests[%d] - completions(%q) = %v. expected to include %q",
				i, tt.line, matches, tt.expected)
		}
	}
}

func TestParseWeekday(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Weekday
		ok       bool
	}{
		{"sunday", time.Sunday, true},
		{"Monday", time.Monday, true},
		{"wed", time.Wednesday, true},
		{"SAT", time.Saturday, true},
		{"someday", time.Sunday, false},
		{"", time.Sunday, false},
	}

	for i, tt := range tests {
		day, ok := parseWeekday(tt.input)
		if ok != tt.ok || (ok && day != tt.expected) {
			t.Fatalf("tests[%d] - parseWeekday(%q) = %v, %v. expected=%v, %v",
				i, tt.input, day, ok, tt.expected, tt.ok)
		}
	}
}

func TestHandleCommand(t *testing.T) {
	s := pinnedSession()
	var buf bytes.Buffer

	s.handleCommand(":tz America/New_York", &buf)
	if s.loc.String() != "America/New_York" {
		t.Fatalf("timezone not set: %v", s.loc)
	}
	if !strings.Contains(buf.String(), "timezone = America/New_York") {
		t.Fatalf("output = %q", buf.String())
	}

	buf.Reset()
	s.handleCommand(":tz Mars/Olympus", &buf)
	if !strings.Contains(buf.String(), "Unknown timezone") {
		t.Fatalf("output = %q", buf.String())
	}
	if s.loc.String() != "America/New_York" {
		t.Fatalf("timezone changed on error: %v", s.loc)
	}

	buf.Reset()
	s.handleCommand(":weekstart sunday", &buf)
	if s.weekStart != time.Sunday {
		t.Fatalf("weekstart = %v", s.weekStart)
	}

	buf.Reset()
	s.handleCommand(":style long", &buf)
	if string(s.style) != "long" {
		t.Fatalf("style = %v", s.style)
	}
	s.handleCommand(":style loud", &buf)
	if string(s.style) != "long" {
		t.Fatalf("style changed on error: %v", s.style)
	}

	buf.Reset()
	s.handleCommand(":json", &buf)
	if !s.jsonOut || !strings.Contains(buf.String(), "JSON output ON") {
		t.Fatalf("json toggle failed: %v %q", s.jsonOut, buf.String())
	}
	s.handleCommand(":json", &buf)
	if s.jsonOut {
		t.Fatal("json toggle did not reset")
	}

	buf.Reset()
	s.handleCommand(":watermark 2025-04-01T00:00:00Z", &buf)
	if s.watermark == nil || !s.watermark.Equal(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("watermark = %v", s.watermark)
	}
	s.handleCommand(":watermark", &buf)
	if s.watermark != nil {
		t.Fatalf("watermark not cleared: %v", s.watermark)
	}

	buf.Reset()
	s.handleCommand(":frobnicate", &buf)
	if !strings.Contains(buf.String(), "Unknown command") {
		t.Fatalf("output = %q", buf.String())
	}
}

func TestHandleCommandShowsContext(t *testing.T) {
	s := pinnedSession()
	var buf bytes.Buffer
	s.handleCommand(":context", &buf)

	out := buf.String()
	for _, part := range []string{
		"now:       2025-03-20T10:30:00Z",
		"watermark: 2025-03-10T15:00:00Z",
		"latest:    (not set)",
		"timezone:  UTC",
		"weekstart: monday",
	} {
		if !strings.Contains(out, part) {
			t.Fatalf("context output missing %q:\n%s", part, out)
		}
	}
}

func TestSessionEval(t *testing.T) {
	s := pinnedSession()
	var buf bytes.Buffer

	s.eval("1D as of watermark/D", &buf)
	out := buf.String()
	if !strings.Contains(out, "[2025-03-09T00:00:00Z, 2025-03-10T00:00:00Z) day") {
		t.Fatalf("output = %q", out)
	}
	if !strings.Contains(out, "Mar 9, 2025") {
		t.Fatalf("formatted line missing: %q", out)
	}
}

func TestSessionEvalJSON(t *testing.T) {
	s := pinnedSession()
	s.jsonOut = true
	var buf bytes.Buffer

	s.eval("1D as of watermark/D", &buf)
	expected := `{"start":"2025-03-09T00:00:00Z","end":"2025-03-10T00:00:00Z","grain":"day"}` + "\n"
	if buf.String() != expected {
		t.Fatalf("output = %q. expected %q", buf.String(), expected)
	}
}

func TestSessionEvalErrors(t *testing.T) {
	s := pinnedSession()
	var buf bytes.Buffer

	s.eval("1D as", &buf)
	if !strings.Contains(buf.String(), "Syntax error") {
		t.Fatalf("output = %q", buf.String())
	}

	buf.Reset()
	s.eval("1D as of latest/D", &buf)
	if !strings.Contains(buf.String(), "Evaluation error") {
		t.Fatalf("output = %q", buf.String())
	}
}
