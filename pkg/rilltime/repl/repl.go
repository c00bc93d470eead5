package repl

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/peterh/liner"

	rterrors "github.com/rilldata/gorill/pkg/rilltime/errors"
	"github.com/rilldata/gorill/pkg/rilltime/evaluator"
	"github.com/rilldata/gorill/pkg/rilltime/format"
	"github.com/rilldata/gorill/pkg/rilltime/grain"
	"github.com/rilldata/gorill/pkg/rilltime/rilltime"
)

const PROMPT = ">> "
const PROMPT_JSON = ":> "

const RILLTIME_LOGO = `
█▀█ █ █░░ █░░ ▀█▀ █ █▀▄▀█ █▀▀
█▀▄ █ █▄▄ █▄▄ ░█░ █ █░▀░█ ██▄ `

// Expression keywords, anchors and session commands for tab completion
var completionWords = []string{
	// Keywords
	"as", "of", "to",
	// Anchors
	"now", "watermark", "latest", "ref",
	// Session commands
	":help", ":context", ":now", ":watermark", ":latest",
	":tz", ":weekstart", ":locale", ":style", ":json",
}

// Options configures a session's starting context and presentation.
type Options struct {
	Now         time.Time // zero follows the wall clock at each evaluation
	Watermark   *time.Time
	Latest      *time.Time
	Location    *time.Location
	WeekStart   time.Weekday
	Locale      string
	Style       format.Style
	HistoryFile string // empty picks a file under the OS temp dir
}

// DefaultOptions returns a session anchored at the wall clock, in UTC,
// with weeks starting Monday.
func DefaultOptions() Options {
	return Options{
		Location:  time.UTC,
		WeekStart: time.Monday,
		Locale:    "en-US",
		Style:     format.StyleMedium,
	}
}

type session struct {
	nowOverride *time.Time
	watermark   *time.Time
	latest      *time.Time
	loc         *time.Location
	weekStart   time.Weekday
	locale      string
	style       format.Style
	jsonOut     bool
}

func newSession(opts Options) *session {
	s := &session{
		watermark: opts.Watermark,
		latest:    opts.Latest,
		loc:       opts.Location,
		weekStart: opts.WeekStart,
		locale:    opts.Locale,
		style:     opts.Style,
	}
	if !opts.Now.IsZero() {
		now := opts.Now
		s.nowOverride = &now
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.locale == "" {
		s.locale = "en-US"
	}
	if s.style == "" {
		s.style = format.StyleMedium
	}
	return s
}

// context assembles the evaluation context for one expression. Unless
// pinned with :now, each evaluation reads the wall clock fresh.
func (s *session) context() evaluator.TimeContext {
	now := time.Now()
	if s.nowOverride != nil {
		now = *s.nowOverride
	}
	ctx := evaluator.NewContext(now).WithLocation(s.loc).WithWeekStart(s.weekStart)
	if s.watermark != nil {
		ctx = ctx.WithWatermark(*s.watermark)
	}
	if s.latest != nil {
		ctx = ctx.WithLatest(*s.latest)
	}
	return ctx
}

// Start runs the interactive session with line editing, history, and tab
// completion until 'exit' or Ctrl+D.
func Start(out io.Writer, version string, opts Options) {
	line := liner.NewLiner()
	defer line.Close()

	// Enable Ctrl+C to abort the current line
	line.SetCtrlCAborts(true)

	line.SetCompleter(func(line string) []string {
		return filterCompletions(line)
	})

	// Load command history from file
	historyFile := opts.HistoryFile
	if historyFile == "" {
		historyFile = filepath.Join(os.TempDir(), ".rilltime_history")
	}
	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}

	// Save history on exit
	defer func() {
		if f, err := os.Create(historyFile); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	s := newSession(opts)

	fmt.Fprintf(out, "%s", RILLTIME_LOGO)
	fmt.Fprintln(out, "v", version)
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Type 'exit' or Ctrl+D to quit")
	fmt.Fprintln(out, "Use Tab for completion, ↑↓ for history")
	fmt.Fprintln(out, "Type ':help' for session commands")
	fmt.Fprintln(out, "")

	for {
		prompt := PROMPT
		if s.jsonOut {
			prompt = PROMPT_JSON
		}
		input, err := line.Prompt(prompt)
		if err != nil {
			// Ctrl+D or Ctrl+C
			if err == liner.ErrPromptAborted {
				fmt.Fprintln(out, "^C")
				continue
			}
			if err == io.EOF {
				fmt.Fprintln(out, "\nGoodbye!")
				return
			}
			fmt.Fprintf(out, "Error reading input: %v\n", err)
			continue
		}

		trimmed := strings.TrimSpace(input)
		if trimmed == "" {
			continue
		}
		if trimmed == "exit" || trimmed == "quit" {
			fmt.Fprintln(out, "Goodbye!")
			return
		}

		line.AppendHistory(trimmed)

		// Session commands start with ':'
		if strings.HasPrefix(trimmed, ":") {
			s.handleCommand(trimmed, out)
			continue
		}

		s.eval(trimmed, out)
	}
}

// eval parses and resolves one expression, printing the result or a
// structured error.
func (s *session) eval(input string, out io.Writer) {
	expr, err := rilltime.Parse(input)
	if err != nil {
		printError(out, err)
		return
	}
	r, err := rilltime.Resolve(expr, s.context())
	if err != nil {
		printError(out, err)
		return
	}

	if s.jsonOut {
		s.printJSON(out, r)
		return
	}

	fmt.Fprintln(out, r.String())
	if pretty, err := format.Range(r, format.Options{Style: s.style, Locale: s.locale}); err == nil {
		fmt.Fprintf(out, "  %s\n", pretty)
	}
}

func (s *session) printJSON(out io.Writer, r evaluator.TimeRange) {
	payload := struct {
		Start string `json:"start"`
		End   string `json:"end"`
		Grain string `json:"grain,omitempty"`
	}{
		Start: r.Start.Format(time.RFC3339),
		End:   r.End.Format(time.RFC3339),
	}
	if r.Grain != grain.Unspecified {
		payload.Grain = r.Grain.String()
	}
	b, err := json.Marshal(payload)
	if err != nil {
		fmt.Fprintf(out, "Error encoding result: %v\n", err)
		return
	}
	fmt.Fprintln(out, string(b))
}

// handleCommand handles session meta-commands that start with ':'.
// Commands with an argument set a context field; most show the current
// value when the argument is omitted.
func (s *session) handleCommand(input string, out io.Writer) {
	cmd, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case ":help", ":h", ":?":
		fmt.Fprintln(out, "Session commands:")
		fmt.Fprintln(out, "  :help, :h, :?      Show this help")
		fmt.Fprintln(out, "  :context, :ctx     Show the evaluation context")
		fmt.Fprintln(out, "  :now [time]        Pin 'now' (no argument follows the wall clock)")
		fmt.Fprintln(out, "  :watermark [time]  Set the watermark anchor (no argument clears it)")
		fmt.Fprintln(out, "  :latest [time]     Set the latest anchor (no argument clears it)")
		fmt.Fprintln(out, "  :tz [zone]         Set the timezone, e.g. America/New_York")
		fmt.Fprintln(out, "  :weekstart [day]   Set the first day of the week")
		fmt.Fprintln(out, "  :locale [code]     Set the display locale, e.g. de-DE")
		fmt.Fprintln(out, "  :style [style]     Set the display style: short, medium, long, full")
		fmt.Fprintln(out, "  :json              Toggle JSON output")
		fmt.Fprintln(out, "  exit, quit         Exit")
		fmt.Fprintln(out, "")
		fmt.Fprintln(out, "Anything else is evaluated as a time expression:")
		fmt.Fprintln(out, "  >> -7D to now")
		fmt.Fprintln(out, "  >> MTD as of watermark/D")

	case ":context", ":ctx":
		s.printContext(out)

	case ":now":
		if arg == "" {
			s.nowOverride = nil
			fmt.Fprintln(out, "now follows the wall clock")
			return
		}
		t, err := s.parseInstant(arg)
		if err != nil {
			fmt.Fprintf(out, "Cannot parse %q as a time\n", arg)
			return
		}
		s.nowOverride = &t
		fmt.Fprintf(out, "now = %s\n", t.Format(time.RFC3339))

	case ":watermark", ":wm":
		if arg == "" {
			s.watermark = nil
			fmt.Fprintln(out, "watermark cleared")
			return
		}
		t, err := s.parseInstant(arg)
		if err != nil {
			fmt.Fprintf(out, "Cannot parse %q as a time\n", arg)
			return
		}
		s.watermark = &t
		fmt.Fprintf(out, "watermark = %s\n", t.Format(time.RFC3339))

	case ":latest":
		if arg == "" {
			s.latest = nil
			fmt.Fprintln(out, "latest cleared")
			return
		}
		t, err := s.parseInstant(arg)
		if err != nil {
			fmt.Fprintf(out, "Cannot parse %q as a time\n", arg)
			return
		}
		s.latest = &t
		fmt.Fprintf(out, "latest = %s\n", t.Format(time.RFC3339))

	case ":tz":
		if arg == "" {
			fmt.Fprintf(out, "timezone = %s\n", s.loc.String())
			return
		}
		loc, err := time.LoadLocation(arg)
		if err != nil {
			fmt.Fprintf(out, "Unknown timezone %q\n", arg)
			return
		}
		s.loc = loc
		fmt.Fprintf(out, "timezone = %s\n", loc.String())

	case ":weekstart":
		if arg == "" {
			fmt.Fprintf(out, "weekstart = %s\n", strings.ToLower(s.weekStart.String()))
			return
		}
		day, ok := parseWeekday(arg)
		if !ok {
			fmt.Fprintf(out, "Unknown weekday %q\n", arg)
			return
		}
		s.weekStart = day
		fmt.Fprintf(out, "weekstart = %s\n", strings.ToLower(day.String()))

	case ":locale":
		if arg == "" {
			fmt.Fprintf(out, "locale = %s\n", s.locale)
			return
		}
		// Probe the formatter so bad codes are rejected here, not on
		// every later expression.
		if _, err := format.Instant(time.Now(), format.Options{Style: s.style, Locale: arg}); err != nil {
			fmt.Fprintf(out, "%v\n", err)
			return
		}
		s.locale = arg
		fmt.Fprintf(out, "locale = %s\n", arg)

	case ":style":
		if arg == "" {
			fmt.Fprintf(out, "style = %s\n", s.style)
			return
		}
		st, ok := format.ParseStyle(arg)
		if !ok {
			fmt.Fprintf(out, "Unknown style %q (valid styles: short, medium, long, full)\n", arg)
			return
		}
		s.style = st
		fmt.Fprintf(out, "style = %s\n", st)

	case ":json":
		s.jsonOut = !s.jsonOut
		if s.jsonOut {
			fmt.Fprintln(out, "JSON output ON")
		} else {
			fmt.Fprintln(out, "JSON output OFF")
		}

	default:
		fmt.Fprintf(out, "Unknown command: %s (type :help for commands)\n", cmd)
	}
}

// printContext displays the session's evaluation context
func (s *session) printContext(out io.Writer) {
	now := "wall clock"
	if s.nowOverride != nil {
		now = s.nowOverride.Format(time.RFC3339)
	}
	fmt.Fprintf(out, "  now:       %s\n", now)
	fmt.Fprintf(out, "  watermark: %s\n", optInstant(s.watermark))
	fmt.Fprintf(out, "  latest:    %s\n", optInstant(s.latest))
	fmt.Fprintf(out, "  timezone:  %s\n", s.loc.String())
	fmt.Fprintf(out, "  weekstart: %s\n", strings.ToLower(s.weekStart.String()))
	fmt.Fprintf(out, "  locale:    %s\n", s.locale)
	fmt.Fprintf(out, "  style:     %s\n", s.style)
}

func optInstant(t *time.Time) string {
	if t == nil {
		return "(not set)"
	}
	return t.Format(time.RFC3339)
}

// parseInstant reads a flexible instant, interpreting zoneless forms in
// the session timezone.
func (s *session) parseInstant(input string) (time.Time, error) {
	return dateparse.ParseIn(input, s.loc)
}

func parseWeekday(name string) (time.Weekday, bool) {
	switch strings.ToLower(name) {
	case "sunday", "sun":
		return time.Sunday, true
	case "monday", "mon":
		return time.Monday, true
	case "tuesday", "tue":
		return time.Tuesday, true
	case "wednesday", "wed":
		return time.Wednesday, true
	case "thursday", "thu":
		return time.Thursday, true
	case "friday", "fri":
		return time.Friday, true
	case "saturday", "sat":
		return time.Saturday, true
	}
	return time.Sunday, false
}

// filterCompletions returns completion suggestions based on current input
func filterCompletions(line string) []string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return nil
	}

	// Don't complete if line ends with whitespace (including tabs from pasting)
	if line[len(line)-1] == ' ' || line[len(line)-1] == '\t' {
		return nil
	}

	words := strings.Fields(line)
	if len(words) == 0 {
		return nil
	}
	lastWord := words[len(words)-1]

	var matches []string
	for _, word := range completionWords {
		if strings.HasPrefix(word, lastWord) {
			matches = append(matches, word)
		}
	}
	return matches
}

// printError prints a parse or evaluation error with source position and
// hints when available.
func printError(out io.Writer, err error) {
	var rtErr *rterrors.RillTimeError
	if errors.As(err, &rtErr) {
		io.WriteString(out, rtErr.PrettyString())
		io.WriteString(out, "\n")
		return
	}
	fmt.Fprintf(out, "Error: %v\n", err)
}
