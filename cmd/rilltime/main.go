package main

import (
	"bufio"
	"encoding/json"
	goerrors "errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/rilldata/gorill/config"
	rterrors "github.com/rilldata/gorill/pkg/rilltime/errors"
	"github.com/rilldata/gorill/pkg/rilltime/evaluator"
	"github.com/rilldata/gorill/pkg/rilltime/format"
	"github.com/rilldata/gorill/pkg/rilltime/grain"
	"github.com/rilldata/gorill/pkg/rilltime/repl"
	"github.com/rilldata/gorill/pkg/rilltime/rilltime"
)

// Version is set at compile time via -ldflags
var Version = "0.2.0"

var (
	// Display flags
	helpFlag        = flag.Bool("h", false, "Show help message")
	helpLongFlag    = flag.Bool("help", false, "Show help message")
	versionFlag     = flag.Bool("V", false, "Show version information")
	versionLongFlag = flag.Bool("version", false, "Show version information")
	prettyFlag      = flag.Bool("p", false, "Human-readable localized output")
	prettyLongFlag  = flag.Bool("pretty", false, "Human-readable localized output")
	jsonFlag        = flag.Bool("json", false, "JSON output")
	styleFlag       = flag.String("style", "", "Display style: short, medium, long, full")
	localeFlag      = flag.String("locale", "", "Display locale, e.g. de-DE")

	// Evaluation flags
	evalFlag     = flag.String("e", "", "Resolve an expression")
	evalLongFlag = flag.String("eval", "", "Resolve an expression")
	checkFlag    = flag.Bool("check", false, "Check syntax without resolving")

	// Context flags
	nowFlag       = flag.String("now", "", "Evaluation time (default: wall clock)")
	watermarkFlag = flag.String("watermark", "", "Watermark anchor")
	latestFlag    = flag.String("latest", "", "Latest event time anchor")
	tzFlag        = flag.String("tz", "", "IANA timezone, e.g. America/New_York")
	weekStartFlag = flag.String("week-start", "", "First day of the week")
	configFlag    = flag.String("config", "", "Path to config file")
)

func main() {
	// Check for subcommands first (before flag parsing)
	if len(os.Args) > 1 && os.Args[1] == "fmt" {
		fmtCommand(os.Args[2:])
		return
	}

	flag.Usage = printHelp
	flag.Parse()

	if *helpFlag || *helpLongFlag {
		printHelp()
		os.Exit(0)
	}

	if *versionFlag || *versionLongFlag {
		fmt.Printf("rilltime version %s\n", Version)
		os.Exit(0)
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	// Get the expression (prefer -e over --eval if both set)
	evalExpr := *evalFlag
	if evalExpr == "" {
		evalExpr = *evalLongFlag
	}

	// Mode dispatch
	switch {
	case *checkFlag:
		exprs := flag.Args()
		if evalExpr != "" {
			exprs = append([]string{evalExpr}, exprs...)
		}
		if len(exprs) == 0 {
			fmt.Fprintln(os.Stderr, "Error: --check requires at least one expression")
			os.Exit(2)
		}
		os.Exit(checkExpressions(exprs))
	case evalExpr != "":
		os.Exit(evaluate(evalExpr, cfg))
	case len(flag.Args()) > 0:
		// Unquoted words form a single expression
		os.Exit(evaluate(strings.Join(flag.Args(), " "), cfg))
	default:
		startRepl(cfg)
	}
}

func printHelp() {
	fmt.Printf(`rilltime - Rill time expression evaluator version %s

Usage:
  rilltime [options]                Start interactive session
  rilltime [options] <expression>   Resolve an expression against a context
  rilltime --check <expression>...  Check syntax without resolving
  rilltime fmt <expression>...      Print expressions in canonical form

Commands:
  fmt                   Canonicalize expressions (reads stdin when no arguments)

Display Options:
  -h, --help            Show this help message
  -V, --version         Show version information
  -p, --pretty          Human-readable localized output
  --json                JSON output
  --style <style>       Display style: short, medium, long, full (default medium)
  --locale <code>       Display locale, e.g. de-DE (default en-US)

Context Options:
  --now <time>          Evaluation time (default: wall clock)
  --watermark <time>    Watermark anchor, e.g. 2025-03-10T15:00:00Z
  --latest <time>       Latest event time anchor
  --tz <zone>           IANA timezone, e.g. America/New_York (default UTC)
  --week-start <day>    First day of the week (default monday)

Evaluation Options:
  -e, --eval <expr>     Resolve an expression
  --check               Check syntax without resolving
  --config <path>       Path to config file (default: auto-detect)

Config Resolution:
  1. --config flag
  2. RILLTIME_CONFIG environment variable
  3. ./.rilltime.yaml
  4. ~/.config/rilltime/config.yaml

Examples:
  rilltime                                 Start interactive session
  rilltime -e "-7D to now"                 Trailing week ending at the wall clock
  rilltime "1h as of now/h"                The complete hour before this one
  rilltime -p "2025-02"                    Pretty output (outputs: Feb 2025)
  rilltime --json "1h as of now/h"         Machine-readable range
  rilltime --check "W2 as of -1M/M"        Validate without resolving
  rilltime fmt "  1h  as of now/h"         Canonical form (outputs: 1h as of now/h)
  rilltime --tz America/New_York "now/D"   The current calendar day in New York
  rilltime --watermark 2025-03-10T15:00:00Z "MTD as of watermark/D"

For more information, visit: https://github.com/rilldata/gorill
`, Version)
}

// loadConfig reads the config file, applies CLI overrides, and
// validates the merged result.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(*configFlag, os.Getenv)
	if err != nil {
		return nil, err
	}

	if *tzFlag != "" {
		cfg.Timezone = *tzFlag
	}
	if *weekStartFlag != "" {
		cfg.WeekStart = *weekStartFlag
	}
	if *localeFlag != "" {
		cfg.Locale = *localeFlag
	}
	if *jsonFlag {
		cfg.Output = "json"
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildContext assembles the evaluation context from config and flags.
func buildContext(cfg *config.Config) (evaluator.TimeContext, error) {
	loc, err := cfg.Location()
	if err != nil {
		return evaluator.TimeContext{}, err
	}
	weekStart, err := cfg.StartOfWeek()
	if err != nil {
		return evaluator.TimeContext{}, err
	}

	now := time.Now()
	if *nowFlag != "" {
		t, err := dateparse.ParseIn(*nowFlag, loc)
		if err != nil {
			return evaluator.TimeContext{}, fmt.Errorf("invalid --now %q: %w", *nowFlag, err)
		}
		now = t
	}

	ctx := evaluator.NewContext(now).WithLocation(loc).WithWeekStart(weekStart)
	if *watermarkFlag != "" {
		t, err := dateparse.ParseIn(*watermarkFlag, loc)
		if err != nil {
			return evaluator.TimeContext{}, fmt.Errorf("invalid --watermark %q: %w", *watermarkFlag, err)
		}
		ctx = ctx.WithWatermark(t)
	}
	if *latestFlag != "" {
		t, err := dateparse.ParseIn(*latestFlag, loc)
		if err != nil {
			return evaluator.TimeContext{}, fmt.Errorf("invalid --latest %q: %w", *latestFlag, err)
		}
		ctx = ctx.WithLatest(t)
	}
	return ctx, nil
}

// evaluate resolves one expression and prints the result
func evaluate(input string, cfg *config.Config) int {
	ctx, err := buildContext(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	style := format.StyleMedium
	if *styleFlag != "" {
		parsed, ok := format.ParseStyle(*styleFlag)
		if !ok {
			fmt.Fprintf(os.Stderr, "Error: unknown style %q (valid styles: short, medium, long, full)\n", *styleFlag)
			return 2
		}
		style = parsed
	}

	expr, err := rilltime.Parse(input)
	if err != nil {
		printExpressionError(input, err)
		return 1
	}

	r, err := rilltime.Resolve(expr, ctx)
	if err != nil {
		printExpressionError(input, err)
		return 1
	}

	switch {
	case cfg.Output == "json":
		b, err := json.Marshal(rangePayload(r))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding result: %v\n", err)
			return 2
		}
		fmt.Println(string(b))
	case *prettyFlag || *prettyLongFlag:
		pretty, err := format.Range(r, format.Options{Style: style, Locale: cfg.Locale})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 2
		}
		fmt.Println(pretty)
	default:
		fmt.Println(r.String())
	}
	return 0
}

// checkExpressions parses each expression without resolving it
func checkExpressions(exprs []string) int {
	hasErrors := false
	for _, input := range exprs {
		if _, err := rilltime.Parse(input); err != nil {
			printExpressionError(input, err)
			hasErrors = true
		}
	}
	if hasErrors {
		return 1
	}
	return 0
}

func startRepl(cfg *config.Config) {
	opts, err := replOptions(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	repl.Start(os.Stdout, Version, opts)
}

func replOptions(cfg *config.Config) (repl.Options, error) {
	loc, err := cfg.Location()
	if err != nil {
		return repl.Options{}, err
	}
	weekStart, err := cfg.StartOfWeek()
	if err != nil {
		return repl.Options{}, err
	}

	opts := repl.DefaultOptions()
	opts.Location = loc
	opts.WeekStart = weekStart
	opts.Locale = cfg.Locale
	opts.HistoryFile = cfg.HistoryFile

	if *styleFlag != "" {
		if st, ok := format.ParseStyle(*styleFlag); ok {
			opts.Style = st
		}
	}
	if *nowFlag != "" {
		t, err := dateparse.ParseIn(*nowFlag, loc)
		if err != nil {
			return repl.Options{}, fmt.Errorf("invalid --now %q: %w", *nowFlag, err)
		}
		opts.Now = t
	}
	if *watermarkFlag != "" {
		t, err := dateparse.ParseIn(*watermarkFlag, loc)
		if err != nil {
			return repl.Options{}, fmt.Errorf("invalid --watermark %q: %w", *watermarkFlag, err)
		}
		opts.Watermark = &t
	}
	if *latestFlag != "" {
		t, err := dateparse.ParseIn(*latestFlag, loc)
		if err != nil {
			return repl.Options{}, fmt.Errorf("invalid --latest %q: %w", *latestFlag, err)
		}
		opts.Latest = &t
	}
	return opts, nil
}

// rangePayload is the JSON shape of a resolved range.
func rangePayload(r evaluator.TimeRange) any {
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
	return payload
}

// printExpressionError prints a parse or evaluation error with the
// expression and a pointer to the error position
func printExpressionError(input string, err error) {
	var rtErr *rterrors.RillTimeError
	if !goerrors.As(err, &rtErr) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}
	fmt.Fprintln(os.Stderr, rtErr.PrettyString())
	printSourceContext(input, rtErr.Column)
}

// printSourceContext prints the expression and a caret at the error column
func printSourceContext(input string, colNum int) {
	if strings.Contains(input, "\n") {
		return
	}
	fmt.Fprintf(os.Stderr, "    %s\n", input)
	if colNum > 0 && colNum <= len(input)+1 {
		pointer := strings.Repeat(" ", colNum-1) + "^"
		fmt.Fprintf(os.Stderr, "    %s\n", pointer)
	}
}

// fmtCommand handles the 'rilltime fmt' subcommand. Expressions often
// start with '-', so arguments are taken verbatim rather than run
// through a flag parser.
func fmtCommand(args []string) {
	if len(args) == 1 && (args[0] == "-h" || args[0] == "--help") {
		fmt.Fprintf(os.Stderr, `rilltime fmt - print time expressions in canonical form

Usage:
  rilltime fmt <expression>...
  rilltime fmt < expressions.txt

With no arguments, expressions are read from stdin, one per line.

Examples:
  rilltime fmt "  1h  as of now/h"      (outputs: 1h as of now/h)
  rilltime fmt "-2D/D to -2D/D+2h"      (outputs: -2D/D to -2D/D+2h)
`)
		return
	}

	exprs := args
	if len(exprs) == 0 {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			exprs = append(exprs, scanner.Text())
		}
	}

	exitCode := 0
	for _, input := range exprs {
		trimmed := strings.TrimSpace(input)
		if trimmed == "" {
			continue
		}
		expr, err := rilltime.Parse(trimmed)
		if err != nil {
			printExpressionError(trimmed, err)
			exitCode = 1
			continue
		}
		fmt.Println(format.Canonical(expr))
	}
	os.Exit(exitCode)
}
