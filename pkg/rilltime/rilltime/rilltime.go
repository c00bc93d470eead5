// Package rilltime provides a public API for embedding the Rill Time engine.
//
// The subpackages stay importable for callers that need the raw stages,
// but most embedders only want this surface: parse an expression once,
// then resolve it against as many contexts as needed.
package rilltime

import (
	"time"

	"github.com/rilldata/gorill/pkg/rilltime/ast"
	rterrors "github.com/rilldata/gorill/pkg/rilltime/errors"
	"github.com/rilldata/gorill/pkg/rilltime/evaluator"
	"github.com/rilldata/gorill/pkg/rilltime/lexer"
	"github.com/rilldata/gorill/pkg/rilltime/parser"
)

// Context is an alias for evaluator.TimeContext for convenience.
type Context = evaluator.TimeContext

// Range is an alias for evaluator.TimeRange for convenience.
type Range = evaluator.TimeRange

// Error is an alias for the engine's structured error type. Use
// errors.As to recover it from any error this package returns.
type Error = rterrors.RillTimeError

// NewContext returns a Context anchored at now, in UTC with Monday
// week starts.
func NewContext(now time.Time) Context {
	return evaluator.NewContext(now)
}

// Parse compiles an expression to its AST. The result is immutable and
// safe to cache and resolve concurrently.
func Parse(input string) (ast.Expression, error) {
	p := parser.New(lexer.New(input))
	expr := p.ParseExpression()
	if errs := p.StructuredErrors(); len(errs) > 0 {
		return nil, errs[0]
	}
	return expr, nil
}

// MustParse is Parse for fixtures and package-level variables; it
// panics on malformed input.
func MustParse(input string) ast.Expression {
	expr, err := Parse(input)
	if err != nil {
		panic(err)
	}
	return expr
}

// Resolve evaluates a parsed expression against the context.
func Resolve(expr ast.Expression, ctx Context) (Range, error) {
	return evaluator.Resolve(expr, ctx)
}

// Eval parses and resolves in one step.
func Eval(input string, ctx Context) (Range, error) {
	expr, err := Parse(input)
	if err != nil {
		return Range{}, err
	}
	return evaluator.Resolve(expr, ctx)
}

// Validate checks an expression for syntax errors without resolving it.
func Validate(input string) error {
	_, err := Parse(input)
	return err
}
