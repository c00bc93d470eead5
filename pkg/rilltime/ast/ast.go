// Package ast defines the abstract syntax tree for Rill Time expressions.
//
// Nodes are immutable after parsing: the evaluator never mutates them, so a
// parsed expression can be cached and resolved against many contexts. Each
// node's String() renders canonical expression text, which makes formatting
// a pure function of the tree.
package ast

import (
	"bytes"
	"fmt"

	"github.com/rilldata/gorill/pkg/rilltime/grain"
	"github.com/rilldata/gorill/pkg/rilltime/lexer"
)

// Node represents any node in the AST
type Node interface {
	TokenLiteral() string
	String() string
}

// Expression represents expression nodes
type Expression interface {
	Node
	expressionNode()
}

// Anchor references a named instant supplied by the evaluation context:
// now, watermark, latest, or ref (the anchor currently in scope). Names
// are not validated at parse time; an unknown name fails at evaluation.
type Anchor struct {
	Token lexer.Token // the lexer.IDENT token
	Name  string
}

func (a *Anchor) expressionNode()      {}
func (a *Anchor) TokenLiteral() string { return a.Token.Literal }
func (a *Anchor) String() string       { return a.Name }

// IsoPrecision is the precision of an ISO literal.
type IsoPrecision int

const (
	PrecisionYear IsoPrecision = iota
	PrecisionMonth
	PrecisionDay
	PrecisionInstant
)

// IsoLiteral is a timestamp written at year, month, day, or instant
// precision. Calendar precisions denote the whole period and resolve in
// the context's timezone; instants carry a Z suffix and are absolute.
type IsoLiteral struct {
	Token     lexer.Token // the lexer.ISO token
	Precision IsoPrecision
	Year      int
	Month     int // 1-12, 1 below month precision
	Day       int // 1 below day precision
	Hour      int
	Minute    int
	Second    int
}

func (il *IsoLiteral) expressionNode()      {}
func (il *IsoLiteral) TokenLiteral() string { return il.Token.Literal }
func (il *IsoLiteral) String() string {
	switch il.Precision {
	case PrecisionYear:
		return fmt.Sprintf("%04d", il.Year)
	case PrecisionMonth:
		return fmt.Sprintf("%04d-%02d", il.Year, il.Month)
	case PrecisionDay:
		return fmt.Sprintf("%04d-%02d-%02d", il.Year, il.Month, il.Day)
	default:
		return fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:%02dZ",
			il.Year, il.Month, il.Day, il.Hour, il.Minute, il.Second)
	}
}

// Grain returns the grain implied by the literal's precision. Full
// instants imply none.
func (il *IsoLiteral) Grain() grain.Grain {
	switch il.Precision {
	case PrecisionYear:
		return grain.Year
	case PrecisionMonth:
		return grain.Month
	case PrecisionDay:
		return grain.Day
	default:
		return grain.Unspecified
	}
}

// Interval is a bare duration used as a whole expression: 2D means the
// last 2 complete days before the anchor. The sign is kept as written;
// evaluation uses the magnitude.
type Interval struct {
	Token  lexer.Token // the lexer.DURATION token
	Amount int
	Unit   grain.Grain
}

func (iv *Interval) expressionNode()      {}
func (iv *Interval) TokenLiteral() string { return iv.Token.Literal }
func (iv *Interval) String() string {
	return fmt.Sprintf("%d%s", iv.Amount, iv.Unit.Letter())
}

// Truncate floors its base to the start of the enclosing Unit period:
// watermark/D is the start of the watermark's day.
type Truncate struct {
	Token lexer.Token // the '/' token
	Base  Expression
	Unit  grain.Grain
}

func (tr *Truncate) expressionNode()      {}
func (tr *Truncate) TokenLiteral() string { return tr.Token.Literal }
func (tr *Truncate) String() string {
	var out bytes.Buffer

	out.WriteString(tr.Base.String())
	out.WriteString("/")
	out.WriteString(tr.Unit.Letter())

	return out.String()
}

// Offset shifts its base by a signed number of units. A nil Base means
// the anchor in scope: a leading -2D offsets the anchor itself.
type Offset struct {
	Token  lexer.Token // the operator or duration token
	Base   Expression  // nil when offsetting the anchor in scope
	Amount int
	Unit   grain.Grain
}

func (of *Offset) expressionNode()      {}
func (of *Offset) TokenLiteral() string { return of.Token.Literal }
func (of *Offset) String() string {
	var out bytes.Buffer

	if of.Base != nil {
		out.WriteString(of.Base.String())
		if of.Amount >= 0 {
			out.WriteString("+")
		}
	}
	out.WriteString(fmt.Sprintf("%d%s", of.Amount, of.Unit.Letter()))

	return out.String()
}

// Ordinal selects the Nth Unit period inside the enclosing parent period:
// W2 is the second week of the month containing the anchor.
type Ordinal struct {
	Token lexer.Token // the lexer.ORDINAL token
	Unit  grain.Grain
	N     int
}

func (o *Ordinal) expressionNode()      {}
func (o *Ordinal) TokenLiteral() string { return o.Token.Literal }
func (o *Ordinal) String() string {
	return fmt.Sprintf("%s%d", o.Unit.Letter(), o.N)
}

// ToDate is a period-to-date window: MTD, QTD, or YTD. It spans from the
// start of the anchor's Unit period up to the anchor itself.
type ToDate struct {
	Token lexer.Token // the lexer.IDENT token
	Unit  grain.Grain
}

func (td *ToDate) expressionNode()      {}
func (td *ToDate) TokenLiteral() string { return td.Token.Literal }
func (td *ToDate) String() string {
	return td.Unit.Letter() + "TD"
}

// Range spans from one term to another: start to end.
type Range struct {
	Token lexer.Token // the 'to' token
	Start Expression
	End   Expression
}

func (r *Range) expressionNode()      {}
func (r *Range) TokenLiteral() string { return r.Token.Literal }
func (r *Range) String() string {
	var out bytes.Buffer

	out.WriteString(r.Start.String())
	out.WriteString(" to ")
	out.WriteString(r.End.String())

	return out.String()
}

// Rebase evaluates Inner with the anchor produced by Anchor: the as of
// clause. Chains nest to the right, so a as of b as of c rebases b onto
// c first, then a onto the result.
type Rebase struct {
	Token  lexer.Token // the 'as' token
	Inner  Expression
	Anchor Expression
}

func (rb *Rebase) expressionNode()      {}
func (rb *Rebase) TokenLiteral() string { return rb.Token.Literal }
func (rb *Rebase) String() string {
	var out bytes.Buffer

	out.WriteString(rb.Inner.String())
	out.WriteString(" as of ")
	out.WriteString(rb.Anchor.String())

	return out.String()
}
