// Package parser turns Rill Time token streams into ASTs.
//
// The grammar is small and deterministic, so this is a hand-written
// recursive descent parser:
//
//	expression := range ("as" "of" anchorChain)?
//	range      := term ("to" term)?
//	anchorChain:= term ("as" "of" anchorChain)?
//	term       := atom trailer*
//	trailer    := "/" unit | "+" duration | "-" duration | signed-duration
//	atom       := anchor | to-date | ordinal | iso-literal | signed-duration
//
// "as of" binds after "to", so it rebases both endpoints of a range, and
// anchor chains nest to the right. A "to" inside an anchor chain, or a
// second "to", is a syntax error.
package parser

import (
	"strconv"
	"time"

	"github.com/rilldata/gorill/pkg/rilltime/ast"
	rterrors "github.com/rilldata/gorill/pkg/rilltime/errors"
	"github.com/rilldata/gorill/pkg/rilltime/grain"
	"github.com/rilldata/gorill/pkg/rilltime/lexer"
)

// MaxRebaseDepth caps how many "as of" clauses one expression may chain.
const MaxRebaseDepth = 8

// Parser represents the parser
type Parser struct {
	l *lexer.Lexer

	structuredErrors []*rterrors.RillTimeError

	curToken  lexer.Token
	peekToken lexer.Token

	rebases int // "as of" clauses consumed so far
}

// New creates a new parser instance
func New(l *lexer.Lexer) *Parser {
	p := &Parser{
		l: l,
	}

	// Read two tokens, so curToken and peekToken are both set
	p.nextToken()
	p.nextToken()

	return p
}

// Errors returns parser errors as strings (convenience method for tests).
// Prefer StructuredErrors() for production code.
func (p *Parser) Errors() []string {
	result := make([]string, len(p.structuredErrors))
	for i, err := range p.structuredErrors {
		result[i] = err.String()
	}
	return result
}

// StructuredErrors returns parser errors as structured RillTimeError objects.
func (p *Parser) StructuredErrors() []*rterrors.RillTimeError {
	return p.structuredErrors
}

// addError adds a structured error from the catalog.
// Only the first error is recorded - subsequent errors are usually cascading noise.
func (p *Parser) addError(code string, tok lexer.Token, data map[string]any) {
	if len(p.structuredErrors) > 0 {
		return
	}

	p.structuredErrors = append(p.structuredErrors,
		rterrors.NewWithPosition(code, tok.Line, tok.Column, data))
}

// nextToken advances curToken and peekToken
func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) curTokenIs(t lexer.TokenType) bool {
	return p.curToken.Type == t
}

// expectCur consumes the current token if it has the expected type and
// reports an error otherwise.
func (p *Parser) expectCur(t lexer.TokenType, expected string) bool {
	if !p.curTokenIs(t) {
		p.addError("SYNTAX-0002", p.curToken, map[string]any{
			"Expected": expected,
			"Got":      describeToken(p.curToken),
		})
		return false
	}
	p.nextToken()
	return true
}

// describeToken renders a token for error messages.
func describeToken(tok lexer.Token) string {
	if tok.Type == lexer.EOF {
		return "end of input"
	}
	return tok.Literal
}

// ParseExpression parses a complete expression and returns nil if any
// error was recorded.
func (p *Parser) ParseExpression() ast.Expression {
	expr := p.parseRange()
	if expr == nil {
		return nil
	}

	if p.curTokenIs(lexer.AS) {
		tok := p.curToken
		if !p.enterRebase(tok) {
			return nil
		}
		p.nextToken()
		if !p.expectCur(lexer.OF, "'of'") {
			return nil
		}
		anchor := p.parseAnchorChain()
		if anchor == nil {
			return nil
		}
		expr = &ast.Rebase{Token: tok, Inner: expr, Anchor: anchor}
	}

	if !p.curTokenIs(lexer.EOF) {
		if p.curTokenIs(lexer.TO) {
			p.addError("SYNTAX-0005", p.curToken, nil)
		} else {
			p.addError("SYNTAX-0007", p.curToken, map[string]any{
				"Token": describeToken(p.curToken),
			})
		}
		return nil
	}

	return intervalize(expr)
}

// enterRebase counts an "as of" clause against the depth cap.
func (p *Parser) enterRebase(tok lexer.Token) bool {
	p.rebases++
	if p.rebases > MaxRebaseDepth {
		p.addError("SYNTAX-0006", tok, map[string]any{"Max": MaxRebaseDepth})
		return false
	}
	return true
}

// intervalize rewrites a sole bare duration into an interval window. In
// every other position a bare duration is a point offset from the anchor;
// only as the whole (possibly rebased) expression does 2D mean "the last
// 2 complete days".
func intervalize(expr ast.Expression) ast.Expression {
	switch node := expr.(type) {
	case *ast.Rebase:
		node.Inner = intervalize(node.Inner)
		return node
	case *ast.Offset:
		if node.Base == nil {
			return &ast.Interval{Token: node.Token, Amount: node.Amount, Unit: node.Unit}
		}
	}
	return expr
}

// parseRange parses term ("to" term)?
func (p *Parser) parseRange() ast.Expression {
	start := p.parseTerm()
	if start == nil {
		return nil
	}

	if !p.curTokenIs(lexer.TO) {
		return start
	}

	tok := p.curToken
	p.nextToken()

	end := p.parseTerm()
	if end == nil {
		return nil
	}

	return &ast.Range{Token: tok, Start: start, End: end}
}

// parseAnchorChain parses term ("as" "of" anchorChain)?, nesting to the
// right so the innermost anchor is evaluated first.
func (p *Parser) parseAnchorChain() ast.Expression {
	inner := p.parseTerm()
	if inner == nil {
		return nil
	}

	if !p.curTokenIs(lexer.AS) {
		return inner
	}

	tok := p.curToken
	if !p.enterRebase(tok) {
		return nil
	}
	p.nextToken()
	if !p.expectCur(lexer.OF, "'of'") {
		return nil
	}

	anchor := p.parseAnchorChain()
	if anchor == nil {
		return nil
	}

	return &ast.Rebase{Token: tok, Inner: inner, Anchor: anchor}
}

// parseTerm parses an atom followed by any number of trailers.
func (p *Parser) parseTerm() ast.Expression {
	expr := p.parseAtom()
	if expr == nil {
		return nil
	}

	for {
		switch p.curToken.Type {
		case lexer.SLASH:
			tok := p.curToken
			p.nextToken()
			unit, ok := p.parseUnit()
			if !ok {
				return nil
			}
			expr = &ast.Truncate{Token: tok, Base: expr, Unit: unit}

		case lexer.PLUS, lexer.MINUS:
			opTok := p.curToken
			p.nextToken()
			amount, unit, ok := p.parseUnsignedDuration()
			if !ok {
				return nil
			}
			if opTok.Type == lexer.MINUS {
				amount = -amount
			}
			expr = &ast.Offset{Token: opTok, Base: expr, Amount: amount, Unit: unit}

		case lexer.DURATION:
			// A signed duration directly after a term is an offset, as in
			// watermark/D-2m. Unsigned durations never follow a term.
			if p.curToken.Literal[0] != '-' {
				return expr
			}
			tok := p.curToken
			amount, unit, ok := p.parseDurationToken(tok)
			if !ok {
				return nil
			}
			p.nextToken()
			expr = &ast.Offset{Token: tok, Base: expr, Amount: amount, Unit: unit}

		default:
			return expr
		}
	}
}

// parseAtom parses the leaf forms.
func (p *Parser) parseAtom() ast.Expression {
	switch p.curToken.Type {
	case lexer.IDENT:
		tok := p.curToken
		p.nextToken()
		switch tok.Literal {
		case "MTD":
			return &ast.ToDate{Token: tok, Unit: grain.Month}
		case "QTD":
			return &ast.ToDate{Token: tok, Unit: grain.Quarter}
		case "YTD":
			return &ast.ToDate{Token: tok, Unit: grain.Year}
		}
		return &ast.Anchor{Token: tok, Name: tok.Literal}

	case lexer.DURATION:
		tok := p.curToken
		amount, unit, ok := p.parseDurationToken(tok)
		if !ok {
			return nil
		}
		p.nextToken()
		return &ast.Offset{Token: tok, Amount: amount, Unit: unit}

	case lexer.ORDINAL:
		return p.parseOrdinal()

	case lexer.ISO:
		return p.parseIsoLiteral()

	case lexer.ILLEGAL:
		p.addError("SYNTAX-0001", p.curToken, map[string]any{
			"Char": p.curToken.Literal,
		})
		return nil

	case lexer.TO:
		p.addError("SYNTAX-0005", p.curToken, nil)
		return nil

	default:
		p.addError("SYNTAX-0002", p.curToken, map[string]any{
			"Expected": "an expression",
			"Got":      describeToken(p.curToken),
		})
		return nil
	}
}

// parseUnit parses a bare unit letter, as found after '/'.
func (p *Parser) parseUnit() (grain.Grain, bool) {
	if !p.curTokenIs(lexer.IDENT) {
		p.addError("SYNTAX-0002", p.curToken, map[string]any{
			"Expected": "a unit letter",
			"Got":      describeToken(p.curToken),
		})
		return grain.Unspecified, false
	}

	g, ok := grain.Parse(p.curToken.Literal)
	if !ok {
		p.addError("SYNTAX-0004", p.curToken, map[string]any{
			"Unit": p.curToken.Literal,
		})
		return grain.Unspecified, false
	}

	p.nextToken()
	return g, true
}

// parseUnsignedDuration parses the duration after a '+' or '-' operator.
func (p *Parser) parseUnsignedDuration() (int, grain.Grain, bool) {
	if !p.curTokenIs(lexer.DURATION) || p.curToken.Literal[0] == '-' {
		p.addError("SYNTAX-0002", p.curToken, map[string]any{
			"Expected": "an unsigned duration",
			"Got":      describeToken(p.curToken),
		})
		return 0, grain.Unspecified, false
	}

	amount, unit, ok := p.parseDurationToken(p.curToken)
	if !ok {
		return 0, grain.Unspecified, false
	}
	p.nextToken()
	return amount, unit, true
}

// parseDurationToken splits a DURATION literal into amount and unit.
func (p *Parser) parseDurationToken(tok lexer.Token) (int, grain.Grain, bool) {
	lit := tok.Literal

	i := 0
	if lit[0] == '-' {
		i = 1
	}
	digits := i
	for digits < len(lit) && lit[digits] >= '0' && lit[digits] <= '9' {
		digits++
	}

	unit, ok := grain.Parse(lit[digits:])
	if !ok {
		unitTok := tok
		unitTok.Column += digits
		p.addError("SYNTAX-0004", unitTok, map[string]any{
			"Unit": lit[digits:],
		})
		return 0, grain.Unspecified, false
	}

	amount, err := strconv.Atoi(lit[:digits])
	if err != nil {
		p.addError("SYNTAX-0002", tok, map[string]any{
			"Expected": "a duration amount within range",
			"Got":      lit,
		})
		return 0, grain.Unspecified, false
	}

	return amount, unit, true
}

// parseOrdinal parses an ORDINAL token such as W2.
func (p *Parser) parseOrdinal() ast.Expression {
	tok := p.curToken
	lit := tok.Literal

	unit, _ := grain.Parse(lit[:1])
	if unit == grain.Year {
		p.addError("SYNTAX-0008", tok, map[string]any{"Unit": "Y"})
		return nil
	}

	n, err := strconv.Atoi(lit[1:])
	if err != nil {
		p.addError("SYNTAX-0002", tok, map[string]any{
			"Expected": "an ordinal within range",
			"Got":      lit,
		})
		return nil
	}

	p.nextToken()
	return &ast.Ordinal{Token: tok, Unit: unit, N: n}
}

// parseIsoLiteral validates an ISO token and builds the literal node.
// The lexer guarantees the year/month/day shape but passes time parts
// through unvalidated, so the precise checks happen here.
func (p *Parser) parseIsoLiteral() ast.Expression {
	tok := p.curToken
	lit := tok.Literal

	node := &ast.IsoLiteral{Token: tok, Month: 1, Day: 1}

	malformed := func() ast.Expression {
		p.addError("SYNTAX-0003", tok, map[string]any{"Literal": lit})
		return nil
	}

	switch {
	case len(lit) == 4:
		node.Precision = ast.PrecisionYear
		node.Year = atoiFixed(lit[0:4])

	case len(lit) == 7:
		node.Precision = ast.PrecisionMonth
		node.Year = atoiFixed(lit[0:4])
		node.Month = atoiFixed(lit[5:7])
		if node.Month < 1 || node.Month > 12 {
			return malformed()
		}

	case len(lit) == 10:
		node.Precision = ast.PrecisionDay
		node.Year = atoiFixed(lit[0:4])
		node.Month = atoiFixed(lit[5:7])
		node.Day = atoiFixed(lit[8:10])
		if !validDate(node.Year, node.Month, node.Day) {
			return malformed()
		}

	case len(lit) == 20:
		if lit[10] != 'T' || lit[13] != ':' || lit[16] != ':' || lit[19] != 'Z' ||
			!allDigits(lit[11:13]) || !allDigits(lit[14:16]) || !allDigits(lit[17:19]) {
			return malformed()
		}
		node.Precision = ast.PrecisionInstant
		node.Year = atoiFixed(lit[0:4])
		node.Month = atoiFixed(lit[5:7])
		node.Day = atoiFixed(lit[8:10])
		node.Hour = atoiFixed(lit[11:13])
		node.Minute = atoiFixed(lit[14:16])
		node.Second = atoiFixed(lit[17:19])
		if !validDate(node.Year, node.Month, node.Day) ||
			node.Hour > 23 || node.Minute > 59 || node.Second > 59 {
			return malformed()
		}

	default:
		return malformed()
	}

	p.nextToken()
	return node
}

// atoiFixed converts a run of ASCII digits; the caller guarantees the shape.
func atoiFixed(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		n = n*10 + int(s[i]-'0')
	}
	return n
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// validDate reports whether y-m-d names a real calendar day.
func validDate(y, m, d int) bool {
	if m < 1 || m > 12 || d < 1 {
		return false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	return t.Year() == y && int(t.Month()) == m && t.Day() == d
}
