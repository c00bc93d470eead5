// Package lexer tokenizes Rill Time expressions.
//
// The token stream is deliberately small: identifiers and keywords, signed
// durations (-2D, 1h), ordinals (W2, D1), ISO timestamps at year through
// instant precision, and the operators / + -. Unit letters are
// case-significant (m is minutes, M is months), so the lexer never folds
// case; validation of unit letters happens in the parser.
package lexer

import "fmt"

// TokenType represents different types of tokens
type TokenType int

const (
	// Special tokens
	ILLEGAL TokenType = iota
	EOF

	// Identifiers and literals
	IDENT    // now, watermark, latest, ref, MTD, ...
	DURATION // 2D, -15m, 1h (optional sign, digits, unit letters)
	ORDINAL  // D2, W1, M3, Q2 (uppercase grain letter, digits)
	ISO      // 2025, 2025-02, 2025-02-20, 2025-02-20T01:23:45Z

	// Operators
	SLASH // /
	PLUS  // +
	MINUS // -

	// Keywords
	AS // "as"
	OF // "of"
	TO // "to"
)

// Token represents a single token
type Token struct {
	Type    TokenType
	Literal string
	Line    int
	Column  int
}

// String returns a string representation of the token
func (t Token) String() string {
	return fmt.Sprintf("{Type: %s, Literal: %s, Line: %d, Column: %d}",
		t.Type.String(), t.Literal, t.Line, t.Column)
}

// String returns a string representation of the token type
func (tt TokenType) String() string {
	switch tt {
	case ILLEGAL:
		return "ILLEGAL"
	case EOF:
		return "EOF"
	case IDENT:
		return "IDENT"
	case DURATION:
		return "DURATION"
	case ORDINAL:
		return "ORDINAL"
	case ISO:
		return "ISO"
	case SLASH:
		return "SLASH"
	case PLUS:
		return "PLUS"
	case MINUS:
		return "MINUS"
	case AS:
		return "AS"
	case OF:
		return "OF"
	case TO:
		return "TO"
	default:
		return "UNKNOWN"
	}
}

// Keywords map for identifying language keywords. Keywords are
// case-sensitive: "AS" is an identifier, not a keyword.
var keywords = map[string]TokenType{
	"as": AS,
	"of": OF,
	"to": TO,
}

// LookupIdent checks if an identifier is a keyword
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// ordinalLetter reports whether b is a grain letter that can lead an
// ordinal token. Ordinals exist for calendar grains only.
func ordinalLetter(b byte) bool {
	switch b {
	case 'D', 'W', 'M', 'Q', 'Y':
		return true
	}
	return false
}

// Lexer represents the lexical analyzer
type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           byte // current char under examination
	line         int  // current line number
	column       int  // current column number
}

// New creates a new lexer instance
func New(input string) *Lexer {
	l := &Lexer{
		input:  input,
		line:   1,
		column: 0,
	}
	l.readChar()
	return l
}

// readChar reads the next character and advances position. Expressions are
// ASCII by construction, so no UTF-8 decoding is needed; a multi-byte rune
// simply surfaces as an ILLEGAL token.
func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0 // ASCII NUL character represents EOF
		l.position = l.readPosition
		return
	}

	l.ch = l.input[l.readPosition]
	l.position = l.readPosition
	l.readPosition++

	if l.ch == '\n' {
		l.line++
		l.column = 0
	} else {
		l.column++
	}
}

// peekChar returns the next character without advancing
func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

// skipWhitespace advances past spaces, tabs, and newlines
func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

// NextToken scans and returns the next token
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()

	tok := Token{Line: l.line, Column: l.column}

	switch {
	case l.ch == 0:
		tok.Type = EOF
		tok.Literal = ""
	case l.ch == '/':
		tok.Type = SLASH
		tok.Literal = "/"
		l.readChar()
	case l.ch == '+':
		tok.Type = PLUS
		tok.Literal = "+"
		l.readChar()
	case l.ch == '-':
		if isDigit(l.peekChar()) {
			return l.readDuration(tok)
		}
		tok.Type = MINUS
		tok.Literal = "-"
		l.readChar()
	case isDigit(l.ch):
		if n := isoExtent(l.input[l.position:]); n > 0 {
			tok.Type = ISO
			tok.Literal = l.readN(n)
			return tok
		}
		return l.readDuration(tok)
	case isLetter(l.ch):
		return l.readWord(tok)
	default:
		tok.Type = ILLEGAL
		tok.Literal = string(l.ch)
		l.readChar()
	}

	return tok
}

// readN consumes exactly n characters and returns them
func (l *Lexer) readN(n int) string {
	start := l.position
	for i := 0; i < n; i++ {
		l.readChar()
	}
	return l.input[start : start+n]
}

// readDuration scans an optionally signed duration: [-]digits unit-letters.
// The unit letters are captured as written; the parser validates them.
func (l *Lexer) readDuration(tok Token) Token {
	start := l.position

	if l.ch == '-' {
		l.readChar()
	}
	for isDigit(l.ch) {
		l.readChar()
	}

	if !isLetter(l.ch) {
		// Digits with no unit letter fit no token shape.
		tok.Type = ILLEGAL
		tok.Literal = l.input[start:l.position]
		return tok
	}
	for isLetter(l.ch) {
		l.readChar()
	}

	tok.Type = DURATION
	tok.Literal = l.input[start:l.position]
	return tok
}

// readWord scans a letter run and classifies it as a keyword, an ordinal
// (single uppercase grain letter followed by digits), or an identifier.
func (l *Lexer) readWord(tok Token) Token {
	start := l.position
	for isLetter(l.ch) {
		l.readChar()
	}
	word := l.input[start:l.position]

	if len(word) == 1 && ordinalLetter(word[0]) && isDigit(l.ch) {
		for isDigit(l.ch) {
			l.readChar()
		}
		tok.Type = ORDINAL
		tok.Literal = l.input[start:l.position]
		return tok
	}

	tok.Type = LookupIdent(word)
	tok.Literal = word
	return tok
}

// isoExtent returns the length of the longest ISO-shaped literal at the
// start of s, or 0 if s does not begin with one. Precision grows through
// YYYY, YYYY-MM, YYYY-MM-DD, and YYYY-MM-DDThh:mm:ssZ. A form is only
// accepted when the character after it cannot extend a different token:
// "2025h" is a duration, and in "2025-02h" the "-02h" tail is a signed
// duration offset applied to the year 2025.
func isoExtent(s string) int {
	if !digitsAt(s, 0, 4) {
		return 0
	}
	n := 4

	// YYYY-MM
	if len(s) > 4 && s[4] == '-' && digitsAt(s, 5, 2) && !letterAfterDigits(s, 7) {
		n = 7

		// YYYY-MM-DD
		if len(s) > 7 && s[7] == '-' && digitsAt(s, 8, 2) {
			if len(s) > 10 && s[10] == 'T' {
				// Time part: consume the plausible extent and let the
				// parser reject malformed forms with a precise error.
				n = 10
				for n < len(s) && isTimeChar(s[n]) {
					n++
				}
				return n
			}
			if !letterAfterDigits(s, 10) {
				n = 10
			}
		}
		return boundaryOr(s, n)
	}

	return boundaryOr(s, n)
}

// boundaryOr returns n if the character at s[n] does not extend the
// literal into another token shape, otherwise 0.
func boundaryOr(s string, n int) int {
	if n < len(s) && (isLetter(s[n]) || isDigit(s[n])) {
		return 0
	}
	return n
}

// digitsAt reports whether s has exactly count digits starting at i.
func digitsAt(s string, i, count int) bool {
	if i+count > len(s) {
		return false
	}
	for j := i; j < i+count; j++ {
		if !isDigit(s[j]) {
			return false
		}
	}
	return true
}

// letterAfterDigits reports whether the character at s[i] is a letter,
// which would turn the preceding digits into a duration instead.
func letterAfterDigits(s string, i int) bool {
	return i < len(s) && isLetter(s[i])
}

// isTimeChar reports whether b can appear in the time part of an instant.
func isTimeChar(b byte) bool {
	return isDigit(b) || b == ':' || b == 'T' || b == 'Z'
}

func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
