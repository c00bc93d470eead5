// Package errors provides structured error types for Rill Time expressions.
//
// This package defines RillTimeError, a unified error type that can represent
// both syntax and evaluation errors with rich metadata for display,
// serialization, and programmatic handling.
package errors

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
)

// ErrorClass categorizes errors for filtering and templating.
type ErrorClass string

const (
	ClassSyntax ErrorClass = "syntax" // Tokenizer/parser errors
	ClassEval   ErrorClass = "eval"   // Evaluation errors
)

// RillTimeError represents any error from parsing or evaluating an expression.
type RillTimeError struct {
	Class   ErrorClass     `json:"class"`           // Error category
	Code    string         `json:"code"`            // Error code (e.g., "SYNTAX-0001")
	Message string         `json:"message"`         // Human-readable message
	Hints   []string       `json:"hints,omitempty"` // Suggestions for fixing
	Line    int            `json:"line"`            // 1-based line (0 if unknown)
	Column  int            `json:"column"`          // 1-based column (0 if unknown)
	Data    map[string]any `json:"data,omitempty"`  // Template variables
}

// Error implements the error interface.
func (e *RillTimeError) Error() string {
	return e.String()
}

// String returns a formatted string representation of the error.
func (e *RillTimeError) String() string {
	var sb strings.Builder

	if e.Line > 0 {
		sb.WriteString(fmt.Sprintf("line %d, column %d: ", e.Line, e.Column))
	}

	sb.WriteString(e.Message)

	for _, hint := range e.Hints {
		sb.WriteString("\n  ")
		sb.WriteString(hint)
	}

	return sb.String()
}

// PrettyString returns a multi-line formatted string for display.
func (e *RillTimeError) PrettyString() string {
	var sb strings.Builder

	switch e.Class {
	case ClassSyntax:
		sb.WriteString("Syntax error")
	default:
		sb.WriteString("Evaluation error")
	}

	if e.Line > 0 {
		sb.WriteString(fmt.Sprintf(": line %d, column %d\n  ", e.Line, e.Column))
	} else {
		sb.WriteString(":\n  ")
	}

	sb.WriteString(e.Message)

	for i, hint := range e.Hints {
		sb.WriteString("\n  ")
		if i == 0 {
			sb.WriteString("Use: ")
		} else {
			sb.WriteString(" or: ")
		}
		sb.WriteString(hint)
	}

	return sb.String()
}

// ToJSON returns the error as JSON bytes.
func (e *RillTimeError) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// WithPosition returns a copy of the error with line and column set.
func (e *RillTimeError) WithPosition(line, column int) *RillTimeError {
	copy := *e
	copy.Line = line
	copy.Column = column
	return &copy
}

// IsSyntaxError returns true if this is a tokenizer or parser error.
func (e *RillTimeError) IsSyntaxError() bool {
	return e.Class == ClassSyntax
}

// IsEvalError returns true if this is an evaluation error.
func (e *RillTimeError) IsEvalError() bool {
	return e.Class == ClassEval
}

// ErrorDef defines an error in the catalog.
type ErrorDef struct {
	Class    ErrorClass // Error category
	Template string     // Message template with {{.placeholders}}
	Hints    []string   // Hint templates (may use {{.placeholders}})
}

// ErrorCatalog maps error codes to their definitions.
var ErrorCatalog = map[string]ErrorDef{
	// ========================================
	// Syntax errors (SYNTAX-0xxx)
	// ========================================
	"SYNTAX-0001": {
		Class:    ClassSyntax,
		Template: "unexpected character '{{.Char}}'",
	},
	"SYNTAX-0002": {
		Class:    ClassSyntax,
		Template: "expected {{.Expected}}, got '{{.Got}}'",
	},
	"SYNTAX-0003": {
		Class:    ClassSyntax,
		Template: "malformed ISO literal '{{.Literal}}'",
		Hints:    []string{"2025", "2025-02", "2025-02-20", "2025-02-20T01:23:45Z"},
	},
	"SYNTAX-0004": {
		Class:    ClassSyntax,
		Template: "unknown unit '{{.Unit}}'",
		Hints: []string{
			"valid units are ms, s, m, h, D, W, M, Q, Y",
			"unit letters are case-significant: m is minutes, M is months",
		},
	},
	"SYNTAX-0005": {
		Class:    ClassSyntax,
		Template: "misplaced 'to'",
		Hints: []string{
			"a range takes a single 'to': start to end",
			"'to' cannot appear inside an 'as of' anchor",
		},
	},
	"SYNTAX-0006": {
		Class:    ClassSyntax,
		Template: "'as of' chain exceeds {{.Max}} levels",
	},
	"SYNTAX-0007": {
		Class:    ClassSyntax,
		Template: "unexpected trailing input '{{.Token}}'",
	},
	"SYNTAX-0008": {
		Class:    ClassSyntax,
		Template: "ordinal not supported for unit '{{.Unit}}'",
		Hints:    []string{"ordinals select within an enclosing period: D2, W1, M3, Q2"},
	},

	// ========================================
	// Evaluation errors (EVAL-0xxx)
	// ========================================
	"EVAL-0001": {
		Class:    ClassEval,
		Template: "unknown anchor '{{.Name}}'",
		// Hint "Did you mean `X`?" added dynamically by fuzzy matching
	},
	"EVAL-0002": {
		Class:    ClassEval,
		Template: "expression requires '{{.Field}}' but the evaluation context does not provide it",
		Hints:    []string{"set {{.Field}} on the TimeContext"},
	},
	"EVAL-0003": {
		Class:    ClassEval,
		Template: "ordinal {{.Ordinal}} is out of range for the enclosing {{.Parent}}",
	},
	"EVAL-0004": {
		Class:    ClassEval,
		Template: "range start {{.Start}} is after range end {{.End}}",
	},
}

// New creates a RillTimeError from the catalog.
// If the code is not found, creates a generic error with the message.
func New(code string, data map[string]any) *RillTimeError {
	def, ok := ErrorCatalog[code]
	if !ok {
		msg := code
		if data != nil {
			if m, ok := data["message"].(string); ok {
				msg = m
			}
		}
		return &RillTimeError{
			Class:   ClassEval,
			Code:    code,
			Message: msg,
			Data:    data,
		}
	}

	msg := renderTemplate(def.Template, data)

	var hints []string
	for _, hintTmpl := range def.Hints {
		rendered := renderTemplate(hintTmpl, data)
		if rendered != "" {
			hints = append(hints, rendered)
		}
	}

	return &RillTimeError{
		Class:   def.Class,
		Code:    code,
		Message: msg,
		Hints:   hints,
		Data:    data,
	}
}

// NewWithPosition creates a RillTimeError with position information.
func NewWithPosition(code string, line, column int, data map[string]any) *RillTimeError {
	err := New(code, data)
	err.Line = line
	err.Column = column
	return err
}

// renderTemplate renders a Go template with the given data.
func renderTemplate(tmplStr string, data map[string]any) string {
	if data == nil {
		return tmplStr
	}

	tmpl, err := template.New("").Parse(tmplStr)
	if err != nil {
		return tmplStr
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return tmplStr
	}

	return buf.String()
}

// ============================================================================
// Fuzzy Matching - "Did you mean?" suggestions
// ============================================================================

// levenshteinDistance computes the edit distance between two strings.
func levenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	matrix := make([][]int, len(a)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(b)+1)
		matrix[i][0] = i
	}
	for j := range matrix[0] {
		matrix[0][j] = j
	}

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			matrix[i][j] = min(
				matrix[i-1][j]+1,      // deletion
				matrix[i][j-1]+1,      // insertion
				matrix[i-1][j-1]+cost, // substitution
			)
		}
	}

	return matrix[len(a)][len(b)]
}

// FindClosestMatch finds the closest match to the given string from candidates.
// Returns the best match if the distance is within the threshold, otherwise
// an empty string. The threshold scales with the length of the input.
func FindClosestMatch(input string, candidates []string) string {
	if len(input) == 0 || len(candidates) == 0 {
		return ""
	}

	inputLower := strings.ToLower(input)

	var bestMatch string
	bestDistance := -1

	for _, candidate := range candidates {
		dist := levenshteinDistance(inputLower, strings.ToLower(candidate))
		if bestDistance == -1 || dist < bestDistance {
			bestDistance = dist
			bestMatch = candidate
		}
	}

	// Short words (1-3): max 1 edit
	// Medium words (4-6): max 2 edits
	// Longer words (7+): max 3 edits
	threshold := 1
	if len(input) >= 4 && len(input) <= 6 {
		threshold = 2
	} else if len(input) >= 7 {
		threshold = 3
	}

	if bestDistance <= 0 || bestDistance > threshold {
		return ""
	}

	return bestMatch
}

// NewUnknownAnchor creates an unknown anchor error with optional fuzzy matching.
func NewUnknownAnchor(name string, available []string) *RillTimeError {
	err := New("EVAL-0001", map[string]any{"Name": name})

	if suggestion := FindClosestMatch(name, available); suggestion != "" {
		err.Hints = append(err.Hints, "Did you mean `"+suggestion+"`?")
	}

	return err
}

// KnownAnchors lists the anchor names the evaluator understands, for fuzzy
// matching against typos and for editor completion.
var KnownAnchors = []string{"now", "watermark", "latest", "ref"}
