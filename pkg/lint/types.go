package lint

import (
	"github.com/leapstack-labs/leapcalc/pkg/arith"
	"github.com/leapstack-labs/leapcalc/pkg/core"
	"github.com/leapstack-labs/leapcalc/pkg/formula"
	"github.com/leapstack-labs/leapcalc/pkg/parser"
	"github.com/leapstack-labs/leapcalc/pkg/token"
)

// RuleDef is a data-driven rule definition. Rules are stateless; all context
// comes through the Input passed to Check.
type RuleDef struct {
	ID          string        // Unique identifier, e.g., "LC01"
	Name        string        // Human-readable name, e.g., "references.undefined"
	Group       string        // Category, e.g., "references", "units", "syntax"
	Description string        // Human-readable description
	Severity    core.Severity // Default severity
	Check       CheckFunc     // The check function
}

// CheckFunc analyzes a formula and returns diagnostics.
type CheckFunc func(in *Input) []Diagnostic

// Input is everything a rule can inspect.
type Input struct {
	Expr      string
	Scan      *parser.Scan
	Schema    *parser.Schema
	Fields    []core.Field
	Materials []core.Material
	// Known holds extra variable names that are valid without being fields,
	// such as earlier computed outputs.
	Known  map[string]bool
	Interp *arith.Interpreter
}

// isKnownName reports whether a plain identifier names something a formula
// can read.
func (in *Input) isKnownName(name string) bool {
	if _, ok := in.Schema.Field(name); ok {
		return true
	}
	if _, ok := in.Schema.Material(name); ok {
		return true
	}
	return in.Known[name] || in.Interp.Knows(name)
}

// Diagnostic represents a lint finding.
type Diagnostic struct {
	RuleID   string        `json:"rule_id"`
	Severity core.Severity `json:"severity"`
	Message  string        `json:"message"`
	Span     token.Span    `json:"span"`
	// Err carries the kind of failure.
	Err formula.Error `json:"-"`
}

// Kind returns the error kind of the finding.
func (d Diagnostic) Kind() formula.Kind {
	if d.Err == nil {
		return ""
	}
	return d.Err.Kind()
}

func diagnostic(tok token.Token, err formula.Error) Diagnostic {
	return Diagnostic{
		Message: err.Error(),
		Span:    token.SpanOf(tok, tok),
		Err:     err,
	}
}

// Result is the outcome of validating a single formula: valid, or the first
// failure.
type Result struct {
	Valid  bool         `json:"valid"`
	Error  string       `json:"error,omitempty"`
	RuleID string       `json:"rule_id,omitempty"`
	Kind   formula.Kind `json:"kind,omitempty"`
}

func valid() Result {
	return Result{Valid: true}
}

func failed(d Diagnostic) Result {
	return Result{Error: d.Message, RuleID: d.RuleID, Kind: d.Kind()}
}
