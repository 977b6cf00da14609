package lint

import (
	"fmt"

	"github.com/leapstack-labs/leapcalc/pkg/arith"
	"github.com/leapstack-labs/leapcalc/pkg/core"
	"github.com/leapstack-labs/leapcalc/pkg/formula"
	"github.com/leapstack-labs/leapcalc/pkg/parser"
)

// Option configures a validation run.
type Option func(*options)

type options struct {
	known  map[string]bool
	config *Config
	interp *arith.Interpreter
}

// WithKnownVariables accepts names that are neither fields nor materials,
// such as earlier computed outputs.
func WithKnownVariables(names ...string) Option {
	return func(o *options) {
		for _, n := range names {
			o.known[n] = true
		}
	}
}

// WithConfig applies rule enablement and severity overrides.
func WithConfig(cfg *Config) Option {
	return func(o *options) {
		o.config = cfg
	}
}

// WithInterpreter validates against a custom function registry.
func WithInterpreter(in *arith.Interpreter) Option {
	return func(o *options) {
		o.interp = in
	}
}

func newInput(expr string, fields []core.Field, materials []core.Material, opts []Option) (*Input, *options) {
	o := &options{known: make(map[string]bool), interp: arith.Default()}
	for _, opt := range opts {
		opt(o)
	}
	schema := parser.NewSchema(fields, materials)
	return &Input{
		Expr:      expr,
		Scan:      parser.Parse(expr, schema),
		Schema:    schema,
		Fields:    fields,
		Materials: materials,
		Known:     o.known,
		Interp:    o.interp,
	}, o
}

func run(rule RuleDef, in *Input, cfg *Config) []Diagnostic {
	diags := rule.Check(in)
	sev := cfg.GetSeverity(rule.ID, rule.Severity)
	for i := range diags {
		diags[i].RuleID = rule.ID
		diags[i].Severity = sev
	}
	return diags
}

// Diagnostics runs every enabled rule and returns all findings in rule order.
func Diagnostics(expr string, fields []core.Field, materials []core.Material, opts ...Option) []Diagnostic {
	in, o := newInput(expr, fields, materials, opts)
	var all []Diagnostic
	for _, rule := range GetAll() {
		if o.config.IsDisabled(rule.ID) {
			continue
		}
		all = append(all, run(rule, in, o.config)...)
	}
	return all
}

// Validate checks expr and returns the first error-severity finding.
// Rules run in ID order and stop at the first failure.
func Validate(expr string, fields []core.Field, materials []core.Material, opts ...Option) Result {
	in, o := newInput(expr, fields, materials, opts)
	for _, rule := range GetAll() {
		if o.config.IsDisabled(rule.ID) {
			continue
		}
		for _, d := range run(rule, in, o.config) {
			if d.Severity == core.SeverityError {
				return failed(d)
			}
		}
	}
	return valid()
}

// ValidateComputedOutputs validates each computed output of m in order. An
// output may read fields, materials and the outputs declared before it; a
// reference to itself or to a later output is an error.
func ValidateComputedOutputs(m core.Module, materials []core.Material, opts ...Option) Result {
	position := make(map[string]int, len(m.ComputedOutputs))
	for i, out := range m.ComputedOutputs {
		if _, dup := position[out.VariableName]; !dup {
			position[out.VariableName] = i
		}
	}

	earlier := make([]string, 0, len(m.ComputedOutputs))
	for j, out := range m.ComputedOutputs {
		name := outputName(out)
		if !core.ValidVariableName(out.VariableName) {
			return Result{Error: fmt.Sprintf("%s: invalid variable name '%s'", name, out.VariableName), Kind: formula.KindSyntax}
		}
		if i, dup := position[out.VariableName]; dup && i != j {
			return Result{Error: fmt.Sprintf("%s: variable name '%s' is already used by another output", name, out.VariableName), Kind: formula.KindSyntax}
		}
		if _, clash := m.Field(out.VariableName); clash {
			return Result{Error: fmt.Sprintf("%s: variable name '%s' is already used by a field", name, out.VariableName), Kind: formula.KindSyntax}
		}

		for _, id := range parser.Parse(out.Expression, parser.NewSchema(m.Fields, materials)).Idents {
			i, isOutput := position[id.Name]
			if !isOutput || id.Call {
				continue
			}
			switch {
			case i == j:
				return Result{
					Error: fmt.Sprintf("%s: references itself", name),
					Kind:  formula.KindUndefinedVariable,
				}
			case i > j:
				return Result{
					Error: fmt.Sprintf("%s: references '%s', which is computed later", name, id.Name),
					Kind:  formula.KindUndefinedVariable,
				}
			}
		}

		runOpts := append([]Option{WithKnownVariables(earlier...)}, opts...)
		res := Validate(out.Expression, m.Fields, materials, runOpts...)
		if !res.Valid {
			res.Error = fmt.Sprintf("%s: %s", name, res.Error)
			return res
		}
		earlier = append(earlier, out.VariableName)
	}
	return valid()
}

func outputName(out core.ComputedOutput) string {
	if out.Label != "" {
		return fmt.Sprintf("Output '%s'", out.Label)
	}
	return fmt.Sprintf("Output '%s'", out.VariableName)
}
