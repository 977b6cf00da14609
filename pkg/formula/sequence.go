package formula

import (
	"github.com/leapstack-labs/leapcalc/pkg/arith"
	"github.com/leapstack-labs/leapcalc/pkg/core"
)

// OutputValue is the rounded value of one computed output.
type OutputValue struct {
	ID           string  `json:"id"`
	Label        string  `json:"label"`
	VariableName string  `json:"variable_name"`
	Value        float64 `json:"value"`
}

// OutputError records a computed output that failed to evaluate.
type OutputError struct {
	OutputID    string `json:"output_id"`
	OutputLabel string `json:"output_label"`
	Kind        Kind   `json:"kind,omitempty"`
	Message     string `json:"message"`
	Err         error  `json:"-"`
}

// Outputs is the result of evaluating a module's computed outputs.
type Outputs struct {
	// Values has one entry per output, in declaration order. Failed outputs
	// hold 0.
	Values []OutputValue `json:"values"`
	Errors []OutputError `json:"errors,omitempty"`
}

// Map returns output values keyed by variable name.
func (o Outputs) Map() map[string]float64 {
	m := make(map[string]float64, len(o.Values))
	for _, v := range o.Values {
		m[v.VariableName] = v.Value
	}
	return m
}

// OK reports whether every output evaluated.
func (o Outputs) OK() bool {
	return len(o.Errors) == 0
}

// EvaluateComputedOutputs evaluates outputs in order. Each output sees ctx
// plus the outputs before it, by bare variable name. A failing output is
// recorded, counts as 0 for later outputs and does not stop the sequence.
// Values are rounded to two decimals.
func EvaluateComputedOutputs(outputs []core.ComputedOutput, ctx *Context) Outputs {
	result := Outputs{Values: make([]OutputValue, 0, len(outputs))}
	for _, out := range outputs {
		v, err := ctx.Evaluate(out.Expression)
		if err != nil {
			result.Errors = append(result.Errors, OutputError{
				OutputID:    out.ID,
				OutputLabel: out.Label,
				Kind:        KindOf(err),
				Message:     err.Error(),
				Err:         err,
			})
			v = 0
		}
		v = arith.Round(v, 2)
		result.Values = append(result.Values, OutputValue{
			ID:           out.ID,
			Label:        out.Label,
			VariableName: out.VariableName,
			Value:        v,
		})
		ctx = ctx.With(out.VariableName, core.Number(v))
	}
	return result
}
