package formula

import (
	"errors"
	"math"
	"strings"

	"github.com/leapstack-labs/leapcalc/pkg/arith"
	"github.com/leapstack-labs/leapcalc/pkg/parser"
	"github.com/leapstack-labs/leapcalc/pkg/token"
)

// Evaluate computes expr against ctx.
func Evaluate(expr string, ctx *Context) (float64, error) {
	return ctx.Evaluate(expr)
}

// Evaluate computes expr. References are replaced by numbers in four passes:
// properties of selected materials, plain fields and bound variables,
// properties of catalog materials, then bare material names. Anything left
// over is reported at once as a missing variables error.
func (c *Context) Evaluate(expr string) (float64, error) {
	numeric, err := c.Substitute(expr)
	if err != nil {
		return 0, err
	}

	result, err := c.interp.Eval(numeric)
	if err != nil {
		return 0, c.interpreterError(expr, err)
	}
	return checkFinite(result)
}

// Substitute returns expr with every reference replaced by its numeric value.
func (c *Context) Substitute(expr string) (string, error) {
	if strings.TrimSpace(expr) == "" {
		return "", NewSyntaxError(expr, "Expression is empty", nil)
	}

	scan := parser.Parse(expr, c.schema)
	out := make([]string, len(scan.Tokens))
	done := make([]bool, len(scan.Tokens))
	for i, t := range scan.Tokens {
		out[i] = t.Text
		if t.Type == token.NUMBER {
			out[i] = arith.NormalizeLiteral(t.Text)
		}
	}
	set := func(i int, v float64) {
		out[i] = arith.FormatNumber(v)
		done[i] = true
	}

	for _, ref := range scan.RefsOf(parser.RefFieldProperty) {
		v, err := c.ResolveFieldProperty(ref.Base, ref.Property)
		if err != nil {
			return "", err
		}
		set(ref.Index, v)
	}

	for _, id := range scan.Idents {
		if id.Call && c.interp.IsFunction(id.Name) {
			continue
		}
		if !c.defines(id.Name) {
			continue
		}
		if v, ok := c.ResolveField(id.Name); ok {
			set(id.Index, v)
		}
	}

	for _, ref := range scan.RefsOf(parser.RefMaterialProperty) {
		if v, ok := c.ResolveMaterialProperty(ref.Base, ref.Property); ok {
			set(ref.Index, v)
		}
	}

	for _, id := range scan.Idents {
		if done[id.Index] || (id.Call && c.interp.IsFunction(id.Name)) {
			continue
		}
		if v, ok := c.ResolveMaterial(id.Name); ok {
			set(id.Index, v)
		}
	}

	if missing := c.residual(scan, done); len(missing) > 0 {
		return "", NewMissingVariablesError(missing)
	}
	return parser.RenderWith(scan.Tokens, out), nil
}

// residual lists the references no pass could resolve, in order of first
// appearance.
func (c *Context) residual(scan *parser.Scan, done []bool) []string {
	var missing []string
	seen := make(map[string]bool)
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			missing = append(missing, name)
		}
	}
	for i, t := range scan.Tokens {
		if done[i] {
			continue
		}
		switch t.Type {
		case token.IDENT:
			if !c.interp.Knows(t.Text) {
				add(t.Text)
			}
		case token.DOTTED:
			add(t.Base + "." + t.Property)
		}
	}
	return missing
}

func (c *Context) interpreterError(expr string, err error) error {
	var fnErr *arith.FunctionError
	if errors.As(err, &fnErr) {
		return NewSyntaxError(expr, fnErr.Message, err)
	}
	return NewSyntaxError(expr, DescribeSyntaxError(expr, c.interp, err), err)
}

func checkFinite(v float64) (float64, error) {
	switch {
	case math.IsNaN(v):
		return 0, newNonFiniteResultError(v, "Result is not a number (NaN)")
	case math.IsInf(v, 1):
		return 0, newNonFiniteResultError(v, "Result is infinite (Infinity)")
	case math.IsInf(v, -1):
		return 0, newNonFiniteResultError(v, "Result is infinite (-Infinity)")
	}
	return v, nil
}
