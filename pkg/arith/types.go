package arith

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
)

// toFloat converts an evaluation result to a float64.
func toFloat(v starlark.Value) (float64, error) {
	switch x := v.(type) {
	case starlark.Bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case starlark.Int, starlark.Float:
		f, _ := starlark.AsFloat(x)
		return f, nil
	default:
		return 0, &EvalError{Expr: v.String(), Message: fmt.Sprintf("result is a %s, not a number", v.Type())}
	}
}

// numeric returns the float value of a function argument. Booleans count as
// 1 or 0; NaN is rejected.
func numeric(v starlark.Value) (float64, bool) {
	f, ok := operand(v)
	if !ok || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// FormatNumber renders f as a float literal the interpreter parses back to
// f, e.g. "3.0" or "1e+308". Negative numbers are parenthesized so they can
// follow any operator.
func FormatNumber(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") && !math.IsInf(f, 0) && !math.IsNaN(f) {
		s += ".0"
	}
	if f < 0 {
		return "(" + s + ")"
	}
	return s
}

// NormalizeLiteral rewrites a numeric literal into a form the interpreter
// accepts, e.g. "007" becomes "7.0" and ".5" becomes "0.5". Text that does not
// parse as a finite number is returned unchanged.
func NormalizeLiteral(text string) string {
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsInf(f, 0) {
		return text
	}
	return FormatNumber(f)
}

// Round rounds x to the given number of decimals, with halves rounded up
// (toward positive infinity): Round(-3.5, 0) is -3.
func Round(x float64, decimals int) float64 {
	if decimals == 0 {
		return roundHalfUp(x)
	}
	p := math.Pow(10, float64(decimals))
	return roundHalfUp(x*p) / p
}

func roundHalfUp(x float64) float64 {
	return math.Floor(x + 0.5)
}
