package arith

import (
	"fmt"
	"math"
	"math/big"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Internal helpers the rewritten expression calls. They are predeclared for
// evaluation only and never reported by Names, Knows or IsFunction.
const (
	numHelper = "_num"
	divHelper = "_div"
	modHelper = "_mod"
)

func helpers() starlark.StringDict {
	return starlark.StringDict{
		numHelper: starlark.NewBuiltin(numHelper, numBuiltin),
		divHelper: starlark.NewBuiltin(divHelper, floatOp("/", func(x, y float64) float64 { return x / y })),
		modHelper: starlark.NewBuiltin(modHelper, floatOp("%", floorMod)),
	}
}

// rewrite adapts a parsed formula to float arithmetic: integer literals
// become floats, comparisons yield 1 or 0, and / and % follow IEEE 754 so a
// zero divisor gives ±Inf or NaN instead of failing.
func rewrite(e syntax.Expr) syntax.Expr {
	switch x := e.(type) {
	case *syntax.Literal:
		if x.Token == syntax.INT {
			return floatLiteral(x)
		}
	case *syntax.ParenExpr:
		x.X = rewrite(x.X)
	case *syntax.UnaryExpr:
		if x.X != nil {
			x.X = rewrite(x.X)
		}
	case *syntax.CallExpr:
		for i, arg := range x.Args {
			x.Args[i] = rewrite(arg)
		}
	case *syntax.CondExpr:
		x.Cond = rewrite(x.Cond)
		x.True = rewrite(x.True)
		x.False = rewrite(x.False)
	case *syntax.BinaryExpr:
		x.X = rewrite(x.X)
		x.Y = rewrite(x.Y)
		switch x.Op {
		case syntax.EQL, syntax.NEQ, syntax.LT, syntax.GT, syntax.LE, syntax.GE:
			return helperCall(numHelper, x.OpPos, x)
		case syntax.SLASH:
			return helperCall(divHelper, x.OpPos, x.X, x.Y)
		case syntax.PERCENT:
			return helperCall(modHelper, x.OpPos, x.X, x.Y)
		}
	}
	return e
}

func helperCall(name string, pos syntax.Position, args ...syntax.Expr) *syntax.CallExpr {
	return &syntax.CallExpr{
		Fn:     &syntax.Ident{NamePos: pos, Name: name},
		Lparen: pos,
		Args:   args,
		Rparen: pos,
	}
}

func floatLiteral(lit *syntax.Literal) *syntax.Literal {
	var f float64
	switch v := lit.Value.(type) {
	case int64:
		f = float64(v)
	case *big.Int:
		f, _ = new(big.Float).SetInt(v).Float64()
	}
	return &syntax.Literal{Token: syntax.FLOAT, TokenPos: lit.TokenPos, Raw: lit.Raw, Value: f}
}

func numBuiltin(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, _ []starlark.Tuple) (starlark.Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("%s: expected 1 argument, got %d", b.Name(), len(args))
	}
	f, err := toFloat(args[0])
	if err != nil {
		return nil, err
	}
	return starlark.Float(f), nil
}

func floatOp(op string, fn func(x, y float64) float64) func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
	return func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, _ []starlark.Tuple) (starlark.Value, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("%s: expected 2 arguments, got %d", b.Name(), len(args))
		}
		x, okX := operand(args[0])
		y, okY := operand(args[1])
		if !okX || !okY {
			return nil, fmt.Errorf("unknown binary op: %s %s %s", args[0].Type(), op, args[1].Type())
		}
		return starlark.Float(fn(x, y)), nil
	}
}

func operand(v starlark.Value) (float64, bool) {
	if _, ok := v.(starlark.Bool); ok {
		f, _ := toFloat(v)
		return f, true
	}
	return starlark.AsFloat(v)
}

// floorMod is the remainder with the sign of the divisor, so -7 % 3 is 2.
// A zero divisor gives NaN.
func floorMod(x, y float64) float64 {
	r := math.Mod(x, y)
	if r != 0 && (r < 0) != (y < 0) {
		r += y
	}
	return r
}
