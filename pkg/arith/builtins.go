package arith

import (
	"fmt"
	"math"

	"go.starlark.net/starlark"
)

type mathFunc func(args []float64) (float64, error)

// arity bounds the number of positional arguments a function accepts.
// A negative max means unbounded.
type arity struct {
	min, max int
}

func (a arity) describe() string {
	switch {
	case a.max < 0:
		return fmt.Sprintf("at least %d argument%s", a.min, plural(a.min))
	case a.min == a.max:
		return fmt.Sprintf("exactly %d argument%s", a.min, plural(a.min))
	default:
		return fmt.Sprintf("%d or %d arguments", a.min, a.max)
	}
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

type builtinDef struct {
	name  string
	arity arity
	fn    mathFunc
}

var one = arity{1, 1}

var builtinDefs = []builtinDef{
	{"round", arity{1, 2}, roundFunc},
	{"ceil", one, unary(math.Ceil)},
	{"floor", one, unary(math.Floor)},
	{"trunc", one, unary(math.Trunc)},
	{"abs", one, unary(math.Abs)},
	{"sqrt", one, unary(math.Sqrt)},
	{"exp", one, unary(math.Exp)},
	{"log", arity{1, 2}, logFunc},
	{"log10", one, unary(math.Log10)},
	{"sin", one, unary(math.Sin)},
	{"cos", one, unary(math.Cos)},
	{"tan", one, unary(math.Tan)},
	{"pow", arity{2, 2}, func(a []float64) (float64, error) { return math.Pow(a[0], a[1]), nil }},
	{"min", arity{1, -1}, minFunc},
	{"max", arity{1, -1}, maxFunc},
}

// Predeclared returns a fresh copy of the builtin registry: every function
// plus the constants pi and e.
func Predeclared() starlark.StringDict {
	globals := starlark.StringDict{
		"pi": starlark.Float(math.Pi),
		"e":  starlark.Float(math.E),
	}
	for _, def := range builtinDefs {
		globals[def.name] = starlark.NewBuiltin(def.name, checked(def))
	}
	return globals
}

// checked wraps a math function with argument count and type validation.
func checked(def builtinDef) func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
	return func(thread *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if len(kwargs) > 0 {
			return nil, raise(thread, &FunctionError{Func: def.name, Message: fmt.Sprintf("%s() does not accept keyword arguments", def.name)})
		}
		n := len(args)
		if n < def.arity.min || (def.arity.max >= 0 && n > def.arity.max) {
			return nil, raise(thread, &FunctionError{
				Func:    def.name,
				Message: fmt.Sprintf("%s() expects %s, got %d", def.name, def.arity.describe(), n),
			})
		}
		values := make([]float64, n)
		for i, arg := range args {
			f, ok := numeric(arg)
			if !ok {
				return nil, raise(thread, &FunctionError{Func: def.name, Message: fmt.Sprintf("%s() expects a numeric argument", def.name)})
			}
			values[i] = f
		}
		result, err := def.fn(values)
		if err != nil {
			return nil, err
		}
		return starlark.Float(result), nil
	}
}

// wrapGoFunc adapts a caller-supplied function registered with WithFunction.
func wrapGoFunc(fn func(args []float64) (float64, error)) func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
	return func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, _ []starlark.Tuple) (starlark.Value, error) {
		values := make([]float64, len(args))
		for i, arg := range args {
			f, ok := numeric(arg)
			if !ok {
				return nil, raise(thread, &FunctionError{Func: b.Name(), Message: fmt.Sprintf("%s() expects a numeric argument", b.Name())})
			}
			values[i] = f
		}
		result, err := fn(values)
		if err != nil {
			return nil, raise(thread, &FunctionError{Func: b.Name(), Message: fmt.Sprintf("%s(): %v", b.Name(), err)})
		}
		return starlark.Float(result), nil
	}
}

// fnErrorKey is the thread-local slot holding the last function error, so it
// survives starlark's wrapping of builtin failures.
const fnErrorKey = "leapcalc.function_error"

func raise(thread *starlark.Thread, err *FunctionError) *FunctionError {
	thread.SetLocal(fnErrorKey, err)
	return err
}

func unary(fn func(float64) float64) mathFunc {
	return func(args []float64) (float64, error) {
		return fn(args[0]), nil
	}
}

// roundFunc implements round(x) and round(x, decimals). Halves round up and
// the decimals argument is itself rounded to an integer.
func roundFunc(args []float64) (float64, error) {
	if len(args) == 1 {
		return roundHalfUp(args[0]), nil
	}
	d := roundHalfUp(args[1])
	p := math.Pow(10, d)
	return roundHalfUp(args[0]*p) / p, nil
}

func logFunc(args []float64) (float64, error) {
	if len(args) == 1 {
		return math.Log(args[0]), nil
	}
	return math.Log(args[0]) / math.Log(args[1]), nil
}

func minFunc(args []float64) (float64, error) {
	m := args[0]
	for _, v := range args[1:] {
		m = math.Min(m, v)
	}
	return m, nil
}

func maxFunc(args []float64) (float64, error) {
	m := args[0]
	for _, v := range args[1:] {
		m = math.Max(m, v)
	}
	return m, nil
}
