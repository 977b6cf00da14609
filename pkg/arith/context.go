// Package arith evaluates fully numeric formula text with go.starlark.net.
//
// The interpreter exposes arithmetic, comparisons, parentheses and a fixed
// registry of math functions and constants. The registry is built once and
// passed to every evaluation as the predeclared environment; nothing global is
// ever mutated.
package arith

import (
	"errors"
	"fmt"
	"sort"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Interpreter evaluates numeric expressions against an immutable registry.
// It is safe for concurrent use.
type Interpreter struct {
	predeclared starlark.StringDict
	// env is predeclared plus the evaluation helpers.
	env       starlark.StringDict
	functions map[string]bool
	maxSteps  uint64
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithFunction registers an additional function. It replaces a builtin of the
// same name.
func WithFunction(name string, fn func(args []float64) (float64, error)) Option {
	return func(in *Interpreter) {
		in.predeclared[name] = starlark.NewBuiltin(name, wrapGoFunc(fn))
		in.functions[name] = true
	}
}

// WithMaxSteps limits the Starlark execution steps of one evaluation.
// Zero removes the limit.
func WithMaxSteps(n uint64) Option {
	return func(in *Interpreter) {
		in.maxSteps = n
	}
}

// New creates an interpreter with the builtin registry plus any options.
func New(opts ...Option) *Interpreter {
	in := &Interpreter{
		predeclared: Predeclared(),
		functions:   make(map[string]bool),
		maxSteps:    defaultMaxSteps,
	}
	for name, v := range in.predeclared {
		if _, ok := v.(*starlark.Builtin); ok {
			in.functions[name] = true
		}
	}
	for _, opt := range opts {
		opt(in)
	}
	in.env = helpers()
	for name, v := range in.predeclared {
		in.env[name] = v
	}
	in.predeclared.Freeze()
	in.env.Freeze()
	return in
}

var defaultInterpreter = New()

// Default returns the shared interpreter with the builtin registry.
func Default() *Interpreter {
	return defaultInterpreter
}

// IsFunction reports whether name is a registered function.
func (in *Interpreter) IsFunction(name string) bool {
	return in.functions[name]
}

// IsConstant reports whether name is a registered constant such as pi.
func (in *Interpreter) IsConstant(name string) bool {
	_, ok := in.predeclared[name]
	return ok && !in.functions[name]
}

// Knows reports whether name is a registered function or constant.
func (in *Interpreter) Knows(name string) bool {
	_, ok := in.predeclared[name]
	return ok
}

// Names returns every registered function and constant name, sorted.
func (in *Interpreter) Names() []string {
	names := make([]string, 0, len(in.predeclared))
	for name := range in.predeclared {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Eval evaluates expr and returns its numeric value. Comparisons yield 1 or
// 0 wherever they appear, and division follows IEEE 754, so the result may be
// NaN or infinite; callers decide how to treat non-finite values.
func (in *Interpreter) Eval(expr string) (float64, error) {
	opts := &syntax.FileOptions{}
	parsed, err := opts.ParseExpr("formula", expr, 0)
	if err != nil {
		return 0, classify(expr, err)
	}
	thread := newThread(in.maxSteps)
	result, err := starlark.EvalExprOptions(opts, thread, rewrite(parsed), in.env)
	if err != nil {
		if fnErr, ok := thread.Local(fnErrorKey).(*FunctionError); ok && fnErr != nil {
			return 0, fnErr
		}
		return 0, classify(expr, err)
	}
	return toFloat(result)
}

// classify converts a starlark failure into one of this package's errors.
func classify(expr string, err error) error {
	var fnErr *FunctionError
	if errors.As(err, &fnErr) {
		return fnErr
	}

	msg := err.Error()
	var synErr syntax.Error
	if errors.As(err, &synErr) {
		return &EvalError{Expr: expr, Message: synErr.Msg, Syntax: true}
	}
	var runtimeErr *starlark.EvalError
	if !errors.As(err, &runtimeErr) {
		// scanner and resolver failures
		return &EvalError{Expr: expr, Message: msg, Syntax: true}
	}
	return &EvalError{Expr: expr, Message: msg}
}

// EvalError is a failure to parse or run a numeric expression.
type EvalError struct {
	Expr    string
	Message string
	// Syntax is set when the expression could not be parsed at all.
	Syntax bool
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("error evaluating %q: %s", e.Expr, e.Message)
}

// FunctionError is raised by a registry function for a wrong argument count or
// a non-numeric argument. Message names the function.
type FunctionError struct {
	Func    string
	Message string
}

func (e *FunctionError) Error() string {
	return e.Message
}
