// Package formula evaluates module formulas against field values and a
// material catalog, analyzes which names a formula uses, and runs a module's
// computed outputs in order.
package formula

import (
	"maps"

	"github.com/leapstack-labs/leapcalc/pkg/arith"
	"github.com/leapstack-labs/leapcalc/pkg/core"
	"github.com/leapstack-labs/leapcalc/pkg/parser"
)

// Context is an immutable snapshot of everything a formula can read: field
// definitions, the material catalog and the current values.
type Context struct {
	fields    []core.Field
	materials []core.Material
	values    map[string]core.Value
	schema    *parser.Schema
	interp    *arith.Interpreter
}

// ContextOption configures a Context.
type ContextOption func(*Context)

// WithInterpreter evaluates with in instead of the default interpreter.
func WithInterpreter(in *arith.Interpreter) ContextOption {
	return func(c *Context) {
		c.interp = in
	}
}

// NewContext creates an evaluation context. The values map is copied.
func NewContext(fields []core.Field, materials []core.Material, values map[string]core.Value, opts ...ContextOption) *Context {
	c := &Context{
		fields:    fields,
		materials: materials,
		values:    maps.Clone(values),
		schema:    parser.NewSchema(fields, materials),
		interp:    arith.Default(),
	}
	if c.values == nil {
		c.values = make(map[string]core.Value)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// With returns a new context that also binds name to v. The receiver is not
// modified.
func (c *Context) With(name string, v core.Value) *Context {
	next := *c
	next.values = maps.Clone(c.values)
	next.values[name] = v
	return &next
}

// Fields returns the field definitions.
func (c *Context) Fields() []core.Field { return c.fields }

// Materials returns the material catalog.
func (c *Context) Materials() []core.Material { return c.materials }

// Schema returns the name index used to classify references.
func (c *Context) Schema() *parser.Schema { return c.schema }

// Interpreter returns the interpreter used for evaluation.
func (c *Context) Interpreter() *arith.Interpreter { return c.interp }

// Value returns the value bound to name, falling back to the field's default
// value when nothing is bound.
func (c *Context) Value(name string) (core.Value, bool) {
	if v, ok := c.values[name]; ok && !v.IsNone() {
		return v, true
	}
	if f, ok := c.schema.Field(name); ok && !f.DefaultValue.IsNone() {
		return f.DefaultValue, true
	}
	return core.Value{}, false
}

// defines reports whether name is a field or a bound value.
func (c *Context) defines(name string) bool {
	if _, ok := c.values[name]; ok {
		return true
	}
	_, ok := c.schema.Field(name)
	return ok
}
