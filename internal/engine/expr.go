package engine

import (
	"sort"

	"github.com/leapstack-labs/leapcalc/pkg/core"
	"github.com/leapstack-labs/leapcalc/pkg/formula"
	"github.com/leapstack-labs/leapcalc/pkg/lint"
)

// fieldsFor returns the fields of moduleID, or none for an empty ID.
func (e *Engine) fieldsFor(moduleID string) ([]core.Field, error) {
	if moduleID == "" {
		return nil, nil
	}
	m, err := e.Module(moduleID)
	if err != nil {
		return nil, err
	}
	return m.Fields, nil
}

// Evaluate evaluates expr against the fields of moduleID and the catalog.
// Values bind field names; names that are not fields become free variables.
func (e *Engine) Evaluate(expr, moduleID string, values map[string]core.Value) (float64, error) {
	fields, err := e.fieldsFor(moduleID)
	if err != nil {
		return 0, err
	}
	e.logger.Debug("evaluating expression", "module", moduleID, "values", len(values))
	return e.newContext(fields, values).Evaluate(expr)
}

// Validate statically checks expr against the fields of moduleID. Names in
// known are accepted as variables in addition to the fields.
func (e *Engine) Validate(expr, moduleID string, known ...string) (lint.Result, error) {
	fields, err := e.fieldsFor(moduleID)
	if err != nil {
		return lint.Result{}, err
	}
	return lint.Validate(expr, fields, e.Workspace().Materials, e.lintOptions(lint.WithKnownVariables(known...))...), nil
}

// Diagnostics returns every validator finding for expr.
func (e *Engine) Diagnostics(expr, moduleID string, known ...string) ([]lint.Diagnostic, error) {
	fields, err := e.fieldsFor(moduleID)
	if err != nil {
		return nil, err
	}
	return lint.Diagnostics(expr, fields, e.Workspace().Materials, e.lintOptions(lint.WithKnownVariables(known...))...), nil
}

// Analyze reports the references and functions expr uses.
func (e *Engine) Analyze(expr, moduleID string) (formula.Analysis, error) {
	fields, err := e.fieldsFor(moduleID)
	if err != nil {
		return formula.Analysis{}, err
	}
	return formula.Analyze(expr, fields, e.Workspace().Materials), nil
}

// KnownNames returns the names an expression on moduleID may reference:
// fields, materials and registry functions and constants, sorted. It feeds
// completion in the REPL.
func (e *Engine) KnownNames(moduleID string) []string {
	seen := make(map[string]bool)
	if fields, err := e.fieldsFor(moduleID); err == nil {
		for _, f := range fields {
			seen[f.VariableName] = true
		}
	}
	for _, m := range e.Workspace().Materials {
		seen[m.VariableName] = true
	}
	for _, name := range e.interp.Names() {
		seen[name] = true
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
