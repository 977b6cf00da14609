package formula

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapcalc/pkg/units"
)

// Kind is a stable code identifying a class of formula error.
type Kind string

// Error kinds.
const (
	KindSyntax                   Kind = "syntax_error"
	KindUndefinedVariable        Kind = "undefined_variable"
	KindPropertyNotFound         Kind = "property_not_found"
	KindMissingMaterialSelection Kind = "missing_material_selection"
	KindMissingVariables         Kind = "missing_variables"
	KindUnitIncompatibility      Kind = "unit_incompatibility"
	KindNonFiniteResult          Kind = "non_finite_result"
	KindLinkRejected             Kind = "link_rejected"
)

// Error is the interface implemented by every formula error. Error() returns
// a message ready to show to a user.
type Error interface {
	error
	Kind() Kind
}

type baseError struct {
	kind Kind
	msg  string
}

func (e *baseError) Kind() Kind    { return e.kind }
func (e *baseError) Error() string { return e.msg }

// SyntaxError reports an expression the interpreter cannot run.
type SyntaxError struct {
	baseError
	Expr  string
	Cause error // Underlying interpreter error, if any
}

// NewSyntaxError creates a syntax error with a readable message.
func NewSyntaxError(expr, msg string, cause error) *SyntaxError {
	return &SyntaxError{baseError: baseError{kind: KindSyntax, msg: msg}, Expr: expr, Cause: cause}
}

func (e *SyntaxError) Unwrap() error { return e.Cause }

// UndefinedVariableError reports a name that is not a field, a material, a
// function or a constant.
type UndefinedVariableError struct {
	baseError
	Name string
}

// NewUndefinedVariableError creates an undefined variable error.
func NewUndefinedVariableError(name string) *UndefinedVariableError {
	return &UndefinedVariableError{
		baseError: baseError{kind: KindUndefinedVariable, msg: fmt.Sprintf("Unknown variable '%s'", name)},
		Name:      name,
	}
}

// NewUnknownFunctionError creates an undefined variable error for a name
// used as a function.
func NewUnknownFunctionError(name string) *UndefinedVariableError {
	return &UndefinedVariableError{
		baseError: baseError{kind: KindUndefinedVariable, msg: fmt.Sprintf("Unknown function '%s'", name)},
		Name:      name,
	}
}

// PropertyNotFoundError reports a dotted reference whose property does not
// exist on the relevant material or materials.
type PropertyNotFoundError struct {
	baseError
	Base     string
	Property string
}

// NewPropertyNotFoundError creates a property error with a custom message.
func NewPropertyNotFoundError(base, property, msg string) *PropertyNotFoundError {
	return &PropertyNotFoundError{
		baseError: baseError{kind: KindPropertyNotFound, msg: msg},
		Base:      base,
		Property:  property,
	}
}

// MissingMaterialSelectionError reports a property read through a material
// field that has no material selected.
type MissingMaterialSelectionError struct {
	baseError
	Field string
}

// NewMissingMaterialSelectionError creates a missing selection error.
func NewMissingMaterialSelectionError(field string) *MissingMaterialSelectionError {
	return &MissingMaterialSelectionError{
		baseError: baseError{kind: KindMissingMaterialSelection, msg: fmt.Sprintf("No material selected for '%s'", field)},
		Field:     field,
	}
}

// MissingVariablesError lists every reference that could not be given a value.
type MissingVariablesError struct {
	baseError
	Names []string
}

// NewMissingVariablesError creates an error naming all unresolved references.
func NewMissingVariablesError(names []string) *MissingVariablesError {
	return &MissingVariablesError{
		baseError: baseError{kind: KindMissingVariables, msg: "Missing values for: " + strings.Join(names, ", ")},
		Names:     names,
	}
}

// UnitIncompatibilityError reports an operation across incompatible unit
// categories.
type UnitIncompatibilityError struct {
	baseError
	Left, Right units.Category
	Op          string
}

// NewUnitIncompatibilityError creates a unit error for the operation
// left op right.
func NewUnitIncompatibilityError(left units.Category, op string, right units.Category) *UnitIncompatibilityError {
	var msg string
	switch op {
	case "/":
		msg = fmt.Sprintf("Cannot divide %s by %s", left, right)
	case "-":
		msg = fmt.Sprintf("Cannot subtract %s from %s", right, left)
	default:
		msg = fmt.Sprintf("Cannot add %s and %s", left, right)
	}
	return &UnitIncompatibilityError{
		baseError: baseError{kind: KindUnitIncompatibility, msg: msg},
		Left:      left,
		Right:     right,
		Op:        op,
	}
}

// NonFiniteResultError reports a NaN or infinite result.
type NonFiniteResultError struct {
	baseError
	Value float64
}

func newNonFiniteResultError(v float64, msg string) *NonFiniteResultError {
	return &NonFiniteResultError{baseError: baseError{kind: KindNonFiniteResult, msg: msg}, Value: v}
}

// LinkRejectedError reports a link that cannot be created.
type LinkRejectedError struct {
	baseError
}

// NewLinkRejectedError creates a link rejection with the given reason.
func NewLinkRejectedError(msg string) *LinkRejectedError {
	return &LinkRejectedError{baseError: baseError{kind: KindLinkRejected, msg: msg}}
}

// KindOf returns the kind of err, or "" if err is not a formula error.
func KindOf(err error) Kind {
	var fe Error
	if errors.As(err, &fe) {
		return fe.Kind()
	}
	return ""
}

// IsSyntax reports whether err is a syntax error.
func IsSyntax(err error) bool { return KindOf(err) == KindSyntax }

// IsPropertyNotFound reports whether err is a missing property error.
func IsPropertyNotFound(err error) bool { return KindOf(err) == KindPropertyNotFound }

// IsMissingMaterialSelection reports whether err is a missing selection error.
func IsMissingMaterialSelection(err error) bool { return KindOf(err) == KindMissingMaterialSelection }

// IsMissingVariables reports whether err is a missing variables error.
func IsMissingVariables(err error) bool { return KindOf(err) == KindMissingVariables }

// IsNonFiniteResult reports whether err is a NaN or infinity error.
func IsNonFiniteResult(err error) bool { return KindOf(err) == KindNonFiniteResult }
