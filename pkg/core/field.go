package core

import (
	"regexp"

	"github.com/leapstack-labs/leapcalc/pkg/units"
)

// FieldType is the closed set of input field kinds.
type FieldType string

// Field types.
const (
	FieldNumber   FieldType = "number"
	FieldText     FieldType = "text"
	FieldDropdown FieldType = "dropdown"
	FieldBoolean  FieldType = "boolean"
	FieldMaterial FieldType = "material"
)

// FieldTypes lists every field type.
var FieldTypes = []FieldType{FieldNumber, FieldText, FieldDropdown, FieldBoolean, FieldMaterial}

// Valid reports whether t is a known field type.
func (t FieldType) Valid() bool {
	switch t {
	case FieldNumber, FieldText, FieldDropdown, FieldBoolean, FieldMaterial:
		return true
	default:
		return false
	}
}

// DropdownMode controls whether a dropdown accepts values outside its options.
type DropdownMode string

// Dropdown modes.
const (
	DropdownSelect DropdownMode = "select"
	DropdownFree   DropdownMode = "free"
)

// Field is a typed input slot on a module. VariableName is the identifier
// formulas use to reference it.
type Field struct {
	ID               string         `json:"id"`
	Label            string         `json:"label"`
	VariableName     string         `json:"variable_name"`
	Type             FieldType      `json:"type"`
	Required         bool           `json:"required,omitempty"`
	Options          []string       `json:"options,omitempty"`
	DropdownMode     DropdownMode   `json:"dropdown_mode,omitempty"`
	DefaultValue     Value          `json:"default_value,omitempty"`
	UnitSymbol       string         `json:"unit_symbol,omitempty"`
	UnitCategory     units.Category `json:"unit_category,omitempty"`
	MaterialCategory string         `json:"material_category,omitempty"`
}

// SetUnit assigns the unit symbol and recomputes the unit category from it.
// An unknown or empty symbol clears the category.
func (f *Field) SetUnit(symbol string) {
	f.UnitSymbol = symbol
	f.UnitCategory = ""
	if c, ok := units.CategoryOf(symbol); ok {
		f.UnitCategory = c
	}
}

var variableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidVariableName reports whether name can be used as a formula identifier.
func ValidVariableName(name string) bool {
	return variableNamePattern.MatchString(name)
}
