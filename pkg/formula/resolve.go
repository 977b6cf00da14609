package formula

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapcalc/pkg/core"
	"github.com/leapstack-labs/leapcalc/pkg/units"
)

// PriceProperty is readable on every material and yields its price.
const PriceProperty = "price"

// ResolveFieldProperty returns property prop of the material selected in the
// material field named field.
func (c *Context) ResolveFieldProperty(field, prop string) (float64, error) {
	v, ok := c.Value(field)
	if !ok || v.IsBlank() {
		return 0, NewMissingMaterialSelectionError(field)
	}
	selected, isString := v.AsString()
	if !isString {
		return 0, NewMissingMaterialSelectionError(field)
	}
	m, ok := c.schema.Material(strings.TrimSpace(selected))
	if !ok {
		return 0, NewMissingMaterialSelectionError(field)
	}
	if p, ok := m.Property(prop); ok {
		return PropertyNumber(p), nil
	}
	if prop == PriceProperty {
		return m.Price, nil
	}
	return 0, NewPropertyNotFoundError(field, prop,
		fmt.Sprintf("Property '%s' not found on material '%s' selected for '%s'", prop, m.VariableName, field))
}

// ResolveMaterialProperty returns property prop of the named material. A
// material without the property resolves to its price.
func (c *Context) ResolveMaterialProperty(material, prop string) (float64, bool) {
	m, ok := c.schema.Material(material)
	if !ok {
		return 0, false
	}
	if p, ok := m.Property(prop); ok {
		return PropertyNumber(p), true
	}
	return m.Price, true
}

// ResolveField returns the numeric value of a plain field or bound variable.
// It reports false when the value is missing, blank or not numeric.
func (c *Context) ResolveField(name string) (float64, bool) {
	v, ok := c.Value(name)
	if !ok || v.IsBlank() {
		return 0, false
	}
	switch v.Kind() {
	case core.ValueBool:
		b, _ := v.AsBool()
		return boolNumber(b), true
	case core.ValueNumber:
		f, _ := v.AsNumber()
		return f, isFinite(f)
	case core.ValueString:
		s, _ := v.AsString()
		s = strings.TrimSpace(s)
		if m, ok := c.schema.Material(s); ok {
			return m.Price, true
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || !isFinite(f) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// ResolveMaterial returns the price of the named material.
func (c *Context) ResolveMaterial(name string) (float64, bool) {
	m, ok := c.schema.Material(name)
	if !ok {
		return 0, false
	}
	return m.Price, true
}

// PropertyNumber coerces a material property to a number. Numeric properties
// are normalized to their unit's base unit.
func PropertyNumber(p core.Property) float64 {
	switch p.Type {
	case core.PropertyNumber:
		if p.BaseValue != nil {
			return *p.BaseValue
		}
		raw, ok := numberOf(p.Value)
		if !ok {
			return 0
		}
		return units.ToBase(raw, p.UnitSymbol)
	case core.PropertyBoolean:
		if b, ok := p.Value.AsBool(); ok {
			return boolNumber(b)
		}
		f, _ := numberOf(p.Value)
		return boolNumber(f != 0)
	case core.PropertyString:
		f, _ := numberOf(p.Value)
		return f
	default:
		f, _ := numberOf(p.Value)
		return f
	}
}

// numberOf reads a number from a numeric Value or from numeric text.
func numberOf(v core.Value) (float64, bool) {
	switch v.Kind() {
	case core.ValueNumber:
		f, _ := v.AsNumber()
		return f, true
	case core.ValueBool:
		b, _ := v.AsBool()
		return boolNumber(b), true
	case core.ValueString:
		s, _ := v.AsString()
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func boolNumber(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
