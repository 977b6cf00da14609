package core

// PropertyType is the type of a material property.
type PropertyType string

// Property types.
const (
	PropertyNumber  PropertyType = "number"
	PropertyString  PropertyType = "string"
	PropertyBoolean PropertyType = "boolean"
)

// Valid reports whether t is a known property type.
func (t PropertyType) Valid() bool {
	switch t {
	case PropertyNumber, PropertyString, PropertyBoolean:
		return true
	default:
		return false
	}
}

// Property is a named attribute of a material.
type Property struct {
	Type  PropertyType `json:"type"`
	Value Value        `json:"value"`
	// BaseValue is the value already normalized to the unit's base unit.
	// Legacy catalogs only carry Value.
	BaseValue  *float64 `json:"base_value,omitempty"`
	UnitSymbol string   `json:"unit_symbol,omitempty"`
}

// Material is a catalog entry that formulas can reference by VariableName.
type Material struct {
	VariableName string              `json:"variable_name"`
	Name         string              `json:"name,omitempty"`
	Price        float64             `json:"price"`
	Category     string              `json:"category,omitempty"`
	Properties   map[string]Property `json:"properties,omitempty"`
}

// Property returns the named property.
func (m *Material) Property(name string) (Property, bool) {
	p, ok := m.Properties[name]
	return p, ok
}

// MaterialIndex indexes materials by variable name. Later entries win.
func MaterialIndex(materials []Material) map[string]*Material {
	idx := make(map[string]*Material, len(materials))
	for i := range materials {
		idx[materials[i].VariableName] = &materials[i]
	}
	return idx
}

// MaterialsInCategory returns the materials a field restricted to category may
// select. An empty category allows every material.
func MaterialsInCategory(materials []Material, category string) []Material {
	if category == "" {
		return materials
	}
	var out []Material
	for _, m := range materials {
		if m.Category == category {
			out = append(out, m)
		}
	}
	return out
}
