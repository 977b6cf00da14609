// Package units is the static registry of measurement units used by field and
// material metadata. Every unit belongs to one category and converts to and
// from that category's base unit with a fixed factor.
package units

import "sort"

// Category groups units that measure the same dimension.
type Category string

// Unit categories.
const (
	Length     Category = "length"
	Area       Category = "area"
	Volume     Category = "volume"
	Weight     Category = "weight"
	Percentage Category = "percentage"
	Count      Category = "count"
)

// Categories lists every category in display order.
var Categories = []Category{Length, Area, Volume, Weight, Percentage, Count}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case Length, Area, Volume, Weight, Percentage, Count:
		return true
	default:
		return false
	}
}

// Unitless reports whether values in c behave as plain scalars.
func (c Category) Unitless() bool {
	return c == Count || c == Percentage
}

// Unit is a single registered unit.
type Unit struct {
	Symbol   string
	Name     string
	Category Category
	// Factor is the number of base units in one of this unit.
	Factor float64
	// Alias marks an alternative spelling of another unit (m2 for m²).
	Alias bool
}

// ToBase converts a value expressed in u to the category base unit.
func (u Unit) ToBase(x float64) float64 {
	return x * u.Factor
}

// FromBase converts a base-unit value back to u.
func (u Unit) FromBase(x float64) float64 {
	return x / u.Factor
}

const (
	inch = 0.0254
	foot = 0.3048
	yard = 0.9144
)

var registry = buildRegistry([]Unit{
	{Symbol: "m", Name: "meter", Category: Length, Factor: 1},
	{Symbol: "mm", Name: "millimeter", Category: Length, Factor: 0.001},
	{Symbol: "cm", Name: "centimeter", Category: Length, Factor: 0.01},
	{Symbol: "km", Name: "kilometer", Category: Length, Factor: 1000},
	{Symbol: "in", Name: "inch", Category: Length, Factor: inch},
	{Symbol: "ft", Name: "foot", Category: Length, Factor: foot},
	{Symbol: "yd", Name: "yard", Category: Length, Factor: yard},

	{Symbol: "m²", Name: "square meter", Category: Area, Factor: 1},
	{Symbol: "mm²", Name: "square millimeter", Category: Area, Factor: 1e-6},
	{Symbol: "cm²", Name: "square centimeter", Category: Area, Factor: 1e-4},
	{Symbol: "in²", Name: "square inch", Category: Area, Factor: inch * inch},
	{Symbol: "ft²", Name: "square foot", Category: Area, Factor: foot * foot},
	{Symbol: "yd²", Name: "square yard", Category: Area, Factor: yard * yard},
	{Symbol: "m2", Name: "square meter", Category: Area, Factor: 1, Alias: true},
	{Symbol: "mm2", Name: "square millimeter", Category: Area, Factor: 1e-6, Alias: true},
	{Symbol: "cm2", Name: "square centimeter", Category: Area, Factor: 1e-4, Alias: true},
	{Symbol: "in2", Name: "square inch", Category: Area, Factor: inch * inch, Alias: true},
	{Symbol: "ft2", Name: "square foot", Category: Area, Factor: foot * foot, Alias: true},
	{Symbol: "sqft", Name: "square foot", Category: Area, Factor: foot * foot, Alias: true},
	{Symbol: "yd2", Name: "square yard", Category: Area, Factor: yard * yard, Alias: true},

	{Symbol: "m³", Name: "cubic meter", Category: Volume, Factor: 1},
	{Symbol: "cm³", Name: "cubic centimeter", Category: Volume, Factor: 1e-6},
	{Symbol: "mm³", Name: "cubic millimeter", Category: Volume, Factor: 1e-9},
	{Symbol: "L", Name: "liter", Category: Volume, Factor: 0.001},
	{Symbol: "mL", Name: "milliliter", Category: Volume, Factor: 1e-6},
	{Symbol: "in³", Name: "cubic inch", Category: Volume, Factor: inch * inch * inch},
	{Symbol: "ft³", Name: "cubic foot", Category: Volume, Factor: foot * foot * foot},
	{Symbol: "yd³", Name: "cubic yard", Category: Volume, Factor: yard * yard * yard},
	{Symbol: "gal", Name: "US gallon", Category: Volume, Factor: 0.003785411784},
	{Symbol: "m3", Name: "cubic meter", Category: Volume, Factor: 1, Alias: true},
	{Symbol: "cm3", Name: "cubic centimeter", Category: Volume, Factor: 1e-6, Alias: true},
	{Symbol: "in3", Name: "cubic inch", Category: Volume, Factor: inch * inch * inch, Alias: true},
	{Symbol: "ft3", Name: "cubic foot", Category: Volume, Factor: foot * foot * foot, Alias: true},
	{Symbol: "yd3", Name: "cubic yard", Category: Volume, Factor: yard * yard * yard, Alias: true},
	{Symbol: "l", Name: "liter", Category: Volume, Factor: 0.001, Alias: true},
	{Symbol: "ml", Name: "milliliter", Category: Volume, Factor: 1e-6, Alias: true},

	{Symbol: "kg", Name: "kilogram", Category: Weight, Factor: 1},
	{Symbol: "g", Name: "gram", Category: Weight, Factor: 0.001},
	{Symbol: "mg", Name: "milligram", Category: Weight, Factor: 1e-6},
	{Symbol: "t", Name: "metric ton", Category: Weight, Factor: 1000},
	{Symbol: "lb", Name: "pound", Category: Weight, Factor: 0.45359237},
	{Symbol: "oz", Name: "ounce", Category: Weight, Factor: 0.028349523125},

	{Symbol: "%", Name: "percent", Category: Percentage, Factor: 0.01},

	{Symbol: "ea", Name: "each", Category: Count, Factor: 1},
	{Symbol: "pcs", Name: "pieces", Category: Count, Factor: 1},
	{Symbol: "pair", Name: "pair", Category: Count, Factor: 2},
	{Symbol: "dozen", Name: "dozen", Category: Count, Factor: 12},
	{Symbol: "box", Name: "box", Category: Count, Factor: 1},
})

type table struct {
	bySymbol map[string]Unit
	ordered  []Unit
}

func buildRegistry(list []Unit) table {
	t := table{bySymbol: make(map[string]Unit, len(list)), ordered: list}
	for _, u := range list {
		t.bySymbol[u.Symbol] = u
	}
	return t
}

// Lookup returns the unit registered under symbol.
func Lookup(symbol string) (Unit, bool) {
	u, ok := registry.bySymbol[symbol]
	return u, ok
}

// CategoryOf returns the category of symbol, or false when the symbol is not
// registered.
func CategoryOf(symbol string) (Category, bool) {
	u, ok := registry.bySymbol[symbol]
	if !ok {
		return "", false
	}
	return u.Category, true
}

// ToBase converts value from symbol to its base unit. Unknown symbols are
// returned unchanged.
func ToBase(value float64, symbol string) float64 {
	if u, ok := registry.bySymbol[symbol]; ok {
		return u.ToBase(value)
	}
	return value
}

// FromBase converts a base-unit value to symbol. Unknown symbols are returned
// unchanged.
func FromBase(value float64, symbol string) float64 {
	if u, ok := registry.bySymbol[symbol]; ok {
		return u.FromBase(value)
	}
	return value
}

// Units returns every registered unit, grouped by category in display order.
// Aliases are included only when withAliases is set.
func Units(withAliases bool) []Unit {
	out := make([]Unit, 0, len(registry.ordered))
	for _, u := range registry.ordered {
		if u.Alias && !withAliases {
			continue
		}
		out = append(out, u)
	}
	rank := make(map[Category]int, len(Categories))
	for i, c := range Categories {
		rank[c] = i
	}
	sort.SliceStable(out, func(i, j int) bool {
		return rank[out[i].Category] < rank[out[j].Category]
	})
	return out
}

// InCategory returns the non-alias units of c.
func InCategory(c Category) []Unit {
	var out []Unit
	for _, u := range registry.ordered {
		if u.Category == c && !u.Alias {
			out = append(out, u)
		}
	}
	return out
}
