package units

// MultiplyCategories returns the category of a product.
//
// Unitless operands act as scalars. Products that have no registered
// dimension (weight × length, area × area) degrade to Count rather than
// failing.
func MultiplyCategories(a, b Category) Category {
	switch {
	case a.Unitless():
		return b
	case b.Unitless():
		return a
	case a == Length && b == Length:
		return Area
	case (a == Area && b == Length) || (a == Length && b == Area):
		return Volume
	default:
		return Count
	}
}

// DivideCategories returns the category of a quotient. The boolean is false
// when the division is dimensionally invalid: a unitless value divided by a
// unit, or two different dimensions.
func DivideCategories(a, b Category) (Category, bool) {
	switch {
	case a == b:
		return Count, true
	case b.Unitless():
		return a, true
	default:
		// unitless ÷ unit, or two different dimensions
		return "", false
	}
}

// CanAdd reports whether values in a and b may be added or subtracted.
func CanAdd(a, b Category) bool {
	if a == b || a.Unitless() || b.Unitless() {
		return true
	}
	return false
}
