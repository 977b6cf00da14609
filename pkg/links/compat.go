package links

import (
	"fmt"

	"github.com/leapstack-labs/leapcalc/pkg/core"
)

// AreTypesCompatible reports whether source may read its value from target.
// When it returns false, the string explains why.
func AreTypesCompatible(source, target core.Field) (bool, string) {
	if source.Type == core.FieldMaterial || target.Type == core.FieldMaterial {
		return false, "Material fields cannot be linked"
	}
	if source.Type != target.Type {
		return false, fmt.Sprintf("Incompatible field types: %s and %s", source.Type, target.Type)
	}

	switch source.Type {
	case core.FieldNumber:
		if source.UnitCategory != "" && target.UnitCategory != "" && source.UnitCategory != target.UnitCategory {
			return false, fmt.Sprintf("Incompatible units: %s and %s", source.UnitCategory, target.UnitCategory)
		}
		return true, ""
	case core.FieldBoolean, core.FieldDropdown, core.FieldText:
		return true, ""
	case core.FieldMaterial:
		return false, "Material fields cannot be linked"
	default:
		return false, fmt.Sprintf("Unknown field type '%s'", source.Type)
	}
}
