package lint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapcalc/pkg/core"
	"github.com/leapstack-labs/leapcalc/pkg/formula"
)

func field(name string, typ core.FieldType, unit, category string) core.Field {
	f := core.Field{ID: name, Label: name, VariableName: name, Type: typ, MaterialCategory: category}
	f.SetUnit(unit)
	return f
}

func prop(v float64, unit string) core.Property {
	return core.Property{Type: core.PropertyNumber, Value: core.Number(v), UnitSymbol: unit}
}

func fixtures() ([]core.Field, []core.Material) {
	fields := []core.Field{
		field("material", core.FieldMaterial, "", "wood"),
		field("any_mat", core.FieldMaterial, "", ""),
		field("width", core.FieldNumber, "m", ""),
		field("depth", core.FieldNumber, "cm", ""),
		field("weight", core.FieldNumber, "kg", ""),
		field("qty", core.FieldNumber, "ea", ""),
		field("pct", core.FieldNumber, "%", ""),
		field("label", core.FieldText, "", ""),
	}
	materials := []core.Material{
		{VariableName: "mat_board", Price: 5, Category: "wood", Properties: map[string]core.Property{
			"width":  prop(5, "mm"),
			"length": prop(2400, "mm"),
		}},
		{VariableName: "mat_steel", Price: 12, Category: "metal", Properties: map[string]core.Property{
			"thickness": prop(3, "mm"),
			"mass":      prop(10, "kg"),
		}},
	}
	return fields, materials
}

func TestValidate_Valid(t *testing.T) {
	fields, materials := fixtures()

	for _, expr := range []string{
		"width * depth + qty",
		"width / depth",
		"width / qty",
		"width + qty",
		"width * pct",
		"width * weight",
		"material.width + width",
		"material.price * qty",
		"any_mat.thickness",
		"mat_steel.price + mat_steel",
		"mat_board.length - width",
		"round(width, 2) + pi",
		"width / 0",
		"max(width, depth) > 2",
		"width + weight * qty",
		"qty * width / depth",
		"(qty > 10) * 5",
		"(width > depth) + (qty < pct)",
		"round(qty > 10)",
		"-5 / 0",
		"0 / 0",
	} {
		t.Run(expr, func(t *testing.T) {
			res := Validate(expr, fields, materials)
			assert.True(t, res.Valid, "unexpected error: %s", res.Error)
			assert.Empty(t, res.Error)
		})
	}
}

func TestValidate_Invalid(t *testing.T) {
	fields, materials := fixtures()

	tests := []struct {
		expr  string
		error string
		rule  string
		kind  formula.Kind
	}{
		{"material.thickness", "Property 'thickness' not found on any material in category 'wood' for field 'material'", "LC01", formula.KindPropertyNotFound},
		{"any_mat.color", "Property 'color' not found on any material for field 'any_mat'", "LC01", formula.KindPropertyNotFound},
		{"width.x", "Field 'width' is a number field and has no property 'x'", "LC01", formula.KindPropertyNotFound},
		{"mat_steel.width", "Material 'mat_steel' has no property 'width'", "LC02", formula.KindPropertyNotFound},
		{"foo + 1", "Unknown variable 'foo'", "LC03", formula.KindUndefinedVariable},
		{"bar.baz", "Unknown variable 'bar'", "LC03", formula.KindUndefinedVariable},
		{"foo(1)", "Unknown function 'foo'", "LC03", formula.KindUndefinedVariable},
		{"width(2)", "Unknown function 'width'", "LC03", formula.KindUndefinedVariable},
		{"width + weight", "Cannot add length and weight ('width' is length, 'weight' is weight)", "LC04", formula.KindUnitIncompatibility},
		{"width - weight", "Cannot subtract weight from length ('width' is length, 'weight' is weight)", "LC04", formula.KindUnitIncompatibility},
		{"qty / width", "Cannot divide count by length ('qty' is count, 'width' is length)", "LC04", formula.KindUnitIncompatibility},
		{"material.width / weight", "Cannot divide length by weight ('material.width' is length, 'weight' is weight)", "LC04", formula.KindUnitIncompatibility},
		{"mat_steel.mass + depth", "Cannot add weight and length ('mat_steel.mass' is weight, 'depth' is length)", "LC04", formula.KindUnitIncompatibility},
		{"width +", "Incomplete expression: ends with '+'", "LC05", formula.KindSyntax},
		{"(width + 2", "Unbalanced parentheses: missing ')'", "LC05", formula.KindSyntax},
		{"width depth", "Missing operator between 'width' and 'depth'", "LC05", formula.KindSyntax},
		{"round()", "round() expects 1 or 2 arguments, got 0", "LC05", formula.KindSyntax},
		{"", "Expression is empty", "LC05", formula.KindSyntax},
		{"1 < qty < 20", "Chained comparison '1 < qty < 20': compare one pair at a time, e.g. (a < b) * (b < c)", "LC05", formula.KindSyntax},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			res := Validate(tt.expr, fields, materials)
			require.False(t, res.Valid)
			assert.Equal(t, tt.error, res.Error)
			assert.Equal(t, tt.rule, res.RuleID)
			assert.Equal(t, tt.kind, res.Kind)
		})
	}
}

func TestValidate_FirstFailureWins(t *testing.T) {
	fields, materials := fixtures()

	res := Validate("foo + width.x", fields, materials)
	require.False(t, res.Valid)
	assert.Equal(t, "LC01", res.RuleID)
}

func TestValidate_KnownVariables(t *testing.T) {
	fields, materials := fixtures()

	assert.False(t, Validate("area * 2", fields, materials).Valid)
	assert.True(t, Validate("area * 2", fields, materials, WithKnownVariables("area")).Valid)
}

func TestDiagnostics(t *testing.T) {
	fields, materials := fixtures()
	expr := "foo + bar + width + weight"

	diags := Diagnostics(expr, fields, materials)
	require.Len(t, diags, 3)
	assert.Equal(t, "LC03", diags[0].RuleID)
	assert.Equal(t, "Unknown variable 'foo'", diags[0].Message)
	assert.Equal(t, "LC03", diags[1].RuleID)
	assert.Equal(t, "LC04", diags[2].RuleID)
	assert.Equal(t, formula.KindUnitIncompatibility, diags[2].Kind())
	assert.Equal(t, 12, diags[2].Span.Start.Offset)
	assert.Equal(t, 26, diags[2].Span.End.Offset)

	cfg := NewConfig().Disable("LC04")
	assert.Len(t, Diagnostics(expr, fields, materials, WithConfig(cfg)), 2)

	cfg = NewConfig().SetSeverity("LC03", core.SeverityWarning)
	res := Validate(expr, fields, materials, WithConfig(cfg))
	require.False(t, res.Valid)
	assert.Equal(t, "LC04", res.RuleID)
}

func TestRegistry(t *testing.T) {
	rules := GetAll()
	require.Len(t, rules, 5)
	for i, id := range []string{"LC01", "LC02", "LC03", "LC04", "LC05"} {
		assert.Equal(t, id, rules[i].ID)
	}

	r, ok := GetByID("LC03")
	require.True(t, ok)
	assert.Equal(t, "references.undefined", r.Name)
	assert.Len(t, GetByGroup("references"), 3)

	_, ok = GetByID("LC99")
	assert.False(t, ok)
}

func TestValidateComputedOutputs(t *testing.T) {
	fields, materials := fixtures()
	module := func(third string) core.Module {
		return core.Module{
			ID:     "m",
			Fields: fields,
			ComputedOutputs: []core.ComputedOutput{
				{ID: "o0", Label: "A", VariableName: "a", Expression: "width * 2"},
				{ID: "o1", Label: "B", VariableName: "b", Expression: "a + 1"},
				{ID: "o2", Label: "C", VariableName: "c", Expression: third},
				{ID: "o3", Label: "D", VariableName: "d", Expression: "width"},
			},
		}
	}

	t.Run("forward reference fails", func(t *testing.T) {
		res := ValidateComputedOutputs(module("d + 1"), materials)
		require.False(t, res.Valid)
		assert.Equal(t, "Output 'C': references 'd', which is computed later", res.Error)
	})

	t.Run("earlier references pass", func(t *testing.T) {
		assert.True(t, ValidateComputedOutputs(module("a + 1"), materials).Valid)
		assert.True(t, ValidateComputedOutputs(module("b * 2"), materials).Valid)
		assert.True(t, ValidateComputedOutputs(module("a + b + material.width"), materials).Valid)
	})

	t.Run("self reference fails", func(t *testing.T) {
		res := ValidateComputedOutputs(module("c + 1"), materials)
		require.False(t, res.Valid)
		assert.Equal(t, "Output 'C': references itself", res.Error)
	})

	t.Run("expression errors are prefixed", func(t *testing.T) {
		res := ValidateComputedOutputs(module("zzz + 1"), materials)
		require.False(t, res.Valid)
		assert.Equal(t, "Output 'C': Unknown variable 'zzz'", res.Error)
		assert.Equal(t, "LC03", res.RuleID)
	})

	t.Run("name clashes with field", func(t *testing.T) {
		m := module("a")
		m.ComputedOutputs[3].VariableName = "width"
		res := ValidateComputedOutputs(m, materials)
		require.False(t, res.Valid)
		assert.Contains(t, res.Error, "already used by a field")
	})
}
