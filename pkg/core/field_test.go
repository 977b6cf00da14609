package core

import (
	"testing"

	"github.com/leapstack-labs/leapcalc/pkg/units"
	"github.com/stretchr/testify/assert"
)

func TestFieldSetUnit(t *testing.T) {
	f := Field{VariableName: "width", Type: FieldNumber}

	f.SetUnit("ft")
	assert.Equal(t, "ft", f.UnitSymbol)
	assert.Equal(t, units.Length, f.UnitCategory)

	f.SetUnit("kg")
	assert.Equal(t, units.Weight, f.UnitCategory)

	f.SetUnit("")
	assert.Empty(t, f.UnitCategory)
}

func TestValidVariableName(t *testing.T) {
	valid := []string{"width", "_tmp", "mat_board2", "X"}
	invalid := []string{"", "2width", "mat-board", "a.b", "width "}

	for _, name := range valid {
		assert.True(t, ValidVariableName(name), name)
	}
	for _, name := range invalid {
		assert.False(t, ValidVariableName(name), name)
	}
}

func TestFieldTypeValid(t *testing.T) {
	for _, ft := range FieldTypes {
		assert.True(t, ft.Valid(), ft)
	}
	assert.False(t, FieldType("date").Valid())
}

func TestMaterialsInCategory(t *testing.T) {
	mats := []Material{
		{VariableName: "oak", Category: "lumber"},
		{VariableName: "pine", Category: "lumber"},
		{VariableName: "screws", Category: "hardware"},
	}

	assert.Len(t, MaterialsInCategory(mats, ""), 3)
	assert.Len(t, MaterialsInCategory(mats, "lumber"), 2)
	assert.Empty(t, MaterialsInCategory(mats, "paint"))

	idx := MaterialIndex(mats)
	assert.Equal(t, "hardware", idx["screws"].Category)
}

func TestWorkspaceLookup(t *testing.T) {
	ws := Workspace{
		Modules: []Module{{ID: "deck", Fields: []Field{{VariableName: "width"}}}},
		Quotes:  []Quote{{ID: "q1"}},
	}

	m, ok := ws.Module("deck")
	assert.True(t, ok)
	_, ok = m.Field("width")
	assert.True(t, ok)
	_, ok = m.Field("height")
	assert.False(t, ok)

	_, ok = ws.Quote("q2")
	assert.False(t, ok)
}
