package formula

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapcalc/pkg/core"
)

func TestEvaluateComputedOutputs(t *testing.T) {
	fields := []core.Field{numberField("width", "m"), numberField("height", "m")}
	ctx := NewContext(fields, nil, map[string]core.Value{
		"width":  core.Number(2),
		"height": core.Number(3),
	})

	outputs := []core.ComputedOutput{
		{ID: "o1", Label: "Area", VariableName: "area", Expression: "width * height"},
		{ID: "o2", Label: "Perimeter", VariableName: "perimeter", Expression: "2 * (width + height)"},
		{ID: "o3", Label: "Ratio", VariableName: "ratio", Expression: "perimeter / area + 10 / 3"},
	}

	got := EvaluateComputedOutputs(outputs, ctx)
	require.True(t, got.OK())
	require.Len(t, got.Values, 3)

	assert.Equal(t, "area", got.Values[0].VariableName)
	assert.InDelta(t, 6.0, got.Values[0].Value, 1e-9)
	assert.InDelta(t, 10.0, got.Values[1].Value, 1e-9)
	// 10/6 + 10/3 = 5, rounded to two decimals
	assert.InDelta(t, 5.0, got.Values[2].Value, 1e-9)

	m := got.Map()
	assert.InDelta(t, 6.0, m["area"], 1e-9)
	assert.InDelta(t, 10.0, m["perimeter"], 1e-9)
}

func TestEvaluateComputedOutputs_RoundsToTwoDecimals(t *testing.T) {
	outputs := []core.ComputedOutput{
		{ID: "o1", VariableName: "third", Expression: "10 / 3"},
		{ID: "o2", VariableName: "again", Expression: "third * 3"},
	}
	got := EvaluateComputedOutputs(outputs, NewContext(nil, nil, nil))

	assert.InDelta(t, 3.33, got.Values[0].Value, 1e-9)
	// later outputs see the rounded value
	assert.InDelta(t, 9.99, got.Values[1].Value, 1e-9)
}

func TestEvaluateComputedOutputs_FailuresAreIsolated(t *testing.T) {
	outputs := []core.ComputedOutput{
		{ID: "o1", Label: "Bad", VariableName: "bad", Expression: "missing_thing * 2"},
		{ID: "o2", Label: "After", VariableName: "after", Expression: "bad + 1"},
		{ID: "o3", Label: "Zero", VariableName: "zero", Expression: "after / 0"},
	}
	got := EvaluateComputedOutputs(outputs, NewContext(nil, nil, nil))

	require.Len(t, got.Values, 3)
	assert.InDelta(t, 0.0, got.Values[0].Value, 1e-9)
	assert.InDelta(t, 1.0, got.Values[1].Value, 1e-9)
	assert.InDelta(t, 0.0, got.Values[2].Value, 1e-9)

	require.Len(t, got.Errors, 2)
	assert.Equal(t, "o1", got.Errors[0].OutputID)
	assert.Equal(t, "Bad", got.Errors[0].OutputLabel)
	assert.Equal(t, KindMissingVariables, got.Errors[0].Kind)
	assert.Equal(t, "Missing values for: missing_thing", got.Errors[0].Message)
	assert.Equal(t, "o3", got.Errors[1].OutputID)
	assert.Equal(t, KindNonFiniteResult, got.Errors[1].Kind)
}

func TestEvaluateComputedOutputs_OnlyEarlierOutputsAreVisible(t *testing.T) {
	outputs := []core.ComputedOutput{
		{ID: "o1", VariableName: "first", Expression: "second + 1"},
		{ID: "o2", VariableName: "second", Expression: "2"},
		{ID: "o3", VariableName: "third", Expression: "third + 1"},
	}
	base := NewContext(nil, nil, nil)
	got := EvaluateComputedOutputs(outputs, base)

	require.Len(t, got.Errors, 2)
	assert.Equal(t, "o1", got.Errors[0].OutputID)
	assert.Equal(t, "o3", got.Errors[1].OutputID)
	assert.InDelta(t, 2.0, got.Values[1].Value, 1e-9)

	// the caller's context is untouched
	_, ok := base.Value("second")
	assert.False(t, ok)
}
