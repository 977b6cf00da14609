package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueOf(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		want    Value
		wantErr bool
	}{
		{"nil", nil, Value{}, false},
		{"float", 2.5, Number(2.5), false},
		{"int", 3, Number(3), false},
		{"int64", int64(7), Number(7), false},
		{"json number", json.Number("1.25"), Number(1.25), false},
		{"string", "mat_board", String("mat_board"), false},
		{"bool", true, Bool(true), false},
		{"slice", []string{"a"}, Value{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValueOf(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseValue(t *testing.T) {
	assert.Equal(t, Bool(true), ParseValue("true"))
	assert.Equal(t, Bool(false), ParseValue(" FALSE "))
	assert.Equal(t, Number(12.5), ParseValue("12.5"))
	assert.Equal(t, String("mat_board"), ParseValue("mat_board"))
}

func TestValueJSON(t *testing.T) {
	in := map[string]Value{
		"width":    Number(2),
		"material": String("mat_board"),
		"painted":  Bool(true),
		"empty":    {},
	}
	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"width":2,"material":"mat_board","painted":true,"empty":null}`, string(data))

	var out map[string]Value
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestValueBlank(t *testing.T) {
	assert.True(t, Value{}.IsBlank())
	assert.True(t, String("  ").IsBlank())
	assert.False(t, String("x").IsBlank())
	assert.False(t, Number(0).IsBlank())
	assert.Equal(t, "0.1", Number(0.1).String())
	assert.Equal(t, "boolean", Bool(false).Kind().String())
}
