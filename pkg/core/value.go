package core

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ValueKind identifies which member of a Value is set.
type ValueKind int

// Value kinds.
const (
	ValueNone ValueKind = iota
	ValueNumber
	ValueString
	ValueBool
)

// String returns the string representation of the kind.
func (k ValueKind) String() string {
	switch k {
	case ValueNone:
		return "none"
	case ValueNumber:
		return "number"
	case ValueString:
		return "string"
	case ValueBool:
		return "boolean"
	default:
		return "unknown"
	}
}

// Value is a field value or property value: a number, a string or a boolean.
// The zero Value is "no value".
type Value struct {
	kind ValueKind
	num  float64
	str  string
	b    bool
}

// Number returns a numeric Value.
func Number(f float64) Value { return Value{kind: ValueNumber, num: f} }

// String returns a string Value.
func String(s string) Value { return Value{kind: ValueString, str: s} }

// Bool returns a boolean Value.
func Bool(b bool) Value { return Value{kind: ValueBool, b: b} }

// Kind returns the kind of v.
func (v Value) Kind() ValueKind { return v.kind }

// IsNone reports whether v holds nothing.
func (v Value) IsNone() bool { return v.kind == ValueNone }

// IsBlank reports whether v holds nothing or an all-whitespace string.
func (v Value) IsBlank() bool {
	return v.kind == ValueNone || (v.kind == ValueString && strings.TrimSpace(v.str) == "")
}

// AsNumber returns the number held by v.
func (v Value) AsNumber() (float64, bool) { return v.num, v.kind == ValueNumber }

// AsString returns the string held by v.
func (v Value) AsString() (string, bool) { return v.str, v.kind == ValueString }

// AsBool returns the boolean held by v.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == ValueBool }

// String formats v for display.
func (v Value) String() string {
	switch v.kind {
	case ValueNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case ValueString:
		return v.str
	case ValueBool:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}

// Interface returns v as a plain Go value (float64, string, bool or nil).
func (v Value) Interface() any {
	switch v.kind {
	case ValueNumber:
		return v.num
	case ValueString:
		return v.str
	case ValueBool:
		return v.b
	default:
		return nil
	}
}

// ValueOf converts a decoded document value into a Value.
func ValueOf(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Value{}, nil
	case Value:
		return t, nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Number(float64(t)), nil
	case int32:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case uint:
		return Number(float64(t)), nil
	case uint32:
		return Number(float64(t)), nil
	case uint64:
		return Number(float64(t)), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", t.String(), err)
		}
		return Number(f), nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %T", x)
	}
}

// ParseValue interprets command-line text: true/false become booleans,
// numeric text becomes a number, anything else stays a string.
func ParseValue(s string) Value {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true":
		return Bool(true)
	case "false":
		return Bool(false)
	}
	if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		return Number(f)
	}
	return String(s)
}

// MarshalJSON encodes v as a JSON number, string, boolean or null.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// UnmarshalJSON decodes a JSON scalar into v.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	var x any
	if err := dec.Decode(&x); err != nil {
		return err
	}
	parsed, err := ValueOf(x)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
