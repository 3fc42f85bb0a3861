package domain

import (
	"encoding/json"
	"strings"
)

// FieldType is the declared type of a setting.
type FieldType string

const (
	FieldBool   FieldType = "bool"
	FieldString FieldType = "string" // single line input
	FieldText   FieldType = "text"   // textarea
	FieldRadio  FieldType = "radio"  // one of Definition.Options
)

// Value is a typed setting value. Only one of Bool or Str is meaningful,
// depending on Type.
type Value struct {
	Type FieldType
	Bool bool
	Str  string
}

func BoolValue(b bool) Value {
	return Value{Type: FieldBool, Bool: b}
}

func StringValue(s string) Value {
	return Value{Type: FieldString, Str: s}
}

func TextValue(s string) Value {
	return Value{Type: FieldText, Str: s}
}

// IsBool reports whether the value carries a boolean.
func (v Value) IsBool() bool {
	return v.Type == FieldBool
}

// Enabled is true for boolean true and for the string "1".
func (v Value) Enabled() bool {
	if v.IsBool() {
		return v.Bool
	}
	return v.Str == "1"
}

// String renders the value for display and string comparison.
func (v Value) String() string {
	if v.IsBool() {
		if v.Bool {
			return "1"
		}
		return "0"
	}
	return v.Str
}

// Equal compares two values by their meaning: booleans by truth, everything
// else by exact string.
func (v Value) Equal(o Value) bool {
	if v.IsBool() || o.IsBool() {
		return v.Enabled() == o.Enabled()
	}
	return v.Str == o.Str
}

// Encode turns the value into its stored representation.
func (v Value) Encode() string {
	return v.String()
}

// MarshalJSON renders booleans as JSON booleans and the rest as strings.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.IsBool() {
		return json.Marshal(v.Bool)
	}
	return json.Marshal(v.Str)
}

// Decode coerces a stored string into the type declared by t.
func Decode(t FieldType, raw string) Value {
	if t == FieldBool {
		return BoolValue(ParseBool(raw))
	}
	return Value{Type: t, Str: raw}
}

// ParseBool accepts the truthy spellings the settings table has historically held.
func ParseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
