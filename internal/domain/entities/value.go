package entities

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ValueKind tags the variant held by a Value
type ValueKind string

const (
	ValueKindNull   ValueKind = "null"
	ValueKindString ValueKind = "string"
	ValueKindNumber ValueKind = "number"
	ValueKindBool   ValueKind = "bool"
)

// Value is a field value: string, number, bool or null. The zero Value is null.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	flag bool
}

// NullValue returns the null value
func NullValue() Value { return Value{kind: ValueKindNull} }

// StringValue wraps a text value
func StringValue(s string) Value { return Value{kind: ValueKindString, str: s} }

// NumberValue wraps a numeric value
func NumberValue(f float64) Value { return Value{kind: ValueKindNumber, num: f} }

// BoolValue wraps a boolean value
func BoolValue(b bool) Value { return Value{kind: ValueKindBool, flag: b} }

// ValueFrom converts a decoded JSON scalar into a Value. Objects and arrays are rejected.
func ValueFrom(raw any) (Value, error) {
	switch v := raw.(type) {
	case nil:
		return NullValue(), nil
	case Value:
		return v, nil
	case string:
		return StringValue(v), nil
	case bool:
		return BoolValue(v), nil
	case float64:
		return NumberValue(v), nil
	case float32:
		return NumberValue(float64(v)), nil
	case int:
		return NumberValue(float64(v)), nil
	case int64:
		return NumberValue(float64(v)), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", v, err)
		}
		return NumberValue(f), nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %T: only string, number, bool or null are allowed", raw)
	}
}

// Kind returns the variant tag
func (v Value) Kind() ValueKind {
	if v.kind == "" {
		return ValueKindNull
	}
	return v.kind
}

// IsNull reports whether the value is null
func (v Value) IsNull() bool { return v.Kind() == ValueKindNull }

// IsEmpty reports whether the value means "no value": null or blank text
func (v Value) IsEmpty() bool {
	switch v.Kind() {
	case ValueKindNull:
		return true
	case ValueKindString:
		return strings.TrimSpace(v.str) == ""
	default:
		return false
	}
}

// AsString returns the text payload
func (v Value) AsString() (string, bool) {
	return v.str, v.Kind() == ValueKindString
}

// AsNumber returns the numeric payload
func (v Value) AsNumber() (float64, bool) {
	return v.num, v.Kind() == ValueKindNumber
}

// AsBool returns the boolean payload
func (v Value) AsBool() (bool, bool) {
	return v.flag, v.Kind() == ValueKindBool
}

// Truthy is true for bool true, and for text "true"/"yes"/"1" as entered in spreadsheets
func (v Value) Truthy() bool {
	switch v.Kind() {
	case ValueKindBool:
		return v.flag
	case ValueKindString:
		switch strings.ToLower(strings.TrimSpace(v.str)) {
		case "true", "yes", "y", "1":
			return true
		}
	case ValueKindNumber:
		return v.num != 0
	}
	return false
}

// Equal compares values the way diffs do: text is compared trimmed and
// case-sensitive, numbers and bools exactly, and null equals blank text.
func (v Value) Equal(o Value) bool {
	if v.IsEmpty() || o.IsEmpty() {
		return v.IsEmpty() && o.IsEmpty()
	}
	if v.Kind() != o.Kind() {
		return false
	}
	switch v.Kind() {
	case ValueKindString:
		return strings.TrimSpace(v.str) == strings.TrimSpace(o.str)
	case ValueKindNumber:
		return v.num == o.num
	case ValueKindBool:
		return v.flag == o.flag
	}
	return false
}

// String renders the value for display and quote spans
func (v Value) String() string {
	switch v.Kind() {
	case ValueKindString:
		return v.str
	case ValueKindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case ValueKindBool:
		return strconv.FormatBool(v.flag)
	default:
		return ""
	}
}

// Interface returns the plain Go representation
func (v Value) Interface() any {
	switch v.Kind() {
	case ValueKindString:
		return v.str
	case ValueKindNumber:
		return v.num
	case ValueKindBool:
		return v.flag
	default:
		return nil
	}
}

// MarshalJSON implements json.Marshaler
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// UnmarshalJSON implements json.Unmarshaler
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ValueFrom(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Value implements driver.Valuer; values are stored as JSON
func (v Value) Value() (driver.Value, error) {
	data, err := v.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner
func (v *Value) Scan(src any) error {
	switch s := src.(type) {
	case nil:
		*v = NullValue()
		return nil
	case []byte:
		return v.UnmarshalJSON(s)
	case string:
		return v.UnmarshalJSON([]byte(s))
	default:
		return fmt.Errorf("cannot scan %T into Value", src)
	}
}

// Fields maps field names to their current values
type Fields map[string]Value

// Get returns the named value, null when absent
func (f Fields) Get(name string) Value {
	if f == nil {
		return NullValue()
	}
	return f[name]
}

// Has reports whether the named field holds a non-empty value
func (f Fields) Has(name string) bool {
	return !f.Get(name).IsEmpty()
}

// Clone returns a shallow copy; Values are immutable so this is a full copy
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Names returns the field names in sorted order
func (f Fields) Names() []string {
	names := make([]string, 0, len(f))
	for k := range f {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Value implements driver.Valuer
func (f Fields) Value() (driver.Value, error) {
	if f == nil {
		return "{}", nil
	}
	data, err := json.Marshal(map[string]Value(f))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner
func (f *Fields) Scan(src any) error {
	var data []byte
	switch s := src.(type) {
	case nil:
		*f = Fields{}
		return nil
	case []byte:
		data = s
	case string:
		data = []byte(s)
	default:
		return fmt.Errorf("cannot scan %T into Fields", src)
	}
	out := Fields{}
	if err := json.Unmarshal(data, (*map[string]Value)(&out)); err != nil {
		return err
	}
	*f = out
	return nil
}
