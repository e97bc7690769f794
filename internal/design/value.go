package design

import (
	"encoding/json"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ValueKind tags the supported metadata value kinds.
type ValueKind int

const (
	KindText ValueKind = iota
	KindNumber
	KindBool
	KindMap
)

// Value is a tagged union over the value kinds a design may carry in its
// metadata and prompt state: text, number, boolean or a nested mapping.
// It replaces free-form any-typed dictionaries while keeping the same
// authoring flexibility.
type Value struct {
	kind    ValueKind
	text    string
	number  float64
	boolean bool
	mapping map[string]Value
}

// Text creates a text value.
func Text(s string) Value { return Value{kind: KindText, text: s} }

// Number creates a numeric value.
func Number(f float64) Value { return Value{kind: KindNumber, number: f} }

// Bool creates a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, boolean: b} }

// Mapping creates a nested mapping value.
func Mapping(m map[string]Value) Value { return Value{kind: KindMap, mapping: m} }

// Kind returns the tag of the value.
func (v Value) Kind() ValueKind { return v.kind }

// TextValue returns the text and whether the value is text.
func (v Value) TextValue() (string, bool) { return v.text, v.kind == KindText }

// NumberValue returns the number and whether the value is numeric.
func (v Value) NumberValue() (float64, bool) { return v.number, v.kind == KindNumber }

// BoolValue returns the boolean and whether the value is boolean.
func (v Value) BoolValue() (bool, bool) { return v.boolean, v.kind == KindBool }

// MapValue returns the nested mapping and whether the value is a mapping.
func (v Value) MapValue() (map[string]Value, bool) { return v.mapping, v.kind == KindMap }

// Interface converts the value into plain Go types for template rendering.
func (v Value) Interface() any {
	switch v.kind {
	case KindNumber:
		return v.number
	case KindBool:
		return v.boolean
	case KindMap:
		out := make(map[string]any, len(v.mapping))
		for k, nested := range v.mapping {
			out[k] = nested.Interface()
		}
		return out
	default:
		return v.text
	}
}

// String renders the value for prompt interpolation.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.number, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.boolean)
	case KindMap:
		b, _ := json.Marshal(v.Interface())
		return string(b)
	default:
		return v.text
	}
}

// MarshalJSON encodes the value as its natural JSON type.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// UnmarshalJSON decodes scalars and nested objects; arrays are rejected.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	return v.fromAny(raw)
}

// UnmarshalYAML decodes scalars and nested mappings; sequences are rejected.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	return v.fromAny(raw)
}

func (v *Value) fromAny(raw any) error {
	switch val := raw.(type) {
	case string:
		*v = Text(val)
	case float64:
		*v = Number(val)
	case int:
		*v = Number(float64(val))
	case bool:
		*v = Bool(val)
	case map[string]any:
		m := make(map[string]Value, len(val))
		for k, nested := range val {
			var nv Value
			if err := nv.fromAny(nested); err != nil {
				return fmt.Errorf("key %q: %w", k, err)
			}
			m[k] = nv
		}
		*v = Mapping(m)
	case nil:
		*v = Text("")
	default:
		return fmt.Errorf("unsupported value type %T (use text, number, bool or mapping)", raw)
	}
	return nil
}
