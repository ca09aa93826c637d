package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ValueKind tags the variant held by a Value.
type ValueKind uint8

const (
	ValueNull ValueKind = iota
	ValueString
	ValueNumber
	ValueBool
	// ValueRaw holds a nested JSON object or array, passed through verbatim.
	ValueRaw
)

// Value is a single feature attribute.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	b    bool
	raw  json.RawMessage
}

func NullValue() Value { return Value{kind: ValueNull} }
func StringValue(s string) Value { return Value{kind: ValueString, str: s} }
func NumberValue(f float64) Value { return Value{kind: ValueNumber, num: f} }
func BoolValue(b bool) Value { return Value{kind: ValueBool, b: b} }
func RawValue(r []byte) Value { return Value{kind: ValueRaw, raw: append(json.RawMessage(nil), r...)} }
func (v Value) Kind() ValueKind { return v.kind }
func (v Value) IsNull() bool { return v.kind == ValueNull }
func (v Value) Str() (string, bool) { return v.str, v.kind == ValueString }
func (v Value) Bool() (bool, bool) { return v.b, v.kind == ValueBool }

// Number returns the numeric payload.
func (v Value) Number() (float64, bool) { return v.num, v.kind == ValueNumber }

// Float interprets the value as a number, accepting numeric strings.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case ValueNumber:
		return v.num, true
	case ValueString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64)
		return f, err == nil
	}
	return 0, false
}

func (v Value) String() string {
	switch v.kind {
	case ValueString:
		return v.str
	case ValueNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case ValueBool:
		return strconv.FormatBool(v.b)
	case ValueRaw:
		return string(v.raw)
	}
	return "null"
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case ValueString:
		return json.Marshal(v.str)
	case ValueNumber:
		return json.Marshal(v.num)
	case ValueBool:
		return json.Marshal(v.b)
	case ValueRaw:
		return v.raw, nil
	}
	return []byte("null"), nil
}

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty attribute value")
	}
	switch data[0] {
	case 'n':
		*v = NullValue()
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = BoolValue(b)
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = StringValue(s)
	case '{', '[':
		*v = RawValue(data)
	default:
		f, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("attribute value %s: %w", data, err)
		}
		*v = NumberValue(f)
	}
	return nil
}

// Property is one named attribute.
type Property struct {
	Key   string
	Value Value
}

// Properties is an insertion-ordered attribute bag. Attribute counts are
// small, so lookups are linear.
type Properties []Property

func (p Properties) Get(key string) (Value, bool) {
	for _, prop := range p {
		if prop.Key == key {
			return prop.Value, true
		}
	}
	return Value{}, false
}

func (p Properties) Has(key string) bool {
	_, ok := p.Get(key)
	return ok
}

// Set replaces the value of an existing key in place, or appends it.
func (p *Properties) Set(key string, v Value) {
	for i := range *p {
		if (*p)[i].Key == key {
			(*p)[i].Value = v
			return
		}
	}
	*p = append(*p, Property{Key: key, Value: v})
}

func (p Properties) Keys() []string {
	keys := make([]string, len(p))
	for i, prop := range p {
		keys[i] = prop.Key
	}
	return keys
}

// Clone returns a copy that can be modified independently.
func (p Properties) Clone() Properties {
	if p == nil {
		return nil
	}
	return append(Properties(make([]Property, 0, len(p))), p...)
}

func (p Properties) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, prop := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(prop.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := prop.Value.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object keeping the key order of the source.
func (p *Properties) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*p = Properties{}
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("properties must be an object")
	}

	props := Properties{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("properties: unexpected token %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("properties %q: %w", key, err)
		}
		var v Value
		if err := v.UnmarshalJSON(raw); err != nil {
			return fmt.Errorf("properties %q: %w", key, err)
		}
		props.Set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*p = props
	return nil
}
