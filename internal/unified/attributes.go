package unified

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
)

// Attributes is an insertion-ordered key/value mapping. Setting a nil or
// empty value is a no-op, so empty attributes never reach the output.
type Attributes struct {
	keys   []string
	values map[string]any
}

// Set stores value under key, keeping the original position of an existing key.
func (a *Attributes) Set(key string, value any) {
	if isEmpty(value) {
		return
	}
	if a.values == nil {
		a.values = make(map[string]any)
	}
	if _, ok := a.values[key]; !ok {
		a.keys = append(a.keys, key)
	}
	a.values[key] = value
}

// Get returns the value stored under key.
func (a Attributes) Get(key string) (any, bool) {
	v, ok := a.values[key]
	return v, ok
}

// String returns the value under key when it is a string.
func (a Attributes) String(key string) string {
	s, _ := a.values[key].(string)
	return s
}

// Keys returns the keys in insertion order.
func (a Attributes) Keys() []string {
	out := make([]string, len(a.keys))
	copy(out, a.keys)
	return out
}

// Clone returns a copy that shares no storage with a. Slice values are
// copied one level deep.
func (a Attributes) Clone() Attributes {
	if len(a.keys) == 0 {
		return Attributes{}
	}
	out := Attributes{keys: make([]string, len(a.keys)), values: make(map[string]any, len(a.values))}
	copy(out.keys, a.keys)
	for k, v := range a.values {
		if ss, ok := v.([]string); ok {
			v = append([]string(nil), ss...)
		}
		out.values[k] = v
	}
	return out
}

// Len returns the number of attributes.
func (a Attributes) Len() int { return len(a.keys) }

// Equal reports whether both mappings hold the same keys in the same order
// with JSON-equal values.
func (a Attributes) Equal(b Attributes) bool {
	ab, err1 := json.Marshal(a)
	bb, err2 := json.Marshal(b)
	return err1 == nil && err2 == nil && bytes.Equal(ab, bb)
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	switch t := v.(type) {
	case string:
		return t == ""
	case []string:
		return len(t) == 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// MarshalJSON writes the attributes as an object in insertion order.
func (a Attributes) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range a.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(a.values[k])
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object, keeping key order.
func (a *Attributes) UnmarshalJSON(data []byte) error {
	*a = Attributes{}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("attributes: expected object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("attributes: expected key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("attribute %q: %w", key, err)
		}
		a.Set(key, decodeValue(raw))
	}
	_, err = dec.Token()
	return err
}

// decodeValue turns string arrays back into []string so decoded graphs
// compare equal to freshly built ones.
func decodeValue(raw json.RawMessage) any {
	var strs []string
	if err := json.Unmarshal(raw, &strs); err == nil {
		return strs
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}
