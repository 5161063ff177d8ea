// Package orderedjson decodes arbitrary JSON while keeping the key order of
// objects, so tables built from webhook payloads show columns in the order the
// service sent them.
package orderedjson

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/tidwall/gjson"
)

// Object is a JSON object with its keys in source order
type Object struct {
	Keys   []string
	Values map[string]any
}

func NewObject() *Object {
	return &Object{Values: map[string]any{}}
}

// Set adds or replaces key. New keys go to the end.
func (o *Object) Set(key string, v any) {
	if _, ok := o.Values[key]; !ok {
		o.Keys = append(o.Keys, key)
	}
	o.Values[key] = v
}

func (o *Object) Get(key string) (any, bool) {
	if o == nil {
		return nil, false
	}
	v, ok := o.Values[key]
	return v, ok
}

func (o *Object) Has(key string) bool {
	_, ok := o.Get(key)
	return ok
}

// String returns the value at key when it is a JSON string
func (o *Object) String(key string) string {
	v, _ := o.Get(key)
	s, _ := v.(string)
	return s
}

func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.Keys)
}

func (o *Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.Keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(o.Values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (o *Object) UnmarshalJSON(data []byte) error {
	v, err := Unmarshal(data)
	if err != nil {
		return err
	}
	obj, ok := v.(*Object)
	if !ok {
		return fmt.Errorf("orderedjson: expected object, got %T", v)
	}
	*o = *obj
	return nil
}

// Unmarshal decodes a single JSON value. Objects become *Object, arrays []any,
// numbers json.Number holding their literal text.
func Unmarshal(data []byte) (any, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("orderedjson: invalid JSON")
	}
	return fromResult(gjson.ParseBytes(data)), nil
}

// Decode reads exactly one JSON value from r
func Decode(r io.Reader) (any, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Unmarshal(data)
}

func fromResult(r gjson.Result) any {
	switch r.Type {
	case gjson.Null:
		return nil
	case gjson.False:
		return false
	case gjson.True:
		return true
	case gjson.Number:
		return json.Number(r.Raw)
	case gjson.String:
		return r.Str
	}
	if r.IsArray() {
		arr := []any{}
		r.ForEach(func(_, v gjson.Result) bool {
			arr = append(arr, fromResult(v))
			return true
		})
		return arr
	}
	obj := NewObject()
	r.ForEach(func(k, v gjson.Result) bool {
		obj.Set(k.Str, fromResult(v))
		return true
	})
	return obj
}

// Compact renders v as compact JSON, falling back to fmt for unencodable values
func Compact(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

// Text renders a scalar the way it appeared in the payload. Nested values are
// rendered as compact JSON and null as the empty string.
func Text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return Compact(v)
	}
}
