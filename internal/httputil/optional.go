// Package httputil holds request-level helpers shared by handlers and
// service input types.
package httputil

import (
	"bytes"
	"encoding/json"
)

// OptionalString tracks presence and value for JSON merge-patch semantics
// (RFC 7396), which a plain *string cannot express:
//   - Present=false: field absent from JSON (don't change)
//   - Present=true, Value=nil: field is JSON null (clear)
//   - Present=true, Value=&"text": field has a value
type OptionalString struct {
	Present bool
	Value   *string
}

// String builds a present OptionalString holding v.
func String(v string) OptionalString {
	return OptionalString{Present: true, Value: &v}
}

// Null builds a present OptionalString holding JSON null.
func Null() OptionalString {
	return OptionalString{Present: true}
}

// UnmarshalJSON implements json.Unmarshaler. Being called at all means the
// field was present in the JSON.
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Present = true

	if isJSONNull(data) {
		o.Value = nil
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

// OptionalInt64 is the int64 counterpart of OptionalString.
type OptionalInt64 struct {
	Present bool
	Value   *int64
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *OptionalInt64) UnmarshalJSON(data []byte) error {
	o.Present = true

	if isJSONNull(data) {
		o.Value = nil
		return nil
	}

	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	o.Value = &n
	return nil
}

// OptionalJSON keeps an arbitrary JSON value with presence tracking. A nil
// Value with Present=true means the field was JSON null.
type OptionalJSON struct {
	Present bool
	Value   json.RawMessage
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *OptionalJSON) UnmarshalJSON(data []byte) error {
	o.Present = true

	if isJSONNull(data) {
		o.Value = nil
		return nil
	}

	o.Value = append(o.Value[:0], data...)
	return nil
}

func isJSONNull(data []byte) bool {
	return string(bytes.TrimSpace(data)) == "null"
}
