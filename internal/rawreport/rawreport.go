// Package rawreport gives typed, schema-optional access to an inventory report as loaded from JSON.
//
// A report has no fixed schema: any field may be absent, null, a string, a number, an object or an
// array. Accessors never fail; they report absence or type mismatch through their boolean results
// or by returning the requested default.
package rawreport

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/reporteria/reportviewer/internal/constants"
	"github.com/spf13/cast"
)

// ErrParse is returned when the report input is not a JSON object.
var ErrParse = errors.New("error parsing the report JSON")

var utf8BOM = []byte("\xef\xbb\xbf")

// Report is a decoded inventory report keyed by the collector's Spanish field names.
type Report map[string]any

// Parse decodes UTF-8 JSON text into a Report.
// A leading byte order mark is ignored. Any decoding failure, and a JSON document whose root is not an
// object, returns an error wrapping ErrParse that includes the decoder message.
func Parse(data []byte) (Report, error) {
	var v any
	if err := json.Unmarshal(bytes.TrimPrefix(data, utf8BOM), &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: report root must be a JSON object, got %s", ErrParse, kindOf(v))
	}
	return Report(m), nil
}

// Field returns the value stored under key.
func (r Report) Field(key string) Value {
	if r == nil {
		return Value{}
	}
	raw, ok := r[key]
	return Value{raw: raw, present: ok}
}

// Value is one field of a report.
// The zero Value is an absent field.
type Value struct {
	raw     any
	present bool
}

// Present reports whether the field exists and is not null.
func (v Value) Present() bool {
	return v.present && v.raw != nil
}

// Raw returns the decoded JSON value.
func (v Value) Raw() any {
	return v.raw
}

// Field returns the nested field key when v is an object, or an absent Value otherwise.
func (v Value) Field(key string) Value {
	obj, ok := v.Object()
	if !ok {
		return Value{}
	}
	return obj.Field(key)
}

// Object returns v as a Report if it is a JSON object.
func (v Value) Object() (Report, bool) {
	m, ok := v.raw.(map[string]any)
	return Report(m), ok
}

// Array returns the elements of v if it is a JSON array.
// An empty array is returned as a non-nil, zero-length slice.
func (v Value) Array() ([]Value, bool) {
	a, ok := v.raw.([]any)
	if !ok {
		return nil, false
	}
	out := make([]Value, 0, len(a))
	for _, e := range a {
		out = append(out, Value{raw: e, present: true})
	}
	return out, true
}

// Str returns v if it is a JSON string.
func (v Value) Str() (string, bool) {
	s, ok := v.raw.(string)
	return s, ok
}

// Display returns the text shown for a scalar field, or the placeholder for missing or unusable data.
func (v Value) Display() string {
	return v.DisplayOr(constants.Placeholder)
}

// DisplayOr returns the text shown for a scalar field, or def when the field is absent, null, false,
// an empty string, or an object or array where a scalar was expected.
// Numbers use their shortest decimal form, so 4 is "4" and 0 is "0".
func (v Value) DisplayOr(def string) string {
	switch x := v.raw.(type) {
	case nil:
		return def
	case bool:
		if !x {
			return def
		}
		return "true"
	case string:
		if strings.TrimSpace(x) == "" {
			return def
		}
		return x
	case map[string]any, []any:
		return def
	}

	s, err := cast.ToStringE(v.raw)
	if err != nil || s == "" {
		return def
	}
	return s
}

// Kind returns a short description of the JSON type held by v.
func (v Value) Kind() string {
	if !v.present {
		return "absent"
	}
	return kindOf(v.raw)
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case float64, json.Number:
		return "number"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	default:
		return fmt.Sprintf("%T", v)
	}
}
