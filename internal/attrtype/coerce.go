// Package attrtype converts form input into typed attribute values and back.
package attrtype

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/fleet-console/fleet-console/internal/models"
)

// ValueType is the declared type of an attribute value.
type ValueType string

const (
	String  ValueType = "string"
	Integer ValueType = "integer"
	Double  ValueType = "double"
	Boolean ValueType = "boolean"
	JSON    ValueType = "json"
)

// Valid reports whether t is a known value type.
func (t ValueType) Valid() bool {
	switch t {
	case String, Integer, Double, Boolean, JSON:
		return true
	}
	return false
}

// ErrInvalidValue is matched by every InvalidValueError.
var ErrInvalidValue = errors.New("invalid attribute value")

// InvalidValueError reports input that cannot be read as the declared type.
type InvalidValueError struct {
	Type ValueType
	Raw  interface{}
	Err  error
}

func (e *InvalidValueError) Error() string {
	msg := fmt.Sprintf("invalid %s value %v", e.Type, describe(e.Raw))
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is lets errors.Is(err, ErrInvalidValue) match.
func (e *InvalidValueError) Is(target error) bool {
	return target == ErrInvalidValue
}

func (e *InvalidValueError) Unwrap() error { return e.Err }

func describe(raw interface{}) string {
	if s, ok := raw.(string); ok {
		return strconv.Quote(s)
	}
	return fmt.Sprintf("%v", raw)
}

// maxExactFloatInt is the largest integer a float64 holds without rounding.
const maxExactFloatInt = 1<<53 - 1

// Coerce reads raw as a value of type t. Strings are parsed; values that
// already have the right Go type are accepted as they are. Integers come
// back as int64 and doubles as float64. A string value must be a string.
func Coerce(raw interface{}, t ValueType) (interface{}, error) {
	switch t {
	case String:
		if _, ok := raw.(string); !ok {
			return nil, &InvalidValueError{Type: String, Raw: raw}
		}
		return raw, nil
	case Integer:
		return coerceInteger(raw)
	case Double:
		return coerceDouble(raw)
	case Boolean:
		return coerceBoolean(raw)
	case JSON:
		return coerceJSON(raw)
	}
	return nil, &InvalidValueError{Type: t, Raw: raw, Err: fmt.Errorf("unknown value type %q", t)}
}

func coerceInteger(raw interface{}) (interface{}, error) {
	switch v := raw.(type) {
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return nil, &InvalidValueError{Type: Integer, Raw: raw}
		}
		return n, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		// decoded JSON numbers beyond 2^53 have already been rounded
		if isFinite(v) && v == math.Trunc(v) && math.Abs(v) <= maxExactFloatInt {
			return int64(v), nil
		}
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, nil
		}
	}
	return nil, &InvalidValueError{Type: Integer, Raw: raw}
}

func coerceDouble(raw interface{}) (interface{}, error) {
	var f float64
	switch v := raw.(type) {
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, &InvalidValueError{Type: Double, Raw: raw}
		}
		f = parsed
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return nil, &InvalidValueError{Type: Double, Raw: raw}
		}
		f = parsed
	default:
		return nil, &InvalidValueError{Type: Double, Raw: raw}
	}

	if !isFinite(f) {
		return nil, &InvalidValueError{Type: Double, Raw: raw}
	}
	return f, nil
}

func coerceBoolean(raw interface{}) (interface{}, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		switch v {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
	}
	return nil, &InvalidValueError{Type: Boolean, Raw: raw}
}

func coerceJSON(raw interface{}) (interface{}, error) {
	s, ok := raw.(string)
	if !ok {
		return raw, nil
	}

	var doc interface{}
	if err := json.Unmarshal([]byte(s), &doc); err != nil {
		return nil, &InvalidValueError{Type: JSON, Raw: raw, Err: err}
	}
	return doc, nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Infer guesses the declared type of a stored value and renders it for an
// edit form. JSON documents are indented with two spaces.
func Infer(value interface{}) (ValueType, string) {
	switch v := value.(type) {
	case bool:
		return Boolean, strconv.FormatBool(v)
	case int:
		return Integer, strconv.Itoa(v)
	case int64:
		return Integer, strconv.FormatInt(v, 10)
	case float64:
		if isFinite(v) && v == math.Trunc(v) {
			return Integer, strconv.FormatFloat(v, 'f', -1, 64)
		}
		return Double, strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		if _, err := v.Int64(); err == nil {
			return Integer, v.String()
		}
		return Double, v.String()
	case map[string]interface{}, []interface{}:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return String, fmt.Sprintf("%v", v)
		}
		return JSON, string(data)
	case string:
		return String, v
	case nil:
		return String, ""
	}
	return String, fmt.Sprintf("%v", value)
}

// ForTelemetry maps a telemetry channel type onto the coercion rules used for
// its collected values.
func ForTelemetry(t models.TelemetryType) ValueType {
	switch t {
	case models.TelemetryDouble:
		return Double
	case models.TelemetryInteger:
		return Integer
	case models.TelemetryBoolean:
		return Boolean
	case models.TelemetryJSON:
		return JSON
	}
	return String
}
