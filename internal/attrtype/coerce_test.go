package attrtype

import (
	"errors"
	"math"
	"testing"

	"github.com/fleet-console/fleet-console/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerce_Integer(t *testing.T) {
	v, err := Coerce("42", Integer)
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	v, err = Coerce(" -7 ", Integer)
	require.NoError(t, err)
	assert.Equal(t, int64(-7), v)

	v, err = Coerce(60.0, Integer)
	require.NoError(t, err)
	assert.Equal(t, int64(60), v)

	for _, raw := range []interface{}{"abc", "", "12.5", "1e3", 12.5, true, nil} {
		_, err := Coerce(raw, Integer)
		assert.True(t, errors.Is(err, ErrInvalidValue), "%v", raw)
	}
}

func TestCoerce_IntegerRange(t *testing.T) {
	v, err := Coerce(float64(maxExactFloatInt), Integer)
	require.NoError(t, err)
	assert.Equal(t, int64(9007199254740991), v)

	v, err = Coerce(float64(-maxExactFloatInt), Integer)
	require.NoError(t, err)
	assert.Equal(t, int64(-9007199254740991), v)

	// exact parsing still covers the full int64 range
	v, err = Coerce("9223372036854775807", Integer)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), v)

	for _, raw := range []interface{}{
		1e19,
		-1e19,
		float64(9007199254740993),
		math.MaxFloat64,
		"9223372036854775808",
	} {
		_, err := Coerce(raw, Integer)
		assert.True(t, errors.Is(err, ErrInvalidValue), "%v", raw)
	}
}

func TestCoerce_Double(t *testing.T) {
	v, err := Coerce("60.5", Double)
	require.NoError(t, err)
	assert.Equal(t, 60.5, v)

	v, err = Coerce(int64(3), Double)
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)

	for _, raw := range []interface{}{"abc", "", "NaN", "Inf", "-Infinity", "1e400", false} {
		_, err := Coerce(raw, Double)
		assert.True(t, errors.Is(err, ErrInvalidValue), "%v", raw)
	}
}

func TestCoerce_Boolean(t *testing.T) {
	for raw, want := range map[interface{}]bool{true: true, false: false, "true": true, "false": false} {
		v, err := Coerce(raw, Boolean)
		require.NoError(t, err)
		assert.Equal(t, want, v)
	}

	for _, raw := range []interface{}{"yes", "TRUE", "1", "", 1, nil} {
		_, err := Coerce(raw, Boolean)
		assert.True(t, errors.Is(err, ErrInvalidValue), "%v", raw)
	}
}

func TestCoerce_JSON(t *testing.T) {
	v, err := Coerce(`{"a": [1, "x"], "b": null}`, JSON)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"a": []interface{}{1.0, "x"}, "b": nil}, v)

	doc := map[string]interface{}{"k": true}
	v, err = Coerce(doc, JSON)
	require.NoError(t, err)
	assert.Equal(t, doc, v)

	_, err = Coerce("{not json", JSON)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidValue))

	var verr *InvalidValueError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, JSON, verr.Type)
}

func TestCoerce_StringPassThrough(t *testing.T) {
	for _, raw := range []interface{}{"", "  spaced  ", "42"} {
		v, err := Coerce(raw, String)
		require.NoError(t, err)
		assert.Equal(t, raw, v)
	}
}

func TestCoerce_StringRejectsOtherTypes(t *testing.T) {
	for _, raw := range []interface{}{
		map[string]interface{}{"a": 1.0},
		[]interface{}{"x"},
		42.0,
		true,
		nil,
	} {
		_, err := Coerce(raw, String)
		assert.True(t, errors.Is(err, ErrInvalidValue), "%v", raw)
	}
}

func TestCoerce_UnknownType(t *testing.T) {
	_, err := Coerce("1", ValueType("decimal"))
	assert.True(t, errors.Is(err, ErrInvalidValue))
}

func TestInfer(t *testing.T) {
	tests := []struct {
		value    interface{}
		wantType ValueType
		wantText string
	}{
		{true, Boolean, "true"},
		{60.0, Integer, "60"},
		{int64(-42), Integer, "-42"},
		{60.5, Double, "60.5"},
		{"1.2.5-stable", String, "1.2.5-stable"},
		{nil, String, ""},
		{map[string]interface{}{"a": 1.0}, JSON, "{\n  \"a\": 1\n}"},
		{[]interface{}{"x"}, JSON, "[\n  \"x\"\n]"},
	}

	for _, tt := range tests {
		typ, text := Infer(tt.value)
		assert.Equal(t, tt.wantType, typ, "%v", tt.value)
		assert.Equal(t, tt.wantText, text, "%v", tt.value)
	}
}

func TestInfer_JSONRoundTrip(t *testing.T) {
	doc := map[string]interface{}{
		"thresholds": []interface{}{1.5, 2.0},
		"enabled":    true,
		"nested":     map[string]interface{}{"name": "zone-a"},
	}

	typ, text := Infer(doc)
	require.Equal(t, JSON, typ)

	back, err := Coerce(text, typ)
	require.NoError(t, err)
	assert.Equal(t, doc, back)
}

func TestEditTypeChange(t *testing.T) {
	typ, text := Infer(int64(60))
	assert.Equal(t, Integer, typ)
	assert.Equal(t, "60", text)

	v, err := Coerce("60.5", Double)
	require.NoError(t, err)
	assert.Equal(t, 60.5, v)
}

func TestForTelemetry(t *testing.T) {
	assert.Equal(t, Double, ForTelemetry(models.TelemetryDouble))
	assert.Equal(t, Integer, ForTelemetry(models.TelemetryInteger))
	assert.Equal(t, Boolean, ForTelemetry(models.TelemetryBoolean))
	assert.Equal(t, JSON, ForTelemetry(models.TelemetryJSON))
	assert.Equal(t, String, ForTelemetry(models.TelemetryString))
}
