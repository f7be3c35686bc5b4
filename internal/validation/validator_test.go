package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name      string  `json:"name" validate:"notblank,max=8"`
	Transport string  `json:"transport" validate:"omitempty,oneof=DEFAULT MQTT CoAP"`
	Owner     *string `json:"owner,omitempty" validate:"omitempty,notblank"`
	Count     int     `json:"count" validate:"required"`
}

func TestValidate_Passes(t *testing.T) {
	err := NewValidator().Validate(sample{Name: "gw-1", Transport: "MQTT", Count: 1})
	assert.NoError(t, err)
}

func TestValidate_BlankName(t *testing.T) {
	for _, name := range []string{"", "   ", "\t\n"} {
		err := NewValidator().Validate(&sample{Name: name, Count: 1})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrValidation))

		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "name", verr.Field)
	}
}

func TestValidate_OneOf(t *testing.T) {
	err := NewValidator().Validate(sample{Name: "a", Transport: "HTTP", Count: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transport")

	// omitempty skips the empty value
	assert.NoError(t, NewValidator().Validate(sample{Name: "a", Count: 1}))
}

func TestValidate_Max(t *testing.T) {
	err := NewValidator().Validate(sample{Name: "too-long-name", Count: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maximum length is 8")
}

func TestValidate_Required(t *testing.T) {
	err := NewValidator().Validate(sample{Name: "a"})
	require.Error(t, err)
	assert.Equal(t, "count: is required", err.Error())
}

func TestValidate_OptionalPointer(t *testing.T) {
	blank := "  "
	err := NewValidator().Validate(sample{Name: "a", Count: 1, Owner: &blank})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "owner")
}

func TestValidate_NotStruct(t *testing.T) {
	err := NewValidator().Validate("nope")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrValidation))
}
