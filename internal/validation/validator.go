package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// ErrValidation is matched by every ValidationError.
var ErrValidation = errors.New("validation failed")

// ValidationError reports a single field that failed a rule.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Is lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Errorf builds a ValidationError for field.
func Errorf(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Validator validates structs
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks the `validate` tags of a struct and returns the first
// failing field as a *ValidationError.
func (v *Validator) Validate(s interface{}) error {
	val := reflect.ValueOf(s)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	if val.Kind() != reflect.Struct {
		return fmt.Errorf("validate expects a struct, got %s", val.Kind())
	}

	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		tag := fieldType.Tag.Get("validate")

		if tag == "" {
			continue
		}

		if reason := v.validateField(field, tag); reason != "" {
			return &ValidationError{Field: fieldName(fieldType), Reason: reason}
		}
	}

	return nil
}

// validateField returns an empty string when the field passes every rule.
func (v *Validator) validateField(field reflect.Value, tag string) string {
	rules := strings.Split(tag, ",")

	for _, rule := range rules {
		parts := strings.SplitN(rule, "=", 2)
		ruleName := parts[0]

		if ruleName == "omitempty" && field.IsZero() {
			return ""
		}

		switch ruleName {
		case "required":
			if field.IsZero() {
				return "is required"
			}

		case "notblank":
			if field.Kind() == reflect.String && strings.TrimSpace(field.String()) == "" {
				return "must not be blank"
			}
			if field.Kind() == reflect.Ptr && (field.IsNil() || strings.TrimSpace(field.Elem().String()) == "") {
				return "must not be blank"
			}

		case "oneof":
			if len(parts) < 2 {
				continue
			}
			s := stringOf(field)
			if s == "" {
				continue
			}
			allowed := strings.Fields(parts[1])
			if !contains(allowed, s) {
				return fmt.Sprintf("must be one of [%s]", strings.Join(allowed, " "))
			}

		case "max":
			if len(parts) < 2 {
				continue
			}
			n, err := strconv.Atoi(parts[1])
			if err != nil {
				continue
			}
			if len([]rune(stringOf(field))) > n {
				return fmt.Sprintf("maximum length is %d", n)
			}
		}
	}

	return ""
}

func stringOf(field reflect.Value) string {
	switch field.Kind() {
	case reflect.String:
		return field.String()
	case reflect.Ptr:
		if field.IsNil() || field.Elem().Kind() != reflect.String {
			return ""
		}
		return field.Elem().String()
	}
	return ""
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// fieldName prefers the json name so errors match the request body.
func fieldName(f reflect.StructField) string {
	if tag := f.Tag.Get("json"); tag != "" {
		name := strings.Split(tag, ",")[0]
		if name != "" && name != "-" {
			return name
		}
	}
	return f.Name
}
