package structured

import (
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
	yaml "gopkg.in/yaml.v3"
)

// ErrNoPayload is returned when a response holds nothing that looks like YAML or JSON.
var ErrNoPayload = errors.New("no YAML or JSON payload in response")

// ParseError reports a payload that was found but did not decode into the target type.
type ParseError struct {
	Format  Format
	Payload string
	Err     error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("decode %s payload: %v", e.Format, e.Err)
}

// Unwrap returns the decoder error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Validator checks a decoded value before it is accepted.
type Validator[T any] interface {
	Validate(value *T) error
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc[T any] func(value *T) error

// Validate implements Validator.
func (f ValidatorFunc[T]) Validate(value *T) error {
	return f(value)
}

// Parse extracts the payload from a model response and decodes it into T.
// YAML payloads go through yaml.v3 and JSON payloads through sonic, so
// struct tags of the matching format apply.
func Parse[T any](response string) (T, error) {
	var value T

	payload, format := Extract(response)
	switch format {
	case FormatJSON:
		if err := sonic.UnmarshalString(payload, &value); err != nil {
			return value, &ParseError{Format: format, Payload: payload, Err: err}
		}
	case FormatYAML:
		if err := yaml.Unmarshal([]byte(payload), &value); err != nil {
			return value, &ParseError{Format: format, Payload: payload, Err: err}
		}
	default:
		return value, ErrNoPayload
	}
	return value, nil
}

// ParseAndValidate is Parse followed by an optional validator.
func ParseAndValidate[T any](response string, validator Validator[T]) (T, error) {
	value, err := Parse[T](response)
	if err != nil {
		return value, err
	}
	if validator != nil {
		if err := validator.Validate(&value); err != nil {
			return value, fmt.Errorf("validate: %w", err)
		}
	}
	return value, nil
}
