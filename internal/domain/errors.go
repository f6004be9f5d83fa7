package domain

import (
	"errors"
	"fmt"
)

// Error codes surfaced to callers alongside human-readable messages.
const (
	ErrCodeConfiguration = "CONFIGURATION_ERROR"
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeModelNotFound = "MODEL_NOT_FOUND"
)

// ConfigurationError indicates that a model has no coefficient set for the
// requested stratum. It is fatal to the calculation call: the engine never
// silently substitutes an arbitrary coefficient table. The one documented
// exception is race, which models resolve to the RACE_OTHER bucket before a
// table lookup can fail.
type ConfigurationError struct {
	ModelID string
	Message string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrCodeConfiguration, e.Message)
}

// NewConfigurationError creates a ConfigurationError for the given model.
func NewConfigurationError(modelID, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{
		ModelID: modelID,
		Message: fmt.Sprintf(format, args...),
	}
}

// InvalidInputError indicates that a field required by the selected model is
// missing, empty, malformed, or not finite after unit normalization. It is
// fatal to the calculation call; the engine never computes with partial data
// in strict mode.
type InvalidInputError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("%s: field %q %s", ErrCodeInvalidInput, e.Field, e.Reason)
}

// NewInvalidInputError creates an InvalidInputError for the given field.
func NewInvalidInputError(field, format string, args ...any) *InvalidInputError {
	return &InvalidInputError{
		Field:  field,
		Reason: fmt.Sprintf(format, args...),
	}
}

// ModelNotFoundError indicates that a model identifier is not registered.
// It is recoverable: callers resolve models through a non-panicking lookup
// and are expected to degrade gracefully when the id is unknown.
type ModelNotFoundError struct {
	ModelID string
}

// Error implements the error interface.
func (e *ModelNotFoundError) Error() string {
	return fmt.Sprintf("%s: no risk model registered with id %q", ErrCodeModelNotFound, e.ModelID)
}

// NewModelNotFoundError creates a ModelNotFoundError for the given id.
func NewModelNotFoundError(modelID string) *ModelNotFoundError {
	return &ModelNotFoundError{ModelID: modelID}
}

// ErrorCode extracts the taxonomy code from an error chain, or returns an
// empty string when the error does not belong to the calculation taxonomy.
func ErrorCode(err error) string {
	var configErr *ConfigurationError
	if errors.As(err, &configErr) {
		return ErrCodeConfiguration
	}
	var inputErr *InvalidInputError
	if errors.As(err, &inputErr) {
		return ErrCodeInvalidInput
	}
	var notFoundErr *ModelNotFoundError
	if errors.As(err, &notFoundErr) {
		return ErrCodeModelNotFound
	}
	return ""
}
