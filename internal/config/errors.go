package config

import (
	"errors"
	"fmt"
)

// Sentinel errors for configuration resolution.
var (
	// ErrMissingBasePath indicates that neither the environment nor the
	// configuration store provides a base path.
	ErrMissingBasePath = errors.New("base path is not configured")

	// ErrMissingRequiredSource indicates that a required file source does
	// not exist.
	ErrMissingRequiredSource = errors.New("required configuration source not found")

	// ErrMalformedSource indicates that a file source cannot be parsed.
	ErrMalformedSource = errors.New("configuration source is malformed")

	// ErrInvalidConfig indicates that the merged configuration does not
	// bind or fails validation.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ConfigError describes a resolution failure.
type ConfigError struct {
	// Kind is one of the sentinel errors above.
	Kind error

	// Source names the layer or file involved, if any.
	Source string

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	msg := e.Kind.Error()
	if e.Source != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Source)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is the error kind.
func (e *ConfigError) Is(target error) bool {
	return target == e.Kind
}

// newConfigError creates a ConfigError.
func newConfigError(kind error, source string, cause error) *ConfigError {
	return &ConfigError{
		Kind:   kind,
		Source: source,
		Cause:  cause,
	}
}
