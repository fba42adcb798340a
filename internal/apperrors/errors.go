// Package apperrors separates invalid-input failures from runtime conditions.
package apperrors

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is matched by every ConfigError through errors.Is.
var ErrInvalidConfig = errors.New("invalid configuration")

// ConfigError reports input that can never produce a valid run.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid configuration: %s", e.Reason)
	}
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}

// Invalid builds a ConfigError with a formatted reason.
func Invalid(field, format string, args ...any) error {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsConfig reports whether err is, or wraps, a ConfigError.
func IsConfig(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
