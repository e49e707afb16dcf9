package reactive

import (
	"errors"
	"fmt"
)

var (
	// ErrDisposed is returned when publishing to a disposed stream.
	ErrDisposed = errors.New("rivulet: stream disposed")

	// ErrUnsupportedSource is wrapped by Resolve for producers it cannot
	// turn into a stream.
	ErrUnsupportedSource = errors.New("rivulet: unsupported source")
)

// ConfigError reports an operator constructed with missing or invalid
// options. It is returned at construction time, never later.
type ConfigError struct {
	// Operator is the operator being constructed (e.g. "batch").
	Operator string

	// Option is the offending option name.
	Option string

	// Message is a human-readable description.
	Message string
}

// NewConfigError creates a ConfigError.
func NewConfigError(operator, option, message string) *ConfigError {
	return &ConfigError{Operator: operator, Option: option, Message: message}
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Option == "" {
		return fmt.Sprintf("%s: %s", e.Operator, e.Message)
	}
	return fmt.Sprintf("%s: option %s: %s", e.Operator, e.Option, e.Message)
}

// IsConfigError returns true if the error is a ConfigError.
// Uses errors.As to handle wrapped errors.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// SourceError reports a failure at a stream's source: a failed pull, a
// failed event attachment, an unsupported producer.
type SourceError struct {
	// Stream is the ID of the failing stream, if one exists yet.
	Stream string

	// Op is the failing operation ("pull", "attach", "event", "resolve").
	Op string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *SourceError) Error() string {
	if e.Stream == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("stream %s: %s: %v", e.Stream, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *SourceError) Unwrap() error {
	return e.Err
}

// IsSourceError returns true if the error is a SourceError.
// Uses errors.As to handle wrapped errors.
func IsSourceError(err error) bool {
	var se *SourceError
	return errors.As(err, &se)
}
