package errors

import (
	"errors"
	"fmt"
)

// Common error types for categorization and handling

var (
	// ErrNotFound indicates a requested resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates invalid user input
	ErrInvalidInput = errors.New("invalid input")

	// ErrStreamNotFound indicates no in-flight stream exists for a session
	ErrStreamNotFound = errors.New("stream not found")

	// ErrTransport indicates a request to the engine backend failed outright
	ErrTransport = errors.New("engine transport failed")

	// ErrEngineUnavailable indicates the engine backend is unreachable or overloaded
	ErrEngineUnavailable = errors.New("engine unavailable")

	// ErrDatabaseOperation indicates a database operation failed
	ErrDatabaseOperation = errors.New("database operation failed")
)

// WrapError wraps an error with context message and stack
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// WrapErrorf wraps an error with formatted context message
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// IsNotFound checks if error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsTransport checks if error is an engine transport error
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}

// IsEngineUnavailable checks if error is an engine unavailable error
func IsEngineUnavailable(err error) bool {
	return errors.Is(err, ErrEngineUnavailable)
}
