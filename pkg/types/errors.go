// Package types defines shared error types
package types

import (
	"errors"
	"fmt"
)

// Predefined errors
var (
	// ErrPoolClosed indicates the thread pool has been closed
	ErrPoolClosed = errors.New("thread pool is closed")

	// ErrLogClosed indicates the append log has been closed
	ErrLogClosed = errors.New("append log is closed")

	// ErrInvalidConfig indicates an invalid configuration value
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnsupported indicates the operation is not supported on this platform
	ErrUnsupported = errors.New("operation not supported on this platform")
)

// LogError represents a failure of an append-log file or mapping operation
type LogError struct {
	// Op is the name of the operation that failed
	Op string

	// Path is the backing file involved
	Path string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface
func (e *LogError) Error() string {
	return fmt.Sprintf("appendlog %s %s: %v", e.Op, e.Path, e.Cause)
}

// Unwrap returns the underlying error
func (e *LogError) Unwrap() error {
	return e.Cause
}

// Is checks if the error is a specific error
func (e *LogError) Is(target error) bool {
	return errors.Is(e.Cause, target)
}

// NewLogError creates a new append-log error
func NewLogError(op, path string, cause error) *LogError {
	return &LogError{
		Op:    op,
		Path:  path,
		Cause: cause,
	}
}
