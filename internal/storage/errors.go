package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates that a requested record was not found
	ErrNotFound = errors.New("record not found")

	// ErrDataCorrupt indicates that stored data is corrupted
	ErrDataCorrupt = errors.New("data corruption detected")

	// ErrBackendClosed indicates that the backend is closed
	ErrBackendClosed = errors.New("backend is closed")

	// ErrBackendFailure indicates a read or write failed inside the backend
	ErrBackendFailure = errors.New("backend failure")

	// ErrInvalidConfig indicates that the configuration is invalid
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnsupportedBackend indicates that a backend is not supported
	ErrUnsupportedBackend = errors.New("unsupported backend")

	// ErrUnsupportedCompressor indicates that a compressor is not supported
	ErrUnsupportedCompressor = errors.New("unsupported compressor")
)

// StoreError wraps an error with the operation and backend it occurred in.
type StoreError struct {
	Operation string // The operation that failed
	Backend   string // The backend name
	Key       string // Hex form of the record key, if applicable
	Cause     error  // The underlying error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("storage %s error on backend %s: %v",
			e.Operation, e.Backend, e.Cause)
	}
	return fmt.Sprintf("storage %s error on backend %s for key %s: %v",
		e.Operation, e.Backend, e.Key, e.Cause)
}

// Unwrap returns the underlying error.
func (e *StoreError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target error.
func (e *StoreError) Is(target error) bool {
	return errors.Is(e.Cause, target)
}

// NewError creates a new StoreError.
func NewError(operation, backend, key string, cause error) *StoreError {
	return &StoreError{
		Operation: operation,
		Backend:   backend,
		Key:       key,
		Cause:     cause,
	}
}

// statusError converts a non-OK backend status to a sentinel error.
func statusError(s Status) error {
	switch s {
	case NotFound:
		return ErrNotFound
	case DataCorrupt:
		return ErrDataCorrupt
	case BackendError:
		return ErrBackendFailure
	default:
		return fmt.Errorf("backend status %s", s)
	}
}
