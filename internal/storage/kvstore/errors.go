package kvstore

import "errors"

var (
	// ErrNotFound indicates that a requested key was not found.
	ErrNotFound = errors.New("key not found")

	// ErrDataCorrupt indicates that a stored value failed to decode.
	ErrDataCorrupt = errors.New("data corruption detected")

	// ErrBackendClosed indicates that the backend is closed.
	ErrBackendClosed = errors.New("backend is closed")

	// ErrInvalidConfig indicates that the configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnsupportedBackend indicates an unregistered backend name.
	ErrUnsupportedBackend = errors.New("unsupported backend")
)

// IsNotFound reports whether err indicates a missing key.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDataCorrupt reports whether err indicates data corruption.
func IsDataCorrupt(err error) bool {
	return errors.Is(err, ErrDataCorrupt)
}

func statusError(op string, backend string, status Status) error {
	var base error
	switch status {
	case NotFound:
		base = ErrNotFound
	case DataCorrupt:
		base = ErrDataCorrupt
	case Closed:
		base = ErrBackendClosed
	default:
		base = errors.New(status.String())
	}
	return &StoreError{Operation: op, Backend: backend, Cause: base}
}

// StoreError wraps a backend failure with the operation and backend name.
type StoreError struct {
	Operation string
	Backend   string
	Cause     error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return "kvstore " + e.Operation + " error on backend " + e.Backend + ": " + e.Cause.Error()
}

// Unwrap returns the underlying error.
func (e *StoreError) Unwrap() error {
	return e.Cause
}
