// Package kvstore provides the persistent keyed store backing the ticket
// ledger state. Backends register through a factory registry; the default
// disk backend is PebbleDB with optional value compression, and an
// in-memory backend serves tests and standalone runs.
package kvstore

import (
	"fmt"
	"sync"
)

// Status is the result code of a backend operation.
type Status int

const (
	// OK indicates success.
	OK Status = iota
	// NotFound indicates the key does not exist.
	NotFound
	// DataCorrupt indicates a stored value failed to decode.
	DataCorrupt
	// BackendError indicates a backend-level failure.
	BackendError
	// Closed indicates the backend is not open.
	Closed
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case OK:
		return "ok"
	case NotFound:
		return "not found"
	case DataCorrupt:
		return "data corrupt"
	case BackendError:
		return "backend error"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Op is one write in a batch.
type Op struct {
	Key   []byte
	Value []byte
}

// Backend is a raw key-value storage backend.
type Backend interface {
	// Name identifies the backend for logs and stats.
	Name() string

	// Open prepares the backend for use.
	Open(createIfMissing bool) error

	// Close releases backend resources.
	Close() error

	// Get returns the value for key.
	Get(key []byte) ([]byte, Status)

	// Put stores value under key.
	Put(key, value []byte) Status

	// Has reports whether key exists.
	Has(key []byte) (bool, Status)

	// ApplyBatch applies all ops atomically.
	ApplyBatch(ops []Op) Status

	// Sync flushes pending writes to durable storage.
	Sync() Status
}

// BackendFactory creates a backend from a configuration.
type BackendFactory func(config *Config) (Backend, error)

var (
	backendMu        sync.RWMutex
	backendFactories = make(map[string]BackendFactory)
)

// RegisterBackend registers a backend factory under name.
func RegisterBackend(name string, factory BackendFactory) {
	backendMu.Lock()
	defer backendMu.Unlock()
	backendFactories[name] = factory
}

// CreateBackend instantiates the backend registered under name.
func CreateBackend(name string, config *Config) (Backend, error) {
	backendMu.RLock()
	factory, ok := backendFactories[name]
	backendMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedBackend, name)
	}
	return factory(config)
}

// AvailableBackends lists the registered backend names.
func AvailableBackends() []string {
	backendMu.RLock()
	defer backendMu.RUnlock()

	names := make([]string, 0, len(backendFactories))
	for name := range backendFactories {
		names = append(names, name)
	}
	return names
}
