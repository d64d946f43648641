package kvstore

import (
	"sync"
)

// MemoryBackend is a map-backed backend for tests and standalone runs.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string][]byte
	open bool
}

// NewMemoryBackend creates an in-memory backend.
func NewMemoryBackend(config *Config) (Backend, error) {
	return &MemoryBackend{}, nil
}

// Name returns the name of this backend.
func (m *MemoryBackend) Name() string {
	return "memory"
}

// Open prepares the backend for use.
func (m *MemoryBackend) Open(createIfMissing bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = make(map[string][]byte)
	}
	m.open = true
	return nil
}

// Close marks the backend closed. Data is retained so a reopen in the
// same process sees the previous contents, matching disk backends.
func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open = false
	return nil
}

// Get returns the value for key.
func (m *MemoryBackend) Get(key []byte) ([]byte, Status) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.open {
		return nil, Closed
	}
	v, ok := m.data[string(key)]
	if !ok {
		return nil, NotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, OK
}

// Put stores value under key.
func (m *MemoryBackend) Put(key, value []byte) Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.open {
		return Closed
	}
	v := make([]byte, len(value))
	copy(v, value)
	m.data[string(key)] = v
	return OK
}

// Has reports whether key exists.
func (m *MemoryBackend) Has(key []byte) (bool, Status) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.open {
		return false, Closed
	}
	_, ok := m.data[string(key)]
	return ok, OK
}

// ApplyBatch applies all ops under one lock acquisition.
func (m *MemoryBackend) ApplyBatch(ops []Op) Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.open {
		return Closed
	}
	for _, op := range ops {
		v := make([]byte, len(op.Value))
		copy(v, op.Value)
		m.data[string(op.Key)] = v
	}
	return OK
}

// Sync is a no-op for the memory backend.
func (m *MemoryBackend) Sync() Status {
	return OK
}

func init() {
	RegisterBackend("memory", NewMemoryBackend)
}
