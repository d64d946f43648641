package kvstore

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Store wraps a Backend with an LRU read cache and basic statistics.
type Store struct {
	backend Backend
	cache   *lru.Cache[string, []byte]
	stats   struct {
		reads       uint64
		cacheHits   uint64
		cacheMisses uint64
		writes      uint64
	}
}

// Statistics reports store activity counters.
type Statistics struct {
	Reads       uint64
	CacheHits   uint64
	CacheMisses uint64
	Writes      uint64
	BackendName string
}

// Open creates a backend from config, opens it, and wraps it in a Store.
func Open(config *Config) (*Store, error) {
	if config == nil {
		return nil, errNilConfig
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	backend, err := CreateBackend(config.Backend, config)
	if err != nil {
		return nil, err
	}
	if err := backend.Open(config.CreateIfMissing); err != nil {
		return nil, err
	}
	return NewStore(backend, config.CacheSize)
}

// NewStore wraps an already-open backend. cacheSize of zero disables the
// read cache.
func NewStore(backend Backend, cacheSize int) (*Store, error) {
	s := &Store{backend: backend}
	if cacheSize > 0 {
		cache, err := lru.New[string, []byte](cacheSize)
		if err != nil {
			return nil, err
		}
		s.cache = cache
	}
	return s, nil
}

// Get returns the value stored under key and whether it was found.
func (s *Store) Get(key []byte) ([]byte, bool, error) {
	atomic.AddUint64(&s.stats.reads, 1)

	if s.cache != nil {
		if v, ok := s.cache.Get(string(key)); ok {
			atomic.AddUint64(&s.stats.cacheHits, 1)
			return v, true, nil
		}
		atomic.AddUint64(&s.stats.cacheMisses, 1)
	}

	value, status := s.backend.Get(key)
	if status == NotFound {
		return nil, false, nil
	}
	if status != OK {
		return nil, false, statusError("get", s.backend.Name(), status)
	}
	if s.cache != nil {
		s.cache.Add(string(key), value)
	}
	return value, true, nil
}

// Put stores value under key.
func (s *Store) Put(key, value []byte) error {
	if status := s.backend.Put(key, value); status != OK {
		return statusError("put", s.backend.Name(), status)
	}
	atomic.AddUint64(&s.stats.writes, 1)
	if s.cache != nil {
		s.cache.Add(string(key), value)
	}
	return nil
}

// Has reports whether key exists.
func (s *Store) Has(key []byte) (bool, error) {
	if s.cache != nil {
		if _, ok := s.cache.Get(string(key)); ok {
			return true, nil
		}
	}
	ok, status := s.backend.Has(key)
	if status != OK {
		return false, statusError("has", s.backend.Name(), status)
	}
	return ok, nil
}

// ApplyBatch applies all ops atomically and updates the cache only after
// the backend accepted the batch.
func (s *Store) ApplyBatch(ops []Op) error {
	if status := s.backend.ApplyBatch(ops); status != OK {
		return statusError("batch", s.backend.Name(), status)
	}
	atomic.AddUint64(&s.stats.writes, uint64(len(ops)))
	if s.cache != nil {
		for _, op := range ops {
			s.cache.Add(string(op.Key), op.Value)
		}
	}
	return nil
}

// Sync flushes pending writes to durable storage.
func (s *Store) Sync() error {
	if status := s.backend.Sync(); status != OK {
		return statusError("sync", s.backend.Name(), status)
	}
	return nil
}

// Stats returns activity counters.
func (s *Store) Stats() Statistics {
	return Statistics{
		Reads:       atomic.LoadUint64(&s.stats.reads),
		CacheHits:   atomic.LoadUint64(&s.stats.cacheHits),
		CacheMisses: atomic.LoadUint64(&s.stats.cacheMisses),
		Writes:      atomic.LoadUint64(&s.stats.writes),
		BackendName: s.backend.Name(),
	}
}

// Close closes the underlying backend.
func (s *Store) Close() error {
	return s.backend.Close()
}
