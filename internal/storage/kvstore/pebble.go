package kvstore

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/cockroachdb/pebble"

	"github.com/venuecore/ticketd/internal/storage/kvstore/compression"
)

// Values below this size are stored uncompressed; the envelope byte still
// records that.
const minCompressionSize = 64

// Value envelope markers.
const (
	envelopeRaw        byte = 0
	envelopeCompressed byte = 1
)

// PebbleBackend implements a PebbleDB storage backend with optional
// per-value compression.
type PebbleBackend struct {
	db         *pebble.DB
	compressor compression.Compressor
	config     *Config
	open       int64
}

// NewPebbleBackend creates a new PebbleDB backend.
func NewPebbleBackend(config *Config) (Backend, error) {
	if config == nil {
		config = DefaultConfig()
	}
	name := config.Compressor
	if name == "" {
		name = "none"
	}
	compressor, err := compression.Get(name)
	if err != nil {
		return nil, fmt.Errorf("failed to get compressor %s: %w", name, err)
	}
	return &PebbleBackend{
		compressor: compressor,
		config:     config,
	}, nil
}

// Name returns the name of this backend.
func (p *PebbleBackend) Name() string {
	return fmt.Sprintf("pebble(%s)", p.config.Path)
}

// Open opens the backend for use.
func (p *PebbleBackend) Open(createIfMissing bool) error {
	if !atomic.CompareAndSwapInt64(&p.open, 0, 1) {
		return fmt.Errorf("backend already open")
	}

	if createIfMissing {
		if err := os.MkdirAll(p.config.Path, 0o755); err != nil {
			atomic.StoreInt64(&p.open, 0)
			return fmt.Errorf("failed to create directory %s: %w", p.config.Path, err)
		}
	}

	db, err := pebble.Open(p.config.Path, &pebble.Options{})
	if err != nil {
		atomic.StoreInt64(&p.open, 0)
		return fmt.Errorf("failed to open PebbleDB at %s: %w", p.config.Path, err)
	}
	p.db = db
	return nil
}

// Close closes the database.
func (p *PebbleBackend) Close() error {
	if !atomic.CompareAndSwapInt64(&p.open, 1, 0) {
		return nil
	}
	return p.db.Close()
}

func (p *PebbleBackend) isOpen() bool {
	return atomic.LoadInt64(&p.open) == 1
}

func (p *PebbleBackend) encodeValue(value []byte) []byte {
	if len(value) >= minCompressionSize {
		compressed, err := p.compressor.Compress(value, p.config.CompressionLevel)
		if err == nil && len(compressed) < len(value) {
			return append([]byte{envelopeCompressed}, compressed...)
		}
		// Incompressible or failed; fall through to raw.
	}
	return append([]byte{envelopeRaw}, value...)
}

func (p *PebbleBackend) decodeValue(stored []byte) ([]byte, Status) {
	if len(stored) == 0 {
		return nil, DataCorrupt
	}
	switch stored[0] {
	case envelopeRaw:
		out := make([]byte, len(stored)-1)
		copy(out, stored[1:])
		return out, OK
	case envelopeCompressed:
		out, err := p.compressor.Decompress(stored[1:])
		if err != nil {
			return nil, DataCorrupt
		}
		return out, OK
	default:
		return nil, DataCorrupt
	}
}

// Get returns the value for key.
func (p *PebbleBackend) Get(key []byte) ([]byte, Status) {
	if !p.isOpen() {
		return nil, Closed
	}
	stored, closer, err := p.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, NotFound
	}
	if err != nil {
		return nil, BackendError
	}
	defer closer.Close()
	return p.decodeValue(stored)
}

// Put stores value under key.
func (p *PebbleBackend) Put(key, value []byte) Status {
	if !p.isOpen() {
		return Closed
	}
	if err := p.db.Set(key, p.encodeValue(value), pebble.Sync); err != nil {
		return BackendError
	}
	return OK
}

// Has reports whether key exists.
func (p *PebbleBackend) Has(key []byte) (bool, Status) {
	if !p.isOpen() {
		return false, Closed
	}
	_, closer, err := p.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return false, OK
	}
	if err != nil {
		return false, BackendError
	}
	closer.Close()
	return true, OK
}

// ApplyBatch applies all ops as a single atomic pebble batch.
func (p *PebbleBackend) ApplyBatch(ops []Op) Status {
	if !p.isOpen() {
		return Closed
	}
	batch := p.db.NewBatch()
	defer batch.Close()
	for _, op := range ops {
		if err := batch.Set(op.Key, p.encodeValue(op.Value), nil); err != nil {
			return BackendError
		}
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return BackendError
	}
	return OK
}

// Sync flushes pending writes to disk.
func (p *PebbleBackend) Sync() Status {
	if !p.isOpen() {
		return Closed
	}
	if err := p.db.Flush(); err != nil {
		return BackendError
	}
	return OK
}

func init() {
	RegisterBackend("pebble", NewPebbleBackend)
}
