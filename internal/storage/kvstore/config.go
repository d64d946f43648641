package kvstore

import (
	"errors"
	"fmt"
)

// Config holds configuration options for the store.
type Config struct {
	// Backend specifies the storage backend to use.
	Backend string `json:"backend" yaml:"backend"`

	// Path specifies the file system path for data storage.
	Path string `json:"path" yaml:"path"`

	// CacheSize is the number of entries kept in the read cache.
	// Zero disables caching.
	CacheSize int `json:"cache_size" yaml:"cache_size"`

	// Compressor selects the value compression algorithm.
	Compressor string `json:"compressor" yaml:"compressor"`

	// CompressionLevel tunes the compressor (algorithm dependent).
	CompressionLevel int `json:"compression_level" yaml:"compression_level"`

	// CreateIfMissing controls whether the database is created on open.
	CreateIfMissing bool `json:"create_if_missing" yaml:"create_if_missing"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Backend:          "pebble",
		Path:             "./ticketstore",
		CacheSize:        4096,
		Compressor:       "lz4",
		CompressionLevel: 1,
		CreateIfMissing:  true,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Backend == "" {
		return fmt.Errorf("%w: backend must be specified", ErrInvalidConfig)
	}
	if c.Backend != "memory" && c.Path == "" {
		return fmt.Errorf("%w: path must be specified", ErrInvalidConfig)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("%w: cache_size must be non-negative", ErrInvalidConfig)
	}
	if c.CompressionLevel < 0 || c.CompressionLevel > 9 {
		return fmt.Errorf("%w: compression_level must be between 0 and 9", ErrInvalidConfig)
	}
	switch c.Compressor {
	case "", "none", "lz4":
	default:
		return fmt.Errorf("%w: unsupported compressor %q", ErrInvalidConfig, c.Compressor)
	}
	return nil
}

// Option is a functional option for configuring the store.
type Option func(*Config)

// WithBackend sets the storage backend.
func WithBackend(backend string) Option {
	return func(c *Config) { c.Backend = backend }
}

// WithPath sets the storage path.
func WithPath(path string) Option {
	return func(c *Config) { c.Path = path }
}

// WithCacheSize sets the read cache size in entries.
func WithCacheSize(size int) Option {
	return func(c *Config) { c.CacheSize = size }
}

// WithCompression sets the compression algorithm and level.
func WithCompression(compressor string, level int) Option {
	return func(c *Config) {
		c.Compressor = compressor
		c.CompressionLevel = level
	}
}

// ApplyOptions applies the given options to the config.
func (c *Config) ApplyOptions(options ...Option) {
	for _, option := range options {
		option(c)
	}
}

var errNilConfig = errors.New("kvstore: nil config")
