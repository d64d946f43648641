// Package config loads the daemon configuration from defaults, an
// optional TOML file, and TICKETD_-prefixed environment variables, in
// that priority order.
package config

import (
	"fmt"
)

// Config is the full daemon configuration.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Store  StoreConfig  `mapstructure:"store"`
	Oracle OracleConfig `mapstructure:"oracle"`
	Dex    DexConfig    `mapstructure:"dex"`
	Index  IndexConfig  `mapstructure:"index"`

	configPath string
}

// ServerConfig covers the JSON-RPC and websocket listeners.
type ServerConfig struct {
	// ListenAddr is the host:port the HTTP JSON-RPC server binds.
	ListenAddr string `mapstructure:"listen_addr"`
	// WsPath is the URL path serving websocket event subscriptions.
	WsPath string `mapstructure:"ws_path"`
	// RequestTimeoutSeconds bounds a single RPC request.
	RequestTimeoutSeconds uint64 `mapstructure:"request_timeout_seconds"`
}

// StoreConfig covers the persistent key-value store.
type StoreConfig struct {
	// Backend selects the kvstore backend ("pebble" or "memory").
	Backend string `mapstructure:"backend"`
	// Path is the database directory for disk backends.
	Path string `mapstructure:"path"`
	// CacheSize is the read cache capacity in entries.
	CacheSize int `mapstructure:"cache_size"`
	// Compressor names the value compressor ("lz4" or "none").
	Compressor string `mapstructure:"compressor"`
}

// OracleConfig covers the external price oracle.
type OracleConfig struct {
	// URL is the oracle HTTP endpoint.
	URL string `mapstructure:"url"`
	// TimeoutSeconds bounds one oracle request.
	TimeoutSeconds uint64 `mapstructure:"timeout_seconds"`
}

// DexConfig covers the DEX price feed used as the staleness fallback.
type DexConfig struct {
	// URL is the feed websocket endpoint. Empty disables the feed.
	URL string `mapstructure:"url"`
	// ReconnectSeconds is the delay between reconnect attempts.
	ReconnectSeconds uint64 `mapstructure:"reconnect_seconds"`
}

// IndexConfig covers the sqlite sales reporting index.
type IndexConfig struct {
	// Path is the sqlite database file. Empty disables the index.
	Path string `mapstructure:"path"`
}

// ConfigPath returns the file the configuration was loaded from, or ""
// when only defaults and environment applied.
func (c *Config) ConfigPath() string {
	return c.configPath
}

// Validate checks the configuration for internally consistent values.
func Validate(c *Config) error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr must not be empty")
	}
	if c.Store.Backend != "pebble" && c.Store.Backend != "memory" {
		return fmt.Errorf("store.backend must be \"pebble\" or \"memory\", got %q", c.Store.Backend)
	}
	if c.Store.Backend == "pebble" && c.Store.Path == "" {
		return fmt.Errorf("store.path must be set for the pebble backend")
	}
	if c.Store.CacheSize <= 0 {
		return fmt.Errorf("store.cache_size must be positive, got %d", c.Store.CacheSize)
	}
	if c.Oracle.TimeoutSeconds == 0 {
		return fmt.Errorf("oracle.timeout_seconds must be positive")
	}
	return nil
}
