package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:5005", cfg.Server.ListenAddr)
	assert.Equal(t, "/ws", cfg.Server.WsPath)
	assert.Equal(t, "pebble", cfg.Store.Backend)
	assert.Equal(t, "./ticketstore", cfg.Store.Path)
	assert.Equal(t, 4096, cfg.Store.CacheSize)
	assert.Equal(t, "lz4", cfg.Store.Compressor)
	assert.Equal(t, uint64(5), cfg.Oracle.TimeoutSeconds)
	assert.Empty(t, cfg.Index.Path)
	assert.Empty(t, cfg.ConfigPath())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ticketd.toml")
	content := `
[server]
listen_addr = "0.0.0.0:8080"

[store]
backend = "memory"
cache_size = 128

[oracle]
url = "http://oracle.example/price"
timeout_seconds = 2

[index]
path = "/tmp/sales.db"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.ListenAddr)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, 128, cfg.Store.CacheSize)
	assert.Equal(t, "http://oracle.example/price", cfg.Oracle.URL)
	assert.Equal(t, uint64(2), cfg.Oracle.TimeoutSeconds)
	assert.Equal(t, "/tmp/sales.db", cfg.Index.Path)
	assert.Equal(t, path, cfg.ConfigPath())

	// Unspecified sections keep their defaults.
	assert.Equal(t, "/ws", cfg.Server.WsPath)
	assert.Equal(t, "lz4", cfg.Store.Compressor)
}

func TestEnvironmentOverride(t *testing.T) {
	t.Setenv("TICKETD_SERVER_LISTEN_ADDR", "10.0.0.1:7000")
	t.Setenv("TICKETD_STORE_BACKEND", "memory")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1:7000", cfg.Server.ListenAddr)
	assert.Equal(t, "memory", cfg.Store.Backend)
}

func TestMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestValidation(t *testing.T) {
	t.Run("bad backend", func(t *testing.T) {
		t.Setenv("TICKETD_STORE_BACKEND", "leveldb")
		_, err := Load("")
		assert.Error(t, err)
	})

	t.Run("pebble requires path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ticketd.toml")
		require.NoError(t, os.WriteFile(path, []byte("[store]\nbackend = \"pebble\"\npath = \"\"\n"), 0o644))
		_, err := Load(path)
		assert.Error(t, err)
	})
}
