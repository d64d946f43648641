package kvstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemoryStore(t *testing.T, cacheSize int) *Store {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Backend = "memory"
	cfg.Path = ""
	cfg.CacheSize = cacheSize
	store, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreGetPutHas(t *testing.T) {
	store := openMemoryStore(t, 16)

	_, found, err := store.Get([]byte("missing"))
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Put([]byte("k"), []byte("v")))

	v, found, err := store.Get([]byte("k"))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("v"), v)

	ok, err := store.Has([]byte("k"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStoreBatchAtomicVisibility(t *testing.T) {
	store := openMemoryStore(t, 0)

	ops := []Op{
		{Key: []byte("a"), Value: []byte("1")},
		{Key: []byte("b"), Value: []byte("2")},
	}
	require.NoError(t, store.ApplyBatch(ops))

	for _, op := range ops {
		v, found, err := store.Get(op.Key)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, op.Value, v)
	}
}

func TestStoreCacheHit(t *testing.T) {
	store := openMemoryStore(t, 4)
	require.NoError(t, store.Put([]byte("k"), []byte("v")))

	_, _, err := store.Get([]byte("k"))
	require.NoError(t, err)
	_, _, err = store.Get([]byte("k"))
	require.NoError(t, err)

	stats := store.Stats()
	assert.GreaterOrEqual(t, stats.CacheHits, uint64(1))
}

func TestUnknownBackend(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend = "nosuch"
	_, err := Open(cfg)
	assert.ErrorIs(t, err, ErrUnsupportedBackend)
}

func TestPebbleBackendRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Path = t.TempDir()
	store, err := Open(cfg)
	require.NoError(t, err)
	defer store.Close()

	// Small value stays raw, large value goes through the compressor.
	small := []byte("small")
	large := make([]byte, 4096)
	for i := range large {
		large[i] = byte(i % 7)
	}

	require.NoError(t, store.Put([]byte("small"), small))
	require.NoError(t, store.Put([]byte("large"), large))

	v, found, err := store.Get([]byte("small"))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, small, v)

	v, found, err = store.Get([]byte("large"))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, large, v)
}
