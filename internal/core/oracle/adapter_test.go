package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venuecore/ticketd/internal/core/price"
)

type fakeSource struct {
	price price.Price
	ts    uint64
	err   error
}

func (f *fakeSource) LatestPrice(ctx context.Context, pair string) (price.Price, uint64, error) {
	if f.err != nil {
		return price.Price{}, 0, f.err
	}
	return f.price, f.ts, nil
}

type fakePool struct {
	price price.Price
	err   error
}

func (f *fakePool) SpotPrice(ctx context.Context, pool string) (price.Price, error) {
	if f.err != nil {
		return price.Price{}, f.err
	}
	return f.price, nil
}

const testNow = uint64(1_700_000_000)

func TestFreshOracleWins(t *testing.T) {
	src := &fakeSource{price: price.FromRaw(100_000_000), ts: testNow - 30}
	pool := &fakePool{price: price.FromRaw(999)}
	a := NewAdapter(src, pool)

	s, err := a.ReferenceSample(context.Background(), "XLM/USD", "pool-1", 60, testNow)
	require.NoError(t, err)
	assert.False(t, s.FromDex)
	assert.Equal(t, uint64(30), s.AgeSeconds)
	assert.Zero(t, s.Price.Cmp(src.price))
}

func TestStaleOracleFallsBackToDex(t *testing.T) {
	src := &fakeSource{price: price.FromRaw(100_000_000), ts: testNow - 600}
	pool := &fakePool{price: price.FromRaw(90_000_000)}
	a := NewAdapter(src, pool)

	s, err := a.ReferenceSample(context.Background(), "XLM/USD", "pool-1", 60, testNow)
	require.NoError(t, err)
	assert.True(t, s.FromDex)
	assert.Zero(t, s.AgeSeconds)
	assert.Zero(t, s.Price.Cmp(pool.price))
}

func TestFailedOracleFallsBackToDex(t *testing.T) {
	src := &fakeSource{err: errors.New("unreachable")}
	pool := &fakePool{price: price.FromRaw(42)}
	a := NewAdapter(src, pool)

	s, err := a.ReferenceSample(context.Background(), "XLM/USD", "pool-1", 60, testNow)
	require.NoError(t, err)
	assert.True(t, s.FromDex)
}

func TestBothSourcesDownIsUnavailable(t *testing.T) {
	src := &fakeSource{err: errors.New("unreachable")}
	pool := &fakePool{err: errors.New("also down")}
	a := NewAdapter(src, pool)

	_, err := a.ReferenceSample(context.Background(), "XLM/USD", "pool-1", 60, testNow)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestFutureTimestampHasZeroAge(t *testing.T) {
	src := &fakeSource{price: price.FromRaw(1), ts: testNow + 100}
	a := NewAdapter(src, nil)

	s, err := a.ReferenceSample(context.Background(), "XLM/USD", "", 60, testNow)
	require.NoError(t, err)
	assert.Zero(t, s.AgeSeconds)
}

func TestHTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "XLM/USD", r.URL.Query().Get("pair"))
		json.NewEncoder(w).Encode(map[string]any{
			"price":     "1.25",
			"timestamp": testNow - 10,
		})
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL, 2*time.Second)
	p, ts, err := src.LatestPrice(context.Background(), "XLM/USD")
	require.NoError(t, err)
	assert.Equal(t, testNow-10, ts)
	raw, _ := p.Raw()
	assert.Equal(t, int64(125_000_000), raw)
}

func TestHTTPSourceBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL, 2*time.Second)
	_, _, err := src.LatestPrice(context.Background(), "XLM/USD")
	assert.Error(t, err)
}

func TestDexFeedCache(t *testing.T) {
	feed := NewDexFeed("ws://unused")
	_, err := feed.SpotPrice(context.Background(), "pool-1")
	assert.ErrorIs(t, err, ErrNoPrice)

	feed.setPrice("pool-1", price.FromRaw(7))
	p, err := feed.SpotPrice(context.Background(), "pool-1")
	require.NoError(t, err)
	raw, _ := p.Raw()
	assert.Equal(t, int64(7), raw)
}
