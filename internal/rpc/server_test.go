package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venuecore/ticketd/internal/core/ledger"
	"github.com/venuecore/ticketd/internal/core/oracle"
	"github.com/venuecore/ticketd/internal/core/price"
	"github.com/venuecore/ticketd/internal/storage/kvstore"
)

type fixedSource struct {
	price price.Price
	ts    uint64
}

func (f *fixedSource) LatestPrice(ctx context.Context, pair string) (price.Price, uint64, error) {
	return f.price, f.ts, nil
}

type fixedPool struct {
	price price.Price
}

func (f *fixedPool) SpotPrice(ctx context.Context, pool string) (price.Price, error) {
	return f.price, nil
}

const testNow = uint64(1_900_000_000)

func newTestServer(t *testing.T, sink ledger.EventSink) (*Server, *httptest.Server) {
	t.Helper()

	cfg := kvstore.DefaultConfig()
	cfg.Backend = "memory"
	cfg.Path = ""
	store, err := kvstore.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	one, err := price.ParseDecimal("1")
	require.NoError(t, err)

	core, err := ledger.New(ledger.Config{
		Store:  ledger.NewStoreView(store),
		Oracle: oracle.NewAdapter(&fixedSource{price: one, ts: testNow}, &fixedPool{price: one}),
		Events: sink,
	})
	require.NoError(t, err)

	srv := NewServer(core, nil)
	srv.now = func() uint64 { return testNow }

	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return srv, ts
}

func call(t *testing.T, url, method string, params any, header http.Header) map[string]any {
	t.Helper()

	req := map[string]any{"method": method}
	if params != nil {
		req["params"] = []any{params}
	}
	body, err := json.Marshal(req)
	require.NoError(t, err)

	httpReq, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	require.NoError(t, err)
	for k, vs := range header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	resp, err := http.DefaultClient.Do(httpReq)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var decoded struct {
		Result map[string]any `json:"result"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	require.NotNil(t, decoded.Result)
	return decoded.Result
}

func initLedgerOverRPC(t *testing.T, url string) {
	t.Helper()
	result := call(t, url, "init", map[string]any{
		"admin": "GADMIN",
		"event": map[string]any{
			"start_time":         testNow + 1000000,
			"refund_cutoff_time": testNow + 900000,
		},
		"config": map[string]any{
			"oracle_pair":            "XLM/USD",
			"price_floor":            "50",
			"price_ceiling":          "500",
			"update_frequency":       300,
			"oracle_reference_price": "1",
			"max_oracle_age_seconds": 600,
		},
	}, nil)
	require.Equal(t, "success", result["status"], "init failed: %v", result)
}

func createTierOverRPC(t *testing.T, url, symbol string) {
	t.Helper()
	result := call(t, url, "tier_create", map[string]any{
		"admin":      "GADMIN",
		"symbol":     symbol,
		"base_price": "100",
		"max_supply": 10,
		"active":     true,
	}, nil)
	require.Equal(t, "success", result["status"], "tier_create failed: %v", result)
}

func TestPing(t *testing.T) {
	_, ts := newTestServer(t, nil)
	result := call(t, ts.URL, "ping", nil, nil)
	assert.Equal(t, "success", result["status"])
}

func TestUnknownMethod(t *testing.T) {
	_, ts := newTestServer(t, nil)
	result := call(t, ts.URL, "no_such_method", nil, nil)
	assert.Equal(t, "error", result["status"])
	assert.Equal(t, "unknownCmd", result["error"])
}

func TestServerInfo(t *testing.T) {
	_, ts := newTestServer(t, nil)

	result := call(t, ts.URL, "server_info", nil, nil)
	assert.Equal(t, false, result["initialized"])

	initLedgerOverRPC(t, ts.URL)
	result = call(t, ts.URL, "server_info", nil, nil)
	assert.Equal(t, true, result["initialized"])
	assert.Equal(t, "GADMIN", result["admin"])
	assert.Equal(t, false, result["frozen"])
}

func TestMintRefundRoundTrip(t *testing.T) {
	_, ts := newTestServer(t, nil)
	initLedgerOverRPC(t, ts.URL)
	createTierOverRPC(t, ts.URL, "GA")

	result := call(t, ts.URL, "ticket_mint", map[string]any{"tier": "GA", "buyer": "GBUYER"}, nil)
	require.Equal(t, "success", result["status"])
	assert.Equal(t, float64(0), result["token_id"])
	assert.Equal(t, "100", result["price_paid"])

	result = call(t, ts.URL, "ticket_valid", map[string]any{"token_id": 0}, nil)
	assert.Equal(t, true, result["valid"])

	result = call(t, ts.URL, "ticket_refund", map[string]any{"token_id": 0}, nil)
	assert.Equal(t, "success", result["status"])

	result = call(t, ts.URL, "ticket", map[string]any{"token_id": 0}, nil)
	assert.Equal(t, false, result["valid"])
	assert.Equal(t, "GA", result["tier"])
}

func TestDomainErrorMapping(t *testing.T) {
	_, ts := newTestServer(t, nil)
	initLedgerOverRPC(t, ts.URL)

	result := call(t, ts.URL, "ticket_mint", map[string]any{"tier": "NOPE", "buyer": "GBUYER"}, nil)
	assert.Equal(t, "error", result["status"])
	assert.Equal(t, "notFound", result["error"])
	assert.Equal(t, float64(codeNotFound), result["error_code"])

	result = call(t, ts.URL, "tier_create", map[string]any{
		"admin": "someone-else", "symbol": "GA", "base_price": "100", "max_supply": 10,
	}, nil)
	assert.Equal(t, "unauthorized", result["error"])
}

func TestAdminMethodsRequireLoopback(t *testing.T) {
	_, ts := newTestServer(t, nil)

	header := http.Header{}
	header.Set("X-Forwarded-For", "203.0.113.9")
	result := call(t, ts.URL, "freeze", map[string]any{"admin": "GADMIN"}, header)
	assert.Equal(t, "error", result["status"])
	assert.Equal(t, "forbidden", result["error"])

	// Public methods stay reachable from anywhere.
	result = call(t, ts.URL, "ping", nil, header)
	assert.Equal(t, "success", result["status"])
}

func TestPriceUpdateAndCompute(t *testing.T) {
	_, ts := newTestServer(t, nil)
	initLedgerOverRPC(t, ts.URL)
	createTierOverRPC(t, ts.URL, "GA")

	result := call(t, ts.URL, "price_update", map[string]any{"symbol": "GA"}, nil)
	require.Equal(t, "success", result["status"])
	assert.Equal(t, true, result["updated"])
	assert.Equal(t, "100", result["price"])

	// Throttled retry reports updated == false.
	result = call(t, ts.URL, "price_update", map[string]any{"symbol": "GA"}, nil)
	assert.Equal(t, false, result["updated"])

	result = call(t, ts.URL, "price_compute", map[string]any{"symbol": "GA"}, nil)
	require.Equal(t, "success", result["status"])
	assert.Equal(t, "100", result["price"])
}

func TestInvalidJSONAndMissingMethod(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp, err := http.Post(ts.URL, "application/json", bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	defer resp.Body.Close()
	var decoded struct {
		Result map[string]any `json:"result"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	assert.Equal(t, "jsonInvalid", decoded.Result["error"])

	result := call(t, ts.URL, "", nil, nil)
	assert.Equal(t, "missingCommand", result["error"])
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	ts := httptest.NewServer(hub)
	defer ts.Close()

	url := "ws" + ts.URL[len("http"):]
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// The hub registers the client asynchronously after the upgrade.
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)

	tokenID := uint32(7)
	hub.Publish(ledger.Event{Type: ledger.EventMint, Tier: "GA", TokenID: &tokenID, Time: testNow})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var event ledger.Event
	require.NoError(t, json.Unmarshal(data, &event))
	assert.Equal(t, ledger.EventMint, event.Type)
	assert.Equal(t, "GA", event.Tier)
	require.NotNil(t, event.TokenID)
	assert.Equal(t, tokenID, *event.TokenID)
}

func TestMintEventsReachHub(t *testing.T) {
	hub := NewHub()
	defer hub.Close()
	wsServer := httptest.NewServer(hub)
	defer wsServer.Close()

	_, ts := newTestServer(t, hub)
	initLedgerOverRPC(t, ts.URL)
	createTierOverRPC(t, ts.URL, "GA")

	url := "ws" + wsServer.URL[len("http"):]
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)

	result := call(t, ts.URL, "ticket_mint", map[string]any{"tier": "GA", "buyer": "GBUYER"}, nil)
	require.Equal(t, "success", result["status"])

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var event ledger.Event
	require.NoError(t, json.Unmarshal(data, &event))
	assert.Equal(t, ledger.EventMint, event.Type)
}
