package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/venuecore/ticketd/internal/core/price"
)

// reconnectDelay is the pause between websocket reconnect attempts.
const reconnectDelay = 5 * time.Second

// DexFeed subscribes to a DEX price feed over websocket and caches the
// last observed spot price per pool. SpotPrice serves from the cache, so
// a dropped feed degrades to the last known price rather than blocking
// price updates.
type DexFeed struct {
	wsURL string

	mu     sync.RWMutex
	prices map[string]price.Price
}

// NewDexFeed creates a feed client for the given websocket URL.
func NewDexFeed(wsURL string) *DexFeed {
	return &DexFeed{
		wsURL:  wsURL,
		prices: make(map[string]price.Price),
	}
}

type feedMessage struct {
	Pool  string `json:"pool"`
	Price string `json:"price"`
}

// Run connects to the feed and consumes messages until ctx is cancelled,
// reconnecting on errors.
func (f *DexFeed) Run(ctx context.Context) error {
	for {
		if err := f.consume(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("dex feed: connection lost: %v, reconnecting in %s", err, reconnectDelay)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectDelay):
		}
	}
}

func (f *DexFeed) consume(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", f.wsURL, err)
	}
	defer conn.Close()

	// Close the connection when ctx ends so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var msg feedMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("dex feed: skipping malformed message: %v", err)
			continue
		}
		p, err := price.ParseDecimal(msg.Price)
		if err != nil {
			log.Printf("dex feed: skipping bad price %q for pool %s: %v", msg.Price, msg.Pool, err)
			continue
		}
		f.mu.Lock()
		f.prices[msg.Pool] = p
		f.mu.Unlock()
	}
}

// SpotPrice implements Pool from the cached feed state.
func (f *DexFeed) SpotPrice(ctx context.Context, poolAddress string) (price.Price, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	p, ok := f.prices[poolAddress]
	if !ok {
		return price.Price{}, fmt.Errorf("%w for pool %s", ErrNoPrice, poolAddress)
	}
	return p, nil
}

// setPrice primes the cache; used by tests.
func (f *DexFeed) setPrice(pool string, p price.Price) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices[pool] = p
}
