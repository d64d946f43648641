package ledger

import "github.com/venuecore/ticketd/internal/core/price"

// Event types published by the core.
const (
	EventMint        = "mint"
	EventRefund      = "refund"
	EventPriceUpdate = "price_update"
)

// Event is a notification about a committed state change. Events fire
// after the commit; subscribers never observe uncommitted state.
type Event struct {
	Type    string  `json:"type"`
	Tier    string  `json:"tier,omitempty"`
	TokenID *uint32 `json:"token_id,omitempty"`
	Price   string  `json:"price,omitempty"`
	Time    uint64  `json:"time"`
}

// EventSink receives committed-change notifications. Implementations
// must not block; the core calls Publish inline.
type EventSink interface {
	Publish(event Event)
}

// SalesRecorder receives issued-ticket records for the reporting index.
// Failures are logged and do not affect core state.
type SalesRecorder interface {
	RecordMint(tokenID uint32, tier, buyer string, paid price.Price, purchaseTime uint64) error
	RecordRefund(tokenID uint32, refundTime uint64) error
}

func (c *Core) publish(event Event) {
	if c.events != nil {
		c.events.Publish(event)
	}
}
