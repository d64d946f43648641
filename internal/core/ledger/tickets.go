package ledger

import (
	"fmt"
	"log"

	"github.com/venuecore/ticketd/internal/core/state"
)

// Mint issues a ticket against a tier at the tier's persisted current
// price. The supply increment, counter advance, and ticket write commit
// as one unit; any rejection leaves all three untouched.
func (c *Core) Mint(symbol, buyer string, now uint64) (uint32, state.Ticket, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cfg, err := loadPricingConfig(c.view)
	if err != nil {
		return 0, state.Ticket{}, err
	}
	if cfg.IsFrozen {
		return 0, state.Ticket{}, ErrSaleFrozen
	}

	tier, err := loadTier(c.view, symbol)
	if err != nil {
		return 0, state.Ticket{}, err
	}
	if !tier.Active {
		return 0, state.Ticket{}, fmt.Errorf("%w: %q", ErrTierInactive, symbol)
	}
	if tier.Minted >= tier.MaxSupply {
		return 0, state.Ticket{}, fmt.Errorf("%w: %q", ErrSoldOut, symbol)
	}

	id, err := loadTokenCounter(c.view)
	if err != nil {
		return 0, state.Ticket{}, err
	}

	ticket := state.Ticket{
		TierSymbol:   symbol,
		PurchaseTime: now,
		PricePaid:    tier.CurrentPrice,
		IsValid:      true,
	}
	tier.Minted++

	o := newOverlay(c.view)
	if err := saveTicket(o, id, &ticket); err != nil {
		return 0, state.Ticket{}, err
	}
	if err := saveTier(o, tier); err != nil {
		return 0, state.Ticket{}, err
	}
	if err := saveTokenCounter(o, id+1); err != nil {
		return 0, state.Ticket{}, err
	}
	if err := o.Commit(); err != nil {
		return 0, state.Ticket{}, err
	}

	// Side channels are best effort: core state committed already.
	if c.sales != nil {
		if err := c.sales.RecordMint(id, symbol, buyer, ticket.PricePaid, now); err != nil {
			log.Printf("ledger: sales index mint record for token %d failed: %v", id, err)
		}
	}
	tokenID := id
	c.publish(Event{
		Type:    EventMint,
		Tier:    symbol,
		TokenID: &tokenID,
		Price:   ticket.PricePaid.String(),
		Time:    now,
	})
	return id, ticket, nil
}

// Refund invalidates a ticket before the refund cutoff. The tier's
// minted count is deliberately not decremented: total ever-minted count
// is the scarcity signal, and a refunded ticket frees no new supply.
func (c *Core) Refund(tokenID uint32, now uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ticket, err := loadTicket(c.view, tokenID)
	if err != nil {
		return err
	}
	if !ticket.IsValid {
		return fmt.Errorf("%w: ticket %d", ErrAlreadyInvalid, tokenID)
	}
	event, err := loadEventInfo(c.view)
	if err != nil {
		return err
	}
	if now > event.RefundCutoffTime {
		return ErrRefundWindowClosed
	}

	ticket.IsValid = false
	o := newOverlay(c.view)
	if err := saveTicket(o, tokenID, ticket); err != nil {
		return err
	}
	if err := o.Commit(); err != nil {
		return err
	}

	if c.sales != nil {
		if err := c.sales.RecordRefund(tokenID, now); err != nil {
			log.Printf("ledger: sales index refund record for token %d failed: %v", tokenID, err)
		}
	}
	id := tokenID
	c.publish(Event{Type: EventRefund, Tier: ticket.TierSymbol, TokenID: &id, Time: now})
	return nil
}

// Ticket returns the stored ticket for tokenID.
func (c *Core) Ticket(tokenID uint32) (state.Ticket, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ticket, err := loadTicket(c.view, tokenID)
	if err != nil {
		return state.Ticket{}, err
	}
	return *ticket, nil
}

// IsTicketValid reports whether the ticket exists and has not been
// refunded.
func (c *Core) IsTicketValid(tokenID uint32) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ticket, err := loadTicket(c.view, tokenID)
	if err != nil {
		return false, err
	}
	return ticket.IsValid, nil
}
