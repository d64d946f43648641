package ledger

import (
	"fmt"

	"github.com/venuecore/ticketd/internal/core/price"
)

// ConfigUpdate carries the fields of the pricing configuration an admin
// may change after initialization. Nil fields are left untouched. The
// oracle reference price is deliberately absent; it changes only through
// UpdateOracleReference.
type ConfigUpdate struct {
	OracleAddress       *string
	DexPoolAddress      *string
	OraclePair          *string
	PriceFloor          *price.Price
	PriceCeiling        *price.Price
	UpdateFrequency     *uint64
	MaxOracleAgeSeconds *uint64
}

// Freeze blocks price recomputation and minting until Unfreeze. Reads
// stay available.
func (c *Core) Freeze(caller string) error {
	return c.setFrozen(caller, true)
}

// Unfreeze lifts a freeze.
func (c *Core) Unfreeze(caller string) error {
	return c.setFrozen(caller, false)
}

func (c *Core) setFrozen(caller string, frozen bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := requireAdmin(c.view, caller); err != nil {
		return err
	}
	o := newOverlay(c.view)
	cfg, err := loadPricingConfig(o)
	if err != nil {
		return err
	}
	if cfg.IsFrozen == frozen {
		return nil
	}
	cfg.IsFrozen = frozen
	if err := savePricingConfig(o, cfg); err != nil {
		return err
	}
	return o.Commit()
}

// UpdateConfig applies an admin configuration change. The updated
// configuration must still satisfy the floor/ceiling invariants.
func (c *Core) UpdateConfig(caller string, update ConfigUpdate) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := requireAdmin(c.view, caller); err != nil {
		return err
	}
	o := newOverlay(c.view)
	cfg, err := loadPricingConfig(o)
	if err != nil {
		return err
	}

	if update.OracleAddress != nil {
		cfg.OracleAddress = *update.OracleAddress
	}
	if update.DexPoolAddress != nil {
		cfg.DexPoolAddress = *update.DexPoolAddress
	}
	if update.OraclePair != nil {
		cfg.OraclePair = *update.OraclePair
	}
	if update.PriceFloor != nil {
		cfg.PriceFloor = *update.PriceFloor
	}
	if update.PriceCeiling != nil {
		cfg.PriceCeiling = *update.PriceCeiling
	}
	if update.UpdateFrequency != nil {
		cfg.UpdateFrequency = *update.UpdateFrequency
	}
	if update.MaxOracleAgeSeconds != nil {
		cfg.MaxOracleAgeSeconds = *update.MaxOracleAgeSeconds
	}

	if err := validatePricingConfig(cfg); err != nil {
		return err
	}
	if err := savePricingConfig(o, cfg); err != nil {
		return err
	}
	return o.Commit()
}

// UpdateOracleReference replaces the trusted baseline oracle reading.
// This is the only way the reference price changes after initialization.
func (c *Core) UpdateOracleReference(caller string, reference price.Price) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := requireAdmin(c.view, caller); err != nil {
		return err
	}
	if !reference.IsPositive() {
		return fmt.Errorf("%w: oracle reference price must be positive", ErrInvalidArgument)
	}
	o := newOverlay(c.view)
	cfg, err := loadPricingConfig(o)
	if err != nil {
		return err
	}
	cfg.OracleReferencePrice = reference
	if err := savePricingConfig(o, cfg); err != nil {
		return err
	}
	return o.Commit()
}
