package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/venuecore/ticketd/internal/core/engine"
	"github.com/venuecore/ticketd/internal/core/oracle"
	"github.com/venuecore/ticketd/internal/core/price"
	"github.com/venuecore/ticketd/internal/core/state"
)

// TierSpec describes a tier to create.
type TierSpec struct {
	Symbol    string
	BasePrice price.Price
	MaxSupply uint32
	Strategy  state.Strategy
	Active    bool
}

// CreateTier registers a new tier. Privileged. The tier's current price
// starts at its base price until the first recomputation.
func (c *Core) CreateTier(caller string, spec TierSpec) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := requireAdmin(c.view, caller); err != nil {
		return err
	}
	if spec.Symbol == "" {
		return fmt.Errorf("%w: tier symbol must not be empty", ErrInvalidArgument)
	}
	if spec.MaxSupply == 0 {
		return fmt.Errorf("%w: tier max supply must be positive", ErrInvalidArgument)
	}
	if !spec.BasePrice.IsPositive() {
		return fmt.Errorf("%w: tier base price must be positive", ErrInvalidArgument)
	}

	exists, err := c.view.Has(state.TierKey(spec.Symbol))
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %q", ErrDuplicateTier, spec.Symbol)
	}

	o := newOverlay(c.view)
	tier := state.Tier{
		Name:         spec.Symbol,
		BasePrice:    spec.BasePrice,
		CurrentPrice: spec.BasePrice,
		MaxSupply:    spec.MaxSupply,
		Active:       spec.Active,
		Strategy:     spec.Strategy,
	}
	if err := saveTier(o, &tier); err != nil {
		return err
	}
	return o.Commit()
}

// SetTierActive toggles minting for a tier. Privileged. Tiers are never
// deleted; deactivation is the retirement path.
func (c *Core) SetTierActive(caller, symbol string, active bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := requireAdmin(c.view, caller); err != nil {
		return err
	}
	o := newOverlay(c.view)
	tier, err := loadTier(o, symbol)
	if err != nil {
		return err
	}
	if tier.Active == active {
		return nil
	}
	tier.Active = active
	if err := saveTier(o, tier); err != nil {
		return err
	}
	return o.Commit()
}

// Tier returns the stored tier for symbol.
func (c *Core) Tier(symbol string) (state.Tier, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tier, err := loadTier(c.view, symbol)
	if err != nil {
		return state.Tier{}, err
	}
	return *tier, nil
}

// UpdatePrice recomputes and persists the tier's current price. The call
// is throttled: within update_frequency seconds of the last applied
// update, or while frozen, it is a no-op (updated == false), not an
// error. An oracle failure aborts without touching current_price or
// last_update_time, so the next eligible call retries naturally.
func (c *Core) UpdatePrice(ctx context.Context, symbol string, now uint64) (p price.Price, updated bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cfg, err := loadPricingConfig(c.view)
	if err != nil {
		return price.Price{}, false, err
	}
	tier, err := loadTier(c.view, symbol)
	if err != nil {
		return price.Price{}, false, err
	}

	if cfg.IsFrozen {
		return tier.CurrentPrice, false, nil
	}
	if now < cfg.LastUpdateTime+cfg.UpdateFrequency {
		return tier.CurrentPrice, false, nil
	}

	event, err := loadEventInfo(c.view)
	if err != nil {
		return price.Price{}, false, err
	}
	sample, err := c.referenceSample(ctx, cfg, now)
	if err != nil {
		return price.Price{}, false, err
	}

	computed, err := engine.ComputePrice(tier, cfg, event, sample, now)
	if err != nil {
		return price.Price{}, false, mapArithmetic(err)
	}

	o := newOverlay(c.view)
	tier.CurrentPrice = computed
	cfg.LastUpdateTime = now
	if err := saveTier(o, tier); err != nil {
		return price.Price{}, false, err
	}
	if err := savePricingConfig(o, cfg); err != nil {
		return price.Price{}, false, err
	}
	if err := o.Commit(); err != nil {
		return price.Price{}, false, err
	}

	c.publish(Event{
		Type: EventPriceUpdate,
		Tier: symbol,
		Price: computed.String(),
		Time: now,
	})
	return computed, true, nil
}

// ComputeCurrentPrice simulates a price recomputation without persisting
// anything. Neither the throttle nor the freeze applies; this is a read.
func (c *Core) ComputeCurrentPrice(ctx context.Context, symbol string, now uint64) (price.Price, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cfg, err := loadPricingConfig(c.view)
	if err != nil {
		return price.Price{}, err
	}
	tier, err := loadTier(c.view, symbol)
	if err != nil {
		return price.Price{}, err
	}
	event, err := loadEventInfo(c.view)
	if err != nil {
		return price.Price{}, err
	}
	sample, err := c.referenceSample(ctx, cfg, now)
	if err != nil {
		return price.Price{}, err
	}
	computed, err := engine.ComputePrice(tier, cfg, event, sample, now)
	if err != nil {
		return price.Price{}, mapArithmetic(err)
	}
	return computed, nil
}

func (c *Core) referenceSample(ctx context.Context, cfg *state.PricingConfig, now uint64) (oracle.Sample, error) {
	if c.oracle == nil {
		return oracle.Sample{}, fmt.Errorf("%w: no adapter configured", ErrOracleUnavailable)
	}
	sample, err := c.oracle.ReferenceSample(ctx, cfg.OraclePair, cfg.DexPoolAddress, cfg.MaxOracleAgeSeconds, now)
	if err != nil {
		if errors.Is(err, oracle.ErrUnavailable) {
			return oracle.Sample{}, fmt.Errorf("%w: %v", ErrOracleUnavailable, err)
		}
		return oracle.Sample{}, err
	}
	return sample, nil
}
