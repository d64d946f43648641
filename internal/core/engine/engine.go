// Package engine computes tier prices from demand, market movement, and
// the tier's pricing strategy. All arithmetic is checked fixed-point;
// overflow surfaces as an error and never wraps.
package engine

import (
	"errors"
	"fmt"

	"github.com/venuecore/ticketd/internal/core/oracle"
	"github.com/venuecore/ticketd/internal/core/price"
	"github.com/venuecore/ticketd/internal/core/state"
)

// Curve parameters. The demand multiplier is 1 + u for utilization
// u = minted/max_supply (1 + 2u for the amplified bucket); the time-decay
// factor falls linearly from 1 toward decayFloorFraction across the last
// decayWindowSeconds before the event starts.
const (
	// decayWindowSeconds is the approach window over which TimeDecay
	// pricing falls.
	decayWindowSeconds = 30 * 24 * 60 * 60

	// decayFloorFractionRaw is 0.25 in fixed-point; the decay factor
	// never drops below it.
	decayFloorFractionRaw = 25_000_000

	// abTestAFloorMarkupNum/Den raise the clamp floor to 110% of the
	// configured floor for the high-floor experiment bucket.
	abTestAFloorMarkupNum = 110
	abTestAFloorMarkupDen = 100

	// abTestBSensitivity steepens the demand curve for the
	// high-sensitivity experiment bucket.
	abTestBSensitivity = 2
)

var (
	// ErrBadSupply indicates a tier with a zero supply cap.
	ErrBadSupply = errors.New("engine: tier has zero max supply")

	// ErrBadReference indicates a non-positive oracle reference price.
	ErrBadReference = errors.New("engine: oracle reference price must be positive")
)

// ComputePrice derives the tier's current price from its base price, the
// demand multiplier, the market multiplier from the reference sample, and
// the tier's strategy. The result is always clamped to the configured
// bounds (the strategy-adjusted floor for the high-floor bucket) as the
// final step.
func ComputePrice(tier *state.Tier, cfg *state.PricingConfig, event *state.EventInfo, sample oracle.Sample, now uint64) (price.Price, error) {
	if tier.MaxSupply == 0 {
		return price.Price{}, ErrBadSupply
	}
	if !cfg.OracleReferencePrice.IsPositive() {
		return price.Price{}, ErrBadReference
	}

	demand, err := demandMultiplier(tier)
	if err != nil {
		return price.Price{}, err
	}

	p, err := tier.BasePrice.MulDiv(demand, price.Unit())
	if err != nil {
		return price.Price{}, err
	}
	// Market multiplier: sample price relative to the trusted baseline.
	p, err = p.MulDiv(sample.Price, cfg.OracleReferencePrice)
	if err != nil {
		return price.Price{}, err
	}

	if tier.Strategy == state.StrategyTimeDecay {
		factor := decayFactor(event.StartTime, now)
		p, err = p.MulDiv(factor, price.Unit())
		if err != nil {
			return price.Price{}, err
		}
	}

	floor := cfg.PriceFloor
	if tier.Strategy == state.StrategyAbTestA {
		floor, err = floor.Scale(abTestAFloorMarkupNum, abTestAFloorMarkupDen)
		if err != nil {
			return price.Price{}, err
		}
	}
	return p.Clamp(floor, cfg.PriceCeiling), nil
}

// demandMultiplier returns 1 + s*u in fixed point, where u is the tier's
// utilization and s its strategy sensitivity.
func demandMultiplier(tier *state.Tier) (price.Price, error) {
	if tier.Minted > tier.MaxSupply {
		return price.Price{}, fmt.Errorf("engine: tier %s minted %d exceeds max supply %d", tier.Name, tier.Minted, tier.MaxSupply)
	}
	utilization, err := price.Unit().Scale(int64(tier.Minted), int64(tier.MaxSupply))
	if err != nil {
		return price.Price{}, err
	}
	if tier.Strategy == state.StrategyAbTestB {
		utilization, err = utilization.MulRaw(abTestBSensitivity)
		if err != nil {
			return price.Price{}, err
		}
	}
	return price.Unit().Add(utilization)
}

// decayFactor returns the TimeDecay multiplier: 1.0 far ahead of the
// event, linearly falling across the approach window, and pinned at the
// floor fraction from the start time onward.
func decayFactor(startTime, now uint64) price.Price {
	if now >= startTime {
		return price.FromRaw(decayFloorFractionRaw)
	}
	remaining := startTime - now
	if remaining >= decayWindowSeconds {
		return price.Unit()
	}
	// floor + (1 - floor) * remaining/window
	span := price.FromRaw(100_000_000 - decayFloorFractionRaw)
	scaled, err := span.Scale(int64(remaining), decayWindowSeconds)
	if err != nil {
		// span * remaining stays far inside the 128-bit range.
		return price.Unit()
	}
	factor, err := price.FromRaw(decayFloorFractionRaw).Add(scaled)
	if err != nil {
		return price.Unit()
	}
	return factor
}
