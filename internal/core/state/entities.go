// Package state defines the persistent entities of the ticket ledger, the
// tagged key namespace they are stored under, and the staged-write view
// used to apply operations atomically.
package state

import (
	"fmt"

	"github.com/venuecore/ticketd/internal/core/price"
)

// Strategy selects the pricing curve applied to a tier. The variant set is
// closed; ComputePrice dispatches over it exhaustively.
type Strategy uint8

const (
	// StrategyStandard applies the demand and market multipliers directly.
	StrategyStandard Strategy = iota
	// StrategyTimeDecay additionally decays the price as the event nears.
	StrategyTimeDecay
	// StrategyAbTestA is the high-floor experiment bucket.
	StrategyAbTestA
	// StrategyAbTestB is the amplified demand-sensitivity experiment bucket.
	StrategyAbTestB
)

// String returns the canonical strategy name.
func (s Strategy) String() string {
	switch s {
	case StrategyStandard:
		return "standard"
	case StrategyTimeDecay:
		return "time_decay"
	case StrategyAbTestA:
		return "ab_test_a"
	case StrategyAbTestB:
		return "ab_test_b"
	default:
		return fmt.Sprintf("Strategy(%d)", uint8(s))
	}
}

// ParseStrategy maps a canonical strategy name back to its value.
func ParseStrategy(name string) (Strategy, error) {
	switch name {
	case "standard":
		return StrategyStandard, nil
	case "time_decay":
		return StrategyTimeDecay, nil
	case "ab_test_a":
		return StrategyAbTestA, nil
	case "ab_test_b":
		return StrategyAbTestB, nil
	default:
		return 0, fmt.Errorf("unknown pricing strategy: %q", name)
	}
}

// PricingConfig is the singleton pricing configuration.
type PricingConfig struct {
	// OracleAddress identifies the external oracle source.
	OracleAddress string `codec:"oracle_address"`
	// DexPoolAddress identifies the DEX pool used as the staleness fallback.
	DexPoolAddress string `codec:"dex_pool_address"`
	// PriceFloor and PriceCeiling are the inclusive clamp bounds.
	PriceFloor   price.Price `codec:"price_floor"`
	PriceCeiling price.Price `codec:"price_ceiling"`
	// UpdateFrequency is the minimum number of seconds between price
	// recomputations per tier registry update.
	UpdateFrequency uint64 `codec:"update_frequency"`
	// LastUpdateTime is the unix time of the last applied recomputation.
	LastUpdateTime uint64 `codec:"last_update_time"`
	// IsFrozen blocks price recomputation and minting when true.
	IsFrozen bool `codec:"is_frozen"`
	// OraclePair is the asset pair queried from the oracle, e.g. "XLM/USD".
	OraclePair string `codec:"oracle_pair"`
	// OracleReferencePrice is the trusted baseline reading anchoring the
	// market multiplier. Set once at initialization, changed only through
	// UpdateOracleReference.
	OracleReferencePrice price.Price `codec:"oracle_reference_price"`
	// MaxOracleAgeSeconds is the staleness threshold before the DEX
	// fallback kicks in.
	MaxOracleAgeSeconds uint64 `codec:"max_oracle_age_seconds"`
}

// EventInfo is the singleton event timing entry. RefundCutoffTime is
// expected to be at or before StartTime but that relationship is not
// separately enforced; refunds are rejected once the cutoff passes.
type EventInfo struct {
	StartTime        uint64 `codec:"start_time"`
	RefundCutoffTime uint64 `codec:"refund_cutoff_time"`
}

// Tier is one priced class of tickets with its own supply cap.
type Tier struct {
	Name string `codec:"name"`
	// BasePrice is the immutable pricing anchor.
	BasePrice price.Price `codec:"base_price"`
	// CurrentPrice is the last computed and persisted price.
	CurrentPrice price.Price `codec:"current_price"`
	MaxSupply    uint32      `codec:"max_supply"`
	// Minted is monotonically non-decreasing and never exceeds MaxSupply.
	// Refunds do not decrement it; total ever-minted count is the
	// scarcity signal.
	Minted   uint32   `codec:"minted"`
	Active   bool     `codec:"active"`
	Strategy Strategy `codec:"strategy"`
}

// Ticket is one issued ticket. PricePaid is captured at mint time and
// never recomputed; IsValid flips to false exactly once on refund.
type Ticket struct {
	TierSymbol   string      `codec:"tier_symbol"`
	PurchaseTime uint64      `codec:"purchase_time"`
	PricePaid    price.Price `codec:"price_paid"`
	IsValid      bool        `codec:"is_valid"`
}
