package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venuecore/ticketd/internal/core/oracle"
	"github.com/venuecore/ticketd/internal/core/price"
	"github.com/venuecore/ticketd/internal/core/state"
)

func mustParse(t *testing.T, s string) price.Price {
	t.Helper()
	p, err := price.ParseDecimal(s)
	require.NoError(t, err)
	return p
}

func baseConfig(t *testing.T) *state.PricingConfig {
	t.Helper()
	return &state.PricingConfig{
		PriceFloor:           mustParse(t, "50"),
		PriceCeiling:         mustParse(t, "500"),
		OracleReferencePrice: mustParse(t, "1"),
		MaxOracleAgeSeconds:  600,
	}
}

func baseTier(t *testing.T, strategy state.Strategy) *state.Tier {
	t.Helper()
	return &state.Tier{
		Name:      "GA",
		BasePrice: mustParse(t, "100"),
		MaxSupply: 10,
		Active:    true,
		Strategy:  strategy,
	}
}

const eventStart = uint64(2_000_000_000)

func sampleAt(t *testing.T, s string) oracle.Sample {
	t.Helper()
	return oracle.Sample{Price: mustParse(t, s)}
}

func TestStandardZeroUtilization(t *testing.T) {
	// base 100, no demand, market multiplier 1 -> exactly 100.
	p, err := ComputePrice(baseTier(t, state.StrategyStandard), baseConfig(t), &state.EventInfo{StartTime: eventStart}, sampleAt(t, "1"), eventStart-90*24*3600)
	require.NoError(t, err)
	assert.Zero(t, p.Cmp(mustParse(t, "100")))
}

func TestStandardDemandRaisesPrice(t *testing.T) {
	tier := baseTier(t, state.StrategyStandard)
	tier.Minted = 5 // 50% utilization -> x1.5

	p, err := ComputePrice(tier, baseConfig(t), &state.EventInfo{StartTime: eventStart}, sampleAt(t, "1"), 0)
	require.NoError(t, err)
	assert.Zero(t, p.Cmp(mustParse(t, "150")))
	assert.LessOrEqual(t, p.Cmp(mustParse(t, "500")), 0)
}

func TestCeilingClampsMarketSpike(t *testing.T) {
	cfg := baseConfig(t)
	cfg.PriceCeiling = mustParse(t, "150")

	// Sample at twice the reference doubles the price; the ceiling wins.
	p, err := ComputePrice(baseTier(t, state.StrategyStandard), cfg, &state.EventInfo{StartTime: eventStart}, sampleAt(t, "2"), 0)
	require.NoError(t, err)
	assert.Zero(t, p.Cmp(mustParse(t, "150")))
}

func TestFloorClampsMarketCrash(t *testing.T) {
	// Sample at a tenth of the reference would price below the floor.
	p, err := ComputePrice(baseTier(t, state.StrategyStandard), baseConfig(t), &state.EventInfo{StartTime: eventStart}, sampleAt(t, "0.1"), 0)
	require.NoError(t, err)
	assert.Zero(t, p.Cmp(mustParse(t, "50")))
}

func TestAbTestBAmplifiesDemand(t *testing.T) {
	tier := baseTier(t, state.StrategyAbTestB)
	tier.Minted = 5 // 50% utilization -> x2.0 under doubled sensitivity

	p, err := ComputePrice(tier, baseConfig(t), &state.EventInfo{StartTime: eventStart}, sampleAt(t, "1"), 0)
	require.NoError(t, err)
	assert.Zero(t, p.Cmp(mustParse(t, "200")))
}

func TestAbTestAUsesRaisedFloor(t *testing.T) {
	tier := baseTier(t, state.StrategyAbTestA)

	// Crash the market so the raw result lands below even the raised floor.
	p, err := ComputePrice(tier, baseConfig(t), &state.EventInfo{StartTime: eventStart}, sampleAt(t, "0.1"), 0)
	require.NoError(t, err)
	assert.Zero(t, p.Cmp(mustParse(t, "55"))) // 50 * 110%
}

func TestTimeDecayFarOut(t *testing.T) {
	tier := baseTier(t, state.StrategyTimeDecay)

	// Outside the approach window the factor is 1.
	p, err := ComputePrice(tier, baseConfig(t), &state.EventInfo{StartTime: eventStart}, sampleAt(t, "1"), eventStart-decayWindowSeconds-1)
	require.NoError(t, err)
	assert.Zero(t, p.Cmp(mustParse(t, "100")))
}

func TestTimeDecayAtEventStart(t *testing.T) {
	tier := baseTier(t, state.StrategyTimeDecay)
	cfg := baseConfig(t)
	cfg.PriceFloor = price.Zero()

	// At the start time the factor is pinned at the floor fraction.
	p, err := ComputePrice(tier, cfg, &state.EventInfo{StartTime: eventStart}, sampleAt(t, "1"), eventStart)
	require.NoError(t, err)
	assert.Zero(t, p.Cmp(mustParse(t, "25")))
}

func TestTimeDecayMidWindow(t *testing.T) {
	tier := baseTier(t, state.StrategyTimeDecay)
	cfg := baseConfig(t)
	cfg.PriceFloor = price.Zero()

	// Halfway through the window: 0.25 + 0.75/2 = 0.625.
	p, err := ComputePrice(tier, cfg, &state.EventInfo{StartTime: eventStart}, sampleAt(t, "1"), eventStart-decayWindowSeconds/2)
	require.NoError(t, err)
	assert.Zero(t, p.Cmp(mustParse(t, "62.5")))
}

func TestZeroSupplyRejected(t *testing.T) {
	tier := baseTier(t, state.StrategyStandard)
	tier.MaxSupply = 0
	_, err := ComputePrice(tier, baseConfig(t), &state.EventInfo{}, sampleAt(t, "1"), 0)
	assert.ErrorIs(t, err, ErrBadSupply)
}

func TestZeroReferenceRejected(t *testing.T) {
	cfg := baseConfig(t)
	cfg.OracleReferencePrice = price.Zero()
	_, err := ComputePrice(baseTier(t, state.StrategyStandard), cfg, &state.EventInfo{}, sampleAt(t, "1"), 0)
	assert.ErrorIs(t, err, ErrBadReference)
}

func TestResultAlwaysWithinBounds(t *testing.T) {
	cfg := baseConfig(t)
	ev := &state.EventInfo{StartTime: eventStart}
	samples := []string{"0.01", "0.5", "1", "2", "10"}
	for _, strategy := range []state.Strategy{state.StrategyStandard, state.StrategyTimeDecay, state.StrategyAbTestA, state.StrategyAbTestB} {
		for minted := uint32(0); minted <= 10; minted += 5 {
			for _, s := range samples {
				tier := baseTier(t, strategy)
				tier.Minted = minted
				p, err := ComputePrice(tier, cfg, ev, sampleAt(t, s), eventStart-1000)
				require.NoError(t, err)
				assert.LessOrEqual(t, p.Cmp(cfg.PriceCeiling), 0)
				assert.GreaterOrEqual(t, p.Cmp(cfg.PriceFloor), 0)
			}
		}
	}
}
