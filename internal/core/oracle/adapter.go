// Package oracle reads reference price samples for the pricing engine.
// The adapter consults an external oracle first and falls back to a DEX
// pool spot price when the oracle reading is stale or unavailable.
package oracle

import (
	"context"
	"errors"
	"fmt"

	"github.com/venuecore/ticketd/internal/core/price"
)

// ErrUnavailable indicates both the oracle and the DEX fallback failed.
var ErrUnavailable = errors.New("oracle: no price source available")

// ErrNoPrice indicates a source has no reading for the requested pair or
// pool yet.
var ErrNoPrice = errors.New("oracle: no price observed")

// Source queries an external oracle for the latest price of an asset
// pair. The returned timestamp is the oracle's publication time in unix
// seconds.
type Source interface {
	LatestPrice(ctx context.Context, pair string) (price.Price, uint64, error)
}

// Pool queries a DEX pool for its current spot price. Spot prices are
// treated as always fresh.
type Pool interface {
	SpotPrice(ctx context.Context, poolAddress string) (price.Price, error)
}

// Sample is one reference price reading handed to the pricing engine.
type Sample struct {
	// Price is the reference price in fixed-point units.
	Price price.Price
	// AgeSeconds is how old the reading was at sampling time. DEX
	// fallback readings always report zero.
	AgeSeconds uint64
	// FromDex records that the staleness fallback was taken.
	FromDex bool
}

// Adapter combines an oracle source with a DEX pool fallback.
type Adapter struct {
	source Source
	pool   Pool
}

// NewAdapter creates an adapter over the given source and pool. Either
// may be nil, in which case only the other is consulted.
func NewAdapter(source Source, pool Pool) *Adapter {
	return &Adapter{source: source, pool: pool}
}

// ReferenceSample returns the freshest usable price for pair.
//
// The oracle reading wins when its age is within maxAgeSeconds. A stale
// or failed oracle reading falls back to the DEX pool at poolAddress.
// Only when both sources fail does the call fail, with ErrUnavailable;
// the caller keeps its previously persisted price in that case.
func (a *Adapter) ReferenceSample(ctx context.Context, pair, poolAddress string, maxAgeSeconds, now uint64) (Sample, error) {
	var oracleErr error
	if a.source != nil {
		p, ts, err := a.source.LatestPrice(ctx, pair)
		if err == nil {
			var age uint64
			if ts < now {
				age = now - ts
			}
			if age <= maxAgeSeconds {
				return Sample{Price: p, AgeSeconds: age}, nil
			}
			oracleErr = fmt.Errorf("oracle reading for %s is %ds old (max %ds)", pair, age, maxAgeSeconds)
		} else {
			oracleErr = err
		}
	} else {
		oracleErr = errors.New("no oracle source configured")
	}

	if a.pool != nil {
		p, err := a.pool.SpotPrice(ctx, poolAddress)
		if err == nil {
			return Sample{Price: p, AgeSeconds: 0, FromDex: true}, nil
		}
		return Sample{}, fmt.Errorf("%w: oracle: %v; dex: %v", ErrUnavailable, oracleErr, err)
	}
	return Sample{}, fmt.Errorf("%w: oracle: %v; no dex pool configured", ErrUnavailable, oracleErr)
}
