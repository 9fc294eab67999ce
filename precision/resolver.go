// Package precision derives the rounding precision of an instrument from
// venue asset metadata, memoized per instrument.
package precision

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"order-gateway-go/venue"
)

// ErrUnknownInstrument signals the venue does not list the instrument.
var ErrUnknownInstrument = errors.New("unknown instrument")

// Resolver caches decimal places per instrument. Entries are invalidated
// only by explicit Refresh.
type Resolver struct {
	venue venue.Client

	mu    sync.RWMutex
	cache map[string]int32
}

func NewResolver(vc venue.Client) *Resolver {
	return &Resolver{venue: vc, cache: make(map[string]int32)}
}

// Precision returns the number of decimal places tradable sizes may carry.
// Non-fractionable instruments have precision 0.
func (r *Resolver) Precision(ctx context.Context, instrument string) (int32, error) {
	r.mu.RLock()
	p, ok := r.cache[instrument]
	r.mu.RUnlock()
	if ok {
		return p, nil
	}

	asset, err := r.venue.Asset(ctx, instrument)
	if err != nil {
		if errors.Is(err, venue.ErrAssetNotFound) {
			return 0, fmt.Errorf("%w: %s", ErrUnknownInstrument, instrument)
		}
		return 0, fmt.Errorf("fetch asset %s: %w", instrument, err)
	}

	p = 0
	if asset.Fractionable {
		// A min increment of 0.001 has exponent -3, so three places.
		if exp := asset.MinIncrement.Exponent(); exp < 0 {
			p = -exp
		}
	}

	r.mu.Lock()
	r.cache[instrument] = p
	r.mu.Unlock()
	return p, nil
}

// RoundSize clamps units to the instrument's precision. Applying it twice
// is stable.
func (r *Resolver) RoundSize(ctx context.Context, instrument string, units decimal.Decimal) (decimal.Decimal, error) {
	p, err := r.Precision(ctx, instrument)
	if err != nil {
		return decimal.Zero, err
	}
	return units.Round(p), nil
}

// Refresh drops the cached entry so the next lookup re-queries the venue.
func (r *Resolver) Refresh(instrument string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cache, instrument)
}
