package precision

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"order-gateway-go/venue"
)

// assetVenue serves only the Asset call and counts lookups.
type assetVenue struct {
	venue.Client

	assets map[string]venue.Asset
	calls  int
	err    error
}

func (v *assetVenue) Asset(_ context.Context, symbol string) (venue.Asset, error) {
	v.calls++
	if v.err != nil {
		return venue.Asset{}, v.err
	}
	a, ok := v.assets[symbol]
	if !ok {
		return venue.Asset{}, venue.ErrAssetNotFound
	}
	return a, nil
}

func newAssetVenue() *assetVenue {
	return &assetVenue{assets: map[string]venue.Asset{
		"AAPL": {Symbol: "AAPL", Fractionable: true, MinIncrement: decimal.RequireFromString("0.001")},
		"BRK.A": {Symbol: "BRK.A", Fractionable: false},
	}}
}

func TestPrecisionFractionable(t *testing.T) {
	r := NewResolver(newAssetVenue())

	p, err := r.Precision(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, int32(3), p)
}

func TestPrecisionNonFractionable(t *testing.T) {
	r := NewResolver(newAssetVenue())

	p, err := r.Precision(context.Background(), "BRK.A")
	require.NoError(t, err)
	assert.Equal(t, int32(0), p)
}

func TestPrecisionMemoizes(t *testing.T) {
	av := newAssetVenue()
	r := NewResolver(av)

	for i := 0; i < 3; i++ {
		_, err := r.Precision(context.Background(), "AAPL")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, av.calls)

	r.Refresh("AAPL")
	_, err := r.Precision(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 2, av.calls)
}

func TestPrecisionUnknownInstrument(t *testing.T) {
	av := newAssetVenue()
	r := NewResolver(av)

	_, err := r.Precision(context.Background(), "NOPE")
	assert.ErrorIs(t, err, ErrUnknownInstrument)

	// lookup failures are not cached
	_, err = r.Precision(context.Background(), "NOPE")
	assert.ErrorIs(t, err, ErrUnknownInstrument)
	assert.Equal(t, 2, av.calls)
}

func TestPrecisionTransportErrorNotMappedToUnknown(t *testing.T) {
	av := newAssetVenue()
	av.err = errors.New("venue unreachable")
	r := NewResolver(av)

	_, err := r.Precision(context.Background(), "AAPL")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnknownInstrument))
}

func TestRoundSize(t *testing.T) {
	r := NewResolver(newAssetVenue())

	got, err := r.RoundSize(context.Background(), "AAPL", decimal.RequireFromString("10.45678"))
	require.NoError(t, err)
	assert.Equal(t, "10.457", got.String())

	// idempotent
	again, err := r.RoundSize(context.Background(), "AAPL", got)
	require.NoError(t, err)
	assert.True(t, got.Equal(again))

	whole, err := r.RoundSize(context.Background(), "BRK.A", decimal.RequireFromString("10.456"))
	require.NoError(t, err)
	assert.Equal(t, "10", whole.String())
}
