package venue

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPaperWithAAPL() *Paper {
	p := NewPaper()
	p.SetAsset(Asset{Symbol: "AAPL", Fractionable: true, MinIncrement: decimal.RequireFromString("0.001")})
	p.SetMark("AAPL", decimal.RequireFromString("180"))
	return p
}

func TestPaperMarketOrderFillsImmediately(t *testing.T) {
	p := newPaperWithAAPL()

	id, err := p.SubmitOrder(context.Background(), OrderRequest{
		Symbol: "AAPL", Side: "buy", Type: "market", Quantity: decimal.NewFromInt(5),
	})
	require.NoError(t, err)

	orders, err := p.Orders(context.Background(), StatusFilterClosed, "AAPL")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, id, orders[0].VenueOrderID)
	assert.Equal(t, "filled", orders[0].Status)
	require.NotNil(t, orders[0].AvgFillPrice)
	assert.Equal(t, "180", orders[0].AvgFillPrice.String())

	positions, err := p.Positions(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.True(t, positions[0].LongUnits.Equal(decimal.NewFromInt(5)))
}

func TestPaperLimitOrderRestsOpen(t *testing.T) {
	p := newPaperWithAAPL()
	price := decimal.RequireFromString("170")

	id, err := p.SubmitOrder(context.Background(), OrderRequest{
		Symbol: "AAPL", Side: "buy", Type: "limit", Quantity: decimal.NewFromInt(5), LimitPrice: &price,
	})
	require.NoError(t, err)

	open, err := p.Orders(context.Background(), StatusFilterOpen, "")
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "new", open[0].Status)

	require.NoError(t, p.CancelOrder(context.Background(), id))
	open, _ = p.Orders(context.Background(), StatusFilterOpen, "")
	assert.Empty(t, open)
}

func TestPaperCancelTerminalOrderRejected(t *testing.T) {
	p := newPaperWithAAPL()

	id, err := p.SubmitOrder(context.Background(), OrderRequest{
		Symbol: "AAPL", Side: "buy", Type: "market", Quantity: decimal.NewFromInt(1),
	})
	require.NoError(t, err)

	err = p.CancelOrder(context.Background(), id)
	var rej *RejectionError
	require.True(t, errors.As(err, &rej))
	assert.Equal(t, 422, rej.Code)
}

func TestPaperRejectsUnknownSymbol(t *testing.T) {
	p := NewPaper()

	_, err := p.SubmitOrder(context.Background(), OrderRequest{
		Symbol: "NOPE", Side: "buy", Type: "market", Quantity: decimal.NewFromInt(1),
	})
	var rej *RejectionError
	assert.True(t, errors.As(err, &rej))

	_, err = p.Asset(context.Background(), "NOPE")
	assert.ErrorIs(t, err, ErrAssetNotFound)
}

func TestPaperShortAndFlat(t *testing.T) {
	p := newPaperWithAAPL()

	_, err := p.SubmitOrder(context.Background(), OrderRequest{
		Symbol: "AAPL", Side: "sell", Type: "market", Quantity: decimal.NewFromInt(3),
	})
	require.NoError(t, err)

	positions, _ := p.Positions(context.Background(), "AAPL")
	require.Len(t, positions, 1)
	assert.True(t, positions[0].ShortUnits.Equal(decimal.NewFromInt(3)))

	_, err = p.SubmitOrder(context.Background(), OrderRequest{
		Symbol: "AAPL", Side: "buy", Type: "market", Quantity: decimal.NewFromInt(3),
	})
	require.NoError(t, err)

	positions, _ = p.Positions(context.Background(), "AAPL")
	assert.Empty(t, positions, "flat positions are not reported")
}
