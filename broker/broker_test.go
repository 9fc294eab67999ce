package broker

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"order-gateway-go/order"
	"order-gateway-go/precision"
	"order-gateway-go/venue"
)

func newTestBroker(t *testing.T) (*Broker, *venue.Paper) {
	t.Helper()
	p := venue.NewPaper()
	p.SetAsset(venue.Asset{Symbol: "AAPL", Fractionable: true, MinIncrement: decimal.RequireFromString("0.001")})
	p.SetAsset(venue.Asset{Symbol: "BRK.A", Fractionable: false})
	p.SetMark("AAPL", decimal.RequireFromString("180"))
	p.SetMark("BRK.A", decimal.RequireFromString("620000"))
	p.SetAccount(venue.Account{
		Equity:         decimal.RequireFromString("100000"),
		Cash:           decimal.RequireFromString("40000"),
		PortfolioValue: decimal.RequireFromString("105000"),
		BuyingPower:    decimal.RequireFromString("200000"),
	})

	router := order.NewRouter(p, order.NewStore(), nil)
	return New(p, router, precision.NewResolver(p), nil), p
}

func TestPlaceOrderRoundsSizeBeforeSubmission(t *testing.T) {
	b, _ := newTestBroker(t)

	placed, err := b.PlaceOrder(context.Background(), order.Order{
		Instrument: "AAPL",
		Direction:  1,
		Size:       decimal.RequireFromString("10.45678"),
		Type:       order.TypeMarket,
	})
	require.NoError(t, err)
	assert.Equal(t, "10.457", placed.Size.String())
	assert.Equal(t, order.StatusSubmitted, placed.Status)
}

func TestPlaceOrderNonFractionableWhole(t *testing.T) {
	b, _ := newTestBroker(t)

	placed, err := b.PlaceOrder(context.Background(), order.Order{
		Instrument: "BRK.A",
		Direction:  1,
		Size:       decimal.RequireFromString("1.4"),
		Type:       order.TypeMarket,
	})
	require.NoError(t, err)
	assert.Equal(t, "1", placed.Size.String())
}

func TestPlaceOrderZeroAfterRounding(t *testing.T) {
	b, _ := newTestBroker(t)

	_, err := b.PlaceOrder(context.Background(), order.Order{
		Instrument: "BRK.A",
		Direction:  1,
		Size:       decimal.RequireFromString("0.4"),
		Type:       order.TypeMarket,
	})
	require.Error(t, err)
	assert.Empty(t, b.Orders(""), "rejected order must not be recorded")
}

func TestPlaceOrderUnknownInstrument(t *testing.T) {
	b, _ := newTestBroker(t)

	_, err := b.PlaceOrder(context.Background(), order.Order{
		Instrument: "NOPE",
		Direction:  1,
		Size:       decimal.NewFromInt(1),
		Type:       order.TypeMarket,
	})
	assert.ErrorIs(t, err, precision.ErrUnknownInstrument)
}

func TestCloseResolvesToOpposingMarketOrder(t *testing.T) {
	b, pv := newTestBroker(t)

	_, err := b.PlaceOrder(context.Background(), order.Order{
		Instrument: "AAPL",
		Direction:  1,
		Size:       decimal.NewFromInt(10),
		Type:       order.TypeMarket,
	})
	require.NoError(t, err)

	closed, err := b.PlaceOrder(context.Background(), order.Order{
		Instrument: "AAPL",
		Type:       order.TypeClose,
	})
	require.NoError(t, err)
	assert.Equal(t, order.TypeMarket, closed.Type)
	assert.Equal(t, -1, closed.Direction)
	assert.Equal(t, "10", closed.Size.String())

	// venue position is flat again
	positions, err := pv.Positions(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Empty(t, positions)
}

func TestCloseWithoutPosition(t *testing.T) {
	b, _ := newTestBroker(t)

	_, err := b.PlaceOrder(context.Background(), order.Order{
		Instrument: "AAPL",
		Type:       order.TypeClose,
	})
	assert.ErrorIs(t, err, ErrNoPosition)
}

func TestCloseOfShortPositionBuysBack(t *testing.T) {
	b, _ := newTestBroker(t)

	_, err := b.PlaceOrder(context.Background(), order.Order{
		Instrument: "AAPL",
		Direction:  -1,
		Size:       decimal.NewFromInt(3),
		Type:       order.TypeMarket,
	})
	require.NoError(t, err)

	closed, err := b.PlaceOrder(context.Background(), order.Order{
		Instrument: "AAPL",
		Type:       order.TypeClose,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, closed.Direction)
	assert.Equal(t, "3", closed.Size.String())
}

func TestNAVAndBalance(t *testing.T) {
	b, _ := newTestBroker(t)

	nav, err := b.NAV(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "105000", nav.String())

	bal, err := b.Balance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "100000", bal.String())

	acct, err := b.Account(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "40000", acct.Cash.String())
	assert.Equal(t, "200000", acct.BuyingPower.String())
}

func TestCancelFilledOrderIsNoop(t *testing.T) {
	b, _ := newTestBroker(t)

	_, err := b.PlaceOrder(context.Background(), order.Order{
		ClientOrderID: "c1",
		Instrument:    "AAPL",
		Direction:     1,
		Size:          decimal.NewFromInt(1),
		Type:          order.TypeMarket,
	})
	require.NoError(t, err)

	// paper venue fills market orders immediately, but the router only
	// learns that from reconciliation; cancel then races the fill and the
	// venue declines it, which is still a successful no-op for the caller.
	err = b.CancelOrder(context.Background(), "c1")
	assert.NoError(t, err)

	assert.True(t, errors.Is(b.CancelOrder(context.Background(), "missing"), order.ErrNotFound))
}
