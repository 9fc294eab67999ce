// Package broker is the caller-facing surface of the gateway. It mirrors a
// classic broker interface (place/cancel/orders/trades/positions/NAV/
// balance) on top of the routing core, rounding sizes to instrument
// precision before anything reaches the venue.
package broker

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"order-gateway-go/order"
	"order-gateway-go/precision"
	"order-gateway-go/venue"
)

// ErrNoPosition signals a close order for an instrument with no open
// position.
var ErrNoPosition = errors.New("no open position")

type Broker struct {
	venue     venue.Client
	router    *order.Router
	precision *precision.Resolver
	log       *zap.Logger
}

func New(vc venue.Client, router *order.Router, resolver *precision.Resolver, log *zap.Logger) *Broker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Broker{venue: vc, router: router, precision: resolver, log: log}
}

// PlaceOrder rounds the order size to the instrument's precision, resolves
// close orders against the live position, and routes the result. Size
// rounding happens before submission; a zero rounded size is rejected
// locally.
func (b *Broker) PlaceOrder(ctx context.Context, o order.Order) (*order.Order, error) {
	if o.Type == order.TypeClose {
		resolved, err := b.resolveClose(ctx, o)
		if err != nil {
			return nil, err
		}
		o = resolved
	}

	size, err := b.precision.RoundSize(ctx, o.Instrument, o.Size)
	if err != nil {
		return nil, err
	}
	if size.Sign() <= 0 {
		return nil, fmt.Errorf("order size %s rounds to zero for %s", o.Size, o.Instrument)
	}
	o.Size = size

	return b.router.Place(ctx, o)
}

// CancelOrder cancels by client order id; already-terminal orders are a
// successful no-op.
func (b *Broker) CancelOrder(ctx context.Context, clientOrderID string) error {
	return b.router.Cancel(ctx, clientOrderID)
}

// Order returns one order by client order id.
func (b *Broker) Order(clientOrderID string) (order.Order, error) {
	return b.router.Get(clientOrderID)
}

// Orders lists session orders, optionally filtered by instrument.
func (b *Broker) Orders(instrument string) []order.Order {
	return b.router.Orders(instrument)
}

// Trades lists fills recorded this session, optionally filtered by
// instrument.
func (b *Broker) Trades(instrument string) []order.Trade {
	return b.router.Trades(instrument)
}

// Positions lists positions from the last reconciliation pass.
func (b *Broker) Positions(instrument string) []order.Position {
	return b.router.Positions(instrument)
}

// NAV returns the net liquidation value of the account.
func (b *Broker) NAV(ctx context.Context) (decimal.Decimal, error) {
	acct, err := b.venue.Account(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("get account: %w", err)
	}
	return acct.PortfolioValue, nil
}

// Balance returns account equity. Cash and buying power stay available on
// Account for callers that need a different notion of balance.
func (b *Broker) Balance(ctx context.Context) (decimal.Decimal, error) {
	acct, err := b.venue.Account(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("get account: %w", err)
	}
	return acct.Equity, nil
}

// Account returns the full account snapshot.
func (b *Broker) Account(ctx context.Context) (venue.Account, error) {
	return b.venue.Account(ctx)
}

// resolveClose turns a close order into an opposing market order sized from
// the venue's live position.
func (b *Broker) resolveClose(ctx context.Context, o order.Order) (order.Order, error) {
	positions, err := b.venue.Positions(ctx, o.Instrument)
	if err != nil {
		return order.Order{}, fmt.Errorf("fetch position for close: %w", err)
	}
	net := decimal.Zero
	for _, p := range positions {
		net = net.Add(p.LongUnits).Sub(p.ShortUnits)
	}
	if net.IsZero() {
		return order.Order{}, fmt.Errorf("%w: %s", ErrNoPosition, o.Instrument)
	}

	o.Type = order.TypeMarket
	o.Size = net.Abs()
	if net.Sign() > 0 {
		o.Direction = -1
	} else {
		o.Direction = 1
	}
	b.log.Info("close order resolved",
		zap.String("instrument", o.Instrument),
		zap.String("size", o.Size.String()),
		zap.Int("direction", o.Direction))
	return o, nil
}
