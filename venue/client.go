// Package venue defines the capability interface the routing core consumes
// and the venue-neutral wire types it exchanges. Implementations own no
// local state; every call is a plain request/response boundary.
package venue

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Order status filter values accepted by Orders.
const (
	StatusFilterOpen   = "open"
	StatusFilterClosed = "closed"
	StatusFilterAll    = "all"
)

// OrderRequest is a fully normalized submission payload. Quantity is always
// positive; direction is carried by Side.
type OrderRequest struct {
	Symbol        string
	Side          string // buy/sell
	Type          string // market/limit/stop_limit
	TimeInForce   string
	Quantity      decimal.Decimal
	LimitPrice    *decimal.Decimal
	StopPrice     *decimal.Decimal
	ClientOrderID string
}

// Order is the venue's view of an order. Optional prices stay nil when the
// venue does not report them.
type Order struct {
	VenueOrderID   string
	ClientOrderID  string
	Symbol         string
	Side           string
	Type           string
	TimeInForce    string
	Status         string
	Quantity       decimal.Decimal
	FilledQuantity decimal.Decimal
	LimitPrice     *decimal.Decimal
	StopPrice      *decimal.Decimal
	AvgFillPrice   *decimal.Decimal
	UpdatedAt      time.Time
}

// Position is the venue's view of exposure in one instrument.
type Position struct {
	Symbol     string
	LongUnits  decimal.Decimal
	LongPL     decimal.Decimal
	ShortUnits decimal.Decimal
	ShortPL    decimal.Decimal
}

// Account is a snapshot of the account's financial metrics.
type Account struct {
	Equity         decimal.Decimal
	Cash           decimal.Decimal
	PortfolioValue decimal.Decimal
	BuyingPower    decimal.Decimal
}

// Asset carries the instrument metadata needed for size rounding.
type Asset struct {
	Symbol       string
	Fractionable bool
	MinIncrement decimal.Decimal
}

// Client abstracts one venue's trading operations. All calls must honor ctx
// and carry an explicit transport timeout.
type Client interface {
	// SubmitOrder places the order and returns the venue-assigned order id.
	SubmitOrder(ctx context.Context, req OrderRequest) (string, error)

	// CancelOrder requests cancellation of an open order by venue order id.
	CancelOrder(ctx context.Context, venueOrderID string) error

	// Orders lists orders filtered by status (open/closed/all). Empty symbol
	// means all instruments.
	Orders(ctx context.Context, status, symbol string) ([]Order, error)

	// Positions lists open positions. Empty symbol means all instruments.
	Positions(ctx context.Context, symbol string) ([]Position, error)

	// Account returns the current account snapshot.
	Account(ctx context.Context) (Account, error)

	// Asset returns instrument metadata, or ErrAssetNotFound.
	Asset(ctx context.Context, symbol string) (Asset, error)
}
