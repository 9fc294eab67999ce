package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status represents order lifecycle.
type Status string

const (
	StatusPending         Status = "PENDING"
	StatusSubmitted       Status = "SUBMITTED"
	StatusPartiallyFilled Status = "PARTIALLY_FILLED"
	StatusFilled          Status = "FILLED"
	StatusCancelled       Status = "CANCELLED"
	StatusRejected        Status = "REJECTED"
)

// Type enumerates order types accepted by the router. TypeClose is resolved
// by the broker facade into an opposing market order before routing.
type Type string

const (
	TypeMarket    Type = "market"
	TypeLimit     Type = "limit"
	TypeStopLimit Type = "stop-limit"
	TypeClose     Type = "close"
)

// Time-in-force values passed through to the venue.
const (
	TIFDay = "day"
	TIFGTC = "gtc"
	TIFIOC = "ioc"
)

// Order is the session-local view of one logical order. ClientOrderID is
// immutable and unique for the session; VenueOrderID is assigned at most
// once.
type Order struct {
	ClientOrderID string
	VenueOrderID  string
	Instrument    string
	Direction     int // +1 buy, -1 sell
	Size          decimal.Decimal
	Type          Type
	LimitPrice    *decimal.Decimal
	StopPrice     *decimal.Decimal
	TimeInForce   string
	Status        Status
	FilledSize    decimal.Decimal
	AvgFillPrice  *decimal.Decimal
	RelatedOrders []string
	StrategyTag   string
	External      bool // discovered via reconciliation, placed out-of-band
	CreatedAt     time.Time
	UpdatedAt     time.Time
	LastError     string
}

// Trade is a completed fill event. Immutable once created.
type Trade struct {
	ID           string
	Instrument   string
	Direction    int
	FillPrice    decimal.Decimal
	Size         decimal.Decimal
	FilledAt     time.Time
	UnrealizedPL decimal.Decimal
	OrderID      string // originating client order id
}

// Position is derived from venue state on each reconciliation pass, never
// independently mutated.
type Position struct {
	Instrument string
	LongUnits  decimal.Decimal
	LongPL     decimal.Decimal
	ShortUnits decimal.Decimal
	ShortPL    decimal.Decimal
}
