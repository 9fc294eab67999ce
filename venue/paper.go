package venue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Paper is an in-memory venue used for dry runs and tests. Market orders
// fill immediately at the configured mark price; limit and stop-limit
// orders rest open until cancelled.
type Paper struct {
	mu      sync.RWMutex
	seq     int
	assets  map[string]Asset
	marks   map[string]decimal.Decimal
	orders  map[string]*Order // keyed by venue order id
	netPos  map[string]decimal.Decimal
	account Account
}

func NewPaper() *Paper {
	return &Paper{
		assets: make(map[string]Asset),
		marks:  make(map[string]decimal.Decimal),
		orders: make(map[string]*Order),
		netPos: make(map[string]decimal.Decimal),
	}
}

// SetAsset registers instrument metadata.
func (p *Paper) SetAsset(a Asset) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.assets[a.Symbol] = a
}

// SetMark sets the price market orders fill at.
func (p *Paper) SetMark(symbol string, price decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.marks[symbol] = price
}

// SetAccount overrides the account snapshot returned by Account.
func (p *Paper) SetAccount(a Account) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.account = a
}

func (p *Paper) SubmitOrder(_ context.Context, req OrderRequest) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if req.Quantity.Sign() <= 0 {
		return "", &RejectionError{Code: 422, Message: "quantity must be positive"}
	}
	if _, ok := p.assets[req.Symbol]; !ok {
		return "", &RejectionError{Code: 404, Message: "unknown symbol " + req.Symbol}
	}
	p.seq++
	id := fmt.Sprintf("paper-%d", p.seq)
	o := &Order{
		VenueOrderID:  id,
		ClientOrderID: req.ClientOrderID,
		Symbol:        req.Symbol,
		Side:          req.Side,
		Type:          req.Type,
		TimeInForce:   req.TimeInForce,
		Status:        "new",
		Quantity:      req.Quantity,
		LimitPrice:    req.LimitPrice,
		StopPrice:     req.StopPrice,
		UpdatedAt:     time.Now().UTC(),
	}
	if req.Type == "market" {
		mark, ok := p.marks[req.Symbol]
		if !ok {
			return "", &RejectionError{Code: 422, Message: "no mark price for " + req.Symbol}
		}
		o.Status = "filled"
		o.FilledQuantity = req.Quantity
		fill := mark
		o.AvgFillPrice = &fill
		signed := req.Quantity
		if o.Side == "sell" {
			signed = signed.Neg()
		}
		p.netPos[req.Symbol] = p.netPos[req.Symbol].Add(signed)
	}
	p.orders[id] = o
	return id, nil
}

func (p *Paper) CancelOrder(_ context.Context, venueOrderID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	o, ok := p.orders[venueOrderID]
	if !ok {
		return &RejectionError{Code: 404, Message: "unknown order " + venueOrderID}
	}
	switch o.Status {
	case "filled", "canceled", "rejected":
		return &RejectionError{Code: 422, Message: "order already " + o.Status}
	}
	o.Status = "canceled"
	o.UpdatedAt = time.Now().UTC()
	return nil
}

func (p *Paper) Orders(_ context.Context, status, symbol string) ([]Order, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []Order
	for _, o := range p.orders {
		if symbol != "" && o.Symbol != symbol {
			continue
		}
		open := o.Status == "new" || o.Status == "partially_filled"
		switch status {
		case StatusFilterOpen:
			if !open {
				continue
			}
		case StatusFilterClosed:
			if open {
				continue
			}
		}
		out = append(out, *o)
	}
	return out, nil
}

func (p *Paper) Positions(_ context.Context, symbol string) ([]Position, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []Position
	for sym, net := range p.netPos {
		if symbol != "" && sym != symbol {
			continue
		}
		if net.IsZero() {
			continue
		}
		pos := Position{Symbol: sym}
		if net.Sign() > 0 {
			pos.LongUnits = net
		} else {
			pos.ShortUnits = net.Neg()
		}
		out = append(out, pos)
	}
	return out, nil
}

func (p *Paper) Account(_ context.Context) (Account, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.account, nil
}

func (p *Paper) Asset(_ context.Context, symbol string) (Asset, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	a, ok := p.assets[symbol]
	if !ok {
		return Asset{}, fmt.Errorf("%w: %s", ErrAssetNotFound, symbol)
	}
	return a, nil
}

var _ Client = (*Paper)(nil)
