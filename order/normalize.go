package order

import (
	"fmt"

	"order-gateway-go/venue"
)

// ToVenueRequest maps an order into the venue's side/type vocabulary. It is
// deterministic and fails with UnsupportedOrderTypeError rather than
// dropping the order.
func ToVenueRequest(o Order) (venue.OrderRequest, error) {
	var req venue.OrderRequest
	switch o.Direction {
	case 1:
		req.Side = "buy"
	case -1:
		req.Side = "sell"
	default:
		return req, fmt.Errorf("direction must be +1 or -1, got %d", o.Direction)
	}
	switch o.Type {
	case TypeMarket:
		req.Type = "market"
	case TypeLimit:
		if o.LimitPrice == nil {
			return req, fmt.Errorf("limit order %s has no limit price", o.ClientOrderID)
		}
		req.Type = "limit"
	case TypeStopLimit:
		if o.LimitPrice == nil || o.StopPrice == nil {
			return req, fmt.Errorf("stop-limit order %s needs limit and stop prices", o.ClientOrderID)
		}
		req.Type = "stop_limit"
	default:
		return req, &UnsupportedOrderTypeError{Type: o.Type}
	}
	req.Symbol = o.Instrument
	req.Quantity = o.Size.Abs()
	req.LimitPrice = o.LimitPrice
	req.StopPrice = o.StopPrice
	req.TimeInForce = o.TimeInForce
	if req.TimeInForce == "" {
		req.TimeInForce = TIFDay
	}
	req.ClientOrderID = o.ClientOrderID
	return req, nil
}

// FromVenueOrder maps a venue order into a local record. Fields the venue
// does not supply stay absent; nothing is fabricated.
func FromVenueOrder(vo venue.Order) Order {
	o := Order{
		ClientOrderID: vo.ClientOrderID,
		VenueOrderID:  vo.VenueOrderID,
		Instrument:    vo.Symbol,
		Size:          vo.Quantity,
		LimitPrice:    vo.LimitPrice,
		StopPrice:     vo.StopPrice,
		TimeInForce:   vo.TimeInForce,
		Status:        StatusFromVenue(vo.Status),
		FilledSize:    vo.FilledQuantity,
		AvgFillPrice:  vo.AvgFillPrice,
		UpdatedAt:     vo.UpdatedAt,
	}
	switch vo.Side {
	case "buy":
		o.Direction = 1
	case "sell":
		o.Direction = -1
	}
	switch vo.Type {
	case "market":
		o.Type = TypeMarket
	case "limit":
		o.Type = TypeLimit
	case "stop_limit":
		o.Type = TypeStopLimit
	default:
		o.Type = Type(vo.Type)
	}
	return o
}

// FromVenuePosition maps a venue position into a local record.
func FromVenuePosition(vp venue.Position) Position {
	return Position{
		Instrument: vp.Symbol,
		LongUnits:  vp.LongUnits,
		LongPL:     vp.LongPL,
		ShortUnits: vp.ShortUnits,
		ShortPL:    vp.ShortPL,
	}
}

// StatusFromVenue maps venue status vocabulary onto the local lifecycle.
// Venues disagree on naming; anything unrecognized but clearly open stays
// SUBMITTED so reconciliation keeps watching it.
func StatusFromVenue(s string) Status {
	switch s {
	case "new", "accepted", "pending_new", "open":
		return StatusSubmitted
	case "partially_filled":
		return StatusPartiallyFilled
	case "filled", "closed":
		return StatusFilled
	case "canceled", "cancelled", "expired", "done_for_day":
		return StatusCancelled
	case "rejected":
		return StatusRejected
	default:
		return StatusSubmitted
	}
}
