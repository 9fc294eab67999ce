package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"order-gateway-go/venue"
)

// Execution report as pushed by the venue's websocket. Only order-update
// events are handled; anything else is skipped by the caller.
type executionReport struct {
	Event string    `json:"event"`
	Order restOrder `json:"order"`
}

// ParseExecutionReport decodes an order-update event into a venue order.
func ParseExecutionReport(raw []byte) (venue.Order, error) {
	var rep executionReport
	if err := json.Unmarshal(raw, &rep); err != nil {
		return venue.Order{}, fmt.Errorf("decode execution report: %w", err)
	}
	if rep.Event != "order_update" {
		return venue.Order{}, fmt.Errorf("unhandled event %q", rep.Event)
	}
	if rep.Order.ID == "" && rep.Order.ClientOrderID == "" {
		return venue.Order{}, fmt.Errorf("order_update without order ids")
	}
	vo := rep.Order.toVenue()
	if vo.UpdatedAt.IsZero() {
		vo.UpdatedAt = time.Now().UTC()
	}
	return vo, nil
}
