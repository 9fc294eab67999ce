package order

import (
	"errors"
	"fmt"
)

// ErrNotFound signals an unknown client order id on query or cancel.
var ErrNotFound = errors.New("unknown order")

// UnsupportedOrderTypeError is raised before any venue call when an order
// carries a type the normalizer cannot map.
type UnsupportedOrderTypeError struct {
	Type Type
}

func (e *UnsupportedOrderTypeError) Error() string {
	return fmt.Sprintf("unsupported order type %q", string(e.Type))
}

// SubmissionRejectedError means the venue received the submission and
// declined it. The order is terminal (REJECTED).
type SubmissionRejectedError struct {
	ClientOrderID string
	Err           error
}

func (e *SubmissionRejectedError) Error() string {
	return fmt.Sprintf("order %s rejected by venue: %v", e.ClientOrderID, e.Err)
}

func (e *SubmissionRejectedError) Unwrap() error { return e.Err }

// RoutingError is a transport failure or timeout talking to the venue. The
// wrapped error tells whether the request outcome is unknown (timeout) or
// the request never left (connection failure).
type RoutingError struct {
	Op            string
	ClientOrderID string
	Err           error
}

func (e *RoutingError) Error() string {
	return fmt.Sprintf("routing %s %s: %v", e.Op, e.ClientOrderID, e.Err)
}

func (e *RoutingError) Unwrap() error { return e.Err }
