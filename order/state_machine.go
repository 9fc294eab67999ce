package order

import "fmt"

// StateTransition is one legal edge of the order lifecycle.
type StateTransition struct {
	From Status
	To   Status
}

// StateMachine validates order status transitions. Terminal states have no
// outgoing edges; a same-status transition is always a legal no-op.
type StateMachine struct {
	transitions map[StateTransition]bool
}

func NewStateMachine() *StateMachine {
	sm := &StateMachine{transitions: make(map[StateTransition]bool)}
	legal := []StateTransition{
		{StatusPending, StatusSubmitted},
		{StatusPending, StatusCancelled},
		{StatusPending, StatusRejected},

		{StatusSubmitted, StatusPartiallyFilled},
		{StatusSubmitted, StatusFilled},
		{StatusSubmitted, StatusCancelled},
		{StatusSubmitted, StatusRejected},

		{StatusPartiallyFilled, StatusFilled},
		{StatusPartiallyFilled, StatusCancelled},
	}
	for _, t := range legal {
		sm.transitions[t] = true
	}
	return sm
}

// ValidateTransition returns nil when from -> to is legal.
func (sm *StateMachine) ValidateTransition(from, to Status) error {
	if from == to {
		return nil
	}
	if !sm.transitions[StateTransition{From: from, To: to}] {
		return fmt.Errorf("illegal state transition: %s -> %s", from, to)
	}
	return nil
}

// IsTerminal reports whether an order in this status is immutable.
func (sm *StateMachine) IsTerminal(status Status) bool {
	switch status {
	case StatusFilled, StatusCancelled, StatusRejected:
		return true
	default:
		return false
	}
}

// IsActive reports whether the venue may still act on the order.
func (sm *StateMachine) IsActive(status Status) bool {
	switch status {
	case StatusSubmitted, StatusPartiallyFilled:
		return true
	default:
		return false
	}
}

// CanCancel reports whether a cancel request should reach the venue.
func (sm *StateMachine) CanCancel(status Status) bool {
	switch status {
	case StatusPending, StatusSubmitted, StatusPartiallyFilled:
		return true
	default:
		return false
	}
}
