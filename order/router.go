package order

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"order-gateway-go/infrastructure/logger"
	"order-gateway-go/metrics"
	"order-gateway-go/venue"
)

// Router owns the order/trade/position tables and is the single writer for
// all of them. Mutations are serialized per client order id; the state lock
// is never held across a venue call.
type Router struct {
	venue venue.Client
	store *Store
	sm    *StateMachine
	log   *logger.Logger

	mu              sync.Mutex
	inflight        map[string]bool
	cancelRequested map[string]bool
}

func NewRouter(vc venue.Client, store *Store, log *logger.Logger) *Router {
	if store == nil {
		store = NewStore()
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Router{
		venue:           vc,
		store:           store,
		sm:              NewStateMachine(),
		log:             log,
		inflight:        make(map[string]bool),
		cancelRequested: make(map[string]bool),
	}
}

// Place submits an order with at-most-once semantics per client order id.
// Replaying a known id returns the existing record without resubmitting.
// Validation failures surface before any venue call.
func (r *Router) Place(ctx context.Context, o Order) (*Order, error) {
	if o.ClientOrderID == "" {
		o.ClientOrderID = uuid.NewString()
	}

	r.mu.Lock()
	if existing, ok := r.store.Order(o.ClientOrderID); ok {
		r.mu.Unlock()
		return &existing, nil
	}
	req, err := ToVenueRequest(o)
	if err != nil {
		r.mu.Unlock()
		metrics.OrderRejects.WithLabelValues("invalid").Inc()
		return nil, err
	}
	now := time.Now().UTC()
	o.Status = StatusPending
	o.CreatedAt = now
	o.UpdatedAt = now
	r.store.SetOrder(o)
	r.inflight[o.ClientOrderID] = true
	r.mu.Unlock()

	venueID, submitErr := r.venue.SubmitOrder(ctx, req)

	r.mu.Lock()
	delete(r.inflight, o.ClientOrderID)
	cancelWanted := r.cancelRequested[o.ClientOrderID]
	delete(r.cancelRequested, o.ClientOrderID)
	cur, _ := r.store.Order(o.ClientOrderID)

	switch {
	case submitErr == nil:
		if cur.VenueOrderID == "" {
			cur.VenueOrderID = venueID
		}
		r.transition(&cur, StatusSubmitted, "")
		r.store.SetOrder(cur)
		metrics.OrdersSubmitted.WithLabelValues(cur.Instrument).Inc()
		r.log.LogOrder("submitted", cur.ClientOrderID, map[string]interface{}{
			"venue_order_id": cur.VenueOrderID,
			"instrument":     cur.Instrument,
		})
		r.mu.Unlock()
		if cancelWanted {
			// A cancel arrived while the submission was in flight; now that
			// the venue id is known, run it for real.
			if err := r.Cancel(ctx, cur.ClientOrderID); err != nil {
				r.log.Warn("deferred cancel failed",
					zap.String("client_order_id", cur.ClientOrderID),
					zap.Error(err))
			}
			cur, _ = r.store.Order(cur.ClientOrderID)
		}
		return &cur, nil

	case isRejection(submitErr):
		r.transition(&cur, StatusRejected, submitErr.Error())
		r.store.SetOrder(cur)
		metrics.OrderRejects.WithLabelValues("venue_rejected").Inc()
		r.log.LogOrder("rejected", cur.ClientOrderID, map[string]interface{}{
			"error": submitErr.Error(),
		})
		r.mu.Unlock()
		return nil, &SubmissionRejectedError{ClientOrderID: cur.ClientOrderID, Err: submitErr}

	case isTimeout(submitErr):
		// Outcome unknown: the venue may have accepted the order. Leave it
		// SUBMITTED and let reconciliation settle it instead of inviting a
		// duplicate resubmission. A deferred cancel cannot run either; there
		// is no venue id to cancel against yet.
		r.transition(&cur, StatusSubmitted, submitErr.Error())
		r.store.SetOrder(cur)
		metrics.OrderRejects.WithLabelValues("timeout").Inc()
		r.log.LogOrder("submit_timeout", cur.ClientOrderID, map[string]interface{}{
			"cancel_pending": cancelWanted,
			"error":          submitErr.Error(),
		})
		r.mu.Unlock()
		return nil, &RoutingError{Op: "place", ClientOrderID: cur.ClientOrderID, Err: submitErr}

	default:
		// The request never reached the venue; the order stays PENDING
		// unless a cancel was requested meanwhile, which is now safe to
		// apply locally.
		cur.LastError = submitErr.Error()
		cur.UpdatedAt = time.Now().UTC()
		if cancelWanted {
			r.transition(&cur, StatusCancelled, "")
		}
		r.store.SetOrder(cur)
		metrics.OrderRejects.WithLabelValues("transport").Inc()
		r.mu.Unlock()
		return nil, &RoutingError{Op: "place", ClientOrderID: cur.ClientOrderID, Err: submitErr}
	}
}

// Cancel is a no-op for orders already terminal. Unknown ids return
// ErrNotFound. Cancelling an order whose submission is still in flight is
// deferred until the venue call settles; the order must not go terminal
// locally while the venue may still accept it.
func (r *Router) Cancel(ctx context.Context, clientOrderID string) error {
	r.mu.Lock()
	o, ok := r.store.Order(clientOrderID)
	if !ok {
		r.mu.Unlock()
		return ErrNotFound
	}
	if r.sm.IsTerminal(o.Status) {
		r.mu.Unlock()
		return nil
	}
	if r.inflight[clientOrderID] {
		r.cancelRequested[clientOrderID] = true
		r.mu.Unlock()
		r.log.Info("cancel deferred until in-flight submission settles",
			zap.String("client_order_id", clientOrderID))
		return nil
	}
	if o.VenueOrderID == "" {
		// Never reached the venue; cancel locally.
		r.transition(&o, StatusCancelled, "")
		r.store.SetOrder(o)
		r.mu.Unlock()
		return nil
	}
	venueID := o.VenueOrderID
	r.mu.Unlock()

	err := r.venue.CancelOrder(ctx, venueID)

	r.mu.Lock()
	defer r.mu.Unlock()
	cur, _ := r.store.Order(clientOrderID)
	if err != nil {
		if isRejection(err) {
			// The venue disagrees the order is open; reconciliation will
			// pull the authoritative status.
			r.log.Warn("venue declined cancel",
				zap.String("client_order_id", clientOrderID),
				zap.Error(err))
			return nil
		}
		return &RoutingError{Op: "cancel", ClientOrderID: clientOrderID, Err: err}
	}
	r.transition(&cur, StatusCancelled, "")
	r.store.SetOrder(cur)
	r.log.LogOrder("cancelled", clientOrderID, nil)
	return nil
}

// Get returns a snapshot of one order.
func (r *Router) Get(clientOrderID string) (Order, error) {
	o, ok := r.store.Order(clientOrderID)
	if !ok {
		return Order{}, ErrNotFound
	}
	return o, nil
}

// Orders returns order snapshots, optionally filtered by instrument.
func (r *Router) Orders(instrument string) []Order { return r.store.Orders(instrument) }

// Trades returns trade snapshots, optionally filtered by instrument.
func (r *Router) Trades(instrument string) []Trade { return r.store.Trades(instrument) }

// Positions returns position snapshots, optionally filtered by instrument.
func (r *Router) Positions(instrument string) []Position { return r.store.Positions(instrument) }

// ApplyVenueOrder merges one venue-reported order into local state, trusting
// the venue status while preserving locally-known metadata. Unknown orders
// become External shadow records. Returns true when anything changed.
func (r *Router) ApplyVenueOrder(vo venue.Order) bool {
	key := vo.ClientOrderID
	if key == "" {
		// Placed out-of-band without a client id; key the shadow on the
		// venue id so repeated merges stay idempotent.
		key = "ext-" + vo.VenueOrderID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	local, ok := r.store.Order(key)
	if !ok {
		shadow := FromVenueOrder(vo)
		shadow.ClientOrderID = key
		shadow.External = true
		shadow.CreatedAt = time.Now().UTC()
		if shadow.UpdatedAt.IsZero() {
			shadow.UpdatedAt = shadow.CreatedAt
		}
		r.store.SetOrder(shadow)
		r.recordFillDelta(shadow, decimal.Zero, vo)
		r.log.LogOrder("shadow_created", key, map[string]interface{}{
			"venue_order_id": vo.VenueOrderID,
		})
		return true
	}

	changed := false
	if local.VenueOrderID == "" && vo.VenueOrderID != "" {
		local.VenueOrderID = vo.VenueOrderID
		changed = true
	}

	if delta := vo.FilledQuantity.Sub(local.FilledSize); delta.Sign() > 0 {
		r.recordFillDelta(local, local.FilledSize, vo)
		local.FilledSize = vo.FilledQuantity
		local.AvgFillPrice = vo.AvgFillPrice
		changed = true
	}

	next := StatusFromVenue(vo.Status)
	if next != local.Status {
		if err := r.sm.ValidateTransition(local.Status, next); err != nil {
			// Terminal local state wins; venue replays of stale status are
			// ignored.
			r.log.Debug("skipping venue status replay",
				zap.String("client_order_id", key),
				zap.String("local", string(local.Status)),
				zap.String("venue", string(next)))
		} else {
			local.Status = next
			changed = true
		}
	}

	if changed {
		local.UpdatedAt = time.Now().UTC()
		r.store.SetOrder(local)
	}
	return changed
}

// ReplacePositions installs the venue's position snapshot.
func (r *Router) ReplacePositions(ps []Position) {
	r.store.ReplacePositions(ps)
}

func (r *Router) recordFillDelta(local Order, prevFilled decimal.Decimal, vo venue.Order) {
	delta := vo.FilledQuantity.Sub(prevFilled)
	if delta.Sign() <= 0 {
		return
	}
	t := Trade{
		ID:         uuid.NewString(),
		Instrument: local.Instrument,
		Direction:  local.Direction,
		Size:       delta,
		FilledAt:   time.Now().UTC(),
		OrderID:    local.ClientOrderID,
	}
	if vo.AvgFillPrice != nil {
		t.FillPrice = *vo.AvgFillPrice
	}
	r.store.AppendTrade(t)
	metrics.OrderFills.WithLabelValues(local.Instrument).Inc()
}

func (r *Router) transition(o *Order, to Status, lastErr string) {
	if r.sm.IsTerminal(o.Status) {
		// A stream/reconcile merge may have settled the order while the
		// venue call was in flight; terminal state wins.
		return
	}
	if err := r.sm.ValidateTransition(o.Status, to); err != nil {
		r.log.Error("refusing illegal transition",
			zap.String("client_order_id", o.ClientOrderID),
			zap.Error(err))
		return
	}
	o.Status = to
	o.UpdatedAt = time.Now().UTC()
	if lastErr != "" {
		o.LastError = lastErr
	}
}

func isRejection(err error) bool {
	var rej *venue.RejectionError
	return errors.As(err, &rej)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
