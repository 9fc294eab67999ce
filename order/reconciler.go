package order

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"order-gateway-go/infrastructure/logger"
	"order-gateway-go/metrics"
	"order-gateway-go/venue"
)

// ReconcilerConfig controls the poll loop.
type ReconcilerConfig struct {
	Interval    time.Duration // poll period
	CallTimeout time.Duration // per venue call
	MaxBackoff  time.Duration // cap after repeated transport failures
}

// Reconciler periodically pulls open orders and positions from the venue
// and merges them into the router's state. Venue state is authoritative; a
// failed poll is logged and retried with backoff, never surfaced to callers.
type Reconciler struct {
	venue  venue.Client
	router *Router
	log    *logger.Logger

	mu          sync.RWMutex
	interval    time.Duration
	callTimeout time.Duration
	maxBackoff  time.Duration

	stopChan chan struct{}
	doneChan chan struct{}

	totalRuns         int64
	conflictsResolved int64
	lastRun           time.Time
}

func NewReconciler(vc venue.Client, router *Router, cfg ReconcilerConfig, log *logger.Logger) *Reconciler {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 10 * time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 5 * time.Minute
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Reconciler{
		venue:       vc,
		router:      router,
		log:         log,
		interval:    cfg.Interval,
		callTimeout: cfg.CallTimeout,
		maxBackoff:  cfg.MaxBackoff,
		stopChan:    make(chan struct{}),
		doneChan:    make(chan struct{}),
	}
}

// Start launches the poll loop.
func (rc *Reconciler) Start(ctx context.Context) {
	go rc.loop(ctx)
}

// Stop terminates the loop and waits for it to exit.
func (rc *Reconciler) Stop() {
	close(rc.stopChan)
	<-rc.doneChan
}

func (rc *Reconciler) loop(ctx context.Context) {
	defer close(rc.doneChan)

	delay := rc.Interval()
	backoff := delay
	for {
		select {
		case <-ctx.Done():
			return
		case <-rc.stopChan:
			return
		case <-time.After(delay):
		}

		if err := rc.Reconcile(ctx); err != nil {
			backoff *= 2
			if max := rc.maxBackoffValue(); backoff > max {
				backoff = max
			}
			delay = backoff
			rc.log.LogError(err, map[string]interface{}{
				"op":       "reconcile",
				"retry_in": delay.String(),
			})
			continue
		}
		backoff = rc.Interval()
		delay = backoff
	}
}

// Reconcile runs one full pass: open orders, stragglers from the closed
// list, then positions. Running it twice against unchanged venue state
// produces no observable change.
func (rc *Reconciler) Reconcile(ctx context.Context) error {
	rc.mu.Lock()
	rc.totalRuns++
	rc.lastRun = time.Now()
	rc.mu.Unlock()
	metrics.ReconcileRuns.Inc()

	callCtx, cancel := context.WithTimeout(ctx, rc.CallTimeout())
	defer cancel()

	open, err := rc.venue.Orders(callCtx, venue.StatusFilterOpen, "")
	if err != nil {
		metrics.ReconcileErrors.Inc()
		return fmt.Errorf("list open orders: %w", err)
	}

	conflicts := int64(0)
	openByKey := make(map[string]bool, len(open))
	for _, vo := range open {
		key := vo.ClientOrderID
		if key == "" {
			key = "ext-" + vo.VenueOrderID
		}
		openByKey[key] = true
		if rc.router.ApplyVenueOrder(vo) {
			conflicts++
		}
	}

	// Locally-active orders the venue no longer reports as open have
	// settled out-of-band; resolve them from the closed list.
	var stale []Order
	for _, o := range rc.router.store.ActiveOrders(rc.router.sm) {
		if !openByKey[o.ClientOrderID] {
			stale = append(stale, o)
		}
	}
	if len(stale) > 0 {
		closed, err := rc.venue.Orders(callCtx, venue.StatusFilterClosed, "")
		if err != nil {
			metrics.ReconcileErrors.Inc()
			return fmt.Errorf("list closed orders: %w", err)
		}
		closedByKey := make(map[string]venue.Order, len(closed))
		for _, vo := range closed {
			key := vo.ClientOrderID
			if key == "" {
				key = "ext-" + vo.VenueOrderID
			}
			closedByKey[key] = vo
		}
		for _, o := range stale {
			vo, ok := closedByKey[o.ClientOrderID]
			if !ok {
				// Neither open nor closed; keep waiting rather than guess.
				rc.log.Warn("active order unknown to venue",
					zap.String("client_order_id", o.ClientOrderID))
				continue
			}
			if rc.router.ApplyVenueOrder(vo) {
				conflicts++
			}
		}
	}

	vps, err := rc.venue.Positions(callCtx, "")
	if err != nil {
		metrics.ReconcileErrors.Inc()
		return fmt.Errorf("list positions: %w", err)
	}
	ps := make([]Position, 0, len(vps))
	for _, vp := range vps {
		ps = append(ps, FromVenuePosition(vp))
	}
	rc.router.ReplacePositions(ps)

	if conflicts > 0 {
		rc.mu.Lock()
		rc.conflictsResolved += conflicts
		rc.mu.Unlock()
		metrics.ReconcileConflicts.Add(float64(conflicts))
		rc.log.LogReconcile("conflicts_resolved", map[string]interface{}{
			"conflicts": conflicts,
		})
	}
	return nil
}

// Interval returns the current poll period.
func (rc *Reconciler) Interval() time.Duration {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.interval
}

// UpdateInterval changes the poll period; takes effect next cycle.
func (rc *Reconciler) UpdateInterval(interval time.Duration) {
	if interval <= 0 {
		return
	}
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.interval = interval
}

func (rc *Reconciler) CallTimeout() time.Duration {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.callTimeout
}

func (rc *Reconciler) maxBackoffValue() time.Duration {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.maxBackoff
}

// Stats reports reconciliation counters.
type ReconcilerStats struct {
	TotalRuns         int64
	ConflictsResolved int64
	LastRun           time.Time
}

func (rc *Reconciler) Stats() ReconcilerStats {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return ReconcilerStats{
		TotalRuns:         rc.totalRuns,
		ConflictsResolved: rc.conflictsResolved,
		LastRun:           rc.lastRun,
	}
}
