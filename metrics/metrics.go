// Package metrics provides Prometheus metrics for the order gateway.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	OrdersSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_orders_submitted_total",
		Help: "Orders accepted by the venue",
	}, []string{"instrument"})

	OrderRejects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_order_rejects_total",
		Help: "Order submissions that did not reach SUBMITTED, by reason",
	}, []string{"reason"})

	OrderFills = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_order_fills_total",
		Help: "Fill events recorded from venue state",
	}, []string{"instrument"})

	ReconcileRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_reconcile_runs_total",
		Help: "Reconciliation passes started",
	})

	ReconcileErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_reconcile_errors_total",
		Help: "Reconciliation passes aborted by transport errors",
	})

	ReconcileConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_reconcile_conflicts_total",
		Help: "Local records changed to match venue state",
	})

	VenueRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_venue_request_seconds",
		Help:    "Venue REST request latency by operation",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})

	StreamReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_stream_reconnects_total",
		Help: "Execution stream reconnect attempts",
	})
)

// StartMetricsServer exposes /metrics on addr.
func StartMetricsServer(addr string) {
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		_ = http.ListenAndServe(addr, nil)
	}()
}
