package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HoldsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roomhold_holds_total",
		Help: "Hold requests by result (created, replayed, room_booked, room_blocked, invalid, error)",
	}, []string{"result"})

	HoldRowsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "roomhold_hold_rows_total",
		Help: "Ledger rows written by successful holds",
	})

	FinalizeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roomhold_finalize_total",
		Help: "Reconciliation attempts by outcome and result (applied, skipped, consistency, conflict, error)",
	}, []string{"outcome", "result"})

	ReaperRowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roomhold_reaper_rows_total",
		Help: "Reaper activity: rows deleted or protected, and overdue orders expired",
	}, []string{"action"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roomhold_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "roomhold_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "route"})
)

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
