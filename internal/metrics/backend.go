package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Backend and synchronization metrics.
var (
	BackendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "elodex",
			Name:      "backend_requests_total",
			Help:      "Total number of search backend requests",
		},
		[]string{"backend", "op", "status"}, // status: ok / error / not_found
	)

	BackendRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "elodex",
			Name:      "backend_request_duration_seconds",
			Help:      "Search backend request duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"backend", "op"},
	)

	BulkItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "elodex",
			Name:      "bulk_items_total",
			Help:      "Bulk items by action and outcome",
		},
		[]string{"backend", "action", "outcome"}, // outcome: ok / failed
	)

	ScrollPagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "elodex",
			Name:      "scroll_pages_total",
			Help:      "Scroll pages fetched",
		},
		[]string{"backend"},
	)

	SyncEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "elodex",
			Name:      "sync_events_total",
			Help:      "Entity change events applied to the index",
		},
		[]string{"event", "status"}, // event: saved / deleted / seeded
	)
)

var registerBackend sync.Once

// RegisterBackendMetrics registers backend metrics with the default
// registry. Safe to call more than once.
func RegisterBackendMetrics() {
	registerBackend.Do(func() {
		prometheus.MustRegister(
			BackendRequestsTotal,
			BackendRequestDuration,
			BulkItemsTotal,
			ScrollPagesTotal,
			SyncEventsTotal,
		)
	})
}
