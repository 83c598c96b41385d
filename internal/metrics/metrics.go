package metrics

import "github.com/prometheus/client_golang/prometheus"

// Prometheus metrics for reconciliation runs and upstream API usage.
var (
	OrdersFetchedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shipcost_orders_fetched_total",
			Help: "Orders whose charge breakdown was computed and persisted",
		},
	)

	OrdersSkippedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shipcost_orders_skipped_total",
			Help: "Orders skipped because a persisted record already existed",
		},
	)

	OrdersFailedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shipcost_orders_failed_total",
			Help: "Orders that failed to process and were dropped from the batch",
		},
	)

	AuthRequestsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shipcost_platform_auth_requests_total",
			Help: "Credential exchange requests sent to the logistics platform",
		},
	)

	PlatformRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shipcost_platform_request_duration_seconds",
			Help:    "Duration of outbound logistics platform requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)
)

// Register registers all metrics with the default registry.
func Register() {
	prometheus.MustRegister(OrdersFetchedTotal)
	prometheus.MustRegister(OrdersSkippedTotal)
	prometheus.MustRegister(OrdersFailedTotal)
	prometheus.MustRegister(AuthRequestsTotal)
	prometheus.MustRegister(PlatformRequestDuration)
}
