package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// OrdersCreated counts successfully placed orders
var OrdersCreated = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "pizza_api",
	Name:      "orders_created_total",
	Help:      "Total number of orders created.",
})

// PaymentsAttached counts reconciled payments, labeled by whether an order
// matched the business key
var PaymentsAttached = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "pizza_api",
	Name:      "payments_attached_total",
	Help:      "Total number of payments recorded, by link outcome.",
}, []string{"linked"})

// HTTPRequestDuration observes request latency per route and status code
var HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "pizza_api",
	Name:      "http_request_duration_seconds",
	Help:      "HTTP request duration in seconds.",
	Buckets:   prometheus.DefBuckets,
}, []string{"method", "path", "status"})
