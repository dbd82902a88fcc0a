package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal tracks total HTTP requests
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"service", "method", "endpoint", "status"},
	)

	// RequestDuration tracks HTTP request duration
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "endpoint"},
	)

	// CacheRequests counts metrics cache lookups by result (hit, miss, error)
	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metrics_cache_requests_total",
			Help: "Metrics cache lookups by result",
		},
		[]string{"result"},
	)

	// CacheInvalidations counts invalidated metric families
	CacheInvalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metrics_cache_invalidations_total",
			Help: "Metric family invalidations",
		},
		[]string{"family"},
	)

	// CircuitBreakerState tracks circuit breaker state (0=closed, 1=open, 2=half-open)
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"circuit_name"},
	)

	// EventsPublished counts change events sent to the broker by outcome
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_events_published_total",
			Help: "Change events published to the message broker",
		},
		[]string{"type", "outcome"},
	)

	// OrdersTotal tracks order lifecycle transitions
	OrdersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_total",
			Help: "Order lifecycle transitions",
		},
		[]string{"status"},
	)

	// BilledAmount tracks the total of billed orders
	BilledAmount = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "order_billed_amount",
			Help:    "Totals of billed orders",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000},
		},
	)
)

// Middleware records request counts and latency per route
func Middleware(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		RequestsTotal.WithLabelValues(serviceName, c.Request.Method, endpoint, status).Inc()
		RequestDuration.WithLabelValues(serviceName, c.Request.Method, endpoint).Observe(duration)
	}
}
