package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	checkoutOrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_orders_total",
			Help: "Checkout attempts by result (success or failure kind)",
		},
		[]string{"result"},
	)

	cartClearFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "checkout_cart_clear_failures_total",
			Help: "Carts that could not be cleared after a committed order",
		},
	)

	discountClampedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "checkout_discount_clamped_total",
			Help: "Orders whose discount exceeded the subtotal",
		},
	)

	orderEventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_events_published_total",
			Help: "Order events sent to Kafka by status",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(checkoutOrdersTotal)
	prometheus.MustRegister(cartClearFailuresTotal)
	prometheus.MustRegister(discountClampedTotal)
	prometheus.MustRegister(orderEventsPublishedTotal)
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		duration := time.Since(start).Seconds()

		httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

// RecordCheckout counts a checkout attempt; result is "success" or a failure kind.
func RecordCheckout(result string) {
	checkoutOrdersTotal.WithLabelValues(result).Inc()
}

func RecordCartClearFailure() {
	cartClearFailuresTotal.Inc()
}

func RecordDiscountClamped() {
	discountClampedTotal.Inc()
}

func RecordOrderEventPublished(status string) {
	orderEventsPublishedTotal.WithLabelValues(status).Inc()
}
