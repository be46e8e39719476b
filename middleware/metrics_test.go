package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestMetricsMiddleware_CountsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(MetricsMiddleware())
	router.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	before := counterValue(httpRequestsTotal.WithLabelValues("GET", "/items/:id", "204"))

	req := httptest.NewRequest("GET", "/items/7", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)

	after := counterValue(httpRequestsTotal.WithLabelValues("GET", "/items/:id", "204"))
	if after-before != 1 {
		t.Errorf("Expected counter to increase by 1, got %v", after-before)
	}
}

func TestCheckoutCounters(t *testing.T) {
	successBefore := counterValue(checkoutOrdersTotal.WithLabelValues("success"))
	clampBefore := counterValue(discountClampedTotal)
	clearBefore := counterValue(cartClearFailuresTotal)

	RecordCheckout("success")
	RecordDiscountClamped()
	RecordCartClearFailure()

	if got := counterValue(checkoutOrdersTotal.WithLabelValues("success")) - successBefore; got != 1 {
		t.Errorf("Expected 1 success, got %v", got)
	}
	if got := counterValue(discountClampedTotal) - clampBefore; got != 1 {
		t.Errorf("Expected 1 clamp, got %v", got)
	}
	if got := counterValue(cartClearFailuresTotal) - clearBefore; got != 1 {
		t.Errorf("Expected 1 cart clear failure, got %v", got)
	}
}

func TestPrometheusHandler_ExposesCheckoutMetrics(t *testing.T) {
	RecordCheckout("insufficient_stock")

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/metrics", PrometheusHandler())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
	if !strings.Contains(w.Body.String(), `checkout_orders_total{result="insufficient_stock"}`) {
		t.Error("Expected checkout_orders_total in metrics output")
	}
}

func counterValue(c prometheus.Counter) float64 {
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		return -1
	}
	return m.GetCounter().GetValue()
}
