package monitoring

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics("test")

	m.ObserveSample("cam-1", SampleRetained)
	m.ObserveSample("cam-1", SampleRetained)
	m.ObserveSample("cam-1", SampleThrottled)
	m.AlertFired("cam-1", "sleeping_person")
	m.DeliveryResult("cam-1", "delivered")
	m.UpstreamError("cam-2")

	if got := testutil.ToFloat64(m.samplesTotal.WithLabelValues("cam-1", SampleRetained)); got != 2 {
		t.Errorf("retained samples: want 2, got %v", got)
	}
	if got := testutil.ToFloat64(m.samplesTotal.WithLabelValues("cam-1", SampleThrottled)); got != 1 {
		t.Errorf("throttled samples: want 1, got %v", got)
	}
	if got := testutil.ToFloat64(m.alertsFired.WithLabelValues("cam-1", "sleeping_person")); got != 1 {
		t.Errorf("alerts fired: want 1, got %v", got)
	}
	if got := testutil.ToFloat64(m.deliveryResults.WithLabelValues("cam-1", "delivered")); got != 1 {
		t.Errorf("delivered: want 1, got %v", got)
	}
	if got := testutil.ToFloat64(m.upstreamErrors.WithLabelValues("cam-2")); got != 1 {
		t.Errorf("upstream errors: want 1, got %v", got)
	}
}

func TestMetrics_DeliveryAttemptLabels(t *testing.T) {
	m := NewMetrics("test")
	m.DeliveryAttempt(500, 10*time.Millisecond)
	m.DeliveryAttempt(0, time.Second)
	m.DeliveryAttempt(200, 5*time.Millisecond)

	for _, label := range []string{"500", "error", "200"} {
		if got := testutil.ToFloat64(m.deliveryAttempts.WithLabelValues(label)); got != 1 {
			t.Errorf("attempts{status=%s}: want 1, got %v", label, got)
		}
	}
}

func TestMetrics_Gauges(t *testing.T) {
	m := NewMetrics("test")
	m.SetQueueDepth(7)
	m.SetWindowSize("cam-1", 4)

	if got := testutil.ToFloat64(m.queueDepth); got != 7 {
		t.Errorf("queue depth: want 7, got %v", got)
	}
	if got := testutil.ToFloat64(m.windowSize.WithLabelValues("cam-1")); got != 4 {
		t.Errorf("window size: want 4, got %v", got)
	}
}

func TestMetrics_SeparateRegistries(t *testing.T) {
	a := NewMetrics("a")
	b := NewMetrics("b")
	a.AlertFired("cam-1", "x")

	if got := testutil.ToFloat64(b.alertsFired.WithLabelValues("cam-1", "x")); got != 0 {
		t.Errorf("registries leak between instances: %v", got)
	}
}

func TestMetrics_HandlerAndMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics("1.2.3")

	router := gin.New()
	router.Use(m.Middleware())
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	router.GET("/metrics", m.Handler())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", w.Code)
	}

	body := w.Body.String()
	for _, want := range []string{
		`camwatch_service_info{version="1.2.3"} 1`,
		`camwatch_http_requests_total{endpoint="/ping",method="GET",status="200"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
