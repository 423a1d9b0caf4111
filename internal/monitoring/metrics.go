// Package monitoring exposes Prometheus metrics, health checks and the
// read-only HTTP API for the running pipeline.
package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "camwatch"

// Sample outcomes reported through ObserveSample.
const (
	SampleThrottled      = "throttled"
	SampleRetained       = "retained"
	SampleBelowThreshold = "below_threshold"
)

// Metrics holds the process metrics on a private registry so several
// instances can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	samplesTotal     *prometheus.CounterVec
	upstreamErrors   *prometheus.CounterVec
	alertsFired      *prometheus.CounterVec
	deliveryResults  *prometheus.CounterVec
	deliveryAttempts *prometheus.CounterVec
	attemptDuration  prometheus.Histogram
	queueDepth       prometheus.Gauge
	windowSize       *prometheus.GaugeVec
	serviceInfo      *prometheus.GaugeVec

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

func NewMetrics(version string) *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.samplesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "samples_total",
		Help:      "Detection samples seen per detector, by ingestion outcome.",
	}, []string{"detector", "outcome"})

	m.upstreamErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upstream_errors_total",
		Help:      "Frames skipped because the detection producer failed.",
	}, []string{"detector"})

	m.alertsFired = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "alerts_fired_total",
		Help:      "Alerts fired per detector.",
	}, []string{"detector", "alert_type"})

	m.deliveryResults = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "delivery_results_total",
		Help:      "Terminal delivery results: delivered, failed, dropped or skipped.",
	}, []string{"detector", "result"})

	m.deliveryAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "delivery_attempts_total",
		Help:      "Individual webhook attempts by response status.",
	}, []string{"status"})

	m.attemptDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "delivery_attempt_duration_seconds",
		Help:      "Duration of individual webhook attempts.",
		Buckets:   prometheus.DefBuckets,
	})

	m.queueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "dispatch_queue_depth",
		Help:      "Alerts waiting for a delivery worker.",
	})

	m.windowSize = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "history_window_samples",
		Help:      "Samples currently retained in each detector's history window.",
	}, []string{"detector"})

	m.serviceInfo = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "service_info",
		Help:      "Service information.",
	}, []string{"version"})

	m.httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"method", "endpoint", "status"})

	m.httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "endpoint"})

	m.registry.MustRegister(
		m.samplesTotal,
		m.upstreamErrors,
		m.alertsFired,
		m.deliveryResults,
		m.deliveryAttempts,
		m.attemptDuration,
		m.queueDepth,
		m.windowSize,
		m.serviceInfo,
		m.httpRequestsTotal,
		m.httpRequestDuration,
	)

	m.serviceInfo.WithLabelValues(version).Set(1)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveSample(detector, outcome string) {
	m.samplesTotal.WithLabelValues(detector, outcome).Inc()
}

func (m *Metrics) UpstreamError(detector string) {
	m.upstreamErrors.WithLabelValues(detector).Inc()
}

func (m *Metrics) AlertFired(detector, alertType string) {
	m.alertsFired.WithLabelValues(detector, alertType).Inc()
}

func (m *Metrics) DeliveryResult(detector, result string) {
	m.deliveryResults.WithLabelValues(detector, result).Inc()
}

// DeliveryAttempt records one webhook attempt. A zero status means no
// response was received.
func (m *Metrics) DeliveryAttempt(status int, d time.Duration) {
	label := "error"
	if status != 0 {
		label = strconv.Itoa(status)
	}
	m.deliveryAttempts.WithLabelValues(label).Inc()
	m.attemptDuration.Observe(d.Seconds())
}

func (m *Metrics) SetQueueDepth(n int) {
	m.queueDepth.Set(float64(n))
}

func (m *Metrics) SetWindowSize(detector string, n int) {
	m.windowSize.WithLabelValues(detector).Set(float64(n))
}

// Middleware returns gin middleware that records HTTP request metrics.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unknown"
		}
		status := strconv.Itoa(c.Writer.Status())
		m.httpRequestsTotal.WithLabelValues(c.Request.Method, endpoint, status).Inc()
		m.httpRequestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}

// Handler returns the Prometheus scrape handler for this registry.
func (m *Metrics) Handler() gin.HandlerFunc {
	handler := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		handler.ServeHTTP(c.Writer, c.Request)
	}
}
