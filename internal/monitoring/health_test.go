package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func constCheck(status string) HealthCheck {
	return func() CheckResult { return CheckResult{Status: status} }
}

func TestHealthChecker_Aggregation(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]string
		want   string
	}{
		{"no checks", nil, StatusHealthy},
		{"all healthy", map[string]string{"a": StatusHealthy, "b": StatusHealthy}, StatusHealthy},
		{"one degraded", map[string]string{"a": StatusHealthy, "b": StatusDegraded}, StatusDegraded},
		{"unhealthy wins", map[string]string{"a": StatusDegraded, "b": StatusUnhealthy}, StatusUnhealthy},
		{"unknown status is unhealthy", map[string]string{"a": "bogus"}, StatusUnhealthy},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			hc := NewHealthChecker("camwatch", "test")
			for name, status := range tc.checks {
				hc.AddCheck(name, constCheck(status))
			}
			got := hc.CheckHealth()
			if got.Status != tc.want {
				t.Errorf("status: want %s, got %s", tc.want, got.Status)
			}
			if len(got.Checks) != len(tc.checks) {
				t.Errorf("checks: want %d, got %d", len(tc.checks), len(got.Checks))
			}
		})
	}
}

func TestHealthChecker_Handler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		status string
		code   int
	}{
		{StatusHealthy, http.StatusOK},
		{StatusDegraded, http.StatusOK},
		{StatusUnhealthy, http.StatusServiceUnavailable},
	}
	for _, tc := range tests {
		t.Run(tc.status, func(t *testing.T) {
			hc := NewHealthChecker("camwatch", "test")
			hc.AddCheck("x", constCheck(tc.status))

			router := gin.New()
			router.GET("/healthz", hc.Handler())
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			if w.Code != tc.code {
				t.Errorf("code: want %d, got %d", tc.code, w.Code)
			}
			var body HealthStatus
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if body.Status != tc.status || body.Service != "camwatch" {
				t.Errorf("body = %+v", body)
			}
		})
	}
}

func TestQueueHealthCheck(t *testing.T) {
	tests := []struct {
		depth, capacity int
		want            string
	}{
		{0, 10, StatusHealthy},
		{7, 10, StatusHealthy},
		{8, 10, StatusDegraded},
		{10, 10, StatusDegraded},
	}
	for _, tc := range tests {
		depth := tc.depth
		got := QueueHealthCheck(func() int { return depth }, tc.capacity)()
		if got.Status != tc.want {
			t.Errorf("depth %d/%d: want %s, got %s", tc.depth, tc.capacity, tc.want, got.Status)
		}
	}
}

func TestProbeTracker(t *testing.T) {
	var p ProbeTracker
	if got := p.Check(); got.Status != StatusHealthy || got.Message != "not probed" {
		t.Errorf("unprobed = %+v", got)
	}

	p.Record(false, time.Now())
	if got := p.Check(); got.Status != StatusDegraded {
		t.Errorf("failed probe = %+v", got)
	}

	p.Record(true, time.Now())
	if got := p.Check(); got.Status != StatusHealthy {
		t.Errorf("successful probe = %+v", got)
	}
}

func TestCounterHealthCheck(t *testing.T) {
	var n int64
	check := CounterHealthCheck("dropped audit writes", func() int64 { return n })
	if got := check(); got.Status != StatusHealthy {
		t.Errorf("zero count = %+v", got)
	}
	n = 3
	got := check()
	if got.Status != StatusDegraded || got.Message != "3 dropped audit writes" {
		t.Errorf("non-zero count = %+v", got)
	}
}
