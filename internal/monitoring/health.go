package monitoring

import (
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthStatus represents the overall health status.
type HealthStatus struct {
	Status    string                 `json:"status"`
	Service   string                 `json:"service"`
	Version   string                 `json:"version"`
	Timestamp int64                  `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks"`
}

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// CheckResult represents the result of an individual health check.
type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthCheck is a function that performs a health check.
type HealthCheck func() CheckResult

// HealthChecker manages and executes health checks. It is safe for
// concurrent use.
type HealthChecker struct {
	service string
	version string

	mu     sync.RWMutex
	checks map[string]HealthCheck
}

func NewHealthChecker(service, version string) *HealthChecker {
	return &HealthChecker{
		service: service,
		version: version,
		checks:  make(map[string]HealthCheck),
	}
}

func (hc *HealthChecker) AddCheck(name string, check HealthCheck) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checks[name] = check
}

// CheckHealth runs all checks. Any unhealthy check makes the whole status
// unhealthy; otherwise any degraded check makes it degraded.
func (hc *HealthChecker) CheckHealth() HealthStatus {
	hc.mu.RLock()
	names := make([]string, 0, len(hc.checks))
	for name := range hc.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	checks := make([]HealthCheck, len(names))
	for i, name := range names {
		checks[i] = hc.checks[name]
	}
	hc.mu.RUnlock()

	status := HealthStatus{
		Service:   hc.service,
		Version:   hc.version,
		Timestamp: time.Now().Unix(),
		Checks:    make(map[string]CheckResult, len(names)),
	}

	anyUnhealthy := false
	anyDegraded := false
	for i, check := range checks {
		result := check()
		status.Checks[names[i]] = result
		switch result.Status {
		case StatusHealthy:
		case StatusDegraded:
			anyDegraded = true
		default:
			anyUnhealthy = true
		}
	}

	switch {
	case anyUnhealthy:
		status.Status = StatusUnhealthy
	case anyDegraded:
		status.Status = StatusDegraded
	default:
		status.Status = StatusHealthy
	}
	return status
}

// Handler serves the health status; unhealthy maps to 503.
func (hc *HealthChecker) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		health := hc.CheckHealth()
		code := http.StatusOK
		if health.Status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, health)
	}
}

// QueueHealthCheck reports degraded once the queue is at least 80% full.
func QueueHealthCheck(depth func() int, capacity int) HealthCheck {
	return func() CheckResult {
		d := depth()
		msg := fmt.Sprintf("%d/%d queued", d, capacity)
		if capacity > 0 && d*5 >= capacity*4 {
			return CheckResult{Status: StatusDegraded, Message: msg}
		}
		return CheckResult{Status: StatusHealthy, Message: msg}
	}
}

// ProbeTracker remembers the most recent webhook probe result.
type ProbeTracker struct {
	mu      sync.RWMutex
	checked bool
	ok      bool
	at      time.Time
}

func (p *ProbeTracker) Record(ok bool, at time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.checked, p.ok, p.at = true, ok, at
}

// Check is degraded when the last probe failed. An endpoint that was never
// probed is reported healthy.
func (p *ProbeTracker) Check() CheckResult {
	p.mu.RLock()
	defer p.mu.RUnlock()
	switch {
	case !p.checked:
		return CheckResult{Status: StatusHealthy, Message: "not probed"}
	case p.ok:
		return CheckResult{Status: StatusHealthy, Message: "reachable at " + p.at.Format(time.RFC3339)}
	default:
		return CheckResult{Status: StatusDegraded, Message: "unreachable at " + p.at.Format(time.RFC3339)}
	}
}

// CounterHealthCheck is degraded while the counter is non-zero, e.g. for
// dropped audit writes.
func CounterHealthCheck(what string, count func() int64) HealthCheck {
	return func() CheckResult {
		n := count()
		if n > 0 {
			return CheckResult{Status: StatusDegraded, Message: fmt.Sprintf("%d %s", n, what)}
		}
		return CheckResult{Status: StatusHealthy}
	}
}
