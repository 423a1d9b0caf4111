// Package api serves the read-only JSON view of recent alerts, activity
// and detector state.
package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nixlim/camwatch/internal/events"
	"github.com/nixlim/camwatch/internal/pipeline"
	"github.com/nixlim/camwatch/internal/storage"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

// AlertSource is the read side of the audit log.
type AlertSource interface {
	RecentAlerts(limit int) []storage.AlertRecord
	StatusCounts() map[storage.Status]int
}

// DetectorSource reports detector state.
type DetectorSource interface {
	Statuses() []pipeline.Status
}

// Handlers holds the data sources behind the API.
type Handlers struct {
	alerts    AlertSource
	activity  *events.RingBuffer
	detectors DetectorSource
}

func NewHandlers(alerts AlertSource, activity *events.RingBuffer, detectors DetectorSource) *Handlers {
	return &Handlers{alerts: alerts, activity: activity, detectors: detectors}
}

// RegisterRoutes mounts the API under /api/v1.
func (h *Handlers) RegisterRoutes(r gin.IRouter) {
	v1 := r.Group("/api/v1")
	v1.GET("/alerts", h.listAlerts)
	v1.GET("/activity", h.listActivity)
	v1.GET("/detectors", h.listDetectors)
}

func (h *Handlers) listAlerts(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	recs := h.alerts.RecentAlerts(limit)
	if recs == nil {
		recs = []storage.AlertRecord{}
	}
	c.JSON(http.StatusOK, gin.H{
		"alerts": recs,
		"counts": h.alerts.StatusCounts(),
	})
}

type activityEvent struct {
	DetectorID string `json:"detector_id"`
	AlertID    string `json:"alert_id,omitempty"`
	Type       string `json:"type"`
	Message    string `json:"message"`
	Timestamp  string `json:"timestamp"`
	Success    *bool  `json:"success,omitempty"`
}

func (h *Handlers) listActivity(c *gin.Context) {
	var list []events.FormattedEvent
	switch {
	case c.Query("detector") != "":
		list = h.activity.ListByDetector(c.Query("detector"))
	case c.Query("type") != "":
		list = h.activity.ListByType(c.Query("type"))
	default:
		list = h.activity.ListAll()
	}

	out := make([]activityEvent, 0, len(list))
	for _, e := range list {
		out = append(out, activityEvent{
			DetectorID: e.DetectorID,
			AlertID:    e.AlertID,
			Type:       e.EventType,
			Message:    e.Formatted,
			Timestamp:  e.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
			Success:    e.Success,
		})
	}
	c.JSON(http.StatusOK, gin.H{"events": out})
}

func (h *Handlers) listDetectors(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"detectors": h.detectors.Statuses()})
}

func parseLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return defaultLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return 0, false
	}
	return min(n, maxLimit), true
}
