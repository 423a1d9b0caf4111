// Package storage keeps an audit log of fired alerts and their delivery
// outcomes. The SQLite log survives restarts; the memory log is the
// fallback when no database is configured or it cannot be opened.
package storage

import (
	"encoding/json"
	"time"

	"github.com/nixlim/camwatch/internal/alerts"
	"github.com/nixlim/camwatch/internal/delivery"
)

// Status is the delivery state of a recorded alert.
type Status string

const (
	StatusPending   Status = "pending"
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
	StatusDropped   Status = "dropped"
	StatusSkipped   Status = "skipped"
	StatusAbandoned Status = "abandoned"
)

// Outcome is the terminal delivery state of one alert.
type Outcome struct {
	AlertID    string
	Status     Status
	StatusCode int
	Attempts   int
	Error      string
	At         time.Time
}

// OutcomeFromResult maps a delivery result onto an Outcome.
func OutcomeFromResult(alertID string, r delivery.Result, at time.Time) Outcome {
	o := Outcome{
		AlertID:    alertID,
		Status:     StatusDelivered,
		StatusCode: r.StatusCode,
		Attempts:   r.Attempts,
		At:         at,
	}
	if !r.Delivered {
		o.Status = StatusFailed
		if r.Err != nil {
			o.Error = r.Err.Error()
		}
	}
	return o
}

// AlertRecord is an alert as read back from the audit log.
type AlertRecord struct {
	ID         string          `json:"id"`
	DetectorID string          `json:"detector_id"`
	AlertType  string          `json:"alert_type"`
	Severity   string          `json:"severity"`
	What       string          `json:"what"`
	Confidence float64         `json:"confidence"`
	FiredAt    time.Time       `json:"fired_at"`
	Status     Status          `json:"status"`
	StatusCode int             `json:"status_code"`
	Attempts   int             `json:"attempts"`
	Error      string          `json:"error,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// AttemptRecord is one recorded delivery attempt.
type AttemptRecord struct {
	AlertID     string        `json:"alert_id"`
	Number      int           `json:"attempt"`
	StatusCode  int           `json:"status_code"`
	Error       string        `json:"error,omitempty"`
	Duration    time.Duration `json:"duration_ns"`
	AttemptedAt time.Time     `json:"attempted_at"`
}

// AuditLog records fired alerts and delivery outcomes. Record methods never
// block the caller for long and never fail; problems are logged.
type AuditLog interface {
	RecordAlert(a alerts.Alert)
	RecordAttempt(a delivery.Attempt)
	RecordOutcome(o Outcome)

	// RecentAlerts returns up to limit alerts, newest first.
	RecentAlerts(limit int) []AlertRecord

	// StatusCounts returns the number of recorded alerts per status.
	StatusCounts() map[Status]int

	Close() error
}

func recordFromAlert(a alerts.Alert) AlertRecord {
	payload, _ := json.Marshal(a)
	return AlertRecord{
		ID:         a.ID,
		DetectorID: a.Metadata.DetectorID,
		AlertType:  a.Metadata.AlertType,
		Severity:   a.Metadata.Severity,
		What:       a.What,
		Confidence: a.How.ConfidenceScore,
		FiredAt:    a.FiredAt,
		Status:     StatusPending,
		Payload:    payload,
	}
}

// History exposes per-day alert counts and write-loss accounting. All
// logs built by NewStore implement it.
type History interface {
	QueryDailySummaries(days int) []DailySummary
	DroppedWrites() int64
}

var (
	_ History = (*SQLiteLog)(nil)
	_ History = (*MemoryLog)(nil)
	_ History = (*FileLog)(nil)
)
