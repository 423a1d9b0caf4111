package alerts

import (
	"time"

	"github.com/nixlim/camwatch/internal/detection"
)

// Alert type constants for the built-in detector profiles.
const (
	TypeSleepingPerson = "sleeping_person"
	TypeColorMarker    = "pink_object"
)

// Alert severity constants.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// Alert is the schema-stable record describing one fired event. Optional
// parts are pointers or interfaces and serialize as explicit nulls; no key
// is ever omitted.
type Alert struct {
	ID       string   `json:"id"`
	What     string   `json:"what"`
	When     string   `json:"when"`
	Where    Where    `json:"where"`
	Who      string   `json:"who"`
	Why      string   `json:"why"`
	How      How      `json:"how"`
	HowMuch  HowMuch  `json:"how_much"`
	Metadata Metadata `json:"metadata"`

	// FiredAt is When as a time value; it is not part of the wire record.
	FiredAt time.Time `json:"-"`
}

// Where locates the event.
type Where struct {
	Location    string      `json:"location"`
	BoundingBox *[4]float64 `json:"bounding_box"`
	Orientation *string     `json:"orientation"`
}

// How describes the detection method. Detail is the detector-specific
// variant (prompt or color) and is null for detectors that report none.
type How struct {
	Method          string           `json:"method"`
	ConfidenceScore float64          `json:"confidence_score"`
	Detail          detection.Detail `json:"detail"`
}

// HowMuch carries the counts and thresholds behind the decision.
type HowMuch struct {
	DetectionCountInPeriod int     `json:"detection_count_in_period"`
	QualifyingCount        int     `json:"qualifying_count"`
	RequiredCount          int     `json:"required_count"`
	PersistenceSeconds     float64 `json:"persistence_seconds"`
	CheckIntervalSeconds   float64 `json:"check_interval_seconds"`
	ConfidenceThreshold    float64 `json:"confidence_threshold"`
}

// Metadata classifies the alert for routing on the receiving side.
type Metadata struct {
	AlertType      string `json:"alert_type"`
	Severity       string `json:"severity"`
	RequiresAction bool   `json:"requires_action"`
	DetectorID     string `json:"detector_id"`
}

// Notifier sends alert notifications via platform-specific mechanisms.
type Notifier interface {
	// Notify sends an alert notification. Implementations must be non-blocking.
	Notify(alert Alert)
}

// NopNotifier discards notifications.
type NopNotifier struct{}

// Notify is a no-op.
func (NopNotifier) Notify(Alert) {}
