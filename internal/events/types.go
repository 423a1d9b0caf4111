package events

import "time"

// Event types recorded in the activity buffer.
const (
	TypeFired         = "fired"
	TypeDelivered     = "delivered"
	TypeFailed        = "delivery_failed"
	TypeDropped       = "dropped"
	TypeSkipped       = "skipped"
	TypeUpstreamError = "upstream_error"
	TypeProbe         = "probe"
)

// FormattedEvent holds a display-ready pipeline event with metadata.
type FormattedEvent struct {
	DetectorID string
	AlertID    string
	EventType  string // one of the Type constants
	Formatted  string // display-ready string
	Timestamp  time.Time
	Success    *bool // nil if not applicable
}
