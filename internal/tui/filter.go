package tui

import "github.com/nixlim/camwatch/internal/events"

const (
	filterSuccessOnly = "success_only"
	filterFailureOnly = "failure_only"
)

// EventFilter holds the current filter state for the event stream panel.
type EventFilter struct {
	// DetectorID filters events to one detector. Empty means all detectors.
	DetectorID string

	// EventTypes is the set of event types to display. If empty, all types are shown.
	EventTypes map[string]bool

	SuccessOnly bool
	FailureOnly bool
}

// AllEventTypes returns a map of all event types set to true.
func AllEventTypes() map[string]bool {
	return map[string]bool{
		events.TypeFired:         true,
		events.TypeDelivered:     true,
		events.TypeFailed:        true,
		events.TypeDropped:       true,
		events.TypeSkipped:       true,
		events.TypeUpstreamError: true,
		events.TypeProbe:         true,
	}
}

// NewEventFilter returns a filter that shows all events.
func NewEventFilter() EventFilter {
	return EventFilter{
		EventTypes: AllEventTypes(),
	}
}

// Matches reports whether an event passes this filter. Events without a
// detector (webhook probes) pass the detector filter.
func (f *EventFilter) Matches(detectorID, eventType string, success *bool) bool {
	if f.DetectorID != "" && detectorID != "" && detectorID != f.DetectorID {
		return false
	}

	if len(f.EventTypes) > 0 && !f.EventTypes[eventType] {
		return false
	}

	if f.SuccessOnly && success != nil && !*success {
		return false
	}
	if f.FailureOnly && success != nil && *success {
		return false
	}

	return true
}

// FilterMenuState tracks the interactive filter menu.
type FilterMenuState struct {
	Active  bool
	Cursor  int
	Options []FilterOption
}

type FilterOption struct {
	Label   string
	Key     string
	Enabled bool
}

func NewFilterMenu() FilterMenuState {
	return FilterMenuState{
		Options: []FilterOption{
			{Label: "Alerts Fired", Key: events.TypeFired, Enabled: true},
			{Label: "Delivered", Key: events.TypeDelivered, Enabled: true},
			{Label: "Delivery Failed", Key: events.TypeFailed, Enabled: true},
			{Label: "Dropped", Key: events.TypeDropped, Enabled: true},
			{Label: "Not Sent", Key: events.TypeSkipped, Enabled: true},
			{Label: "Detection Errors", Key: events.TypeUpstreamError, Enabled: true},
			{Label: "Webhook Probes", Key: events.TypeProbe, Enabled: true},
			{Label: "Success Only", Key: filterSuccessOnly, Enabled: false},
			{Label: "Failure Only", Key: filterFailureOnly, Enabled: false},
		},
	}
}
