package events

import (
	"fmt"
	"time"

	"github.com/nixlim/camwatch/internal/alerts"
	"github.com/nixlim/camwatch/internal/delivery"
)

// FormatFired describes a fired alert:
//
//	[detector] Sleeping person detected (conf 0.87, 5/4 qualifying)
func FormatFired(a alerts.Alert) FormattedEvent {
	return FormattedEvent{
		DetectorID: a.Metadata.DetectorID,
		AlertID:    a.ID,
		EventType:  TypeFired,
		Formatted: fmt.Sprintf("[%s] %s (conf %.2f, %d/%d qualifying)",
			shortID(a.Metadata.DetectorID), a.What, a.How.ConfidenceScore,
			a.HowMuch.QualifyingCount, a.HowMuch.RequiredCount),
		Timestamp: stamp(a.FiredAt),
	}
}

// FormatResult describes the terminal delivery result of an alert.
func FormatResult(a alerts.Alert, r delivery.Result, at time.Time) FormattedEvent {
	fe := FormattedEvent{
		DetectorID: a.Metadata.DetectorID,
		AlertID:    a.ID,
		Timestamp:  stamp(at),
	}
	ok := r.Delivered
	fe.Success = &ok

	short := shortID(a.Metadata.DetectorID)
	if r.Delivered {
		fe.EventType = TypeDelivered
		fe.Formatted = fmt.Sprintf("[%s] delivered %s (HTTP %d, %s)",
			short, shortID(a.ID), r.StatusCode, attempts(r.Attempts))
		return fe
	}

	fe.EventType = TypeFailed
	status := "no response"
	if r.StatusCode != 0 {
		status = fmt.Sprintf("HTTP %d", r.StatusCode)
	}
	fe.Formatted = fmt.Sprintf("[%s] delivery failed %s (%s, %s)",
		short, shortID(a.ID), status, attempts(r.Attempts))
	return fe
}

// FormatDropped describes an alert discarded because the dispatch queue
// was full.
func FormatDropped(a alerts.Alert, at time.Time) FormattedEvent {
	failed := false
	return FormattedEvent{
		DetectorID: a.Metadata.DetectorID,
		AlertID:    a.ID,
		EventType:  TypeDropped,
		Formatted:  fmt.Sprintf("[%s] dropped %s (dispatch queue full)", shortID(a.Metadata.DetectorID), shortID(a.ID)),
		Timestamp:  stamp(at),
		Success:    &failed,
	}
}

// FormatSkipped describes an alert that was not sent because no webhook
// is configured.
func FormatSkipped(a alerts.Alert, at time.Time) FormattedEvent {
	return FormattedEvent{
		DetectorID: a.Metadata.DetectorID,
		AlertID:    a.ID,
		EventType:  TypeSkipped,
		Formatted:  fmt.Sprintf("[%s] not sent %s (no webhook configured)", shortID(a.Metadata.DetectorID), shortID(a.ID)),
		Timestamp:  stamp(at),
	}
}

// FormatUpstreamError describes a producer failure for one frame.
func FormatUpstreamError(detectorID string, err error, at time.Time) FormattedEvent {
	failed := false
	return FormattedEvent{
		DetectorID: detectorID,
		EventType:  TypeUpstreamError,
		Formatted:  fmt.Sprintf("[%s] detection error: %s", shortID(detectorID), truncate(err.Error(), 80)),
		Timestamp:  stamp(at),
		Success:    &failed,
	}
}

// FormatProbe describes the result of a webhook connectivity probe.
func FormatProbe(url string, ok bool, at time.Time) FormattedEvent {
	result := "reachable"
	if !ok {
		result = "unreachable"
	}
	return FormattedEvent{
		EventType: TypeProbe,
		Formatted: fmt.Sprintf("webhook %s: %s", truncate(url, 60), result),
		Timestamp: stamp(at),
		Success:   &ok,
	}
}

func attempts(n int) string {
	if n == 1 {
		return "1 attempt"
	}
	return fmt.Sprintf("%d attempts", n)
}

func stamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}

// shortID returns at most the first 12 characters of an ID for display.
func shortID(id string) string {
	if len(id) <= 12 {
		return id
	}
	return id[:12]
}

// truncate shortens s to maxLen with an ellipsis.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
