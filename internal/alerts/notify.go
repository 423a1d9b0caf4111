package alerts

import "fmt"

// truncateID shortens a detector or alert ID for display in notifications.
func truncateID(id string) string {
	if len(id) <= 12 {
		return id
	}
	return id[:12] + "..."
}

// notificationText builds the title and body shown for an alert.
func notificationText(alert Alert) (title, body string) {
	title = fmt.Sprintf("camwatch: %s", alert.What)
	body = fmt.Sprintf("%s\nConfidence: %.2f", alert.Why, alert.How.ConfidenceScore)
	if alert.Metadata.DetectorID != "" {
		body = fmt.Sprintf("Detector: %s\n%s", truncateID(alert.Metadata.DetectorID), body)
	}
	return title, body
}
