//go:build linux

package alerts

import (
	"os/exec"

	"github.com/nixlim/camwatch/internal/logging"
)

// NotifySendNotifier sends Linux desktop notifications via notify-send.
// Notifications are sent in a non-blocking goroutine so the pipeline never
// stalls on slow notification delivery.
type NotifySendNotifier struct {
	// enabled controls whether notifications are actually sent.
	// When false, Notify is a no-op.
	enabled bool
	logger  logging.Logger
}

// NewNotifySendNotifier creates a new Linux notification sender.
// If enabled is false, notifications are silently dropped.
func NewNotifySendNotifier(enabled bool, logger logging.Logger) *NotifySendNotifier {
	if logger == nil {
		logger = logging.Discard()
	}
	return &NotifySendNotifier{enabled: enabled, logger: logger}
}

// NewPlatformNotifier creates the platform-appropriate notifier for Linux.
func NewPlatformNotifier(enabled bool, logger logging.Logger) Notifier {
	return NewNotifySendNotifier(enabled, logger)
}

// Notify sends a Linux desktop notification for the given alert.
func (n *NotifySendNotifier) Notify(alert Alert) {
	if !n.enabled {
		return
	}

	title, body := notificationText(alert)

	urgency := "normal"
	if alert.Metadata.RequiresAction {
		urgency = "critical"
	}

	go func() {
		if err := sendNotifySend(title, body, urgency); err != nil {
			n.logger.WithError(err).Warn("failed to send Linux notification")
		}
	}()
}

func sendNotifySend(title, body, urgency string) error {
	cmd := exec.Command("notify-send", "--urgency", urgency, "--app-name", "camwatch", title, body)
	return cmd.Run()
}
