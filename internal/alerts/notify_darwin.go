//go:build darwin

package alerts

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/nixlim/camwatch/internal/logging"
)

// OSAScriptNotifier sends macOS system notifications via osascript.
// Notifications are sent in a non-blocking goroutine so the pipeline never
// stalls on slow notification delivery.
type OSAScriptNotifier struct {
	// enabled controls whether notifications are actually sent.
	// When false, Notify is a no-op.
	enabled bool
	logger  logging.Logger
}

// NewOSAScriptNotifier creates a new macOS notification sender.
// If enabled is false, notifications are silently dropped.
func NewOSAScriptNotifier(enabled bool, logger logging.Logger) *OSAScriptNotifier {
	if logger == nil {
		logger = logging.Discard()
	}
	return &OSAScriptNotifier{enabled: enabled, logger: logger}
}

// NewPlatformNotifier creates the platform-appropriate notifier for macOS.
func NewPlatformNotifier(enabled bool, logger logging.Logger) Notifier {
	return NewOSAScriptNotifier(enabled, logger)
}

// Notify sends a macOS notification for the given alert.
func (n *OSAScriptNotifier) Notify(alert Alert) {
	if !n.enabled {
		return
	}

	title, body := notificationText(alert)

	go func() {
		if err := sendOSANotification(title, body); err != nil {
			n.logger.WithError(err).Warn("failed to send macOS notification")
		}
	}()
}

func sendOSANotification(title, message string) error {
	// Escape double quotes in the message to prevent AppleScript injection.
	script := fmt.Sprintf(
		`display notification "%s" with title "%s"`,
		escapeAppleScript(message), escapeAppleScript(title),
	)
	cmd := exec.Command("osascript", "-e", script)
	return cmd.Run()
}

// escapeAppleScript escapes characters that could break AppleScript strings.
func escapeAppleScript(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}
