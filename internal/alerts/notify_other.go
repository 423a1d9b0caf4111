//go:build !linux && !darwin

package alerts

import "github.com/nixlim/camwatch/internal/logging"

// NewPlatformNotifier returns a notifier that discards alerts; desktop
// notifications are only supported on Linux and macOS.
func NewPlatformNotifier(enabled bool, logger logging.Logger) Notifier {
	if enabled && logger != nil {
		logger.Warn("desktop notifications are not supported on this platform")
	}
	return NopNotifier{}
}
