// Package logging configures the logrus logger shared by every component.
package logging

import (
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger is the logger handed to components.
type Logger = *logrus.Logger

// Fields represents structured logging fields.
type Fields = logrus.Fields

// New creates a logger writing to w with the given level and format.
// Unknown levels fall back to info; format "json" selects the JSON
// formatter, anything else the text formatter.
func New(w io.Writer, level, format string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetLevel(ParseLevel(level))
	if strings.EqualFold(format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

// ParseLevel maps a level name to a logrus level, defaulting to info.
func ParseLevel(level string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// Discard returns a logger that drops everything. Used by tests and as the
// default when a component is built without a logger.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
