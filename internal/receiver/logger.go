package receiver

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/nixlim/camwatch/internal/detection"
)

// Logger records received samples for debugging upstream detectors.
// Implementations must be safe for concurrent use.
type Logger interface {
	// LogSample logs a sample together with the transport it arrived on.
	LogSample(transport string, s detection.Sample)
}

// NopLogger discards all log output. This is the default when debug logging
// is not enabled.
type NopLogger struct{}

// LogSample is a no-op.
func (NopLogger) LogSample(string, detection.Sample) {}

// logEntry is the JSON structure written by FileLogger.
type logEntry struct {
	Timestamp   string           `json:"ts"`
	Transport   string           `json:"transport"`
	Detector    string           `json:"detector"`
	Score       float64          `json:"score"`
	Box         *[4]float64      `json:"box,omitempty"`
	Orientation string           `json:"orientation"`
	Detail      detection.Detail `json:"detail,omitempty"`
}

// FileLogger writes one JSON object per received sample (JSONL).
type FileLogger struct {
	w  io.Writer
	mu sync.Mutex
}

// NewFileLogger creates a FileLogger that writes to the given writer.
func NewFileLogger(w io.Writer) *FileLogger {
	return &FileLogger{w: w}
}

// LogSample writes a JSON line for s.
func (l *FileLogger) LogSample(transport string, s detection.Sample) {
	ts := s.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	entry := logEntry{
		Timestamp:   ts.UTC().Format(time.RFC3339Nano),
		Transport:   transport,
		Detector:    s.Source,
		Score:       s.Score,
		Orientation: s.Orientation.String(),
		Detail:      s.Detail,
	}
	if s.Box != nil {
		entry.Box = &[4]float64{s.Box.X1, s.Box.Y1, s.Box.X2, s.Box.Y2}
	}

	l.write(entry)
}

// write serialises a logEntry as a single line. Serialisation errors are
// dropped so debug logging never disrupts the receiver.
func (l *FileLogger) write(entry logEntry) {
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, "%s\n", data)
}
