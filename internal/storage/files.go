package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/nixlim/camwatch/internal/alerts"
	"github.com/nixlim/camwatch/internal/logging"
)

const maxFileSuffix = 100

// FileLog writes every recorded alert to its own JSON file in a directory
// and forwards all calls to the wrapped AuditLog.
type FileLog struct {
	AuditLog
	dir    string
	logger logging.Logger
	mu     sync.Mutex
}

func NewFileLog(dir string, inner AuditLog, logger logging.Logger) (*FileLog, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating alert log dir: %w", err)
	}
	return &FileLog{AuditLog: inner, dir: dir, logger: logger}, nil
}

func (f *FileLog) RecordAlert(a alerts.Alert) {
	if path, err := f.WriteAlertFile(a); err != nil {
		f.logger.WithField("alert_id", a.ID).WithError(err).Warn("failed to write alert file")
	} else {
		f.logger.WithFields(logging.Fields{"alert_id": a.ID, "path": path}).Debug("alert file written")
	}
	f.AuditLog.RecordAlert(a)
}

// WriteAlertFile writes a as alert_YYYYmmdd_HHMMSS.json, adding a numeric
// suffix when several alerts fire within the same second.
func (f *FileLog) WriteAlertFile(a alerts.Alert) (string, error) {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding alert: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	base := "alert_" + a.FiredAt.Format("20060102_150405")
	for i := 1; i <= maxFileSuffix; i++ {
		name := base + ".json"
		if i > 1 {
			name = fmt.Sprintf("%s_%d.json", base, i)
		}
		path := filepath.Join(f.dir, name)

		file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("creating alert file: %w", err)
		}
		if _, err := file.Write(data); err != nil {
			_ = file.Close()
			return "", fmt.Errorf("writing alert file: %w", err)
		}
		return path, file.Close()
	}
	return "", fmt.Errorf("too many alert files for %s", base)
}

// QueryDailySummaries delegates to the wrapped log when it keeps history.
func (f *FileLog) QueryDailySummaries(days int) []DailySummary {
	if h, ok := f.AuditLog.(History); ok {
		return h.QueryDailySummaries(days)
	}
	return nil
}

// DroppedWrites delegates to the wrapped log.
func (f *FileLog) DroppedWrites() int64 {
	if h, ok := f.AuditLog.(History); ok {
		return h.DroppedWrites()
	}
	return 0
}
