package storage

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/nixlim/camwatch/internal/config"
	"github.com/nixlim/camwatch/internal/logging"
)

// NewStore builds the audit log described by cfg. It reports whether the
// log is persistent. An unusable database falls back to memory with a
// warning; an unusable log_dir is an error.
func NewStore(cfg config.StorageConfig, logger logging.Logger) (AuditLog, bool, error) {
	if logger == nil {
		logger = logging.Discard()
	}

	var log AuditLog
	persistent := false

	if cfg.DBPath == "" {
		log = NewMemoryLog(DefaultMemoryCapacity)
	} else {
		dbPath := expandTilde(cfg.DBPath)
		store, err := NewSQLiteLog(dbPath, cfg.RetentionDays, logger)
		if err != nil {
			logger.WithError(err).Warn("SQLite audit log unavailable, falling back to in-memory log")
			log = NewMemoryLog(DefaultMemoryCapacity)
		} else {
			log = store
			persistent = true
		}
	}

	if cfg.LogDir != "" {
		fl, err := NewFileLog(expandTilde(cfg.LogDir), log, logger)
		if err != nil {
			_ = log.Close()
			return nil, false, err
		}
		return fl, persistent, nil
	}

	return log, persistent, nil
}

func expandTilde(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
