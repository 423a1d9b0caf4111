package storage

import (
	"fmt"
	"time"
)

// recoverPending marks alerts left pending by a previous run as abandoned.
// Undelivered alerts are never retried after the process that fired them
// has exited.
func (s *SQLiteLog) recoverPending() error {
	res, err := s.db.Exec(`
		UPDATE alert_history
		SET status = ?, updated_at = ?
		WHERE status = ?
	`, string(StatusAbandoned), formatTime(time.Now()), string(StatusPending))
	if err != nil {
		return fmt.Errorf("marking pending alerts abandoned: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n > 0 {
		s.logger.WithField("count", n).Warn("alerts from a previous run were never delivered; marked abandoned")
	}
	return nil
}
