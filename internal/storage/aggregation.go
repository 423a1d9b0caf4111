package storage

import (
	"database/sql"
	"fmt"
)

// rollupExpired folds alerts older than the retention modifier into
// alert_daily_summaries so counts survive pruning.
func rollupExpired(tx *sql.Tx, retentionModifier string) error {
	_, err := tx.Exec(`
		INSERT INTO alert_daily_summaries (date, detector_id, fired, delivered, failed, dropped)
		SELECT
			date(fired_at),
			detector_id,
			COUNT(*),
			SUM(CASE WHEN status = 'delivered' THEN 1 ELSE 0 END),
			SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END),
			SUM(CASE WHEN status = 'dropped' THEN 1 ELSE 0 END)
		FROM alert_history
		WHERE datetime(fired_at) < datetime('now', ?)
		GROUP BY date(fired_at), detector_id
		ON CONFLICT(date, detector_id) DO UPDATE SET
			fired = alert_daily_summaries.fired + excluded.fired,
			delivered = alert_daily_summaries.delivered + excluded.delivered,
			failed = alert_daily_summaries.failed + excluded.failed,
			dropped = alert_daily_summaries.dropped + excluded.dropped
	`, retentionModifier)
	if err != nil {
		return fmt.Errorf("rolling up expired alerts: %w", err)
	}
	return nil
}
