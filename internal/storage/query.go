package storage

import (
	"database/sql"
	"encoding/json"
	"time"
)

const maxRecentAlerts = 200

// RecentAlerts returns up to limit alerts, newest first. At most 200 rows
// are returned regardless of limit.
func (s *SQLiteLog) RecentAlerts(limit int) []AlertRecord {
	if limit <= 0 || limit > maxRecentAlerts {
		limit = maxRecentAlerts
	}

	rows, err := s.db.Query(`
		SELECT alert_id, detector_id, alert_type, severity, what, confidence,
		       fired_at, status, status_code, attempts, error, payload
		FROM alert_history
		ORDER BY fired_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		s.logger.WithError(err).Error("querying alert history")
		return nil
	}
	defer func() { _ = rows.Close() }()

	var out []AlertRecord
	for rows.Next() {
		var rec AlertRecord
		var alertType, severity, what, firedAt, status, errMsg, payload sql.NullString
		var confidence sql.NullFloat64
		var statusCode, attempts sql.NullInt64

		if err := rows.Scan(&rec.ID, &rec.DetectorID, &alertType, &severity, &what, &confidence,
			&firedAt, &status, &statusCode, &attempts, &errMsg, &payload); err != nil {
			s.logger.WithError(err).Error("scanning alert history row")
			continue
		}

		rec.AlertType = alertType.String
		rec.Severity = severity.String
		rec.What = what.String
		rec.Confidence = confidence.Float64
		rec.Status = Status(status.String)
		rec.StatusCode = int(statusCode.Int64)
		rec.Attempts = int(attempts.Int64)
		rec.Error = errMsg.String
		if payload.Valid && payload.String != "" {
			rec.Payload = json.RawMessage(payload.String)
		}
		if t, err := time.Parse(time.RFC3339Nano, firedAt.String); err == nil {
			rec.FiredAt = t
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		s.logger.WithError(err).Error("iterating alert history")
	}
	return out
}

// Attempts returns the recorded attempts for one alert in order.
func (s *SQLiteLog) Attempts(alertID string) []AttemptRecord {
	rows, err := s.db.Query(`
		SELECT attempt, status_code, error, duration_ms, attempted_at
		FROM delivery_attempts
		WHERE alert_id = ?
		ORDER BY attempt
	`, alertID)
	if err != nil {
		s.logger.WithError(err).Error("querying delivery attempts")
		return nil
	}
	defer func() { _ = rows.Close() }()

	var out []AttemptRecord
	for rows.Next() {
		rec := AttemptRecord{AlertID: alertID}
		var statusCode sql.NullInt64
		var errMsg sql.NullString
		var durationMS sql.NullFloat64
		var attemptedAt string

		if err := rows.Scan(&rec.Number, &statusCode, &errMsg, &durationMS, &attemptedAt); err != nil {
			s.logger.WithError(err).Error("scanning delivery attempt row")
			continue
		}
		rec.StatusCode = int(statusCode.Int64)
		rec.Error = errMsg.String
		rec.Duration = time.Duration(durationMS.Float64 * float64(time.Millisecond))
		if t, err := time.Parse(time.RFC3339Nano, attemptedAt); err == nil {
			rec.AttemptedAt = t
		}
		out = append(out, rec)
	}
	return out
}

func (s *SQLiteLog) StatusCounts() map[Status]int {
	counts := make(map[Status]int)

	rows, err := s.db.Query("SELECT status, COUNT(*) FROM alert_history GROUP BY status")
	if err != nil {
		s.logger.WithError(err).Error("querying alert status counts")
		return counts
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			continue
		}
		counts[Status(status)] = n
	}
	return counts
}

// DailySummary is the per-day, per-detector alert count.
type DailySummary struct {
	Date       string `json:"date"`
	DetectorID string `json:"detector_id"`
	Fired      int    `json:"fired"`
	Delivered  int    `json:"delivered"`
	Failed     int    `json:"failed"`
	Dropped    int    `json:"dropped"`
}

// QueryDailySummaries returns per-day counts for the last days days,
// combining rolled-up history with alerts still held in alert_history.
func (s *SQLiteLog) QueryDailySummaries(days int) []DailySummary {
	cutoff := time.Now().UTC().AddDate(0, 0, -days).Format("2006-01-02")

	rows, err := s.db.Query(`
		SELECT date, detector_id, SUM(fired), SUM(delivered), SUM(failed), SUM(dropped)
		FROM (
			SELECT date, detector_id, fired, delivered, failed, dropped
			FROM alert_daily_summaries
			WHERE date >= ?

			UNION ALL

			SELECT date(fired_at) AS date, detector_id,
				COUNT(*) AS fired,
				SUM(CASE WHEN status = 'delivered' THEN 1 ELSE 0 END),
				SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END),
				SUM(CASE WHEN status = 'dropped' THEN 1 ELSE 0 END)
			FROM alert_history
			WHERE date(fired_at) >= ?
			GROUP BY date(fired_at), detector_id
		)
		GROUP BY date, detector_id
		ORDER BY date DESC, detector_id
	`, cutoff, cutoff)
	if err != nil {
		s.logger.WithError(err).Error("querying daily summaries")
		return nil
	}
	defer func() { _ = rows.Close() }()

	var out []DailySummary
	for rows.Next() {
		var d DailySummary
		if err := rows.Scan(&d.Date, &d.DetectorID, &d.Fired, &d.Delivered, &d.Failed, &d.Dropped); err != nil {
			s.logger.WithError(err).Error("scanning daily summary row")
			continue
		}
		out = append(out, d)
	}
	return out
}
