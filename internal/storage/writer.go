package storage

import (
	"database/sql"
	"math"
)

// alertRow holds the data for a single alert_history insert.
type alertRow struct {
	AlertID    string
	DetectorID string
	AlertType  string
	Severity   string
	What       string
	Confidence float64
	FiredAt    string
	Status     string
	Payload    string
}

// attemptRow holds the data for a single delivery_attempts row.
type attemptRow struct {
	AlertID     string
	Attempt     int
	StatusCode  int
	Error       string
	DurationMS  float64
	AttemptedAt string
}

// outcomeRow holds the terminal status update for an alert_history row.
type outcomeRow struct {
	AlertID    string
	Status     string
	StatusCode int
	Attempts   int
	Error      string
	UpdatedAt  string
}

// sanitizeFloat replaces NaN and Inf with 0.0.
func sanitizeFloat(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0.0
	}
	return v
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// writeAlert inserts the alert row. An alert ID that is already stored
// (replaying the same samples into the same database) replaces the earlier
// row and its attempts, and replaced reports that it happened.
func writeAlert(tx *sql.Tx, row *alertRow) (replaced bool, err error) {
	var existing int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM alert_history WHERE alert_id = ?`, row.AlertID).Scan(&existing); err != nil {
		return false, err
	}
	if existing > 0 {
		if _, err := tx.Exec(`DELETE FROM delivery_attempts WHERE alert_id = ?`, row.AlertID); err != nil {
			return false, err
		}
	}

	_, err = tx.Exec(`
		INSERT INTO alert_history (alert_id, detector_id, alert_type, severity, what,
			confidence, fired_at, status, attempts, payload, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
		ON CONFLICT(alert_id) DO UPDATE SET
			detector_id = excluded.detector_id,
			alert_type = excluded.alert_type,
			severity = excluded.severity,
			what = excluded.what,
			confidence = excluded.confidence,
			fired_at = excluded.fired_at,
			status = excluded.status,
			status_code = NULL,
			attempts = 0,
			error = NULL,
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`, row.AlertID, row.DetectorID, row.AlertType, row.Severity, row.What,
		sanitizeFloat(row.Confidence), row.FiredAt, row.Status, row.Payload, row.FiredAt)
	if err != nil {
		return false, err
	}
	return existing > 0, nil
}

func writeAttempt(tx *sql.Tx, row *attemptRow) error {
	_, err := tx.Exec(`
		INSERT INTO delivery_attempts (alert_id, attempt, status_code, error, duration_ms, attempted_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, row.AlertID, row.Attempt, row.StatusCode, nullString(row.Error),
		sanitizeFloat(row.DurationMS), row.AttemptedAt)
	return err
}

func writeOutcome(tx *sql.Tx, row *outcomeRow) error {
	_, err := tx.Exec(`
		UPDATE alert_history
		SET status = ?, status_code = ?, attempts = ?, error = ?, updated_at = ?
		WHERE alert_id = ?
	`, row.Status, row.StatusCode, row.Attempts, nullString(row.Error), row.UpdatedAt, row.AlertID)
	return err
}
