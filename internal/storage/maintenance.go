package storage

import (
	"context"
	"fmt"
	"time"
)

const (
	maintenanceInterval = 1 * time.Hour
	vacuumInterval      = 7 * 24 * time.Hour
)

func (s *SQLiteLog) startMaintenance(ctx context.Context, retentionDays int) {
	go s.maintenanceLoop(ctx, retentionDays)
}

func (s *SQLiteLog) maintenanceLoop(ctx context.Context, retentionDays int) {
	defer close(s.maintenanceDone)

	lastVacuum := time.Now()
	ticker := time.NewTicker(maintenanceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.runMaintenanceCycle(retentionDays); err != nil {
				s.logger.WithError(err).Error("maintenance cycle failed")
			}

			if time.Since(lastVacuum) >= vacuumInterval {
				if _, err := s.db.Exec("VACUUM"); err != nil {
					s.logger.WithError(err).Error("VACUUM failed")
				} else {
					lastVacuum = time.Now()
				}
			}
		}
	}
}

// runMaintenanceCycle rolls up and then deletes alerts older than the
// retention period, together with their delivery attempts.
func (s *SQLiteLog) runMaintenanceCycle(retentionDays int) error {
	retentionModifier := fmt.Sprintf("-%d days", retentionDays)

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting maintenance transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := rollupExpired(tx, retentionModifier); err != nil {
		return err
	}

	_, err = tx.Exec(`
		DELETE FROM delivery_attempts WHERE alert_id IN (
			SELECT alert_id FROM alert_history WHERE datetime(fired_at) < datetime('now', ?)
		)`, retentionModifier)
	if err != nil {
		return fmt.Errorf("pruning old delivery attempts: %w", err)
	}

	_, err = tx.Exec("DELETE FROM alert_history WHERE datetime(fired_at) < datetime('now', ?)", retentionModifier)
	if err != nil {
		return fmt.Errorf("pruning old alerts: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing maintenance: %w", err)
	}
	return nil
}
