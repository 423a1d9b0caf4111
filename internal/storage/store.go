package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/nixlim/camwatch/internal/alerts"
	"github.com/nixlim/camwatch/internal/delivery"
	"github.com/nixlim/camwatch/internal/logging"
)

const (
	writeChannelSize = 1000
	batchSize        = 50
	flushInterval    = 100 * time.Millisecond
)

type writeOp struct {
	opType  string
	alertID string
	alert   *alertRow
	attempt *attemptRow
	outcome *outcomeRow
}

// SQLiteLog is an AuditLog backed by SQLite. Writes are queued and applied
// in batches by a single writer goroutine; reads go straight to the database.
type SQLiteLog struct {
	db              *sql.DB
	logger          logging.Logger
	writeChan       chan writeOp
	droppedWrites   atomic.Int64
	doneChan        chan struct{}
	closed          atomic.Bool
	cancelMaint     context.CancelFunc
	maintenanceDone chan struct{}
}

func NewSQLiteLog(dbPath string, retentionDays int, logger logging.Logger) (*SQLiteLog, error) {
	return newSQLiteLogWithChannelSize(dbPath, writeChannelSize, retentionDays, logger)
}

func newSQLiteLogWithChannelSize(dbPath string, chanSize int, retentionDays int, logger logging.Logger) (*SQLiteLog, error) {
	if logger == nil {
		logger = logging.Discard()
	}

	db, err := OpenDB(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	store := &SQLiteLog{
		db:              db,
		logger:          logger,
		writeChan:       make(chan writeOp, chanSize),
		doneChan:        make(chan struct{}),
		cancelMaint:     cancel,
		maintenanceDone: make(chan struct{}),
	}

	if err := store.recoverPending(); err != nil {
		cancel()
		_ = db.Close()
		return nil, fmt.Errorf("recovering pending alerts: %w", err)
	}

	go store.writerLoop()
	store.startMaintenance(ctx, retentionDays)

	return store, nil
}

func (s *SQLiteLog) RecordAlert(a alerts.Alert) {
	rec := recordFromAlert(a)
	s.sendWrite(writeOp{
		opType:  "alert",
		alertID: rec.ID,
		alert: &alertRow{
			AlertID:    rec.ID,
			DetectorID: rec.DetectorID,
			AlertType:  rec.AlertType,
			Severity:   rec.Severity,
			What:       rec.What,
			Confidence: rec.Confidence,
			FiredAt:    formatTime(rec.FiredAt),
			Status:     string(rec.Status),
			Payload:    string(rec.Payload),
		},
	})
}

func (s *SQLiteLog) RecordAttempt(a delivery.Attempt) {
	rec := attemptRecord(a)
	s.sendWrite(writeOp{
		opType:  "attempt",
		alertID: rec.AlertID,
		attempt: &attemptRow{
			AlertID:     rec.AlertID,
			Attempt:     rec.Number,
			StatusCode:  rec.StatusCode,
			Error:       rec.Error,
			DurationMS:  float64(rec.Duration) / float64(time.Millisecond),
			AttemptedAt: formatTime(rec.AttemptedAt),
		},
	})
}

func (s *SQLiteLog) RecordOutcome(o Outcome) {
	s.sendWrite(writeOp{
		opType:  "outcome",
		alertID: o.AlertID,
		outcome: &outcomeRow{
			AlertID:    o.AlertID,
			Status:     string(o.Status),
			StatusCode: o.StatusCode,
			Attempts:   o.Attempts,
			Error:      o.Error,
			UpdatedAt:  formatTime(o.At),
		},
	})
}

func (s *SQLiteLog) sendWrite(op writeOp) {
	if s.closed.Load() {
		return
	}
	defer func() { _ = recover() }()
	select {
	case s.writeChan <- op:
	default:
		s.droppedWrites.Add(1)
		s.logger.WithFields(logging.Fields{
			"alert_id": op.alertID,
			"type":     op.opType,
		}).Warn("audit log write channel full, dropped write")
	}
}

func (s *SQLiteLog) DroppedWrites() int64 {
	return s.droppedWrites.Load()
}

func (s *SQLiteLog) Close() error {
	s.closed.Store(true)

	s.cancelMaint()
	select {
	case <-s.maintenanceDone:
	case <-time.After(30 * time.Second):
		s.logger.Warn("maintenance goroutine did not stop within 30s")
	}

	close(s.writeChan)

	select {
	case <-s.doneChan:
	case <-time.After(10 * time.Second):
		s.logger.Error("failed to drain audit writes within 10s, data may be lost")
	}

	return s.db.Close()
}

func (s *SQLiteLog) writerLoop() {
	defer close(s.doneChan)

	batch := make([]writeOp, 0, batchSize)
	flushTimer := time.NewTimer(flushInterval)
	defer flushTimer.Stop()

	for {
		select {
		case op, ok := <-s.writeChan:
			if !ok {
				if len(batch) > 0 {
					s.flushBatch(batch)
				}
				return
			}

			batch = append(batch, op)

			if len(batch) >= batchSize {
				s.flushBatch(batch)
				batch = batch[:0]
				flushTimer.Reset(flushInterval)
			}

		case <-flushTimer.C:
			if len(batch) > 0 {
				s.flushBatch(batch)
				batch = batch[:0]
			}
			flushTimer.Reset(flushInterval)
		}
	}
}

func (s *SQLiteLog) flushBatch(batch []writeOp) {
	tx, err := s.db.Begin()
	if err != nil {
		s.logger.WithError(err).Error("failed to begin audit transaction")
		return
	}
	defer func() { _ = tx.Rollback() }()

	for _, op := range batch {
		if err := s.executeOp(tx, op); err != nil {
			s.logger.WithFields(logging.Fields{
				"alert_id": op.alertID,
				"type":     op.opType,
			}).WithError(err).Error("failed to execute audit write")
		}
	}

	if err := tx.Commit(); err != nil {
		s.logger.WithError(err).Error("failed to commit audit transaction")
	}
}

func (s *SQLiteLog) executeOp(tx *sql.Tx, op writeOp) error {
	switch op.opType {
	case "alert":
		replaced, err := writeAlert(tx, op.alert)
		if replaced {
			s.logger.WithField("alert_id", op.alertID).Warn("alert id already recorded; replacing the earlier row")
		}
		return err
	case "attempt":
		return writeAttempt(tx, op.attempt)
	case "outcome":
		return writeOutcome(tx, op.outcome)
	default:
		return fmt.Errorf("unknown op type: %s", op.opType)
	}
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(timeLayout)
}
