package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/nixlim/camwatch/internal/alerts"
	"github.com/nixlim/camwatch/internal/delivery"
	"github.com/nixlim/camwatch/internal/detection"
	"github.com/nixlim/camwatch/internal/persistence"
)

func testAlert(detectorID string, firedAt time.Time) alerts.Alert {
	best := detection.NewSample(detectorID, 0.82,
		&detection.Box{X1: 0, Y1: 0, X2: 300, Y2: 100}, firedAt.Add(-time.Second), nil)
	stats := persistence.Stats{
		WindowSize:          6,
		Qualifying:          5,
		Required:            4,
		ConfidenceThreshold: 0.3,
		Persistence:         10 * time.Second,
		CheckInterval:       2 * time.Second,
		Cooldown:            30 * time.Second,
	}
	return alerts.Build(best, firedAt, stats, alerts.SleepingPersonProfile(detectorID, "Lobby"))
}

func newTestSQLiteLog(t *testing.T) (*SQLiteLog, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := NewSQLiteLog(dbPath, 30, nil)
	if err != nil {
		t.Fatalf("NewSQLiteLog failed: %v", err)
	}
	return store, dbPath
}

// waitForFlush sleeps past the writer's flush interval.
func waitForFlush() {
	time.Sleep(flushInterval + 100*time.Millisecond)
}

func attemptFor(alertID string, n, status int, at time.Time) delivery.Attempt {
	return delivery.Attempt{AlertID: alertID, Number: n, StatusCode: status, At: at}
}
