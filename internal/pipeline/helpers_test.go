package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nixlim/camwatch/internal/alerts"
	"github.com/nixlim/camwatch/internal/config"
	"github.com/nixlim/camwatch/internal/delivery"
	"github.com/nixlim/camwatch/internal/detection"
	"github.com/nixlim/camwatch/internal/persistence"
	"github.com/nixlim/camwatch/internal/storage"
)

// fakeDeliverer records alerts and returns a fixed result. When block is
// set, Deliver waits for it to close or for ctx to end.
type fakeDeliverer struct {
	mu     sync.Mutex
	got    []alerts.Alert
	result delivery.Result
	block  chan struct{}
}

func (f *fakeDeliverer) Deliver(ctx context.Context, a alerts.Alert) delivery.Result {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return delivery.Result{Attempts: 1, Err: ctx.Err()}
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, a)
	return f.result
}

func (f *fakeDeliverer) delivered() []alerts.Alert {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]alerts.Alert(nil), f.got...)
}

func sleepingDetector(t *testing.T, id string) *Detector {
	t.Helper()
	dc := config.DefaultDetector(config.KindSleepingPerson)
	dc.ID = id
	d, err := DetectorFromConfig(dc)
	if err != nil {
		t.Fatalf("DetectorFromConfig: %v", err)
	}
	return d
}

var lyingBox = &detection.Box{X1: 0, Y1: 0, X2: 300, Y2: 100}

func lying(id string, score float64, ts time.Time) detection.Sample {
	return detection.NewSample(id, score, lyingBox, ts, detection.PromptDetail{Prompt: "person sleeping", Method: "sam3"})
}

// testAlert builds a distinct alert for detector id; n varies the fire time.
func testAlert(id string, n int) alerts.Alert {
	now := time.Date(2025, 3, 1, 22, 0, 0, 0, time.UTC).Add(time.Duration(n) * time.Minute)
	stats := persistence.Stats{
		WindowSize:          5,
		Qualifying:          4,
		Required:            4,
		ConfidenceThreshold: 0.3,
		Persistence:         10 * time.Second,
		CheckInterval:       2 * time.Second,
		Cooldown:            30 * time.Second,
	}
	return alerts.Build(lying(id, 0.9, now), now, stats, alerts.SleepingPersonProfile(id, "Camera Feed"))
}

func statusOf(t *testing.T, audit *storage.MemoryLog, alertID string) storage.Status {
	t.Helper()
	for _, rec := range audit.RecentAlerts(0) {
		if rec.ID == alertID {
			return rec.Status
		}
	}
	t.Fatalf("alert %s not in audit log", alertID)
	return ""
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
