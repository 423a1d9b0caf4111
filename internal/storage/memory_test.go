package storage

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/nixlim/camwatch/internal/alerts"
	"github.com/nixlim/camwatch/internal/delivery"
)

func TestMemoryLog_RecordAndOutcome(t *testing.T) {
	m := NewMemoryLog(10)
	a := testAlert("cam-1", time.Now())

	m.RecordAlert(a)
	m.RecordAttempt(delivery.Attempt{AlertID: a.ID, Number: 1, Err: errors.New("timeout")})
	m.RecordOutcome(OutcomeFromResult(a.ID, delivery.Result{
		Attempts: 1,
		Err:      fmt.Errorf("%w: timeout", delivery.ErrDeliveryExhausted),
	}, time.Now()))

	recs := m.RecentAlerts(5)
	if len(recs) != 1 {
		t.Fatalf("RecentAlerts: want 1, got %d", len(recs))
	}
	if recs[0].Status != StatusFailed {
		t.Errorf("status: want failed, got %s", recs[0].Status)
	}
	if recs[0].Error == "" {
		t.Error("error message not recorded")
	}
	if got := m.Attempts(a.ID); len(got) != 1 || got[0].Error != "timeout" {
		t.Errorf("Attempts = %+v", got)
	}
}

func TestMemoryLog_EvictsOldest(t *testing.T) {
	m := NewMemoryLog(3)
	base := time.Now()
	var ids []string
	for i := range 5 {
		a := testAlert(fmt.Sprintf("cam-%d", i), base.Add(time.Duration(i)*time.Second))
		ids = append(ids, a.ID)
		m.RecordAlert(a)
	}

	recs := m.RecentAlerts(0)
	if len(recs) != 3 {
		t.Fatalf("RecentAlerts: want 3, got %d", len(recs))
	}
	if recs[0].ID != ids[4] || recs[2].ID != ids[2] {
		t.Errorf("unexpected order or eviction: %v", []string{recs[0].ID, recs[1].ID, recs[2].ID})
	}

	m.RecordOutcome(Outcome{AlertID: ids[0], Status: StatusDelivered})
	if counts := m.StatusCounts(); counts[StatusDelivered] != 0 || counts[StatusPending] != 3 {
		t.Errorf("outcome for evicted alert applied: %v", counts)
	}
}

func TestMemoryLog_DefaultCapacity(t *testing.T) {
	m := NewMemoryLog(0)
	if m.capacity != DefaultMemoryCapacity {
		t.Errorf("capacity: want %d, got %d", DefaultMemoryCapacity, m.capacity)
	}
}

func TestOutcomeFromResult(t *testing.T) {
	at := time.Now()
	tests := []struct {
		name   string
		result delivery.Result
		want   Status
	}{
		{"delivered", delivery.Result{Delivered: true, StatusCode: 202, Attempts: 2}, StatusDelivered},
		{"exhausted", delivery.Result{StatusCode: 500, Attempts: 3, Err: delivery.ErrDeliveryExhausted}, StatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := OutcomeFromResult("id-1", tt.result, at)
			if o.Status != tt.want {
				t.Errorf("status: want %s, got %s", tt.want, o.Status)
			}
			if o.StatusCode != tt.result.StatusCode || o.Attempts != tt.result.Attempts {
				t.Errorf("outcome = %+v", o)
			}
			if (o.Error != "") != (tt.result.Err != nil) {
				t.Errorf("error = %q", o.Error)
			}
		})
	}
}

func TestMemoryLog_QueryDailySummaries(t *testing.T) {
	m := NewMemoryLog(10)
	now := time.Now().UTC()

	delivered := testAlert("cam-1", now)
	failed := testAlert("cam-1", now.Add(-time.Second))
	other := testAlert("cam-2", now.Add(-2*time.Second))
	old := testAlert("cam-1", now.AddDate(0, 0, -30))
	for _, a := range []alerts.Alert{delivered, failed, other, old} {
		m.RecordAlert(a)
	}
	m.RecordOutcome(Outcome{AlertID: delivered.ID, Status: StatusDelivered})
	m.RecordOutcome(Outcome{AlertID: failed.ID, Status: StatusFailed})

	got := m.QueryDailySummaries(7)
	if len(got) < 2 {
		t.Fatalf("QueryDailySummaries: want at least 2 rows, got %+v", got)
	}

	var cam1 *DailySummary
	for i := range got {
		if got[i].DetectorID == "cam-1" && got[i].Date == delivered.FiredAt.UTC().Format("2006-01-02") {
			cam1 = &got[i]
		}
		if got[i].Date < now.AddDate(0, 0, -7).Format("2006-01-02") {
			t.Errorf("row outside window: %+v", got[i])
		}
	}
	if cam1 == nil {
		t.Fatalf("no cam-1 row for today in %+v", got)
	}
	if cam1.Delivered != 1 || cam1.Failed != 1 {
		t.Errorf("cam-1 row = %+v", *cam1)
	}
	if m.DroppedWrites() != 0 {
		t.Error("memory log should never drop writes")
	}
}
