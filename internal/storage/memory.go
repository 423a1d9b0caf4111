package storage

import (
	"sort"
	"sync"
	"time"

	"github.com/nixlim/camwatch/internal/alerts"
	"github.com/nixlim/camwatch/internal/delivery"
)

// DefaultMemoryCapacity bounds how many alerts a MemoryLog keeps.
const DefaultMemoryCapacity = 500

// MemoryLog is a thread-safe in-memory AuditLog holding the most recent
// alerts. Older alerts are evicted once capacity is reached.
type MemoryLog struct {
	mu       sync.RWMutex
	capacity int
	order    []string
	records  map[string]*AlertRecord
	attempts map[string][]AttemptRecord
}

func NewMemoryLog(capacity int) *MemoryLog {
	if capacity < 1 {
		capacity = DefaultMemoryCapacity
	}
	return &MemoryLog{
		capacity: capacity,
		records:  make(map[string]*AlertRecord),
		attempts: make(map[string][]AttemptRecord),
	}
}

func (m *MemoryLog) RecordAlert(a alerts.Alert) {
	rec := recordFromAlert(a)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.records[rec.ID]; exists {
		return
	}
	m.records[rec.ID] = &rec
	m.order = append(m.order, rec.ID)

	for len(m.order) > m.capacity {
		oldest := m.order[0]
		m.order = m.order[1:]
		delete(m.records, oldest)
		delete(m.attempts, oldest)
	}
}

func (m *MemoryLog) RecordAttempt(a delivery.Attempt) {
	rec := attemptRecord(a)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[a.AlertID]; !ok {
		return
	}
	m.attempts[a.AlertID] = append(m.attempts[a.AlertID], rec)
}

func (m *MemoryLog) RecordOutcome(o Outcome) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[o.AlertID]
	if !ok {
		return
	}
	rec.Status = o.Status
	rec.StatusCode = o.StatusCode
	rec.Attempts = o.Attempts
	rec.Error = o.Error
}

func (m *MemoryLog) RecentAlerts(limit int) []AlertRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 || limit > len(m.order) {
		limit = len(m.order)
	}
	out := make([]AlertRecord, 0, limit)
	for i := len(m.order) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, *m.records[m.order[i]])
	}
	return out
}

// Attempts returns the recorded attempts for one alert in order.
func (m *MemoryLog) Attempts(alertID string) []AttemptRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	src := m.attempts[alertID]
	if len(src) == 0 {
		return nil
	}
	out := make([]AttemptRecord, len(src))
	copy(out, src)
	return out
}

func (m *MemoryLog) StatusCounts() map[Status]int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[Status]int)
	for _, rec := range m.records {
		counts[rec.Status]++
	}
	return counts
}

// QueryDailySummaries groups the held alerts by UTC day and detector,
// newest day first.
func (m *MemoryLog) QueryDailySummaries(days int) []DailySummary {
	cutoff := time.Now().UTC().AddDate(0, 0, -days).Format("2006-01-02")

	m.mu.RLock()
	defer m.mu.RUnlock()

	type key struct{ date, detector string }
	byKey := make(map[key]*DailySummary)
	for _, rec := range m.records {
		date := rec.FiredAt.UTC().Format("2006-01-02")
		if date < cutoff {
			continue
		}
		k := key{date, rec.DetectorID}
		d, ok := byKey[k]
		if !ok {
			d = &DailySummary{Date: date, DetectorID: rec.DetectorID}
			byKey[k] = d
		}
		d.Fired++
		switch rec.Status {
		case StatusDelivered:
			d.Delivered++
		case StatusFailed:
			d.Failed++
		case StatusDropped:
			d.Dropped++
		}
	}

	out := make([]DailySummary, 0, len(byKey))
	for _, d := range byKey {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].DetectorID < out[j].DetectorID
	})
	return out
}

// DroppedWrites is always zero; memory writes cannot be lost.
func (m *MemoryLog) DroppedWrites() int64 {
	return 0
}

func (m *MemoryLog) Close() error {
	return nil
}

func attemptRecord(a delivery.Attempt) AttemptRecord {
	rec := AttemptRecord{
		AlertID:     a.AlertID,
		Number:      a.Number,
		StatusCode:  a.StatusCode,
		Duration:    a.Duration,
		AttemptedAt: a.At,
	}
	if a.Err != nil {
		rec.Error = a.Err.Error()
	}
	return rec
}
