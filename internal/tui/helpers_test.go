package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nixlim/camwatch/internal/events"
	"github.com/nixlim/camwatch/internal/persistence"
	"github.com/nixlim/camwatch/internal/pipeline"
	"github.com/nixlim/camwatch/internal/storage"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type mockDetectors struct {
	statuses []pipeline.Status
}

func (m *mockDetectors) Statuses() []pipeline.Status { return m.statuses }

type mockEvents struct {
	events []events.FormattedEvent
}

func (m *mockEvents) ListAll() []events.FormattedEvent { return m.events }

type mockAlerts struct {
	records []storage.AlertRecord
	counts  map[storage.Status]int
}

func (m *mockAlerts) RecentAlerts(limit int) []storage.AlertRecord {
	if limit > 0 && limit < len(m.records) {
		return m.records[:limit]
	}
	return m.records
}

func (m *mockAlerts) StatusCounts() map[storage.Status]int { return m.counts }

type mockHistory struct {
	summaries []storage.DailySummary
	dropped   int64
}

func (m *mockHistory) QueryDailySummaries(int) []storage.DailySummary { return m.summaries }
func (m *mockHistory) DroppedWrites() int64                           { return m.dropped }

type mockQueue struct{ depth, capacity int }

func (m mockQueue) QueueDepth() int    { return m.depth }
func (m mockQueue) QueueCapacity() int { return m.capacity }

func twoDetectors() *mockDetectors {
	return &mockDetectors{statuses: []pipeline.Status{
		{
			ID: "cam-1", Location: "Lobby", Required: 4,
			Counters: persistence.Counters{Evaluated: 12, Throttled: 30, Fired: 1, WindowSize: 3, LastCheck: testNow},
		},
		{
			ID: "cam-2", Location: "Dock", Required: 4,
			Counters: persistence.Counters{Evaluated: 5, Fired: 2, CooldownUntil: testNow.Add(20 * time.Second)},
		},
	}}
}

func boolPtr(b bool) *bool { return &b }

func sampleEvents() *mockEvents {
	return &mockEvents{events: []events.FormattedEvent{
		{DetectorID: "cam-1", AlertID: "a1", EventType: events.TypeFired, Formatted: "[cam-1] Sleeping person detected", Timestamp: testNow},
		{DetectorID: "cam-1", AlertID: "a1", EventType: events.TypeDelivered, Formatted: "[cam-1] delivered a1", Timestamp: testNow, Success: boolPtr(true)},
		{DetectorID: "cam-2", AlertID: "a2", EventType: events.TypeFailed, Formatted: "[cam-2] delivery failed a2", Timestamp: testNow, Success: boolPtr(false)},
		{EventType: events.TypeProbe, Formatted: "webhook http://hook: reachable", Timestamp: testNow, Success: boolPtr(true)},
	}}
}

func sampleAlerts() *mockAlerts {
	return &mockAlerts{
		records: []storage.AlertRecord{
			{ID: "a2", DetectorID: "cam-2", AlertType: "color_marker", Severity: "low", What: "Pink marker detected", Confidence: 0.91, FiredAt: testNow, Status: storage.StatusFailed, StatusCode: 500, Attempts: 3, Error: "delivery exhausted"},
			{ID: "a1", DetectorID: "cam-1", AlertType: "sleeping_person", Severity: "medium", What: "Sleeping person detected", Confidence: 0.82, FiredAt: testNow.Add(-time.Minute), Status: storage.StatusDelivered, StatusCode: 200, Attempts: 1},
		},
		counts: map[storage.Status]int{storage.StatusDelivered: 1, storage.StatusFailed: 1},
	}
}

func newTestModel(opts ...ModelOption) Model {
	base := []ModelOption{
		WithDetectorProvider(twoDetectors()),
		WithEventProvider(sampleEvents()),
		WithAlertProvider(sampleAlerts()),
		WithClock(func() time.Time { return testNow }),
		WithPersistenceFlag(true),
	}
	m := NewModel(append(base, opts...)...)
	m.width = 120
	m.height = 40
	return m
}

func runeKey(r string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(r)}
}

func press(m Model, msgs ...tea.KeyMsg) Model {
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}
