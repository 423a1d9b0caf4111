// Package tui implements the terminal status dashboard: configured detectors
// with their live counters, the activity stream, recent alerts with their
// delivery status, and a per-day alert history.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nixlim/camwatch/internal/events"
	"github.com/nixlim/camwatch/internal/pipeline"
	"github.com/nixlim/camwatch/internal/storage"
)

// DefaultRefreshInterval is how often the dashboard re-reads its providers.
const DefaultRefreshInterval = 500 * time.Millisecond

// alertListLimit bounds how many alerts the alerts panel reads.
const alertListLimit = 50

type ViewState int

const (
	ViewDashboard ViewState = iota
	ViewHistory
)

type PanelFocus int

const (
	FocusDetectors PanelFocus = iota
	FocusEvents
	FocusAlerts
)

// DetectorProvider lists detector status snapshots in a stable order.
type DetectorProvider interface {
	Statuses() []pipeline.Status
}

// EventProvider reads the activity buffer.
type EventProvider interface {
	ListAll() []events.FormattedEvent
}

// AlertProvider reads the audit log.
type AlertProvider interface {
	RecentAlerts(limit int) []storage.AlertRecord
	StatusCounts() map[storage.Status]int
}

// QueueProvider reports dispatch queue occupancy.
type QueueProvider interface {
	QueueDepth() int
	QueueCapacity() int
}

type tickMsg time.Time

type Model struct {
	view       ViewState
	panelFocus PanelFocus
	width      int
	height     int

	detectors DetectorProvider
	events    EventProvider
	alerts    AlertProvider
	history   storage.History
	queue     QueueProvider

	isPersistent bool
	refreshRate  time.Duration
	keys         KeyMap
	now          func() time.Time

	detectorCursor   int
	selectedDetector string

	eventFilter    EventFilter
	filterMenu     FilterMenuState
	eventCursor    int
	eventScrollPos int
	autoScroll     bool

	alertCursor int

	detailOverlay   bool
	detailTitle     string
	detailContent   string
	detailScrollPos int

	historyGranularity string
	historyScrollPos   int

	quitting   bool
	onShutdown func()
}

type ModelOption func(*Model)

func NewModel(opts ...ModelOption) Model {
	m := Model{
		view:               ViewDashboard,
		refreshRate:        DefaultRefreshInterval,
		keys:               DefaultKeyMap(),
		now:                time.Now,
		eventFilter:        NewEventFilter(),
		filterMenu:         NewFilterMenu(),
		autoScroll:         true,
		historyGranularity: "daily",
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

func WithDetectorProvider(d DetectorProvider) ModelOption {
	return func(m *Model) { m.detectors = d }
}

func WithEventProvider(e EventProvider) ModelOption {
	return func(m *Model) { m.events = e }
}

func WithAlertProvider(a AlertProvider) ModelOption {
	return func(m *Model) { m.alerts = a }
}

func WithHistoryProvider(h storage.History) ModelOption {
	return func(m *Model) { m.history = h }
}

func WithQueueProvider(q QueueProvider) ModelOption {
	return func(m *Model) { m.queue = q }
}

func WithStartView(v ViewState) ModelOption {
	return func(m *Model) { m.view = v }
}

func WithRefreshInterval(d time.Duration) ModelOption {
	return func(m *Model) {
		if d > 0 {
			m.refreshRate = d
		}
	}
}

func WithOnShutdown(fn func()) ModelOption {
	return func(m *Model) { m.onShutdown = fn }
}

func WithPersistenceFlag(isPersistent bool) ModelOption {
	return func(m *Model) { m.isPersistent = isPersistent }
}

func WithClock(now func() time.Time) ModelOption {
	return func(m *Model) { m.now = now }
}

func (m Model) Init() tea.Cmd {
	return m.tickCmd()
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.refreshRate, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		m.clampCursors()
		return m, m.tickCmd()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.detailOverlay {
		return m.handleDetailOverlayKey(msg)
	}

	if m.filterMenu.Active {
		return m.handleFilterMenuKey(msg)
	}

	if key.Matches(msg, m.keys.Quit) {
		m.quitting = true
		if m.onShutdown != nil {
			m.onShutdown()
		}
		return m, tea.Quit
	}

	switch m.view {
	case ViewHistory:
		return m.handleHistoryKey(msg)
	default:
		return m.handleDashboardKey(msg)
	}
}

func (m Model) handleDashboardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Tab):
		m.view = ViewHistory
		m.historyScrollPos = 0
		return m, nil

	case key.Matches(msg, m.keys.Filter):
		m.filterMenu.Active = true
		m.filterMenu.Cursor = 0
		return m, nil

	case key.Matches(msg, m.keys.FocusAlerts):
		m.panelFocus = FocusAlerts
		m.alertCursor = 0
		return m, nil

	case key.Matches(msg, m.keys.FocusEvents):
		m.panelFocus = FocusEvents
		m.autoScroll = false
		if n := len(m.getFilteredEvents()); n > 0 {
			m.eventCursor = n - 1
		}
		m.eventScrollPos = m.eventCursor
		return m, nil
	}

	switch m.panelFocus {
	case FocusEvents:
		return m.handleEventsPanelKey(msg)
	case FocusAlerts:
		return m.handleAlertsPanelKey(msg)
	default:
		return m.handleDetectorsPanelKey(msg)
	}
}

func (m Model) handleDetectorsPanelKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	statuses := m.getStatuses()

	switch {
	case key.Matches(msg, m.keys.Up):
		if m.detectorCursor > 0 {
			m.detectorCursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.detectorCursor < len(statuses)-1 {
			m.detectorCursor++
		}

	case key.Matches(msg, m.keys.Enter):
		if m.detectorCursor < len(statuses) {
			m.selectedDetector = statuses[m.detectorCursor].ID
			m.eventFilter.DetectorID = m.selectedDetector
			m.autoScroll = true
		}

	case key.Matches(msg, m.keys.Escape):
		m.selectedDetector = ""
		m.eventFilter.DetectorID = ""
		m.autoScroll = true
	}

	return m, nil
}

func (m Model) handleEventsPanelKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	evts := m.getFilteredEvents()

	switch {
	case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.ScrollUp):
		if m.eventCursor > 0 {
			m.eventCursor--
		}

	case key.Matches(msg, m.keys.Down), key.Matches(msg, m.keys.ScrollDown):
		if m.eventCursor < len(evts)-1 {
			m.eventCursor++
		}

	case key.Matches(msg, m.keys.Enter):
		if m.eventCursor >= 0 && m.eventCursor < len(evts) {
			m.openDetail("Event Detail", formatEventDetail(evts[m.eventCursor]))
		}

	case key.Matches(msg, m.keys.Escape):
		m.panelFocus = FocusDetectors
		m.autoScroll = true
	}

	m.eventScrollPos = m.eventCursor
	return m, nil
}

func (m Model) handleAlertsPanelKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	recs := m.getAlerts()

	switch {
	case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.ScrollUp):
		if m.alertCursor > 0 {
			m.alertCursor--
		}

	case key.Matches(msg, m.keys.Down), key.Matches(msg, m.keys.ScrollDown):
		if m.alertCursor < len(recs)-1 {
			m.alertCursor++
		}

	case key.Matches(msg, m.keys.Enter):
		if m.alertCursor < len(recs) {
			m.openDetail("Alert Detail", formatAlertDetail(recs[m.alertCursor]))
		}

	case key.Matches(msg, m.keys.Escape):
		m.panelFocus = FocusDetectors
	}

	return m, nil
}

func (m *Model) openDetail(title, content string) {
	m.detailOverlay = true
	m.detailTitle = title
	m.detailContent = content
	m.detailScrollPos = 0
}

func (m Model) handleDetailOverlayKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape), key.Matches(msg, m.keys.Enter):
		m.detailOverlay = false
		m.detailContent = ""
		m.detailTitle = ""
		m.detailScrollPos = 0

	case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.ScrollUp):
		if m.detailScrollPos > 0 {
			m.detailScrollPos--
		}

	case key.Matches(msg, m.keys.Down), key.Matches(msg, m.keys.ScrollDown):
		m.detailScrollPos++
	}
	return m, nil
}

func (m Model) handleHistoryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Tab):
		m.view = ViewDashboard

	case key.Matches(msg, m.keys.Up):
		if m.historyScrollPos > 0 {
			m.historyScrollPos--
		}

	case key.Matches(msg, m.keys.Down):
		m.historyScrollPos++

	case key.Matches(msg, m.keys.Daily):
		m.historyGranularity = "daily"
		m.historyScrollPos = 0

	case key.Matches(msg, m.keys.Weekly):
		m.historyGranularity = "weekly"
		m.historyScrollPos = 0

	case key.Matches(msg, m.keys.Monthly):
		m.historyGranularity = "monthly"
		m.historyScrollPos = 0
	}
	return m, nil
}

func (m Model) handleFilterMenuKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.filterMenu.Active = false
		m.applyFilter()

	case key.Matches(msg, m.keys.Up):
		if m.filterMenu.Cursor > 0 {
			m.filterMenu.Cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.filterMenu.Cursor < len(m.filterMenu.Options)-1 {
			m.filterMenu.Cursor++
		}

	case key.Matches(msg, m.keys.Enter):
		opt := &m.filterMenu.Options[m.filterMenu.Cursor]
		opt.Enabled = !opt.Enabled
		m.applyFilter()
	}
	return m, nil
}

func (m *Model) applyFilter() {
	m.eventFilter.EventTypes = make(map[string]bool)
	m.eventFilter.SuccessOnly = false
	m.eventFilter.FailureOnly = false

	for _, opt := range m.filterMenu.Options {
		switch opt.Key {
		case filterSuccessOnly:
			m.eventFilter.SuccessOnly = opt.Enabled
		case filterFailureOnly:
			m.eventFilter.FailureOnly = opt.Enabled
		default:
			m.eventFilter.EventTypes[opt.Key] = opt.Enabled
		}
	}
}

// clampCursors keeps cursors inside lists that may have shrunk since the
// last refresh.
func (m *Model) clampCursors() {
	if n := len(m.getStatuses()); m.detectorCursor >= n {
		m.detectorCursor = max(n-1, 0)
	}
	if n := len(m.getAlerts()); m.alertCursor >= n {
		m.alertCursor = max(n-1, 0)
	}
}

func (m Model) getStatuses() []pipeline.Status {
	if m.detectors == nil {
		return nil
	}
	return m.detectors.Statuses()
}

func (m Model) getAlerts() []storage.AlertRecord {
	if m.alerts == nil {
		return nil
	}
	return m.alerts.RecentAlerts(alertListLimit)
}

func (m Model) headerIndicators() string {
	var parts []string
	if !m.isPersistent {
		parts = append(parts, "[No persistence]")
	}
	if m.history != nil && m.history.DroppedWrites() > 0 {
		parts = append(parts, "[!] Writes dropped")
	}
	if m.queue != nil && m.queue.QueueCapacity() > 0 {
		depth, capacity := m.queue.QueueDepth(), m.queue.QueueCapacity()
		if depth*5 >= capacity*4 {
			parts = append(parts, fmt.Sprintf("[!] Queue %d/%d", depth, capacity))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return " " + dimStyle.Render(strings.Join(parts, " "))
}

func formatEventDetail(e events.FormattedEvent) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Type:      %s\n", e.EventType)
	if e.DetectorID != "" {
		fmt.Fprintf(&sb, "Detector:  %s\n", e.DetectorID)
	}
	if e.AlertID != "" {
		fmt.Fprintf(&sb, "Alert:     %s\n", e.AlertID)
	}
	fmt.Fprintf(&sb, "Time:      %s\n", e.Timestamp.Format("2006-01-02 15:04:05"))
	if e.Success != nil {
		fmt.Fprintf(&sb, "Success:   %t\n", *e.Success)
	}
	sb.WriteString("\n")
	sb.WriteString(e.Formatted)
	return sb.String()
}

func formatAlertDetail(r storage.AlertRecord) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "ID:         %s\n", r.ID)
	fmt.Fprintf(&sb, "Detector:   %s\n", r.DetectorID)
	fmt.Fprintf(&sb, "Type:       %s (%s)\n", r.AlertType, r.Severity)
	fmt.Fprintf(&sb, "Fired:      %s\n", r.FiredAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&sb, "Confidence: %.2f\n", r.Confidence)
	fmt.Fprintf(&sb, "Status:     %s", r.Status)
	if r.StatusCode != 0 {
		fmt.Fprintf(&sb, " (HTTP %d)", r.StatusCode)
	}
	if r.Attempts > 0 {
		fmt.Fprintf(&sb, ", %d attempt(s)", r.Attempts)
	}
	sb.WriteString("\n")
	if r.Error != "" {
		fmt.Fprintf(&sb, "Error:      %s\n", r.Error)
	}
	sb.WriteString("\n")
	sb.WriteString(r.What)
	return sb.String()
}

func (m Model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var output string
	switch m.view {
	case ViewHistory:
		output = m.renderHistory()
	default:
		output = m.renderDashboard()
	}

	if m.height > 0 {
		lines := strings.Split(output, "\n")
		if len(lines) > m.height {
			lines = lines[:m.height]
			output = strings.Join(lines, "\n")
		}
	}

	return output
}
