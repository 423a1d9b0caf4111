package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nixlim/camwatch/internal/events"
)

var eventTypeIcons = map[string]string{
	events.TypeFired:         "!!",
	events.TypeDelivered:     "OK",
	events.TypeFailed:        "XX",
	events.TypeDropped:       "DR",
	events.TypeSkipped:       "--",
	events.TypeUpstreamError: "E:",
	events.TypeProbe:         "PR",
}

var eventTypeStyles = map[string]lipgloss.Style{
	events.TypeFired:         lipgloss.NewStyle().Foreground(lipgloss.Color("222")).Bold(true),
	events.TypeDelivered:     lipgloss.NewStyle().Foreground(lipgloss.Color("114")),
	events.TypeFailed:        lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	events.TypeDropped:       lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
	events.TypeSkipped:       lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	events.TypeUpstreamError: lipgloss.NewStyle().Foreground(lipgloss.Color("183")),
	events.TypeProbe:         lipgloss.NewStyle().Foreground(lipgloss.Color("117")),
}

func (m Model) renderEventStreamPanel(w, h int) string {
	contentW := w - 4
	if contentW < 10 {
		contentW = 10
	}
	contentH := h - 2
	if contentH < 2 {
		contentH = 2
	}

	title := panelTitleStyle.Render("Activity")
	if m.eventFilter.DetectorID != "" {
		title += dimStyle.Render(" [" + truncateID(m.eventFilter.DetectorID, 16) + "]")
	}
	lines := []string{title}

	evts := m.getFilteredEvents()
	if len(evts) == 0 {
		lines = append(lines, "", dimStyle.Render("No activity yet"))
		return m.panel(strings.Join(lines, "\n"), w, h, FocusEvents)
	}

	visible := contentH - 1
	if len(evts) > visible {
		visible--
	}
	if visible < 1 {
		visible = 1
	}

	start := len(evts) - visible
	if !m.autoScroll {
		start = m.eventScrollPos - visible + 1
		if start > len(evts)-visible {
			start = len(evts) - visible
		}
	}
	if start < 0 {
		start = 0
	}
	end := min(start+visible, len(evts))

	for i := start; i < end; i++ {
		line := renderEventLine(evts[i], contentW)
		if m.panelFocus == FocusEvents && i == m.eventCursor {
			line = cursorStyle.Render(stripAnsi(line))
		}
		lines = append(lines, line)
	}

	if len(evts) > visible {
		lines = append(lines, dimStyle.Render(formatScrollPos(start+1, end, len(evts))))
	}

	return m.panel(strings.Join(lines, "\n"), w, h, FocusEvents)
}

// getFilteredEvents returns buffered events matching the current filter,
// oldest first.
func (m Model) getFilteredEvents() []events.FormattedEvent {
	if m.events == nil {
		return nil
	}

	evts := m.events.ListAll()

	var filtered []events.FormattedEvent
	for _, e := range evts {
		if m.eventFilter.Matches(e.DetectorID, e.EventType, e.Success) {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

func renderEventLine(e events.FormattedEvent, maxW int) string {
	icon := eventTypeIcons[e.EventType]
	if icon == "" {
		icon = "??"
	}

	style, ok := eventTypeStyles[e.EventType]
	if !ok {
		style = dimStyle
	}

	text := e.Timestamp.Local().Format("15:04:05") + " " + e.Formatted
	maxText := maxW - len(icon) - 1
	if len(text) > maxText && maxText > 3 {
		text = text[:maxText-3] + "..."
	}

	return style.Render(icon + " " + text)
}

// formatScrollPos returns a string like "[10-20/100]".
func formatScrollPos(start, end, total int) string {
	return fmt.Sprintf("[%d-%d/%d]", start, end, total)
}
