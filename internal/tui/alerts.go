package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nixlim/camwatch/internal/storage"
)

var statusStyles = map[storage.Status]lipgloss.Style{
	storage.StatusPending:   idleStyle,
	storage.StatusDelivered: activeStyle,
	storage.StatusFailed:    alertCriticalStyle,
	storage.StatusDropped:   alertWarningStyle,
	storage.StatusSkipped:   doneStyle,
	storage.StatusAbandoned: alertWarningStyle,
}

// statusOrder fixes the order of the per-status totals in the panel title.
var statusOrder = []storage.Status{
	storage.StatusDelivered,
	storage.StatusFailed,
	storage.StatusPending,
	storage.StatusDropped,
	storage.StatusSkipped,
	storage.StatusAbandoned,
}

func (m Model) renderAlertsPanel(w, h int) string {
	contentW := w - 4
	if contentW < 10 {
		contentW = 10
	}
	contentH := h - 2
	if contentH < 2 {
		contentH = 2
	}

	title := panelTitleStyle.Render("Alerts")
	if m.alerts != nil {
		title += " " + formatStatusCounts(m.alerts.StatusCounts())
	}
	lines := []string{title}

	recs := m.getAlerts()
	if len(recs) == 0 {
		lines = append(lines, dimStyle.Render("No alerts fired"))
		return m.panel(strings.Join(lines, "\n"), w, h, FocusAlerts)
	}

	visible := contentH - 1
	if visible < 1 {
		visible = 1
	}
	start := 0
	if m.panelFocus == FocusAlerts && m.alertCursor >= visible {
		start = m.alertCursor - visible + 1
	}
	end := min(start+visible, len(recs))

	for i := start; i < end; i++ {
		line := renderAlertLine(recs[i], contentW)
		if m.panelFocus == FocusAlerts && i == m.alertCursor {
			line = cursorStyle.Render(stripAnsi(line))
		}
		lines = append(lines, line)
	}

	return m.panel(strings.Join(lines, "\n"), w, h, FocusAlerts)
}

func renderAlertLine(r storage.AlertRecord, maxW int) string {
	style, ok := statusStyles[r.Status]
	if !ok {
		style = dimStyle
	}

	text := fmt.Sprintf("%s [%s] %s (%.2f)",
		r.FiredAt.Local().Format("01-02 15:04:05"), r.DetectorID, r.What, r.Confidence)
	status := fmt.Sprintf(" %-9s ", r.Status)
	maxText := maxW - len(status)
	if len(text) > maxText && maxText > 3 {
		text = text[:maxText-3] + "..."
	}
	return style.Render(status) + text
}

func formatStatusCounts(counts map[storage.Status]int) string {
	var parts []string
	for _, s := range statusOrder {
		if n := counts[s]; n > 0 {
			parts = append(parts, statusStyles[s].Render(fmt.Sprintf("%s:%d", s, n)))
		}
	}
	return strings.Join(parts, " ")
}
