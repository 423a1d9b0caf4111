package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/nixlim/camwatch/internal/pipeline"
)

func (m Model) renderDetectorPanel(w, h int) string {
	contentW := w - 4
	if contentW < 10 {
		contentW = 10
	}

	lines := []string{panelTitleStyle.Render("Detectors")}

	statuses := m.getStatuses()
	if len(statuses) == 0 {
		lines = append(lines, "", dimStyle.Render("No detectors configured"))
		return m.panel(strings.Join(lines, "\n"), w, h, FocusDetectors)
	}

	now := m.now()
	for i, st := range statuses {
		block := detectorLines(st, now, contentW)
		if i == m.detectorCursor && m.panelFocus == FocusDetectors {
			block[0] = cursorStyle.Render(stripAnsi(block[0]))
		}
		if st.ID == m.selectedDetector {
			block[0] += " " + newBadgeStyle.Render("*")
		}
		lines = append(lines, block...)
	}

	return m.panel(strings.Join(lines, "\n"), w, h, FocusDetectors)
}

// detectorLines renders one detector as a name line followed by its
// counters and current state.
func detectorLines(st pipeline.Status, now time.Time, maxW int) []string {
	name := st.ID
	if st.Location != "" {
		name += " @ " + st.Location
	}
	if len(name) > maxW {
		name = name[:maxW]
	}

	c := st.Counters
	counters := fmt.Sprintf("  eval %d  thr %d  below %d  fired %d",
		c.Evaluated, c.Throttled, c.BelowThreshold, c.Fired)

	var stateText string
	switch {
	case c.CooldownUntil.After(now):
		stateText = idleStyle.Render(fmt.Sprintf("  cooldown %s", formatRemaining(c.CooldownUntil.Sub(now))))
	case c.WindowSize > 0:
		stateText = activeStyle.Render(fmt.Sprintf("  watching %d samples (need %d)", c.WindowSize, st.Required))
	default:
		stateText = doneStyle.Render("  idle")
	}
	if !c.LastCheck.IsZero() {
		stateText += dimStyle.Render("  last " + c.LastCheck.Local().Format("15:04:05"))
	}

	return []string{name, dimStyle.Render(counters), stateText}
}

func formatRemaining(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	return d.Truncate(time.Second).String()
}
