package tui

import (
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type panelDimensions struct {
	detectorsW, detectorsH int
	eventsW, eventsH       int
	alertsW, alertsH       int
	headerH                int
}

const (
	minWidth  = 40
	minHeight = 12

	headerHeight = 1

	alertsMinHeight = 5
	alertsMaxHeight = 10
)

func computeDimensions(totalW, totalH int) panelDimensions {
	if totalW < minWidth {
		totalW = minWidth
	}
	if totalH < minHeight {
		totalH = minHeight
	}

	d := panelDimensions{
		headerH: headerHeight,
	}

	d.alertsW = totalW
	d.alertsH = (totalH - headerHeight) * 30 / 100
	if d.alertsH < alertsMinHeight {
		d.alertsH = alertsMinHeight
	}
	if d.alertsH > alertsMaxHeight {
		d.alertsH = alertsMaxHeight
	}

	usableH := totalH - headerHeight - d.alertsH
	if usableH < 4 {
		usableH = 4
	}

	d.detectorsW = totalW * 40 / 100
	if d.detectorsW < 20 {
		d.detectorsW = 20
	}
	if d.detectorsW > totalW-20 {
		d.detectorsW = totalW - 20
	}
	d.detectorsH = usableH

	d.eventsW = totalW - d.detectorsW
	d.eventsH = usableH

	return d
}

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62"))

	panelBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240"))

	panelTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("69"))

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	activeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82"))

	idleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("226"))

	doneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	alertWarningStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("226"))

	alertCriticalStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("196"))

	filterMenuStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(1, 2)

	newBadgeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82")).
			Bold(true)

	focusBorderColor = lipgloss.Color("63")

	cursorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62"))

	detailOverlayStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("69")).
				Padding(1, 2)
)

// panel draws content in a bordered box of outer size w x h, highlighting
// the border when focus is the model's focused panel.
func (m Model) panel(content string, w, h int, focus PanelFocus) string {
	style := panelBorderStyle
	if m.panelFocus == focus {
		style = style.BorderForeground(focusBorderColor)
	}
	return renderBorderedPanelStyled(content, w, h, style)
}

func renderBorderedPanelStyled(content string, w, h int, style lipgloss.Style) string {
	contentH := h - 2
	if contentH < 1 {
		contentH = 1
	}

	lines := strings.Split(content, "\n")
	if len(lines) > contentH {
		lines = lines[:contentH]
		content = strings.Join(lines, "\n")
	}

	return style.
		Width(w - 2).
		Height(contentH).
		Render(content)
}

var ansiRe = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func stripAnsi(s string) string {
	return ansiRe.ReplaceAllString(s, "")
}

func (m Model) renderDashboard() string {
	dims := computeDimensions(m.width, m.height)

	header := m.renderHeader()
	detectors := m.renderDetectorPanel(dims.detectorsW, dims.detectorsH)
	eventStream := m.renderEventStreamPanel(dims.eventsW, dims.eventsH)
	alertsPanel := m.renderAlertsPanel(dims.alertsW, dims.alertsH)

	mainContent := lipgloss.JoinHorizontal(lipgloss.Top, detectors, eventStream)
	layout := lipgloss.JoinVertical(lipgloss.Left, header, mainContent, alertsPanel)

	if m.filterMenu.Active {
		layout = m.overlayFilterMenu(layout)
	}

	if m.detailOverlay {
		layout = m.overlayDetail(layout)
	}

	return layout
}

func (m Model) renderHeader() string {
	title := " camwatch"
	viewLabel := " [Dashboard]"
	if m.selectedDetector != "" {
		viewLabel += " Detector: " + truncateID(m.selectedDetector, 16)
	} else {
		viewLabel += " All"
	}

	return m.headerLine(title+viewLabel, m.headerHelp())
}

// headerLine right-aligns help after the left text and indicators.
func (m Model) headerLine(left, help string) string {
	indicators := m.headerIndicators()
	padding := m.width - lipgloss.Width(left) - lipgloss.Width(indicators) - lipgloss.Width(help)
	if padding < 0 {
		padding = 0
	}
	return headerStyle.Width(m.width).Render(left + indicators + strings.Repeat(" ", padding) + help)
}

func (m Model) headerHelp() string {
	switch m.panelFocus {
	case FocusEvents:
		return "Enter:Detail  Esc:Back  a:Alerts  Tab:History  q:Quit "
	case FocusAlerts:
		return "Enter:Detail  Esc:Back  e:Events  Tab:History  q:Quit "
	default:
		return "Enter:Select  a:Alerts  e:Events  f:Filter  Tab:History  q:Quit "
	}
}

func truncateID(id string, maxLen int) string {
	if len(id) <= maxLen {
		return id
	}
	return id[:maxLen]
}

func (m Model) overlayFilterMenu(base string) string {
	var sb strings.Builder
	sb.WriteString(panelTitleStyle.Render("Activity Filter") + "\n\n")
	for i, opt := range m.filterMenu.Options {
		cursor := "  "
		if i == m.filterMenu.Cursor {
			cursor = "> "
		}
		check := "[ ]"
		if opt.Enabled {
			check = "[x]"
		}
		line := cursor + check + " " + opt.Label
		if i == m.filterMenu.Cursor {
			line = selectedStyle.Render(line)
		}
		sb.WriteString(line + "\n")
	}
	sb.WriteString("\nEnter: Toggle  Esc: Close")

	return placeOverlay(filterMenuStyle.Render(sb.String()), base)
}

func (m Model) overlayDetail(base string) string {
	overlayW := m.width * 70 / 100
	if overlayW < 40 {
		overlayW = 40
	}
	if overlayW > m.width-4 && m.width > 44 {
		overlayW = m.width - 4
	}
	overlayH := m.height * 60 / 100
	if overlayH < 10 {
		overlayH = 10
	}

	contentW := overlayW - 6
	if contentW < 10 {
		contentW = 10
	}
	contentH := overlayH - 4
	if contentH < 3 {
		contentH = 3
	}

	wrapped := wrapLines(strings.Split(m.detailContent, "\n"), contentW)

	start := m.detailScrollPos
	if start > len(wrapped)-contentH {
		start = len(wrapped) - contentH
	}
	if start < 0 {
		start = 0
	}
	end := min(start+contentH, len(wrapped))

	body := strings.Join(wrapped[start:end], "\n")

	footer := dimStyle.Render("Esc/Enter: Close")
	if len(wrapped) > contentH {
		footer += dimStyle.Render("  Up/Down: Scroll")
	}

	content := panelTitleStyle.Render(m.detailTitle) + "\n\n" + body + "\n\n" + footer
	return placeOverlay(detailOverlayStyle.Width(overlayW-2).Render(content), base)
}

// wrapLines breaks lines longer than width at the last space, or hard at
// width when there is none.
func wrapLines(lines []string, width int) []string {
	if width < 1 {
		return lines
	}
	var out []string
	for _, line := range lines {
		for len(line) > width {
			cut := width
			if i := strings.LastIndex(line[:width+1], " "); i > 0 {
				cut = i
			}
			out = append(out, line[:cut])
			line = strings.TrimPrefix(line[cut:], " ")
		}
		out = append(out, line)
	}
	return out
}

func placeOverlay(fg, bg string) string {
	return lipgloss.Place(
		lipgloss.Width(bg),
		lipgloss.Height(bg),
		lipgloss.Center,
		lipgloss.Center,
		fg,
		lipgloss.WithWhitespaceChars(" "),
	)
}
