package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/nixlim/camwatch/internal/storage"
)

type historyRow struct {
	label     string
	fired     int
	delivered int
	failed    int
	dropped   int
	detectors map[string]bool
}

func (m Model) renderHistory() string {
	var sb strings.Builder

	help := "d:Daily w:Weekly m:Monthly  Tab:Dashboard  q:Quit "
	sb.WriteString(m.headerLine(" camwatch [History] All", help))
	sb.WriteByte('\n')

	if !m.isPersistent {
		sb.WriteByte('\n')
		sb.WriteString(dimStyle.Render("  audit log is in memory; history covers this run only"))
		sb.WriteByte('\n')
	}

	var summaries []storage.DailySummary
	if m.history != nil {
		switch m.historyGranularity {
		case "weekly":
			summaries = m.history.QueryDailySummaries(28)
		case "monthly":
			summaries = m.history.QueryDailySummaries(90)
		default:
			summaries = m.history.QueryDailySummaries(7)
		}
	}

	if len(summaries) == 0 {
		sb.WriteByte('\n')
		sb.WriteString(dimStyle.Render("  No alert history available"))
		sb.WriteByte('\n')
		return sb.String()
	}

	var rows []historyRow
	switch m.historyGranularity {
	case "weekly":
		rows = aggregateRows(summaries, weekLabel)
	case "monthly":
		rows = aggregateRows(summaries, func(date string) string { return date[:7] })
	default:
		rows = aggregateRows(summaries, func(date string) string { return date })
	}

	dateHeader := "Date"
	switch m.historyGranularity {
	case "weekly":
		dateHeader = "Week"
	case "monthly":
		dateHeader = "Month"
	}

	sb.WriteByte('\n')
	fmt.Fprintf(&sb, "  %-14s %8s %10s %8s %8s %10s\n",
		dateHeader, "Fired", "Delivered", "Failed", "Dropped", "Detectors")
	sb.WriteString(dimStyle.Render("  " + strings.Repeat("─", 64)))
	sb.WriteByte('\n')

	visibleH := m.height - 6
	if visibleH < 1 {
		visibleH = 1
	}
	start := m.historyScrollPos
	if start > len(rows)-visibleH {
		start = len(rows) - visibleH
	}
	if start < 0 {
		start = 0
	}
	end := min(start+visibleH, len(rows))

	for i := start; i < end; i++ {
		r := rows[i]
		fmt.Fprintf(&sb, "  %-14s %8d %10d %8d %8d %10d\n",
			r.label, r.fired, r.delivered, r.failed, r.dropped, len(r.detectors))
	}

	return sb.String()
}

// aggregateRows sums per-detector daily summaries into one row per label,
// keeping the input's newest-first order.
func aggregateRows(summaries []storage.DailySummary, label func(date string) string) []historyRow {
	byLabel := make(map[string]*historyRow)
	var order []string

	for _, ds := range summaries {
		if len(ds.Date) < 7 {
			continue
		}
		l := label(ds.Date)
		r, ok := byLabel[l]
		if !ok {
			r = &historyRow{label: l, detectors: make(map[string]bool)}
			byLabel[l] = r
			order = append(order, l)
		}
		r.fired += ds.Fired
		r.delivered += ds.Delivered
		r.failed += ds.Failed
		r.dropped += ds.Dropped
		r.detectors[ds.DetectorID] = true
	}

	out := make([]historyRow, 0, len(order))
	for _, l := range order {
		out = append(out, *byLabel[l])
	}
	return out
}

func weekLabel(date string) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date[:7]
	}
	y, w := t.ISOWeek()
	return fmt.Sprintf("Week %d-%02d", y, w)
}
