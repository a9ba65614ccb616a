// Package tables renders the board's summary row and the per-table list.
package tables

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/pps-player/tablewatch/internal/board/theme"
	"github.com/pps-player/tablewatch/internal/table"
)

// Model holds the table list state.
type Model struct {
	Width    int
	Selected int
	entries  []table.Entry
}

// New creates a tables model.
func New() Model {
	return Model{}
}

// SetEntries replaces the board. The model keeps its own copy sorted by
// table name.
func (m *Model) SetEntries(entries []table.Entry) {
	m.entries = make([]table.Entry, len(entries))
	copy(m.entries, entries)
	sort.Slice(m.entries, func(i, j int) bool {
		return m.entries[i].TableName < m.entries[j].TableName
	})
	if m.Selected >= len(m.entries) {
		m.Selected = max(0, len(m.entries)-1)
	}
}

// Entries returns the board in display order.
func (m Model) Entries() []table.Entry {
	return m.entries
}

// SelectedEntry returns the highlighted table, if any.
func (m Model) SelectedEntry() (table.Entry, bool) {
	if m.Selected < 0 || m.Selected >= len(m.entries) {
		return table.Entry{}, false
	}
	return m.entries[m.Selected], true
}

// Next moves the selection down, wrapping.
func (m *Model) Next() {
	if len(m.entries) > 0 {
		m.Selected = (m.Selected + 1) % len(m.entries)
	}
}

// Prev moves the selection up, wrapping.
func (m *Model) Prev() {
	if len(m.entries) > 0 {
		m.Selected = (m.Selected - 1 + len(m.entries)) % len(m.entries)
	}
}

// Counts returns how many tables are in each status as of now.
func (m Model) Counts(now time.Time) (playing, endingSoon, ended int) {
	for _, e := range m.entries {
		switch liveStatus(e, now) {
		case table.Playing:
			playing++
		case table.EndingSoon:
			endingSoon++
		case table.Ended:
			ended++
		}
	}
	return
}

// View renders the summary row and the table list as of now.
func (m Model) View(now time.Time) string {
	width := m.Width
	if width < 40 {
		width = 40
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderStatsRow(width, now),
		m.renderList(width, now),
	)
}

func (m Model) renderStatsRow(width int, now time.Time) string {
	playing, endingSoon, ended := m.Counts(now)
	statStyle := lipgloss.NewStyle().Padding(0, 1)

	stats := []string{
		statStyle.Foreground(theme.ColorPlaying).Render(fmt.Sprintf("Playing: %d", playing)),
		statStyle.Foreground(theme.ColorEndingSoon).Render(fmt.Sprintf("Ending soon: %d", endingSoon)),
		statStyle.Foreground(theme.ColorEnded).Render(fmt.Sprintf("Ended: %d", ended)),
	}
	content := strings.Join(stats, lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(" | "))

	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(theme.ColorBorder).
		Render(content)
}

func (m Model) renderList(width int, now time.Time) string {
	header := theme.StyleHeader.Render("  Tables")
	if len(m.entries) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left,
			header,
			theme.StyleDimmed.Render("  No tables in play"),
		)
	}

	colName := 10
	colUser := 12
	colTime := 13
	colLeft := 22
	colStatus := 12

	dimStyle := lipgloss.NewStyle().Foreground(theme.ColorDimmed)

	tableHeader := fmt.Sprintf("    %-*s %-*s %-*s %-*s %-*s",
		colName, "Table",
		colUser, "User",
		colTime, "Time",
		colLeft, "Left",
		colStatus, "Status",
	)
	lines := []string{
		header,
		dimStyle.Render(tableHeader),
		dimStyle.Render("  " + strings.Repeat("─", min(width-4, colName+colUser+colTime+colLeft+colStatus+6))),
	}

	for i, e := range m.entries {
		prefix := "  "
		if i == m.Selected {
			prefix = "> "
		}
		status := liveStatus(e, now)
		statusName := status.String()
		color := theme.StatusColor(statusName)

		name := lipgloss.NewStyle().Foreground(color).Width(colName).Render(e.TableName)
		user := lipgloss.NewStyle().Foreground(theme.ColorBright).Width(colUser).Render(e.UserName)
		span := dimStyle.Width(colTime).Render(e.StartTime.Format("15:04") + "-" + e.EndTime.Format("15:04"))
		left := lipgloss.NewStyle().Width(colLeft).Render(renderTimeBar(e, now, colLeft-1))
		st := lipgloss.NewStyle().Foreground(color).Width(colStatus).Render(statusName)

		lines = append(lines, fmt.Sprintf("%s%s %s %s %s %s %s",
			prefix, theme.StatusGlyph(statusName), name, user, span, left, st))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// Remaining is the time left on a table as of now, never negative.
func Remaining(e table.Entry, now time.Time) time.Duration {
	return max(0, e.EndTime.Sub(now))
}

// liveStatus reclassifies an entry against the board's clock so the list
// keeps counting down between snapshots.
func liveStatus(e table.Entry, now time.Time) table.Status {
	if e.EndTime.IsZero() {
		return e.Status
	}
	return table.Classify(Remaining(e, now))
}

// renderTimeBar draws the share of the game still left plus a mm:ss label.
func renderTimeBar(e table.Entry, now time.Time, barWidth int) string {
	labelWidth := 7
	fillWidth := max(3, barWidth-labelWidth)

	var frac float64
	if total := e.EndTime.Sub(e.StartTime); total > 0 {
		frac = float64(Remaining(e, now)) / float64(total)
	}
	frac = min(1, max(0, frac))

	filled := int(frac * float64(fillWidth))
	color := theme.TimeBarColor(frac)
	bar := lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", filled))
	bar += lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(strings.Repeat("░", fillWidth-filled))
	return bar + " " + lipgloss.NewStyle().Foreground(color).Render(FormatRemaining(Remaining(e, now)))
}

// FormatRemaining formats a duration as mm:ss, or h:mm:ss past an hour.
func FormatRemaining(d time.Duration) string {
	secs := int(d / time.Second)
	if secs >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", secs/3600, secs%3600/60, secs%60)
	}
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
