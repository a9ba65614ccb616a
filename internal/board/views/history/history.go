// Package history renders the per-table history overlay.
package history

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/pps-player/tablewatch/internal/board/theme"
	"github.com/pps-player/tablewatch/internal/table"
)

const (
	panelWidth = 72
	labelWidth = 12
	maxRows    = 15
)

var (
	stylePanel = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.ColorBorder).
			Padding(0, 1)

	styleLabel = lipgloss.NewStyle().
			Foreground(theme.ColorDimmed).
			Width(labelWidth)

	styleValue = lipgloss.NewStyle().
			Foreground(theme.ColorBright)

	styleTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.ColorBright)

	styleFooter = lipgloss.NewStyle().
			Foreground(theme.ColorDimmed)

	styleSectionHeader = lipgloss.NewStyle().
				Bold(true).
				Foreground(theme.ColorDimmed)

	styleError = lipgloss.NewStyle().
			Foreground(theme.ColorDanger)
)

// Model holds the state for the history overlay.
type Model struct {
	TableName string
	Entries   []table.Entry // newest first
	Loading   bool
	Err       string
}

// New creates a history model for a table whose rows are still loading.
func New(tableName string) Model {
	return Model{TableName: tableName, Loading: true}
}

// View renders the history panel. Returns an empty string if no table is set.
func (m Model) View() string {
	if m.TableName == "" {
		return ""
	}
	return stylePanel.Width(panelWidth).Render(m.renderInner())
}

func (m Model) renderInner() string {
	var b strings.Builder

	b.WriteString(styleTitle.Render("Table: "+m.TableName) + "\n")
	b.WriteString(strings.Repeat("─", panelWidth-4) + "\n")

	switch {
	case m.Err != "":
		b.WriteString(styleError.Render("Could not load history: "+m.Err) + "\n")
	case m.Loading:
		b.WriteString(styleFooter.Render("Loading...") + "\n")
	case len(m.Entries) == 0:
		b.WriteString(styleFooter.Render("No history recorded") + "\n")
	default:
		latest := m.Entries[0]
		writeRow(&b, "User", latest.UserName)
		writeRow(&b, "Game", latest.StartTime.Format("01/02 15:04")+" - "+latest.EndTime.Format("15:04"))
		statusName := latest.Status.String()
		writeRow(&b, "Status", lipgloss.NewStyle().Foreground(theme.StatusColor(statusName)).Render(statusName))
		writeRow(&b, "Last seen", latest.IngestedAt.Format("15:04:05"))

		b.WriteString("\n")
		b.WriteString(styleSectionHeader.Render(fmt.Sprintf("Records (%d)", len(m.Entries))) + "\n")
		for i, e := range m.Entries {
			if i == maxRows {
				b.WriteString(styleFooter.Render(fmt.Sprintf("  ... %d older", len(m.Entries)-maxRows)) + "\n")
				break
			}
			b.WriteString(renderRow(e) + "\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(styleFooter.Render("[esc] close"))
	return b.String()
}

func renderRow(e table.Entry) string {
	statusName := e.Status.String()
	status := lipgloss.NewStyle().Foreground(theme.StatusColor(statusName)).Render(statusName)
	return fmt.Sprintf("  %s %s  %-10s %5ds  %s",
		theme.StatusGlyph(statusName),
		e.IngestedAt.Format("15:04:05"),
		truncate(e.UserName, 10),
		e.RemainingSeconds,
		status,
	)
}

func writeRow(b *strings.Builder, label, value string) {
	b.WriteString(styleLabel.Render(label+":") + styleValue.Render(value) + "\n")
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
