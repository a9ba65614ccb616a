// Package status renders the board's top bar: connection, poller health
// and the last successful sync.
package status

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/pps-player/tablewatch/internal/board/theme"
	"github.com/pps-player/tablewatch/internal/ws"
)

// Model holds the status bar state.
type Model struct {
	Connected bool
	StoreID   string
	Health    ws.HealthPayload
	Width     int
}

// New creates a status bar model.
func New() Model {
	return Model{}
}

// LastSync describes when the poller last read the dashboard.
func (m Model) LastSync() string {
	if m.Health.LastSuccess.IsZero() {
		return "not synced yet"
	}
	return "last sync at " + m.Health.LastSuccess.Local().Format("15:04:05")
}

// View renders the status bar.
func (m Model) View() string {
	width := m.Width
	if width < 40 {
		width = 40
	}

	var connStr string
	if m.Connected {
		connStr = lipgloss.NewStyle().Foreground(theme.ColorHealthy).Render("● Connected")
	} else {
		connStr = lipgloss.NewStyle().Foreground(theme.ColorDanger).Render("○ Connecting...")
	}

	sep := lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(" | ")
	content := connStr
	if m.StoreID != "" {
		content += sep + theme.StyleHeader.Render(m.StoreID)
	}

	if m.Health.Status != "" {
		healthStr := string(m.Health.Status)
		if m.Health.ConsecutiveFailures > 0 {
			healthStr += fmt.Sprintf(" (%d failed)", m.Health.ConsecutiveFailures)
		}
		content += sep + lipgloss.NewStyle().Foreground(theme.HealthColor(string(m.Health.Status))).Render(healthStr)
	}
	content += sep + theme.StyleDimmed.Render(m.LastSync())

	if m.Health.Status != ws.StatusHealthy && m.Health.LastError != "" {
		content += sep + lipgloss.NewStyle().Foreground(theme.ColorDanger).Render(truncate(m.Health.LastError, 40))
	}

	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder).
		Render(content)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}

// Age formats how long ago t was, for the footer clock.
func Age(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case t.IsZero():
		return "never"
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm %ds ago", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh %dm ago", int(d.Hours()), int(d.Minutes())%60)
	}
}
