// Package feed keeps the board's recent announcements and connection
// notices, shown as a strip under the tables and as a scrollable overlay.
package feed

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/pps-player/tablewatch/internal/board/theme"
)

const maxEntries = 200

// Entry is a single feed line.
type Entry struct {
	Time    time.Time
	Kind    string // event kind ("started", "ending_soon", "ended") or "ws", "hlth"
	Message string
}

// Model holds feed state.
type Model struct {
	Entries []Entry
	Offset  int // scroll offset (from bottom)
}

// New creates an empty feed.
func New() Model {
	return Model{}
}

// Add appends an entry and caps the buffer.
func (m *Model) Add(at time.Time, kind, message string) {
	m.Entries = append(m.Entries, Entry{
		Time:    at,
		Kind:    kind,
		Message: message,
	})
	if len(m.Entries) > maxEntries {
		m.Entries = m.Entries[len(m.Entries)-maxEntries:]
	}
	m.Offset = 0
}

// Recent returns up to n of the newest entries, oldest first.
func (m Model) Recent(n int) []Entry {
	if n >= len(m.Entries) {
		return m.Entries
	}
	return m.Entries[len(m.Entries)-n:]
}

// ScrollUp moves the viewport up.
func (m *Model) ScrollUp(n int) {
	m.Offset += n
	max := len(m.Entries) - 1
	if max < 0 {
		max = 0
	}
	if m.Offset > max {
		m.Offset = max
	}
}

// ScrollDown moves the viewport down.
func (m *Model) ScrollDown(n int) {
	m.Offset -= n
	if m.Offset < 0 {
		m.Offset = 0
	}
}

func panelStyle(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Width(width).
		Padding(1, 2).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder)
}

// Strip renders the newest n entries without a frame.
func (m Model) Strip(n int) string {
	recent := m.Recent(n)
	if len(recent) == 0 {
		return theme.StyleDimmed.Render("  No announcements yet")
	}
	lines := make([]string, 0, len(recent))
	for _, e := range recent {
		lines = append(lines, "  "+renderLine(e, 0))
	}
	return strings.Join(lines, "\n")
}

// View renders the feed as an overlay panel.
func (m Model) View(width, height int) string {
	innerW := width - 4
	if innerW < 20 {
		innerW = 20
	}
	visibleLines := height - 6
	if visibleLines < 3 {
		visibleLines = 3
	}

	title := theme.StyleHeader.Render(" ANNOUNCEMENTS ")
	help := theme.StyleDimmed.Render(fmt.Sprintf("j/k:scroll  esc:close  %d entries", len(m.Entries)))

	if len(m.Entries) == 0 {
		body := theme.StyleDimmed.Render("  No events recorded yet.")
		content := lipgloss.JoinVertical(lipgloss.Left, title, "", body, "", help)
		return panelStyle(innerW).Render(content)
	}

	end := len(m.Entries) - m.Offset
	start := end - visibleLines
	if start < 0 {
		start = 0
	}
	if end < 0 {
		end = 0
	}

	var lines []string
	for i := start; i < end; i++ {
		lines = append(lines, renderLine(m.Entries[i], innerW-20))
	}

	body := strings.Join(lines, "\n")
	scrollIndicator := ""
	if m.Offset > 0 {
		scrollIndicator = theme.StyleDimmed.Render(fmt.Sprintf(" ↓ %d more", m.Offset))
	}

	content := lipgloss.JoinVertical(lipgloss.Left, title, body, scrollIndicator, help)
	return panelStyle(innerW).Render(content)
}

// renderLine formats one entry; maxMsg <= 0 leaves the message whole.
func renderLine(e Entry, maxMsg int) string {
	tsStr := theme.StyleDimmed.Render(e.Time.Format("15:04:05"))
	kindStr := lipgloss.NewStyle().Foreground(kindToColor(e.Kind)).Width(11).Render(e.Kind)
	msg := e.Message
	if r := []rune(msg); maxMsg > 3 && len(r) > maxMsg {
		msg = string(r[:maxMsg-3]) + "..."
	}
	return fmt.Sprintf("%s %s %s", tsStr, kindStr, msg)
}

func kindToColor(kind string) lipgloss.Color {
	switch kind {
	case "started", "ending_soon", "ended":
		return theme.EventColor(kind)
	case "ws":
		return theme.ColorPlaying
	case "hlth":
		return theme.ColorWarning
	default:
		return theme.ColorDimmed
	}
}
