// Package theme provides the Lip Gloss color palette and reusable styles
// for the tablewatch board. It is a leaf package with no board imports to
// avoid import cycles.
package theme

import "github.com/charmbracelet/lipgloss"

// Table status colors.
var (
	ColorPlaying    = lipgloss.Color("#2563eb")
	ColorEndingSoon = lipgloss.Color("#d97706")
	ColorEnded      = lipgloss.Color("#4b5563")
	ColorDefault    = lipgloss.Color("#9ca3af")
)

// Event colors.
var (
	ColorStarted = lipgloss.Color("#16a34a")
	ColorWarned  = lipgloss.Color("#f59e0b")
	ColorFinish  = lipgloss.Color("#a855f7")
)

// Remaining-time bar thresholds.
var (
	ColorTimeHigh = lipgloss.Color("#22c55e") // >50%
	ColorTimeMid  = lipgloss.Color("#d97706") // 20-50%
	ColorTimeLow  = lipgloss.Color("#dc2626") // <20%
)

// UI chrome colors.
var (
	ColorBorder  = lipgloss.Color("#4b5563")
	ColorDimmed  = lipgloss.Color("#6b7280")
	ColorBright  = lipgloss.Color("#f9fafb")
	ColorBg      = lipgloss.Color("#111827")
	ColorHealthy = lipgloss.Color("#22c55e")
	ColorWarning = lipgloss.Color("#d97706")
	ColorDanger  = lipgloss.Color("#dc2626")
)

// StatusColor returns the color for a table status name.
func StatusColor(status string) lipgloss.Color {
	switch status {
	case "playing":
		return ColorPlaying
	case "ending_soon":
		return ColorEndingSoon
	case "ended":
		return ColorEnded
	default:
		return ColorDefault
	}
}

// EventColor returns the color for an event kind name.
func EventColor(kind string) lipgloss.Color {
	switch kind {
	case "started":
		return ColorStarted
	case "ending_soon":
		return ColorWarned
	case "ended":
		return ColorFinish
	default:
		return ColorDimmed
	}
}

// HealthColor returns the color for a poller health status.
func HealthColor(status string) lipgloss.Color {
	switch status {
	case "healthy":
		return ColorHealthy
	case "degraded":
		return ColorWarning
	case "failed":
		return ColorDanger
	default:
		return ColorDimmed
	}
}

// TimeBarColor returns the color for the fraction of a game still left.
func TimeBarColor(frac float64) lipgloss.Color {
	switch {
	case frac < 0.2:
		return ColorTimeLow
	case frac < 0.5:
		return ColorTimeMid
	default:
		return ColorTimeHigh
	}
}

// StatusGlyph returns a Unicode glyph for a table status name.
func StatusGlyph(status string) string {
	switch status {
	case "playing":
		return "●"
	case "ending_soon":
		return "◐"
	case "ended":
		return "○"
	default:
		return "·"
	}
}

// Reusable styles.
var (
	StyleBorder = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder)

	StyleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorBright)

	StyleDimmed = lipgloss.NewStyle().
			Foreground(ColorDimmed)

	StyleSelected = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorBright)
)
