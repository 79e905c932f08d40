// Package theme provides the Lip Gloss color palette and reusable styles
// for the Noesis console. It is a leaf package with no internal imports
// to avoid import cycles.
package theme

import "github.com/charmbracelet/lipgloss"

// Phase colors.
var (
	ColorIdle        = lipgloss.Color("#4b5563")
	ColorPrepare     = lipgloss.Color("#7c3aed")
	ColorSynchronize = lipgloss.Color("#2563eb")
	ColorBroadcast   = lipgloss.Color("#06b6d4")
	ColorSustain     = lipgloss.Color("#22c55e")
	ColorDissolve    = lipgloss.Color("#d97706")
	ColorComplete    = lipgloss.Color("#16a34a")
	ColorFailed      = lipgloss.Color("#dc2626")
	ColorDefault     = lipgloss.Color("#9ca3af")
)

// Coherence gauge thresholds, as fractions of the session target.
var (
	ColorCoherenceLow  = lipgloss.Color("#dc2626") // <50% of target
	ColorCoherenceMid  = lipgloss.Color("#d97706") // 50-90%
	ColorCoherenceHigh = lipgloss.Color("#22c55e") // >90%
)

// UI chrome colors.
var (
	ColorBorder  = lipgloss.Color("#4b5563")
	ColorDimmed  = lipgloss.Color("#6b7280")
	ColorBright  = lipgloss.Color("#f9fafb")
	ColorHealthy = lipgloss.Color("#22c55e")
	ColorWarning = lipgloss.Color("#d97706")
	ColorDanger  = lipgloss.Color("#dc2626")
)

// PhaseColor returns the Lip Gloss color for a pipeline phase name.
func PhaseColor(phase string) lipgloss.Color {
	switch phase {
	case "idle":
		return ColorIdle
	case "prepare":
		return ColorPrepare
	case "synchronize":
		return ColorSynchronize
	case "broadcast":
		return ColorBroadcast
	case "sustain":
		return ColorSustain
	case "dissolve":
		return ColorDissolve
	case "complete":
		return ColorComplete
	case "failed":
		return ColorFailed
	default:
		return ColorDefault
	}
}

// PhaseGlyph returns a Unicode glyph representing a pipeline phase.
func PhaseGlyph(phase string) string {
	switch phase {
	case "idle":
		return "○"
	case "prepare":
		return "◎"
	case "synchronize":
		return "◉"
	case "broadcast":
		return "●>"
	case "sustain":
		return "●"
	case "dissolve":
		return "◌"
	case "complete":
		return "✓"
	case "failed":
		return "✗"
	default:
		return "·"
	}
}

// CoherenceColor returns the gauge color for a coherence value relative
// to the session target.
func CoherenceColor(value, target float64) lipgloss.Color {
	if target <= 0 {
		return ColorCoherenceLow
	}
	switch frac := value / target; {
	case frac > 0.9:
		return ColorCoherenceHigh
	case frac > 0.5:
		return ColorCoherenceMid
	default:
		return ColorCoherenceLow
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
)
