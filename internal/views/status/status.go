package status

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/JuanCS-Dev/Noesis/internal/theme"
)

// Model holds the status bar state: connection, phase, and the last
// surfaced error.
type Model struct {
	Connected  bool
	Streaming  bool
	Phase      string
	Generation uint64
	Err        string
	Width      int
}

// New creates a status bar model.
func New() Model {
	return Model{Phase: "idle"}
}

// View renders the status bar.
func (m Model) View() string {
	width := m.Width
	if width < 40 {
		width = 40
	}

	var connStr string
	switch {
	case m.Connected:
		connStr = lipgloss.NewStyle().Foreground(theme.ColorHealthy).Render("● Connected")
	case m.Streaming:
		connStr = lipgloss.NewStyle().Foreground(theme.ColorWarning).Render("◌ Connecting...")
	default:
		connStr = lipgloss.NewStyle().Foreground(theme.ColorDimmed).Render("○ Offline")
	}

	phaseStr := lipgloss.NewStyle().Foreground(theme.PhaseColor(m.Phase)).Render(
		fmt.Sprintf("%s %s", theme.PhaseGlyph(m.Phase), m.Phase),
	)

	sep := lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(" | ")
	content := connStr + sep + phaseStr
	if m.Generation > 0 {
		content += sep + theme.StyleDimmed.Render(fmt.Sprintf("session #%d", m.Generation))
	}
	if m.Err != "" {
		content += sep + lipgloss.NewStyle().Foreground(theme.ColorDanger).Render(m.Err)
	}

	bar := lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder).
		Render(content)

	return bar
}
