// Package gauge renders the coherence order parameter as an animated
// progress bar. The displayed value chases the reported one with a
// spring so coherence jumps read as motion rather than flicker.
package gauge

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"

	"github.com/JuanCS-Dev/Noesis/internal/theme"
)

// FPS of the animation tick driven by the root model.
const FPS = 30

// Model holds the gauge state.
type Model struct {
	Width int

	bar    progress.Model
	spring harmonica.Spring

	// value is the latest reported coherence; shown chases it.
	value    float64
	target   float64
	shown    float64
	velocity float64
}

// New creates a gauge model.
func New() Model {
	return Model{
		bar:    progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		spring: harmonica.NewSpring(harmonica.FPS(FPS), 6.0, 0.8),
	}
}

// Set updates the reported coherence and session target.
func (m *Model) Set(value, target float64) {
	m.value = value
	m.target = target
}

// Reset snaps the displayed value back to zero.
func (m *Model) Reset() {
	m.value = 0
	m.shown = 0
	m.velocity = 0
}

// Animate advances the spring one frame toward the reported value. It
// reports whether the gauge is still moving and needs further frames.
func (m *Model) Animate() bool {
	m.shown, m.velocity = m.spring.Update(m.shown, m.velocity, m.value)
	const eps = 0.0005
	if diff := m.shown - m.value; diff < eps && diff > -eps && m.velocity < eps && m.velocity > -eps {
		m.shown = m.value
		m.velocity = 0
		return false
	}
	return true
}

// View renders the gauge with its numeric readout.
func (m Model) View() string {
	width := m.Width
	if width < 40 {
		width = 40
	}
	m.bar.Width = width - 24

	frac := 0.0
	if m.target > 0 {
		frac = m.shown / m.target
	}
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}

	label := lipgloss.NewStyle().
		Foreground(theme.CoherenceColor(m.shown, m.target)).
		Render(fmt.Sprintf("%.3f / %.3f", m.shown, m.target))

	title := theme.StyleDimmed.Render("coherence ")
	return title + m.bar.ViewAs(frac) + " " + label
}
