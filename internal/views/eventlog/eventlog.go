// Package eventlog provides a scrollable overlay showing the raw event
// log of the current session.
package eventlog

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/JuanCS-Dev/Noesis/internal/stream"
	"github.com/JuanCS-Dev/Noesis/internal/theme"
)

const maxVisible = 500

// Model holds event log overlay state.
type Model struct {
	Events []stream.Event
	Offset int // scroll offset (from bottom)
}

// New creates an empty event log model.
func New() Model {
	return Model{}
}

// SetEvents replaces the displayed log, keeping the newest entries.
func (m *Model) SetEvents(events []stream.Event) {
	if len(events) > maxVisible {
		events = events[len(events)-maxVisible:]
	}
	m.Events = events
	if m.Offset > len(m.Events) {
		m.Offset = len(m.Events)
	}
}

// ScrollUp moves the viewport toward older entries.
func (m *Model) ScrollUp(n int) {
	m.Offset += n
	max := len(m.Events) - 1
	if max < 0 {
		max = 0
	}
	if m.Offset > max {
		m.Offset = max
	}
}

// ScrollDown moves the viewport toward newer entries.
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

// View renders the event log as an overlay panel.
func (m Model) View(width, height int) string {
	innerW := width - 4
	if innerW < 20 {
		innerW = 20
	}
	visibleLines := height - 6
	if visibleLines < 3 {
		visibleLines = 3
	}

	title := theme.StyleHeader.Render(" EVENT LOG ")
	help := theme.StyleDimmed.Render(fmt.Sprintf("j/k:scroll  esc:close  %d events", len(m.Events)))

	if len(m.Events) == 0 {
		body := theme.StyleDimmed.Render("  No events this session.")
		content := lipgloss.JoinVertical(lipgloss.Left, title, "", body, "", help)
		return panelStyle(innerW).Render(content)
	}

	end := len(m.Events) - m.Offset
	start := end - visibleLines
	if start < 0 {
		start = 0
	}
	if end < 0 {
		end = 0
	}

	var lines []string
	for i := start; i < end; i++ {
		lines = append(lines, renderEvent(m.Events[i], innerW))
	}

	body := strings.Join(lines, "\n")
	scrollIndicator := ""
	if m.Offset > 0 {
		scrollIndicator = theme.StyleDimmed.Render(fmt.Sprintf(" ↓ %d more", m.Offset))
	}

	content := lipgloss.JoinVertical(lipgloss.Left, title, body, scrollIndicator, help)
	return panelStyle(innerW).Render(content)
}

func renderEvent(e stream.Event, width int) string {
	tsStr := theme.StyleDimmed.Render(e.ReceivedAt.Format("15:04:05.000"))
	kindStr := lipgloss.NewStyle().Foreground(kindColor(e.Kind)).Width(10).Render(string(e.Kind))

	detail := eventDetail(e)
	if max := width - 28; max > 3 {
		if r := []rune(detail); len(r) > max {
			detail = string(r[:max-3]) + "..."
		}
	}

	return fmt.Sprintf("%s %s %s", tsStr, kindStr, detail)
}

// eventDetail summarizes the payload field relevant to the event kind.
func eventDetail(e stream.Event) string {
	switch e.Kind {
	case stream.KindPhase:
		return string(e.Phase)
	case stream.KindCoherence:
		return fmt.Sprintf("%.3f", e.Value)
	case stream.KindToken:
		return fmt.Sprintf("%q", e.Token)
	case stream.KindError:
		return e.Message
	case stream.KindUnknown:
		return e.WireType
	default:
		return ""
	}
}

func kindColor(k stream.Kind) lipgloss.Color {
	switch k {
	case stream.KindPhase:
		return theme.ColorSynchronize
	case stream.KindCoherence:
		return theme.ColorSustain
	case stream.KindToken:
		return theme.ColorBright
	case stream.KindComplete:
		return theme.ColorComplete
	case stream.KindError:
		return theme.ColorFailed
	case stream.KindStart:
		return theme.ColorPrepare
	default:
		return theme.ColorDimmed
	}
}
