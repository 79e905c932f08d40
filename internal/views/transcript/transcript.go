// Package transcript renders the streamed response text and, when a
// one-shot journal reply is present, its Markdown rendering.
package transcript

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/JuanCS-Dev/Noesis/internal/client"
	"github.com/JuanCS-Dev/Noesis/internal/theme"
)

// Model holds the transcript panel state.
type Model struct {
	Width  int
	Height int

	// Text is the live token transcript.
	Text string

	// Journal is the last one-shot reply, if any.
	Journal *client.JournalResponse
}

// New creates a transcript model.
func New() Model {
	return Model{}
}

// View renders the panel.
func (m Model) View() string {
	width := m.Width
	if width < 40 {
		width = 40
	}
	innerW := width - 4

	var sections []string
	sections = append(sections, theme.StyleHeader.Render(" TRANSCRIPT "))

	if m.Text == "" {
		sections = append(sections, theme.StyleDimmed.Render("  Awaiting response stream..."))
	} else {
		sections = append(sections, wrap(m.Text, innerW))
	}

	if m.Journal != nil {
		sections = append(sections, "", theme.StyleHeader.Render(" JOURNAL REPLY "))
		sections = append(sections, renderJournal(m.Journal, innerW))
	}

	return theme.StyleBorder.
		Width(innerW).
		Padding(0, 1).
		Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

// renderJournal formats a journal reply as Markdown through glamour,
// falling back to plain text when rendering fails.
func renderJournal(j *client.JournalResponse, width int) string {
	var md strings.Builder
	md.WriteString(j.Response)
	md.WriteString("\n\n")
	if j.ShadowAnalysis != nil {
		fmt.Fprintf(&md, "> **%s** (confidence %.2f)\n\n", j.ShadowAnalysis.Archetype, j.ShadowAnalysis.Confidence)
	}
	fmt.Fprintf(&md, "*integrity %.2f*\n", j.IntegrityScore)

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return md.String()
	}
	out, err := r.Render(md.String())
	if err != nil {
		return md.String()
	}
	return strings.TrimRight(out, "\n")
}

// wrap breaks text on spaces to fit width. Token fragments carry their
// own trailing spaces, so a plain greedy wrap is enough.
func wrap(text string, width int) string {
	if width < 10 {
		width = 10
	}
	var lines []string
	var line strings.Builder
	for _, word := range strings.Fields(text) {
		if line.Len() > 0 && line.Len()+1+len(word) > width {
			lines = append(lines, line.String())
			line.Reset()
		}
		if line.Len() > 0 {
			line.WriteByte(' ')
		}
		line.WriteString(word)
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}
	return strings.Join(lines, "\n")
}
