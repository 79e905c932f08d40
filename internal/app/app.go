// Package app wires the stream coordinator, journal client, and view
// models into the root Bubble Tea model of the Noesis console.
package app

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/JuanCS-Dev/Noesis/internal/client"
	"github.com/JuanCS-Dev/Noesis/internal/stream"
	"github.com/JuanCS-Dev/Noesis/internal/theme"
	"github.com/JuanCS-Dev/Noesis/internal/views/eventlog"
	"github.com/JuanCS-Dev/Noesis/internal/views/gauge"
	"github.com/JuanCS-Dev/Noesis/internal/views/status"
	"github.com/JuanCS-Dev/Noesis/internal/views/transcript"
)

// StateMsg carries a fresh coordinator snapshot into the update loop.
type StateMsg stream.Session

// frameMsg drives the gauge animation.
type frameMsg time.Time

// journalReplyMsg carries the result of a one-shot journal submission.
type journalReplyMsg struct {
	resp *client.JournalResponse
	err  error
}

// Model is the root Bubble Tea model.
type Model struct {
	coord   *stream.Coordinator
	journal *client.JournalClient
	ctx     context.Context
	cancel  context.CancelFunc

	keys   KeyMap
	width  int
	height int
	depth  int

	input      textinput.Model
	overlayLog bool
	animating  bool

	// Sub-views.
	statusBar  status.Model
	gauge      gauge.Model
	transcript transcript.Model
	eventLog   eventlog.Model
}

// New creates the root model.
func New(coord *stream.Coordinator, journal *client.JournalClient, depth int) Model {
	ctx, cancel := context.WithCancel(context.Background())

	input := textinput.New()
	input.Placeholder = "Write a journal entry, then enter to stream or ctrl+j for a one-shot reply"
	input.CharLimit = 2000
	input.Focus()

	return Model{
		coord:      coord,
		journal:    journal,
		ctx:        ctx,
		cancel:     cancel,
		keys:       DefaultKeyMap(),
		depth:      depth,
		input:      input,
		statusBar:  status.New(),
		gauge:      gauge.New(),
		transcript: transcript.New(),
		eventLog:   eventlog.New(),
	}
}

// Init starts listening for coordinator changes.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForChange())
}

// waitForChange blocks on the coordinator's coalesced change channel and
// resolves to a fresh snapshot.
func (m Model) waitForChange() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.ctx.Done():
			return nil
		case <-m.coord.Changed():
			return StateMsg(m.coord.Snapshot())
		}
	}
}

func frame() tea.Cmd {
	return tea.Tick(time.Second/gauge.FPS, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

func (m Model) submitJournal(content string) tea.Cmd {
	return func() tea.Msg {
		resp, err := m.journal.Submit(m.ctx, content, client.ModeDeepShadow)
		return journalReplyMsg{resp: resp, err: err}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.statusBar.Width = msg.Width
		m.gauge.Width = msg.Width
		m.transcript.Width = msg.Width
		m.input.Width = msg.Width - 6
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case StateMsg:
		m.applySnapshot(stream.Session(msg))
		cmds := []tea.Cmd{m.waitForChange()}
		if !m.animating {
			m.animating = true
			cmds = append(cmds, frame())
		}
		return m, tea.Batch(cmds...)

	case frameMsg:
		m.animating = m.gauge.Animate()
		if m.animating {
			return m, frame()
		}
		return m, nil

	case journalReplyMsg:
		if msg.err != nil {
			m.statusBar.Err = msg.err.Error()
			return m, nil
		}
		m.transcript.Journal = msg.resp
		return m, nil
	}

	return m, nil
}

func (m *Model) applySnapshot(s stream.Session) {
	m.statusBar.Connected = s.Connected
	m.statusBar.Streaming = s.Streaming
	m.statusBar.Phase = string(s.Phase)
	m.statusBar.Generation = s.Generation
	m.statusBar.Err = s.Err
	m.gauge.Set(s.Coherence, s.TargetCoherence)
	m.transcript.Text = s.FullText
	m.eventLog.SetEvents(s.Events)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.overlayLog {
		switch {
		case key.Matches(msg, m.keys.Escape), key.Matches(msg, m.keys.EventLog):
			m.overlayLog = false
		case key.Matches(msg, m.keys.Up):
			m.eventLog.ScrollUp(1)
		case key.Matches(msg, m.keys.Down):
			m.eventLog.ScrollDown(1)
		case key.Matches(msg, m.keys.Quit):
			m.cancel()
			return m, tea.Quit
		}
		return m, nil
	}

	if m.input.Focused() {
		switch {
		case key.Matches(msg, m.keys.Escape):
			m.input.Blur()
			return m, nil

		case key.Matches(msg, m.keys.Enter):
			content := m.input.Value()
			if content == "" {
				return m, nil
			}
			m.input.Blur()
			m.transcript.Journal = nil
			m.coord.Start(content, m.depth)
			return m, nil

		case key.Matches(msg, m.keys.Journal):
			content := m.input.Value()
			if content == "" {
				return m, nil
			}
			m.input.Blur()
			m.transcript.Journal = nil
			return m, m.submitJournal(content)
		}

		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.cancel()
		m.coord.Stop()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Focus), key.Matches(msg, m.keys.Enter):
		m.input.Focus()
		return m, textinput.Blink

	case key.Matches(msg, m.keys.EventLog):
		m.overlayLog = true
		return m, nil

	case key.Matches(msg, m.keys.Reset):
		m.coord.Reset()
		m.gauge.Reset()
		m.transcript.Journal = nil
		m.input.SetValue("")
		return m, nil

	case key.Matches(msg, m.keys.Stop):
		m.coord.Stop()
		return m, nil
	}

	return m, nil
}

// View renders the full console.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	if m.overlayLog {
		return m.eventLog.View(m.width, m.height)
	}

	sections := []string{
		m.statusBar.View(),
		m.gauge.View(),
		m.transcript.View(),
		"  " + m.input.View(),
		theme.StyleDimmed.Render("  enter:stream  ctrl+j:journal  d:events  s:stop  r:reset  q:quit"),
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
