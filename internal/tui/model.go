// Package tui provides the interactive terminal chat over the chain.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hyperjump/kotaeru/internal/chain"
	"github.com/hyperjump/kotaeru/internal/models"
)

// Asker is the TUI-facing subset of the chain.
type Asker interface {
	RunStream(ctx context.Context, question string) (<-chan string, []models.Document, error)
}

// Model is the Bubble Tea model for the chat TUI.
type Model struct {
	asker      Asker
	input      textinput.Model
	viewport   viewport.Model
	transcript string
	stream     <-chan string
	sources    []models.Document
	streaming  bool
	ready      bool
	status     string
}

// New creates a new chat TUI model.
func New(asker Asker) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type a question and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{asker: asker, input: ti, viewport: vp, status: "Ready."}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

type streamStartedMsg struct {
	tokens  <-chan string
	sources []models.Document
}

type tokenMsg string

type streamDoneMsg struct{}

type errMsg struct{ err error }

// startStream asks the chain for a streamed answer.
func startStream(asker Asker, question string) tea.Cmd {
	return func() tea.Msg {
		tokens, sources, err := asker.RunStream(context.Background(), question)
		if err != nil {
			return errMsg{err}
		}
		return streamStartedMsg{tokens: tokens, sources: sources}
	}
}

// nextToken waits for one fragment from the stream.
func nextToken(tokens <-chan string) tea.Cmd {
	return func() tea.Msg {
		tok, ok := <-tokens
		if !ok {
			return streamDoneMsg{}
		}
		return tokenMsg(tok)
	}
}

// Update handles key, window, and stream events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, th := transcriptBoxStyle.GetFrameSize()
		_, ih := inputBoxStyle.GetFrameSize()
		reserved := 1 + 1 + ih + 1 // header, spacer, input frame, status
		vh := msg.Height - reserved - th
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = maxInt(20, msg.Width)
		m.viewport.Height = vh
		m.viewport.SetContent(m.transcript)
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
			return m, tea.Quit
		}
		if msg.String() == "enter" && !m.streaming {
			q := strings.TrimSpace(m.input.Value())
			if q == "" {
				return m, nil
			}
			m.input.SetValue("")
			m.streaming = true
			m.status = "Thinking..."
			m.transcript += questionStyle.Render("You: "+q) + "\n"
			m.transcript += "Kotaeru: "
			m.refresh()
			return m, startStream(m.asker, q)
		}

	case streamStartedMsg:
		m.stream = msg.tokens
		m.sources = msg.sources
		return m, nextToken(m.stream)

	case tokenMsg:
		m.transcript += string(msg)
		m.refresh()
		return m, nextToken(m.stream)

	case streamDoneMsg:
		m.transcript += "\n"
		if len(m.sources) > 0 {
			m.transcript += sourceStyle.Render(renderSources(m.sources)) + "\n"
		}
		m.transcript += "\n"
		m.streaming = false
		m.stream = nil
		m.status = "Ready."
		m.refresh()
		return m, nil

	case errMsg:
		m.transcript += errorStyle.Render("error: "+msg.err.Error()) + "\n\n"
		m.streaming = false
		m.stream = nil
		m.status = "Ready."
		m.refresh()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.transcript)
	m.viewport.GotoBottom()
}

// View renders the chat layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Kotaeru Chat")
	transcript := transcriptBoxStyle.Render(m.viewport.View())
	input := inputBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + transcript + "\n" + input + "\n" + status
}

// renderSources lists the distinct source labels of the answer.
func renderSources(docs []models.Document) string {
	seen := make(map[string]struct{}, len(docs))
	var labels []string
	for _, d := range docs {
		label := d.Source("unknown")
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		labels = append(labels, label)
	}
	return fmt.Sprintf("[sources: %s]", strings.Join(labels, ", "))
}

// Run starts the TUI program and blocks until it exits.
func Run(ch *chain.Chain) error {
	p := tea.NewProgram(New(ch), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

var (
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	questionStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	sourceStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	statusStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
