// Package tui is an interactive chat with the patent research agent that
// carries the conversation history into every question.
package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"patentrag/internal/agent"
)

// Asker is the TUI-facing subset of the agent.
type Asker interface {
	Run(ctx context.Context, query string, history []agent.Exchange) (*agent.Result, error)
}

type answerMsg struct {
	query  string
	result *agent.Result
	err    error
}

// Model is the Bubble Tea model for the chat.
type Model struct {
	ctx      context.Context
	asker    Asker
	input    textinput.Model
	viewport viewport.Model
	history  []agent.Exchange
	summary  string
	status   string
	pending  string
	ready    bool
}

// New creates a chat model. summary is shown under the header.
func New(ctx context.Context, asker Asker, summary string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about patents and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{ctx: ctx, asker: asker, input: ti, viewport: vp, summary: summary, status: "Ready. Ask a question."}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

// History returns the completed exchanges.
func (m Model) History() []agent.Exchange {
	return append([]agent.Exchange(nil), m.history...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := chatBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header and summary, status, spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-rh)
		m.refresh()
		return m, nil
	case answerMsg:
		m.pending = ""
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		} else {
			m.history = append(m.history, agent.Exchange{Query: msg.query, Answer: msg.result.Answer})
			m.status = fmt.Sprintf("Answered in %d turns", msg.result.Transcript.Len())
			if msg.result.Forced {
				m.status += " (turn limit reached)"
			}
		}
		m.refresh()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.pending != "" {
				return m, nil
			}
			m.pending = q
			m.input.SetValue("")
			m.status = "Researching..."
			m.refresh()
			return m, m.ask(q)
		case "up", "pgup":
			m.viewport.LineUp(1)
			return m, nil
		case "down", "pgdown":
			m.viewport.LineDown(1)
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// ask runs the agent off the UI goroutine with a snapshot of the history.
func (m Model) ask(q string) tea.Cmd {
	ctx, asker, history := m.ctx, m.asker, m.History()
	return func() tea.Msg {
		res, err := asker.Run(ctx, q, history)
		return answerMsg{query: q, result: res, err: err}
	}
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Patent Research"),
		mutedStyle.Render(m.summary),
		chatBoxStyle.Render(m.viewport.View()),
		queryBoxStyle.Render(m.input.View()),
		statusStyle.Render(m.status),
	)
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderConversation())
	m.viewport.GotoBottom()
}

func (m Model) renderConversation() string {
	if len(m.history) == 0 && m.pending == "" {
		return "No questions yet."
	}
	var b strings.Builder
	for _, ex := range m.history {
		b.WriteString(userStyle.Render("You: " + ex.Query))
		b.WriteString("\n\n")
		b.WriteString(highlightBestSentence(ex.Answer, ex.Query))
		b.WriteString("\n\n")
	}
	if m.pending != "" {
		b.WriteString(userStyle.Render("You: " + m.pending))
		b.WriteString("\n\n...")
	}
	return strings.TrimRight(b.String(), "\n")
}

var (
	titleStyle     = lipgloss.NewStyle().Bold(true)
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	chatBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = chatBoxStyle.Copy()
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	wordRe         = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}\p{N}]+)*`)
)

// highlightBestSentence emphasises the non-heading answer line sharing the
// most distinct words with the query. Nothing is highlighted without overlap.
func highlightBestSentence(text, query string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	q := words(query)
	best, bestShared := -1, 0
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		shared := 0
		for w := range words(line) {
			if q[w] {
				shared++
			}
		}
		if shared > bestShared {
			best, bestShared = i, shared
		}
	}
	if best >= 0 {
		lines[best] = highlightStyle.Render(lines[best])
	}
	return strings.Join(lines, "\n")
}

func words(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range wordRe.FindAllString(strings.ToLower(s), -1) {
		set[w] = true
	}
	return set
}
