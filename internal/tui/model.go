package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"course-rag/internal/models"
)

// Chatbot is the TUI-facing subset of the RAG system.
type Chatbot interface {
	Query(ctx context.Context, query, sessionID string) (*models.QueryResult, error)
}

// answerMsg delivers the outcome of an asynchronous query.
type answerMsg struct {
	result *models.QueryResult
	err    error
}

// Model is the Bubble Tea model for the chat loop.
type Model struct {
	bot        Chatbot
	input      textinput.Model
	viewport   viewport.Model
	transcript []string
	sessionID  string
	summary    string
	status     string
	waiting    bool
	ready      bool
}

// New creates a new chat model instance.
func New(bot Chatbot, summary string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about the course materials"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		bot:      bot,
		input:    ti,
		viewport: vp,
		summary:  summary,
		status:   "Ready. Type a question, Enter to send, Esc to quit.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and answer events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		// account for frames around transcript and query boxes
		tw, th := transcriptBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		totalHeaderLines := 2 // header + summary
		totalFooterLines := 1 // status
		reserved := totalHeaderLines + totalFooterLines + qh + 1
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width-tw)
		m.viewport.Height = max(3, vh-th)
		m.viewport.SetContent(m.renderTranscript())
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.waiting {
				return m, nil
			}
			m.input.SetValue("")
			m.waiting = true
			m.status = "Thinking..."
			m.transcript = append(m.transcript, youStyle.Render("You: ")+q)
			m.viewport.SetContent(m.renderTranscript())
			m.viewport.GotoBottom()
			return m, m.ask(q)
		case "up":
			m.viewport.LineUp(1)
			return m, nil
		case "down":
			m.viewport.LineDown(1)
			return m, nil
		}

	case answerMsg:
		m.waiting = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		} else {
			m.sessionID = msg.result.SessionID
			m.status = "Session " + m.sessionID
			m.transcript = append(m.transcript, renderAnswer(msg.result))
		}
		m.viewport.SetContent(m.renderTranscript())
		m.viewport.GotoBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the chat layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Course Materials Assistant")
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.summary)
	transcript := transcriptBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + summary + "\n" + transcript + "\n" + input + "\n" + status
}

// ask runs the query off the UI loop; the result comes back as answerMsg.
func (m Model) ask(query string) tea.Cmd {
	bot, sessionID := m.bot, m.sessionID
	return func() tea.Msg {
		result, err := bot.Query(context.Background(), query, sessionID)
		return answerMsg{result: result, err: err}
	}
}

func (m Model) renderTranscript() string {
	if len(m.transcript) == 0 {
		return "No messages yet. Ask about the indexed courses."
	}
	return strings.Join(m.transcript, "\n\n")
}

func renderAnswer(result *models.QueryResult) string {
	var b strings.Builder
	b.WriteString(assistantStyle.Render("Assistant: "))
	b.WriteString(result.Answer)
	if len(result.Sources) > 0 {
		b.WriteString("\n")
		b.WriteString(sourceStyle.Render("Sources: " + formatSources(result.Sources)))
	}
	return b.String()
}

// formatSources collapses repeated labels for display; the underlying
// result keeps one source per hit.
func formatSources(sources []models.Source) string {
	seen := make(map[string]struct{}, len(sources))
	parts := make([]string, 0, len(sources))
	for _, s := range sources {
		label := s.Label
		if s.Link != "" {
			label = fmt.Sprintf("%s (%s)", s.Label, s.Link)
		}
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		parts = append(parts, label)
	}
	return strings.Join(parts, ", ")
}

var (
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	youStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	sourceStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	statusStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)
