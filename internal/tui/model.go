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

	"grocerai/internal/domain"
	"grocerai/internal/history"
)

// EmptyQueryWarning is shown when enter is pressed on a blank input.
const EmptyQueryWarning = "Please enter a question before submitting."

// AssistantPort is the TUI-facing subset of the assistant.
type AssistantPort interface {
	Ask(ctx context.Context, question string) (domain.AnswerResult, error)
	History(n int) []history.Entry
	ClearHistory()
	HasGenerator() bool
}

type answerMsg struct {
	question string
	result   domain.AnswerResult
	err      error
}

// Model is the Bubble Tea model for the chat application.
type Model struct {
	ctx      context.Context
	port     AssistantPort
	input    textinput.Model
	viewport viewport.Model
	entries  []history.Entry
	summary  string
	status   string
	cursor   int
	busy     bool
	ready    bool
}

// New creates a new TUI model instance.
func New(ctx context.Context, port AssistantPort, summary string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about sales, products, staff or policies and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	status := "Ready. Generation disabled, answers show retrieved documents."
	if port.HasGenerator() {
		status = "Ready."
	}
	return Model{ctx: ctx, port: port, input: ti, viewport: vp, summary: summary, status: status, entries: port.History(0)}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and answer events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header and summary, status, spacer
		vh := max(3, msg.Height-reserved)
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderCurrent())
		return m, nil
	case answerMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			return m, nil
		}
		m.entries = m.port.History(0)
		m.cursor = 0
		m.status = fmt.Sprintf("Answered %q via %s", msg.question, msg.result.Route)
		m.viewport.SetContent(m.renderCurrent())
		m.viewport.GotoTop()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			if m.busy {
				return m, nil
			}
			q := strings.TrimSpace(m.input.Value())
			if q == "" {
				m.status = EmptyQueryWarning
				return m, nil
			}
			m.busy = true
			m.status = "Thinking..."
			m.input.SetValue("")
			return m, m.ask(q)
		case "ctrl+l":
			m.port.ClearHistory()
			m.entries = nil
			m.cursor = 0
			m.status = "History cleared."
			m.viewport.SetContent(m.renderCurrent())
			return m, nil
		case "down":
			if len(m.entries) > 0 {
				m.cursor = (m.cursor + 1) % len(m.entries)
				m.viewport.SetContent(m.renderCurrent())
				return m, nil
			}
		case "up":
			if len(m.entries) > 0 {
				m.cursor = (m.cursor - 1 + len(m.entries)) % len(m.entries)
				m.viewport.SetContent(m.renderCurrent())
				return m, nil
			}
		case "pgdown", "pgup":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) ask(question string) tea.Cmd {
	ctx := m.ctx
	port := m.port
	return func() tea.Msg {
		res, err := port.Ask(ctx, question)
		return answerMsg{question: question, result: res, err: err}
	}
}

// View renders the layout and the selected conversation entry.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Grocer-AI Assistant")
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.summary)
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + summary + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) renderCurrent() string {
	if len(m.entries) == 0 {
		return "No questions yet."
	}
	e := m.entries[m.cursor]
	var b strings.Builder
	fmt.Fprintf(&b, "Q %d/%d  %s\n", m.cursor+1, len(m.entries), modeBadge(e.Mode))
	b.WriteString(questionStyle.Render(e.Question))
	b.WriteString("\n\n")
	b.WriteString(e.Answer)
	if len(e.Passages) > 0 {
		b.WriteString("\n\n")
		b.WriteString(lipgloss.NewStyle().Bold(true).Render("Supporting passages"))
		for i, p := range e.Passages {
			fmt.Fprintf(&b, "\n\n[%d] %s\n%s", i+1, p.SourceID, highlightBestSentence(p.Content, e.Question))
		}
	}
	return b.String()
}

func modeBadge(mode domain.Mode) string {
	color := "8"
	switch mode {
	case domain.ModeGenerated:
		color = "10"
	case domain.ModeDirectCompute:
		color = "12"
	case domain.ModeRetrievalFallback:
		color = "11"
	case domain.ModeNotFound:
		color = "9"
	}
	return badgeStyle.Background(lipgloss.Color(color)).Render(mode.String())
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	questionStyle  = lipgloss.NewStyle().Italic(true)
	badgeStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Padding(0, 1)
	unicodeWordRe  = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’]\p{L}+)*`)
	sentenceRe     = regexp.MustCompile(`(?m)(?U)([^.!?\n]+(?:[.!?\n]|$))`)
)

func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences := sentenceRe.FindAllString(text, -1)
	if len(sentences) == 0 {
		sentences = []string{strings.TrimSpace(text)}
	}
	qTokens := toTokenSet(query)
	if len(qTokens) == 0 {
		return strings.TrimSpace(text)
	}
	bestIdx := 0
	bestScore := -1
	for i, s := range sentences {
		score := tokenOverlapScore(qTokens, s)
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	for i := range sentences {
		sent := strings.TrimSpace(sentences[i])
		if i == bestIdx {
			sentences[i] = highlightStyle.Render(sent)
		} else {
			sentences[i] = sent
		}
	}
	return strings.Join(sentences, " ")
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	tokens := unicodeWordRe.FindAllString(strings.ToLower(sentence), -1)
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
