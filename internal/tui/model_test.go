package tui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grocerai/internal/domain"
	"grocerai/internal/history"
)

type fakePort struct {
	log     *history.Log
	asked   []string
	cleared int
}

func newFakePort() *fakePort { return &fakePort{log: history.New(10)} }

func (f *fakePort) Ask(_ context.Context, q string) (domain.AnswerResult, error) {
	if strings.TrimSpace(q) == "" {
		return domain.AnswerResult{}, domain.ErrEmptyQuery
	}
	f.asked = append(f.asked, q)
	res := domain.AnswerResult{
		Text:     "answer to " + q,
		Mode:     domain.ModeRetrievalFallback,
		Passages: []domain.Passage{{SourceID: "policies:0", Content: "Refunds accepted within 30 days. Leave is monthly."}},
		Route:    domain.PoliciesRoute(),
	}
	f.log.Append(q, res)
	return res, nil
}

func (f *fakePort) History(n int) []history.Entry { return f.log.Recent(n) }

func (f *fakePort) ClearHistory() {
	f.cleared++
	f.log.Clear()
}

func (f *fakePort) HasGenerator() bool { return false }

func sized(t *testing.T, port AssistantPort) Model {
	t.Helper()
	m := New(context.Background(), port, "Policy summary.")
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return updated.(Model)
}

func submit(t *testing.T, m Model, question string) Model {
	t.Helper()
	m.input.SetValue(question)
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)
	require.NotNil(t, cmd)
	assert.True(t, m.busy)
	updated, _ = m.Update(cmd())
	return updated.(Model)
}

func TestModel_EnterAsksAndRendersAnswer(t *testing.T) {
	port := newFakePort()
	m := submit(t, sized(t, port), "What is the refund policy?")

	assert.Equal(t, []string{"What is the refund policy?"}, port.asked)
	assert.False(t, m.busy)
	assert.Empty(t, m.input.Value())
	require.Len(t, m.entries, 1)
	view := m.View()
	assert.Contains(t, view, "answer to What is the refund policy?")
	assert.Contains(t, view, "retrieval_fallback")
	assert.Contains(t, m.status, "policies")
}

func TestModel_EmptyInputShowsWarning(t *testing.T) {
	port := newFakePort()
	m := sized(t, port)
	m.input.SetValue("   ")

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)
	assert.Nil(t, cmd)
	assert.Equal(t, EmptyQueryWarning, m.status)
	assert.Empty(t, port.asked)
}

func TestModel_BrowseHistory(t *testing.T) {
	port := newFakePort()
	m := sized(t, port)
	m = submit(t, m, "first")
	m = submit(t, m, "second")
	require.Len(t, m.entries, 2)
	assert.Equal(t, 0, m.cursor)
	assert.Contains(t, m.renderCurrent(), "answer to second")

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = updated.(Model)
	assert.Contains(t, m.renderCurrent(), "answer to first")

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = updated.(Model)
	assert.Contains(t, m.renderCurrent(), "answer to second")
}

func TestModel_CtrlLClearsHistory(t *testing.T) {
	port := newFakePort()
	m := submit(t, sized(t, port), "first")

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
	m = updated.(Model)
	assert.Equal(t, 1, port.cleared)
	assert.Empty(t, m.entries)
	assert.Contains(t, m.renderCurrent(), "No questions yet.")
}

func TestModel_CtrlCQuits(t *testing.T) {
	m := sized(t, newFakePort())
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestHighlightBestSentence(t *testing.T) {
	out := highlightBestSentence("Refunds accepted within 30 days. Leave is monthly.", "leave")
	assert.Contains(t, out, "Refunds accepted within 30 days.")
	assert.Contains(t, out, "Leave is monthly.")

	assert.Equal(t, "plain text", highlightBestSentence(" plain text ", ""))
	assert.Contains(t, highlightBestSentence("product_name: Milk\ndate_of_joining: 2024-01-02", "milk"), "date_of_joining: 2024-01-02")
}
