package history

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grocerai/internal/domain"
)

func answer(text string) domain.AnswerResult {
	return domain.AnswerResult{
		Text:     text,
		Mode:     domain.ModeRetrievalFallback,
		Passages: []domain.Passage{{SourceID: "p:0", Content: "snippet " + text}},
	}
}

func TestLog_RecentIsMostRecentFirst(t *testing.T) {
	l := New(10)
	l.Append("q1", answer("a1"))
	l.Append("q2", answer("a2"))
	l.Append("q3", answer("a3"))

	recent := l.Recent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "q3", recent[0].Question)
	assert.Equal(t, "q2", recent[1].Question)
	assert.Len(t, l.Recent(0), 3)
	assert.Len(t, l.Recent(50), 3)
}

func TestLog_BoundedToMaxEntries(t *testing.T) {
	l := New(0)
	for i := 0; i < 15; i++ {
		l.Append(fmt.Sprintf("q%d", i), answer("a"))
	}
	assert.Equal(t, DefaultMaxEntries, l.Len())
	recent := l.Recent(0)
	assert.Equal(t, "q14", recent[0].Question)
	assert.Equal(t, "q5", recent[len(recent)-1].Question)
}

func TestLog_EntriesAreCopies(t *testing.T) {
	l := New(10)
	res := answer("a1")
	entry := l.Append("q1", res)
	assert.NotEmpty(t, entry.ID)

	res.Passages[0].Content = "mutated"
	recent := l.Recent(1)
	assert.Equal(t, "snippet a1", recent[0].Passages[0].Content)

	recent[0].Passages[0].Content = "mutated again"
	assert.Equal(t, "snippet a1", l.Recent(1)[0].Passages[0].Content)
}

func TestLog_UniqueIDs(t *testing.T) {
	l := New(10)
	a := l.Append("q", answer("a"))
	b := l.Append("q", answer("a"))
	assert.NotEqual(t, a.ID, b.ID)
}

func TestLog_Clear(t *testing.T) {
	l := New(10)
	l.Append("q1", answer("a1"))
	l.Clear()
	assert.Zero(t, l.Len())
	assert.Empty(t, l.Recent(10))
}
