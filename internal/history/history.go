// Package history keeps the bounded conversation log of one session.
package history

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"grocerai/internal/domain"
)

// DefaultMaxEntries is how many entries a log keeps.
const DefaultMaxEntries = 10

// Entry is one answered question. Text and passages are copies, so index
// rebuilds do not change past entries.
type Entry struct {
	ID       string
	Question string
	Answer   string
	Mode     domain.Mode
	Passages []domain.Passage
	AskedAt  time.Time
}

// Log is an append-only, bounded log; the oldest entry is dropped when full.
type Log struct {
	mu      sync.RWMutex
	max     int
	entries []Entry
	now     func() time.Time
}

func New(maxEntries int) *Log {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Log{max: maxEntries, now: time.Now}
}

// Append records an answer and returns the stored entry.
func (l *Log) Append(question string, answer domain.AnswerResult) Entry {
	e := Entry{
		ID:       uuid.NewString(),
		Question: question,
		Answer:   answer.Text,
		Mode:     answer.Mode,
		Passages: append([]domain.Passage(nil), answer.Passages...),
		AskedAt:  l.now(),
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
	if over := len(l.entries) - l.max; over > 0 {
		l.entries = append([]Entry(nil), l.entries[over:]...)
	}
	return e
}

// Recent returns up to n entries, most recent first. n <= 0 means all.
func (l *Log) Recent(n int) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if n <= 0 || n > len(l.entries) {
		n = len(l.entries)
	}
	out := make([]Entry, 0, n)
	for i := len(l.entries) - 1; i >= 0 && len(out) < n; i-- {
		e := l.entries[i]
		e.Passages = append([]domain.Passage(nil), e.Passages...)
		out = append(out, e)
	}
	return out
}

// Len returns the number of retained entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Clear removes every entry.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}
