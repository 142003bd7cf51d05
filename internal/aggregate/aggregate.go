// Package aggregate answers date-bounded sales questions directly from the
// transaction table, without retrieval or generation.
package aggregate

import (
	"sync"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"grocerai/internal/corpus"
	"grocerai/internal/domain"
)

// Result is the sum of total_amount over one window.
type Result struct {
	Window domain.Window
	Start  time.Time
	End    time.Time
	Total  float64
	Rows   int
}

type entry struct {
	at     time.Time
	amount float64
}

// Calculator holds the timestamp and amount of every valid row.
type Calculator struct {
	mu      sync.RWMutex
	entries []entry
	now     func() time.Time
	printer *message.Printer
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithClock overrides the time source used to resolve windows.
func WithClock(now func() time.Time) Option {
	return func(c *Calculator) { c.now = now }
}

func New(opts ...Option) *Calculator {
	c := &Calculator{now: time.Now, printer: message.NewPrinter(language.English)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load replaces the rows with those of table. Invalid rows are skipped.
func (c *Calculator) Load(table *corpus.Table) {
	var entries []entry
	if table != nil {
		entries = make([]entry, 0, len(table.Rows))
		for _, row := range table.Rows {
			if row.Valid {
				entries = append(entries, entry{at: row.Time, amount: row.Amount})
			}
		}
	}
	c.mu.Lock()
	c.entries = entries
	c.mu.Unlock()
}

// Bounds resolves a window to [start, end) in now's location, on calendar days.
func Bounds(w domain.Window, now time.Time) (time.Time, time.Time) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	tomorrow := today.AddDate(0, 0, 1)
	switch w {
	case domain.WindowYesterday:
		return today.AddDate(0, 0, -1), today
	case domain.WindowLast7Days:
		return today.AddDate(0, 0, -6), tomorrow
	default:
		return today, tomorrow
	}
}

// Sum totals total_amount over the rows inside the window. A window with no
// rows sums to zero.
func (c *Calculator) Sum(w domain.Window) Result {
	start, end := Bounds(w, c.now())
	res := Result{Window: w, Start: start, End: end}

	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, e := range c.entries {
		if !e.at.Before(start) && e.at.Before(end) {
			res.Total += e.amount
			res.Rows++
		}
	}
	return res
}

// Compute answers the window question as a sentence carrying the formatted total.
func (c *Calculator) Compute(w domain.Window) string {
	res := c.Sum(w)
	return c.printer.Sprintf("Total sales (%s) for %s: %s across %d transactions.",
		domain.AggregateSumTotalAmount, w, c.FormatCurrency(res.Total), res.Rows)
}

// FormatCurrency renders an amount as dollars with thousands separators and
// two decimals.
func (c *Calculator) FormatCurrency(amount float64) string {
	return c.printer.Sprintf("$%.2f", amount)
}
