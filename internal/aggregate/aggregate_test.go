package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"grocerai/internal/corpus"
	"grocerai/internal/domain"
)

var fixedNow = time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC)

func row(at time.Time, amount float64) corpus.Row {
	return corpus.Row{Time: at, Amount: amount, Valid: true}
}

func newCalculator(rows ...corpus.Row) *Calculator {
	c := New(WithClock(func() time.Time { return fixedNow }))
	c.Load(&corpus.Table{Rows: rows})
	return c
}

func TestCalculator_TodayScenario(t *testing.T) {
	c := newCalculator(
		row(time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC), 10.25),
		row(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC), 20.00),
		row(time.Date(2025, 3, 10, 23, 59, 59, 0, time.UTC), 15.25),
		row(time.Date(2025, 3, 9, 23, 59, 59, 0, time.UTC), 100),
	)

	res := c.Sum(domain.WindowToday)
	assert.Equal(t, 3, res.Rows)
	assert.InDelta(t, 45.50, res.Total, 1e-9)
	assert.Contains(t, c.Compute(domain.WindowToday), "$45.50")
}

func TestCalculator_ZeroRows(t *testing.T) {
	c := newCalculator()
	res := c.Sum(domain.WindowYesterday)
	assert.Zero(t, res.Rows)
	assert.Zero(t, res.Total)
	assert.Contains(t, c.Compute(domain.WindowYesterday), "$0.00")
}

func TestCalculator_Windows(t *testing.T) {
	c := newCalculator(
		row(time.Date(2025, 3, 10, 1, 0, 0, 0, time.UTC), 1),
		row(time.Date(2025, 3, 9, 1, 0, 0, 0, time.UTC), 2),
		row(time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC), 4),
		row(time.Date(2025, 3, 3, 23, 59, 59, 0, time.UTC), 8),
		row(time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC), 16),
	)

	assert.InDelta(t, 1.0, c.Sum(domain.WindowToday).Total, 1e-9)
	assert.InDelta(t, 2.0, c.Sum(domain.WindowYesterday).Total, 1e-9)
	assert.InDelta(t, 7.0, c.Sum(domain.WindowLast7Days).Total, 1e-9)
}

func TestCalculator_SkipsInvalidRows(t *testing.T) {
	c := newCalculator(
		row(time.Date(2025, 3, 10, 1, 0, 0, 0, time.UTC), 5),
		corpus.Row{Record: []string{"bad"}},
	)
	assert.Equal(t, 1, c.Sum(domain.WindowToday).Rows)
}

func TestCalculator_LoadReplacesRows(t *testing.T) {
	c := newCalculator(row(time.Date(2025, 3, 10, 1, 0, 0, 0, time.UTC), 5))
	c.Load(nil)
	assert.Zero(t, c.Sum(domain.WindowToday).Rows)
}

func TestFormatCurrency(t *testing.T) {
	c := New()
	assert.Equal(t, "$0.00", c.FormatCurrency(0))
	assert.Equal(t, "$45.50", c.FormatCurrency(45.5))
	assert.Equal(t, "$1,234,567.89", c.FormatCurrency(1234567.891))
}

func TestBounds(t *testing.T) {
	start, end := Bounds(domain.WindowLast7Days, fixedNow)
	assert.Equal(t, time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC), end)
}
