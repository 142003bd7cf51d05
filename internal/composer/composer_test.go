package composer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grocerai/internal/domain"
)

type fakeRetriever struct {
	passages []domain.Passage
	err      error
	calls    int
	panics   bool
}

func (f *fakeRetriever) Retrieve(_ context.Context, _ domain.Target, _ string, k int) ([]domain.Passage, error) {
	f.calls++
	if f.panics {
		panic("runtime error: slice bounds out of range [:1] with capacity 0")
	}
	if f.err != nil {
		return nil, f.err
	}
	if len(f.passages) > k {
		return f.passages[:k], nil
	}
	return f.passages, nil
}

type fakeCalculator struct{ windows []domain.Window }

func (f *fakeCalculator) Compute(w domain.Window) string {
	f.windows = append(f.windows, w)
	return "Total sales for " + w.String() + ": $45.50"
}

type panickingCalculator struct{}

func (panickingCalculator) Compute(domain.Window) string { panic("no rows loaded") }

type fakeGenerator struct {
	out    string
	err    error
	panics bool
	block  bool
	prompt string
}

func (f *fakeGenerator) Name() string { return "fake" }

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.prompt = prompt
	if f.panics {
		panic("boom")
	}
	if f.block {
		time.Sleep(time.Second)
	}
	return f.out, f.err
}

func passages(n int) []domain.Passage {
	out := make([]domain.Passage, n)
	for i := range out {
		out[i] = domain.Passage{SourceID: fmt.Sprintf("p:%d", i), Content: fmt.Sprintf("passage %d", i)}
	}
	return out
}

func TestCompose_DirectComputeSkipsRetrieval(t *testing.T) {
	r := &fakeRetriever{passages: passages(2)}
	calc := &fakeCalculator{}
	gen := &fakeGenerator{out: "unused"}
	c := New(r, calc, WithGenerator(gen))

	res := c.Compose(context.Background(), "sales today", domain.DirectCompute(domain.WindowToday))
	assert.Equal(t, domain.ModeDirectCompute, res.Mode)
	assert.Contains(t, res.Text, "$45.50")
	assert.Empty(t, res.Passages)
	assert.NotNil(t, res.Passages)
	assert.Zero(t, r.calls)
	assert.Empty(t, gen.prompt)
	assert.Equal(t, []domain.Window{domain.WindowToday}, calc.windows)
}

func TestCompose_NoGenerator(t *testing.T) {
	c := New(&fakeRetriever{passages: passages(2)}, &fakeCalculator{})

	res := c.Compose(context.Background(), "milk", domain.TransactionsRoute())
	assert.Equal(t, domain.ModeRetrievalFallback, res.Mode)
	assert.Contains(t, res.Text, "passage 0"+Divider+"passage 1")
	assert.Len(t, res.Passages, 2)
	assert.False(t, c.HasGenerator())
}

func TestCompose_NoGeneratorShowsTopThree(t *testing.T) {
	c := New(&fakeRetriever{passages: passages(5)}, &fakeCalculator{})

	res := c.Compose(context.Background(), "milk", domain.TransactionsRoute())
	assert.Contains(t, res.Text, "passage 2")
	assert.NotContains(t, res.Text, "passage 3")
	assert.Len(t, res.Passages, 5)
}

func TestCompose_NoGeneratorNoPassages(t *testing.T) {
	c := New(&fakeRetriever{}, &fakeCalculator{})

	res := c.Compose(context.Background(), "milk", domain.TransactionsRoute())
	assert.Equal(t, domain.ModeNotFound, res.Mode)
	assert.Contains(t, res.Text, NotFoundText)
	assert.Empty(t, res.Passages)
	assert.ErrorIs(t, res.Err, domain.ErrNoDataFound)
}

func TestCompose_RetrievalErrorActsAsNoPassages(t *testing.T) {
	r := &fakeRetriever{err: &domain.RetrievalError{Corpus: "policies", Err: errors.New("corrupt")}}
	c := New(r, &fakeCalculator{})

	res := c.Compose(context.Background(), "refund", domain.PoliciesRoute())
	assert.Equal(t, domain.ModeNotFound, res.Mode)
}

func TestCompose_Generated(t *testing.T) {
	gen := &fakeGenerator{out: "  Refunds within 30 days.  "}
	c := New(&fakeRetriever{passages: []domain.Passage{{SourceID: "policies:0", Content: "Refunds accepted within 30 days"}}},
		&fakeCalculator{}, WithGenerator(gen))

	res := c.Compose(context.Background(), "What is the refund policy?", domain.PoliciesRoute())
	assert.Equal(t, domain.ModeGenerated, res.Mode)
	assert.Equal(t, "Refunds within 30 days.", res.Text)
	assert.Equal(t, []string{"Refunds accepted within 30 days"}, res.PassageTexts())
	assert.Equal(t, domain.PoliciesRoute(), res.Route)
	assert.NoError(t, res.Err)
	assert.Contains(t, gen.prompt, "What is the refund policy?")
	assert.Contains(t, gen.prompt, "Refunds accepted within 30 days")
}

func TestCompose_GeneratedWithoutPassages(t *testing.T) {
	c := New(&fakeRetriever{}, &fakeCalculator{}, WithGenerator(&fakeGenerator{out: "I could not find this."}))

	res := c.Compose(context.Background(), "milk", domain.TransactionsRoute())
	assert.Equal(t, domain.ModeGenerated, res.Mode)
}

func TestCompose_PromptIncludesEveryRetrievedPassage(t *testing.T) {
	gen := &fakeGenerator{out: "ok"}
	c := New(&fakeRetriever{passages: passages(8)}, &fakeCalculator{}, WithGenerator(gen), WithTopK(8))

	res := c.Compose(context.Background(), "milk", domain.TransactionsRoute())
	for i := 0; i < 8; i++ {
		assert.Contains(t, gen.prompt, fmt.Sprintf("passage %d", i))
	}
	assert.Len(t, res.Passages, domain.MaxSupportingPassages)
}

func TestCompose_EmptyGenerationFallsBack(t *testing.T) {
	c := New(&fakeRetriever{passages: passages(2)}, &fakeCalculator{}, WithGenerator(&fakeGenerator{out: " \n\t"}))

	res := c.Compose(context.Background(), "milk", domain.TransactionsRoute())
	assert.Equal(t, domain.ModeRetrievalFallback, res.Mode)
	assert.Contains(t, res.Text, "passage 0"+Divider+"passage 1")
}

func TestCompose_EmptyGenerationNoPassages(t *testing.T) {
	c := New(&fakeRetriever{}, &fakeCalculator{}, WithGenerator(&fakeGenerator{out: ""}))

	res := c.Compose(context.Background(), "milk", domain.TransactionsRoute())
	assert.Equal(t, domain.ModeNotFound, res.Mode)
}

func TestCompose_GenerationErrorFallsBack(t *testing.T) {
	c := New(&fakeRetriever{passages: passages(1)}, &fakeCalculator{}, WithGenerator(&fakeGenerator{err: errors.New("quota exceeded")}))

	res := c.Compose(context.Background(), "milk", domain.TransactionsRoute())
	assert.Equal(t, domain.ModeRetrievalFallback, res.Mode)
	assert.Contains(t, res.Text, "quota exceeded")
	assert.Contains(t, res.Text, "passage 0")
}

func TestCompose_GenerationErrorNoPassages(t *testing.T) {
	c := New(&fakeRetriever{}, &fakeCalculator{}, WithGenerator(&fakeGenerator{err: errors.New("quota exceeded")}))

	res := c.Compose(context.Background(), "milk", domain.TransactionsRoute())
	assert.Equal(t, domain.ModeNotFound, res.Mode)
	assert.Contains(t, res.Text, "quota exceeded")
	assert.Empty(t, res.Passages)
	assert.ErrorIs(t, res.Err, domain.ErrNoDataFound)
	assert.ErrorIs(t, res.Err, domain.ErrGeneration)
}

func TestCompose_GeneratorPanicIsRecovered(t *testing.T) {
	c := New(&fakeRetriever{passages: passages(1)}, &fakeCalculator{}, WithGenerator(&fakeGenerator{panics: true}))

	var res domain.AnswerResult
	require.NotPanics(t, func() {
		res = c.Compose(context.Background(), "milk", domain.TransactionsRoute())
	})
	assert.Equal(t, domain.ModeRetrievalFallback, res.Mode)
	assert.Contains(t, res.Text, "panic: boom")
}

func TestCompose_GenerationTimeout(t *testing.T) {
	c := New(&fakeRetriever{passages: passages(1)}, &fakeCalculator{},
		WithGenerator(&fakeGenerator{block: true, out: "late"}), WithTimeout(20*time.Millisecond))

	start := time.Now()
	res := c.Compose(context.Background(), "milk", domain.TransactionsRoute())
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, domain.ModeRetrievalFallback, res.Mode)
	assert.Contains(t, res.Text, context.DeadlineExceeded.Error())
}

func TestCompose_IdempotentForUnchangedInputs(t *testing.T) {
	c := New(&fakeRetriever{passages: passages(4)}, &fakeCalculator{}, WithGenerator(&fakeGenerator{out: "same"}))

	first := c.Compose(context.Background(), "milk", domain.TransactionsRoute())
	second := c.Compose(context.Background(), "milk", domain.TransactionsRoute())
	assert.Equal(t, first.Mode, second.Mode)
	assert.Equal(t, first.Passages, second.Passages)
}

func TestCompose_SupportingPassagesAreCopies(t *testing.T) {
	source := passages(2)
	c := New(&fakeRetriever{passages: source}, &fakeCalculator{})

	res := c.Compose(context.Background(), "milk", domain.TransactionsRoute())
	source[0].Content = "mutated"
	assert.Equal(t, "passage 0", res.Passages[0].Content)
}

func TestGroundingPrompt(t *testing.T) {
	prompt := GroundingPrompt("What is the refund policy?", passages(2))
	assert.True(t, strings.HasSuffix(prompt, "Question: What is the refund policy?\nAnswer:"))
	assert.Contains(t, prompt, "[1] (p:0)\npassage 0")
	assert.Contains(t, prompt, "[2] (p:1)\npassage 1")

	assert.Contains(t, GroundingPrompt("q", nil), "(no documents retrieved)")
}

func TestCompose_RetrieverPanicIsRecovered(t *testing.T) {
	tests := []struct {
		name string
		gen  domain.Generator
		mode domain.Mode
	}{
		{"no generator", nil, domain.ModeNotFound},
		{"with generator", &fakeGenerator{out: "Nothing on file."}, domain.ModeGenerated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(&fakeRetriever{panics: true}, &fakeCalculator{}, WithGenerator(tt.gen))

			var res domain.AnswerResult
			require.NotPanics(t, func() {
				res = c.Compose(context.Background(), "refund", domain.PoliciesRoute())
			})
			assert.Equal(t, tt.mode, res.Mode)
			assert.Empty(t, res.Passages)
			if tt.mode == domain.ModeNotFound {
				assert.ErrorIs(t, res.Err, domain.ErrNoDataFound)
				assert.ErrorIs(t, res.Err, domain.ErrRetrieval)
			}
		})
	}
}

func TestCompose_CalculatorPanicIsRecovered(t *testing.T) {
	c := New(&fakeRetriever{}, panickingCalculator{})

	var res domain.AnswerResult
	require.NotPanics(t, func() {
		res = c.Compose(context.Background(), "sales today", domain.DirectCompute(domain.WindowToday))
	})
	assert.Equal(t, domain.ModeNotFound, res.Mode)
	assert.Equal(t, NotFoundText, res.Text)
	assert.Equal(t, domain.DirectCompute(domain.WindowToday), res.Route)
	assert.ErrorIs(t, res.Err, domain.ErrNoDataFound)
}
