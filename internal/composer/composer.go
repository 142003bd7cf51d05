// Package composer turns a routed question into an AnswerResult, walking the
// generation, retrieval-only and not-found fallback chain.
package composer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"grocerai/internal/domain"
)

const (
	// Divider separates passages in retrieval-only answers.
	Divider = "\n\n---\n\n"
	// FallbackPassages is how many passages a retrieval-only answer shows.
	FallbackPassages = 3

	NotFoundText = "No documents found for this question."

	defaultTimeout = 30 * time.Second
	defaultK       = 5
)

var errEmptyOutput = errors.New("empty output")

// Calculator answers direct-compute windows.
type Calculator interface {
	Compute(w domain.Window) string
}

// Composer holds no per-question state; Compose is safe for concurrent use.
type Composer struct {
	retriever  domain.Retriever
	calculator Calculator
	generator  domain.Generator
	timeout    time.Duration
	k          int
}

// Option configures a Composer.
type Option func(*Composer)

// WithGenerator enables generation. A nil generator leaves it disabled.
func WithGenerator(g domain.Generator) Option {
	return func(c *Composer) { c.generator = g }
}

// WithTimeout bounds each generation call.
func WithTimeout(d time.Duration) Option {
	return func(c *Composer) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithTopK sets how many passages are retrieved per question.
func WithTopK(k int) Option {
	return func(c *Composer) {
		if k > 0 {
			c.k = k
		}
	}
}

func New(retriever domain.Retriever, calculator Calculator, opts ...Option) *Composer {
	c := &Composer{retriever: retriever, calculator: calculator, timeout: defaultTimeout, k: defaultK}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HasGenerator reports whether generation is configured.
func (c *Composer) HasGenerator() bool { return c.generator != nil }

// Compose always returns a well-formed result; failures below it become
// degraded modes with the error detail in the text.
func (c *Composer) Compose(ctx context.Context, query string, decision domain.RouteDecision) (res domain.AnswerResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("answer composition panicked", "route", decision.String(), "panic", r)
			res = c.result(NotFoundText, nil, domain.ModeNotFound, decision)
			res.Err = fmt.Errorf("%w: panic: %v", domain.ErrNoDataFound, r)
		}
	}()

	if decision.Target == domain.TargetDirectCompute {
		return domain.AnswerResult{
			Text:     c.calculator.Compute(decision.Window),
			Passages: []domain.Passage{},
			Mode:     domain.ModeDirectCompute,
			Route:    decision,
		}
	}

	passages, err := c.retrieve(ctx, decision.Target, query)
	if err != nil {
		slog.Warn("retrieval failed, continuing without passages", "corpus", decision.Target.String(), "error", err)
		passages = nil
	}

	if c.generator == nil {
		if len(passages) == 0 {
			return c.notFound("(Fallback) Generation not available. "+NotFoundText, decision, err)
		}
		return c.result("(Fallback) Generation not available. Top retrieved documents:\n\n"+fallbackText(passages),
			passages, domain.ModeRetrievalFallback, decision)
	}

	out, err := c.generate(ctx, GroundingPrompt(query, passages))
	switch {
	case err == nil:
		return c.result(out, passages, domain.ModeGenerated, decision)
	case errors.Is(err, errEmptyOutput) && len(passages) > 0:
		return c.result("(Generation gave no clear answer, showing retrieved documents instead):\n\n"+fallbackText(passages),
			passages, domain.ModeRetrievalFallback, decision)
	case len(passages) > 0:
		slog.Warn("generation failed, falling back to retrieved passages", "error", err)
		return c.result(fmt.Sprintf("(Generation error: %v)\n\nTop retrieved documents:\n\n%s", err, fallbackText(passages)),
			passages, domain.ModeRetrievalFallback, decision)
	default:
		slog.Warn("generation failed with no passages", "error", err)
		return c.notFound(fmt.Sprintf("%s (Generation error: %v)", NotFoundText, err), decision, err)
	}
}

// retrieve turns a panicking retriever into a RetrievalError.
func (c *Composer) retrieve(ctx context.Context, target domain.Target, query string) (passages []domain.Passage, err error) {
	defer func() {
		if r := recover(); r != nil {
			passages = nil
			err = &domain.RetrievalError{Corpus: target.String(), Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return c.retriever.Retrieve(ctx, target, query, c.k)
}

// GroundingPrompt embeds the verbatim question and every retrieved passage.
func GroundingPrompt(query string, passages []domain.Passage) string {
	var b strings.Builder
	b.WriteString("Answer the question using only the context below.\n")
	b.WriteString("If the answer is not in the context, say \"I could not find this in the documents.\"\n\n")
	b.WriteString("Context:\n")
	if len(passages) == 0 {
		b.WriteString("(no documents retrieved)\n")
	}
	for i, p := range passages {
		fmt.Fprintf(&b, "[%d] (%s)\n%s\n\n", i+1, p.SourceID, p.Content)
	}
	b.WriteString("Question: ")
	b.WriteString(query)
	b.WriteString("\nAnswer:")
	return b.String()
}

// generate runs the generator under the timeout. A generator that ignores
// its context is abandoned when the deadline passes.
func (c *Composer) generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	provider := c.generator.Name()
	type reply struct {
		out string
		err error
	}
	done := make(chan reply, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- reply{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		out, err := c.generator.Generate(ctx, prompt)
		done <- reply{out: out, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return "", &domain.GenerationError{Provider: provider, Err: r.err}
		}
		if strings.TrimSpace(r.out) == "" {
			return "", &domain.GenerationError{Provider: provider, Err: errEmptyOutput}
		}
		return strings.TrimSpace(r.out), nil
	case <-ctx.Done():
		return "", &domain.GenerationError{Provider: provider, Err: ctx.Err()}
	}
}

func (c *Composer) result(text string, passages []domain.Passage, mode domain.Mode, decision domain.RouteDecision) domain.AnswerResult {
	n := min(len(passages), domain.MaxSupportingPassages)
	supporting := make([]domain.Passage, n)
	copy(supporting, passages[:n])
	return domain.AnswerResult{Text: text, Passages: supporting, Mode: mode, Route: decision}
}

// notFound builds a NotFound result whose Err wraps ErrNoDataFound and the
// failure that led there, if any.
func (c *Composer) notFound(text string, decision domain.RouteDecision, cause error) domain.AnswerResult {
	res := c.result(text, nil, domain.ModeNotFound, decision)
	res.Err = domain.ErrNoDataFound
	if cause != nil {
		res.Err = errors.Join(domain.ErrNoDataFound, cause)
	}
	return res
}

func fallbackText(passages []domain.Passage) string {
	n := min(len(passages), FallbackPassages)
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		parts[i] = passages[i].Content
	}
	return strings.Join(parts, Divider)
}
