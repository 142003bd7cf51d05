// Package service wires routing, retrieval, direct computation and answer
// composition into the Assistant, the single entry point used by the CLI,
// terminal UI and HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"grocerai/internal/aggregate"
	"grocerai/internal/chunker"
	"grocerai/internal/composer"
	"grocerai/internal/config"
	"grocerai/internal/corpus"
	"grocerai/internal/domain"
	"grocerai/internal/embedding"
	"grocerai/internal/generation"
	"grocerai/internal/history"
	"grocerai/internal/index"
	"grocerai/internal/retrieval"
	"grocerai/internal/router"
	"grocerai/internal/summarizer"
	"grocerai/internal/vectorstore"
)

// EmptyQueryWarning is shown instead of an answer for blank questions.
const EmptyQueryWarning = "Please enter a question before submitting."

// Progress reports embedding progress for one corpus during Refresh.
type Progress func(corpus string, done, total int)

// RefreshReport summarises one Refresh.
type RefreshReport struct {
	TransactionsPath    string
	PoliciesPath        string
	TransactionRows     int
	TransactionPassages int
	PolicyPassages      int
	TransactionsReused  bool
	PoliciesReused      bool
	Summary             string
	Duration            time.Duration
}

// Assistant is constructed once per process and passed to every surface.
type Assistant struct {
	cfg        *config.AppConfig
	router     *router.Router
	facade     *retrieval.Facade
	calculator *aggregate.Calculator
	composer   *composer.Composer
	history    *history.Log
	summarizer domain.Summarizer

	transactions *index.Index
	policies     *index.Index

	refreshMu sync.Mutex
	mu        sync.RWMutex
	summary   string
}

// Option customises an Assistant.
type Option func(*options)

type options struct {
	generator    domain.Generator
	generatorSet bool
	now          func() time.Time
}

// WithGenerator replaces the configured generator; nil disables generation.
func WithGenerator(g domain.Generator) Option {
	return func(o *options) {
		o.generator = g
		o.generatorSet = true
	}
}

// WithClock overrides the clock used for direct-compute windows.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New assembles the assistant from configuration. Indexes are empty until
// Refresh is called.
func New(cfg *config.AppConfig, opts ...Option) (*Assistant, error) {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	ch, err := chunker.New(cfg.Chunker)
	if err != nil {
		return nil, err
	}
	sum, err := summarizer.New(cfg.Summarizer)
	if err != nil {
		return nil, err
	}

	transactions, err := newIndex(cfg, domain.TargetTransactions.String(), ch)
	if err != nil {
		return nil, err
	}
	policies, err := newIndex(cfg, domain.TargetPolicies.String(), ch)
	if err != nil {
		transactions.Close()
		return nil, err
	}

	gen := o.generator
	if !o.generatorSet {
		gen, err = generation.New(cfg.Generator)
		if err != nil {
			slog.Warn("generation unavailable, answers fall back to retrieved passages", "reason", err)
			gen = nil
		}
	}

	facade := retrieval.NewFacade()
	facade.Register(domain.TargetTransactions, transactions)
	facade.Register(domain.TargetPolicies, policies)

	calculator := aggregate.New(aggregate.WithClock(o.now))
	comp := composer.New(facade, calculator,
		composer.WithGenerator(gen),
		composer.WithTimeout(time.Duration(cfg.Generator.TimeoutSecs)*time.Second),
		composer.WithTopK(cfg.Index.TopK),
	)
	return &Assistant{
		cfg:          cfg,
		router:       router.New(cfg.Router.ExtraPolicyKeywords...),
		facade:       facade,
		calculator:   calculator,
		composer:     comp,
		history:      history.New(cfg.History.MaxEntries),
		summarizer:   sum,
		transactions: transactions,
		policies:     policies,
	}, nil
}

func newIndex(cfg *config.AppConfig, name string, ch domain.Chunker) (*index.Index, error) {
	emb, err := embedding.New(cfg.Embedder)
	if err != nil {
		return nil, err
	}
	store, err := vectorstore.New(cfg.VectorStore, cfg.Index.Dir, name)
	if err != nil {
		return nil, err
	}
	return index.New(name, emb, store, ch), nil
}

// Refresh loads both corpus snapshots, reuses persisted indexes whose
// fingerprint still matches (unless force is set) and rebuilds the rest.
// A missing snapshot file is indexed as an empty corpus.
func (a *Assistant) Refresh(ctx context.Context, force bool, progress Progress) (RefreshReport, error) {
	a.refreshMu.Lock()
	defer a.refreshMu.Unlock()

	start := time.Now()
	report := RefreshReport{
		TransactionsPath: a.cfg.TransactionsFile(),
		PoliciesPath:     a.cfg.Corpora.Policies.Path,
	}

	table, err := corpus.LoadTable(report.TransactionsPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		slog.Warn("transactions snapshot missing, indexing empty corpus", "path", report.TransactionsPath)
		table = &corpus.Table{Path: report.TransactionsPath, Fingerprint: "missing"}
	case err != nil:
		return report, fmt.Errorf("loading transactions: %w", err)
	}
	a.calculator.Load(table)
	report.TransactionRows = len(table.Rows)

	report.TransactionsReused, err = a.ensure(ctx, a.transactions, table.Documents(), table.Fingerprint, force, progress)
	if err != nil {
		return report, fmt.Errorf("indexing transactions: %w", err)
	}
	report.TransactionPassages = a.transactions.Len()

	var policyDocs []domain.Document
	policyFingerprint := "missing"
	policy, err := corpus.LoadPolicy(report.PoliciesPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		slog.Warn("policy document missing, indexing empty corpus", "path", report.PoliciesPath)
	case err != nil:
		return report, fmt.Errorf("loading policies: %w", err)
	default:
		policyDocs = []domain.Document{policy.Document}
		policyFingerprint = policy.Fingerprint
	}

	report.PoliciesReused, err = a.ensure(ctx, a.policies, policyDocs, policyFingerprint, force, progress)
	if err != nil {
		return report, fmt.Errorf("indexing policies: %w", err)
	}
	report.PolicyPassages = a.policies.Len()

	summary := ""
	if policy != nil {
		summary, err = a.summarizer.Summarize(policy.Document.Content, a.cfg.Summarizer.MaxSentences)
		if err != nil {
			slog.Warn("summarizing policies failed", "error", err)
		}
	}
	a.mu.Lock()
	a.summary = summary
	a.mu.Unlock()
	report.Summary = summary
	report.Duration = time.Since(start)

	slog.Info("corpora refreshed",
		"transaction_rows", report.TransactionRows,
		"transaction_passages", report.TransactionPassages,
		"policy_passages", report.PolicyPassages,
		"transactions_reused", report.TransactionsReused,
		"policies_reused", report.PoliciesReused,
		"duration", report.Duration)
	return report, nil
}

func (a *Assistant) ensure(ctx context.Context, idx *index.Index, docs []domain.Document, fingerprint string, force bool, progress Progress) (bool, error) {
	var p index.Progress
	if progress != nil {
		name := idx.Name()
		p = func(done, total int) { progress(name, done, total) }
	}
	if force {
		return false, idx.Build(ctx, docs, fingerprint, p)
	}
	return idx.Ensure(ctx, docs, fingerprint, p)
}

// Ask routes and answers one question and records it in the history.
// The only error is domain.ErrEmptyQuery.
func (a *Assistant) Ask(ctx context.Context, question string) (domain.AnswerResult, error) {
	q := strings.TrimSpace(question)
	if q == "" {
		return domain.AnswerResult{}, domain.ErrEmptyQuery
	}
	decision := a.router.Route(q)
	res := a.composer.Compose(ctx, q, decision)
	a.history.Append(q, res)
	slog.Debug("question answered", "route", decision.String(), "mode", res.Mode.String(), "passages", len(res.Passages))
	return res, nil
}

// RunQuery is the presentation-layer boundary: it never fails. Blank
// questions get EmptyQueryWarning and no passages.
func (a *Assistant) RunQuery(ctx context.Context, question string) (string, []string) {
	res, err := a.Ask(ctx, question)
	if err != nil {
		return EmptyQueryWarning, []string{}
	}
	return res.Text, res.PassageTexts()
}

// Route exposes the routing decision without answering.
func (a *Assistant) Route(question string) domain.RouteDecision {
	return a.router.Route(strings.TrimSpace(question))
}

// History returns up to n entries, most recent first.
func (a *Assistant) History(n int) []history.Entry { return a.history.Recent(n) }

// ClearHistory empties the conversation log.
func (a *Assistant) ClearHistory() { a.history.Clear() }

// Summary returns the extractive summary of the policy document.
func (a *Assistant) Summary() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.summary
}

// HasGenerator reports whether answers can be generated.
func (a *Assistant) HasGenerator() bool { return a.composer.HasGenerator() }

// Ready reports whether both indexes are built.
func (a *Assistant) Ready() bool { return a.transactions.Built() && a.policies.Built() }

// Watch refreshes the indexes whenever a snapshot file changes. It blocks
// until ctx is done.
func (a *Assistant) Watch(ctx context.Context, debounce time.Duration) error {
	paths := []string{a.cfg.Corpora.Transactions.Path, a.cfg.Corpora.Transactions.SamplePath, a.cfg.Corpora.Policies.Path}
	w, err := corpus.NewWatcher(paths, debounce)
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Stop()

	changes, err := w.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watching corpora: %w", err)
	}
	slog.Info("watching corpus snapshots", "paths", paths)
	for change := range changes {
		slog.Info("corpus snapshot changed", "paths", change.Paths)
		if _, err := a.Refresh(ctx, false, nil); err != nil {
			slog.Error("refresh after change failed", "error", err)
		}
	}
	return ctx.Err()
}

// Close releases index stores.
func (a *Assistant) Close() error {
	return errors.Join(a.transactions.Close(), a.policies.Close())
}
