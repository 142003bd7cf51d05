// Package index implements one searchable corpus: chunking, embedding and
// vector storage, with fingerprint-based reuse of persisted builds.
package index

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"grocerai/internal/domain"
	"grocerai/internal/embedding"
	"grocerai/internal/embedding/tfidf"
	"grocerai/internal/vectorstore"
)

const upsertBatch = 256

// Progress is called after each embedding step with the number of passages
// embedded so far.
type Progress func(done, total int)

// Index is the corpus index for one named corpus. Searches share a read
// lock; builds take the write lock.
type Index struct {
	name     string
	embedder domain.Embedder
	store    vectorstore.Storage
	chunker  domain.Chunker

	mu       sync.RWMutex
	passages []domain.Passage
	built    bool
	// lexical is set when the corpus has no vocabulary to embed; searches
	// then rank passages by token overlap only.
	lexical  bool
}

// New creates an unbuilt index.
func New(name string, embedder domain.Embedder, store vectorstore.Storage, chunker domain.Chunker) *Index {
	return &Index{name: name, embedder: embedder, store: store, chunker: chunker}
}

func (i *Index) Name() string { return i.name }

// Len returns the number of indexed passages.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.passages)
}

// Built reports whether the index has been built or loaded.
func (i *Index) Built() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.built
}

// Ensure reuses a persisted build whose fingerprint matches and rebuilds
// otherwise. It reports whether the persisted build was reused.
func (i *Index) Ensure(ctx context.Context, docs []domain.Document, fingerprint string, progress Progress) (bool, error) {
	persistent, ok := i.store.(vectorstore.Persistent)
	if ok && fingerprint != "" {
		stored, err := persistent.Fingerprint(ctx)
		if err != nil {
			slog.Warn("reading stored fingerprint failed, rebuilding", "corpus", i.name, "error", err)
		} else if stored == i.versioned(fingerprint) {
			err := i.load(ctx, persistent)
			if err == nil {
				slog.Info("reusing persisted index", "corpus", i.name, "passages", i.Len())
				return true, nil
			}
			slog.Warn("loading persisted index failed, rebuilding", "corpus", i.name, "error", err)
		}
	}
	return false, i.Build(ctx, docs, fingerprint, progress)
}

// Build chunks, embeds and stores docs, replacing any previous contents.
func (i *Index) Build(ctx context.Context, docs []domain.Document, fingerprint string, progress Progress) error {
	var passages []domain.Passage
	for _, d := range docs {
		chunks, err := i.chunker.Chunk(d)
		if err != nil {
			return fmt.Errorf("chunking %s: %w", d.ID, err)
		}
		passages = append(passages, chunks...)
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	i.built = false
	i.lexical = false
	i.passages = nil

	if len(passages) == 0 {
		if err := i.store.Clear(ctx); err != nil {
			return fmt.Errorf("clearing %s store: %w", i.name, err)
		}
		if err := i.saveFingerprint(ctx, fingerprint); err != nil {
			return err
		}
		i.built = true
		slog.Info("corpus is empty", "corpus", i.name)
		return nil
	}

	texts := make([]string, len(passages))
	for j, p := range passages {
		texts[j] = p.Content
	}
	err := i.embedder.Prepare(texts)
	if errors.Is(err, tfidf.ErrNoTokens) {
		// No fingerprint is saved, so the next Refresh rebuilds.
		if err := i.store.Clear(ctx); err != nil {
			return fmt.Errorf("clearing %s store: %w", i.name, err)
		}
		i.passages = passages
		i.lexical = true
		i.built = true
		slog.Warn("corpus has no vocabulary, using lexical search only", "corpus", i.name, "passages", len(passages))
		return nil
	}
	if err != nil {
		return fmt.Errorf("preparing %s embedder: %w", i.embedder.Name(), err)
	}
	vectors, err := i.embedAll(ctx, texts, progress)
	if err != nil {
		return err
	}
	dimension := len(vectors[0])
	if err := i.store.Init(ctx, dimension); err != nil {
		return fmt.Errorf("initializing %s store: %w", i.name, err)
	}
	for start := 0; start < len(passages); start += upsertBatch {
		end := min(start+upsertBatch, len(passages))
		if err := i.store.Upsert(ctx, passages[start:end], vectors[start:end]); err != nil {
			return fmt.Errorf("storing %s passages: %w", i.name, err)
		}
	}
	if err := i.saveFingerprint(ctx, fingerprint); err != nil {
		return err
	}
	i.passages = passages
	i.built = true
	slog.Info("index built", "corpus", i.name, "passages", len(passages), "dimension", dimension)
	return nil
}

// Search returns up to k passages in descending score order. When the query
// shares no vocabulary with the corpus it falls back to lexical ranking.
func (i *Index) Search(ctx context.Context, query string, k int) ([]domain.SearchResult, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if !i.built {
		return nil, domain.ErrIndexNotBuilt
	}
	if len(i.passages) == 0 {
		return nil, nil
	}
	if k <= 0 {
		k = 5
	}
	if i.lexical {
		return lexicalSearch(i.passages, query, k), nil
	}

	vec, err := i.embedder.Embed(query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if isZero(vec) {
		return lexicalSearch(i.passages, query, k), nil
	}
	res, err := i.store.Search(ctx, vec, k)
	if err != nil {
		return nil, err
	}
	allZero := true
	for _, r := range res {
		if r.Score > 1e-9 {
			allZero = false
			break
		}
	}
	if allZero {
		return lexicalSearch(i.passages, query, k), nil
	}
	if len(res) > k {
		res = res[:k]
	}
	return res, nil
}

// Close releases the underlying store when it holds resources.
func (i *Index) Close() error {
	if c, ok := i.store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (i *Index) load(ctx context.Context, persistent vectorstore.Persistent) error {
	passages, err := persistent.Passages(ctx)
	if err != nil {
		return err
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	if len(passages) > 0 {
		texts := make([]string, len(passages))
		for j, p := range passages {
			texts[j] = p.Content
		}
		if err := i.embedder.Prepare(texts); err != nil {
			return fmt.Errorf("preparing %s embedder: %w", i.embedder.Name(), err)
		}
	}
	i.passages = passages
	i.built = true
	return nil
}

func (i *Index) embedAll(ctx context.Context, texts []string, progress Progress) ([][]float64, error) {
	report := func(done int) {
		if progress != nil {
			progress(done, len(texts))
		}
	}
	if batcher, ok := i.embedder.(embedding.BatchEmbedder); ok {
		vectors, err := batcher.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embedding %s passages: %w", i.name, err)
		}
		if len(vectors) != len(texts) {
			return nil, fmt.Errorf("embedding %s passages: got %d vectors for %d texts", i.name, len(vectors), len(texts))
		}
		report(len(texts))
		return checkVectors(vectors)
	}
	vectors := make([][]float64, len(texts))
	for j, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vec, err := i.embedder.Embed(text)
		if err != nil {
			return nil, fmt.Errorf("embedding %s passage %d: %w", i.name, j, err)
		}
		vectors[j] = vec
		report(j + 1)
	}
	return checkVectors(vectors)
}

func checkVectors(vectors [][]float64) ([][]float64, error) {
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, errors.New("embedder produced empty vectors")
	}
	return vectors, nil
}

func (i *Index) saveFingerprint(ctx context.Context, fingerprint string) error {
	persistent, ok := i.store.(vectorstore.Persistent)
	if !ok || fingerprint == "" {
		return nil
	}
	if err := persistent.SaveFingerprint(ctx, i.versioned(fingerprint)); err != nil {
		return fmt.Errorf("saving %s fingerprint: %w", i.name, err)
	}
	return nil
}

// versioned ties a corpus fingerprint to the embedder that produced the vectors.
func (i *Index) versioned(fingerprint string) string {
	return i.embedder.Name() + "/" + fingerprint
}

func isZero(vec []float64) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}
	return true
}
