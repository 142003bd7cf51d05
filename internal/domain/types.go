package domain

import "context"

// Document is a single source unit loaded from a corpus snapshot: one
// transaction row or one policy file.
type Document struct {
	ID      string
	Path    string
	Content string
}

// Passage is an immutable unit of retrievable text with provenance.
// SourceID identifies the originating corpus, document and position.
type Passage struct {
	SourceID string
	Content  string
}

// SearchResult represents a matching passage with a relevance score.
type SearchResult struct {
	Passage Passage
	Score   float64
}

// Passages strips scores, keeping order.
func Passages(results []SearchResult) []Passage {
	out := make([]Passage, len(results))
	for i, r := range results {
		out[i] = r.Passage
	}
	return out
}

// Embedder converts free text into a numeric vector representation.
// Implementations may require a preparation phase over the corpus.
type Embedder interface {
	Name() string
	Prepare(corpus []string) error
	Dimension() int
	Embed(text string) ([]float64, error)
}

// Chunker splits documents into passages suitable for retrieval indexing.
type Chunker interface {
	Chunk(document Document) ([]Passage, error)
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}

// Generator is the narrow generation capability: one prompt in, one text
// response out. A nil Generator means the capability is absent.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// Retriever fetches the top-k passages for a query from one corpus target.
type Retriever interface {
	Retrieve(ctx context.Context, target Target, query string, k int) ([]Passage, error)
}
