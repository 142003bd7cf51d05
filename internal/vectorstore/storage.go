package vectorstore

import (
	"context"

	"grocerai/internal/domain"
)

// Storage persists passage vectors for one corpus and supports similarity search.
// Search returns results ordered by descending score.
type Storage interface {
	Init(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, passages []domain.Passage, vectors [][]float64) error
	Search(ctx context.Context, vector []float64, topK int) ([]domain.SearchResult, error)
	Clear(ctx context.Context) error
}

// Persistent is implemented by stores that survive process restarts. The
// fingerprint recorded at build time decides whether an index is reused.
type Persistent interface {
	Fingerprint(ctx context.Context) (string, error)
	SaveFingerprint(ctx context.Context, fingerprint string) error
	Passages(ctx context.Context) ([]domain.Passage, error)
}
