package retrieval

import (
	"context"
	"errors"
	"sync"

	"grocerai/internal/domain"
)

// DefaultK is the number of passages fetched per question.
const DefaultK = 5

// Searcher is a corpus index.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]domain.SearchResult, error)
}

// Facade maps route targets to corpus indexes.
type Facade struct {
	mu      sync.RWMutex
	indexes map[domain.Target]Searcher
}

func NewFacade() *Facade {
	return &Facade{indexes: make(map[domain.Target]Searcher)}
}

// Register binds a corpus index to a route target, replacing any previous binding.
func (f *Facade) Register(target domain.Target, s Searcher) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexes[target] = s
}

// Retrieve returns at most k passages from the target corpus, best first.
// Every failure is reported as a *domain.RetrievalError with no passages.
func (f *Facade) Retrieve(ctx context.Context, target domain.Target, query string, k int) ([]domain.Passage, error) {
	if k <= 0 {
		k = DefaultK
	}
	f.mu.RLock()
	searcher, ok := f.indexes[target]
	f.mu.RUnlock()
	if !ok || searcher == nil {
		return nil, &domain.RetrievalError{Corpus: target.String(), Err: errors.New("no index registered")}
	}

	results, err := searcher.Search(ctx, query, k)
	if err != nil {
		return nil, &domain.RetrievalError{Corpus: target.String(), Err: err}
	}
	if len(results) > k {
		results = results[:k]
	}
	return domain.Passages(results), nil
}
