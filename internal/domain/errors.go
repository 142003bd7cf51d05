package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyQuery is returned for questions that are blank after trimming.
	ErrEmptyQuery = errors.New("empty query")
	// ErrRetrieval marks an unreachable or corrupt corpus index.
	ErrRetrieval = errors.New("retrieval failed")
	// ErrGeneration marks a failed or timed out generation call.
	ErrGeneration = errors.New("generation failed")
	// ErrNoDataFound marks an answer with no passages and no generation.
	ErrNoDataFound = errors.New("no data found")
	// ErrIndexNotBuilt is returned by searches against an index that has
	// not been built or loaded yet.
	ErrIndexNotBuilt = errors.New("index not built")
)

// RetrievalError wraps a failure of one corpus index.
type RetrievalError struct {
	Corpus string
	Err    error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieval from %s: %v", e.Corpus, e.Err)
}

func (e *RetrievalError) Unwrap() []error { return []error{ErrRetrieval, e.Err} }

// GenerationError wraps a failure of the generation capability.
type GenerationError struct {
	Provider string
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation via %s: %v", e.Provider, e.Err)
}

func (e *GenerationError) Unwrap() []error { return []error{ErrGeneration, e.Err} }
