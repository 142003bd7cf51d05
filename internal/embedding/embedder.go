package embedding

import (
	"context"
	"fmt"
	"time"

	"grocerai/internal/config"
	"grocerai/internal/domain"
	"grocerai/internal/embedding/openai"
	"grocerai/internal/embedding/tfidf"
)

// Embedder converts free text into a numeric vector representation.
// Implementations may require a preparation phase over the corpus.
type Embedder = domain.Embedder

// BatchEmbedder is implemented by embedders that can embed many texts per call.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
}

// New builds a fresh embedder for one corpus from configuration. Each corpus
// index needs its own instance because TF-IDF learns a per-corpus vocabulary.
func New(cfg config.EmbedderConfig) (Embedder, error) {
	switch cfg.Type {
	case "tfidf", "":
		return tfidf.NewEmbedderWithLimit(cfg.MaxFeatures), nil
	case "openai":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("openai embedder config missing")
		}
		client, err := openai.NewClient(openai.Config{
			BaseURL:   cfg.OpenAI.BaseURL,
			APIKeyEnv: cfg.OpenAI.APIKeyEnv,
			Model:     cfg.OpenAI.Model,
			Timeout:   time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
			BatchSize: cfg.OpenAI.BatchSize,
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedder init failed: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
	}
}
