package vectorstore

import (
	"fmt"
	"time"

	"grocerai/internal/config"
	"grocerai/internal/vectorstore/memory"
	"grocerai/internal/vectorstore/qdrant"
	"grocerai/internal/vectorstore/sqlite"
)

// New opens the configured store for one corpus. Persistent backends keep
// each corpus apart: sqlite uses <dir>/<corpus>.db, qdrant a
// <collection>_<corpus> collection.
func New(cfg config.VectorStoreConfig, dir, corpus string) (Storage, error) {
	switch cfg.Type {
	case "memory":
		return memory.NewStorage(), nil
	case "sqlite", "":
		store, err := sqlite.Open(dir, corpus)
		if err != nil {
			return nil, fmt.Errorf("sqlite store for %s: %w", corpus, err)
		}
		return store, nil
	case "qdrant":
		if cfg.Qdrant == nil {
			return nil, fmt.Errorf("qdrant config missing")
		}
		collection := cfg.Qdrant.Collection
		if collection == "" {
			collection = "grocerai"
		}
		return qdrant.NewStorage(qdrant.Config{
			URL:        cfg.Qdrant.URL,
			APIKey:     cfg.Qdrant.APIKey,
			Collection: collection + "_" + corpus,
			Timeout:    time.Duration(cfg.Qdrant.TimeoutSecs) * time.Second,
		}), nil
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.Type)
	}
}
