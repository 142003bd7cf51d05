package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Index.TopK)
	assert.Equal(t, 10, cfg.History.MaxEntries)
	assert.Equal(t, "tfidf", cfg.Embedder.Type)
	assert.Equal(t, "GOOGLE_API_KEY", cfg.Generator.OpenAI.APIKeyEnv)
}

func TestLoad_AppliesDefaultsToPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
corpora:
  policies:
    path: policies.pdf
generator:
  type: openai
  openai:
    model: gpt-4o
embedder:
  type: openai
  openai: {}
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "policies.pdf", cfg.Corpora.Policies.Path)
	assert.Equal(t, 1000, cfg.Chunker.ChunkSize)
	assert.Equal(t, 200, cfg.Chunker.ChunkOverlap)
	assert.Equal(t, 30, cfg.Generator.TimeoutSecs)
	assert.Equal(t, "gpt-4o", cfg.Generator.OpenAI.Model)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Generator.OpenAI.APIKeyEnv)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedder.OpenAI.Model)
	assert.Equal(t, 32, cfg.Embedder.OpenAI.BatchSize)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("index: [unclosed"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestSave_RoundTripsThroughLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Index.TopK = 7
	cfg.Router.ExtraPolicyKeywords = []string{"uniform"}
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, loaded.Index.TopK)
	assert.Equal(t, []string{"uniform"}, loaded.Router.ExtraPolicyKeywords)
}

func TestTransactionsFile_PrefersExistingSample(t *testing.T) {
	dir := t.TempDir()
	sample := filepath.Join(dir, "sample.csv")
	cfg := Default()
	cfg.Corpora.Transactions = TransactionsCorpusConfig{Path: filepath.Join(dir, "full.csv"), SamplePath: sample}

	assert.Equal(t, filepath.Join(dir, "full.csv"), cfg.TransactionsFile())

	require.NoError(t, os.WriteFile(sample, []byte("date_time,total_amount\n"), 0o644))
	assert.Equal(t, sample, cfg.TransactionsFile())
}
