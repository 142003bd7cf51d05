package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grocerai/internal/domain"
)

func openStore(t *testing.T, dir string) *Storage {
	t.Helper()
	s, err := Open(dir, "policies")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStorage_SearchAndPassages(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, t.TempDir())
	require.NoError(t, s.Init(ctx, 2))
	require.NoError(t, s.Upsert(ctx,
		[]domain.Passage{{SourceID: "p:0", Content: "refunds"}, {SourceID: "p:1", Content: "leave"}},
		[][]float64{{1, 0}, {0, 1}},
	))

	results, err := s.Search(ctx, []float64{0.1, 0.9}, 5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "leave", results[0].Passage.Content)
	assert.Greater(t, results[0].Score, results[1].Score)

	passages, err := s.Passages(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.Passage{{SourceID: "p:0", Content: "refunds"}, {SourceID: "p:1", Content: "leave"}}, passages)
}

func TestStorage_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first, err := Open(dir, "policies")
	require.NoError(t, err)
	require.NoError(t, first.Init(ctx, 1))
	require.NoError(t, first.Upsert(ctx, []domain.Passage{{SourceID: "p:0", Content: "text"}}, [][]float64{{1}}))
	require.NoError(t, first.SaveFingerprint(ctx, "abc"))
	require.NoError(t, first.Close())

	second := openStore(t, dir)
	fp, err := second.Fingerprint(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc", fp)
	passages, err := second.Passages(ctx)
	require.NoError(t, err)
	assert.Len(t, passages, 1)
}

func TestStorage_InitResetsFingerprint(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, t.TempDir())

	fp, err := s.Fingerprint(ctx)
	require.NoError(t, err)
	assert.Empty(t, fp)

	require.NoError(t, s.Init(ctx, 1))
	require.NoError(t, s.SaveFingerprint(ctx, "v1"))
	require.NoError(t, s.Init(ctx, 1))
	fp, err = s.Fingerprint(ctx)
	require.NoError(t, err)
	assert.Empty(t, fp)
}

func TestStorage_UpsertErrors(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, t.TempDir())
	assert.Error(t, s.Upsert(ctx, []domain.Passage{{SourceID: "x"}}, [][]float64{{1}}), "not initialized")

	require.NoError(t, s.Init(ctx, 2))
	assert.Error(t, s.Upsert(ctx, []domain.Passage{{SourceID: "x"}}, [][]float64{{1}}))
	assert.Error(t, s.Upsert(ctx, []domain.Passage{{SourceID: "x"}}, nil))
}

func TestStorage_UpsertReplacesBySourceID(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, t.TempDir())
	require.NoError(t, s.Init(ctx, 1))
	require.NoError(t, s.Upsert(ctx, []domain.Passage{{SourceID: "x", Content: "old"}}, [][]float64{{1}}))
	require.NoError(t, s.Upsert(ctx, []domain.Passage{{SourceID: "x", Content: "new"}}, [][]float64{{1}}))

	passages, err := s.Passages(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.Passage{{SourceID: "x", Content: "new"}}, passages)
}
