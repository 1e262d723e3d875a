package badger

import (
	"context"
	"testing"

	"github.com/poiesic/journalit/core"
	"github.com/poiesic/journalit/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedVectors(t *testing.T, index *VectorIndex) {
	t.Helper()
	ctx := context.Background()
	vectors := map[core.ID][]float32{
		"a": {1, 0, 0},
		"b": {0.9, 0.1, 0},
		"c": {0, 1, 0},
		"d": {-1, 0, 0},
	}
	for id, vec := range vectors {
		require.NoError(t, index.UpsertEmbedding(ctx, core.RecordKindJournal, "u1", id, vec))
	}
	require.NoError(t, index.UpsertEmbedding(ctx, core.RecordKindJournal, "u2", "x", []float32{1, 0, 0}))
	require.NoError(t, index.UpsertEmbedding(ctx, core.RecordKindConversation, "u1", "t1", []float32{1, 0, 0}))
}

func matchIDs(matches []core.SimilarityMatch) []core.ID {
	ids := make([]core.ID, len(matches))
	for i, m := range matches {
		ids[i] = m.Id
	}
	return ids
}

func TestVectorIndex_FindSimilar(t *testing.T) {
	stores := newTestStores(t)
	seedVectors(t, stores.Vectors)
	ctx := context.Background()

	t.Run("ordered by similarity", func(t *testing.T) {
		got, err := stores.Vectors.FindSimilar(ctx, core.RecordKindJournal, "u1", []float32{1, 0, 0}, 10)
		require.NoError(t, err)
		assert.Equal(t, []core.ID{"a", "b", "c", "d"}, matchIDs(got))
		assert.InDelta(t, 1.0, got[0].Score, 1e-6)
		assert.InDelta(t, 0.0, got[2].Score, 1e-6)
		assert.InDelta(t, -1.0, got[3].Score, 1e-6)
	})

	t.Run("limit", func(t *testing.T) {
		got, err := stores.Vectors.FindSimilar(ctx, core.RecordKindJournal, "u1", []float32{1, 0, 0}, 2)
		require.NoError(t, err)
		assert.Equal(t, []core.ID{"a", "b"}, matchIDs(got))
	})

	t.Run("scoped by kind", func(t *testing.T) {
		got, err := stores.Vectors.FindSimilar(ctx, core.RecordKindConversation, "u1", []float32{1, 0, 0}, 10)
		require.NoError(t, err)
		assert.Equal(t, []core.ID{"t1"}, matchIDs(got))
	})

	t.Run("scoped by user", func(t *testing.T) {
		got, err := stores.Vectors.FindSimilar(ctx, core.RecordKindJournal, "u2", []float32{0, 1, 0}, 10)
		require.NoError(t, err)
		assert.Equal(t, []core.ID{"x"}, matchIDs(got))
	})

	t.Run("zero limit", func(t *testing.T) {
		got, err := stores.Vectors.FindSimilar(ctx, core.RecordKindJournal, "u1", []float32{1, 0, 0}, 0)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("negative limit", func(t *testing.T) {
		_, err := stores.Vectors.FindSimilar(ctx, core.RecordKindJournal, "u1", []float32{1, 0, 0}, -1)
		assert.ErrorIs(t, err, storage.ErrInvalidQuery)
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		_, err := stores.Vectors.FindSimilar(ctx, core.RecordKindJournal, "u1", []float32{1, 0}, 10)
		assert.ErrorIs(t, err, storage.ErrDimensionMismatch)
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := stores.Vectors.FindSimilar(ctx, core.RecordKind("memo"), "u1", []float32{1, 0, 0}, 10)
		assert.ErrorIs(t, err, core.ErrInvalidRecordKind)
	})
}

func TestVectorIndex_UpsertReplaces(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()

	require.NoError(t, stores.Vectors.UpsertEmbedding(ctx, core.RecordKindJournal, "u1", "a", []float32{1, 0}))
	require.NoError(t, stores.Vectors.UpsertEmbedding(ctx, core.RecordKindJournal, "u1", "b", []float32{0.5, 0.5}))
	require.NoError(t, stores.Vectors.UpsertEmbedding(ctx, core.RecordKindJournal, "u1", "a", []float32{0, 1}))

	got, err := stores.Vectors.FindSimilar(ctx, core.RecordKindJournal, "u1", []float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Equal(t, []core.ID{"b", "a"}, matchIDs(got))
}

func TestVectorIndex_Delete(t *testing.T) {
	stores := newTestStores(t)
	seedVectors(t, stores.Vectors)
	ctx := context.Background()

	require.NoError(t, stores.Vectors.DeleteEmbedding(ctx, core.RecordKindJournal, "u1", "a"))

	got, err := stores.Vectors.FindSimilar(ctx, core.RecordKindJournal, "u1", []float32{1, 0, 0}, 1)
	require.NoError(t, err)
	assert.Equal(t, []core.ID{"b"}, matchIDs(got))

	// Deleting a missing embedding is not an error
	assert.NoError(t, stores.Vectors.DeleteEmbedding(ctx, core.RecordKindJournal, "u1", "missing"))
}

func TestVectorIndex_RejectsMissingIdentity(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()

	tests := []struct {
		name string
		user string
		id   core.ID
		want error
	}{
		{name: "empty user", user: "", id: "a", want: core.ErrEmptyUserID},
		{name: "empty id", user: "u1", id: "", want: core.ErrEmptyID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := stores.Vectors.UpsertEmbedding(ctx, core.RecordKindJournal, tt.user, tt.id, []float32{1})
			assert.ErrorIs(t, err, storage.ErrInvalidQuery)
			assert.ErrorIs(t, err, tt.want)

			err = stores.Vectors.DeleteEmbedding(ctx, core.RecordKindJournal, tt.user, tt.id)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float32
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 1}, []float32{-1, -1}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cosineSimilarity(tt.a, tt.b, norm(tt.a))
			assert.InDelta(t, tt.want, got, 1e-6)
		})
	}
}
