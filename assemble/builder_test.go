package assemble

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/poiesic/journalit/ai/mock"
	"github.com/poiesic/journalit/core"
	"github.com/poiesic/journalit/search"
	"github.com/poiesic/journalit/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type finderFunc func(ctx context.Context, userID, query string, topK int) ([]*core.JournalEntry, error)

func (f finderFunc) FindJournals(ctx context.Context, userID, query string, topK int) ([]*core.JournalEntry, error) {
	return f(ctx, userID, query, topK)
}

func setupTestStores(t *testing.T) *badger.Stores {
	t.Helper()
	stores, err := badger.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { stores.Close() })
	return stores
}

func seedTurns(t *testing.T, stores *badger.Stores, userID string, n int) {
	t.Helper()
	base := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)
	for i := range n {
		_, err := stores.Conversations.AddConversationTurns(context.Background(), &core.ConversationTurn{
			UserId:      userID,
			UserMessage: fmt.Sprintf("message %d", i),
			AIResponse:  "response",
			Summary:     fmt.Sprintf("turn %d", i),
			Metadata:    core.Metadata{Mood: "calm"},
			CreatedAt:   base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}
}

func TestNewBuilder(t *testing.T) {
	stores := setupTestStores(t)
	finder := finderFunc(func(context.Context, string, string, int) ([]*core.JournalEntry, error) { return nil, nil })

	b, err := NewBuilder(finder, stores.Conversations)
	require.NoError(t, err)
	assert.Equal(t, DefaultTopK, b.topK)
	assert.Equal(t, DefaultRecentTurns, b.recentTurns)

	b, err = NewBuilder(finder, stores.Conversations, WithTopK(2), WithRecentTurns(0), WithLogger(nil))
	require.NoError(t, err)
	assert.Equal(t, 2, b.topK)
	assert.Zero(t, b.recentTurns)

	_, err = NewBuilder(finder, stores.Conversations, WithTopK(-1))
	assert.ErrorIs(t, err, ErrInvalidOption)
	_, err = NewBuilder(finder, stores.Conversations, WithRecentTurns(-1))
	assert.ErrorIs(t, err, ErrInvalidOption)

	_, err = NewBuilder(nil, stores.Conversations)
	assert.Equal(t, ErrJournalFinderRequired, err)
	_, err = NewBuilder(finder, nil)
	assert.Equal(t, ErrConversationRepositoryRequired, err)
}

func TestBuilder_Build(t *testing.T) {
	stores := setupTestStores(t)
	seedTurns(t, stores, "u1", 5)
	seedTurns(t, stores, "u2", 2)

	created := time.Date(2025, 9, 10, 8, 0, 0, 0, time.UTC)
	var gotTopK int
	finder := finderFunc(func(_ context.Context, userID, query string, topK int) ([]*core.JournalEntry, error) {
		gotTopK = topK
		return []*core.JournalEntry{
			{Id: "j2", UserId: userID, Text: "full text", Summary: "second", CreatedAt: created},
			{Id: "j1", UserId: userID, Text: "full text", Summary: "first", Metadata: core.Metadata{Tags: []string{"work"}}},
		}, nil
	})

	b, err := NewBuilder(finder, stores.Conversations)
	require.NoError(t, err)

	out, err := b.Build(context.Background(), "u1", "how was work")
	require.NoError(t, err)

	assert.Equal(t, DefaultTopK, gotTopK)
	assert.Equal(t, []JournalSummary{
		{JournalId: "j2", Summary: "second", CreatedAt: created},
		{JournalId: "j1", Summary: "first", Metadata: core.Metadata{Tags: []string{"work"}}},
	}, out.Journals)

	require.Len(t, out.Conversations, DefaultRecentTurns)
	assert.Equal(t, "turn 4", out.Conversations[0].Summary, "newest first")
	assert.Equal(t, "turn 2", out.Conversations[2].Summary)
	assert.Equal(t, "calm", out.Conversations[0].Metadata.Mood)
}

func TestBuilder_Build_UnboundedRecentTurns(t *testing.T) {
	stores := setupTestStores(t)
	seedTurns(t, stores, "u1", 4)
	finder := finderFunc(func(context.Context, string, string, int) ([]*core.JournalEntry, error) { return nil, nil })

	b, err := NewBuilder(finder, stores.Conversations, WithRecentTurns(math.MaxInt))
	require.NoError(t, err)

	out, err := b.Build(context.Background(), "u1", "everything")
	require.NoError(t, err)
	require.Len(t, out.Conversations, 4)
	assert.Equal(t, "turn 3", out.Conversations[0].Summary)
}

func TestBuilder_Build_EmptyHalves(t *testing.T) {
	stores := setupTestStores(t)
	called := false
	finder := finderFunc(func(context.Context, string, string, int) ([]*core.JournalEntry, error) {
		called = true
		return nil, nil
	})

	t.Run("nothing stored", func(t *testing.T) {
		b, err := NewBuilder(finder, stores.Conversations)
		require.NoError(t, err)
		out, err := b.Build(context.Background(), "u1", "anything")
		require.NoError(t, err)
		assert.NotNil(t, out.Journals)
		assert.Empty(t, out.Journals)
		assert.NotNil(t, out.Conversations)
		assert.Empty(t, out.Conversations)
	})

	t.Run("zero topK skips the finder", func(t *testing.T) {
		called = false
		b, err := NewBuilder(finder, stores.Conversations, WithTopK(0))
		require.NoError(t, err)
		_, err = b.Build(context.Background(), "u1", "anything")
		require.NoError(t, err)
		assert.False(t, called)
	})
}

func TestBuilder_Build_Errors(t *testing.T) {
	stores := setupTestStores(t)
	boom := errors.New("vector index down")
	failing := finderFunc(func(context.Context, string, string, int) ([]*core.JournalEntry, error) {
		return nil, boom
	})

	b, err := NewBuilder(failing, stores.Conversations)
	require.NoError(t, err)

	_, err = b.Build(context.Background(), "u1", "query")
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "find journals")

	_, err = b.Build(context.Background(), "", "query")
	assert.ErrorIs(t, err, core.ErrEmptyUserID)
}

func TestBuilder_WithSearcher(t *testing.T) {
	stores := setupTestStores(t)
	ctx := context.Background()
	seedTurns(t, stores, "u1", 1)

	added, err := stores.Journals.AddJournalEntries(ctx,
		&core.JournalEntry{UserId: "u1", Text: "t", Summary: "argued with sam", Metadata: core.Metadata{People: []string{"sam"}}},
		&core.JournalEntry{UserId: "u1", Text: "t", Summary: "quiet evening reading"},
	)
	require.NoError(t, err)
	for _, e := range added {
		require.NoError(t, stores.Vectors.UpsertEmbedding(ctx, core.RecordKindJournal, "u1", e.Id,
			mock.DeterministicVector(e.Summary, mock.DefaultDimensions)))
	}

	searcher, err := search.NewSearcher(
		search.NewVectorSource(stores.Vectors, core.RecordKindJournal),
		search.NewAttributeSource(stores.Journals),
		stores.Journals,
		mock.NewMockProvider(),
	)
	require.NoError(t, err)
	defer searcher.Close()

	b, err := NewBuilder(searcher, stores.Conversations, WithTopK(1))
	require.NoError(t, err)

	out, err := b.Build(ctx, "u1", "what happened with @sam")
	require.NoError(t, err)
	require.Len(t, out.Journals, 1)
	assert.Equal(t, added[0].Id, out.Journals[0].JournalId)
	assert.Equal(t, "argued with sam", out.Journals[0].Summary)
	require.Len(t, out.Conversations, 1)
	assert.Equal(t, "turn 0", out.Conversations[0].Summary)
}
