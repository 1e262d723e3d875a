package ingestion

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/poiesic/journalit/ai"
	"github.com/poiesic/journalit/ai/mock"
	"github.com/poiesic/journalit/core"
	"github.com/poiesic/journalit/metrics"
	"github.com/poiesic/journalit/storage"
	"github.com/poiesic/journalit/storage/badger"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStores(t *testing.T) *badger.Stores {
	t.Helper()
	stores, err := badger.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { stores.Close() })
	return stores
}

func setupTestPipeline(t *testing.T, opts ...Option) (*Pipeline, *badger.Stores, *mock.MockProvider) {
	t.Helper()
	stores := setupTestStores(t)
	provider := mock.NewMockProvider()
	p, err := NewPipeline(stores.Journals, stores.Conversations, stores.Vectors, provider, opts...)
	require.NoError(t, err)
	t.Cleanup(p.Release)
	return p, stores, provider
}

// similarTo returns the ids the vector index finds for text.
func similarTo(t *testing.T, index storage.VectorIndex, kind core.RecordKind, userID, text string) []core.ID {
	t.Helper()
	matches, err := index.FindSimilar(context.Background(), kind, userID,
		mock.DeterministicVector(text, mock.DefaultDimensions), 10)
	require.NoError(t, err)
	ids := make([]core.ID, len(matches))
	for i, m := range matches {
		ids[i] = m.Id
	}
	return ids
}

func TestNewPipeline(t *testing.T) {
	stores := setupTestStores(t)
	provider := mock.NewMockProvider()

	t.Run("valid configuration", func(t *testing.T) {
		p, err := NewPipeline(stores.Journals, stores.Conversations, stores.Vectors, provider)
		require.NoError(t, err)
		defer p.Release()
		assert.NotNil(t, p.journalEmbeddings)
		assert.NotNil(t, p.turnEmbeddings)
	})

	t.Run("missing dependencies", func(t *testing.T) {
		_, err := NewPipeline(nil, stores.Conversations, stores.Vectors, provider)
		assert.Equal(t, ErrJournalRepositoryRequired, err)

		_, err = NewPipeline(stores.Journals, nil, stores.Vectors, provider)
		assert.Equal(t, ErrConversationRepositoryRequired, err)

		_, err = NewPipeline(stores.Journals, stores.Conversations, nil, provider)
		assert.Equal(t, ErrVectorIndexRequired, err)

		_, err = NewPipeline(stores.Journals, stores.Conversations, stores.Vectors, nil)
		assert.Equal(t, ErrAIProviderRequired, err)
	})
}

func TestPipeline_WithOptions(t *testing.T) {
	stores := setupTestStores(t)
	provider := mock.NewMockProvider()

	t.Run("with pool size", func(t *testing.T) {
		p, err := NewPipeline(stores.Journals, stores.Conversations, stores.Vectors, provider, WithPoolSize(4))
		require.NoError(t, err)
		defer p.Release()
		assert.Equal(t, 4, p.pool.Cap())
	})

	t.Run("with pool size below one", func(t *testing.T) {
		p, err := NewPipeline(stores.Journals, stores.Conversations, stores.Vectors, provider, WithPoolSize(0))
		require.NoError(t, err)
		defer p.Release()
		assert.Equal(t, 1, p.pool.Cap())
	})

	t.Run("with nil logger", func(t *testing.T) {
		p, err := NewPipeline(stores.Journals, stores.Conversations, stores.Vectors, provider, WithLogger(nil))
		require.NoError(t, err)
		defer p.Release()
		assert.NotNil(t, p.logger)
	})

	t.Run("with custom logger", func(t *testing.T) {
		p, err := NewPipeline(stores.Journals, stores.Conversations, stores.Vectors, provider, WithLogger(slog.Default()))
		require.NoError(t, err)
		p.Release()
	})

	t.Run("failing option", func(t *testing.T) {
		failing := func(*Pipeline) error { return errors.New("bad option") }
		_, err := NewPipeline(stores.Journals, stores.Conversations, stores.Vectors, provider, failing)
		assert.EqualError(t, err, "bad option")
	})
}

func TestPipeline_IndexJournal(t *testing.T) {
	p, stores, _ := setupTestPipeline(t)
	ctx := context.Background()

	entry, err := p.IndexJournal(ctx, "u1", "Lunch with @Sam about #work")
	require.NoError(t, err)
	require.NotEmpty(t, entry.Id)
	assert.Equal(t, "u1", entry.UserId)
	assert.NotEmpty(t, entry.Summary)
	assert.Equal(t, []string{"Sam"}, entry.Metadata.People)
	assert.Equal(t, []string{"work"}, entry.Metadata.Tags)

	stored, err := stores.Journals.GetJournalEntry(ctx, "u1", entry.Id)
	require.NoError(t, err)
	assert.Equal(t, entry.Summary, stored.Summary)

	ids, err := stores.Journals.FindByAttributes(ctx, "u1", core.AttributeFilter{People: []string{"Sam"}}, 10)
	require.NoError(t, err)
	assert.Equal(t, []core.ID{entry.Id}, ids)

	assert.Equal(t, []core.ID{entry.Id}, similarTo(t, stores.Vectors, core.RecordKindJournal, "u1", entry.Summary))
}

func TestPipeline_IndexJournal_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("empty user", func(t *testing.T) {
		p, _, _ := setupTestPipeline(t)
		_, err := p.IndexJournal(ctx, "", "text")
		assert.ErrorIs(t, err, core.ErrEmptyUserID)
	})

	t.Run("blank text", func(t *testing.T) {
		p, _, provider := setupTestPipeline(t)
		_, err := p.IndexJournal(ctx, "u1", "   ")
		assert.ErrorIs(t, err, core.ErrEmptyContent)
		assert.Zero(t, provider.GetMockAnalyzer().CallCount())
	})

	t.Run("analysis failure stores nothing", func(t *testing.T) {
		p, stores, provider := setupTestPipeline(t)
		provider.GetMockAnalyzer().AnalyzeJournalFunc = func(_ context.Context, _ string) (*ai.JournalAnalysis, error) {
			return nil, errors.New("model offline")
		}
		_, err := p.IndexJournal(ctx, "u1", "a quiet day")
		assert.ErrorIs(t, err, ErrAnalysisFailed)

		count, err := stores.Journals.CountJournalEntries(ctx)
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("embedding failure removes the entry", func(t *testing.T) {
		p, stores, provider := setupTestPipeline(t)
		provider.GetMockEmbedder().EmbedTextsFunc = func(_ context.Context, _ []string) ([][]float32, error) {
			return nil, errors.New("embedder down")
		}
		_, err := p.IndexJournal(ctx, "u1", "a quiet day with #reading")
		assert.ErrorIs(t, err, ErrEmbeddingFailed)

		count, err := stores.Journals.CountJournalEntries(ctx)
		require.NoError(t, err)
		assert.Zero(t, count)

		ids, err := stores.Journals.FindByAttributes(ctx, "u1", core.AttributeFilter{Tags: []string{"reading"}}, 10)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("embedding count mismatch", func(t *testing.T) {
		p, _, provider := setupTestPipeline(t)
		provider.GetMockEmbedder().EmbedTextsFunc = func(_ context.Context, _ []string) ([][]float32, error) {
			return [][]float32{}, nil
		}
		_, err := p.IndexJournal(ctx, "u1", "text")
		assert.ErrorIs(t, err, ErrEmbeddingFailed)
		assert.ErrorContains(t, err, "embedding result mismatch")
	})
}

func TestPipeline_IndexJournal_EmptySummaryEmbedsText(t *testing.T) {
	p, stores, provider := setupTestPipeline(t)
	provider.GetMockAnalyzer().AnalyzeJournalFunc = func(_ context.Context, _ string) (*ai.JournalAnalysis, error) {
		return &ai.JournalAnalysis{}, nil
	}

	entry, err := p.IndexJournal(context.Background(), "u1", "raw journal text")
	require.NoError(t, err)
	assert.Empty(t, entry.Summary)
	assert.Equal(t, []core.ID{entry.Id}, similarTo(t, stores.Vectors, core.RecordKindJournal, "u1", "raw journal text"))
}

func TestPipeline_RemoveJournal(t *testing.T) {
	p, stores, _ := setupTestPipeline(t)
	ctx := context.Background()

	entry, err := p.IndexJournal(ctx, "u1", "hiking with @Ana")
	require.NoError(t, err)

	require.NoError(t, p.RemoveJournal(ctx, "u1", entry.Id))

	_, err = stores.Journals.GetJournalEntry(ctx, "u1", entry.Id)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Empty(t, similarTo(t, stores.Vectors, core.RecordKindJournal, "u1", entry.Summary))

	err = p.RemoveJournal(ctx, "u1", entry.Id)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.ErrorIs(t, p.RemoveJournal(ctx, "", entry.Id), core.ErrEmptyUserID)
}

// failingDeleteIndex is a vector index whose deletes always fail.
type failingDeleteIndex struct {
	storage.VectorIndex
	err error
}

func (f *failingDeleteIndex) DeleteEmbedding(context.Context, core.RecordKind, string, core.ID) error {
	return f.err
}

func TestPipeline_RemoveJournal_VectorDeleteFails(t *testing.T) {
	stores := setupTestStores(t)
	boom := errors.New("index unavailable")
	index := &failingDeleteIndex{VectorIndex: stores.Vectors, err: boom}
	p, err := NewPipeline(stores.Journals, stores.Conversations, index, mock.NewMockProvider())
	require.NoError(t, err)
	t.Cleanup(p.Release)
	ctx := context.Background()

	entry, err := p.IndexJournal(ctx, "u1", "rainy commute #work")
	require.NoError(t, err)

	err = p.RemoveJournal(ctx, "u1", entry.Id)
	assert.ErrorIs(t, err, boom)

	// Entry and vector both survive, so nothing is orphaned and a retry can finish
	got, err := stores.Journals.GetJournalEntry(ctx, "u1", entry.Id)
	require.NoError(t, err)
	assert.Equal(t, entry.Id, got.Id)
	assert.Equal(t, []core.ID{entry.Id}, similarTo(t, stores.Vectors, core.RecordKindJournal, "u1", entry.Summary))

	index.err = nil
	require.NoError(t, p.RemoveJournal(ctx, "u1", entry.Id))
	_, err = stores.Journals.GetJournalEntry(ctx, "u1", entry.Id)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Empty(t, similarTo(t, stores.Vectors, core.RecordKindJournal, "u1", entry.Summary))
}

func TestPipeline_IndexConversationTurn(t *testing.T) {
	p, stores, _ := setupTestPipeline(t, WithPoolSize(2))
	ctx := context.Background()

	messages := []string{"first #sleep", "second #work", "third #family"}
	for _, msg := range messages {
		require.NoError(t, p.IndexConversationTurn(ctx, "u1", msg, "tell me more"))
	}
	p.Wait()

	count, err := stores.Conversations.CountConversationTurns(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(messages), count)

	turns, err := stores.Conversations.GetRecentConversationTurns(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, turns, len(messages))
	for _, turn := range turns {
		assert.Contains(t, turn.Summary, " / tell me more")
		assert.Len(t, turn.Metadata.Topics, 1)
		assert.Equal(t, []core.ID{turn.Id}, similarTo(t, stores.Vectors, core.RecordKindConversation, "u1", turn.Summary)[:1])
	}

	assert.Empty(t, similarTo(t, stores.Vectors, core.RecordKindJournal, "u1", turns[0].Summary))
}

func TestPipeline_IndexConversationTurn_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("validation", func(t *testing.T) {
		p, _, _ := setupTestPipeline(t)
		assert.ErrorIs(t, p.IndexConversationTurn(ctx, "", "hi", "hello"), core.ErrEmptyUserID)
		assert.ErrorIs(t, p.IndexConversationTurn(ctx, "u1", "", "hello"), core.ErrEmptyContent)
		assert.ErrorIs(t, p.IndexConversationTurn(ctx, "u1", "hi", ""), core.ErrEmptyContent)
	})

	t.Run("async failure is counted not returned", func(t *testing.T) {
		m := metrics.New(metrics.DefaultConfig())
		p, stores, provider := setupTestPipeline(t, WithMetrics(m))
		provider.GetMockAnalyzer().SummarizeConversationFunc = func(_ context.Context, _, _ string) (*ai.TurnSummary, error) {
			return nil, errors.New("model offline")
		}

		require.NoError(t, p.IndexConversationTurn(ctx, "u1", "hi", "hello"))
		p.Wait()

		count, err := stores.Conversations.CountConversationTurns(ctx)
		require.NoError(t, err)
		assert.Zero(t, count)
		assert.Equal(t, 1, testutil.CollectAndCount(m.Registry(), "journalit_ingestion_records_total"))
	})

	t.Run("submit after release", func(t *testing.T) {
		p, _, _ := setupTestPipeline(t)
		p.Release()
		assert.Error(t, p.IndexConversationTurn(ctx, "u1", "hi", "hello"))
		p.Wait()
	})
}

func TestPipeline_Metrics(t *testing.T) {
	m := metrics.New(metrics.DefaultConfig())
	p, _, provider := setupTestPipeline(t, WithMetrics(m))
	ctx := context.Background()

	_, err := p.IndexJournal(ctx, "u1", "good day")
	require.NoError(t, err)

	provider.GetMockAnalyzer().AnalyzeJournalFunc = func(_ context.Context, _ string) (*ai.JournalAnalysis, error) {
		return nil, errors.New("boom")
	}
	_, err = p.IndexJournal(ctx, "u1", "bad day")
	require.Error(t, err)

	assert.Equal(t, 2, testutil.CollectAndCount(m.Registry(), "journalit_ingestion_records_total"))
}

func TestEmbeddingProcessor(t *testing.T) {
	stores := setupTestStores(t)
	embedder := mock.NewMockEmbedder()
	ctx := context.Background()

	t.Run("invalid construction", func(t *testing.T) {
		_, err := newEmbeddingProcessor(nil, embedder, core.RecordKindJournal, nil)
		assert.Equal(t, ErrVectorIndexRequired, err)

		_, err = newEmbeddingProcessor(stores.Vectors, nil, core.RecordKindJournal, nil)
		assert.Error(t, err)

		_, err = newEmbeddingProcessor(stores.Vectors, embedder, core.RecordKind("photo"), nil)
		assert.ErrorIs(t, err, core.ErrInvalidRecordKind)
	})

	t.Run("batch upsert", func(t *testing.T) {
		proc, err := newEmbeddingProcessor(stores.Vectors, embedder, core.RecordKindJournal, nil)
		require.NoError(t, err)

		records := []summaryRecord{{id: "a", summary: "alpha"}, {id: "b", summary: "beta"}}
		require.NoError(t, proc.process(ctx, "u1", records...))
		assert.Equal(t, 1, embedder.CallCount(), "one batch call for all records")

		assert.Equal(t, core.ID("a"), similarTo(t, stores.Vectors, core.RecordKindJournal, "u1", "alpha")[0])
		assert.Equal(t, core.ID("b"), similarTo(t, stores.Vectors, core.RecordKindJournal, "u1", "beta")[0])
	})

	t.Run("no records", func(t *testing.T) {
		embedder.Reset()
		proc, err := newEmbeddingProcessor(stores.Vectors, embedder, core.RecordKindConversation, nil)
		require.NoError(t, err)
		require.NoError(t, proc.process(ctx, "u1"))
		assert.Zero(t, embedder.CallCount())
	})
}
