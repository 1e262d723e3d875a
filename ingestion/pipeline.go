package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/journalit/ai"
	"github.com/poiesic/journalit/core"
	"github.com/poiesic/journalit/metrics"
	"github.com/poiesic/journalit/storage"
)

// Pipeline orchestrates indexing of journal entries and conversation turns.
type Pipeline struct {
	journals          storage.JournalRepository
	conversations     storage.ConversationRepository
	vectors           storage.VectorIndex
	analyzer          ai.Analyzer
	pool              *ants.Pool
	journalEmbeddings processor
	turnEmbeddings    processor
	metrics           *metrics.Metrics
	pending           sync.WaitGroup
	logger            *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for conversation turns.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		// Release old pool
		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithMetrics records indexing outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) error {
		p.metrics = m
		return nil
	}
}

// NewPipeline creates a new indexing pipeline.
func NewPipeline(
	journals storage.JournalRepository,
	conversations storage.ConversationRepository,
	vectors storage.VectorIndex,
	provider ai.AIProvider,
	opts ...Option,
) (*Pipeline, error) {
	if journals == nil {
		return nil, ErrJournalRepositoryRequired
	}
	if conversations == nil {
		return nil, ErrConversationRepositoryRequired
	}
	if vectors == nil {
		return nil, ErrVectorIndexRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	// Default pool size
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	// Create pipeline with defaults
	p := &Pipeline{
		journals:      journals,
		conversations: conversations,
		vectors:       vectors,
		analyzer:      provider.Analyzer(),
		pool:          pool,
		logger:        slog.Default(),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}
	p.logger = p.logger.With("component", "ingestion")

	// Create processors after options are applied (so they get final config)
	journalEmbeddings, err := newEmbeddingProcessor(vectors, provider.Embedder(), core.RecordKindJournal, p.logger)
	if err != nil {
		p.Release()
		return nil, err
	}
	turnEmbeddings, err := newEmbeddingProcessor(vectors, provider.Embedder(), core.RecordKindConversation, p.logger)
	if err != nil {
		p.Release()
		return nil, err
	}

	p.journalEmbeddings = journalEmbeddings
	p.turnEmbeddings = turnEmbeddings

	return p, nil
}

// IndexJournal analyzes, stores and embeds a journal entry.
// Any failure is returned; an entry whose embedding fails is removed again
// so the document store and the vector index hold the same entries.
func (p *Pipeline) IndexJournal(ctx context.Context, userID, text string) (entry *core.JournalEntry, err error) {
	defer func() {
		p.metrics.RecordIndexed(string(core.RecordKindJournal), err)
	}()

	if userID == "" {
		return nil, core.ErrEmptyUserID
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidJournalEntry, core.ErrEmptyContent)
	}

	analysis, err := p.analyzer.AnalyzeJournal(ctx, text)
	if err != nil {
		p.logger.Error("error analyzing journal entry", "userID", userID, "err", err)
		return nil, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}

	entry = &core.JournalEntry{
		Id:        core.NewID(),
		UserId:    userID,
		Text:      text,
		Summary:   analysis.Summary,
		Metadata:  analysis.Metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := core.ValidateJournalEntry(entry); err != nil {
		return nil, err
	}

	added, err := p.journals.AddJournalEntries(ctx, entry)
	if err != nil {
		return nil, err
	}
	entry = added[0]

	record := summaryRecord{id: entry.Id, summary: embeddingText(entry.Summary, entry.Text)}
	if err := p.journalEmbeddings.process(ctx, userID, record); err != nil {
		if delErr := p.journals.DeleteJournalEntries(context.WithoutCancel(ctx), userID, entry.Id); delErr != nil {
			p.logger.Error("error removing unembedded journal entry", "id", entry.Id, "err", delErr)
		}
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingFailed, err)
	}

	p.logger.Debug("journal entry indexed", "userID", userID, "id", entry.Id)
	return entry, nil
}

// RemoveJournal deletes a journal entry's vector, then the entry and its
// attribute index. A failed vector delete leaves the entry in place so the
// call can be retried.
func (p *Pipeline) RemoveJournal(ctx context.Context, userID string, id core.ID) error {
	if userID == "" {
		return core.ErrEmptyUserID
	}
	if err := p.vectors.DeleteEmbedding(ctx, core.RecordKindJournal, userID, id); err != nil {
		return fmt.Errorf("remove journal %s embedding: %w", id, err)
	}
	return p.journals.DeleteJournalEntries(ctx, userID, id)
}

// IndexConversationTurn queues a conversation turn for summarizing, storing
// and embedding. Only input validation and pool errors are returned; errors
// during async processing are logged.
func (p *Pipeline) IndexConversationTurn(ctx context.Context, userID, userMessage, aiResponse string) error {
	turn := &core.ConversationTurn{
		Id:          core.NewID(),
		UserId:      userID,
		UserMessage: userMessage,
		AIResponse:  aiResponse,
		CreatedAt:   time.Now().UTC(),
	}
	if err := core.ValidateConversationTurn(turn); err != nil {
		return err
	}

	// The turn outlives the request that queued it
	bg := context.WithoutCancel(ctx)

	p.pending.Add(1)
	err := p.pool.Submit(func() {
		defer p.pending.Done()
		err := p.indexTurn(bg, turn)
		p.metrics.RecordIndexed(string(core.RecordKindConversation), err)
		if err != nil {
			p.logger.Error("error indexing conversation turn", "userID", userID, "err", err)
		}
	})
	if err != nil {
		p.pending.Done()
		return err
	}
	return nil
}

func (p *Pipeline) indexTurn(ctx context.Context, turn *core.ConversationTurn) error {
	summary, err := p.analyzer.SummarizeConversation(ctx, turn.UserMessage, turn.AIResponse)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}
	turn.Summary = summary.Summary
	turn.Metadata = summary.Metadata

	if _, err := p.conversations.AddConversationTurns(ctx, turn); err != nil {
		return err
	}

	record := summaryRecord{id: turn.Id, summary: embeddingText(turn.Summary, turn.UserMessage)}
	if err := p.turnEmbeddings.process(ctx, turn.UserId, record); err != nil {
		return fmt.Errorf("%w: %w", ErrEmbeddingFailed, err)
	}
	return nil
}

// embeddingText returns summary, or fallback when analysis produced none.
func embeddingText(summary, fallback string) string {
	if strings.TrimSpace(summary) != "" {
		return summary
	}
	return fallback
}

// Wait blocks until every queued conversation turn has been processed.
func (p *Pipeline) Wait() {
	p.pending.Wait()
}

// Release waits for queued work and releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	p.pending.Wait()
	if p.pool != nil {
		p.pool.Release()
	}
}
