package ingestion

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/journalit/ai"
	"github.com/poiesic/journalit/core"
	"github.com/poiesic/journalit/storage"
)

// embeddingProcessor embeds record summaries into the vector index.
type embeddingProcessor struct {
	index    storage.VectorIndex
	embedder ai.Embedder
	kind     core.RecordKind
	logger   *slog.Logger
}

var _ processor = (*embeddingProcessor)(nil)

// newEmbeddingProcessor creates a new embedding processor for one record kind.
func newEmbeddingProcessor(index storage.VectorIndex, embedder ai.Embedder, kind core.RecordKind, logger *slog.Logger) (processor, error) {
	if index == nil {
		return nil, ErrVectorIndexRequired
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder required")
	}
	if err := core.ValidateRecordKind(kind); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &embeddingProcessor{
		index:    index,
		embedder: embedder,
		kind:     kind,
		logger:   logger.With("processor", "embeddings", "kind", string(kind)),
	}, nil
}

// process embeds the summaries in one batch and upserts the vectors.
func (ep *embeddingProcessor) process(ctx context.Context, userID string, records ...summaryRecord) error {
	if len(records) == 0 {
		return nil
	}
	ep.logger.Debug("processing records for embeddings", "records", len(records))

	texts := make([]string, len(records))
	for i, record := range records {
		texts[i] = record.summary
	}

	embeddings, err := ep.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		ep.logger.Error("error generating embeddings", "err", err)
		return err
	}

	if len(embeddings) != len(records) {
		return fmt.Errorf("embedding result mismatch. expected %d, received %d", len(records), len(embeddings))
	}

	for i, record := range records {
		if err := ep.index.UpsertEmbedding(ctx, ep.kind, userID, record.id, embeddings[i]); err != nil {
			ep.logger.Error("error storing embedding", "id", record.id, "err", err)
			return err
		}
	}
	return nil
}
