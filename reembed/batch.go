package reembed

import (
	"context"
	"fmt"

	"github.com/poiesic/journalit/ai"
	"github.com/poiesic/journalit/storage"
)

// BatchProcessor embeds batches of records and writes them to the vector index.
type BatchProcessor struct {
	vectors  storage.VectorIndex
	embedder ai.Embedder
	backoff  Backoff
}

// NewBatchProcessor creates a new batch processor.
// backoff governs retries of both the embedding call and the index writes.
func NewBatchProcessor(vectors storage.VectorIndex, embedder ai.Embedder, backoff Backoff) *BatchProcessor {
	return &BatchProcessor{
		vectors:  vectors,
		embedder: embedder,
		backoff:  backoff,
	}
}

// Process generates embeddings for a batch of records and upserts them.
// Vectors are normalized after embedding to ensure compatibility with cosine similarity.
func (bp *BatchProcessor) Process(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	texts := make([]string, len(records))
	for i, record := range records {
		texts[i] = record.Text
	}

	var embeddings [][]float32
	err := bp.backoff.Retry(ctx, func(ctx context.Context) error {
		var err error
		embeddings, err = bp.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return err
		}
		if _, err := checkEmbeddings(embeddings, len(records)); err != nil {
			return Permanent(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to generate embeddings: %w", err)
	}

	for i, record := range records {
		vector := NormalizeVector(embeddings[i])
		err := bp.backoff.Retry(ctx, func(ctx context.Context) error {
			return bp.vectors.UpsertEmbedding(ctx, record.Kind, record.UserID, record.Id, vector)
		})
		if err != nil {
			return fmt.Errorf("failed to store embedding for %s %s: %w", record.Kind, record.Id, err)
		}
	}

	return nil
}
