package ai

import (
	"context"

	"github.com/poiesic/journalit/core"
)

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Analyzer turns free text into the structured data the retrieval layer
// indexes and queries. Implementations must be thread-safe for concurrent use.
type Analyzer interface {
	// AnalyzeJournal summarizes a journal entry and extracts its metadata.
	AnalyzeJournal(ctx context.Context, text string) (*JournalAnalysis, error)

	// SummarizeConversation condenses one user/assistant exchange.
	SummarizeConversation(ctx context.Context, userMessage, aiResponse string) (*TurnSummary, error)

	// ExtractFilter derives attribute predicates from a search query.
	// A query that names no attributes yields an empty filter.
	ExtractFilter(ctx context.Context, query string) (core.AttributeFilter, error)
}

// JournalAnalysis is the result of analyzing one journal entry.
type JournalAnalysis struct {
	Summary  string
	Metadata core.Metadata
}

// TurnSummary is the result of summarizing one conversation turn.
type TurnSummary struct {
	Summary  string
	Metadata core.Metadata
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// Analyzer returns the text analysis service.
	Analyzer() Analyzer

	// Close releases resources held by the provider and its services.
	Close() error
}
