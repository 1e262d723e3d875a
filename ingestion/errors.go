package ingestion

import "errors"

var (
	// ErrJournalRepositoryRequired is returned when a journal repository is not provided.
	ErrJournalRepositoryRequired = errors.New("journal repository required")

	// ErrConversationRepositoryRequired is returned when a conversation repository is not provided.
	ErrConversationRepositoryRequired = errors.New("conversation repository required")

	// ErrVectorIndexRequired is returned when a vector index is not provided.
	ErrVectorIndexRequired = errors.New("vector index required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")

	// ErrAnalysisFailed wraps analyzer failures while indexing.
	ErrAnalysisFailed = errors.New("analysis failed")

	// ErrEmbeddingFailed wraps embedder or vector index failures while indexing.
	ErrEmbeddingFailed = errors.New("embedding failed")
)
