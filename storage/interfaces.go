package storage

import (
	"context"

	"github.com/poiesic/journalit/core"
)

// JournalRepository stores journal entries together with the attribute
// index used by the attribute candidate source. Every method is scoped to
// a single user. Implementations must be thread-safe.
type JournalRepository interface {
	// AddJournalEntries stores entries and indexes their metadata.
	// Entries with an empty Id receive a new one.
	// Sets CreatedAt if not already set and UpdatedAt always.
	// Returns the entries with generated fields populated.
	AddJournalEntries(ctx context.Context, entries ...*core.JournalEntry) ([]*core.JournalEntry, error)

	// GetJournalEntry retrieves a single entry.
	// Returns ErrNotFound if it doesn't exist for this user.
	GetJournalEntry(ctx context.Context, userID string, id core.ID) (*core.JournalEntry, error)

	// GetJournalEntries retrieves entries in the order of ids.
	// Missing ids are skipped without error.
	GetJournalEntries(ctx context.Context, userID string, ids ...core.ID) ([]*core.JournalEntry, error)

	// DeleteJournalEntries removes entries and their index keys.
	// Returns ErrNotFound if any entry doesn't exist.
	DeleteJournalEntries(ctx context.Context, userID string, ids ...core.ID) error

	// FindByAttributes returns up to limit ids of entries matching filter,
	// ordered by id. An empty filter matches nothing.
	FindByAttributes(ctx context.Context, userID string, filter core.AttributeFilter, limit int) ([]core.ID, error)

	// ForEachJournalEntry calls fn for every stored entry of every user.
	// Iteration stops at the first error returned by fn.
	ForEachJournalEntry(ctx context.Context, fn func(*core.JournalEntry) error) error

	// CountJournalEntries returns the number of stored entries.
	CountJournalEntries(ctx context.Context) (int, error)

	// Close releases resources held by the repository.
	Close() error
}

// ConversationRepository stores summarized conversation turns.
type ConversationRepository interface {
	// AddConversationTurns stores turns, assigning ids and CreatedAt when unset.
	AddConversationTurns(ctx context.Context, turns ...*core.ConversationTurn) ([]*core.ConversationTurn, error)

	// GetConversationTurn retrieves a single turn.
	// Returns ErrNotFound if it doesn't exist for this user.
	GetConversationTurn(ctx context.Context, userID string, id core.ID) (*core.ConversationTurn, error)

	// GetRecentConversationTurns returns up to limit turns, newest first.
	GetRecentConversationTurns(ctx context.Context, userID string, limit int) ([]*core.ConversationTurn, error)

	// DeleteConversationTurns removes turns by id.
	// Returns ErrNotFound if any turn doesn't exist.
	DeleteConversationTurns(ctx context.Context, userID string, ids ...core.ID) error

	// ForEachConversationTurn calls fn for every stored turn of every user.
	ForEachConversationTurn(ctx context.Context, fn func(*core.ConversationTurn) error) error

	// CountConversationTurns returns the number of stored turns.
	CountConversationTurns(ctx context.Context) (int, error)

	Close() error
}

// VectorIndex stores summary embeddings and answers nearest-neighbour
// queries within one user's records of one kind.
type VectorIndex interface {
	// UpsertEmbedding inserts or replaces the embedding for id.
	UpsertEmbedding(ctx context.Context, kind core.RecordKind, userID string, id core.ID, vector []float32) error

	// DeleteEmbedding removes the embedding for id.
	// Deleting a missing embedding is not an error.
	DeleteEmbedding(ctx context.Context, kind core.RecordKind, userID string, id core.ID) error

	// FindSimilar returns up to limit matches ordered by cosine similarity,
	// highest first.
	FindSimilar(ctx context.Context, kind core.RecordKind, userID string, vector []float32, limit int) ([]core.SimilarityMatch, error)

	Close() error
}
