package assemble

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/journalit/core"
	"github.com/poiesic/journalit/storage"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultTopK is the number of journal summaries included.
	DefaultTopK = 5

	// DefaultRecentTurns is the number of conversation turns included.
	DefaultRecentTurns = 3
)

var (
	// ErrJournalFinderRequired is returned when no journal finder is provided.
	ErrJournalFinderRequired = errors.New("journal finder required")

	// ErrConversationRepositoryRequired is returned when a conversation repository is not provided.
	ErrConversationRepositoryRequired = errors.New("conversation repository required")

	// ErrInvalidOption is returned by options given out-of-range values.
	ErrInvalidOption = errors.New("invalid option")
)

// JournalFinder returns the journal entries relevant to a query, best first.
// *search.Searcher satisfies it.
type JournalFinder interface {
	FindJournals(ctx context.Context, userID, query string, topK int) ([]*core.JournalEntry, error)
}

// JournalSummary is the part of a journal entry shown to the chat model.
type JournalSummary struct {
	JournalId core.ID
	Summary   string
	Metadata  core.Metadata
	CreatedAt time.Time
}

// ConversationSummary is the part of a conversation turn shown to the chat model.
type ConversationSummary struct {
	Summary  string
	Metadata core.Metadata
}

// Context is the assembled retrieval context for one message.
type Context struct {
	// Journals in rank order
	Journals []JournalSummary
	// Conversations newest first
	Conversations []ConversationSummary
}

// Builder assembles Context values.
type Builder struct {
	journals      JournalFinder
	conversations storage.ConversationRepository
	topK          int
	recentTurns   int
	logger        *slog.Logger
}

// Option configures a Builder.
type Option func(*Builder) error

// WithTopK sets how many journal summaries are included.
func WithTopK(k int) Option {
	return func(b *Builder) error {
		if k < 0 {
			return fmt.Errorf("%w: topK must not be negative, got %d", ErrInvalidOption, k)
		}
		b.topK = k
		return nil
	}
}

// WithRecentTurns sets how many recent conversation turns are included.
func WithRecentTurns(n int) Option {
	return func(b *Builder) error {
		if n < 0 {
			return fmt.Errorf("%w: recent turns must not be negative, got %d", ErrInvalidOption, n)
		}
		b.recentTurns = n
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) error {
		if logger == nil {
			logger = slog.Default()
		}
		b.logger = logger
		return nil
	}
}

// NewBuilder creates a context builder.
func NewBuilder(journals JournalFinder, conversations storage.ConversationRepository, opts ...Option) (*Builder, error) {
	if journals == nil {
		return nil, ErrJournalFinderRequired
	}
	if conversations == nil {
		return nil, ErrConversationRepositoryRequired
	}

	b := &Builder{
		journals:      journals,
		conversations: conversations,
		topK:          DefaultTopK,
		recentTurns:   DefaultRecentTurns,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}
	b.logger = b.logger.With("component", "assemble")
	return b, nil
}

// Build retrieves the journal summaries relevant to query and the user's
// latest conversation turns. Both halves are fetched concurrently; either
// failing fails the build.
func (b *Builder) Build(ctx context.Context, userID, query string) (*Context, error) {
	if userID == "" {
		return nil, core.ErrEmptyUserID
	}

	out := &Context{
		Journals:      []JournalSummary{},
		Conversations: []ConversationSummary{},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if b.topK == 0 {
			return nil
		}
		entries, err := b.journals.FindJournals(gctx, userID, query, b.topK)
		if err != nil {
			return fmt.Errorf("find journals: %w", err)
		}
		for _, e := range entries {
			out.Journals = append(out.Journals, JournalSummary{
				JournalId: e.Id,
				Summary:   e.Summary,
				Metadata:  e.Metadata,
				CreatedAt: e.CreatedAt,
			})
		}
		return nil
	})
	g.Go(func() error {
		if b.recentTurns == 0 {
			return nil
		}
		turns, err := b.conversations.GetRecentConversationTurns(gctx, userID, b.recentTurns)
		if err != nil {
			return fmt.Errorf("recent conversation turns: %w", err)
		}
		for _, t := range turns {
			out.Conversations = append(out.Conversations, ConversationSummary{
				Summary:  t.Summary,
				Metadata: t.Metadata,
			})
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		b.logger.Error("error assembling context", "userID", userID, "err", err)
		return nil, err
	}

	b.logger.Debug("context assembled",
		"userID", userID,
		"journals", len(out.Journals),
		"conversations", len(out.Conversations))
	return out, nil
}
