// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package reembed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/poiesic/journalit/core"
	"github.com/poiesic/journalit/storage"
)

const (
	// DefaultBatchSize is the default number of records to embed in each batch
	DefaultBatchSize = 100
)

// errStopIteration ends a repository scan early without reporting an error.
var errStopIteration = errors.New("stop iteration")

// Record is the embeddable view of a stored journal entry or conversation turn.
type Record struct {
	Kind   core.RecordKind
	UserID string
	Id     core.ID
	Text   string
}

func journalRecord(e *core.JournalEntry) Record {
	return Record{Kind: core.RecordKindJournal, UserID: e.UserId, Id: e.Id, Text: textOf(e.Summary, e.Text)}
}

func turnRecord(t *core.ConversationTurn) Record {
	return Record{Kind: core.RecordKindConversation, UserID: t.UserId, Id: t.Id, Text: textOf(t.Summary, t.UserMessage)}
}

// textOf returns the summary, or fallback for records analysis left without one.
func textOf(summary, fallback string) string {
	if strings.TrimSpace(summary) != "" {
		return summary
	}
	return fallback
}

// RecordIterator streams stored records of one kind in batches.
type RecordIterator struct {
	journals      storage.JournalRepository
	conversations storage.ConversationRepository
	batchSize     int
}

// NewRecordIterator creates a new record iterator.
// batchSize: number of records per batch; values <= 0 use DefaultBatchSize
func NewRecordIterator(journals storage.JournalRepository, conversations storage.ConversationRepository, batchSize int) *RecordIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &RecordIterator{
		journals:      journals,
		conversations: conversations,
		batchSize:     batchSize,
	}
}

// Count returns the number of stored records of kind.
func (it *RecordIterator) Count(ctx context.Context, kind core.RecordKind) (int, error) {
	switch kind {
	case core.RecordKindJournal:
		return it.journals.CountJournalEntries(ctx)
	case core.RecordKindConversation:
		return it.conversations.CountConversationTurns(ctx)
	default:
		return 0, fmt.Errorf("%w: %q", core.ErrInvalidRecordKind, kind)
	}
}

// ForEach calls fn for each batch of records of kind.
// Iteration stops on first error from fn or when all records are processed.
// Context cancellation is checked between batches.
func (it *RecordIterator) ForEach(ctx context.Context, kind core.RecordKind, fn func([]Record) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	batch := make([]Record, 0, it.batchSize)
	var fnErr error
	add := func(r Record) error {
		batch = append(batch, r)
		if len(batch) < it.batchSize {
			return nil
		}
		if fnErr = fn(batch); fnErr != nil {
			return errStopIteration
		}
		batch = make([]Record, 0, it.batchSize)
		if err := ctx.Err(); err != nil {
			fnErr = err
			return errStopIteration
		}
		return nil
	}

	var err error
	switch kind {
	case core.RecordKindJournal:
		err = it.journals.ForEachJournalEntry(ctx, func(e *core.JournalEntry) error {
			return add(journalRecord(e))
		})
	case core.RecordKindConversation:
		err = it.conversations.ForEachConversationTurn(ctx, func(t *core.ConversationTurn) error {
			return add(turnRecord(t))
		})
	default:
		return fmt.Errorf("%w: %q", core.ErrInvalidRecordKind, kind)
	}

	if errors.Is(err, errStopIteration) {
		return fnErr
	}
	if err != nil {
		return err
	}

	if len(batch) > 0 {
		return fn(batch)
	}
	return nil
}
