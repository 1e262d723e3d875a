package badger

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/journalit/core"
	"github.com/poiesic/journalit/storage"
)

// JournalRepository implements storage.JournalRepository for BadgerDB.
type JournalRepository struct {
	backend *Backend
}

var _ storage.JournalRepository = (*JournalRepository)(nil)

// NewJournalRepository creates a new JournalRepository.
func NewJournalRepository(backend *Backend) (*JournalRepository, error) {
	if backend == nil {
		return nil, errors.New("backend required")
	}
	return &JournalRepository{backend: backend}, nil
}

// Close is a no-op; the backend owns the database handle.
func (r *JournalRepository) Close() error {
	return nil
}

// AddJournalEntries stores entries and their attribute index keys.
// Re-adding an existing id replaces the entry and its index keys.
func (r *JournalRepository) AddJournalEntries(ctx context.Context, entries ...*core.JournalEntry) ([]*core.JournalEntry, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		now := time.Now().UTC()
		for _, entry := range entries {
			if entry.UserId == "" {
				return fmt.Errorf("%w: %w", storage.ErrInvalidQuery, core.ErrEmptyUserID)
			}
			if entry.Id == "" {
				entry.Id = core.NewID()
			}
			if entry.CreatedAt.IsZero() {
				entry.CreatedAt = now
			}
			entry.UpdatedAt = now

			key := makeJournalKey(entry.UserId, entry.Id)

			// Drop stale index keys when replacing
			old, err := r.readJournalEntry(tx, key)
			if err != nil {
				return err
			}
			if old != nil {
				if err := deleteAttributeIndex(tx, old); err != nil {
					return err
				}
			}

			if err := tx.Set(key, storage.MarshalJournalEntry(entry)); err != nil {
				return err
			}
			if err := writeAttributeIndex(tx, entry); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// GetJournalEntry retrieves a single entry by id.
func (r *JournalRepository) GetJournalEntry(ctx context.Context, userID string, id core.ID) (*core.JournalEntry, error) {
	var result *core.JournalEntry
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = r.readJournalEntry(tx, makeJournalKey(userID, id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetJournalEntries retrieves entries in the order of ids, skipping missing ones.
func (r *JournalRepository) GetJournalEntries(ctx context.Context, userID string, ids ...core.ID) ([]*core.JournalEntry, error) {
	result := make([]*core.JournalEntry, 0, len(ids))
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			entry, err := r.readJournalEntry(tx, makeJournalKey(userID, id))
			if err != nil {
				return err
			}
			if entry != nil {
				result = append(result, entry)
			}
		}
		return nil
	}, false)
	return result, err
}

// DeleteJournalEntries removes entries and their attribute index keys.
func (r *JournalRepository) DeleteJournalEntries(ctx context.Context, userID string, ids ...core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makeJournalKey(userID, id)
			entry, err := r.readJournalEntry(tx, key)
			if err != nil {
				return err
			}
			if entry == nil {
				return fmt.Errorf("%w: journal %s", storage.ErrNotFound, id)
			}
			if err := deleteAttributeIndex(tx, entry); err != nil {
				return err
			}
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// FindByAttributes evaluates filter against the attribute index.
//
// List clauses (people, emotions, tags) match entries carrying any listed
// value. Scalar clauses (date, mood, stress level) match on equality. The
// clauses are intersected. Values are compared after normalization.
// Results are ordered by id and truncated to limit.
func (r *JournalRepository) FindByAttributes(ctx context.Context, userID string, filter core.AttributeFilter, limit int) ([]core.ID, error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: negative limit %d", storage.ErrInvalidQuery, limit)
	}
	filter = filter.Normalized()
	if filter.IsEmpty() || limit == 0 {
		return []core.ID{}, nil
	}

	type clause struct {
		field  string
		values []string
	}
	var clauses []clause
	addClause := func(field string, values ...string) {
		if len(values) > 0 && values[0] != "" {
			clauses = append(clauses, clause{field: field, values: values})
		}
	}
	addClause(fieldPeople, filter.People...)
	addClause(fieldEmotions, filter.Emotions...)
	addClause(fieldTags, filter.Tags...)
	addClause(fieldDate, filter.Date)
	addClause(fieldMood, filter.Mood)
	addClause(fieldStressLevel, string(filter.StressLevel))

	var matched map[core.ID]struct{}
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, c := range clauses {
			if err := ctx.Err(); err != nil {
				return err
			}
			hits := make(map[core.ID]struct{})
			for _, value := range c.values {
				prefix := makePartialJournalAttributeKey(userID, c.field, value)
				err := scanPrefix(tx, prefix, true, func(key, _ []byte) error {
					id := core.ID(lastSegment(key))
					if matched == nil {
						hits[id] = struct{}{}
					} else if _, ok := matched[id]; ok {
						hits[id] = struct{}{}
					}
					return nil
				})
				if err != nil {
					return err
				}
			}
			matched = hits
			if len(matched) == 0 {
				return nil
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	ids := make([]core.ID, 0, len(matched))
	for id := range matched {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

// ForEachJournalEntry walks every stored entry in key order.
func (r *JournalRepository) ForEachJournalEntry(ctx context.Context, fn func(*core.JournalEntry) error) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		return scanPrefix(tx, makeKey(true, journalPrefix), false, func(_, value []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			entry, err := storage.UnmarshalJournalEntry(value)
			if err != nil {
				return err
			}
			return fn(entry)
		})
	}, false)
}

// CountJournalEntries returns the number of stored entries.
func (r *JournalRepository) CountJournalEntries(ctx context.Context) (int, error) {
	var count int
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		count = countPrefix(tx, makeKey(true, journalPrefix))
		return nil
	}, false)
	return count, err
}

// readJournalEntry reads an entry, returning nil if the key doesn't exist.
func (r *JournalRepository) readJournalEntry(tx *badger.Txn, key []byte) (*core.JournalEntry, error) {
	item, err := tx.Get(key)
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var entry *core.JournalEntry
	err = item.Value(func(val []byte) error {
		entry, err = storage.UnmarshalJournalEntry(val)
		return err
	})
	return entry, err
}

func writeAttributeIndex(tx *badger.Txn, entry *core.JournalEntry) error {
	for _, kv := range attributeEntries(entry.Metadata) {
		if err := tx.Set(makeJournalAttributeKey(entry.UserId, kv[0], kv[1], entry.Id), nil); err != nil {
			return err
		}
	}
	return nil
}

func deleteAttributeIndex(tx *badger.Txn, entry *core.JournalEntry) error {
	for _, kv := range attributeEntries(entry.Metadata) {
		if err := tx.Delete(makeJournalAttributeKey(entry.UserId, kv[0], kv[1], entry.Id)); err != nil {
			return err
		}
	}
	return nil
}
