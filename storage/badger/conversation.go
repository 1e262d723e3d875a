package badger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/journalit/core"
	"github.com/poiesic/journalit/storage"
)

// ConversationRepository implements storage.ConversationRepository for BadgerDB.
type ConversationRepository struct {
	backend *Backend
}

var _ storage.ConversationRepository = (*ConversationRepository)(nil)

// NewConversationRepository creates a new ConversationRepository.
func NewConversationRepository(backend *Backend) (*ConversationRepository, error) {
	if backend == nil {
		return nil, errors.New("backend required")
	}
	return &ConversationRepository{backend: backend}, nil
}

// Close is a no-op; the backend owns the database handle.
func (r *ConversationRepository) Close() error {
	return nil
}

// AddConversationTurns stores turns and their recency index keys.
func (r *ConversationRepository) AddConversationTurns(ctx context.Context, turns ...*core.ConversationTurn) ([]*core.ConversationTurn, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, turn := range turns {
			if turn.UserId == "" {
				return fmt.Errorf("%w: %w", storage.ErrInvalidQuery, core.ErrEmptyUserID)
			}
			if turn.Id == "" {
				turn.Id = core.NewID()
			}
			if turn.CreatedAt.IsZero() {
				turn.CreatedAt = time.Now().UTC()
			}

			key := makeTurnKey(turn.UserId, turn.Id)
			old, err := r.readTurn(tx, key)
			if err != nil {
				return err
			}
			if old != nil {
				if err := tx.Delete(makeTurnDateKey(old.UserId, old.CreatedAt, old.Id)); err != nil {
					return err
				}
			}

			if err := tx.Set(key, storage.MarshalConversationTurn(turn)); err != nil {
				return err
			}

			// Update date index
			dateKey := makeTurnDateKey(turn.UserId, turn.CreatedAt, turn.Id)
			if err := tx.Set(dateKey, storage.MarshalID(turn.Id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return turns, nil
}

// GetConversationTurn retrieves a single turn by id.
func (r *ConversationRepository) GetConversationTurn(ctx context.Context, userID string, id core.ID) (*core.ConversationTurn, error) {
	var result *core.ConversationTurn
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = r.readTurn(tx, makeTurnKey(userID, id))
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

// GetRecentConversationTurns retrieves the N most recent turns for a user,
// ordered by CreatedAt descending.
func (r *ConversationRepository) GetRecentConversationTurns(ctx context.Context, userID string, limit int) ([]*core.ConversationTurn, error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: negative limit %d", storage.ErrInvalidQuery, limit)
	}
	// Preallocation is capped; limit may be arbitrarily large
	results := make([]*core.ConversationTurn, 0, min(limit, 16))
	if limit == 0 {
		return results, nil
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := makePartialTurnDateKey(userID)

		// Use reverse iterator to get most recent turns first
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		// Seek past the end of this user's index
		seekKey := append(append([]byte{}, prefix...), bytes.Repeat([]byte{0xFF}, 9)...)

		for iter.Seek(seekKey); iter.Valid() && len(results) < limit; iter.Next() {
			// Read the ID from the index
			var turnID core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				turnID, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			turn, err := r.readTurn(tx, makeTurnKey(userID, turnID))
			if err != nil {
				return err
			}
			if turn != nil {
				results = append(results, turn)
			}
		}
		return nil
	}, false)

	return results, err
}

// DeleteConversationTurns removes turns and their recency index keys.
func (r *ConversationRepository) DeleteConversationTurns(ctx context.Context, userID string, ids ...core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makeTurnKey(userID, id)
			turn, err := r.readTurn(tx, key)
			if err != nil {
				return err
			}
			if turn == nil {
				return fmt.Errorf("%w: turn %s", storage.ErrNotFound, id)
			}
			if err := tx.Delete(makeTurnDateKey(turn.UserId, turn.CreatedAt, turn.Id)); err != nil {
				return err
			}
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// ForEachConversationTurn walks every stored turn in key order.
func (r *ConversationRepository) ForEachConversationTurn(ctx context.Context, fn func(*core.ConversationTurn) error) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		return scanPrefix(tx, makeKey(true, turnPrefix), false, func(_, value []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			turn, err := storage.UnmarshalConversationTurn(value)
			if err != nil {
				return err
			}
			return fn(turn)
		})
	}, false)
}

// CountConversationTurns returns the number of stored turns.
func (r *ConversationRepository) CountConversationTurns(ctx context.Context) (int, error) {
	var count int
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		count = countPrefix(tx, makeKey(true, turnPrefix))
		return nil
	}, false)
	return count, err
}

// readTurn reads a turn, returning nil if the key doesn't exist.
func (r *ConversationRepository) readTurn(tx *badger.Txn, key []byte) (*core.ConversationTurn, error) {
	item, err := tx.Get(key)
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var turn *core.ConversationTurn
	err = item.Value(func(val []byte) error {
		turn, err = storage.UnmarshalConversationTurn(val)
		return err
	})
	return turn, err
}
