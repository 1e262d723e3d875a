package badger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/journalit/core"
	"github.com/poiesic/journalit/storage"
)

// VectorIndex implements storage.VectorIndex with an exhaustive cosine scan
// over one user's embeddings. It suits development, tests and small
// deployments; production vectors live in PostgreSQL.
type VectorIndex struct {
	backend *Backend
}

var _ storage.VectorIndex = (*VectorIndex)(nil)

// NewVectorIndex creates a new VectorIndex.
func NewVectorIndex(backend *Backend) (*VectorIndex, error) {
	if backend == nil {
		return nil, errors.New("backend required")
	}
	return &VectorIndex{backend: backend}, nil
}

// Close is a no-op; the backend owns the database handle.
func (v *VectorIndex) Close() error {
	return nil
}

// UpsertEmbedding stores vector under (kind, user, id), replacing any
// previous value.
func (v *VectorIndex) UpsertEmbedding(ctx context.Context, kind core.RecordKind, userID string, id core.ID, vector []float32) error {
	if err := core.ValidateRecordKind(kind); err != nil {
		return err
	}
	if err := storage.ValidateRecordScope(userID, id); err != nil {
		return err
	}
	return v.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeVectorKey(kind, userID, id), storage.MarshalVector(vector)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// DeleteEmbedding removes the embedding for id if present.
func (v *VectorIndex) DeleteEmbedding(ctx context.Context, kind core.RecordKind, userID string, id core.ID) error {
	if err := core.ValidateRecordKind(kind); err != nil {
		return err
	}
	if err := storage.ValidateRecordScope(userID, id); err != nil {
		return err
	}
	return v.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Delete(makeVectorKey(kind, userID, id)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// FindSimilar scores every embedding of the user's records of kind against
// vector and returns the best limit matches, highest similarity first.
// Equal scores keep id order.
func (v *VectorIndex) FindSimilar(ctx context.Context, kind core.RecordKind, userID string, vector []float32, limit int) ([]core.SimilarityMatch, error) {
	if err := core.ValidateRecordKind(kind); err != nil {
		return nil, err
	}
	if limit < 0 {
		return nil, fmt.Errorf("%w: negative limit %d", storage.ErrInvalidQuery, limit)
	}
	results := []core.SimilarityMatch{}
	if limit == 0 {
		return results, nil
	}

	queryNorm := norm(vector)
	err := v.backend.WithTx(func(tx *badger.Txn) error {
		return scanPrefix(tx, makePartialVectorKey(kind, userID), false, func(key, value []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			stored, err := storage.UnmarshalVector(value)
			if err != nil {
				return err
			}
			// Skip records without embeddings
			if len(stored) == 0 {
				return nil
			}
			if len(stored) != len(vector) {
				return fmt.Errorf("%w: query has %d dimensions, stored has %d",
					storage.ErrDimensionMismatch, len(vector), len(stored))
			}
			results = append(results, core.SimilarityMatch{
				Id:    core.ID(lastSegment(key)),
				Score: cosineSimilarity(vector, stored, queryNorm),
			})
			return nil
		})
	}, false)
	if err != nil {
		return nil, err
	}

	// Sort by similarity descending
	slices.SortStableFunc(results, func(a, b core.SimilarityMatch) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// cosineSimilarity computes the cosine of the angle between a and b.
// aNorm is the precomputed norm of a. Zero vectors score 0.
func cosineSimilarity(a, b []float32, aNorm float64) float32 {
	bNorm := norm(b)
	if aNorm == 0 || bNorm == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return float32(dot / (aNorm * bNorm))
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
