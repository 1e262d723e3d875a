package search

import (
	"context"

	"github.com/poiesic/journalit/core"
	"github.com/poiesic/journalit/storage"
)

// VectorCandidateSource returns identifiers ordered by similarity to an
// embedding, most similar first.
type VectorCandidateSource interface {
	FetchVectorCandidates(ctx context.Context, userID string, embedding []float32, limit int) ([]core.ID, error)
}

// AttributeCandidateSource returns identifiers of records matching a
// predicate set. Order is implementation-defined.
type AttributeCandidateSource interface {
	FetchAttributeCandidates(ctx context.Context, userID string, filter core.AttributeFilter, limit int) ([]core.ID, error)
}

// VectorSourceFunc adapts a function to VectorCandidateSource.
type VectorSourceFunc func(ctx context.Context, userID string, embedding []float32, limit int) ([]core.ID, error)

// FetchVectorCandidates calls f.
func (f VectorSourceFunc) FetchVectorCandidates(ctx context.Context, userID string, embedding []float32, limit int) ([]core.ID, error) {
	return f(ctx, userID, embedding, limit)
}

// AttributeSourceFunc adapts a function to AttributeCandidateSource.
type AttributeSourceFunc func(ctx context.Context, userID string, filter core.AttributeFilter, limit int) ([]core.ID, error)

// FetchAttributeCandidates calls f.
func (f AttributeSourceFunc) FetchAttributeCandidates(ctx context.Context, userID string, filter core.AttributeFilter, limit int) ([]core.ID, error) {
	return f(ctx, userID, filter, limit)
}

type vectorSource struct {
	index storage.VectorIndex
	kind  core.RecordKind
}

// NewVectorSource serves vector candidates of one record kind from index.
func NewVectorSource(index storage.VectorIndex, kind core.RecordKind) VectorCandidateSource {
	return &vectorSource{index: index, kind: kind}
}

func (v *vectorSource) FetchVectorCandidates(ctx context.Context, userID string, embedding []float32, limit int) ([]core.ID, error) {
	matches, err := v.index.FindSimilar(ctx, v.kind, userID, embedding, limit)
	if err != nil {
		return nil, err
	}
	ids := make([]core.ID, len(matches))
	for i, m := range matches {
		ids[i] = m.Id
	}
	return ids, nil
}

type attributeSource struct {
	repo storage.JournalRepository
}

// NewAttributeSource serves attribute candidates from the journal
// repository's attribute index.
func NewAttributeSource(repo storage.JournalRepository) AttributeCandidateSource {
	return &attributeSource{repo: repo}
}

func (a *attributeSource) FetchAttributeCandidates(ctx context.Context, userID string, filter core.AttributeFilter, limit int) ([]core.ID, error) {
	return a.repo.FindByAttributes(ctx, userID, filter, limit)
}
