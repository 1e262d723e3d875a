package rank

import (
	"errors"
	"fmt"
	"slices"
)

// ErrInvalidArgument is returned when topK is negative.
var ErrInvalidArgument = errors.New("invalid argument")

const (
	// VectorWeight is added for each occurrence in the vector list.
	VectorWeight = 1
	// AttributeWeight is added for each occurrence in the attribute list.
	AttributeWeight = 2
)

// Scored is an identifier with its accumulated score.
type Scored[T comparable] struct {
	Id    T
	Score int
}

// Options tunes a merge.
type Options struct {
	// DedupePerSource counts an identifier at most once per source list.
	// When false, every occurrence contributes its weight.
	DedupePerSource bool
}

// Merge returns at most topK identifiers ranked by combined score.
// Duplicates inside a list each contribute their weight.
func Merge[T comparable](vector, attribute []T, topK int) ([]T, error) {
	return MergeWithOptions(vector, attribute, topK, Options{})
}

// MergeWithOptions is Merge with explicit Options.
func MergeWithOptions[T comparable](vector, attribute []T, topK int, opts Options) ([]T, error) {
	scored, err := MergeScoredWithOptions(vector, attribute, topK, opts)
	if err != nil {
		return nil, err
	}
	ids := make([]T, len(scored))
	for i, s := range scored {
		ids[i] = s.Id
	}
	return ids, nil
}

// MergeScored is Merge returning the scores alongside the identifiers.
func MergeScored[T comparable](vector, attribute []T, topK int) ([]Scored[T], error) {
	return MergeScoredWithOptions(vector, attribute, topK, Options{})
}

// MergeScoredWithOptions is MergeScored with explicit Options.
func MergeScoredWithOptions[T comparable](vector, attribute []T, topK int, opts Options) ([]Scored[T], error) {
	if topK < 0 {
		return nil, fmt.Errorf("%w: topK must be >= 0, got %d", ErrInvalidArgument, topK)
	}
	if topK == 0 {
		return []Scored[T]{}, nil
	}

	// position holds the first-seen index into entries
	position := make(map[T]int, len(vector)+len(attribute))
	entries := make([]Scored[T], 0, len(vector)+len(attribute))

	accumulate := func(list []T, weight int) {
		var seen map[T]struct{}
		if opts.DedupePerSource {
			seen = make(map[T]struct{}, len(list))
		}
		for _, id := range list {
			if seen != nil {
				if _, ok := seen[id]; ok {
					continue
				}
				seen[id] = struct{}{}
			}
			if i, ok := position[id]; ok {
				entries[i].Score += weight
				continue
			}
			position[id] = len(entries)
			entries = append(entries, Scored[T]{Id: id, Score: weight})
		}
	}
	accumulate(vector, VectorWeight)
	accumulate(attribute, AttributeWeight)

	slices.SortStableFunc(entries, func(a, b Scored[T]) int {
		return b.Score - a.Score
	})

	if len(entries) > topK {
		entries = entries[:topK]
	}
	return entries, nil
}
