package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/poiesic/journalit/ai"
	"github.com/poiesic/journalit/core"
	"github.com/poiesic/journalit/metrics"
	"github.com/poiesic/journalit/rank"
	"github.com/poiesic/journalit/storage"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultOversampleFactor multiplies topK to get each source's limit.
	DefaultOversampleFactor = 2

	// DefaultCacheSize is the number of query embeddings kept in memory.
	DefaultCacheSize = 1024
)

// Searcher retrieves journal entries by merging vector and attribute
// candidates.
type Searcher struct {
	vectors    VectorCandidateSource
	attributes AttributeCandidateSource
	journals   storage.JournalRepository
	embedder   ai.Embedder
	analyzer   ai.Analyzer
	logger     *slog.Logger
	metrics    *metrics.Metrics

	partialResults  bool
	dedupePerSource bool
	keywordTags     bool
	oversample      int
	cacheSize       int64
	cache           *ristretto.Cache[uint64, []float32]
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithPartialResults lets a retrieval continue with one candidate list when
// the other source fails. Default is false: any source failure fails the
// retrieval.
func WithPartialResults(enabled bool) Option {
	return func(s *Searcher) error {
		s.partialResults = enabled
		return nil
	}
}

// WithDedupePerSource counts an identifier at most once per candidate list.
// Default is false: repeated identifiers score once per occurrence.
func WithDedupePerSource(enabled bool) Option {
	return func(s *Searcher) error {
		s.dedupePerSource = enabled
		return nil
	}
}

// WithOversampleFactor sets how many candidates per requested result each
// source is asked for. Default is 2.
func WithOversampleFactor(factor int) Option {
	return func(s *Searcher) error {
		if factor < 1 {
			return fmt.Errorf("%w: oversample factor must be at least 1, got %d", ErrInvalidOption, factor)
		}
		s.oversample = factor
		return nil
	}
}

// WithCacheSize sets the number of query embeddings cached. Zero disables
// the cache. Default is 1024.
func WithCacheSize(size int) Option {
	return func(s *Searcher) error {
		if size < 0 {
			return fmt.Errorf("%w: cache size must not be negative, got %d", ErrInvalidOption, size)
		}
		s.cacheSize = int64(size)
		return nil
	}
}

// WithMetrics records retrieval metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Searcher) error {
		s.metrics = m
		return nil
	}
}

// WithKeywordTags falls back to the query's words as tag predicates when
// the analyzer finds no attributes in the query.
func WithKeywordTags(enabled bool) Option {
	return func(s *Searcher) error {
		s.keywordTags = enabled
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(
	vectors VectorCandidateSource,
	attributes AttributeCandidateSource,
	journals storage.JournalRepository,
	provider ai.AIProvider,
	opts ...Option,
) (*Searcher, error) {
	if vectors == nil {
		return nil, ErrVectorSourceRequired
	}
	if attributes == nil {
		return nil, ErrAttributeSourceRequired
	}
	if journals == nil {
		return nil, ErrJournalRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	s := &Searcher{
		vectors:    vectors,
		attributes: attributes,
		journals:   journals,
		embedder:   provider.Embedder(),
		analyzer:   provider.Analyzer(),
		logger:     slog.Default(),
		oversample: DefaultOversampleFactor,
		cacheSize:  DefaultCacheSize,
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "searcher")

	if s.cacheSize > 0 {
		cache, err := ristretto.NewCache(&ristretto.Config[uint64, []float32]{
			NumCounters:        s.cacheSize * 10,
			MaxCost:            s.cacheSize,
			BufferItems:        64,
			IgnoreInternalCost: true,
		})
		if err != nil {
			return nil, err
		}
		s.cache = cache
	}

	return s, nil
}

// Close releases the embedding cache.
func (s *Searcher) Close() {
	if s.cache != nil {
		s.cache.Close()
	}
}

// Retrieve returns up to topK journal identifiers for query, best first.
func (s *Searcher) Retrieve(ctx context.Context, userID, query string, topK int) ([]core.ID, error) {
	return s.RetrieveWithMonitor(ctx, userID, query, topK, nil)
}

// RetrieveWithMonitor is Retrieve with callbacks at each stage.
func (s *Searcher) RetrieveWithMonitor(ctx context.Context, userID, query string, topK int, monitor SearchMonitor) ([]core.ID, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if err := validate(userID, topK); err != nil {
		return nil, err
	}

	monitor.Start(userID, query)
	if topK == 0 {
		monitor.Finish([]core.ID{})
		return []core.ID{}, nil
	}

	embedding, filter, err := s.prepareQuery(ctx, query, monitor)
	if err != nil {
		return nil, err
	}
	return s.retrieve(ctx, userID, embedding, filter, topK, monitor)
}

// RetrieveWith runs a retrieval for a caller-supplied embedding and filter.
func (s *Searcher) RetrieveWith(ctx context.Context, userID string, embedding []float32, filter core.AttributeFilter, topK int) ([]core.ID, error) {
	if err := validate(userID, topK); err != nil {
		return nil, err
	}
	return s.retrieve(ctx, userID, embedding, filter, topK, &noopMonitor{})
}

// FindJournals retrieves the entries behind Retrieve's identifiers in rank
// order. Identifiers without a stored entry are skipped.
func (s *Searcher) FindJournals(ctx context.Context, userID, query string, topK int) ([]*core.JournalEntry, error) {
	ids, err := s.Retrieve(ctx, userID, query, topK)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*core.JournalEntry{}, nil
	}

	entries, err := s.journals.GetJournalEntries(ctx, userID, ids...)
	if err != nil {
		s.logger.Error("error retrieving journal entries", "count", len(ids), "err", err)
		return nil, err
	}
	if missing := len(ids) - len(entries); missing > 0 {
		s.logger.Warn("ranked journal entries missing from store", "userID", userID, "missing", missing)
	}
	return entries, nil
}

func validate(userID string, topK int) error {
	if userID == "" {
		return core.ErrEmptyUserID
	}
	if topK < 0 {
		return fmt.Errorf("%w: topK must be non-negative, got %d", rank.ErrInvalidArgument, topK)
	}
	return nil
}

// prepareQuery embeds the query and extracts its filter concurrently.
func (s *Searcher) prepareQuery(ctx context.Context, query string, monitor SearchMonitor) ([]float32, core.AttributeFilter, error) {
	var (
		embedding []float32
		cached    bool
		filter    core.AttributeFilter
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		embedding, cached, err = s.embedQuery(gctx, query)
		if err != nil {
			s.logger.Error("error generating embedding for query", "err", err)
			return fmt.Errorf("%w: %w", ErrEmbeddingFailed, err)
		}
		return nil
	})
	g.Go(func() error {
		f, err := s.analyzer.ExtractFilter(gctx, query)
		if err != nil {
			if s.partialResults {
				s.logger.Warn("filter extraction failed, continuing without attributes", "err", err)
				return nil
			}
			s.logger.Error("error extracting filter from query", "err", err)
			return fmt.Errorf("%w: %w", ErrFilterExtractionFailed, err)
		}
		filter = f
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, core.AttributeFilter{}, err
	}

	if s.keywordTags && filter.Normalized().IsEmpty() {
		filter = keywordFilter(query)
	}

	monitor.AfterEmbedding(len(embedding), cached)
	monitor.AfterFilterExtraction(filter)
	return embedding, filter, nil
}

// embedQuery returns the query embedding, consulting the cache first.
func (s *Searcher) embedQuery(ctx context.Context, query string) ([]float32, bool, error) {
	key := core.HashContent(query)
	if s.cache != nil {
		if vec, ok := s.cache.Get(key); ok {
			s.metrics.RecordCacheLookup(true)
			return vec, true, nil
		}
		s.metrics.RecordCacheLookup(false)
	}

	vec, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, false, err
	}
	if s.cache != nil && len(vec) > 0 {
		s.cache.Set(key, vec, 1)
	}
	return vec, false, nil
}

// oversampledLimit returns topK*factor, saturating at math.MaxInt.
func oversampledLimit(topK, factor int) int {
	if topK > math.MaxInt/factor {
		return math.MaxInt
	}
	return topK * factor
}

// retrieve fetches both candidate lists at oversample x topK and merges them.
func (s *Searcher) retrieve(ctx context.Context, userID string, embedding []float32, filter core.AttributeFilter, topK int, monitor SearchMonitor) ([]core.ID, error) {
	if topK == 0 {
		monitor.Finish([]core.ID{})
		return []core.ID{}, nil
	}
	limit := oversampledLimit(topK, s.oversample)

	var (
		vectorIDs, attributeIDs []core.ID
		vectorErr, attributeErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		vectorIDs, vectorErr = s.fetchVector(gctx, userID, embedding, limit)
		if vectorErr != nil && !s.partialResults {
			return vectorErr
		}
		return nil
	})
	g.Go(func() error {
		attributeIDs, attributeErr = s.fetchAttributes(gctx, userID, filter, limit)
		if attributeErr != nil && !s.partialResults {
			return attributeErr
		}
		return nil
	})
	err := g.Wait()

	monitor.AfterVectorCandidates(vectorIDs, vectorErr)
	monitor.AfterAttributeCandidates(attributeIDs, attributeErr)

	if err != nil {
		s.logger.Error("candidate source failed", "userID", userID, "err", err)
		return nil, err
	}
	switch {
	case vectorErr != nil && attributeErr != nil:
		return nil, fmt.Errorf("%w: %w", ErrAllSourcesFailed, errors.Join(vectorErr, attributeErr))
	case vectorErr != nil:
		s.logger.Warn("vector source failed, ranking attribute candidates only", "err", vectorErr)
	case attributeErr != nil:
		s.logger.Warn("attribute source failed, ranking vector candidates only", "err", attributeErr)
	}

	scored, err := rank.MergeScoredWithOptions(vectorIDs, attributeIDs, topK, rank.Options{DedupePerSource: s.dedupePerSource})
	if err != nil {
		return nil, err
	}
	monitor.AfterMerge(scored)

	ids := make([]core.ID, len(scored))
	for i, sc := range scored {
		ids[i] = sc.Id
	}
	s.metrics.ObserveMerged(len(ids))
	s.logger.Debug("retrieval complete",
		"userID", userID,
		"vectorCandidates", len(vectorIDs),
		"attributeCandidates", len(attributeIDs),
		"results", len(ids))

	monitor.Finish(ids)
	return ids, nil
}

func (s *Searcher) fetchVector(ctx context.Context, userID string, embedding []float32, limit int) ([]core.ID, error) {
	if len(embedding) == 0 {
		return []core.ID{}, nil
	}
	start := time.Now()
	ids, err := s.vectors.FetchVectorCandidates(ctx, userID, embedding, limit)
	s.metrics.ObserveSource(metrics.SourceVector, time.Since(start), len(ids), err)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrVectorSourceFailed, err)
	}
	return ids, nil
}

func (s *Searcher) fetchAttributes(ctx context.Context, userID string, filter core.AttributeFilter, limit int) ([]core.ID, error) {
	if filter.Normalized().IsEmpty() {
		return []core.ID{}, nil
	}
	start := time.Now()
	ids, err := s.attributes.FetchAttributeCandidates(ctx, userID, filter, limit)
	s.metrics.ObserveSource(metrics.SourceAttribute, time.Since(start), len(ids), err)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAttributeSourceFailed, err)
	}
	return ids, nil
}
