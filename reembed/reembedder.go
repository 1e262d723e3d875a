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
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/journalit/ai"
	"github.com/poiesic/journalit/core"
	"github.com/poiesic/journalit/metrics"
	"github.com/poiesic/journalit/storage"
)

// Config holds configuration for the reembedding operation.
type Config struct {
	// BatchSize is the number of records to process in each batch
	BatchSize int

	// ReportInterval is how often to report progress (number of records)
	ReportInterval int

	// MaxRetries is the maximum number of attempts for failed operations
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration

	// Workers is the number of batches embedded concurrently
	Workers int

	// Kinds lists the record kinds to re-embed, in order
	Kinds []core.RecordKind
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      DefaultBatchSize,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
		Workers:        1,
		Kinds:          core.RecordKinds,
	}
}

// Result summarizes the re-embedding of one record kind.
type Result struct {
	Kind       core.RecordKind
	Total      int
	Reembedded int
	Elapsed    time.Duration
}

// Reembedder orchestrates the re-embedding of every stored record.
type Reembedder struct {
	iterator  *RecordIterator
	processor *BatchProcessor
	config    *Config
	progress  io.Writer
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// Option configures a Reembedder.
type Option func(*Reembedder) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reembedder) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// WithMetrics records re-embedding outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Reembedder) error {
		r.metrics = m
		return nil
	}
}

// NewReembedder creates a new reembedder.
// progress: where to write progress output (typically os.Stderr)
func NewReembedder(
	journals storage.JournalRepository,
	conversations storage.ConversationRepository,
	vectors storage.VectorIndex,
	embedder ai.Embedder,
	config *Config,
	progress io.Writer,
	opts ...Option,
) (*Reembedder, error) {
	if journals == nil {
		return nil, ErrJournalRepositoryRequired
	}
	if conversations == nil {
		return nil, ErrConversationRepositoryRequired
	}
	if vectors == nil {
		return nil, ErrVectorIndexRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.Workers < 1 {
		config.Workers = 1
	}
	if config.MaxRetries < 1 {
		config.MaxRetries = 1
	}
	if len(config.Kinds) == 0 {
		config.Kinds = core.RecordKinds
	}
	for _, kind := range config.Kinds {
		if err := core.ValidateRecordKind(kind); err != nil {
			return nil, err
		}
	}
	if progress == nil {
		progress = io.Discard
	}

	r := &Reembedder{
		config:   config,
		progress: progress,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	r.logger = r.logger.With("component", "reembed")

	r.iterator = NewRecordIterator(journals, conversations, config.BatchSize)
	r.processor = NewBatchProcessor(vectors, embedder, Backoff{
		MaxAttempts: config.MaxRetries,
		BaseDelay:   config.RetryDelay,
		Logger:      r.logger,
	})
	return r, nil
}

// Run re-embeds every configured record kind in order.
// It stops at the first kind that fails.
func (r *Reembedder) Run(ctx context.Context) ([]Result, error) {
	results := make([]Result, 0, len(r.config.Kinds))
	for _, kind := range r.config.Kinds {
		result, err := r.RunKind(ctx, kind)
		results = append(results, result)
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

// RunKind re-embeds every stored record of one kind.
// Progress is reported to the configured writer.
func (r *Reembedder) RunKind(ctx context.Context, kind core.RecordKind) (Result, error) {
	result := Result{Kind: kind}

	total, err := r.iterator.Count(ctx, kind)
	if err != nil {
		return result, fmt.Errorf("failed to count %s records: %w", kind, err)
	}
	result.Total = total

	if total == 0 {
		fmt.Fprintf(r.progress, "No %s records found (0 records)\n", kind)
		return result, nil
	}

	fmt.Fprintf(r.progress, "Starting re-embedding of %d %s records (batch size: %d, workers: %d)\n",
		total, kind, r.iterator.batchSize, r.config.Workers)

	pool, err := ants.NewPool(r.config.Workers)
	if err != nil {
		return result, err
	}
	defer pool.Release()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	tracker := NewProgressTracker(r.progress, string(kind), total, r.config.ReportInterval)
	tracker.Start()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		batchErr error
	)
	failed := func() error {
		mu.Lock()
		defer mu.Unlock()
		return batchErr
	}

	iterErr := r.iterator.ForEach(runCtx, kind, func(batch []Record) error {
		if err := failed(); err != nil {
			return err
		}

		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			err := r.processor.Process(runCtx, batch)
			r.metrics.RecordReembedded(string(kind), len(batch), err)
			if err != nil {
				tracker.Fail(len(batch))
				mu.Lock()
				if batchErr == nil {
					batchErr = err
					cancel()
				}
				mu.Unlock()
				return
			}
			tracker.Increment(len(batch))
		})
		if submitErr != nil {
			wg.Done()
			return submitErr
		}
		return nil
	})
	wg.Wait()
	tracker.Finish()

	result.Reembedded = tracker.Current()
	result.Elapsed = tracker.Elapsed()

	if err := failed(); err != nil {
		r.logger.Error("re-embedding failed", "kind", kind, "done", result.Reembedded, "err", err)
		return result, fmt.Errorf("failed to process batch: %w", err)
	}
	if iterErr != nil {
		return result, iterErr
	}

	fmt.Fprintf(r.progress, "Re-embedding of %s complete. Processed %d records in %v (%.1f records/sec)\n",
		kind, result.Reembedded, result.Elapsed.Round(time.Millisecond), float64(result.Reembedded)/result.Elapsed.Seconds())
	r.logger.Info("re-embedding complete", "kind", kind, "records", result.Reembedded)

	return result, nil
}
