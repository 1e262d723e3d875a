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


package journalit

import (
	"context"
	"io"
	"log/slog"

	"github.com/poiesic/journalit/ai"
	"github.com/poiesic/journalit/ai/openai"
	"github.com/poiesic/journalit/assemble"
	"github.com/poiesic/journalit/core"
	"github.com/poiesic/journalit/ingestion"
	"github.com/poiesic/journalit/metrics"
	"github.com/poiesic/journalit/reembed"
	"github.com/poiesic/journalit/search"
	"github.com/poiesic/journalit/storage"
	"github.com/poiesic/journalit/storage/badger"
	"github.com/poiesic/journalit/storage/postgres"
)

type Database struct {
	stores   *badger.Stores
	pg       *postgres.DB
	vectors  storage.VectorIndex
	provider ai.AIProvider
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	aiConfig    *ai.Config
	provider    ai.AIProvider
	postgresDSN string
	dimensions  int
	inMemory    bool
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// WithAIConfig sets the configuration of the OpenAI-compatible provider.
func WithAIConfig(config *ai.Config) DatabaseOption {
	return func(o *databaseOptions) {
		o.aiConfig = config
	}
}

// WithProvider uses provider instead of building one from the AI config.
// The database takes ownership and closes it.
func WithProvider(provider ai.AIProvider) DatabaseOption {
	return func(o *databaseOptions) {
		o.provider = provider
	}
}

// WithPostgres stores embeddings in PostgreSQL/pgvector instead of BadgerDB.
// dimensions fixes the vector column width; zero leaves it untyped.
func WithPostgres(dsn string, dimensions int) DatabaseOption {
	return func(o *databaseOptions) {
		o.postgresDSN = dsn
		o.dimensions = dimensions
	}
}

// WithInMemory keeps all BadgerDB data in memory. The file path is ignored.
func WithInMemory() DatabaseOption {
	return func(o *databaseOptions) {
		o.inMemory = true
	}
}

// WithMetrics shares m with every component created by the database.
func WithMetrics(m *metrics.Metrics) DatabaseOption {
	return func(o *databaseOptions) {
		o.metrics = m
	}
}

// WithLogger sets the logger handed to every component.
func WithLogger(logger *slog.Logger) DatabaseOption {
	return func(o *databaseOptions) {
		o.logger = logger
	}
}

func NewDatabase(ctx context.Context, filePath string, opts ...DatabaseOption) (*Database, error) {
	// Apply options
	options := &databaseOptions{
		aiConfig: ai.DefaultConfig(), // Default if not provided
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	// Open document store
	var (
		stores *badger.Stores
		err    error
	)
	if options.inMemory {
		stores, err = badger.NewMemoryStores()
	} else {
		stores, err = badger.OpenStores(filePath)
	}
	if err != nil {
		return nil, err
	}

	db := &Database{
		stores:  stores,
		vectors: stores.Vectors,
		metrics: options.metrics,
		logger:  options.logger,
	}

	// Optional external vector index
	if options.postgresDSN != "" {
		pg, err := postgres.Open(ctx, options.postgresDSN,
			postgres.WithLogger(options.logger),
			postgres.WithDimensions(options.dimensions))
		if err != nil {
			stores.Close()
			return nil, err
		}
		db.pg = pg
		db.vectors = pg
	}

	// Create AI provider with configured settings
	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			db.closeStorage()
			return nil, err
		}
	}
	db.provider = provider

	return db, nil
}

func (db *Database) closeStorage() error {
	if db.pg != nil {
		if err := db.pg.Close(); err != nil {
			db.logger.Error("error closing postgres vector index", "err", err)
		}
	}
	return db.stores.Close()
}

func (db *Database) Close() error {
	// Close AI provider first
	if err := db.provider.Close(); err != nil {
		db.logger.Error("error closing AI provider", "err", err)
	}

	if err := db.closeStorage(); err != nil {
		db.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

// Migrate prepares the external vector index. It does nothing when
// embeddings live in BadgerDB.
func (db *Database) Migrate(ctx context.Context) error {
	if db.pg == nil {
		return nil
	}
	return db.pg.Migrate(ctx)
}

func (db *Database) JournalRepository() storage.JournalRepository {
	return db.stores.Journals
}

func (db *Database) ConversationRepository() storage.ConversationRepository {
	return db.stores.Conversations
}

func (db *Database) VectorIndex() storage.VectorIndex {
	return db.vectors
}

func (db *Database) Provider() ai.AIProvider {
	return db.provider
}

func (db *Database) Metrics() *metrics.Metrics {
	return db.metrics
}

func (db *Database) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	base := []ingestion.Option{ingestion.WithLogger(db.logger), ingestion.WithMetrics(db.metrics)}
	return ingestion.NewPipeline(db.stores.Journals, db.stores.Conversations, db.vectors, db.provider, append(base, opts...)...)
}

// NewSearcher creates a journal searcher over the vector index and the
// attribute index.
func (db *Database) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	base := []search.Option{search.WithLogger(db.logger), search.WithMetrics(db.metrics)}
	return search.NewSearcher(
		search.NewVectorSource(db.vectors, core.RecordKindJournal),
		search.NewAttributeSource(db.stores.Journals),
		db.stores.Journals,
		db.provider,
		append(base, opts...)...,
	)
}

// NewContextBuilder creates a builder that finds journals with finder and
// reads recent turns from the conversation store.
func (db *Database) NewContextBuilder(finder assemble.JournalFinder, opts ...assemble.Option) (*assemble.Builder, error) {
	base := []assemble.Option{assemble.WithLogger(db.logger)}
	return assemble.NewBuilder(finder, db.stores.Conversations, append(base, opts...)...)
}

func (db *Database) NewReembedder(config *reembed.Config, progress io.Writer, opts ...reembed.Option) (*reembed.Reembedder, error) {
	base := []reembed.Option{reembed.WithLogger(db.logger), reembed.WithMetrics(db.metrics)}
	return reembed.NewReembedder(db.stores.Journals, db.stores.Conversations, db.vectors, db.provider.Embedder(),
		config, progress, append(base, opts...)...)
}
