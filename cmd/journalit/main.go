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


package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/poiesic/journalit"
	"github.com/poiesic/journalit/ai/mock"
	"github.com/poiesic/journalit/assemble"
	"github.com/poiesic/journalit/config"
	"github.com/poiesic/journalit/core"
	"github.com/poiesic/journalit/ingestion"
	"github.com/poiesic/journalit/metrics"
	"github.com/poiesic/journalit/reembed"
	"github.com/poiesic/journalit/search"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func userFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "user",
		Aliases:  []string{"u"},
		Usage:    "User the records belong to",
		Required: true,
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "journalit",
		Usage: "Hybrid retrieval over journal entries and therapist conversations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML config file",
				EnvVars: []string{"JOURNALIT_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB database directory (overrides config)",
			},
			&cli.StringFlag{
				Name:    "postgres-dsn",
				Usage:   "Store embeddings in PostgreSQL/pgvector (overrides config)",
				EnvVars: []string{"JOURNALIT_POSTGRES_DSN"},
			},
			&cli.BoolFlag{
				Name:  "mock-ai",
				Usage: "Use deterministic offline embedding and analysis",
			},
		},
		Before: func(c *cli.Context) error {
			// A missing .env file is fine
			_ = godotenv.Load()
			return setupLogger(c)
		},
		Commands: []*cli.Command{
			{
				Name:      "index-journal",
				Usage:     "Analyze, store and embed a journal entry",
				ArgsUsage: "[text] (reads stdin when omitted)",
				Action:    indexJournalCommand,
				Flags:     []cli.Flag{userFlag()},
			},
			{
				Name:   "index-turn",
				Usage:  "Summarize, store and embed a conversation turn",
				Action: indexTurnCommand,
				Flags: []cli.Flag{
					userFlag(),
					&cli.StringFlag{
						Name:     "message",
						Aliases:  []string{"m"},
						Usage:    "What the user said",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "response",
						Aliases:  []string{"r"},
						Usage:    "What the assistant replied",
						Required: true,
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Find the journal entries most relevant to a query",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					userFlag(),
					&cli.IntFlag{
						Name:    "top-k",
						Aliases: []string{"k"},
						Usage:   "Number of entries to return",
						Value:   5,
					},
					&cli.BoolFlag{
						Name:  "explain",
						Usage: "Log each retrieval stage",
					},
				},
			},
			{
				Name:      "context",
				Usage:     "Assemble the chat context for a query as YAML",
				ArgsUsage: "<query>",
				Action:    contextCommand,
				Flags:     []cli.Flag{userFlag()},
			},
			{
				Name:   "reembed",
				Usage:  "Reembed all stored records with the configured embedding model",
				Action: reembedCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of records to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N records",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Number of batches embedded concurrently",
						Value: 1,
					},
					&cli.StringSliceFlag{
						Name:  "kind",
						Usage: "Record kinds to reembed (journal, conversation)",
					},
				},
			},
			{
				Name:   "migrate",
				Usage:  "Create the pgvector extension and embedding tables",
				Action: migrateCommand,
			},
		},
	}
}

// session holds what every command needs for one run.
type session struct {
	cfg     *config.Config
	db      *journalit.Database
	metrics *metrics.Metrics
}

func openSession(c *cli.Context) (*session, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if c.IsSet("db") {
		cfg.Storage.Path = c.String("db")
	}
	if c.IsSet("postgres-dsn") {
		cfg.Storage.PostgresDSN = c.String("postgres-dsn")
	}

	m := metrics.New(metrics.DefaultConfig())
	opts := []journalit.DatabaseOption{
		journalit.WithAIConfig(cfg.AIConfig()),
		journalit.WithMetrics(m),
		journalit.WithLogger(slog.Default()),
	}
	if cfg.Storage.PostgresDSN != "" {
		opts = append(opts, journalit.WithPostgres(cfg.Storage.PostgresDSN, cfg.Storage.Dimensions))
	}
	if c.Bool("mock-ai") {
		opts = append(opts, journalit.WithProvider(mock.NewMockProvider()))
	}

	db, err := journalit.NewDatabase(c.Context, cfg.Storage.Path, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &session{cfg: cfg, db: db, metrics: m}, nil
}

// close pushes metrics when a Pushgateway is configured and closes the
// database.
func (s *session) close(ctx context.Context) {
	if url := s.cfg.Metrics.PushURL; url != "" {
		if err := s.metrics.Push(ctx, url, s.cfg.Metrics.Job); err != nil {
			slog.Warn("failed to push metrics", "url", url, "err", err)
		}
	}
	if err := s.db.Close(); err != nil {
		slog.Error("failed to close database", "err", err)
	}
}

func (s *session) searcher() (*search.Searcher, error) {
	return s.db.NewSearcher(
		search.WithOversampleFactor(s.cfg.Search.OversampleFactor),
		search.WithPartialResults(s.cfg.Search.PartialResults),
		search.WithDedupePerSource(s.cfg.Search.DedupePerSource),
		search.WithCacheSize(*s.cfg.Search.CacheSize),
		search.WithKeywordTags(s.cfg.Search.KeywordTags),
	)
}

func queryArg(c *cli.Context) (string, error) {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return "", fmt.Errorf("query is required")
	}
	return query, nil
}

func indexJournalCommand(c *cli.Context) error {
	text := strings.Join(c.Args().Slice(), " ")
	if text == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		text = string(data)
	}

	s, err := openSession(c)
	if err != nil {
		return err
	}
	defer s.close(c.Context)

	pipeline, err := s.db.NewIngestionPipeline(ingestion.WithPoolSize(s.cfg.Ingestion.Workers))
	if err != nil {
		return err
	}
	defer pipeline.Release()

	entry, err := pipeline.IndexJournal(c.Context, c.String("user"), text)
	if err != nil {
		return fmt.Errorf("failed to index journal entry: %w", err)
	}
	fmt.Fprintln(c.App.Writer, entry.Id)
	return nil
}

func indexTurnCommand(c *cli.Context) error {
	s, err := openSession(c)
	if err != nil {
		return err
	}
	defer s.close(c.Context)

	pipeline, err := s.db.NewIngestionPipeline(ingestion.WithPoolSize(s.cfg.Ingestion.Workers))
	if err != nil {
		return err
	}
	if err := pipeline.IndexConversationTurn(c.Context, c.String("user"), c.String("message"), c.String("response")); err != nil {
		pipeline.Release()
		return fmt.Errorf("failed to queue conversation turn: %w", err)
	}
	// Release waits for the queued turn
	pipeline.Release()
	return nil
}

func searchCommand(c *cli.Context) error {
	query, err := queryArg(c)
	if err != nil {
		return err
	}

	s, err := openSession(c)
	if err != nil {
		return err
	}
	defer s.close(c.Context)

	searcher, err := s.searcher()
	if err != nil {
		return err
	}
	defer searcher.Close()

	userID := c.String("user")
	var ids []core.ID
	if c.Bool("explain") {
		ids, err = searcher.RetrieveWithMonitor(c.Context, userID, query, c.Int("top-k"), newLogMonitor(slog.Default()))
	} else {
		ids, err = searcher.Retrieve(c.Context, userID, query, c.Int("top-k"))
	}
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	entries, err := s.db.JournalRepository().GetJournalEntries(c.Context, userID, ids...)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(c.App.Writer, "No matching journal entries")
		return nil
	}
	for i, entry := range entries {
		fmt.Fprintf(c.App.Writer, "%d. [%s] %s %s\n", i+1, entry.Id, entry.CreatedAt.Format(time.DateOnly), entry.Summary)
	}
	return nil
}

func contextCommand(c *cli.Context) error {
	query, err := queryArg(c)
	if err != nil {
		return err
	}

	s, err := openSession(c)
	if err != nil {
		return err
	}
	defer s.close(c.Context)

	searcher, err := s.searcher()
	if err != nil {
		return err
	}
	defer searcher.Close()

	builder, err := s.db.NewContextBuilder(searcher,
		assemble.WithTopK(*s.cfg.Context.TopK),
		assemble.WithRecentTurns(*s.cfg.Context.RecentTurns))
	if err != nil {
		return err
	}

	out, err := builder.Build(c.Context, c.String("user"), query)
	if err != nil {
		return fmt.Errorf("failed to build context: %w", err)
	}

	enc := yaml.NewEncoder(c.App.Writer)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return err
	}
	return enc.Close()
}

func reembedCommand(c *cli.Context) error {
	reembedConfig := &reembed.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
		Workers:        c.Int("workers"),
	}
	for _, kind := range c.StringSlice("kind") {
		reembedConfig.Kinds = append(reembedConfig.Kinds, core.RecordKind(kind))
	}

	// Validate config
	if reembedConfig.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if reembedConfig.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if reembedConfig.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}
	if reembedConfig.Workers <= 0 {
		return fmt.Errorf("workers must be greater than 0")
	}

	s, err := openSession(c)
	if err != nil {
		return err
	}
	defer s.close(c.Context)

	if !c.IsSet("batch-size") {
		reembedConfig.BatchSize = s.cfg.Reembed.BatchSize
	}
	if !c.IsSet("max-retries") {
		reembedConfig.MaxRetries = s.cfg.Reembed.MaxRetries
	}

	reembedder, err := s.db.NewReembedder(reembedConfig, c.App.ErrWriter)
	if err != nil {
		return fmt.Errorf("failed to create reembedder: %w", err)
	}

	if _, err := reembedder.Run(c.Context); err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}
	return nil
}

func migrateCommand(c *cli.Context) error {
	s, err := openSession(c)
	if err != nil {
		return err
	}
	defer s.close(c.Context)

	if s.cfg.Storage.PostgresDSN == "" {
		fmt.Fprintln(c.App.Writer, "No PostgreSQL DSN configured; embeddings are stored in BadgerDB")
		return nil
	}
	if err := s.db.Migrate(c.Context); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	fmt.Fprintln(c.App.Writer, "Migration complete")
	return nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
