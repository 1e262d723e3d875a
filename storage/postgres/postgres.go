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


// Package postgres implements storage.VectorIndex on PostgreSQL with the
// pgvector extension. Journal and conversation embeddings live in separate
// tables and are ranked by cosine similarity.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/poiesic/journalit/core"
	"github.com/poiesic/journalit/storage"
)

// table describes where one record kind's embeddings are stored.
type table struct {
	name     string
	idColumn string
}

var tables = map[core.RecordKind]table{
	core.RecordKindJournal:      {name: "journal_embeddings", idColumn: "journal_id"},
	core.RecordKindConversation: {name: "conversation_embeddings", idColumn: "summary_id"},
}

func tableFor(kind core.RecordKind) (table, error) {
	t, ok := tables[kind]
	if !ok {
		return table{}, fmt.Errorf("%w: %q", core.ErrInvalidRecordKind, kind)
	}
	return t, nil
}

// DB is a pgvector-backed vector index.
type DB struct {
	db         *sql.DB
	dimensions int
	logger     *slog.Logger
}

var _ storage.VectorIndex = (*DB)(nil)

// Option configures a DB.
type Option func(*DB) error

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *DB) error {
		if logger == nil {
			logger = slog.Default()
		}
		d.logger = logger
		return nil
	}
}

// WithDimensions fixes the embedding column width used by Migrate.
// Zero leaves the column untyped so any width can be stored.
func WithDimensions(n int) Option {
	return func(d *DB) error {
		if n < 0 {
			return fmt.Errorf("dimensions must be non-negative, got %d", n)
		}
		d.dimensions = n
		return nil
	}
}

// Open connects to PostgreSQL at dsn and verifies the connection.
func Open(ctx context.Context, dsn string, opts ...Option) (*DB, error) {
	if dsn == "" {
		return nil, errors.New("dsn is empty")
	}

	d := &DB{logger: slog.Default()}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	d.logger = d.logger.With("component", "postgres")

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(2 * time.Hour)
	db.SetConnMaxIdleTime(15 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}

	d.db = db
	return d, nil
}

// Close closes the connection pool.
func (d *DB) Close() error {
	return d.db.Close()
}

// Migrate creates the pgvector extension and the embedding tables if they
// don't exist.
func (d *DB) Migrate(ctx context.Context) error {
	column := "vector"
	if d.dimensions > 0 {
		column = fmt.Sprintf("vector(%d)", d.dimensions)
	}

	stmts := []string{`CREATE EXTENSION IF NOT EXISTS vector`}
	for _, kind := range core.RecordKinds {
		t := tables[kind]
		stmts = append(stmts,
			`CREATE TABLE IF NOT EXISTS `+t.name+` (
				`+t.idColumn+` TEXT NOT NULL,
				user_id TEXT NOT NULL,
				embedding `+column+` NOT NULL,
				updated_ts TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				PRIMARY KEY (user_id, `+t.idColumn+`)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_`+t.name+`_user ON `+t.name+` (user_id)`,
		)
	}

	for _, stmt := range stmts {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "failed to migrate")
		}
	}
	d.logger.Info("schema migrated", "dimensions", d.dimensions)
	return nil
}

// UpsertEmbedding inserts or replaces the embedding for (kind, user, id).
func (d *DB) UpsertEmbedding(ctx context.Context, kind core.RecordKind, userID string, id core.ID, vector []float32) error {
	t, err := tableFor(kind)
	if err != nil {
		return err
	}
	if err := storage.ValidateRecordScope(userID, id); err != nil {
		return err
	}

	stmt := `
		INSERT INTO ` + t.name + ` (` + t.idColumn + `, user_id, embedding, updated_ts)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, ` + t.idColumn + `)
		DO UPDATE SET
			embedding = EXCLUDED.embedding,
			updated_ts = EXCLUDED.updated_ts
	`
	if _, err := d.db.ExecContext(ctx, stmt, string(id), userID, pgvector.NewVector(vector)); err != nil {
		return errors.Wrapf(err, "failed to upsert %s embedding", kind)
	}
	return nil
}

// DeleteEmbedding removes the embedding for (kind, user, id) if present.
func (d *DB) DeleteEmbedding(ctx context.Context, kind core.RecordKind, userID string, id core.ID) error {
	t, err := tableFor(kind)
	if err != nil {
		return err
	}
	if err := storage.ValidateRecordScope(userID, id); err != nil {
		return err
	}
	stmt := `DELETE FROM ` + t.name + ` WHERE user_id = $1 AND ` + t.idColumn + ` = $2`
	if _, err := d.db.ExecContext(ctx, stmt, userID, string(id)); err != nil {
		return errors.Wrapf(err, "failed to delete %s embedding", kind)
	}
	return nil
}

// FindSimilar returns up to limit of the user's records of kind ordered by
// cosine similarity to vector, most similar first.
func (d *DB) FindSimilar(ctx context.Context, kind core.RecordKind, userID string, vector []float32, limit int) ([]core.SimilarityMatch, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	if limit < 0 {
		return nil, fmt.Errorf("%w: negative limit %d", storage.ErrInvalidQuery, limit)
	}
	results := []core.SimilarityMatch{}
	if limit == 0 {
		return results, nil
	}

	// <=> is cosine distance, so ascending distance is descending similarity
	query := `
		SELECT ` + t.idColumn + `, 1 - (embedding <=> $1) AS score
		FROM ` + t.name + `
		WHERE user_id = $2
		ORDER BY embedding <=> $1, ` + t.idColumn + `
		LIMIT $3`

	rows, err := d.db.QueryContext(ctx, query, pgvector.NewVector(vector), userID, limit)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to search %s embeddings", kind)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var score float64
		if err := rows.Scan(&id, &score); err != nil {
			return nil, errors.Wrap(err, "failed to scan similarity match")
		}
		results = append(results, core.SimilarityMatch{Id: core.ID(id), Score: float32(score)})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read similarity matches")
	}
	return results, nil
}

// GetEmbedding returns the stored vector for (kind, user, id).
func (d *DB) GetEmbedding(ctx context.Context, kind core.RecordKind, userID string, id core.ID) ([]float32, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	query := `SELECT embedding FROM ` + t.name + ` WHERE user_id = $1 AND ` + t.idColumn + ` = $2`

	var vector pgvector.Vector
	err = d.db.QueryRowContext(ctx, query, userID, string(id)).Scan(&vector)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s embedding %s", storage.ErrNotFound, kind, id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get %s embedding", kind)
	}
	return vector.Slice(), nil
}
