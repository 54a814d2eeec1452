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

// Package pgvector stores vectors in PostgreSQL using the pgvector extension.
package pgvector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	pgv "github.com/pgvector/pgvector-go"
	"github.com/poiesic/vidindex/core"
	"github.com/poiesic/vidindex/storage"
)

// DefaultTable is the table used when none is configured.
const DefaultTable = "transcript_vectors"

// DB is the subset of pgxpool.Pool used by the store.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// VectorStore implements storage.VectorStore on PostgreSQL.
type VectorStore struct {
	db         DB
	closer     func()
	tableIdent string
	dimension  int
	logger     *slog.Logger
}

var _ storage.VectorStore = (*VectorStore)(nil)

// Option configures a VectorStore.
type Option func(*VectorStore)

// WithTable overrides the table name.
func WithTable(table string) Option {
	return func(s *VectorStore) {
		if table != "" {
			s.tableIdent = pgx.Identifier{table}.Sanitize()
		}
	}
}

// New wraps an existing connection. The caller keeps ownership of db.
func New(db DB, dimension int, opts ...Option) (*VectorStore, error) {
	if db == nil {
		return nil, errors.New("pgvector: db is required")
	}
	if dimension <= 0 {
		return nil, errors.New("pgvector: dimension must be positive")
	}
	s := &VectorStore{
		db:         db,
		tableIdent: pgx.Identifier{DefaultTable}.Sanitize(),
		dimension:  dimension,
		logger:     slog.Default().With("component", "pgvector"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Open connects to dsn, ensures the schema and returns a store owning the pool.
func Open(ctx context.Context, dsn string, dimension int, opts ...Option) (*VectorStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgvector: connect: %w", err)
	}
	s, err := New(pool, dimension, opts...)
	if err != nil {
		pool.Close()
		return nil, err
	}
	s.closer = pool.Close
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// EnsureSchema creates the extension and table if they do not exist.
func (s *VectorStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("pgvector: enable extension: %w", err)
	}
	createTable := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id TEXT PRIMARY KEY,
	embedding vector(%d),
	title TEXT NOT NULL,
	chunk_index INTEGER NOT NULL,
	metadata JSONB,
	updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
)`, s.tableIdent, s.dimension)
	if _, err := s.db.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("pgvector: create table: %w", err)
	}
	return nil
}

// Upsert writes all entries in one transaction.
func (s *VectorStore) Upsert(ctx context.Context, entries []core.IndexEntry) (err error) {
	if len(entries) == 0 {
		return nil
	}
	for i := range entries {
		if vErr := core.ValidateIndexEntry(&entries[i], s.dimension); vErr != nil {
			return vErr
		}
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("pgvector: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				err = errors.Join(err, fmt.Errorf("pgvector: rollback: %w", rbErr))
			}
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			err = fmt.Errorf("pgvector: commit: %w", commitErr)
		}
	}()

	stmt := fmt.Sprintf(`INSERT INTO %s (id, embedding, title, chunk_index, metadata, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET
    embedding = excluded.embedding,
    title = excluded.title,
    chunk_index = excluded.chunk_index,
    metadata = excluded.metadata,
    updated_at = excluded.updated_at`, s.tableIdent)

	now := time.Now().UTC()
	for i := range entries {
		e := &entries[i]
		metadata, marshalErr := json.Marshal(e.Metadata())
		if marshalErr != nil {
			return fmt.Errorf("pgvector: marshal metadata for %q: %w", e.ChunkID, marshalErr)
		}
		if _, execErr := tx.Exec(ctx, stmt, e.ChunkID, pgv.NewVector(e.Vector), e.Title, e.SequenceNumber, metadata, now); execErr != nil {
			return fmt.Errorf("pgvector: upsert %q: %w", e.ChunkID, execErr)
		}
	}
	return nil
}

// Search orders rows by cosine distance using the <=> operator.
func (s *VectorStore) Search(ctx context.Context, vector []float32, minScore float32, limit int) ([]core.VectorMatch, error) {
	if err := storage.ValidateQuery(vector, limit); err != nil {
		return nil, err
	}
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: got %d want %d", storage.ErrDimensionMismatch, len(vector), s.dimension)
	}

	query := fmt.Sprintf(`SELECT id, title, chunk_index, 1 - (embedding <=> $1) AS score FROM %s
WHERE 1 - (embedding <=> $1) >= $2
ORDER BY embedding <=> $1 ASC LIMIT $3`, s.tableIdent)
	rows, err := s.db.Query(ctx, query, pgv.NewVector(vector), float64(minScore), limit)
	if err != nil {
		return nil, fmt.Errorf("pgvector: search: %w", err)
	}
	defer rows.Close()

	matches := make([]core.VectorMatch, 0, limit)
	for rows.Next() {
		var (
			m     core.VectorMatch
			score float64
		)
		if err := rows.Scan(&m.ChunkID, &m.Title, &m.SequenceNumber, &score); err != nil {
			return nil, fmt.Errorf("pgvector: scan: %w", err)
		}
		m.Score = float32(score)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgvector: search rows: %w", err)
	}
	return matches, nil
}

// Close closes the pool if the store opened it.
func (s *VectorStore) Close() error {
	if s.closer != nil {
		s.closer()
	}
	return nil
}
