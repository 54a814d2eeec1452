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

// Package cassandra stores chunk content in a Cassandra table.
package cassandra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/poiesic/vidindex/core"
	"github.com/poiesic/vidindex/storage"
)

// DefaultTable holds chunks when no table is configured.
const DefaultTable = "transcript_chunks"

// Config holds cluster connection settings.
type Config struct {
	Hosts    []string
	Keyspace string
	Table    string
	Timeout  time.Duration
}

// Session is the part of a CQL session the store needs.
type Session interface {
	Exec(ctx context.Context, stmt string, values ...any) error
	Scan(ctx context.Context, stmt string, values []any, dest ...any) error
	Close()
}

type gocqlSession struct {
	session *gocql.Session
}

func (s gocqlSession) Exec(ctx context.Context, stmt string, values ...any) error {
	return s.session.Query(stmt, values...).WithContext(ctx).Exec()
}

func (s gocqlSession) Scan(ctx context.Context, stmt string, values []any, dest ...any) error {
	return s.session.Query(stmt, values...).WithContext(ctx).Scan(dest...)
}

func (s gocqlSession) Close() {
	s.session.Close()
}

// ChunkStore implements storage.ChunkStore on Cassandra.
type ChunkStore struct {
	session Session
	table   string
	owned   bool
}

var _ storage.ChunkStore = (*ChunkStore)(nil)

// Open connects to the cluster and creates the chunk table if needed.
func Open(ctx context.Context, cfg Config) (*ChunkStore, error) {
	if len(cfg.Hosts) == 0 {
		return nil, errors.New("cassandra: at least one host is required")
	}
	if cfg.Keyspace == "" {
		return nil, errors.New("cassandra: keyspace is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Keyspace = cfg.Keyspace
	cluster.Consistency = gocql.Quorum
	cluster.Timeout = cfg.Timeout
	cluster.ConnectTimeout = cfg.Timeout

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("cassandra: connect: %w", err)
	}
	store := NewChunkStore(gocqlSession{session: session}, cfg.Table)
	store.owned = true
	if err := store.EnsureSchema(ctx); err != nil {
		session.Close()
		return nil, err
	}
	return store, nil
}

// NewChunkStore wraps an existing session. An empty table selects DefaultTable.
func NewChunkStore(session Session, table string) *ChunkStore {
	if table == "" {
		table = DefaultTable
	}
	return &ChunkStore{session: session, table: table}
}

// EnsureSchema creates the chunk table if it does not exist.
func (s *ChunkStore) EnsureSchema(ctx context.Context) error {
	stmt := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id text PRIMARY KEY,
			source_title text,
			label text,
			sequence_number int,
			content text,
			source_url text
		)`, s.table)
	if err := s.session.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("cassandra: create table: %w", err)
	}
	return nil
}

// SaveChunk persists a single chunk. Cassandra inserts are upserts.
func (s *ChunkStore) SaveChunk(ctx context.Context, chunk *core.Chunk) error {
	if err := core.ValidateChunk(chunk); err != nil {
		return err
	}
	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, source_title, label, sequence_number, content, source_url)
		VALUES (?, ?, ?, ?, ?, ?)`, s.table)
	err := s.session.Exec(ctx, stmt,
		chunk.ID, chunk.SourceTitle, chunk.Label, chunk.SequenceNumber, chunk.Content, chunk.SourceURL)
	if err != nil {
		return fmt.Errorf("cassandra: save chunk %q: %w", chunk.ID, err)
	}
	return nil
}

// GetChunk retrieves a chunk by id.
func (s *ChunkStore) GetChunk(ctx context.Context, id string) (*core.Chunk, error) {
	stmt := fmt.Sprintf(`
		SELECT id, source_title, label, sequence_number, content, source_url
		FROM %s WHERE id = ?`, s.table)

	var chunk core.Chunk
	err := s.session.Scan(ctx, stmt, []any{id},
		&chunk.ID, &chunk.SourceTitle, &chunk.Label, &chunk.SequenceNumber, &chunk.Content, &chunk.SourceURL)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("cassandra: get chunk %q: %w", id, err)
	}
	return &chunk, nil
}

// Close closes the session if Open created it.
func (s *ChunkStore) Close() error {
	if s.owned {
		s.session.Close()
	}
	return nil
}
