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

package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/poiesic/vidindex/core"
	"github.com/poiesic/vidindex/storage"
)

// ChunkStore implements storage.ChunkStore on SQLite.
type ChunkStore struct {
	db *DB
}

var _ storage.ChunkStore = (*ChunkStore)(nil)

// NewChunkStore returns a chunk store on db.
func NewChunkStore(db *DB) storage.ChunkStore {
	return &ChunkStore{db: db}
}

// SaveChunk inserts or replaces a chunk.
func (s *ChunkStore) SaveChunk(ctx context.Context, chunk *core.Chunk) error {
	if err := core.ValidateChunk(chunk); err != nil {
		return err
	}
	_, err := s.db.db.ExecContext(ctx, `
INSERT INTO chunks(id, source_title, label, sequence_number, content, source_url)
VALUES(?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	source_title = excluded.source_title,
	label = excluded.label,
	sequence_number = excluded.sequence_number,
	content = excluded.content,
	source_url = excluded.source_url`,
		chunk.ID, chunk.SourceTitle, chunk.Label, chunk.SequenceNumber, chunk.Content, chunk.SourceURL)
	return err
}

// GetChunk retrieves a chunk by id.
func (s *ChunkStore) GetChunk(ctx context.Context, id string) (*core.Chunk, error) {
	var c core.Chunk
	err := s.db.db.QueryRowContext(ctx,
		`SELECT id, source_title, label, sequence_number, content, source_url FROM chunks WHERE id = ?`, id).
		Scan(&c.ID, &c.SourceTitle, &c.Label, &c.SequenceNumber, &c.Content, &c.SourceURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Close is a no-op; the DB is owned by the caller.
func (s *ChunkStore) Close() error {
	return nil
}
