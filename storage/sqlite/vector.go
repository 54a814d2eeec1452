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
	"encoding/json"
	"fmt"
	"time"

	"github.com/poiesic/vidindex/core"
	"github.com/poiesic/vidindex/storage"
)

// VectorStore implements storage.VectorStore on SQLite.
type VectorStore struct {
	db *DB
}

var _ storage.VectorStore = (*VectorStore)(nil)

// NewVectorStore returns a vector store on db.
func NewVectorStore(db *DB) storage.VectorStore {
	return &VectorStore{db: db}
}

// Upsert writes all entries in one transaction.
func (s *VectorStore) Upsert(ctx context.Context, entries []core.IndexEntry) error {
	for i := range entries {
		if err := core.ValidateIndexEntry(&entries[i], 0); err != nil {
			return err
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
INSERT INTO vectors(chunk_id, title, chunk_index, dim, vector, updated_at)
VALUES(?, ?, ?, ?, ?, ?)
ON CONFLICT(chunk_id) DO UPDATE SET
	title = excluded.title,
	chunk_index = excluded.chunk_index,
	dim = excluded.dim,
	vector = excluded.vector,
	updated_at = excluded.updated_at`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, e := range entries {
			vec, err := json.Marshal(e.Vector)
			if err != nil {
				return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
			}
			if _, err := stmt.ExecContext(ctx, e.ChunkID, e.Title, e.SequenceNumber, len(e.Vector), string(vec), now); err != nil {
				return fmt.Errorf("upsert %q: %w", e.ChunkID, err)
			}
		}
		return nil
	})
}

// Search scans vectors of the query's dimension.
func (s *VectorStore) Search(ctx context.Context, vector []float32, minScore float32, limit int) ([]core.VectorMatch, error) {
	if err := storage.ValidateQuery(vector, limit); err != nil {
		return nil, err
	}
	rows, err := s.db.db.QueryContext(ctx,
		`SELECT chunk_id, title, chunk_index, vector FROM vectors WHERE dim = ?`, len(vector))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []core.VectorMatch
	for rows.Next() {
		var (
			m      core.VectorMatch
			vecStr string
		)
		if err := rows.Scan(&m.ChunkID, &m.Title, &m.SequenceNumber, &vecStr); err != nil {
			return nil, err
		}
		var stored []float32
		if err := json.Unmarshal([]byte(vecStr), &stored); err != nil {
			s.db.logger.Warn("skipping unreadable vector", "chunk_id", m.ChunkID, "err", err)
			continue
		}
		m.Score = storage.Cosine(vector, stored)
		if m.Score >= minScore {
			matches = append(matches, m)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return storage.Rank(matches, limit), nil
}

// Close is a no-op; the DB is owned by the caller.
func (s *VectorStore) Close() error {
	return nil
}
