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

package badger

import (
	"context"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/vidindex/core"
	"github.com/poiesic/vidindex/storage"
)

// VectorStore implements storage.VectorStore for BadgerDB.
// Search is an exhaustive cosine scan, which suits corpora of a few hundred
// thousand chunks.
type VectorStore struct {
	backend   *Backend
	dimension int
}

var _ storage.VectorStore = (*VectorStore)(nil)

// NewVectorStore creates a vector store on backend. When dimension is > 0 every
// upserted vector must have exactly that length.
func NewVectorStore(backend *Backend, dimension int) storage.VectorStore {
	return newVectorStore(backend, dimension)
}

func newVectorStore(backend *Backend, dimension int) *VectorStore {
	return &VectorStore{backend: backend, dimension: dimension}
}

// Upsert writes all entries in a single transaction.
func (s *VectorStore) Upsert(ctx context.Context, entries []core.IndexEntry) error {
	for i := range entries {
		if err := core.ValidateIndexEntry(&entries[i], s.dimension); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.backend.WithTx(func(tx *badger.Txn) error {
		for i := range entries {
			entry := &entries[i]
			if err := tx.Set(makeVectorKey(entry.ChunkID), storage.MarshalIndexEntry(entry)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// Search scans every stored vector and returns the best matches.
func (s *VectorStore) Search(ctx context.Context, vector []float32, minScore float32, limit int) ([]core.VectorMatch, error) {
	if err := storage.ValidateQuery(vector, limit); err != nil {
		return nil, err
	}

	var matches []core.VectorMatch
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		return scan(tx, prefixKey(vectorEntryPrefix), func(val []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			entry, err := storage.UnmarshalIndexEntry(val)
			if err != nil {
				return err
			}
			score := storage.Cosine(vector, entry.Vector)
			if score >= minScore {
				matches = append(matches, core.VectorMatch{
					ChunkID:        entry.ChunkID,
					Title:          entry.Title,
					SequenceNumber: entry.SequenceNumber,
					Score:          score,
				})
			}
			return nil
		})
	}, false)
	if err != nil {
		return nil, err
	}

	return storage.Rank(matches, limit), nil
}

// Get returns the stored entry for chunkID.
// Returns storage.ErrNotFound if there is none.
func (s *VectorStore) Get(ctx context.Context, chunkID string) (*core.IndexEntry, error) {
	var entry *core.IndexEntry
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		entry, err = get(tx, makeVectorKey(chunkID), storage.UnmarshalIndexEntry)
		return err
	}, false)
	return entry, err
}

// Close is a no-op; the backend is owned by the caller.
func (s *VectorStore) Close() error {
	return nil
}
