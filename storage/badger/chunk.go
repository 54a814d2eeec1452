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

// ChunkStore implements storage.ChunkStore for BadgerDB.
type ChunkStore struct {
	backend *Backend
}

var _ storage.ChunkStore = (*ChunkStore)(nil)

// NewChunkStore creates a chunk store on backend.
func NewChunkStore(backend *Backend) storage.ChunkStore {
	return &ChunkStore{backend: backend}
}

// SaveChunk persists a single chunk, overwriting any chunk with the same id.
func (s *ChunkStore) SaveChunk(ctx context.Context, chunk *core.Chunk) error {
	if err := core.ValidateChunk(chunk); err != nil {
		return err
	}
	return s.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeChunkKey(chunk.ID), storage.MarshalChunk(chunk)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetChunk retrieves a chunk by id.
func (s *ChunkStore) GetChunk(ctx context.Context, id string) (*core.Chunk, error) {
	var chunk *core.Chunk
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		chunk, err = get(tx, makeChunkKey(id), storage.UnmarshalChunk)
		return err
	}, false)
	return chunk, err
}

// Close is a no-op; the backend is owned by the caller.
func (s *ChunkStore) Close() error {
	return nil
}
