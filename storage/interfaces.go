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

package storage

import (
	"context"

	"github.com/poiesic/vidindex/core"
)

// VectorStore stores embeddings and answers similarity queries.
type VectorStore interface {
	// Upsert writes all entries, replacing any existing entry with the same chunk id.
	// An error means none or only some of the entries may have been written.
	Upsert(ctx context.Context, entries []core.IndexEntry) error

	// Search returns up to limit entries with a cosine similarity of at least
	// minScore to vector, ordered by score descending.
	Search(ctx context.Context, vector []float32, minScore float32, limit int) ([]core.VectorMatch, error)

	// Close releases resources held by the store.
	Close() error
}

// ChunkStore persists chunk content keyed by chunk id.
type ChunkStore interface {
	// SaveChunk writes a single chunk, overwriting any chunk with the same id.
	SaveChunk(ctx context.Context, chunk *core.Chunk) error

	// GetChunk retrieves a chunk by id.
	// Returns ErrNotFound if the chunk doesn't exist.
	GetChunk(ctx context.Context, id string) (*core.Chunk, error)

	// Close releases resources held by the store.
	Close() error
}

// PendingRepository is a write-ahead ledger of per-record dual writes.
type PendingRepository interface {
	// MarkPending records that the chunks of a transcript are about to be written.
	// Marking a title that is already pending replaces the entry.
	MarkPending(ctx context.Context, write *core.PendingWrite) error

	// ClearPending removes the entry for title. Clearing an absent title is not an error.
	ClearPending(ctx context.Context, title string) error

	// ListPending returns every outstanding entry ordered by title.
	ListPending(ctx context.Context) ([]*core.PendingWrite, error)

	// Close releases resources held by the repository.
	Close() error
}
