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

// Package bolt implements the chunk store and pending-write ledger on a
// single bbolt file.
package bolt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/poiesic/vidindex/core"
	"github.com/poiesic/vidindex/storage"
	"go.etcd.io/bbolt"
)

var (
	bucketChunks  = []byte("chunks")
	bucketPending = []byte("pending")
)

// DB wraps a bbolt database holding the chunk and pending buckets.
type DB struct {
	db *bbolt.DB
}

// Open opens or creates the database file at path.
func Open(path string) (*DB, error) {
	if path == "" {
		return nil, errors.New("bolt: path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("bolt: create directory: %w", err)
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketChunks, bucketPending} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &DB{db: db}, nil
}

// Close closes the underlying file.
func (d *DB) Close() error {
	return d.db.Close()
}

// ChunkStore implements storage.ChunkStore on the chunks bucket.
type ChunkStore struct {
	db *DB
}

var _ storage.ChunkStore = (*ChunkStore)(nil)

// NewChunkStore creates a chunk store on db.
func NewChunkStore(db *DB) storage.ChunkStore {
	return &ChunkStore{db: db}
}

// SaveChunk persists a single chunk, overwriting any chunk with the same id.
func (s *ChunkStore) SaveChunk(ctx context.Context, chunk *core.Chunk) error {
	if err := core.ValidateChunk(chunk); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketChunks).Put([]byte(chunk.ID), storage.MarshalChunk(chunk))
	})
}

// GetChunk retrieves a chunk by id.
func (s *ChunkStore) GetChunk(ctx context.Context, id string) (*core.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var chunk *core.Chunk
	err := s.db.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketChunks).Get([]byte(id))
		if data == nil {
			return storage.ErrNotFound
		}
		var err error
		chunk, err = storage.UnmarshalChunk(data)
		return err
	})
	if err != nil {
		return nil, err
	}
	return chunk, nil
}

// Close is a no-op; the database is owned by the caller.
func (s *ChunkStore) Close() error {
	return nil
}

// PendingRepository implements storage.PendingRepository on the pending bucket.
type PendingRepository struct {
	db *DB
}

var _ storage.PendingRepository = (*PendingRepository)(nil)

// NewPendingRepository creates a ledger on db.
func NewPendingRepository(db *DB) *PendingRepository {
	return &PendingRepository{db: db}
}

func (r *PendingRepository) MarkPending(ctx context.Context, write *core.PendingWrite) error {
	if write == nil || write.Title == "" {
		return core.ErrEmptyTitle
	}
	if write.StartedAt.IsZero() {
		write.StartedAt = time.Now()
	}
	return r.db.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketPending).Put([]byte(write.Title), storage.MarshalPendingWrite(write))
	})
}

func (r *PendingRepository) ClearPending(ctx context.Context, title string) error {
	return r.db.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketPending).Delete([]byte(title))
	})
}

// ListPending returns entries in title order; bbolt keeps keys sorted.
func (r *PendingRepository) ListPending(ctx context.Context) ([]*core.PendingWrite, error) {
	var writes []*core.PendingWrite
	err := r.db.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketPending).ForEach(func(k, v []byte) error {
			w, err := storage.UnmarshalPendingWrite(bytes.Clone(v))
			if err != nil {
				return err
			}
			writes = append(writes, w)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return writes, nil
}

// Close is a no-op; the database is owned by the caller.
func (r *PendingRepository) Close() error {
	return nil
}
