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
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/vidindex/core"
	"github.com/poiesic/vidindex/storage"
)

// PendingRepository implements storage.PendingRepository for BadgerDB.
type PendingRepository struct {
	backend *Backend
}

var _ storage.PendingRepository = (*PendingRepository)(nil)

// NewPendingRepository creates a new PendingRepository.
func NewPendingRepository(backend *Backend) *PendingRepository {
	return &PendingRepository{
		backend: backend,
	}
}

// MarkPending persists the pending write for a transcript.
func (r *PendingRepository) MarkPending(ctx context.Context, write *core.PendingWrite) error {
	if write == nil || write.Title == "" {
		return core.ErrEmptyTitle
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if write.StartedAt.IsZero() {
			write.StartedAt = time.Now().UTC()
		}
		if err := tx.Set(makePendingKey(write.Title), storage.MarshalPendingWrite(write)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// ClearPending removes the pending write for title.
func (r *PendingRepository) ClearPending(ctx context.Context, title string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Delete(makePendingKey(title)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// ListPending returns all pending writes. Key order is title order.
func (r *PendingRepository) ListPending(ctx context.Context) ([]*core.PendingWrite, error) {
	var writes []*core.PendingWrite
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return scan(tx, prefixKey(pendingWritePrefix), func(val []byte) error {
			write, err := storage.UnmarshalPendingWrite(val)
			if err != nil {
				return err
			}
			writes = append(writes, write)
			return nil
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return writes, nil
}

// Close is a no-op; the backend is owned by the caller.
func (r *PendingRepository) Close() error {
	return nil
}
