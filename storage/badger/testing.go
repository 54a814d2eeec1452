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

import "github.com/poiesic/vidindex/storage"

// NewMemoryStores creates in-memory vector, chunk and pending stores for testing.
// All three share one backend, which the caller must close when done.
func NewMemoryStores(dimension int) (storage.VectorStore, storage.ChunkStore, storage.PendingRepository, *Backend, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	return NewVectorStore(backend, dimension), NewChunkStore(backend), NewPendingRepository(backend), backend, nil
}
