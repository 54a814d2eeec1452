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

// Package storage defines the persistence boundaries used by vidindex.
//
// The indexing pipeline writes to two independent stores:
//
//   - VectorStore: embeddings keyed by chunk id, queryable by similarity
//   - ChunkStore: chunk text and metadata keyed by chunk id
//
// Both stores use overwrite-on-duplicate-id semantics, which is what makes a
// repeated indexing run idempotent. There is no transaction spanning the two;
// an optional PendingRepository records chunk ids whose vectors were written
// but whose chunks are not yet confirmed, so an operator can find and repair
// them after a crash.
//
// # Backends
//
// Implementations live in sub-packages:
//
//   - storage/badger: embedded BadgerDB; vectors, chunks and the pending ledger
//   - storage/sqlite: embedded SQLite vector store
//   - storage/pgvector: PostgreSQL with the pgvector extension
//   - storage/qdrant: Qdrant over its REST API
//   - storage/bolt: embedded bbolt chunk store
//   - storage/redis: Redis chunk store
//   - storage/cassandra: Cassandra chunk store
//
// # Constructor Return Type Pattern
//
// Public constructors return the storage interfaces, not the concrete types:
//
//	vectors, err := badger.NewVectorStore(backend)  // returns storage.VectorStore
//
// # Thread Safety
//
// All implementations must be safe for concurrent use.
//
// # Context Support
//
// All methods that touch the store accept context.Context for cancellation
// and timeout support.
package storage
