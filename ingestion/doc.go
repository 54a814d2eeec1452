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

// Package ingestion builds the search index from a stream of transcript records.
//
// A Builder processes records one at a time in arrival order. For each record
// with a non-blank transcript it:
//   - splits the transcript into overlapping word windows
//   - embeds every window in a single batch
//   - upserts all vectors in one call
//   - saves each chunk once the upsert has succeeded
//
// Any embedding, upsert or persistence error stops the build and is returned as
// an *IndexError naming the record and stage. Vectors whose chunks were never
// saved are tolerated; running the build again repairs them because chunk ids
// and vector entries are deterministic and written with overwrite semantics.
//
// An optional pending-write ledger records the chunk ids of the record being
// written so interrupted builds can be listed later.
package ingestion
