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

// Package search answers natural-language queries against the transcript index.
//
// A Searcher embeds the query with the same embedder and dimensionality used
// for indexing, runs a cosine similarity search in the vector store and
// resolves every match to its stored chunk. Matches whose chunk has not been
// persisted yet are dropped.
//
// Tool exposes a Searcher to language model agents as the
// "database_search_service" tool.
package search
