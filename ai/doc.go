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

// Package ai provides the embedding abstraction used by vidindex.
//
// The indexing pipeline and the searcher depend only on the Embedder interface
// defined here. Concrete implementations live in sub-packages:
//
//   - ai/openai: OpenAI-compatible HTTP APIs (OpenAI, Ollama, LocalAI, vLLM)
//   - ai/mock: deterministic test doubles
//
// Two decorators can be layered over any Embedder:
//
//   - CachedEmbedder keeps recent vectors in an LRU keyed by text and dimension
//   - RetryingEmbedder retries failed batches with exponential backoff
//
// # Dimensions
//
// Callers choose the vector dimension per call. Providers that return longer
// vectors (Matryoshka-style models) are truncated and re-normalized with
// FitDimensions; a provider that returns fewer components than requested is an
// error, since padding would silently change similarity scores.
//
// # Usage Example
//
//	cfg := ai.NewConfig(ai.WithEmbeddingModel("text-embedding-3-small"))
//	provider, err := openai.NewProvider(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vectors, err := provider.Embedder().EmbedTexts(ctx, texts, cfg.Dimensions)
package ai
