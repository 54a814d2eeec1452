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

package search

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/poiesic/vidindex/ai"
	"github.com/poiesic/vidindex/core"
	"github.com/poiesic/vidindex/storage"
)

const (
	// DefaultMinScore is the lowest cosine similarity returned by default.
	DefaultMinScore float32 = 0.60

	// DefaultMaxHits is the number of results the search tool returns.
	DefaultMaxHits = 5
)

// Searcher answers text queries against the transcript index.
type Searcher struct {
	embedder     ai.Embedder
	vectors      storage.VectorStore
	chunks       storage.ChunkStore
	dimensions   int
	minScore     float32
	keywordBoost float32
	logger       *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithDimensions sets the query embedding size. It must match the size used
// when the index was built. Default is ai.DefaultDimensions.
func WithDimensions(dimensions int) Option {
	return func(s *Searcher) error {
		if dimensions <= 0 {
			return ai.ErrInvalidDimensions
		}
		s.dimensions = dimensions
		return nil
	}
}

// WithMinScore sets the similarity threshold. Default is DefaultMinScore.
func WithMinScore(score float32) Option {
	return func(s *Searcher) error {
		s.minScore = score
		return nil
	}
}

// WithKeywordBoost adds boost to the score of results whose chunk contains
// every query term. Default is 0, which keeps pure similarity ranking.
func WithKeywordBoost(boost float32) Option {
	return func(s *Searcher) error {
		s.keywordBoost = boost
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(
	embedder ai.Embedder,
	vectors storage.VectorStore,
	chunks storage.ChunkStore,
	opts ...Option,
) (*Searcher, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if vectors == nil {
		return nil, ErrVectorStoreRequired
	}
	if chunks == nil {
		return nil, ErrChunkStoreRequired
	}

	s := &Searcher{
		embedder:   embedder,
		vectors:    vectors,
		chunks:     chunks,
		dimensions: ai.DefaultDimensions,
		minScore:   DefaultMinScore,
		logger:     slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "searcher")

	return s, nil
}

// Search returns up to maxHits chunks similar to query, best first.
func (s *Searcher) Search(ctx context.Context, query string, maxHits int) ([]*core.SearchResult, error) {
	return s.SearchWithMonitor(ctx, query, maxHits, nil)
}

// SearchWithMonitor is Search with callbacks at each stage.
func (s *Searcher) SearchWithMonitor(ctx context.Context, query string, maxHits int, monitor SearchMonitor) ([]*core.SearchResult, error) {
	if core.IsBlank(query) {
		return nil, ErrEmptyQuery
	}
	if maxHits <= 0 {
		return nil, ErrInvalidMaxHits
	}
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	monitor.Start(query)

	embedding, err := s.embedder.EmbedText(ctx, query, s.dimensions)
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", query, "err", err)
		return nil, err
	}
	monitor.AfterEmbedding(len(embedding))

	matches, err := s.vectors.Search(ctx, embedding, s.minScore, maxHits)
	if err != nil {
		s.logger.Error("error querying for similar chunks", "err", err)
		return nil, err
	}
	monitor.AfterVectorSearch(matches)

	results := make([]*core.SearchResult, 0, len(matches))
	for _, match := range matches {
		chunk, err := s.chunks.GetChunk(ctx, match.ChunkID)
		if errors.Is(err, storage.ErrNotFound) {
			// Vector written but chunk not yet saved.
			s.logger.Debug("chunk missing for vector", "chunk", match.ChunkID)
			monitor.MissingChunk(match)
			continue
		}
		if err != nil {
			s.logger.Error("error retrieving chunk", "chunk", match.ChunkID, "err", err)
			return nil, err
		}

		result := &core.SearchResult{Chunk: chunk, Score: match.Score}
		if s.keywordBoost != 0 && containsAllTerms(chunk.Content, query) {
			result.Score += s.keywordBoost
			monitor.KeywordHit(result)
		}
		results = append(results, result)
	}

	if s.keywordBoost != 0 {
		slices.SortStableFunc(results, func(a, b *core.SearchResult) int {
			switch {
			case a.Score > b.Score:
				return -1
			case a.Score < b.Score:
				return 1
			default:
				return 0
			}
		})
	}
	monitor.Finish(results)

	return results, nil
}
