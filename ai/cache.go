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

package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedEmbedder serves repeated texts from an LRU instead of the inner embedder.
// Entries are keyed by dimension and content hash.
type CachedEmbedder struct {
	inner Embedder
	cache *lru.Cache[string, []float32]
}

var _ Embedder = (*CachedEmbedder)(nil)

// NewCachedEmbedder wraps inner with an LRU holding up to size vectors.
func NewCachedEmbedder(inner Embedder, size int) (*CachedEmbedder, error) {
	if inner == nil {
		return nil, ErrEmbedderRequired
	}
	if size <= 0 {
		return nil, ErrInvalidCacheSize
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("init embedding cache: %w", err)
	}
	return &CachedEmbedder{inner: inner, cache: cache}, nil
}

// EmbedText returns the cached vector for text or embeds it.
func (c *CachedEmbedder) EmbedText(ctx context.Context, text string, dimensions int) ([]float32, error) {
	vectors, err := c.EmbedTexts(ctx, []string{text}, dimensions)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedTexts embeds only the texts missing from the cache, in one inner call.
func (c *CachedEmbedder) EmbedTexts(ctx context.Context, texts []string, dimensions int) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var (
		missing   []string
		missingAt []int
	)
	for i, text := range texts {
		if vector, ok := c.cache.Get(cacheKey(text, dimensions)); ok {
			out[i] = vector
			continue
		}
		missing = append(missing, text)
		missingAt = append(missingAt, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	embedded, err := c.inner.EmbedTexts(ctx, missing, dimensions)
	if err != nil {
		return nil, err
	}
	if len(embedded) != len(missing) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrVectorCountMismatch, len(embedded), len(missing))
	}
	for j, vector := range embedded {
		out[missingAt[j]] = vector
		if len(vector) > 0 {
			c.cache.Add(cacheKey(missing[j], dimensions), vector)
		}
	}
	return out, nil
}

// Len returns the number of cached vectors.
func (c *CachedEmbedder) Len() int {
	return c.cache.Len()
}

func cacheKey(text string, dimensions int) string {
	sum := sha256.Sum256([]byte(text))
	return strconv.Itoa(dimensions) + ":" + hex.EncodeToString(sum[:])
}
