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

package openai

import (
	"context"
	"log/slog"
	"sync"

	"github.com/poiesic/vidindex/ai"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// Embedder implements ai.Embedder using an OpenAI-compatible embedding endpoint.
// The requested dimensionality is sent with every request, so it keeps one
// client per dimension size.
type Embedder struct {
	config *ai.Config
	logger *slog.Logger

	mu      sync.Mutex
	clients map[int]embeddings.Embedder
}

var _ ai.Embedder = (*Embedder)(nil)

// newEmbedder is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newEmbedder(config *ai.Config) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	e := &Embedder{
		config:  config,
		logger:  slog.Default().With("component", "openai-embedder", "model", config.EmbeddingModel),
		clients: make(map[int]embeddings.Embedder),
	}
	// Build the configured size up front so bad settings fail here.
	if _, err := e.clientFor(config.Dimensions); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Embedder) clientFor(dimensions int) (embeddings.Embedder, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if client, ok := e.clients[dimensions]; ok {
		return client, nil
	}

	llm, err := openai.New(
		openai.WithBaseURL(e.config.EmbeddingHost),
		openai.WithToken(e.config.APIKey),
		openai.WithEmbeddingModel(e.config.EmbeddingModel),
		openai.WithEmbeddingDimensions(dimensions),
	)
	if err != nil {
		return nil, err
	}

	// Newlines separate the part header from the content and must survive.
	client, err := embeddings.NewEmbedder(llm,
		embeddings.WithStripNewLines(false),
		embeddings.WithBatchSize(e.config.BatchSize),
	)
	if err != nil {
		return nil, err
	}
	e.clients[dimensions] = client
	return client, nil
}

// NewEmbedder creates a new embedder using the provided configuration.
//
// Returns ai.Embedder interface to enforce abstraction.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	return newEmbedder(config)
}

// EmbedText generates a vector embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string, dimensions int) ([]float32, error) {
	vectors, err := e.EmbedTexts(ctx, []string{text}, dimensions)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedTexts generates vector embeddings for multiple text strings in a batch.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string, dimensions int) ([][]float32, error) {
	if dimensions <= 0 {
		return nil, ai.ErrInvalidDimensions
	}
	e.logger.Debug("generating embeddings for texts", "count", len(texts), "dimensions", dimensions)

	client, err := e.clientFor(dimensions)
	if err != nil {
		return nil, err
	}

	vectors, err := client.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, err
	}

	fitted, err := ai.FitAll(vectors, len(texts), dimensions)
	if err != nil {
		e.logger.Error("embedding response rejected", "count", len(texts), "err", err)
		return nil, err
	}
	return fitted, nil
}
