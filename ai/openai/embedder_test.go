package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/poiesic/vidindex/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbeddingServer answers /v1/embeddings with vectors of size dims where the
// first component is the input position plus one.
func fakeEmbeddingServer(t *testing.T, dims int) (*httptest.Server, *[]string) {
	t.Helper()
	var received []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		received = append(received, req.Input...)

		type item struct {
			Object    string    `json:"object"`
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}
		data := make([]item, len(req.Input))
		for i := range req.Input {
			v := make([]float32, dims)
			v[0] = float32(i + 1)
			v[dims-1] = 1
			data[i] = item{Object: "embedding", Embedding: v, Index: i}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  req.Model,
			"usage":  map[string]int{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &received
}

func TestEmbedder_EmbedTexts(t *testing.T) {
	srv, received := fakeEmbeddingServer(t, 3)
	cfg := ai.NewConfig(ai.WithEmbeddingHost(srv.URL), ai.WithDimensions(3))

	embedder, err := NewEmbedder(cfg)
	require.NoError(t, err)

	inputs := []string{"Intro (part 1)\n\nhello", "Intro (part 2)\n\nworld"}
	vectors, err := embedder.EmbedTexts(context.Background(), inputs, 3)
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, float32(1), vectors[0][0])
	assert.Equal(t, float32(2), vectors[1][0])
	// Newlines are sent as-is.
	assert.Equal(t, inputs, *received)
}

func TestEmbedder_SendsDimensions(t *testing.T) {
	var requested []any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		requested = append(requested, req["dimensions"])

		dims := int(req["dimensions"].(float64))
		inputs := req["input"].([]any)
		data := make([]map[string]any, len(inputs))
		for i := range inputs {
			v := make([]float32, dims)
			v[0] = 1
			data[i] = map[string]any{"object": "embedding", "embedding": v, "index": i}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": data})
	}))
	t.Cleanup(srv.Close)

	embedder, err := NewEmbedder(ai.NewConfig(ai.WithEmbeddingHost(srv.URL)))
	require.NoError(t, err)

	v, err := embedder.EmbedText(context.Background(), "x", 512)
	require.NoError(t, err)
	assert.Len(t, v, 512)

	v, err = embedder.EmbedText(context.Background(), "y", 256)
	require.NoError(t, err)
	assert.Len(t, v, 256)

	v, err = embedder.EmbedText(context.Background(), "z", 512)
	require.NoError(t, err)
	assert.Len(t, v, 512)

	assert.Equal(t, []any{float64(512), float64(256), float64(512)}, requested)
}

func TestEmbedder_TruncatesLongerVectors(t *testing.T) {
	srv, _ := fakeEmbeddingServer(t, 8)
	cfg := ai.NewConfig(ai.WithEmbeddingHost(srv.URL))

	embedder, err := NewEmbedder(cfg)
	require.NoError(t, err)

	v, err := embedder.EmbedText(context.Background(), "text", 2)
	require.NoError(t, err)
	require.Len(t, v, 2)
	assert.InDelta(t, 1.0, float64(v[0]), 1e-6)
}

func TestEmbedder_RejectsShorterVectors(t *testing.T) {
	srv, _ := fakeEmbeddingServer(t, 2)
	cfg := ai.NewConfig(ai.WithEmbeddingHost(srv.URL))

	embedder, err := NewEmbedder(cfg)
	require.NoError(t, err)

	_, err = embedder.EmbedText(context.Background(), "text", 512)
	assert.ErrorIs(t, err, ai.ErrVectorTooShort)
}

func TestEmbedder_InvalidDimensions(t *testing.T) {
	srv, received := fakeEmbeddingServer(t, 2)
	embedder, err := NewEmbedder(ai.NewConfig(ai.WithEmbeddingHost(srv.URL)))
	require.NoError(t, err)

	_, err = embedder.EmbedTexts(context.Background(), []string{"x"}, 0)
	assert.ErrorIs(t, err, ai.ErrInvalidDimensions)
	assert.Empty(t, *received)
}

func TestNewProvider(t *testing.T) {
	t.Run("invalid config", func(t *testing.T) {
		_, err := NewProvider(&ai.Config{})
		assert.Error(t, err)
	})

	t.Run("decorated embedder", func(t *testing.T) {
		srv, _ := fakeEmbeddingServer(t, 4)
		cfg := ai.NewConfig(ai.WithEmbeddingHost(srv.URL), ai.WithCacheSize(4))
		p, err := NewProvider(cfg)
		require.NoError(t, err)
		defer p.Close()

		_, ok := p.Embedder().(*ai.CachedEmbedder)
		assert.True(t, ok)
	})
}
