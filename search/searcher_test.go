package search

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/poiesic/vidindex/ai/mock"
	"github.com/poiesic/vidindex/core"
	"github.com/poiesic/vidindex/storage"
	"github.com/poiesic/vidindex/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDimensions = 16

type fixture struct {
	embedder *mock.MockEmbedder
	vectors  storage.VectorStore
	chunks   storage.ChunkStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	vectors, chunks, _, backend, err := badger.NewMemoryStores(testDimensions)
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })
	return &fixture{embedder: mock.NewMockEmbedder(), vectors: vectors, chunks: chunks}
}

// add indexes chunk under the vector of key; persist controls whether the chunk is saved.
func (f *fixture) add(t *testing.T, key string, chunk core.Chunk, persist bool) {
	t.Helper()
	ctx := context.Background()
	entry := core.NewIndexEntry(&chunk, mock.Vector(key, testDimensions))
	require.NoError(t, f.vectors.Upsert(ctx, []core.IndexEntry{entry}))
	if persist {
		require.NoError(t, f.chunks.SaveChunk(ctx, &chunk))
	}
}

func (f *fixture) searcher(t *testing.T, opts ...Option) *Searcher {
	t.Helper()
	opts = append([]Option{WithDimensions(testDimensions)}, opts...)
	s, err := NewSearcher(f.embedder, f.vectors, f.chunks, opts...)
	require.NoError(t, err)
	return s
}

func chunk(title string, seq int, content string) core.Chunk {
	return core.Chunk{
		ID:             fmt.Sprintf("%s (section %02d)", title, seq-1),
		SourceTitle:    title,
		Label:          fmt.Sprintf("Section %d", seq),
		SequenceNumber: seq,
		Content:        content,
	}
}

type recordingMonitor struct {
	events  []string
	missing []string
	hits    int
}

func (m *recordingMonitor) Start(query string) { m.events = append(m.events, "start") }
func (m *recordingMonitor) AfterEmbedding(dimensions int) {
	m.events = append(m.events, "embedded")
}
func (m *recordingMonitor) AfterVectorSearch(matches []core.VectorMatch) {
	m.events = append(m.events, "searched")
}
func (m *recordingMonitor) MissingChunk(match core.VectorMatch) {
	m.missing = append(m.missing, match.ChunkID)
}
func (m *recordingMonitor) KeywordHit(result *core.SearchResult) { m.hits++ }
func (m *recordingMonitor) Finish(results []*core.SearchResult) {
	m.events = append(m.events, "finish")
}

func TestNewSearcher_RequiredArguments(t *testing.T) {
	f := newFixture(t)

	_, err := NewSearcher(nil, f.vectors, f.chunks)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
	_, err = NewSearcher(f.embedder, nil, f.chunks)
	assert.ErrorIs(t, err, ErrVectorStoreRequired)
	_, err = NewSearcher(f.embedder, f.vectors, nil)
	assert.ErrorIs(t, err, ErrChunkStoreRequired)
	_, err = NewSearcher(f.embedder, f.vectors, f.chunks, WithDimensions(-1))
	assert.Error(t, err)
}

func TestSearch_ReturnsBestMatchFirst(t *testing.T) {
	f := newFixture(t)
	f.add(t, "how goroutines are scheduled", chunk("Concurrency", 1, "goroutines and the scheduler"), true)
	f.add(t, "baking sourdough bread", chunk("Baking", 1, "flour water salt"), true)

	s := f.searcher(t, WithMinScore(-1))
	results, err := s.Search(context.Background(), "how goroutines are scheduled", 2)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "Concurrency", results[0].Chunk.SourceTitle)
	assert.InDelta(t, 1.0, results[0].Score, 1e-5)
	assert.Equal(t, "goroutines and the scheduler", results[0].Chunk.Content)

	require.Len(t, f.embedder.Batches(), 1)
	assert.Equal(t, []string{"how goroutines are scheduled"}, f.embedder.Batches()[0])
}

func TestSearch_MinScoreFilters(t *testing.T) {
	f := newFixture(t)
	f.add(t, "exact", chunk("A", 1, "a"), true)
	f.add(t, "something else entirely", chunk("B", 1, "b"), true)

	results, err := f.searcher(t, WithMinScore(0.999)).Search(context.Background(), "exact", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "A", results[0].Chunk.SourceTitle)
}

func TestSearch_SkipsVectorsWithoutChunks(t *testing.T) {
	f := newFixture(t)
	f.add(t, "query", chunk("Orphan", 1, "never saved"), false)
	f.add(t, "query text", chunk("Saved", 1, "saved"), true)

	monitor := &recordingMonitor{}
	results, err := f.searcher(t, WithMinScore(-1)).SearchWithMonitor(context.Background(), "query", 10, monitor)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Saved", results[0].Chunk.SourceTitle)
	assert.Equal(t, []string{"Orphan (section 00)"}, monitor.missing)
	assert.Equal(t, []string{"start", "embedded", "searched", "finish"}, monitor.events)
}

func TestSearch_KeywordBoostReorders(t *testing.T) {
	f := newFixture(t)
	query := "zebra migration patterns"
	f.add(t, query, chunk("Semantic", 1, "unrelated words here"), true)
	f.add(t, "other vector", chunk("Keyword", 1, "Zebra migration patterns, explained."), true)

	monitor := &recordingMonitor{}
	s := f.searcher(t, WithMinScore(-1), WithKeywordBoost(2.5))
	results, err := s.SearchWithMonitor(context.Background(), query, 10, monitor)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Keyword", results[0].Chunk.SourceTitle)
	assert.Equal(t, 1, monitor.hits)
}

func TestSearch_InvalidInput(t *testing.T) {
	f := newFixture(t)
	s := f.searcher(t)

	_, err := s.Search(context.Background(), "   ", 5)
	assert.ErrorIs(t, err, ErrEmptyQuery)
	_, err = s.Search(context.Background(), "query", 0)
	assert.ErrorIs(t, err, ErrInvalidMaxHits)
	assert.Zero(t, f.embedder.CallCount())
}

func TestSearch_EmbedderError(t *testing.T) {
	f := newFixture(t)
	cause := errors.New("embedding service down")
	f.embedder.EmbedTextsFunc = func(ctx context.Context, texts []string, dimensions int) ([][]float32, error) {
		return nil, cause
	}

	_, err := f.searcher(t).Search(context.Background(), "query", 5)
	assert.ErrorIs(t, err, cause)
}

func TestSearch_EmptyIndex(t *testing.T) {
	f := newFixture(t)
	results, err := f.searcher(t).Search(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestContainsAllTerms(t *testing.T) {
	tests := []struct {
		name    string
		content string
		query   string
		want    bool
	}{
		{"all present", "Channels let goroutines communicate.", "goroutines channels", true},
		{"case and punctuation", "What's a MUTEX?", "what's mutex", true},
		{"missing term", "channels only", "goroutines channels", false},
		{"filler only query", "the and of", "the of", false},
		{"filler words ignored", "select statement", "um the select statement", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, containsAllTerms(tt.content, tt.query))
		})
	}
}
