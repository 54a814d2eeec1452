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

package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/vidindex/ai"
	"github.com/poiesic/vidindex/chunker"
	"github.com/poiesic/vidindex/core"
	"github.com/poiesic/vidindex/source"
	"github.com/poiesic/vidindex/storage"
)

// RecordSource delivers transcript records in file order.
// *source.Source implements it.
type RecordSource interface {
	// Stream starts reading on pool and returns the records as they are parsed.
	Stream(ctx context.Context, pool *ants.Pool) (<-chan source.Result, error)

	// Malformed returns the number of lines skipped during the latest pass.
	Malformed() int
}

var _ RecordSource = (*source.Source)(nil)

// Stats summarizes a Build.
type Stats struct {
	RecordsRead    int
	RecordsIndexed int
	RecordsSkipped int
	ChunksIndexed  int
	MalformedLines int
	Duration       time.Duration
}

// Builder indexes every record of a source into a vector store and a chunk store.
type Builder struct {
	src        RecordSource
	embedder   ai.Embedder
	vectors    storage.VectorStore
	chunks     storage.ChunkStore
	ledger     storage.PendingRepository
	chunking   chunker.Options
	dimensions int
	metrics    *Metrics
	progress   *ProgressTracker
	pool       *ants.Pool
	ownPool    bool
	running    atomic.Bool
	logger     *slog.Logger
}

// Option configures a Builder.
type Option func(*Builder) error

// WithChunking sets the window and overlap sizes and the source URL attached to chunks.
// Default is chunker.DefaultOptions().
func WithChunking(opts chunker.Options) Option {
	return func(b *Builder) error {
		b.chunking = opts
		return nil
	}
}

// WithSourceURL sets the URL recorded on every chunk.
func WithSourceURL(url string) Option {
	return func(b *Builder) error {
		b.chunking.SourceURL = url
		return nil
	}
}

// WithDimensions sets the embedding dimensionality requested for every batch.
// Default is ai.DefaultDimensions.
func WithDimensions(dimensions int) Option {
	return func(b *Builder) error {
		if dimensions <= 0 {
			return fmt.Errorf("%w: %d", ai.ErrInvalidDimensions, dimensions)
		}
		b.dimensions = dimensions
		return nil
	}
}

// WithPendingLedger records each record's chunk ids before writing them and
// clears the entry once all chunks are saved.
func WithPendingLedger(ledger storage.PendingRepository) Option {
	return func(b *Builder) error {
		b.ledger = ledger
		return nil
	}
}

// WithMetrics sets the counters updated during Build.
func WithMetrics(metrics *Metrics) Option {
	return func(b *Builder) error {
		b.metrics = metrics
		return nil
	}
}

// WithProgress reports progress to tracker during Build.
func WithProgress(tracker *ProgressTracker) Option {
	return func(b *Builder) error {
		b.progress = tracker
		return nil
	}
}

// WithReaderPool runs the source reader on pool instead of a pool owned by the Builder.
func WithReaderPool(pool *ants.Pool) Option {
	return func(b *Builder) error {
		if pool == nil {
			return nil
		}
		if b.ownPool && b.pool != nil {
			b.pool.Release()
		}
		b.pool = pool
		b.ownPool = false
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) error {
		if logger == nil {
			logger = slog.Default()
		}
		b.logger = logger
		return nil
	}
}

// NewBuilder creates a Builder. Call Release when done with it.
func NewBuilder(
	src RecordSource,
	embedder ai.Embedder,
	vectors storage.VectorStore,
	chunks storage.ChunkStore,
	opts ...Option,
) (*Builder, error) {
	if src == nil {
		return nil, ErrSourceRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if vectors == nil {
		return nil, ErrVectorStoreRequired
	}
	if chunks == nil {
		return nil, ErrChunkStoreRequired
	}

	// One reader task at a time; records are processed sequentially.
	pool, err := ants.NewPool(1)
	if err != nil {
		return nil, err
	}

	b := &Builder{
		src:        src,
		embedder:   embedder,
		vectors:    vectors,
		chunks:     chunks,
		chunking:   chunker.DefaultOptions(),
		dimensions: ai.DefaultDimensions,
		pool:       pool,
		ownPool:    true,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if optErr := opt(b); optErr != nil {
			b.Release()
			return nil, optErr
		}
	}
	b.logger = b.logger.With("component", "index-builder")
	return b, nil
}

// Release frees the reader pool if the Builder created it.
// The Builder should not be used after calling Release.
func (b *Builder) Release() {
	if b.ownPool && b.pool != nil {
		b.pool.Release()
		b.pool = nil
	}
}

// EmbeddingInput returns the text embedded for chunk.
func EmbeddingInput(chunk *core.Chunk) string {
	return fmt.Sprintf("%s (part %d)\n\n%s", chunk.SourceTitle, chunk.SequenceNumber, chunk.Content)
}

// Build reads the whole source and indexes every record with a non-blank
// transcript. It stops at the first embedding, upsert or persistence failure and
// returns the statistics gathered so far together with an *IndexError.
// Cancellation is observed between records.
func (b *Builder) Build(ctx context.Context) (*Stats, error) {
	if !b.running.CompareAndSwap(false, true) {
		return nil, ErrBuildInProgress
	}
	defer b.running.Store(false)

	// Cancelling on return stops the reader when Build exits early.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	start := time.Now()
	stats := &Stats{}
	results, err := b.src.Stream(ctx, b.pool)
	if err != nil {
		return stats, err
	}

	if b.progress != nil {
		b.progress.Start()
		defer b.progress.Finish()
	}

	b.logger.Info("building index", "dimensions", b.dimensions,
		"window", b.chunking.WindowWords, "overlap", b.chunking.OverlapWords)

	err = b.run(ctx, results, stats)
	stats.MalformedLines = b.src.Malformed()
	stats.Duration = time.Since(start)
	if b.metrics != nil {
		b.metrics.MalformedLines.Add(float64(stats.MalformedLines))
	}
	if err != nil {
		b.logger.Error("build stopped", "err", err, "records", stats.RecordsRead)
		return stats, err
	}

	b.logger.Info("index built",
		"records", stats.RecordsRead,
		"indexed", stats.RecordsIndexed,
		"skipped", stats.RecordsSkipped,
		"chunks", stats.ChunksIndexed,
		"malformed", stats.MalformedLines,
		"elapsed", stats.Duration)
	return stats, nil
}

func (b *Builder) run(ctx context.Context, results <-chan source.Result, stats *Stats) error {
	for res := range results {
		if res.Err != nil {
			return res.Err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.RecordsRead++
		if b.metrics != nil {
			b.metrics.RecordsRead.Inc()
		}

		n, err := b.indexRecord(ctx, res.Record)
		if err != nil {
			return err
		}
		if n == 0 {
			stats.RecordsSkipped++
		} else {
			stats.RecordsIndexed++
			stats.ChunksIndexed += n
		}
		if b.progress != nil {
			b.progress.Record(n)
		}
	}
	// The reader stops without an error result when ctx ends before it can send one.
	return ctx.Err()
}

// indexRecord writes one record and returns the number of chunks saved.
// Zero means the record was skipped.
func (b *Builder) indexRecord(ctx context.Context, record core.TranscriptRecord) (int, error) {
	logger := b.logger.With("title", record.Title)
	if core.IsBlank(record.TranscriptText) {
		logger.Debug("skipping record without transcript")
		if b.metrics != nil {
			b.metrics.RecordsSkipped.Inc()
		}
		return 0, nil
	}
	if core.IsBlank(record.Title) {
		logger.Warn("skipping record without title; chunk ids need one")
		if b.metrics != nil {
			b.metrics.RecordsSkipped.Inc()
		}
		return 0, nil
	}

	start := time.Now()
	chunks := chunker.Split(record.Title, record.TranscriptText, b.chunking)
	if len(chunks) == 0 {
		if b.metrics != nil {
			b.metrics.RecordsSkipped.Inc()
		}
		return 0, nil
	}

	entries, err := b.embed(ctx, chunks)
	if err != nil {
		return 0, b.fail(record.Title, StageEmbed, err)
	}

	ids := make([]string, len(chunks))
	for i := range chunks {
		ids[i] = chunks[i].ID
	}
	if b.ledger != nil {
		write := &core.PendingWrite{Title: record.Title, ChunkIDs: ids}
		if err := b.ledger.MarkPending(ctx, write); err != nil {
			return 0, b.fail(record.Title, StageLedger, err)
		}
	}

	if err := b.vectors.Upsert(ctx, entries); err != nil {
		return 0, b.fail(record.Title, StageUpsert, err)
	}

	for i := range chunks {
		if err := b.chunks.SaveChunk(ctx, &chunks[i]); err != nil {
			return 0, b.fail(record.Title, StagePersist, fmt.Errorf("chunk %q: %w", chunks[i].ID, err))
		}
	}

	if b.ledger != nil {
		if err := b.ledger.ClearPending(ctx, record.Title); err != nil {
			return 0, b.fail(record.Title, StageLedger, err)
		}
	}

	if b.metrics != nil {
		b.metrics.RecordsIndexed.Inc()
		b.metrics.ChunksIndexed.Add(float64(len(chunks)))
		b.metrics.RecordDuration.Observe(time.Since(start).Seconds())
	}
	logger.Debug("indexed record", "chunks", len(chunks), "elapsed", time.Since(start))
	return len(chunks), nil
}

// embed produces one IndexEntry per chunk, pairing vectors with chunks by position.
func (b *Builder) embed(ctx context.Context, chunks []core.Chunk) ([]core.IndexEntry, error) {
	inputs := make([]string, len(chunks))
	for i := range chunks {
		inputs[i] = EmbeddingInput(&chunks[i])
	}

	vectors, err := b.embedder.EmbedTexts(ctx, inputs, b.dimensions)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("%w: got %d vectors for %d chunks",
			ai.ErrVectorCountMismatch, len(vectors), len(chunks))
	}

	entries := make([]core.IndexEntry, len(chunks))
	for i := range chunks {
		if len(vectors[i]) != b.dimensions {
			return nil, fmt.Errorf("%w: vector %d has %d dimensions, want %d",
				storage.ErrDimensionMismatch, i, len(vectors[i]), b.dimensions)
		}
		entries[i] = core.NewIndexEntry(&chunks[i], vectors[i])
	}
	return entries, nil
}

func (b *Builder) fail(title string, stage Stage, err error) error {
	if b.metrics != nil {
		b.metrics.Failures.WithLabelValues(string(stage)).Inc()
	}
	return newIndexError(title, stage, err)
}
