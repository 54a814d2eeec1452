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

// Package vidindex wires a transcript index together: the embedding provider,
// the vector and chunk stores selected by Config, and the pending-write ledger.
package vidindex

import (
	"context"
	"errors"
	"log/slog"

	"github.com/poiesic/vidindex/ai"
	"github.com/poiesic/vidindex/ai/openai"
	"github.com/poiesic/vidindex/core"
	"github.com/poiesic/vidindex/ingestion"
	"github.com/poiesic/vidindex/search"
	"github.com/poiesic/vidindex/storage"
	"github.com/poiesic/vidindex/storage/badger"
	"github.com/poiesic/vidindex/storage/bolt"
	"github.com/poiesic/vidindex/storage/cassandra"
	"github.com/poiesic/vidindex/storage/pgvector"
	"github.com/poiesic/vidindex/storage/qdrant"
	"github.com/poiesic/vidindex/storage/redis"
	"github.com/poiesic/vidindex/storage/sqlite"
	"github.com/tmc/langchaingo/tools"
)

// Index owns the stores and embedding provider shared by builders and searchers.
type Index struct {
	backend    *badger.Backend
	vectors    storage.VectorStore
	chunks     storage.ChunkStore
	pending    storage.PendingRepository
	provider   ai.Provider
	dimensions int
	closers    []func() error
	logger     *slog.Logger
}

// Option configures an Index.
type Option func(*options)

type options struct {
	provider ai.Provider
	logger   *slog.Logger
}

// WithProvider uses provider instead of building an OpenAI-compatible one from
// Config.AI. The Index closes it on Close.
func WithProvider(provider ai.Provider) Option {
	return func(o *options) {
		o.provider = provider
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Open opens every store named by cfg. On error nothing is left open.
func Open(ctx context.Context, cfg *Config, opts ...Option) (*Index, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}
	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ix := &Index{
		dimensions: cfg.AI.Dimensions,
		logger:     o.logger.With("component", "index"),
	}
	if err := ix.open(ctx, cfg, o.provider); err != nil {
		if closeErr := ix.Close(); closeErr != nil {
			ix.logger.Warn("cleanup after failed open", "err", closeErr)
		}
		return nil, err
	}

	ix.logger.Info("index opened",
		"vectors", cfg.VectorBackend,
		"chunks", cfg.ChunkBackend,
		"dimensions", ix.dimensions)
	return ix, nil
}

// open fills ix in place so that Close can release whatever was opened
// before a failure.
func (ix *Index) open(ctx context.Context, cfg *Config, provider ai.Provider) error {
	var err error
	ix.backend, err = badger.OpenBackend(cfg.DataDir, cfg.InMemory)
	if err != nil {
		return err
	}
	ix.pending = badger.NewPendingRepository(ix.backend)

	var sqliteDB *sqlite.DB
	openSQLite := func() (*sqlite.DB, error) {
		if sqliteDB != nil {
			return sqliteDB, nil
		}
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		ix.closers = append(ix.closers, db.Close)
		sqliteDB = db
		return db, nil
	}

	if err := ix.openVectors(ctx, cfg, openSQLite); err != nil {
		return err
	}
	if err := ix.openChunks(ctx, cfg, openSQLite); err != nil {
		return err
	}

	if provider == nil {
		provider, err = openai.NewProvider(cfg.AI)
		if err != nil {
			return err
		}
	}
	ix.provider = provider
	return nil
}

func (ix *Index) openVectors(ctx context.Context, cfg *Config, openSQLite func() (*sqlite.DB, error)) error {
	switch cfg.VectorBackend {
	case VectorBadger:
		ix.vectors = badger.NewVectorStore(ix.backend, ix.dimensions)
	case VectorSQLite:
		db, err := openSQLite()
		if err != nil {
			return err
		}
		ix.vectors = sqlite.NewVectorStore(db)
	case VectorPgvector:
		store, err := pgvector.Open(ctx, cfg.PostgresDSN, ix.dimensions, pgvector.WithTable(cfg.PostgresTable))
		if err != nil {
			return err
		}
		ix.vectors = store
	case VectorQdrant:
		store, err := qdrant.New(ctx, qdrant.Config{
			URL:        cfg.QdrantURL,
			Collection: cfg.QdrantCollection,
			APIKey:     cfg.QdrantAPIKey,
			Dimension:  ix.dimensions,
			RetryCount: 2,
		})
		if err != nil {
			return err
		}
		ix.vectors = store
	}
	return nil
}

func (ix *Index) openChunks(ctx context.Context, cfg *Config, openSQLite func() (*sqlite.DB, error)) error {
	switch cfg.ChunkBackend {
	case ChunkBadger:
		ix.chunks = badger.NewChunkStore(ix.backend)
	case ChunkSQLite:
		db, err := openSQLite()
		if err != nil {
			return err
		}
		ix.chunks = sqlite.NewChunkStore(db)
	case ChunkBolt:
		db, err := bolt.Open(cfg.BoltPath)
		if err != nil {
			return err
		}
		ix.closers = append(ix.closers, db.Close)
		ix.chunks = bolt.NewChunkStore(db)
	case ChunkRedis:
		store, err := redis.Open(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		ix.chunks = store
	case ChunkCassandra:
		store, err := cassandra.Open(ctx, cassandra.Config{
			Hosts:    cfg.CassandraHosts,
			Keyspace: cfg.CassandraKeyspace,
			Table:    cfg.CassandraTable,
		})
		if err != nil {
			return err
		}
		ix.chunks = store
	}
	return nil
}

// Close releases the provider and every store. It returns all close errors joined.
func (ix *Index) Close() error {
	var errs []error
	if ix.provider != nil {
		if err := ix.provider.Close(); err != nil {
			ix.logger.Error("error closing AI provider", "err", err)
			errs = append(errs, err)
		}
	}
	if ix.vectors != nil {
		if err := ix.vectors.Close(); err != nil {
			ix.logger.Error("error closing vector store", "err", err)
			errs = append(errs, err)
		}
	}
	if ix.chunks != nil {
		if err := ix.chunks.Close(); err != nil {
			ix.logger.Error("error closing chunk store", "err", err)
			errs = append(errs, err)
		}
	}
	for i := len(ix.closers) - 1; i >= 0; i-- {
		if err := ix.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	if ix.backend != nil {
		if err := ix.backend.Close(); err != nil {
			ix.logger.Error("error closing backend storage", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Dimensions returns the embedding size used for indexing and search.
func (ix *Index) Dimensions() int {
	return ix.dimensions
}

func (ix *Index) VectorStore() storage.VectorStore {
	return ix.vectors
}

func (ix *Index) ChunkStore() storage.ChunkStore {
	return ix.chunks
}

func (ix *Index) Embedder() ai.Embedder {
	return ix.provider.Embedder()
}

// NewBuilder creates a builder that writes to this index and records pending
// writes in its ledger. opts are applied after those defaults.
func (ix *Index) NewBuilder(src ingestion.RecordSource, opts ...ingestion.Option) (*ingestion.Builder, error) {
	defaults := []ingestion.Option{
		ingestion.WithDimensions(ix.dimensions),
		ingestion.WithPendingLedger(ix.pending),
		ingestion.WithLogger(ix.logger),
	}
	return ingestion.NewBuilder(src, ix.provider.Embedder(), ix.vectors, ix.chunks, append(defaults, opts...)...)
}

// NewSearcher creates a searcher over this index.
func (ix *Index) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	defaults := []search.Option{
		search.WithDimensions(ix.dimensions),
		search.WithLogger(ix.logger),
	}
	return search.NewSearcher(ix.provider.Embedder(), ix.vectors, ix.chunks, append(defaults, opts...)...)
}

// SearchTool returns the agent tool backed by a new searcher.
func (ix *Index) SearchTool(maxHits int, opts ...search.Option) (tools.Tool, error) {
	searcher, err := ix.NewSearcher(opts...)
	if err != nil {
		return nil, err
	}
	return search.NewTool(searcher, maxHits), nil
}

// PendingWrites lists records whose chunks may not all have been saved.
func (ix *Index) PendingWrites(ctx context.Context) ([]*core.PendingWrite, error) {
	return ix.pending.ListPending(ctx)
}
