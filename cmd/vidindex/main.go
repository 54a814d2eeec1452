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

package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/poiesic/vidindex"
	"github.com/poiesic/vidindex/ai"
	"github.com/poiesic/vidindex/chunker"
	"github.com/poiesic/vidindex/core"
	"github.com/poiesic/vidindex/ingestion"
	"github.com/poiesic/vidindex/search"
	"github.com/poiesic/vidindex/source"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
)

// DefaultSourceURL is attached to every chunk unless --source-url is given.
const DefaultSourceURL = "https://www.youtube.com/@traintocode"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "vidindex",
		Usage: "Semantic search index for video transcripts",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
				EnvVars: []string{"VIDINDEX_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Load environment variables from this file if it exists",
				Value: ".env",
			},
		},
		Before: func(c *cli.Context) error {
			if err := loadEnv(c.String("env-file")); err != nil {
				return err
			}
			return setupLogger(c)
		},
		Commands: []*cli.Command{
			{
				Name:   "index",
				Usage:  "Index a JSONL file of video transcripts",
				Action: indexCommand,
				Flags: append(append(storageFlags(), embeddingFlags()...),
					&cli.StringFlag{
						Name:     "input",
						Aliases:  []string{"i"},
						Usage:    "Path to the transcripts JSONL file",
						Required: true,
						EnvVars:  []string{"VIDINDEX_INPUT"},
					},
					&cli.IntFlag{
						Name:    "window",
						Usage:   "Words per chunk",
						Value:   chunker.DefaultWindowWords,
						EnvVars: []string{"VIDINDEX_WINDOW"},
					},
					&cli.IntFlag{
						Name:    "overlap",
						Usage:   "Words shared by consecutive chunks",
						Value:   chunker.DefaultOverlapWords,
						EnvVars: []string{"VIDINDEX_OVERLAP"},
					},
					&cli.StringFlag{
						Name:    "source-url",
						Usage:   "URL recorded on every chunk",
						Value:   DefaultSourceURL,
						EnvVars: []string{"VIDINDEX_SOURCE_URL"},
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N records",
						Value: 10,
					},
					&cli.StringFlag{
						Name:    "metrics-file",
						Usage:   "Write indexing metrics in Prometheus text format to this file",
						EnvVars: []string{"VIDINDEX_METRICS_FILE"},
					},
				),
			},
			{
				Name:      "search",
				Usage:     "Search indexed transcripts",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: append(append(storageFlags(), embeddingFlags()...),
					&cli.IntFlag{
						Name:    "max-hits",
						Aliases: []string{"n"},
						Usage:   "Maximum number of results",
						Value:   search.DefaultMaxHits,
					},
					&cli.Float64Flag{
						Name:  "min-score",
						Usage: "Minimum cosine similarity",
						Value: float64(search.DefaultMinScore),
					},
					&cli.Float64Flag{
						Name:  "keyword-boost",
						Usage: "Score added to results containing every query term",
					},
					&cli.BoolFlag{
						Name:  "verbose",
						Usage: "Print each search stage to stderr",
					},
				),
			},
			{
				Name:   "pending",
				Usage:  "List transcripts whose chunks were not all saved",
				Action: pendingCommand,
				Flags:  append(storageFlags(), embeddingFlags()...),
			},
		},
	}
}

func storageFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "data-dir",
			Aliases:  []string{"d"},
			Usage:    "Directory for the local index database",
			Required: true,
			EnvVars:  []string{"VIDINDEX_DATA_DIR"},
		},
		&cli.StringFlag{
			Name:    "vector-backend",
			Usage:   "Vector store: badger, sqlite, pgvector, qdrant",
			Value:   string(vidindex.VectorBadger),
			EnvVars: []string{"VIDINDEX_VECTOR_BACKEND"},
		},
		&cli.StringFlag{
			Name:    "chunk-backend",
			Usage:   "Chunk store: badger, sqlite, bolt, redis, cassandra",
			Value:   string(vidindex.ChunkBadger),
			EnvVars: []string{"VIDINDEX_CHUNK_BACKEND"},
		},
		&cli.StringFlag{Name: "sqlite-path", Usage: "SQLite database file", EnvVars: []string{"VIDINDEX_SQLITE_PATH"}},
		&cli.StringFlag{Name: "postgres-dsn", Usage: "PostgreSQL connection string", EnvVars: []string{"VIDINDEX_POSTGRES_DSN"}},
		&cli.StringFlag{Name: "postgres-table", Usage: "pgvector table name", EnvVars: []string{"VIDINDEX_POSTGRES_TABLE"}},
		&cli.StringFlag{Name: "qdrant-url", Usage: "Qdrant REST endpoint", EnvVars: []string{"VIDINDEX_QDRANT_URL"}},
		&cli.StringFlag{Name: "qdrant-collection", Usage: "Qdrant collection", EnvVars: []string{"VIDINDEX_QDRANT_COLLECTION"}},
		&cli.StringFlag{Name: "qdrant-api-key", Usage: "Qdrant API key", EnvVars: []string{"VIDINDEX_QDRANT_API_KEY"}},
		&cli.StringFlag{Name: "bolt-path", Usage: "bbolt database file", EnvVars: []string{"VIDINDEX_BOLT_PATH"}},
		&cli.StringFlag{Name: "redis-url", Usage: "Redis URL, e.g. redis://localhost:6379/0", EnvVars: []string{"VIDINDEX_REDIS_URL"}},
		&cli.StringSliceFlag{Name: "cassandra-host", Usage: "Cassandra contact point (repeatable)", EnvVars: []string{"VIDINDEX_CASSANDRA_HOSTS"}},
		&cli.StringFlag{Name: "cassandra-keyspace", Usage: "Cassandra keyspace", EnvVars: []string{"VIDINDEX_CASSANDRA_KEYSPACE"}},
	}
}

func embeddingFlags() []cli.Flag {
	defaults := ai.DefaultConfig()
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "embedding-host",
			Usage:   "Embedding service host URL",
			Value:   defaults.EmbeddingHost,
			EnvVars: []string{"VIDINDEX_EMBEDDING_HOST"},
		},
		&cli.StringFlag{
			Name:    "embedding-model",
			Usage:   "Embedding model name",
			Value:   defaults.EmbeddingModel,
			EnvVars: []string{"VIDINDEX_EMBEDDING_MODEL"},
		},
		&cli.StringFlag{
			Name:    "api-key",
			Usage:   "Bearer token for the embedding service",
			Value:   defaults.APIKey,
			EnvVars: []string{"VIDINDEX_API_KEY", "OPENAI_API_KEY"},
		},
		&cli.IntFlag{
			Name:    "dimensions",
			Usage:   "Embedding vector size",
			Value:   ai.DefaultDimensions,
			EnvVars: []string{"VIDINDEX_DIMENSIONS"},
		},
		&cli.IntFlag{
			Name:  "batch-size",
			Usage: "Texts per embedding request",
			Value: defaults.BatchSize,
		},
		&cli.IntFlag{
			Name:  "cache-size",
			Usage: "Number of embeddings kept in memory (0 disables)",
		},
		&cli.IntFlag{
			Name:  "max-retries",
			Usage: "Maximum retry attempts for failed embedding requests",
			Value: 3,
		},
		&cli.DurationFlag{
			Name:  "retry-delay",
			Usage: "Base delay for exponential backoff",
			Value: defaults.RetryDelay,
		},
	}
}

func configFromContext(c *cli.Context) *vidindex.Config {
	cfg := vidindex.DefaultConfig(c.String("data-dir"))
	cfg.VectorBackend = vidindex.VectorBackend(c.String("vector-backend"))
	cfg.ChunkBackend = vidindex.ChunkBackend(c.String("chunk-backend"))
	cfg.SQLitePath = c.String("sqlite-path")
	cfg.PostgresDSN = c.String("postgres-dsn")
	cfg.PostgresTable = c.String("postgres-table")
	cfg.QdrantURL = c.String("qdrant-url")
	cfg.QdrantCollection = c.String("qdrant-collection")
	cfg.QdrantAPIKey = c.String("qdrant-api-key")
	cfg.BoltPath = c.String("bolt-path")
	cfg.RedisURL = c.String("redis-url")
	cfg.CassandraHosts = c.StringSlice("cassandra-host")
	cfg.CassandraKeyspace = c.String("cassandra-keyspace")
	cfg.AI = ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithAPIKey(c.String("api-key")),
		ai.WithDimensions(c.Int("dimensions")),
		ai.WithBatchSize(c.Int("batch-size")),
		ai.WithCacheSize(c.Int("cache-size")),
		ai.WithRetry(c.Int("max-retries"), c.Duration("retry-delay")),
	)
	return cfg
}

func openIndex(ctx context.Context, c *cli.Context) (*vidindex.Index, error) {
	ix, err := vidindex.Open(ctx, configFromContext(c))
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	return ix, nil
}

func indexCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ix, err := openIndex(ctx, c)
	if err != nil {
		return err
	}
	defer ix.Close()

	src, err := source.New(c.String("input"),
		source.WithWriter(c.App.ErrWriter),
		source.WithDiagnostics(func(*source.ParseError) {}))
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	metrics, err := ingestion.NewMetrics(registry)
	if err != nil {
		return err
	}

	builder, err := ix.NewBuilder(src,
		ingestion.WithChunking(chunker.Options{
			WindowWords:  c.Int("window"),
			OverlapWords: c.Int("overlap"),
			SourceURL:    c.String("source-url"),
		}),
		ingestion.WithMetrics(metrics),
		ingestion.WithProgress(ingestion.NewProgressTracker(c.App.ErrWriter, c.Int("report-interval"))),
	)
	if err != nil {
		return err
	}
	defer builder.Release()

	fmt.Fprintf(c.App.ErrWriter, "Input: %s\n", src.Path())
	fmt.Fprintf(c.App.ErrWriter, "Embedding host: %s\n", c.String("embedding-host"))
	fmt.Fprintf(c.App.ErrWriter, "Embedding model: %s\n", c.String("embedding-model"))
	fmt.Fprintln(c.App.ErrWriter)

	stats, buildErr := builder.Build(ctx)

	if path := c.String("metrics-file"); path != "" {
		if err := prometheus.WriteToTextfile(path, registry); err != nil {
			slog.Error("error writing metrics file", "path", path, "err", err)
		}
	}
	if stats != nil {
		fmt.Fprintf(c.App.Writer, "Records read: %d, indexed: %d, skipped: %d, malformed lines: %d, chunks: %d (%s)\n",
			stats.RecordsRead, stats.RecordsIndexed, stats.RecordsSkipped,
			stats.MalformedLines, stats.ChunksIndexed, stats.Duration.Round(1e6))
	}
	if buildErr != nil {
		return fmt.Errorf("indexing failed: %w", buildErr)
	}
	return nil
}

func searchCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return errors.New("a search query is required")
	}

	ix, err := openIndex(c.Context, c)
	if err != nil {
		return err
	}
	defer ix.Close()

	searcher, err := ix.NewSearcher(
		search.WithMinScore(float32(c.Float64("min-score"))),
		search.WithKeywordBoost(float32(c.Float64("keyword-boost"))),
	)
	if err != nil {
		return err
	}

	var monitor search.SearchMonitor
	if c.Bool("verbose") {
		monitor = &printMonitor{c: c}
	}
	results, err := searcher.SearchWithMonitor(c.Context, query, c.Int("max-hits"), monitor)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	fmt.Fprintf(c.App.Writer, "Found %d hits\n", len(results))
	for i, hit := range results {
		fmt.Fprintf(c.App.Writer, "%d: %s, %s [%0.3f]\n%s\n",
			i+1, hit.Chunk.SourceTitle, hit.Chunk.Label, hit.Score, hit.Chunk.Content)
	}
	return nil
}

func pendingCommand(c *cli.Context) error {
	ix, err := openIndex(c.Context, c)
	if err != nil {
		return err
	}
	defer ix.Close()

	writes, err := ix.PendingWrites(c.Context)
	if err != nil {
		return err
	}
	if len(writes) == 0 {
		fmt.Fprintln(c.App.Writer, "No pending writes.")
		return nil
	}
	for _, w := range writes {
		fmt.Fprintf(c.App.Writer, "%s\t%d chunks\tstarted %s\n",
			w.Title, len(w.ChunkIDs), w.StartedAt.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintf(c.App.Writer, "%d pending; run index again to repair them.\n", len(writes))
	return nil
}

// printMonitor writes each search stage to stderr.
type printMonitor struct {
	c *cli.Context
}

func (m *printMonitor) Start(query string) {
	fmt.Fprintf(m.c.App.ErrWriter, "query: %q\n", query)
}

func (m *printMonitor) AfterEmbedding(dimensions int) {
	fmt.Fprintf(m.c.App.ErrWriter, "embedded query (%d dimensions)\n", dimensions)
}

func (m *printMonitor) AfterVectorSearch(matches []core.VectorMatch) {
	fmt.Fprintf(m.c.App.ErrWriter, "vector search: %d matches\n", len(matches))
}

func (m *printMonitor) MissingChunk(match core.VectorMatch) {
	fmt.Fprintf(m.c.App.ErrWriter, "no chunk stored for %q\n", match.ChunkID)
}

func (m *printMonitor) KeywordHit(result *core.SearchResult) {
	fmt.Fprintf(m.c.App.ErrWriter, "keyword boost: %s\n", result.Chunk.ID)
}

func (m *printMonitor) Finish(results []*core.SearchResult) {
	fmt.Fprintf(m.c.App.ErrWriter, "returning %d results\n", len(results))
}

// loadEnv loads path into the environment without overriding variables that
// are already set. A missing file is ignored.
func loadEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
