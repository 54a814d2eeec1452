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

package vidindex

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/poiesic/vidindex/ai"
	"github.com/poiesic/vidindex/storage/pgvector"
	"github.com/poiesic/vidindex/storage/qdrant"
)

// VectorBackend selects where embeddings are stored.
type VectorBackend string

const (
	VectorBadger   VectorBackend = "badger"
	VectorSQLite   VectorBackend = "sqlite"
	VectorPgvector VectorBackend = "pgvector"
	VectorQdrant   VectorBackend = "qdrant"
)

// ChunkBackend selects where chunk content is stored.
type ChunkBackend string

const (
	ChunkBadger    ChunkBackend = "badger"
	ChunkSQLite    ChunkBackend = "sqlite"
	ChunkBolt      ChunkBackend = "bolt"
	ChunkRedis     ChunkBackend = "redis"
	ChunkCassandra ChunkBackend = "cassandra"
)

// Config selects and configures the stores behind an Index.
type Config struct {
	// DataDir holds the badger database. It always stores the pending-write
	// ledger and, with the badger backends, vectors and chunks too.
	DataDir string

	// InMemory keeps the badger database in memory. DataDir is ignored.
	InMemory bool

	VectorBackend VectorBackend
	ChunkBackend  ChunkBackend

	// SQLitePath is the database file for the sqlite backends.
	// Default: DataDir/index.sqlite
	SQLitePath string

	PostgresDSN   string
	PostgresTable string

	QdrantURL        string
	QdrantCollection string
	QdrantAPIKey     string

	// BoltPath is the database file for the bolt chunk backend.
	// Default: DataDir/chunks.bolt
	BoltPath string

	RedisURL string

	CassandraHosts    []string
	CassandraKeyspace string
	CassandraTable    string

	// AI configures the embedding service. Its Dimensions also sizes the vector stores.
	AI *ai.Config
}

// DefaultConfig returns a Config that keeps everything in badger under dataDir.
func DefaultConfig(dataDir string) *Config {
	return &Config{
		DataDir:       dataDir,
		VectorBackend: VectorBadger,
		ChunkBackend:  ChunkBadger,
		AI:            ai.DefaultConfig(),
	}
}

// Normalize fills defaults for unset fields.
func (c *Config) Normalize() {
	if c.VectorBackend == "" {
		c.VectorBackend = VectorBadger
	}
	if c.ChunkBackend == "" {
		c.ChunkBackend = ChunkBadger
	}
	c.VectorBackend = VectorBackend(strings.ToLower(string(c.VectorBackend)))
	c.ChunkBackend = ChunkBackend(strings.ToLower(string(c.ChunkBackend)))
	if c.AI == nil {
		c.AI = ai.DefaultConfig()
	}
	c.AI.Normalize()
	if c.SQLitePath == "" && c.DataDir != "" {
		c.SQLitePath = filepath.Join(c.DataDir, "index.sqlite")
	}
	if c.BoltPath == "" && c.DataDir != "" {
		c.BoltPath = filepath.Join(c.DataDir, "chunks.bolt")
	}
	if c.PostgresTable == "" {
		c.PostgresTable = pgvector.DefaultTable
	}
	if c.QdrantCollection == "" {
		c.QdrantCollection = qdrant.DefaultCollection
	}
}

// Validate checks that the selected backends have what they need.
func (c *Config) Validate() error {
	var errs []error
	if !c.InMemory && c.DataDir == "" {
		errs = append(errs, errors.New("data directory is required"))
	}

	switch c.VectorBackend {
	case VectorBadger:
	case VectorSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("sqlite path is required"))
		}
	case VectorPgvector:
		if c.PostgresDSN == "" {
			errs = append(errs, errors.New("postgres dsn is required for the pgvector backend"))
		}
	case VectorQdrant:
		if c.QdrantURL == "" {
			errs = append(errs, errors.New("qdrant url is required for the qdrant backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("%w: vector backend %q", ErrUnknownBackend, c.VectorBackend))
	}

	switch c.ChunkBackend {
	case ChunkBadger:
	case ChunkSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("sqlite path is required"))
		}
	case ChunkBolt:
		if c.BoltPath == "" {
			errs = append(errs, errors.New("bolt path is required"))
		}
	case ChunkRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("redis url is required for the redis backend"))
		}
	case ChunkCassandra:
		if len(c.CassandraHosts) == 0 || c.CassandraKeyspace == "" {
			errs = append(errs, errors.New("cassandra hosts and keyspace are required for the cassandra backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("%w: chunk backend %q", ErrUnknownBackend, c.ChunkBackend))
	}

	if c.AI != nil {
		if err := c.AI.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
