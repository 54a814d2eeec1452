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

// Package redis stores chunk content in Redis under a configurable key prefix.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/poiesic/vidindex/core"
	"github.com/poiesic/vidindex/storage"
	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces chunk keys.
const DefaultKeyPrefix = "vidindex:chunk:"

// Client is the subset of the go-redis API the store uses.
type Client interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// ChunkStore implements storage.ChunkStore on Redis strings.
type ChunkStore struct {
	client    Client
	prefix    string
	ownClient bool
}

var _ storage.ChunkStore = (*ChunkStore)(nil)

// Option configures a ChunkStore.
type Option func(*ChunkStore)

// WithKeyPrefix overrides DefaultKeyPrefix.
func WithKeyPrefix(prefix string) Option {
	return func(s *ChunkStore) {
		s.prefix = prefix
	}
}

// NewChunkStore wraps an existing client. The caller keeps ownership of it.
func NewChunkStore(client Client, opts ...Option) *ChunkStore {
	s := &ChunkStore{client: client, prefix: DefaultKeyPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open parses a redis:// URL, connects and verifies the server answers.
func Open(ctx context.Context, url string, opts ...Option) (*ChunkStore, error) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	client := redis.NewClient(options)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	s := NewChunkStore(client, opts...)
	s.ownClient = true
	return s, nil
}

func (s *ChunkStore) key(id string) string {
	return s.prefix + id
}

// SaveChunk persists a single chunk, overwriting any chunk with the same id.
func (s *ChunkStore) SaveChunk(ctx context.Context, chunk *core.Chunk) error {
	if err := core.ValidateChunk(chunk); err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(chunk.ID), storage.MarshalChunk(chunk), 0).Err(); err != nil {
		return fmt.Errorf("redis: save chunk %q: %w", chunk.ID, err)
	}
	return nil
}

// GetChunk retrieves a chunk by id.
func (s *ChunkStore) GetChunk(ctx context.Context, id string) (*core.Chunk, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis: get chunk %q: %w", id, err)
	}
	return storage.UnmarshalChunk(data)
}

// Close closes the client if Open created it.
func (s *ChunkStore) Close() error {
	if s.ownClient {
		return s.client.Close()
	}
	return nil
}
