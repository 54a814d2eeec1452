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

// Package qdrant stores vectors in a Qdrant collection over its REST API.
//
// Qdrant point ids must be unsigned integers or UUIDs, so each chunk id is
// mapped to core.IDFromContent(chunkID) and kept verbatim in the payload.
package qdrant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/poiesic/vidindex/core"
	"github.com/poiesic/vidindex/storage"
)

const (
	// DefaultCollection is used when no collection is configured.
	DefaultCollection = "transcripts"

	payloadChunkID = "chunk_id"
	defaultTimeout = 10 * time.Second
)

// Config holds connection settings.
type Config struct {
	URL        string
	Collection string
	APIKey     string
	Dimension  int
	Timeout    time.Duration
	RetryCount int
}

// VectorStore implements storage.VectorStore on Qdrant.
type VectorStore struct {
	client     *resty.Client
	collection string
	dimension  int
	logger     *slog.Logger
}

var _ storage.VectorStore = (*VectorStore)(nil)

type apiError struct {
	Status struct {
		Error string `json:"error"`
	} `json:"status"`
}

type searchResult struct {
	ID      any            `json:"id"`
	Score   float64        `json:"score"`
	Payload map[string]any `json:"payload"`
}

type searchResponse struct {
	Result []searchResult `json:"result"`
}

// New builds a store and ensures its collection exists.
func New(ctx context.Context, cfg Config) (*VectorStore, error) {
	base := strings.TrimRight(cfg.URL, "/")
	if base == "" {
		return nil, errors.New("qdrant: url is required")
	}
	if cfg.Dimension <= 0 {
		return nil, errors.New("qdrant: dimension must be positive")
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	client := resty.New().
		SetBaseURL(base).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(100 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(retryCondition)
	if cfg.APIKey != "" {
		client.SetHeader("api-key", cfg.APIKey)
	}

	s := &VectorStore{
		client:     client,
		collection: cfg.Collection,
		dimension:  cfg.Dimension,
		logger:     slog.Default().With("component", "qdrant", "collection", cfg.Collection),
	}
	if err := s.ensureCollection(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// retryCondition retries network errors, throttling and server errors.
func retryCondition(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	if r == nil {
		return false
	}
	code := r.StatusCode()
	return code >= 500 || code == http.StatusTooManyRequests || code == http.StatusRequestTimeout
}

func (s *VectorStore) collectionPath(suffix string) string {
	return "/collections/" + s.collection + suffix
}

func (s *VectorStore) ensureCollection(ctx context.Context) error {
	resp, err := s.request(ctx).Get(s.collectionPath(""))
	if err != nil {
		return fmt.Errorf("qdrant: get collection: %w", err)
	}
	if resp.StatusCode() == http.StatusOK {
		return nil
	}
	if resp.StatusCode() != http.StatusNotFound {
		return responseError("get collection", resp)
	}

	s.logger.Info("creating collection", "dimension", s.dimension)
	body := map[string]any{
		"vectors": map[string]any{
			"size":     s.dimension,
			"distance": "Cosine",
		},
	}
	return s.do(ctx, http.MethodPut, s.collectionPath(""), body, nil)
}

// Upsert writes all entries in one request and waits for them to be applied.
func (s *VectorStore) Upsert(ctx context.Context, entries []core.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}
	points := make([]map[string]any, 0, len(entries))
	for i := range entries {
		e := &entries[i]
		if err := core.ValidateIndexEntry(e, s.dimension); err != nil {
			return err
		}
		payload := e.Metadata()
		payload[payloadChunkID] = e.ChunkID
		points = append(points, map[string]any{
			"id":      PointID(e.ChunkID),
			"vector":  e.Vector,
			"payload": payload,
		})
	}
	return s.do(ctx, http.MethodPut, s.collectionPath("/points?wait=true"), map[string]any{"points": points}, nil)
}

// Search runs a similarity query with Qdrant's score threshold.
func (s *VectorStore) Search(ctx context.Context, vector []float32, minScore float32, limit int) ([]core.VectorMatch, error) {
	if err := storage.ValidateQuery(vector, limit); err != nil {
		return nil, err
	}
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: got %d want %d", storage.ErrDimensionMismatch, len(vector), s.dimension)
	}
	request := map[string]any{
		"vector":          vector,
		"limit":           limit,
		"with_payload":    true,
		"score_threshold": minScore,
	}
	var response searchResponse
	if err := s.do(ctx, http.MethodPost, s.collectionPath("/points/search"), request, &response); err != nil {
		return nil, err
	}

	matches := make([]core.VectorMatch, 0, len(response.Result))
	for _, res := range response.Result {
		if float32(res.Score) < minScore {
			continue
		}
		chunkID, _ := res.Payload[payloadChunkID].(string)
		if chunkID == "" {
			s.logger.Warn("point without chunk id", "id", res.ID)
			continue
		}
		title, _ := res.Payload[core.MetadataTitle].(string)
		seq, _ := res.Payload[core.MetadataChunkIndex].(float64)
		matches = append(matches, core.VectorMatch{
			ChunkID:        chunkID,
			Title:          title,
			SequenceNumber: int(seq),
			Score:          float32(res.Score),
		})
	}
	return matches, nil
}

// Close is a no-op; HTTP connections are pooled by the client.
func (s *VectorStore) Close() error {
	return nil
}

// PointID maps a chunk id to the numeric Qdrant point id.
func PointID(chunkID string) uint64 {
	return uint64(core.IDFromContent(chunkID))
}

// request decodes bodies as JSON even when a proxy drops the Content-Type header.
func (s *VectorStore) request(ctx context.Context) *resty.Request {
	return s.client.R().
		SetContext(ctx).
		SetError(&apiError{}).
		ForceContentType("application/json")
}

func (s *VectorStore) do(ctx context.Context, method, path string, body, result any) error {
	req := s.request(ctx)
	if body != nil {
		req.SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("qdrant: %s %s: %w", method, path, err)
	}
	if resp.IsError() {
		return responseError(method+" "+path, resp)
	}
	return nil
}

func responseError(op string, resp *resty.Response) error {
	if apiErr, ok := resp.Error().(*apiError); ok && apiErr != nil && apiErr.Status.Error != "" {
		return fmt.Errorf("qdrant: %s (%d): %s", op, resp.StatusCode(), apiErr.Status.Error)
	}
	return fmt.Errorf("qdrant: %s failed with status %d", op, resp.StatusCode())
}
