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
	"errors"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryingEmbedder retries failed batch calls with exponential backoff.
// Errors caused by context cancellation or an undersized provider vector are
// returned immediately.
type RetryingEmbedder struct {
	inner      Embedder
	maxRetries uint64
	baseDelay  time.Duration
	logger     *slog.Logger
}

var _ Embedder = (*RetryingEmbedder)(nil)

// NewRetryingEmbedder wraps inner. maxRetries is the number of attempts after
// the first; baseDelay doubles after every retry.
func NewRetryingEmbedder(inner Embedder, maxRetries int, baseDelay time.Duration) (*RetryingEmbedder, error) {
	if inner == nil {
		return nil, ErrEmbedderRequired
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}
	return &RetryingEmbedder{
		inner:      inner,
		maxRetries: uint64(maxRetries),
		baseDelay:  baseDelay,
		logger:     slog.Default().With("component", "retrying-embedder"),
	}, nil
}

// EmbedText embeds a single text with retries.
func (r *RetryingEmbedder) EmbedText(ctx context.Context, text string, dimensions int) ([]float32, error) {
	var out []float32
	err := r.do(ctx, func(ctx context.Context) error {
		v, err := r.inner.EmbedText(ctx, text, dimensions)
		out = v
		return err
	})
	return out, err
}

// EmbedTexts embeds a batch with retries. The whole batch is resubmitted.
func (r *RetryingEmbedder) EmbedTexts(ctx context.Context, texts []string, dimensions int) ([][]float32, error) {
	var out [][]float32
	err := r.do(ctx, func(ctx context.Context) error {
		v, err := r.inner.EmbedTexts(ctx, texts, dimensions)
		out = v
		return err
	})
	return out, err
}

func (r *RetryingEmbedder) do(ctx context.Context, call func(context.Context) error) error {
	backoff := retry.WithMaxRetries(r.maxRetries, retry.NewExponential(r.baseDelay))
	attempt := 0
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := call(ctx)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		r.logger.Debug("embedding failed, will retry", "attempt", attempt, "err", err)
		return retry.RetryableError(err)
	})
}

func retryable(err error) bool {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, ErrVectorTooShort), errors.Is(err, ErrInvalidDimensions):
		return false
	}
	return true
}
