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

import "errors"

var (
	// ErrInvalidDimensions is returned when a non-positive dimension is requested.
	ErrInvalidDimensions = errors.New("dimensions must be positive")

	// ErrVectorTooShort is returned when a provider returns fewer components
	// than requested.
	ErrVectorTooShort = errors.New("embedding shorter than requested dimensions")

	// ErrVectorCountMismatch is returned when a batch call returns a different
	// number of vectors than texts submitted.
	ErrVectorCountMismatch = errors.New("embedding count does not match input count")

	// ErrEmbedderRequired is returned when a decorator is built without an inner embedder.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrInvalidCacheSize is returned when an LRU cache is requested with size <= 0.
	ErrInvalidCacheSize = errors.New("cache size must be greater than zero")
)
