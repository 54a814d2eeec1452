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

package core

import (
	"fmt"
	"strings"
)

// ValidateChunk validates a Chunk according to domain rules.
//
// Validation rules:
//   - ID must not be empty
//   - SourceTitle must not be empty
//   - SequenceNumber must be >= 1
//
// Content is not validated; the chunker never produces empty windows.
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if chunk.ID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyChunkID)
	}

	if chunk.SourceTitle == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyTitle)
	}

	if chunk.SequenceNumber < 1 {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrInvalidSequenceNumber)
	}

	return nil
}

// ValidateIndexEntry validates an IndexEntry before it is sent to a vector store.
// If dimension is > 0 the vector length must match it exactly.
func ValidateIndexEntry(entry *IndexEntry, dimension int) error {
	if entry == nil {
		return fmt.Errorf("%w: entry is nil", ErrInvalidIndexEntry)
	}

	if entry.ChunkID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidIndexEntry, ErrEmptyChunkID)
	}

	if len(entry.Vector) == 0 {
		return fmt.Errorf("%w: %q: %w", ErrInvalidIndexEntry, entry.ChunkID, ErrEmptyVector)
	}

	if dimension > 0 && len(entry.Vector) != dimension {
		return fmt.Errorf("%w: %q dimension mismatch (got %d want %d)",
			ErrInvalidIndexEntry, entry.ChunkID, len(entry.Vector), dimension)
	}

	return nil
}

// IsBlank reports whether text is empty or contains only whitespace.
func IsBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}
