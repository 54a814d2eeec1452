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
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a compact numeric identifier derived from content.
// Storage backends that cannot key points by arbitrary strings use it.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// TranscriptRecord is one source document read from the input file.
// TranscriptText may be empty; such records are excluded from indexing.
type TranscriptRecord struct {
	ChannelName    string
	Title          string
	TranscriptText string
}

// Chunk is one indexed window of a transcript.
// For a given SourceTitle, SequenceNumber values are contiguous starting at 1 and
// ID values sort lexicographically in window order.
type Chunk struct {
	ID             string
	SourceTitle    string
	Label          string // Human readable section label, e.g. "Section 3"
	SequenceNumber int
	Content        string
	SourceURL      string
}

// Vector is an embedding produced for a single input string.
type Vector = []float32

// Metadata keys written alongside every vector.
const (
	MetadataTitle      = "title"
	MetadataChunkIndex = "chunk_index"
)

// IndexEntry pairs a chunk id with its embedding for a single vector store upsert.
type IndexEntry struct {
	ChunkID        string
	Vector         Vector
	Title          string
	SequenceNumber int
}

// Metadata returns the key/value payload stored with the vector.
func (e IndexEntry) Metadata() map[string]any {
	return map[string]any{
		MetadataTitle:      e.Title,
		MetadataChunkIndex: e.SequenceNumber,
	}
}

// NewIndexEntry builds the vector store entry for a chunk.
func NewIndexEntry(chunk *Chunk, vector Vector) IndexEntry {
	return IndexEntry{
		ChunkID:        chunk.ID,
		Vector:         vector,
		Title:          chunk.SourceTitle,
		SequenceNumber: chunk.SequenceNumber,
	}
}

// VectorMatch is a single similarity search hit returned by a vector store.
type VectorMatch struct {
	ChunkID        string
	Title          string
	SequenceNumber int
	Score          float32
}

// SearchResult is a vector match resolved to its stored chunk.
type SearchResult struct {
	Chunk *Chunk
	Score float32
}

// PendingWrite records chunk ids whose vectors may have been upserted but whose
// chunk metadata has not been confirmed in the chunk store yet.
type PendingWrite struct {
	Title     string
	ChunkIDs  []string
	StartedAt time.Time
}
