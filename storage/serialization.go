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

package storage

import (
	"fmt"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/vidindex/core"
)

// Values are encoded field by field in declaration order with MUS: strings are
// length-prefixed, integers are varints and vector components are raw float32.

// MarshalChunk serializes a Chunk to bytes.
func MarshalChunk(chunk *core.Chunk) []byte {
	size := ord.String.Size(chunk.ID) +
		ord.String.Size(chunk.SourceTitle) +
		ord.String.Size(chunk.Label) +
		varint.Int.Size(chunk.SequenceNumber) +
		ord.String.Size(chunk.Content) +
		ord.String.Size(chunk.SourceURL)

	buf := make([]byte, size)
	n := ord.String.Marshal(chunk.ID, buf)
	n += ord.String.Marshal(chunk.SourceTitle, buf[n:])
	n += ord.String.Marshal(chunk.Label, buf[n:])
	n += varint.Int.Marshal(chunk.SequenceNumber, buf[n:])
	n += ord.String.Marshal(chunk.Content, buf[n:])
	ord.String.Marshal(chunk.SourceURL, buf[n:])
	return buf
}

// UnmarshalChunk deserializes a Chunk from bytes.
func UnmarshalChunk(data []byte) (*core.Chunk, error) {
	d := decoder{bs: data}
	chunk := &core.Chunk{
		ID:             d.string(),
		SourceTitle:    d.string(),
		Label:          d.string(),
		SequenceNumber: d.int(),
		Content:        d.string(),
		SourceURL:      d.string(),
	}
	if d.err != nil {
		return nil, d.err
	}
	return chunk, nil
}

// MarshalIndexEntry serializes an IndexEntry to bytes.
func MarshalIndexEntry(entry *core.IndexEntry) []byte {
	size := ord.String.Size(entry.ChunkID) +
		ord.String.Size(entry.Title) +
		varint.Int.Size(entry.SequenceNumber) +
		varint.Int.Size(len(entry.Vector))
	for _, v := range entry.Vector {
		size += raw.Float32.Size(v)
	}

	buf := make([]byte, size)
	n := ord.String.Marshal(entry.ChunkID, buf)
	n += ord.String.Marshal(entry.Title, buf[n:])
	n += varint.Int.Marshal(entry.SequenceNumber, buf[n:])
	n += varint.Int.Marshal(len(entry.Vector), buf[n:])
	for _, v := range entry.Vector {
		n += raw.Float32.Marshal(v, buf[n:])
	}
	return buf
}

// UnmarshalIndexEntry deserializes an IndexEntry from bytes.
func UnmarshalIndexEntry(data []byte) (*core.IndexEntry, error) {
	d := decoder{bs: data}
	entry := &core.IndexEntry{
		ChunkID:        d.string(),
		Title:          d.string(),
		SequenceNumber: d.int(),
	}
	count := d.length()
	if d.err == nil && count > 0 {
		entry.Vector = make([]float32, count)
		for i := range entry.Vector {
			entry.Vector[i] = d.float32()
		}
	}
	if d.err != nil {
		return nil, d.err
	}
	return entry, nil
}

// MarshalPendingWrite serializes a PendingWrite to bytes.
// StartedAt is stored with microsecond precision.
func MarshalPendingWrite(write *core.PendingWrite) []byte {
	started := write.StartedAt.UnixMicro()
	size := ord.String.Size(write.Title) +
		varint.Int.Size(len(write.ChunkIDs)) +
		varint.Int64.Size(started)
	for _, id := range write.ChunkIDs {
		size += ord.String.Size(id)
	}

	buf := make([]byte, size)
	n := ord.String.Marshal(write.Title, buf)
	n += varint.Int.Marshal(len(write.ChunkIDs), buf[n:])
	for _, id := range write.ChunkIDs {
		n += ord.String.Marshal(id, buf[n:])
	}
	varint.Int64.Marshal(started, buf[n:])
	return buf
}

// UnmarshalPendingWrite deserializes a PendingWrite from bytes.
func UnmarshalPendingWrite(data []byte) (*core.PendingWrite, error) {
	d := decoder{bs: data}
	write := &core.PendingWrite{Title: d.string()}
	count := d.length()
	if d.err == nil && count > 0 {
		write.ChunkIDs = make([]string, count)
		for i := range write.ChunkIDs {
			write.ChunkIDs[i] = d.string()
		}
	}
	started := d.int64()
	if d.err != nil {
		return nil, d.err
	}
	write.StartedAt = time.UnixMicro(started).UTC()
	return write, nil
}

// decoder reads consecutive MUS values and keeps the first error.
type decoder struct {
	bs  []byte
	n   int
	err error
}

func (d *decoder) fail(err error) {
	d.err = fmt.Errorf("%w: offset %d: %w", ErrSerializationFailed, d.n, err)
}

func (d *decoder) string() string {
	if d.err != nil {
		return ""
	}
	v, n, err := ord.String.Unmarshal(d.bs[d.n:])
	if err != nil {
		d.fail(err)
		return ""
	}
	d.n += n
	return v
}

func (d *decoder) int() int {
	if d.err != nil {
		return 0
	}
	v, n, err := varint.Int.Unmarshal(d.bs[d.n:])
	if err != nil {
		d.fail(err)
		return 0
	}
	d.n += n
	return v
}

func (d *decoder) int64() int64 {
	if d.err != nil {
		return 0
	}
	v, n, err := varint.Int64.Unmarshal(d.bs[d.n:])
	if err != nil {
		d.fail(err)
		return 0
	}
	d.n += n
	return v
}

func (d *decoder) float32() float32 {
	if d.err != nil {
		return 0
	}
	v, n, err := raw.Float32.Unmarshal(d.bs[d.n:])
	if err != nil {
		d.fail(err)
		return 0
	}
	d.n += n
	return v
}

// length reads a collection length and rejects values that cannot fit in the
// remaining bytes.
func (d *decoder) length() int {
	l := d.int()
	if d.err != nil {
		return 0
	}
	if l < 0 || l > len(d.bs)-d.n {
		d.fail(ErrTruncatedData)
		return 0
	}
	return l
}
