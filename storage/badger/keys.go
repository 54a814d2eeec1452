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

package badger

// Key prefixes. Keys are the prefix, a colon and the natural id, so a prefix
// scan visits chunks of one transcript in window order.
const (
	vectorEntryPrefix  = "vecent"
	chunkRecordPrefix  = "chunkrec"
	pendingWritePrefix = "pendwr"
)

func prefixKey(prefix string) []byte {
	return []byte(prefix + ":")
}

// makeVectorKey generates a key for the vector entry of a chunk.
func makeVectorKey(chunkID string) []byte {
	return []byte(vectorEntryPrefix + ":" + chunkID)
}

// makeChunkKey generates a key for a chunk record.
func makeChunkKey(chunkID string) []byte {
	return []byte(chunkRecordPrefix + ":" + chunkID)
}

// makePendingKey generates a key for the pending write of a transcript.
func makePendingKey(title string) []byte {
	return []byte(pendingWritePrefix + ":" + title)
}
