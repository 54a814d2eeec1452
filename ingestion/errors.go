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

package ingestion

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceRequired is returned when no record source is provided.
	ErrSourceRequired = errors.New("record source required")

	// ErrEmbedderRequired is returned when no embedder is provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrVectorStoreRequired is returned when no vector store is provided.
	ErrVectorStoreRequired = errors.New("vector store required")

	// ErrChunkStoreRequired is returned when no chunk store is provided.
	ErrChunkStoreRequired = errors.New("chunk store required")

	// ErrBuildInProgress is returned when Build is called while another Build
	// on the same Builder is still running.
	ErrBuildInProgress = errors.New("build already in progress")

	// ErrEmbedFailed marks failures producing vectors for a record.
	ErrEmbedFailed = errors.New("embedding failed")

	// ErrUpsertFailed marks failures writing a record's vectors.
	ErrUpsertFailed = errors.New("vector upsert failed")

	// ErrPersistFailed marks failures saving a record's chunks.
	ErrPersistFailed = errors.New("chunk persistence failed")

	// ErrLedgerFailed marks failures updating the pending-write ledger.
	ErrLedgerFailed = errors.New("pending ledger update failed")
)

// Stage names the step of indexing a record that failed.
type Stage string

const (
	StageEmbed   Stage = "embed"
	StageUpsert  Stage = "upsert"
	StagePersist Stage = "persist"
	StageLedger  Stage = "ledger"
)

func (s Stage) sentinel() error {
	switch s {
	case StageEmbed:
		return ErrEmbedFailed
	case StageUpsert:
		return ErrUpsertFailed
	case StagePersist:
		return ErrPersistFailed
	default:
		return ErrLedgerFailed
	}
}

// IndexError reports the record and stage at which a Build stopped.
// It matches both the stage sentinel and the underlying cause with errors.Is.
type IndexError struct {
	Title string
	Stage Stage
	Err   error
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("index %q: %s: %v", e.Title, e.Stage.sentinel(), e.Err)
}

func (e *IndexError) Unwrap() []error {
	return []error{e.Stage.sentinel(), e.Err}
}

func newIndexError(title string, stage Stage, err error) *IndexError {
	return &IndexError{Title: title, Stage: stage, Err: err}
}
