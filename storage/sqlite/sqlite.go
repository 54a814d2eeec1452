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

// Package sqlite stores vectors and chunks in an embedded SQLite database.
//
// Vectors are kept as JSON arrays and searched with an exhaustive cosine scan
// restricted to rows of the query's dimension.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS vectors (
	chunk_id    TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	chunk_index INTEGER NOT NULL,
	dim         INTEGER NOT NULL,
	vector      TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS vectors_dim ON vectors(dim);
CREATE TABLE IF NOT EXISTS chunks (
	id              TEXT PRIMARY KEY,
	source_title    TEXT NOT NULL,
	label           TEXT NOT NULL,
	sequence_number INTEGER NOT NULL,
	content         TEXT NOT NULL,
	source_url      TEXT NOT NULL
);`

// DB is an open SQLite database with the vidindex schema applied.
// VectorStore and ChunkStore share one DB.
type DB struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens or creates the database file at path.
func Open(ctx context.Context, path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// A single connection serializes writers and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	return &DB{
		db:     db,
		logger: slog.Default().With("component", "sqlite", "path", path),
	}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// withTx runs fn in a transaction, committing when fn returns nil.
func (d *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
