package cassandra

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/gocql/gocql"
	"github.com/poiesic/vidindex/core"
	"github.com/poiesic/vidindex/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSession keeps rows in memory keyed by id.
type fakeSession struct {
	stmts  []string
	rows   map[string][]any
	err    error
	closed bool
}

func newFakeSession() *fakeSession {
	return &fakeSession{rows: make(map[string][]any)}
}

func (f *fakeSession) Exec(ctx context.Context, stmt string, values ...any) error {
	f.stmts = append(f.stmts, stmt)
	if f.err != nil {
		return f.err
	}
	if strings.Contains(stmt, "INSERT") {
		f.rows[values[0].(string)] = values
	}
	return nil
}

func (f *fakeSession) Scan(ctx context.Context, stmt string, values []any, dest ...any) error {
	f.stmts = append(f.stmts, stmt)
	if f.err != nil {
		return f.err
	}
	row, ok := f.rows[values[0].(string)]
	if !ok {
		return gocql.ErrNotFound
	}
	*dest[0].(*string) = row[0].(string)
	*dest[1].(*string) = row[1].(string)
	*dest[2].(*string) = row[2].(string)
	*dest[3].(*int) = row[3].(int)
	*dest[4].(*string) = row[4].(string)
	*dest[5].(*string) = row[5].(string)
	return nil
}

func (f *fakeSession) Close() {
	f.closed = true
}

func TestChunkStore_SaveAndGet(t *testing.T) {
	session := newFakeSession()
	store := NewChunkStore(session, "")
	ctx := context.Background()

	require.NoError(t, store.EnsureSchema(ctx))
	assert.Contains(t, session.stmts[0], "CREATE TABLE IF NOT EXISTS "+DefaultTable)

	chunk := &core.Chunk{
		ID:             "Intro (section 00)",
		SourceTitle:    "Intro",
		Label:          "Section 1",
		SequenceNumber: 1,
		Content:        "hello",
		SourceURL:      "https://example.com",
	}
	require.NoError(t, store.SaveChunk(ctx, chunk))

	got, err := store.GetChunk(ctx, chunk.ID)
	require.NoError(t, err)
	assert.Equal(t, chunk, got)

	_, err = store.GetChunk(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.Close())
	assert.False(t, session.closed, "caller-owned session stays open")
}

func TestChunkStore_Errors(t *testing.T) {
	session := newFakeSession()
	store := NewChunkStore(session, "custom")
	ctx := context.Background()

	assert.ErrorIs(t, store.SaveChunk(ctx, &core.Chunk{ID: "a"}), core.ErrInvalidChunk)
	assert.Empty(t, session.stmts)

	session.err = errors.New("unavailable")
	err := store.SaveChunk(ctx, &core.Chunk{ID: "a", SourceTitle: "A", SequenceNumber: 1})
	assert.ErrorIs(t, err, session.err)
	assert.Contains(t, session.stmts[0], "INSERT INTO custom")

	_, err = store.GetChunk(ctx, "a")
	assert.ErrorIs(t, err, session.err)
	assert.NotErrorIs(t, err, storage.ErrNotFound)
}

func TestOpen_Validation(t *testing.T) {
	_, err := Open(context.Background(), Config{Keyspace: "ks"})
	assert.Error(t, err)
	_, err = Open(context.Background(), Config{Hosts: []string{"127.0.0.1"}})
	assert.Error(t, err)
}
