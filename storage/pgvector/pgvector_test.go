package pgvector

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/poiesic/vidindex/core"
	"github.com/poiesic/vidindex/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T, dimension int) (*VectorStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	store, err := New(mock, dimension)
	require.NoError(t, err)
	return store, mock
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, 3)
	assert.Error(t, err)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	_, err = New(mock, 0)
	assert.Error(t, err)
}

func TestEnsureSchema(t *testing.T) {
	store, mock := newMockStore(t, 3)

	mock.ExpectExec("CREATE EXTENSION IF NOT EXISTS vector").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "transcript_vectors"`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, store.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsert(t *testing.T) {
	store, mock := newMockStore(t, 2)
	entries := []core.IndexEntry{
		{ChunkID: "Intro (section 00)", Title: "Intro", SequenceNumber: 1, Vector: []float32{1, 0}},
		{ChunkID: "Intro (section 01)", Title: "Intro", SequenceNumber: 2, Vector: []float32{0, 1}},
	}

	mock.ExpectBegin()
	for _, e := range entries {
		mock.ExpectExec(`INSERT INTO "transcript_vectors"`).
			WithArgs(e.ChunkID, pgxmock.AnyArg(), "Intro", e.SequenceNumber, pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	mock.ExpectCommit()

	require.NoError(t, store.Upsert(context.Background(), entries))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsert_RollsBackOnError(t *testing.T) {
	boom := errors.New("connection reset")
	rollbackErr := errors.New("rollback refused")

	tests := []struct {
		name        string
		rollbackErr error
	}{
		{"rollback succeeds", nil},
		{"rollback fails", rollbackErr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newMockStore(t, 2)

			mock.ExpectBegin()
			mock.ExpectExec(`INSERT INTO "transcript_vectors"`).
				WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
				WillReturnError(boom)
			rollback := mock.ExpectRollback()
			if tt.rollbackErr != nil {
				rollback.WillReturnError(tt.rollbackErr)
			}

			err := store.Upsert(context.Background(), []core.IndexEntry{
				{ChunkID: "a", Title: "A", SequenceNumber: 1, Vector: []float32{1, 0}},
			})
			require.ErrorIs(t, err, boom)
			if tt.rollbackErr != nil {
				assert.ErrorIs(t, err, tt.rollbackErr)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUpsert_DimensionMismatch(t *testing.T) {
	store, mock := newMockStore(t, 3)

	err := store.Upsert(context.Background(), []core.IndexEntry{
		{ChunkID: "a", Vector: []float32{1, 0}},
	})
	assert.ErrorIs(t, err, core.ErrInvalidIndexEntry)
	assert.NoError(t, mock.ExpectationsWereMet(), "no statement may run")
}

func TestSearch(t *testing.T) {
	store, mock := newMockStore(t, 2)

	rows := pgxmock.NewRows([]string{"id", "title", "chunk_index", "score"}).
		AddRow("Intro (section 01)", "Intro", 2, float64(0.91)).
		AddRow("Intro (section 00)", "Intro", 1, float64(0.42))
	mock.ExpectQuery(`SELECT id, title, chunk_index, 1 - \(embedding <=> \$1\) AS score FROM "transcript_vectors"`).
		WithArgs(pgxmock.AnyArg(), float64(0.25), 5).
		WillReturnRows(rows)

	matches, err := store.Search(context.Background(), []float32{0.6, 0.8}, 0.25, 5)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "Intro (section 01)", matches[0].ChunkID)
	assert.Equal(t, 2, matches[0].SequenceNumber)
	assert.InDelta(t, 0.91, matches[0].Score, 1e-6)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearch_DimensionMismatch(t *testing.T) {
	store, _ := newMockStore(t, 3)

	_, err := store.Search(context.Background(), []float32{1, 0}, 0, 5)
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)
}

func TestWithTable(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := New(mock, 2, WithTable("custom"))
	require.NoError(t, err)
	assert.Equal(t, `"custom"`, store.tableIdent)
}
