package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"course-rag/internal/models"
)

func newMockStore(t *testing.T, maxHistory int) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()

	sqldb, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqldb.Close() })

	return NewPostgresStoreFromDB(sqldb, maxHistory, false), mock
}

func TestPostgresStoreInit(t *testing.T) {
	store, mock := newMockStore(t, 2)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "session_exchanges"`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.Init(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreGet(t *testing.T) {
	store, mock := newMockStore(t, 2)

	rows := sqlmock.NewRows([]string{"id", "session_id", "user_message", "assistant_message", "created_at"}).
		AddRow(int64(1), "s1", "q1", "a1", time.Now()).
		AddRow(int64(2), "s1", "q2", "a2", time.Now())
	mock.ExpectQuery(`SELECT (.+) FROM "session_exchanges"`).WillReturnRows(rows)

	history, err := store.Get(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, models.Exchange{User: "q1", Assistant: "a1"}, history[0])
	assert.Equal(t, models.Exchange{User: "q2", Assistant: "a2"}, history[1])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreGetFailure(t *testing.T) {
	store, mock := newMockStore(t, 2)

	mock.ExpectQuery(`SELECT (.+) FROM "session_exchanges"`).
		WillReturnError(errors.New("connection reset"))

	_, err := store.Get(context.Background(), "s1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s1")
}

func TestPostgresStoreAppend(t *testing.T) {
	store, mock := newMockStore(t, 2)

	mock.ExpectQuery(`INSERT INTO "session_exchanges"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectExec(`DELETE FROM "session_exchanges"`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Append(context.Background(), "s1", models.Exchange{User: "q", Assistant: "a"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreAppendZeroCap(t *testing.T) {
	store, mock := newMockStore(t, 0)

	require.NoError(t, store.Append(context.Background(), "s1", models.Exchange{User: "q", Assistant: "a"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}
