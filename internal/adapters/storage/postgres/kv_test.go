package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"medipal/internal/ports/kv"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockKV(t *testing.T) (*KV, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	r := NewKV(db)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r.now = func() time.Time { return fixed }
	return r, mock
}

func TestKV_GetMissingKey(t *testing.T) {
	r, mock := newMockKV(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT value FROM kv_entries WHERE key = $1`)).
		WithArgs("users").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))

	_, ok, err := r.Get(context.Background(), "users")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKV_UpdateLocksReadsAndUpserts(t *testing.T) {
	r, mock := newMockKV(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`SELECT pg_advisory_xact_lock(hashtext($1))`)).
		WithArgs("medications").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT value FROM kv_entries WHERE key = $1`)).
		WithArgs("medications").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow([]byte(`[1]`)))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO kv_entries`)).
		WithArgs("medications", `[1,2]`, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := kv.UpdateJSON(context.Background(), r, "medications", func(v []int, exists bool) ([]int, error) {
		assert.True(t, exists)
		return append(v, 2), nil
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKV_UpdateNoChangeRollsBack(t *testing.T) {
	r, mock := newMockKV(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`SELECT pg_advisory_xact_lock(hashtext($1))`)).
		WithArgs("medications").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT value FROM kv_entries WHERE key = $1`)).
		WithArgs("medications").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))
	mock.ExpectRollback()

	err := r.Update(context.Background(), "medications", func(_ []byte, exists bool) ([]byte, error) {
		assert.False(t, exists)
		return nil, kv.ErrNoChange
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKV_Delete(t *testing.T) {
	r, mock := newMockKV(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM kv_entries WHERE key = $1`)).
		WithArgs("currentUser").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, r.Delete(context.Background(), "currentUser"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
