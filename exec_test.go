package crudr

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

// newMockDB returns a database backed by sqlmock with exact query matching;
// composed SQL is deterministic, so regexp matching would only hide typos.
func newMockDB(t testing.TB) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

// TestExecContext_Insert verifies the composed SQL and named args reach the
// driver unchanged and the non-query result passes back.
func TestExecContext_Insert(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec("insert into users (id, name) values (:id, :name);").
		WithArgs(sql.Named("id", int64(7)), sql.Named("name", "Bob")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	st, err := New().Insert("users", map[string]any{"id": 7, "name": "Bob"})
	require.NoError(t, err)

	res, err := st.ExecContext(context.Background(), db)
	require.NoError(t, err)
	n, err := res.RowsAffected()
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

// TestExecContext_UpdateInTransaction verifies a *sql.Tx satisfies Execer, so
// an externally supplied transaction scopes the statement.
func TestExecContext_UpdateInTransaction(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec("update users set name = :name where id = :id;").
		WithArgs(sql.Named("name", "Alice"), sql.Named("id", int64(7))).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)

	st, err := New().Update("users", map[string]any{"name": "Alice"}, map[string]any{"id": 7})
	require.NoError(t, err)

	_, err = st.ExecContext(context.Background(), tx)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())
}

// TestQueryContext_Select verifies the row reader comes back untouched.
func TestQueryContext_Select(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("select * from users where id = :id").
		WithArgs(sql.Named("id", int64(7))).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(7, "Bob"))

	st, err := New().Select("users", map[string]any{"id": 7}, nil)
	require.NoError(t, err)

	rows, err := st.QueryContext(context.Background(), db)
	require.NoError(t, err)
	defer rows.Close()

	require.True(t, rows.Next())
	var id int64
	var name string
	require.NoError(t, rows.Scan(&id, &name))
	require.EqualValues(t, 7, id)
	require.Equal(t, "Bob", name)
	require.False(t, rows.Next())
	require.NoError(t, rows.Err())
	require.NoError(t, mock.ExpectationsWereMet())
}

// TestScalarContext covers the single-value path and the empty result.
func TestScalarContext(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("select count(*) from users where name = :name").
		WithArgs(sql.Named("name", "Bob")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	st, err := New().Raw("select count(*) from users where name = :name", map[string]any{"name": "Bob"})
	require.NoError(t, err)

	v, err := st.ScalarContext(context.Background(), db)
	require.NoError(t, err)
	require.EqualValues(t, 3, v)

	mock.ExpectQuery("select count(*) from users where name = :name").
		WithArgs(sql.Named("name", "Bob")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}))

	_, err = st.ScalarContext(context.Background(), db)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

// TestExec_ErrorPassthrough: execution failures surface verbatim.
func TestExec_ErrorPassthrough(t *testing.T) {
	db, mock := newMockDB(t)
	boom := errors.New("connection reset")
	mock.ExpectExec("delete from users;").WillReturnError(boom)

	st, err := New().Delete("users", nil)
	require.NoError(t, err)

	_, err = st.Exec(db)
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}
