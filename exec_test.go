package dbcmd_test

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/electwix/dbcmd"
)

type user struct {
	ID   int64
	Name string
}

func scanUser(rows *sql.Rows) (user, error) {
	var u user
	err := dbcmd.ScanColumns(rows, func(col string) any {
		switch col {
		case "id":
			return &u.ID
		case "name":
			return &u.Name
		}
		return nil
	})
	return u, err
}

func newMock(t *testing.T) (dbcmd.Conn, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	conn, err := dbcmd.Open(context.Background(), dbcmd.DB(db))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn, mock
}

func TestExec(t *testing.T) {
	conn, mock := newMock(t)
	stmt := dbcmd.Statement{Text: "CALL archive_user($1)", Binding: dbcmd.BindPositional}
	mock.ExpectExec(regexp.QuoteMeta(stmt.Text)).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := dbcmd.Exec(context.Background(), conn, stmt, dbcmd.Params{sql.Named("id", int64(7))})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecAffected(t *testing.T) {
	conn, mock := newMock(t)
	stmt := dbcmd.Statement{Text: "CALL purge_sessions($1)", Binding: dbcmd.BindPositional}
	mock.ExpectExec(regexp.QuoteMeta(stmt.Text)).
		WithArgs("eu").
		WillReturnResult(sqlmock.NewResult(0, 42))

	n, err := dbcmd.ExecAffected[int32](context.Background(), conn, stmt, dbcmd.Params{sql.Named("region", "eu")})
	require.NoError(t, err)
	assert.Equal(t, int32(42), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryScalar(t *testing.T) {
	stmt := dbcmd.Statement{Text: "SELECT count_users()", Binding: dbcmd.BindPositional}

	t.Run("value", func(t *testing.T) {
		conn, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta(stmt.Text)).
			WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(int64(9)))
		n, err := dbcmd.QueryScalar[uint16](context.Background(), conn, stmt, nil)
		require.NoError(t, err)
		assert.Equal(t, uint16(9), n)
	})

	t.Run("no rows", func(t *testing.T) {
		conn, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta(stmt.Text)).
			WillReturnRows(sqlmock.NewRows([]string{"n"}))
		n, err := dbcmd.QueryScalar[int](context.Background(), conn, stmt, nil)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("null", func(t *testing.T) {
		conn, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta(stmt.Text)).
			WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(nil))
		n, err := dbcmd.QueryScalar[int64](context.Background(), conn, stmt, nil)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestQueryOne(t *testing.T) {
	stmt := dbcmd.Statement{Text: "SELECT * FROM find_user($1)", Binding: dbcmd.BindPositional}
	params := dbcmd.Params{sql.Named("id", int64(1))}

	t.Run("first row", func(t *testing.T) {
		conn, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta(stmt.Text)).
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"ID", "Name", "extra"}).
				AddRow(int64(1), "ada", "ignored").
				AddRow(int64(2), "bob", "ignored"))
		u, err := dbcmd.QueryOne(context.Background(), conn, stmt, params, scanUser)
		require.NoError(t, err)
		assert.Equal(t, user{ID: 1, Name: "ada"}, u)
	})

	t.Run("empty", func(t *testing.T) {
		conn, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta(stmt.Text)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))
		u, err := dbcmd.QueryOne(context.Background(), conn, stmt, params, scanUser)
		require.NoError(t, err)
		assert.Equal(t, user{}, u)
	})

	t.Run("driver error", func(t *testing.T) {
		conn, mock := newMock(t)
		boom := errors.New("boom")
		mock.ExpectQuery(regexp.QuoteMeta(stmt.Text)).WillReturnError(boom)
		_, err := dbcmd.QueryOne(context.Background(), conn, stmt, params, scanUser)
		assert.ErrorIs(t, err, boom)
	})
}

func TestQueryAll(t *testing.T) {
	stmt := dbcmd.Statement{Text: "CALL list_users($1)", Binding: dbcmd.BindPositional}

	t.Run("rows", func(t *testing.T) {
		conn, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta(stmt.Text)).
			WithArgs("eu").
			WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
				AddRow(int64(1), "ada").
				AddRow(int64(2), "bob"))
		users, err := dbcmd.QueryAll(context.Background(), conn, stmt, []any{"eu"}, scanUser)
		require.NoError(t, err)
		assert.Equal(t, []user{{1, "ada"}, {2, "bob"}}, users)
	})

	t.Run("empty is non-nil", func(t *testing.T) {
		conn, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta(stmt.Text)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))
		users, err := dbcmd.QueryAll(context.Background(), conn, stmt, []any{"eu"}, scanUser)
		require.NoError(t, err)
		assert.NotNil(t, users)
		assert.Empty(t, users)
	})

	t.Run("row error", func(t *testing.T) {
		conn, mock := newMock(t)
		boom := errors.New("row failed")
		mock.ExpectQuery(regexp.QuoteMeta(stmt.Text)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
				AddRow(int64(1), "ada").
				RowError(0, boom))
		_, err := dbcmd.QueryAll(context.Background(), conn, stmt, []any{"eu"}, scanUser)
		assert.ErrorIs(t, err, boom)
	})
}

func TestScanValue(t *testing.T) {
	conn, mock := newMock(t)
	stmt := dbcmd.Statement{Text: "SELECT name FROM users", Binding: dbcmd.BindPositional}
	mock.ExpectQuery(regexp.QuoteMeta(stmt.Text)).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("ada").AddRow("bob"))

	names, err := dbcmd.QueryAll(context.Background(), conn, stmt, nil, dbcmd.ScanValue[string])
	require.NoError(t, err)
	assert.Equal(t, []string{"ada", "bob"}, names)
}

func TestBuffered(t *testing.T) {
	ch := dbcmd.Buffered([]int{1, 2, 3})
	var got []int
	for v := range ch {
		got = append(got, v)
	}
	assert.Equal(t, []int{1, 2, 3}, got)
	assert.Equal(t, 0, cap(dbcmd.Buffered[int](nil)))
}

func TestOpenKeyed(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	reg := dbcmd.Sources{"reporting": dbcmd.DB(db)}

	conn, err := dbcmd.OpenKeyed(context.Background(), reg, "reporting")
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	_, err = dbcmd.OpenKeyed(context.Background(), reg, "billing")
	assert.ErrorIs(t, err, dbcmd.ErrUnknownSource)

	_, err = dbcmd.OpenKeyed(context.Background(), nil, "billing")
	assert.ErrorIs(t, err, dbcmd.ErrUnknownSource)

	_, err = dbcmd.Open(context.Background(), nil)
	assert.ErrorIs(t, err, dbcmd.ErrUnknownSource)
}
