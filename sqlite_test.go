package dbcmd_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/electwix/dbcmd"
)

type invoice struct {
	ID     int64
	Total  decimal.Decimal
	Status string
}

func scanInvoice(rows *sql.Rows) (invoice, error) {
	var inv invoice
	err := dbcmd.ScanColumns(rows, func(col string) any {
		switch col {
		case "id":
			return &inv.ID
		case "total":
			return &inv.Total
		case "status":
			return &inv.Status
		}
		return nil
	})
	return inv, err
}

func openSQLite(t *testing.T) dbcmd.Source {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE invoices (id INTEGER PRIMARY KEY, total TEXT NOT NULL, status TEXT NOT NULL);
		INSERT INTO invoices (id, total, status) VALUES (1, '12.50', 'open'), (2, '7.25', 'open'), (3, '100.00', 'paid');
	`)
	require.NoError(t, err)
	return dbcmd.DB(db)
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := openSQLite(t)
	conn, err := dbcmd.Open(ctx, src)
	require.NoError(t, err)
	defer conn.Close()

	byStatus := dbcmd.Statement{
		Text:    "SELECT id, total, status FROM invoices WHERE status = :status ORDER BY id",
		Binding: dbcmd.BindNamed,
	}
	open, err := dbcmd.QueryAll(ctx, conn, byStatus, dbcmd.Params{sql.Named("status", "open")}, scanInvoice)
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.True(t, open[0].Total.Equal(decimal.RequireFromString("12.50")))
	assert.True(t, open[1].Total.Equal(decimal.RequireFromString("7.25")))

	one, err := dbcmd.QueryOne(ctx, conn, byStatus, dbcmd.Params{sql.Named("status", "paid")}, scanInvoice)
	require.NoError(t, err)
	assert.Equal(t, int64(3), one.ID)

	count := dbcmd.Statement{Text: "SELECT count(*) FROM invoices WHERE status = :status", Binding: dbcmd.BindNamed}
	n, err := dbcmd.QueryScalar[int](ctx, conn, count, dbcmd.Params{sql.Named("status", "open")})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	settle := dbcmd.Statement{Text: "UPDATE invoices SET status = 'paid' WHERE status = :status", Binding: dbcmd.BindNamed}
	affected, err := dbcmd.ExecAffected[int64](ctx, conn, settle, dbcmd.Params{sql.Named("status", "open")})
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)

	totals := dbcmd.Statement{Text: "SELECT total FROM invoices ORDER BY id", Binding: dbcmd.BindNamed}
	all, err := dbcmd.QueryAll(ctx, conn, totals, nil, dbcmd.ScanValue[decimal.Decimal])
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

type statusFilter struct {
	Status string
}

func TestSQLiteDescriptorCarrier(t *testing.T) {
	ctx := context.Background()
	conn, err := dbcmd.Open(ctx, openSQLite(t))
	require.NoError(t, err)
	defer conn.Close()

	stmt := dbcmd.Statement{Text: "SELECT count(*) FROM invoices WHERE status = :Status", Binding: dbcmd.BindNamed}
	n, err := dbcmd.QueryScalar[int](ctx, conn, stmt, &statusFilter{Status: "paid"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
