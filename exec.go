package dbcmd

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

// Statement is the command text of a descriptor together with the binding
// style its dialect expects. Generated handlers declare one per descriptor.
type Statement struct {
	Text    string
	Binding Binding
}

// RowScanner decodes the current row of rows into a T.
type RowScanner[T any] func(rows *sql.Rows) (T, error)

// Exec runs stmt and discards any result.
func Exec(ctx context.Context, conn Conn, stmt Statement, params any) error {
	args, err := Args(params, stmt.Binding)
	if err != nil {
		return err
	}
	_, err = conn.ExecContext(ctx, stmt.Text, args...)
	return err
}

// ExecAffected runs stmt and returns the number of affected rows.
func ExecAffected[T Integer](ctx context.Context, conn Conn, stmt Statement, params any) (T, error) {
	args, err := Args(params, stmt.Binding)
	if err != nil {
		return 0, err
	}
	res, err := conn.ExecContext(ctx, stmt.Text, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return T(n), nil
}

// QueryScalar runs stmt and returns the first column of the first row. No
// row and a NULL value both yield zero.
func QueryScalar[T Integer](ctx context.Context, conn Conn, stmt Statement, params any) (T, error) {
	args, err := Args(params, stmt.Binding)
	if err != nil {
		return 0, err
	}
	var v sql.Null[T]
	if err := conn.QueryRowContext(ctx, stmt.Text, args...).Scan(&v); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return v.V, nil
}

// QueryOne runs stmt and scans the first row. Without rows it returns the
// zero T; additional rows are ignored.
func QueryOne[T any](ctx context.Context, conn Conn, stmt Statement, params any, scan RowScanner[T]) (T, error) {
	var zero T
	args, err := Args(params, stmt.Binding)
	if err != nil {
		return zero, err
	}
	rows, err := conn.QueryContext(ctx, stmt.Text, args...)
	if err != nil {
		return zero, err
	}
	defer rows.Close()
	if !rows.Next() {
		return zero, rows.Err()
	}
	item, err := scan(rows)
	if err != nil {
		return zero, err
	}
	return item, rows.Close()
}

// QueryAll runs stmt and scans every row.
func QueryAll[T any](ctx context.Context, conn Conn, stmt Statement, params any, scan RowScanner[T]) ([]T, error) {
	args, err := Args(params, stmt.Binding)
	if err != nil {
		return nil, err
	}
	rows, err := conn.QueryContext(ctx, stmt.Text, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]T, 0)
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// ScanValue scans a single column row into a T.
func ScanValue[T any](rows *sql.Rows) (T, error) {
	var item T
	err := rows.Scan(&item)
	return item, err
}

// ScanColumns scans the current row by column name. bind receives each column
// name lowercased and returns the destination pointer, or nil to discard.
func ScanColumns(rows *sql.Rows, bind func(column string) any) error {
	cols, err := rows.Columns()
	if err != nil {
		return err
	}
	dest := make([]any, len(cols))
	for i, col := range cols {
		if d := bind(strings.ToLower(col)); d != nil {
			dest[i] = d
			continue
		}
		dest[i] = new(any)
	}
	return rows.Scan(dest...)
}

// Buffered returns a closed channel holding items, for descriptors whose
// result is a channel type.
func Buffered[T any](items []T) chan T {
	ch := make(chan T, len(items))
	for _, item := range items {
		ch <- item
	}
	close(ch)
	return ch
}
