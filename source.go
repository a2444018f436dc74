package dbcmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrUnknownSource is returned when a Registry has no source for a key.
var ErrUnknownSource = errors.New("dbcmd: unknown data source")

// Conn is a connection scoped to a single handler invocation. *sql.Conn
// satisfies it.
type Conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	Close() error
}

// Source hands out connections. Callers must Close every Conn they receive.
type Source interface {
	Conn(ctx context.Context) (Conn, error)
}

// Registry resolves named data sources. The empty key is the default source.
type Registry interface {
	Source(key string) (Source, error)
}

// DB adapts a *sql.DB pool into a Source.
func DB(db *sql.DB) Source {
	return dbSource{db: db}
}

type dbSource struct {
	db *sql.DB
}

func (s dbSource) Conn(ctx context.Context) (Conn, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Sources is a static Registry keyed by data source name.
type Sources map[string]Source

// Source implements Registry.
func (s Sources) Source(key string) (Source, error) {
	src, ok := s[key]
	if !ok || src == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, key)
	}
	return src, nil
}

// Open acquires a connection from src.
func Open(ctx context.Context, src Source) (Conn, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: nil source", ErrUnknownSource)
	}
	return src.Conn(ctx)
}

// OpenKeyed resolves key in reg and acquires a connection from it.
func OpenKeyed(ctx context.Context, reg Registry, key string) (Conn, error) {
	if reg == nil {
		return nil, fmt.Errorf("%w: nil registry", ErrUnknownSource)
	}
	src, err := reg.Source(key)
	if err != nil {
		return nil, err
	}
	return Open(ctx, src)
}

var (
	_ Registry = Sources(nil)
	_ Conn     = (*sql.Conn)(nil)
)
