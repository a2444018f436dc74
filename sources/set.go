package sources

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/electwix/dbcmd"
)

// OpenFunc opens a pool for a database/sql driver name and DSN.
type OpenFunc func(driver, dsn string) (*sql.DB, error)

// Set is a Registry over a Config. Pools are opened on first use and shared
// by every handler that resolves the same key.
type Set struct {
	cfg  Config
	open OpenFunc

	mu     sync.Mutex
	pools  map[string]*sql.DB
	closed bool
}

// Option configures a Set.
type Option func(*Set)

// WithOpener replaces sql.Open, mainly for tests.
func WithOpener(open OpenFunc) Option {
	return func(s *Set) { s.open = open }
}

// New returns a Set for cfg. No connection is made until a source is used.
func New(cfg Config, opts ...Option) *Set {
	s := &Set{
		cfg:   cfg,
		open:  sql.Open,
		pools: make(map[string]*sql.DB),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open loads path and returns a Set for it.
func Open(path string, opts ...Option) (*Set, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	return New(cfg, opts...), nil
}

// Source implements dbcmd.Registry. The empty key selects the default source.
func (s *Set) Source(key string) (dbcmd.Source, error) {
	db, err := s.DB(key)
	if err != nil {
		return nil, err
	}
	return dbcmd.DB(db), nil
}

// DB returns the pool for key, opening it if needed.
func (s *Set) DB(key string) (*sql.DB, error) {
	if key == "" {
		key = s.cfg.Default
	}
	spec, ok := s.cfg.Sources[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", dbcmd.ErrUnknownSource, key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errors.New("sources: set is closed")
	}
	if db, ok := s.pools[key]; ok {
		return db, nil
	}
	db, err := s.open(spec.Driver, spec.DSN)
	if err != nil {
		return nil, fmt.Errorf("open source %q: %w", key, err)
	}
	if spec.MaxOpen > 0 {
		db.SetMaxOpenConns(spec.MaxOpen)
	}
	if spec.MaxIdle > 0 {
		db.SetMaxIdleConns(spec.MaxIdle)
	}
	if spec.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(time.Duration(spec.ConnMaxLifetime))
	}
	s.pools[key] = db
	return db, nil
}

// Ping opens and pings every configured source.
func (s *Set) Ping(ctx context.Context) error {
	var errs []error
	for _, name := range s.cfg.Names() {
		db, err := s.DB(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := db.PingContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("ping source %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Close closes every opened pool. The Set is unusable afterwards.
func (s *Set) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	var errs []error
	for name, db := range s.pools {
		if err := db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close source %q: %w", name, err))
		}
	}
	clear(s.pools)
	return errors.Join(errs...)
}

var _ dbcmd.Registry = (*Set)(nil)
