package sources

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/electwix/dbcmd"
)

func TestParseTOML(t *testing.T) {
	t.Setenv("REPORTING_DSN", "postgres://report@localhost/app")
	cfg, err := Parse([]byte(`
default = "main"

[sources.main]
driver = "sqlite3"
dsn = "file::memory:"
max_open = 1
conn_max_lifetime = "5m"

[sources.reporting]
driver = "postgresql"
dsn = "${REPORTING_DSN}"
`), FormatTOML)
	require.NoError(t, err)

	assert.Equal(t, "main", cfg.Default)
	assert.Equal(t, []string{"main", "reporting"}, cfg.Names())
	assert.Equal(t, Spec{
		Driver:          "sqlite",
		DSN:             "file::memory:",
		MaxOpen:         1,
		ConnMaxLifetime: Duration(5 * time.Minute),
	}, cfg.Sources["main"])
	assert.Equal(t, "pgx", cfg.Sources["reporting"].Driver)
	assert.Equal(t, "postgres://report@localhost/app", cfg.Sources["reporting"].DSN)
}

func TestParseYAML(t *testing.T) {
	cfg, err := Parse([]byte(`
sources:
  billing:
    driver: mariadb
    dsn: "user:pw@tcp(localhost:3306)/billing"
    max_idle: 2
    conn_max_lifetime: 90s
`), FormatYAML)
	require.NoError(t, err)

	assert.Equal(t, "billing", cfg.Default, "a single source becomes the default")
	assert.Equal(t, "mysql", cfg.Sources["billing"].Driver)
	assert.Equal(t, 2, cfg.Sources["billing"].MaxIdle)
	assert.Equal(t, Duration(90*time.Second), cfg.Sources["billing"].ConnMaxLifetime)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{name: "empty", data: ``, want: "no data sources defined"},
		{name: "driver", data: "[sources.a]\ndriver = \"oracle\"\ndsn = \"x\"\n", want: `unsupported driver "oracle"`},
		{name: "dsn", data: "[sources.a]\ndriver = \"sqlite\"\n", want: "dsn is required"},
		{name: "default", data: "default = \"b\"\n[sources.a]\ndriver = \"sqlite\"\ndsn = \"x\"\n", want: `default source "b" is not defined`},
		{name: "pool", data: "[sources.a]\ndriver = \"sqlite\"\ndsn = \"x\"\nmax_open = -1\n", want: "pool sizes must not be negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), FormatTOML)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestLoadByExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sources.yml")
	require.NoError(t, os.WriteFile(path, []byte("sources:\n  main:\n    driver: sqlite\n    dsn: \":memory:\"\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "main", cfg.Default)

	bad := filepath.Join(dir, "sources.json")
	require.NoError(t, os.WriteFile(bad, []byte("{}"), 0o600))
	_, err = Load(bad)
	assert.ErrorContains(t, err, "unsupported data-source file extension")
}

func TestSetOpensLazily(t *testing.T) {
	cfg, err := Parse([]byte("default = \"main\"\n[sources.main]\ndriver = \"pgx\"\ndsn = \"postgres://x\"\nmax_open = 3\n[sources.other]\ndriver = \"mysql\"\ndsn = \"y\"\n"), FormatTOML)
	require.NoError(t, err)

	var opened []string
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	set := New(cfg, WithOpener(func(driver, dsn string) (*sql.DB, error) {
		opened = append(opened, driver+" "+dsn)
		return db, nil
	}))

	first, err := set.DB("")
	require.NoError(t, err)
	second, err := set.DB("main")
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, []string{"pgx postgres://x"}, opened)
	assert.Equal(t, 3, first.Stats().MaxOpenConnections)

	_, err = set.Source("missing")
	assert.ErrorIs(t, err, dbcmd.ErrUnknownSource)

	mock.ExpectClose()
	require.NoError(t, set.Close())
	require.NoError(t, mock.ExpectationsWereMet())

	_, err = set.DB("main")
	assert.ErrorContains(t, err, "set is closed")
}

func TestSetSQLite(t *testing.T) {
	cfg, err := Parse([]byte("[sources.main]\ndriver = \"sqlite\"\ndsn = \":memory:\"\nmax_open = 1\n"), FormatTOML)
	require.NoError(t, err)
	set := New(cfg)
	t.Cleanup(func() { set.Close() })

	require.NoError(t, set.Ping(context.Background()))

	conn, err := dbcmd.OpenKeyed(context.Background(), set, "main")
	require.NoError(t, err)
	defer conn.Close()

	n, err := dbcmd.QueryScalar[int](context.Background(), conn, dbcmd.Statement{Text: "SELECT 40 + 2"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 42, n)
}
