// Package builtin registers all built-in dialects.
//
// Import this package to register the SQLite, PostgreSQL, MySQL and SQL
// Server engines:
//
//	import _ "github.com/electwix/dbcmd/internal/engine/builtin"
//
// This will make the engines available via engine.New().
package builtin

import (
	"github.com/electwix/dbcmd/internal/engine"
	"github.com/electwix/dbcmd/internal/engine/mysql"
	"github.com/electwix/dbcmd/internal/engine/postgres"
	"github.com/electwix/dbcmd/internal/engine/sqlite"
	"github.com/electwix/dbcmd/internal/engine/sqlserver"
)

//nolint:gochecknoinits // Package registration via init is idiomatic for this use case
func init() {
	RegisterAll()
}

// RegisterAll registers all built-in engines.
func RegisterAll() {
	engine.Register("sqlite", sqlite.New)
	engine.Register("postgres", postgres.New)
	engine.Register("postgresql", postgres.New) // Alias
	engine.Register("mysql", mysql.New)
	engine.Register("sqlserver", sqlserver.New)
	engine.Register("mssql", sqlserver.New) // Alias
}
