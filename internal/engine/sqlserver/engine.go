// Package sqlserver provides the SQL Server dialect.
package sqlserver

import (
	"strings"

	"github.com/electwix/dbcmd/internal/engine"
)

// Engine implements engine.Engine for SQL Server.
type Engine struct{}

// New creates a new SQL Server engine instance.
func New() (engine.Engine, error) {
	return &Engine{}, nil
}

// Name returns the engine identifier.
func (e *Engine) Name() string {
	return "sqlserver"
}

// Placeholder returns "@name".
func (e *Engine) Placeholder(name string, _ int) string {
	return "@" + name
}

// CallProcedure renders EXEC name @p = @p, ... so parameters bind by name
// regardless of their declared order.
func (e *Engine) CallProcedure(name string, params []string) string {
	if len(params) == 0 {
		return "EXEC " + name
	}
	args := make([]string, len(params))
	for i, p := range params {
		args[i] = "@" + p + " = @" + p
	}
	return "EXEC " + name + " " + strings.Join(args, ", ")
}

// DefaultDriver returns the usual Go driver import path for SQL Server.
func (e *Engine) DefaultDriver() string {
	return "github.com/microsoft/go-mssqldb"
}

// SupportsFeature reports whether SQL Server supports a specific feature.
func (e *Engine) SupportsFeature(feature engine.Feature) bool {
	switch feature {
	case engine.FeatureStoredProcedures,
		engine.FeatureScalarFunctions,
		engine.FeatureTableFunctions,
		engine.FeatureNamedParameters:
		return true
	default:
		return false
	}
}
