// Package postgres provides the PostgreSQL dialect.
package postgres

import (
	"strconv"

	"github.com/electwix/dbcmd/internal/engine"
)

// Engine implements engine.Engine for PostgreSQL.
type Engine struct{}

// New creates a new PostgreSQL engine instance.
func New() (engine.Engine, error) {
	return &Engine{}, nil
}

// Name returns the engine identifier.
func (e *Engine) Name() string {
	return "postgres"
}

// Placeholder returns "$index".
func (e *Engine) Placeholder(_ string, index int) string {
	return "$" + strconv.Itoa(index)
}

// CallProcedure renders CALL name($1, ...).
func (e *Engine) CallProcedure(name string, params []string) string {
	return "CALL " + name + "(" + engine.Placeholders(e, params) + ")"
}

// DefaultDriver returns the default Go driver import path for PostgreSQL.
func (e *Engine) DefaultDriver() string {
	return "github.com/jackc/pgx/v5/stdlib"
}

// SupportsFeature reports whether PostgreSQL supports a specific feature.
func (e *Engine) SupportsFeature(feature engine.Feature) bool {
	switch feature {
	case engine.FeatureStoredProcedures, // PostgreSQL 11+
		engine.FeatureScalarFunctions,
		engine.FeatureTableFunctions:
		return true
	default:
		return false
	}
}
