// Package mysql provides the MySQL dialect.
package mysql

import "github.com/electwix/dbcmd/internal/engine"

// Engine implements engine.Engine for MySQL.
type Engine struct{}

// New creates a new MySQL engine instance.
func New() (engine.Engine, error) {
	return &Engine{}, nil
}

// Name returns the engine identifier.
func (e *Engine) Name() string {
	return "mysql"
}

// Placeholder returns "?".
func (e *Engine) Placeholder(string, int) string {
	return "?"
}

// CallProcedure renders CALL name(?, ...).
func (e *Engine) CallProcedure(name string, params []string) string {
	return "CALL " + name + "(" + engine.Placeholders(e, params) + ")"
}

// DefaultDriver returns the default Go driver import path for MySQL.
func (e *Engine) DefaultDriver() string {
	return "github.com/go-sql-driver/mysql"
}

// SupportsFeature reports whether MySQL supports a specific feature.
func (e *Engine) SupportsFeature(feature engine.Feature) bool {
	switch feature {
	case engine.FeatureStoredProcedures,
		engine.FeatureScalarFunctions:
		return true
	default:
		return false
	}
}
