// Package sqlite provides the SQLite dialect.
package sqlite

import "github.com/electwix/dbcmd/internal/engine"

// Engine implements engine.Engine for SQLite.
type Engine struct{}

// New creates a new SQLite engine instance.
func New() (engine.Engine, error) {
	return &Engine{}, nil
}

// Name returns the engine identifier.
func (e *Engine) Name() string {
	return "sqlite"
}

// Placeholder returns ":name".
func (e *Engine) Placeholder(name string, _ int) string {
	return ":" + name
}

// CallProcedure is never reached; SQLite has no stored procedures.
func (e *Engine) CallProcedure(name string, _ []string) string {
	return name
}

// DefaultDriver returns the default Go driver import path for SQLite.
func (e *Engine) DefaultDriver() string {
	return "modernc.org/sqlite"
}

// SupportsFeature reports whether SQLite supports a specific feature.
func (e *Engine) SupportsFeature(feature engine.Feature) bool {
	switch feature {
	case engine.FeatureScalarFunctions,
		engine.FeatureTableFunctions, // json_each and friends
		engine.FeatureNamedParameters:
		return true
	default:
		return false
	}
}
