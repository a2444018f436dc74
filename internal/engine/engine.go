// Package engine defines the database dialect abstraction used when rendering
// the statement a generated handler issues.
//
// Each dialect (SQLite, PostgreSQL, MySQL, SQL Server) implements Engine and
// registers itself by name; import internal/engine/builtin to get them all:
//
//	eng, err := engine.New("postgres")
//	if err != nil {
//	    return err
//	}
//	text, err := engine.Statement(eng, cmd.Source, params)
package engine

import (
	"fmt"
	"strings"

	"github.com/electwix/dbcmd"
	"github.com/electwix/dbcmd/internal/descriptor"
)

// Engine encapsulates the dialect-specific parts of statement rendering.
type Engine interface {
	// Name returns the engine identifier (e.g., "sqlite", "postgres").
	Name() string

	// Placeholder returns the marker for the parameter name at 1-based index.
	Placeholder(name string, index int) string

	// CallProcedure renders a stored-procedure invocation.
	CallProcedure(name string, params []string) string

	// DefaultDriver returns the database/sql driver import path usually
	// paired with this dialect.
	DefaultDriver() string

	// SupportsFeature reports whether this engine supports a specific feature.
	SupportsFeature(feature Feature) bool
}

// New creates an Engine for the specified dialect.
func New(dialect string) (Engine, error) {
	return registry.New(dialect)
}

// Binding reports how generated handlers pass arguments to e's driver.
func Binding(e Engine) dbcmd.Binding {
	if e.SupportsFeature(FeatureNamedParameters) {
		return dbcmd.BindNamed
	}
	return dbcmd.BindPositional
}

// Supports reports whether e can issue src.
func Supports(e Engine, src descriptor.CommandSource) bool {
	switch src.Kind {
	case descriptor.SourceStoredProcedure:
		return e.SupportsFeature(FeatureStoredProcedures)
	case descriptor.SourceFunction:
		if src.Wrap {
			return e.SupportsFeature(FeatureTableFunctions)
		}
		return e.SupportsFeature(FeatureScalarFunctions)
	case descriptor.SourceSQLText:
		return true
	default:
		return false
	}
}

// Statement renders the text a handler executes for src with the ordered
// parameter names params.
func Statement(e Engine, src descriptor.CommandSource, params []string) (string, error) {
	if !Supports(e, src) {
		return "", fmt.Errorf("%s does not support %s sources", e.Name(), describe(src))
	}
	switch src.Kind {
	case descriptor.SourceStoredProcedure:
		return e.CallProcedure(src.Text, params), nil
	case descriptor.SourceFunction:
		call := src.Text + "(" + Placeholders(e, params) + ")"
		if src.Wrap {
			return "SELECT * FROM " + call, nil
		}
		return "SELECT " + call, nil
	default:
		return src.Text, nil
	}
}

// Placeholders joins the placeholders for params with ", ".
func Placeholders(e Engine, params []string) string {
	marks := make([]string, len(params))
	for i, p := range params {
		marks[i] = e.Placeholder(p, i+1)
	}
	return strings.Join(marks, ", ")
}

func describe(src descriptor.CommandSource) string {
	if src.Kind == descriptor.SourceFunction && src.Wrap {
		return "table-valued function"
	}
	return src.Kind.String()
}
