// Package check validates analyzed descriptors before any code is written.
package check

import (
	"fmt"
	"strings"

	"github.com/electwix/dbcmd/internal/descriptor"
	"github.com/electwix/dbcmd/internal/diagnostics"
	"github.com/electwix/dbcmd/internal/engine"
)

// Options configures Validate.
type Options struct {
	// Engine is the target dialect. When nil the dialect check is skipped.
	Engine engine.Engine
}

// Validate returns the diagnostics for d in a fixed order: source count,
// contract, non-query shape, parameter names, dialect support. It never
// fails; a descriptor problem is always reported as a diagnostic.
func Validate(d descriptor.Command, opts Options) []diagnostics.Diagnostic {
	v := validator{cmd: d}

	if n := d.Declared.Count(); n > 1 {
		v.add(diagnostics.Error(diagnostics.CodeMultipleSources,
			"%s declares %d command sources; declare at most one of proc, sql and func", d.Name, n).
			WithNote(fmt.Sprintf("%s is used", d.Source.Kind)))
	}

	if d.Source.Kind != descriptor.SourceNone && d.Contract == descriptor.ContractNone {
		v.add(diagnostics.Error(diagnostics.CodeMissingContract,
			"%s declares a %s but no result contract", d.Name, d.Source.Kind).
			WithSuggestion("embed a result contract", "dbcmd.NoResult"))
	}

	if d.NonQuery && d.Result.Kind != descriptor.ShapeIntegralScalar {
		v.add(diagnostics.Warning(diagnostics.CodeNonQueryShape,
			"%s is nonquery but its result is %s, not an integral scalar; the handler runs it as a query", d.Name, d.Result.Kind))
	}

	v.duplicates()

	if opts.Engine != nil && d.Source.Kind != descriptor.SourceNone && !engine.Supports(opts.Engine, d.Source) {
		v.add(diagnostics.Error(diagnostics.CodeDialectSource,
			"%s: dialect %s cannot issue %s", d.Name, opts.Engine.Name(), sourceName(d.Source)))
	}

	return v.diags
}

// Blocking reports whether diags prevent generating code.
func Blocking(diags []diagnostics.Diagnostic) bool {
	return diagnostics.HasErrors(diags)
}

type validator struct {
	cmd   descriptor.Command
	diags []diagnostics.Diagnostic
}

func (v *validator) add(b *diagnostics.Builder) {
	p := v.cmd.Pos
	v.diags = append(v.diags, b.For(v.cmd.QualifiedName).At(p.File, p.Line, p.Column).Build())
}

// duplicates reports parameter names bound more than once. Names compare
// case-insensitively; SQL Server and SQLite fold parameter case.
func (v *validator) duplicates() {
	first := make(map[string]descriptor.Property, len(v.cmd.Properties))
	reported := make(map[string]bool)
	for _, p := range v.cmd.Properties {
		key := strings.ToLower(p.Param)
		prev, ok := first[key]
		if !ok {
			first[key] = p
			continue
		}
		if reported[key] {
			continue
		}
		reported[key] = true
		v.add(diagnostics.Error(diagnostics.CodeDuplicateParam,
			"%s binds parameter %q from both %s and %s", v.cmd.Name, p.Param, prev.Selector(), p.Selector()).
			WithSuggestion("rename one of them with a param tag", fmt.Sprintf(`param:"%s_2"`, p.Param)))
	}
}

func sourceName(src descriptor.CommandSource) string {
	if src.Kind == descriptor.SourceFunction && src.Wrap {
		return "table-valued functions"
	}
	return src.Kind.String() + "s"
}
