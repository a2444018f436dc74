// Package analyzer turns a type declaration carrying a //dbcmd:command
// directive into a descriptor.Command. Analysis is pure: the same candidate
// always yields an equal descriptor and the same diagnostics.
package analyzer

import (
	"errors"
	"go/build/constraint"
	"go/token"
	"go/types"
	"iter"
	"path/filepath"
	"strings"

	"github.com/electwix/dbcmd/internal/descriptor"
	"github.com/electwix/dbcmd/internal/diagnostics"
	"github.com/electwix/dbcmd/internal/directive"
)

// RuntimePath is the import path of the package declaring the result
// contract markers.
const RuntimePath = descriptor.RuntimePath

// Options configures Analyze.
type Options struct {
	// DefaultCase applies when neither a field tag nor the directive names a
	// case. CaseUnset means identity.
	DefaultCase descriptor.ParamCase
	// RuntimePath overrides the marker package path; mainly for tests.
	RuntimePath string
	// Generated reports whether a file was written by the generator. Methods
	// declared in generated files are ignored when looking for a hand-written
	// Params method. Defaults to a ".gen.go" suffix check.
	Generated func(filename string) bool
}

func (o Options) withDefaults() Options {
	if o.RuntimePath == "" {
		o.RuntimePath = RuntimePath
	}
	if o.Generated == nil {
		o.Generated = func(name string) bool { return strings.HasSuffix(name, ".gen.go") }
	}
	return o
}

// Analyze builds the descriptor for c. Structural problems are reported as
// diagnostics (DG-005, DG-006, DG-008); the returned descriptor is still
// populated as far as analysis got.
func Analyze(c Candidate, opts Options) (descriptor.Command, []diagnostics.Diagnostic) {
	a := &analysis{c: c, opts: opts.withDefaults()}
	a.run()
	return a.cmd, a.diags
}

type analysis struct {
	c     Candidate
	opts  Options
	cmd   descriptor.Command
	diags []diagnostics.Diagnostic

	// resultArg is the type argument of the Query or Command marker.
	resultArg types.Type
}

func (a *analysis) run() {
	c := a.c
	a.cmd = descriptor.Command{
		Name:          c.Name,
		QualifiedName: c.Pkg.Path + "." + c.Name,
		Scope:         scopeChain(c),
		Pos:           a.position(c.Pos),
	}

	if c.Unsupported != "" {
		a.errorAt(c.Pos, diagnostics.CodeUnsupportedDecl, "%s cannot carry a %s directive: %s", c.Name, directive.Prefix, c.Unsupported)
		return
	}

	dir, ok := a.directive()
	if !ok {
		return
	}

	named, st, ok := a.structType()
	if !ok {
		return
	}

	a.cmd.Decl = a.decl(named)
	a.applyDirective(dir)
	a.contract(st)
	a.properties(st, dir)
	a.result()
	a.mapper(named)
}

func (a *analysis) directive() (directive.Directive, bool) {
	dirs := a.c.Directives
	for _, extra := range dirs[1:] {
		a.errorAt(extra.Slash, diagnostics.CodeMalformedDirective, "%s repeats the %s directive", a.c.Name, directive.Prefix)
	}
	d, err := directive.Parse(dirs[0].Text)
	if err != nil {
		pos := dirs[0].Slash
		var derr *directive.Error
		if errors.As(err, &derr) {
			pos += token.Pos(derr.Column - 1)
		}
		a.errorAt(pos, diagnostics.CodeMalformedDirective, "%s: %v", a.c.Name, err)
		return directive.Directive{}, false
	}
	return d, len(dirs) == 1
}

func (a *analysis) structType() (*types.Named, *types.Struct, bool) {
	obj, _ := a.c.Pkg.Info.Defs[a.c.Spec.Name].(*types.TypeName)
	if obj == nil {
		a.errorAt(a.c.Pos, diagnostics.CodeUnsupportedDecl, "%s has no type information", a.c.Name)
		return nil, nil, false
	}
	if obj.IsAlias() {
		a.errorAt(a.c.Pos, diagnostics.CodeUnsupportedDecl, "%s is a type alias; declare the directive on the aliased struct", a.c.Name)
		return nil, nil, false
	}
	named, ok := obj.Type().(*types.Named)
	if !ok {
		a.errorAt(a.c.Pos, diagnostics.CodeUnsupportedDecl, "%s is not a named type", a.c.Name)
		return nil, nil, false
	}
	st, ok := named.Underlying().(*types.Struct)
	if !ok {
		a.errorAt(a.c.Pos, diagnostics.CodeUnsupportedDecl, "%s is not a struct type", a.c.Name)
		return nil, nil, false
	}
	return named, st, true
}

func (a *analysis) decl(named *types.Named) descriptor.Decl {
	d := descriptor.Decl{
		Kind:     descriptor.DeclStruct,
		Receiver: descriptor.ReceiverPointer,
		Exported: token.IsExported(a.c.Name),
	}
	tparams := named.TypeParams()
	for i := range tparams.Len() {
		tp := tparams.At(i)
		d.TypeParams = append(d.TypeParams, descriptor.TypeParam{
			Name:       tp.Obj().Name(),
			Constraint: typeRef(tp.Constraint()),
		})
	}

	var value, pointer int
	for m := range a.handwrittenMethods(named) {
		if _, ok := m.Type().(*types.Signature).Recv().Type().(*types.Pointer); ok {
			pointer++
		} else {
			value++
		}
	}
	if value > 0 && pointer == 0 {
		d.Receiver = descriptor.ReceiverValue
	}
	return d
}

func (a *analysis) handwrittenMethods(named *types.Named) iter.Seq[*types.Func] {
	return func(yield func(*types.Func) bool) {
		for i := range named.NumMethods() {
			m := named.Method(i)
			if a.opts.Generated(a.c.Pkg.Fset.Position(m.Pos()).Filename) {
				continue
			}
			if !yield(m) {
				return
			}
		}
	}
}

func (a *analysis) applyDirective(d directive.Directive) {
	a.cmd.Declared = descriptor.Declared{Proc: d.Proc, SQL: d.SQL, Func: d.Func}
	a.cmd.NonQuery = d.NonQuery
	a.cmd.DataSourceKey = d.Source
	a.cmd.ParamCase, _ = descriptor.ParseCase(d.Case)

	pos := a.c.Directives[0].Slash
	if d.Table && d.Func == nil {
		a.errorAt(pos, diagnostics.CodeMalformedDirective, "%s: table applies only to func sources", a.c.Name)
	}
	var src descriptor.CommandSource
	var key string
	switch {
	case d.Proc != nil:
		src, key = descriptor.CommandSource{Kind: descriptor.SourceStoredProcedure, Text: *d.Proc}, directive.KeyProc
	case d.SQL != nil:
		src, key = descriptor.CommandSource{Kind: descriptor.SourceSQLText, Text: *d.SQL}, directive.KeySQL
	case d.Func != nil:
		text, wrap := strings.CutPrefix(*d.Func, "@")
		src, key = descriptor.CommandSource{Kind: descriptor.SourceFunction, Text: text, Wrap: wrap || d.Table}, directive.KeyFunc
	default:
		return
	}
	if strings.TrimSpace(src.Text) == "" {
		a.errorAt(pos, diagnostics.CodeMalformedDirective, "%s: %s value is empty", a.c.Name, key)
	}
	a.cmd.Source = src
}

func (a *analysis) contract(st *types.Struct) {
	var found []string
	for i := range st.NumFields() {
		f := st.Field(i)
		if !f.Embedded() {
			continue
		}
		kind, arg, ok := a.marker(f.Type())
		if !ok {
			continue
		}
		found = append(found, f.Name())
		if len(found) > 1 {
			a.errorAt(f.Pos(), diagnostics.CodeMultipleContracts, "%s embeds more than one result contract (%s)", a.c.Name, strings.Join(found, ", "))
			continue
		}
		a.cmd.Contract = kind
		a.resultArg = arg
	}
}

// marker reports whether t is one of the result contract markers.
func (a *analysis) marker(t types.Type) (descriptor.ContractKind, types.Type, bool) {
	named, ok := types.Unalias(t).(*types.Named)
	if !ok {
		return descriptor.ContractNone, nil, false
	}
	obj := named.Origin().Obj()
	if obj.Pkg() == nil || obj.Pkg().Path() != a.opts.RuntimePath {
		return descriptor.ContractNone, nil, false
	}
	switch obj.Name() {
	case "Query", "Command":
		if named.TypeArgs().Len() != 1 {
			return descriptor.ContractNone, nil, false
		}
		kind := descriptor.ContractQuery
		if obj.Name() == "Command" {
			kind = descriptor.ContractCommand
		}
		return kind, named.TypeArgs().At(0), true
	case "NoResult":
		return descriptor.ContractNoResult, nil, true
	}
	return descriptor.ContractNone, nil, false
}

func (a *analysis) mapper(named *types.Named) {
	for m := range a.handwrittenMethods(named) {
		if m.Name() != "Params" {
			continue
		}
		sig := m.Type().(*types.Signature)
		if sig.Params().Len() == 0 && sig.Results().Len() == 1 && isEmptyInterface(sig.Results().At(0).Type()) {
			a.cmd.HasMapper = true
			return
		}
		a.errorAt(m.Pos(), diagnostics.CodeUnsupportedDecl, "%s declares Params with a signature other than Params() any", a.c.Name)
		return
	}
}

func isEmptyInterface(t types.Type) bool {
	iface, ok := types.Unalias(t).(*types.Interface)
	return ok && iface.Empty()
}

func scopeChain(c Candidate) []descriptor.Container {
	return []descriptor.Container{
		{Kind: descriptor.ContainerPackage, Name: c.Pkg.Name, Path: c.Pkg.Path},
		{Kind: descriptor.ContainerFile, Name: filepath.Base(c.Filename()), Constraint: buildConstraint(c)},
	}
}

func buildConstraint(c Candidate) string {
	if c.File == nil {
		return ""
	}
	for _, group := range c.File.Comments {
		if group.Pos() >= c.File.Package {
			break
		}
		for _, line := range group.List {
			if !constraint.IsGoBuild(line.Text) {
				continue
			}
			expr, err := constraint.Parse(line.Text)
			if err != nil {
				return ""
			}
			return expr.String()
		}
	}
	return ""
}

func (a *analysis) position(pos token.Pos) descriptor.Position {
	p := a.c.Pkg.Fset.Position(pos)
	return descriptor.Position{File: p.Filename, Line: p.Line, Column: p.Column}
}

func (a *analysis) errorAt(pos token.Pos, code, format string, args ...any) {
	p := a.c.Pkg.Fset.Position(pos)
	a.diags = append(a.diags, diagnostics.Error(code, format, args...).
		For(a.cmd.QualifiedName).
		At(p.Filename, p.Line, p.Column).
		Build())
}
