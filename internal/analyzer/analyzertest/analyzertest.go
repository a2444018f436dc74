// Package analyzertest type-checks in-memory Go sources into
// analyzer.Package values. Imports resolve to small stubs of the runtime
// package and the few standard packages descriptors and generated code use,
// so tests never touch GOROOT or the module cache.
package analyzertest

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"maps"
	"path"
	"slices"
	"testing"

	"github.com/electwix/dbcmd/internal/analyzer"
	"github.com/electwix/dbcmd/internal/descriptor"
	"github.com/electwix/dbcmd/internal/diagnostics"
)

// Stubs maps import paths to the stub sources available to every Load.
var Stubs = map[string]map[string]string{
	analyzer.RuntimePath: {"dbcmd.go": runtimeStub},
	"context": {"context.go": `package context

type Context interface{ Err() error }
`},
	"iter": {"iter.go": `package iter

type Seq[V any] func(yield func(V) bool)

type Seq2[K, V any] func(yield func(K, V) bool)
`},
	"slices": {"slices.go": `package slices

import "iter"

func Values[Slice ~[]E, E any](s Slice) iter.Seq[E] { return nil }
`},
	"time": {"time.go": `package time

type Time struct{ wall uint64 }
`},
	"database/sql": {"sql.go": `package sql

type NullString struct {
	String string
	Valid  bool
}

func (n *NullString) Scan(value any) error { return nil }

type NamedArg struct {
	Name  string
	Value any
}

func Named(name string, value any) NamedArg { return NamedArg{Name: name, Value: value} }

type Rows struct{}
`},
}

// runtimeStub mirrors the exported API of the runtime package that analysis
// and generated code refer to.
const runtimeStub = `package dbcmd

import (
	"context"
	"database/sql"
)

type Query[T any] struct{}

type Command[T any] struct{}

type NoResult struct{}

type ParamMapper interface{ Params() any }

type NamedArgLister interface{ NamedArgs() []sql.NamedArg }

type Params []sql.NamedArg

type Binding uint8

const (
	BindNamed Binding = iota
	BindPositional
)

type Statement struct {
	Text    string
	Binding Binding
}

type Conn interface{ Close() error }

type Source interface {
	Conn(ctx context.Context) (Conn, error)
}

type Registry interface {
	Source(key string) (Source, error)
}

type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 | ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

type RowScanner[T any] func(rows *sql.Rows) (T, error)

type Handler[Q, R any] func(ctx context.Context, src Source, q Q) (R, error)

type KeyedHandler[Q, R any] func(ctx context.Context, reg Registry, q Q) (R, error)

type ExecHandler[Q any] func(ctx context.Context, src Source, q Q) error

type KeyedExecHandler[Q any] func(ctx context.Context, reg Registry, q Q) error

func Open(ctx context.Context, src Source) (Conn, error) { return nil, nil }

func OpenKeyed(ctx context.Context, reg Registry, key string) (Conn, error) { return nil, nil }

func Exec(ctx context.Context, conn Conn, stmt Statement, params any) error { return nil }

func ExecAffected[T Integer](ctx context.Context, conn Conn, stmt Statement, params any) (T, error) {
	return 0, nil
}

func QueryScalar[T Integer](ctx context.Context, conn Conn, stmt Statement, params any) (T, error) {
	return 0, nil
}

func QueryOne[T any](ctx context.Context, conn Conn, stmt Statement, params any, scan RowScanner[T]) (T, error) {
	var zero T
	return zero, nil
}

func QueryAll[T any](ctx context.Context, conn Conn, stmt Statement, params any, scan RowScanner[T]) ([]T, error) {
	return nil, nil
}

func ScanValue[T any](rows *sql.Rows) (T, error) {
	var zero T
	return zero, nil
}

func ScanColumns(rows *sql.Rows, bind func(column string) any) error { return nil }

func Buffered[T any](items []T) chan T { return nil }
`

// Dep is an extra importable package.
type Dep struct {
	Path  string
	Files map[string]string
}

// Root is the directory prefix used for every file name.
const Root = "/src"

type importer struct {
	fset    *token.FileSet
	sources map[string]map[string]string
	dirs    map[string]string
	done    map[string]*analyzer.Package
}

// Load parses and type-checks files as the package at importPath. Type
// errors are recorded on the returned package, not reported as failures.
func Load(t testing.TB, importPath string, files map[string]string, deps ...Dep) *analyzer.Package {
	t.Helper()
	return LoadAt(t, path.Join(Root, importPath), importPath, files, deps...)
}

// LoadAt is Load with the package files named as if they lived in dir.
func LoadAt(t testing.TB, dir, importPath string, files map[string]string, deps ...Dep) *analyzer.Package {
	t.Helper()
	pkg, err := LoadPackage(dir, importPath, files, deps...)
	if err != nil {
		t.Fatalf("load %s: %v", importPath, err)
	}
	return pkg
}

// LoadPackage is LoadAt for callers without a testing.TB, such as pipeline
// loaders.
func LoadPackage(dir, importPath string, files map[string]string, deps ...Dep) (*analyzer.Package, error) {
	imp := &importer{
		fset:    token.NewFileSet(),
		sources: maps.Clone(Stubs),
		dirs:    map[string]string{importPath: dir},
		done:    make(map[string]*analyzer.Package),
	}
	for _, d := range deps {
		imp.sources[d.Path] = d.Files
	}
	imp.sources[importPath] = files
	return imp.check(importPath)
}

func (imp *importer) Import(p string) (*types.Package, error) {
	pkg, err := imp.check(p)
	if err != nil {
		return nil, err
	}
	return pkg.Types, nil
}

func (imp *importer) check(importPath string) (*analyzer.Package, error) {
	if pkg, ok := imp.done[importPath]; ok {
		return pkg, nil
	}
	files, ok := imp.sources[importPath]
	if !ok {
		return nil, fmt.Errorf("no stub for import %q", importPath)
	}

	dir, ok := imp.dirs[importPath]
	if !ok {
		dir = path.Join(Root, importPath)
	}
	pkg := &analyzer.Package{Path: importPath, Dir: dir, Fset: imp.fset}
	for _, name := range slices.Sorted(maps.Keys(files)) {
		f, err := parser.ParseFile(imp.fset, path.Join(dir, name), files[name], parser.ParseComments)
		if err != nil {
			return nil, err
		}
		pkg.Files = append(pkg.Files, f)
	}
	if len(pkg.Files) == 0 {
		return nil, fmt.Errorf("package %q has no files", importPath)
	}
	pkg.Name = pkg.Files[0].Name.Name

	pkg.Info = &types.Info{
		Types:      make(map[ast.Expr]types.TypeAndValue),
		Defs:       make(map[*ast.Ident]types.Object),
		Uses:       make(map[*ast.Ident]types.Object),
		Selections: make(map[*ast.SelectorExpr]*types.Selection),
		Instances:  make(map[*ast.Ident]types.Instance),
	}
	conf := types.Config{
		Importer: imp,
		Error:    func(err error) { pkg.Errors = append(pkg.Errors, err) },
	}
	pkg.Types, _ = conf.Check(importPath, imp.fset, pkg.Files, pkg.Info)
	imp.done[importPath] = pkg
	return pkg, nil
}

// Candidate returns the discovered candidate called name.
func Candidate(t testing.TB, pkg *analyzer.Package, name string) analyzer.Candidate {
	t.Helper()
	for _, c := range analyzer.Discover(pkg) {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("no candidate %q in %s", name, pkg.Path)
	return analyzer.Candidate{}
}

// Package is the import path Analyze loads fixtures under.
const Package = "example.com/app/store"

// Analyze loads files as Package and analyzes the candidate called name.
func Analyze(t testing.TB, files map[string]string, name string, opts analyzer.Options) (descriptor.Command, []diagnostics.Diagnostic) {
	t.Helper()
	pkg := Load(t, Package, files)
	return analyzer.Analyze(Candidate(t, pkg, name), opts)
}
