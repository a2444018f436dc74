package analyzer

import (
	"context"
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/tools/go/packages"
)

// LoadMode specifies what information to load from packages.
const LoadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedSyntax |
	packages.NeedTypes |
	packages.NeedTypesInfo |
	packages.NeedImports

// Package is a parsed and type-checked Go package. Type errors are kept in
// Errors rather than failing the load: a package whose generated files are
// stale usually does not compile until they are rewritten.
type Package struct {
	Name   string
	Path   string
	Dir    string
	Fset   *token.FileSet
	Files  []*ast.File
	Types  *types.Package
	Info   *types.Info
	Errors []error
}

// LoadOptions configures Load.
type LoadOptions struct {
	// Dir is the working directory patterns are resolved against.
	Dir string
	// Tags are extra build tags.
	Tags []string
}

// Load loads the packages matching patterns.
func Load(ctx context.Context, opts LoadOptions, patterns ...string) ([]*Package, error) {
	cfg := &packages.Config{
		Context: ctx,
		Mode:    LoadMode,
		Dir:     opts.Dir,
	}
	if len(opts.Tags) > 0 {
		cfg.BuildFlags = []string{"-tags=" + strings.Join(opts.Tags, ",")}
	}

	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, fmt.Errorf("load packages: %w", err)
	}

	out := make([]*Package, 0, len(pkgs))
	for _, p := range pkgs {
		pkg := &Package{
			Name:  p.Name,
			Path:  p.PkgPath,
			Fset:  p.Fset,
			Files: p.Syntax,
			Types: p.Types,
			Info:  p.TypesInfo,
		}
		for _, e := range p.Errors {
			pkg.Errors = append(pkg.Errors, e)
		}
		if len(p.GoFiles) > 0 {
			pkg.Dir = filepath.Dir(p.GoFiles[0])
		}
		out = append(out, pkg)
	}
	slices.SortFunc(out, func(a, b *Package) int { return strings.Compare(a.Path, b.Path) })
	return out, nil
}
