package analyzer

import (
	"cmp"
	"fmt"
	"go/ast"
	"go/token"
	"slices"

	"github.com/electwix/dbcmd/internal/directive"
)

// Candidate is a declaration whose doc comment carries a directive.
type Candidate struct {
	Pkg        *Package
	File       *ast.File
	Spec       *ast.TypeSpec
	Name       string
	Pos        token.Pos
	Directives []*ast.Comment

	// Unsupported explains why the declaration cannot be a descriptor. It is
	// set for directives on functions, variables and function-local types.
	Unsupported string
}

// Filename returns the path of the file declaring the candidate.
func (c Candidate) Filename() string {
	return c.Pkg.Fset.Position(c.Pos).Filename
}

// Discover returns the candidates of pkg in source order.
func Discover(pkg *Package) []Candidate {
	if pkg == nil || pkg.Types == nil || pkg.Info == nil {
		return nil
	}
	var out []Candidate
	for _, file := range pkg.Files {
		for _, decl := range file.Decls {
			switch d := decl.(type) {
			case *ast.GenDecl:
				out = append(out, fromGenDecl(pkg, file, d, "")...)
			case *ast.FuncDecl:
				if dirs := directive.Find(d.Doc); len(dirs) > 0 {
					out = append(out, Candidate{
						Pkg: pkg, File: file, Name: d.Name.Name, Pos: d.Name.Pos(), Directives: dirs,
						Unsupported: fmt.Sprintf("%s is a function", d.Name.Name),
					})
				}
				if d.Body != nil {
					out = append(out, localTypes(pkg, file, d)...)
				}
			}
		}
	}
	slices.SortStableFunc(out, func(a, b Candidate) int {
		pa, pb := pkg.Fset.Position(a.Pos), pkg.Fset.Position(b.Pos)
		return cmp.Or(cmp.Compare(pa.Filename, pb.Filename), cmp.Compare(pa.Offset, pb.Offset))
	})
	return out
}

func fromGenDecl(pkg *Package, file *ast.File, d *ast.GenDecl, enclosing string) []Candidate {
	var out []Candidate
	for _, spec := range d.Specs {
		doc := specDoc(spec)
		if doc == nil && len(d.Specs) == 1 {
			doc = d.Doc
		}
		dirs := directive.Find(doc)
		if len(dirs) == 0 {
			continue
		}
		c := Candidate{Pkg: pkg, File: file, Directives: dirs}
		switch s := spec.(type) {
		case *ast.TypeSpec:
			c.Spec, c.Name, c.Pos = s, s.Name.Name, s.Name.Pos()
			if enclosing != "" {
				c.Unsupported = fmt.Sprintf("%s is declared inside function %s", s.Name.Name, enclosing)
			}
		case *ast.ValueSpec:
			c.Name, c.Pos = s.Names[0].Name, s.Names[0].Pos()
			c.Unsupported = fmt.Sprintf("%s is a %s declaration", c.Name, d.Tok)
		default:
			continue
		}
		out = append(out, c)
	}
	return out
}

func specDoc(spec ast.Spec) *ast.CommentGroup {
	switch s := spec.(type) {
	case *ast.TypeSpec:
		return s.Doc
	case *ast.ValueSpec:
		return s.Doc
	}
	return nil
}

func localTypes(pkg *Package, file *ast.File, fn *ast.FuncDecl) []Candidate {
	var out []Candidate
	ast.Inspect(fn.Body, func(n ast.Node) bool {
		stmt, ok := n.(*ast.DeclStmt)
		if !ok {
			return true
		}
		if gd, ok := stmt.Decl.(*ast.GenDecl); ok && gd.Tok == token.TYPE {
			out = append(out, fromGenDecl(pkg, file, gd, fn.Name.Name)...)
		}
		return true
	})
	return out
}
