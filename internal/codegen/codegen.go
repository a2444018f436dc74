// Package codegen writes the parameter-mapper and handler files for analyzed
// descriptors. Writers are pure: the same descriptor and options always yield
// byte-identical files.
package codegen

import (
	"path/filepath"

	"github.com/dave/jennifer/jen"

	"github.com/electwix/dbcmd/internal/codegen/render"
	"github.com/electwix/dbcmd/internal/descriptor"
	"github.com/electwix/dbcmd/internal/naming"
)

// Version identifies the output format. It is part of every cache key, so
// bump it whenever emitted code changes.
const Version = "2"

// Header is the first line of every generated file.
const Header = "Code generated by dbcmd-gen. DO NOT EDIT."

// Default file name suffixes.
const (
	MapperSuffix  = "_params.gen.go"
	HandlerSuffix = "_handler.gen.go"
)

// File is a rendered output file.
type File = render.File

// OutputPath returns the file a descriptor's artifact is written to: the
// snake_case type name plus suffix, beside the declaring file.
func OutputPath(d descriptor.Command, suffix string) string {
	name := naming.FileName(d.Name) + suffix
	if d.Pos.File == "" {
		return name
	}
	return filepath.Join(filepath.Dir(d.Pos.File), name)
}

// newFile opens the scope chain of d: package clause and build constraint.
func newFile(d descriptor.Command) *jen.File {
	pkg := d.Package()
	f := jen.NewFilePathName(pkg.Path, pkg.Name)
	f.HeaderComment(Header)
	if c := d.File().Constraint; c != "" {
		f.HeaderComment("//go:build " + c)
	}
	f.ImportName(descriptor.RuntimePath, "dbcmd")
	return f
}

// typeCode renders t. KindAny expressions are emitted verbatim.
func typeCode(t descriptor.TypeRef) jen.Code {
	switch t.Kind {
	case descriptor.KindBasic, descriptor.KindTypeParam:
		return jen.Id(t.Name)
	case descriptor.KindNamed:
		var c *jen.Statement
		if t.Pkg == "" {
			c = jen.Id(t.Name)
		} else {
			c = jen.Qual(t.Pkg, t.Name)
		}
		if len(t.Args) > 0 {
			args := make([]jen.Code, len(t.Args))
			for i, a := range t.Args {
				args[i] = typeCode(a)
			}
			c = c.Types(args...)
		}
		return c
	case descriptor.KindPointer:
		return jen.Op("*").Add(typeCode(*t.Elem))
	case descriptor.KindSlice:
		return jen.Index().Add(typeCode(*t.Elem))
	case descriptor.KindArray:
		return jen.Index(jen.Lit(int(t.Len))).Add(typeCode(*t.Elem))
	case descriptor.KindMap:
		return jen.Map(typeCode(*t.Key)).Add(typeCode(*t.Elem))
	case descriptor.KindChan:
		switch t.Dir {
		case descriptor.ChanRecv:
			return jen.Op("<-").Chan().Add(typeCode(*t.Elem))
		case descriptor.ChanSend:
			return jen.Chan().Op("<-").Add(typeCode(*t.Elem))
		}
		return jen.Chan().Add(typeCode(*t.Elem))
	default:
		return jen.Id(t.Expr)
	}
}

// importNames registers the package names recorded in t so jennifer does not
// have to guess them from the import path.
func importNames(f *jen.File, t descriptor.TypeRef) {
	if t.Kind == descriptor.KindNamed && t.Pkg != "" && t.PkgName != "" {
		f.ImportName(t.Pkg, t.PkgName)
	}
	for _, a := range t.Args {
		importNames(f, a)
	}
	if t.Elem != nil {
		importNames(f, *t.Elem)
	}
	if t.Key != nil {
		importNames(f, *t.Key)
	}
}

// typeParams renders the declaration list "[T any, K comparable]".
func typeParams(d descriptor.Command) []jen.Code {
	out := make([]jen.Code, len(d.Decl.TypeParams))
	for i, tp := range d.Decl.TypeParams {
		out[i] = jen.Id(tp.Name).Add(typeCode(tp.Constraint))
	}
	return out
}

// typeArgs renders the instantiation list "[T, K]".
func typeArgs(d descriptor.Command) []jen.Code {
	out := make([]jen.Code, len(d.Decl.TypeParams))
	for i, tp := range d.Decl.TypeParams {
		out[i] = jen.Id(tp.Name)
	}
	return out
}

// selfType renders the descriptor type, instantiated with its own type
// parameters when generic.
func selfType(d descriptor.Command) *jen.Statement {
	t := jen.Id(d.Name)
	if d.Decl.Generic() {
		t = t.Types(typeArgs(d)...)
	}
	return t
}

// recvType is selfType behind a pointer unless the type uses value receivers.
func recvType(d descriptor.Command) *jen.Statement {
	if d.Decl.Receiver == descriptor.ReceiverValue {
		return selfType(d)
	}
	return jen.Op("*").Add(selfType(d))
}

// receiver names the descriptor value in generated methods and handlers.
func receiver(d descriptor.Command) string {
	name := naming.ReceiverName(d.Name)
	for _, tp := range d.Decl.TypeParams {
		if tp.Name == name {
			return "recv"
		}
	}
	return name
}

// selector renders x.A.B for a field path.
func selector(recv string, path []string) *jen.Statement {
	s := jen.Id(recv)
	for _, p := range path {
		s = s.Dot(p)
	}
	return s
}
