package codegen

import (
	"cmp"
	"fmt"

	"github.com/dave/jennifer/jen"

	"github.com/electwix/dbcmd/internal/codegen/render"
	"github.com/electwix/dbcmd/internal/descriptor"
)

// MapperWriter emits the Params method of a descriptor, plus NamedArgs when
// the descriptor is its own carrier.
type MapperWriter struct {
	// Suffix is the output file suffix; MapperSuffix when empty.
	Suffix string
}

// Write renders the mapper file for d. It reports false when d declares its
// own Params method and nothing is emitted.
func (w MapperWriter) Write(d descriptor.Command) (File, bool, error) {
	if d.HasMapper {
		return File{}, false, nil
	}
	f := newFile(d)

	if !d.Decl.Generic() {
		f.Var().Id("_").Qual(descriptor.RuntimePath, "ParamMapper").Op("=").
			Parens(jen.Op("*").Id(d.Name)).Call(jen.Nil())
		f.Line()
	}

	recv := receiver(d)
	f.Comment(fmt.Sprintf("Params returns the parameters %s binds, in declaration order.", d.Name))
	f.Func().Params(jen.Id(recv).Add(recvType(d))).Id("Params").Params().Id("any").Block(
		jen.Return(paramsValue(d, recv)),
	)
	if Identity(d) {
		f.Line()
		f.Comment(fmt.Sprintf("NamedArgs returns the fields of %s under their own names.", d.Name))
		f.Func().Params(jen.Id(recv).Add(recvType(d))).Id("NamedArgs").Params().Index().Qual("database/sql", "NamedArg").
			BlockFunc(func(g *jen.Group) {
				if len(d.Properties) == 0 {
					g.Return(jen.Nil())
					return
				}
				if d.Decl.Receiver != descriptor.ReceiverValue {
					g.If(jen.Id(recv).Op("==").Nil()).Block(jen.Return(jen.Nil()))
				}
				g.Return(jen.Index().Qual("database/sql", "NamedArg").Custom(multiline, namedArgs(d, recv)...))
			})
	}

	path := OutputPath(d, cmp.Or(w.Suffix, MapperSuffix))
	out, err := render.Render(render.Spec{Path: path, File: f})
	if err != nil {
		return File{}, false, fmt.Errorf("mapper for %s: %w", d.QualifiedName, err)
	}
	return out, true, nil
}

// Identity reports whether every parameter is named after its field, in which
// case the descriptor itself is the parameter carrier.
func Identity(d descriptor.Command) bool {
	for _, p := range d.Properties {
		if p.Param != p.Name {
			return false
		}
	}
	return true
}

func paramsValue(d descriptor.Command, recv string) jen.Code {
	if Identity(d) {
		return jen.Id(recv)
	}
	return jen.Qual(descriptor.RuntimePath, "Params").Custom(multiline, namedArgs(d, recv)...)
}

func namedArgs(d descriptor.Command, recv string) []jen.Code {
	items := make([]jen.Code, len(d.Properties))
	for i, p := range d.Properties {
		items[i] = jen.Qual("database/sql", "Named").Call(jen.Lit(p.Param), selector(recv, p.Path))
	}
	return items
}

// multiline renders a composite literal body one element per line.
var multiline = jen.Options{Open: "{", Close: "}", Separator: ",", Multi: true}
