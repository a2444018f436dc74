package codegen

import (
	"cmp"
	"fmt"

	"github.com/dave/jennifer/jen"
	"github.com/go-openapi/inflect"

	"github.com/electwix/dbcmd"
	"github.com/electwix/dbcmd/internal/codegen/render"
	"github.com/electwix/dbcmd/internal/descriptor"
	"github.com/electwix/dbcmd/internal/engine"
	"github.com/electwix/dbcmd/internal/naming"
)

var rules = inflect.NewDefaultRuleset()

// Convention is how a handler executes its statement.
type Convention uint8

const (
	ConventionExec Convention = iota + 1
	ConventionExecAffected
	ConventionScalar
	ConventionQueryAll
	ConventionQueryOne
)

func (c Convention) String() string {
	switch c {
	case ConventionExec:
		return "execute-without-result"
	case ConventionExecAffected:
		return "execute-affected-row-count"
	case ConventionScalar:
		return "execute-scalar"
	case ConventionQueryAll:
		return "execute-query-sequence"
	case ConventionQueryOne:
		return "execute-query-single"
	default:
		return "unknown"
	}
}

// ConventionFor selects the execution convention from the result shape.
// NonQuery only matters for integral scalars; elsewhere the shape decides.
func ConventionFor(d descriptor.Command) Convention {
	switch d.Result.Kind {
	case descriptor.ShapeIntegralScalar:
		if d.NonQuery {
			return ConventionExecAffected
		}
		return ConventionScalar
	case descriptor.ShapeCollection:
		return ConventionQueryAll
	case descriptor.ShapeSingleObject:
		return ConventionQueryOne
	default:
		return ConventionExec
	}
}

// HandlerWriter emits the handler function of a descriptor.
type HandlerWriter struct {
	Engine engine.Engine
	// Suffix is the output file suffix; HandlerSuffix when empty.
	Suffix string
}

// Write renders the handler file for d. It reports false when d has no
// command source or no result contract.
func (w HandlerWriter) Write(d descriptor.Command) (File, bool, error) {
	if d.Source.Kind == descriptor.SourceNone || d.Contract == descriptor.ContractNone {
		return File{}, false, nil
	}
	if w.Engine == nil {
		return File{}, false, fmt.Errorf("handler for %s: no dialect engine", d.QualifiedName)
	}

	params := make([]string, len(d.Properties))
	for i, p := range d.Properties {
		params[i] = p.Param
	}
	text, err := engine.Statement(w.Engine, d.Source, params)
	if err != nil {
		return File{}, false, fmt.Errorf("handler for %s: %w", d.QualifiedName, err)
	}

	h := handler{d: d, f: newFile(d), conv: ConventionFor(d)}
	h.names()
	importNames(h.f, d.Result.Type)
	h.assertion()
	h.statement(text, engine.Binding(w.Engine))
	h.function()
	h.scanner()

	path := OutputPath(d, cmp.Or(w.Suffix, HandlerSuffix))
	out, err := render.Render(render.Spec{Path: path, File: h.f})
	if err != nil {
		return File{}, false, fmt.Errorf("handler for %s: %w", d.QualifiedName, err)
	}
	return out, true, nil
}

// HandlerName returns the generated handler name, exported when the
// descriptor type is.
func HandlerName(d descriptor.Command) string {
	if d.Decl.Exported {
		return "Handle" + naming.Exported(d.Name)
	}
	return "handle" + naming.Exported(d.Name)
}

type handler struct {
	d    descriptor.Command
	f    *jen.File
	conv Convention

	fn, recv, stmt, scan string
}

func (h *handler) names() {
	h.fn = HandlerName(h.d)
	h.recv = receiver(h.d)
	h.stmt = naming.Unexported(h.d.Name) + "Statement"
	h.scan = "scan" + naming.Exported(h.d.Name) + "Row"
}

func (h *handler) keyed() bool { return h.d.DataSourceKey != "" }

func (h *handler) returnsValue() bool { return h.d.Result.Kind != descriptor.ShapeNone }

func (h *handler) assertion() {
	if h.d.Decl.Generic() {
		return
	}
	var sig *jen.Statement
	switch {
	case h.returnsValue() && h.keyed():
		sig = jen.Qual(descriptor.RuntimePath, "KeyedHandler").Types(recvType(h.d), typeCode(h.d.Result.Type))
	case h.returnsValue():
		sig = jen.Qual(descriptor.RuntimePath, "Handler").Types(recvType(h.d), typeCode(h.d.Result.Type))
	case h.keyed():
		sig = jen.Qual(descriptor.RuntimePath, "KeyedExecHandler").Types(recvType(h.d))
	default:
		sig = jen.Qual(descriptor.RuntimePath, "ExecHandler").Types(recvType(h.d))
	}
	h.f.Var().Id("_").Add(sig).Op("=").Id(h.fn)
	h.f.Line()
}

func (h *handler) statement(text string, binding dbcmd.Binding) {
	bind := "BindNamed"
	if binding == dbcmd.BindPositional {
		bind = "BindPositional"
	}
	h.f.Var().Id(h.stmt).Op("=").Qual(descriptor.RuntimePath, "Statement").Custom(multiline,
		jen.Id("Text").Op(":").Lit(text),
		jen.Id("Binding").Op(":").Qual(descriptor.RuntimePath, bind),
	)
	h.f.Line()
}

func (h *handler) function() {
	d := h.d
	ctxParam := jen.Id("ctx").Qual("context", "Context")
	var srcParam, open *jen.Statement
	if h.keyed() {
		srcParam = jen.Id("reg").Qual(descriptor.RuntimePath, "Registry")
		open = jen.Qual(descriptor.RuntimePath, "OpenKeyed").Call(jen.Id("ctx"), jen.Id("reg"), jen.Lit(d.DataSourceKey))
	} else {
		srcParam = jen.Id("src").Qual(descriptor.RuntimePath, "Source")
		open = jen.Qual(descriptor.RuntimePath, "Open").Call(jen.Id("ctx"), jen.Id("src"))
	}

	results := []jen.Code{jen.Err().Error()}
	failure := []jen.Code{jen.Err()}
	if h.returnsValue() {
		results = []jen.Code{jen.Id("result").Add(typeCode(d.Result.Type)), jen.Err().Error()}
		failure = []jen.Code{jen.Id("result"), jen.Err()}
	}

	h.f.Comment(h.doc())
	decl := h.f.Func().Id(h.fn)
	if d.Decl.Generic() {
		decl = decl.Types(typeParams(d)...)
	}
	decl.Params(ctxParam, srcParam, jen.Id(h.recv).Add(recvType(d))).Params(results...).BlockFunc(func(g *jen.Group) {
		g.List(jen.Id("conn"), jen.Err()).Op(":=").Add(open)
		g.If(jen.Err().Op("!=").Nil()).Block(jen.Return(failure...))
		g.Defer().Id("conn").Dot("Close").Call()
		h.body(g, failure)
	})
}

func (h *handler) body(g *jen.Group, failure []jen.Code) {
	d := h.d
	args := []jen.Code{jen.Id("ctx"), jen.Id("conn"), jen.Id(h.stmt), jen.Id(h.recv).Dot("Params").Call()}
	rt := func(name string) *jen.Statement { return jen.Qual(descriptor.RuntimePath, name) }

	switch h.conv {
	case ConventionExec:
		g.Return(rt("Exec").Call(args...))
	case ConventionExecAffected:
		g.Return(rt("ExecAffected").Types(typeCode(d.Result.Type)).Call(args...))
	case ConventionScalar:
		g.Return(rt("QueryScalar").Types(typeCode(d.Result.Type)).Call(args...))
	case ConventionQueryOne:
		g.Return(rt("QueryOne").Call(append(args, h.scanRef())...))
	case ConventionQueryAll:
		all := rt("QueryAll").Call(append(args, h.scanRef())...)
		if d.Result.Container == descriptor.CollectionSlice && d.Result.Type.Kind == descriptor.KindSlice {
			g.Return(all)
			return
		}
		g.List(jen.Id("items"), jen.Err()).Op(":=").Add(all)
		g.If(jen.Err().Op("!=").Nil()).Block(jen.Return(failure...))
		switch d.Result.Container {
		case descriptor.CollectionArray:
			g.Copy(jen.Id("result").Index(jen.Op(":")), jen.Id("items"))
			g.Return(jen.Id("result"), jen.Nil())
		case descriptor.CollectionSeq:
			g.Return(jen.Qual("slices", "Values").Call(jen.Id("items")), jen.Nil())
		case descriptor.CollectionChan:
			g.Return(rt("Buffered").Call(jen.Id("items")), jen.Nil())
		default:
			g.Return(jen.Add(typeCode(d.Result.Type)).Call(jen.Id("items")), jen.Nil())
		}
	}
}

// scanRef is the RowScanner passed to QueryOne and QueryAll.
func (h *handler) scanRef() jen.Code {
	plan := h.d.Result.Scan
	if plan.Mode != descriptor.ScanColumns {
		return jen.Qual(descriptor.RuntimePath, "ScanValue").Types(typeCode(h.d.Result.Row()))
	}
	ref := jen.Id(h.scan)
	if h.d.Decl.Generic() {
		ref = ref.Types(typeArgs(h.d)...)
	}
	return ref
}

// scanner emits the per-descriptor column scanner for struct rows.
func (h *handler) scanner() {
	d := h.d
	if h.conv != ConventionQueryOne && h.conv != ConventionQueryAll {
		return
	}
	plan := d.Result.Scan
	if plan.Mode != descriptor.ScanColumns {
		return
	}
	row := d.Result.Row()

	h.f.Line()
	decl := h.f.Func().Id(h.scan)
	if d.Decl.Generic() {
		decl = decl.Types(typeParams(d)...)
	}
	decl.Params(jen.Id("rows").Op("*").Qual("database/sql", "Rows")).Params(typeCode(row), jen.Error()).BlockFunc(func(g *jen.Group) {
		if plan.Pointer {
			g.Id("item").Op(":=").New(typeCode(*row.Elem))
		} else {
			g.Var().Id("item").Add(typeCode(row))
		}
		g.Err().Op(":=").Qual(descriptor.RuntimePath, "ScanColumns").Call(jen.Id("rows"), bindFunc(plan.Fields))
		g.Return(jen.Id("item"), jen.Err())
	})
}

func bindFunc(fields []descriptor.ScanField) jen.Code {
	if len(fields) == 0 {
		return jen.Func().Params(jen.String()).Id("any").Block(jen.Return(jen.Nil()))
	}
	return jen.Func().Params(jen.Id("column").String()).Id("any").Block(
		jen.Switch(jen.Id("column")).BlockFunc(func(g *jen.Group) {
			for _, f := range fields {
				cols := make([]jen.Code, len(f.Columns))
				for i, c := range f.Columns {
					cols[i] = jen.Lit(c)
				}
				g.Case(cols...).Block(jen.Return(jen.Op("&").Add(selector("item", f.Path))))
			}
		}),
		jen.Return(jen.Nil()),
	)
}

func (h *handler) doc() string {
	d := h.d
	var src string
	switch d.Source.Kind {
	case descriptor.SourceStoredProcedure:
		src = "stored procedure " + d.Source.Text
	case descriptor.SourceFunction:
		src = "function " + d.Source.Text
		if d.Source.Wrap {
			src = "table-valued " + src
		}
	default:
		src = "its SQL text"
	}

	var what string
	switch h.conv {
	case ConventionExec:
		what = "reports only whether it failed"
	case ConventionExecAffected:
		what = "returns the number of affected rows"
	case ConventionScalar:
		what = "returns its scalar result"
	case ConventionQueryAll:
		what = "returns the matching " + rules.Pluralize(d.Result.Elem.BaseName())
	case ConventionQueryOne:
		what = fmt.Sprintf("returns the first %s row, or the zero value when there is none", d.Result.Type.BaseName())
	}
	return fmt.Sprintf("%s runs %s and %s.", h.fn, src, what)
}
