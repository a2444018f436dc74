package analyzer

import (
	"go/types"
	"reflect"
	"slices"
	"strings"

	"github.com/electwix/dbcmd/internal/descriptor"
	"github.com/electwix/dbcmd/internal/naming"
)

func (a *analysis) result() {
	if a.resultArg == nil {
		a.cmd.Result = descriptor.ResultShape{Kind: descriptor.ShapeNone}
		return
	}
	shape := Classify(a.resultArg)
	shape.Scan = a.scanPlan(rowType(a.resultArg, shape.Kind))
	a.cmd.Result = shape
}

// Classify maps a declared result type to its shape:
//
//   - an integer underlying type is an integral scalar;
//   - a slice, array, channel or iter.Seq that is not byte-like is a
//     collection of its element type, which may itself be a collection;
//   - anything else is a single object.
func Classify(t types.Type) descriptor.ResultShape {
	if isIntegral(t) {
		return descriptor.ResultShape{Kind: descriptor.ShapeIntegralScalar, Type: typeRef(t)}
	}
	if elem, container, ok := collectionElem(t); ok {
		return descriptor.ResultShape{
			Kind:      descriptor.ShapeCollection,
			Type:      typeRef(t),
			Elem:      typeRef(elem),
			Container: container,
		}
	}
	return descriptor.ResultShape{Kind: descriptor.ShapeSingleObject, Type: typeRef(t)}
}

func rowType(t types.Type, kind descriptor.ShapeKind) types.Type {
	if kind == descriptor.ShapeCollection {
		elem, _, _ := collectionElem(t)
		return elem
	}
	return t
}

func isIntegral(t types.Type) bool {
	b, ok := t.Underlying().(*types.Basic)
	if !ok {
		return false
	}
	switch b.Kind() {
	case types.Int, types.Int8, types.Int16, types.Int32, types.Int64,
		types.Uint, types.Uint8, types.Uint16, types.Uint32, types.Uint64:
		return true
	}
	return false
}

func isByte(t types.Type) bool {
	b, ok := t.Underlying().(*types.Basic)
	return ok && b.Kind() == types.Uint8
}

func collectionElem(t types.Type) (types.Type, descriptor.CollectionKind, bool) {
	if named, ok := types.Unalias(t).(*types.Named); ok {
		obj := named.Origin().Obj()
		if obj.Pkg() != nil && obj.Pkg().Path() == "iter" && obj.Name() == "Seq" && named.TypeArgs().Len() == 1 {
			return named.TypeArgs().At(0), descriptor.CollectionSeq, true
		}
	}
	switch u := t.Underlying().(type) {
	case *types.Slice:
		if isByte(u.Elem()) {
			return nil, descriptor.CollectionNone, false
		}
		return u.Elem(), descriptor.CollectionSlice, true
	case *types.Array:
		if isByte(u.Elem()) {
			return nil, descriptor.CollectionNone, false
		}
		return u.Elem(), descriptor.CollectionArray, true
	case *types.Chan:
		return u.Elem(), descriptor.CollectionChan, true
	}
	return nil, descriptor.CollectionNone, false
}

// scanPlan decides how a row becomes a value of t. Structs are scanned
// column by column unless they implement sql.Scanner; everything else is
// handed to the driver as a single destination.
func (a *analysis) scanPlan(t types.Type) descriptor.ScanPlan {
	direct := descriptor.ScanPlan{Mode: descriptor.ScanDirect}
	pointer := false
	if p, ok := types.Unalias(t).(*types.Pointer); ok {
		if _, isStruct := p.Elem().Underlying().(*types.Struct); !isStruct || scansDirectly(p.Elem()) {
			return direct
		}
		pointer = true
		t = p.Elem()
	}
	if scansDirectly(t) {
		return direct
	}
	st := t.Underlying().(*types.Struct)
	local := true
	if named, ok := types.Unalias(t).(*types.Named); ok && named.Obj().Pkg() != nil {
		local = named.Obj().Pkg().Path() == a.c.Pkg.Path
	}

	var fields []descriptor.ScanField
	claimed := make(map[string]bool)
	seen := make(map[string]bool)
	for i := range st.NumFields() {
		if f := st.Field(i); !f.Embedded() && f.Exported() {
			seen[f.Name()] = true
		}
	}
	collectScanFields(st, nil, false, local, seen, claimed, &fields)
	return descriptor.ScanPlan{Mode: descriptor.ScanColumns, Pointer: pointer, Fields: fields}
}

func collectScanFields(st *types.Struct, prefix []string, promoted, local bool, seen, claimed map[string]bool, out *[]descriptor.ScanField) {
	for i := range st.NumFields() {
		f := st.Field(i)
		path := prefix
		if local || f.Exported() {
			path = append(slices.Clone(prefix), f.Name())
		}
		if f.Embedded() {
			if _, ok := f.Type().(*types.Pointer); ok {
				continue
			}
			if !scansDirectly(f.Type()) {
				collectScanFields(f.Type().Underlying().(*types.Struct), path, true, local, seen, claimed, out)
				continue
			}
		}
		if !f.Exported() {
			continue
		}
		if promoted {
			if seen[f.Name()] {
				continue
			}
			seen[f.Name()] = true
		}
		cols := columnNames(f.Name(), st.Tag(i))
		cols = slices.DeleteFunc(cols, func(c string) bool { return claimed[c] })
		if len(cols) == 0 {
			continue
		}
		for _, c := range cols {
			claimed[c] = true
		}
		*out = append(*out, descriptor.ScanField{Path: path, Columns: cols})
	}
}

// columnNames lists the lowercased column names matching a field: the db tag,
// the snake_case field name and the lowercased field name. A db:"-" tag
// yields none.
func columnNames(field, tag string) []string {
	var cols []string
	if db, ok := reflect.StructTag(tag).Lookup("db"); ok {
		name, _, _ := strings.Cut(db, ",")
		if name == "-" {
			return nil
		}
		if name != "" {
			cols = append(cols, strings.ToLower(name))
		}
	}
	for _, c := range []string{strings.ToLower(naming.ToSnakeCase(field)), strings.ToLower(field)} {
		if !slices.Contains(cols, c) {
			cols = append(cols, c)
		}
	}
	return cols
}

// scansDirectly reports types a driver can scan into without help:
// non-structs, type parameters, time.Time and sql.Scanner implementations.
func scansDirectly(t types.Type) bool {
	t = types.Unalias(t)
	if _, ok := t.(*types.TypeParam); ok {
		return true
	}
	if _, ok := t.Underlying().(*types.Struct); !ok {
		return true
	}
	if named, ok := t.(*types.Named); ok {
		obj := named.Obj()
		if obj.Pkg() != nil && obj.Pkg().Path() == "time" && obj.Name() == "Time" {
			return true
		}
	}
	return implementsScanner(t)
}

func implementsScanner(t types.Type) bool {
	obj, _, _ := types.LookupFieldOrMethod(types.NewPointer(t), true, nil, "Scan")
	fn, ok := obj.(*types.Func)
	if !ok {
		return false
	}
	sig := fn.Type().(*types.Signature)
	if sig.Params().Len() != 1 || sig.Results().Len() != 1 {
		return false
	}
	if !isEmptyInterface(sig.Params().At(0).Type()) {
		return false
	}
	named, ok := types.Unalias(sig.Results().At(0).Type()).(*types.Named)
	return ok && named.Obj().Pkg() == nil && named.Obj().Name() == "error"
}
