package analyzer

import (
	"go/types"

	"github.com/electwix/dbcmd/internal/descriptor"
)

// typeRef converts a go/types type into its serializable form. Aliases are
// resolved. Interfaces other than the empty one, function types and struct
// literals fall back to their source rendering.
func typeRef(t types.Type) descriptor.TypeRef {
	switch t := t.(type) {
	case *types.Alias:
		return typeRef(types.Unalias(t))
	case *types.Basic:
		if t.Kind() == types.Invalid || t.Info()&types.IsUntyped != 0 {
			return descriptor.TypeRef{Kind: descriptor.KindAny, Expr: t.String()}
		}
		return descriptor.Basic(t.Name())
	case *types.Named:
		obj := t.Obj()
		var path, name string
		if obj.Pkg() != nil {
			path, name = obj.Pkg().Path(), obj.Pkg().Name()
		}
		var args []descriptor.TypeRef
		for i := range t.TypeArgs().Len() {
			args = append(args, typeRef(t.TypeArgs().At(i)))
		}
		return descriptor.Named(path, name, obj.Name(), args...)
	case *types.Pointer:
		return descriptor.PointerTo(typeRef(t.Elem()))
	case *types.Slice:
		return descriptor.SliceOf(typeRef(t.Elem()))
	case *types.Array:
		return descriptor.ArrayOf(t.Len(), typeRef(t.Elem()))
	case *types.Map:
		return descriptor.MapOf(typeRef(t.Key()), typeRef(t.Elem()))
	case *types.Chan:
		dir := descriptor.ChanBoth
		switch t.Dir() {
		case types.SendOnly:
			dir = descriptor.ChanSend
		case types.RecvOnly:
			dir = descriptor.ChanRecv
		}
		return descriptor.ChanOf(dir, typeRef(t.Elem()))
	case *types.TypeParam:
		return descriptor.Param(t.Obj().Name())
	case *types.Interface:
		if t.Empty() {
			return descriptor.TypeRef{Kind: descriptor.KindAny, Expr: "any"}
		}
	}
	return descriptor.TypeRef{Kind: descriptor.KindAny, Expr: types.TypeString(t, (*types.Package).Name)}
}
