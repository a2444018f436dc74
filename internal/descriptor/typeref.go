package descriptor

import (
	"strconv"
	"strings"
)

// TypeKind is the top-level constructor of a TypeRef.
type TypeKind uint8

const (
	KindInvalid TypeKind = iota
	KindBasic
	KindNamed
	KindPointer
	KindSlice
	KindArray
	KindMap
	KindChan
	KindTypeParam
	KindAny
)

// ChanDir mirrors go/types channel directions.
type ChanDir uint8

const (
	ChanBoth ChanDir = iota
	ChanSend
	ChanRecv
)

// TypeRef is a serializable Go type expression.
//
//   - KindBasic: Name is the predeclared name ("int64", "string").
//   - KindNamed: Pkg is the import path ("" for predeclared or local to the
//     universe), PkgName the package name, Name the type name and Args the
//     type arguments.
//   - KindPointer, KindSlice, KindChan: Elem.
//   - KindArray: Elem and Len.
//   - KindMap: Key and Elem.
//   - KindTypeParam: Name.
//   - KindAny: Expr holds the types.TypeString rendering; used for interfaces,
//     function and struct literals the generator never inspects.
type TypeRef struct {
	Kind    TypeKind
	Name    string
	Pkg     string
	PkgName string
	Args    []TypeRef
	Elem    *TypeRef
	Key     *TypeRef
	Len     int64
	Dir     ChanDir
	Expr    string
}

// Basic returns a predeclared type reference.
func Basic(name string) TypeRef { return TypeRef{Kind: KindBasic, Name: name} }

// Named returns a reference to a declared type.
func Named(pkg, pkgName, name string, args ...TypeRef) TypeRef {
	return TypeRef{Kind: KindNamed, Pkg: pkg, PkgName: pkgName, Name: name, Args: args}
}

// PointerTo returns *elem.
func PointerTo(elem TypeRef) TypeRef { return TypeRef{Kind: KindPointer, Elem: &elem} }

// SliceOf returns []elem.
func SliceOf(elem TypeRef) TypeRef { return TypeRef{Kind: KindSlice, Elem: &elem} }

// ArrayOf returns [n]elem.
func ArrayOf(n int64, elem TypeRef) TypeRef { return TypeRef{Kind: KindArray, Len: n, Elem: &elem} }

// MapOf returns map[key]elem.
func MapOf(key, elem TypeRef) TypeRef { return TypeRef{Kind: KindMap, Key: &key, Elem: &elem} }

// ChanOf returns a channel of elem.
func ChanOf(dir ChanDir, elem TypeRef) TypeRef { return TypeRef{Kind: KindChan, Dir: dir, Elem: &elem} }

// Param returns a type parameter reference.
func Param(name string) TypeRef { return TypeRef{Kind: KindTypeParam, Name: name} }

// IsZero reports whether t is unset.
func (t TypeRef) IsZero() bool { return t.Kind == KindInvalid }

// Is reports whether t is the named type pkg.name.
func (t TypeRef) Is(pkg, name string) bool {
	return t.Kind == KindNamed && t.Pkg == pkg && t.Name == name
}

// String renders t as Go source, qualifying named types with their package
// name unless they live in local.
func (t TypeRef) String() string { return t.Format("") }

// Format is String with types from the import path local left unqualified.
func (t TypeRef) Format(local string) string {
	var b strings.Builder
	t.write(&b, local)
	return b.String()
}

func (t TypeRef) write(b *strings.Builder, local string) {
	switch t.Kind {
	case KindBasic, KindTypeParam:
		b.WriteString(t.Name)
	case KindNamed:
		if t.Pkg != "" && t.Pkg != local {
			b.WriteString(t.PkgName)
			b.WriteByte('.')
		}
		b.WriteString(t.Name)
		if len(t.Args) > 0 {
			b.WriteByte('[')
			for i, a := range t.Args {
				if i > 0 {
					b.WriteString(", ")
				}
				a.write(b, local)
			}
			b.WriteByte(']')
		}
	case KindPointer:
		b.WriteByte('*')
		t.Elem.write(b, local)
	case KindSlice:
		b.WriteString("[]")
		t.Elem.write(b, local)
	case KindArray:
		b.WriteByte('[')
		b.WriteString(strconv.FormatInt(t.Len, 10))
		b.WriteByte(']')
		t.Elem.write(b, local)
	case KindMap:
		b.WriteString("map[")
		t.Key.write(b, local)
		b.WriteByte(']')
		t.Elem.write(b, local)
	case KindChan:
		switch t.Dir {
		case ChanSend:
			b.WriteString("chan<- ")
		case ChanRecv:
			b.WriteString("<-chan ")
		default:
			b.WriteString("chan ")
		}
		t.Elem.write(b, local)
	case KindAny:
		b.WriteString(t.Expr)
	default:
		b.WriteString("invalid")
	}
}

// BaseName returns the unqualified name of t with pointers and containers
// stripped, used for documentation ("[]*User" -> "User").
func (t TypeRef) BaseName() string {
	switch t.Kind {
	case KindPointer, KindSlice, KindArray, KindChan:
		return t.Elem.BaseName()
	case KindNamed, KindBasic, KindTypeParam:
		return t.Name
	default:
		return t.String()
	}
}
