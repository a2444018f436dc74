// Package descriptor holds the analysis result for one data-access descriptor
// type. Values are immutable once built, carry no go/types pointers and can
// be hashed with Key for change detection.
package descriptor

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// RuntimePath is the import path of the runtime package generated code
// depends on.
const RuntimePath = "github.com/electwix/dbcmd"

// DeclKind is the kind of Go declaration a descriptor was found on.
type DeclKind uint8

const (
	DeclStruct DeclKind = iota + 1
)

// ReceiverKind selects the receiver generated methods use.
type ReceiverKind uint8

const (
	ReceiverPointer ReceiverKind = iota
	ReceiverValue
)

// TypeParam is a declared type parameter of a generic descriptor.
type TypeParam struct {
	Name       string
	Constraint TypeRef
}

// Decl describes how the descriptor type itself is declared.
type Decl struct {
	Kind       DeclKind
	Receiver   ReceiverKind
	Exported   bool
	TypeParams []TypeParam
}

// Generic reports whether the type declares type parameters.
func (d Decl) Generic() bool { return len(d.TypeParams) > 0 }

// ContainerKind identifies one level of the scope chain.
type ContainerKind uint8

const (
	ContainerPackage ContainerKind = iota + 1
	ContainerFile
)

func (k ContainerKind) String() string {
	switch k {
	case ContainerPackage:
		return "package"
	case ContainerFile:
		return "file"
	default:
		return "unknown"
	}
}

// Container is one level of the scope chain a generated file re-opens.
// For a package Name is the package name and Path its import path. For a file
// Name is the base file name and Constraint its //go:build expression.
type Container struct {
	Kind       ContainerKind
	Name       string
	Path       string
	Constraint string
}

// SourceKind is the kind of database command a descriptor issues.
type SourceKind uint8

const (
	SourceNone SourceKind = iota
	SourceStoredProcedure
	SourceSQLText
	SourceFunction
)

func (k SourceKind) String() string {
	switch k {
	case SourceNone:
		return "none"
	case SourceStoredProcedure:
		return "stored procedure"
	case SourceSQLText:
		return "sql text"
	case SourceFunction:
		return "function"
	default:
		return "unknown"
	}
}

// CommandSource is the effective command. Wrap marks a table-valued function
// that must be selected from rather than called.
type CommandSource struct {
	Kind SourceKind
	Text string
	Wrap bool
}

// Declared keeps the raw source options so validation can count them.
type Declared struct {
	Proc *string
	SQL  *string
	Func *string
}

// Count returns how many source options were declared.
func (d Declared) Count() int {
	n := 0
	for _, v := range []*string{d.Proc, d.SQL, d.Func} {
		if v != nil {
			n++
		}
	}
	return n
}

// ParamCase is the naming convention applied to parameter names.
type ParamCase uint8

const (
	CaseUnset ParamCase = iota
	CaseIdentity
	CaseSnake
)

func (c ParamCase) String() string {
	switch c {
	case CaseIdentity:
		return "identity"
	case CaseSnake:
		return "snake"
	default:
		return "unset"
	}
}

// ParseCase maps a configuration or directive value to a ParamCase.
func ParseCase(s string) (ParamCase, error) {
	switch strings.ToLower(s) {
	case "":
		return CaseUnset, nil
	case "identity":
		return CaseIdentity, nil
	case "snake", "snake_case":
		return CaseSnake, nil
	default:
		return CaseUnset, fmt.Errorf("unknown parameter case %q", s)
	}
}

// Property is one bound parameter. Path is the selector from the descriptor
// to the field; it has more than one element for promoted fields.
type Property struct {
	Name     string
	Path     []string
	Param    string
	Type     TypeRef
	Override bool
}

// Selector returns the dotted field selector relative to the descriptor.
func (p Property) Selector() string { return strings.Join(p.Path, ".") }

// ContractKind is the result contract marker a descriptor embeds.
type ContractKind uint8

const (
	ContractNone ContractKind = iota
	ContractQuery
	ContractCommand
	ContractNoResult
)

func (k ContractKind) String() string {
	switch k {
	case ContractNone:
		return "none"
	case ContractQuery:
		return "query"
	case ContractCommand:
		return "command"
	case ContractNoResult:
		return "no result"
	default:
		return "unknown"
	}
}

// ShapeKind classifies the declared result type.
type ShapeKind uint8

const (
	ShapeNone ShapeKind = iota
	ShapeIntegralScalar
	ShapeSingleObject
	ShapeCollection
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeNone:
		return "none"
	case ShapeIntegralScalar:
		return "integral scalar"
	case ShapeSingleObject:
		return "single object"
	case ShapeCollection:
		return "collection"
	default:
		return "unknown"
	}
}

// CollectionKind is the container of a collection result.
type CollectionKind uint8

const (
	CollectionNone CollectionKind = iota
	CollectionSlice
	CollectionArray
	CollectionChan
	CollectionSeq
)

// ResultShape is the classified result. Type is the declared result type;
// for collections Elem is the element type and Container its container kind.
type ResultShape struct {
	Kind      ShapeKind
	Type      TypeRef
	Elem      TypeRef
	Container CollectionKind
	Scan      ScanPlan
}

// Row returns the type a single result row decodes into.
func (s ResultShape) Row() TypeRef {
	if s.Kind == ShapeCollection {
		return s.Elem
	}
	return s.Type
}

// ScanMode is how a result row becomes a value.
type ScanMode uint8

const (
	ScanNone ScanMode = iota
	ScanDirect
	ScanColumns
)

// ScanField binds result columns to a field of the row type. Columns holds
// the lowercased column names that match, in priority order.
type ScanField struct {
	Path    []string
	Columns []string
}

// ScanPlan describes how rows are decoded. Pointer is set when the row type is
// a pointer to a struct.
type ScanPlan struct {
	Mode    ScanMode
	Pointer bool
	Fields  []ScanField
}

// Position locates the descriptor declaration.
type Position struct {
	File   string
	Line   int
	Column int
}

func (p Position) String() string {
	if p.File == "" {
		return "-"
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

// Command is the analysis output for one descriptor type.
type Command struct {
	Name          string
	QualifiedName string
	Decl          Decl
	Scope         []Container
	Source        CommandSource
	Declared      Declared
	ParamCase     ParamCase
	NonQuery      bool
	DataSourceKey string
	Properties    []Property
	Contract      ContractKind
	Result        ResultShape
	HasMapper     bool
	Pos           Position `msgpack:"-"`
}

// Package returns the innermost package container of the scope chain.
func (c Command) Package() Container {
	for _, s := range c.Scope {
		if s.Kind == ContainerPackage {
			return s
		}
	}
	return Container{}
}

// File returns the file container of the scope chain.
func (c Command) File() Container {
	for _, s := range c.Scope {
		if s.Kind == ContainerFile {
			return s
		}
	}
	return Container{}
}

// Key returns a content hash of everything that influences generated code.
// Two commands with equal keys render identical artifacts.
func (c Command) Key() (string, error) {
	data, err := msgpack.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", c.QualifiedName, err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
