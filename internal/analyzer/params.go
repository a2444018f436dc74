package analyzer

import (
	"cmp"
	"fmt"
	"go/types"
	"reflect"
	"regexp"
	"slices"
	"strings"

	"github.com/electwix/dbcmd/internal/descriptor"
	"github.com/electwix/dbcmd/internal/diagnostics"
	"github.com/electwix/dbcmd/internal/directive"
	"github.com/electwix/dbcmd/internal/naming"
)

// ParamTag is the struct tag key for per-field parameter overrides.
const ParamTag = "param"

var paramName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*$`)

type paramTag struct {
	Name    string
	Case    descriptor.ParamCase
	Exclude bool
}

func parseParamTag(tag string) (paramTag, bool, error) {
	raw, ok := reflect.StructTag(tag).Lookup(ParamTag)
	if !ok {
		return paramTag{}, false, nil
	}
	if raw == "-" {
		return paramTag{Exclude: true}, true, nil
	}
	name, opts, _ := strings.Cut(raw, ",")
	var pt paramTag
	if name != "" {
		if !paramName.MatchString(name) {
			return paramTag{}, true, fmt.Errorf("invalid parameter name %q", name)
		}
		pt.Name = name
	}
	if opts != "" {
		switch opts {
		case directive.CaseSnake:
			pt.Case = descriptor.CaseSnake
		case directive.CaseIdentity:
			pt.Case = descriptor.CaseIdentity
		default:
			return paramTag{}, true, fmt.Errorf("unknown %s tag option %q", ParamTag, opts)
		}
	}
	return pt, true, nil
}

// properties enumerates bound parameters: exported fields in declaration
// order, with fields promoted from embedded structs spliced in at the
// embedding position. A direct field shadows a promoted one of the same name
// and among promoted fields the first wins. Structs embedded through a pointer
// and marker fields contribute nothing.
func (a *analysis) properties(st *types.Struct, d directive.Directive) {
	directiveCase, _ := descriptor.ParseCase(d.Case)
	taken := make(map[string]bool)
	for i := range st.NumFields() {
		f := st.Field(i)
		if f.Embedded() || !f.Exported() {
			continue
		}
		if pt, _, _ := parseParamTag(st.Tag(i)); pt.Exclude {
			continue
		}
		taken[f.Name()] = true
	}
	a.collect(st, nil, taken, directiveCase)
}

func (a *analysis) collect(st *types.Struct, prefix []string, taken map[string]bool, directiveCase descriptor.ParamCase) {
	for i := range st.NumFields() {
		f := st.Field(i)
		path := append(slices.Clone(prefix), f.Name())
		if f.Embedded() {
			if _, _, ok := a.marker(f.Type()); ok {
				continue
			}
			if _, ok := f.Type().(*types.Pointer); ok {
				continue
			}
			if inner, ok := f.Type().Underlying().(*types.Struct); ok {
				a.collect(inner, path, taken, directiveCase)
			}
			continue
		}
		if !f.Exported() {
			continue
		}
		pt, tagged, err := parseParamTag(st.Tag(i))
		if err != nil {
			a.errorAt(f.Pos(), diagnostics.CodeMalformedDirective, "%s.%s: %v", a.c.Name, f.Name(), err)
			continue
		}
		if pt.Exclude {
			continue
		}
		if prefix != nil {
			if taken[f.Name()] {
				continue
			}
			taken[f.Name()] = true
		}

		prop := descriptor.Property{
			Name: f.Name(),
			Path: path,
			Type: typeRef(f.Type()),
		}
		switch {
		case tagged && pt.Name != "":
			prop.Param = pt.Name
			prop.Override = true
		default:
			c := cmp.Or(pt.Case, directiveCase, a.opts.DefaultCase, descriptor.CaseIdentity)
			prop.Param = applyCase(c, f.Name())
		}
		a.cmd.Properties = append(a.cmd.Properties, prop)
	}
}

func applyCase(c descriptor.ParamCase, name string) string {
	if c == descriptor.CaseSnake {
		return naming.ToSnakeCase(name)
	}
	return name
}
