package dbcmd

import (
	"database/sql"
	"fmt"
)

// Params is the ordered parameter carrier produced by generated mappers when
// at least one parameter name differs from its field name.
type Params []sql.NamedArg

// Binding selects how parameters are handed to the driver.
type Binding uint8

const (
	// BindNamed passes sql.NamedArg values (SQLite, SQL Server).
	BindNamed Binding = iota
	// BindPositional passes bare values in declaration order (PostgreSQL, MySQL).
	BindPositional
)

// String returns the binding name.
func (b Binding) String() string {
	switch b {
	case BindNamed:
		return "named"
	case BindPositional:
		return "positional"
	default:
		return "unknown"
	}
}

// NamedArgLister is implemented by descriptors that serve as their own
// parameter carrier. Generated mappers emit NamedArgs next to Params when
// every parameter is named after its field.
type NamedArgLister interface {
	NamedArgs() []sql.NamedArg
}

// Args flattens a parameter carrier into driver arguments.
//
// The carrier is Params, a []sql.NamedArg, a plain []any of positional
// values, nil, or a NamedArgLister.
func Args(carrier any, binding Binding) ([]any, error) {
	switch c := carrier.(type) {
	case nil:
		return nil, nil
	case Params:
		return bindNamed(c, binding), nil
	case []sql.NamedArg:
		return bindNamed(c, binding), nil
	case []any:
		return c, nil
	case NamedArgLister:
		return bindNamed(c.NamedArgs(), binding), nil
	default:
		return nil, fmt.Errorf("dbcmd: unsupported parameter carrier %T", carrier)
	}
}

func bindNamed(params []sql.NamedArg, binding Binding) []any {
	if params == nil {
		return nil
	}
	args := make([]any, len(params))
	for i, p := range params {
		if binding == BindPositional {
			args[i] = p.Value
			continue
		}
		args[i] = p
	}
	return args
}
