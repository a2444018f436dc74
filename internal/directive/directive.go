// Package directive parses the //dbcmd:command line that marks a descriptor
// type and carries its grouping options.
package directive

import (
	"errors"
	"fmt"
	"go/ast"
	"regexp"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Prefix starts every directive comment.
const Prefix = "//dbcmd:command"

// Recognised option keys.
const (
	KeyProc     = "proc"
	KeySQL      = "sql"
	KeyFunc     = "func"
	KeyCase     = "case"
	KeyNonQuery = "nonquery"
	KeySource   = "source"
	KeyTable    = "table"
)

// Case values accepted by the case option.
const (
	CaseIdentity = "identity"
	CaseSnake    = "snake"
)

// Directive is a parsed directive line. Proc, SQL and Func are nil when the
// option is absent so callers can tell "declared empty" from "not declared".
type Directive struct {
	Proc     *string
	SQL      *string
	Func     *string
	Case     string
	NonQuery bool
	Source   string
	Table    bool
}

// Error reports a malformed directive. Column is the 1-based byte offset of
// the offending token within the comment text.
type Error struct {
	Column int
	Msg    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("malformed %s directive at column %d: %s", Prefix, e.Column, e.Msg)
}

//nolint:govet // Participle struct tags are DSL, not reflect tags
type line struct {
	Options []*option `@@*`
}

//nolint:govet // Participle struct tags are DSL, not reflect tags
type option struct {
	Pos   lexer.Position
	Key   string `@Word`
	Value *value `( "=" @@ )?`
}

//nolint:govet // Participle struct tags are DSL, not reflect tags
type value struct {
	Pos    lexer.Position
	Quoted *string `  @String`
	Raw    *string `| @RawString`
	Word   *string `| @Word`
}

//nolint:govet // Participle DSL uses unkeyed fields
var directiveLexer = lexer.MustSimple([]lexer.SimpleRule{
	{"Whitespace", `[ \t]+`},
	{"String", `"(\\.|[^"\\])*"`},
	{"RawString", "`[^`]*`"},
	{"Word", `@?[A-Za-z0-9_][A-Za-z0-9_.$#\-]*`},
	{"Assign", `=`},
})

var parser = participle.MustBuild[line](
	participle.Lexer(directiveLexer),
	participle.Elide("Whitespace"),
)

var bareWord = regexp.MustCompile(`^@?[A-Za-z0-9_][A-Za-z0-9_.$#\-]*$`)

// Match reports whether text is a directive comment and returns the option
// text following the prefix.
func Match(text string) (string, bool) {
	rest, ok := strings.CutPrefix(text, Prefix)
	if !ok {
		return "", false
	}
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
		return "", false
	}
	return rest, true
}

// Find returns every directive comment in doc.
func Find(doc *ast.CommentGroup) []*ast.Comment {
	if doc == nil {
		return nil
	}
	var out []*ast.Comment
	for _, c := range doc.List {
		if _, ok := Match(c.Text); ok {
			out = append(out, c)
		}
	}
	return out
}

// Parse parses a full directive comment, prefix included.
func Parse(text string) (Directive, error) {
	rest, ok := Match(text)
	if !ok {
		return Directive{}, &Error{Column: 1, Msg: "missing " + Prefix + " prefix"}
	}
	offset := len(Prefix)

	parsed, err := parser.ParseString("", rest)
	if err != nil {
		col := 1
		var perr participle.Error
		if errors.As(err, &perr) {
			col = perr.Position().Column
		}
		return Directive{}, &Error{Column: offset + col, Msg: message(err)}
	}

	var d Directive
	seen := make(map[string]bool, len(parsed.Options))
	for _, opt := range parsed.Options {
		col := offset + opt.Pos.Column
		if seen[opt.Key] {
			return Directive{}, &Error{Column: col, Msg: fmt.Sprintf("option %q repeated", opt.Key)}
		}
		seen[opt.Key] = true
		if err := d.apply(opt); err != nil {
			return Directive{}, &Error{Column: col, Msg: err.Error()}
		}
	}
	return d, nil
}

func (d *Directive) apply(opt *option) error {
	switch opt.Key {
	case KeyProc, KeySQL, KeyFunc, KeySource, KeyCase:
		if opt.Value == nil {
			return fmt.Errorf("option %q requires a value", opt.Key)
		}
		v, err := opt.Value.text()
		if err != nil {
			return err
		}
		switch opt.Key {
		case KeyProc:
			d.Proc = &v
		case KeySQL:
			d.SQL = &v
		case KeyFunc:
			d.Func = &v
		case KeySource:
			d.Source = v
		case KeyCase:
			if v != CaseIdentity && v != CaseSnake {
				return fmt.Errorf("case must be %q or %q, got %q", CaseIdentity, CaseSnake, v)
			}
			d.Case = v
		}
	case KeyNonQuery, KeyTable:
		b := true
		if opt.Value != nil {
			v, err := opt.Value.text()
			if err != nil {
				return err
			}
			b, err = strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("option %q expects a boolean, got %q", opt.Key, v)
			}
		}
		if opt.Key == KeyNonQuery {
			d.NonQuery = b
		} else {
			d.Table = b
		}
	default:
		return fmt.Errorf("unknown option %q", opt.Key)
	}
	return nil
}

func (v *value) text() (string, error) {
	switch {
	case v.Quoted != nil:
		s, err := strconv.Unquote(*v.Quoted)
		if err != nil {
			return "", fmt.Errorf("invalid quoted value %s", *v.Quoted)
		}
		return s, nil
	case v.Raw != nil:
		return strings.Trim(*v.Raw, "`"), nil
	case v.Word != nil:
		return *v.Word, nil
	}
	return "", nil
}

// message strips participle's position prefix; the caller reports the column.
func message(err error) string {
	var perr participle.Error
	if errors.As(err, &perr) {
		return perr.Message()
	}
	return err.Error()
}

// String renders d as a canonical directive comment.
func (d Directive) String() string {
	var b strings.Builder
	b.WriteString(Prefix)
	write := func(key, v string) {
		b.WriteByte(' ')
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(quote(v))
	}
	if d.Proc != nil {
		write(KeyProc, *d.Proc)
	}
	if d.SQL != nil {
		write(KeySQL, *d.SQL)
	}
	if d.Func != nil {
		write(KeyFunc, *d.Func)
	}
	if d.Case != "" {
		write(KeyCase, d.Case)
	}
	if d.NonQuery {
		b.WriteString(" " + KeyNonQuery)
	}
	if d.Source != "" {
		write(KeySource, d.Source)
	}
	if d.Table {
		b.WriteString(" " + KeyTable)
	}
	return b.String()
}

func quote(v string) string {
	if bareWord.MatchString(v) {
		return v
	}
	return strconv.Quote(v)
}
