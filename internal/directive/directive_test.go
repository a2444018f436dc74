package directive

import (
	"errors"
	"go/ast"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func ptr(s string) *string { return &s }

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want Directive
	}{
		{name: "empty", text: "//dbcmd:command", want: Directive{}},
		{name: "proc bare", text: "//dbcmd:command proc=dbo.GetUser", want: Directive{Proc: ptr("dbo.GetUser")}},
		{
			name: "sql quoted",
			text: `//dbcmd:command sql="SELECT id FROM users WHERE tenant = @tenant" case=snake`,
			want: Directive{SQL: ptr("SELECT id FROM users WHERE tenant = @tenant"), Case: CaseSnake},
		},
		{
			name: "raw string",
			text: "//dbcmd:command sql=`SELECT \"x\"`",
			want: Directive{SQL: ptr(`SELECT "x"`)},
		},
		{
			name: "function with sigil and flags",
			text: "//dbcmd:command\tfunc=@fn_active_users nonquery source=reporting",
			want: Directive{Func: ptr("@fn_active_users"), NonQuery: true, Source: "reporting"},
		},
		{
			name: "explicit booleans",
			text: "//dbcmd:command func=fn nonquery=false table=true",
			want: Directive{Func: ptr("fn"), Table: true},
		},
		{
			name: "declared empty",
			text: `//dbcmd:command proc=""`,
			want: Directive{Proc: ptr("")},
		},
		{
			name: "several sources kept for validation",
			text: "//dbcmd:command proc=a sql=b",
			want: Directive{Proc: ptr("a"), SQL: ptr("b")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Parse(tt.text)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.text, err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("Parse(%q) mismatch (-want +got):\n%s", tt.text, diff)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		text   string
		column int
		msg    string
	}{
		{name: "unknown option", text: "//dbcmd:command proc=a colour=red", column: 24, msg: `unknown option "colour"`},
		{name: "repeated", text: "//dbcmd:command proc=a proc=b", column: 24, msg: `option "proc" repeated`},
		{name: "missing value", text: "//dbcmd:command proc", column: 17, msg: `option "proc" requires a value`},
		{name: "bad case", text: "//dbcmd:command case=camel", column: 17, msg: `case must be "identity" or "snake", got "camel"`},
		{name: "bad bool", text: "//dbcmd:command nonquery=maybe", column: 17, msg: `option "nonquery" expects a boolean, got "maybe"`},
		{name: "no prefix", text: "// plain comment", column: 1, msg: "missing //dbcmd:command prefix"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse(tt.text)
			var derr *Error
			if !errors.As(err, &derr) {
				t.Fatalf("Parse(%q) error = %v, want *Error", tt.text, err)
			}
			if derr.Column != tt.column || derr.Msg != tt.msg {
				t.Fatalf("Parse(%q) = column %d %q, want column %d %q", tt.text, derr.Column, derr.Msg, tt.column, tt.msg)
			}
		})
	}
}

func TestParseSyntaxError(t *testing.T) {
	t.Parallel()

	_, err := Parse("//dbcmd:command proc==x")
	var derr *Error
	if !errors.As(err, &derr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if derr.Column <= len(Prefix) {
		t.Fatalf("column %d should point past the prefix", derr.Column)
	}
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	inputs := []Directive{
		{},
		{Proc: ptr("dbo.GetUsersByTenant"), Case: CaseSnake},
		{SQL: ptr("UPDATE users SET active = 0 WHERE id = @id"), NonQuery: true},
		{Func: ptr("@fn_users"), Source: "reporting-db", Table: true},
		{Proc: ptr(""), SQL: ptr("x y"), Func: ptr("f"), Case: CaseIdentity},
	}
	for _, in := range inputs {
		text := in.String()
		got, err := Parse(text)
		if err != nil {
			t.Fatalf("Parse(%q) error: %v", text, err)
		}
		if diff := cmp.Diff(in, got); diff != "" {
			t.Fatalf("round trip of %q mismatch (-want +got):\n%s", text, diff)
		}
	}
}

func TestMatchAndFind(t *testing.T) {
	t.Parallel()

	if _, ok := Match("//dbcmd:commands"); ok {
		t.Fatalf("prefix followed by a letter must not match")
	}
	if rest, ok := Match("//dbcmd:command proc=x"); !ok || rest != " proc=x" {
		t.Fatalf("Match returned %q, %v", rest, ok)
	}

	doc := &ast.CommentGroup{List: []*ast.Comment{
		{Text: "// GetUser loads a user."},
		{Text: "//dbcmd:command proc=GetUser"},
		{Text: "//go:generate something"},
	}}
	found := Find(doc)
	if len(found) != 1 || found[0].Text != "//dbcmd:command proc=GetUser" {
		t.Fatalf("Find returned %v", found)
	}
	if Find(nil) != nil {
		t.Fatalf("Find(nil) should be nil")
	}
}
