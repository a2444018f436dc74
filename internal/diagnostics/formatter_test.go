package diagnostics

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFormatterFormat(t *testing.T) {
	f := NewFormatter()

	d := Error(CodeMissingContract, "GetUser declares a command source but no result contract").
		At("queries.go", 5, 6).
		WithContext("type GetUser struct {").
		WithSuggestion("embed a result contract", "dbcmd.Query[User]").
		WithNote("generation skipped for GetUser").
		Build()

	got := f.Format(d)
	for _, want := range []string{
		"queries.go:5:6: error: GetUser declares a command source but no result contract [DG-002]\n",
		"  --> type GetUser struct {\n",
		"  help: embed a result contract\n",
		"    => dbcmd.Query[User]\n",
		"  note: generation skipped for GetUser\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "\x1b[") {
		t.Errorf("default formatter must not colorize:\n%q", got)
	}
}

func TestFormatterVerbose(t *testing.T) {
	f := NewVerboseFormatter()
	got := f.Format(Warning(CodeNonQueryShape, "w").At("a.go", 1, 1).Build())

	if !strings.Contains(got, "\x1b[") {
		t.Errorf("verbose formatter should colorize: %q", got)
	}
	if !strings.Contains(got, "(NonQuery requires an integral scalar result)") {
		t.Errorf("verbose formatter should describe the code: %q", got)
	}
}

func TestPrintSummary(t *testing.T) {
	f := NewFormatter()
	var buf bytes.Buffer

	f.PrintSummary(&buf, NewCollection())
	if buf.Len() != 0 {
		t.Fatalf("empty collection printed %q", buf.String())
	}

	c := NewCollection(
		Error(CodeMultipleSources, "x").Build(),
		Error(CodeMultipleSources, "y").Build(),
		Warning(CodeNonQueryShape, "z").Build(),
	)
	f.PrintSummary(&buf, c)
	if got := buf.String(); got != "2 error(s), 1 warning(s)\n" {
		t.Fatalf("PrintSummary = %q", got)
	}

	buf.Reset()
	if err := f.WriteAll(&buf, c); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	if got := strings.Count(buf.String(), "\n"); got != 3 {
		t.Fatalf("WriteAll wrote %d lines:\n%s", got, buf.String())
	}
}

func TestContextExtractor(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "queries.go")
	src := "package app\n\n//dbcmd:command proc=GetUser\ntype GetUser struct {\n\tID int\n}\n"
	if err := os.WriteFile(path, []byte(src), 0o600); err != nil {
		t.Fatal(err)
	}

	e := NewContextExtractor()
	ctx, err := e.Extract(Location{Path: path, Line: 4, Column: 6}, 1)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	want := "  3 | //dbcmd:command proc=GetUser\n" +
		"> 4 | type GetUser struct {\n" +
		"           ^\n" +
		"  5 | \tID int\n"
	if got := ctx.Format(); got != want {
		t.Fatalf("Format mismatch:\n got %q\nwant %q", got, want)
	}

	if _, err := e.Extract(Location{Path: path, Line: 40}, 1); err == nil {
		t.Fatal("expected out-of-range error")
	}

	diags := []Diagnostic{
		Error(CodeUnsupportedDecl, "x").At(path, 3, 1).Build(),
		Error(CodeUnsupportedDecl, "missing").At(filepath.Join(dir, "nope.go"), 1, 1).Build(),
	}
	e.Attach(diags, 0)
	if !strings.Contains(diags[0].Context, "//dbcmd:command proc=GetUser") {
		t.Fatalf("Attach did not fill context: %q", diags[0].Context)
	}
	if diags[1].Context != "" {
		t.Fatalf("unreadable file should be skipped: %q", diags[1].Context)
	}
}
