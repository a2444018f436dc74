package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/electwix/dbcmd/internal/analyzer"
	"github.com/electwix/dbcmd/internal/analyzer/analyzertest"
)

const storeSource = `package store

import "github.com/electwix/dbcmd"

type User struct {
	ID   int64
	Name string
}

//dbcmd:command proc=get_users case=snake
type ListUsers struct {
	dbcmd.Query[[]User]
	TenantID int64
}

//dbcmd:command proc=archive_user
type ArchiveUser struct {
	dbcmd.NoResult
	UserID int64
}
`

// prepareCmdFixtures writes a descriptor package with a configuration file
// and returns the configuration path and an app loading that package.
func prepareCmdFixtures(t *testing.T, files map[string]string) (string, *app, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	files["dbcmd.toml"] = "dialect = \"postgres\"\n\n[cache]\nenabled = false\n"
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	a := &app{
		stdout: stdout,
		stderr: stderr,
		loader: func(ctx context.Context, opts analyzer.LoadOptions, patterns ...string) ([]*analyzer.Package, error) {
			entries, err := os.ReadDir(dir)
			if err != nil {
				return nil, err
			}
			sources := make(map[string]string)
			for _, e := range entries {
				if e.IsDir() || !strings.HasSuffix(e.Name(), ".go") {
					continue
				}
				data, err := os.ReadFile(filepath.Join(dir, e.Name()))
				if err != nil {
					return nil, err
				}
				sources[e.Name()] = string(data)
			}
			pkg, err := analyzertest.LoadPackage(dir, analyzertest.Package, sources)
			if err != nil {
				return nil, err
			}
			return []*analyzer.Package{pkg}, nil
		},
	}
	return filepath.Join(dir, "dbcmd.toml"), a, stdout, stderr
}

func TestRunGenerates(t *testing.T) {
	configPath, a, _, stderr := prepareCmdFixtures(t, map[string]string{"store.go": storeSource})

	if code := a.run(context.Background(), []string{"-config", configPath}); code != 0 {
		t.Fatalf("exit code = %d, want 0; stderr=%q", code, stderr.String())
	}
	dir := filepath.Dir(configPath)
	for _, name := range []string{"list_users_params.gen.go", "list_users_handler.gen.go", "archive_user_params.gen.go", "archive_user_handler.gen.go"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
	typeCheck(t, a)
}

// typeCheck reloads the fixture package, generated files included, and fails
// on any type error.
func typeCheck(t *testing.T, a *app) {
	t.Helper()
	pkgs, err := a.loader(context.Background(), analyzer.LoadOptions{})
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	for _, pkg := range pkgs {
		if len(pkg.Errors) > 0 {
			t.Fatalf("generated code does not type-check: %v", pkg.Errors)
		}
	}
}

func TestRunEveryDialect(t *testing.T) {
	const source = `package store

import "github.com/electwix/dbcmd"

//dbcmd:command sql="SELECT count(*) FROM users WHERE region = @Region"
type CountUsers struct {
	dbcmd.Query[int64]
	Region string
}
`
	tests := map[string]string{
		"postgres":   "dbcmd.BindPositional",
		"postgresql": "dbcmd.BindPositional",
		"mysql":      "dbcmd.BindPositional",
		"sqlite":     "dbcmd.BindNamed",
		"sqlserver":  "dbcmd.BindNamed",
		"mssql":      "dbcmd.BindNamed",
	}
	for dialect, binding := range tests {
		t.Run(dialect, func(t *testing.T) {
			configPath, a, _, stderr := prepareCmdFixtures(t, map[string]string{"store.go": source})
			if code := a.run(context.Background(), []string{"-config", configPath, "-dialect", dialect}); code != 0 {
				t.Fatalf("exit code = %d, want 0; stderr=%q", code, stderr.String())
			}
			data, err := os.ReadFile(filepath.Join(filepath.Dir(configPath), "count_users_handler.gen.go"))
			if err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(string(data), "Binding: "+binding) {
				t.Errorf("handler does not bind with %s:\n%s", binding, data)
			}
			typeCheck(t, a)
		})
	}
}

func TestRunDryRun(t *testing.T) {
	configPath, a, stdout, stderr := prepareCmdFixtures(t, map[string]string{"store.go": storeSource})

	code := a.run(context.Background(), []string{"--config", configPath, "--dry-run"})
	if code != 0 {
		t.Fatalf("exit code = %d, want 0; stderr=%q", code, stderr.String())
	}
	if stderr.Len() != 0 {
		t.Fatalf("unexpected stderr output: %q", stderr.String())
	}

	expected := filepath.Join(filepath.Dir(configPath), "list_users_handler.gen.go")
	if !strings.Contains(stdout.String(), expected) {
		t.Fatalf("stdout %q missing generated file %q", stdout.String(), expected)
	}
	if _, err := os.Stat(expected); !os.IsNotExist(err) {
		t.Fatalf("dry run wrote %s", expected)
	}
}

func TestRunList(t *testing.T) {
	configPath, a, stdout, stderr := prepareCmdFixtures(t, map[string]string{"store.go": storeSource})

	code := a.run(context.Background(), []string{"--config", configPath, "--list"})
	if code != 0 {
		t.Fatalf("exit code = %d, want 0; stderr=%q", code, stderr.String())
	}

	out := stdout.String()
	for _, want := range []string{
		"dialect postgres (driver github.com/jackc/pgx/v5/stdlib)\n",
		"store.ListUsers query stored procedure get_users -> []User params: tenant_id:int64",
		"store.ArchiveUser no result stored procedure archive_user -> no result params: UserID:int64",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("stdout %q missing %q", out, want)
		}
	}
}

func TestRunDiagnostics(t *testing.T) {
	configPath, a, _, stderr := prepareCmdFixtures(t, map[string]string{
		"store.go": storeSource,
		"broken.go": `package store

import "github.com/electwix/dbcmd"

//dbcmd:command proc=a func=b
type Broken struct {
	dbcmd.Query[int]
}
`,
	})

	if code := a.run(context.Background(), []string{"-config", configPath}); code != 1 {
		t.Fatalf("exit code = %d, want 1; stderr=%q", code, stderr.String())
	}
	out := stderr.String()
	if !strings.Contains(out, "broken.go:") || !strings.Contains(out, "error: ") || !strings.Contains(out, "[DG-003]") {
		t.Errorf("stderr %q missing the DG-003 diagnostic", out)
	}
	if !strings.Contains(out, "1 error(s)") {
		t.Errorf("stderr %q missing the summary", out)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(configPath), "list_users_handler.gen.go")); err != nil {
		t.Errorf("valid descriptor not generated: %v", err)
	}
}

func TestRunWriteFailure(t *testing.T) {
	configPath, a, _, stderr := prepareCmdFixtures(t, map[string]string{"store.go": storeSource})
	// A directory in place of an output file cannot be overwritten.
	if err := os.Mkdir(filepath.Join(filepath.Dir(configPath), "list_users_params.gen.go"), 0o750); err != nil {
		t.Fatal(err)
	}

	if code := a.run(context.Background(), []string{"-config", configPath}); code != 2 {
		t.Fatalf("exit code = %d, want 2; stderr=%q", code, stderr.String())
	}
	if !strings.Contains(stderr.String(), "list_users_params.gen.go") {
		t.Errorf("stderr %q does not name the failing file", stderr.String())
	}
}

func TestRunConfigErrors(t *testing.T) {
	configPath, a, _, stderr := prepareCmdFixtures(t, map[string]string{"store.go": storeSource})

	if code := a.run(context.Background(), []string{"-config", configPath, "-dialect", "oracle"}); code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "unsupported database dialect: oracle") {
		t.Errorf("stderr = %q", stderr.String())
	}

	stderr.Reset()
	if code := a.run(context.Background(), []string{"-config", filepath.Join(t.TempDir(), "missing.toml")}); code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "missing.toml") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestRunFlags(t *testing.T) {
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	a := &app{stdout: stdout, stderr: stderr}

	if code := a.run(context.Background(), []string{"-h"}); code != 0 {
		t.Fatalf("help exit code = %d, want 0", code)
	}
	if !strings.Contains(stdout.String(), "Usage of dbcmd-gen") {
		t.Errorf("help output = %q", stdout.String())
	}

	if code := a.run(context.Background(), []string{"-bogus"}); code != 1 {
		t.Fatalf("bad flag exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "flag provided but not defined") {
		t.Errorf("stderr = %q", stderr.String())
	}
}
