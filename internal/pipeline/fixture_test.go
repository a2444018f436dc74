package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/electwix/dbcmd/internal/analyzer"
	"github.com/electwix/dbcmd/internal/analyzer/analyzertest"
	"github.com/electwix/dbcmd/internal/logging"
)

const usersSource = `package store

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

//dbcmd:command proc=archive_user source=archive
type ArchiveUser struct {
	dbcmd.NoResult
	UserID int64
}
`

const brokenSource = `package store

import "github.com/electwix/dbcmd"

//dbcmd:command proc=a sql="SELECT 1"
type Broken struct {
	dbcmd.Query[int]
}
`

// fixture writes files into a fresh package directory with a dbcmd.toml and
// returns the directory and a loader that type-checks whatever .go files
// the directory holds at load time.
func fixture(t testing.TB, files map[string]string) (string, Loader) {
	t.Helper()
	dir := t.TempDir()
	files["dbcmd.toml"] = "dialect = \"postgres\"\nparam_case = \"identity\"\n\n[cache]\nenabled = false\n"
	for name, content := range files {
		writeFile(t, filepath.Join(dir, name), content)
	}

	loader := func(ctx context.Context, opts analyzer.LoadOptions, patterns ...string) ([]*analyzer.Package, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
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
	}
	return dir, loader
}

func writeFile(t testing.TB, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func newPipeline(loader Loader, w Writer) *Pipeline {
	return &Pipeline{Env: Environment{
		Loader: loader,
		Logger: logging.Discard(),
		Writer: w,
	}}
}

func names(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = filepath.Base(p)
	}
	return out
}
