// Package pipeline orchestrates a generator run: configuration, package
// loading, analysis, validation, rendering and file writes.
package pipeline

import (
	"bytes"
	"cmp"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/errgroup"

	"github.com/electwix/dbcmd/internal/analyzer"
	"github.com/electwix/dbcmd/internal/cache"
	"github.com/electwix/dbcmd/internal/check"
	"github.com/electwix/dbcmd/internal/codegen"
	"github.com/electwix/dbcmd/internal/config"
	"github.com/electwix/dbcmd/internal/descriptor"
	"github.com/electwix/dbcmd/internal/diagnostics"
	"github.com/electwix/dbcmd/internal/engine"
	_ "github.com/electwix/dbcmd/internal/engine/builtin"
	"github.com/electwix/dbcmd/internal/logging"
)

// Loader loads the packages matching patterns.
type Loader func(ctx context.Context, opts analyzer.LoadOptions, patterns ...string) ([]*analyzer.Package, error)

// Environment captures external dependencies used by the pipeline.
type Environment struct {
	Loader Loader
	Logger *slog.Logger
	Writer Writer
	// Cache overrides the cache chosen from configuration.
	Cache cache.Cache
	Hooks Hooks
}

// Writer writes generated files to persistent storage.
type Writer interface {
	WriteFile(path string, data []byte) error
	Remove(path string) error
}

// Pipeline orchestrates configuration loading, analysis, and code generation.
type Pipeline struct {
	Env Environment
}

// Summary captures what a run found and produced.
type Summary struct {
	RunID       string
	Plan        config.Plan
	Dialect     string
	Driver      string
	Dirs        []string
	Commands    []descriptor.Command
	Files       []codegen.File
	Written     []string
	Removed     []string
	Cached      int
	Diagnostics []diagnostics.Diagnostic
}

// RunOptions configures a pipeline execution. Non-zero fields override the
// configuration file.
type RunOptions struct {
	// ConfigPath names the configuration file. When empty, Find is used
	// from Dir and defaults apply if nothing is found.
	ConfigPath string
	Dir        string
	Patterns   []string
	Dialect    string
	Workers    int
	DryRun     bool
	List       bool
	Strict     bool
	NoCache    bool
}

// DiagnosticsError indicates that errors were reported via diagnostics.
// Descriptors without errors were still generated.
type DiagnosticsError struct {
	Diagnostics []diagnostics.Diagnostic
}

func (e *DiagnosticsError) Error() string {
	errs := diagnostics.NewCollection(e.Diagnostics...).Errors()
	switch len(errs) {
	case 0:
		return "no diagnostics"
	case 1:
		return errs[0].String()
	default:
		return fmt.Sprintf("%s (and %d more errors)", errs[0], len(errs)-1)
	}
}

// WriteError wraps failures encountered while writing generated files.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// NewOSWriter returns a Writer that performs atomic writes on the local filesystem.
func NewOSWriter() Writer {
	return &osWriter{perm: 0o644}
}

type osWriter struct {
	perm fs.FileMode
}

func (w *osWriter) WriteFile(path string, data []byte) error {
	if path == "" {
		return errors.New("pipeline: empty path")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".dbcmd-gen-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpName)
		}
		_ = tmp.Close()
	}()
	if w.perm != 0 {
		if err := tmp.Chmod(w.perm); err != nil {
			return fmt.Errorf("chmod temp file: %w", err)
		}
	}
	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	success = true
	return nil
}

func (w *osWriter) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// result is the outcome for one candidate. Each goroutine owns one slot.
type result struct {
	cmd      descriptor.Command
	analyzed bool
	diags    []diagnostics.Diagnostic
	files    []codegen.File
	cached   bool
}

// Run executes the pipeline according to the provided options. Cancellation
// before the write phase leaves the file system untouched.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (summary Summary, err error) {
	summary.RunID = uuid.NewString()
	logger := logging.OrDiscard(p.Env.Logger).With("run", summary.RunID)
	hooks := p.Env.Hooks
	defer func() {
		if hooks.AfterWrite != nil {
			err = errors.Join(err, hooks.AfterWrite(ctx, summary))
		}
	}()

	plan, err := p.plan(opts, logger)
	if err != nil {
		return summary, err
	}
	summary.Plan = plan

	eng, err := engine.New(plan.Dialect)
	if err != nil {
		return summary, fmt.Errorf("config: %w", err)
	}
	summary.Dialect, summary.Driver = eng.Name(), eng.DefaultDriver()
	logger.Debug("dialect", "name", summary.Dialect, "driver", summary.Driver)

	loader := p.Env.Loader
	if loader == nil {
		loader = analyzer.Load
	}
	start := time.Now()
	pkgs, err := loader(ctx, analyzer.LoadOptions{Dir: plan.Dir, Tags: plan.Tags}, plan.Packages...)
	if err != nil {
		return summary, err
	}
	for _, pkg := range pkgs {
		if pkg.Dir != "" && !slices.Contains(summary.Dirs, pkg.Dir) {
			summary.Dirs = append(summary.Dirs, pkg.Dir)
		}
		if len(pkg.Errors) > 0 {
			logger.Debug("package has type errors", "package", pkg.Path, "errors", len(pkg.Errors), "first", pkg.Errors[0])
		}
	}
	if hooks.AfterLoad != nil {
		if err := hooks.AfterLoad(ctx, pkgs); err != nil {
			return summary, err
		}
	}

	var candidates []analyzer.Candidate
	for _, pkg := range pkgs {
		candidates = append(candidates, analyzer.Discover(pkg)...)
	}
	logger.Debug("discovered candidates", "packages", len(pkgs), "candidates", len(candidates), "elapsed", time.Since(start))

	results, err := p.process(ctx, candidates, plan, eng, opts, logger)
	if err != nil {
		return summary, err
	}

	keep := make(map[string]bool)
	for _, r := range results {
		summary.Diagnostics = append(summary.Diagnostics, r.diags...)
		if !r.analyzed {
			continue
		}
		summary.Commands = append(summary.Commands, r.cmd)
		summary.Files = append(summary.Files, r.files...)
		if r.cached {
			summary.Cached++
		}
		if diagnostics.HasErrors(r.diags) && r.cmd.Pos.File != "" {
			// A broken descriptor keeps its previous output.
			keep[codegen.OutputPath(r.cmd, plan.MapperSuffix)] = true
			keep[codegen.OutputPath(r.cmd, plan.HandlerSuffix)] = true
		}
	}
	diagCollection := diagnostics.NewCollection(summary.Diagnostics...)
	diagCollection.SortByLocation()
	summary.Diagnostics = diagCollection.All()
	slices.SortFunc(summary.Files, func(a, b codegen.File) int { return strings.Compare(a.Path, b.Path) })

	var diagErr error
	if diagCollection.HasErrors() {
		diagErr = &DiagnosticsError{Diagnostics: summary.Diagnostics}
	}

	if hooks.AfterAnalyze != nil {
		if err := hooks.AfterAnalyze(ctx, summary.Commands); err != nil {
			return summary, err
		}
	}
	if opts.List {
		return summary, diagErr
	}
	if hooks.AfterGenerate != nil {
		if err := hooks.AfterGenerate(ctx, summary.Files); err != nil {
			return summary, err
		}
	}

	for _, f := range summary.Files {
		keep[f.Path] = true
	}
	stale, err := staleFiles(pkgs, plan, keep)
	if err != nil {
		return summary, err
	}
	if err := ctx.Err(); err != nil {
		return summary, err
	}

	if opts.DryRun {
		summary.Removed = stale
		return summary, diagErr
	}

	if hooks.BeforeWrite != nil {
		if err := hooks.BeforeWrite(ctx, summary.Files); err != nil {
			return summary, err
		}
	}
	if err := p.write(ctx, &summary, stale, logger); err != nil {
		return summary, err
	}
	logger.Info("generation complete",
		"descriptors", len(summary.Commands),
		"files", len(summary.Files),
		"written", len(summary.Written),
		"removed", len(summary.Removed),
		"cached", summary.Cached,
		"warnings", len(diagCollection.Warnings()),
		"elapsed", time.Since(start))
	return summary, diagErr
}

// plan loads the configuration and applies the run options on top.
func (p *Pipeline) plan(opts RunOptions, logger *slog.Logger) (config.Plan, error) {
	dir := cmp.Or(opts.Dir, ".")
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return config.Plan{}, fmt.Errorf("resolve %s: %w", dir, err)
	}

	path := opts.ConfigPath
	if path == "" {
		path, _ = config.Find(absDir)
	}
	plan := config.Default(absDir)
	if path != "" {
		res, err := config.Load(path, config.LoadOptions{Strict: opts.Strict})
		if err != nil {
			return config.Plan{}, fmt.Errorf("config: %w", err)
		}
		for _, w := range res.Warnings {
			logger.Warn(w)
		}
		plan = res.Plan
		logger.Debug("loaded configuration", "path", path)
	}

	if len(opts.Patterns) > 0 {
		plan.Packages = opts.Patterns
		plan.Dir = absDir
	}
	if opts.Dialect != "" {
		plan.Dialect = strings.ToLower(opts.Dialect)
	}
	if opts.Workers > 0 {
		plan.Workers = opts.Workers
	}
	if opts.NoCache {
		plan.Cache.Enabled = false
	}
	return plan, nil
}

func (p *Pipeline) cache(plan config.Plan, logger *slog.Logger) cache.Cache {
	if p.Env.Cache != nil {
		return p.Env.Cache
	}
	if !plan.Cache.Enabled {
		return cache.Noop{}
	}
	fc, err := cache.NewFileCache(plan.Cache.Dir)
	if err != nil {
		logger.Warn("artifact cache disabled", "dir", plan.Cache.Dir, "error", err)
		return cache.Noop{}
	}
	return fc
}

// process analyzes, validates and renders every candidate in parallel.
func (p *Pipeline) process(ctx context.Context, candidates []analyzer.Candidate, plan config.Plan, eng engine.Engine, opts RunOptions, logger *slog.Logger) ([]result, error) {
	results := make([]result, len(candidates))
	store := p.cache(plan, logger)
	gen := codegen.New(codegen.Options{
		Engine:        eng,
		MapperSuffix:  plan.MapperSuffix,
		HandlerSuffix: plan.HandlerSuffix,
	})
	aopts := analyzer.Options{DefaultCase: plan.ParamCase}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(plan.Workers, 1))
	for i, c := range candidates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			cmd, diags := analyzer.Analyze(c, aopts)
			if c.Unsupported == "" {
				diags = append(diags, check.Validate(cmd, check.Options{Engine: eng})...)
			}
			r := result{cmd: cmd, analyzed: c.Unsupported == "", diags: diags}
			if r.analyzed && !check.Blocking(diags) && !opts.List {
				files, cached, err := p.generate(gctx, store, gen, cmd, plan)
				if err != nil {
					return fmt.Errorf("generate %s: %w", cmd.QualifiedName, err)
				}
				r.files, r.cached = files, cached
				logger.Debug("generated", "type", cmd.QualifiedName, "files", len(files), "cached", cached)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if c, ok := store.(cache.Cleaner); ok {
		c.Cleanup()
	}
	// errgroup cancels gctx only on failure; the parent may have been
	// cancelled after the last goroutine checked.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// generate renders the artifacts of cmd, serving them from store when an
// identical descriptor was rendered before.
func (p *Pipeline) generate(ctx context.Context, store cache.Cache, gen *codegen.Generator, cmd descriptor.Command, plan config.Plan) ([]codegen.File, bool, error) {
	hash, err := cmd.Key()
	if err != nil {
		return nil, false, err
	}
	key := cache.Key(hash, cmd.Pos.File, plan.Dialect, codegen.Version, plan.MapperSuffix, plan.HandlerSuffix)
	if data, ok := store.Get(ctx, key); ok {
		var files []codegen.File
		if err := msgpack.Unmarshal(data, &files); err == nil {
			return files, true, nil
		}
		store.Delete(ctx, key)
	}

	files, err := gen.Generate(ctx, cmd)
	if err != nil {
		return nil, false, err
	}
	if data, err := msgpack.Marshal(files); err == nil {
		store.Set(ctx, key, data, plan.Cache.TTL)
	}
	return files, false, nil
}

// write applies the run: changed files are written, unchanged ones skipped,
// stale ones removed.
func (p *Pipeline) write(ctx context.Context, summary *Summary, stale []string, logger *slog.Logger) error {
	writer := p.Env.Writer
	if writer == nil {
		writer = NewOSWriter()
	}

	for _, file := range summary.Files {
		if err := ctx.Err(); err != nil {
			return err
		}
		same, err := fileMatches(file.Path, file.Content)
		if err != nil {
			return &WriteError{Path: file.Path, Err: err}
		}
		if same {
			continue
		}
		if err := writer.WriteFile(file.Path, file.Content); err != nil {
			return &WriteError{Path: file.Path, Err: err}
		}
		summary.Written = append(summary.Written, file.Path)
	}
	for _, path := range stale {
		if err := writer.Remove(path); err != nil {
			return &WriteError{Path: path, Err: err}
		}
		logger.Info("removed stale file", "path", path)
		summary.Removed = append(summary.Removed, path)
	}
	return nil
}

// staleFiles lists generated files in the loaded package directories that
// the run no longer produces.
func staleFiles(pkgs []*analyzer.Package, plan config.Plan, keep map[string]bool) ([]string, error) {
	var stale []string
	seen := make(map[string]bool)
	for _, pkg := range pkgs {
		if pkg.Dir == "" || seen[pkg.Dir] {
			continue
		}
		seen[pkg.Dir] = true
		entries, err := os.ReadDir(pkg.Dir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("scan %s: %w", pkg.Dir, err)
		}
		for _, e := range entries {
			name := e.Name()
			if e.IsDir() || !(strings.HasSuffix(name, plan.MapperSuffix) || strings.HasSuffix(name, plan.HandlerSuffix)) {
				continue
			}
			path := filepath.Join(pkg.Dir, name)
			if keep[path] {
				continue
			}
			generated, err := isGeneratedFile(path)
			if err != nil {
				return nil, err
			}
			if generated {
				stale = append(stale, path)
			}
		}
	}
	slices.Sort(stale)
	return stale, nil
}

func isGeneratedFile(path string) (bool, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return false, err
	}
	defer f.Close()
	head := make([]byte, len(codegen.Header)+3)
	n, _ := f.Read(head)
	return codegen.IsGenerated(head[:n]), nil
}

func fileMatches(path string, content []byte) (bool, error) {
	existing, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return bytes.Equal(existing, content), nil
}
