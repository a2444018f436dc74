// Package config loads and validates the dbcmd-gen configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/electwix/dbcmd/internal/descriptor"
)

// File names searched by Find, in order.
var FileNames = []string{"dbcmd.toml", "dbcmd.yaml", "dbcmd.yml"}

// GeneratedSuffix is the suffix every output suffix must end with; it is how
// generated files are told apart from hand-written ones.
const GeneratedSuffix = ".gen.go"

// Defaults used when the configuration omits a value.
const (
	DefaultDialect       = "postgres"
	DefaultMapperSuffix  = "_params.gen.go"
	DefaultHandlerSuffix = "_handler.gen.go"
	DefaultCacheTTL      = 7 * 24 * time.Hour
)

// OutputConfig captures the output file naming.
type OutputConfig struct {
	MapperSuffix  string `toml:"mapper_suffix" yaml:"mapper_suffix"`
	HandlerSuffix string `toml:"handler_suffix" yaml:"handler_suffix"`
}

// CacheConfig captures artifact cache settings.
type CacheConfig struct {
	Enabled *bool  `toml:"enabled" yaml:"enabled"`
	Dir     string `toml:"dir" yaml:"dir"`
	TTL     string `toml:"ttl" yaml:"ttl"`
}

// Config mirrors the dbcmd.toml schema. dbcmd.yaml uses the same keys.
type Config struct {
	Packages  []string     `toml:"packages" yaml:"packages"`
	Dialect   string       `toml:"dialect" yaml:"dialect"`
	ParamCase string       `toml:"param_case" yaml:"param_case"`
	Workers   int          `toml:"workers" yaml:"workers"`
	Tags      []string     `toml:"tags" yaml:"tags"`
	Output    OutputConfig `toml:"output" yaml:"output"`
	Cache     CacheConfig  `toml:"cache" yaml:"cache"`
}

// CachePlan is the resolved cache configuration.
type CachePlan struct {
	Enabled bool
	Dir     string
	TTL     time.Duration
}

// Plan is the fully-resolved configuration used by the pipeline.
type Plan struct {
	// Dir is the directory package patterns are resolved against.
	Dir           string
	Packages      []string
	Dialect       string
	ParamCase     descriptor.ParamCase
	Workers       int
	Tags          []string
	MapperSuffix  string
	HandlerSuffix string
	Cache         CachePlan
}

// Default returns the plan used when no configuration file exists.
func Default(dir string) Plan {
	return Plan{
		Dir:           dir,
		Packages:      []string{"."},
		Dialect:       DefaultDialect,
		Workers:       runtime.GOMAXPROCS(0),
		MapperSuffix:  DefaultMapperSuffix,
		HandlerSuffix: DefaultHandlerSuffix,
		Cache: CachePlan{
			Enabled: true,
			Dir:     defaultCacheDir(),
			TTL:     DefaultCacheTTL,
		},
	}
}

func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "dbcmd")
	}
	return filepath.Join(dir, "dbcmd")
}

// LoadOptions tunes config loading behavior.
type LoadOptions struct {
	// Strict turns unknown keys into errors.
	Strict bool
}

// Result wraps a loaded plan alongside any non-fatal warnings.
type Result struct {
	Plan     Plan
	Warnings []string
}

// Find looks for a configuration file in dir and its parents, stopping at
// the first directory containing a go.mod.
func Find(dir string) (string, bool) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", false
	}
	for {
		for _, name := range FileNames {
			path := filepath.Join(dir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, true
			}
		}
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return "", false
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// Load reads, validates, and resolves a configuration file. The format
// follows the extension.
func Load(path string, opts LoadOptions) (Result, error) {
	var res Result

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return res, fmt.Errorf("read %s: %w", path, err)
	}

	var (
		cfg Config
		raw map[string]any
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return res, fmt.Errorf("%s: %w", path, err)
		}
		if err := toml.Unmarshal(data, &raw); err != nil {
			return res, fmt.Errorf("%s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return res, fmt.Errorf("%s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return res, fmt.Errorf("%s: %w", path, err)
		}
	default:
		return res, fmt.Errorf("%s: unsupported configuration format %q", path, ext)
	}

	if unknown := collectUnknownKeys(raw); len(unknown) > 0 {
		message := fmt.Sprintf("%s: unknown configuration keys: %s", path, strings.Join(unknown, ", "))
		if opts.Strict {
			return res, errors.New(message)
		}
		res.Warnings = append(res.Warnings, message)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return res, fmt.Errorf("%s: %w", path, err)
	}
	plan, err := Resolve(filepath.Dir(abs), cfg)
	if err != nil {
		return res, fmt.Errorf("%s: %w", path, err)
	}
	res.Plan = plan
	return res, nil
}

// Resolve validates cfg and fills in defaults. Relative paths are resolved
// against dir.
func Resolve(dir string, cfg Config) (Plan, error) {
	plan := Default(dir)
	var errs []error

	if len(cfg.Packages) > 0 {
		plan.Packages = slices.Clone(cfg.Packages)
	}
	if cfg.Dialect != "" {
		plan.Dialect = strings.ToLower(strings.TrimSpace(cfg.Dialect))
	}

	pc, err := descriptor.ParseCase(cfg.ParamCase)
	if err != nil {
		errs = append(errs, fmt.Errorf("param_case: %w", err))
	}
	plan.ParamCase = pc

	switch {
	case cfg.Workers < 0:
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", cfg.Workers))
	case cfg.Workers > 0:
		plan.Workers = cfg.Workers
	}
	plan.Tags = slices.Clone(cfg.Tags)

	if cfg.Output.MapperSuffix != "" {
		plan.MapperSuffix = cfg.Output.MapperSuffix
	}
	if cfg.Output.HandlerSuffix != "" {
		plan.HandlerSuffix = cfg.Output.HandlerSuffix
	}
	errs = append(errs, validateSuffix("output.mapper_suffix", plan.MapperSuffix))
	errs = append(errs, validateSuffix("output.handler_suffix", plan.HandlerSuffix))
	if plan.MapperSuffix == plan.HandlerSuffix {
		errs = append(errs, fmt.Errorf("output.mapper_suffix and output.handler_suffix must differ, both are %q", plan.MapperSuffix))
	}

	if cfg.Cache.Enabled != nil {
		plan.Cache.Enabled = *cfg.Cache.Enabled
	}
	if cfg.Cache.Dir != "" {
		plan.Cache.Dir = cfg.Cache.Dir
		if !filepath.IsAbs(plan.Cache.Dir) {
			plan.Cache.Dir = filepath.Join(dir, plan.Cache.Dir)
		}
	}
	if cfg.Cache.TTL != "" {
		ttl, err := time.ParseDuration(cfg.Cache.TTL)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("cache.ttl: %w", err))
		case ttl < 0:
			errs = append(errs, fmt.Errorf("cache.ttl must not be negative, got %s", ttl))
		default:
			plan.Cache.TTL = ttl
		}
	}

	if err := errors.Join(errs...); err != nil {
		return Plan{}, err
	}
	return plan, nil
}

func validateSuffix(field, suffix string) error {
	if !strings.HasSuffix(suffix, GeneratedSuffix) {
		return fmt.Errorf("%s must end in %q, got %q", field, GeneratedSuffix, suffix)
	}
	if strings.ContainsRune(suffix, filepath.Separator) || !fs.ValidPath(suffix) {
		return fmt.Errorf("%s must be a plain file name suffix, got %q", field, suffix)
	}
	return nil
}

var knownKeys = map[string][]string{
	"packages":   nil,
	"dialect":    nil,
	"param_case": nil,
	"workers":    nil,
	"tags":       nil,
	"output":     {"mapper_suffix", "handler_suffix"},
	"cache":      {"enabled", "dir", "ttl"},
}

// collectUnknownKeys returns the sorted keys of raw that Config does not
// declare; nested keys are reported as "section.key".
func collectUnknownKeys(raw map[string]any) []string {
	var unknown []string
	for key, value := range raw {
		nested, ok := knownKeys[key]
		if !ok {
			unknown = append(unknown, key)
			continue
		}
		section, ok := value.(map[string]any)
		if nested == nil || !ok {
			continue
		}
		for sub := range section {
			if !slices.Contains(nested, sub) {
				unknown = append(unknown, key+"."+sub)
			}
		}
	}
	slices.Sort(unknown)
	return unknown
}
