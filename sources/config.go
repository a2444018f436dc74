// Package sources loads named data sources from a TOML or YAML file and opens
// them on demand. A *Set implements dbcmd.Registry, so it can be handed
// directly to generated handlers whose descriptors name a source key.
package sources

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format is the encoding of a data-source file.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// Spec describes one data source.
type Spec struct {
	Driver          string   `toml:"driver" yaml:"driver"`
	DSN             string   `toml:"dsn" yaml:"dsn"`
	MaxOpen         int      `toml:"max_open" yaml:"max_open"`
	MaxIdle         int      `toml:"max_idle" yaml:"max_idle"`
	ConnMaxLifetime Duration `toml:"conn_max_lifetime" yaml:"conn_max_lifetime"`
}

// Config is the decoded data-source file.
type Config struct {
	Default string          `toml:"default" yaml:"default"`
	Sources map[string]Spec `toml:"sources" yaml:"sources"`
}

// Duration is a time.Duration written as a Go duration string ("5m").
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.UnmarshalText([]byte(node.Value))
}

// Load reads and validates a data-source file. The format follows the file
// extension (.toml, .yaml or .yml).
func Load(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}
	var format Format
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		format = FormatTOML
	case ".yaml", ".yml":
		format = FormatYAML
	default:
		return Config{}, fmt.Errorf("%s: unsupported data-source file extension", path)
	}
	cfg, err := Parse(data, format)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes and validates data in the given format. DSN values have
// environment variables expanded.
func Parse(data []byte, format Format) (Config, error) {
	var cfg Config
	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	default:
		return Config{}, fmt.Errorf("unsupported format %q", format)
	}
	if err := cfg.normalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() error {
	if len(c.Sources) == 0 {
		return errors.New("no data sources defined")
	}
	var errs []error
	for _, name := range c.Names() {
		spec := c.Sources[name]
		driver, err := DriverName(spec.Driver)
		if err != nil {
			errs = append(errs, fmt.Errorf("source %q: %w", name, err))
			continue
		}
		spec.Driver = driver
		spec.DSN = os.ExpandEnv(spec.DSN)
		if spec.DSN == "" {
			errs = append(errs, fmt.Errorf("source %q: dsn is required", name))
		}
		if spec.MaxOpen < 0 || spec.MaxIdle < 0 {
			errs = append(errs, fmt.Errorf("source %q: pool sizes must not be negative", name))
		}
		c.Sources[name] = spec
	}
	if c.Default == "" && len(c.Sources) == 1 {
		c.Default = c.Names()[0]
	}
	if c.Default != "" {
		if _, ok := c.Sources[c.Default]; !ok {
			errs = append(errs, fmt.Errorf("default source %q is not defined", c.Default))
		}
	}
	return errors.Join(errs...)
}

// Names returns the configured source names in sorted order.
func (c Config) Names() []string {
	names := make([]string, 0, len(c.Sources))
	for name := range c.Sources {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// DriverName maps a configured driver to the database/sql driver name
// registered by this package.
func DriverName(driver string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "sqlite", "sqlite3":
		return "sqlite", nil
	case "pgx", "postgres", "postgresql":
		return "pgx", nil
	case "mysql", "mariadb":
		return "mysql", nil
	case "":
		return "", errors.New("driver is required")
	default:
		return "", fmt.Errorf("unsupported driver %q", driver)
	}
}
