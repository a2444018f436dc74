// Package cli parses the dbcmd-gen command line.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
)

// Name is the command name used in usage output.
const Name = "dbcmd-gen"

type Options struct {
	ConfigPath string
	Dialect    string
	Workers    int
	DryRun     bool
	List       bool
	Watch      bool
	Strict     bool
	NoCache    bool
	Verbose    bool
	JSON       bool
	Patterns   []string
}

// Parse parses args. An empty ConfigPath means the configuration file is
// searched for from the working directory.
func Parse(args []string) (Options, error) {
	var opts Options

	fs := flag.NewFlagSet(Name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&opts.ConfigPath, "config", "", "Path to configuration file (default: search for dbcmd.toml or dbcmd.yaml)")
	fs.StringVar(&opts.ConfigPath, "c", "", "Path to configuration file")
	fs.StringVar(&opts.Dialect, "dialect", "", "Override the database dialect (postgres, mysql, sqlite, sqlserver)")
	fs.IntVar(&opts.Workers, "workers", 0, "Number of descriptors analyzed in parallel (default: GOMAXPROCS)")
	fs.BoolVar(&opts.DryRun, "dry-run", false, "Generate code without writing files")
	fs.BoolVar(&opts.List, "list", false, "List discovered descriptors without generating code")
	fs.BoolVar(&opts.Watch, "watch", false, "Regenerate whenever sources change")
	fs.BoolVar(&opts.Strict, "strict", false, "Treat configuration warnings as errors")
	fs.BoolVar(&opts.NoCache, "no-cache", false, "Disable the artifact cache")
	fs.BoolVar(&opts.Verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&opts.Verbose, "v", false, "Enable verbose logging")
	fs.BoolVar(&opts.JSON, "json", false, "Log in JSON format")

	if err := fs.Parse(args); err != nil {
		return Options{}, fmt.Errorf("%w\n\n%s", err, Usage(fs))
	}
	if opts.Workers < 0 {
		return Options{}, fmt.Errorf("-workers must not be negative, got %d\n\n%s", opts.Workers, Usage(fs))
	}
	if opts.Watch && (opts.DryRun || opts.List) {
		return Options{}, errors.New("-watch cannot be combined with -dry-run or -list")
	}

	opts.Patterns = fs.Args()
	return opts, nil
}

func Usage(fs *flag.FlagSet) string {
	if fs == nil {
		return ""
	}
	var buf strings.Builder
	fmt.Fprintf(&buf, "Usage of %s:\n", fs.Name())
	fmt.Fprintf(&buf, "  %s [flags] [packages]\n\n", fs.Name())
	out := fs.Output()
	fs.SetOutput(&buf)
	fs.PrintDefaults()
	fs.SetOutput(out)
	return buf.String()
}
