// Command dbcmd-gen generates parameter mappers and handlers for annotated
// descriptor types. It is meant to run from a //go:generate directive:
//
//	//go:generate go run github.com/electwix/dbcmd/cmd/dbcmd-gen
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"

	"github.com/electwix/dbcmd/internal/cli"
	"github.com/electwix/dbcmd/internal/descriptor"
	"github.com/electwix/dbcmd/internal/diagnostics"
	"github.com/electwix/dbcmd/internal/logging"
	"github.com/electwix/dbcmd/internal/pipeline"
	"github.com/electwix/dbcmd/internal/watch"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	a := &app{stdout: os.Stdout, stderr: os.Stderr, colorize: !color.NoColor}
	code := a.run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

type app struct {
	stdout, stderr io.Writer
	colorize       bool
	// loader replaces the go/packages loader in tests.
	loader pipeline.Loader
}

func (a *app) run(ctx context.Context, args []string) int {
	opts, err := cli.Parse(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			_, _ = fmt.Fprintln(a.stdout, err.Error())
			return 0
		}
		_, _ = fmt.Fprintln(a.stderr, err.Error())
		return 1
	}

	logger := logging.New(logging.Options{
		Verbose: opts.Verbose,
		JSON:    opts.JSON,
		Writer:  a.stderr,
	})

	pipe := pipeline.Pipeline{Env: pipeline.Environment{
		Loader: a.loader,
		Logger: logger,
		Writer: pipeline.NewOSWriter(),
	}}
	runOpts := pipeline.RunOptions{
		ConfigPath: opts.ConfigPath,
		Patterns:   opts.Patterns,
		Dialect:    opts.Dialect,
		Workers:    opts.Workers,
		DryRun:     opts.DryRun,
		List:       opts.List,
		Strict:     opts.Strict,
		NoCache:    opts.NoCache,
	}

	if opts.Watch {
		w := &watch.Watcher{
			Logger: logger,
			Run: func(ctx context.Context) (pipeline.Summary, error) {
				summary, err := pipe.Run(ctx, runOpts)
				a.printDiagnostics(summary.Diagnostics, opts.Verbose)
				return summary, err
			},
		}
		if err := w.Watch(ctx); err != nil {
			_, _ = fmt.Fprintln(a.stderr, err.Error())
			return 1
		}
		return 0
	}

	summary, runErr := pipe.Run(ctx, runOpts)
	a.printDiagnostics(summary.Diagnostics, opts.Verbose)

	if runErr != nil {
		var diagErr *pipeline.DiagnosticsError
		if !errors.As(runErr, &diagErr) {
			_, _ = fmt.Fprintln(a.stderr, runErr.Error())
		}
		var writeErr *pipeline.WriteError
		if errors.As(runErr, &writeErr) {
			return 2
		}
		return 1
	}

	if opts.List {
		printCommands(a.stdout, summary)
		return 0
	}

	if opts.DryRun {
		for _, file := range summary.Files {
			_, _ = fmt.Fprintln(a.stdout, file.Path)
		}
		for _, path := range summary.Removed {
			_, _ = fmt.Fprintln(a.stdout, "remove "+path)
		}
	}
	return 0
}

func (a *app) printDiagnostics(diags []diagnostics.Diagnostic, verbose bool) {
	if len(diags) == 0 {
		return
	}
	f := diagnostics.NewFormatter()
	f.Colorize = a.colorize
	if verbose {
		f.ShowCodeDescription = true
		diagnostics.NewContextExtractor().Attach(diags, 1)
	}
	c := diagnostics.NewCollection(diags...)
	_ = f.WriteAll(a.stderr, c)
	f.PrintSummary(a.stderr, c)
}

func printCommands(w io.Writer, summary pipeline.Summary) {
	_, _ = fmt.Fprintf(w, "dialect %s (driver %s)\n", summary.Dialect, summary.Driver)
	for _, cmd := range summary.Commands {
		local := cmd.Package().Path
		result := "no result"
		if cmd.Contract != descriptor.ContractNoResult {
			result = cmd.Result.Type.Format(local)
		}
		source := cmd.Source.Kind.String()
		if cmd.Source.Text != "" {
			source += " " + cmd.Source.Text
		}
		_, _ = fmt.Fprintf(w, "%s %s %s -> %s %s\n", cmd.QualifiedName, cmd.Contract, source, result, formatParams(cmd.Properties, local))
	}
}

func formatParams(props []descriptor.Property, local string) string {
	if len(props) == 0 {
		return "params: none"
	}
	parts := make([]string, 0, len(props))
	for _, p := range props {
		parts = append(parts, p.Param+":"+p.Type.Format(local))
	}
	return "params: " + strings.Join(parts, ", ")
}
