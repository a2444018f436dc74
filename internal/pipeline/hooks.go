package pipeline

import (
	"context"

	"github.com/electwix/dbcmd/internal/analyzer"
	"github.com/electwix/dbcmd/internal/codegen"
	"github.com/electwix/dbcmd/internal/descriptor"
)

// Hooks provides extension points in the pipeline execution.
// Each hook is called at a specific stage and can modify behavior or perform side effects.
type Hooks struct {
	// AfterLoad is called once packages are loaded.
	// Return an error to abort the pipeline.
	AfterLoad func(ctx context.Context, pkgs []*analyzer.Package) error

	// AfterAnalyze is called with every analyzed descriptor, including those
	// with error diagnostics.
	// Return an error to abort the pipeline.
	AfterAnalyze func(ctx context.Context, cmds []descriptor.Command) error

	// AfterGenerate is called after code is rendered. It is skipped by list
	// runs.
	// Return an error to abort the pipeline.
	AfterGenerate func(ctx context.Context, files []codegen.File) error

	// BeforeWrite is called before writing files. It is skipped by dry runs.
	// Return an error to abort the pipeline.
	BeforeWrite func(ctx context.Context, files []codegen.File) error

	// AfterWrite is called with the final summary.
	// This is the final hook, called even if earlier stages failed.
	AfterWrite func(ctx context.Context, summary Summary) error
}

// Chain combines two Hooks, calling h's hooks first, then other's hooks.
// If a hook in h returns an error, other's hook is not called.
func (h Hooks) Chain(other Hooks) Hooks {
	return Hooks{
		AfterLoad:     chainHook(h.AfterLoad, other.AfterLoad),
		AfterAnalyze:  chainHook(h.AfterAnalyze, other.AfterAnalyze),
		AfterGenerate: chainHook(h.AfterGenerate, other.AfterGenerate),
		BeforeWrite:   chainHook(h.BeforeWrite, other.BeforeWrite),
		AfterWrite:    chainHook(h.AfterWrite, other.AfterWrite),
	}
}

// chainHook chains two hooks of the same type.
func chainHook[T any](first, second func(context.Context, T) error) func(context.Context, T) error {
	if first == nil {
		return second
	}
	if second == nil {
		return first
	}
	return func(ctx context.Context, arg T) error {
		if err := first(ctx, arg); err != nil {
			return err
		}
		return second(ctx, arg)
	}
}

// NoHooks returns a Hooks with all nil functions (no-op).
func NoHooks() Hooks {
	return Hooks{}
}
