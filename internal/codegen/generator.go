package codegen

import (
	"context"
	"slices"
	"strings"

	"github.com/electwix/dbcmd/internal/descriptor"
	"github.com/electwix/dbcmd/internal/engine"
)

// Options configures a Generator.
type Options struct {
	Engine        engine.Engine
	MapperSuffix  string
	HandlerSuffix string
}

// Generator renders every artifact of a descriptor.
type Generator struct {
	mapper  MapperWriter
	handler HandlerWriter
}

// New returns a Generator for opts.
func New(opts Options) *Generator {
	return &Generator{
		mapper:  MapperWriter{Suffix: opts.MapperSuffix},
		handler: HandlerWriter{Engine: opts.Engine, Suffix: opts.HandlerSuffix},
	}
}

// Generate renders the mapper and handler files of d, sorted by path. Callers
// gate on diagnostics first; d is assumed valid.
func (g *Generator) Generate(ctx context.Context, d descriptor.Command) ([]File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	files := make([]File, 0, 2)

	mapper, ok, err := g.mapper.Write(d)
	if err != nil {
		return nil, err
	}
	if ok {
		files = append(files, mapper)
	}

	handler, ok, err := g.handler.Write(d)
	if err != nil {
		return nil, err
	}
	if ok {
		files = append(files, handler)
	}

	slices.SortFunc(files, func(a, b File) int { return strings.Compare(a.Path, b.Path) })
	return files, nil
}

// IsGenerated reports whether content starts with the generated-file header.
// Build constraints and blank lines may not precede it.
func IsGenerated(content []byte) bool {
	return strings.HasPrefix(string(content), "// "+Header)
}
