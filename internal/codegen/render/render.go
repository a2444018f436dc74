// Package render turns jennifer files into formatted Go source.
package render

import (
	"bytes"
	"fmt"

	"github.com/dave/jennifer/jen"
	"golang.org/x/tools/imports"
)

// Spec describes a generated file to render.
type Spec struct {
	Path string
	File *jen.File
}

// File contains the rendered Go source for a path.
type File struct {
	Path    string
	Content []byte
}

var processOptions = &imports.Options{
	Comments:   true,
	TabIndent:  true,
	TabWidth:   8,
	FormatOnly: true,
}

// Render renders one spec and runs it through goimports. Imports are never
// added or removed: jennifer already tracks every qualified reference.
func Render(spec Spec) (File, error) {
	if spec.File == nil {
		return File{}, fmt.Errorf("render %s: nil file", spec.Path)
	}
	var buf bytes.Buffer
	if err := spec.File.Render(&buf); err != nil {
		return File{}, fmt.Errorf("render %s: %w", spec.Path, err)
	}
	formatted, err := imports.Process(spec.Path, buf.Bytes(), processOptions)
	if err != nil {
		return File{}, fmt.Errorf("goimports %s: %w", spec.Path, err)
	}
	return File{Path: spec.Path, Content: formatted}, nil
}

// Format renders all specs in order.
func Format(specs []Spec) ([]File, error) {
	rendered := make([]File, 0, len(specs))
	for _, spec := range specs {
		f, err := Render(spec)
		if err != nil {
			return nil, err
		}
		rendered = append(rendered, f)
	}
	return rendered, nil
}
