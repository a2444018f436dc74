// Package diagnostics carries the problems found while analyzing and
// validating descriptor types. Diagnostics are data: producers never panic or
// return errors for a descriptor problem, they append a Diagnostic.
package diagnostics

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// Severity indicates the seriousness of a diagnostic.
type Severity int

const (
	// SeverityInfo indicates an informational message.
	SeverityInfo Severity = iota
	// SeverityWarning indicates a problem that does not block generation.
	SeverityWarning
	// SeverityError blocks generation for the affected descriptor.
	SeverityError
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// Location represents a position in a source file.
type Location struct {
	Path   string
	Line   int
	Column int
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.Path, l.Line, l.Column)
}

// Suggestion is a suggested fix.
type Suggestion struct {
	Message     string
	Replacement string
}

// Diagnostic is one reported problem. Target is the qualified name of the
// descriptor type it concerns.
type Diagnostic struct {
	Severity Severity
	Code     string
	Target   string
	Message  string
	Location Location

	Context     string
	Suggestions []Suggestion
	Notes       []string
}

// HasLocation returns true if the diagnostic has a valid location.
func (d Diagnostic) HasLocation() bool {
	return d.Location.Path != "" && d.Location.Line > 0
}

// IsError returns true if the diagnostic is an error.
func (d Diagnostic) IsError() bool {
	return d.Severity == SeverityError
}

// IsWarning returns true if the diagnostic is a warning.
func (d Diagnostic) IsWarning() bool {
	return d.Severity == SeverityWarning
}

// String renders the canonical one-line form
// "path:line:col: severity: message [CODE]".
func (d Diagnostic) String() string {
	var b strings.Builder
	if d.HasLocation() {
		b.WriteString(d.Location.String())
		b.WriteString(": ")
	}
	fmt.Fprintf(&b, "%s: %s", d.Severity, d.Message)
	if d.Code != "" {
		fmt.Fprintf(&b, " [%s]", d.Code)
	}
	return b.String()
}

// Builder provides a fluent API for constructing diagnostics.
type Builder struct {
	diag Diagnostic
}

// NewBuilder creates a new diagnostic builder with the given severity and message.
func NewBuilder(severity Severity, message string) *Builder {
	return &Builder{diag: Diagnostic{Severity: severity, Message: message}}
}

// Error creates a builder for an error-level diagnostic.
func Error(code, format string, args ...any) *Builder {
	return NewBuilder(SeverityError, fmt.Sprintf(format, args...)).WithCode(code)
}

// Warning creates a builder for a warning-level diagnostic.
func Warning(code, format string, args ...any) *Builder {
	return NewBuilder(SeverityWarning, fmt.Sprintf(format, args...)).WithCode(code)
}

// WithCode sets the diagnostic code.
func (b *Builder) WithCode(code string) *Builder {
	b.diag.Code = code
	return b
}

// For sets the target descriptor.
func (b *Builder) For(target string) *Builder {
	b.diag.Target = target
	return b
}

// At sets the location.
func (b *Builder) At(path string, line, column int) *Builder {
	b.diag.Location = Location{Path: path, Line: line, Column: column}
	return b
}

// AtLocation sets the location from a Location struct.
func (b *Builder) AtLocation(loc Location) *Builder {
	b.diag.Location = loc
	return b
}

// WithContext sets the source snippet.
func (b *Builder) WithContext(context string) *Builder {
	b.diag.Context = context
	return b
}

// WithSuggestion adds a suggestion.
func (b *Builder) WithSuggestion(message, replacement string) *Builder {
	b.diag.Suggestions = append(b.diag.Suggestions, Suggestion{Message: message, Replacement: replacement})
	return b
}

// WithNote adds a note.
func (b *Builder) WithNote(note string) *Builder {
	b.diag.Notes = append(b.diag.Notes, note)
	return b
}

// Build returns the constructed diagnostic.
func (b *Builder) Build() Diagnostic {
	return b.diag
}

// Collection holds a set of diagnostics.
type Collection struct {
	diagnostics []Diagnostic
}

// NewCollection creates a new empty diagnostic collection.
func NewCollection(diags ...Diagnostic) *Collection {
	return &Collection{diagnostics: append(make([]Diagnostic, 0, len(diags)), diags...)}
}

// Add appends diagnostics to the collection.
func (c *Collection) Add(d ...Diagnostic) {
	c.diagnostics = append(c.diagnostics, d...)
}

// HasErrors returns true if the collection contains any errors.
func (c *Collection) HasErrors() bool {
	return HasErrors(c.diagnostics)
}

// Errors returns all error-level diagnostics.
func (c *Collection) Errors() []Diagnostic {
	return c.Filter(Diagnostic.IsError)
}

// Warnings returns all warning-level diagnostics.
func (c *Collection) Warnings() []Diagnostic {
	return c.Filter(Diagnostic.IsWarning)
}

// All returns all diagnostics.
func (c *Collection) All() []Diagnostic {
	return slices.Clone(c.diagnostics)
}

// Len returns the number of diagnostics.
func (c *Collection) Len() int {
	return len(c.diagnostics)
}

// Filter returns diagnostics matching the given predicate.
func (c *Collection) Filter(predicate func(Diagnostic) bool) []Diagnostic {
	var result []Diagnostic
	for _, d := range c.diagnostics {
		if predicate(d) {
			result = append(result, d)
		}
	}
	return result
}

// SortByLocation orders diagnostics by path, line, column and code.
func (c *Collection) SortByLocation() {
	slices.SortStableFunc(c.diagnostics, func(a, b Diagnostic) int {
		return cmp.Or(
			cmp.Compare(a.Location.Path, b.Location.Path),
			cmp.Compare(a.Location.Line, b.Location.Line),
			cmp.Compare(a.Location.Column, b.Location.Column),
			cmp.Compare(a.Code, b.Code),
		)
	})
}

// Summary provides a quick overview of diagnostics.
type Summary struct {
	Total    int
	Errors   int
	Warnings int
	Infos    int
}

// Summary returns a summary of the diagnostics collection.
func (c *Collection) Summary() Summary {
	s := Summary{Total: len(c.diagnostics)}
	for _, d := range c.diagnostics {
		switch d.Severity {
		case SeverityError:
			s.Errors++
		case SeverityWarning:
			s.Warnings++
		case SeverityInfo:
			s.Infos++
		}
	}
	return s
}

// HasErrors reports whether diags contains an error-level diagnostic.
func HasErrors(diags []Diagnostic) bool {
	return slices.ContainsFunc(diags, Diagnostic.IsError)
}

// Diagnostic codes. Codes are stable; new codes are only appended.
const (
	// CodeNonQueryShape: nonquery declared for a result that is not an
	// integral scalar.
	CodeNonQueryShape = "DG-001"
	// CodeMissingContract: a command source without a result contract.
	CodeMissingContract = "DG-002"
	// CodeMultipleSources: more than one of proc, sql and func.
	CodeMultipleSources = "DG-003"
	// CodeDuplicateParam: two properties resolve to the same parameter name.
	CodeDuplicateParam = "DG-004"
	// CodeMalformedDirective: the directive or a param tag does not parse.
	CodeMalformedDirective = "DG-005"
	// CodeUnsupportedDecl: the directive is on something other than a
	// package-level struct type.
	CodeUnsupportedDecl = "DG-006"
	// CodeDialectSource: the target dialect cannot issue the source kind.
	CodeDialectSource = "DG-007"
	// CodeMultipleContracts: more than one result contract marker embedded.
	CodeMultipleContracts = "DG-008"
)

var codeDescriptions = map[string]string{
	CodeNonQueryShape:      "NonQuery requires an integral scalar result",
	CodeMissingContract:    "Command source without a result contract",
	CodeMultipleSources:    "More than one command source declared",
	CodeDuplicateParam:     "Duplicate parameter name",
	CodeMalformedDirective: "Malformed directive",
	CodeUnsupportedDecl:    "Unsupported declaration",
	CodeDialectSource:      "Source kind not supported by dialect",
	CodeMultipleContracts:  "More than one result contract",
}

// CodeDescription returns a human-readable description for a code.
func CodeDescription(code string) string {
	if desc, ok := codeDescriptions[code]; ok {
		return desc
	}
	return "Unknown diagnostic code"
}
