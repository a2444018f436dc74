package diagnostics

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Formatter formats diagnostics for display.
type Formatter struct {
	// ShowContext controls whether to display code snippets.
	ShowContext bool
	// ShowSuggestions controls whether to display suggestions.
	ShowSuggestions bool
	// ShowNotes controls whether to display notes.
	ShowNotes bool
	// ShowCode controls whether to display diagnostic codes.
	ShowCode bool
	// ShowCodeDescription controls whether to display code descriptions.
	ShowCodeDescription bool
	// Colorize controls whether to emit terminal colors.
	Colorize bool
}

// NewFormatter creates a new formatter with default settings.
func NewFormatter() *Formatter {
	return &Formatter{
		ShowContext:     true,
		ShowSuggestions: true,
		ShowNotes:       true,
		ShowCode:        true,
	}
}

// NewVerboseFormatter creates a formatter with all options enabled.
func NewVerboseFormatter() *Formatter {
	return &Formatter{
		ShowContext:         true,
		ShowSuggestions:     true,
		ShowNotes:           true,
		ShowCode:            true,
		ShowCodeDescription: true,
		Colorize:            true,
	}
}

// Format formats a single diagnostic as a string.
func (f *Formatter) Format(d Diagnostic) string {
	var b strings.Builder
	f.formatDiagnostic(&b, d)
	return b.String()
}

// FormatAll formats all diagnostics in a collection.
func (f *Formatter) FormatAll(c *Collection) string {
	var b strings.Builder
	for _, d := range c.All() {
		f.formatDiagnostic(&b, d)
	}
	return b.String()
}

// WriteAll writes all diagnostics in a collection to the writer.
func (f *Formatter) WriteAll(w io.Writer, c *Collection) error {
	_, err := io.WriteString(w, f.FormatAll(c))
	return err
}

// PrintSummary prints a summary of diagnostics.
func (f *Formatter) PrintSummary(w io.Writer, c *Collection) {
	summary := c.Summary()
	if summary.Total == 0 {
		return
	}

	parts := make([]string, 0, 3)
	if summary.Errors > 0 {
		parts = append(parts, f.colorize(fmt.Sprintf("%d error(s)", summary.Errors), color.FgRed))
	}
	if summary.Warnings > 0 {
		parts = append(parts, f.colorize(fmt.Sprintf("%d warning(s)", summary.Warnings), color.FgYellow))
	}
	if summary.Infos > 0 {
		parts = append(parts, f.colorize(fmt.Sprintf("%d info(s)", summary.Infos), color.FgBlue))
	}
	_, _ = fmt.Fprintf(w, "%s\n", strings.Join(parts, ", "))
}

func (f *Formatter) formatDiagnostic(b *strings.Builder, d Diagnostic) {
	if d.HasLocation() {
		fmt.Fprintf(b, "%s: ", f.colorize(d.Location.String(), color.FgCyan))
	}

	severity := f.colorize(d.Severity.String(), f.severityColor(d.Severity), color.Bold)
	fmt.Fprintf(b, "%s: %s", severity, d.Message)

	if f.ShowCode && d.Code != "" {
		fmt.Fprintf(b, " %s", f.colorize("["+d.Code+"]", color.FgMagenta))
		if f.ShowCodeDescription {
			if desc, ok := codeDescriptions[d.Code]; ok {
				fmt.Fprintf(b, " (%s)", desc)
			}
		}
	}
	b.WriteString("\n")

	if f.ShowContext && d.Context != "" {
		for _, line := range strings.Split(strings.TrimRight(d.Context, "\n"), "\n") {
			fmt.Fprintf(b, "  %s %s\n", f.colorize("-->", color.FgBlue), line)
		}
	}

	if f.ShowSuggestions {
		for _, sugg := range d.Suggestions {
			fmt.Fprintf(b, "  %s %s\n", f.colorize("help:", color.FgGreen), sugg.Message)
			if sugg.Replacement != "" {
				fmt.Fprintf(b, "    %s %s\n", f.colorize("=>", color.FgGreen), sugg.Replacement)
			}
		}
	}

	if f.ShowNotes {
		for _, note := range d.Notes {
			fmt.Fprintf(b, "  %s %s\n", f.colorize("note:", color.FgBlue), note)
		}
	}
}

func (f *Formatter) severityColor(s Severity) color.Attribute {
	switch s {
	case SeverityError:
		return color.FgRed
	case SeverityWarning:
		return color.FgYellow
	default:
		return color.FgBlue
	}
}

func (f *Formatter) colorize(s string, attrs ...color.Attribute) string {
	if !f.Colorize {
		return s
	}
	c := color.New(attrs...)
	c.EnableColor()
	return c.Sprint(s)
}
