package diagnostics

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// ContextExtractor reads source lines around a location. It caches file
// contents and is safe for concurrent use.
type ContextExtractor struct {
	mu    sync.Mutex
	cache map[string][]string
}

// NewContextExtractor creates a new context extractor.
func NewContextExtractor() *ContextExtractor {
	return &ContextExtractor{cache: make(map[string][]string)}
}

// Context represents extracted code context.
type Context struct {
	Lines       []string
	StartLine   int
	ErrorLine   int
	ErrorColumn int
}

// Extract returns up to contextLines lines on each side of loc.
func (e *ContextExtractor) Extract(loc Location, contextLines int) (Context, error) {
	lines, err := e.lines(loc.Path)
	if err != nil {
		return Context{}, err
	}
	if loc.Line < 1 || loc.Line > len(lines) {
		return Context{}, fmt.Errorf("line %d out of range [1, %d]", loc.Line, len(lines))
	}
	start := max(loc.Line-contextLines, 1)
	end := min(loc.Line+contextLines, len(lines))
	return Context{
		Lines:       lines[start-1 : end],
		StartLine:   start,
		ErrorLine:   loc.Line,
		ErrorColumn: loc.Column,
	}, nil
}

// Attach fills the Context of every located diagnostic that has none.
// Unreadable files are skipped.
func (e *ContextExtractor) Attach(diags []Diagnostic, contextLines int) {
	for i := range diags {
		if diags[i].Context != "" || !diags[i].HasLocation() {
			continue
		}
		ctx, err := e.Extract(diags[i].Location, contextLines)
		if err != nil {
			continue
		}
		diags[i].Context = ctx.Format()
	}
}

func (e *ContextExtractor) lines(path string) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if lines, ok := e.cache[path]; ok {
		return lines, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}
	lines := splitLines(content)
	e.cache[path] = lines
	return lines, nil
}

func splitLines(data []byte) []string {
	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}

// Format renders the context with line numbers and a caret under the column.
func (c Context) Format() string {
	if len(c.Lines) == 0 {
		return ""
	}

	var b strings.Builder
	width := len(strconv.Itoa(c.StartLine + len(c.Lines) - 1))
	for i, line := range c.Lines {
		num := c.StartLine + i
		marker := " "
		if num == c.ErrorLine {
			marker = ">"
		}
		fmt.Fprintf(&b, "%s %*d | %s\n", marker, width, num, line)

		if num == c.ErrorLine && c.ErrorColumn > 0 {
			b.WriteString(strings.Repeat(" ", width+5))
			for j := 0; j < c.ErrorColumn-1 && j < len(line); j++ {
				if line[j] == '\t' {
					b.WriteByte('\t')
				} else {
					b.WriteByte(' ')
				}
			}
			b.WriteString("^\n")
		}
	}
	return b.String()
}
