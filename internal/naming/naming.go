// Package naming converts Go identifiers between naming conventions.
package naming

import (
	"go/token"
	"strings"
	"unicode"
	"unicode/utf8"
)

const goKeywordSuffix = "_"

// ToSnakeCase converts an identifier such as "APIName" into "api_name".
//
// A separator is written before an uppercase rune when the previous rune is
// lowercase or a digit, or when the previous rune is uppercase and the next
// one is lowercase (the end of an acronym). Uppercase runes are lowercased and
// every other rune is copied as is, so the function is idempotent.
func ToSnakeCase(s string) string {
	return convert(s, '_')
}

// ToKebabCase is ToSnakeCase with '-' as the separator.
func ToKebabCase(s string) string {
	return convert(s, '-')
}

func convert(s string, sep byte) string {
	if !hasUpper(s) {
		return s
	}
	n, grow := scan(s)

	var b strings.Builder
	b.Grow(len(s) + n + grow)
	walk(s, func(r rune, raw string, boundary bool) {
		switch {
		case r == utf8.RuneError && len(raw) == 1:
			b.WriteString(raw)
		case isUpper(r):
			if boundary {
				b.WriteByte(sep)
			}
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteString(raw)
		}
	})
	return b.String()
}

// scan counts separators and the extra bytes needed when lowercasing changes
// the encoded width of a rune.
func scan(s string) (separators, grow int) {
	walk(s, func(r rune, raw string, boundary bool) {
		if !isUpper(r) {
			return
		}
		if boundary {
			separators++
		}
		if d := utf8.RuneLen(unicode.ToLower(r)) - len(raw); d > 0 {
			grow += d
		}
	})
	return separators, grow
}

// walk visits every rune of s together with its raw encoding and whether a
// word boundary precedes it.
func walk(s string, visit func(r rune, raw string, boundary bool)) {
	prev := rune(-1)
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		next := rune(-1)
		if i+size < len(s) {
			next, _ = utf8.DecodeRuneInString(s[i+size:])
		}
		boundary := false
		if prev >= 0 && isUpper(r) {
			switch {
			case unicode.IsLower(prev) || unicode.IsDigit(prev):
				boundary = true
			case isUpper(prev) && next >= 0 && unicode.IsLower(next):
				boundary = true
			}
		}
		visit(r, s[i:i+size], boundary)
		prev = r
		i += size
	}
}

// isUpper reports uppercase runes that actually change when lowercased.
func isUpper(r rune) bool {
	return unicode.IsUpper(r) && unicode.ToLower(r) != r
}

func hasUpper(s string) bool {
	for _, r := range s {
		if isUpper(r) {
			return true
		}
	}
	return false
}

// Exported converts raw input into a public Go identifier.
func Exported(raw string) string {
	return identifier(raw, true, "X")
}

// Unexported converts raw input into a private Go identifier.
func Unexported(raw string) string {
	return identifier(raw, false, "value")
}

func identifier(raw string, exported bool, fallback string) string {
	ident := joinSegments(splitSegments(raw), exported)
	if ident == "" {
		ident = fallback
	}
	if token.Lookup(ident).IsKeyword() {
		ident += goKeywordSuffix
	}
	return ident
}

// FileName converts a type name into a snake_case file name segment.
func FileName(raw string) string {
	segments := splitSegments(raw)
	for i := range segments {
		segments[i] = strings.ToLower(segments[i])
	}
	name := strings.Join(segments, "_")
	if name == "" {
		return "command"
	}
	return name
}

// ReceiverName returns the conventional one letter receiver for a type name.
func ReceiverName(typeName string) string {
	r, _ := utf8.DecodeRuneInString(typeName)
	if r == utf8.RuneError || !unicode.IsLetter(r) {
		return "recv"
	}
	return string(unicode.ToLower(r))
}

func joinSegments(segments []string, exported bool) string {
	var b strings.Builder
	for i, seg := range segments {
		if i == 0 && !exported {
			b.WriteString(strings.ToLower(seg))
			continue
		}
		if isAcronym(seg) {
			b.WriteString(strings.ToUpper(seg))
			continue
		}
		r, size := utf8.DecodeRuneInString(seg)
		b.WriteRune(unicode.ToUpper(r))
		b.WriteString(seg[size:])
	}
	ident := b.String()
	if ident == "" {
		return ident
	}
	if r, _ := utf8.DecodeRuneInString(ident); !unicode.IsLetter(r) && r != '_' {
		if exported {
			return "X" + ident
		}
		return "x" + ident
	}
	return ident
}

// isAcronym reports segments that were written fully uppercase, such as "ID".
func isAcronym(seg string) bool {
	if utf8.RuneCountInString(seg) < 2 {
		return false
	}
	for _, r := range seg {
		if unicode.IsLetter(r) && !unicode.IsUpper(r) {
			return false
		}
	}
	return true
}

func splitSegments(raw string) []string {
	parts := make([]string, 0, 4)
	var buf strings.Builder
	runes := []rune(raw)
	flush := func() {
		if buf.Len() > 0 {
			parts = append(parts, buf.String())
			buf.Reset()
		}
	}
	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			continue
		}
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			switch {
			case unicode.IsLower(prev) || unicode.IsDigit(prev):
				flush()
			case unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1]):
				flush()
			}
		}
		buf.WriteRune(r)
	}
	flush()
	return parts
}
