package naming

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Casing is an identifier casing convention.
type Casing uint8

const (
	// CaseKeep leaves the IR spelling untouched.
	CaseKeep Casing = iota
	CaseSnake
	CaseScreaming
	CasePascal
	CaseCamel
)

func (c Casing) String() string {
	switch c {
	case CaseSnake:
		return "snake"
	case CaseScreaming:
		return "screaming"
	case CasePascal:
		return "pascal"
	case CaseCamel:
		return "camel"
	default:
		return "keep"
	}
}

// Apply converts s to the casing.
func (c Casing) Apply(s string) string {
	switch c {
	case CaseSnake:
		return Snake(s)
	case CaseScreaming:
		return Screaming(s)
	case CasePascal:
		return Pascal(s)
	case CaseCamel:
		return Camel(s)
	default:
		return s
	}
}

// Words splits an identifier into lower-case words. Separators are '_', '-',
// ':' and spaces; case changes split too, keeping acronyms together
// ("HTTPSConnection" -> https, connection). Digits stick to the preceding
// word ("Vec3", "u32").
func Words(s string) []string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}
	runes := []rune(s)
	for i, r := range runes {
		if r == '_' || r == '-' || r == ':' || unicode.IsSpace(r) {
			flush()
			continue
		}
		if i > 0 && unicode.IsUpper(r) && len(cur) > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()
	return words
}

// Snake converts to snake_case.
func Snake(s string) string {
	return strings.Join(Words(s), "_")
}

// Screaming converts to SCREAMING_SNAKE_CASE.
func Screaming(s string) string {
	return strings.ToUpper(Snake(s))
}

// Pascal converts to PascalCase.
func Pascal(s string) string {
	// a Caser keeps state between calls and is not shared across goroutines
	title := cases.Title(language.Und)
	var b strings.Builder
	for _, w := range Words(s) {
		b.WriteString(title.String(w))
	}
	return b.String()
}

// Camel converts to camelCase.
func Camel(s string) string {
	words := Words(s)
	if len(words) == 0 {
		return ""
	}
	title := cases.Title(language.Und)
	var b strings.Builder
	b.WriteString(words[0])
	for _, w := range words[1:] {
		b.WriteString(title.String(w))
	}
	return b.String()
}

// StripServicePrefix drops the snake-case service name from a member
// function name: ("SimpleService", "simple_service_method_value") ->
// "method_value". Names without the full prefix are returned unchanged.
func StripServicePrefix(service, fn string) string {
	prefix := Snake(service) + "_"
	if prefix == "_" || !strings.HasPrefix(fn, prefix) || len(fn) == len(prefix) {
		return fn
	}
	return fn[len(prefix):]
}

// Sanitize replaces characters that are not valid in identifiers of any
// supported target and guards a leading digit.
func Sanitize(s string) string {
	if s == "" {
		return "_"
	}
	var b strings.Builder
	for i, r := range s {
		switch {
		case r == '_' || r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			if i == 0 && unicode.IsDigit(r) {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
