package tui

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FieldLabel turns a field path into a display label:
// owners[0].firstName becomes "Owners 1 / First Name".
func FieldLabel(path string) string {
	caser := cases.Title(language.English, cases.NoLower)

	segments := strings.Split(path, ".")
	parts := make([]string, 0, len(segments))
	for _, segment := range segments {
		name, suffix := segment, ""
		if idx := strings.IndexByte(segment, '['); idx >= 0 {
			name = segment[:idx]
			suffix = indexSuffix(segment[idx:])
		}
		label := caser.String(strings.Join(splitWords(name), " "))
		parts = append(parts, strings.TrimSpace(label+suffix))
	}
	return strings.Join(parts, " / ")
}

// indexSuffix renders "[0][1]" as " 1 2" (1-based).
func indexSuffix(brackets string) string {
	var b strings.Builder
	for _, raw := range strings.Split(strings.Trim(brackets, "[]"), "][") {
		b.WriteString(" ")
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			b.WriteString(raw)
			continue
		}
		b.WriteString(strconv.Itoa(n + 1))
	}
	return b.String()
}

// splitWords breaks camelCase, snake_case and kebab-case identifiers.
func splitWords(name string) []string {
	var words []string
	var current []rune
	flush := func() {
		if len(current) > 0 {
			words = append(words, string(current))
			current = current[:0]
		}
	}
	runes := []rune(name)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || unicode.IsSpace(r):
			flush()
		case unicode.IsUpper(r) && i > 0 && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]) && unicode.IsUpper(runes[i-1]))):
			flush()
			current = append(current, r)
		default:
			current = append(current, r)
		}
	}
	flush()
	return words
}
