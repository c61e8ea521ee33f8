package conversation

import (
	"strings"
	"unicode"
)

// replacements maps typographic characters the printer and display fonts lack
// to plain ASCII.
var replacements = map[rune]string{
	'’': "'",
	'‘': "'",
	'“': `"`,
	'”': `"`,
	'–': "-",
	'—': "-",
	'…': "...",
}

// Sanitize replaces typographic punctuation with ASCII and strips control
// characters other than newline and tab, so model output cannot inject printer
// or terminal escape sequences.
func Sanitize(s string) string {
	// Fast path: nothing to rewrite.
	clean := true
	for _, r := range s {
		if _, ok := replacements[r]; ok || isUnsafeControl(r) {
			clean = false
			break
		}
	}
	if clean {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if rep, ok := replacements[r]; ok {
			b.WriteString(rep)
			continue
		}
		if isUnsafeControl(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isUnsafeControl(r rune) bool {
	return unicode.IsControl(r) && r != '\n' && r != '\t'
}
