// Package normalize canonicalizes free-text identifiers and names for
// matching. All functions are pure, total, and idempotent: re-normalizing
// normalized output is a no-op.
package normalize

import (
	"strings"
	"unicode"
)

// Identifier canonicalizes an identifier for exact-key lookup: every
// character that is not a letter or digit is stripped and the remainder is
// upper-cased. Blank input yields "". No Unicode folding beyond
// upper-casing is applied.
func Identifier(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}

// Name canonicalizes a person name for fuzzy comparison: lower-cased,
// trimmed, interior whitespace collapsed to single spaces. Punctuation is
// preserved so similarity scoring still sees initials and hyphens.
func Name(s string) string {
	fields := strings.Fields(strings.ToLower(s))
	return strings.Join(fields, " ")
}
