// Package textnorm builds comparison keys from free-form labels typed by
// people: statuses, category names and reservation descriptions.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// asciiFold decomposes runes and keeps only their ASCII part, so "é"
// becomes "e" and symbols outside ASCII vanish.
var asciiFold = transform.Chain(
	norm.NFKD,
	runes.Remove(runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })),
)

// Normalize returns the comparison key of s: accents stripped, lower
// case, whitespace runs collapsed to one space and ends trimmed.
// Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	folded, _, err := transform.String(asciiFold, s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

// ContainsAny reports whether the normalized text contains one of terms.
// Terms are expected to already be normalized.
func ContainsAny(normalized string, terms ...string) bool {
	for _, t := range terms {
		if t != "" && strings.Contains(normalized, t) {
			return true
		}
	}
	return false
}
