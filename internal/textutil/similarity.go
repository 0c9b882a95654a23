package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var folder = cases.Fold()

// FoldKey returns a comparison key for label: case folded, accents removed,
// internal whitespace collapsed. Empty input yields "".
func FoldKey(label string) string {
	label = strings.Join(strings.Fields(label), " ")
	if label == "" {
		return ""
	}
	stripped, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		label,
	)
	if err != nil {
		stripped = label
	}
	return folder.String(stripped)
}

// SpellingVariant reports whether a and b are the same word written with a
// doubled letter ("Jonnathan") or one pair of adjacent letters swapped
// ("Jonahtan"). Substitutions never match: "Maria" and "Marie" differ.
func SpellingVariant(a, b string) bool {
	if a == b {
		return true
	}
	if squeeze(a) == squeeze(b) {
		return true
	}
	return adjacentSwap([]rune(a), []rune(b))
}

func squeeze(s string) string {
	var b strings.Builder
	var last rune
	for i, r := range s {
		if i > 0 && r == last {
			continue
		}
		b.WriteRune(r)
		last = r
	}
	return b.String()
}

func adjacentSwap(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	i := 0
	for i < len(a) && a[i] == b[i] {
		i++
	}
	if i+1 >= len(a) || a[i] != b[i+1] || a[i+1] != b[i] {
		return false
	}
	return string(a[i+2:]) == string(b[i+2:])
}
