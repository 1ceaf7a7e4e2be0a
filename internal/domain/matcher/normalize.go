package matcher

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize folds a display name into its comparison form: accents removed,
// lower-cased, punctuation stripped and whitespace collapsed.
// Dashes, slashes and symbols separate words; other punctuation is dropped so
// "Schindler's" and "Schindlers" compare equal.
func Normalize(s string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range strings.ToLower(folded) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r), unicode.Is(unicode.Pd, r), unicode.IsSymbol(r), r == '/', r == '\\':
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// containsTokens reports whether every token of needle occurs in hay in order.
func containsTokens(hay, needle []string) bool {
	if len(needle) == 0 || len(needle) > len(hay) {
		return false
	}
	i := 0
	for _, tok := range hay {
		if tok == needle[i] {
			i++
			if i == len(needle) {
				return true
			}
		}
	}
	return false
}
