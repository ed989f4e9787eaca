package scoring

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize folds free text into a comparison key: Turkish lower-casing, diacritics removed,
// dotless i folded to i, and underscores, hyphens and whitespace dropped.
// "D-Dimer", "d dimer" and "D_DİMER" all normalize to "ddimer".
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	// Casers and transformers keep state; build them per call.
	lowered := cases.Lower(language.Turkish).String(s)
	stripper := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(stripper, lowered)
	if err != nil {
		stripped = lowered
	}

	var b strings.Builder
	b.Grow(len(stripped))
	for _, r := range stripped {
		switch {
		case r == '_' || r == '-' || unicode.IsSpace(r):
		case r == 'ı':
			b.WriteRune('i')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// drugName strips a trailing dose parenthetical: "Aspirin (300 mg)" -> "Aspirin".
func drugName(key string) string {
	trimmed := strings.TrimSpace(key)
	if !strings.HasSuffix(trimmed, ")") {
		return trimmed
	}
	if i := strings.LastIndex(trimmed, "("); i > 0 {
		return strings.TrimSpace(trimmed[:i])
	}
	return trimmed
}
