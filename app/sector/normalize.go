package sector

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NoiseWords are removed as whole words by Clean. Multi-word entries must come
// before any single word they contain.
var NoiseWords = []string{
	"la estrella",
	"barrio",
	"sector",
	"ubicacion",
	"medellin",
	"envigado",
	"itagui",
	"sabaneta",
	"municipio",
	"ciudad",
	"comuna",
}

var (
	noisePattern  = compileNoise(NoiseWords)
	nonAlnumRun   = regexp.MustCompile(`[^a-z0-9]+`)
	whitespaceRun = regexp.MustCompile(`\s+`)
)

func compileNoise(words []string) *regexp.Regexp {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

// Fold lowercases text and strips diacritics.
func Fold(text string) string {
	if text == "" {
		return ""
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.ToLower(text))
	if err != nil {
		return strings.ToLower(text)
	}
	return folded
}

// Clean normalizes a free-text location for comparison: folded,
// non-alphanumeric runs collapsed to single spaces, then noise words removed.
// Example: "Barrio Belén, Medellín" -> "belen"
func Clean(text string) string {
	s := Fold(text)
	if s == "" {
		return ""
	}
	s = nonAlnumRun.ReplaceAllString(s, " ")
	s = noisePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// Words collapses folded text into space-separated alphanumeric words without
// removing noise words.
func Words(text string) string {
	return strings.TrimSpace(nonAlnumRun.ReplaceAllString(Fold(text), " "))
}

// ContainsWords reports whether needle occurs in haystack on word boundaries.
// Both arguments must already be space-normalized.
func ContainsWords(haystack, needle string) bool {
	if haystack == "" || needle == "" {
		return false
	}
	return strings.Contains(" "+haystack+" ", " "+needle+" ")
}
