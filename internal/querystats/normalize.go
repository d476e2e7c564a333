package querystats

import (
	"regexp"
	"strings"
)

var (
	nonWordPattern    = regexp.MustCompile(`[^\p{L}\p{N}_\s]+`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// Normalize canonicalizes raw search text: lowercase, trim, strip
// characters that are neither word characters nor whitespace, collapse
// whitespace runs to a single space. Idempotent.
func Normalize(text string) string {
	s := strings.ToLower(text)
	s = strings.TrimSpace(s)
	s = nonWordPattern.ReplaceAllString(s, "")
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Similarity returns the Jaccard index of the two strings' distinct
// whitespace-delimited token sets. Two empty token sets score 0, not 1.
func Similarity(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)

	if len(setA) == 0 && len(setB) == 0 {
		return 0
	}

	intersection := 0
	for token := range setA {
		if _, ok := setB[token]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection

	return float64(intersection) / float64(union)
}

// AreSimilar reports whether two raw phrasings should share one query
// record. Exactly equal normalized forms always match; otherwise the
// Jaccard similarity of the normalized forms must reach the threshold.
// Symmetric in a and b.
//
// A compound word and its two-word spelling ("healthcare" vs "health
// care") share no tokens and are judged not similar. Known limitation
// of token-set similarity; callers must not rely on such pairs merging.
func AreSimilar(a, b string, threshold float64) bool {
	na := Normalize(a)
	nb := Normalize(b)

	if na == nb {
		return true
	}

	return Similarity(na, nb) >= threshold
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, token := range strings.Fields(s) {
		set[token] = struct{}{}
	}
	return set
}
