// Package normalize canonicalizes free-text merchant descriptions so that
// two renderings of the same merchant become comparable. The canonical form
// is lowercase and stripped of store numbers, reference codes, geographic
// suffixes and processor prefixes; it is used for signature hashing and
// similarity scoring, never for display.
package normalize

import (
	"regexp"
	"strings"
)

// boilerplatePrefixes are processor or statement prefixes stripped only when
// the description starts with them.
var boilerplatePrefixes = []string{
	"tst* ",
	"sq *",
	"sp *",
	"pos ",
	"debit ",
	"credit ",
	"purchase ",
	"sale ",
	"payment ",
	"withdrawal ",
	"deposit ",
}

// noiseRule is a single ordered rewrite applied during normalization.
type noiseRule struct {
	pattern     *regexp.Regexp
	replacement string
}

// Rules run in order; Amazon-specific rewrites must run before the generic
// reference-code rule so that "amazon mktpl*X" keeps its order token.
var noiseRules = []noiseRule{
	// Amazon billing location suffix
	{regexp.MustCompile(`\s+amzn\.com/bill\s+wa\s*$`), ""},
	// Amazon format variants
	{regexp.MustCompile(`amazon mktpl\*`), "amazon "},
	{regexp.MustCompile(`amazon\.com\*`), "amazon "},
	// Reference codes like "*NK9M63AJ1"
	{regexp.MustCompile(`\*[a-z0-9]+`), ""},
	// Store numbers like "#0658"
	{regexp.MustCompile(`\s+#\d+`), ""},
	// Trailing reference numbers
	{regexp.MustCompile(`\s+\d{2,}\s*$`), ""},
	// Trailing "city ST" geographic suffixes
	{regexp.MustCompile(`\s+[a-z]+\s+wa\s*$`), ""},
	{regexp.MustCompile(`\s+[a-z]+\s+[a-z]{2}\s*$`), ""},
	// Connector tokens
	{regexp.MustCompile(`\s+&\s+`), " and "},
	// Corporate suffixes
	{regexp.MustCompile(`\s+llc\s*$`), ""},
	{regexp.MustCompile(`\s+inc\s*$`), ""},
	{regexp.MustCompile(`\s+co\s*$`), ""},
}

// Normalize turns a raw merchant description into its canonical lowercase
// form. Empty input yields an empty string.
func Normalize(description string) string {
	if description == "" {
		return ""
	}

	normalized := strings.ToLower(strings.TrimSpace(description))

	for _, prefix := range boilerplatePrefixes {
		if strings.HasPrefix(normalized, prefix) {
			normalized = strings.TrimPrefix(normalized, prefix)
			break
		}
	}

	for _, rule := range noiseRules {
		normalized = rule.pattern.ReplaceAllString(normalized, rule.replacement)
	}

	return strings.Join(strings.Fields(normalized), " ")
}

// WordSimilarity computes the Jaccard similarity of the word sets of two
// already-normalized descriptions. Returns 1.0 for two empty strings.
func WordSimilarity(a, b string) float64 {
	wordsA := strings.Fields(a)
	wordsB := strings.Fields(b)

	if len(wordsA) == 0 && len(wordsB) == 0 {
		return 1.0
	}
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0.0
	}

	setA := make(map[string]struct{}, len(wordsA))
	for _, w := range wordsA {
		setA[w] = struct{}{}
	}

	setB := make(map[string]struct{}, len(wordsB))
	for _, w := range wordsB {
		setB[w] = struct{}{}
	}

	intersection := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}
