// ABOUTME: Multi-metric fuzzy text similarity for near-duplicate detection
// ABOUTME: Weighted blend of token Jaccard, edit distance, and word containment
package engine

import (
	"strings"
	"unicode"
)

// Metric weights; they sum to 1 so the result stays in [0,1]
const (
	weightJaccard     = 0.4
	weightEditDist    = 0.3
	weightContainment = 0.3
)

// significantWordMinLen filters out short stopword-ish tokens
const significantWordMinLen = 3

// Similarity scores how alike two fact texts are, in [0,1]. Pure function;
// callers are expected to pre-filter candidates before invoking it.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	score := weightJaccard*tokenJaccard(a, b) +
		weightEditDist*editSimilarity(a, b) +
		weightContainment*containment(a, b)

	// Guard against float drift at the boundaries
	if score > 1 {
		return 1
	}
	if score < 0 {
		return 0
	}
	return score
}

// significantWords tokenizes case-folded text on non-alphanumeric runs and
// keeps words of at least minLen characters
func significantWords(text string, minLen int) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	words := fields[:0]
	for _, w := range fields {
		if len([]rune(w)) >= minLen {
			words = append(words, w)
		}
	}
	return words
}

// tokenJaccard computes |A∩B| / |A∪B| over significant words
func tokenJaccard(a, b string) float64 {
	setA := wordSet(significantWords(a, significantWordMinLen))
	setB := wordSet(significantWords(b, significantWordMinLen))
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for w := range setA {
		if setB[w] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

// editSimilarity is 1 - levenshtein(a,b) / max(len(a), len(b))
func editSimilarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	if maxLen == 0 {
		return 0
	}
	return 1 - float64(levenshtein(ra, rb))/float64(maxLen)
}

// levenshtein computes classic unit-cost edit distance with two rows
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}

// containment measures the fraction of the shorter text's significant words
// that appear verbatim in the longer text. Always measured shorter-in-longer
// so the term is symmetric.
func containment(a, b string) float64 {
	shorter, longer := a, b
	if len([]rune(a)) > len([]rune(b)) {
		shorter, longer = b, a
	}

	words := significantWords(shorter, significantWordMinLen)
	if len(words) == 0 {
		return 0
	}

	haystack := strings.ToLower(longer)
	contained := 0
	for _, w := range words {
		if strings.Contains(haystack, w) {
			contained++
		}
	}
	return float64(contained) / float64(len(words))
}

func wordSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
