// ABOUTME: Canonical key computation for exact-duplicate fast-path lookup
// ABOUTME: Deterministic text normalization plus a 32-bit rolling hash
package engine

import (
	"fmt"
	"strings"
	"unicode"
)

// canonicalKeyMaxChars caps how much normalized text feeds the hash
const canonicalKeyMaxChars = 100

// NormalizeContent lower-cases text, strips punctuation, and collapses
// whitespace runs to single spaces
func NormalizeContent(content string) string {
	var b strings.Builder
	b.Grow(len(content))

	lastWasSpace := true // leading whitespace is dropped
	for _, r := range strings.ToLower(content) {
		switch {
		case unicode.IsSpace(r):
			if !lastWasSpace {
				b.WriteRune(' ')
				lastWasSpace = true
			}
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			b.WriteRune(r)
			lastWasSpace = false
		}
		// punctuation and symbols are stripped
	}

	return strings.TrimRight(b.String(), " ")
}

// CanonicalKey computes the deterministic dedup key for fact content.
// Collisions are expected; this is an advisory pre-filter, never the sole
// defense against duplicates.
func CanonicalKey(content string) string {
	normalized := NormalizeContent(content)
	runes := []rune(normalized)
	if len(runes) > canonicalKeyMaxChars {
		runes = runes[:canonicalKeyMaxChars]
	}

	// Polynomial rolling hash, multiplier 31, 32-bit wraparound
	var hash int32
	for _, r := range runes {
		hash = hash*31 + int32(r)
	}

	value := int64(hash)
	if value < 0 {
		value = -value
	}
	return fmt.Sprintf("fact_%d", value)
}
