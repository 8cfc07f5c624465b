// ABOUTME: Fingerprint bucketing to avoid O(n^2) pairwise similarity checks
// ABOUTME: Groups corpus facts by their longest significant words before scoring
package engine

import (
	"sort"
	"strings"

	"github.com/harper/facts-standalone/internal/models"
)

const (
	// fingerprintWordMinLen filters which words contribute to a fingerprint
	fingerprintWordMinLen = 4
	// fingerprintWordCount caps how many words form the fingerprint
	fingerprintWordCount = 10
	// minSharedWords is the word-overlap pre-check applied before scoring
	minSharedWords = 2
)

// Fingerprint derives a cheap grouping key from fact content: the ten
// longest case-folded words of length > 3, sorted and joined. Facts that
// do not share a fingerprint are never compared pairwise on the text path,
// which trades a small recall loss for a large constant-factor speedup.
func Fingerprint(content string) string {
	words := significantWords(content, fingerprintWordMinLen)

	// Longest first; ties break lexicographically for determinism
	sort.Slice(words, func(i, j int) bool {
		if len(words[i]) != len(words[j]) {
			return len(words[i]) > len(words[j])
		}
		return words[i] < words[j]
	})
	if len(words) > fingerprintWordCount {
		words = words[:fingerprintWordCount]
	}

	sort.Strings(words)
	return strings.Join(words, "|")
}

// BucketByFingerprint partitions a corpus into candidate buckets, preserving
// corpus iteration order within each bucket and across buckets
func BucketByFingerprint(corpus []*models.Fact) [][]*models.Fact {
	index := make(map[string]int)
	var buckets [][]*models.Fact

	for _, fact := range corpus {
		fp := Fingerprint(fact.Content)
		if i, ok := index[fp]; ok {
			buckets[i] = append(buckets[i], fact)
			continue
		}
		index[fp] = len(buckets)
		buckets = append(buckets, []*models.Fact{fact})
	}

	return buckets
}

// SharesSignificantWords reports whether two texts share at least two
// case-folded words of length > 3. Used as a pre-check inside buckets so
// the expensive scorer only runs on plausible pairs.
func SharesSignificantWords(a, b string) bool {
	setA := wordSet(significantWords(a, fingerprintWordMinLen))
	if len(setA) == 0 {
		return false
	}

	shared := 0
	for w := range wordSet(significantWords(b, fingerprintWordMinLen)) {
		if setA[w] {
			shared++
			if shared >= minSharedWords {
				return true
			}
		}
	}
	return false
}
