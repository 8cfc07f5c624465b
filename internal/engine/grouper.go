// ABOUTME: Greedy duplicate grouping over a corpus snapshot
// ABOUTME: Produces non-overlapping groups via text or embedding similarity
package engine

import (
	"github.com/harper/facts-standalone/internal/models"
)

// Strategy selects how duplicate candidates are scored
type Strategy string

const (
	// StrategyText uses fingerprint bucketing plus the fuzzy text scorer
	StrategyText Strategy = "text"
	// StrategyEmbedding uses cosine similarity over stored embeddings
	StrategyEmbedding Strategy = "embedding"
)

// GroupDuplicates partitions a subset of the corpus into duplicate groups.
// Grouping is greedy and single-pass in corpus iteration order (creation
// time): the first not-yet-processed fact becomes the master and every
// later fact scoring at or above threshold against it joins the group.
// Ties therefore always resolve in favor of the earliest-created fact.
// No fact ever appears in two groups. Only groups with at least one
// duplicate are returned.
func GroupDuplicates(corpus []*models.Fact, threshold float64, strategy Strategy) []*models.DuplicateGroup {
	if strategy == StrategyEmbedding {
		return groupByEmbedding(corpus, threshold)
	}
	return groupByText(corpus, threshold)
}

// groupByText runs the bucketer then the scorer inside each bucket
func groupByText(corpus []*models.Fact, threshold float64) []*models.DuplicateGroup {
	var groups []*models.DuplicateGroup
	processed := make(map[string]bool, len(corpus))

	for _, bucket := range BucketByFingerprint(corpus) {
		if len(bucket) < 2 {
			continue
		}

		for i, master := range bucket {
			if processed[master.FactID] {
				continue
			}

			var duplicates []*models.Fact
			for _, candidate := range bucket[i+1:] {
				if processed[candidate.FactID] {
					continue
				}
				// Cheap overlap pre-check before the expensive scorer
				if !SharesSignificantWords(master.Content, candidate.Content) {
					continue
				}
				if Similarity(master.Content, candidate.Content) >= threshold {
					duplicates = append(duplicates, candidate)
					processed[candidate.FactID] = true
				}
			}

			if len(duplicates) > 0 {
				processed[master.FactID] = true
				groups = append(groups, &models.DuplicateGroup{Master: master, Duplicates: duplicates})
			}
		}
	}

	return groups
}

// groupByEmbedding compares stored vectors directly; facts without an
// embedding are never grouped on this path
func groupByEmbedding(corpus []*models.Fact, threshold float64) []*models.DuplicateGroup {
	var groups []*models.DuplicateGroup
	processed := make(map[string]bool, len(corpus))

	for i, master := range corpus {
		if processed[master.FactID] || len(master.Embedding) == 0 {
			continue
		}

		var duplicates []*models.Fact
		for _, candidate := range corpus[i+1:] {
			if processed[candidate.FactID] || len(candidate.Embedding) == 0 {
				continue
			}
			if CosineSimilarity(master.Embedding, candidate.Embedding) >= threshold {
				duplicates = append(duplicates, candidate)
				processed[candidate.FactID] = true
			}
		}

		if len(duplicates) > 0 {
			processed[master.FactID] = true
			groups = append(groups, &models.DuplicateGroup{Master: master, Duplicates: duplicates})
		}
	}

	return groups
}
