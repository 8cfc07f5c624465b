// ABOUTME: Embedding-based duplicate detection over precomputed fact vectors
// ABOUTME: Cosine similarity banded into block/flag/allow decisions
package engine

import (
	"fmt"
	"math"
	"sort"

	"github.com/harper/facts-standalone/internal/models"
)

// Default decision bands for embedding similarity
const (
	DefaultAutoMergeThreshold = 0.95
	DefaultReviewThreshold    = 0.90
)

// EmbeddingProvider generates an embedding vector for arbitrary text.
// Network-backed and fallible; only the single-fact ingestion path calls it.
type EmbeddingProvider interface {
	GenerateEmbedding(text string) ([]float64, error)
}

// EmbeddingFinder compares facts by cosine similarity over stored embeddings
type EmbeddingFinder struct {
	provider           EmbeddingProvider
	autoMergeThreshold float64
	reviewThreshold    float64
}

// NewEmbeddingFinder creates a finder with the default decision bands.
// The provider may be nil; then only stored-embedding comparisons work.
func NewEmbeddingFinder(provider EmbeddingProvider) *EmbeddingFinder {
	return &EmbeddingFinder{
		provider:           provider,
		autoMergeThreshold: DefaultAutoMergeThreshold,
		reviewThreshold:    DefaultReviewThreshold,
	}
}

// SetThresholds overrides the decision bands; autoMerge must be >= review
func (ef *EmbeddingFinder) SetThresholds(autoMerge, review float64) {
	ef.autoMergeThreshold = autoMerge
	ef.reviewThreshold = review
}

// HasProvider reports whether text embeddings can be requested
func (ef *EmbeddingFinder) HasProvider() bool {
	return ef.provider != nil
}

// Classify maps a similarity score onto a merge decision band
func (ef *EmbeddingFinder) Classify(similarity float64) models.MatchDecision {
	switch {
	case similarity >= ef.autoMergeThreshold:
		return models.DecisionBlock
	case similarity >= ef.reviewThreshold:
		return models.DecisionFlag
	default:
		return models.DecisionAllow
	}
}

// FindDuplicates compares the target fact against all corpus facts that
// carry a stored embedding. No network calls happen here. Results at or
// above threshold are returned sorted by descending similarity.
func (ef *EmbeddingFinder) FindDuplicates(target *models.Fact, corpus []*models.Fact, threshold float64) []models.DuplicateMatch {
	if target == nil || len(target.Embedding) == 0 {
		return nil
	}
	return ef.matchVector(target.Embedding, target.FactID, corpus, threshold)
}

// FindDuplicatesForText requests one embedding for new text from the
// provider, then compares against stored embeddings. Used only for
// single-fact checks at ingestion time, never for bulk scans.
func (ef *EmbeddingFinder) FindDuplicatesForText(text string, corpus []*models.Fact, threshold float64) ([]models.DuplicateMatch, []float64, error) {
	if ef.provider == nil {
		return nil, nil, fmt.Errorf("no embedding provider configured")
	}

	vector, err := ef.provider.GenerateEmbedding(text)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to embed text: %w", err)
	}

	return ef.matchVector(vector, "", corpus, threshold), vector, nil
}

// matchVector scores a vector against every embedded corpus fact
func (ef *EmbeddingFinder) matchVector(vector []float64, excludeID string, corpus []*models.Fact, threshold float64) []models.DuplicateMatch {
	var matches []models.DuplicateMatch

	for _, fact := range corpus {
		if len(fact.Embedding) == 0 {
			continue
		}
		if excludeID != "" && fact.FactID == excludeID {
			continue
		}

		similarity := CosineSimilarity(vector, fact.Embedding)
		if similarity < threshold {
			continue
		}

		matches = append(matches, models.DuplicateMatch{
			Fact:       fact,
			Similarity: similarity,
			Decision:   ef.Classify(similarity),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})

	return matches
}

// CosineSimilarity calculates cosine similarity between two vectors
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0.0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
