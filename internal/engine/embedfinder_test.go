// ABOUTME: Tests for embedding-based duplicate detection and decision bands
// ABOUTME: Verifies cosine similarity, block/flag/allow classification, and provider fallback
package engine

import (
	"fmt"
	"math"
	"testing"

	"github.com/harper/facts-standalone/internal/models"
)

// vectorWithSimilarity builds a unit-ish 2D vector whose cosine similarity
// to (1,0) equals the given value
func vectorWithSimilarity(sim float64) []float64 {
	return []float64{sim, math.Sqrt(1 - sim*sim)}
}

func TestCosineSimilarity(t *testing.T) {
	a := []float64{1, 0, 0}
	b := []float64{1, 0, 0}
	if got := CosineSimilarity(a, b); math.Abs(got-1) > 1e-12 {
		t.Errorf("identical vectors = %f, want 1", got)
	}

	c := []float64{0, 1, 0}
	if got := CosineSimilarity(a, c); math.Abs(got) > 1e-12 {
		t.Errorf("orthogonal vectors = %f, want 0", got)
	}
}

func TestCosineSimilarity_MismatchedOrZero(t *testing.T) {
	if got := CosineSimilarity([]float64{1, 0}, []float64{1, 0, 0}); got != 0 {
		t.Errorf("mismatched lengths = %f, want 0", got)
	}
	if got := CosineSimilarity([]float64{0, 0}, []float64{1, 0}); got != 0 {
		t.Errorf("zero vector = %f, want 0", got)
	}
}

func TestClassify_Bands(t *testing.T) {
	ef := NewEmbeddingFinder(nil)

	tests := []struct {
		similarity float64
		want       models.MatchDecision
	}{
		{0.96, models.DecisionBlock},
		{0.95, models.DecisionBlock},
		{0.92, models.DecisionFlag},
		{0.90, models.DecisionFlag},
		{0.85, models.DecisionAllow},
		{0.0, models.DecisionAllow},
	}

	for _, tt := range tests {
		if got := ef.Classify(tt.similarity); got != tt.want {
			t.Errorf("Classify(%f) = %s, want %s", tt.similarity, got, tt.want)
		}
	}
}

func TestFindDuplicates_StoredEmbeddings(t *testing.T) {
	ef := NewEmbeddingFinder(nil)

	target := &models.Fact{FactID: "target", Embedding: []float64{1, 0}}
	corpus := []*models.Fact{
		{FactID: "near", Embedding: vectorWithSimilarity(0.96)},
		{FactID: "similar", Embedding: vectorWithSimilarity(0.92)},
		{FactID: "far", Embedding: vectorWithSimilarity(0.5)},
		{FactID: "no-embedding"},
		{FactID: "target", Embedding: []float64{1, 0}}, // self must be skipped
	}

	matches := ef.FindDuplicates(target, corpus, 0.90)
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}

	// Sorted by descending similarity
	if matches[0].Fact.FactID != "near" || matches[1].Fact.FactID != "similar" {
		t.Errorf("unexpected match order: %s, %s", matches[0].Fact.FactID, matches[1].Fact.FactID)
	}
	if matches[0].Decision != models.DecisionBlock {
		t.Errorf("near match decision = %s, want block", matches[0].Decision)
	}
	if matches[1].Decision != models.DecisionFlag {
		t.Errorf("similar match decision = %s, want flag", matches[1].Decision)
	}
}

func TestFindDuplicates_NoTargetEmbedding(t *testing.T) {
	ef := NewEmbeddingFinder(nil)
	target := &models.Fact{FactID: "target"}
	corpus := []*models.Fact{{FactID: "other", Embedding: []float64{1, 0}}}

	if matches := ef.FindDuplicates(target, corpus, 0.9); matches != nil {
		t.Errorf("expected nil matches without a target embedding, got %d", len(matches))
	}
}

// stubProvider returns a fixed vector or error
type stubProvider struct {
	vector []float64
	err    error
}

func (p *stubProvider) GenerateEmbedding(text string) ([]float64, error) {
	return p.vector, p.err
}

func TestFindDuplicatesForText(t *testing.T) {
	ef := NewEmbeddingFinder(&stubProvider{vector: []float64{1, 0}})

	corpus := []*models.Fact{
		{FactID: "near", Embedding: vectorWithSimilarity(0.97)},
		{FactID: "far", Embedding: vectorWithSimilarity(0.3)},
	}

	matches, vector, err := ef.FindDuplicatesForText("some new fact", corpus, 0.90)
	if err != nil {
		t.Fatalf("FindDuplicatesForText() error = %v", err)
	}
	if len(vector) != 2 {
		t.Errorf("expected the generated vector back, got %v", vector)
	}
	if len(matches) != 1 || matches[0].Fact.FactID != "near" {
		t.Fatalf("expected single near match, got %+v", matches)
	}
	if matches[0].Decision != models.DecisionBlock {
		t.Errorf("decision = %s, want block", matches[0].Decision)
	}
}

func TestFindDuplicatesForText_ProviderError(t *testing.T) {
	ef := NewEmbeddingFinder(&stubProvider{err: fmt.Errorf("connection refused")})

	_, _, err := ef.FindDuplicatesForText("text", nil, 0.9)
	if err == nil {
		t.Fatal("expected error when the provider fails")
	}
}

func TestFindDuplicatesForText_NoProvider(t *testing.T) {
	ef := NewEmbeddingFinder(nil)
	if ef.HasProvider() {
		t.Error("HasProvider() = true for nil provider")
	}
	if _, _, err := ef.FindDuplicatesForText("text", nil, 0.9); err == nil {
		t.Fatal("expected error without a provider")
	}
}
