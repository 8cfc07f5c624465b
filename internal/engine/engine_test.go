// ABOUTME: Integration tests for the consolidation engine over a real store
// ABOUTME: Covers ingestion paths, deep-scan batches, failure isolation, and re-runs
package engine

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/harper/facts-standalone/internal/models"
	"github.com/harper/facts-standalone/internal/storage/sqlite"
)

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

func newTestStore(t *testing.T) *sqlite.FactStore {
	t.Helper()
	db, err := sqlite.OpenInMemory()
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return sqlite.NewFactStore(db)
}

func newTestEngine(store Store, provider EmbeddingProvider) *Engine {
	finder := NewEmbeddingFinder(provider)
	merger := NewMerger(store, nil, testLogger())
	merger.SetPacing(DefaultMaxGroupsPerRun, 0, time.Millisecond)
	return NewEngine(store, finder, merger, nil, testLogger())
}

func TestIngestFact_EmptyContent(t *testing.T) {
	eng := newTestEngine(newTestStore(t), nil)

	if _, err := eng.IngestFact(context.Background(), "p1", "   ", 5, SourceUnknown); err != ErrEmptyContent {
		t.Errorf("err = %v, want ErrEmptyContent", err)
	}
}

func TestIngestFact_CreatesNewFact(t *testing.T) {
	store := newTestStore(t)
	eng := newTestEngine(store, nil)

	result, err := eng.IngestFact(context.Background(), "p1", "Nicky hates the rain", 5, SourceChat)
	if err != nil {
		t.Fatalf("IngestFact() error = %v", err)
	}
	if result.Outcome != models.OutcomeCreated {
		t.Errorf("outcome = %s, want created", result.Outcome)
	}
	if result.Fact.Confidence != 90 {
		t.Errorf("confidence = %d, want 90", result.Fact.Confidence)
	}
	if result.Fact.SupportCount != 1 {
		t.Errorf("support = %d, want 1", result.Fact.SupportCount)
	}

	stored, err := store.GetByID(result.Fact.FactID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if stored == nil || stored.Content != "Nicky hates the rain" {
		t.Errorf("stored fact = %+v, want persisted content", stored)
	}
}

func TestIngestFact_ExactDuplicateCorroborates(t *testing.T) {
	store := newTestStore(t)
	eng := newTestEngine(store, nil)
	ctx := context.Background()

	first, err := eng.IngestFact(ctx, "p1", "Nicky hates the rain", 5, SourceUnknown)
	if err != nil {
		t.Fatalf("first ingest error = %v", err)
	}

	// Punctuation and case differences normalize to the same canonical key
	second, err := eng.IngestFact(ctx, "p1", "NICKY hates the rain!", 5, SourceUnknown)
	if err != nil {
		t.Fatalf("second ingest error = %v", err)
	}

	if second.Outcome != models.OutcomeCorroborated {
		t.Errorf("outcome = %s, want corroborated", second.Outcome)
	}
	if second.Fact.FactID != first.Fact.FactID {
		t.Errorf("corroborated a different fact: %s vs %s", second.Fact.FactID, first.Fact.FactID)
	}
	if second.Fact.SupportCount != 2 {
		t.Errorf("support = %d, want 2", second.Fact.SupportCount)
	}
	if second.Fact.Confidence != first.Fact.Confidence+10 {
		t.Errorf("confidence = %d, want %d", second.Fact.Confidence, first.Fact.Confidence+10)
	}

	count, err := store.CountByProfile("p1")
	if err != nil {
		t.Fatalf("CountByProfile() error = %v", err)
	}
	if count != 1 {
		t.Errorf("profile has %d facts, want 1", count)
	}
}

func TestIngestFact_ProfilesAreIsolated(t *testing.T) {
	store := newTestStore(t)
	eng := newTestEngine(store, nil)
	ctx := context.Background()

	if _, err := eng.IngestFact(ctx, "p1", "Nicky hates the rain", 5, SourceUnknown); err != nil {
		t.Fatalf("ingest error = %v", err)
	}
	result, err := eng.IngestFact(ctx, "p2", "Nicky hates the rain", 5, SourceUnknown)
	if err != nil {
		t.Fatalf("ingest error = %v", err)
	}
	if result.Outcome != models.OutcomeCreated {
		t.Errorf("outcome = %s, want created in a different profile", result.Outcome)
	}
}

func TestIngestFact_ClampsImportance(t *testing.T) {
	eng := newTestEngine(newTestStore(t), nil)

	result, err := eng.IngestFact(context.Background(), "p1", "some fact", 50, SourceUnknown)
	if err != nil {
		t.Fatalf("IngestFact() error = %v", err)
	}
	if result.Fact.Importance != models.MaxImportance {
		t.Errorf("importance = %d, want clamped to %d", result.Fact.Importance, models.MaxImportance)
	}
}

// mapProvider returns per-text vectors, falling back to a unit vector
type mapProvider struct {
	vectors map[string][]float64
	err     error
}

func (p *mapProvider) GenerateEmbedding(text string) ([]float64, error) {
	if p.err != nil {
		return nil, p.err
	}
	if v, ok := p.vectors[text]; ok {
		return v, nil
	}
	return []float64{1, 0}, nil
}

func TestIngestFact_SemanticDuplicateBlocks(t *testing.T) {
	store := newTestStore(t)
	provider := &mapProvider{vectors: map[string][]float64{
		"Nicky hates the rain":    {1, 0},
		"Rain is hated by Nicky.": vectorWithSimilarity(0.97),
	}}
	eng := newTestEngine(store, provider)
	ctx := context.Background()

	first, err := eng.IngestFact(ctx, "p1", "Nicky hates the rain", 5, SourceUnknown)
	if err != nil {
		t.Fatalf("first ingest error = %v", err)
	}

	// Different canonical key, but cosine similarity 0.97 blocks creation
	second, err := eng.IngestFact(ctx, "p1", "Rain is hated by Nicky.", 5, SourceUnknown)
	if err != nil {
		t.Fatalf("second ingest error = %v", err)
	}
	if second.Outcome != models.OutcomeCorroborated {
		t.Errorf("outcome = %s, want corroborated", second.Outcome)
	}
	if second.Fact.FactID != first.Fact.FactID {
		t.Errorf("corroborated %s, want the existing fact %s", second.Fact.FactID, first.Fact.FactID)
	}
	if second.Fact.SupportCount != 2 {
		t.Errorf("support = %d, want 2", second.Fact.SupportCount)
	}
}

func TestIngestFact_NearDuplicateFlagged(t *testing.T) {
	store := newTestStore(t)
	provider := &mapProvider{vectors: map[string][]float64{
		"Nicky hates the rain":  {1, 0},
		"Nicky dislikes storms": vectorWithSimilarity(0.92),
	}}
	eng := newTestEngine(store, provider)
	ctx := context.Background()

	if _, err := eng.IngestFact(ctx, "p1", "Nicky hates the rain", 5, SourceUnknown); err != nil {
		t.Fatalf("first ingest error = %v", err)
	}

	// Similarity in [0.90, 0.95): the fact is created but flagged for review
	result, err := eng.IngestFact(ctx, "p1", "Nicky dislikes storms", 5, SourceUnknown)
	if err != nil {
		t.Fatalf("second ingest error = %v", err)
	}
	if result.Outcome != models.OutcomeFlagged {
		t.Errorf("outcome = %s, want flagged", result.Outcome)
	}
	if result.Match == nil || result.Match.Decision != models.DecisionFlag {
		t.Errorf("match = %+v, want a flag decision", result.Match)
	}

	count, _ := store.CountByProfile("p1")
	if count != 2 {
		t.Errorf("profile has %d facts, want 2 (flagged fact still created)", count)
	}
}

func TestIngestFact_FailsOpenOnProviderError(t *testing.T) {
	store := newTestStore(t)
	eng := newTestEngine(store, &mapProvider{err: fmt.Errorf("embedding service down")})

	result, err := eng.IngestFact(context.Background(), "p1", "Nicky hates the rain", 5, SourceUnknown)
	if err != nil {
		t.Fatalf("IngestFact() error = %v, want fail-open creation", err)
	}
	if result.Outcome != models.OutcomeCreated {
		t.Errorf("outcome = %s, want created", result.Outcome)
	}
	if len(result.Fact.Embedding) != 0 {
		t.Errorf("fact should carry no embedding when the provider fails")
	}
}

// stubContradictions records the facts it saw and returns a fixed group
type stubContradictions struct {
	groupID string
	err     error
	seen    []string
}

func (c *stubContradictions) CheckContradiction(ctx context.Context, fact *models.Fact) (string, error) {
	c.seen = append(c.seen, fact.FactID)
	return c.groupID, c.err
}

func TestIngestFact_ContradictionCollaborator(t *testing.T) {
	store := newTestStore(t)
	checker := &stubContradictions{groupID: "group_1"}
	finder := NewEmbeddingFinder(nil)
	merger := NewMerger(store, nil, testLogger())
	eng := NewEngine(store, finder, merger, checker, testLogger())

	result, err := eng.IngestFact(context.Background(), "p1", "Nicky hates the rain", 5, SourceUnknown)
	if err != nil {
		t.Fatalf("IngestFact() error = %v", err)
	}
	if result.ContradictionGroupID != "group_1" {
		t.Errorf("contradiction group = %q, want group_1", result.ContradictionGroupID)
	}
	if len(checker.seen) != 1 || checker.seen[0] != result.Fact.FactID {
		t.Errorf("collaborator saw %v, want the new fact", checker.seen)
	}
}

func TestIngestFact_ContradictionFailureIsNonFatal(t *testing.T) {
	store := newTestStore(t)
	checker := &stubContradictions{err: fmt.Errorf("checker offline")}
	finder := NewEmbeddingFinder(nil)
	merger := NewMerger(store, nil, testLogger())
	eng := NewEngine(store, finder, merger, checker, testLogger())

	result, err := eng.IngestFact(context.Background(), "p1", "Nicky hates the rain", 5, SourceUnknown)
	if err != nil {
		t.Fatalf("IngestFact() error = %v, collaborator failure must not fail ingestion", err)
	}
	if result.Outcome != models.OutcomeCreated {
		t.Errorf("outcome = %s, want created", result.Outcome)
	}
}

// seedDuplicatePair stores two near-identical facts with deterministic IDs
// and staggered creation times so the first is always the group master.
// Each pair's words are unique to it, so pairs never cross-group.
func seedDuplicatePair(t *testing.T, store *sqlite.FactStore, profileID string, n int, base time.Time) (masterID string) {
	t.Helper()
	content := fmt.Sprintf("subject%04dalpha verbs%04dbeta object%04dgamma detail%04ddelta", n, n, n, n)
	masterID = fmt.Sprintf("m%d", n)

	master := &models.Fact{
		FactID: masterID, ProfileID: profileID, Content: content,
		CanonicalKey: CanonicalKey(content), Importance: 5, Confidence: 70,
		SupportCount: 1, Status: models.StatusActive,
		CreatedAt: base.Add(time.Duration(2*n) * time.Second),
		UpdatedAt: base.Add(time.Duration(2*n) * time.Second),
	}
	dup := &models.Fact{
		FactID: fmt.Sprintf("d%d", n), ProfileID: profileID, Content: content + ".",
		CanonicalKey: CanonicalKey(content + "."), Importance: 5, Confidence: 70,
		SupportCount: 1, Status: models.StatusActive,
		CreatedAt: base.Add(time.Duration(2*n+1) * time.Second),
		UpdatedAt: base.Add(time.Duration(2*n+1) * time.Second),
	}

	if err := store.Save(master); err != nil {
		t.Fatalf("failed to seed master: %v", err)
	}
	if err := store.Save(dup); err != nil {
		t.Fatalf("failed to seed duplicate: %v", err)
	}
	return masterID
}

func TestDeepScan_MergesDuplicates(t *testing.T) {
	store := newTestStore(t)
	eng := newTestEngine(store, nil)
	base := time.Now().Add(-time.Hour)

	masterID := seedDuplicatePair(t, store, "p1", 0, base)

	summary, err := eng.DeepScan(context.Background(), "p1", 0.7, StrategyText)
	if err != nil {
		t.Fatalf("DeepScan() error = %v", err)
	}
	if summary.GroupsMerged != 1 || summary.DuplicatesEliminated != 1 {
		t.Errorf("summary = %+v, want 1 group / 1 eliminated", summary)
	}

	survivor, err := store.GetByID(masterID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if survivor == nil {
		t.Fatal("survivor row is gone")
	}
	if survivor.SupportCount != 2 {
		t.Errorf("survivor support = %d, want 2 (summed)", survivor.SupportCount)
	}

	count, _ := store.CountByProfile("p1")
	if count != 1 {
		t.Errorf("profile has %d facts after merge, want 1", count)
	}
}

// failingStore injects a persistent MergeGroup failure for one survivor
type failingStore struct {
	Store
	failID string
}

func (s *failingStore) MergeGroup(survivor *models.Fact, duplicateIDs []string) error {
	if survivor.FactID == s.failID {
		return fmt.Errorf("simulated transaction failure")
	}
	return s.Store.MergeGroup(survivor, duplicateIDs)
}

func TestDeepScan_FailedGroupDoesNotStopBatch(t *testing.T) {
	backing := newTestStore(t)
	base := time.Now().Add(-time.Hour)

	var failMaster string
	for i := 0; i < 10; i++ {
		id := seedDuplicatePair(t, backing, "p1", i, base)
		if i == 3 {
			failMaster = id
		}
	}

	store := &failingStore{Store: backing, failID: failMaster}
	eng := newTestEngine(store, nil)

	summary, err := eng.DeepScan(context.Background(), "p1", 0.7, StrategyText)
	if err != nil {
		t.Fatalf("DeepScan() error = %v", err)
	}
	if summary.GroupsMerged != 9 {
		t.Errorf("GroupsMerged = %d, want 9", summary.GroupsMerged)
	}
	if summary.GroupsFailed != 1 {
		t.Errorf("GroupsFailed = %d, want 1", summary.GroupsFailed)
	}
	if summary.DuplicatesEliminated != 9 {
		t.Errorf("DuplicatesEliminated = %d, want 9", summary.DuplicatesEliminated)
	}
	if len(summary.FailedMasterIDs) != 1 || summary.FailedMasterIDs[0] != failMaster {
		t.Errorf("FailedMasterIDs = %v, want [%s]", summary.FailedMasterIDs, failMaster)
	}

	// The failed pair survives untouched; everything else merged
	count, _ := backing.CountByProfile("p1")
	if count != 11 {
		t.Errorf("profile has %d facts, want 11 (9 survivors + failed pair)", count)
	}
}

func TestDeepScan_SecondRunIsNoOp(t *testing.T) {
	store := newTestStore(t)
	eng := newTestEngine(store, nil)
	base := time.Now().Add(-time.Hour)

	for i := 0; i < 3; i++ {
		seedDuplicatePair(t, store, "p1", i, base)
	}

	ctx := context.Background()
	first, err := eng.DeepScan(ctx, "p1", 0.7, StrategyText)
	if err != nil {
		t.Fatalf("first DeepScan() error = %v", err)
	}
	if first.DuplicatesEliminated != 3 {
		t.Fatalf("first run eliminated %d, want 3", first.DuplicatesEliminated)
	}

	second, err := eng.DeepScan(ctx, "p1", 0.7, StrategyText)
	if err != nil {
		t.Fatalf("second DeepScan() error = %v", err)
	}
	if second.DuplicatesEliminated != 0 || second.GroupsMerged != 0 {
		t.Errorf("second run = %+v, want nothing left to merge", second)
	}
}

func TestFindDuplicateGroups_ReportOnly(t *testing.T) {
	store := newTestStore(t)
	eng := newTestEngine(store, nil)
	seedDuplicatePair(t, store, "p1", 0, time.Now().Add(-time.Hour))

	groups, err := eng.FindDuplicateGroups("p1", 0.7, StrategyText)
	if err != nil {
		t.Fatalf("FindDuplicateGroups() error = %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}

	// Nothing merged
	count, _ := store.CountByProfile("p1")
	if count != 2 {
		t.Errorf("profile has %d facts, want 2 untouched", count)
	}
}

func TestMergeGroupByID(t *testing.T) {
	store := newTestStore(t)
	eng := newTestEngine(store, nil)
	base := time.Now().Add(-time.Hour)

	masterID := seedDuplicatePair(t, store, "p1", 0, base)

	merged, err := eng.MergeGroupByID(context.Background(), masterID, []string{"d0"})
	if err != nil {
		t.Fatalf("MergeGroupByID() error = %v", err)
	}
	if merged.FactID != masterID {
		t.Errorf("survivor = %s, want %s", merged.FactID, masterID)
	}
	if merged.SupportCount != 2 {
		t.Errorf("support = %d, want 2", merged.SupportCount)
	}

	gone, err := store.GetByID("d0")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if gone != nil {
		t.Error("duplicate row should be deleted after manual merge")
	}
}

func TestMergeGroupByID_UnknownSurvivor(t *testing.T) {
	eng := newTestEngine(newTestStore(t), nil)

	if _, err := eng.MergeGroupByID(context.Background(), "missing", []string{"also-missing"}); err == nil {
		t.Fatal("expected error for unknown survivor")
	}
}
