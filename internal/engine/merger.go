// ABOUTME: Deterministic group merging with transactional persistence
// ABOUTME: One merge path shared by manual, auto-merge-all, and deep-scan callers
package engine

import (
	"context"
	"math"
	"time"

	"github.com/charmbracelet/log"

	"github.com/harper/facts-standalone/internal/models"
)

// Batch pacing defaults; a safety valve against connection-pool saturation
// and serverless timeouts
const (
	DefaultMaxGroupsPerRun = 10
	DefaultMergePause      = 100 * time.Millisecond
	DefaultMergeRetryDelay = 250 * time.Millisecond
)

// contentReplacementRatio: a member's content must be at least 30% longer
// than the master's before it can replace it
const contentReplacementRatio = 1.3

// ProseMerger asks a generation provider to combine duplicate texts into a
// single statement. Optional; any failure falls back to the deterministic
// merge rule, so merging never fails outright.
type ProseMerger interface {
	MergeProse(ctx context.Context, texts []string) (string, error)
}

// Merger merges duplicate groups into their survivor and persists the result
type Merger struct {
	store      Store
	prose      ProseMerger
	logger     *log.Logger
	maxGroups  int
	pause      time.Duration
	retryDelay time.Duration
}

// NewMerger creates a Merger with default batch pacing. prose may be nil.
func NewMerger(store Store, prose ProseMerger, logger *log.Logger) *Merger {
	if logger == nil {
		logger = log.Default()
	}
	return &Merger{
		store:      store,
		prose:      prose,
		logger:     logger,
		maxGroups:  DefaultMaxGroupsPerRun,
		pause:      DefaultMergePause,
		retryDelay: DefaultMergeRetryDelay,
	}
}

// SetPacing overrides the batch cap, inter-group pause, and retry delay
func (m *Merger) SetPacing(maxGroups int, pause, retryDelay time.Duration) {
	if maxGroups > 0 {
		m.maxGroups = maxGroups
	}
	m.pause = pause
	m.retryDelay = retryDelay
}

// Merge combines a duplicate group into a single merged survivor. Pure and
// deterministic; the returned fact is a copy, nothing is persisted.
//
// Field rules: content stays the master's unless a member is at least 30%
// longer and more comprehensive; importance is min(10, round(max + 0.1*avg));
// confidence and quality take the group maximum; keyword and relationship
// sets union; retrieval and support counts sum.
func (m *Merger) Merge(group *models.DuplicateGroup) *models.Fact {
	merged := *group.Master
	all := group.All()

	merged.Content = mergedContent(group)
	refreshDerivedFields(&merged, group.Master)

	maxImportance, sumImportance := 0, 0
	for _, f := range all {
		if f.Importance > maxImportance {
			maxImportance = f.Importance
		}
		sumImportance += f.Importance
	}
	avgImportance := float64(sumImportance) / float64(len(all))
	importance := int(math.Round(float64(maxImportance) + 0.1*avgImportance))
	if importance > models.MaxImportance {
		importance = models.MaxImportance
	}
	merged.Importance = importance

	merged.SupportCount = 0
	merged.RetrievalCount = 0
	for _, f := range all {
		merged.SupportCount += f.SupportCount
		merged.RetrievalCount += f.RetrievalCount
		if f.Confidence > merged.Confidence {
			merged.Confidence = f.Confidence
		}
		if f.QualityScore > merged.QualityScore {
			merged.QualityScore = f.QualityScore
		}
	}
	merged.Confidence = ClampConfidence(merged.Confidence)

	merged.Keywords = unionStrings(factKeywords(all))
	merged.Relationships = unionStrings(factRelationships(all))

	merged.Status = models.StatusActive
	merged.UpdatedAt = time.Now()
	return &merged
}

// MergeWithProse is the manual-merge variant: it asks the generation
// provider for a single prose rendition of all member texts and falls back
// to the deterministic rule on any failure
func (m *Merger) MergeWithProse(ctx context.Context, group *models.DuplicateGroup) *models.Fact {
	merged := m.Merge(group)
	if m.prose == nil {
		return merged
	}

	texts := make([]string, 0, group.Size())
	for _, f := range group.All() {
		texts = append(texts, f.Content)
	}

	content, err := m.prose.MergeProse(ctx, texts)
	if err != nil || content == "" {
		m.logger.Warn("prose merge unavailable, using deterministic content",
			"master", group.Master.FactID, "err", err)
		return merged
	}

	merged.Content = content
	refreshDerivedFields(merged, group.Master)
	return merged
}

// refreshDerivedFields keeps content-derived fields consistent after a
// merge may have replaced the survivor's text: the canonical key is always
// recomputed, and a stored embedding is dropped once it no longer describes
// the content (the next embedding-provider pass re-materializes it).
func refreshDerivedFields(merged, master *models.Fact) {
	merged.CanonicalKey = CanonicalKey(merged.Content)
	if merged.Content != master.Content {
		merged.Embedding = nil
	}
}

// ExecuteMerge persists a merged group atomically: the survivor row is
// updated and the duplicate rows deleted in one transaction. A transient
// failure is retried once after a fixed delay; a second failure aborts
// only this group.
func (m *Merger) ExecuteMerge(ctx context.Context, group *models.DuplicateGroup) error {
	merged := m.Merge(group)
	return m.persist(ctx, merged, group)
}

// ExecuteMergeWithProse is ExecuteMerge for user-triggered manual merges
func (m *Merger) ExecuteMergeWithProse(ctx context.Context, group *models.DuplicateGroup) error {
	merged := m.MergeWithProse(ctx, group)
	return m.persist(ctx, merged, group)
}

func (m *Merger) persist(ctx context.Context, merged *models.Fact, group *models.DuplicateGroup) error {
	err := m.store.MergeGroup(merged, group.DuplicateIDs())
	if err == nil {
		return nil
	}

	m.logger.Warn("merge transaction failed, retrying once",
		"master", group.Master.FactID, "err", err)

	select {
	case <-time.After(m.retryDelay):
	case <-ctx.Done():
		return ctx.Err()
	}

	return m.store.MergeGroup(merged, group.DuplicateIDs())
}

// MergeAll merges groups up to the per-invocation cap, pausing between
// transactions and stopping gracefully on cancellation. Failed groups are
// logged and counted but never fail the batch; a later re-run picks up
// whatever this pass left behind because scans always re-read store state.
func (m *Merger) MergeAll(ctx context.Context, groups []*models.DuplicateGroup) models.ScanSummary {
	var summary models.ScanSummary

	if len(groups) > m.maxGroups {
		m.logger.Info("capping merge batch",
			"groups", len(groups), "cap", m.maxGroups)
		groups = groups[:m.maxGroups]
	}

	for i, group := range groups {
		if ctx.Err() != nil {
			m.logger.Warn("merge batch cancelled, returning partial progress",
				"merged", summary.GroupsMerged, "remaining", len(groups)-i)
			return summary
		}

		if err := m.ExecuteMerge(ctx, group); err != nil {
			summary.GroupsFailed++
			summary.FailedMasterIDs = append(summary.FailedMasterIDs, group.Master.FactID)
			m.logger.Error("merge group aborted",
				"master", group.Master.FactID, "duplicates", len(group.Duplicates), "err", err)
			continue
		}

		summary.GroupsMerged++
		summary.DuplicatesEliminated += len(group.Duplicates)

		if i < len(groups)-1 && m.pause > 0 {
			select {
			case <-time.After(m.pause):
			case <-ctx.Done():
			}
		}
	}

	return summary
}

// mergedContent applies the content replacement rule: keep the master's
// content unless a member is >=30% longer and scores higher on the
// comprehensiveness measure
func mergedContent(group *models.DuplicateGroup) string {
	best := group.Master
	bestScore := comprehensiveness(best)
	masterLen := len(group.Master.Content)

	for _, f := range group.Duplicates {
		if float64(len(f.Content)) < float64(masterLen)*contentReplacementRatio {
			continue
		}
		if score := comprehensiveness(f); score > bestScore {
			best = f
			bestScore = score
		}
	}

	return best.Content
}

// comprehensiveness is the composite measure used when deciding whether a
// member's content should replace the master's
func comprehensiveness(f *models.Fact) int {
	return len(f.Content) + f.Importance*10 + f.QualityScore*5
}

// unionStrings merges string sets preserving first-seen order
func unionStrings(sets [][]string) []string {
	var union []string
	seen := make(map[string]bool)
	for _, set := range sets {
		for _, s := range set {
			if !seen[s] {
				seen[s] = true
				union = append(union, s)
			}
		}
	}
	return union
}

func factKeywords(facts []*models.Fact) [][]string {
	sets := make([][]string, len(facts))
	for i, f := range facts {
		sets[i] = f.Keywords
	}
	return sets
}

func factRelationships(facts []*models.Fact) [][]string {
	sets := make([][]string, len(facts))
	for i, f := range facts {
		sets[i] = f.Relationships
	}
	return sets
}
