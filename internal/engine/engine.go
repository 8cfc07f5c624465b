// ABOUTME: Consolidation engine orchestrating dedup, merge, and confidence flows
// ABOUTME: Implements the single-fact ingestion path and the deep-scan batch path
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/harper/facts-standalone/internal/models"
)

// ErrEmptyContent is returned when ingestion receives blank fact text
var ErrEmptyContent = errors.New("fact content is empty")

// Store is the persistence contract the engine requires: point lookup,
// scoped iteration in creation order, and a multi-row merge transaction.
type Store interface {
	Save(fact *models.Fact) error
	GetByID(factID string) (*models.Fact, error)
	GetByCanonicalKey(profileID, key string) (*models.Fact, error)
	ListByProfile(profileID string) ([]*models.Fact, error)
	// MergeGroup updates the survivor row and deletes the duplicate rows
	// in one transaction; both succeed or both roll back
	MergeGroup(survivor *models.Fact, duplicateIDs []string) error
}

// ContradictionChecker is the external collaborator invoked once per newly
// created fact. The engine logs its result and interprets nothing else;
// contradiction handling is owned entirely by the collaborator.
type ContradictionChecker interface {
	CheckContradiction(ctx context.Context, fact *models.Fact) (groupID string, err error)
}

// Engine is the fact consolidation engine. Stateless apart from its
// injected collaborators; every operation takes its scope explicitly.
// Callers must serialize batch passes per profile scope.
type Engine struct {
	store          Store
	finder         *EmbeddingFinder
	merger         *Merger
	contradictions ContradictionChecker
	logger         *log.Logger
	embedThreshold float64
}

// NewEngine wires the engine together. contradictions may be nil.
func NewEngine(store Store, finder *EmbeddingFinder, merger *Merger, contradictions ContradictionChecker, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		store:          store,
		finder:         finder,
		merger:         merger,
		contradictions: contradictions,
		logger:         logger,
		embedThreshold: DefaultReviewThreshold,
	}
}

// SetEmbedThreshold overrides the minimum similarity for the ingestion-time
// embedding duplicate check
func (e *Engine) SetEmbedThreshold(threshold float64) {
	e.embedThreshold = threshold
}

// IngestFact runs the single-fact path: exact canonical-key lookup first,
// then the embedding duplicate check, then either corroboration of an
// existing fact or creation of a new one handed to the contradiction
// collaborator. Collaborator failures fail open; ingestion only errors on
// malformed input or storage failures.
func (e *Engine) IngestFact(ctx context.Context, profileID, content string, importance int, source SourceKind) (*models.IngestResult, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	if importance < 1 {
		importance = 1
	}
	if importance > models.MaxImportance {
		importance = models.MaxImportance
	}

	key := CanonicalKey(content)

	// Fast path: exact duplicate via canonical key
	existing, err := e.store.GetByCanonicalKey(profileID, key)
	if err != nil {
		return nil, fmt.Errorf("canonical key lookup failed: %w", err)
	}
	if existing != nil {
		Corroborate(existing)
		if err := e.store.Save(existing); err != nil {
			return nil, fmt.Errorf("failed to save corroborated fact: %w", err)
		}
		e.logger.Debug("exact duplicate corroborated",
			"fact", existing.FactID, "support", existing.SupportCount)
		return &models.IngestResult{Fact: existing, Outcome: models.OutcomeCorroborated}, nil
	}

	// Semantic path: embedding comparison against the profile corpus.
	// Provider or embedding failures fail open; ingestion must not block
	// on an unavailable embedding service.
	var (
		embedding []float64
		match     *models.DuplicateMatch
	)
	if e.finder != nil && e.finder.HasProvider() {
		corpus, err := e.store.ListByProfile(profileID)
		if err != nil {
			return nil, fmt.Errorf("failed to load profile corpus: %w", err)
		}

		matches, vector, err := e.finder.FindDuplicatesForText(content, corpus, e.embedThreshold)
		if err != nil {
			e.logger.Warn("embedding duplicate check unavailable, treating as no duplicate", "err", err)
		} else {
			embedding = vector
			if len(matches) > 0 {
				match = &matches[0]
			}
		}
	}

	if match != nil && match.Decision == models.DecisionBlock {
		target := match.Fact
		Corroborate(target)
		if err := e.store.Save(target); err != nil {
			return nil, fmt.Errorf("failed to save corroborated fact: %w", err)
		}
		e.logger.Debug("semantic duplicate corroborated",
			"fact", target.FactID, "similarity", match.Similarity)
		return &models.IngestResult{Fact: target, Outcome: models.OutcomeCorroborated, Match: match}, nil
	}

	// New fact: persist, then hand to the contradiction collaborator
	now := time.Now()
	fact := &models.Fact{
		FactID:       "fact_" + uuid.New().String(),
		ProfileID:    profileID,
		Content:      content,
		CanonicalKey: key,
		Importance:   importance,
		Confidence:   InitialConfidence(importance, source),
		SupportCount: 1,
		Embedding:    embedding,
		Status:       models.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := e.store.Save(fact); err != nil {
		return nil, fmt.Errorf("failed to save new fact: %w", err)
	}

	result := &models.IngestResult{Fact: fact, Outcome: models.OutcomeCreated, Match: match}
	if match != nil && match.Decision == models.DecisionFlag {
		result.Outcome = models.OutcomeFlagged
		e.logger.Info("near-duplicate flagged for review",
			"fact", fact.FactID, "candidate", match.Fact.FactID, "similarity", match.Similarity)
	}

	if e.contradictions != nil {
		groupID, err := e.contradictions.CheckContradiction(ctx, fact)
		if err != nil {
			e.logger.Warn("contradiction check unavailable", "fact", fact.FactID, "err", err)
		} else if groupID != "" {
			result.ContradictionGroupID = groupID
			e.logger.Info("contradiction collaborator grouped fact",
				"fact", fact.FactID, "group", groupID)
		}
	}

	return result, nil
}

// FindDuplicateGroups is the report-only scan: it groups the current
// profile corpus without merging anything
func (e *Engine) FindDuplicateGroups(profileID string, threshold float64, strategy Strategy) ([]*models.DuplicateGroup, error) {
	corpus, err := e.store.ListByProfile(profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile corpus: %w", err)
	}
	return GroupDuplicates(corpus, threshold, strategy), nil
}

// DeepScan finds and merges duplicate groups across the whole profile
// corpus. Bounded per invocation and safely re-runnable: each call re-reads
// store state, so a second pass after a partial run merges only whatever
// the first pass left behind.
func (e *Engine) DeepScan(ctx context.Context, profileID string, threshold float64, strategy Strategy) (models.ScanSummary, error) {
	groups, err := e.FindDuplicateGroups(profileID, threshold, strategy)
	if err != nil {
		return models.ScanSummary{}, err
	}

	summary := e.merger.MergeAll(ctx, groups)
	e.logger.Info("deep scan complete",
		"profile", profileID,
		"strategy", string(strategy),
		"groups_merged", summary.GroupsMerged,
		"duplicates_eliminated", summary.DuplicatesEliminated,
		"groups_failed", summary.GroupsFailed)
	return summary, nil
}

// MergeGroupByID performs a user-triggered manual merge of explicit fact
// IDs, preferring the generation provider's prose merge with deterministic
// fallback. The first ID names the survivor.
func (e *Engine) MergeGroupByID(ctx context.Context, survivorID string, duplicateIDs []string) (*models.Fact, error) {
	master, err := e.store.GetByID(survivorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load survivor: %w", err)
	}
	if master == nil {
		return nil, fmt.Errorf("survivor fact %s not found", survivorID)
	}

	group := &models.DuplicateGroup{Master: master}
	for _, id := range duplicateIDs {
		f, err := e.store.GetByID(id)
		if err != nil {
			return nil, fmt.Errorf("failed to load duplicate %s: %w", id, err)
		}
		if f == nil {
			return nil, fmt.Errorf("duplicate fact %s not found", id)
		}
		group.Duplicates = append(group.Duplicates, f)
	}
	if len(group.Duplicates) == 0 {
		return nil, fmt.Errorf("no duplicate facts to merge")
	}

	if err := e.merger.ExecuteMergeWithProse(ctx, group); err != nil {
		return nil, err
	}
	return e.store.GetByID(survivorID)
}
