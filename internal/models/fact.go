// ABOUTME: Fact is the atomic unit of profile knowledge with scoring metadata
// ABOUTME: Stored in SQLite, deduplicated and merged by the consolidation engine
package models

import "time"

// FactStatus represents the lifecycle state of a fact
type FactStatus string

const (
	// StatusActive is the normal state for a stored fact
	StatusActive FactStatus = "ACTIVE"
	// StatusDisputed is set by the contradiction collaborator, never by this engine
	StatusDisputed FactStatus = "DISPUTED"
	// StatusMerged marks the non-surviving side of a merge; only visible
	// inside a merge transaction because those rows are deleted before commit
	StatusMerged FactStatus = "MERGED"
)

const (
	// MaxImportance is the normal importance ceiling
	MaxImportance = 10
	// ProtectedImportance is the extended internal cap reserved for protected facts
	ProtectedImportance = 999
)

// Fact represents one stored unit of knowledge text
type Fact struct {
	FactID         string     `json:"fact_id"`
	ProfileID      string     `json:"profile_id"`
	Content        string     `json:"content"`
	CanonicalKey   string     `json:"canonical_key"`
	Importance     int        `json:"importance"`
	Confidence     int        `json:"confidence"`
	SupportCount   int        `json:"support_count"`
	Keywords       []string   `json:"keywords,omitempty"`
	Relationships  []string   `json:"relationships,omitempty"`
	RetrievalCount int        `json:"retrieval_count"`
	QualityScore   int        `json:"quality_score"`
	Embedding      []float64  `json:"embedding,omitempty"`
	ParentFactID   string     `json:"parent_fact_id,omitempty"`
	Status         FactStatus `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// DuplicateGroup is one survivor plus the facts slated for deletion
type DuplicateGroup struct {
	Master     *Fact   `json:"master"`
	Duplicates []*Fact `json:"duplicates"`
}

// Size returns the total number of facts in the group, master included
func (g *DuplicateGroup) Size() int {
	return 1 + len(g.Duplicates)
}

// All returns the master followed by the duplicates
func (g *DuplicateGroup) All() []*Fact {
	all := make([]*Fact, 0, g.Size())
	all = append(all, g.Master)
	all = append(all, g.Duplicates...)
	return all
}

// DuplicateIDs returns the IDs of the non-surviving facts
func (g *DuplicateGroup) DuplicateIDs() []string {
	ids := make([]string, len(g.Duplicates))
	for i, f := range g.Duplicates {
		ids[i] = f.FactID
	}
	return ids
}

// MatchDecision classifies an embedding similarity score
type MatchDecision string

const (
	// DecisionBlock means near-exact, candidate for automatic merge
	DecisionBlock MatchDecision = "block"
	// DecisionFlag means very similar, candidate for user review
	DecisionFlag MatchDecision = "flag"
	// DecisionAllow means not a duplicate
	DecisionAllow MatchDecision = "allow"
)

// DuplicateMatch is one candidate duplicate with its similarity score
type DuplicateMatch struct {
	Fact       *Fact         `json:"fact"`
	Similarity float64       `json:"similarity"`
	Decision   MatchDecision `json:"decision"`
}

// IngestOutcome describes what happened to an ingested fact
type IngestOutcome string

const (
	// OutcomeCreated means the fact was new and persisted as its own record
	OutcomeCreated IngestOutcome = "created"
	// OutcomeCorroborated means an existing fact absorbed the ingest as support
	OutcomeCorroborated IngestOutcome = "corroborated"
	// OutcomeFlagged means the fact was created but a near-duplicate needs review
	OutcomeFlagged IngestOutcome = "flagged"
)

// IngestResult reports the outcome of a single-fact ingestion
type IngestResult struct {
	Fact                 *Fact           `json:"fact"`
	Outcome              IngestOutcome   `json:"outcome"`
	Match                *DuplicateMatch `json:"match,omitempty"`
	ContradictionGroupID string          `json:"contradiction_group_id,omitempty"`
}

// ScanSummary reports the result of a batch merge pass
type ScanSummary struct {
	GroupsMerged         int      `json:"groups_merged"`
	DuplicatesEliminated int      `json:"duplicates_eliminated"`
	GroupsFailed         int      `json:"groups_failed"`
	FailedMasterIDs      []string `json:"failed_master_ids,omitempty"`
}
