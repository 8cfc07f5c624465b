// ABOUTME: Confidence propagation for new and corroborated facts
// ABOUTME: Owns initial confidence scoring and the fixed corroboration boost
package engine

import (
	"strings"
	"time"

	"github.com/harper/facts-standalone/internal/models"
)

// SourceKind classifies where a fact came from, for initial confidence
type SourceKind string

const (
	SourceDocument SourceKind = "document"
	SourceNotes    SourceKind = "notes"
	SourceChat     SourceKind = "chat"
	SourceUnknown  SourceKind = "unknown"
)

// Initial confidence bounds and increments
const (
	baseConfidence       = 50
	importanceBonusCap   = 40
	minInitialConfidence = 30
	maxInitialConfidence = 90
	maxConfidence        = 100
	corroborationBoost   = 10
	documentSourceBonus  = 15
	notesSourceBonus     = 10
	chatSourceBonus      = 5
)

// ClassifySource maps a free-form source descriptor onto a SourceKind
func ClassifySource(descriptor string) SourceKind {
	d := strings.ToLower(descriptor)
	switch {
	case strings.Contains(d, "doc"), strings.Contains(d, "manual"), strings.Contains(d, "wiki"):
		return SourceDocument
	case strings.Contains(d, "note"), strings.Contains(d, "log"), strings.Contains(d, "journal"):
		return SourceNotes
	case strings.Contains(d, "chat"), strings.Contains(d, "transcript"), strings.Contains(d, "conversation"):
		return SourceChat
	default:
		return SourceUnknown
	}
}

// InitialConfidence computes the starting confidence for a brand-new fact:
// base 50, +10 per importance point above 1 (capped at +40), plus a
// source-type bonus, clamped to [30,90].
func InitialConfidence(importance int, source SourceKind) int {
	confidence := baseConfidence

	bonus := (importance - 1) * 10
	if bonus > importanceBonusCap {
		bonus = importanceBonusCap
	}
	if bonus < 0 {
		bonus = 0
	}
	confidence += bonus

	switch source {
	case SourceDocument:
		confidence += documentSourceBonus
	case SourceNotes:
		confidence += notesSourceBonus
	case SourceChat:
		confidence += chatSourceBonus
	}

	if confidence < minInitialConfidence {
		return minInitialConfidence
	}
	if confidence > maxInitialConfidence {
		return maxInitialConfidence
	}
	return confidence
}

// Corroborate records one more independent source for an existing fact.
// The boost is a fixed +10 regardless of source quality, so repeated
// low-quality corroboration cannot inflate confidence past 100 nor outrun
// a single high-quality source by more than 10 points per event.
func Corroborate(fact *models.Fact) {
	fact.SupportCount++
	fact.Confidence += corroborationBoost
	if fact.Confidence > maxConfidence {
		fact.Confidence = maxConfidence
	}
	fact.UpdatedAt = time.Now()
}

// ClampConfidence keeps a confidence value inside [0,100]
func ClampConfidence(confidence int) int {
	if confidence < 0 {
		return 0
	}
	if confidence > maxConfidence {
		return maxConfidence
	}
	return confidence
}
