// ABOUTME: Fact storage operations for SQLite
// ABOUTME: Implements scoped lookup, creation-order iteration, and the merge transaction
package sqlite

import (
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/harper/facts-standalone/internal/models"
)

// FactStore handles fact persistence
type FactStore struct {
	db *DB
}

// NewFactStore creates a new FactStore
func NewFactStore(db *DB) *FactStore {
	return &FactStore{db: db}
}

const factColumns = `id, profile_id, content, canonical_key, importance, confidence,
	support_count, keywords, relationships, retrieval_count, quality_score,
	embedding, parent_fact_id, status, created_at, updated_at`

// Save saves a fact, updating all mutable fields on conflict
func (s *FactStore) Save(fact *models.Fact) error {
	createdAt := fact.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	updatedAt := fact.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}
	status := fact.Status
	if status == "" {
		status = models.StatusActive
	}

	keywords, err := marshalStrings(fact.Keywords)
	if err != nil {
		return fmt.Errorf("failed to encode keywords: %w", err)
	}
	relationships, err := marshalStrings(fact.Relationships)
	if err != nil {
		return fmt.Errorf("failed to encode relationships: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO facts (id, profile_id, content, canonical_key, importance, confidence,
			support_count, keywords, relationships, retrieval_count, quality_score,
			embedding, parent_fact_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content = excluded.content,
			canonical_key = excluded.canonical_key,
			importance = excluded.importance,
			confidence = excluded.confidence,
			support_count = excluded.support_count,
			keywords = excluded.keywords,
			relationships = excluded.relationships,
			retrieval_count = excluded.retrieval_count,
			quality_score = excluded.quality_score,
			embedding = excluded.embedding,
			parent_fact_id = excluded.parent_fact_id,
			status = excluded.status,
			updated_at = excluded.updated_at
	`, fact.FactID, fact.ProfileID, fact.Content, fact.CanonicalKey,
		fact.Importance, fact.Confidence, fact.SupportCount,
		keywords, relationships, fact.RetrievalCount, fact.QualityScore,
		vectorToBlob(fact.Embedding), nullString(fact.ParentFactID),
		string(status), createdAt, updatedAt)

	return err
}

// GetByID retrieves a fact by its ID
func (s *FactStore) GetByID(factID string) (*models.Fact, error) {
	row := s.db.QueryRow(`
		SELECT `+factColumns+`
		FROM facts
		WHERE id = ?
	`, factID)

	fact, err := scanFact(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return fact, nil
}

// GetByCanonicalKey retrieves the earliest-created fact with the given
// canonical key within a profile scope. Earliest wins so repeated exact
// duplicates always corroborate the same survivor.
func (s *FactStore) GetByCanonicalKey(profileID, key string) (*models.Fact, error) {
	row := s.db.QueryRow(`
		SELECT `+factColumns+`
		FROM facts
		WHERE profile_id = ? AND canonical_key = ?
		ORDER BY created_at ASC, id ASC
		LIMIT 1
	`, profileID, key)

	fact, err := scanFact(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return fact, nil
}

// ListByProfile retrieves all facts for a profile in creation order.
// The order is the grouping tie-break: earliest-created facts become
// duplicate-group masters.
func (s *FactStore) ListByProfile(profileID string) ([]*models.Fact, error) {
	rows, err := s.db.Query(`
		SELECT `+factColumns+`
		FROM facts
		WHERE profile_id = ?
		ORDER BY created_at ASC, id ASC
	`, profileID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return scanFacts(rows)
}

// CountByProfile returns the number of facts stored for a profile
func (s *FactStore) CountByProfile(profileID string) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM facts WHERE profile_id = ?`, profileID).Scan(&count)
	return count, err
}

// DeleteByID deletes a fact by its ID
func (s *FactStore) DeleteByID(factID string) error {
	_, err := s.db.Exec("DELETE FROM facts WHERE id = ?", factID)
	return err
}

// MergeGroup persists a group merge atomically: the survivor row is updated
// with the merged fields and the duplicate rows are deleted, all within one
// transaction. Any failure rolls the whole merge back so no partial merge
// is ever observable.
func (s *FactStore) MergeGroup(survivor *models.Fact, duplicateIDs []string) error {
	keywords, err := marshalStrings(survivor.Keywords)
	if err != nil {
		return fmt.Errorf("failed to encode keywords: %w", err)
	}
	relationships, err := marshalStrings(survivor.Relationships)
	if err != nil {
		return fmt.Errorf("failed to encode relationships: %w", err)
	}

	tx, err := s.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin merge transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.Exec(`
		UPDATE facts SET
			content = ?,
			canonical_key = ?,
			importance = ?,
			confidence = ?,
			support_count = ?,
			keywords = ?,
			relationships = ?,
			retrieval_count = ?,
			quality_score = ?,
			embedding = ?,
			status = ?,
			updated_at = ?
		WHERE id = ?
	`, survivor.Content, survivor.CanonicalKey,
		survivor.Importance, survivor.Confidence,
		survivor.SupportCount, keywords, relationships,
		survivor.RetrievalCount, survivor.QualityScore,
		vectorToBlob(survivor.Embedding),
		string(survivor.Status), time.Now(), survivor.FactID)
	if err != nil {
		return fmt.Errorf("failed to update survivor: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check survivor update: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("survivor fact %s not found", survivor.FactID)
	}

	for _, id := range duplicateIDs {
		if _, err := tx.Exec("DELETE FROM facts WHERE id = ?", id); err != nil {
			return fmt.Errorf("failed to delete duplicate %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit merge: %w", err)
	}
	return nil
}

// scanner abstracts sql.Row and sql.Rows for shared scanning
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanFact scans a single fact row
func scanFact(row scanner) (*models.Fact, error) {
	var (
		fact          models.Fact
		keywords      sql.NullString
		relationships sql.NullString
		embedding     []byte
		parentID      sql.NullString
		status        string
	)

	err := row.Scan(&fact.FactID, &fact.ProfileID, &fact.Content, &fact.CanonicalKey,
		&fact.Importance, &fact.Confidence, &fact.SupportCount,
		&keywords, &relationships, &fact.RetrievalCount, &fact.QualityScore,
		&embedding, &parentID, &status, &fact.CreatedAt, &fact.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if fact.Keywords, err = unmarshalStrings(keywords); err != nil {
		return nil, fmt.Errorf("failed to decode keywords: %w", err)
	}
	if fact.Relationships, err = unmarshalStrings(relationships); err != nil {
		return nil, fmt.Errorf("failed to decode relationships: %w", err)
	}
	fact.Embedding = blobToVector(embedding)
	if parentID.Valid {
		fact.ParentFactID = parentID.String
	}
	fact.Status = models.FactStatus(status)

	return &fact, nil
}

// scanFacts scans rows into a slice of Fact
func scanFacts(rows *sql.Rows) ([]*models.Fact, error) {
	var facts []*models.Fact

	for rows.Next() {
		fact, err := scanFact(rows)
		if err != nil {
			return nil, err
		}
		facts = append(facts, fact)
	}

	return facts, rows.Err()
}

// marshalStrings encodes a string set as a JSON array, nil for empty
func marshalStrings(values []string) (interface{}, error) {
	if len(values) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// unmarshalStrings decodes a JSON array column
func unmarshalStrings(column sql.NullString) ([]string, error) {
	if !column.Valid || column.String == "" {
		return nil, nil
	}
	var values []string
	if err := json.Unmarshal([]byte(column.String), &values); err != nil {
		return nil, err
	}
	return values, nil
}

// vectorToBlob converts a float64 slice to a binary blob, nil for empty
func vectorToBlob(vector []float64) []byte {
	if len(vector) == 0 {
		return nil
	}
	blob := make([]byte, len(vector)*8)
	for i, v := range vector {
		binary.LittleEndian.PutUint64(blob[i*8:], math.Float64bits(v))
	}
	return blob
}

// blobToVector converts a binary blob to a float64 slice
func blobToVector(blob []byte) []float64 {
	if len(blob) == 0 {
		return nil
	}
	count := len(blob) / 8
	vector := make([]float64, count)
	for i := 0; i < count; i++ {
		bits := binary.LittleEndian.Uint64(blob[i*8:])
		vector[i] = math.Float64frombits(bits)
	}
	return vector
}

// nullString converts an empty string to sql.NullString
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}
