// ABOUTME: SQLite database schema for fact storage
// ABOUTME: Creates the facts table and indexes for consolidation queries
package sqlite

// Schema contains all SQL statements for database initialization
const Schema = `
-- Facts table: one row per consolidated knowledge fact
CREATE TABLE IF NOT EXISTS facts (
    id TEXT PRIMARY KEY,
    profile_id TEXT NOT NULL,
    content TEXT NOT NULL,
    canonical_key TEXT NOT NULL,
    importance INTEGER DEFAULT 5,
    confidence INTEGER DEFAULT 50,
    support_count INTEGER DEFAULT 1,
    keywords TEXT,
    relationships TEXT,
    retrieval_count INTEGER DEFAULT 0,
    quality_score INTEGER DEFAULT 0,
    embedding BLOB,
    parent_fact_id TEXT,
    status TEXT DEFAULT 'ACTIVE',
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Indexes for efficient querying
-- canonical_key is deliberately NOT unique: collisions are expected and
-- scoped per profile by the lookup queries
CREATE INDEX IF NOT EXISTS idx_facts_profile ON facts(profile_id);
CREATE INDEX IF NOT EXISTS idx_facts_canonical_key ON facts(profile_id, canonical_key);
CREATE INDEX IF NOT EXISTS idx_facts_created ON facts(profile_id, created_at);
CREATE INDEX IF NOT EXISTS idx_facts_parent ON facts(parent_fact_id);
`

// SchemaVersion is the current schema version for migrations
const SchemaVersion = 1
