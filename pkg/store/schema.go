package store

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the ledger database schema.
const Schema = `
-- Decided transactions with their audit trails
CREATE TABLE IF NOT EXISTS transactions (
    id TEXT PRIMARY KEY,

    -- Invoice payload
    vendor TEXT NOT NULL,
    category TEXT NOT NULL,
    amount REAL NOT NULL,
    currency TEXT NOT NULL,
    has_po BOOLEAN NOT NULL,
    international BOOLEAN NOT NULL,
    line_items TEXT,
    vendor_reputation INTEGER,

    -- Risk assessment
    risk_score INTEGER NOT NULL,
    risk_level TEXT NOT NULL,

    -- Policy evaluation
    verdict TEXT,
    matched_rules TEXT,

    -- Outcome
    decision TEXT NOT NULL,
    human_override BOOLEAN NOT NULL DEFAULT 0,

    -- Trail and bookkeeping
    audit_trail TEXT NOT NULL,
    bucket TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);

-- Human corrections
CREATE TABLE IF NOT EXISTS feedback_records (
    id TEXT PRIMARY KEY,
    transaction_id TEXT NOT NULL,
    original_decision TEXT NOT NULL,
    human_decision TEXT NOT NULL,
    reasoning TEXT,
    should_generalize BOOLEAN NOT NULL,
    resulting_exception_id TEXT,
    created_at TIMESTAMP NOT NULL
);

-- Per-bucket learning metrics (recomputation overwrites)
CREATE TABLE IF NOT EXISTS kpi_snapshots (
    bucket TEXT PRIMARY KEY,
    total_transactions INTEGER NOT NULL,
    human_corrections INTEGER NOT NULL,
    human_correction_rate REAL NOT NULL,
    context_retention_score REAL NOT NULL,
    auto_approval_rate REAL NOT NULL,
    audit_completeness REAL NOT NULL,
    computed_at TIMESTAMP NOT NULL
);

-- Schema version table
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

-- Indexes for common queries
CREATE INDEX IF NOT EXISTS idx_transactions_vendor ON transactions(vendor);
CREATE INDEX IF NOT EXISTS idx_transactions_category ON transactions(category);
CREATE INDEX IF NOT EXISTS idx_transactions_bucket ON transactions(bucket);
CREATE INDEX IF NOT EXISTS idx_transactions_decision ON transactions(decision);
CREATE INDEX IF NOT EXISTS idx_feedback_transaction ON feedback_records(transaction_id);
`

// InsertSchemaVersion inserts the schema version into the schema_version table.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion retrieves the current schema version from the database.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`
