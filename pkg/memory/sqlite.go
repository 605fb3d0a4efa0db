package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"mercator-hq/saturn/pkg/compliance"
	"mercator-hq/saturn/pkg/telemetry/metrics"
)

// memorySchema creates the exception rule table.
const memorySchema = `
CREATE TABLE IF NOT EXISTS exception_rules (
    id TEXT PRIMARY KEY,
    rule_type TEXT NOT NULL,
    vendor TEXT NOT NULL DEFAULT '',
    category TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL,
    condition TEXT NOT NULL,
    applied_count INTEGER NOT NULL DEFAULT 0,
    success_rate REAL NOT NULL DEFAULT 1.0,
    created_at TIMESTAMP NOT NULL,
    last_applied_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_rules_vendor ON exception_rules(vendor);
CREATE INDEX IF NOT EXISTS idx_rules_category ON exception_rules(category);
CREATE UNIQUE INDEX IF NOT EXISTS idx_rules_scope
    ON exception_rules(rule_type, vendor, category);
`

// SQLiteConfig configures the SQLite memory backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// SQLiteStore is the durable Store implementation backed by SQLite.
// Usage updates use an optimistic compare-and-swap on applied_count so
// concurrent applications of the same rule never lose increments.
type SQLiteStore struct {
	db      *sql.DB
	logger  *slog.Logger
	metrics *metrics.MemoryMetrics
}

// NewSQLiteStore opens (or creates) the memory database at cfg.Path.
// The metrics collector may be nil.
func NewSQLiteStore(cfg SQLiteConfig, mm *metrics.MemoryMetrics) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, compliance.NewStorageError("sqlite", "open", fmt.Errorf("db path cannot be empty"))
	}
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 10
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 5
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		cfg.Path, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, compliance.NewStorageError("sqlite", "open", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)

	if _, err := db.Exec(memorySchema); err != nil {
		db.Close()
		return nil, compliance.NewStorageError("sqlite", "create_schema", err)
	}

	logger := slog.Default().With("component", "memory.sqlite")
	logger.Info("memory store initialized", "path", cfg.Path)

	return &SQLiteStore{db: db, logger: logger, metrics: mm}, nil
}

// Lookup implements Store.
func (s *SQLiteStore) Lookup(ctx context.Context, vendor, category string) ([]*compliance.ExceptionRule, error) {
	// Wildcard scope fields are stored as empty strings; a rule with no
	// scope at all is excluded by the final predicate.
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, rule_type, vendor, category, description, condition,
		       applied_count, success_rate, created_at, last_applied_at
		FROM exception_rules
		WHERE (vendor = '' OR vendor = ? COLLATE NOCASE)
		  AND (category = '' OR category = ? COLLATE NOCASE)
		  AND NOT (vendor = '' AND category = '')
	`, vendor, category)
	if err != nil {
		return nil, compliance.NewStorageError("sqlite", "lookup", err)
	}
	defer rows.Close()

	var rules []*compliance.ExceptionRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, compliance.NewStorageError("sqlite", "scan", err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, compliance.NewStorageError("sqlite", "lookup", err)
	}

	sortRules(rules)

	if len(rules) > 0 {
		s.metrics.RecordLookup("hit")
	} else {
		s.metrics.RecordLookup("miss")
	}
	return rules, nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, ruleID string) (*compliance.ExceptionRule, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, rule_type, vendor, category, description, condition,
		       applied_count, success_rate, created_at, last_applied_at
		FROM exception_rules WHERE id = ?
	`, ruleID)

	rule, err := scanRule(row)
	if err == sql.ErrNoRows {
		return nil, compliance.NewStorageError("sqlite", "get", fmt.Errorf("rule %s not found", ruleID))
	}
	if err != nil {
		return nil, compliance.NewStorageError("sqlite", "get", err)
	}
	return rule, nil
}

// Upsert implements Store. The unique scope index makes the refresh-or-insert
// race-safe: concurrent upserts of the same scope converge on one row.
func (s *SQLiteStore) Upsert(ctx context.Context, rule *compliance.ExceptionRule) (string, error) {
	condition, err := json.Marshal(rule.Condition)
	if err != nil {
		return "", compliance.NewStorageError("sqlite", "upsert", err)
	}

	id := rule.ID
	if id == "" {
		id = uuid.New().String()
	}

	// Refresh path: update description/condition on the existing scope row.
	res, err := s.db.ExecContext(ctx, `
		UPDATE exception_rules
		SET description = ?, condition = ?
		WHERE rule_type = ? AND vendor = ? COLLATE NOCASE AND category = ? COLLATE NOCASE
	`, rule.Description, string(condition), string(rule.RuleType), rule.Vendor, rule.Category)
	if err != nil {
		return "", compliance.NewStorageError("sqlite", "upsert", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		existingID, err := s.scopeRuleID(ctx, rule)
		if err != nil {
			return "", err
		}
		s.metrics.RecordUpsert("refresh")
		s.logger.Debug("exception rule refreshed", "rule_id", existingID)
		return existingID, nil
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO exception_rules
			(id, rule_type, vendor, category, description, condition,
			 applied_count, success_rate, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, 1.0, ?)
	`, id, string(rule.RuleType), rule.Vendor, rule.Category,
		rule.Description, string(condition), time.Now().UTC())
	if err != nil {
		// A concurrent insert of the same scope wins the unique index; fall
		// back to the refresh path.
		if strings.Contains(err.Error(), "UNIQUE") {
			return s.Upsert(ctx, rule)
		}
		return "", compliance.NewStorageError("sqlite", "upsert", err)
	}

	s.metrics.RecordUpsert("insert")
	s.logger.Info("exception rule created",
		"rule_id", id,
		"rule_type", rule.RuleType,
		"vendor", rule.Vendor,
		"category", rule.Category,
	)
	return id, nil
}

// RecordUsage implements Store using an optimistic compare-and-swap on
// applied_count, retried up to usageRetryLimit times.
func (s *SQLiteStore) RecordUsage(ctx context.Context, ruleID string, success bool) error {
	for attempt := 1; attempt <= usageRetryLimit; attempt++ {
		var count int
		var rate float64
		err := s.db.QueryRowContext(ctx,
			`SELECT applied_count, success_rate FROM exception_rules WHERE id = ?`,
			ruleID).Scan(&count, &rate)
		if err == sql.ErrNoRows {
			return compliance.NewStorageError("sqlite", "record_usage", fmt.Errorf("rule %s not found", ruleID))
		}
		if err != nil {
			return compliance.NewStorageError("sqlite", "record_usage", err)
		}

		res, err := s.db.ExecContext(ctx, `
			UPDATE exception_rules
			SET applied_count = ?, success_rate = ?, last_applied_at = ?
			WHERE id = ? AND applied_count = ?
		`, count+1, foldSuccess(rate, count, success), time.Now().UTC(), ruleID, count)
		if err != nil {
			return compliance.NewStorageError("sqlite", "record_usage", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			s.metrics.RecordUsage(success)
			return nil
		}

		// Lost the race: another writer advanced applied_count first.
		s.metrics.RecordWriteConflict()
		s.logger.Debug("usage update conflict, retrying with fresh read",
			"rule_id", ruleID,
			"attempt", attempt,
		)
	}

	return compliance.NewMemoryWriteConflictError(ruleID, usageRetryLimit)
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return compliance.NewStorageError("sqlite", "close", err)
	}
	s.logger.Info("memory store closed")
	return nil
}

// scopeRuleID returns the id of the rule occupying the given scope.
func (s *SQLiteStore) scopeRuleID(ctx context.Context, rule *compliance.ExceptionRule) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM exception_rules
		WHERE rule_type = ? AND vendor = ? COLLATE NOCASE AND category = ? COLLATE NOCASE
	`, string(rule.RuleType), rule.Vendor, rule.Category).Scan(&id)
	if err != nil {
		return "", compliance.NewStorageError("sqlite", "upsert", err)
	}
	return id, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanRule scans a database row into an ExceptionRule.
func scanRule(row rowScanner) (*compliance.ExceptionRule, error) {
	var rule compliance.ExceptionRule
	var ruleType, condition string
	var lastApplied sql.NullTime

	err := row.Scan(&rule.ID, &ruleType, &rule.Vendor, &rule.Category,
		&rule.Description, &condition, &rule.AppliedCount, &rule.SuccessRate,
		&rule.CreatedAt, &lastApplied)
	if err != nil {
		return nil, err
	}

	rule.RuleType = compliance.RuleType(ruleType)
	if lastApplied.Valid {
		rule.LastAppliedAt = lastApplied.Time
	}
	if condition != "" {
		if err := json.Unmarshal([]byte(condition), &rule.Condition); err != nil {
			return nil, err
		}
	}
	return &rule, nil
}
