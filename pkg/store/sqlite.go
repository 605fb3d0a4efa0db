package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"mercator-hq/saturn/pkg/compliance"
)

// SQLiteConfig contains configuration for the SQLite ledger backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections to the database.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite ledger backend.
// It initializes the schema and enables WAL mode.
func NewSQLiteStore(cfg SQLiteConfig) (*SQLiteStore, error) {
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

	db, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, compliance.NewStorageError("sqlite", "open", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)

	s := &SQLiteStore{
		db:     db,
		logger: slog.Default().With("component", "store.sqlite"),
	}

	if err := s.initialize(cfg); err != nil {
		db.Close()
		return nil, err
	}

	s.logger.Info("ledger store initialized",
		"path", cfg.Path,
		"max_open_conns", cfg.MaxOpenConns,
	)
	return s, nil
}

// initialize sets up the database schema and enables WAL mode.
func (s *SQLiteStore) initialize(cfg SQLiteConfig) error {
	if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return compliance.NewStorageError("sqlite", "enable_wal", err)
	}
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", cfg.BusyTimeout.Milliseconds())); err != nil {
		return compliance.NewStorageError("sqlite", "set_busy_timeout", err)
	}
	if _, err := s.db.Exec(Schema); err != nil {
		return compliance.NewStorageError("sqlite", "create_schema", err)
	}
	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return compliance.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return compliance.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return compliance.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}
	return nil
}

// SaveTransaction writes the transaction and its audit trail in one row, so
// the write is atomic by construction.
func (s *SQLiteStore) SaveTransaction(ctx context.Context, tx *compliance.Transaction) error {
	lineItems, _ := json.Marshal(tx.Invoice.LineItems)
	matchedRules, _ := json.Marshal(tx.MatchedRules)
	trail, _ := json.Marshal(tx.AuditTrail)

	var verdict interface{}
	if tx.Verdict != nil {
		b, _ := json.Marshal(tx.Verdict)
		verdict = string(b)
	}

	var reputation interface{}
	if tx.Invoice.VendorReputation != nil {
		reputation = *tx.Invoice.VendorReputation
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (
			id, vendor, category, amount, currency, has_po, international,
			line_items, vendor_reputation,
			risk_score, risk_level, verdict, matched_rules,
			decision, human_override, audit_trail, bucket, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			decision = excluded.decision,
			human_override = excluded.human_override,
			verdict = excluded.verdict,
			audit_trail = excluded.audit_trail
	`,
		tx.ID, tx.Invoice.Vendor, tx.Invoice.Category, tx.Invoice.Amount,
		tx.Invoice.Currency, tx.Invoice.HasPO, tx.Invoice.International,
		string(lineItems), reputation,
		tx.RiskScore, string(tx.RiskLevel), verdict, string(matchedRules),
		string(tx.Decision), tx.HumanOverride, string(trail),
		tx.CreatedAt.UTC().Format("2006-01-02"), tx.CreatedAt.UTC(),
	)
	if err != nil {
		return compliance.NewStorageError("sqlite", "save_transaction", err)
	}
	return nil
}

// GetTransaction returns a transaction by id.
func (s *SQLiteStore) GetTransaction(ctx context.Context, id string) (*compliance.Transaction, error) {
	row := s.db.QueryRowContext(ctx, selectTransactions+" WHERE id = ?", id)
	tx, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, compliance.NewStorageError("sqlite", "get_transaction",
			fmt.Errorf("transaction %s not found", id))
	}
	if err != nil {
		return nil, compliance.NewStorageError("sqlite", "get_transaction", err)
	}
	return tx, nil
}

// QueryTransactions returns transactions matching the query filters.
func (s *SQLiteStore) QueryTransactions(ctx context.Context, q *TransactionQuery) ([]*compliance.Transaction, error) {
	whereClause, args := buildWhereClause(q)

	sqlQuery := selectTransactions
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}
	sqlQuery += " ORDER BY created_at ASC, id ASC"

	limit := 100
	if q.Limit > 0 {
		limit = q.Limit
	}
	sqlQuery += fmt.Sprintf(" LIMIT %d", limit)
	if q.Offset > 0 {
		sqlQuery += fmt.Sprintf(" OFFSET %d", q.Offset)
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, compliance.NewStorageError("sqlite", "query_transactions", err)
	}
	defer rows.Close()

	txs := []*compliance.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, compliance.NewStorageError("sqlite", "scan", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, compliance.NewStorageError("sqlite", "query_transactions", err)
	}
	return txs, nil
}

// SaveFeedback persists a feedback record.
func (s *SQLiteStore) SaveFeedback(ctx context.Context, fb *compliance.FeedbackRecord) error {
	var exceptionID interface{}
	if fb.ResultingExceptionID != "" {
		exceptionID = fb.ResultingExceptionID
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO feedback_records (
			id, transaction_id, original_decision, human_decision,
			reasoning, should_generalize, resulting_exception_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			resulting_exception_id = excluded.resulting_exception_id
	`,
		fb.ID, fb.TransactionID, string(fb.OriginalDecision), string(fb.HumanDecision),
		fb.Reasoning, fb.ShouldGeneralize, exceptionID, fb.CreatedAt.UTC(),
	)
	if err != nil {
		return compliance.NewStorageError("sqlite", "save_feedback", err)
	}
	return nil
}

// GetFeedback returns a feedback record by id, or nil if absent.
func (s *SQLiteStore) GetFeedback(ctx context.Context, id string) (*compliance.FeedbackRecord, error) {
	row := s.db.QueryRowContext(ctx, selectFeedback+" WHERE id = ?", id)
	fb, err := scanFeedback(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, compliance.NewStorageError("sqlite", "get_feedback", err)
	}
	return fb, nil
}

// GetFeedbackByTransaction returns the feedback record for a transaction,
// or nil if none exists.
func (s *SQLiteStore) GetFeedbackByTransaction(ctx context.Context, transactionID string) (*compliance.FeedbackRecord, error) {
	row := s.db.QueryRowContext(ctx, selectFeedback+" WHERE transaction_id = ? LIMIT 1", transactionID)
	fb, err := scanFeedback(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, compliance.NewStorageError("sqlite", "get_feedback", err)
	}
	return fb, nil
}

// SaveSnapshot overwrites the KPI snapshot for its bucket.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snap *compliance.KPISnapshot) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kpi_snapshots (
			bucket, total_transactions, human_corrections,
			human_correction_rate, context_retention_score,
			auto_approval_rate, audit_completeness, computed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(bucket) DO UPDATE SET
			total_transactions = excluded.total_transactions,
			human_corrections = excluded.human_corrections,
			human_correction_rate = excluded.human_correction_rate,
			context_retention_score = excluded.context_retention_score,
			auto_approval_rate = excluded.auto_approval_rate,
			audit_completeness = excluded.audit_completeness,
			computed_at = excluded.computed_at
	`,
		snap.Bucket, snap.TotalTransactions, snap.HumanCorrections,
		snap.HumanCorrectionRate, snap.ContextRetentionScore,
		snap.AutoApprovalRate, snap.AuditCompleteness, snap.ComputedAt.UTC(),
	)
	if err != nil {
		return compliance.NewStorageError("sqlite", "save_snapshot", err)
	}
	return nil
}

// GetSnapshot returns the KPI snapshot for a bucket, or nil if absent.
func (s *SQLiteStore) GetSnapshot(ctx context.Context, bucket string) (*compliance.KPISnapshot, error) {
	var snap compliance.KPISnapshot
	err := s.db.QueryRowContext(ctx, `
		SELECT bucket, total_transactions, human_corrections,
		       human_correction_rate, context_retention_score,
		       auto_approval_rate, audit_completeness, computed_at
		FROM kpi_snapshots WHERE bucket = ?
	`, bucket).Scan(
		&snap.Bucket, &snap.TotalTransactions, &snap.HumanCorrections,
		&snap.HumanCorrectionRate, &snap.ContextRetentionScore,
		&snap.AutoApprovalRate, &snap.AuditCompleteness, &snap.ComputedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, compliance.NewStorageError("sqlite", "get_snapshot", err)
	}
	return &snap, nil
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return compliance.NewStorageError("sqlite", "close", err)
	}
	s.logger.Info("ledger store closed")
	return nil
}

const selectTransactions = `
	SELECT id, vendor, category, amount, currency, has_po, international,
	       line_items, vendor_reputation,
	       risk_score, risk_level, verdict, matched_rules,
	       decision, human_override, audit_trail, created_at
	FROM transactions`

const selectFeedback = `
	SELECT id, transaction_id, original_decision, human_decision,
	       reasoning, should_generalize, resulting_exception_id, created_at
	FROM feedback_records`

// buildWhereClause builds a SQL WHERE clause from query filters.
// Returns the clause (without "WHERE") and the query arguments.
func buildWhereClause(q *TransactionQuery) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if q.Vendor != "" {
		conditions = append(conditions, "vendor = ? COLLATE NOCASE")
		args = append(args, q.Vendor)
	}
	if q.Category != "" {
		conditions = append(conditions, "category = ? COLLATE NOCASE")
		args = append(args, q.Category)
	}
	if q.Bucket != "" {
		conditions = append(conditions, "bucket = ?")
		args = append(args, q.Bucket)
	}
	if q.Decision != "" {
		conditions = append(conditions, "decision = ?")
		args = append(args, string(q.Decision))
	}

	whereClause := ""
	for i, condition := range conditions {
		if i > 0 {
			whereClause += " AND "
		}
		whereClause += condition
	}
	return whereClause, args
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanTransaction scans a database row into a Transaction.
func scanTransaction(row rowScanner) (*compliance.Transaction, error) {
	var tx compliance.Transaction
	var lineItems, matchedRules, trail string
	var verdict sql.NullString
	var reputation sql.NullInt64
	var riskLevel, decision string

	err := row.Scan(
		&tx.ID, &tx.Invoice.Vendor, &tx.Invoice.Category, &tx.Invoice.Amount,
		&tx.Invoice.Currency, &tx.Invoice.HasPO, &tx.Invoice.International,
		&lineItems, &reputation,
		&tx.RiskScore, &riskLevel, &verdict, &matchedRules,
		&decision, &tx.HumanOverride, &trail, &tx.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	tx.RiskLevel = compliance.RiskLevel(riskLevel)
	tx.Decision = compliance.Decision(decision)

	if reputation.Valid {
		rep := int(reputation.Int64)
		tx.Invoice.VendorReputation = &rep
	}
	if lineItems != "" {
		json.Unmarshal([]byte(lineItems), &tx.Invoice.LineItems)
	}
	if verdict.Valid && verdict.String != "" {
		var v compliance.Verdict
		if err := json.Unmarshal([]byte(verdict.String), &v); err == nil {
			tx.Verdict = &v
		}
	}
	if matchedRules != "" {
		json.Unmarshal([]byte(matchedRules), &tx.MatchedRules)
	}
	if trail != "" {
		json.Unmarshal([]byte(trail), &tx.AuditTrail)
	}
	return &tx, nil
}

// scanFeedback scans a database row into a FeedbackRecord.
func scanFeedback(row rowScanner) (*compliance.FeedbackRecord, error) {
	var fb compliance.FeedbackRecord
	var original, human string
	var exceptionID sql.NullString

	err := row.Scan(&fb.ID, &fb.TransactionID, &original, &human,
		&fb.Reasoning, &fb.ShouldGeneralize, &exceptionID, &fb.CreatedAt)
	if err != nil {
		return nil, err
	}

	fb.OriginalDecision = compliance.Decision(original)
	fb.HumanDecision = compliance.Decision(human)
	if exceptionID.Valid {
		fb.ResultingExceptionID = exceptionID.String
	}
	return &fb, nil
}
