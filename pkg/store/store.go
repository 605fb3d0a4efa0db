package store

import (
	"context"

	"mercator-hq/saturn/pkg/compliance"
)

// TransactionQuery defines filter parameters for querying transactions.
type TransactionQuery struct {
	// Filters
	Vendor   string              // Filter by vendor (exact, case-insensitive)
	Category string              // Filter by category (exact, case-insensitive)
	Bucket   string              // Filter by UTC day bucket ("2006-01-02")
	Decision compliance.Decision // Filter by final decision

	// Pagination
	Limit  int // Max records to return (default 100)
	Offset int // Skip N records
}

// Store is the persistence interface for transactions, feedback records,
// and KPI snapshots. Implementations must be safe for concurrent use.
type Store interface {
	// SaveTransaction writes a transaction and its full audit trail
	// atomically. Saving an existing id overwrites the row (used when a
	// feedback record updates the decision).
	SaveTransaction(ctx context.Context, tx *compliance.Transaction) error

	// GetTransaction returns a transaction by id.
	GetTransaction(ctx context.Context, id string) (*compliance.Transaction, error)

	// QueryTransactions returns transactions matching the query filters,
	// ordered by creation time ascending.
	QueryTransactions(ctx context.Context, q *TransactionQuery) ([]*compliance.Transaction, error)

	// SaveFeedback persists a feedback record. Records are written at most
	// twice: once on creation and once when the resulting exception id is
	// recorded.
	SaveFeedback(ctx context.Context, fb *compliance.FeedbackRecord) error

	// GetFeedback returns a feedback record by id, or nil if absent.
	GetFeedback(ctx context.Context, id string) (*compliance.FeedbackRecord, error)

	// GetFeedbackByTransaction returns the feedback record for a
	// transaction, or nil if none exists.
	GetFeedbackByTransaction(ctx context.Context, transactionID string) (*compliance.FeedbackRecord, error)

	// SaveSnapshot overwrites the KPI snapshot for its bucket.
	SaveSnapshot(ctx context.Context, snap *compliance.KPISnapshot) error

	// GetSnapshot returns the KPI snapshot for a bucket, or nil if the
	// bucket has never been computed.
	GetSnapshot(ctx context.Context, bucket string) (*compliance.KPISnapshot, error)

	// Close releases resources held by the store.
	Close() error
}
