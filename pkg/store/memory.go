package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"mercator-hq/saturn/pkg/compliance"
)

// MemoryStore is an in-process Store implementation for tests and dry runs.
// All reads return deep-enough copies that callers cannot mutate stored state.
type MemoryStore struct {
	mu           sync.RWMutex
	transactions map[string]*compliance.Transaction
	feedback     map[string]*compliance.FeedbackRecord
	snapshots    map[string]*compliance.KPISnapshot
}

// NewMemoryStore creates an empty in-memory ledger store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		transactions: make(map[string]*compliance.Transaction),
		feedback:     make(map[string]*compliance.FeedbackRecord),
		snapshots:    make(map[string]*compliance.KPISnapshot),
	}
}

// SaveTransaction implements Store.
func (s *MemoryStore) SaveTransaction(ctx context.Context, tx *compliance.Transaction) error {
	if err := ctx.Err(); err != nil {
		return compliance.NewStorageError("memory", "save_transaction", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions[tx.ID] = copyTransaction(tx)
	return nil
}

// GetTransaction implements Store.
func (s *MemoryStore) GetTransaction(ctx context.Context, id string) (*compliance.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.transactions[id]
	if !ok {
		return nil, compliance.NewStorageError("memory", "get_transaction",
			fmt.Errorf("transaction %s not found", id))
	}
	return copyTransaction(tx), nil
}

// QueryTransactions implements Store.
func (s *MemoryStore) QueryTransactions(ctx context.Context, q *TransactionQuery) ([]*compliance.Transaction, error) {
	s.mu.RLock()
	matched := []*compliance.Transaction{}
	for _, tx := range s.transactions {
		if q.Vendor != "" && !strings.EqualFold(tx.Invoice.Vendor, q.Vendor) {
			continue
		}
		if q.Category != "" && !strings.EqualFold(tx.Invoice.Category, q.Category) {
			continue
		}
		if q.Bucket != "" && tx.CreatedAt.UTC().Format("2006-01-02") != q.Bucket {
			continue
		}
		if q.Decision != "" && tx.Decision != q.Decision {
			continue
		}
		matched = append(matched, copyTransaction(tx))
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	if q.Offset > 0 {
		if q.Offset >= len(matched) {
			return []*compliance.Transaction{}, nil
		}
		matched = matched[q.Offset:]
	}
	limit := 100
	if q.Limit > 0 {
		limit = q.Limit
	}
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// SaveFeedback implements Store.
func (s *MemoryStore) SaveFeedback(ctx context.Context, fb *compliance.FeedbackRecord) error {
	if err := ctx.Err(); err != nil {
		return compliance.NewStorageError("memory", "save_feedback", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *fb
	s.feedback[fb.ID] = &clone
	return nil
}

// GetFeedback implements Store.
func (s *MemoryStore) GetFeedback(ctx context.Context, id string) (*compliance.FeedbackRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fb, ok := s.feedback[id]
	if !ok {
		return nil, nil
	}
	clone := *fb
	return &clone, nil
}

// GetFeedbackByTransaction implements Store.
func (s *MemoryStore) GetFeedbackByTransaction(ctx context.Context, transactionID string) (*compliance.FeedbackRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, fb := range s.feedback {
		if fb.TransactionID == transactionID {
			clone := *fb
			return &clone, nil
		}
	}
	return nil, nil
}

// SaveSnapshot implements Store.
func (s *MemoryStore) SaveSnapshot(ctx context.Context, snap *compliance.KPISnapshot) error {
	if err := ctx.Err(); err != nil {
		return compliance.NewStorageError("memory", "save_snapshot", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *snap
	s.snapshots[snap.Bucket] = &clone
	return nil
}

// GetSnapshot implements Store.
func (s *MemoryStore) GetSnapshot(ctx context.Context, bucket string) (*compliance.KPISnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.snapshots[bucket]
	if !ok {
		return nil, nil
	}
	clone := *snap
	return &clone, nil
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }

// copyTransaction clones a transaction including its audit trail.
func copyTransaction(tx *compliance.Transaction) *compliance.Transaction {
	clone := *tx
	if tx.Verdict != nil {
		v := *tx.Verdict
		clone.Verdict = &v
	}
	if tx.Invoice.VendorReputation != nil {
		rep := *tx.Invoice.VendorReputation
		clone.Invoice.VendorReputation = &rep
	}
	clone.Invoice.LineItems = append([]compliance.LineItem(nil), tx.Invoice.LineItems...)
	clone.MatchedRules = append([]compliance.MatchedRule(nil), tx.MatchedRules...)
	clone.AuditTrail = append([]compliance.AuditStep(nil), tx.AuditTrail...)
	return &clone
}
