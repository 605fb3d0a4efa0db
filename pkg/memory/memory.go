package memory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"mercator-hq/saturn/pkg/compliance"
	"mercator-hq/saturn/pkg/telemetry/metrics"
)

// MemoryStore is an in-process Store implementation.
// Rules are copied on read and write, so callers never share mutable state
// with the store; per-rule locks serialize usage updates.
type MemoryStore struct {
	mu      sync.RWMutex
	rules   map[string]*compliance.ExceptionRule
	locks   map[string]*sync.Mutex
	logger  *slog.Logger
	metrics *metrics.MemoryMetrics
}

// NewMemoryStore creates an empty in-memory store.
// The metrics collector may be nil.
func NewMemoryStore(mm *metrics.MemoryMetrics) *MemoryStore {
	return &MemoryStore{
		rules:   make(map[string]*compliance.ExceptionRule),
		locks:   make(map[string]*sync.Mutex),
		logger:  slog.Default().With("component", "memory.store"),
		metrics: mm,
	}
}

// Lookup implements Store.
func (s *MemoryStore) Lookup(ctx context.Context, vendor, category string) ([]*compliance.ExceptionRule, error) {
	if err := ctx.Err(); err != nil {
		return nil, compliance.NewStorageError("memory", "lookup", err)
	}

	s.mu.RLock()
	matched := make([]*compliance.ExceptionRule, 0, 4)
	for _, rule := range s.rules {
		if scopeMatches(rule, vendor, category) {
			clone := *rule
			matched = append(matched, &clone)
		}
	}
	s.mu.RUnlock()

	sortRules(matched)

	if len(matched) > 0 {
		s.metrics.RecordLookup("hit")
	} else {
		s.metrics.RecordLookup("miss")
	}
	return matched, nil
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, ruleID string) (*compliance.ExceptionRule, error) {
	if err := ctx.Err(); err != nil {
		return nil, compliance.NewStorageError("memory", "get", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rule, ok := s.rules[ruleID]
	if !ok {
		return nil, compliance.NewStorageError("memory", "get", fmt.Errorf("rule %s not found", ruleID))
	}
	clone := *rule
	return &clone, nil
}

// Upsert implements Store. A rule matching on vendor, category, and rule
// type is refreshed in place (keeping its usage statistics); otherwise a new
// rule is inserted with a fresh id, zero applied count, and a success-rate
// prior of 1.0.
func (s *MemoryStore) Upsert(ctx context.Context, rule *compliance.ExceptionRule) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", compliance.NewStorageError("memory", "upsert", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.rules {
		if existing.RuleType == rule.RuleType &&
			strings.EqualFold(existing.Vendor, rule.Vendor) &&
			strings.EqualFold(existing.Category, rule.Category) {
			existing.Description = rule.Description
			existing.Condition = rule.Condition
			s.metrics.RecordUpsert("refresh")
			s.logger.Debug("exception rule refreshed", "rule_id", existing.ID)
			return existing.ID, nil
		}
	}

	inserted := *rule
	if inserted.ID == "" {
		inserted.ID = uuid.New().String()
	}
	inserted.AppliedCount = 0
	inserted.SuccessRate = 1.0
	inserted.CreatedAt = time.Now().UTC()
	s.rules[inserted.ID] = &inserted
	s.locks[inserted.ID] = &sync.Mutex{}

	s.metrics.RecordUpsert("insert")
	s.logger.Info("exception rule created",
		"rule_id", inserted.ID,
		"rule_type", inserted.RuleType,
		"vendor", inserted.Vendor,
		"category", inserted.Category,
	)
	return inserted.ID, nil
}

// RecordUsage implements Store. Updates for the same rule are serialized by
// a per-rule mutex.
func (s *MemoryStore) RecordUsage(ctx context.Context, ruleID string, success bool) error {
	if err := ctx.Err(); err != nil {
		return compliance.NewStorageError("memory", "record_usage", err)
	}

	s.mu.RLock()
	lock, ok := s.locks[ruleID]
	s.mu.RUnlock()
	if !ok {
		return compliance.NewStorageError("memory", "record_usage", fmt.Errorf("rule %s not found", ruleID))
	}

	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	rule := s.rules[ruleID]
	rule.SuccessRate = foldSuccess(rule.SuccessRate, rule.AppliedCount, success)
	rule.AppliedCount++
	rule.LastAppliedAt = time.Now().UTC()
	s.mu.Unlock()

	s.metrics.RecordUsage(success)
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }
