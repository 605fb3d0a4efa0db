package memory

import (
	"context"
	"sort"
	"strings"

	"mercator-hq/saturn/pkg/compliance"
)

// usageRetryLimit bounds optimistic retry attempts for usage updates before
// a MemoryWriteConflictError is surfaced.
const usageRetryLimit = 3

// Store is the adaptive memory interface consumed by the policy evaluator
// and the exception manager. Implementations must allow concurrent readers
// and serialize writes per rule id.
type Store interface {
	// Lookup returns the rules whose scope matches the vendor/category,
	// ordered by success rate descending with most-recently-applied
	// tiebreak.
	Lookup(ctx context.Context, vendor, category string) ([]*compliance.ExceptionRule, error)

	// Get returns a rule by id, or a storage error if it does not exist.
	Get(ctx context.Context, ruleID string) (*compliance.ExceptionRule, error)

	// Upsert refreshes an existing rule with the same vendor, category, and
	// rule type, or inserts a new one. It returns the rule id.
	Upsert(ctx context.Context, rule *compliance.ExceptionRule) (string, error)

	// RecordUsage increments the rule's applied count and folds the success
	// outcome into its running success rate.
	RecordUsage(ctx context.Context, ruleID string, success bool) error

	// Close releases resources held by the store.
	Close() error
}

// scopeMatches reports whether a rule's scope predicate covers the
// vendor/category pair. An empty scope field is a wildcard, but a rule with
// no scope at all never matches.
func scopeMatches(rule *compliance.ExceptionRule, vendor, category string) bool {
	if rule.Vendor == "" && rule.Category == "" {
		return false
	}
	if rule.Vendor != "" && !strings.EqualFold(rule.Vendor, vendor) {
		return false
	}
	if rule.Category != "" && !strings.EqualFold(rule.Category, category) {
		return false
	}
	return true
}

// sortRules orders rules by success rate descending, then most recently
// applied, then id for a deterministic total order.
func sortRules(rules []*compliance.ExceptionRule) {
	sort.Slice(rules, func(i, j int) bool {
		if rules[i].SuccessRate != rules[j].SuccessRate {
			return rules[i].SuccessRate > rules[j].SuccessRate
		}
		if !rules[i].LastAppliedAt.Equal(rules[j].LastAppliedAt) {
			return rules[i].LastAppliedAt.After(rules[j].LastAppliedAt)
		}
		return rules[i].ID < rules[j].ID
	})
}

// foldSuccess computes the incremental success-rate mean after one more
// application. count is the applied count before the update.
func foldSuccess(rate float64, count int, success bool) float64 {
	outcome := 0.0
	if success {
		outcome = 1.0
	}
	next := (rate*float64(count) + outcome) / float64(count+1)
	// Guard against float drift at the boundaries.
	if next < 0 {
		next = 0
	}
	if next > 1 {
		next = 1
	}
	return next
}
