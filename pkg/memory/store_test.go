package memory

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"mercator-hq/saturn/pkg/compliance"
)

// storeUnderTest runs the shared Store contract tests against every backend.
func storeUnderTest(t *testing.T, run func(t *testing.T, st Store)) {
	t.Helper()

	t.Run("memory", func(t *testing.T) {
		st := NewMemoryStore(nil)
		defer st.Close()
		run(t, st)
	})

	t.Run("sqlite", func(t *testing.T) {
		st, err := NewSQLiteStore(SQLiteConfig{
			Path: filepath.Join(t.TempDir(), "memory.db"),
		}, nil)
		if err != nil {
			t.Fatalf("NewSQLiteStore() failed: %v", err)
		}
		defer st.Close()
		run(t, st)
	})
}

func vendorRule(vendor, category string) *compliance.ExceptionRule {
	return &compliance.ExceptionRule{
		RuleType:    compliance.RuleVendor,
		Vendor:      vendor,
		Category:    category,
		Description: "exception for " + vendor,
		Condition: compliance.RuleCondition{
			Field:    "vendor",
			Operator: "equals",
			Value:    vendor,
		},
	}
}

func TestUpsert_InsertsWithFreshStatistics(t *testing.T) {
	storeUnderTest(t, func(t *testing.T, st Store) {
		ctx := context.Background()

		id, err := st.Upsert(ctx, vendorRule("Acme Corp", "office_supplies"))
		if err != nil {
			t.Fatalf("Upsert() failed: %v", err)
		}
		if id == "" {
			t.Fatal("expected a rule id")
		}

		rule, err := st.Get(ctx, id)
		if err != nil {
			t.Fatalf("Get() failed: %v", err)
		}
		if rule.AppliedCount != 0 {
			t.Errorf("expected applied count 0, got %d", rule.AppliedCount)
		}
		if rule.SuccessRate != 1.0 {
			t.Errorf("expected success rate prior 1.0, got %v", rule.SuccessRate)
		}
		if rule.CreatedAt.IsZero() {
			t.Error("expected created_at to be set")
		}
	})
}

func TestUpsert_RefreshKeepsStatistics(t *testing.T) {
	storeUnderTest(t, func(t *testing.T, st Store) {
		ctx := context.Background()

		id, err := st.Upsert(ctx, vendorRule("Acme Corp", "office_supplies"))
		if err != nil {
			t.Fatalf("Upsert() failed: %v", err)
		}
		if err := st.RecordUsage(ctx, id, true); err != nil {
			t.Fatalf("RecordUsage() failed: %v", err)
		}

		refreshed := vendorRule("Acme Corp", "office_supplies")
		refreshed.Description = "updated description"
		refreshedID, err := st.Upsert(ctx, refreshed)
		if err != nil {
			t.Fatalf("refresh Upsert() failed: %v", err)
		}
		if refreshedID != id {
			t.Errorf("expected refresh to keep id %s, got %s", id, refreshedID)
		}

		rule, err := st.Get(ctx, id)
		if err != nil {
			t.Fatalf("Get() failed: %v", err)
		}
		if rule.Description != "updated description" {
			t.Errorf("expected refreshed description, got %q", rule.Description)
		}
		if rule.AppliedCount != 1 {
			t.Errorf("expected applied count preserved at 1, got %d", rule.AppliedCount)
		}
	})
}

func TestLookup_ScopeMatching(t *testing.T) {
	storeUnderTest(t, func(t *testing.T, st Store) {
		ctx := context.Background()

		if _, err := st.Upsert(ctx, vendorRule("Acme Corp", "")); err != nil {
			t.Fatalf("Upsert() failed: %v", err)
		}
		categoryOnly := vendorRule("", "travel")
		categoryOnly.RuleType = compliance.RuleCategory
		if _, err := st.Upsert(ctx, categoryOnly); err != nil {
			t.Fatalf("Upsert() failed: %v", err)
		}
		other := vendorRule("Globex", "travel")
		if _, err := st.Upsert(ctx, other); err != nil {
			t.Fatalf("Upsert() failed: %v", err)
		}

		// Vendor match is case-insensitive; the wildcard-category vendor rule
		// applies to any category.
		rules, err := st.Lookup(ctx, "acme corp", "office_supplies")
		if err != nil {
			t.Fatalf("Lookup() failed: %v", err)
		}
		if len(rules) != 1 {
			t.Fatalf("expected 1 rule, got %d", len(rules))
		}
		if rules[0].Vendor != "Acme Corp" {
			t.Errorf("expected Acme Corp rule, got %s", rules[0].Vendor)
		}

		// Category rule plus the matching vendor rule.
		rules, err = st.Lookup(ctx, "Globex", "travel")
		if err != nil {
			t.Fatalf("Lookup() failed: %v", err)
		}
		if len(rules) != 2 {
			t.Fatalf("expected 2 rules, got %d", len(rules))
		}

		rules, err = st.Lookup(ctx, "Initech", "software")
		if err != nil {
			t.Fatalf("Lookup() failed: %v", err)
		}
		if len(rules) != 0 {
			t.Errorf("expected no rules, got %d", len(rules))
		}
	})
}

func TestLookup_OrdersBySuccessRate(t *testing.T) {
	storeUnderTest(t, func(t *testing.T, st Store) {
		ctx := context.Background()

		strong, err := st.Upsert(ctx, vendorRule("Acme Corp", "office_supplies"))
		if err != nil {
			t.Fatalf("Upsert() failed: %v", err)
		}
		weakRule := vendorRule("Acme Corp", "office_supplies")
		weakRule.RuleType = compliance.RuleCategory
		weak, err := st.Upsert(ctx, weakRule)
		if err != nil {
			t.Fatalf("Upsert() failed: %v", err)
		}

		if err := st.RecordUsage(ctx, strong, true); err != nil {
			t.Fatalf("RecordUsage() failed: %v", err)
		}
		if err := st.RecordUsage(ctx, weak, false); err != nil {
			t.Fatalf("RecordUsage() failed: %v", err)
		}

		rules, err := st.Lookup(ctx, "Acme Corp", "office_supplies")
		if err != nil {
			t.Fatalf("Lookup() failed: %v", err)
		}
		if len(rules) != 2 {
			t.Fatalf("expected 2 rules, got %d", len(rules))
		}
		if rules[0].ID != strong {
			t.Errorf("expected higher success rate first, got %s", rules[0].ID)
		}
	})
}

func TestRecordUsage_FoldsSuccessRate(t *testing.T) {
	storeUnderTest(t, func(t *testing.T, st Store) {
		ctx := context.Background()

		id, err := st.Upsert(ctx, vendorRule("Acme Corp", "office_supplies"))
		if err != nil {
			t.Fatalf("Upsert() failed: %v", err)
		}

		// Prior of 1.0 over zero applications: first failure drops to 0,
		// a following success averages back to 0.5.
		if err := st.RecordUsage(ctx, id, false); err != nil {
			t.Fatalf("RecordUsage() failed: %v", err)
		}
		rule, err := st.Get(ctx, id)
		if err != nil {
			t.Fatalf("Get() failed: %v", err)
		}
		if rule.SuccessRate != 0 {
			t.Errorf("expected success rate 0 after one failure, got %v", rule.SuccessRate)
		}

		if err := st.RecordUsage(ctx, id, true); err != nil {
			t.Fatalf("RecordUsage() failed: %v", err)
		}
		rule, err = st.Get(ctx, id)
		if err != nil {
			t.Fatalf("Get() failed: %v", err)
		}
		if rule.SuccessRate != 0.5 {
			t.Errorf("expected success rate 0.5, got %v", rule.SuccessRate)
		}
		if rule.AppliedCount != 2 {
			t.Errorf("expected applied count 2, got %d", rule.AppliedCount)
		}
		if rule.LastAppliedAt.IsZero() {
			t.Error("expected last_applied_at to be set")
		}
	})
}

func TestRecordUsage_UnknownRule(t *testing.T) {
	storeUnderTest(t, func(t *testing.T, st Store) {
		err := st.RecordUsage(context.Background(), "no-such-rule", true)
		if err == nil {
			t.Fatal("expected error for unknown rule")
		}
		var storageErr *compliance.StorageError
		if !errors.As(err, &storageErr) {
			t.Errorf("expected StorageError, got %T", err)
		}
	})
}

func TestGet_UnknownRule(t *testing.T) {
	storeUnderTest(t, func(t *testing.T, st Store) {
		if _, err := st.Get(context.Background(), "no-such-rule"); err == nil {
			t.Fatal("expected error for unknown rule")
		}
	})
}

func TestFoldSuccess(t *testing.T) {
	tests := []struct {
		name    string
		rate    float64
		count   int
		success bool
		want    float64
	}{
		{"first failure against prior", 1.0, 0, false, 0},
		{"first success against prior", 1.0, 0, true, 1},
		{"success after one failure", 0, 1, true, 0.5},
		{"failure after two successes", 1.0, 2, false, 2.0 / 3.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := foldSuccess(tt.rate, tt.count, tt.success)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("foldSuccess(%v, %d, %v) = %v, want %v", tt.rate, tt.count, tt.success, got, tt.want)
			}
		})
	}
}

func TestScopeMatches(t *testing.T) {
	tests := []struct {
		name     string
		vendor   string
		category string
		qVendor  string
		qCat     string
		want     bool
	}{
		{"exact vendor", "Acme", "", "Acme", "travel", true},
		{"case-insensitive vendor", "Acme", "", "ACME", "travel", true},
		{"vendor mismatch", "Acme", "", "Globex", "travel", false},
		{"category wildcard vendor", "", "travel", "Anyone", "travel", true},
		{"both scoped", "Acme", "travel", "Acme", "travel", true},
		{"both scoped category mismatch", "Acme", "travel", "Acme", "software", false},
		{"unscoped rule never matches", "", "", "Acme", "travel", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := &compliance.ExceptionRule{Vendor: tt.vendor, Category: tt.category}
			if got := scopeMatches(rule, tt.qVendor, tt.qCat); got != tt.want {
				t.Errorf("scopeMatches(%q/%q, %q, %q) = %v, want %v",
					tt.vendor, tt.category, tt.qVendor, tt.qCat, got, tt.want)
			}
		})
	}
}
