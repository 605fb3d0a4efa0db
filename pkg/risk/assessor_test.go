package risk

import (
	"testing"

	"mercator-hq/saturn/pkg/compliance"
	"mercator-hq/saturn/pkg/config"
)

func defaultAssessor() *Assessor {
	return NewAssessor(config.DefaultConfig().Risk)
}

func intPtr(v int) *int { return &v }

// A small purchase from a reputable vendor with a PO scores near zero.
func TestAssess_LowRiskRoutinePurchase(t *testing.T) {
	a := defaultAssessor()

	got := a.Assess(&compliance.Invoice{
		Vendor:           "Acme Corp",
		Category:         "office_supplies",
		Amount:           200,
		Currency:         "USD",
		HasPO:            true,
		VendorReputation: intPtr(80),
	})

	if got.Score != 5 {
		t.Errorf("expected score 5, got %d", got.Score)
	}
	if got.Level != compliance.RiskLow {
		t.Errorf("expected LOW, got %s", got.Level)
	}
}

// A large purchase with no PO from an unknown vendor lands in HIGH.
func TestAssess_HighRiskLargeUnknownVendor(t *testing.T) {
	a := defaultAssessor()

	got := a.Assess(&compliance.Invoice{
		Vendor:   "Shell Services Ltd",
		Category: "consulting",
		Amount:   50000,
		Currency: "USD",
		HasPO:    false,
	})

	if got.Score != 78 {
		t.Errorf("expected score 78, got %d", got.Score)
	}
	if got.Level != compliance.RiskHigh {
		t.Errorf("expected HIGH, got %s", got.Level)
	}
}

func TestAssess_Deterministic(t *testing.T) {
	a := defaultAssessor()
	inv := &compliance.Invoice{
		Vendor:        "Globex",
		Category:      "software",
		Amount:        7500,
		Currency:      "USD",
		International: true,
	}

	first := a.Assess(inv)
	for i := 0; i < 10; i++ {
		if got := a.Assess(inv); got != first {
			t.Fatalf("assessment not deterministic: %+v vs %+v", got, first)
		}
	}
}

func TestAssess_UnknownReputationUsesMidpoint(t *testing.T) {
	a := defaultAssessor()

	unknown := a.Assess(&compliance.Invoice{
		Vendor: "V", Category: "c", Amount: 100, Currency: "USD", HasPO: true,
	})
	known := a.Assess(&compliance.Invoice{
		Vendor: "V", Category: "c", Amount: 100, Currency: "USD", HasPO: true,
		VendorReputation: intPtr(50),
	})

	if unknown.Score != known.Score {
		t.Errorf("unknown reputation should score like the midpoint: %d vs %d", unknown.Score, known.Score)
	}
}

func TestAssess_InternationalAddsWeight(t *testing.T) {
	a := defaultAssessor()
	base := compliance.Invoice{
		Vendor: "V", Category: "c", Amount: 100, Currency: "USD", HasPO: true,
		VendorReputation: intPtr(100),
	}

	domestic := a.Assess(&base)
	intl := base
	intl.International = true
	crossBorder := a.Assess(&intl)

	if crossBorder.Score-domestic.Score != 10 {
		t.Errorf("expected international to add 10, got %d vs %d", crossBorder.Score, domestic.Score)
	}
}

func TestAssess_MissingPOPenaltyGrowsWithAmount(t *testing.T) {
	a := defaultAssessor()

	small := a.Assess(&compliance.Invoice{
		Vendor: "V", Category: "c", Amount: 100, Currency: "USD",
		VendorReputation: intPtr(100),
	})
	large := a.Assess(&compliance.Invoice{
		Vendor: "V", Category: "c", Amount: 100000, Currency: "USD",
		VendorReputation: intPtr(100),
	})

	if large.MissingPOFraction <= small.MissingPOFraction {
		t.Errorf("missing-PO penalty should grow with amount: %v vs %v",
			large.MissingPOFraction, small.MissingPOFraction)
	}
}

func TestAssess_NilInvoiceIsMaximallyRisky(t *testing.T) {
	a := defaultAssessor()

	got := a.Assess(nil)
	if got.Score != 100 {
		t.Errorf("expected score 100 for nil invoice, got %d", got.Score)
	}
	if got.Level != compliance.RiskHigh {
		t.Errorf("expected HIGH for nil invoice, got %s", got.Level)
	}
}

func TestAssess_ScoreStaysInBounds(t *testing.T) {
	a := defaultAssessor()

	worst := a.Assess(&compliance.Invoice{
		Vendor: "V", Category: "c", Amount: 1e9, Currency: "USD",
		International:    true,
		VendorReputation: intPtr(0),
	})
	if worst.Score > 100 {
		t.Errorf("score exceeded 100: %d", worst.Score)
	}

	best := a.Assess(&compliance.Invoice{
		Vendor: "V", Category: "c", Amount: 1, Currency: "USD", HasPO: true,
		VendorReputation: intPtr(100),
	})
	if best.Score != 0 {
		t.Errorf("expected best-case score 0, got %d", best.Score)
	}
	if best.Level != compliance.RiskLow {
		t.Errorf("expected LOW, got %s", best.Level)
	}
}

func TestLevel_Thresholds(t *testing.T) {
	a := defaultAssessor()

	tests := []struct {
		score int
		want  compliance.RiskLevel
	}{
		{0, compliance.RiskLow},
		{34, compliance.RiskLow},
		{35, compliance.RiskMedium},
		{64, compliance.RiskMedium},
		{65, compliance.RiskHigh},
		{100, compliance.RiskHigh},
	}
	for _, tt := range tests {
		if got := a.level(tt.score); got != tt.want {
			t.Errorf("level(%d) = %s, want %s", tt.score, got, tt.want)
		}
	}
}
