package risk

import (
	"math"

	"mercator-hq/saturn/pkg/compliance"
	"mercator-hq/saturn/pkg/config"
)

// unknownReputation is the midpoint prior used when vendor reputation is
// not supplied.
const unknownReputation = 50

// Assessment is the output of scoring a transaction.
type Assessment struct {
	Score int                  // 0..100
	Level compliance.RiskLevel // LOW, MEDIUM, HIGH

	// Component fractions (0..1) retained for the audit trail.
	AmountFraction        float64
	ReputationFraction    float64
	MissingPOFraction     float64
	InternationalFraction float64
}

// Assessor scores transactions using configured weights and bands.
// It is safe for concurrent use.
type Assessor struct {
	cfg config.RiskConfig
}

// NewAssessor creates a risk assessor from the given configuration.
// The configuration is assumed validated (weights sum to 100, bands sorted).
func NewAssessor(cfg config.RiskConfig) *Assessor {
	return &Assessor{cfg: cfg}
}

// Assess scores an invoice. It is deterministic and never fails: any field
// it cannot interpret contributes its worst-case fraction.
func (a *Assessor) Assess(inv *compliance.Invoice) Assessment {
	if inv == nil {
		// No payload at all is maximally risky.
		return Assessment{
			Score:                 100,
			Level:                 a.level(100),
			AmountFraction:        1,
			ReputationFraction:    1,
			MissingPOFraction:     1,
			InternationalFraction: 1,
		}
	}

	amountFrac := a.amountFraction(inv.Amount)

	reputation := unknownReputation
	if inv.VendorReputation != nil {
		reputation = clamp(*inv.VendorReputation, 0, 100)
	}
	reputationFrac := float64(100-reputation) / 100

	poFrac := 0.0
	if !inv.HasPO {
		// Penalty grows with the amount band: a missing PO on a large
		// invoice is worse than on a small one.
		band := a.bandIndex(inv.Amount)
		poFrac = float64(band+1) / float64(len(a.cfg.AmountBands)+1)
	}

	intlFrac := 0.0
	if inv.International {
		intlFrac = 1.0
	}

	score := int(math.Round(
		float64(a.cfg.AmountWeight)*amountFrac +
			float64(a.cfg.ReputationWeight)*reputationFrac +
			float64(a.cfg.POWeight)*poFrac +
			float64(a.cfg.InternationalWeight)*intlFrac,
	))
	score = clamp(score, 0, 100)

	return Assessment{
		Score:                 score,
		Level:                 a.level(score),
		AmountFraction:        amountFrac,
		ReputationFraction:    reputationFrac,
		MissingPOFraction:     poFrac,
		InternationalFraction: intlFrac,
	}
}

// bandIndex returns how many band bounds the amount meets or exceeds.
// Nonpositive amounts are treated as the top band.
func (a *Assessor) bandIndex(amount float64) int {
	if amount <= 0 {
		return len(a.cfg.AmountBands)
	}
	idx := 0
	for _, bound := range a.cfg.AmountBands {
		if amount >= bound {
			idx++
		}
	}
	return idx
}

// amountFraction maps the amount band to a 0..1 fraction.
func (a *Assessor) amountFraction(amount float64) float64 {
	if len(a.cfg.AmountBands) == 0 {
		return 1
	}
	return float64(a.bandIndex(amount)) / float64(len(a.cfg.AmountBands))
}

// level maps a score onto a risk level using the configured thresholds.
func (a *Assessor) level(score int) compliance.RiskLevel {
	switch {
	case score >= a.cfg.HighThreshold:
		return compliance.RiskHigh
	case score >= a.cfg.MediumThreshold:
		return compliance.RiskMedium
	default:
		return compliance.RiskLow
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
