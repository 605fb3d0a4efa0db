package engine

import (
	"context"
	"log/slog"
	"time"

	"mercator-hq/saturn/pkg/compliance"
	"mercator-hq/saturn/pkg/feedback"
	"mercator-hq/saturn/pkg/kpi"
	"mercator-hq/saturn/pkg/store"
	"mercator-hq/saturn/pkg/telemetry/metrics"
)

// TransactionResult is the synchronous reply to a submission.
type TransactionResult struct {
	TransactionID string
	RiskScore     int
	RiskLevel     compliance.RiskLevel
	Verdict       *compliance.Verdict
	Decision      compliance.Decision
	AuditSteps    int
}

// Service is the callable surface of the compliance engine: submit a
// transaction, submit feedback on a decided transaction, and read KPI
// snapshots.
type Service struct {
	pool     *Pool
	feedback *feedback.Manager
	kpi      *kpi.Engine
	store    store.Store

	decisionMetrics *metrics.DecisionMetrics
	logger          *slog.Logger
}

// NewService creates the engine service over an already-started pool.
func NewService(pool *Pool, fm *feedback.Manager, ke *kpi.Engine, st store.Store, dm *metrics.DecisionMetrics) *Service {
	return &Service{
		pool:            pool,
		feedback:        fm,
		kpi:             ke,
		store:           st,
		decisionMetrics: dm,
		logger:          slog.Default().With("component", "engine.service"),
	}
}

// Submit validates an invoice and processes it to a terminal decision.
// The only errors returned are intake validation failures and pool
// shutdown or cancellation; pipeline failures are reported through the
// result's decision, never as an error.
func (s *Service) Submit(ctx context.Context, inv *compliance.Invoice) (*TransactionResult, error) {
	if err := compliance.ValidateInvoice(inv); err != nil {
		s.decisionMetrics.RecordValidationReject()
		s.logger.Warn("submission rejected by validation", "vendor", invVendor(inv), "error", err)
		return nil, err
	}

	tx, err := s.pool.Submit(ctx, inv)
	if err != nil {
		return nil, err
	}

	return &TransactionResult{
		TransactionID: tx.ID,
		RiskScore:     tx.RiskScore,
		RiskLevel:     tx.RiskLevel,
		Verdict:       tx.Verdict,
		Decision:      tx.Decision,
		AuditSteps:    len(tx.AuditTrail),
	}, nil
}

// SubmitFeedback records a human correction for a decided transaction.
func (s *Service) SubmitFeedback(ctx context.Context, sub *feedback.Submission) (*feedback.UpdateResult, error) {
	return s.feedback.Process(ctx, sub)
}

// GetKPIs returns the KPI snapshot for a bucket ("2006-01-02"). An empty
// bucket selects the current UTC day.
func (s *Service) GetKPIs(ctx context.Context, bucket string) (*compliance.KPISnapshot, error) {
	if bucket == "" {
		bucket = kpi.BucketFor(time.Now())
	}
	return s.kpi.Snapshot(ctx, bucket)
}

// GetTransaction returns a persisted transaction with its audit trail.
func (s *Service) GetTransaction(ctx context.Context, id string) (*compliance.Transaction, error) {
	return s.store.GetTransaction(ctx, id)
}

// Close stops accepting submissions and drains in-flight work.
func (s *Service) Close() {
	s.pool.Close()
}

func invVendor(inv *compliance.Invoice) string {
	if inv == nil {
		return ""
	}
	return inv.Vendor
}
