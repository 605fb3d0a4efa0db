package kpi

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"mercator-hq/saturn/pkg/audit"
	"mercator-hq/saturn/pkg/compliance"
	"mercator-hq/saturn/pkg/store"
	"mercator-hq/saturn/pkg/telemetry/metrics"
)

// queryPageSize bounds a single ledger page when aggregating a bucket.
const queryPageSize = 500

// Engine computes KPI snapshots from the transaction ledger.
//
// Recomputation of a bucket is serialized per bucket so a scheduled
// recompute and a feedback-triggered recompute cannot interleave their
// read-aggregate-write cycles.
type Engine struct {
	store   store.Store
	metrics *metrics.KPIMetrics
	logger  *slog.Logger

	mu      sync.Mutex
	buckets map[string]*sync.Mutex
}

// NewEngine creates a KPI engine over the given ledger store.
// The metrics collector may be nil.
func NewEngine(st store.Store, km *metrics.KPIMetrics) *Engine {
	return &Engine{
		store:   st,
		metrics: km,
		logger:  slog.Default().With("component", "kpi.engine"),
		buckets: make(map[string]*sync.Mutex),
	}
}

// BucketFor returns the bucket key for a point in time.
func BucketFor(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Recompute aggregates all transactions in the bucket and overwrites the
// bucket's snapshot. An empty bucket yields zero-valued rates with a zero
// transaction count; it is persisted so callers can distinguish "computed,
// nothing happened" from "never computed".
func (e *Engine) Recompute(ctx context.Context, bucket string) (*compliance.KPISnapshot, error) {
	lock := e.bucketLock(bucket)
	lock.Lock()
	defer lock.Unlock()

	snap := &compliance.KPISnapshot{
		Bucket:     bucket,
		ComputedAt: time.Now().UTC(),
	}

	var (
		total         int
		corrections   int
		autoApproved  int
		completeTrail int
		applicable    int
		retained      int
		offset        int
	)

	for {
		page, err := e.store.QueryTransactions(ctx, &store.TransactionQuery{
			Bucket: bucket,
			Limit:  queryPageSize,
			Offset: offset,
		})
		if err != nil {
			return nil, err
		}

		for _, tx := range page {
			total++
			if tx.HumanOverride {
				corrections++
			}
			if tx.Decision == compliance.DecisionApproved && !tx.HumanOverride {
				autoApproved++
			}
			if audit.IsComplete(tx.AuditTrail, tx.Decision) {
				completeTrail++
			}
			if len(tx.MatchedRules) > 0 {
				applicable++
				// A learned rule counts as retained when the decision it
				// shaped stood without human correction.
				if !tx.HumanOverride {
					retained++
				}
			}
		}

		if len(page) < queryPageSize {
			break
		}
		offset += len(page)
	}

	snap.TotalTransactions = total
	snap.HumanCorrections = corrections
	if total > 0 {
		snap.HumanCorrectionRate = percent(corrections, total)
		snap.AutoApprovalRate = percent(autoApproved, total)
		snap.AuditCompleteness = percent(completeTrail, total)
	}
	if applicable > 0 {
		snap.ContextRetentionScore = percent(retained, applicable)
	}

	if err := e.store.SaveSnapshot(ctx, snap); err != nil {
		return nil, err
	}

	e.metrics.RecordSnapshot(
		snap.HumanCorrectionRate,
		snap.ContextRetentionScore,
		snap.AutoApprovalRate,
		snap.AuditCompleteness,
	)

	e.logger.Debug("kpi bucket recomputed",
		"bucket", bucket,
		"total", total,
		"corrections", corrections,
		"auto_approved", autoApproved,
	)

	return snap, nil
}

// Snapshot returns the stored snapshot for a bucket, computing it on demand
// when none has been persisted yet.
func (e *Engine) Snapshot(ctx context.Context, bucket string) (*compliance.KPISnapshot, error) {
	snap, err := e.store.GetSnapshot(ctx, bucket)
	if err != nil {
		return nil, err
	}
	if snap != nil {
		return snap, nil
	}
	return e.Recompute(ctx, bucket)
}

// RecomputeCurrent recomputes the bucket containing the current time.
func (e *Engine) RecomputeCurrent(ctx context.Context) (*compliance.KPISnapshot, error) {
	return e.Recompute(ctx, BucketFor(time.Now()))
}

func (e *Engine) bucketLock(bucket string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	lock, ok := e.buckets[bucket]
	if !ok {
		lock = &sync.Mutex{}
		e.buckets[bucket] = lock
	}
	return lock
}

func percent(part, whole int) float64 {
	return float64(part) / float64(whole) * 100
}
