package kpi

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler recomputes the current KPI bucket on a cron schedule so the
// exported gauges stay fresh even when no feedback arrives.
type Scheduler struct {
	engine   *Engine
	schedule string
	cron     *cron.Cron
	mu       sync.Mutex
	logger   *slog.Logger
	running  bool
}

// NewScheduler creates a KPI recomputation scheduler. The schedule uses
// standard five-field cron syntax, e.g. "0 * * * *" for hourly.
func NewScheduler(engine *Engine, schedule string) *Scheduler {
	return &Scheduler{
		engine:   engine,
		schedule: schedule,
		cron:     cron.New(),
		logger:   slog.Default().With("component", "kpi.scheduler"),
	}
}

// Start begins scheduled recomputation. An empty schedule disables the
// scheduler. Stops automatically when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" {
		s.logger.Info("kpi recompute schedule not configured, skipping scheduler")
		return nil
	}

	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.schedule, err)
	}

	_, err := s.cron.AddFunc(s.schedule, func() {
		s.runRecompute(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule kpi recomputation: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("kpi scheduler started", "schedule", s.schedule)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

func (s *Scheduler) runRecompute(ctx context.Context) {
	snap, err := s.engine.RecomputeCurrent(ctx)
	if err != nil {
		s.logger.Error("scheduled kpi recomputation failed", "error", err)
		return
	}

	s.logger.Info("scheduled kpi recomputation completed",
		"bucket", snap.Bucket,
		"total_transactions", snap.TotalTransactions,
	)
}

// Stop stops the scheduler and waits for a running recomputation to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil && s.running {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.running = false
		s.logger.Info("kpi scheduler stopped")
	}
}

// IsRunning returns true if the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled recomputation time.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return nil
	}
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
