package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"mercator-hq/saturn/pkg/compliance"
	"mercator-hq/saturn/pkg/config"
	"mercator-hq/saturn/pkg/oracle"
	"mercator-hq/saturn/pkg/policy"
	"mercator-hq/saturn/pkg/risk"
	"mercator-hq/saturn/pkg/store"
)

func TestPool_ProcessesConcurrentSubmissions(t *testing.T) {
	f := newPipelineFixture(t)
	pool := NewPool(f.pipeline, 4, 8)
	defer pool.Close()

	const submissions = 20
	var wg sync.WaitGroup
	results := make(chan *compliance.Transaction, submissions)
	errs := make(chan error, submissions)

	for i := 0; i < submissions; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tx, err := pool.Submit(context.Background(), routineInvoice())
			if err != nil {
				errs <- err
				return
			}
			results <- tx
		}()
	}
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		t.Errorf("Submit() failed: %v", err)
	}

	seen := make(map[string]bool)
	for tx := range results {
		if tx.Decision != compliance.DecisionApproved {
			t.Errorf("unexpected decision %s", tx.Decision)
		}
		if seen[tx.ID] {
			t.Errorf("duplicate transaction id %s", tx.ID)
		}
		seen[tx.ID] = true
	}
	if len(seen) != submissions {
		t.Errorf("expected %d distinct transactions, got %d", submissions, len(seen))
	}
}

func TestPool_SubmitAfterClose(t *testing.T) {
	f := newPipelineFixture(t)
	pool := NewPool(f.pipeline, 1, 1)
	pool.Close()

	_, err := pool.Submit(context.Background(), routineInvoice())
	if !errors.Is(err, ErrPoolClosed) {
		t.Errorf("expected ErrPoolClosed, got %v", err)
	}
}

func TestPool_CloseIsIdempotent(t *testing.T) {
	f := newPipelineFixture(t)
	pool := NewPool(f.pipeline, 1, 1)
	pool.Close()
	pool.Close()
}

// gatedOracle blocks judgments until released, keeping the pool's worker
// busy so queue backpressure can be observed.
type gatedOracle struct {
	*oracle.StubOracle
	started chan struct{}
	gate    chan struct{}
}

func (g *gatedOracle) JudgeCompliance(ctx context.Context, req *oracle.JudgmentRequest) (*oracle.Judgment, error) {
	g.started <- struct{}{}
	<-g.gate
	return g.StubOracle.JudgeCompliance(ctx, req)
}

func TestPool_SubmitHonorsCancelledContext(t *testing.T) {
	gated := &gatedOracle{
		StubOracle: oracle.NewStubOracle(),
		started:    make(chan struct{}, 1),
		gate:       make(chan struct{}),
	}
	st := store.NewMemoryStore()
	assessor := risk.NewAssessor(config.DefaultConfig().Risk)
	evaluator := policy.NewEvaluator(nil, nil, gated, 5, 0, nil)
	pipeline := NewPipeline(assessor, evaluator, st, nil, 0.75, 0, nil)

	pool := NewPool(pipeline, 1, 1)
	defer pool.Close()
	defer close(gated.gate)

	// Occupy the single worker and fill the one queue slot.
	for i := 0; i < 2; i++ {
		go pool.Submit(context.Background(), routineInvoice())
	}
	select {
	case <-gated.started:
	case <-time.After(2 * time.Second):
		t.Fatal("worker never picked up a task")
	}
	deadline := time.After(2 * time.Second)
	for len(pool.tasks) == 0 {
		select {
		case <-deadline:
			t.Fatal("second task never queued")
		case <-time.After(time.Millisecond):
		}
	}

	// The queue is full and the worker is parked, so a cancelled context is
	// the only way out of Submit.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := pool.Submit(ctx, routineInvoice()); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestPool_DrainsQueueOnClose(t *testing.T) {
	f := newPipelineFixture(t)
	pool := NewPool(f.pipeline, 2, 4)

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := pool.Submit(context.Background(), routineInvoice()); err != nil {
				t.Errorf("Submit() failed: %v", err)
			}
		}()
	}
	wg.Wait()

	// All submissions completed before Close; Close must return promptly.
	pool.Close()
}
