package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"mercator-hq/saturn/pkg/compliance"
)

// ErrPoolClosed is returned by Submit after the pool has been closed.
var ErrPoolClosed = errors.New("engine: worker pool closed")

// task pairs an invoice with the channel its result is delivered on.
type task struct {
	ctx     context.Context
	invoice *compliance.Invoice
	reply   chan *compliance.Transaction
}

// Pool runs pipelines on a fixed set of workers fed by a bounded queue.
// Submissions block while the queue is full, providing backpressure to
// callers instead of unbounded buffering.
type Pool struct {
	pipeline *Pipeline
	tasks    chan *task
	wg       sync.WaitGroup
	logger   *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewPool starts workers goroutines consuming from a queue of queueSize.
func NewPool(pipeline *Pipeline, workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}

	p := &Pool{
		pipeline: pipeline,
		tasks:    make(chan *task, queueSize),
		logger:   slog.Default().With("component", "engine.pool"),
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}

	p.logger.Info("worker pool started", "workers", workers, "queue_size", queueSize)
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for t := range p.tasks {
		t.reply <- p.pipeline.Run(t.ctx, t.invoice)
	}
}

// Submit enqueues an invoice and blocks until its pipeline run completes or
// ctx is cancelled. Cancellation after enqueue abandons the wait; the worker
// still finishes the run and persists the outcome.
func (p *Pool) Submit(ctx context.Context, inv *compliance.Invoice) (*compliance.Transaction, error) {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return nil, ErrPoolClosed
	}

	t := &task{ctx: ctx, invoice: inv, reply: make(chan *compliance.Transaction, 1)}
	select {
	case p.tasks <- t:
		p.mu.RUnlock()
	case <-ctx.Done():
		p.mu.RUnlock()
		return nil, ctx.Err()
	}

	select {
	case tx := <-t.reply:
		return tx, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops accepting submissions and waits for queued work to drain.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info("worker pool stopped")
}
