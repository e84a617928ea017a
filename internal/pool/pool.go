// Package pool runs batches of parameter-vector evaluations on a fixed set
// of workers. Items may complete out of order internally; a batch is always
// released to the caller in submission order, with per-item failures carried
// in the results rather than aborting the batch.
package pool

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/parfit-dev/parfit/pkg/utils"
)

// ErrPoolClosed is returned by SubmitBatch and pending Collect calls once
// the pool has been shut down.
var ErrPoolClosed = errors.New("pool is closed")

// Evaluator evaluates a single parameter vector. Implementations must be
// safe for concurrent use; the objective adapter satisfies this.
type Evaluator interface {
	Evaluate(ctx context.Context, vector []float64) (float64, error)
}

// Observer receives per-evaluation measurements. The metrics collector
// implements it; a nil observer disables reporting.
type Observer interface {
	ObserveEvaluation(d time.Duration, failed bool)
}

// Result pairs one input vector with its score or failure
type Result struct {
	Vector []float64
	Score  float64
	Err    error
}

// Failed reports whether the item's evaluation failed
func (r Result) Failed() bool {
	return r.Err != nil
}

type task struct {
	pending *Pending
	index   int
	vector  []float64
}

// Option configures a Pool
type Option func(*Pool)

// WithObserver attaches a metrics observer to the pool
func WithObserver(obs Observer) Option {
	return func(p *Pool) { p.observer = obs }
}

// WithMaxInFlight bounds the number of batches evaluated concurrently
func WithMaxInFlight(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.maxInFlight = int64(n)
		}
	}
}

// Pool dispatches evaluation items to a fixed set of workers. Workers are
// stateless between items; all coordination passes through SubmitBatch and
// Collect.
type Pool struct {
	evaluator   Evaluator
	workers     int
	tasks       chan task
	observer    Observer
	maxInFlight int64

	ctx      context.Context
	cancel   context.CancelFunc
	inflight *semaphore.Weighted
	wg       sync.WaitGroup
	once     sync.Once
}

// New creates a pool with the given number of workers and starts them.
// Callers must Shutdown the pool when done.
func New(workers int, evaluator Evaluator, opts ...Option) *Pool {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		evaluator:   evaluator,
		workers:     workers,
		tasks:       make(chan task),
		maxInFlight: 1,
		ctx:         ctx,
		cancel:      cancel,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.inflight = semaphore.NewWeighted(p.maxInFlight)

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

// Workers returns the pool size
func (p *Pool) Workers() int {
	return p.workers
}

// SubmitBatch enqueues a batch for evaluation and returns its pending
// handle. The batch is copied at submission, so callers may reuse their
// slices. Returns ErrPoolClosed after Shutdown. An empty batch resolves
// immediately with an empty result set.
func (p *Pool) SubmitBatch(batch [][]float64) (*Pending, error) {
	if err := p.ctx.Err(); err != nil {
		return nil, ErrPoolClosed
	}

	vectors := utils.CloneBatch(batch)
	pending := newPending(p, len(vectors))
	if len(vectors) == 0 {
		pending.finish(nil)
		return pending, nil
	}

	go p.enqueue(pending, vectors)
	return pending, nil
}

// enqueue feeds one batch's items to the workers, respecting the in-flight
// bound and unblocking the pending handle if the pool closes first.
func (p *Pool) enqueue(pending *Pending, vectors [][]float64) {
	if err := p.inflight.Acquire(p.ctx, 1); err != nil {
		pending.finish(ErrPoolClosed)
		return
	}
	pending.onDone = func() { p.inflight.Release(1) }

	for i, vec := range vectors {
		select {
		case p.tasks <- task{pending: pending, index: i, vector: vec}:
		case <-p.ctx.Done():
			pending.finish(ErrPoolClosed)
			return
		}
	}
}

// Shutdown stops the pool, unblocks pending Collect calls with
// ErrPoolClosed, and joins every worker. It is idempotent and waits for
// in-flight evaluations to return.
func (p *Pool) Shutdown() {
	p.once.Do(func() {
		p.cancel()
		p.wg.Wait()
	})
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		// Prefer shutdown over draining more work
		select {
		case <-p.ctx.Done():
			return
		default:
		}

		select {
		case <-p.ctx.Done():
			return
		case t := <-p.tasks:
			p.process(t)
		}
	}
}

func (p *Pool) process(t task) {
	start := time.Now()
	score, err := p.evaluator.Evaluate(p.ctx, t.vector)
	if p.observer != nil {
		p.observer.ObserveEvaluation(time.Since(start), err != nil)
	}
	t.pending.complete(t.index, Result{
		Vector: t.vector,
		Score:  score,
		Err:    err,
	})
}
