package pool

import (
	"context"
	"sync"
)

// Pending is the handle for one submitted batch. It resolves once every
// item has a result or the pool shuts down.
type Pending struct {
	pool *Pool

	mu       sync.Mutex
	results  []Result
	resolved int
	finished bool
	err      error
	onDone   func()

	done chan struct{}
}

func newPending(p *Pool, size int) *Pending {
	return &Pending{
		pool:    p,
		results: make([]Result, size),
		done:    make(chan struct{}),
	}
}

// complete records one item's result and finishes the batch once all items
// have resolved. Completed items are buffered here so the batch is released
// in input order regardless of completion order.
func (pn *Pending) complete(index int, r Result) {
	pn.mu.Lock()
	defer pn.mu.Unlock()
	if pn.finished {
		return
	}
	pn.results[index] = r
	pn.resolved++
	if pn.resolved == len(pn.results) {
		pn.finishLocked(nil)
	}
}

func (pn *Pending) finish(err error) {
	pn.mu.Lock()
	defer pn.mu.Unlock()
	pn.finishLocked(err)
}

func (pn *Pending) finishLocked(err error) {
	if pn.finished {
		return
	}
	pn.finished = true
	pn.err = err
	if pn.onDone != nil {
		pn.onDone()
	}
	close(pn.done)
}

// Collect blocks until every item in the batch has a result or has failed,
// and returns the results in submission order. Per-item failures are
// reported in the results; Collect itself only fails when the pool closes
// (ErrPoolClosed) or ctx is cancelled.
func (pn *Pending) Collect(ctx context.Context) ([]Result, error) {
	select {
	case <-pn.done:
		return pn.take()
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-pn.pool.ctx.Done():
		// The batch may have finished in the same instant the pool closed;
		// prefer delivering a completed batch.
		select {
		case <-pn.done:
			return pn.take()
		default:
			return nil, ErrPoolClosed
		}
	}
}

func (pn *Pending) take() ([]Result, error) {
	pn.mu.Lock()
	defer pn.mu.Unlock()
	if pn.err != nil {
		return nil, pn.err
	}
	return pn.results, nil
}
