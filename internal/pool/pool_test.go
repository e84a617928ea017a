package pool

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// evalFunc adapts a function to the Evaluator interface
type evalFunc func(ctx context.Context, vector []float64) (float64, error)

func (f evalFunc) Evaluate(ctx context.Context, vector []float64) (float64, error) {
	return f(ctx, vector)
}

// doubler returns twice the first coordinate after sleeping vector[1] ms,
// so tests can randomize completion order per item.
var doubler = evalFunc(func(ctx context.Context, vector []float64) (float64, error) {
	if len(vector) > 1 && vector[1] > 0 {
		time.Sleep(time.Duration(vector[1]) * time.Millisecond)
	}
	return vector[0] * 2, nil
})

func TestSubmitBatchPreservesOrder(t *testing.T) {
	p := New(8, doubler)
	defer p.Shutdown()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	batch := make([][]float64, 50)
	for i := range batch {
		batch[i] = []float64{float64(i), float64(rng.Intn(6))}
	}

	pending, err := p.SubmitBatch(batch)
	require.NoError(t, err)

	results, err := pending.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, results, len(batch))

	for i, r := range results {
		require.NoError(t, r.Err)
		require.Equal(t, float64(i), r.Vector[0], "result %d out of order", i)
		require.Equal(t, float64(i)*2, r.Score)
	}
}

func TestSubmitBatchCopiesInput(t *testing.T) {
	p := New(2, doubler)
	defer p.Shutdown()

	batch := [][]float64{{1, 0}, {2, 0}}
	pending, err := p.SubmitBatch(batch)
	require.NoError(t, err)

	// callers may reuse their slices after submission
	batch[0][0] = 99

	results, err := pending.Collect(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2.0, results[0].Score)
}

func TestEmptyBatchResolvesImmediately(t *testing.T) {
	p := New(2, doubler)
	defer p.Shutdown()

	pending, err := p.SubmitBatch(nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	results, err := pending.Collect(ctx)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestPerItemFailureDoesNotAbortBatch(t *testing.T) {
	failing := evalFunc(func(ctx context.Context, vector []float64) (float64, error) {
		if vector[0] == 3 {
			return 0, fmt.Errorf("model diverged")
		}
		return vector[0], nil
	})

	p := New(4, failing)
	defer p.Shutdown()

	batch := [][]float64{{0}, {1}, {2}, {3}, {4}}
	pending, err := p.SubmitBatch(batch)
	require.NoError(t, err)

	results, err := pending.Collect(context.Background())
	require.NoError(t, err, "per-item failures do not fail Collect")
	require.Len(t, results, 5)

	failures := 0
	for i, r := range results {
		if r.Failed() {
			failures++
			require.Equal(t, 3, i, "only the third item fails")
		} else {
			require.Equal(t, float64(i), r.Score)
		}
	}
	require.Equal(t, 1, failures)
}

func TestSubmitAfterShutdown(t *testing.T) {
	p := New(2, doubler)
	p.Shutdown()

	_, err := p.SubmitBatch([][]float64{{1}})
	require.ErrorIs(t, err, ErrPoolClosed)
}

func TestShutdownUnblocksPendingCollect(t *testing.T) {
	slow := evalFunc(func(ctx context.Context, vector []float64) (float64, error) {
		time.Sleep(300 * time.Millisecond)
		return 0, nil
	})

	p := New(2, slow)

	// more items than workers so some never dispatch
	pending, err := p.SubmitBatch([][]float64{{0}, {1}, {2}, {3}, {4}, {5}})
	require.NoError(t, err)

	go func() {
		time.Sleep(20 * time.Millisecond)
		p.Shutdown()
	}()

	start := time.Now()
	_, err = pending.Collect(context.Background())
	require.ErrorIs(t, err, ErrPoolClosed)
	require.Less(t, time.Since(start), time.Second, "Collect must unblock within a bounded time")
}

func TestCollectHonorsCallerContext(t *testing.T) {
	slow := evalFunc(func(ctx context.Context, vector []float64) (float64, error) {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(time.Second):
			return 0, nil
		}
	})

	p := New(1, slow)
	defer p.Shutdown()

	pending, err := p.SubmitBatch([][]float64{{1}})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = pending.Collect(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBatchesRunInParallel(t *testing.T) {
	sleepy := evalFunc(func(ctx context.Context, vector []float64) (float64, error) {
		time.Sleep(30 * time.Millisecond)
		return 0, nil
	})

	p := New(4, sleepy)
	defer p.Shutdown()

	batch := make([][]float64, 8)
	for i := range batch {
		batch[i] = []float64{float64(i)}
	}

	start := time.Now()
	pending, err := p.SubmitBatch(batch)
	require.NoError(t, err)
	_, err = pending.Collect(context.Background())
	require.NoError(t, err)

	// 8 items at 30ms each would take 240ms serially; 4 workers need ~60ms
	require.Less(t, time.Since(start), 180*time.Millisecond)
}

func TestSequentialBatches(t *testing.T) {
	p := New(2, doubler)
	defer p.Shutdown()

	for round := 0; round < 3; round++ {
		pending, err := p.SubmitBatch([][]float64{{1, 0}, {2, 0}, {3, 0}})
		require.NoError(t, err)

		results, err := pending.Collect(context.Background())
		require.NoError(t, err)
		require.Len(t, results, 3)
	}
}

func TestConcurrentBatchesWithMaxInFlight(t *testing.T) {
	p := New(4, doubler, WithMaxInFlight(2))
	defer p.Shutdown()

	a, err := p.SubmitBatch([][]float64{{1, 2}, {2, 2}})
	require.NoError(t, err)
	b, err := p.SubmitBatch([][]float64{{3, 2}, {4, 2}})
	require.NoError(t, err)

	resA, err := a.Collect(context.Background())
	require.NoError(t, err)
	resB, err := b.Collect(context.Background())
	require.NoError(t, err)

	require.Equal(t, 2.0, resA[0].Score)
	require.Equal(t, 8.0, resB[1].Score)
}

type countingObserver struct {
	mu     sync.Mutex
	total  int
	failed int
}

func (o *countingObserver) ObserveEvaluation(d time.Duration, failed bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.total++
	if failed {
		o.failed++
	}
}

func TestObserverReceivesEveryEvaluation(t *testing.T) {
	failing := evalFunc(func(ctx context.Context, vector []float64) (float64, error) {
		if vector[0] == 0 {
			return 0, fmt.Errorf("bad input")
		}
		return vector[0], nil
	})

	obs := &countingObserver{}
	p := New(2, failing, WithObserver(obs))
	defer p.Shutdown()

	pending, err := p.SubmitBatch([][]float64{{0}, {1}, {2}})
	require.NoError(t, err)
	_, err = pending.Collect(context.Background())
	require.NoError(t, err)

	obs.mu.Lock()
	defer obs.mu.Unlock()
	require.Equal(t, 3, obs.total)
	require.Equal(t, 1, obs.failed)
}

func TestShutdownIsIdempotent(t *testing.T) {
	p := New(2, doubler)
	p.Shutdown()
	p.Shutdown()
}

func TestWorkersFloorsAtOne(t *testing.T) {
	p := New(0, doubler)
	defer p.Shutdown()
	require.Equal(t, 1, p.Workers())
}
