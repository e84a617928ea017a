package objective

import (
	"context"
	"fmt"
	"time"

	"github.com/parfit-dev/parfit/pkg/utils"
)

// Func is a user-supplied objective over one parameter vector.
// Lower scores are better (minimization).
type Func func(vector []float64) (float64, error)

// Adapter wraps a user objective so workers can invoke it uniformly.
// It enforces the per-item timeout, recovers panics, and rejects non-finite
// scores. An Adapter is safe for concurrent use; the wrapped function is
// treated as pure.
type Adapter struct {
	name    string
	fn      Func
	timeout time.Duration
}

// NewAdapter creates an adapter around fn. A zero timeout disables the
// per-item deadline.
func NewAdapter(name string, fn Func, timeout time.Duration) *Adapter {
	return &Adapter{
		name:    name,
		fn:      fn,
		timeout: timeout,
	}
}

// Name returns the objective name
func (a *Adapter) Name() string {
	return a.name
}

// Evaluate invokes the objective on vector. Item-level failures (error,
// panic, timeout, non-finite score) come back as *EvaluationError; a
// cancelled context comes back as the context's error so callers can tell
// infrastructure shutdown apart from a bad evaluation.
func (a *Adapter) Evaluate(ctx context.Context, vector []float64) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	if a.timeout <= 0 {
		return a.call(vector)
	}

	type outcome struct {
		score float64
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		score, err := a.call(vector)
		done <- outcome{score: score, err: err}
	}()

	timer := time.NewTimer(a.timeout)
	defer timer.Stop()

	select {
	case out := <-done:
		return out.score, out.err
	case <-timer.C:
		return 0, &EvaluationError{Reason: fmt.Sprintf("timed out after %s", a.timeout)}
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// call runs the objective with panic recovery and a finiteness check
func (a *Adapter) call(vector []float64) (score float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			score = 0
			err = &EvaluationError{Reason: fmt.Sprintf("objective panicked: %v", r)}
		}
	}()

	score, ferr := a.fn(vector)
	if ferr != nil {
		return 0, &EvaluationError{Reason: "objective returned error", Err: ferr}
	}
	if !utils.IsFinite(score) {
		return 0, &EvaluationError{Reason: fmt.Sprintf("non-finite score: %f", score)}
	}
	return score, nil
}
