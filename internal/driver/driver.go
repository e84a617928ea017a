// Package driver runs the iterative control loop: propose a batch via the
// strategy, evaluate it on the worker pool, fold results back into strategy
// state, and append one record per iteration to the sink.
package driver

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/parfit-dev/parfit/internal/pool"
	"github.com/parfit-dev/parfit/internal/store"
	"github.com/parfit-dev/parfit/internal/strategy"
	"github.com/parfit-dev/parfit/pkg/logger"
	"github.com/parfit-dev/parfit/pkg/utils"
)

// RunState is the driver's lifecycle state
type RunState string

const (
	// StateInitialized means the driver has not started yet
	StateInitialized RunState = "initialized"
	// StateRunning means the iteration loop is active
	StateRunning RunState = "running"
	// StateConverged means a convergence criterion was met
	StateConverged RunState = "converged"
	// StateExhausted means the iteration budget ran out before convergence
	StateExhausted RunState = "exhausted"
	// StateAborted means an infrastructure or persistence failure ended the run
	StateAborted RunState = "aborted"
)

// Terminal reports whether the state is a terminal one
func (s RunState) Terminal() bool {
	return s == StateConverged || s == StateExhausted || s == StateAborted
}

// IterationObserver receives per-iteration progress; the metrics collector
// implements it.
type IterationObserver interface {
	ObserveIteration(bestScore float64)
}

// Options configures a Driver
type Options struct {
	// RunID identifies the run in persisted records; generated when empty
	RunID string
	// Start is the starting parameter vector
	Start []float64
	// MaxIterations is the iteration budget
	MaxIterations int
	// FailureScore is the sentinel folded into strategy updates for
	// failed evaluations
	FailureScore float64
	// AppendRetries bounds how often a failed record append is retried
	AppendRetries int
	// RetryBackoff spaces append retries; defaults to exponential
	RetryBackoff utils.BackoffStrategy
	// Seed makes the run reproducible; zero seeds from the clock
	Seed int64
	// Convergence is optional; nil means the budget is the only stop
	Convergence ConvergenceStrategy
	// Observer is optional per-iteration reporting
	Observer IterationObserver
	// Logger defaults to the package default logger
	Logger *slog.Logger
}

// RunResult describes a finished run
type RunResult struct {
	RunID      string
	State      RunState
	Iterations int
	BestVector []float64
	BestScore  float64
	Reason     string
}

// Driver owns the run state machine. A Driver is single-use: construct,
// Run once, inspect the result.
type Driver struct {
	strategy strategy.Strategy
	pool     *pool.Pool
	sink     store.Sink
	opts     Options
	rng      *utils.RandSource
	log      *slog.Logger

	mu        sync.RWMutex
	state     RunState
	iteration int
	history   []IterationStep
}

// New creates a driver over the given strategy, pool and sink
func New(strat strategy.Strategy, p *pool.Pool, sink store.Sink, opts Options) *Driver {
	if opts.RunID == "" {
		opts.RunID = utils.GenerateRunID()
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = 100
	}
	if opts.FailureScore == 0 {
		opts.FailureScore = 1e9
	}
	if opts.RetryBackoff == nil {
		opts.RetryBackoff = utils.NewExponentialBackoff(100*time.Millisecond, 5*time.Second, 2.0)
	}
	log := opts.Logger
	if log == nil {
		log = logger.Default
	}
	return &Driver{
		strategy: strat,
		pool:     p,
		sink:     sink,
		opts:     opts,
		rng:      utils.NewRandSource(opts.Seed),
		log:      log.With("run_id", opts.RunID),
		state:    StateInitialized,
	}
}

// RunID returns the run identifier
func (d *Driver) RunID() string {
	return d.opts.RunID
}

// State returns the current lifecycle state
func (d *Driver) State() RunState {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

// Iteration returns the number of completed iterations
func (d *Driver) Iteration() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.iteration
}

// History returns a copy of the per-iteration best-score history
func (d *Driver) History() []IterationStep {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]IterationStep, len(d.history))
	copy(out, d.history)
	return out
}

func (d *Driver) setState(s RunState) {
	d.mu.Lock()
	d.state = s
	d.mu.Unlock()
}

// Run executes the iteration loop to a terminal state. Per-item evaluation
// failures are folded in as the sentinel score and the run continues;
// infrastructure failures (pool closed, context cancelled) and exhausted
// persistence retries abort the run and are returned as errors alongside
// the partial result.
func (d *Driver) Run(ctx context.Context) (*RunResult, error) {
	d.mu.Lock()
	if d.state != StateInitialized {
		state := d.state
		d.mu.Unlock()
		return nil, fmt.Errorf("driver already ran (state: %s)", state)
	}
	d.state = StateRunning
	d.mu.Unlock()

	st := d.strategy.Init(utils.CloneVector(d.opts.Start), d.rng)
	d.log.Info("run started",
		"strategy", d.strategy.Name(),
		"workers", d.pool.Workers(),
		"max_iterations", d.opts.MaxIterations,
	)

	for iter := 0; iter < d.opts.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return d.abort(st, fmt.Errorf("run cancelled: %w", err))
		}

		batch := d.strategy.Propose(st, d.rng)
		if len(batch) == 0 {
			return d.finish(st, StateConverged, "strategy proposed no candidates"), nil
		}

		pending, err := d.pool.SubmitBatch(batch)
		if err != nil {
			return d.abort(st, fmt.Errorf("submit batch: %w", err))
		}
		results, err := pending.Collect(ctx)
		if err != nil {
			return d.abort(st, fmt.Errorf("collect batch: %w", err))
		}

		scores, failed, reasons := d.foldFailures(results)
		st = d.strategy.Update(st, batch, scores, d.rng)
		_, bestScore := d.strategy.Best(st)

		rec := &store.Record{
			RunID:       d.opts.RunID,
			Iteration:   iter,
			Batch:       batch,
			Scores:      scores,
			Failed:      failed,
			FailReasons: reasons,
		}
		if err := d.appendWithRetry(ctx, rec); err != nil {
			return d.abort(st, err)
		}

		d.mu.Lock()
		d.iteration = iter + 1
		d.history = append(d.history, IterationStep{Iteration: iter, Score: bestScore})
		history := d.history
		d.mu.Unlock()

		if d.opts.Observer != nil {
			d.opts.Observer.ObserveIteration(bestScore)
		}
		d.log.Debug("iteration complete", "iteration", iter, "batch_size", len(batch), "best_score", bestScore)

		if d.opts.Convergence != nil {
			if converged, reason := d.opts.Convergence.CheckConvergence(history); converged {
				return d.finish(st, StateConverged, reason), nil
			}
		}
	}

	return d.finish(st, StateExhausted, "iteration budget exhausted without meeting tolerance"), nil
}

// foldFailures maps per-item results to strategy scores, substituting the
// sentinel for failed items
func (d *Driver) foldFailures(results []pool.Result) (scores []float64, failed []bool, reasons []string) {
	scores = make([]float64, len(results))
	failed = make([]bool, len(results))
	anyFailed := false
	for i, r := range results {
		if r.Failed() {
			scores[i] = d.opts.FailureScore
			failed[i] = true
			anyFailed = true
		} else {
			scores[i] = r.Score
		}
	}
	if anyFailed {
		reasons = make([]string, len(results))
		for i, r := range results {
			if r.Failed() {
				reasons[i] = r.Err.Error()
				d.log.Warn("evaluation failed", "item", i, "error", r.Err)
			}
		}
	}
	return scores, failed, reasons
}

// appendWithRetry appends a record, retrying a bounded number of times
// before giving up
func (d *Driver) appendWithRetry(ctx context.Context, rec *store.Record) error {
	attempts := d.opts.AppendRetries + 1
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := d.opts.RetryBackoff.NextDelay(attempt - 1)
			d.log.Warn("record append failed, retrying", "iteration", rec.Iteration, "attempt", attempt, "delay", delay, "error", lastErr)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return fmt.Errorf("run cancelled during append retry: %w", ctx.Err())
			}
		}
		lastErr = d.sink.Append(rec)
		if lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("append record for iteration %d after %d attempts: %w", rec.Iteration, attempts, lastErr)
}

func (d *Driver) finish(st strategy.State, state RunState, reason string) *RunResult {
	d.setState(state)
	bestVector, bestScore := d.strategy.Best(st)
	d.log.Info("run finished", "state", state, "iterations", d.Iteration(), "best_score", bestScore, "reason", reason)
	return &RunResult{
		RunID:      d.opts.RunID,
		State:      state,
		Iterations: d.Iteration(),
		BestVector: bestVector,
		BestScore:  bestScore,
		Reason:     reason,
	}
}

func (d *Driver) abort(st strategy.State, err error) (*RunResult, error) {
	result := d.finish(st, StateAborted, err.Error())
	return result, fmt.Errorf("run aborted after %d completed iterations: %w", result.Iterations, err)
}
