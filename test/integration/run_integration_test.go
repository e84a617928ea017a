//go:build integration
// +build integration

package integration_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/parfit-dev/parfit/internal/driver"
	"github.com/parfit-dev/parfit/internal/objective"
	"github.com/parfit-dev/parfit/internal/pool"
	"github.com/parfit-dev/parfit/internal/store"
	"github.com/parfit-dev/parfit/internal/strategy"
	"github.com/parfit-dev/parfit/pkg/config"
	"github.com/parfit-dev/parfit/pkg/utils"
)

func loadConfig(t *testing.T, name string) *config.Config {
	t.Helper()
	path := filepath.Join("..", "..", "config", name)
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load(%s) failed: %v", path, err)
	}
	return cfg
}

func TestIntegration_ConfigSmoke(t *testing.T) {
	cfg := loadConfig(t, "config.yaml")
	if cfg.Strategy.Name != "hillclimb" {
		t.Fatalf("expected hillclimb strategy, got %s", cfg.Strategy.Name)
	}

	cfg = loadConfig(t, "ensemble.yaml")
	if cfg.Strategy.Name != "ensemble" {
		t.Fatalf("expected ensemble strategy, got %s", cfg.Strategy.Name)
	}
	if len(cfg.Priors) != len(cfg.Start) {
		t.Fatalf("expected %d priors, got %d", len(cfg.Start), len(cfg.Priors))
	}
}

// buildRun assembles the full stack the run command builds, substituting
// the given sink.
func buildRun(t *testing.T, cfg *config.Config, sink store.Sink, runID string) (*driver.Driver, *pool.Pool) {
	t.Helper()

	fn, err := objective.FromConfig(cfg)
	if err != nil {
		t.Fatalf("objective.FromConfig failed: %v", err)
	}
	timeout, err := cfg.Evaluation.GetTimeout()
	if err != nil {
		t.Fatalf("GetTimeout failed: %v", err)
	}
	adapter := objective.NewAdapter(cfg.Evaluation.Objective, fn, timeout)

	strat, err := strategy.FromConfig(&cfg.Strategy)
	if err != nil {
		t.Fatalf("strategy.FromConfig failed: %v", err)
	}

	p := pool.New(cfg.Pool.Workers, adapter)
	d := driver.New(strat, p, sink, driver.Options{
		RunID:         runID,
		Start:         cfg.Start,
		MaxIterations: cfg.Budget.MaxIterations,
		FailureScore:  cfg.Evaluation.FailureScore,
		AppendRetries: cfg.Store.AppendRetries,
		RetryBackoff:  utils.BackoffFromConfig(cfg.Store.RetryBackoff, cfg.Store.RetryBaseMs, 0),
		Seed:          cfg.Seed,
		Convergence:   driver.ConvergenceFromConfig(cfg.Convergence),
	})
	return d, p
}

func TestIntegration_EndToEndHillClimbRun(t *testing.T) {
	cfg := loadConfig(t, "config.yaml")

	sink, err := store.OpenBadger(store.BadgerConfig{Path: t.TempDir()})
	if err != nil {
		t.Fatalf("OpenBadger failed: %v", err)
	}
	defer sink.Close()

	runID := utils.GenerateRunID()
	d, p := buildRun(t, cfg, sink, runID)
	defer p.Shutdown()

	result, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !result.State.Terminal() {
		t.Fatalf("expected a terminal state, got %s", result.State)
	}
	if result.State == driver.StateAborted {
		t.Fatalf("run aborted: %s", result.Reason)
	}
	if result.BestScore > 0.1 {
		t.Fatalf("expected hill climbing to approach the sphere minimum, best score %f", result.BestScore)
	}

	// one record per completed iteration, streamed back in iteration order
	n, err := sink.Len()
	if err != nil {
		t.Fatalf("Len failed: %v", err)
	}
	if n != result.Iterations {
		t.Fatalf("expected %d records, got %d", result.Iterations, n)
	}

	next := 0
	err = sink.StreamRun(runID, func(rec *store.Record) error {
		if rec.Iteration != next {
			t.Fatalf("record out of order: expected iteration %d, got %d", next, rec.Iteration)
		}
		next++
		return nil
	})
	if err != nil {
		t.Fatalf("StreamRun failed: %v", err)
	}
}

func TestIntegration_SeededEnsembleReplay(t *testing.T) {
	run := func() []byte {
		cfg := loadConfig(t, "ensemble.yaml")
		cfg.Budget.MaxIterations = 20

		sink := store.NewMemorySink()
		d, p := buildRun(t, cfg, sink, "run-replay")
		defer p.Shutdown()

		if _, err := d.Run(context.Background()); err != nil {
			t.Fatalf("Run failed: %v", err)
		}

		var out []byte
		err := sink.Stream(func(rec *store.Record) error {
			line, err := json.Marshal(rec)
			if err != nil {
				return err
			}
			out = append(out, line...)
			out = append(out, '\n')
			return nil
		})
		if err != nil {
			t.Fatalf("Stream failed: %v", err)
		}
		return out
	}

	first := run()
	second := run()
	if len(first) == 0 {
		t.Fatalf("expected persisted records")
	}
	if string(first) != string(second) {
		t.Fatalf("seeded replays persisted different records")
	}
}
