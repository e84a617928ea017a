// Package strategy defines the proposal/update contract between the
// scheduling driver and interchangeable sampling or optimization
// algorithms. The driver only ever exercises the two capabilities declared
// here; algorithm internals stay behind the interface.
package strategy

import (
	"fmt"

	"github.com/parfit-dev/parfit/pkg/config"
	"github.com/parfit-dev/parfit/pkg/utils"
)

// State is the opaque accumulator a strategy evolves across iterations. It
// is owned exclusively by the driver and never shared with the pool.
type State interface{}

// Strategy proposes batches of parameter vectors and folds evaluation
// results back into its state. Implementations must be deterministic given
// the same seeded random source. Scores are minimized; per-item failures
// reach Update as the configured sentinel score.
type Strategy interface {
	// Name returns the strategy name
	Name() string

	// Init seeds the strategy state from the starting vector
	Init(start []float64, rng *utils.RandSource) State

	// Propose derives the next batch of candidate vectors from state.
	// An empty batch signals the strategy has nothing left to try.
	Propose(state State, rng *utils.RandSource) [][]float64

	// Update folds the batch's scores into a new state. scores[i]
	// corresponds to batch[i].
	Update(state State, batch [][]float64, scores []float64, rng *utils.RandSource) State

	// Best returns the best vector and score seen so far
	Best(state State) ([]float64, float64)
}

// FromConfig builds the configured strategy
func FromConfig(cfg *config.Strategy) (Strategy, error) {
	switch cfg.Name {
	case "ensemble":
		return NewEnsembleSampler(cfg.Walkers, cfg.Stretch), nil
	case "hillclimb":
		return NewHillClimber(cfg.StepSize), nil
	default:
		return nil, fmt.Errorf("unknown strategy: %s", cfg.Name)
	}
}
