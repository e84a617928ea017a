package strategy

import (
	"math"

	"github.com/parfit-dev/parfit/pkg/utils"
)

// HillClimber is a derivative-free pattern search: each iteration proposes
// the current point's coordinate-step neighbors, moves to the best
// improving neighbor, and halves the step when no neighbor improves.
type HillClimber struct {
	stepSize float64
}

type hillState struct {
	current   []float64
	score     float64
	step      float64
	evaluated bool
}

// NewHillClimber creates a hill climber with the given initial step size
func NewHillClimber(stepSize float64) *HillClimber {
	if stepSize <= 0 {
		stepSize = 1.0
	}
	return &HillClimber{stepSize: stepSize}
}

func (h *HillClimber) Name() string {
	return "hillclimb"
}

func (h *HillClimber) Init(start []float64, rng *utils.RandSource) State {
	return &hillState{
		current: utils.CloneVector(start),
		score:   math.MaxFloat64,
		step:    h.stepSize,
	}
}

// Propose emits the current point followed by its 2*dim coordinate
// neighbors. The current point rides along so its score is established on
// the first iteration and re-checked after failures.
func (h *HillClimber) Propose(state State, rng *utils.RandSource) [][]float64 {
	st := state.(*hillState)
	dim := len(st.current)
	batch := make([][]float64, 0, 2*dim+1)
	batch = append(batch, utils.CloneVector(st.current))
	for i := 0; i < dim; i++ {
		up := utils.CloneVector(st.current)
		up[i] += st.step
		down := utils.CloneVector(st.current)
		down[i] -= st.step
		batch = append(batch, up, down)
	}
	return batch
}

// Update moves to the best scoring candidate when it improves on the
// current point, otherwise halves the step.
func (h *HillClimber) Update(state State, batch [][]float64, scores []float64, rng *utils.RandSource) State {
	st := state.(*hillState)
	if len(batch) == 0 {
		return st
	}

	if !st.evaluated {
		// batch[0] is the current point
		st.score = scores[0]
		st.evaluated = true
	}

	best := utils.MinIndex(scores)
	if scores[best] < st.score {
		st.current = utils.CloneVector(batch[best])
		st.score = scores[best]
	} else {
		st.step /= 2
	}
	return st
}

func (h *HillClimber) Best(state State) ([]float64, float64) {
	st := state.(*hillState)
	return utils.CloneVector(st.current), st.score
}
