package strategy

import (
	"math"

	"github.com/parfit-dev/parfit/pkg/utils"
)

// EnsembleSampler is an affine-invariant ensemble sampler using the
// stretch move. Each iteration proposes one candidate per walker; a
// candidate is drawn by stretching the walker toward a randomly chosen
// walker from the complementary half of the ensemble. Scores are treated
// as negative log-probabilities, so the Metropolis acceptance maximizes
// the underlying probability while the driver keeps minimizing.
type EnsembleSampler struct {
	walkers int
	stretch float64
}

type ensembleState struct {
	positions [][]float64
	scores    []float64
	evaluated bool

	// stretch factors of the batch currently awaiting Update
	lastZ []float64

	bestVector []float64
	bestScore  float64
}

// NewEnsembleSampler creates a sampler with the given even walker count
// and stretch parameter a > 1 (2.0 is the conventional choice).
func NewEnsembleSampler(walkers int, stretch float64) *EnsembleSampler {
	if walkers < 4 {
		walkers = 4
	}
	if walkers%2 != 0 {
		walkers++
	}
	if stretch <= 1 {
		stretch = 2.0
	}
	return &EnsembleSampler{walkers: walkers, stretch: stretch}
}

func (s *EnsembleSampler) Name() string {
	return "ensemble"
}

// Init scatters the walkers in a small Gaussian ball around the start
// vector so the ensemble begins spread out rather than degenerate.
func (s *EnsembleSampler) Init(start []float64, rng *utils.RandSource) State {
	positions := make([][]float64, s.walkers)
	for k := range positions {
		vec := make([]float64, len(start))
		for i, v := range start {
			scale := 1e-3 * (math.Abs(v) + 1)
			vec[i] = v + rng.NormFloat64(0, scale)
		}
		positions[k] = vec
	}
	scores := make([]float64, s.walkers)
	for k := range scores {
		scores[k] = math.MaxFloat64
	}
	return &ensembleState{
		positions: positions,
		scores:    scores,
		bestScore: math.MaxFloat64,
	}
}

// Propose emits one candidate per walker. On the first call the walkers
// themselves are proposed so their scores get established.
func (s *EnsembleSampler) Propose(state State, rng *utils.RandSource) [][]float64 {
	st := state.(*ensembleState)
	if !st.evaluated {
		st.lastZ = nil
		return utils.CloneBatch(st.positions)
	}

	batch := make([][]float64, s.walkers)
	st.lastZ = make([]float64, s.walkers)
	half := s.walkers / 2
	for k := 0; k < s.walkers; k++ {
		// Complementary half: first half stretches toward the second
		// and vice versa.
		var j int
		if k < half {
			j = half + rng.Intn(half)
		} else {
			j = rng.Intn(half)
		}

		z := s.drawStretch(rng)
		st.lastZ[k] = z

		other := st.positions[j]
		walker := st.positions[k]
		candidate := make([]float64, len(walker))
		for i := range candidate {
			candidate[i] = other[i] + z*(walker[i]-other[i])
		}
		batch[k] = candidate
	}
	return batch
}

// drawStretch samples z with density proportional to 1/sqrt(z) on
// [1/a, a], the stretch-move distribution.
func (s *EnsembleSampler) drawStretch(rng *utils.RandSource) float64 {
	a := s.stretch
	u := rng.Float64()
	v := (a-1)*u + 1
	return v * v / a
}

// Update applies the Metropolis acceptance rule per walker and tracks the
// best vector seen.
func (s *EnsembleSampler) Update(state State, batch [][]float64, scores []float64, rng *utils.RandSource) State {
	st := state.(*ensembleState)
	dim := 0
	if len(batch) > 0 {
		dim = len(batch[0])
	}

	if !st.evaluated {
		// First batch established the walkers' own scores
		for k := range batch {
			st.positions[k] = utils.CloneVector(batch[k])
			st.scores[k] = scores[k]
			st.observeBest(batch[k], scores[k])
		}
		st.evaluated = true
		return st
	}

	for k := range batch {
		// ln q = (dim-1) ln z + lnp(new) - lnp(old), scores being
		// negative log-probabilities.
		z := st.lastZ[k]
		lnAccept := float64(dim-1)*math.Log(z) + (st.scores[k] - scores[k])
		if lnAccept >= 0 || math.Log(rng.Float64()) < lnAccept {
			st.positions[k] = utils.CloneVector(batch[k])
			st.scores[k] = scores[k]
		}
		st.observeBest(batch[k], scores[k])
	}
	st.lastZ = nil
	return st
}

func (s *EnsembleSampler) Best(state State) ([]float64, float64) {
	st := state.(*ensembleState)
	return utils.CloneVector(st.bestVector), st.bestScore
}

func (st *ensembleState) observeBest(vector []float64, score float64) {
	if score < st.bestScore {
		st.bestScore = score
		st.bestVector = utils.CloneVector(vector)
	}
}
