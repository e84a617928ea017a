package objective

import (
	"errors"
	"fmt"
	"math"

	"github.com/parfit-dev/parfit/pkg/config"
	"github.com/parfit-dev/parfit/pkg/utils"
)

// ErrOutsidePrior marks a parameter vector the prior forbids. The adapter
// surfaces it as an *EvaluationError so the run continues past it.
var ErrOutsidePrior = errors.New("parameter vector outside prior support")

// Prior is a one-dimensional prior distribution over a single parameter
type Prior interface {
	// LogProb returns the log-density at x; -Inf outside the support
	LogProb(x float64) float64
	// Guess returns a representative starting value
	Guess() float64
	// Sample draws one value from the distribution
	Sample(rng *utils.RandSource) float64
}

// Uniform is a flat prior on [Low, High)
type Uniform struct {
	Low  float64
	High float64
}

func (u Uniform) LogProb(x float64) float64 {
	if x < u.Low || x >= u.High {
		return math.Inf(-1)
	}
	return -math.Log(u.High - u.Low)
}

func (u Uniform) Guess() float64 {
	return (u.Low + u.High) / 2
}

func (u Uniform) Sample(rng *utils.RandSource) float64 {
	return rng.UniformFloat64(u.Low, u.High)
}

// Gaussian is a normal prior with the given mean and standard deviation
type Gaussian struct {
	Mean float64
	Std  float64
}

func (g Gaussian) LogProb(x float64) float64 {
	d := (x - g.Mean) / g.Std
	return -0.5*d*d - math.Log(g.Std) - 0.5*math.Log(2*math.Pi)
}

func (g Gaussian) Guess() float64 {
	return g.Mean
}

func (g Gaussian) Sample(rng *utils.RandSource) float64 {
	return rng.NormFloat64(g.Mean, g.Std)
}

// PriorSet holds one prior per parameter, in parameter order
type PriorSet struct {
	priors []Prior
}

// NewPriorSet creates a prior set; one prior per parameter
func NewPriorSet(priors ...Prior) *PriorSet {
	return &PriorSet{priors: priors}
}

// PriorsFromConfig builds a PriorSet from config entries
func PriorsFromConfig(entries []config.Prior) (*PriorSet, error) {
	priors := make([]Prior, len(entries))
	for i, e := range entries {
		switch e.Type {
		case "uniform":
			priors[i] = Uniform{Low: e.Low, High: e.High}
		case "gaussian":
			priors[i] = Gaussian{Mean: e.Mean, Std: e.Std}
		default:
			return nil, fmt.Errorf("unknown prior type: %s", e.Type)
		}
	}
	return NewPriorSet(priors...), nil
}

// Dim returns the number of parameters covered by the set
func (ps *PriorSet) Dim() int {
	return len(ps.priors)
}

// LogPrior returns the joint log-prior of a vector; -Inf where any
// parameter falls outside its prior's support.
func (ps *PriorSet) LogPrior(vector []float64) float64 {
	if len(vector) != len(ps.priors) {
		return math.Inf(-1)
	}
	sum := 0.0
	for i, p := range ps.priors {
		lp := p.LogProb(vector[i])
		if math.IsInf(lp, -1) {
			return math.Inf(-1)
		}
		sum += lp
	}
	return sum
}

// Guess returns the per-parameter representative values
func (ps *PriorSet) Guess() []float64 {
	out := make([]float64, len(ps.priors))
	for i, p := range ps.priors {
		out[i] = p.Guess()
	}
	return out
}

// GenerateGuess draws n starting vectors scattered around the prior guess.
// scaling shrinks (<1) or widens (>1) the scatter.
func (ps *PriorSet) GenerateGuess(n int, scaling float64, rng *utils.RandSource) [][]float64 {
	guess := ps.Guess()
	out := make([][]float64, n)
	for k := 0; k < n; k++ {
		vec := make([]float64, len(ps.priors))
		for i, p := range ps.priors {
			vec[i] = guess[i] + scaling*(p.Sample(rng)-guess[i])
		}
		out[k] = vec
	}
	return out
}
