package objective

import (
	"fmt"
	"math"
)

// LogLikelihood computes the log-likelihood of a parameter vector
type LogLikelihood func(vector []float64) (float64, error)

// ForwardModel maps a parameter vector to predicted observations
type ForwardModel func(vector []float64) ([]float64, error)

// GaussianLogLikelihood builds a log-likelihood from observed data, a
// forward model and a Gaussian noise level:
//
//	lnlike = -N/2 ln(2*pi) - N ln(sigma) - 1/2 sum(((f(x) - d) / sigma)^2)
func GaussianLogLikelihood(data []float64, noiseSD float64, forward ForwardModel) LogLikelihood {
	return func(vector []float64) (float64, error) {
		if noiseSD <= 0 {
			return 0, fmt.Errorf("noise sd must be positive, got %f", noiseSD)
		}
		predicted, err := forward(vector)
		if err != nil {
			return 0, fmt.Errorf("forward model failed: %w", err)
		}
		if len(predicted) != len(data) {
			return 0, fmt.Errorf("forward model returned %d values for %d observations", len(predicted), len(data))
		}
		n := float64(len(data))
		sumSq := 0.0
		for i, p := range predicted {
			r := (p - data[i]) / noiseSD
			sumSq += r * r
		}
		return -n/2*math.Log(2*math.Pi) - n*math.Log(noiseSD) - 0.5*sumSq, nil
	}
}

// NegLogPosterior composes priors and a log-likelihood into a minimization
// objective. Where the prior forbids a vector the likelihood is never
// evaluated and the item fails with ErrOutsidePrior.
func NegLogPosterior(priors *PriorSet, loglike LogLikelihood) Func {
	return func(vector []float64) (float64, error) {
		lnprior := priors.LogPrior(vector)
		if math.IsInf(lnprior, -1) {
			return 0, ErrOutsidePrior
		}
		lnlike, err := loglike(vector)
		if err != nil {
			return 0, err
		}
		return -(lnprior + lnlike), nil
	}
}

// WithPriors penalizes a plain objective by the joint log-prior, rejecting
// vectors outside the prior support. Useful for bounding built-in
// objectives through the config's priors section.
func WithPriors(priors *PriorSet, base Func) Func {
	return func(vector []float64) (float64, error) {
		lnprior := priors.LogPrior(vector)
		if math.IsInf(lnprior, -1) {
			return 0, ErrOutsidePrior
		}
		score, err := base(vector)
		if err != nil {
			return 0, err
		}
		return score - lnprior, nil
	}
}
