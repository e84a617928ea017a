package objective

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func identityModel(vector []float64) ([]float64, error) {
	out := make([]float64, len(vector))
	copy(out, vector)
	return out, nil
}

func TestGaussianLogLikelihoodPerfectFit(t *testing.T) {
	data := []float64{1, 2, 3}
	ll := GaussianLogLikelihood(data, 1, identityModel)

	got, err := ll([]float64{1, 2, 3})
	require.NoError(t, err)
	// residuals are zero so only the normalization terms remain
	want := -3.0 / 2.0 * math.Log(2*math.Pi)
	require.InDelta(t, want, got, 1e-12)
}

func TestGaussianLogLikelihoodResiduals(t *testing.T) {
	data := []float64{0, 0}
	ll := GaussianLogLikelihood(data, 2, identityModel)

	got, err := ll([]float64{2, 2})
	require.NoError(t, err)
	want := -math.Log(2*math.Pi) - 2*math.Log(2) - 0.5*2
	require.InDelta(t, want, got, 1e-12)
}

func TestGaussianLogLikelihoodErrors(t *testing.T) {
	ll := GaussianLogLikelihood([]float64{1}, 0, identityModel)
	_, err := ll([]float64{1})
	require.Error(t, err, "noise sd must be positive")

	ll = GaussianLogLikelihood([]float64{1, 2}, 1, func([]float64) ([]float64, error) {
		return []float64{1}, nil
	})
	_, err = ll([]float64{0})
	require.Error(t, err, "length mismatch")

	modelErr := errors.New("singular")
	ll = GaussianLogLikelihood([]float64{1}, 1, func([]float64) ([]float64, error) {
		return nil, modelErr
	})
	_, err = ll([]float64{0})
	require.ErrorIs(t, err, modelErr)
}

func TestNegLogPosterior(t *testing.T) {
	priors := NewPriorSet(Gaussian{Mean: 0, Std: 1})
	ll := GaussianLogLikelihood([]float64{0}, 1, identityModel)
	post := NegLogPosterior(priors, ll)

	atZero, err := post([]float64{0})
	require.NoError(t, err)
	farOut, err := post([]float64{3})
	require.NoError(t, err)
	require.Less(t, atZero, farOut, "lower is better near the data")
}

func TestNegLogPosteriorOutsideSupport(t *testing.T) {
	priors := NewPriorSet(Uniform{Low: 0, High: 1})
	called := false
	post := NegLogPosterior(priors, func([]float64) (float64, error) {
		called = true
		return 0, nil
	})

	_, err := post([]float64{5})
	require.ErrorIs(t, err, ErrOutsidePrior)
	require.False(t, called, "likelihood must not run outside support")
}

func TestWithPriors(t *testing.T) {
	priors := NewPriorSet(Uniform{Low: -1, High: 1})
	fn := WithPriors(priors, Sphere)

	score, err := fn([]float64{0.5})
	require.NoError(t, err)
	// sphere score minus the flat uniform log-density
	require.InDelta(t, 0.25+math.Log(2), score, 1e-12)

	_, err = fn([]float64{2})
	require.ErrorIs(t, err, ErrOutsidePrior)
}
