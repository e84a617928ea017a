package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMean(t *testing.T) {
	require.Equal(t, 0.0, Mean(nil))
	require.Equal(t, 2.0, Mean([]float64{1, 2, 3}))
}

func TestVarianceAndStdDev(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	require.InDelta(t, 4.0, Variance(values), 1e-12)
	require.InDelta(t, 2.0, StdDev(values), 1e-12)
	require.Equal(t, 0.0, Variance(nil))
}

func TestMinIndex(t *testing.T) {
	require.Equal(t, -1, MinIndex(nil))
	require.Equal(t, 0, MinIndex([]float64{1}))
	require.Equal(t, 2, MinIndex([]float64{3, 1, 0.5, 2}))
	// first minimum wins on ties
	require.Equal(t, 1, MinIndex([]float64{2, 1, 1}))
}

func TestClampFloat64(t *testing.T) {
	require.Equal(t, 1.0, ClampFloat64(0.5, 1, 2))
	require.Equal(t, 2.0, ClampFloat64(3.0, 1, 2))
	require.Equal(t, 1.5, ClampFloat64(1.5, 1, 2))
}

func TestCloneVectorIsIndependent(t *testing.T) {
	orig := []float64{1, 2, 3}
	cp := CloneVector(orig)
	cp[0] = 99
	require.Equal(t, 1.0, orig[0])
}

func TestCloneBatchIsDeep(t *testing.T) {
	orig := [][]float64{{1, 2}, {3, 4}}
	cp := CloneBatch(orig)
	cp[0][0] = 99
	cp[1] = nil
	require.Equal(t, 1.0, orig[0][0])
	require.Equal(t, []float64{3, 4}, orig[1])
}

func TestIsFinite(t *testing.T) {
	require.True(t, IsFinite(0))
	require.True(t, IsFinite(-1e300))
	require.False(t, IsFinite(math.NaN()))
	require.False(t, IsFinite(math.Inf(1)))
	require.False(t, IsFinite(math.Inf(-1)))
}
