package utils

import "math"

// Mean calculates the mean of a slice of float64 values
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Variance calculates the variance of a slice of float64 values
func Variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := Mean(values)
	sumSquares := 0.0
	for _, v := range values {
		diff := v - mean
		sumSquares += diff * diff
	}
	return sumSquares / float64(len(values))
}

// StdDev calculates the standard deviation of a slice of float64 values
func StdDev(values []float64) float64 {
	return math.Sqrt(Variance(values))
}

// MinIndex returns the index of the smallest value, or -1 for an empty slice
func MinIndex(values []float64) int {
	if len(values) == 0 {
		return -1
	}
	best := 0
	for i := range values {
		if values[i] < values[best] {
			best = i
		}
	}
	return best
}

// ClampFloat64 clamps a float64 value between min and max
func ClampFloat64(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// CloneVector returns a copy of a parameter vector
func CloneVector(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}

// CloneBatch returns a deep copy of a batch of parameter vectors
func CloneBatch(batch [][]float64) [][]float64 {
	out := make([][]float64, len(batch))
	for i, v := range batch {
		out[i] = CloneVector(v)
	}
	return out
}

// IsFinite reports whether v is neither NaN nor infinite
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
