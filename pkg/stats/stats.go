// Package stats provides statistical utility functions for the analyzers.
package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Gini computes the Gini coefficient of a non-negative vector:
// Σᵢⱼ|vᵢ−vⱼ| / (2n·Σv). Returns 0 for an empty vector and 1 when the sum
// is zero, so a degenerate distribution reads as maximal inequality.
func Gini(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	if sum == 0 {
		return 1
	}

	var diffSum float64
	for i := range n {
		for j := range n {
			diffSum += math.Abs(values[i] - values[j])
		}
	}

	g := diffSum / (2 * float64(n) * sum)
	return math.Min(math.Max(g, 0), 1)
}

// CoefficientOfVariation returns stdev/mean for the vector. The second
// return is false when the ratio is undefined (empty vector, zero mean,
// or a single sample).
func CoefficientOfVariation(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	mean, std := stat.MeanStdDev(values, nil)
	if mean == 0 || math.IsNaN(std) {
		return 0, false
	}
	return std / mean, true
}

// Percentile calculates the p-th percentile of a sorted slice.
// The slice must already be sorted in ascending order.
// Returns 0 if the slice is empty.
func Percentile(sorted []float64, p int) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (p * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
