package quality

import "sort"

// percentile returns the p-th percentile of sorted values using linear
// interpolation between closest ranks. p in [0, 1].
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	// Index for percentile (0-based, continuous)
	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// iqrFences returns the Tukey fences [Q1 - 1.5*IQR, Q3 + 1.5*IQR].
func iqrFences(values []float64) (low, high float64) {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	q1 := percentile(sorted, 0.25)
	q3 := percentile(sorted, 0.75)
	iqr := q3 - q1
	return q1 - 1.5*iqr, q3 + 1.5*iqr
}

// countOutliers counts values outside the IQR fences.
func countOutliers(values []float64) int {
	if len(values) == 0 {
		return 0
	}
	low, high := iqrFences(values)
	n := 0
	for _, v := range values {
		if v < low || v > high {
			n++
		}
	}
	return n
}
