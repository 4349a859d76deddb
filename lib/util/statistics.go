package util

import (
	"math"
)

// ----------------------------------------------------------------------------
// Statistics
// ----------------------------------------------------------------------------

// Stats summarizes a set of samples (e.g. the member counts of all channels)
type Stats struct {
	Count        int     `json:"count"`
	Sum          float64 `json:"sum"`
	StdDeviation float64 `json:"std_deviation"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	Mean         float64 `json:"mean"`
	Median       float64 `json:"median"`
}

// NewStats computes count, sum, mean, median, standard deviation, minimum and
// maximum of the given samples. values must be sorted ascending for the median
// to be meaningful.
func NewStats(values []float64) Stats {
	if len(values) == 0 {
		return Stats{}
	}

	min := values[0]
	max := values[0]

	var sum float64
	for _, v := range values {
		sum += v
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	mean := sum / float64(len(values))

	var sumSquaredDiffs float64
	for _, v := range values {
		diff := v - mean
		sumSquaredDiffs += diff * diff
	}

	// population formula
	stdDev := math.Sqrt(sumSquaredDiffs / float64(len(values)))

	mid := len(values) / 2
	median := values[mid]
	if len(values)%2 == 0 {
		median = (values[mid-1] + values[mid]) / 2
	}

	return Stats{
		Count:        len(values),
		Sum:          sum,
		StdDeviation: stdDev,
		Min:          min,
		Max:          max,
		Mean:         mean,
		Median:       median,
	}
}

// Percentile returns the nearest-rank percentile (0-100) of sorted values
func Percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 || p < 0 || p > 100 {
		return 0
	}
	rank := int(math.Ceil(float64(len(sorted))*p/100.0)) - 1
	if rank < 0 {
		rank = 0
	}
	return sorted[rank]
}
