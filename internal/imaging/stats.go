package imaging

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// SampleStats summarizes the sample values of one frame.
type SampleStats struct {
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
	Median float64
}

// ComputeStats returns summary statistics for samples. An empty input returns
// the zero value.
func ComputeStats(samples []int16) SampleStats {
	if len(samples) == 0 {
		return SampleStats{}
	}

	values := make([]float64, len(samples))
	for i, s := range samples {
		values[i] = float64(s)
	}

	mean, std := stat.MeanStdDev(values, nil)
	if math.IsNaN(std) {
		std = 0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	return SampleStats{
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Mean:   mean,
		StdDev: std,
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
	}
}

// AutoWindow centers a window on the mean, two standard deviations each side,
// limited to the observed sample range.
func AutoWindow(st SampleStats) WindowLevel {
	low := math.Max(st.Min, st.Mean-2*st.StdDev)
	high := math.Min(st.Max, st.Mean+2*st.StdDev)
	if high <= low {
		return WindowLevel{Center: st.Mean, Width: 1}
	}
	return WindowLevel{Center: (low + high) / 2, Width: high - low}.Normalized()
}
