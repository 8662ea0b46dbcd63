package core

import "math"

// -----------------------------------------------------------------------------

// CalculateMeanStd computes mean and population standard deviation.
func CalculateMeanStd(data []float64) (float64, float64) {
	if len(data) == 0 {
		return 0, 0
	}

	// Calculate mean
	sum := 0.0
	for _, v := range data {
		sum += v
	}
	mean := sum / float64(len(data))

	if len(data) == 1 {
		return mean, 0
	}

	// Standard deviation with N denominator (population std)
	varianceSum := 0.0
	for _, v := range data {
		varianceSum += (v - mean) * (v - mean)
	}
	std := math.Sqrt(varianceSum / float64(len(data)))
	return mean, std
}

// -----------------------------------------------------------------------------

// SampleStdDev computes the sample standard deviation (N-1 denominator)
// from running sums: count, Σx and Σx². Returns false when count < 2.
func SampleStdDev(count int, sum, sumSq float64) (float64, bool) {
	if count < 2 {
		return 0, false
	}

	n := float64(count)
	mean := sum / n
	variance := (sumSq - n*mean*mean) / (n - 1)
	// Guard against tiny negative values from floating point cancellation.
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance), true
}

// -----------------------------------------------------------------------------

// VWAP computes Σ(price·volume) / Σ(volume) from running sums. When total
// volume is zero the fallback value is returned to avoid division by zero.
func VWAP(priceVolumeSum, volumeSum, fallback float64) float64 {
	if volumeSum == 0 {
		return fallback
	}
	return priceVolumeSum / volumeSum
}

// -----------------------------------------------------------------------------

// CalculateChangePercent returns the percent change from prev to current.
func CalculateChangePercent(current, prev float64) float64 {
	if prev == 0 {
		return 0
	}
	return (current - prev) / prev * 100
}
