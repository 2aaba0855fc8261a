package signal

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// EstimateBias finds the steady pre-impact offset of an acceleration record
// by sliding a short window over the leading portion of the series and
// taking the mean of the quietest (minimum standard deviation) window.
//
// searchRatio limits the search to the leading fraction of the record so
// crash data never contaminates the estimate; windowSeconds sets the window
// length. An estimate larger than maxBiasG is treated as implausible and
// discarded, returning zero.
func EstimateBias(samples []float64, sampleRate float64, windowSeconds, searchRatio, maxBiasG float64) float64 {
	limit := int(float64(len(samples)) * searchRatio)
	// Guarantee at least 50 ms of material when the record allows it.
	if minSamples := int(0.05 * sampleRate); limit < minSamples {
		limit = minSamples
		if limit > len(samples) {
			limit = len(samples)
		}
	}
	target := samples[:limit]

	winLen := int(windowSeconds * sampleRate)
	if winLen < 3 {
		winLen = 3
	}
	if len(target) < winLen {
		return median(target)
	}

	minStd := -1.0
	best := 0.0
	stride := winLen / 4
	if stride < 1 {
		stride = 1
	}
	for i := 0; i+winLen <= len(target); i += stride {
		segment := target[i : i+winLen]
		sd := stat.StdDev(segment, nil)
		if minStd < 0 || sd < minStd {
			minStd = sd
			best = stat.Mean(segment, nil)
		}
	}

	if best > maxBiasG || best < -maxBiasG {
		return 0
	}
	return best
}

// FindImpactStart locates the first sample of the crash event. It finds the
// first sample harder than anchorG, then backtracks to the last sample
// softer than releaseG before it. When no anchor exists (a very soft
// impact) the first releaseG crossing is used; when the backtrack runs off
// the start of the record, T0 is forced to fallbackSeconds before the
// anchor. Both accelerations are in G with deceleration negative.
func FindImpactStart(samples []float64, sampleRate float64, anchorG, releaseG, fallbackSeconds float64) int {
	anchorIdx := -1
	for i, v := range samples {
		if v < anchorG {
			anchorIdx = i
			break
		}
	}
	if anchorIdx < 0 {
		for i, v := range samples {
			if v < releaseG {
				return i
			}
		}
		return 0
	}

	for i := anchorIdx - 1; i >= 0; i-- {
		if samples[i] > releaseG {
			return i + 1
		}
	}

	// Everything before the anchor already reads below releaseG, which
	// usually means the bias estimate was off. Force T0 a short, fixed
	// interval before the anchor rather than claiming the crash started at
	// the first sample.
	fallback := anchorIdx - int(fallbackSeconds*sampleRate)
	if fallback < 0 {
		fallback = 0
	}
	return fallback
}

// NormalizePolarity enforces the deceleration-negative sign convention. A
// crash pulse integrates to a net velocity loss, so a record whose sum is
// positive is inverted. Variant channel codes with flipped axis conventions
// are corrected here, before integration, never inside the integrator.
// Returns the (possibly inverted) series and whether it was inverted.
func NormalizePolarity(samples []float64) ([]float64, bool) {
	sum := 0.0
	for _, v := range samples {
		sum += v
	}
	out := make([]float64, len(samples))
	if sum > 0 {
		for i, v := range samples {
			out[i] = -v
		}
		return out, true
	}
	copy(out, samples)
	return out, false
}

// ClampAfterStop zeroes velocity after its first non-positive crossing at or
// past startIdx and returns the crossing index. The vehicle does not reverse
// through the barrier; post-rebound integration drift is discarded.
func ClampAfterStop(velocity []float64, startIdx int) int {
	for i := startIdx; i < len(velocity); i++ {
		if velocity[i] <= 0 {
			for j := i + 1; j < len(velocity); j++ {
				velocity[j] = 0
			}
			return i
		}
	}
	return len(velocity) - 1
}

func median(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	sorted := make([]float64, len(x))
	copy(sorted, x)
	sort.Float64s(sorted)
	return stat.Quantile(0.5, stat.Empirical, sorted, nil)
}
