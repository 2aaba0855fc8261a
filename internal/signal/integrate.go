package signal

import "fmt"

// Integrate numerically integrates a uniformly sampled series with the
// cumulative trapezoid rule. The same rule is used for every integration in
// the pipeline (acceleration to velocity and velocity to displacement);
// mixing rules would invalidate cross-test comparisons.
//
// out[0] is the supplied initial condition; out[i] accumulates
// (x[i-1]+x[i])/2 * dt. The initial condition is always explicit at this
// level: a zero start is a configuration default decided by the caller, not
// an assumption made here. Sign conventions are normalised upstream.
func Integrate(samples []float64, sampleRate float64, initial float64) ([]float64, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %g", sampleRate)
	}
	if len(samples) < 2 {
		return nil, &InsufficientSamplesError{Have: len(samples), Need: 2}
	}
	dt := 1.0 / sampleRate
	out := make([]float64, len(samples))
	out[0] = initial
	for i := 1; i < len(samples); i++ {
		out[i] = out[i-1] + (samples[i-1]+samples[i])*0.5*dt
	}
	return out, nil
}

// TrapezoidTotal integrates y over x (both the same length) and returns the
// scalar total. Used for cumulative metrics such as energy density, where
// the abscissa is displacement rather than time.
func TrapezoidTotal(y, x []float64) float64 {
	total := 0.0
	n := len(y)
	if len(x) < n {
		n = len(x)
	}
	for i := 1; i < n; i++ {
		total += (y[i-1] + y[i]) * 0.5 * (x[i] - x[i-1])
	}
	return total
}
