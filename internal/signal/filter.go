// Package signal conditions crash-pulse time series: CFC-class zero-phase
// low-pass filtering, trapezoidal integration, baseline-bias estimation,
// impact-start detection and polarity normalisation.
//
// All functions return new slices; inputs are never mutated.
package signal

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// StandardGravity converts acceleration in G to m/s^2.
const StandardGravity = 9.80665

// FilterSpec configures the CFC low-pass filter for one channel class.
// One spec per role or sensor type; never ad hoc per-call parameters.
type FilterSpec struct {
	// CFC is the channel frequency class (SAE J211 style). CFC 60 and 180
	// carry their standard cutoffs; other classes use CFC x 1.667 Hz.
	CFC float64

	// Order sets the per-direction attenuation order, realised by cascading
	// identical 2-pole Butterworth sections (Order/2 of them). The cascade
	// steepens the rolloff but keeps the 2-pole pole placement; it is not a
	// true order-N Butterworth design. The filter runs forward and backward,
	// so the effective attenuation order is twice this.
	Order int
}

// CutoffHz returns the -3 dB cutoff frequency for the spec's CFC class.
func (s FilterSpec) CutoffHz() float64 {
	switch s.CFC {
	case 60:
		return 100.0
	case 180:
		return 300.0
	default:
		return s.CFC * 1.667
	}
}

// order returns the configured pass order, defaulting to 2 (the standard
// 2-pole Butterworth run twice).
func (s FilterSpec) order() int {
	if s.Order <= 0 {
		return 2
	}
	return s.Order
}

// padLen is the number of boundary-extension samples added at each end
// before filtering.
func (s FilterSpec) padLen() int {
	return 6 * s.order()
}

// InsufficientSamplesError reports a series too short for the filter's
// boundary-extension window.
type InsufficientSamplesError struct {
	Have int
	Need int
}

func (e *InsufficientSamplesError) Error() string {
	return fmt.Sprintf("insufficient samples: have %d, need at least %d", e.Have, e.Need)
}

// biquad holds second-order IIR coefficients in direct form I.
type biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
}

// butterworthLowPass designs a 2-pole Butterworth low-pass biquad via the
// bilinear transform. cutoff is clamped just below Nyquist so oversampled
// CFC classes stay stable.
func butterworthLowPass(cutoffHz, sampleRate float64) biquad {
	nyquist := sampleRate / 2
	if cutoffHz >= nyquist {
		cutoffHz = 0.99 * nyquist
	}
	k := math.Tan(math.Pi * cutoffHz / sampleRate)
	norm := 1 / (1 + math.Sqrt2*k + k*k)
	return biquad{
		b0: k * k * norm,
		b1: 2 * k * k * norm,
		b2: k * k * norm,
		a1: 2 * (k*k - 1) * norm,
		a2: (1 - math.Sqrt2*k + k*k) * norm,
	}
}

// apply runs the biquad over x in place. State is primed with the first
// sample so a constant series passes through unchanged.
func (f biquad) apply(x []float64) {
	x1, x2 := x[0], x[0]
	y1, y2 := x[0], x[0]
	for i, v := range x {
		y := f.b0*v + f.b1*x1 + f.b2*x2 - f.a1*y1 - f.a2*y2
		x2, x1 = x1, v
		y2, y1 = y1, y
		x[i] = y
	}
}

// Filter applies the spec's CFC low-pass filter to samples with zero phase:
// each cascaded 2-pole Butterworth section runs one forward pass and one
// backward pass. The output has the same length and sample rate as the
// input.
//
// Boundary policy: the series is extended at both ends by odd reflection
// (point mirroring about the end sample) for padLen samples, filtered, then
// trimmed back. The extension suppresses start-up transients without the
// distortion silent zero padding would put into boundary peaks.
func Filter(samples []float64, sampleRate float64, spec FilterSpec) ([]float64, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %g", sampleRate)
	}
	pad := spec.padLen()
	if len(samples) <= pad {
		return nil, &InsufficientSamplesError{Have: len(samples), Need: pad + 1}
	}

	ext := reflectPad(samples, pad)
	coeffs := butterworthLowPass(spec.CutoffHz(), sampleRate)

	for pass := 0; pass < spec.order()/2+spec.order()%2; pass++ {
		coeffs.apply(ext)
		floats.Reverse(ext)
		coeffs.apply(ext)
		floats.Reverse(ext)
	}

	out := make([]float64, len(samples))
	copy(out, ext[pad:len(ext)-pad])
	return out, nil
}

// reflectPad extends x by pad samples of odd reflection at each end:
// pre[i] = 2*x[0] - x[pad-i], post mirrored about the last sample.
func reflectPad(x []float64, pad int) []float64 {
	n := len(x)
	ext := make([]float64, n+2*pad)
	for i := 0; i < pad; i++ {
		ext[i] = 2*x[0] - x[pad-i]
	}
	copy(ext[pad:], x)
	for i := 0; i < pad; i++ {
		ext[pad+n+i] = 2*x[n-1] - x[n-2-i]
	}
	return ext
}
