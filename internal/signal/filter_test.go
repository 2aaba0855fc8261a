package signal

import (
	"errors"
	"math"
	"testing"
)

// halfSine builds a crash-pulse-shaped half sine of the given peak and
// duration, embedded in a longer quiet record.
func halfSine(peak float64, sampleRate, pulseSeconds, totalSeconds float64) []float64 {
	n := int(totalSeconds * sampleRate)
	pulseN := int(pulseSeconds * sampleRate)
	start := n / 4
	out := make([]float64, n)
	for i := 0; i < pulseN && start+i < n; i++ {
		out[start+i] = peak * math.Sin(math.Pi*float64(i)/float64(pulseN))
	}
	return out
}

func TestFilter_PreservesLength(t *testing.T) {
	in := halfSine(-40, 10000, 0.08, 0.3)
	out, err := Filter(in, 10000, FilterSpec{CFC: 60})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != len(in) {
		t.Errorf("output length = %d, want %d", len(out), len(in))
	}
}

func TestFilter_DoesNotMutateInput(t *testing.T) {
	in := halfSine(-40, 10000, 0.08, 0.3)
	saved := make([]float64, len(in))
	copy(saved, in)

	if _, err := Filter(in, 10000, FilterSpec{CFC: 60}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range in {
		if in[i] != saved[i] {
			t.Fatalf("input mutated at sample %d", i)
		}
	}
}

func TestFilter_PassesConstantSignal(t *testing.T) {
	in := make([]float64, 2000)
	for i := range in {
		in[i] = -7.5
	}
	out, err := Filter(in, 10000, FilterSpec{CFC: 60})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, v := range out {
		if math.Abs(v-(-7.5)) > 1e-6 {
			t.Fatalf("constant signal distorted at %d: got %g", i, v)
		}
	}
}

func TestFilter_AttenuatesHighFrequencyNoise(t *testing.T) {
	const fs = 10000.0
	clean := halfSine(-40, fs, 0.08, 0.3)
	noisy := make([]float64, len(clean))
	for i, v := range clean {
		// 2 kHz ringing far above the CFC 60 cutoff of 100 Hz.
		noisy[i] = v + 5*math.Sin(2*math.Pi*2000*float64(i)/fs)
	}

	out, err := Filter(noisy, fs, FilterSpec{CFC: 60})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var maxDev float64
	for i := range out {
		if dev := math.Abs(out[i] - clean[i]); dev > maxDev {
			maxDev = dev
		}
	}
	if maxDev > 2.0 {
		t.Errorf("max deviation from clean pulse = %.3f G, want under 2 G", maxDev)
	}
}

func TestFilter_ZeroPhasePeakTiming(t *testing.T) {
	const fs = 10000.0
	in := halfSine(-40, fs, 0.08, 0.3)
	out, err := Filter(in, fs, FilterSpec{CFC: 60})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	peakIn := argMinIndex(in)
	peakOut := argMinIndex(out)
	// Forward-backward filtering must not shift the pulse peak by more
	// than a couple of samples.
	if diff := peakIn - peakOut; diff > 3 || diff < -3 {
		t.Errorf("peak moved %d samples (in %d, out %d), want |shift| <= 3", diff, peakIn, peakOut)
	}
}

func TestFilter_RefilterIsStable(t *testing.T) {
	const fs = 10000.0
	in := halfSine(-40, fs, 0.08, 0.3)
	once, err := Filter(in, fs, FilterSpec{CFC: 60})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	twice, err := Filter(once, fs, FilterSpec{CFC: 60})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A deterministic low-pass must not grow new structure on refiltering:
	// same sign-change count, no amplitude growth.
	if got, want := signChanges(twice), signChanges(once); got > want {
		t.Errorf("refiltering added sign changes: %d > %d", got, want)
	}
	if maxAbs(twice) > maxAbs(once)+1e-9 {
		t.Errorf("refiltering grew amplitude: %.6f > %.6f", maxAbs(twice), maxAbs(once))
	}
}

func TestFilter_InsufficientSamples(t *testing.T) {
	_, err := Filter(make([]float64, 5), 10000, FilterSpec{CFC: 60})
	var short *InsufficientSamplesError
	if !errors.As(err, &short) {
		t.Fatalf("error = %v, want *InsufficientSamplesError", err)
	}
	if short.Have != 5 {
		t.Errorf("Have = %d, want 5", short.Have)
	}
}

func TestFilter_RejectsBadSampleRate(t *testing.T) {
	if _, err := Filter(make([]float64, 100), 0, FilterSpec{CFC: 60}); err == nil {
		t.Error("expected error for zero sample rate")
	}
}

func TestFilterSpec_CutoffClasses(t *testing.T) {
	cases := []struct {
		cfc  float64
		want float64
	}{
		{60, 100},
		{180, 300},
		{1000, 1667},
	}
	for _, tc := range cases {
		if got := (FilterSpec{CFC: tc.cfc}).CutoffHz(); got != tc.want {
			t.Errorf("CFC %.0f cutoff = %g, want %g", tc.cfc, got, tc.want)
		}
	}
}

func argMinIndex(x []float64) int {
	idx := 0
	for i, v := range x {
		if v < x[idx] {
			idx = i
		}
	}
	return idx
}

func signChanges(x []float64) int {
	const eps = 1e-9
	count := 0
	prev := 0.0
	for _, v := range x {
		if v > eps || v < -eps {
			if prev != 0 && (v > 0) != (prev > 0) {
				count++
			}
			prev = v
		}
	}
	return count
}

func maxAbs(x []float64) float64 {
	m := 0.0
	for _, v := range x {
		if a := math.Abs(v); a > m {
			m = a
		}
	}
	return m
}
