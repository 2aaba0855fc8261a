package signal

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateBias_FlatOffsetRecovered(t *testing.T) {
	const fs = 10000.0
	// 0.3 s record: quiet 0.5 G offset, crash pulse in the middle.
	rec := halfSine(-40, fs, 0.08, 0.3)
	for i := range rec {
		rec[i] += 0.5
	}

	bias := EstimateBias(rec, fs, 0.010, 0.2, 3.0)
	assert.InDelta(t, 0.5, bias, 0.05, "bias should recover the quiet offset")
}

func TestEstimateBias_ImplausibleValueDiscarded(t *testing.T) {
	const fs = 10000.0
	rec := make([]float64, 3000)
	for i := range rec {
		rec[i] = 8.0 // a sensor stuck well past any plausible bias
	}
	bias := EstimateBias(rec, fs, 0.010, 0.2, 3.0)
	assert.Equal(t, 0.0, bias)
}

func TestFindImpactStart_AnchorAndBacktrack(t *testing.T) {
	const fs = 10000.0
	rec := make([]float64, 3000)
	// Pulse onset at sample 1000: ramps down through the release threshold
	// and past the anchor.
	for i := 1000; i < 1400; i++ {
		rec[i] = -0.1 * float64(i-1000) // hits -5 G at sample 1050
	}
	idx := FindImpactStart(rec, fs, -5.0, -0.5, 0.020)
	// Backtrack from the first anchor crossing to the last quiet sample.
	assert.InDelta(t, 1000, idx, 8)
}

func TestFindImpactStart_SoftImpactFallsBackToRelease(t *testing.T) {
	const fs = 10000.0
	rec := make([]float64, 2000)
	for i := 800; i < 1200; i++ {
		rec[i] = -1.0 // below release, never reaches the -5 G anchor
	}
	idx := FindImpactStart(rec, fs, -5.0, -0.5, 0.020)
	assert.Equal(t, 800, idx)
}

func TestFindImpactStart_BacktrackExhaustedUsesFixedLead(t *testing.T) {
	const fs = 10000.0
	// The whole record reads below release: likely a bad bias, so T0 is
	// pinned a fixed 20 ms before the anchor instead of sample zero.
	rec := make([]float64, 2000)
	for i := range rec {
		rec[i] = -1.0
	}
	for i := 600; i < 700; i++ {
		rec[i] = -10.0
	}
	idx := FindImpactStart(rec, fs, -5.0, -0.5, 0.020)
	assert.Equal(t, 600-200, idx)
}

func TestFindImpactStart_QuietRecord(t *testing.T) {
	rec := make([]float64, 500)
	assert.Equal(t, 0, FindImpactStart(rec, 10000, -5.0, -0.5, 0.020))
}

func TestNormalizePolarity(t *testing.T) {
	inverted := []float64{0, 10, 30, 10, 0}
	out, flipped := NormalizePolarity(inverted)
	assert.True(t, flipped)
	assert.Equal(t, []float64{0, -10, -30, -10, 0}, out)

	correct := []float64{0, -10, -30, -10, 0}
	out, flipped = NormalizePolarity(correct)
	assert.False(t, flipped)
	assert.Equal(t, correct, out)
	// Input is never mutated.
	correct[0] = 99
	assert.Equal(t, 0.0, out[0])
}

func TestClampAfterStop(t *testing.T) {
	v := []float64{15, 10, 5, -0.5, -1, -2}
	stop := ClampAfterStop(v, 0)
	assert.Equal(t, 3, stop)
	assert.Equal(t, []float64{15, 10, 5, -0.5, 0, 0}, v)
}

func TestClampAfterStop_NeverStops(t *testing.T) {
	v := []float64{15, 14, 13}
	stop := ClampAfterStop(v, 0)
	assert.Equal(t, 2, stop)
	assert.Equal(t, []float64{15, 14, 13}, v)
}

func TestMedian_OddAndEven(t *testing.T) {
	if got := median([]float64{3, 1, 2}); math.Abs(got-2) > 1e-12 {
		t.Errorf("median odd = %g, want 2", got)
	}
	if got := median(nil); got != 0 {
		t.Errorf("median nil = %g, want 0", got)
	}
}
