package metrics

import (
	"fmt"

	"github.com/crashlab-data/pulse.report/internal/units"
)

// OLC displacement thresholds: the virtual occupant travels freely for 65 mm
// relative to the vehicle, then decelerates at the constant rate that brings
// it to the vehicle's velocity after 300 mm of total relative travel.
const (
	olcFreeTravelM  = 0.065
	olcTotalTravelM = 0.300
)

// occupantLoadCriterion computes the OLC in G from the vehicle velocity
// series. It solves for the pair (t2, a) satisfying
//
//	v_occ(t2) = v0 - a*(t2 - t1)    matches v_veh(t2)
//	s_occ(t2) - s_veh(t2) = 0.300 m
//
// where t1 is the end of the occupant's free flight (65 mm relative travel).
// The pair is found by scanning the sampled record for the velocity-match
// sign change and linearly interpolating, which is deterministic and exact
// to the sampling grid.
func occupantLoadCriterion(ch *Channel) (Metric, error) {
	v0 := ch.InitialVelocity
	if v0 <= 0 {
		return Metric{}, fmt.Errorf("OLC needs a known positive impact velocity, got %g m/s", v0)
	}
	v := ch.Velocity
	if len(v) < 2 {
		return Metric{}, fmt.Errorf("OLC needs a velocity series")
	}

	dt := 1.0 / ch.SampleRate

	// Vehicle displacement from record start. The occupant flies free at
	// v0, so relative displacement is v0*t - s_veh; before T0 both move at
	// v0 and it stays zero.
	sVeh := make([]float64, len(v))
	for i := 1; i < len(v); i++ {
		sVeh[i] = sVeh[i-1] + (v[i-1]+v[i])*0.5*dt
	}

	idx1 := -1
	for i := range v {
		if v0*float64(i)*dt-sVeh[i] >= olcFreeTravelM {
			idx1 = i
			break
		}
	}
	if idx1 < 0 {
		return Metric{}, fmt.Errorf("OLC: relative displacement never reaches %.0f mm", olcFreeTravelM*1000)
	}
	t1 := float64(idx1) * dt

	// For each candidate t2, the 300 mm constraint fixes the deceleration:
	//   a = 2*(v0*t2 - s_veh(t2) - 0.300) / (t2 - t1)^2
	// and the residual is the occupant/vehicle velocity mismatch.
	residualAt := func(j int) (a, res float64) {
		t2 := float64(j) * dt
		lead := t2 - t1
		a = 2 * (v0*t2 - sVeh[j] - olcTotalTravelM) / (lead * lead)
		res = v[j] - (v0 - a*lead)
		return a, res
	}

	prevA, prevRes := 0.0, 0.0
	havePrev := false
	for j := idx1 + 1; j < len(v); j++ {
		a, res := residualAt(j)
		if a <= 0 {
			// The occupant has not yet covered 300 mm of relative
			// travel; no physical solution this early.
			havePrev = false
			continue
		}
		if havePrev && (res == 0 || (res > 0) != (prevRes > 0)) {
			// Sign change between j-1 and j: interpolate.
			frac := 0.0
			if res != prevRes {
				frac = prevRes / (prevRes - res)
			}
			olcMps2 := prevA + frac*(a-prevA)
			at := ch.StartTime + (float64(j-1)+frac)*dt
			return Metric{Value: units.Mps2ToG(olcMps2), Unit: "g", AtSeconds: &at}, nil
		}
		prevA, prevRes = a, res
		havePrev = true
	}

	return Metric{}, fmt.Errorf("OLC: no velocity match within the record")
}
