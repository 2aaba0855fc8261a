package metrics

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/crashlab-data/pulse.report/internal/signal"
	"github.com/crashlab-data/pulse.report/internal/units"
)

// stageUnit maps a stage to the unit its values carry.
func stageUnit(s Stage) string {
	switch s {
	case StageVelocity:
		return "m/s"
	case StageDisplacement:
		return "m"
	default:
		return "g"
	}
}

func reduce(ch *Channel, spec Spec) (Metric, error) {
	// Composite reductions read fixed stages; an unset stage means filtered.
	stage := spec.Stage
	if stage == "" {
		stage = StageFiltered
	}
	series, err := ch.stage(stage)
	if err != nil {
		return Metric{}, err
	}
	if len(series) == 0 {
		return Metric{}, fmt.Errorf("stage %q has no samples", stage)
	}

	lo, hi := windowBounds(ch, len(series), spec)
	if lo >= hi {
		return Metric{}, fmt.Errorf("time window [%v, %v) selects no samples", spec.WindowStart, spec.WindowEnd)
	}
	win := series[lo:hi]

	switch spec.Reduction {
	case ReducePeak:
		idx := peakIndex(win)
		at := ch.timeAt(lo + idx)
		return Metric{Value: math.Abs(win[idx]), Unit: stageUnit(stage), AtSeconds: &at}, nil

	case ReducePeakTime:
		idx := peakIndex(win)
		at := ch.timeAt(lo + idx)
		return Metric{Value: at, Unit: "s", AtSeconds: &at}, nil

	case ReduceMin:
		idx := 0
		for i, v := range win {
			if v < win[idx] {
				idx = i
			}
		}
		at := ch.timeAt(lo + idx)
		return Metric{Value: win[idx], Unit: stageUnit(stage), AtSeconds: &at}, nil

	case ReduceMax:
		idx := 0
		for i, v := range win {
			if v > win[idx] {
				idx = i
			}
		}
		at := ch.timeAt(lo + idx)
		return Metric{Value: win[idx], Unit: stageUnit(stage), AtSeconds: &at}, nil

	case ReduceFinal:
		return Metric{Value: win[len(win)-1], Unit: stageUnit(stage)}, nil

	case ReduceCumulative:
		dt := 1.0 / ch.SampleRate
		total := 0.0
		for i := 1; i < len(win); i++ {
			total += (win[i-1] + win[i]) * 0.5 * dt
		}
		return Metric{Value: total, Unit: stageUnit(stage) + "*s"}, nil

	case ReduceWindowAverage:
		return Metric{Value: stat.Mean(win, nil), Unit: stageUnit(stage)}, nil

	case ReducePercentile:
		if spec.Percentile < 0 || spec.Percentile > 1 {
			return Metric{}, fmt.Errorf("percentile %g outside [0,1]", spec.Percentile)
		}
		mags := make([]float64, len(win))
		for i, v := range win {
			mags[i] = math.Abs(v)
		}
		sort.Float64s(mags)
		return Metric{Value: stat.Quantile(spec.Percentile, stat.Empirical, mags, nil), Unit: stageUnit(stage)}, nil

	case ReduceDeltaV:
		if spec.Stage != StageVelocity {
			return Metric{}, fmt.Errorf("delta-v reads the velocity stage, got %q", spec.Stage)
		}
		best := 0.0
		bestIdx := 0
		for i, v := range win {
			if d := math.Abs(v - ch.InitialVelocity); d > best {
				best = d
				bestIdx = i
			}
		}
		at := ch.timeAt(lo + bestIdx)
		return Metric{Value: best, Unit: "m/s", AtSeconds: &at}, nil

	case ReduceCrush:
		return maxDynamicCrush(ch, lo, hi)

	case ReduceSpecificEnergy:
		return specificEnergy(ch, lo, hi, 0)

	case ReduceTotalEnergy:
		if spec.VehicleMassKg <= 0 {
			return Metric{}, fmt.Errorf("total energy needs a positive vehicle mass, got %g", spec.VehicleMassKg)
		}
		return specificEnergy(ch, lo, hi, spec.VehicleMassKg)

	case ReduceOLC:
		return occupantLoadCriterion(ch)

	default:
		return Metric{}, fmt.Errorf("unknown reduction %q", spec.Reduction)
	}
}

// windowBounds converts the spec's time window into sample bounds.
func windowBounds(ch *Channel, n int, spec Spec) (int, int) {
	lo, hi := 0, n
	if spec.WindowStart != nil {
		lo = int(math.Ceil((*spec.WindowStart - ch.StartTime) * ch.SampleRate))
		if lo < 0 {
			lo = 0
		}
	}
	if spec.WindowEnd != nil {
		hi = int((*spec.WindowEnd-ch.StartTime)*ch.SampleRate) + 1
		if hi > n {
			hi = n
		}
	}
	if lo > n {
		lo = n
	}
	if hi < 0 {
		hi = 0
	}
	return lo, hi
}

func peakIndex(x []float64) int {
	idx := 0
	for i, v := range x {
		if math.Abs(v) > math.Abs(x[idx]) {
			idx = i
		}
	}
	return idx
}

// maxDynamicCrush is the maximum displacement magnitude and its time.
func maxDynamicCrush(ch *Channel, lo, hi int) (Metric, error) {
	if len(ch.Displacement) == 0 {
		return Metric{}, fmt.Errorf("no displacement series")
	}
	if hi > len(ch.Displacement) {
		hi = len(ch.Displacement)
	}
	idx := lo
	for i := lo; i < hi; i++ {
		if math.Abs(ch.Displacement[i]) > math.Abs(ch.Displacement[idx]) {
			idx = i
		}
	}
	at := ch.timeAt(idx)
	return Metric{Value: math.Abs(ch.Displacement[idx]), Unit: "m", AtSeconds: &at}, nil
}

// specificEnergy integrates |a| over displacement: the energy absorbed per
// unit mass in J/kg. With a mass it scales to total absorbed energy in kJ.
func specificEnergy(ch *Channel, lo, hi int, massKg float64) (Metric, error) {
	if len(ch.Filtered) == 0 || len(ch.Displacement) == 0 {
		return Metric{}, fmt.Errorf("energy needs filtered acceleration and displacement series")
	}
	n := len(ch.Filtered)
	if len(ch.Displacement) < n {
		n = len(ch.Displacement)
	}
	if hi > n {
		hi = n
	}
	if lo >= hi {
		return Metric{}, fmt.Errorf("energy window selects no samples")
	}

	absAccel := make([]float64, hi-lo)
	for i := range absAccel {
		absAccel[i] = math.Abs(units.GToMps2(ch.Filtered[lo+i]))
	}
	specific := signal.TrapezoidTotal(absAccel, ch.Displacement[lo:hi])
	// Crush displacement may run negative with the deceleration sign
	// convention; energy is reported as a magnitude.
	specific = math.Abs(specific)

	if massKg > 0 {
		return Metric{Value: specific * massKg / 1000.0, Unit: "kJ"}, nil
	}
	return Metric{Value: specific, Unit: "J/kg"}, nil
}
