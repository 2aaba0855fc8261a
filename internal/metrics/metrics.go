// Package metrics computes scalar performance indicators from classified,
// filtered and integrated crash-pulse channels: peaks and their timing,
// delta-V, dynamic crush, absorbed energy and the occupant load criterion.
//
// The engine reads a complete, immutable snapshot of a test's channels. Each
// metric names the role it needs; a missing or ambiguous role fails only the
// metrics that need it while the rest of the run still computes.
package metrics

import (
	"fmt"

	"github.com/crashlab-data/pulse.report/internal/channel"
)

// Stage selects which signal stage of a channel a metric reads.
type Stage string

const (
	StageRaw          Stage = "raw"
	StageFiltered     Stage = "filtered"
	StageVelocity     Stage = "velocity"
	StageDisplacement Stage = "displacement"
)

// Reduction names the scalar reduction applied to the selected stage.
type Reduction string

const (
	// ReducePeak is the maximum magnitude and its time.
	ReducePeak Reduction = "peak"
	// ReducePeakTime is the time of maximum magnitude.
	ReducePeakTime Reduction = "peak-time"
	// ReduceMin is the (signed) minimum value.
	ReduceMin Reduction = "min"
	// ReduceMax is the (signed) maximum value.
	ReduceMax Reduction = "max"
	// ReduceFinal is the last value of the stage.
	ReduceFinal Reduction = "final"
	// ReduceCumulative is the trapezoid integral of the stage over time.
	ReduceCumulative Reduction = "cumulative"
	// ReduceWindowAverage is the mean over the spec's time window.
	ReduceWindowAverage Reduction = "window-average"
	// ReducePercentile is the spec's percentile of the stage magnitudes.
	ReducePercentile Reduction = "percentile"
	// ReduceDeltaV is the maximum magnitude of velocity change from the
	// initial velocity.
	ReduceDeltaV Reduction = "delta-v"
	// ReduceCrush is the maximum displacement magnitude (dynamic crush).
	ReduceCrush Reduction = "crush"
	// ReduceSpecificEnergy is the absorbed energy per unit mass,
	// integral of |a| over displacement.
	ReduceSpecificEnergy Reduction = "specific-energy"
	// ReduceTotalEnergy is specific energy times the spec's vehicle mass.
	ReduceTotalEnergy Reduction = "total-energy"
	// ReduceOLC is the occupant load criterion in G.
	ReduceOLC Reduction = "olc"
)

// Spec describes one requested metric.
type Spec struct {
	// Name keys the metric in the result map.
	Name string
	// Role is the classified role whose channel the metric reads.
	Role string
	// Stage is the signal stage the reduction applies to.
	Stage Stage
	// Reduction is the scalar reduction.
	Reduction Reduction
	// WindowStart/WindowEnd bound the samples considered, in seconds on
	// the channel's time base. Nil means unbounded on that side.
	WindowStart *float64
	WindowEnd   *float64
	// Percentile (0..1) parameterises ReducePercentile.
	Percentile float64
	// VehicleMassKg parameterises ReduceTotalEnergy.
	VehicleMassKg float64
}

// Channel is the engine's read-only view of one processed channel. The
// pipeline assembles these after all per-channel work has finished.
type Channel struct {
	Code  string
	Roles []string
	Rank  channel.Rank
	// Valid is false when the channel was flagged bad upstream (sensor
	// failure notes, parse failure, filter failure). Invalid channels are
	// skipped during role resolution.
	Valid bool

	SampleRate float64
	// StartTime is the time of the first sample in seconds; crash records
	// commonly begin before T0, so it is often negative.
	StartTime float64

	// InitialVelocity is the velocity integration's initial condition in
	// m/s, used by delta-V and OLC.
	InitialVelocity float64

	Raw          []float64 // G
	Filtered     []float64 // G
	Velocity     []float64 // m/s
	Displacement []float64 // m
}

// timeAt returns the time of sample i in seconds.
func (c *Channel) timeAt(i int) float64 {
	return c.StartTime + float64(i)/c.SampleRate
}

// stage returns the series for the requested stage.
func (c *Channel) stage(s Stage) ([]float64, error) {
	switch s {
	case StageRaw:
		return c.Raw, nil
	case StageFiltered:
		return c.Filtered, nil
	case StageVelocity:
		return c.Velocity, nil
	case StageDisplacement:
		return c.Displacement, nil
	default:
		return nil, fmt.Errorf("unknown signal stage %q", s)
	}
}

// Snapshot is the complete set of processed channels for one test. It must
// be fully assembled before any metric resolves so that rank tie-breaks and
// missing-role detection are deterministic.
type Snapshot struct {
	TestID   string
	Channels []Channel
}

// Metric is one computed result.
type Metric struct {
	Name  string  `json:"name"`
	Role  string  `json:"role"`
	Code  string  `json:"channel_code"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
	// AtSeconds is the event time for time-of reductions, nil otherwise.
	AtSeconds *float64 `json:"at_seconds,omitempty"`
}

// MissingChannelError reports a metric whose required role has no resolvable
// channel in the snapshot. Fatal only to metrics needing that role.
type MissingChannelError struct {
	TestID string
	Metric string
	Role   string
}

func (e *MissingChannelError) Error() string {
	return fmt.Sprintf("test %s: metric %q: no channel classified for role %q", e.TestID, e.Metric, e.Role)
}

// AmbiguousChannelError reports a role resolving to several channels of the
// same rank with no valid tie-break.
type AmbiguousChannelError struct {
	TestID string
	Metric string
	Role   string
	Codes  []string
}

func (e *AmbiguousChannelError) Error() string {
	return fmt.Sprintf("test %s: metric %q: role %q matches %d channels of equal rank %v",
		e.TestID, e.Metric, e.Role, len(e.Codes), e.Codes)
}

// Compute evaluates every spec against the snapshot. Per-metric failures are
// collected, not fatal: the returned map holds every metric that resolved,
// and the error slice reports the ones that did not.
func Compute(snap *Snapshot, specs []Spec) (map[string]Metric, []error) {
	results := make(map[string]Metric, len(specs))
	var errs []error
	for _, spec := range specs {
		m, err := computeOne(snap, spec)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		results[spec.Name] = m
	}
	return results, errs
}

func computeOne(snap *Snapshot, spec Spec) (Metric, error) {
	ch, err := Resolve(snap, spec.Role, spec.Name)
	if err != nil {
		return Metric{}, err
	}
	m, err := reduce(ch, spec)
	if err != nil {
		return Metric{}, fmt.Errorf("test %s: metric %q on channel %s: %w",
			snap.TestID, spec.Name, ch.Code, err)
	}
	m.Name = spec.Name
	m.Role = spec.Role
	m.Code = ch.Code
	return m, nil
}
