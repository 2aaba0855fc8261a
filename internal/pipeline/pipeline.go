// Package pipeline orchestrates a crash-test analysis run: it parses and
// classifies every raw channel, conditions and filters the pulse, integrates
// acceleration to velocity and displacement, and finally computes the
// requested metrics over the completed snapshot.
//
// This package is the composition root: it imports the stage packages
// (channel, classify, signal, metrics) and none of them import it. Channels
// are independent work items processed by a bounded worker pool with no
// shared mutable state; the metrics engine only runs once every channel has
// settled, so rank tie-breaks and missing-role detection see a complete,
// immutable snapshot.
package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"

	"github.com/crashlab-data/pulse.report/internal/channel"
	"github.com/crashlab-data/pulse.report/internal/classify"
	"github.com/crashlab-data/pulse.report/internal/config"
	"github.com/crashlab-data/pulse.report/internal/metrics"
	"github.com/crashlab-data/pulse.report/internal/monitoring"
	"github.com/crashlab-data/pulse.report/internal/signal"
	"github.com/crashlab-data/pulse.report/internal/units"
)

// RawChannel is one recorded signal as supplied by the ingestion
// collaborator. The pipeline only reads it.
type RawChannel struct {
	// Code is the 16-character channel code (legacy spellings may be
	// shorter; they classify by raw prefix only).
	Code string
	// SampleRate in Hz.
	SampleRate float64
	// StartTime is the time of the first sample in seconds relative to T0;
	// crash records usually lead the impact, so it is often negative.
	StartTime float64
	// Samples are accelerations in G (or forces for load channels), in
	// recording order.
	Samples []float64
	// Invalid marks a channel flagged bad by upstream metadata (sensor
	// failure notes). Invalid channels are processed for audit but never
	// resolve a metric role.
	Invalid bool
}

// Test is one crash test's worth of raw channels plus the metadata the
// analysis needs.
type Test struct {
	ID             string
	CrashType      string
	ImpactAngleDeg float64
	Channels       []RawChannel
}

// ChannelRecord is the per-channel outcome, kept for every input channel so
// ingestion and classification failures stay distinguishable downstream.
type ChannelRecord struct {
	Code       string
	SampleRate float64
	StartTime  float64

	// Parsed is nil when the code failed the grammar; Err then holds the
	// *channel.MalformedCodeError. Raw-prefix classification still applies.
	Parsed *channel.Parsed
	Roles  []string
	// Unknowns lists unrecognised field spellings for audit.
	Unknowns []*channel.UnknownFieldSpelling

	Valid    bool
	Inverted bool
	BiasG    float64
	// ImpactStartIndex is the detected T0 sample.
	ImpactStartIndex int
	// InitialVelocity is the integration initial condition in m/s.
	InitialVelocity float64

	Raw          []float64
	Filtered     []float64 // G
	Velocity     []float64 // m/s
	Displacement []float64 // m

	// Err is the first per-channel failure; the record survives for audit.
	Err error
}

// Result is one test's complete analysis output.
type Result struct {
	RunID    string
	TestID   string
	Category Category
	Channels []ChannelRecord
	Metrics  map[string]metrics.Metric
	// MetricErrors collects the per-metric failures (missing or ambiguous
	// roles); they never abort the run.
	MetricErrors []error
}

// Run analyses one test under the supplied configuration. Per-channel
// failures are isolated into their records; Run itself fails only on an
// unusable configuration or a cancelled context.
func Run(ctx context.Context, test Test, cfg *config.AnalysisConfig) (*Result, error) {
	rules, err := cfg.ClassifierRules()
	if err != nil {
		return nil, fmt.Errorf("test %s: %w", test.ID, err)
	}

	res := &Result{
		RunID:    uuid.NewString(),
		TestID:   test.ID,
		Category: Categorize(test.CrashType, test.ImpactAngleDeg),
		Channels: make([]ChannelRecord, len(test.Channels)),
	}

	workers := cfg.GetWorkers(runtime.GOMAXPROCS(0))
	if workers > len(test.Channels) && len(test.Channels) > 0 {
		workers = len(test.Channels)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				res.Channels[i] = processChannel(test.Channels[i], rules, cfg)
			}
		}()
	}

	cancelled := false
	for i := range test.Channels {
		// The abort signal is checked between work items; there is no
		// blocking I/O inside them.
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		select {
		case <-ctx.Done():
			cancelled = true
		case jobs <- i:
		}
		if cancelled {
			break
		}
	}
	close(jobs)
	wg.Wait()

	if cancelled {
		return nil, fmt.Errorf("test %s: %w", test.ID, ctx.Err())
	}

	snap := snapshot(test.ID, res.Channels)
	res.Metrics, res.MetricErrors = metrics.Compute(snap, cfg.MetricSpecs())
	for _, merr := range res.MetricErrors {
		monitoring.Logf("test %s: %v", test.ID, merr)
	}
	return res, nil
}

// processChannel runs the full per-channel path: grammar, classification,
// conditioning, filtering and integration. Failures stop that channel's
// processing and are recorded, never propagated.
func processChannel(raw RawChannel, rules []classify.Rule, cfg *config.AnalysisConfig) ChannelRecord {
	rec := ChannelRecord{
		Code:       raw.Code,
		SampleRate: raw.SampleRate,
		StartTime:  raw.StartTime,
		Raw:        raw.Samples,
		Valid:      !raw.Invalid,
	}

	parsed, err := channel.Parse(raw.Code)
	if err != nil {
		rec.Err = err
		rec.Valid = false
		monitoring.Logf("channel %s: %v", raw.Code, err)
	} else {
		rec.Parsed = &parsed
		rec.Unknowns = channel.UnknownSpellings(raw.Code, parsed)
		for _, u := range rec.Unknowns {
			monitoring.Debugf("%v", u)
		}
	}

	// Raw-prefix rules still classify codes that failed the grammar.
	rec.Roles = classify.Apply(raw.Code, rec.Parsed, rules)

	if rec.Err != nil {
		return rec
	}

	sensorType := ""
	if rec.Parsed != nil {
		sensorType = rec.Parsed.SensorType.Canonical
	}
	spec := cfg.FilterSpecFor(rec.Roles, sensorType)

	filtered, err := signal.Filter(raw.Samples, raw.SampleRate, spec)
	if err != nil {
		rec.Err = fmt.Errorf("channel %s: %w", raw.Code, err)
		rec.Valid = false
		monitoring.Logf("%v", rec.Err)
		return rec
	}

	rec.BiasG = signal.EstimateBias(filtered, raw.SampleRate,
		cfg.GetBiasWindowSeconds(), cfg.GetBiasSearchRatio(), cfg.GetMaxBiasG())
	floats.AddConst(-rec.BiasG, filtered)

	if cfg.GetNormalizePolarity() {
		filtered, rec.Inverted = signal.NormalizePolarity(filtered)
	}

	rec.ImpactStartIndex = signal.FindImpactStart(filtered, raw.SampleRate,
		cfg.GetAnchorG(), cfg.GetReleaseG(), cfg.GetT0FallbackSeconds())
	// Everything before T0 is pre-impact noise; it must not leak into the
	// integrals.
	for i := 0; i < rec.ImpactStartIndex; i++ {
		filtered[i] = 0
	}
	rec.Filtered = filtered

	accelMps2 := make([]float64, len(filtered))
	for i, g := range filtered {
		accelMps2[i] = units.GToMps2(g)
	}

	rec.InitialVelocity = cfg.InitialVelocityMps(rec.Roles)
	velocity, err := signal.Integrate(accelMps2, raw.SampleRate, rec.InitialVelocity)
	if err != nil {
		rec.Err = fmt.Errorf("channel %s: %w", raw.Code, err)
		rec.Valid = false
		return rec
	}
	if cfg.GetClampVelocityAtStop() && rec.InitialVelocity > 0 {
		signal.ClampAfterStop(velocity, rec.ImpactStartIndex)
	}
	rec.Velocity = velocity

	// Displacement measures travel from impact, not from record start: the
	// lead-in (where velocity sits at the impact speed) would otherwise bank
	// free travel into the dynamic-crush reading. The series stays zero
	// through T0 and integrates velocity only from there.
	displacement := make([]float64, len(velocity))
	if rec.ImpactStartIndex < len(velocity)-1 {
		travel, err := signal.Integrate(velocity[rec.ImpactStartIndex:], raw.SampleRate, 0)
		if err != nil {
			rec.Err = fmt.Errorf("channel %s: %w", raw.Code, err)
			rec.Valid = false
			return rec
		}
		copy(displacement[rec.ImpactStartIndex:], travel)
	}
	rec.Displacement = displacement

	return rec
}

// snapshot assembles the metrics engine's immutable view once all channel
// work has finished.
func snapshot(testID string, records []ChannelRecord) *metrics.Snapshot {
	snap := &metrics.Snapshot{TestID: testID}
	for i := range records {
		rec := &records[i]
		rank := channel.RankUnknown
		if rec.Parsed != nil {
			rank = rec.Parsed.Rank
		}
		snap.Channels = append(snap.Channels, metrics.Channel{
			Code:            rec.Code,
			Roles:           rec.Roles,
			Rank:            rank,
			Valid:           rec.Valid && rec.Err == nil,
			SampleRate:      rec.SampleRate,
			StartTime:       rec.StartTime,
			InitialVelocity: rec.InitialVelocity,
			Raw:             rec.Raw,
			Filtered:        rec.Filtered,
			Velocity:        rec.Velocity,
			Displacement:    rec.Displacement,
		})
	}
	return snap
}
