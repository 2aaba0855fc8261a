// Package config loads and validates the analysis configuration documents:
// the classification rule set, per-role filter specifications, initial
// conditions and the requested metrics. Documents are JSON or YAML; fields
// omitted from a document keep their defaults, so partial configs are safe.
//
// The pipeline treats a loaded config as read-only for the duration of a
// run; it may be shared across workers without locking.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/crashlab-data/pulse.report/internal/channel"
	"github.com/crashlab-data/pulse.report/internal/classify"
	"github.com/crashlab-data/pulse.report/internal/metrics"
	"github.com/crashlab-data/pulse.report/internal/signal"
)

// MatchDoc is the document form of a structural field matcher. Empty lists
// are wildcards.
type MatchDoc struct {
	Object     []string `json:"object,omitempty" yaml:"object,omitempty"`
	Location   []string `json:"location,omitempty" yaml:"location,omitempty"`
	Specific   []string `json:"specific,omitempty" yaml:"specific,omitempty"`
	SensorType []string `json:"sensor_type,omitempty" yaml:"sensor_type,omitempty"`
	Axis       []string `json:"axis,omitempty" yaml:"axis,omitempty"`
	Rank       []string `json:"rank,omitempty" yaml:"rank,omitempty"`
}

// RuleDoc is the document form of one classification rule: a role name plus
// a structural matcher, raw code prefixes, or both.
type RuleDoc struct {
	Role     string    `json:"role" yaml:"role"`
	Match    *MatchDoc `json:"match,omitempty" yaml:"match,omitempty"`
	Prefixes []string  `json:"prefixes,omitempty" yaml:"prefixes,omitempty"`
}

// FilterDoc is the document form of a FilterSpec, keyed by role or sensor
// type in the Filters map.
type FilterDoc struct {
	CFC   *float64 `json:"cfc,omitempty" yaml:"cfc,omitempty"`
	Order *int     `json:"order,omitempty" yaml:"order,omitempty"`
}

// MetricDoc is the document form of one requested metric.
type MetricDoc struct {
	Name          string   `json:"name" yaml:"name"`
	Role          string   `json:"role" yaml:"role"`
	Stage         string   `json:"stage,omitempty" yaml:"stage,omitempty"`
	Reduction     string   `json:"reduction" yaml:"reduction"`
	WindowStartS  *float64 `json:"window_start_s,omitempty" yaml:"window_start_s,omitempty"`
	WindowEndS    *float64 `json:"window_end_s,omitempty" yaml:"window_end_s,omitempty"`
	Percentile    float64  `json:"percentile,omitempty" yaml:"percentile,omitempty"`
	VehicleMassKg float64  `json:"vehicle_mass_kg,omitempty" yaml:"vehicle_mass_kg,omitempty"`
}

// PulseDoc tunes the pulse conditioning stage.
type PulseDoc struct {
	BiasWindowSeconds   *float64 `json:"bias_window_seconds,omitempty" yaml:"bias_window_seconds,omitempty"`
	BiasSearchRatio     *float64 `json:"bias_search_ratio,omitempty" yaml:"bias_search_ratio,omitempty"`
	MaxBiasG            *float64 `json:"max_bias_g,omitempty" yaml:"max_bias_g,omitempty"`
	AnchorG             *float64 `json:"anchor_g,omitempty" yaml:"anchor_g,omitempty"`
	ReleaseG            *float64 `json:"release_g,omitempty" yaml:"release_g,omitempty"`
	T0FallbackSeconds   *float64 `json:"t0_fallback_seconds,omitempty" yaml:"t0_fallback_seconds,omitempty"`
	NormalizePolarity   *bool    `json:"normalize_polarity,omitempty" yaml:"normalize_polarity,omitempty"`
	ClampVelocityAtStop *bool    `json:"clamp_velocity_at_stop,omitempty" yaml:"clamp_velocity_at_stop,omitempty"`
}

// AnalysisConfig is the root analysis configuration.
type AnalysisConfig struct {
	Rules []RuleDoc `json:"rules" yaml:"rules"`

	// Filters maps a role name or canonical sensor-type tag to its filter
	// spec; the "default" key covers everything else. One spec per channel
	// class, never per call.
	Filters map[string]FilterDoc `json:"filters,omitempty" yaml:"filters,omitempty"`

	// InitialVelocityKph supplies per-role velocity initial conditions in
	// km/h (measured impact speed). Roles absent from the map integrate
	// from rest, which is the stated configuration default.
	InitialVelocityKph map[string]float64 `json:"initial_velocity_kph,omitempty" yaml:"initial_velocity_kph,omitempty"`

	Metrics []MetricDoc `json:"metrics,omitempty" yaml:"metrics,omitempty"`

	Pulse *PulseDoc `json:"pulse,omitempty" yaml:"pulse,omitempty"`

	// Workers caps the per-channel worker pool; nil uses GOMAXPROCS.
	Workers *int `json:"workers,omitempty" yaml:"workers,omitempty"`
}

// Load reads an analysis config from a .json, .yaml or .yml file.
// The file is validated to ensure a known extension and a sane size.
func Load(path string) (*AnalysisConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &AnalysisConfig{}
	if ext == ".json" {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config document: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration values are usable.
func (c *AnalysisConfig) Validate() error {
	if len(c.Rules) == 0 {
		return fmt.Errorf("rule set is empty")
	}
	for i, r := range c.Rules {
		if r.Role == "" {
			return fmt.Errorf("rule %d has no role name", i)
		}
		if r.Match == nil && len(r.Prefixes) == 0 {
			return fmt.Errorf("rule %q has neither a field matcher nor prefixes", r.Role)
		}
		if _, err := r.rule(); err != nil {
			return err
		}
	}
	for key, f := range c.Filters {
		if f.CFC != nil && *f.CFC <= 0 {
			return fmt.Errorf("filter %q: cfc must be positive, got %g", key, *f.CFC)
		}
		if f.Order != nil && (*f.Order < 2 || *f.Order%2 != 0) {
			return fmt.Errorf("filter %q: order must be a positive even number, got %d", key, *f.Order)
		}
	}
	for i, m := range c.Metrics {
		if m.Name == "" || m.Role == "" || m.Reduction == "" {
			return fmt.Errorf("metric %d needs name, role and reduction", i)
		}
		if m.Percentile < 0 || m.Percentile > 1 {
			return fmt.Errorf("metric %q: percentile %g outside [0,1]", m.Name, m.Percentile)
		}
	}
	if c.Workers != nil && *c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", *c.Workers)
	}
	return nil
}

// ClassifierRules converts the rule documents to classifier rules.
func (c *AnalysisConfig) ClassifierRules() ([]classify.Rule, error) {
	rules := make([]classify.Rule, 0, len(c.Rules))
	for _, doc := range c.Rules {
		r, err := doc.rule()
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

func (d RuleDoc) rule() (classify.Rule, error) {
	r := classify.Rule{Role: d.Role, Prefixes: d.Prefixes}
	if d.Match == nil {
		return r, nil
	}
	m := &classify.FieldMatch{
		Location:   d.Match.Location,
		Specific:   d.Match.Specific,
		SensorType: d.Match.SensorType,
	}
	for _, o := range d.Match.Object {
		switch o {
		case "vehicle":
			m.Object = append(m.Object, channel.ObjectVehicle)
		case "barrier":
			m.Object = append(m.Object, channel.ObjectBarrier)
		default:
			return r, fmt.Errorf("rule %q: unknown object kind %q", d.Role, o)
		}
	}
	for _, a := range d.Match.Axis {
		switch a {
		case "X", "x":
			m.Axis = append(m.Axis, channel.AxisX)
		case "Y", "y":
			m.Axis = append(m.Axis, channel.AxisY)
		case "Z", "z":
			m.Axis = append(m.Axis, channel.AxisZ)
		default:
			return r, fmt.Errorf("rule %q: unknown axis %q", d.Role, a)
		}
	}
	for _, rank := range d.Match.Rank {
		switch rank {
		case "primary":
			m.Rank = append(m.Rank, channel.RankPrimary)
		case "redundant":
			m.Rank = append(m.Rank, channel.RankRedundant)
		default:
			return r, fmt.Errorf("rule %q: unknown rank %q", d.Role, rank)
		}
	}
	r.Match = m
	return r, nil
}

// FilterSpecFor picks the filter spec for a channel: the first classified
// role with an entry wins, then the canonical sensor-type tag, then the
// "default" entry, then the built-in CFC 60.
func (c *AnalysisConfig) FilterSpecFor(roles []string, sensorType string) signal.FilterSpec {
	for _, role := range roles {
		if doc, ok := c.Filters[role]; ok {
			return doc.spec()
		}
	}
	if doc, ok := c.Filters[sensorType]; ok {
		return doc.spec()
	}
	if doc, ok := c.Filters["default"]; ok {
		return doc.spec()
	}
	return signal.FilterSpec{CFC: 60, Order: 2}
}

func (d FilterDoc) spec() signal.FilterSpec {
	spec := signal.FilterSpec{CFC: 60, Order: 2}
	if d.CFC != nil {
		spec.CFC = *d.CFC
	}
	if d.Order != nil {
		spec.Order = *d.Order
	}
	return spec
}

// InitialVelocityMps returns the velocity initial condition in m/s for a
// channel with the given roles: the first role with a configured impact
// speed wins; otherwise zero (start at rest) per the documented default.
func (c *AnalysisConfig) InitialVelocityMps(roles []string) float64 {
	for _, role := range roles {
		if kph, ok := c.InitialVelocityKph[role]; ok {
			return kph / 3.6
		}
	}
	return 0
}

// MetricSpecs converts the metric documents to engine specs.
func (c *AnalysisConfig) MetricSpecs() []metrics.Spec {
	specs := make([]metrics.Spec, 0, len(c.Metrics))
	for _, doc := range c.Metrics {
		stage := metrics.Stage(doc.Stage)
		if doc.Stage == "" {
			stage = metrics.StageFiltered
		}
		specs = append(specs, metrics.Spec{
			Name:          doc.Name,
			Role:          doc.Role,
			Stage:         stage,
			Reduction:     metrics.Reduction(doc.Reduction),
			WindowStart:   doc.WindowStartS,
			WindowEnd:     doc.WindowEndS,
			Percentile:    doc.Percentile,
			VehicleMassKg: doc.VehicleMassKg,
		})
	}
	return specs
}

// Pulse conditioning getters: documented defaults from the reference
// conditioning procedure.

func (c *AnalysisConfig) GetBiasWindowSeconds() float64 {
	if c.Pulse != nil && c.Pulse.BiasWindowSeconds != nil {
		return *c.Pulse.BiasWindowSeconds
	}
	return 0.010
}

func (c *AnalysisConfig) GetBiasSearchRatio() float64 {
	if c.Pulse != nil && c.Pulse.BiasSearchRatio != nil {
		return *c.Pulse.BiasSearchRatio
	}
	return 0.2
}

func (c *AnalysisConfig) GetMaxBiasG() float64 {
	if c.Pulse != nil && c.Pulse.MaxBiasG != nil {
		return *c.Pulse.MaxBiasG
	}
	return 3.0
}

func (c *AnalysisConfig) GetAnchorG() float64 {
	if c.Pulse != nil && c.Pulse.AnchorG != nil {
		return *c.Pulse.AnchorG
	}
	return -5.0
}

func (c *AnalysisConfig) GetReleaseG() float64 {
	if c.Pulse != nil && c.Pulse.ReleaseG != nil {
		return *c.Pulse.ReleaseG
	}
	return -0.5
}

func (c *AnalysisConfig) GetT0FallbackSeconds() float64 {
	if c.Pulse != nil && c.Pulse.T0FallbackSeconds != nil {
		return *c.Pulse.T0FallbackSeconds
	}
	return 0.020
}

func (c *AnalysisConfig) GetNormalizePolarity() bool {
	if c.Pulse != nil && c.Pulse.NormalizePolarity != nil {
		return *c.Pulse.NormalizePolarity
	}
	return true
}

func (c *AnalysisConfig) GetClampVelocityAtStop() bool {
	if c.Pulse != nil && c.Pulse.ClampVelocityAtStop != nil {
		return *c.Pulse.ClampVelocityAtStop
	}
	return true
}

// GetWorkers returns the configured worker count, or fallback when unset.
func (c *AnalysisConfig) GetWorkers(fallback int) int {
	if c.Workers != nil {
		return *c.Workers
	}
	if fallback < 1 {
		return 1
	}
	return fallback
}
