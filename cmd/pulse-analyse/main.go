// Package main provides the crash-pulse analysis tool. It reads a CSV
// channel dump and an analysis configuration, runs the full pipeline
// (classification, filtering, integration, metrics) and reports the results
// as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/crashlab-data/pulse.report/internal/config"
	"github.com/crashlab-data/pulse.report/internal/metrics"
	"github.com/crashlab-data/pulse.report/internal/monitoring"
	"github.com/crashlab-data/pulse.report/internal/pipeline"
	"github.com/crashlab-data/pulse.report/internal/units"
	"github.com/crashlab-data/pulse.report/internal/version"
)

// Config holds the command-line configuration for one analysis run.
type Config struct {
	CSVFile     string
	ConfigFile  string
	TestID      string
	CrashType   string
	ImpactAngle float64
	Invalid     string
	OutputJSON  string
	SpeedUnits  string
	Verbose     bool
	ShowVersion bool
}

// Report is the JSON document written for one analysed test.
type Report struct {
	RunID    string           `json:"run_id"`
	TestID   string           `json:"test_id"`
	Category string           `json:"category"`
	Channels []ChannelSummary `json:"channels"`
	Metrics  []metrics.Metric `json:"metrics"`
	Errors   []string         `json:"errors,omitempty"`
}

// ChannelSummary is the per-channel audit record in the report.
type ChannelSummary struct {
	Code            string   `json:"code"`
	Roles           []string `json:"roles,omitempty"`
	Valid           bool     `json:"valid"`
	Inverted        bool     `json:"inverted,omitempty"`
	BiasG           float64  `json:"bias_g"`
	ImpactStartSecs float64  `json:"impact_start_secs"`
	Error           string   `json:"error,omitempty"`
}

func main() {
	cfg := parseFlags()

	if cfg.ShowVersion {
		fmt.Printf("pulse-analyse %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	if cfg.CSVFile == "" {
		log.Fatal("channel CSV file is required (-csv)")
	}
	if cfg.ConfigFile == "" {
		log.Fatal("analysis configuration is required (-config)")
	}
	if !units.IsValidSpeedUnit(cfg.SpeedUnits) {
		log.Fatalf("unknown speed units %q (valid: %v)", cfg.SpeedUnits, units.ValidSpeedUnits)
	}

	report, err := run(cfg)
	if err != nil {
		log.Fatalf("Analysis failed: %v", err)
	}

	printReport(report, cfg.SpeedUnits)

	if cfg.OutputJSON != "" {
		if err := exportJSON(report, cfg.OutputJSON); err != nil {
			log.Fatalf("Failed to export JSON: %v", err)
		}
		log.Printf("Results exported to: %s", cfg.OutputJSON)
	}
}

func parseFlags() Config {
	cfg := Config{}

	flag.StringVar(&cfg.CSVFile, "csv", "", "Path to the channel dump CSV (time column plus one column per channel code)")
	flag.StringVar(&cfg.ConfigFile, "config", "", "Path to the analysis configuration (JSON or YAML)")
	flag.StringVar(&cfg.TestID, "test", "", "Test identifier for the report")
	flag.StringVar(&cfg.CrashType, "crash-type", "", "Crash type description (e.g. \"VEHICLE INTO BARRIER\")")
	flag.Float64Var(&cfg.ImpactAngle, "angle", 0, "Impact angle in degrees")
	flag.StringVar(&cfg.Invalid, "invalid", "", "Comma-separated channel codes flagged bad by upstream metadata")
	flag.StringVar(&cfg.OutputJSON, "json", "", "Output JSON path (e.g. results.json)")
	flag.StringVar(&cfg.SpeedUnits, "speed-units", units.MPS, "Speed units for the printed summary: mps, mph, kmph or kph")
	flag.BoolVar(&cfg.Verbose, "verbose", false, "Enable verbose logging")
	flag.BoolVar(&cfg.ShowVersion, "version", false, "Print version information and exit")

	flag.Parse()

	return cfg
}

func run(cfg Config) (*Report, error) {
	analysisCfg, err := config.Load(cfg.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	monitoring.SetDebug(cfg.Verbose)

	channels, err := loadChannelsCSV(cfg.CSVFile, parseInvalidList(cfg.Invalid))
	if err != nil {
		return nil, fmt.Errorf("load channels: %w", err)
	}
	if cfg.Verbose {
		log.Printf("Loaded %d channels from %s", len(channels), cfg.CSVFile)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := pipeline.Run(ctx, pipeline.Test{
		ID:             cfg.TestID,
		CrashType:      cfg.CrashType,
		ImpactAngleDeg: cfg.ImpactAngle,
		Channels:       channels,
	}, analysisCfg)
	if err != nil {
		return nil, err
	}

	return buildReport(res), nil
}

func buildReport(res *pipeline.Result) *Report {
	report := &Report{
		RunID:    res.RunID,
		TestID:   res.TestID,
		Category: string(res.Category),
	}
	for i := range res.Channels {
		rec := &res.Channels[i]
		summary := ChannelSummary{
			Code:     rec.Code,
			Roles:    rec.Roles,
			Valid:    rec.Valid && rec.Err == nil,
			Inverted: rec.Inverted,
			BiasG:    rec.BiasG,
		}
		if rec.SampleRate > 0 {
			summary.ImpactStartSecs = rec.StartTime + float64(rec.ImpactStartIndex)/rec.SampleRate
		}
		if rec.Err != nil {
			summary.Error = rec.Err.Error()
		}
		report.Channels = append(report.Channels, summary)
	}
	for _, m := range res.Metrics {
		report.Metrics = append(report.Metrics, m)
	}
	sort.Slice(report.Metrics, func(i, j int) bool {
		return report.Metrics[i].Name < report.Metrics[j].Name
	})
	for _, merr := range res.MetricErrors {
		report.Errors = append(report.Errors, merr.Error())
	}
	return report
}

func printReport(report *Report, speedUnits string) {
	fmt.Println("\n=== Crash Pulse Analysis ===")
	fmt.Printf("Run: %s\n", report.RunID)
	fmt.Printf("Test: %s\n", report.TestID)
	fmt.Printf("Category: %s\n", report.Category)

	fmt.Println("\n--- Channels ---")
	for _, ch := range report.Channels {
		status := "ok"
		if !ch.Valid {
			status = "invalid"
		}
		fmt.Printf("%s [%s] roles=%v bias=%.3fg t0=%.4fs\n", ch.Code, status, ch.Roles, ch.BiasG, ch.ImpactStartSecs)
		if ch.Error != "" {
			fmt.Printf("  error: %s\n", ch.Error)
		}
	}

	fmt.Println("\n--- Metrics ---")
	for _, m := range report.Metrics {
		value, unit := m.Value, m.Unit
		if unit == "m/s" && speedUnits != units.MPS {
			value = units.ConvertSpeed(value, speedUnits)
			unit = speedUnits
		}
		if m.AtSeconds != nil {
			fmt.Printf("%s = %.4f %s (at %.4fs, channel %s)\n", m.Name, value, unit, *m.AtSeconds, m.Code)
		} else {
			fmt.Printf("%s = %.4f %s (channel %s)\n", m.Name, value, unit, m.Code)
		}
	}

	if len(report.Errors) > 0 {
		fmt.Println("\n--- Errors ---")
		for _, e := range report.Errors {
			fmt.Printf("%s\n", e)
		}
	}
}

func exportJSON(report *Report, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}
