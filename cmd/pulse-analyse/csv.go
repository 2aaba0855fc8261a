package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/crashlab-data/pulse.report/internal/pipeline"
)

// loadChannelsCSV reads a channel dump: a header row of "time" followed by
// one channel code per column, then one row per sample. Times are seconds
// relative to T0 and must be uniformly spaced; the sample rate is derived
// from the first two rows.
func loadChannelsCSV(path string, invalidCodes map[string]bool) ([]pipeline.RawChannel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) < 2 || strings.ToLower(strings.TrimSpace(header[0])) != "time" {
		return nil, fmt.Errorf("first column must be \"time\", got %q", header[0])
	}
	codes := make([]string, len(header)-1)
	for i, h := range header[1:] {
		codes[i] = strings.TrimSpace(h)
	}

	var times []float64
	series := make([][]float64, len(codes))
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", len(times)+2, err)
		}
		if len(row) != len(header) {
			return nil, fmt.Errorf("row %d: %d fields, want %d", len(times)+2, len(row), len(header))
		}
		t, err := strconv.ParseFloat(strings.TrimSpace(row[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: bad time %q", len(times)+2, row[0])
		}
		times = append(times, t)
		for i, cell := range row[1:] {
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				return nil, fmt.Errorf("row %d, channel %s: bad sample %q", len(times)+1, codes[i], cell)
			}
			series[i] = append(series[i], v)
		}
	}
	if len(times) < 2 {
		return nil, fmt.Errorf("need at least 2 sample rows, got %d", len(times))
	}

	dt := times[1] - times[0]
	if dt <= 0 {
		return nil, fmt.Errorf("time column must increase, got step %g", dt)
	}

	channels := make([]pipeline.RawChannel, len(codes))
	for i, code := range codes {
		channels[i] = pipeline.RawChannel{
			Code:       code,
			SampleRate: 1.0 / dt,
			StartTime:  times[0],
			Samples:    series[i],
			Invalid:    invalidCodes[code],
		}
	}
	return channels, nil
}

// parseInvalidList splits a comma-separated list of channel codes flagged
// bad by upstream metadata.
func parseInvalidList(s string) map[string]bool {
	out := make(map[string]bool)
	for _, code := range strings.Split(s, ",") {
		code = strings.TrimSpace(code)
		if code != "" {
			out[code] = true
		}
	}
	return out
}
