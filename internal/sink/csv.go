// v1
// internal/sink/csv.go
package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"solarmon/internal/telemetry"
)

// csvTimeLayout matches the rows written by the original deployment:
// second-resolution local time without a zone suffix.
const csvTimeLayout = "2006-01-02T15:04:05"

var csvHeader = []string{
	"timestamp",
	"voltage_v",
	"current_a",
	"power_w",
	"temp_front_c",
	"temp_back_c",
	"energy_wh_day",
}

// CSVSink appends every calibrated sample to a CSV file. The header row is
// written exactly once per file, including across process restarts, and
// every row is flushed immediately so a crash loses at most the sample in
// flight.
type CSVSink struct {
	f *os.File
	w *csv.Writer
}

// NewCSVSink opens (or creates) the CSV file at path, creating parent
// directories as needed.
func NewCSVSink(path string) (*CSVSink, error) {
	if err := os.MkdirAll(filepath.Dir(filepath.Clean(path)), 0o755); err != nil {
		return nil, fmt.Errorf("create csv directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open csv file: %w", err)
	}

	s := &CSVSink{f: f, w: csv.NewWriter(f)}
	if err := s.ensureHeader(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return s, nil
}

func (s *CSVSink) ensureHeader() error {
	info, err := s.f.Stat()
	if err != nil {
		return fmt.Errorf("stat csv file: %w", err)
	}
	if info.Size() > 0 {
		return nil
	}
	if err := s.w.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	s.w.Flush()
	return s.w.Error()
}

func (s *CSVSink) Name() string {
	return "csv"
}

// Write appends one row. Unavailable temperatures become empty cells,
// never a fabricated 0.0.
func (s *CSVSink) Write(_ context.Context, sample telemetry.CalibratedSample) error {
	row := []string{
		sample.Timestamp.Format(csvTimeLayout),
		strconv.FormatFloat(sample.VoltageV, 'f', 4, 64),
		strconv.FormatFloat(sample.CurrentA, 'f', 4, 64),
		strconv.FormatFloat(sample.PowerW, 'f', 4, 64),
		formatTemp(sample.TempFrontC),
		formatTemp(sample.TempBackC),
		strconv.FormatFloat(sample.EnergyWhDay, 'f', 6, 64),
	}
	if err := s.w.Write(row); err != nil {
		return fmt.Errorf("write csv row: %w", err)
	}
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		return fmt.Errorf("flush csv row: %w", err)
	}
	return nil
}

func formatTemp(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 3, 64)
}

// Close flushes buffered rows and closes the file.
func (s *CSVSink) Close() error {
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		_ = s.f.Close()
		return err
	}
	return s.f.Close()
}
