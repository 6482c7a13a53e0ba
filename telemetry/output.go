package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/evol/config"
)

// MetricRecord is one metric value in metrics.csv.
type MetricRecord struct {
	Tick  int32   `csv:"tick"`
	Name  string  `csv:"name"`
	Kind  string  `csv:"kind"`
	Value float64 `csv:"value"`
}

// csvFile appends records to a CSV file, writing the header once.
type csvFile struct {
	f             *os.File
	headerWritten bool
}

func (c *csvFile) write(records any) error {
	if !c.headerWritten {
		// First write includes headers
		if err := gocsv.Marshal(records, c.f); err != nil {
			return err
		}
		c.headerWritten = true
		return nil
	}
	return gocsv.MarshalWithoutHeaders(records, c.f)
}

// OutputManager handles structured experiment output with CSV logging.
type OutputManager struct {
	dir       string
	telemetry *csvFile
	episodes  *csvFile
	perf      *csvFile
	metrics   *csvFile
}

// NewOutputManager creates a new output manager and initializes the output directory.
// Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	// Create output directory
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}
	files := []struct {
		name string
		dst  **csvFile
	}{
		{"telemetry.csv", &om.telemetry},
		{"episodes.csv", &om.episodes},
		{"perf.csv", &om.perf},
		{"metrics.csv", &om.metrics},
	}
	for _, spec := range files {
		f, err := os.Create(filepath.Join(dir, spec.name))
		if err != nil {
			om.Close()
			return nil, fmt.Errorf("creating %s: %w", spec.name, err)
		}
		*spec.dst = &csvFile{f: f}
	}

	return om, nil
}

// WriteConfig saves the current configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	configPath := filepath.Join(om.dir, "config.yaml")
	return cfg.WriteYAML(configPath)
}

// WriteTelemetry writes one window's per-species rows to telemetry.csv.
func (om *OutputManager) WriteTelemetry(stats []WindowStats) error {
	if om == nil || len(stats) == 0 {
		return nil
	}
	if err := om.telemetry.write(stats); err != nil {
		return fmt.Errorf("writing telemetry: %w", err)
	}
	return nil
}

// WriteEpisodes writes ended episodes to episodes.csv.
func (om *OutputManager) WriteEpisodes(records []EpisodeRecord) error {
	if om == nil || len(records) == 0 {
		return nil
	}
	if err := om.episodes.write(records); err != nil {
		return fmt.Errorf("writing episodes: %w", err)
	}
	return nil
}

// WritePerf writes a performance stats record to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, windowEnd int32) error {
	if om == nil {
		return nil
	}
	if err := om.perf.write([]PerfStatsCSV{stats.ToCSV(windowEnd)}); err != nil {
		return fmt.Errorf("writing perf: %w", err)
	}
	return nil
}

// WriteMetrics writes a metrics snapshot to metrics.csv.
func (om *OutputManager) WriteMetrics(records []MetricRecord) error {
	if om == nil || len(records) == 0 {
		return nil
	}
	if err := om.metrics.write(records); err != nil {
		return fmt.Errorf("writing metrics: %w", err)
	}
	return nil
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}

	var firstErr error
	for _, c := range []*csvFile{om.telemetry, om.episodes, om.perf, om.metrics} {
		if c == nil {
			continue
		}
		if err := c.f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
