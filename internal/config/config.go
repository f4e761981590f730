// Package config defines process configuration and its loading layers.
package config

import (
	"time"

	"github.com/okian/spoofwatch/internal/domain/detect"
)

// Config contains process configuration. Keys are flat so that every field
// maps to one SPOOFWATCH_* environment variable.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn error"`
	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// Input is the position log to read.
	Input       string `koanf:"input"`
	InputFormat string `koanf:"input_format" validate:"oneof=csv ndjson"`

	TimestampColumn string `koanf:"timestamp_column" validate:"required"`
	TimestampLayout string `koanf:"timestamp_layout" validate:"required"`
	MMSIColumn      string `koanf:"mmsi_column" validate:"required"`
	LatitudeColumn  string `koanf:"latitude_column" validate:"required"`
	LongitudeColumn string `koanf:"longitude_column" validate:"required"`
	SOGColumn       string `koanf:"sog_column"`
	COGColumn       string `koanf:"cog_column"`

	// ChunkSize bounds the raw records per chunk.
	ChunkSize int `koanf:"chunk_size" validate:"min=1"`
	// WorkerCount sets the parallel pool size; 0 selects NumCPU-1.
	WorkerCount int `koanf:"worker_count" validate:"min=0"`
	// QueueSize bounds chunks waiting for a worker; 0 selects twice the workers.
	QueueSize int    `koanf:"queue_size" validate:"min=0"`
	Strategy  string `koanf:"strategy" validate:"oneof=sequential parallel"`

	LocationSpeedThresholdKmh float64 `koanf:"location_speed_threshold_kmh" validate:"gte=0"`
	SpeedDiffThresholdKmh     float64 `koanf:"speed_diff_threshold_kmh" validate:"gte=0"`
	BearingDiffThresholdDeg   float64 `koanf:"bearing_diff_threshold_deg" validate:"gte=0,lte=180"`

	NeighborEnabled       bool    `koanf:"neighbor_enabled"`
	NeighborWindowMinutes float64 `koanf:"neighbor_window_minutes" validate:"gt=0"`
	NeighborDistanceKm    float64 `koanf:"neighbor_distance_km" validate:"gte=0"`
	NeighborPrecision     int     `koanf:"neighbor_precision" validate:"min=0,max=6"`

	AnomaliesOutput string `koanf:"anomalies_output"`
	CleanedOutput   string `koanf:"cleaned_output"`
	ResultsOutput   string `koanf:"results_output"`

	// BenchChunkSizes and BenchWorkerCounts span the experiment grid.
	BenchChunkSizes   []int `koanf:"bench_chunk_sizes" validate:"min=1,dive,min=1"`
	BenchWorkerCounts []int `koanf:"bench_worker_counts" validate:"min=1,dive,min=1"`

	// SampleIntervalMS is the resource sampler polling period.
	SampleIntervalMS int `koanf:"sample_interval_ms" validate:"min=1"`

	// MetricsAddr serves /metrics and /healthz when set, e.g. ":9090".
	MetricsAddr string `koanf:"metrics_addr"`
}

// New returns a Config populated with defaults.
func New() *Config {
	t := detect.DefaultThresholds()
	return &Config{
		LogLevel:                  "info",
		LogFormat:                 "text",
		InputFormat:               "csv",
		TimestampColumn:           "# Timestamp",
		TimestampLayout:           "1/2/2006 15:4:5",
		MMSIColumn:                "MMSI",
		LatitudeColumn:            "Latitude",
		LongitudeColumn:           "Longitude",
		SOGColumn:                 "SOG",
		COGColumn:                 "COG",
		ChunkSize:                 500_000,
		Strategy:                  "parallel",
		LocationSpeedThresholdKmh: t.LocationSpeedKmh,
		SpeedDiffThresholdKmh:     t.SpeedDiffKmh,
		BearingDiffThresholdDeg:   t.BearingDiffDeg,
		NeighborWindowMinutes:     t.NeighborWindow.Minutes(),
		NeighborDistanceKm:        t.NeighborDistanceKm,
		NeighborPrecision:         t.NeighborPrecision,
		ResultsOutput:             "experiment_results.csv",
		BenchChunkSizes:           []int{500_000},
		BenchWorkerCounts:         []int{7, 8},
		SampleIntervalMS:          100,
	}
}

// Thresholds converts the detector keys into detect.Thresholds.
func (c *Config) Thresholds() detect.Thresholds {
	return detect.Thresholds{
		LocationSpeedKmh:   c.LocationSpeedThresholdKmh,
		SpeedDiffKmh:       c.SpeedDiffThresholdKmh,
		BearingDiffDeg:     c.BearingDiffThresholdDeg,
		NeighborWindow:     time.Duration(c.NeighborWindowMinutes * float64(time.Minute)),
		NeighborDistanceKm: c.NeighborDistanceKm,
		NeighborPrecision:  c.NeighborPrecision,
	}
}

// SampleInterval returns the sampler period as a duration.
func (c *Config) SampleInterval() time.Duration {
	return time.Duration(c.SampleIntervalMS) * time.Millisecond
}
