package main

import (
	"os"

	"github.com/spf13/pflag"

	"github.com/okian/spoofwatch/internal/config"
)

// Flag names shared between the subcommands.
const (
	flagConfig            = "config"
	flagInput             = "input"
	flagFormat            = "format"
	flagChunkSize         = "chunk-size"
	flagWorkers           = "workers"
	flagQueueSize         = "queue-size"
	flagStrategy          = "strategy"
	flagTimestampColumn   = "timestamp-column"
	flagTimestampLayout   = "timestamp-layout"
	flagSpeedThreshold    = "speed-threshold"
	flagSpeedDiff         = "speed-diff"
	flagBearingDiff       = "bearing-diff"
	flagNeighbors         = "neighbors"
	flagNeighborWindow    = "neighbor-window"
	flagNeighborDistance  = "neighbor-distance"
	flagNeighborPrecision = "neighbor-precision"
	flagLogLevel          = "log-level"
	flagLogFormat         = "log-format"
	flagMetricsAddr       = "metrics-addr"
	flagAnomalies         = "anomalies"
	flagCleaned           = "cleaned"
	flagResults           = "results"
	flagChunkSizes        = "chunk-sizes"
	flagWorkerCounts      = "worker-counts"
	flagSampleInterval    = "sample-interval"
)

// commonFlags declares the flags every subcommand accepts. Defaults are
// shown from config.New; only flags set on the command line override the
// loaded configuration.
func commonFlags() *pflag.FlagSet {
	d := config.New()
	fs := pflag.NewFlagSet("common", pflag.ContinueOnError)

	fs.String(flagConfig, "", "YAML config file (same as "+config.EnvConfigFile+")")
	fs.StringP(flagInput, "i", d.Input, "position log to read")
	fs.String(flagFormat, d.InputFormat, "input format: csv or ndjson")
	fs.Int(flagChunkSize, d.ChunkSize, "raw records per chunk")
	fs.IntP(flagWorkers, "w", d.WorkerCount, "parallel workers (0 = CPU count - 1)")
	fs.Int(flagQueueSize, d.QueueSize, "chunks waiting for a worker (0 = 2 x workers)")
	fs.String(flagTimestampColumn, d.TimestampColumn, "timestamp column name")
	fs.String(flagTimestampLayout, d.TimestampLayout, "timestamp layout (Go reference time)")
	fs.Float64(flagSpeedThreshold, d.LocationSpeedThresholdKmh, "implausible derived speed, km/h")
	fs.Float64(flagSpeedDiff, d.SpeedDiffThresholdKmh, "reported vs derived speed tolerance, km/h")
	fs.Float64(flagBearingDiff, d.BearingDiffThresholdDeg, "reported vs derived course tolerance, degrees")
	fs.Bool(flagNeighbors, d.NeighborEnabled, "run the neighbor conflict detector")
	fs.Float64(flagNeighborWindow, d.NeighborWindowMinutes, "neighbor time bin, minutes")
	fs.Float64(flagNeighborDistance, d.NeighborDistanceKm, "neighbor conflict distance, km")
	fs.Int(flagNeighborPrecision, d.NeighborPrecision, "decimals coordinates are rounded to when binning")
	fs.String(flagLogLevel, d.LogLevel, "log level: debug, info, warn, error")
	fs.String(flagLogFormat, d.LogFormat, "log format: text or json")
	fs.String(flagMetricsAddr, d.MetricsAddr, "serve /metrics and /healthz on this address")
	return fs
}

// useConfigFlag points config.Load at the --config file when given.
func useConfigFlag(fs *pflag.FlagSet) error {
	if !fs.Changed(flagConfig) {
		return nil
	}
	path, err := fs.GetString(flagConfig)
	if err != nil {
		return err
	}
	return os.Setenv(config.EnvConfigFile, path)
}

// applyFlags copies every flag set on the command line into cfg.
func applyFlags(fs *pflag.FlagSet, cfg *config.Config) error {
	strs := map[string]*string{
		flagInput:           &cfg.Input,
		flagFormat:          &cfg.InputFormat,
		flagStrategy:        &cfg.Strategy,
		flagTimestampColumn: &cfg.TimestampColumn,
		flagTimestampLayout: &cfg.TimestampLayout,
		flagLogLevel:        &cfg.LogLevel,
		flagLogFormat:       &cfg.LogFormat,
		flagMetricsAddr:     &cfg.MetricsAddr,
		flagAnomalies:       &cfg.AnomaliesOutput,
		flagCleaned:         &cfg.CleanedOutput,
		flagResults:         &cfg.ResultsOutput,
	}
	for name, dst := range strs {
		if err := apply(fs, name, dst, fs.GetString); err != nil {
			return err
		}
	}

	ints := map[string]*int{
		flagChunkSize:         &cfg.ChunkSize,
		flagWorkers:           &cfg.WorkerCount,
		flagQueueSize:         &cfg.QueueSize,
		flagNeighborPrecision: &cfg.NeighborPrecision,
		flagSampleInterval:    &cfg.SampleIntervalMS,
	}
	for name, dst := range ints {
		if err := apply(fs, name, dst, fs.GetInt); err != nil {
			return err
		}
	}

	floats := map[string]*float64{
		flagSpeedThreshold:   &cfg.LocationSpeedThresholdKmh,
		flagSpeedDiff:        &cfg.SpeedDiffThresholdKmh,
		flagBearingDiff:      &cfg.BearingDiffThresholdDeg,
		flagNeighborWindow:   &cfg.NeighborWindowMinutes,
		flagNeighborDistance: &cfg.NeighborDistanceKm,
	}
	for name, dst := range floats {
		if err := apply(fs, name, dst, fs.GetFloat64); err != nil {
			return err
		}
	}

	if err := apply(fs, flagNeighbors, &cfg.NeighborEnabled, fs.GetBool); err != nil {
		return err
	}
	if err := apply(fs, flagChunkSizes, &cfg.BenchChunkSizes, fs.GetIntSlice); err != nil {
		return err
	}
	return apply(fs, flagWorkerCounts, &cfg.BenchWorkerCounts, fs.GetIntSlice)
}

// apply sets *dst from flag name when the flag exists and was changed.
func apply[T any](fs *pflag.FlagSet, name string, dst *T, get func(string) (T, error)) error {
	if fs.Lookup(name) == nil || !fs.Changed(name) {
		return nil
	}
	v, err := get(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}
