package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/okian/spoofwatch/internal/adapters/ingest"
	"github.com/okian/spoofwatch/internal/config"
	"github.com/okian/spoofwatch/internal/domain/chunk"
)

var errNoInput = errors.New("no input: set --input or " + config.EnvPrefix + "INPUT")

// newPipeline builds the chunk processor described by cfg.
func newPipeline(cfg *config.Config) *chunk.Pipeline {
	return chunk.NewPipeline(
		chunk.WithThresholds(cfg.Thresholds()),
		chunk.WithTimestampLayout(cfg.TimestampLayout),
		chunk.WithNeighbors(cfg.NeighborEnabled),
	)
}

// opener returns a function that opens cfg.Input chunked by the given size.
func opener(cfg *config.Config) func(chunkSize int) (ingest.Source, error) {
	cols := ingest.Columns{
		Timestamp: cfg.TimestampColumn,
		MMSI:      cfg.MMSIColumn,
		Latitude:  cfg.LatitudeColumn,
		Longitude: cfg.LongitudeColumn,
		SOG:       cfg.SOGColumn,
		COG:       cfg.COGColumn,
	}
	return func(chunkSize int) (ingest.Source, error) {
		if cfg.Input == "" {
			return nil, errNoInput
		}
		return ingest.Open(cfg.Input, cfg.InputFormat, ingest.WithChunkSize(chunkSize), ingest.WithColumns(cols))
	}
}

// writeFile creates path and passes it to write.
func writeFile(path string, write func(f *os.File) error) error {
	f, err := os.Create(path) //nolint:gosec // operator supplied path
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
