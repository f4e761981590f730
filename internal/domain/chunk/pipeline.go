// Package chunk runs the detection pipeline over one chunk of raw position
// records.
package chunk

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/okian/spoofwatch/internal/domain/dedupe"
	"github.com/okian/spoofwatch/internal/domain/detect"
	"github.com/okian/spoofwatch/internal/domain/model"
	"github.com/okian/spoofwatch/pkg/logger"
	"github.com/okian/spoofwatch/pkg/metrics"
)

// DefaultTimestampLayout parses the AIS export format, e.g. "11/11/2024 12:00:00".
// Every field except the year may be written without its leading zero.
const DefaultTimestampLayout = "1/2/2006 15:4:5"

// Processor turns one raw chunk into cleaned positions and anomalies.
// Implementations must be pure: the same chunk always yields the same result.
type Processor interface {
	Process(ctx context.Context, c model.Chunk) (model.ChunkResult, error)
}

// Pipeline is the stock Processor. It holds configuration only and is safe
// for concurrent use.
type Pipeline struct {
	thresholds detect.Thresholds
	layout     string
	loc        *time.Location
	neighbors  bool
	logger     logger.Logger
}

// NewPipeline creates a pipeline with default thresholds and the neighbor
// pass disabled.
func NewPipeline(opts ...Option) *Pipeline {
	p := &Pipeline{
		thresholds: detect.DefaultThresholds(),
		layout:     DefaultTimestampLayout,
		loc:        time.UTC,
		logger:     logger.Get().Named("chunk"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Thresholds returns the detector configuration in use.
func (p *Pipeline) Thresholds() detect.Thresholds { return p.thresholds }

// Process validates the chunk's records, groups them into per-vessel tracks,
// runs the location and speed/course detectors on every track and, when
// enabled, the neighbor detector over the whole cleaned chunk.
//
// Cleaned positions are ordered by MMSI and then by timestamp. Anomalies are
// ordered by reason (location, speed/course, neighbor) and deduplicated on
// the full record.
func (p *Pipeline) Process(ctx context.Context, c model.Chunk) (model.ChunkResult, error) {
	if err := ctx.Err(); err != nil {
		return model.ChunkResult{}, err
	}
	start := time.Now()

	byVessel := make(map[string][]model.Position)
	valid := 0
	for i := range c.Records {
		pos, ok := p.validate(&c.Records[i], c.Schema)
		if !ok {
			continue
		}
		byVessel[pos.MMSI] = append(byVessel[pos.MMSI], pos)
		valid++
	}

	vessels := make([]string, 0, len(byVessel))
	for mmsi := range byVessel {
		vessels = append(vessels, mmsi)
	}
	sort.Strings(vessels)

	th := p.thresholds
	cleaned := make([]model.Position, 0, valid)
	var located, mismatched []model.Anomaly
	for _, mmsi := range vessels {
		track := model.NewVesselTrack(mmsi, c.Schema, byVessel[mmsi])

		locIdx := detect.Location(&track, th.LocationSpeedKmh)
		scIdx, err := detect.SpeedCourse(&track, th.SpeedDiffKmh, th.BearingDiffDeg)
		if err != nil {
			return model.ChunkResult{}, fmt.Errorf("%w: chunk %d: %w", ErrDetector, c.Index, err)
		}

		// Snapshot after both detectors so every anomaly carries the full
		// set of derived values.
		for _, i := range locIdx {
			located = append(located, model.Anomaly{Position: track.Positions[i], Reason: model.ReasonLocationSpeed})
		}
		for _, i := range scIdx {
			mismatched = append(mismatched, model.Anomaly{Position: track.Positions[i], Reason: model.ReasonSpeedCourse})
		}
		cleaned = append(cleaned, track.Positions...)
	}

	anomalies, err := dedupe.Unique(ctx, append(located, mismatched...), model.Anomaly.Key)
	if err != nil {
		return model.ChunkResult{}, fmt.Errorf("chunk %d: %w", c.Index, err)
	}

	if p.neighbors {
		conflicts, err := detect.Neighbors(ctx, cleaned, th.NeighborWindow, th.NeighborDistanceKm, th.NeighborPrecision)
		if err != nil {
			return model.ChunkResult{}, fmt.Errorf("%w: chunk %d: %w", ErrDetector, c.Index, err)
		}
		anomalies = append(anomalies, conflicts...)
	}

	res := model.ChunkResult{
		Index:     c.Index,
		Cleaned:   cleaned,
		Anomalies: anomalies,
		Read:      len(c.Records),
		Dropped:   len(c.Records) - valid,
	}
	record(res)

	p.logger.Debug(ctx, "chunk processed",
		logger.Int("chunk", c.Index),
		logger.Int("read", res.Read),
		logger.Int("dropped", res.Dropped),
		logger.Int("vessels", len(vessels)),
		logger.Int("anomalies", len(anomalies)),
		logger.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

// validate converts a raw record into a position. Records with a blank MMSI,
// missing or out-of-range coordinates or an unparsable timestamp are rejected.
func (p *Pipeline) validate(r *model.Record, schema model.Schema) (model.Position, bool) {
	mmsi := strings.TrimSpace(r.MMSI)
	if mmsi == "" {
		return model.Position{}, false
	}
	if !inRange(r.Latitude, 90) || !inRange(r.Longitude, 180) {
		return model.Position{}, false
	}
	ts, err := time.ParseInLocation(p.layout, strings.TrimSpace(r.Timestamp), p.loc)
	if err != nil {
		return model.Position{}, false
	}

	pos := model.Position{
		MMSI:      mmsi,
		Latitude:  r.Latitude,
		Longitude: r.Longitude,
		Timestamp: ts,
	}
	if schema.HasSOG && !math.IsNaN(r.SOG) {
		pos.SOG, pos.SOGKnown = r.SOG, true
	}
	if schema.HasCOG && !math.IsNaN(r.COG) {
		pos.COG, pos.COGKnown = r.COG, true
	}
	return pos, true
}

func inRange(v, limit float64) bool {
	return !math.IsNaN(v) && v >= -limit && v <= limit
}

func record(res model.ChunkResult) {
	metrics.RecordRecords(res.Read, len(res.Cleaned), res.Dropped)
	counts := make(map[model.Reason]int, len(model.Reasons))
	for _, a := range res.Anomalies {
		counts[a.Reason]++
	}
	for _, reason := range model.Reasons {
		if n := counts[reason]; n > 0 {
			metrics.RecordAnomalies(string(reason), n)
		}
	}
}
