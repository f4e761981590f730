// Package model contains domain models passed between layers.
package model

import (
	"math"
	"sort"
	"time"

	"github.com/paulmach/orb"
)

// Record is one raw row of a position log, before validation.
// Numeric cells that were empty or unparsable hold NaN.
type Record struct {
	MMSI      string  // vessel identifier
	Latitude  float64 // degrees, NaN when missing
	Longitude float64 // degrees, NaN when missing
	Timestamp string  // raw text, parsed by the chunk processor
	SOG       float64 // reported speed over ground, NaN when missing
	COG       float64 // reported course over ground, NaN when missing
}

// Schema declares which optional columns the source stream carries.
type Schema struct {
	HasSOG bool
	HasCOG bool
}

// Chunk is a bounded, contiguous slice of the input stream.
type Chunk struct {
	Index   int
	Schema  Schema
	Records []Record
}

// Kinematics holds values derived from a position and its predecessor in
// the same track. Derived is false for the first position of a track.
type Kinematics struct {
	Derived      bool
	DistanceKm   float64
	ElapsedHours float64
	SpeedKmh     float64
	BearingDeg   float64
}

// Position is a validated position report annotated with derived kinematics.
type Position struct {
	MMSI      string
	Latitude  float64
	Longitude float64
	Timestamp time.Time

	// SOG/COG are only meaningful when the matching Known flag is set.
	SOG      float64
	COG      float64
	SOGKnown bool
	COGKnown bool

	Kinematics Kinematics
}

// Point returns the position as an orb point (lon, lat).
func (p Position) Point() orb.Point {
	return orb.Point{p.Longitude, p.Latitude}
}

// VesselTrack is the time-ordered sequence of one vessel's positions
// inside a single chunk.
type VesselTrack struct {
	MMSI      string
	Schema    Schema
	Positions []Position
}

// NewVesselTrack orders positions by timestamp and applies the schema:
// an optional column the stream never carried is set to a known zero on
// every position of the track.
func NewVesselTrack(mmsi string, schema Schema, positions []Position) VesselTrack {
	sort.SliceStable(positions, func(i, j int) bool {
		return positions[i].Timestamp.Before(positions[j].Timestamp)
	})
	for i := range positions {
		if !schema.HasSOG {
			positions[i].SOG, positions[i].SOGKnown = 0, true
		}
		if !schema.HasCOG {
			positions[i].COG, positions[i].COGKnown = 0, true
		}
	}
	return VesselTrack{MMSI: mmsi, Schema: schema, Positions: positions}
}

// Reason names the detector that flagged an anomaly.
type Reason string

const (
	ReasonLocationSpeed    Reason = "location_speed"
	ReasonSpeedCourse      Reason = "speed_course"
	ReasonNeighborConflict Reason = "neighbor_conflict"
)

// Reasons lists every reason in reporting order.
var Reasons = []Reason{ReasonLocationSpeed, ReasonSpeedCourse, ReasonNeighborConflict}

// Anomaly is a flagged position together with the reason that flagged it.
type Anomaly struct {
	Position Position
	Reason   Reason
}

// AnomalyKey is the comparable identity of an anomaly used
// for full-record deduplication.
type AnomalyKey struct {
	MMSI       string
	Latitude   float64
	Longitude  float64
	UnixNano   int64
	SOG        float64
	COG        float64
	SOGKnown   bool
	COGKnown   bool
	Kinematics Kinematics
	Reason     Reason
}

// Key returns the deduplication identity of the anomaly.
func (a Anomaly) Key() AnomalyKey {
	p := a.Position
	k := p.Kinematics
	return AnomalyKey{
		MMSI:      p.MMSI,
		Latitude:  canon(p.Latitude),
		Longitude: canon(p.Longitude),
		UnixNano:  p.Timestamp.UnixNano(),
		SOG:       canon(p.SOG),
		COG:       canon(p.COG),
		SOGKnown:  p.SOGKnown,
		COGKnown:  p.COGKnown,
		Kinematics: Kinematics{
			Derived:      k.Derived,
			DistanceKm:   canon(k.DistanceKm),
			ElapsedHours: canon(k.ElapsedHours),
			SpeedKmh:     canon(k.SpeedKmh),
			BearingDeg:   canon(k.BearingDeg),
		},
		Reason: a.Reason,
	}
}

// canon folds -0 into +0 so equal values hash identically.
func canon(f float64) float64 {
	if f == 0 || math.IsNaN(f) {
		return 0
	}
	return f
}

// ChunkResult is the output of processing one chunk.
type ChunkResult struct {
	Index     int
	Cleaned   []Position
	Anomalies []Anomaly
	Read      int
	Dropped   int
}
