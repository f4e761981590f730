// Package detect implements the spoofing detectors: per-vessel implausible
// speed, per-vessel reported-vs-derived kinematics mismatch, and
// cross-vessel neighbor conflicts.
package detect

import (
	"time"

	"github.com/creasty/defaults"
)

// Thresholds configures all detectors.
type Thresholds struct {
	// LocationSpeedKmh is the derived speed above which a position is implausible.
	LocationSpeedKmh float64 `default:"200"`

	// SpeedDiffKmh and BearingDiffDeg bound the gap between reported SOG/COG
	// and the values derived from consecutive positions.
	SpeedDiffKmh   float64 `default:"5.0"`
	BearingDiffDeg float64 `default:"30.0"`

	// NeighborWindow is the width of a time bin.
	NeighborWindow time.Duration `default:"5m"`
	// NeighborDistanceKm is the separation below which two vessels conflict.
	NeighborDistanceKm float64 `default:"2.0"`
	// NeighborPrecision is the number of decimals coordinates are rounded to
	// when binning; 2 gives cells of roughly 1 km.
	NeighborPrecision int `default:"2"`
}

// DefaultThresholds returns the stock detector configuration.
func DefaultThresholds() Thresholds {
	var t Thresholds
	if err := defaults.Set(&t); err != nil {
		panic(err) // static tags
	}
	return t
}
