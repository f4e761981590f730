// Package geomath implements the great-circle computations used by the
// detectors: haversine distance and initial bearing on a spherical Earth.
package geomath

import (
	"math"

	"github.com/paulmach/orb"
)

// EarthRadiusKm is the mean Earth radius used for all distances.
const EarthRadiusKm = 6371.0

// Distance returns the great-circle distance between a and b in kilometers.
func Distance(a, b orb.Point) float64 {
	if a.Equal(b) {
		return 0
	}

	lat1 := deg2rad(a.Lat())
	lat2 := deg2rad(b.Lat())
	dLat := deg2rad(b.Lat() - a.Lat())
	dLon := deg2rad(b.Lon() - a.Lon())

	h := math.Pow(math.Sin(dLat/2), 2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(dLon/2), 2)

	// Rounding can push h a hair above 1 for antipodal points.
	h = math.Min(1, math.Max(0, h))

	return EarthRadiusKm * 2 * math.Asin(math.Sqrt(h))
}

// InitialBearing returns the forward azimuth from a to b in degrees, in [0, 360).
// Identical points yield 0.
func InitialBearing(a, b orb.Point) float64 {
	lat1 := deg2rad(a.Lat())
	lat2 := deg2rad(b.Lat())
	dLon := deg2rad(b.Lon() - a.Lon())

	x := math.Sin(dLon) * math.Cos(lat2)
	y := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)

	bearing := math.Mod(rad2deg(math.Atan2(x, y))+360, 360)
	if bearing == 0 {
		return 0 // fold -0
	}
	return bearing
}

// AngularDifference returns the shortest angular distance between two
// headings in degrees, in [0, 180].
func AngularDifference(a, b float64) float64 {
	d := math.Abs(a - b)
	return math.Min(d, 360-d)
}

func deg2rad(d float64) float64 { return d * math.Pi / 180 }
func rad2deg(r float64) float64 { return r * 180 / math.Pi }
