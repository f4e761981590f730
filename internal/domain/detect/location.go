package detect

import (
	"sort"

	"github.com/okian/spoofwatch/internal/domain/geomath"
	"github.com/okian/spoofwatch/internal/domain/model"
)

// Location annotates every position after the first with distance, elapsed
// time and derived speed from its predecessor, and returns the indices of
// positions whose derived speed exceeds maxSpeedKmh.
//
// Zero elapsed time yields a derived speed of 0. The first position is never
// flagged.
func Location(track *model.VesselTrack, maxSpeedKmh float64) []int {
	ps := track.Positions
	if !sort.SliceIsSorted(ps, func(i, j int) bool { return ps[i].Timestamp.Before(ps[j].Timestamp) }) {
		sort.SliceStable(ps, func(i, j int) bool { return ps[i].Timestamp.Before(ps[j].Timestamp) })
	}

	var flagged []int
	for i := range ps {
		if i == 0 {
			ps[i].Kinematics = model.Kinematics{}
			continue
		}
		prev, cur := ps[i-1], &ps[i]

		dist := geomath.Distance(prev.Point(), cur.Point())
		hours := cur.Timestamp.Sub(prev.Timestamp).Hours()
		speed := 0.0
		if hours != 0 {
			speed = dist / hours
		}

		cur.Kinematics.Derived = true
		cur.Kinematics.DistanceKm = dist
		cur.Kinematics.ElapsedHours = hours
		cur.Kinematics.SpeedKmh = speed

		if speed > maxSpeedKmh {
			flagged = append(flagged, i)
		}
	}
	return flagged
}
