package detect

import (
	"fmt"
	"math"

	"github.com/okian/spoofwatch/internal/domain/geomath"
	"github.com/okian/spoofwatch/internal/domain/model"
)

// SpeedCourse compares reported SOG/COG against the kinematics derived by
// Location, which must already have run on the track. It fills in the
// derived bearing of every position after the first and returns the indices
// of positions where
//
//	|derived speed - SOG| > speedDiffKmh  or  angle(derived bearing, COG) > bearingDiffDeg.
//
// A term is skipped when its reported value is unknown. The first position
// has no derived values and is never flagged.
func SpeedCourse(track *model.VesselTrack, speedDiffKmh, bearingDiffDeg float64) ([]int, error) {
	ps := track.Positions

	var flagged []int
	for i := 1; i < len(ps); i++ {
		prev, cur := ps[i-1], &ps[i]
		if !cur.Kinematics.Derived {
			return nil, fmt.Errorf("%w: vessel %s position %d", ErrNotAnnotated, track.MMSI, i)
		}

		cur.Kinematics.BearingDeg = geomath.InitialBearing(prev.Point(), cur.Point())

		speedMismatch := cur.SOGKnown && math.Abs(cur.Kinematics.SpeedKmh-cur.SOG) > speedDiffKmh
		courseMismatch := cur.COGKnown && geomath.AngularDifference(cur.Kinematics.BearingDeg, cur.COG) > bearingDiffDeg

		if speedMismatch || courseMismatch {
			flagged = append(flagged, i)
		}
	}
	return flagged, nil
}

