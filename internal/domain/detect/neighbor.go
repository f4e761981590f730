package detect

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/okian/spoofwatch/internal/domain/dedupe"
	"github.com/okian/spoofwatch/internal/domain/geomath"
	"github.com/okian/spoofwatch/internal/domain/model"
)

// binKey is a (lat, lon, time) cell. Coordinates are stored as rounded
// integers at the configured precision.
type binKey struct {
	lat, lon int64
	slot     int64
}

func (k binKey) less(o binKey) bool {
	if k.lat != o.lat {
		return k.lat < o.lat
	}
	if k.lon != o.lon {
		return k.lon < o.lon
	}
	return k.slot < o.slot
}

// Neighbors flags pairs of distinct vessels that share a spatio-temporal
// bin and lie closer than distanceKm to each other. Positions are binned by
// rounding latitude and longitude to precision decimals and by
// floor((t - t_min) / window). Only positions inside the same bin are
// compared, so close pairs that straddle a bin edge are not reported.
//
// The result holds one anomaly per distinct flagged record, in bin order.
func Neighbors(ctx context.Context, positions []model.Position, window time.Duration, distanceKm float64, precision int) ([]model.Anomaly, error) {
	if window <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidWindow, window)
	}
	if len(positions) < 2 {
		return nil, nil
	}

	t0 := positions[0].Timestamp
	for _, p := range positions[1:] {
		if p.Timestamp.Before(t0) {
			t0 = p.Timestamp
		}
	}

	scale := math.Pow(10, float64(precision))
	bins := make(map[binKey][]int)
	for i, p := range positions {
		k := binKey{
			lat:  int64(math.RoundToEven(p.Latitude * scale)),
			lon:  int64(math.RoundToEven(p.Longitude * scale)),
			slot: int64(p.Timestamp.Sub(t0) / window),
		}
		bins[k] = append(bins[k], i)
	}

	keys := make([]binKey, 0, len(bins))
	for k, members := range bins {
		if len(members) > 1 {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].less(keys[j]) })

	var flagged []model.Anomaly
	for _, k := range keys {
		members := bins[k]
		for a := 0; a < len(members); a++ {
			pa := positions[members[a]]
			for b := a + 1; b < len(members); b++ {
				pb := positions[members[b]]
				if pa.MMSI == pb.MMSI {
					continue
				}
				if geomath.Distance(pa.Point(), pb.Point()) < distanceKm {
					flagged = append(flagged,
						model.Anomaly{Position: pa, Reason: model.ReasonNeighborConflict},
						model.Anomaly{Position: pb, Reason: model.ReasonNeighborConflict},
					)
				}
			}
		}
	}

	return dedupe.Unique(ctx, flagged, model.Anomaly.Key)
}
