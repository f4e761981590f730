// Package synthetic generates deterministic AIS-style position logs with
// injected spoofing patterns.
package synthetic

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/okian/spoofwatch/internal/domain/model"
	"github.com/okian/spoofwatch/pkg/logger"
)

// Motion and injection constants.
const (
	kmPerDegree     = 111.195
	minLatitude     = 54.0
	latitudeSpan    = 4.0
	minLongitude    = 8.0
	longitudeSpan   = 7.0
	minSpeedKmh     = 8.0
	speedSpanKmh    = 22.0
	headingDriftDeg = 3.0
	sogNoiseKmh     = 0.5
	cogNoiseDeg     = 2.0
	teleportDeg     = 2.0
	courseLieDeg    = 90.0
	shadowOffsetDeg = 0.0003
	mmsiBase        = 219000000
	shadowMMSIBase  = 919000000
	malformedKinds  = 4
)

// Layout is the timestamp format the generator writes.
const Layout = "01/02/2006 15:04:05"

type vessel struct {
	mmsi     string
	lat, lon float64
	speed    float64
	heading  float64
}

// Generate builds a position log from cfg. Rows are ordered by report time
// and interleaved across vessels, as in a raw AIS export.
func Generate(ctx context.Context, cfg Config) ([]model.Record, Stats, error) {
	if cfg.Vessels < 1 || cfg.PositionsPerVessel < 1 {
		return nil, Stats{}, fmt.Errorf("generate: need at least one vessel and one position, got %d x %d", cfg.Vessels, cfg.PositionsPerVessel)
	}
	if cfg.Interval <= 0 {
		return nil, Stats{}, fmt.Errorf("generate: interval must be positive, got %s", cfg.Interval)
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)) //nolint:gosec // reproducible test data
	fleet := make([]vessel, cfg.Vessels)
	for i := range fleet {
		fleet[i] = vessel{
			mmsi:    strconv.Itoa(mmsiBase + i),
			lat:     minLatitude + rng.Float64()*latitudeSpan,
			lon:     minLongitude + rng.Float64()*longitudeSpan,
			speed:   minSpeedKmh + rng.Float64()*speedSpanKmh,
			heading: rng.Float64() * 360,
		}
	}

	pairs := cfg.ConflictPairs
	if pairs > cfg.Vessels {
		pairs = cfg.Vessels
	}

	stats := Stats{Vessels: cfg.Vessels + pairs}
	records := make([]model.Record, 0, (cfg.Vessels+pairs)*cfg.PositionsPerVessel)
	hours := cfg.Interval.Hours()

	for step := 0; step < cfg.PositionsPerVessel; step++ {
		if err := ctx.Err(); err != nil {
			return nil, Stats{}, err
		}
		ts := cfg.Start.Add(time.Duration(step) * cfg.Interval).Format(Layout)

		for i := range fleet {
			v := &fleet[i]
			if step > 0 {
				v.heading = math.Mod(v.heading+(rng.Float64()*2-1)*headingDriftDeg+360, 360)
				v.move(v.speed * hours)
			}

			r := v.report(ts, cfg.WithSOGCOG, rng)
			if rng.Float64() < cfg.TeleportRate {
				r.Latitude = displaced(r.Latitude)
				stats.Teleports++
			}
			if cfg.WithSOGCOG && rng.Float64() < cfg.CourseLieRate {
				r.COG = math.Mod(r.COG+courseLieDeg, 360)
				stats.CourseLies++
			}
			if rng.Float64() < cfg.MalformedRate {
				corrupt(&r, rng.IntN(malformedKinds))
				stats.Malformed++
			}
			records = append(records, r)

			if i < pairs {
				s := v.report(ts, cfg.WithSOGCOG, rng)
				s.MMSI = strconv.Itoa(shadowMMSIBase + i)
				s.Latitude += shadowOffsetDeg
				records = append(records, s)
				stats.Shadows++
			}
		}
	}

	stats.Rows = len(records)
	logger.Get().Named("synthetic").Debug(ctx, "position log generated",
		logger.Int("rows", stats.Rows),
		logger.Int("vessels", stats.Vessels),
		logger.Int("teleports", stats.Teleports),
		logger.Int("course_lies", stats.CourseLies),
		logger.Int("malformed", stats.Malformed),
	)
	return records, stats, nil
}

func (v *vessel) move(km float64) {
	h := v.heading * math.Pi / 180
	v.lat += km * math.Cos(h) / kmPerDegree
	v.lon += km * math.Sin(h) / (kmPerDegree * math.Cos(v.lat*math.Pi/180))
}

func (v *vessel) report(ts string, withSOGCOG bool, rng *rand.Rand) model.Record {
	r := model.Record{
		MMSI:      v.mmsi,
		Latitude:  v.lat,
		Longitude: v.lon,
		Timestamp: ts,
		SOG:       math.NaN(),
		COG:       math.NaN(),
	}
	if withSOGCOG {
		r.SOG = math.Max(0, v.speed+(rng.Float64()*2-1)*sogNoiseKmh)
		r.COG = math.Mod(v.heading+(rng.Float64()*2-1)*cogNoiseDeg+360, 360)
	}
	return r
}

func displaced(lat float64) float64 {
	if lat+teleportDeg > 90 {
		return lat - teleportDeg
	}
	return lat + teleportDeg
}

func corrupt(r *model.Record, kind int) {
	switch kind {
	case 0:
		r.Latitude = math.NaN()
	case 1:
		r.Timestamp = "not-a-time"
	case 2:
		r.Latitude = 123.4
	default:
		r.MMSI = ""
	}
}
