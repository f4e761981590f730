package synthetic_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/okian/spoofwatch/internal/synthetic"
	"github.com/okian/spoofwatch/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

func TestGenerate(t *testing.T) {
	Convey("Given a generator config", t, func() {
		ctx := context.Background()
		cfg := synthetic.DefaultConfig()
		cfg.MalformedRate = 0

		Convey("When generating twice with the same seed", func() {
			a, sa, err1 := synthetic.Generate(ctx, cfg)
			b, sb, err2 := synthetic.Generate(ctx, cfg)

			Convey("Then both logs should be identical", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(b, ShouldResemble, a)
				So(sb, ShouldResemble, sa)
			})
		})

		Convey("When generating with a different seed", func() {
			a, _, _ := synthetic.Generate(ctx, cfg)
			cfg.Seed++
			b, _, _ := synthetic.Generate(ctx, cfg)

			Convey("Then the logs should differ", func() {
				So(b, ShouldNotResemble, a)
			})
		})

		Convey("When counting rows", func() {
			recs, stats, err := synthetic.Generate(ctx, cfg)

			Convey("Then every vessel and shadow should report at every step", func() {
				So(err, ShouldBeNil)
				want := (cfg.Vessels + cfg.ConflictPairs) * cfg.PositionsPerVessel
				So(len(recs), ShouldEqual, want)
				So(stats.Rows, ShouldEqual, want)
				So(stats.Shadows, ShouldEqual, cfg.ConflictPairs*cfg.PositionsPerVessel)
			})

			Convey("Then rows should be ordered by report time", func() {
				So(recs[0].Timestamp, ShouldEqual, "11/11/2024 00:00:00")
				So(recs[len(recs)-1].Timestamp, ShouldEqual, "11/11/2024 00:39:00")
			})
		})

		Convey("When the config is empty", func() {
			_, _, err := synthetic.Generate(ctx, synthetic.Config{})

			Convey("Then it should fail", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestWrite(t *testing.T) {
	Convey("Given a generated log with malformed rows", t, func() {
		cfg := synthetic.DefaultConfig()
		cfg.Vessels, cfg.PositionsPerVessel, cfg.ConflictPairs = 3, 4, 0
		cfg.MalformedRate = 1
		recs, _, err := synthetic.Generate(context.Background(), cfg)
		So(err, ShouldBeNil)

		Convey("When writing CSV", func() {
			var buf bytes.Buffer
			err := synthetic.WriteCSV(&buf, recs, true)
			lines := strings.Split(strings.TrimSpace(buf.String()), "\n")

			Convey("Then it should carry the AIS header and one line per record", func() {
				So(err, ShouldBeNil)
				So(lines[0], ShouldEqual, "# Timestamp,MMSI,Latitude,Longitude,SOG,COG")
				So(len(lines), ShouldEqual, len(recs)+1)
			})
		})

		Convey("When writing CSV without SOG/COG", func() {
			var buf bytes.Buffer
			err := synthetic.WriteCSV(&buf, recs, false)

			Convey("Then the optional columns should be absent", func() {
				So(err, ShouldBeNil)
				So(strings.HasPrefix(buf.String(), "# Timestamp,MMSI,Latitude,Longitude\n"), ShouldBeTrue)
			})
		})

		Convey("When writing NDJSON", func() {
			var buf bytes.Buffer
			err := synthetic.WriteNDJSON(&buf, recs, true)
			lines := strings.Split(strings.TrimSpace(buf.String()), "\n")

			Convey("Then there should be one object per record", func() {
				So(err, ShouldBeNil)
				So(len(lines), ShouldEqual, len(recs))
				So(lines[0], ShouldContainSubstring, `"MMSI"`)
			})
		})
	})
}
