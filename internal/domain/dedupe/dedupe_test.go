package dedupe_test

import (
	"context"
	"testing"
	"time"

	dedupe "github.com/okian/spoofwatch/internal/domain/dedupe"
	"github.com/okian/spoofwatch/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type pair struct {
	A string
	B float64
}

func TestHashSet(t *testing.T) {
	Convey("Given a new HashSet", t, func() {
		ctx := context.Background()
		s := dedupe.NewHashSet[pair](dedupe.WithSizeHint(8))

		Convey("When recording a new item", func() {
			seen, err := s.SeenAndRecord(ctx, pair{"x", 1})

			Convey("Then it should not have been seen", func() {
				So(err, ShouldBeNil)
				So(seen, ShouldBeFalse)
			})
		})

		Convey("When recording an equal item twice", func() {
			_, _ = s.SeenAndRecord(ctx, pair{"x", 1})
			seen, err := s.SeenAndRecord(ctx, pair{"x", 1})

			Convey("Then the second call should report it as seen", func() {
				So(err, ShouldBeNil)
				So(seen, ShouldBeTrue)
			})
		})

		Convey("When items differ in any field", func() {
			_, _ = s.SeenAndRecord(ctx, pair{"x", 1})
			seenA, _ := s.SeenAndRecord(ctx, pair{"y", 1})
			seenB, _ := s.SeenAndRecord(ctx, pair{"x", 2})

			Convey("Then each should be recorded separately", func() {
				So(seenA, ShouldBeFalse)
				So(seenB, ShouldBeFalse)
				again, _ := s.SeenAndRecord(ctx, pair{"y", 1})
				So(again, ShouldBeTrue)
			})
		})
	})
}

func TestUnique(t *testing.T) {
	Convey("Given anomalies with repeats", t, func() {
		ctx := context.Background()
		ts := time.Date(2024, 11, 11, 0, 0, 0, 0, time.UTC)
		a := model.Anomaly{Position: model.Position{MMSI: "1", Latitude: 1, Longitude: 1, Timestamp: ts}, Reason: model.ReasonNeighborConflict}
		b := model.Anomaly{Position: model.Position{MMSI: "2", Latitude: 1, Longitude: 1, Timestamp: ts}, Reason: model.ReasonNeighborConflict}
		c := model.Anomaly{Position: a.Position, Reason: model.ReasonLocationSpeed}

		Convey("When deduplicating by anomaly key", func() {
			out, err := dedupe.Unique(ctx, []model.Anomaly{a, b, a, c, b, a}, model.Anomaly.Key)

			Convey("Then first occurrences should be kept in order", func() {
				So(err, ShouldBeNil)
				So(len(out), ShouldEqual, 3)
				So(out[0].Position.MMSI, ShouldEqual, "1")
				So(out[0].Reason, ShouldEqual, model.ReasonNeighborConflict)
				So(out[1].Position.MMSI, ShouldEqual, "2")
				So(out[2].Reason, ShouldEqual, model.ReasonLocationSpeed)
			})
		})

		Convey("When deduplicating an empty slice", func() {
			out, err := dedupe.Unique(ctx, nil, model.Anomaly.Key)

			Convey("Then the result should be empty", func() {
				So(err, ShouldBeNil)
				So(out, ShouldBeEmpty)
			})
		})
	})
}
