package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should use the spoofwatch namespace", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "spoofwatch")
				So(manager.subsystem, ShouldEqual, "detector")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithConstLabels(map[string]string{"run": "abc"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the options should be applied", func() {
				So(manager.namespace, ShouldEqual, "test")
				So(manager.subsystem, ShouldEqual, "unit")
				So(manager.histogramBuckets, ShouldResemble, []float64{0.1, 0.5, 1.0})
				So(manager.constLabels["run"], ShouldEqual, "abc")
			})
		})

		Convey("When options carry empty values", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithConstLabels(nil),
				WithPrometheusRegistry(nil),
				WithPrometheusRegistry(registry),
			)

			Convey("Then defaults should be kept", func() {
				So(manager.namespace, ShouldEqual, "spoofwatch")
				So(manager.subsystem, ShouldEqual, "detector")
				So(len(manager.histogramBuckets), ShouldBeGreaterThan, 0)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording records and anomalies", func() {
			readBefore := testutil.ToFloat64(globalManager.recordsRead)
			droppedBefore := testutil.ToFloat64(globalManager.recordsDropped)
			locBefore := testutil.ToFloat64(globalManager.anomaliesFlagged.WithLabelValues("location_speed"))

			RecordRecords(10, 8, 2)
			RecordAnomalies("location_speed", 3)
			RecordAnomalies("location_speed", 0)

			Convey("Then the counters should move by the recorded amounts", func() {
				So(testutil.ToFloat64(globalManager.recordsRead)-readBefore, ShouldEqual, 10)
				So(testutil.ToFloat64(globalManager.recordsDropped)-droppedBefore, ShouldEqual, 2)
				So(testutil.ToFloat64(globalManager.anomaliesFlagged.WithLabelValues("location_speed"))-locBefore, ShouldEqual, 3)
			})
		})

		Convey("When updating gauges", func() {
			UpdateWorkersActive(7)
			UpdateQueueSize(3)
			UpdateQueueCapacity(14)

			Convey("Then the gauges should hold the latest values", func() {
				So(testutil.ToFloat64(globalManager.workersActive), ShouldEqual, 7)
				So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 3)
				So(testutil.ToFloat64(globalManager.queueCapacity), ShouldEqual, 14)
			})
		})

		Convey("When recording chunk and invocation timings", func() {
			So(func() {
				RecordChunkProcessed("parallel", 12.5)
				RecordInvocation("parallel", "ok", 100)
				RecordErrorByComponent("worker", "panic")
				RecordQueueEnqueue()
				RecordQueueDequeue()
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(12)
			}, ShouldNotPanic)

			Convey("Then the custom registry should expose them", func() {
				families, err := GetRegistry().Gather()
				So(err, ShouldBeNil)
				names := map[string]bool{}
				for _, f := range families {
					names[f.GetName()] = true
				}
				So(names["spoofwatch_detector_chunks_processed_total"], ShouldBeTrue)
				So(names["spoofwatch_detector_invocations_total"], ShouldBeTrue)
			})
		})
	})
}
