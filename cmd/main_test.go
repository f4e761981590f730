package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/okian/spoofwatch/internal/config"
	"github.com/okian/spoofwatch/internal/synthetic"
	"github.com/okian/spoofwatch/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
}

// positionLog writes a small synthetic AIS export and returns its path.
func positionLog(t *testing.T) string {
	t.Helper()
	cfg := synthetic.DefaultConfig()
	cfg.Vessels, cfg.PositionsPerVessel = 10, 30
	recs, _, err := synthetic.Generate(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "positions.csv")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = f.Close() }()
	if err := synthetic.WriteCSV(f, recs, true); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(args ...string) (string, error) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestApplyFlags(t *testing.T) {
	convey.Convey("Given the command line flags", t, func() {
		fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
		fs.AddFlagSet(commonFlags())
		fs.IntSlice(flagWorkerCounts, nil, "")
		cfg := config.New()

		convey.Convey("When some flags are set", func() {
			err := fs.Parse([]string{"-w", "6", "--neighbors", "--speed-threshold", "150", "--worker-counts", "1,2"})
			convey.So(err, convey.ShouldBeNil)
			err = applyFlags(fs, cfg)

			convey.Convey("Then only those should override the config", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 6)
				convey.So(cfg.NeighborEnabled, convey.ShouldBeTrue)
				convey.So(cfg.LocationSpeedThresholdKmh, convey.ShouldEqual, 150)
				convey.So(cfg.BenchWorkerCounts, convey.ShouldResemble, []int{1, 2})
				convey.So(cfg.ChunkSize, convey.ShouldEqual, config.New().ChunkSize)
				convey.So(cfg.Strategy, convey.ShouldEqual, config.New().Strategy)
			})
		})
	})
}

func TestDetectCommand(t *testing.T) {
	convey.Convey("Given a position log on disk", t, func() {
		path := positionLog(t)
		anomalies := filepath.Join(t.TempDir(), "anomalies.csv")
		cleaned := filepath.Join(t.TempDir(), "cleaned.csv")

		convey.Convey("When detect runs in parallel", func() {
			out, err := execute("detect", "-i", path, "--strategy", "parallel", "-w", "2",
				"--chunk-size", "100", "--anomalies", anomalies, "--cleaned", cleaned)

			convey.Convey("Then it should print a summary and write both files", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, "strategy   parallel (2 workers)")
				convey.So(out, convey.ShouldContainSubstring, "location_speed")

				data, err := os.ReadFile(anomalies)
				convey.So(err, convey.ShouldBeNil)
				convey.So(string(data), convey.ShouldStartWith, "# Timestamp,MMSI,")
				_, err = os.Stat(cleaned)
				convey.So(err, convey.ShouldBeNil)
			})
		})

		convey.Convey("When detect runs sequentially on the same log", func() {
			seq, err1 := execute("detect", "-i", path, "--strategy", "sequential", "--chunk-size", "100")
			par, err2 := execute("detect", "-i", path, "--strategy", "parallel", "-w", "3", "--chunk-size", "100")

			convey.Convey("Then the counts should match the parallel run", func() {
				convey.So(err1, convey.ShouldBeNil)
				convey.So(err2, convey.ShouldBeNil)
				convey.So(counts(seq), convey.ShouldEqual, counts(par))
			})
		})

		convey.Convey("When the strategy is unknown", func() {
			_, err := execute("detect", "-i", path, "--strategy", "threads")

			convey.Convey("Then the config should be rejected", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When no input is given", func() {
			_, err := execute("detect")

			convey.Convey("Then it should fail", func() {
				convey.So(errors.Is(err, errNoInput), convey.ShouldBeTrue)
			})
		})
	})
}

func TestBenchCommand(t *testing.T) {
	convey.Convey("Given a position log on disk", t, func() {
		path := positionLog(t)
		results := filepath.Join(t.TempDir(), "experiment_results.csv")

		convey.Convey("When a small grid is benchmarked", func() {
			out, err := execute("bench", "-i", path, "--results", results,
				"--chunk-sizes", "50,150", "--worker-counts", "1,2", "--sample-interval", "5")

			convey.Convey("Then a row per grid point should be appended and a chart printed", func() {
				convey.So(err, convey.ShouldBeNil)
				data, err := os.ReadFile(results)
				convey.So(err, convey.ShouldBeNil)
				lines := strings.Split(strings.TrimSpace(string(data)), "\n")
				convey.So(len(lines), convey.ShouldEqual, 5)
				convey.So(lines[0], convey.ShouldStartWith, "run_id,chunk_size,num_workers")
				for _, l := range lines[1:] {
					convey.So(l, convey.ShouldContainSubstring, ",true,")
				}
				convey.So(out, convey.ShouldContainSubstring, "Speedup vs workers")
				convey.So(out, convey.ShouldContainSubstring, "chunk size 150")
			})
		})
	})
}

func TestSystemMetrics(t *testing.T) {
	convey.Convey("Given the system metrics updater", t, func() {
		convey.Convey("Then a single update should not panic", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})

		convey.Convey("Then the loop should stop with its context", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			done := make(chan struct{})
			go func() {
				startSystemMetricsUpdater(ctx)
				close(done)
			}()

			select {
			case <-done:
			case <-time.After(time.Second):
				t.Fatal("updater did not stop")
			}
		})
	})
}

// counts strips the strategy and timing lines from a summary.
func counts(summary string) string {
	var keep []string
	for _, l := range strings.Split(summary, "\n") {
		if strings.HasPrefix(l, "strategy") || strings.HasPrefix(l, "elapsed") {
			continue
		}
		keep = append(keep, l)
	}
	return strings.Join(keep, "\n")
}
