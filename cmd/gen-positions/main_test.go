package main

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/okian/spoofwatch/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init(logger.WithWriter(io.Discard))
}

func run(args ...string) (string, error) {
	var out bytes.Buffer
	cmd := newCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestGenPositions(t *testing.T) {
	convey.Convey("Given the generator command", t, func() {
		convey.Convey("When writing CSV to stdout", func() {
			out, err := run("--vessels", "2", "--positions", "3", "--conflict-pairs", "0", "--malformed-rate", "0")

			convey.Convey("Then it should print a header and one row per report", func() {
				convey.So(err, convey.ShouldBeNil)
				lines := strings.Split(strings.TrimSpace(out), "\n")
				convey.So(lines[0], convey.ShouldEqual, "# Timestamp,MMSI,Latitude,Longitude,SOG,COG")
				convey.So(len(lines), convey.ShouldEqual, 7)
			})
		})

		convey.Convey("When writing NDJSON without SOG/COG", func() {
			out, err := run("--vessels", "1", "--positions", "2", "--conflict-pairs", "0",
				"--malformed-rate", "0", "--format", "ndjson", "--no-sog-cog")

			convey.Convey("Then each line should be an object without the optional fields", func() {
				convey.So(err, convey.ShouldBeNil)
				lines := strings.Split(strings.TrimSpace(out), "\n")
				convey.So(len(lines), convey.ShouldEqual, 2)
				convey.So(lines[0], convey.ShouldNotContainSubstring, `"SOG"`)
			})
		})

		convey.Convey("When the format is unknown", func() {
			_, err := run("--format", "xml")

			convey.Convey("Then it should fail", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}
