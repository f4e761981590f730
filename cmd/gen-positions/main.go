// Command gen-positions writes a deterministic synthetic AIS position log
// with injected spoofing patterns and malformed rows.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/okian/spoofwatch/internal/adapters/ingest"
	"github.com/okian/spoofwatch/internal/synthetic"
	"github.com/okian/spoofwatch/pkg/logger"
)

func main() {
	if err := logger.Init(logger.WithWriter(os.Stderr)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newCmd() *cobra.Command {
	cfg := synthetic.DefaultConfig()
	var (
		out      string
		format   string
		noSOGCOG bool
	)

	cmd := &cobra.Command{
		Use:          "gen-positions",
		Short:        "Generate a synthetic AIS position log",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg.WithSOGCOG = !noSOGCOG
			w := cmd.OutOrStdout()
			if out != "" && out != "-" {
				f, err := os.Create(out) //nolint:gosec // operator supplied path
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()
				w = f
			}
			return generate(cmd.Context(), w, cfg, format)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&out, "out", "o", "", "output path (default stdout)")
	fs.StringVar(&format, "format", ingest.FormatCSV, "output format: csv or ndjson")
	fs.BoolVar(&noSOGCOG, "no-sog-cog", false, "omit the SOG and COG columns")
	fs.IntVar(&cfg.Vessels, "vessels", cfg.Vessels, "well-behaved vessels")
	fs.IntVar(&cfg.PositionsPerVessel, "positions", cfg.PositionsPerVessel, "reports per vessel")
	fs.DurationVar(&cfg.Interval, "interval", cfg.Interval, "time between a vessel's reports")
	fs.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "random seed")
	fs.Float64Var(&cfg.TeleportRate, "teleport-rate", cfg.TeleportRate, "chance a report jumps far off track")
	fs.Float64Var(&cfg.CourseLieRate, "course-lie-rate", cfg.CourseLieRate, "chance a report carries a wrong COG")
	fs.IntVar(&cfg.ConflictPairs, "conflict-pairs", cfg.ConflictPairs, "vessels shadowing another at close range")
	fs.Float64Var(&cfg.MalformedRate, "malformed-rate", cfg.MalformedRate, "chance a row is corrupted")
	return cmd
}

func generate(ctx context.Context, w io.Writer, cfg synthetic.Config, format string) error {
	recs, stats, err := synthetic.Generate(ctx, cfg)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	switch format {
	case ingest.FormatCSV:
		err = synthetic.WriteCSV(bw, recs, cfg.WithSOGCOG)
	case ingest.FormatNDJSON:
		err = synthetic.WriteNDJSON(bw, recs, cfg.WithSOGCOG)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
	if err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}

	logger.Get().Named("gen-positions").Info(ctx, "position log generated",
		logger.String("rows", humanize.Comma(int64(stats.Rows))),
		logger.Int("vessels", stats.Vessels),
		logger.Int("teleports", stats.Teleports),
		logger.Int("course_lies", stats.CourseLies),
		logger.Int("shadows", stats.Shadows),
		logger.Int("malformed", stats.Malformed),
	)
	return nil
}
