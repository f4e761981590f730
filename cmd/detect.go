package main

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/okian/spoofwatch/internal/adapters/report"
	service "github.com/okian/spoofwatch/internal/app"
	"github.com/okian/spoofwatch/internal/config"
	"github.com/okian/spoofwatch/internal/domain/model"
	"github.com/okian/spoofwatch/pkg/logger"
)

func newDetectCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Run the detectors over a position log once",
		Long: `Reads the input in chunks, runs the location, speed/course and optional
neighbor detectors under the chosen strategy, and writes the flagged and
cleaned positions.

Example:

  spoofwatch detect -i aisdk-2024-11-11.csv --strategy parallel -w 8 --anomalies anomalies.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDetect(cmd, cfg)
		},
	}

	d := config.New()
	fs := pflag.NewFlagSet("detect", pflag.ContinueOnError)
	fs.String(flagStrategy, d.Strategy, "execution strategy: sequential or parallel")
	fs.String(flagAnomalies, d.AnomaliesOutput, "write anomalies CSV to this path")
	fs.String(flagCleaned, d.CleanedOutput, "write cleaned positions CSV to this path")
	cmd.Flags().AddFlagSet(fs)
	return cmd
}

func runDetect(cmd *cobra.Command, cfg *config.Config) error {
	ctx := cmd.Context()
	log := logger.Get().Named("detect")

	if cfg.MetricsAddr != "" {
		defer startMetricsServer(ctx, cfg.MetricsAddr)()
	}

	strategy, err := service.StrategyFor(cfg.Strategy, cfg.WorkerCount, cfg.QueueSize)
	if err != nil {
		return err
	}
	src, err := opener(cfg)(cfg.ChunkSize)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	svc := service.New(
		service.WithStrategy(strategy),
		service.WithProcessor(newPipeline(cfg)),
	)
	res, err := svc.Run(ctx, src)
	if err != nil {
		return err
	}

	if cfg.AnomaliesOutput != "" {
		if err := writeFile(cfg.AnomaliesOutput, func(f *os.File) error {
			return report.WriteAnomalies(f, res.Anomalies)
		}); err != nil {
			return err
		}
		log.Info(ctx, "anomalies written", logger.String("path", cfg.AnomaliesOutput))
	}
	if cfg.CleanedOutput != "" {
		if err := writeFile(cfg.CleanedOutput, func(f *os.File) error {
			return report.WriteCleaned(f, res.Cleaned)
		}); err != nil {
			return err
		}
		log.Info(ctx, "cleaned positions written", logger.String("path", cfg.CleanedOutput))
	}

	return printSummary(cmd.OutOrStdout(), res)
}

func printSummary(w io.Writer, res service.Result) error {
	byReason := make(map[model.Reason]int, len(model.Reasons))
	for _, a := range res.Anomalies {
		byReason[a.Reason]++
	}

	_, err := fmt.Fprintf(w, "strategy   %s (%d workers)\nchunks     %s\nread       %s\ndropped    %s\ncleaned    %s\nanomalies  %s\n",
		res.Strategy, res.Workers,
		humanize.Comma(int64(res.Chunks)),
		humanize.Comma(int64(res.Read)),
		humanize.Comma(int64(res.Dropped)),
		humanize.Comma(int64(len(res.Cleaned))),
		humanize.Comma(int64(len(res.Anomalies))),
	)
	if err != nil {
		return err
	}
	for _, r := range model.Reasons {
		if _, err := fmt.Fprintf(w, "  %-18s %s\n", r, humanize.Comma(int64(byReason[r]))); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "elapsed    %s\n", res.Elapsed)
	return err
}
