package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/okian/spoofwatch/internal/adapters/report"
	"github.com/okian/spoofwatch/internal/adapters/sampler"
	"github.com/okian/spoofwatch/internal/config"
	"github.com/okian/spoofwatch/internal/experiment"
	"github.com/okian/spoofwatch/pkg/logger"
)

func newBenchCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Compare sequential and parallel runs across chunk sizes and worker counts",
		Long: `For every chunk size the input is processed once sequentially and once in
parallel per worker count. Each comparison is appended to the results CSV
and a speedup chart is printed when the sweep ends.

Example:

  spoofwatch bench -i aisdk-2024-11-11.csv --chunk-sizes 100000,500000 --worker-counts 2,4,8`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBench(cmd, cfg)
		},
	}

	d := config.New()
	fs := pflag.NewFlagSet("bench", pflag.ContinueOnError)
	fs.String(flagResults, d.ResultsOutput, "append results to this CSV")
	fs.IntSlice(flagChunkSizes, d.BenchChunkSizes, "chunk sizes to sweep")
	fs.IntSlice(flagWorkerCounts, d.BenchWorkerCounts, "worker counts to sweep")
	fs.Int(flagSampleInterval, d.SampleIntervalMS, "resource sampling period, ms")
	cmd.Flags().AddFlagSet(fs)
	return cmd
}

func runBench(cmd *cobra.Command, cfg *config.Config) error {
	ctx := cmd.Context()
	log := logger.Get().Named("bench")

	if cfg.MetricsAddr != "" {
		defer startMetricsServer(ctx, cfg.MetricsAddr)()
	}

	if cfg.Input == "" {
		return errNoInput
	}
	meter, err := sampler.New(sampler.WithInterval(cfg.SampleInterval()))
	if err != nil {
		return err
	}
	out, err := report.OpenResults(cfg.ResultsOutput)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	runner, err := experiment.New(opener(cfg),
		experiment.WithChunkSizes(cfg.BenchChunkSizes...),
		experiment.WithWorkerCounts(cfg.BenchWorkerCounts...),
		experiment.WithQueueSize(cfg.QueueSize),
		experiment.WithProcessor(newPipeline(cfg)),
		experiment.WithMeter(meter),
		experiment.WithOnResult(out.Append),
	)
	if err != nil {
		return err
	}

	results, err := runner.Run(ctx)
	if err != nil {
		return err
	}
	log.Info(ctx, "results appended",
		logger.String("path", cfg.ResultsOutput),
		logger.String("run_id", runner.RunID()),
		logger.Int("rows", len(results)),
	)
	return report.Chart(cmd.OutOrStdout(), results)
}
