// Package experiment sweeps chunk sizes and worker counts, measuring the
// sequential and parallel strategies over the same input.
package experiment

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/okian/spoofwatch/internal/adapters/ingest"
	"github.com/okian/spoofwatch/internal/adapters/sampler"
	service "github.com/okian/spoofwatch/internal/app"
	"github.com/okian/spoofwatch/internal/domain/chunk"
	"github.com/okian/spoofwatch/pkg/logger"
)

// Opener opens a fresh stream over the input, chunked by chunkSize.
type Opener func(chunkSize int) (ingest.Source, error)

// Meter measures the resources used by a call.
type Meter interface {
	Measure(ctx context.Context, fn func(ctx context.Context) error) (sampler.Usage, error)
}

// Result is one row of the experiment: a parallel run compared against the
// sequential baseline for the same chunk size.
type Result struct {
	RunID     string
	ChunkSize int
	Workers   int

	TimeSeq time.Duration
	TimePar time.Duration
	// Speedup is TimeSeq / TimePar, +Inf when the parallel run took no time.
	Speedup float64

	PeakCPUSeq   float64
	PeakCPUPar   float64
	PeakMemSeqMB float64
	PeakMemParMB float64

	SeqValid     int
	SeqAnomalies int
	ParValid     int
	ParAnomalies int
	// Equivalent reports matching cleaned and anomaly counts.
	Equivalent bool

	// ChunkP95Ms is the 95th percentile of parallel per-chunk latency.
	ChunkP95Ms float64
}

// Runner executes the experiment grid.
type Runner struct {
	open         Opener
	chunkSizes   []int
	workerCounts []int
	queueSize    int
	processor    chunk.Processor
	meter        Meter
	runID        string
	onResult     func(Result) error
	logger       logger.Logger
}

type measured struct {
	res   service.Result
	usage sampler.Usage
}

// New creates a Runner reading its input through open.
func New(open Opener, opts ...Option) (*Runner, error) {
	r := &Runner{
		open:         open,
		chunkSizes:   []int{ingest.DefaultChunkSize},
		workerCounts: []int{7, 8},
		runID:        uuid.NewString(),
		logger:       logger.Get().Named("experiment"),
	}
	for _, opt := range opts {
		opt(r)
	}
	if len(r.chunkSizes) == 0 || len(r.workerCounts) == 0 {
		return nil, ErrNoGrid
	}
	if r.processor == nil {
		r.processor = chunk.NewPipeline()
	}
	if r.meter == nil {
		s, err := sampler.New()
		if err != nil {
			return nil, err
		}
		r.meter = s
	}
	return r, nil
}

// RunID returns the identifier stamped on every result.
func (r *Runner) RunID() string { return r.runID }

// Run measures the sequential strategy once per chunk size and the parallel
// strategy once per chunk size and worker count.
func (r *Runner) Run(ctx context.Context) ([]Result, error) {
	r.logger.Info(ctx, "experiment started",
		logger.String("run_id", r.runID),
		logger.Any("chunk_sizes", r.chunkSizes),
		logger.Any("worker_counts", r.workerCounts),
	)

	results := make([]Result, 0, len(r.chunkSizes)*len(r.workerCounts))
	for _, size := range r.chunkSizes {
		seq, err := r.measure(ctx, size, service.NewSequential())
		if err != nil {
			return results, err
		}

		for _, workers := range r.workerCounts {
			par, err := r.measure(ctx, size, service.NewParallel(workers, r.queueSize))
			if err != nil {
				return results, err
			}

			row := compare(r.runID, size, workers, seq, par)
			r.logger.Info(ctx, "configuration measured",
				logger.String("chunk_size", humanize.Comma(int64(size))),
				logger.Int("workers", workers),
				logger.Duration("time_seq", row.TimeSeq),
				logger.Duration("time_par", row.TimePar),
				logger.Float64("speedup", row.Speedup),
				logger.Bool("equivalent", row.Equivalent),
			)
			if !row.Equivalent {
				r.logger.Warn(ctx, "strategies disagree",
					logger.Int("seq_anomalies", row.SeqAnomalies),
					logger.Int("par_anomalies", row.ParAnomalies),
				)
			}

			results = append(results, row)
			if r.onResult != nil {
				if err := r.onResult(row); err != nil {
					return results, err
				}
			}
		}
	}
	return results, nil
}

func (r *Runner) measure(ctx context.Context, size int, strategy service.Strategy) (measured, error) {
	src, err := r.open(size)
	if err != nil {
		return measured{}, fmt.Errorf("%w: chunk size %d: %w", ErrOpenSource, size, err)
	}
	defer func() { _ = src.Close() }()

	svc := service.New(service.WithStrategy(strategy), service.WithProcessor(r.processor))
	var m measured
	m.usage, err = r.meter.Measure(ctx, func(ctx context.Context) error {
		res, err := svc.Run(ctx, src)
		m.res = res
		return err
	})
	if err != nil {
		return measured{}, fmt.Errorf("%w: %s chunk size %d: %w", ErrRun, strategy.Name(), size, err)
	}
	return m, nil
}

func compare(runID string, size, workers int, seq, par measured) Result {
	row := Result{
		RunID:        runID,
		ChunkSize:    size,
		Workers:      workers,
		TimeSeq:      seq.usage.Elapsed,
		TimePar:      par.usage.Elapsed,
		Speedup:      Speedup(seq.usage.Elapsed, par.usage.Elapsed),
		PeakCPUSeq:   seq.usage.PeakCPU,
		PeakCPUPar:   par.usage.PeakCPU,
		PeakMemSeqMB: seq.usage.PeakMemMB,
		PeakMemParMB: par.usage.PeakMemMB,
		SeqValid:     len(seq.res.Cleaned),
		SeqAnomalies: len(seq.res.Anomalies),
		ParValid:     len(par.res.Cleaned),
		ParAnomalies: len(par.res.Anomalies),
	}
	row.Equivalent = row.SeqValid == row.ParValid && row.SeqAnomalies == row.ParAnomalies
	if p95, err := sampler.Percentile(par.res.ChunkLatencies, 95); err == nil {
		row.ChunkP95Ms = p95
	}
	return row
}

// Speedup returns seq / par, or +Inf when par is zero.
func Speedup(seq, par time.Duration) float64 {
	if par <= 0 {
		return math.Inf(1)
	}
	return seq.Seconds() / par.Seconds()
}
