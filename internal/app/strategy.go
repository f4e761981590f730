package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/okian/spoofwatch/internal/adapters/mq/queue"
	"github.com/okian/spoofwatch/internal/adapters/mq/worker"
	"github.com/okian/spoofwatch/internal/domain/chunk"
	"github.com/okian/spoofwatch/internal/domain/model"
	"github.com/okian/spoofwatch/pkg/logger"
	"github.com/okian/spoofwatch/pkg/metrics"
)

// Strategy names.
const (
	StrategySequential = "sequential"
	StrategyParallel   = "parallel"
)

// ChunkSource yields chunks until it returns io.EOF.
type ChunkSource interface {
	Next(ctx context.Context) (model.Chunk, error)
}

// Strategy runs a processor over every chunk of a source. Every strategy
// returns the same cleaned positions and anomalies for the same input.
type Strategy interface {
	Name() string
	Run(ctx context.Context, src ChunkSource, proc chunk.Processor) (Result, error)
}

// Result is the concatenation of every chunk's output, in chunk order.
type Result struct {
	Strategy  string
	Workers   int
	Cleaned   []model.Position
	Anomalies []model.Anomaly
	Chunks    int
	Read      int
	Dropped   int
	// ChunkLatencies holds each chunk's processing time, indexed by chunk.
	ChunkLatencies []time.Duration
	Elapsed        time.Duration
}

// StrategyFor builds the named strategy. workers and queueSize only apply to
// the parallel strategy; values below one select the defaults.
func StrategyFor(name string, workers, queueSize int) (Strategy, error) {
	switch name {
	case StrategySequential:
		return NewSequential(), nil
	case StrategyParallel:
		return NewParallel(workers, queueSize), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}

// Sequential processes chunks one at a time, in input order, on the
// calling goroutine.
type Sequential struct {
	logger logger.Logger
}

// NewSequential creates the sequential strategy.
func NewSequential() *Sequential {
	return &Sequential{logger: logger.Get().Named(StrategySequential)}
}

// Name returns "sequential".
func (s *Sequential) Name() string { return StrategySequential }

// Run processes every chunk of src. The first failing chunk aborts the run.
func (s *Sequential) Run(ctx context.Context, src ChunkSource, proc chunk.Processor) (Result, error) {
	var (
		outs      []model.ChunkResult
		latencies []time.Duration
	)
	for {
		c, err := next(ctx, src)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Result{}, err
		}

		start := time.Now()
		res, err := safeProcess(ctx, proc, c)
		elapsed := time.Since(start)
		if err != nil {
			metrics.RecordErrorByComponent(StrategySequential, "chunk_failed")
			return Result{}, fmt.Errorf("%w: chunk %d: %w", ErrChunkFailed, c.Index, err)
		}

		progress(ctx, s.logger, StrategySequential, c.Index, len(c.Records), elapsed)
		outs = append(outs, res)
		latencies = append(latencies, elapsed)
	}

	res := assemble(outs, latencies)
	res.Strategy, res.Workers = StrategySequential, 1
	return res, nil
}

// Parallel fans chunks out to a worker pool that lives for one run.
type Parallel struct {
	workers   int
	queueSize int
	logger    logger.Logger
}

// NewParallel creates the parallel strategy. A worker count below one
// selects one less than the CPU count; a queue size below one selects twice
// the worker count.
func NewParallel(workers, queueSize int) *Parallel {
	if workers < 1 {
		workers = worker.DefaultWorkerCount()
	}
	if queueSize < 1 {
		queueSize = 2 * workers
	}
	return &Parallel{workers: workers, queueSize: queueSize, logger: logger.Get().Named(StrategyParallel)}
}

// Name returns "parallel".
func (p *Parallel) Name() string { return StrategyParallel }

// Workers returns the pool size.
func (p *Parallel) Workers() int { return p.workers }

// Run reads src on one goroutine and submits each chunk to the pool while
// workers process earlier ones. Results are gathered as they complete and
// reordered by chunk index. The first failing chunk cancels the run; the
// pool is torn down on every return path.
func (p *Parallel) Run(parent context.Context, src ChunkSource, proc chunk.Processor) (Result, error) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	q := queue.NewInMemoryQueue(queue.WithCapacity(p.queueSize))
	pool := worker.NewPool(p.workers, q, proc,
		worker.WithPoolLogger(p.logger),
		worker.WithResultBuffer(p.queueSize),
	)
	pool.Start(ctx)
	defer func() {
		cancel()
		if err := pool.Shutdown(context.Background()); err != nil {
			p.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
		}
	}()

	type produced struct {
		n   int
		err error
	}
	done := make(chan produced, 1)
	go func() {
		defer func() { _ = q.Close() }()
		n, err := submitAll(ctx, src, q)
		if err != nil {
			cancel()
		}
		done <- produced{n: n, err: err}
	}()

	var (
		outs      []model.ChunkResult
		latencies = make(map[int]time.Duration)
		failure   error
	)
	for out := range pool.Results() {
		if failure != nil {
			continue
		}
		if out.Err != nil {
			metrics.RecordErrorByComponent(StrategyParallel, "chunk_failed")
			failure = fmt.Errorf("%w: chunk %d: %w", ErrChunkFailed, out.Index, out.Err)
			cancel()
			continue
		}
		progress(ctx, p.logger, StrategyParallel, out.Index, out.Result.Read, out.Elapsed)
		outs = append(outs, out.Result)
		latencies[out.Index] = out.Elapsed
	}
	prod := <-done

	// Workers abandon their chunks once the caller cancels, which would
	// otherwise surface as a failed or incomplete run.
	if err := parent.Err(); err != nil {
		return Result{}, err
	}
	if failure != nil {
		return Result{}, failure
	}
	if prod.err != nil {
		return Result{}, prod.err
	}
	if len(outs) != prod.n {
		return Result{}, fmt.Errorf("%w: %d of %d chunks", ErrIncomplete, len(outs), prod.n)
	}

	sort.Slice(outs, func(i, j int) bool { return outs[i].Index < outs[j].Index })
	ordered := make([]time.Duration, len(outs))
	for i, o := range outs {
		ordered[i] = latencies[o.Index]
	}

	res := assemble(outs, ordered)
	res.Strategy, res.Workers = StrategyParallel, pool.Size()
	return res, nil
}

func submitAll(ctx context.Context, src ChunkSource, q queue.Queue) (int, error) {
	n := 0
	for {
		c, err := next(ctx, src)
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		if err := q.Submit(ctx, c); err != nil {
			return n, err
		}
		n++
	}
}

// next reads one chunk. Source failures are wrapped in ErrSource; context
// errors pass through unchanged.
func next(ctx context.Context, src ChunkSource) (model.Chunk, error) {
	c, err := src.Next(ctx)
	switch {
	case err == nil, errors.Is(err, io.EOF):
		return c, err
	case ctx.Err() != nil:
		return c, ctx.Err()
	default:
		return c, fmt.Errorf("%w: %w", ErrSource, err)
	}
}

// safeProcess runs proc, converting a panic into an error.
func safeProcess(ctx context.Context, proc chunk.Processor, c model.Chunk) (res model.ChunkResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: chunk %d: %v", worker.ErrPanic, c.Index, r)
		}
	}()
	return proc.Process(ctx, c)
}

func progress(ctx context.Context, log logger.Logger, strategy string, index, rows int, elapsed time.Duration) {
	metrics.RecordChunkProcessed(strategy, float64(elapsed.Microseconds())/1000)
	log.Info(ctx, "chunk processed",
		logger.Int("chunk", index),
		logger.Int("rows", rows),
		logger.Duration("elapsed", elapsed),
	)
}

func assemble(outs []model.ChunkResult, latencies []time.Duration) Result {
	var res Result
	cleaned, anomalies := 0, 0
	for i := range outs {
		cleaned += len(outs[i].Cleaned)
		anomalies += len(outs[i].Anomalies)
	}
	res.Cleaned = make([]model.Position, 0, cleaned)
	res.Anomalies = make([]model.Anomaly, 0, anomalies)
	for i := range outs {
		res.Cleaned = append(res.Cleaned, outs[i].Cleaned...)
		res.Anomalies = append(res.Anomalies, outs[i].Anomalies...)
		res.Read += outs[i].Read
		res.Dropped += outs[i].Dropped
	}
	res.Chunks = len(outs)
	res.ChunkLatencies = latencies
	return res
}
