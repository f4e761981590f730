// Package worker runs chunk processing on a fixed-size pool of goroutines.
//
// Workers share nothing: each takes whole chunks off the queue, processes
// them with its own copy of the input and reports one Outcome per chunk on
// the pool's results channel.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/spoofwatch/internal/domain/model"
	"github.com/okian/spoofwatch/pkg/logger"
	"github.com/okian/spoofwatch/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Processor processes one chunk.
type Processor interface {
	Process(ctx context.Context, c model.Chunk) (model.ChunkResult, error)
}

// Queue defines how workers receive chunks.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Chunk
}

// Outcome is the result of processing one chunk.
type Outcome struct {
	Index   int
	Result  model.ChunkResult
	Err     error
	Worker  string
	Elapsed time.Duration
}

// Worker processes chunks until its queue is drained.
type Worker interface {
	// Run starts the worker loop until the queue closes or ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker after its current chunk.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue     Queue
	processor Processor
	results   chan<- Outcome
	name      string

	// busy is shared with the pool to report active workers.
	busy *atomic.Int64

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker that reports outcomes on results.
func NewInMemoryWorker(queue Queue, processor Processor, results chan<- Outcome, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     queue,
		processor: processor,
		results:   results,
		name:      "worker",
		busy:      new(atomic.Int64),
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Get().Named("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	chunks := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case c, ok := <-chunks:
			if !ok {
				return
			}

			out := w.handle(ctx, c)
			select {
			case w.results <- out:
			case <-ctx.Done():
				return
			case <-w.shutdown:
				return
			}
		}
	}
}

// Shutdown stops the worker and waits for it to exit.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("%w: %w", ErrShutdownTimeout, ctx.Err())
	}
}

func (w *InMemoryWorker) handle(ctx context.Context, c model.Chunk) Outcome {
	metrics.UpdateWorkersActive(int(w.busy.Add(1)))
	defer func() { metrics.UpdateWorkersActive(int(w.busy.Add(-1))) }()

	start := time.Now()
	res, err := w.process(ctx, c)
	out := Outcome{Index: c.Index, Result: res, Err: err, Worker: w.name, Elapsed: time.Since(start)}

	if err != nil {
		w.logger.Error(ctx, "chunk processing failed",
			logger.Int("chunk", c.Index),
			logger.Error(err),
		)
		return out
	}
	w.logger.Debug(ctx, "chunk done",
		logger.Int("chunk", c.Index),
		logger.Int("records", len(c.Records)),
		logger.Duration("elapsed", out.Elapsed),
	)
	return out
}

// process runs the processor, converting a panic into an error.
func (w *InMemoryWorker) process(ctx context.Context, c model.Chunk) (res model.ChunkResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordErrorByComponent("worker", "panic")
			err = fmt.Errorf("%w: chunk %d: %v", ErrPanic, c.Index, r)
		}
	}()

	res, err = w.processor.Process(ctx, c)
	if err != nil {
		metrics.RecordErrorByComponent("worker", "process_error")
	}
	return res, err
}

// DefaultWorkerCount is one less than the number of CPUs, and at least one.
func DefaultWorkerCount() int {
	if n := runtime.NumCPU() - 1; n > 1 {
		return n
	}
	return 1
}

// Pool manages a fixed set of workers reading from one queue.
type Pool struct {
	workers      []*InMemoryWorker
	queue        Queue
	processor    Processor
	results      chan Outcome
	resultBuffer int
	busy         atomic.Int64

	startOnce sync.Once
	started   atomic.Bool
	wg        sync.WaitGroup

	logger logger.Logger
}

// NewPool creates a pool of workerCount workers. A count below one selects
// DefaultWorkerCount.
func NewPool(workerCount int, queue Queue, processor Processor, opts ...PoolOption) *Pool {
	if workerCount < 1 {
		workerCount = DefaultWorkerCount()
	}

	pool := &Pool{
		workers:      make([]*InMemoryWorker, workerCount),
		queue:        queue,
		processor:    processor,
		resultBuffer: workerCount,
		logger:       logger.Get().Named("worker-pool"),
	}
	for _, opt := range opts {
		opt(pool)
	}
	pool.results = make(chan Outcome, pool.resultBuffer)

	for i := 0; i < workerCount; i++ {
		w := NewInMemoryWorker(
			queue,
			processor,
			pool.results,
			WithLogger(pool.logger),
			WithName("worker-"+strconv.Itoa(i)),
		)
		w.busy = &pool.busy
		pool.workers[i] = w
	}

	metrics.UpdateWorkersActive(0)

	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Results returns the outcome channel. It is closed once every worker has
// exited.
func (p *Pool) Results() <-chan Outcome { return p.results }

// Start starts all workers in the pool. Calling it again has no effect.
func (p *Pool) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		p.started.Store(true)
		p.wg.Add(len(p.workers))
		for _, w := range p.workers {
			go func(w *InMemoryWorker) {
				defer p.wg.Done()
				w.Run(ctx)
			}(w)
		}
		go func() {
			p.wg.Wait()
			close(p.results)
		}()
		p.logger.Debug(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
	})
}

// Shutdown closes the queue, stops every worker and waits for them to exit.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	if !p.started.Load() {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var firstErr error
	for i, w := range p.workers {
		if err := w.Shutdown(shutdownCtx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	metrics.UpdateWorkersActive(0)
	return firstErr
}
