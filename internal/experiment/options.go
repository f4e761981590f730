package experiment

import (
	"github.com/okian/spoofwatch/internal/domain/chunk"
	"github.com/okian/spoofwatch/pkg/logger"
)

// Option configures a Runner.
type Option func(*Runner)

// WithChunkSizes sets the chunk sizes to sweep.
func WithChunkSizes(sizes ...int) Option {
	return func(r *Runner) {
		r.chunkSizes = append([]int(nil), sizes...)
	}
}

// WithWorkerCounts sets the parallel worker counts to sweep.
func WithWorkerCounts(counts ...int) Option {
	return func(r *Runner) {
		r.workerCounts = append([]int(nil), counts...)
	}
}

// WithQueueSize sets the parallel queue capacity; 0 selects twice the workers.
func WithQueueSize(n int) Option {
	return func(r *Runner) {
		r.queueSize = n
	}
}

// WithProcessor sets the chunk processor used by every run.
func WithProcessor(p chunk.Processor) Option {
	return func(r *Runner) {
		if p != nil {
			r.processor = p
		}
	}
}

// WithMeter sets the resource meter.
func WithMeter(m Meter) Option {
	return func(r *Runner) {
		if m != nil {
			r.meter = m
		}
	}
}

// WithRunID overrides the generated run identifier.
func WithRunID(id string) Option {
	return func(r *Runner) {
		if id != "" {
			r.runID = id
		}
	}
}

// WithOnResult registers a callback invoked after each grid point completes.
func WithOnResult(fn func(Result) error) Option {
	return func(r *Runner) {
		r.onResult = fn
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}
