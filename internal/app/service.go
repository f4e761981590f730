// Package service provides the execution engine that feeds a chunk stream
// through the detection pipeline under a chosen strategy.
package service

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/okian/spoofwatch/internal/domain/chunk"
	"github.com/okian/spoofwatch/pkg/logger"
	"github.com/okian/spoofwatch/pkg/metrics"
)

// Service runs the detection pipeline over a chunk stream. It is agnostic
// to the strategy it was built with.
type Service struct {
	strategy  Strategy
	processor chunk.Processor
	logger    logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStrategy sets the execution strategy.
func WithStrategy(s Strategy) Option {
	return func(svc *Service) {
		if s != nil {
			svc.strategy = s
		}
	}
}

// WithProcessor sets the chunk processor.
func WithProcessor(p chunk.Processor) Option {
	return func(svc *Service) {
		if p != nil {
			svc.processor = p
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(svc *Service) {
		if l != nil {
			svc.logger = l
		}
	}
}

// New constructs a Service. Without options it runs the default pipeline
// sequentially.
func New(opts ...Option) *Service {
	s := &Service{}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("engine")
	}
	if s.strategy == nil {
		s.strategy = NewSequential()
	}
	if s.processor == nil {
		s.processor = chunk.NewPipeline()
	}
	return s
}

// Strategy returns the strategy in use.
func (s *Service) Strategy() Strategy { return s.strategy }

// Run processes src to completion. On failure no partial result is returned.
func (s *Service) Run(ctx context.Context, src ChunkSource) (Result, error) {
	name := s.strategy.Name()
	s.logger.Info(ctx, "run started", logger.String("strategy", name))

	start := time.Now()
	res, err := s.strategy.Run(ctx, src, s.processor)
	elapsed := time.Since(start)
	ms := float64(elapsed.Microseconds()) / 1000

	if err != nil {
		metrics.RecordInvocation(name, "failure", ms)
		metrics.RecordErrorByComponent("engine", "run_failed")
		s.logger.Error(ctx, "run failed",
			logger.String("strategy", name),
			logger.Duration("elapsed", elapsed),
			logger.Error(err),
		)
		return Result{}, err
	}

	res.Elapsed = elapsed
	metrics.RecordInvocation(name, "success", ms)
	s.logger.Info(ctx, "run finished",
		logger.String("strategy", name),
		logger.Int("workers", res.Workers),
		logger.String("chunks", humanize.Comma(int64(res.Chunks))),
		logger.String("read", humanize.Comma(int64(res.Read))),
		logger.String("cleaned", humanize.Comma(int64(len(res.Cleaned)))),
		logger.String("anomalies", humanize.Comma(int64(len(res.Anomalies)))),
		logger.Duration("elapsed", elapsed),
	)
	return res, nil
}
